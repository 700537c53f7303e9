package grouping

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/shared"
)

// SegmentParticipant is the frozen share configuration for one worker inside
// a segment. Later membership edits never touch participants of segments
// already written.
type SegmentParticipant struct {
	WorkerID uuid.UUID       `json:"worker_id"`
	Role     string          `json:"role"`
	Weight   decimal.Decimal `json:"weight"`
	Percent  decimal.Decimal `json:"percent"`
	Hours    decimal.Decimal `json:"hours"`
	IsOwner  bool            `json:"is_owner"`
}

// SegmentParticipants is a JSON-serialized participant snapshot
type SegmentParticipants []SegmentParticipant

// Value implements driver.Valuer for database storage
func (p SegmentParticipants) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for database retrieval
func (p *SegmentParticipants) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("cannot scan %T into SegmentParticipants", value)
	}
}

// Owner returns the participant flagged as group owner, or nil
func (p SegmentParticipants) Owner() *SegmentParticipant {
	for i := range p {
		if p[i].IsOwner {
			return &p[i]
		}
	}
	return nil
}

// WorkerIDs returns every participant's worker ID in snapshot order
func (p SegmentParticipants) WorkerIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p))
	for i := range p {
		ids[i] = p[i].WorkerID
	}
	return ids
}

// Segment is one immutable stretch of a group's membership timeline. Segments
// of a group are contiguous and non-overlapping: each covers [StartsAt,
// EndsAt), and exactly one segment per open group has a nil EndsAt.
type Segment struct {
	shared.BaseEntity
	LocationID   uuid.UUID           `gorm:"type:uuid;not null;index"`
	GroupID      uuid.UUID           `gorm:"type:uuid;not null;index:idx_segment_group"`
	SplitMode    SplitMode           `gorm:"type:varchar(20);not null"`
	Participants SegmentParticipants `gorm:"type:jsonb;not null"`
	StartsAt     time.Time           `gorm:"not null;index:idx_segment_group"`
	EndsAt       *time.Time
}

// TableName returns the table name for GORM
func (Segment) TableName() string {
	return "group_segments"
}

// NewSegment opens a segment starting at the given instant
func NewSegment(locationID, groupID uuid.UUID, mode SplitMode, participants SegmentParticipants, startsAt time.Time) (*Segment, error) {
	if locationID == uuid.Nil || groupID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SEGMENT", "Location and group IDs are required")
	}
	if !mode.IsValid() {
		return nil, shared.NewDomainError("INVALID_SPLIT_MODE", "Unknown split mode")
	}
	if startsAt.IsZero() {
		return nil, shared.NewDomainError("INVALID_SEGMENT", "Segment start time is required")
	}
	return &Segment{
		BaseEntity:   shared.NewBaseEntity(),
		LocationID:   locationID,
		GroupID:      groupID,
		SplitMode:    mode,
		Participants: participants,
		StartsAt:     startsAt,
	}, nil
}

// IsOpen returns true if the segment has not been closed yet
func (s *Segment) IsOpen() bool {
	return s.EndsAt == nil
}

// Covers returns true if the instant falls inside [StartsAt, EndsAt)
func (s *Segment) Covers(t time.Time) bool {
	if t.Before(s.StartsAt) {
		return false
	}
	if s.EndsAt == nil {
		return true
	}
	return t.Before(*s.EndsAt)
}

// Close ends the segment at the given instant. A zero-length segment is
// allowed: a membership change at the exact segment start simply replaces it.
func (s *Segment) Close(at time.Time) error {
	if s.EndsAt != nil {
		return shared.ErrInvalidState
	}
	if at.Before(s.StartsAt) {
		return shared.NewDomainError("INVALID_SEGMENT", "Segment end cannot precede its start")
	}
	s.EndsAt = &at
	s.UpdateTimestamp()
	return nil
}

// IsEmpty returns true if the segment has no participants
func (s *Segment) IsEmpty() bool {
	return len(s.Participants) == 0
}

// SnapshotParticipants builds the frozen participant list from the group's
// current active memberships
func SnapshotParticipants(group *TipGroup, members []Membership) SegmentParticipants {
	participants := make(SegmentParticipants, 0, len(members))
	for _, m := range members {
		if !m.IsActive() {
			continue
		}
		participants = append(participants, SegmentParticipant{
			WorkerID: m.WorkerID,
			Role:     m.Role,
			Weight:   m.Weight,
			Percent:  m.CustomPercent,
			Hours:    m.HoursWorked,
			IsOwner:  m.WorkerID == group.OwnerWorkerID,
		})
	}
	return participants
}
