package grouping

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/grouping"
	"github.com/tippool/backend/internal/domain/shared"
)

// GroupService handles tip group lifecycle and the membership timeline. Every
// membership change closes the group's open segment at the change instant and
// opens a fresh one with the new participant snapshot, so allocations before
// and after the change see different rosters.
type GroupService struct {
	scope          TransactionScope
	groupRepo      grouping.TipGroupRepository
	membershipRepo grouping.MembershipRepository
	segmentRepo    grouping.SegmentRepository
	publisher      shared.EventPublisher
	// splitTolerance bounds how far custom percentages may drift from 100
	splitTolerance decimal.Decimal
}

// NewGroupService creates a new GroupService
func NewGroupService(
	scope TransactionScope,
	groupRepo grouping.TipGroupRepository,
	membershipRepo grouping.MembershipRepository,
	segmentRepo grouping.SegmentRepository,
	publisher shared.EventPublisher,
	splitTolerance decimal.Decimal,
) *GroupService {
	return &GroupService{
		scope:          scope,
		groupRepo:      groupRepo,
		membershipRepo: membershipRepo,
		segmentRepo:    segmentRepo,
		publisher:      publisher,
		splitTolerance: splitTolerance,
	}
}

func (s *GroupService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	for _, e := range events {
		_ = s.publisher.Publish(ctx, e)
	}
}

// resegment closes the group's open segment at the change instant and opens a
// new one snapshotting the current active membership. Custom-split groups are
// validated here so a bad percentage set is rejected at change time, not at
// the next payment.
func (s *GroupService) resegment(ctx context.Context, repos TransactionalRepositories, group *grouping.TipGroup, at time.Time) (*grouping.Segment, error) {
	open, err := repos.SegmentRepo().FindOpen(ctx, group.LocationID, group.ID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		if err := open.Close(at); err != nil {
			return nil, err
		}
		if err := repos.SegmentRepo().Save(ctx, open); err != nil {
			return nil, err
		}
	}

	members, err := repos.MembershipRepo().FindActiveByGroup(ctx, group.LocationID, group.ID)
	if err != nil {
		return nil, err
	}
	participants := grouping.SnapshotParticipants(group, members)
	if group.SplitMode == grouping.SplitModeCustom && len(participants) > 0 {
		if err := grouping.ValidateCustomPercents(participants, s.splitTolerance); err != nil {
			return nil, err
		}
	}

	segment, err := grouping.NewSegment(group.LocationID, group.ID, group.SplitMode, participants, at)
	if err != nil {
		return nil, err
	}
	if err := repos.SegmentRepo().Create(ctx, segment); err != nil {
		return nil, err
	}
	return segment, nil
}

// StartGroup creates an open group with the starting worker as owner plus any
// initial members, and opens the first timeline segment. Fails with
// ErrAlreadyInGroup when any listed worker is already active elsewhere.
func (s *GroupService) StartGroup(ctx context.Context, locationID uuid.UUID, req StartGroupRequest) (*GroupResponse, error) {
	group, err := grouping.NewTipGroup(locationID, req.OwnerWorkerID, req.Name, grouping.SplitMode(req.SplitMode), req.OpenedAt)
	if err != nil {
		return nil, err
	}

	var members []*grouping.Membership
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		owner, err := grouping.NewActiveMember(locationID, group.ID, req.OwnerWorkerID, req.OwnerRole, group.OpenedAt)
		if err != nil {
			return err
		}
		members = append(members, owner)
		for _, im := range req.InitialMembers {
			if im.WorkerID == req.OwnerWorkerID {
				continue
			}
			m, err := grouping.NewActiveMember(locationID, group.ID, im.WorkerID, im.Role, group.OpenedAt)
			if err != nil {
				return err
			}
			members = append(members, m)
		}
		for _, m := range members {
			if err := repos.ActiveMembershipRepo().Insert(ctx, grouping.NewActiveMembershipIndex(m)); err != nil {
				return err
			}
		}
		if err := repos.GroupRepo().Save(ctx, group); err != nil {
			return err
		}
		for _, m := range members {
			if err := repos.MembershipRepo().Save(ctx, m); err != nil {
				return err
			}
		}
		_, err = s.resegment(ctx, repos, group, group.OpenedAt)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, group.GetDomainEvents()...)
	group.ClearDomainEvents()

	response := ToGroupResponse(group)
	for _, m := range members {
		response.Members = append(response.Members, ToMembershipResponse(m))
	}
	return &response, nil
}

// RequestJoin files a pending join request for owner approval
func (s *GroupService) RequestJoin(ctx context.Context, locationID, groupID uuid.UUID, req JoinRequest) (*MembershipResponse, error) {
	var membership *grouping.Membership
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		group, err := repos.GroupRepo().FindByIDForUpdate(ctx, locationID, groupID)
		if err != nil {
			return err
		}
		if !group.IsOpen() {
			return shared.ErrInvalidState
		}
		if existing, err := repos.ActiveMembershipRepo().FindByWorker(ctx, locationID, req.WorkerID); err != nil {
			return err
		} else if existing != nil {
			return shared.ErrAlreadyInGroup
		}
		membership, err = grouping.NewJoinRequest(locationID, groupID, req.WorkerID, req.Role)
		if err != nil {
			return err
		}
		return repos.MembershipRepo().Save(ctx, membership)
	})
	if err != nil {
		return nil, err
	}
	response := ToMembershipResponse(membership)
	return &response, nil
}

// ApproveJoin activates a pending request and resegments the timeline
func (s *GroupService) ApproveJoin(ctx context.Context, locationID, groupID, membershipID uuid.UUID, at time.Time) (*MembershipResponse, error) {
	if at.IsZero() {
		at = time.Now()
	}
	var membership *grouping.Membership
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		group, err := repos.GroupRepo().FindByIDForUpdate(ctx, locationID, groupID)
		if err != nil {
			return err
		}
		if !group.IsOpen() {
			return shared.ErrInvalidState
		}
		membership, err = repos.MembershipRepo().FindByID(ctx, locationID, membershipID)
		if err != nil {
			return err
		}
		if membership.GroupID != groupID {
			return shared.ErrNotFound
		}
		if err := membership.Approve(at); err != nil {
			return err
		}
		if err := repos.ActiveMembershipRepo().Insert(ctx, grouping.NewActiveMembershipIndex(membership)); err != nil {
			return err
		}
		if err := repos.MembershipRepo().Save(ctx, membership); err != nil {
			return err
		}
		_, err = s.resegment(ctx, repos, group, at)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, grouping.NewMemberJoinedEvent(membership))
	response := ToMembershipResponse(membership)
	return &response, nil
}

// AddMember lets the owner add a worker without the request/approve handshake
func (s *GroupService) AddMember(ctx context.Context, locationID, groupID uuid.UUID, req AddMemberRequest) (*MembershipResponse, error) {
	at := req.At
	if at.IsZero() {
		at = time.Now()
	}
	var membership *grouping.Membership
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		group, err := repos.GroupRepo().FindByIDForUpdate(ctx, locationID, groupID)
		if err != nil {
			return err
		}
		if !group.IsOpen() {
			return shared.ErrInvalidState
		}
		membership, err = grouping.NewActiveMember(locationID, groupID, req.WorkerID, req.Role, at)
		if err != nil {
			return err
		}
		if err := repos.ActiveMembershipRepo().Insert(ctx, grouping.NewActiveMembershipIndex(membership)); err != nil {
			return err
		}
		if err := repos.MembershipRepo().Save(ctx, membership); err != nil {
			return err
		}
		_, err = s.resegment(ctx, repos, group, at)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, grouping.NewMemberJoinedEvent(membership))
	response := ToMembershipResponse(membership)
	return &response, nil
}

// RemoveMember ends a worker's membership and resegments. The owner cannot be
// removed while other members remain; ownership must be transferred first.
// Removing the last active member closes the group instead of leaving an
// empty open segment behind.
func (s *GroupService) RemoveMember(ctx context.Context, locationID, groupID, workerID uuid.UUID, at time.Time) (*MembershipResponse, error) {
	if at.IsZero() {
		at = time.Now()
	}
	var (
		membership *grouping.Membership
		group      *grouping.TipGroup
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		group, err = repos.GroupRepo().FindByIDForUpdate(ctx, locationID, groupID)
		if err != nil {
			return err
		}
		if !group.IsOpen() {
			return shared.ErrInvalidState
		}
		members, err := repos.MembershipRepo().FindActiveByGroup(ctx, locationID, groupID)
		if err != nil {
			return err
		}
		if workerID == group.OwnerWorkerID && len(members) > 1 {
			return shared.NewDomainError("OWNER_CANNOT_LEAVE", "Transfer ownership before leaving the group")
		}

		membership, err = repos.MembershipRepo().FindActiveByWorker(ctx, locationID, workerID)
		if err != nil {
			return err
		}
		if membership == nil || membership.GroupID != groupID {
			return shared.ErrNotFound
		}
		if err := membership.Remove(at); err != nil {
			return err
		}
		if err := repos.MembershipRepo().Save(ctx, membership); err != nil {
			return err
		}
		if err := repos.ActiveMembershipRepo().Remove(ctx, locationID, workerID); err != nil {
			return err
		}

		if len(members) == 1 {
			// last active member left: seal the final segment and close
			if err := group.Close(at); err != nil {
				return err
			}
			open, err := repos.SegmentRepo().FindOpen(ctx, locationID, groupID)
			if err != nil {
				return err
			}
			if open != nil {
				if err := open.Close(at); err != nil {
					return err
				}
				if err := repos.SegmentRepo().Save(ctx, open); err != nil {
					return err
				}
			}
			return repos.GroupRepo().Save(ctx, group)
		}

		_, err = s.resegment(ctx, repos, group, at)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, grouping.NewMemberLeftEvent(membership))
	s.publish(ctx, group.GetDomainEvents()...)
	group.ClearDomainEvents()
	response := ToMembershipResponse(membership)
	return &response, nil
}

// TransferOwnership hands the group to another active member and resegments
// so the owner flag in the snapshot moves with it
func (s *GroupService) TransferOwnership(ctx context.Context, locationID, groupID uuid.UUID, req TransferOwnershipRequest) (*GroupResponse, error) {
	var group *grouping.TipGroup
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		group, err = repos.GroupRepo().FindByIDForUpdate(ctx, locationID, groupID)
		if err != nil {
			return err
		}
		newOwner, err := repos.MembershipRepo().FindActiveByWorker(ctx, locationID, req.NewOwnerWorkerID)
		if err != nil {
			return err
		}
		if newOwner == nil || newOwner.GroupID != groupID {
			return shared.NewDomainError("NOT_A_MEMBER", "New owner must be an active member of the group")
		}
		if err := group.TransferOwnership(req.NewOwnerWorkerID); err != nil {
			return err
		}
		if err := repos.GroupRepo().Save(ctx, group); err != nil {
			return err
		}
		_, err = s.resegment(ctx, repos, group, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, group.GetDomainEvents()...)
	group.ClearDomainEvents()
	response := ToGroupResponse(group)
	return &response, nil
}

// ChangeSplitMode switches the split mode and resegments so the change takes
// effect from now on
func (s *GroupService) ChangeSplitMode(ctx context.Context, locationID, groupID uuid.UUID, req ChangeSplitModeRequest) (*GroupResponse, error) {
	var group *grouping.TipGroup
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		group, err = repos.GroupRepo().FindByIDForUpdate(ctx, locationID, groupID)
		if err != nil {
			return err
		}
		if err := group.ChangeSplitMode(grouping.SplitMode(req.SplitMode)); err != nil {
			return err
		}
		if err := repos.GroupRepo().Save(ctx, group); err != nil {
			return err
		}
		_, err = s.resegment(ctx, repos, group, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	response := ToGroupResponse(group)
	return &response, nil
}

// UpdateShare changes one member's split parameters and resegments
func (s *GroupService) UpdateShare(ctx context.Context, locationID, groupID, workerID uuid.UUID, req UpdateShareRequest) (*MembershipResponse, error) {
	var membership *grouping.Membership
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		group, err := repos.GroupRepo().FindByIDForUpdate(ctx, locationID, groupID)
		if err != nil {
			return err
		}
		if !group.IsOpen() {
			return shared.ErrInvalidState
		}
		membership, err = repos.MembershipRepo().FindActiveByWorker(ctx, locationID, workerID)
		if err != nil {
			return err
		}
		if membership == nil || membership.GroupID != groupID {
			return shared.ErrNotFound
		}
		if req.CustomPercent != nil {
			if err := membership.SetCustomPercent(*req.CustomPercent); err != nil {
				return err
			}
		}
		if req.Weight != nil {
			if err := membership.SetWeight(*req.Weight); err != nil {
				return err
			}
		}
		if req.Hours != nil {
			if err := membership.RecordHours(*req.Hours); err != nil {
				return err
			}
		}
		if err := repos.MembershipRepo().Save(ctx, membership); err != nil {
			return err
		}
		_, err = s.resegment(ctx, repos, group, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	response := ToMembershipResponse(membership)
	return &response, nil
}

// CloseGroup ends the group: the open segment closes at the same instant and
// every member's active index row is released
func (s *GroupService) CloseGroup(ctx context.Context, locationID, groupID uuid.UUID, req CloseGroupRequest) (*GroupResponse, error) {
	at := req.At
	if at.IsZero() {
		at = time.Now()
	}
	var group *grouping.TipGroup
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		group, err = repos.GroupRepo().FindByIDForUpdate(ctx, locationID, groupID)
		if err != nil {
			return err
		}
		if err := group.Close(at); err != nil {
			return err
		}

		open, err := repos.SegmentRepo().FindOpen(ctx, locationID, groupID)
		if err != nil {
			return err
		}
		if open != nil {
			if err := open.Close(at); err != nil {
				return err
			}
			if err := repos.SegmentRepo().Save(ctx, open); err != nil {
				return err
			}
		}

		members, err := repos.MembershipRepo().FindActiveByGroup(ctx, locationID, groupID)
		if err != nil {
			return err
		}
		for i := range members {
			if err := members[i].Remove(at); err != nil {
				return err
			}
			if err := repos.MembershipRepo().Save(ctx, &members[i]); err != nil {
				return err
			}
		}
		if err := repos.ActiveMembershipRepo().RemoveByGroup(ctx, locationID, groupID); err != nil {
			return err
		}
		return repos.GroupRepo().Save(ctx, group)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, group.GetDomainEvents()...)
	group.ClearDomainEvents()
	response := ToGroupResponse(group)
	return &response, nil
}

// HandleClockOut reacts to a worker clocking out: their hours are recorded
// and they leave their group as of the clock-out instant. A clocked-out owner
// hands the group to the longest-standing remaining member; a sole owner's
// clock-out closes the group.
func (s *GroupService) HandleClockOut(ctx context.Context, locationID uuid.UUID, req ClockOutRequest) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		membership, err := repos.MembershipRepo().FindActiveByWorker(ctx, locationID, req.WorkerID)
		if err != nil {
			return err
		}
		if membership == nil {
			// not in a group, nothing to do
			return nil
		}
		group, err := repos.GroupRepo().FindByIDForUpdate(ctx, locationID, membership.GroupID)
		if err != nil {
			return err
		}

		if req.HoursWorked != nil {
			if err := membership.RecordHours(*req.HoursWorked); err != nil {
				return err
			}
			if err := repos.MembershipRepo().Save(ctx, membership); err != nil {
				return err
			}
		}

		members, err := repos.MembershipRepo().FindActiveByGroup(ctx, locationID, group.ID)
		if err != nil {
			return err
		}

		if group.OwnerWorkerID == req.WorkerID {
			successor := pickSuccessor(members, req.WorkerID)
			if successor == nil {
				// sole member leaving closes the group
				if err := group.Close(req.At); err != nil {
					return err
				}
				open, err := repos.SegmentRepo().FindOpen(ctx, locationID, group.ID)
				if err != nil {
					return err
				}
				if open != nil {
					if err := open.Close(req.At); err != nil {
						return err
					}
					if err := repos.SegmentRepo().Save(ctx, open); err != nil {
						return err
					}
				}
				if err := membership.Remove(req.At); err != nil {
					return err
				}
				if err := repos.MembershipRepo().Save(ctx, membership); err != nil {
					return err
				}
				if err := repos.ActiveMembershipRepo().RemoveByGroup(ctx, locationID, group.ID); err != nil {
					return err
				}
				return repos.GroupRepo().Save(ctx, group)
			}
			if err := group.TransferOwnership(successor.WorkerID); err != nil {
				return err
			}
		}

		if err := membership.Remove(req.At); err != nil {
			return err
		}
		if err := repos.MembershipRepo().Save(ctx, membership); err != nil {
			return err
		}
		if err := repos.ActiveMembershipRepo().Remove(ctx, locationID, req.WorkerID); err != nil {
			return err
		}
		if err := repos.GroupRepo().Save(ctx, group); err != nil {
			return err
		}
		_, err = s.resegment(ctx, repos, group, req.At)
		return err
	})
}

// pickSuccessor chooses the earliest-joined active member other than the
// departing worker
func pickSuccessor(members []grouping.Membership, departing uuid.UUID) *grouping.Membership {
	var successor *grouping.Membership
	for i := range members {
		m := &members[i]
		if m.WorkerID == departing || m.JoinedAt == nil {
			continue
		}
		if successor == nil || m.JoinedAt.Before(*successor.JoinedAt) {
			successor = m
		}
	}
	return successor
}

// GetGroup loads a group with its memberships
func (s *GroupService) GetGroup(ctx context.Context, locationID, groupID uuid.UUID) (*GroupResponse, error) {
	group, err := s.groupRepo.FindByIDForLocation(ctx, locationID, groupID)
	if err != nil {
		return nil, err
	}
	members, err := s.membershipRepo.FindByGroup(ctx, locationID, groupID)
	if err != nil {
		return nil, err
	}
	response := ToGroupResponse(group)
	response.Members = make([]MembershipResponse, len(members))
	for i := range members {
		response.Members[i] = ToMembershipResponse(&members[i])
	}
	return &response, nil
}

// ListOpenGroups returns every open group at a location
func (s *GroupService) ListOpenGroups(ctx context.Context, locationID uuid.UUID) ([]GroupResponse, error) {
	groups, err := s.groupRepo.FindOpenForLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	out := make([]GroupResponse, len(groups))
	for i := range groups {
		out[i] = ToGroupResponse(&groups[i])
	}
	return out, nil
}

// ListPendingRequests returns a group's join requests awaiting approval
func (s *GroupService) ListPendingRequests(ctx context.Context, locationID, groupID uuid.UUID) ([]MembershipResponse, error) {
	pending, err := s.membershipRepo.FindPending(ctx, locationID, groupID)
	if err != nil {
		return nil, err
	}
	out := make([]MembershipResponse, len(pending))
	for i := range pending {
		out[i] = ToMembershipResponse(&pending[i])
	}
	return out, nil
}

// GetTimeline returns a group's full segment history in order
func (s *GroupService) GetTimeline(ctx context.Context, locationID, groupID uuid.UUID) ([]SegmentResponse, error) {
	segments, err := s.segmentRepo.FindByGroup(ctx, locationID, groupID)
	if err != nil {
		return nil, err
	}
	out := make([]SegmentResponse, len(segments))
	for i := range segments {
		out[i] = ToSegmentResponse(&segments[i])
	}
	return out, nil
}

// FindSegmentAt returns the segment covering an instant
func (s *GroupService) FindSegmentAt(ctx context.Context, locationID, groupID uuid.UUID, at time.Time) (*SegmentResponse, error) {
	segment, err := s.segmentRepo.FindAt(ctx, locationID, groupID, at)
	if err != nil {
		return nil, err
	}
	if segment == nil {
		return nil, shared.ErrSegmentNotFound
	}
	response := ToSegmentResponse(segment)
	return &response, nil
}
