package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tippool/backend/internal/domain/grouping"
	"github.com/tippool/backend/internal/domain/shared"
)

func mustGroup(t *testing.T, locationID, ownerID uuid.UUID, openedAt time.Time) *grouping.TipGroup {
	group, err := grouping.NewTipGroup(locationID, ownerID, "Dinner crew", grouping.SplitModeEqual, openedAt)
	require.NoError(t, err)
	return group
}

func soloParticipants(workerID uuid.UUID) grouping.SegmentParticipants {
	return grouping.SegmentParticipants{{
		WorkerID: workerID,
		Weight:   decimal.NewFromInt(1),
		IsOwner:  true,
	}}
}

func TestGormTipGroupRepository(t *testing.T) {
	ctx := context.Background()
	locationID := uuid.New()
	ownerID := uuid.New()
	openedAt := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)

	t.Run("save and find scoped to location", func(t *testing.T) {
		repo := NewGormTipGroupRepository(setupTestDB(t))

		group := mustGroup(t, locationID, ownerID, openedAt)
		require.NoError(t, repo.Save(ctx, group))

		found, err := repo.FindByIDForLocation(ctx, locationID, group.ID)
		require.NoError(t, err)
		assert.Equal(t, group.OwnerWorkerID, found.OwnerWorkerID)

		_, err = repo.FindByIDForLocation(ctx, uuid.New(), group.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("open groups exclude closed ones", func(t *testing.T) {
		repo := NewGormTipGroupRepository(setupTestDB(t))

		open := mustGroup(t, locationID, ownerID, openedAt)
		require.NoError(t, repo.Save(ctx, open))

		closed := mustGroup(t, locationID, uuid.New(), openedAt)
		require.NoError(t, closed.Close(openedAt.Add(4*time.Hour)))
		require.NoError(t, repo.Save(ctx, closed))

		groups, err := repo.FindOpenForLocation(ctx, locationID)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, open.ID, groups[0].ID)
	})

	t.Run("status filter on list", func(t *testing.T) {
		repo := NewGormTipGroupRepository(setupTestDB(t))

		group := mustGroup(t, locationID, ownerID, openedAt)
		require.NoError(t, group.Close(openedAt.Add(time.Hour)))
		require.NoError(t, repo.Save(ctx, group))
		require.NoError(t, repo.Save(ctx, mustGroup(t, locationID, uuid.New(), openedAt)))

		filter := shared.DefaultFilter()
		filter.Filters["status"] = grouping.GroupStatusClosed
		groups, err := repo.FindAllForLocation(ctx, locationID, filter)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, grouping.GroupStatusClosed, groups[0].Status)

		count, err := repo.Count(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestGormMembershipRepository(t *testing.T) {
	ctx := context.Background()
	locationID := uuid.New()
	groupID := uuid.New()
	joinedAt := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)

	t.Run("status-scoped group queries", func(t *testing.T) {
		repo := NewGormMembershipRepository(setupTestDB(t))

		active, err := grouping.NewActiveMember(locationID, groupID, uuid.New(), "server", joinedAt)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, active))

		pending, err := grouping.NewJoinRequest(locationID, groupID, uuid.New(), "busser")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, pending))

		left, err := grouping.NewActiveMember(locationID, groupID, uuid.New(), "server", joinedAt)
		require.NoError(t, err)
		require.NoError(t, left.Remove(joinedAt.Add(time.Hour)))
		require.NoError(t, repo.Save(ctx, left))

		all, err := repo.FindByGroup(ctx, locationID, groupID)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		actives, err := repo.FindActiveByGroup(ctx, locationID, groupID)
		require.NoError(t, err)
		require.Len(t, actives, 1)
		assert.Equal(t, active.ID, actives[0].ID)

		pendings, err := repo.FindPending(ctx, locationID, groupID)
		require.NoError(t, err)
		require.Len(t, pendings, 1)
		assert.Equal(t, pending.ID, pendings[0].ID)
	})

	t.Run("active by worker returns nil after leaving", func(t *testing.T) {
		repo := NewGormMembershipRepository(setupTestDB(t))
		workerID := uuid.New()

		m, err := grouping.NewActiveMember(locationID, groupID, workerID, "server", joinedAt)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, m))

		found, err := repo.FindActiveByWorker(ctx, locationID, workerID)
		require.NoError(t, err)
		require.NotNil(t, found)

		require.NoError(t, m.Remove(joinedAt.Add(time.Hour)))
		require.NoError(t, repo.Save(ctx, m))

		found, err = repo.FindActiveByWorker(ctx, locationID, workerID)
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestGormActiveMembershipRepository(t *testing.T) {
	ctx := context.Background()
	locationID := uuid.New()
	joinedAt := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)

	newIndexRow := func(t *testing.T, groupID, workerID uuid.UUID) *grouping.ActiveMembership {
		m, err := grouping.NewActiveMember(locationID, groupID, workerID, "server", joinedAt)
		require.NoError(t, err)
		return grouping.NewActiveMembershipIndex(m)
	}

	t.Run("second group for the same worker is rejected", func(t *testing.T) {
		repo := NewGormActiveMembershipRepository(setupTestDB(t))
		workerID := uuid.New()

		require.NoError(t, repo.Insert(ctx, newIndexRow(t, uuid.New(), workerID)))

		err := repo.Insert(ctx, newIndexRow(t, uuid.New(), workerID))
		assert.ErrorIs(t, err, shared.ErrAlreadyInGroup)
	})

	t.Run("remove frees the worker", func(t *testing.T) {
		repo := NewGormActiveMembershipRepository(setupTestDB(t))
		workerID := uuid.New()

		require.NoError(t, repo.Insert(ctx, newIndexRow(t, uuid.New(), workerID)))
		require.NoError(t, repo.Remove(ctx, locationID, workerID))

		found, err := repo.FindByWorker(ctx, locationID, workerID)
		require.NoError(t, err)
		assert.Nil(t, found)

		assert.NoError(t, repo.Insert(ctx, newIndexRow(t, uuid.New(), workerID)))
	})

	t.Run("remove by group clears every member at once", func(t *testing.T) {
		repo := NewGormActiveMembershipRepository(setupTestDB(t))
		groupID := uuid.New()
		workers := []uuid.UUID{uuid.New(), uuid.New()}

		for _, w := range workers {
			require.NoError(t, repo.Insert(ctx, newIndexRow(t, groupID, w)))
		}
		require.NoError(t, repo.RemoveByGroup(ctx, locationID, groupID))

		for _, w := range workers {
			found, err := repo.FindByWorker(ctx, locationID, w)
			require.NoError(t, err)
			assert.Nil(t, found)
		}
	})
}

func TestGormSegmentRepository(t *testing.T) {
	ctx := context.Background()
	locationID := uuid.New()
	groupID := uuid.New()
	ownerID := uuid.New()
	start := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)

	seedTimeline := func(t *testing.T, repo *GormSegmentRepository) (sealed, open *grouping.Segment) {
		first, err := grouping.NewSegment(locationID, groupID, grouping.SplitModeEqual, soloParticipants(ownerID), start)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, first))

		cut := start.Add(2 * time.Hour)
		require.NoError(t, first.Close(cut))
		require.NoError(t, repo.Save(ctx, first))

		second, err := grouping.NewSegment(locationID, groupID, grouping.SplitModeEqual, soloParticipants(ownerID), cut)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, second))
		return first, second
	}

	t.Run("timeline is chronological", func(t *testing.T) {
		repo := NewGormSegmentRepository(setupTestDB(t))
		sealed, open := seedTimeline(t, repo)

		segments, err := repo.FindByGroup(ctx, locationID, groupID)
		require.NoError(t, err)
		require.Len(t, segments, 2)
		assert.Equal(t, sealed.ID, segments[0].ID)
		assert.Equal(t, open.ID, segments[1].ID)
	})

	t.Run("find open returns the unsealed segment", func(t *testing.T) {
		repo := NewGormSegmentRepository(setupTestDB(t))
		_, open := seedTimeline(t, repo)

		found, err := repo.FindOpen(ctx, locationID, groupID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, open.ID, found.ID)
	})

	t.Run("find at honors half-open intervals", func(t *testing.T) {
		repo := NewGormSegmentRepository(setupTestDB(t))
		sealed, open := seedTimeline(t, repo)
		cut := start.Add(2 * time.Hour)

		before, err := repo.FindAt(ctx, locationID, groupID, start.Add(-time.Minute))
		require.NoError(t, err)
		assert.Nil(t, before)

		atStart, err := repo.FindAt(ctx, locationID, groupID, start)
		require.NoError(t, err)
		require.NotNil(t, atStart)
		assert.Equal(t, sealed.ID, atStart.ID)

		atCut, err := repo.FindAt(ctx, locationID, groupID, cut)
		require.NoError(t, err)
		require.NotNil(t, atCut)
		assert.Equal(t, open.ID, atCut.ID)
	})

	t.Run("participants snapshot round-trips", func(t *testing.T) {
		repo := NewGormSegmentRepository(setupTestDB(t))
		_, open := seedTimeline(t, repo)

		found, err := repo.FindByID(ctx, locationID, open.ID)
		require.NoError(t, err)
		require.Len(t, found.Participants, 1)
		assert.Equal(t, ownerID, found.Participants[0].WorkerID)
		assert.True(t, found.Participants[0].IsOwner)
	})
}

func TestGormAnomalyRepository(t *testing.T) {
	ctx := context.Background()
	locationID := uuid.New()
	groupID := uuid.New()
	fallbackID := uuid.New()

	t.Run("unresolved filter and resolution", func(t *testing.T) {
		repo := NewGormAnomalyRepository(setupTestDB(t))

		anomaly := grouping.NewAllocationAnomaly(locationID, groupID, "pay-9", decimal.NewFromInt(12), grouping.AnomalyNoSegment, fallbackID)
		require.NoError(t, repo.Create(ctx, anomaly))

		resolved := grouping.NewAllocationAnomaly(locationID, groupID, "pay-10", decimal.NewFromInt(3), grouping.AnomalyGroupClosed, fallbackID)
		resolved.Resolve("acknowledged late capture")
		require.NoError(t, repo.Create(ctx, resolved))

		unresolved, total, err := repo.FindForLocation(ctx, locationID, true, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, unresolved, 1)
		assert.Equal(t, "pay-9", unresolved[0].PaymentReference)

		all, total, err := repo.FindForLocation(ctx, locationID, false, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, all, 2)

		anomaly.Resolve("fallback credit confirmed")
		require.NoError(t, repo.Save(ctx, anomaly))

		unresolved, total, err = repo.FindForLocation(ctx, locationID, true, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, unresolved)
	})
}
