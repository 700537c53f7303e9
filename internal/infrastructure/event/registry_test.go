package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tippool/backend/internal/domain/shared"
)

// recordingSubscriber collects every event it receives. With no event
// types it registers as a wildcard subscriber.
type recordingSubscriber struct {
	types    []string
	received []shared.DomainEvent
}

func subscriber(types ...string) *recordingSubscriber {
	return &recordingSubscriber{types: types}
}

func (h *recordingSubscriber) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.received = append(h.received, event)
	return nil
}

func (h *recordingSubscriber) EventTypes() []string {
	return h.types
}

func TestHandlerRegistry_Register(t *testing.T) {
	t.Run("specific types", func(t *testing.T) {
		registry := NewHandlerRegistry()
		handler := subscriber("grouping.group_started", "grouping.group_closed")

		registry.Register(handler, "grouping.group_started", "grouping.group_closed")

		assert.Equal(t, []shared.EventHandler{handler}, registry.GetHandlers("grouping.group_started"))
		assert.Equal(t, []shared.EventHandler{handler}, registry.GetHandlers("grouping.group_closed"))
		assert.Empty(t, registry.GetHandlers("grouping.payment_allocated"))
	})

	t.Run("wildcard sees every type", func(t *testing.T) {
		registry := NewHandlerRegistry()
		audit := subscriber()

		registry.Register(audit)

		assert.Equal(t, []shared.EventHandler{audit}, registry.GetHandlers("ledger.entry_posted"))
		assert.Equal(t, []shared.EventHandler{audit}, registry.GetHandlers("tipout.applied"))
	})

	t.Run("wildcard alongside specific", func(t *testing.T) {
		registry := NewHandlerRegistry()
		balances := subscriber("ledger.entry_posted")
		audit := subscriber()

		registry.Register(balances, "ledger.entry_posted")
		registry.Register(audit)

		assert.Len(t, registry.GetHandlers("ledger.entry_posted"), 2)

		only := registry.GetHandlers("ledger.payout_issued")
		assert.Equal(t, []shared.EventHandler{audit}, only)
	})
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	t.Run("specific handler", func(t *testing.T) {
		registry := NewHandlerRegistry()
		first := subscriber("grouping.member_joined")
		second := subscriber("grouping.member_joined")

		registry.Register(first, "grouping.member_joined")
		registry.Register(second, "grouping.member_joined")
		assert.Len(t, registry.GetHandlers("grouping.member_joined"), 2)

		registry.Unregister(first)

		assert.Equal(t, []shared.EventHandler{second}, registry.GetHandlers("grouping.member_joined"))
	})

	t.Run("wildcard handler", func(t *testing.T) {
		registry := NewHandlerRegistry()
		audit := subscriber()

		registry.Register(audit)
		assert.Len(t, registry.GetHandlers("ledger.writes_halted"), 1)

		registry.Unregister(audit)

		assert.Empty(t, registry.GetHandlers("ledger.writes_halted"))
	})
}

func TestHandlerRegistry_GetAllHandlers(t *testing.T) {
	registry := NewHandlerRegistry()
	groups := subscriber("grouping.group_started")
	payouts := subscriber("ledger.payout_issued")
	audit := subscriber()

	registry.Register(groups, "grouping.group_started")
	registry.Register(payouts, "ledger.payout_issued")
	registry.Register(audit)

	assert.Len(t, registry.GetAllHandlers(), 3)
}

func TestHandlerRegistry_GetAllHandlers_DeduplicatesMultiType(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := subscriber("grouping.group_started", "grouping.group_closed")

	registry.Register(handler, "grouping.group_started", "grouping.group_closed")

	assert.Len(t, registry.GetAllHandlers(), 1)
}
