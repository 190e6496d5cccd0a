package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"heist/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEventDeliveryIntegration tests the complete event flow from TransactionalBus to main Bus
func TestEventDeliveryIntegration(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan BalanceChangeEvent, 1)
	mainBus.Subscribe(EventTypeBalanceChange, func(ctx context.Context, event Event) {
		if balanceEvent, ok := event.(BalanceChangeEvent); ok {
			eventReceived <- balanceEvent
		} else {
			t.Errorf("Expected BalanceChangeEvent, got %T", event)
		}
	})

	testEvent := BalanceChangeEvent{
		ActorID:      123456,
		OldCash:      1000,
		NewCash:      1500,
		Category:     models.CategoryTransfer,
		ChangeAmount: 500,
	}

	transactionalBus.Publish(testEvent)
	assert.Equal(t, 1, transactionalBus.Pending())

	transactionalBus.Flush()
	assert.Equal(t, 0, transactionalBus.Pending())

	select {
	case received := <-eventReceived:
		assert.Equal(t, testEvent, received)
	case <-time.After(2 * time.Second):
		t.Fatal("Event was not received within timeout")
	}
}

// TestMultipleEventsDelivery tests delivering multiple events in sequence
func TestMultipleEventsDelivery(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventsReceived := make(chan TheftSucceededEvent, 3)
	var wg sync.WaitGroup
	wg.Add(3)

	mainBus.Subscribe(EventTypeTheftSucceeded, func(ctx context.Context, event Event) {
		defer wg.Done()
		if theftEvent, ok := event.(TheftSucceededEvent); ok {
			eventsReceived <- theftEvent
		}
	})

	for i := int64(1); i <= 3; i++ {
		transactionalBus.Publish(TheftSucceededEvent{ThiefID: i, TargetID: 100, Amount: i * 10})
	}
	transactionalBus.Flush()
	wg.Wait()
	close(eventsReceived)

	var total int64
	for ev := range eventsReceived {
		total += ev.Amount
	}
	assert.Equal(t, int64(60), total)
}

// TestDiscardDropsPendingEvents simulates a rolled back unit of work
func TestDiscardDropsPendingEvents(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	called := make(chan struct{}, 1)
	mainBus.Subscribe(EventTypeTheftFailed, func(ctx context.Context, event Event) {
		called <- struct{}{}
	})

	transactionalBus.Publish(TheftFailedEvent{ThiefID: 1, TargetID: 2, Penalty: 10})
	transactionalBus.Discard()
	transactionalBus.Flush()

	select {
	case <-called:
		t.Fatal("Discarded event must not be delivered")
	case <-time.After(100 * time.Millisecond):
	}
}

// TestPanickingHandlerDoesNotAffectOthers ensures a handler panic is contained
func TestPanickingHandlerDoesNotAffectOthers(t *testing.T) {
	bus := NewBus()

	delivered := make(chan struct{}, 1)
	bus.Subscribe(EventTypeAccountOpened, func(ctx context.Context, event Event) {
		panic("boom")
	})
	bus.Subscribe(EventTypeAccountOpened, func(ctx context.Context, event Event) {
		delivered <- struct{}{}
	})

	require.NotPanics(t, func() {
		bus.Emit(context.Background(), AccountOpenedEvent{ActorID: 1, Username: "alice", InitialBalance: 1000})
	})

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("Second handler was not called")
	}
}
