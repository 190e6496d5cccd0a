package events

import (
	"context"
	"sync"

	"heist/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange    EventType = "balance_change"
	EventTypeAccountOpened    EventType = "account_opened"
	EventTypeTheftSucceeded   EventType = "theft_succeeded"
	EventTypeTheftFailed      EventType = "theft_failed"
	EventTypeSecurityUpgraded EventType = "security_upgraded"
	EventTypeRoleChanged      EventType = "role_changed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a cash change recorded in the ledger
type BalanceChangeEvent struct {
	ActorID      int64
	OldCash      int64
	NewCash      int64
	Category     models.TransactionCategory
	ChangeAmount int64
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// AccountOpenedEvent represents a newly opened account
type AccountOpenedEvent struct {
	ActorID        int64
	Username       string
	InitialBalance int64
}

func (e AccountOpenedEvent) Type() EventType {
	return EventTypeAccountOpened
}

// TheftSucceededEvent is raised when a thief takes cash from a target
type TheftSucceededEvent struct {
	ThiefID        int64
	ThiefUsername  string
	TargetID       int64
	Amount         int64
	TargetCashLeft int64
}

func (e TheftSucceededEvent) Type() EventType {
	return EventTypeTheftSucceeded
}

// TheftFailedEvent is raised when a theft attempt is foiled
type TheftFailedEvent struct {
	ThiefID       int64
	ThiefUsername string
	TargetID      int64
	Penalty       int64
}

func (e TheftFailedEvent) Type() EventType {
	return EventTypeTheftFailed
}

// SecurityUpgradedEvent is raised after a security level purchase
type SecurityUpgradedEvent struct {
	ActorID  int64
	OldLevel int
	NewLevel int
	Cost     int64
}

func (e SecurityUpgradedEvent) Type() EventType {
	return EventTypeSecurityUpgraded
}

// RoleChangedEvent is raised when a scoped role is granted or revoked
type RoleChangedEvent struct {
	ScopeID   int64
	ActorID   int64
	ChangedBy int64
	Role      models.Role
	Granted   bool
}

func (e RoleChangedEvent) Type() EventType {
	return EventTypeRoleChanged
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers. Handlers run on their own
// goroutines and a panicking handler is recovered and logged.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event")

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until it commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Queued event until commit")
}

// Pending returns the number of events waiting for Flush
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}

// Flush is called after a successful commit. Emission uses a background context
// so that handlers outlive the request that triggered them.
func (b *TransactionalBus) Flush() {
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard is called after a rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
