package events

import (
	"context"
	"sync"

	"goldennest/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeApprovalRequestCreated   EventType = "approval_request_created"
	EventTypeApprovalVoteCast         EventType = "approval_vote_cast"
	EventTypeApprovalRequestCompleted EventType = "approval_request_completed"
	EventTypeApprovalRequestCancelled EventType = "approval_request_cancelled"
	EventTypeApprovalRequestExecuted  EventType = "approval_request_executed"
	EventTypeLedgerTransaction        EventType = "ledger_transaction_recorded"
	EventTypeAchievementTrigger       EventType = "achievement_trigger"
)

// AllEventTypes lists every event type the bus can carry
var AllEventTypes = []EventType{
	EventTypeApprovalRequestCreated,
	EventTypeApprovalVoteCast,
	EventTypeApprovalRequestCompleted,
	EventTypeApprovalRequestCancelled,
	EventTypeApprovalRequestExecuted,
	EventTypeLedgerTransaction,
	EventTypeAchievementTrigger,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// ApprovalRequestCreatedEvent is emitted once a request is stored
type ApprovalRequestCreatedEvent struct {
	RequestID    int64              `json:"request_id"`
	FamilyID     int64              `json:"family_id"`
	RequesterID  int64              `json:"requester_id"`
	RequestType  models.RequestType `json:"request_type"`
	Title        string             `json:"title"`
	Amount       decimal.Decimal    `json:"amount"`
	MemberCount  int                `json:"member_count"`
	AutoApproved bool               `json:"auto_approved"`
}

func (e ApprovalRequestCreatedEvent) Type() EventType {
	return EventTypeApprovalRequestCreated
}

// ApprovalVoteCastEvent is emitted for every recorded vote
type ApprovalVoteCastEvent struct {
	RequestID   int64  `json:"request_id"`
	FamilyID    int64  `json:"family_id"`
	ApproverID  int64  `json:"approver_id"`
	Approved    bool   `json:"approved"`
	Comment     string `json:"comment,omitempty"`
	Title       string `json:"title"`
	MemberCount int    `json:"member_count"`
}

func (e ApprovalVoteCastEvent) Type() EventType {
	return EventTypeApprovalVoteCast
}

// ApprovalRequestCompletedEvent is emitted when a request reaches approved or rejected
type ApprovalRequestCompletedEvent struct {
	RequestID   int64                `json:"request_id"`
	FamilyID    int64                `json:"family_id"`
	RequesterID int64                `json:"requester_id"`
	RequestType models.RequestType   `json:"request_type"`
	Title       string               `json:"title"`
	Status      models.RequestStatus `json:"status"`
	MemberCount int                  `json:"member_count"`
}

func (e ApprovalRequestCompletedEvent) Type() EventType {
	return EventTypeApprovalRequestCompleted
}

// ApprovalRequestCancelledEvent is emitted when the requester withdraws a pending request
type ApprovalRequestCancelledEvent struct {
	RequestID   int64  `json:"request_id"`
	FamilyID    int64  `json:"family_id"`
	RequesterID int64  `json:"requester_id"`
	Title       string `json:"title"`
	MemberCount int    `json:"member_count"`
}

func (e ApprovalRequestCancelledEvent) Type() EventType {
	return EventTypeApprovalRequestCancelled
}

// ApprovalRequestExecutedEvent is emitted after the ledger mutation of an approved request
type ApprovalRequestExecutedEvent struct {
	RequestID   int64              `json:"request_id"`
	FamilyID    int64              `json:"family_id"`
	RequesterID int64              `json:"requester_id"`
	RequestType models.RequestType `json:"request_type"`
	Amount      decimal.Decimal    `json:"amount"`
}

func (e ApprovalRequestExecutedEvent) Type() EventType {
	return EventTypeApprovalRequestExecuted
}

// LedgerTransactionEvent is emitted for every appended cash transaction
type LedgerTransactionEvent struct {
	TransactionID int64                  `json:"transaction_id"`
	FamilyID      int64                  `json:"family_id"`
	UserID        *int64                 `json:"user_id,omitempty"`
	Kind          models.TransactionType `json:"transaction_type"`
	Amount        decimal.Decimal        `json:"amount"`
	BalanceAfter  decimal.Decimal        `json:"balance_after"`
}

func (e LedgerTransactionEvent) Type() EventType {
	return EventTypeLedgerTransaction
}

// AchievementTriggerEvent asks the gamification module to re-check a user's achievements
type AchievementTriggerEvent struct {
	UserID    int64              `json:"user_id"`
	FamilyID  int64              `json:"family_id"`
	Trigger   models.RequestType `json:"trigger"`
	RequestID int64              `json:"request_id"`
	Amount    decimal.Decimal    `json:"amount"`
}

func (e AchievementTriggerEvent) Type() EventType {
	return EventTypeAchievementTrigger
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	wg       sync.WaitGroup
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

// SubscribeAll adds a handler for every known event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range AllEventTypes {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers. Handlers run
// asynchronously and a panicking handler never reaches the caller.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	for i, handler := range handlers {
		b.wg.Add(1)
		go func(h Handler, handlerIndex int) {
			defer b.wg.Done()
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

// Wait blocks until every handler started so far has returned
func (b *Bus) Wait() {
	b.wg.Wait()
}

// TransactionalBus holds events raised inside a unit of work until it commits
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

// NewTransactionalBus creates a transactional bus flushing into real
func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish stashes an event until Flush
func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Queued event on transactional bus")
	b.pending = append(b.pending, e)
}

// Flush is called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing transactional bus")

	// Handlers outlive the request, so they must not inherit its cancellation
	eventCtx := context.WithoutCancel(ctx)
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard is called after a rollback
func (b *TransactionalBus) Discard() {
	if len(b.pending) > 0 {
		log.WithField("discardedEventCount", len(b.pending)).Debug("Discarding transactional bus events")
	}
	b.pending = nil
}

// Pending returns the number of events waiting for Flush
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}
