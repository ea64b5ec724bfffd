package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"goldennest/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionalBus_FlushDeliversToMainBus(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	received := make(chan ApprovalRequestCreatedEvent, 1)
	mainBus.Subscribe(EventTypeApprovalRequestCreated, func(ctx context.Context, event Event) {
		created, ok := event.(ApprovalRequestCreatedEvent)
		if !ok {
			t.Errorf("expected ApprovalRequestCreatedEvent, got %T", event)
			return
		}
		received <- created
	})

	event := ApprovalRequestCreatedEvent{
		RequestID:   42,
		FamilyID:    7,
		RequesterID: 1001,
		RequestType: models.RequestTypeDeposit,
		Title:       "Monthly deposit",
		Amount:      decimal.NewFromInt(500),
		MemberCount: 3,
	}
	transactionalBus.Publish(event)
	assert.Equal(t, 1, transactionalBus.Pending())

	transactionalBus.Flush(context.Background())
	assert.Equal(t, 0, transactionalBus.Pending())

	select {
	case got := <-received:
		assert.Equal(t, event.RequestID, got.RequestID)
		assert.Equal(t, event.FamilyID, got.FamilyID)
		assert.True(t, event.Amount.Equal(got.Amount))
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestTransactionalBus_DiscardDropsEvents(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	delivered := make(chan Event, 1)
	mainBus.Subscribe(EventTypeApprovalVoteCast, func(ctx context.Context, event Event) {
		delivered <- event
	})

	transactionalBus.Publish(ApprovalVoteCastEvent{RequestID: 1, ApproverID: 2, Approved: true})
	transactionalBus.Discard()
	transactionalBus.Flush(context.Background())
	mainBus.Wait()

	select {
	case ev := <-delivered:
		t.Fatalf("discarded event was delivered: %+v", ev)
	default:
	}
}

func TestBus_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	calls := 0
	bus.Subscribe(EventTypeApprovalRequestExecuted, func(ctx context.Context, event Event) {
		panic("notifier exploded")
	})
	bus.Subscribe(EventTypeApprovalRequestExecuted, func(ctx context.Context, event Event) {
		mu.Lock()
		defer mu.Unlock()
		calls++
	})

	require.NotPanics(t, func() {
		bus.Emit(context.Background(), ApprovalRequestExecutedEvent{RequestID: 9})
		bus.Wait()
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestBus_SubscribeAllReceivesEveryType(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	seen := make(map[EventType]int)
	bus.SubscribeAll(func(ctx context.Context, event Event) {
		mu.Lock()
		defer mu.Unlock()
		seen[event.Type()]++
	})

	ctx := context.Background()
	bus.Emit(ctx, ApprovalRequestCancelledEvent{RequestID: 1})
	bus.Emit(ctx, LedgerTransactionEvent{TransactionID: 2})
	bus.Emit(ctx, AchievementTriggerEvent{UserID: 3})
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, seen[EventTypeApprovalRequestCancelled])
	assert.Equal(t, 1, seen[EventTypeLedgerTransaction])
	assert.Equal(t, 1, seen[EventTypeAchievementTrigger])
}

func TestTransactionalBus_FlushIgnoresCallerCancellation(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	ctxErr := make(chan error, 1)
	mainBus.Subscribe(EventTypeApprovalRequestCompleted, func(ctx context.Context, event Event) {
		ctxErr <- ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	transactionalBus.Publish(ApprovalRequestCompletedEvent{RequestID: 5, Status: models.RequestStatusApproved})
	cancel()
	transactionalBus.Flush(ctx)
	mainBus.Wait()

	assert.NoError(t, <-ctxErr)
}
