package repository

import (
	"context"
	"sync"
	"testing"

	"goldennest/events"
	"goldennest/models"
	"goldennest/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_EventsFollowTransactionOutcome(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	seeded := testutil.SeedFamily(t, testDB.DB, "Uow", "nia")
	nia := seeded.Members[0]

	bus := events.NewBus()
	var mu sync.Mutex
	var received []events.Event
	bus.Subscribe(events.EventTypeLedgerTransaction, func(_ context.Context, e events.Event) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e)
	})

	factory := NewUnitOfWorkFactory(testDB.DB, bus)

	newTransaction := func() *models.Transaction {
		return &models.Transaction{
			FamilyID:     seeded.Family.ID,
			UserID:       &nia.ID,
			Type:         models.TransactionTypeDeposit,
			Amount:       decimal.NewFromInt(10),
			BalanceAfter: decimal.NewFromInt(10),
			Description:  "uow",
		}
	}

	t.Run("rollback discards rows and events", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))

		transaction := newTransaction()
		require.NoError(t, uow.TransactionRepository().Create(ctx, transaction))
		uow.EventBus().Publish(events.LedgerTransactionEvent{TransactionID: transaction.ID, FamilyID: seeded.Family.ID})

		require.NoError(t, uow.Rollback())
		bus.Wait()

		balance, err := NewTransactionRepository(testDB.DB).GetLatestBalance(ctx, seeded.Family.ID)
		require.NoError(t, err)
		assert.True(t, balance.IsZero())

		mu.Lock()
		assert.Empty(t, received)
		mu.Unlock()
	})

	t.Run("commit persists rows and flushes events", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))

		transaction := newTransaction()
		require.NoError(t, uow.TransactionRepository().Create(ctx, transaction))
		uow.EventBus().Publish(events.LedgerTransactionEvent{TransactionID: transaction.ID, FamilyID: seeded.Family.ID})

		require.NoError(t, uow.Commit())
		require.NoError(t, uow.Rollback())
		bus.Wait()

		balance, err := NewTransactionRepository(testDB.DB).GetLatestBalance(ctx, seeded.Family.ID)
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.NewFromInt(10)))

		mu.Lock()
		assert.Len(t, received, 1)
		mu.Unlock()
	})

	t.Run("getters panic before begin", func(t *testing.T) {
		uow := factory.Create()
		assert.Panics(t, func() { uow.FamilyRepository() })
	})

	t.Run("begin twice fails", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()
		assert.Error(t, uow.Begin(ctx))
	})
}
