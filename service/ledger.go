package service

import (
	"context"
	"fmt"

	"goldennest/events"
	"goldennest/models"
)

// RecordTransaction appends a ledger row on top of the current balance and emits
// a ledger event. This is the single entry point for cash movements; callers
// must hold the household row lock so the balance chain stays consistent.
func RecordTransaction(ctx context.Context, uow UnitOfWork, transaction *models.Transaction) error {
	balance, err := uow.TransactionRepository().GetLatestBalance(ctx, transaction.FamilyID)
	if err != nil {
		return fmt.Errorf("failed to get latest balance: %w", err)
	}

	transaction.BalanceAfter = balance.Add(transaction.Amount)

	if err := uow.TransactionRepository().Create(ctx, transaction); err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	// Emit ledger event (will be flushed after transaction commits)
	uow.EventBus().Publish(events.LedgerTransactionEvent{
		TransactionID: transaction.ID,
		FamilyID:      transaction.FamilyID,
		UserID:        transaction.UserID,
		Kind:          transaction.Type,
		Amount:        transaction.Amount,
		BalanceAfter:  transaction.BalanceAfter,
	})

	return nil
}

// RecordDeposit appends an equity record for a member
func RecordDeposit(ctx context.Context, uow UnitOfWork, deposit *models.Deposit) error {
	if err := uow.DepositRepository().Create(ctx, deposit); err != nil {
		return fmt.Errorf("failed to record deposit: %w", err)
	}
	return nil
}

func referenceType(t models.ReferenceType) *models.ReferenceType {
	return &t
}
