package repository

import (
	"context"
	"fmt"

	"goldennest/database"
	"goldennest/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionRepository implements the TransactionRepository interface
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new ledger repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// newTransactionRepositoryWithTx creates a new ledger repository with a transaction
func newTransactionRepositoryWithTx(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Create appends a ledger row. BalanceAfter must already be computed by the caller.
func (r *TransactionRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	query := `
		INSERT INTO transactions (
			family_id, user_id, transaction_type, amount, balance_after,
			description, reference_id, reference_type
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		transaction.FamilyID,
		transaction.UserID,
		transaction.Type,
		transaction.Amount,
		transaction.BalanceAfter,
		transaction.Description,
		transaction.ReferenceID,
		transaction.ReferenceType,
	).Scan(&transaction.ID, &transaction.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create %s transaction for family %d: %w", transaction.Type, transaction.FamilyID, err)
	}

	return nil
}

// GetLatestBalance returns the balance after the newest ledger row
func (r *TransactionRepository) GetLatestBalance(ctx context.Context, familyID int64) (decimal.Decimal, error) {
	query := `
		SELECT balance_after
		FROM transactions
		WHERE family_id = $1
		ORDER BY id DESC
		LIMIT 1
	`

	var balance decimal.Decimal
	err := r.q.QueryRow(ctx, query, familyID).Scan(&balance)
	if err == pgx.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get latest balance for family %d: %w", familyID, err)
	}

	return balance, nil
}

// ListByFamily returns up to limit ledger rows, oldest first
func (r *TransactionRepository) ListByFamily(ctx context.Context, familyID int64, limit int) ([]*models.Transaction, error) {
	query := `
		SELECT id, family_id, user_id, transaction_type, amount, balance_after,
			description, reference_id, reference_type, created_at
		FROM transactions
		WHERE family_id = $1
		ORDER BY id
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, familyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for family %d: %w", familyID, err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		var transaction models.Transaction
		err := rows.Scan(
			&transaction.ID,
			&transaction.FamilyID,
			&transaction.UserID,
			&transaction.Type,
			&transaction.Amount,
			&transaction.BalanceAfter,
			&transaction.Description,
			&transaction.ReferenceID,
			&transaction.ReferenceType,
			&transaction.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, &transaction)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}
