package repository

import (
	"context"
	"fmt"

	"goldennest/database"
	"goldennest/models"

	"github.com/shopspring/decimal"
)

// DepositRepository implements the DepositRepository interface
type DepositRepository struct {
	q queryable
}

// NewDepositRepository creates a new deposit repository
func NewDepositRepository(db *database.DB) *DepositRepository {
	return &DepositRepository{q: db.Pool}
}

// newDepositRepositoryWithTx creates a new deposit repository with a transaction
func newDepositRepositoryWithTx(tx queryable) *DepositRepository {
	return &DepositRepository{q: tx}
}

// Create appends an equity record
func (r *DepositRepository) Create(ctx context.Context, deposit *models.Deposit) error {
	query := `
		INSERT INTO deposits (family_id, user_id, amount, deposit_date, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		deposit.FamilyID,
		deposit.UserID,
		deposit.Amount,
		deposit.DepositDate,
		deposit.Note,
	).Scan(&deposit.ID, &deposit.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create deposit for user %d: %w", deposit.UserID, err)
	}

	return nil
}

// SumByUser returns the signed deposit total of every user with records in the household
func (r *DepositRepository) SumByUser(ctx context.Context, familyID int64) (map[int64]decimal.Decimal, error) {
	query := `
		SELECT user_id, COALESCE(SUM(amount), 0)
		FROM deposits
		WHERE family_id = $1
		GROUP BY user_id
	`

	rows, err := r.q.Query(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum deposits for family %d: %w", familyID, err)
	}
	defer rows.Close()

	totals := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var userID int64
		var total decimal.Decimal
		if err := rows.Scan(&userID, &total); err != nil {
			return nil, fmt.Errorf("failed to scan deposit total: %w", err)
		}
		totals[userID] = total
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deposit totals: %w", err)
	}

	return totals, nil
}

// ListByFamily returns the newest deposits of a household
func (r *DepositRepository) ListByFamily(ctx context.Context, familyID int64, limit int) ([]*models.Deposit, error) {
	query := `
		SELECT id, family_id, user_id, amount, deposit_date, note, created_at
		FROM deposits
		WHERE family_id = $1
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, familyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposits for family %d: %w", familyID, err)
	}
	defer rows.Close()

	var deposits []*models.Deposit
	for rows.Next() {
		var deposit models.Deposit
		err := rows.Scan(
			&deposit.ID,
			&deposit.FamilyID,
			&deposit.UserID,
			&deposit.Amount,
			&deposit.DepositDate,
			&deposit.Note,
			&deposit.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		deposits = append(deposits, &deposit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deposits: %w", err)
	}

	return deposits, nil
}
