package repository

import (
	"context"
	"fmt"

	"goldennest/database"
	"goldennest/models"
	"goldennest/service"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const familyColumns = `id, name, savings_target, equity_rate, invite_code, created_at, updated_at`

// FamilyRepository implements the FamilyRepository interface
type FamilyRepository struct {
	q queryable
}

// NewFamilyRepository creates a new household repository
func NewFamilyRepository(db *database.DB) *FamilyRepository {
	return &FamilyRepository{q: db.Pool}
}

// newFamilyRepositoryWithTx creates a new household repository with a transaction
func newFamilyRepositoryWithTx(tx queryable) *FamilyRepository {
	return &FamilyRepository{q: tx}
}

// Create inserts a new household
func (r *FamilyRepository) Create(ctx context.Context, family *models.Family) error {
	query := `
		INSERT INTO families (name, savings_target, equity_rate, invite_code)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		family.Name,
		family.SavingsTarget,
		family.EquityRate,
		family.InviteCode,
	).Scan(&family.ID, &family.CreatedAt, &family.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invite code %s already in use: %w", family.InviteCode, service.ErrInvalidState)
		}
		return fmt.Errorf("failed to create family: %w", err)
	}

	return nil
}

// GetByID retrieves a household by ID
func (r *FamilyRepository) GetByID(ctx context.Context, id int64) (*models.Family, error) {
	query := `SELECT ` + familyColumns + ` FROM families WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate retrieves a household by ID and locks the row until the transaction ends
func (r *FamilyRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Family, error) {
	query := `SELECT ` + familyColumns + ` FROM families WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

// GetByInviteCode retrieves a household by its invite code
func (r *FamilyRepository) GetByInviteCode(ctx context.Context, inviteCode string) (*models.Family, error) {
	query := `SELECT ` + familyColumns + ` FROM families WHERE invite_code = $1`
	return r.getOne(ctx, query, inviteCode)
}

// UpdateSavingsTarget changes the savings goal of a household
func (r *FamilyRepository) UpdateSavingsTarget(ctx context.Context, id int64, target decimal.Decimal) error {
	query := `
		UPDATE families
		SET savings_target = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, target, id)
	if err != nil {
		return fmt.Errorf("failed to update savings target for family %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("family %d not found", id)
	}

	return nil
}

func (r *FamilyRepository) getOne(ctx context.Context, query string, arg any) (*models.Family, error) {
	var family models.Family
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&family.ID,
		&family.Name,
		&family.SavingsTarget,
		&family.EquityRate,
		&family.InviteCode,
		&family.CreatedAt,
		&family.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}

	return &family, nil
}
