package repository

import (
	"context"
	"fmt"
	"time"

	"goldennest/database"
	"goldennest/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// InvestmentRepository implements the InvestmentRepository interface
type InvestmentRepository struct {
	q queryable
}

// NewInvestmentRepository creates a new investment repository
func NewInvestmentRepository(db *database.DB) *InvestmentRepository {
	return &InvestmentRepository{q: db.Pool}
}

// newInvestmentRepositoryWithTx creates a new investment repository with a transaction
func newInvestmentRepositoryWithTx(tx queryable) *InvestmentRepository {
	return &InvestmentRepository{q: tx}
}

// Create inserts a new investment
func (r *InvestmentRepository) Create(ctx context.Context, investment *models.Investment) error {
	query := `
		INSERT INTO investments (
			family_id, name, investment_type, principal, expected_rate,
			start_date, end_date, is_active, note
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		investment.FamilyID,
		investment.Name,
		investment.Type,
		investment.Principal,
		investment.ExpectedRate,
		investment.StartDate,
		investment.EndDate,
		investment.IsActive,
		investment.Note,
	).Scan(&investment.ID, &investment.CreatedAt, &investment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create investment %q: %w", investment.Name, err)
	}

	return nil
}

// GetByID retrieves an investment, including soft-deleted ones
func (r *InvestmentRepository) GetByID(ctx context.Context, id int64) (*models.Investment, error) {
	query := `
		SELECT id, family_id, name, investment_type, principal, expected_rate,
			start_date, end_date, is_active, is_deleted, deleted_at, note,
			created_at, updated_at
		FROM investments
		WHERE id = $1
	`

	var investment models.Investment
	err := r.q.QueryRow(ctx, query, id).Scan(
		&investment.ID,
		&investment.FamilyID,
		&investment.Name,
		&investment.Type,
		&investment.Principal,
		&investment.ExpectedRate,
		&investment.StartDate,
		&investment.EndDate,
		&investment.IsActive,
		&investment.IsDeleted,
		&investment.DeletedAt,
		&investment.Note,
		&investment.CreatedAt,
		&investment.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get investment %d: %w", id, err)
	}

	return &investment, nil
}

// Update writes the mutable fields of an investment
func (r *InvestmentRepository) Update(ctx context.Context, investment *models.Investment) error {
	query := `
		UPDATE investments
		SET name = $1, expected_rate = $2, end_date = $3, is_active = $4, note = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		investment.Name,
		investment.ExpectedRate,
		investment.EndDate,
		investment.IsActive,
		investment.Note,
		investment.ID,
	).Scan(&investment.UpdatedAt)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("investment %d not found", investment.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update investment %d: %w", investment.ID, err)
	}

	return nil
}

// SoftDelete marks an investment deleted and inactive
func (r *InvestmentRepository) SoftDelete(ctx context.Context, id int64, deletedAt time.Time) error {
	query := `
		UPDATE investments
		SET is_deleted = TRUE, is_active = FALSE, deleted_at = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, deletedAt, id)
	if err != nil {
		return fmt.Errorf("failed to delete investment %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("investment %d not found", id)
	}

	return nil
}

// AddPosition appends a signed principal movement
func (r *InvestmentRepository) AddPosition(ctx context.Context, position *models.InvestmentPosition) error {
	query := `
		INSERT INTO investment_positions (
			investment_id, operation_type, amount, operation_date, note, approval_request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		position.InvestmentID,
		position.Operation,
		position.Amount,
		position.OperationDate,
		position.Note,
		position.ApprovalRequestID,
	).Scan(&position.ID, &position.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add %s position to investment %d: %w", position.Operation, position.InvestmentID, err)
	}

	return nil
}

// AddIncome appends an income entry
func (r *InvestmentRepository) AddIncome(ctx context.Context, income *models.InvestmentIncome) error {
	query := `
		INSERT INTO investment_incomes (investment_id, amount, income_date, note)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		income.InvestmentID,
		income.Amount,
		income.IncomeDate,
		income.Note,
	).Scan(&income.ID, &income.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add income to investment %d: %w", income.InvestmentID, err)
	}

	return nil
}

// GetValuation folds positions and income of one investment
func (r *InvestmentRepository) GetValuation(ctx context.Context, investmentID int64) (*models.InvestmentValuation, error) {
	query := `
		SELECT
			i.id,
			COALESCE((SELECT SUM(p.amount) FROM investment_positions p WHERE p.investment_id = i.id), 0),
			COALESCE((SELECT SUM(n.amount) FROM investment_incomes n WHERE n.investment_id = i.id), 0)
		FROM investments i
		WHERE i.id = $1
	`

	var valuation models.InvestmentValuation
	err := r.q.QueryRow(ctx, query, investmentID).Scan(
		&valuation.InvestmentID,
		&valuation.CurrentPrincipal,
		&valuation.TotalIncome,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to value investment %d: %w", investmentID, err)
	}

	return &valuation, nil
}

// ListValuations folds every active, non-deleted investment of a household
func (r *InvestmentRepository) ListValuations(ctx context.Context, familyID int64) ([]*models.InvestmentValuation, error) {
	query := `
		SELECT
			i.id,
			COALESCE((SELECT SUM(p.amount) FROM investment_positions p WHERE p.investment_id = i.id), 0),
			COALESCE((SELECT SUM(n.amount) FROM investment_incomes n WHERE n.investment_id = i.id), 0)
		FROM investments i
		WHERE i.family_id = $1 AND i.is_active AND NOT i.is_deleted
		ORDER BY i.id
	`

	rows, err := r.q.Query(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to value investments of family %d: %w", familyID, err)
	}
	defer rows.Close()

	var valuations []*models.InvestmentValuation
	for rows.Next() {
		var valuation models.InvestmentValuation
		if err := rows.Scan(&valuation.InvestmentID, &valuation.CurrentPrincipal, &valuation.TotalIncome); err != nil {
			return nil, fmt.Errorf("failed to scan investment valuation: %w", err)
		}
		valuations = append(valuations, &valuation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating investment valuations: %w", err)
	}

	return valuations, nil
}

// TotalIncome sums income over every non-deleted investment of a household
func (r *InvestmentRepository) TotalIncome(ctx context.Context, familyID int64) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(n.amount), 0)
		FROM investment_incomes n
		JOIN investments i ON i.id = n.investment_id
		WHERE i.family_id = $1 AND NOT i.is_deleted
	`

	var total decimal.Decimal
	if err := r.q.QueryRow(ctx, query, familyID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum investment income of family %d: %w", familyID, err)
	}

	return total, nil
}
