package repository

import (
	"context"
	"fmt"
	"time"

	"goldennest/database"
	"goldennest/models"
	"goldennest/service"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const dividendColumns = `id, family_id, created_by, dividend_type, total_amount, status, created_at, resolved_at, completed_at`

const dividendClaimColumns = `
	id, dividend_id, user_id, amount, equity_ratio, status, reinvest,
	deposit_id, approval_request_id, processed_at, created_at
`

// DividendRepository implements the DividendRepository interface
type DividendRepository struct {
	q queryable
}

// NewDividendRepository creates a new dividend repository
func NewDividendRepository(db *database.DB) *DividendRepository {
	return &DividendRepository{q: db.Pool}
}

// newDividendRepositoryWithTx creates a new dividend repository with a transaction
func newDividendRepositoryWithTx(tx queryable) *DividendRepository {
	return &DividendRepository{q: tx}
}

// Create inserts a new dividend
func (r *DividendRepository) Create(ctx context.Context, dividend *models.Dividend) error {
	query := `
		INSERT INTO dividends (family_id, created_by, dividend_type, total_amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		dividend.FamilyID,
		dividend.CreatedBy,
		dividend.Type,
		dividend.TotalAmount,
		dividend.Status,
	).Scan(&dividend.ID, &dividend.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create dividend for family %d: %w", dividend.FamilyID, err)
	}

	return nil
}

// GetByID retrieves a dividend by ID
func (r *DividendRepository) GetByID(ctx context.Context, id int64) (*models.Dividend, error) {
	query := `SELECT ` + dividendColumns + ` FROM dividends WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate retrieves a dividend and locks it until the transaction ends
func (r *DividendRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Dividend, error) {
	query := `SELECT ` + dividendColumns + ` FROM dividends WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

// UpdateStatus moves a dividend to a new status, stamping resolved_at or completed_at
func (r *DividendRepository) UpdateStatus(ctx context.Context, id int64, status models.DividendStatus, at time.Time) error {
	query := `
		UPDATE dividends
		SET status = $1,
			resolved_at = CASE WHEN $1 IN ('approved', 'rejected') THEN $2 ELSE resolved_at END,
			completed_at = CASE WHEN $1 = 'completed' THEN $2 ELSE completed_at END
		WHERE id = $3
	`

	result, err := r.q.Exec(ctx, query, status, at, id)
	if err != nil {
		return fmt.Errorf("failed to update status of dividend %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("dividend %d not found", id)
	}

	return nil
}

// CreateClaim inserts one member's share of a dividend
func (r *DividendRepository) CreateClaim(ctx context.Context, claim *models.DividendClaim) error {
	query := `
		INSERT INTO dividend_claims (dividend_id, user_id, amount, equity_ratio, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		claim.DividendID,
		claim.UserID,
		claim.Amount,
		claim.EquityRatio,
		claim.Status,
	).Scan(&claim.ID, &claim.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %d already has a claim on dividend %d: %w", claim.UserID, claim.DividendID, service.ErrInvalidState)
		}
		return fmt.Errorf("failed to create claim on dividend %d: %w", claim.DividendID, err)
	}

	return nil
}

// GetClaim retrieves a dividend claim by ID
func (r *DividendRepository) GetClaim(ctx context.Context, id int64) (*models.DividendClaim, error) {
	query := `SELECT ` + dividendClaimColumns + ` FROM dividend_claims WHERE id = $1`

	var claim models.DividendClaim
	err := r.q.QueryRow(ctx, query, id).Scan(
		&claim.ID,
		&claim.DividendID,
		&claim.UserID,
		&claim.Amount,
		&claim.EquityRatio,
		&claim.Status,
		&claim.Reinvest,
		&claim.DepositID,
		&claim.ApprovalRequestID,
		&claim.ProcessedAt,
		&claim.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dividend claim %d: %w", id, err)
	}

	return &claim, nil
}

// UpdateClaim writes the settlement of a claim
func (r *DividendRepository) UpdateClaim(ctx context.Context, claim *models.DividendClaim) error {
	query := `
		UPDATE dividend_claims
		SET status = $1, reinvest = $2, deposit_id = $3, processed_at = $4
		WHERE id = $5
	`

	result, err := r.q.Exec(ctx, query,
		claim.Status,
		claim.Reinvest,
		claim.DepositID,
		claim.ProcessedAt,
		claim.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update dividend claim %d: %w", claim.ID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("dividend claim %d not found", claim.ID)
	}

	return nil
}

// SetClaimRequest links a claim to the approval request that settles it
func (r *DividendRepository) SetClaimRequest(ctx context.Context, claimID, requestID int64) error {
	query := `UPDATE dividend_claims SET approval_request_id = $1 WHERE id = $2`

	result, err := r.q.Exec(ctx, query, requestID, claimID)
	if err != nil {
		return fmt.Errorf("failed to link dividend claim %d to request %d: %w", claimID, requestID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("dividend claim %d not found", claimID)
	}

	return nil
}

// CountPendingClaims returns how many claims of a dividend are unsettled
func (r *DividendRepository) CountPendingClaims(ctx context.Context, dividendID int64) (int, error) {
	query := `SELECT COUNT(*) FROM dividend_claims WHERE dividend_id = $1 AND status = 'pending'`

	var count int
	if err := r.q.QueryRow(ctx, query, dividendID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending claims of dividend %d: %w", dividendID, err)
	}

	return count, nil
}

// FrozenAmount returns cash reserved by dividends that are not settled yet
func (r *DividendRepository) FrozenAmount(ctx context.Context, familyID int64) (decimal.Decimal, error) {
	query := `
		SELECT
			COALESCE((
				SELECT SUM(d.total_amount)
				FROM dividends d
				WHERE d.family_id = $1 AND d.status = 'voting'
			), 0)
			+
			COALESCE((
				SELECT SUM(c.amount)
				FROM dividend_claims c
				JOIN dividends d ON d.id = c.dividend_id
				WHERE d.family_id = $1 AND d.status = 'approved' AND c.status = 'pending'
			), 0)
	`

	var frozen decimal.Decimal
	if err := r.q.QueryRow(ctx, query, familyID).Scan(&frozen); err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute frozen amount of family %d: %w", familyID, err)
	}

	return frozen, nil
}

func (r *DividendRepository) getOne(ctx context.Context, query string, id int64) (*models.Dividend, error) {
	var dividend models.Dividend
	err := r.q.QueryRow(ctx, query, id).Scan(
		&dividend.ID,
		&dividend.FamilyID,
		&dividend.CreatedBy,
		&dividend.Type,
		&dividend.TotalAmount,
		&dividend.Status,
		&dividend.CreatedAt,
		&dividend.ResolvedAt,
		&dividend.CompletedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dividend %d: %w", id, err)
	}

	return &dividend, nil
}
