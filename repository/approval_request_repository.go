package repository

import (
	"context"
	"fmt"
	"time"

	"goldennest/database"
	"goldennest/models"

	"github.com/jackc/pgx/v5"
)

const approvalRequestColumns = `
	id, family_id, requester_id, target_user_id, request_type, title, description,
	amount, request_data, status, created_at, updated_at, executed_at
`

// ApprovalRequestRepository implements the ApprovalRequestRepository interface
type ApprovalRequestRepository struct {
	q queryable
}

// NewApprovalRequestRepository creates a new approval request repository
func NewApprovalRequestRepository(db *database.DB) *ApprovalRequestRepository {
	return &ApprovalRequestRepository{q: db.Pool}
}

// newApprovalRequestRepositoryWithTx creates a new approval request repository with a transaction
func newApprovalRequestRepositoryWithTx(tx queryable) *ApprovalRequestRepository {
	return &ApprovalRequestRepository{q: tx}
}

// Create inserts a new request in the status it carries
func (r *ApprovalRequestRepository) Create(ctx context.Context, request *models.ApprovalRequest) error {
	data, err := models.EncodeRequestData(request.Data)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO approval_requests (
			family_id, requester_id, target_user_id, request_type, title,
			description, amount, request_data, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err = r.q.QueryRow(ctx, query,
		request.FamilyID,
		request.RequesterID,
		request.TargetUserID,
		request.Type,
		request.Title,
		request.Description,
		request.Amount,
		data,
		request.Status,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", request.Type, err)
	}

	return nil
}

// GetByID retrieves a request by ID
func (r *ApprovalRequestRepository) GetByID(ctx context.Context, id int64) (*models.ApprovalRequest, error) {
	query := `SELECT ` + approvalRequestColumns + ` FROM approval_requests WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate retrieves a request and locks it until the transaction ends
func (r *ApprovalRequestRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.ApprovalRequest, error) {
	query := `SELECT ` + approvalRequestColumns + ` FROM approval_requests WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

// UpdateStatus sets the status of a request
func (r *ApprovalRequestRepository) UpdateStatus(ctx context.Context, id int64, status models.RequestStatus) error {
	query := `
		UPDATE approval_requests
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status of request %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("approval request %d not found", id)
	}

	return nil
}

// UpdateData replaces the payload of a request
func (r *ApprovalRequestRepository) UpdateData(ctx context.Context, id int64, data models.RequestData) error {
	raw, err := models.EncodeRequestData(data)
	if err != nil {
		return err
	}

	query := `
		UPDATE approval_requests
		SET request_data = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, raw, id)
	if err != nil {
		return fmt.Errorf("failed to update data of request %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("approval request %d not found", id)
	}

	return nil
}

// MarkExecuted stamps the execution time of an approved request
func (r *ApprovalRequestRepository) MarkExecuted(ctx context.Context, id int64, executedAt time.Time) error {
	query := `
		UPDATE approval_requests
		SET executed_at = $1, updated_at = NOW()
		WHERE id = $2 AND executed_at IS NULL
	`

	result, err := r.q.Exec(ctx, query, executedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark request %d executed: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("approval request %d not found or already executed", id)
	}

	return nil
}

// ListByFamily returns requests of a household, newest first
func (r *ApprovalRequestRepository) ListByFamily(ctx context.Context, familyID int64, status *models.RequestStatus, limit int) ([]*models.ApprovalRequest, error) {
	query := `
		SELECT ` + approvalRequestColumns + `
		FROM approval_requests
		WHERE family_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`

	var statusArg *string
	if status != nil {
		s := string(*status)
		statusArg = &s
	}

	rows, err := r.q.Query(ctx, query, familyID, statusArg, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests for family %d: %w", familyID, err)
	}
	defer rows.Close()

	var requests []*models.ApprovalRequest
	for rows.Next() {
		request, err := scanApprovalRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating approval requests: %w", err)
	}

	return requests, nil
}

// ExistsPending checks for a pending request of the given type
func (r *ApprovalRequestRepository) ExistsPending(ctx context.Context, familyID int64, requestType models.RequestType, requesterID, targetUserID *int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM approval_requests
			WHERE family_id = $1
			  AND request_type = $2
			  AND status = 'pending'
			  AND ($3::bigint IS NULL OR requester_id = $3)
			  AND ($4::bigint IS NULL OR target_user_id = $4)
		)
	`

	var exists bool
	err := r.q.QueryRow(ctx, query, familyID, requestType, requesterID, targetUserID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pending %s requests: %w", requestType, err)
	}

	return exists, nil
}

func (r *ApprovalRequestRepository) getOne(ctx context.Context, query string, id int64) (*models.ApprovalRequest, error) {
	request, err := scanApprovalRequest(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return request, nil
}

// scanApprovalRequest scans one row selected with approvalRequestColumns
func scanApprovalRequest(row pgx.Row) (*models.ApprovalRequest, error) {
	var request models.ApprovalRequest
	var raw []byte
	err := row.Scan(
		&request.ID,
		&request.FamilyID,
		&request.RequesterID,
		&request.TargetUserID,
		&request.Type,
		&request.Title,
		&request.Description,
		&request.Amount,
		&raw,
		&request.Status,
		&request.CreatedAt,
		&request.UpdatedAt,
		&request.ExecutedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan approval request: %w", err)
	}

	data, err := models.DecodeRequestData(request.Type, raw)
	if err != nil {
		return nil, err
	}
	request.Data = data

	return &request, nil
}
