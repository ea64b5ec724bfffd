package repository

import (
	"context"
	"fmt"

	"goldennest/database"
	"goldennest/models"
	"goldennest/service"

	"github.com/jackc/pgx/v5"
)

// ApprovalRecordRepository implements the ApprovalRecordRepository interface
type ApprovalRecordRepository struct {
	q queryable
}

// NewApprovalRecordRepository creates a new vote repository
func NewApprovalRecordRepository(db *database.DB) *ApprovalRecordRepository {
	return &ApprovalRecordRepository{q: db.Pool}
}

// newApprovalRecordRepositoryWithTx creates a new vote repository with a transaction
func newApprovalRecordRepositoryWithTx(tx queryable) *ApprovalRecordRepository {
	return &ApprovalRecordRepository{q: tx}
}

// Create inserts a vote. The (request, approver) pair is unique.
func (r *ApprovalRecordRepository) Create(ctx context.Context, record *models.ApprovalRecord) error {
	query := `
		INSERT INTO approval_records (request_id, approver_id, is_approved, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		record.RequestID,
		record.ApproverID,
		record.IsApproved,
		record.Comment,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %d already voted on request %d: %w", record.ApproverID, record.RequestID, service.ErrDuplicateVote)
		}
		return fmt.Errorf("failed to record vote on request %d: %w", record.RequestID, err)
	}

	return nil
}

// ListByRequest returns all votes on a request in the order they were cast
func (r *ApprovalRecordRepository) ListByRequest(ctx context.Context, requestID int64) ([]*models.ApprovalRecord, error) {
	query := `
		SELECT id, request_id, approver_id, is_approved, comment, created_at
		FROM approval_records
		WHERE request_id = $1
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes on request %d: %w", requestID, err)
	}
	defer rows.Close()

	var records []*models.ApprovalRecord
	for rows.Next() {
		var record models.ApprovalRecord
		err := rows.Scan(
			&record.ID,
			&record.RequestID,
			&record.ApproverID,
			&record.IsApproved,
			&record.Comment,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval record: %w", err)
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating approval records: %w", err)
	}

	return records, nil
}

// GetByApprover retrieves the vote of one approver on a request
func (r *ApprovalRecordRepository) GetByApprover(ctx context.Context, requestID, approverID int64) (*models.ApprovalRecord, error) {
	query := `
		SELECT id, request_id, approver_id, is_approved, comment, created_at
		FROM approval_records
		WHERE request_id = $1 AND approver_id = $2
	`

	var record models.ApprovalRecord
	err := r.q.QueryRow(ctx, query, requestID, approverID).Scan(
		&record.ID,
		&record.RequestID,
		&record.ApproverID,
		&record.IsApproved,
		&record.Comment,
		&record.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote of user %d on request %d: %w", approverID, requestID, err)
	}

	return &record, nil
}
