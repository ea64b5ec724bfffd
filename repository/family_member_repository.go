package repository

import (
	"context"
	"fmt"

	"goldennest/database"
	"goldennest/models"
	"goldennest/service"

	"github.com/jackc/pgx/v5"
)

// FamilyMemberRepository implements the FamilyMemberRepository interface
type FamilyMemberRepository struct {
	q queryable
}

// NewFamilyMemberRepository creates a new membership repository
func NewFamilyMemberRepository(db *database.DB) *FamilyMemberRepository {
	return &FamilyMemberRepository{q: db.Pool}
}

// newFamilyMemberRepositoryWithTx creates a new membership repository with a transaction
func newFamilyMemberRepositoryWithTx(tx queryable) *FamilyMemberRepository {
	return &FamilyMemberRepository{q: tx}
}

// Add inserts a membership. A user already belonging to a household is rejected.
func (r *FamilyMemberRepository) Add(ctx context.Context, member *models.FamilyMember) error {
	query := `
		INSERT INTO family_members (family_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, joined_at
	`

	err := r.q.QueryRow(ctx, query, member.FamilyID, member.UserID, member.Role).Scan(&member.ID, &member.JoinedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %d already belongs to a family: %w", member.UserID, service.ErrInvalidState)
		}
		return fmt.Errorf("failed to add user %d to family %d: %w", member.UserID, member.FamilyID, err)
	}

	return nil
}

// Get retrieves the membership of a user in a specific household
func (r *FamilyMemberRepository) Get(ctx context.Context, familyID, userID int64) (*models.FamilyMember, error) {
	query := `
		SELECT fm.id, fm.family_id, fm.user_id, fm.role, u.nickname, fm.joined_at
		FROM family_members fm
		JOIN users u ON u.id = fm.user_id
		WHERE fm.family_id = $1 AND fm.user_id = $2
	`
	return r.getOne(ctx, query, familyID, userID)
}

// GetByUser retrieves the membership of a user in any household
func (r *FamilyMemberRepository) GetByUser(ctx context.Context, userID int64) (*models.FamilyMember, error) {
	query := `
		SELECT fm.id, fm.family_id, fm.user_id, fm.role, u.nickname, fm.joined_at
		FROM family_members fm
		JOIN users u ON u.id = fm.user_id
		WHERE fm.user_id = $1
	`
	return r.getOne(ctx, query, userID)
}

// ListByFamily returns all members of a household in join order
func (r *FamilyMemberRepository) ListByFamily(ctx context.Context, familyID int64) ([]*models.FamilyMember, error) {
	query := `
		SELECT fm.id, fm.family_id, fm.user_id, fm.role, u.nickname, fm.joined_at
		FROM family_members fm
		JOIN users u ON u.id = fm.user_id
		WHERE fm.family_id = $1
		ORDER BY fm.joined_at, fm.id
	`

	rows, err := r.q.Query(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of family %d: %w", familyID, err)
	}
	defer rows.Close()

	var members []*models.FamilyMember
	for rows.Next() {
		var member models.FamilyMember
		err := rows.Scan(
			&member.ID,
			&member.FamilyID,
			&member.UserID,
			&member.Role,
			&member.Nickname,
			&member.JoinedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		members = append(members, &member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating family members: %w", err)
	}

	return members, nil
}

// CountByFamily returns the number of members of a household
func (r *FamilyMemberRepository) CountByFamily(ctx context.Context, familyID int64) (int, error) {
	query := `SELECT COUNT(*) FROM family_members WHERE family_id = $1`

	var count int
	if err := r.q.QueryRow(ctx, query, familyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count members of family %d: %w", familyID, err)
	}

	return count, nil
}

// Remove deletes a membership
func (r *FamilyMemberRepository) Remove(ctx context.Context, familyID, userID int64) error {
	query := `DELETE FROM family_members WHERE family_id = $1 AND user_id = $2`

	result, err := r.q.Exec(ctx, query, familyID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove user %d from family %d: %w", userID, familyID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d is not a member of family %d", userID, familyID)
	}

	return nil
}

func (r *FamilyMemberRepository) getOne(ctx context.Context, query string, args ...any) (*models.FamilyMember, error) {
	var member models.FamilyMember
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&member.ID,
		&member.FamilyID,
		&member.UserID,
		&member.Role,
		&member.Nickname,
		&member.JoinedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family member: %w", err)
	}

	return &member, nil
}
