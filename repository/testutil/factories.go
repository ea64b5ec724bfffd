package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"goldennest/database"
	"goldennest/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// CreateTestRequest creates a pending approval request
func CreateTestRequest(familyID, requesterID int64, data models.RequestData) *models.ApprovalRequest {
	now := time.Now()
	return &models.ApprovalRequest{
		FamilyID:    familyID,
		RequesterID: requesterID,
		Type:        data.RequestType(),
		Title:       fmt.Sprintf("test %s", data.RequestType()),
		Data:        data,
		Status:      models.RequestStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CreateTestDepositRequest creates a pending deposit request for amount
func CreateTestDepositRequest(familyID, requesterID int64, amount int64) *models.ApprovalRequest {
	request := CreateTestRequest(familyID, requesterID, &models.DepositData{Amount: decimal.NewFromInt(amount)})
	request.Amount = decimal.NewFromInt(amount)
	return request
}

// SeededFamily is a household inserted directly into a test database
type SeededFamily struct {
	Family  *models.Family
	Members []*models.User // first member is the admin
}

// SeedFamily inserts a household with one user per nickname. The first user becomes admin.
func SeedFamily(t *testing.T, db *database.DB, name string, nicknames ...string) *SeededFamily {
	t.Helper()
	ctx := context.Background()
	seeded := &SeededFamily{}

	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		family := &models.Family{
			Name:          name,
			SavingsTarget: decimal.NewFromInt(2000000),
			EquityRate:    decimal.RequireFromString("0.03"),
			InviteCode:    strings.ToUpper(uuid.NewString()[:8]),
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO families (name, savings_target, equity_rate, invite_code)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at
		`, family.Name, family.SavingsTarget, family.EquityRate, family.InviteCode).Scan(&family.ID, &family.CreatedAt, &family.UpdatedAt)
		if err != nil {
			return err
		}
		seeded.Family = family

		for i, nickname := range nicknames {
			user, err := insertUser(ctx, tx, fmt.Sprintf("%s-%d-%d", nickname, family.ID, i), nickname)
			if err != nil {
				return err
			}

			role := models.MemberRoleMember
			if i == 0 {
				role = models.MemberRoleAdmin
			}
			_, err = tx.Exec(ctx, `INSERT INTO family_members (family_id, user_id, role) VALUES ($1, $2, $3)`, family.ID, user.ID, role)
			if err != nil {
				return err
			}
			seeded.Members = append(seeded.Members, user)
		}
		return nil
	})
	require.NoError(t, err)

	return seeded
}

// SeedUser inserts a user that belongs to no household
func SeedUser(t *testing.T, db *database.DB, username string) *models.User {
	t.Helper()
	ctx := context.Background()

	var user *models.User
	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		var err error
		user, err = insertUser(ctx, tx, username, username)
		return err
	})
	require.NoError(t, err)

	return user
}

func insertUser(ctx context.Context, tx pgx.Tx, username, nickname string) (*models.User, error) {
	user := &models.User{Username: username, Nickname: nickname}
	err := tx.QueryRow(ctx, `
		INSERT INTO users (username, nickname)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, username, nickname).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}
