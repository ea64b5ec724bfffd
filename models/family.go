package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MemberRole is the role of a user inside a household
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

// Family is a household pooling money
type Family struct {
	ID            int64           `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	SavingsTarget decimal.Decimal `db:"savings_target" json:"savings_target"`
	// Deprecated: EquityRate is legacy time-value metadata. It is reported
	// in summaries but never applied to the equity computation.
	EquityRate decimal.Decimal `db:"equity_rate" json:"equity_rate"`
	InviteCode string          `db:"invite_code" json:"invite_code"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// FamilyMember links a user to exactly one household
type FamilyMember struct {
	ID       int64      `db:"id" json:"id"`
	FamilyID int64      `db:"family_id" json:"family_id"`
	UserID   int64      `db:"user_id" json:"user_id"`
	Role     MemberRole `db:"role" json:"role"`
	Nickname string     `db:"-" json:"nickname,omitempty"` // joined from users on list queries
	JoinedAt time.Time  `db:"joined_at" json:"joined_at"`
}

// IsAdmin reports whether the member administers the household
func (m *FamilyMember) IsAdmin() bool {
	return m.Role == MemberRoleAdmin
}
