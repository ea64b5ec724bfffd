package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DividendType selects which pool a dividend is paid from
type DividendType string

const (
	DividendTypeProfit DividendType = "profit" // accumulated investment income
	DividendTypeCash   DividendType = "cash"   // free cash
)

// DividendStatus represents the lifecycle of a dividend
type DividendStatus string

const (
	DividendStatusVoting    DividendStatus = "voting"
	DividendStatusApproved  DividendStatus = "approved"
	DividendStatusRejected  DividendStatus = "rejected"
	DividendStatusCompleted DividendStatus = "completed"
)

// DividendClaimStatus represents what a member did with their share
type DividendClaimStatus string

const (
	DividendClaimStatusPending    DividendClaimStatus = "pending"
	DividendClaimStatusReinvested DividendClaimStatus = "reinvested"
	DividendClaimStatusWithdrawn  DividendClaimStatus = "withdrawn"
)

// Dividend is a payout of household money to members by equity
type Dividend struct {
	ID          int64           `db:"id" json:"id"`
	FamilyID    int64           `db:"family_id" json:"family_id"`
	CreatedBy   int64           `db:"created_by" json:"created_by"`
	Type        DividendType    `db:"dividend_type" json:"dividend_type"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status      DividendStatus  `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	ResolvedAt  *time.Time      `db:"resolved_at" json:"resolved_at,omitempty"`
	CompletedAt *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}

// DividendClaim is one member's share of a dividend
type DividendClaim struct {
	ID                int64               `db:"id" json:"id"`
	DividendID        int64               `db:"dividend_id" json:"dividend_id"`
	UserID            int64               `db:"user_id" json:"user_id"`
	Amount            decimal.Decimal     `db:"amount" json:"amount"`
	EquityRatio       decimal.Decimal     `db:"equity_ratio" json:"equity_ratio"`
	Status            DividendClaimStatus `db:"status" json:"status"`
	Reinvest          *bool               `db:"reinvest" json:"reinvest,omitempty"`
	DepositID         *int64              `db:"deposit_id" json:"deposit_id,omitempty"`
	ApprovalRequestID *int64              `db:"approval_request_id" json:"approval_request_id,omitempty"`
	ProcessedAt       *time.Time          `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
}

// IsPending checks if the member has not settled the claim yet
func (c *DividendClaim) IsPending() bool {
	return c.Status == DividendClaimStatusPending
}
