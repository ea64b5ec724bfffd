package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvestmentType classifies an investment product
type InvestmentType string

const (
	InvestmentTypeDeposit InvestmentType = "deposit"
	InvestmentTypeFund    InvestmentType = "fund"
	InvestmentTypeStock   InvestmentType = "stock"
	InvestmentTypeBond    InvestmentType = "bond"
	InvestmentTypeOther   InvestmentType = "other"
)

// IsValid reports whether t is a known investment type
func (t InvestmentType) IsValid() bool {
	switch t {
	case InvestmentTypeDeposit, InvestmentTypeFund, InvestmentTypeStock, InvestmentTypeBond, InvestmentTypeOther:
		return true
	}
	return false
}

// PositionOperation is the kind of principal movement on an investment
type PositionOperation string

const (
	PositionOperationCreate   PositionOperation = "create"
	PositionOperationIncrease PositionOperation = "increase"
	PositionOperationDecrease PositionOperation = "decrease"
)

// Investment is a product holding part of the household savings.
// Principal is the amount it was opened with; the current principal is
// always folded from positions.
type Investment struct {
	ID           int64           `db:"id" json:"id"`
	FamilyID     int64           `db:"family_id" json:"family_id"`
	Name         string          `db:"name" json:"name"`
	Type         InvestmentType  `db:"investment_type" json:"investment_type"`
	Principal    decimal.Decimal `db:"principal" json:"principal"`
	ExpectedRate decimal.Decimal `db:"expected_rate" json:"expected_rate"`
	StartDate    time.Time       `db:"start_date" json:"start_date"`
	EndDate      *time.Time      `db:"end_date" json:"end_date,omitempty"`
	IsActive     bool            `db:"is_active" json:"is_active"`
	IsDeleted    bool            `db:"is_deleted" json:"is_deleted"`
	DeletedAt    *time.Time      `db:"deleted_at" json:"deleted_at,omitempty"`
	Note         *string         `db:"note" json:"note,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// CountsTowardSavings checks if the investment is part of the household valuation
func (i *Investment) CountsTowardSavings() bool {
	return i.IsActive && !i.IsDeleted
}

// InvestmentPosition is a signed principal movement
type InvestmentPosition struct {
	ID                int64             `db:"id" json:"id"`
	InvestmentID      int64             `db:"investment_id" json:"investment_id"`
	Operation         PositionOperation `db:"operation_type" json:"operation_type"`
	Amount            decimal.Decimal   `db:"amount" json:"amount"`
	OperationDate     time.Time         `db:"operation_date" json:"operation_date"`
	Note              *string           `db:"note" json:"note,omitempty"`
	ApprovalRequestID *int64            `db:"approval_request_id" json:"approval_request_id,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
}

// InvestmentIncome is an append-only income entry
type InvestmentIncome struct {
	ID           int64           `db:"id" json:"id"`
	InvestmentID int64           `db:"investment_id" json:"investment_id"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	IncomeDate   time.Time       `db:"income_date" json:"income_date"`
	Note         *string         `db:"note" json:"note,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// InvestmentValuation is the folded state of an investment
type InvestmentValuation struct {
	InvestmentID     int64           `json:"investment_id"`
	CurrentPrincipal decimal.Decimal `json:"current_principal"`
	TotalIncome      decimal.Decimal `json:"total_income"`
}

// Value is principal plus accumulated income
func (v *InvestmentValuation) Value() decimal.Decimal {
	return v.CurrentPrincipal.Add(v.TotalIncome)
}

// ROI is total income over current principal, zero when no principal is held
func (v *InvestmentValuation) ROI() decimal.Decimal {
	if !v.CurrentPrincipal.IsPositive() {
		return decimal.Zero
	}
	return v.TotalIncome.Div(v.CurrentPrincipal)
}
