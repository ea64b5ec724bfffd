package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of cash movement recorded in the ledger
type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "deposit"
	TransactionTypeWithdraw TransactionType = "withdraw"
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeDividend TransactionType = "dividend"
)

// ReferenceType represents what type of entity a transaction's reference_id points to
type ReferenceType string

const (
	ReferenceTypeDeposit          ReferenceType = "deposit"
	ReferenceTypeExpense          ReferenceType = "expense"
	ReferenceTypeInvestment       ReferenceType = "investment"
	ReferenceTypeInvestmentIncome ReferenceType = "investment_income"
	ReferenceTypeDividend         ReferenceType = "dividend"
)

// Deposit is an immutable equity record. Negative amounts reduce equity.
type Deposit struct {
	ID          int64           `db:"id" json:"id"`
	FamilyID    int64           `db:"family_id" json:"family_id"`
	UserID      int64           `db:"user_id" json:"user_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	DepositDate time.Time       `db:"deposit_date" json:"deposit_date"`
	Note        *string         `db:"note" json:"note,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// Transaction is an append-only ledger row. The newest row's BalanceAfter is
// the household's cash balance.
type Transaction struct {
	ID            int64           `db:"id" json:"id"`
	FamilyID      int64           `db:"family_id" json:"family_id"`
	UserID        *int64          `db:"user_id" json:"user_id,omitempty"`
	Type          TransactionType `db:"transaction_type" json:"transaction_type"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	BalanceAfter  decimal.Decimal `db:"balance_after" json:"balance_after"`
	Description   string          `db:"description" json:"description"`
	ReferenceID   *int64          `db:"reference_id" json:"reference_id,omitempty"`
	ReferenceType *ReferenceType  `db:"reference_type" json:"reference_type,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
