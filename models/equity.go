package models

import (
	"github.com/shopspring/decimal"
)

// MemberEquity is one member's ownership of the household pool
type MemberEquity struct {
	UserID           int64           `json:"user_id"`
	Nickname         string          `json:"nickname"`
	Role             MemberRole      `json:"role"`
	TotalDeposit     decimal.Decimal `json:"total_deposit"`
	EquityRatio      float64         `json:"equity_ratio"`
	EquityPercentage float64         `json:"equity_percentage"`
}

// EquitySummary is the household-wide ownership and savings picture
type EquitySummary struct {
	FamilyID        int64           `json:"family_id"`
	FamilyName      string          `json:"family_name"`
	SavingsTarget   decimal.Decimal `json:"savings_target"`
	EquityRate      decimal.Decimal `json:"equity_rate"` // deprecated, informational only
	TotalDeposit    decimal.Decimal `json:"total_deposit"`
	FreeCash        decimal.Decimal `json:"free_cash"`
	InvestmentValue decimal.Decimal `json:"investment_value"`
	TotalSavings    decimal.Decimal `json:"total_savings"`
	FrozenAmount    decimal.Decimal `json:"frozen_amount"`
	AvailableCash   decimal.Decimal `json:"available_cash"`
	TargetProgress  float64         `json:"target_progress"`
	Members         []*MemberEquity `json:"members"`
}
