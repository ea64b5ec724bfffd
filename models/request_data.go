package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RatioTolerance is how far expense deduction ratios may drift from summing to 1
var RatioTolerance = decimal.RequireFromString("0.001")

// RequestData is the typed payload of an approval request. Each request type
// has exactly one payload variant.
type RequestData interface {
	RequestType() RequestType
	Validate() error
}

// DepositData credits Amount to UserID (the requester when zero)
type DepositData struct {
	UserID      int64           `json:"user_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	DepositDate *time.Time      `json:"deposit_date,omitempty"`
	Note        string          `json:"note,omitempty"`
}

func (d *DepositData) RequestType() RequestType { return RequestTypeDeposit }

func (d *DepositData) Validate() error {
	if !d.Amount.IsPositive() {
		return errors.New("deposit amount must be positive")
	}
	return nil
}

// ExpenseData spends Amount from free cash and charges members by ratio
type ExpenseData struct {
	Title           string                    `json:"title"`
	Amount          decimal.Decimal           `json:"amount"`
	Reason          string                    `json:"reason,omitempty"`
	DeductionRatios map[int64]decimal.Decimal `json:"deduction_ratios"`
}

func (d *ExpenseData) RequestType() RequestType { return RequestTypeExpense }

func (d *ExpenseData) Validate() error {
	if !d.Amount.IsPositive() {
		return errors.New("expense amount must be positive")
	}
	if len(d.DeductionRatios) == 0 {
		return errors.New("deduction ratios are required")
	}
	total := decimal.Zero
	for userID, ratio := range d.DeductionRatios {
		if ratio.IsNegative() {
			return fmt.Errorf("deduction ratio for user %d must not be negative", userID)
		}
		total = total.Add(ratio)
	}
	if total.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(RatioTolerance) {
		return fmt.Errorf("deduction ratios must sum to 1, got %s", total.String())
	}
	return nil
}

// InvestmentCreateData funds a new investment product from free cash
type InvestmentCreateData struct {
	Name           string          `json:"name"`
	InvestmentType InvestmentType  `json:"investment_type"`
	Principal      decimal.Decimal `json:"principal"`
	ExpectedRate   decimal.Decimal `json:"expected_rate"`
	StartDate      *time.Time      `json:"start_date,omitempty"`
	EndDate        *time.Time      `json:"end_date,omitempty"`
	Note           string          `json:"note,omitempty"`
}

func (d *InvestmentCreateData) RequestType() RequestType { return RequestTypeInvestmentCreate }

func (d *InvestmentCreateData) Validate() error {
	if d.Name == "" {
		return errors.New("investment name is required")
	}
	if !d.InvestmentType.IsValid() {
		return fmt.Errorf("invalid investment type %q", d.InvestmentType)
	}
	if !d.Principal.IsPositive() {
		return errors.New("principal must be positive")
	}
	return nil
}

// InvestmentUpdateData patches descriptive fields of an investment. Nil fields are left untouched.
type InvestmentUpdateData struct {
	InvestmentID int64            `json:"investment_id"`
	Name         *string          `json:"name,omitempty"`
	ExpectedRate *decimal.Decimal `json:"expected_rate,omitempty"`
	EndDate      *time.Time       `json:"end_date,omitempty"`
	IsActive     *bool            `json:"is_active,omitempty"`
	Note         *string          `json:"note,omitempty"`
}

func (d *InvestmentUpdateData) RequestType() RequestType { return RequestTypeInvestmentUpdate }

func (d *InvestmentUpdateData) Validate() error {
	if d.InvestmentID <= 0 {
		return errors.New("investment id is required")
	}
	if d.Name != nil && *d.Name == "" {
		return errors.New("investment name cannot be empty")
	}
	return nil
}

// InvestmentIncomeData records income either directly or from a current valuation
type InvestmentIncomeData struct {
	InvestmentID int64            `json:"investment_id"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	CurrentValue *decimal.Decimal `json:"current_value,omitempty"`
	IncomeDate   *time.Time       `json:"income_date,omitempty"`
	Note         string           `json:"note,omitempty"`
}

func (d *InvestmentIncomeData) RequestType() RequestType { return RequestTypeInvestmentIncome }

func (d *InvestmentIncomeData) Validate() error {
	if d.InvestmentID <= 0 {
		return errors.New("investment id is required")
	}
	if (d.Amount == nil) == (d.CurrentValue == nil) {
		return errors.New("exactly one of amount or current_value is required")
	}
	if d.CurrentValue != nil && d.CurrentValue.IsNegative() {
		return errors.New("current value must not be negative")
	}
	return nil
}

// PositionChange moves principal in or out of an investment
type PositionChange struct {
	InvestmentID  int64           `json:"investment_id"`
	Amount        decimal.Decimal `json:"amount"`
	OperationDate *time.Time      `json:"operation_date,omitempty"`
	Note          string          `json:"note,omitempty"`
}

func (c *PositionChange) validate() error {
	if c.InvestmentID <= 0 {
		return errors.New("investment id is required")
	}
	if !c.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	return nil
}

// InvestmentIncreaseData adds principal funded from free cash
type InvestmentIncreaseData struct {
	PositionChange
}

func (d *InvestmentIncreaseData) RequestType() RequestType { return RequestTypeInvestmentIncrease }

func (d *InvestmentIncreaseData) Validate() error { return d.validate() }

// InvestmentDecreaseData returns principal to free cash
type InvestmentDecreaseData struct {
	PositionChange
}

func (d *InvestmentDecreaseData) RequestType() RequestType { return RequestTypeInvestmentDecrease }

func (d *InvestmentDecreaseData) Validate() error { return d.validate() }

// InvestmentDeleteData soft deletes an investment
type InvestmentDeleteData struct {
	InvestmentID int64 `json:"investment_id"`
}

func (d *InvestmentDeleteData) RequestType() RequestType { return RequestTypeInvestmentDelete }

func (d *InvestmentDeleteData) Validate() error {
	if d.InvestmentID <= 0 {
		return errors.New("investment id is required")
	}
	return nil
}

// MemberJoinData adds UserID to the household
type MemberJoinData struct {
	UserID     int64  `json:"user_id"`
	Username   string `json:"username,omitempty"`
	Nickname   string `json:"nickname,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
}

func (d *MemberJoinData) RequestType() RequestType { return RequestTypeMemberJoin }

func (d *MemberJoinData) Validate() error {
	if d.UserID <= 0 {
		return errors.New("joining user id is required")
	}
	return nil
}

// MemberRemoveData removes a non-admin member from the household
type MemberRemoveData struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func (d *MemberRemoveData) RequestType() RequestType { return RequestTypeMemberRemove }

func (d *MemberRemoveData) Validate() error {
	if d.UserID <= 0 {
		return errors.New("member user id is required")
	}
	return nil
}

// DividendClaimData settles one member's share of a dividend. A nil Reinvest means withdraw.
type DividendClaimData struct {
	DividendID  int64           `json:"dividend_id"`
	ClaimID     int64           `json:"claim_id"`
	EquityRatio decimal.Decimal `json:"equity_ratio"`
	Reinvest    *bool           `json:"reinvest,omitempty"`
}

func (d *DividendClaimData) RequestType() RequestType { return RequestTypeDividendClaim }

func (d *DividendClaimData) Validate() error {
	if d.DividendID <= 0 || d.ClaimID <= 0 {
		return errors.New("dividend and claim ids are required")
	}
	return nil
}

// WantsReinvest reports whether the claimant chose to reinvest
func (d *DividendClaimData) WantsReinvest() bool {
	return d.Reinvest != nil && *d.Reinvest
}

// NewRequestData returns an empty payload for the given request type
func NewRequestData(t RequestType) (RequestData, error) {
	switch t {
	case RequestTypeDeposit:
		return &DepositData{}, nil
	case RequestTypeExpense:
		return &ExpenseData{}, nil
	case RequestTypeInvestmentCreate:
		return &InvestmentCreateData{}, nil
	case RequestTypeInvestmentUpdate:
		return &InvestmentUpdateData{}, nil
	case RequestTypeInvestmentIncome:
		return &InvestmentIncomeData{}, nil
	case RequestTypeInvestmentIncrease:
		return &InvestmentIncreaseData{}, nil
	case RequestTypeInvestmentDecrease:
		return &InvestmentDecreaseData{}, nil
	case RequestTypeInvestmentDelete:
		return &InvestmentDeleteData{}, nil
	case RequestTypeMemberJoin:
		return &MemberJoinData{}, nil
	case RequestTypeMemberRemove:
		return &MemberRemoveData{}, nil
	case RequestTypeDividendClaim:
		return &DividendClaimData{}, nil
	default:
		return nil, fmt.Errorf("unknown request type %q", t)
	}
}

// DecodeRequestData parses a stored payload into the variant for t
func DecodeRequestData(t RequestType, raw []byte) (RequestData, error) {
	data, err := NewRequestData(t)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, fmt.Errorf("failed to decode %s request data: %w", t, err)
	}
	return data, nil
}

// EncodeRequestData serializes a payload for storage
func EncodeRequestData(data RequestData) ([]byte, error) {
	if data == nil {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request data: %w", data.RequestType(), err)
	}
	return raw, nil
}
