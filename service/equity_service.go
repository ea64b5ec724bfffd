package service

import (
	"context"
	"fmt"

	"goldennest/models"

	"github.com/shopspring/decimal"
)

type equityService struct {
	uowFactory UnitOfWorkFactory
}

// NewEquityService creates a new equity service
func NewEquityService(uowFactory UnitOfWorkFactory) EquityService {
	return &equityService{
		uowFactory: uowFactory,
	}
}

// GetEquitySummary derives ownership of every current member from their deposits,
// together with the household's savings, frozen dividends and target progress
func (s *equityService) GetEquitySummary(ctx context.Context, familyID int64) (*models.EquitySummary, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	family, err := uow.FamilyRepository().GetByID(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, notFoundf("family %d", familyID)
	}

	members, err := uow.FamilyMemberRepository().ListByFamily(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	totals, err := uow.DepositRepository().SumByUser(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum deposits: %w", err)
	}

	freeCash, err := uow.TransactionRepository().GetLatestBalance(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get free cash: %w", err)
	}

	valuations, err := uow.InvestmentRepository().ListValuations(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to value investments: %w", err)
	}

	frozen, err := uow.DividendRepository().FrozenAmount(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get frozen amount: %w", err)
	}

	investmentValue := decimal.Zero
	for _, valuation := range valuations {
		investmentValue = investmentValue.Add(valuation.Value())
	}

	summary := &models.EquitySummary{
		FamilyID:        family.ID,
		FamilyName:      family.Name,
		SavingsTarget:   family.SavingsTarget,
		EquityRate:      family.EquityRate,
		FreeCash:        freeCash,
		InvestmentValue: investmentValue,
		TotalSavings:    freeCash.Add(investmentValue),
		FrozenAmount:    frozen,
		AvailableCash:   decimal.Max(freeCash.Sub(frozen), decimal.Zero),
		Members:         calculateMemberEquity(members, totals),
	}
	for _, member := range summary.Members {
		summary.TotalDeposit = summary.TotalDeposit.Add(member.TotalDeposit)
	}
	summary.TargetProgress = targetProgress(summary.TotalSavings, family.SavingsTarget)

	return summary, nil
}

// calculateMemberEquity computes ratio = member total / household total over current members.
// Every ratio is zero when the household total is not positive.
func calculateMemberEquity(members []*models.FamilyMember, totals map[int64]decimal.Decimal) []*models.MemberEquity {
	householdTotal := decimal.Zero
	for _, member := range members {
		householdTotal = householdTotal.Add(totals[member.UserID])
	}

	equities := make([]*models.MemberEquity, 0, len(members))
	for _, member := range members {
		equity := &models.MemberEquity{
			UserID:       member.UserID,
			Nickname:     member.Nickname,
			Role:         member.Role,
			TotalDeposit: totals[member.UserID],
		}
		if householdTotal.IsPositive() {
			ratio := equity.TotalDeposit.Div(householdTotal)
			equity.EquityRatio = ratio.Round(6).InexactFloat64()
			equity.EquityPercentage = ratio.Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
		}
		equities = append(equities, equity)
	}
	return equities
}

// targetProgress is min(total / target, 1), zero for a non-positive target
func targetProgress(total, target decimal.Decimal) float64 {
	if !target.IsPositive() {
		return 0
	}
	progress := total.Div(target)
	if progress.GreaterThan(decimal.NewFromInt(1)) {
		return 1
	}
	if progress.IsNegative() {
		return 0
	}
	return progress.Round(4).InexactFloat64()
}
