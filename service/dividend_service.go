package service

import (
	"context"
	"fmt"

	"goldennest/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type dividendService struct {
	uowFactory UnitOfWorkFactory
	engine     *approvalService
}

// NewDividendService creates a new dividend service. Claims are settled through
// dividend_claim approval requests filed in the same transaction as the claims.
func NewDividendService(uowFactory UnitOfWorkFactory, metrics MetricsRecorder) DividendService {
	return &dividendService{
		uowFactory: uowFactory,
		engine:     newApprovalService(uowFactory, metrics),
	}
}

// ProposeDividend records a dividend in voting state after checking its pool can cover it
func (s *dividendService) ProposeDividend(ctx context.Context, familyID, creatorID int64, dividendType models.DividendType, amount decimal.Decimal) (*models.Dividend, error) {
	if dividendType != models.DividendTypeProfit && dividendType != models.DividendTypeCash {
		return nil, validationf("unknown dividend type %q", dividendType)
	}
	if !amount.IsPositive() {
		return nil, validationf("dividend amount must be positive")
	}
	amount = amount.Round(2)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Serializes with ledger writes and other proposals of the household
	family, err := uow.FamilyRepository().GetByIDForUpdate(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock family: %w", err)
	}
	if family == nil {
		return nil, notFoundf("family %d", familyID)
	}

	member, err := uow.FamilyMemberRepository().Get(ctx, familyID, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	if member == nil {
		return nil, forbiddenf("user %d is not a member of family %d", creatorID, familyID)
	}

	if err := s.checkPool(ctx, uow, familyID, dividendType, amount); err != nil {
		return nil, err
	}

	dividend := &models.Dividend{
		FamilyID:    familyID,
		CreatedBy:   creatorID,
		Type:        dividendType,
		TotalAmount: amount,
		Status:      models.DividendStatusVoting,
	}
	if err := uow.DividendRepository().Create(ctx, dividend); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"dividendID":   dividend.ID,
		"familyID":     familyID,
		"dividendType": dividendType,
		"amount":       amount.StringFixed(2),
	}).Info("Dividend proposed")

	return dividend, nil
}

// checkPool verifies the dividend fits in unfrozen cash and, for profit dividends, in accumulated income
func (s *dividendService) checkPool(ctx context.Context, uow UnitOfWork, familyID int64, dividendType models.DividendType, amount decimal.Decimal) error {
	freeCash, err := uow.TransactionRepository().GetLatestBalance(ctx, familyID)
	if err != nil {
		return fmt.Errorf("failed to get free cash: %w", err)
	}
	frozen, err := uow.DividendRepository().FrozenAmount(ctx, familyID)
	if err != nil {
		return fmt.Errorf("failed to get frozen amount: %w", err)
	}

	available := decimal.Max(freeCash.Sub(frozen), decimal.Zero)
	if amount.GreaterThan(available) {
		return validationf("dividend of %s exceeds available cash %s", amount.StringFixed(2), available.StringFixed(2))
	}

	if dividendType == models.DividendTypeProfit {
		income, err := uow.InvestmentRepository().TotalIncome(ctx, familyID)
		if err != nil {
			return fmt.Errorf("failed to get investment income: %w", err)
		}
		if amount.GreaterThan(income) {
			return validationf("profit dividend of %s exceeds investment income %s", amount.StringFixed(2), income.StringFixed(2))
		}
	}

	return nil
}

// ResolveDividend closes the vote on a dividend
func (s *dividendService) ResolveDividend(ctx context.Context, dividendID, resolverID int64, approved bool) (*models.Dividend, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	dividend, err := uow.DividendRepository().GetByID(ctx, dividendID)
	if err != nil {
		return nil, fmt.Errorf("failed to get dividend: %w", err)
	}
	if dividend == nil {
		return nil, notFoundf("dividend %d", dividendID)
	}

	// Lock order matches request execution: household before dividend
	if _, err := uow.FamilyRepository().GetByIDForUpdate(ctx, dividend.FamilyID); err != nil {
		return nil, fmt.Errorf("failed to lock family: %w", err)
	}
	dividend, err = uow.DividendRepository().GetByIDForUpdate(ctx, dividendID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock dividend: %w", err)
	}
	if dividend.Status != models.DividendStatusVoting {
		return nil, invalidStatef("dividend %d is already %s", dividend.ID, dividend.Status)
	}

	resolver, err := uow.FamilyMemberRepository().Get(ctx, dividend.FamilyID, resolverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	if resolver == nil || !resolver.IsAdmin() {
		return nil, forbiddenf("only admins may resolve dividend %d", dividend.ID)
	}

	now := s.engine.now()
	if !approved {
		if err := uow.DividendRepository().UpdateStatus(ctx, dividend.ID, models.DividendStatusRejected, now); err != nil {
			return nil, err
		}
	} else {
		if err := uow.DividendRepository().UpdateStatus(ctx, dividend.ID, models.DividendStatusApproved, now); err != nil {
			return nil, err
		}
		if err := s.createClaims(ctx, uow, dividend); err != nil {
			return nil, err
		}
	}

	resolved, err := uow.DividendRepository().GetByID(ctx, dividend.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload dividend: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"dividendID": resolved.ID,
		"familyID":   resolved.FamilyID,
		"status":     resolved.Status,
	}).Info("Dividend resolved")

	return resolved, nil
}

// createClaims splits an approved dividend by equity and files one claim request per member
func (s *dividendService) createClaims(ctx context.Context, uow UnitOfWork, dividend *models.Dividend) error {
	members, err := uow.FamilyMemberRepository().ListByFamily(ctx, dividend.FamilyID)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}
	totals, err := uow.DepositRepository().SumByUser(ctx, dividend.FamilyID)
	if err != nil {
		return fmt.Errorf("failed to sum deposits: %w", err)
	}

	for _, equity := range calculateMemberEquity(members, totals) {
		if !equity.TotalDeposit.IsPositive() || equity.EquityRatio <= 0 {
			continue
		}

		ratio := decimal.NewFromFloat(equity.EquityRatio)
		amount := dividend.TotalAmount.Mul(ratio).Round(2)
		if !amount.IsPositive() {
			continue
		}

		claim := &models.DividendClaim{
			DividendID:  dividend.ID,
			UserID:      equity.UserID,
			Amount:      amount,
			EquityRatio: ratio,
			Status:      models.DividendClaimStatusPending,
		}
		if err := uow.DividendRepository().CreateClaim(ctx, claim); err != nil {
			return err
		}

		userID := equity.UserID
		request, err := s.engine.createRequest(ctx, uow, CreateRequestParams{
			FamilyID:     dividend.FamilyID,
			RequesterID:  dividend.CreatedBy,
			TargetUserID: &userID,
			Type:         models.RequestTypeDividendClaim,
			Title:        fmt.Sprintf("Dividend %d share for %s", dividend.ID, equity.Nickname),
			Amount:       amount,
			Data: &models.DividendClaimData{
				DividendID:  dividend.ID,
				ClaimID:     claim.ID,
				EquityRatio: ratio,
			},
		})
		if err != nil {
			return err
		}

		if err := uow.DividendRepository().SetClaimRequest(ctx, claim.ID, request.ID); err != nil {
			return err
		}
	}

	current, err := uow.DividendRepository().GetByID(ctx, dividend.ID)
	if err != nil {
		return fmt.Errorf("failed to reload dividend: %w", err)
	}
	if current.Status != models.DividendStatusApproved {
		return nil
	}

	remaining, err := uow.DividendRepository().CountPendingClaims(ctx, dividend.ID)
	if err != nil {
		return err
	}
	if remaining == 0 {
		return uow.DividendRepository().UpdateStatus(ctx, dividend.ID, models.DividendStatusCompleted, s.engine.now())
	}

	return nil
}

// GetDividend retrieves a dividend
func (s *dividendService) GetDividend(ctx context.Context, dividendID int64) (*models.Dividend, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	dividend, err := uow.DividendRepository().GetByID(ctx, dividendID)
	if err != nil {
		return nil, fmt.Errorf("failed to get dividend: %w", err)
	}
	if dividend == nil {
		return nil, notFoundf("dividend %d", dividendID)
	}

	return dividend, nil
}
