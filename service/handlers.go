package service

import (
	"context"
	"fmt"
	"time"

	"goldennest/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

func (s *approvalService) executeDeposit(ctx context.Context, uow UnitOfWork, request *models.ApprovalRequest) error {
	data, ok := request.Data.(*models.DepositData)
	if !ok {
		return payloadMismatch(request)
	}

	userID := data.UserID
	if userID == 0 {
		userID = request.RequesterID
	}

	deposit := &models.Deposit{
		FamilyID:    request.FamilyID,
		UserID:      userID,
		Amount:      data.Amount,
		DepositDate: s.dateOrNow(data.DepositDate),
		Note:        optionalString(data.Note),
	}
	if err := RecordDeposit(ctx, uow, deposit); err != nil {
		return err
	}

	return RecordTransaction(ctx, uow, &models.Transaction{
		FamilyID:      request.FamilyID,
		UserID:        &userID,
		Type:          models.TransactionTypeDeposit,
		Amount:        data.Amount,
		Description:   fmt.Sprintf("Deposit: %s", request.Title),
		ReferenceID:   &deposit.ID,
		ReferenceType: referenceType(models.ReferenceTypeDeposit),
	})
}

// executeExpense charges each member its share of the expense as negative equity
// and takes the full amount out of free cash
func (s *approvalService) executeExpense(ctx context.Context, uow UnitOfWork, request *models.ApprovalRequest) error {
	data, ok := request.Data.(*models.ExpenseData)
	if !ok {
		return payloadMismatch(request)
	}
	if err := data.Validate(); err != nil {
		return err
	}

	now := s.now()
	for userID, ratio := range data.DeductionRatios {
		share := data.Amount.Mul(ratio).Round(2)
		if share.IsZero() {
			continue
		}
		deposit := &models.Deposit{
			FamilyID:    request.FamilyID,
			UserID:      userID,
			Amount:      share.Neg(),
			DepositDate: now,
			Note:        optionalString(fmt.Sprintf("Expense: %s", data.Title)),
		}
		if err := RecordDeposit(ctx, uow, deposit); err != nil {
			return err
		}
	}

	return RecordTransaction(ctx, uow, &models.Transaction{
		FamilyID:      request.FamilyID,
		UserID:        &request.RequesterID,
		Type:          models.TransactionTypeWithdraw,
		Amount:        data.Amount.Neg(),
		Description:   fmt.Sprintf("Expense: %s", data.Title),
		ReferenceID:   &request.ID,
		ReferenceType: referenceType(models.ReferenceTypeExpense),
	})
}

// executeInvestmentCreate moves principal from free cash into a new investment.
// The requester is credited the principal as equity.
func (s *approvalService) executeInvestmentCreate(ctx context.Context, uow UnitOfWork, request *models.ApprovalRequest) error {
	data, ok := request.Data.(*models.InvestmentCreateData)
	if !ok {
		return payloadMismatch(request)
	}

	if err := requireBalance(ctx, uow, request.FamilyID, data.Principal); err != nil {
		return err
	}

	startDate := s.dateOrNow(data.StartDate)
	investment := &models.Investment{
		FamilyID:     request.FamilyID,
		Name:         data.Name,
		Type:         data.InvestmentType,
		Principal:    data.Principal,
		ExpectedRate: data.ExpectedRate,
		StartDate:    startDate,
		EndDate:      data.EndDate,
		IsActive:     true,
		Note:         optionalString(data.Note),
	}
	if err := uow.InvestmentRepository().Create(ctx, investment); err != nil {
		return err
	}

	position := &models.InvestmentPosition{
		InvestmentID:      investment.ID,
		Operation:         models.PositionOperationCreate,
		Amount:            data.Principal,
		OperationDate:     startDate,
		Note:              optionalString(fmt.Sprintf("Create investment: %s", investment.Name)),
		ApprovalRequestID: &request.ID,
	}
	if err := uow.InvestmentRepository().AddPosition(ctx, position); err != nil {
		return err
	}

	err := RecordTransaction(ctx, uow, &models.Transaction{
		FamilyID:      request.FamilyID,
		UserID:        &request.RequesterID,
		Type:          models.TransactionTypeWithdraw,
		Amount:        data.Principal.Neg(),
		Description:   fmt.Sprintf("Create investment: %s", investment.Name),
		ReferenceID:   &investment.ID,
		ReferenceType: referenceType(models.ReferenceTypeInvestment),
	})
	if err != nil {
		return err
	}

	return RecordDeposit(ctx, uow, &models.Deposit{
		FamilyID:    request.FamilyID,
		UserID:      request.RequesterID,
		Amount:      data.Principal,
		DepositDate: startDate,
		Note:        optionalString(fmt.Sprintf("Investment principal: %s", investment.Name)),
	})
}

// executeInvestmentUpdate patches descriptive fields. A vanished investment is skipped.
func (s *approvalService) executeInvestmentUpdate(ctx context.Context, uow UnitOfWork, request *models.ApprovalRequest) error {
	data, ok := request.Data.(*models.InvestmentUpdateData)
	if !ok {
		return payloadMismatch(request)
	}

	investment, err := uow.InvestmentRepository().GetByID(ctx, data.InvestmentID)
	if err != nil {
		return err
	}
	if investment == nil || investment.FamilyID != request.FamilyID {
		log.WithFields(log.Fields{
			"requestID":    request.ID,
			"investmentID": data.InvestmentID,
		}).Warn("Investment to update not found, skipping")
		return nil
	}

	if data.Name != nil {
		investment.Name = *data.Name
	}
	if data.ExpectedRate != nil {
		investment.ExpectedRate = *data.ExpectedRate
	}
	if data.EndDate != nil {
		investment.EndDate = data.EndDate
	}
	if data.IsActive != nil {
		investment.IsActive = *data.IsActive
	}
	if data.Note != nil {
		investment.Note = data.Note
	}

	return uow.InvestmentRepository().Update(ctx, investment)
}

// executeInvestmentIncome records income given directly or derived from a current valuation
func (s *approvalService) executeInvestmentIncome(ctx context.Context, uow UnitOfWork, request *models.ApprovalRequest) error {
	data, ok := request.Data.(*models.InvestmentIncomeData)
	if !ok {
		return payloadMismatch(request)
	}

	investment, err := activeInvestment(ctx, uow, request.FamilyID, data.InvestmentID)
	if err != nil {
		return err
	}

	var income decimal.Decimal
	if data.Amount != nil {
		income = *data.Amount
	} else {
		valuation, err := uow.InvestmentRepository().GetValuation(ctx, investment.ID)
		if err != nil {
			return err
		}
		income = data.CurrentValue.Sub(valuation.CurrentPrincipal).Sub(valuation.TotalIncome)
	}

	entry := &models.InvestmentIncome{
		InvestmentID: investment.ID,
		Amount:       income,
		IncomeDate:   s.dateOrNow(data.IncomeDate),
		Note:         optionalString(data.Note),
	}
	if err := uow.InvestmentRepository().AddIncome(ctx, entry); err != nil {
		return err
	}

	return RecordTransaction(ctx, uow, &models.Transaction{
		FamilyID:      request.FamilyID,
		UserID:        &request.RequesterID,
		Type:          models.TransactionTypeIncome,
		Amount:        income,
		Description:   fmt.Sprintf("Investment income: %s %s", investment.Name, income.StringFixed(2)),
		ReferenceID:   &entry.ID,
		ReferenceType: referenceType(models.ReferenceTypeInvestmentIncome),
	})
}

func (s *approvalService) executeInvestmentIncrease(ctx context.Context, uow UnitOfWork, request *models.ApprovalRequest) error {
	data, ok := request.Data.(*models.InvestmentIncreaseData)
	if !ok {
		return payloadMismatch(request)
	}

	investment, err := activeInvestment(ctx, uow, request.FamilyID, data.InvestmentID)
	if err != nil {
		return err
	}

	if err := requireBalance(ctx, uow, request.FamilyID, data.Amount); err != nil {
		return err
	}

	operationDate := s.dateOrNow(data.OperationDate)
	position := &models.InvestmentPosition{
		InvestmentID:      investment.ID,
		Operation:         models.PositionOperationIncrease,
		Amount:            data.Amount,
		OperationDate:     operationDate,
		Note:              optionalString(data.Note),
		ApprovalRequestID: &request.ID,
	}
	if err := uow.InvestmentRepository().AddPosition(ctx, position); err != nil {
		return err
	}

	err = RecordTransaction(ctx, uow, &models.Transaction{
		FamilyID:      request.FamilyID,
		UserID:        &request.RequesterID,
		Type:          models.TransactionTypeWithdraw,
		Amount:        data.Amount.Neg(),
		Description:   fmt.Sprintf("Increase investment: %s", investment.Name),
		ReferenceID:   &investment.ID,
		ReferenceType: referenceType(models.ReferenceTypeInvestment),
	})
	if err != nil {
		return err
	}

	return RecordDeposit(ctx, uow, &models.Deposit{
		FamilyID:    request.FamilyID,
		UserID:      request.RequesterID,
		Amount:      data.Amount,
		DepositDate: operationDate,
		Note:        optionalString(fmt.Sprintf("Investment increase: %s", investment.Name)),
	})
}

// executeInvestmentDecrease returns principal to free cash and debits the requester's equity
func (s *approvalService) executeInvestmentDecrease(ctx context.Context, uow UnitOfWork, request *models.ApprovalRequest) error {
	data, ok := request.Data.(*models.InvestmentDecreaseData)
	if !ok {
		return payloadMismatch(request)
	}

	investment, err := activeInvestment(ctx, uow, request.FamilyID, data.InvestmentID)
	if err != nil {
		return err
	}

	valuation, err := uow.InvestmentRepository().GetValuation(ctx, investment.ID)
	if err != nil {
		return err
	}
	if data.Amount.GreaterThan(valuation.CurrentPrincipal) {
		return fmt.Errorf("decrease of %s exceeds current principal %s", data.Amount.StringFixed(2), valuation.CurrentPrincipal.StringFixed(2))
	}

	operationDate := s.dateOrNow(data.OperationDate)
	position := &models.InvestmentPosition{
		InvestmentID:      investment.ID,
		Operation:         models.PositionOperationDecrease,
		Amount:            data.Amount.Neg(),
		OperationDate:     operationDate,
		Note:              optionalString(data.Note),
		ApprovalRequestID: &request.ID,
	}
	if err := uow.InvestmentRepository().AddPosition(ctx, position); err != nil {
		return err
	}

	err = RecordTransaction(ctx, uow, &models.Transaction{
		FamilyID:      request.FamilyID,
		UserID:        &request.RequesterID,
		Type:          models.TransactionTypeIncome,
		Amount:        data.Amount,
		Description:   fmt.Sprintf("Decrease investment: %s", investment.Name),
		ReferenceID:   &investment.ID,
		ReferenceType: referenceType(models.ReferenceTypeInvestment),
	})
	if err != nil {
		return err
	}

	return RecordDeposit(ctx, uow, &models.Deposit{
		FamilyID:    request.FamilyID,
		UserID:      request.RequesterID,
		Amount:      data.Amount.Neg(),
		DepositDate: operationDate,
		Note:        optionalString(fmt.Sprintf("Investment decrease: %s", investment.Name)),
	})
}

func (s *approvalService) executeInvestmentDelete(ctx context.Context, uow UnitOfWork, request *models.ApprovalRequest) error {
	data, ok := request.Data.(*models.InvestmentDeleteData)
	if !ok {
		return payloadMismatch(request)
	}

	investment, err := uow.InvestmentRepository().GetByID(ctx, data.InvestmentID)
	if err != nil {
		return err
	}
	if investment == nil || investment.FamilyID != request.FamilyID {
		return fmt.Errorf("investment %d not found", data.InvestmentID)
	}
	if investment.IsDeleted {
		return nil
	}

	return uow.InvestmentRepository().SoftDelete(ctx, investment.ID, s.now())
}

// executeMemberJoin adds the joining user. Joining twice is a no-op.
func (s *approvalService) executeMemberJoin(ctx context.Context, uow UnitOfWork, request *models.ApprovalRequest) error {
	data, ok := request.Data.(*models.MemberJoinData)
	if !ok {
		return payloadMismatch(request)
	}

	existing, err := uow.FamilyMemberRepository().GetByUser(ctx, data.UserID)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.FamilyID == request.FamilyID {
			return nil
		}
		return fmt.Errorf("user %d already belongs to family %d", data.UserID, existing.FamilyID)
	}

	return uow.FamilyMemberRepository().Add(ctx, &models.FamilyMember{
		FamilyID: request.FamilyID,
		UserID:   data.UserID,
		Role:     models.MemberRoleMember,
	})
}

// executeMemberRemove deletes a member. Admins and absent users are left alone.
func (s *approvalService) executeMemberRemove(ctx context.Context, uow UnitOfWork, request *models.ApprovalRequest) error {
	data, ok := request.Data.(*models.MemberRemoveData)
	if !ok {
		return payloadMismatch(request)
	}

	member, err := uow.FamilyMemberRepository().Get(ctx, request.FamilyID, data.UserID)
	if err != nil {
		return err
	}
	if member == nil || member.IsAdmin() {
		log.WithFields(log.Fields{
			"requestID": request.ID,
			"userID":    data.UserID,
		}).Info("Member removal skipped, user absent or admin")
		return nil
	}

	return uow.FamilyMemberRepository().Remove(ctx, request.FamilyID, data.UserID)
}

// executeDividendClaim settles one member's share. Reinvesting keeps the cash in the
// pool and credits equity; withdrawing pays the share out of free cash.
func (s *approvalService) executeDividendClaim(ctx context.Context, uow UnitOfWork, request *models.ApprovalRequest) error {
	data, ok := request.Data.(*models.DividendClaimData)
	if !ok {
		return payloadMismatch(request)
	}

	dividend, err := uow.DividendRepository().GetByIDForUpdate(ctx, data.DividendID)
	if err != nil {
		return err
	}
	if dividend == nil || dividend.FamilyID != request.FamilyID {
		return fmt.Errorf("dividend %d not found", data.DividendID)
	}
	if dividend.Status != models.DividendStatusApproved {
		return fmt.Errorf("dividend %d is %s", dividend.ID, dividend.Status)
	}

	claim, err := uow.DividendRepository().GetClaim(ctx, data.ClaimID)
	if err != nil {
		return err
	}
	if claim == nil || claim.DividendID != dividend.ID {
		return fmt.Errorf("dividend claim %d not found", data.ClaimID)
	}
	if !claim.IsPending() {
		return nil
	}

	now := s.now()
	reinvest := data.WantsReinvest()
	claim.Reinvest = &reinvest
	claim.ProcessedAt = &now

	if reinvest {
		deposit := &models.Deposit{
			FamilyID:    request.FamilyID,
			UserID:      claim.UserID,
			Amount:      claim.Amount,
			DepositDate: now,
			Note:        optionalString(fmt.Sprintf("Dividend %d reinvested", dividend.ID)),
		}
		if err := RecordDeposit(ctx, uow, deposit); err != nil {
			return err
		}
		claim.DepositID = &deposit.ID
		claim.Status = models.DividendClaimStatusReinvested
	} else {
		err := RecordTransaction(ctx, uow, &models.Transaction{
			FamilyID:      request.FamilyID,
			UserID:        &claim.UserID,
			Type:          models.TransactionTypeDividend,
			Amount:        claim.Amount.Neg(),
			Description:   fmt.Sprintf("Dividend %d withdrawn", dividend.ID),
			ReferenceID:   &dividend.ID,
			ReferenceType: referenceType(models.ReferenceTypeDividend),
		})
		if err != nil {
			return err
		}
		claim.Status = models.DividendClaimStatusWithdrawn
	}

	if err := uow.DividendRepository().UpdateClaim(ctx, claim); err != nil {
		return err
	}

	remaining, err := uow.DividendRepository().CountPendingClaims(ctx, dividend.ID)
	if err != nil {
		return err
	}
	if remaining == 0 {
		return uow.DividendRepository().UpdateStatus(ctx, dividend.ID, models.DividendStatusCompleted, now)
	}

	return nil
}

// activeInvestment loads an investment of the household that still accepts position changes
func activeInvestment(ctx context.Context, uow UnitOfWork, familyID, investmentID int64) (*models.Investment, error) {
	investment, err := uow.InvestmentRepository().GetByID(ctx, investmentID)
	if err != nil {
		return nil, err
	}
	if investment == nil || investment.FamilyID != familyID || investment.IsDeleted {
		return nil, fmt.Errorf("investment %d not found", investmentID)
	}
	return investment, nil
}

// requireBalance fails when free cash cannot cover amount
func requireBalance(ctx context.Context, uow UnitOfWork, familyID int64, amount decimal.Decimal) error {
	balance, err := uow.TransactionRepository().GetLatestBalance(ctx, familyID)
	if err != nil {
		return err
	}
	if balance.LessThan(amount) {
		return fmt.Errorf("insufficient balance: have %s, need %s", balance.StringFixed(2), amount.StringFixed(2))
	}
	return nil
}

func payloadMismatch(request *models.ApprovalRequest) error {
	return fmt.Errorf("request %d carries %T, not a %s payload", request.ID, request.Data, request.Type)
}

func (s *approvalService) dateOrNow(t *time.Time) time.Time {
	if t != nil {
		return *t
	}
	return s.now()
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
