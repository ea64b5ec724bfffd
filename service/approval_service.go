package service

import (
	"context"
	"fmt"
	"time"

	"goldennest/events"
	"goldennest/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	autoApproveComment  = "single-member auto approve"
	defaultRequestLimit = 50
	maxRequestLimit     = 200
)

type approvalService struct {
	uowFactory UnitOfWorkFactory
	metrics    MetricsRecorder
	handlers   map[models.RequestType]ExecutionHandler
	now        func() time.Time
}

// NewApprovalService creates a new approval workflow service. A nil metrics recorder disables failure counters.
func NewApprovalService(uowFactory UnitOfWorkFactory, metrics MetricsRecorder) ApprovalService {
	return newApprovalService(uowFactory, metrics)
}

func newApprovalService(uowFactory UnitOfWorkFactory, metrics MetricsRecorder) *approvalService {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	s := &approvalService{
		uowFactory: uowFactory,
		metrics:    metrics,
		now:        time.Now,
	}
	s.handlers = s.defaultHandlers()
	return s
}

type noopMetrics struct{}

func (noopMetrics) RecordExecutionFailure(context.Context, models.RequestType) {}

// CreateRequest stores a new request and applies the single-member bootstrap rule
func (s *approvalService) CreateRequest(ctx context.Context, params CreateRequestParams) (*models.ApprovalRequest, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	request, err := s.createRequest(ctx, uow, params)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return request, nil
}

// createRequest runs inside the caller's unit of work so other services can file
// requests atomically with their own writes
func (s *approvalService) createRequest(ctx context.Context, uow UnitOfWork, params CreateRequestParams) (*models.ApprovalRequest, error) {
	if err := validateCreateParams(params); err != nil {
		return nil, err
	}

	family, err := uow.FamilyRepository().GetByID(ctx, params.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, notFoundf("family %d", params.FamilyID)
	}

	members, err := uow.FamilyMemberRepository().ListByFamily(ctx, family.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	targetUserID, err := s.checkRequester(ctx, uow, params, members)
	if err != nil {
		return nil, err
	}

	request := &models.ApprovalRequest{
		FamilyID:     family.ID,
		RequesterID:  params.RequesterID,
		TargetUserID: targetUserID,
		Type:         params.Type,
		Title:        params.Title,
		Description:  params.Description,
		Amount:       params.Amount,
		Data:         params.Data,
		Status:       models.RequestStatusPending,
	}
	if request.Amount.IsZero() {
		request.Amount = payloadAmount(params.Data)
	}

	if err := uow.ApprovalRequestRepository().Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create approval request: %w", err)
	}

	// A household with a single member approves every request on creation
	autoApprove := len(members) == 1
	if autoApprove {
		comment := autoApproveComment
		record := &models.ApprovalRecord{
			RequestID:  request.ID,
			ApproverID: params.RequesterID,
			IsApproved: true,
			Comment:    &comment,
		}
		if err := uow.ApprovalRecordRepository().Create(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to record auto approval: %w", err)
		}
		if err := uow.ApprovalRequestRepository().UpdateStatus(ctx, request.ID, models.RequestStatusApproved); err != nil {
			return nil, fmt.Errorf("failed to approve request: %w", err)
		}
		if err := s.executeRequest(ctx, uow, request.ID); err != nil {
			return nil, err
		}
	}

	uow.EventBus().Publish(events.ApprovalRequestCreatedEvent{
		RequestID:    request.ID,
		FamilyID:     request.FamilyID,
		RequesterID:  request.RequesterID,
		RequestType:  request.Type,
		Title:        request.Title,
		Amount:       request.Amount,
		MemberCount:  len(members),
		AutoApproved: autoApprove,
	})

	log.WithFields(log.Fields{
		"requestID":    request.ID,
		"familyID":     request.FamilyID,
		"requesterID":  request.RequesterID,
		"requestType":  request.Type,
		"autoApproved": autoApprove,
	}).Info("Approval request created")

	if autoApprove {
		return s.reload(ctx, uow, request.ID)
	}
	return request, nil
}

// checkRequester enforces who may file which request and returns the target user, if any
func (s *approvalService) checkRequester(ctx context.Context, uow UnitOfWork, params CreateRequestParams, members []*models.FamilyMember) (*int64, error) {
	isMember := findMember(members, params.RequesterID) != nil

	switch data := params.Data.(type) {
	case *models.MemberJoinData:
		if data.UserID != params.RequesterID {
			return nil, validationf("join requests must be filed by the joining user")
		}
		existing, err := uow.FamilyMemberRepository().GetByUser(ctx, params.RequesterID)
		if err != nil {
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}
		if existing != nil {
			return nil, invalidStatef("user %d already belongs to a family", params.RequesterID)
		}
		pending, err := uow.ApprovalRequestRepository().ExistsPending(ctx, params.FamilyID, models.RequestTypeMemberJoin, &params.RequesterID, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to check pending join requests: %w", err)
		}
		if pending {
			return nil, invalidStatef("user %d already has a pending join request", params.RequesterID)
		}
		return &data.UserID, nil

	case *models.MemberRemoveData:
		if !isMember {
			return nil, forbiddenf("user %d is not a member of family %d", params.RequesterID, params.FamilyID)
		}
		target := findMember(members, data.UserID)
		if target == nil {
			return nil, notFoundf("member %d", data.UserID)
		}
		if target.UserID == params.RequesterID {
			return nil, validationf("members may not request their own removal")
		}
		if target.IsAdmin() {
			return nil, validationf("admins cannot be removed")
		}
		pending, err := uow.ApprovalRequestRepository().ExistsPending(ctx, params.FamilyID, models.RequestTypeMemberRemove, nil, &data.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to check pending removal requests: %w", err)
		}
		if pending {
			return nil, invalidStatef("member %d already has a pending removal request", data.UserID)
		}
		return &data.UserID, nil

	case *models.DividendClaimData:
		if params.TargetUserID == nil || findMember(members, *params.TargetUserID) == nil {
			return nil, validationf("dividend claims must target a member")
		}
		return params.TargetUserID, nil
	}

	if !isMember {
		return nil, forbiddenf("user %d is not a member of family %d", params.RequesterID, params.FamilyID)
	}

	if expense, ok := params.Data.(*models.ExpenseData); ok {
		for userID := range expense.DeductionRatios {
			if findMember(members, userID) == nil {
				return nil, validationf("deduction ratio names user %d outside the family", userID)
			}
		}
	}
	if deposit, ok := params.Data.(*models.DepositData); ok && deposit.UserID != 0 {
		if findMember(members, deposit.UserID) == nil {
			return nil, validationf("deposit names user %d outside the family", deposit.UserID)
		}
	}

	return params.TargetUserID, nil
}

// CastVote records a vote and applies the quorum rule. The request row is locked
// before any check or insert so that concurrent votes serialize on it.
func (s *approvalService) CastVote(ctx context.Context, requestID, approverID int64, approved bool, comment string) (*models.ApprovalRequest, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	request, err := s.castVote(ctx, uow, requestID, approverID, approved, comment)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return request, nil
}

func (s *approvalService) castVote(ctx context.Context, uow UnitOfWork, requestID, approverID int64, approved bool, comment string) (*models.ApprovalRequest, error) {
	request, err := uow.ApprovalRequestRepository().GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock approval request: %w", err)
	}
	if request == nil {
		return nil, notFoundf("approval request %d", requestID)
	}
	if !request.IsPending() {
		return nil, invalidStatef("request %d is already %s", request.ID, request.Status)
	}

	member, err := uow.FamilyMemberRepository().Get(ctx, request.FamilyID, approverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get approver membership: %w", err)
	}
	if member == nil {
		return nil, forbiddenf("user %d is not a member of family %d", approverID, request.FamilyID)
	}

	memberCount, err := uow.FamilyMemberRepository().CountByFamily(ctx, request.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}
	if err := checkVoteAllowed(request, member, memberCount); err != nil {
		return nil, err
	}

	existing, err := uow.ApprovalRecordRepository().GetByApprover(ctx, request.ID, approverID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing vote: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("user %d already voted on request %d: %w", approverID, request.ID, ErrDuplicateVote)
	}

	record := &models.ApprovalRecord{
		RequestID:  request.ID,
		ApproverID: approverID,
		IsApproved: approved,
		Comment:    optionalString(comment),
	}
	if err := uow.ApprovalRecordRepository().Create(ctx, record); err != nil {
		return nil, err
	}

	return s.resolve(ctx, uow, request, approverID, approved, comment)
}

// resolve re-reads every vote and member of a locked pending request and applies the outcome
func (s *approvalService) resolve(ctx context.Context, uow UnitOfWork, request *models.ApprovalRequest, approverID int64, approved bool, comment string) (*models.ApprovalRequest, error) {
	members, err := uow.FamilyMemberRepository().ListByFamily(ctx, request.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	records, err := uow.ApprovalRecordRepository().ListByRequest(ctx, request.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}

	uow.EventBus().Publish(events.ApprovalVoteCastEvent{
		RequestID:   request.ID,
		FamilyID:    request.FamilyID,
		ApproverID:  approverID,
		Approved:    approved,
		Comment:     comment,
		Title:       request.Title,
		MemberCount: len(members),
	})

	outcome := evaluateQuorum(request, members, records)

	log.WithFields(log.Fields{
		"requestID":  request.ID,
		"approverID": approverID,
		"approved":   approved,
		"votes":      len(records),
		"outcome":    outcome,
	}).Info("Vote recorded")

	if outcome == models.RequestStatusPending {
		return request, nil
	}

	if err := uow.ApprovalRequestRepository().UpdateStatus(ctx, request.ID, outcome); err != nil {
		return nil, fmt.Errorf("failed to update request status: %w", err)
	}

	if outcome == models.RequestStatusApproved {
		if err := s.executeRequest(ctx, uow, request.ID); err != nil {
			return nil, err
		}
	}

	uow.EventBus().Publish(events.ApprovalRequestCompletedEvent{
		RequestID:   request.ID,
		FamilyID:    request.FamilyID,
		RequesterID: request.RequesterID,
		RequestType: request.Type,
		Title:       request.Title,
		Status:      outcome,
		MemberCount: len(members),
	})

	return s.reload(ctx, uow, request.ID)
}

// CancelRequest withdraws a pending request
func (s *approvalService) CancelRequest(ctx context.Context, requestID, requesterID int64) (*models.ApprovalRequest, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	request, err := uow.ApprovalRequestRepository().GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock approval request: %w", err)
	}
	if request == nil {
		return nil, notFoundf("approval request %d", requestID)
	}
	if request.RequesterID != requesterID {
		return nil, forbiddenf("only the requester may cancel request %d", request.ID)
	}
	if !request.CanBeCancelledBy(requesterID) {
		return nil, invalidStatef("request %d is already %s", request.ID, request.Status)
	}

	if err := uow.ApprovalRequestRepository().UpdateStatus(ctx, request.ID, models.RequestStatusCancelled); err != nil {
		return nil, fmt.Errorf("failed to cancel request: %w", err)
	}

	memberCount, err := uow.FamilyMemberRepository().CountByFamily(ctx, request.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}

	uow.EventBus().Publish(events.ApprovalRequestCancelledEvent{
		RequestID:   request.ID,
		FamilyID:    request.FamilyID,
		RequesterID: request.RequesterID,
		Title:       request.Title,
		MemberCount: memberCount,
	})

	request.Status = models.RequestStatusCancelled

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"requestID":   request.ID,
		"requesterID": requesterID,
	}).Info("Approval request cancelled")

	return request, nil
}

// GetRequestView returns a request with its votes and outstanding approvers
func (s *approvalService) GetRequestView(ctx context.Context, requestID int64) (*models.ApprovalRequestView, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	request, err := uow.ApprovalRequestRepository().GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get approval request: %w", err)
	}
	if request == nil {
		return nil, notFoundf("approval request %d", requestID)
	}

	members, err := uow.FamilyMemberRepository().ListByFamily(ctx, request.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	records, err := uow.ApprovalRecordRepository().ListByRequest(ctx, request.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}

	view := &models.ApprovalRequestView{
		Request:          request,
		Records:          records,
		PendingApprovers: pendingApprovers(request, members, records),
	}
	if view.Records == nil {
		view.Records = []*models.ApprovalRecord{}
	}
	for _, record := range records {
		if record.IsApproved {
			view.ApprovedCount++
		} else {
			view.RejectedCount++
		}
	}

	if requester := findMember(members, request.RequesterID); requester != nil {
		view.RequesterName = requester.Nickname
	} else {
		user, err := uow.UserRepository().GetByID(ctx, request.RequesterID)
		if err != nil {
			return nil, fmt.Errorf("failed to get requester: %w", err)
		}
		if user != nil {
			view.RequesterName = user.DisplayName()
		}
	}

	return view, nil
}

// ListRequests returns requests of a household, newest first
func (s *approvalService) ListRequests(ctx context.Context, familyID int64, status *models.RequestStatus, limit int) ([]*models.ApprovalRequest, error) {
	if status != nil && !status.IsValid() {
		return nil, validationf("unknown status %q", *status)
	}
	if limit <= 0 {
		limit = defaultRequestLimit
	}
	if limit > maxRequestLimit {
		limit = maxRequestLimit
	}

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

	requests, err := uow.ApprovalRequestRepository().ListByFamily(ctx, familyID, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list approval requests: %w", err)
	}

	return requests, nil
}

// ListPendingForApprover returns pending requests that still wait on userID
func (s *approvalService) ListPendingForApprover(ctx context.Context, familyID, userID int64) ([]*models.ApprovalRequest, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	members, err := uow.FamilyMemberRepository().ListByFamily(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	if findMember(members, userID) == nil {
		return nil, forbiddenf("user %d is not a member of family %d", userID, familyID)
	}

	status := models.RequestStatusPending
	requests, err := uow.ApprovalRequestRepository().ListByFamily(ctx, familyID, &status, maxRequestLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}

	waiting := []*models.ApprovalRequest{}
	for _, request := range requests {
		records, err := uow.ApprovalRecordRepository().ListByRequest(ctx, request.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list votes: %w", err)
		}
		for _, pendingID := range pendingApprovers(request, members, records) {
			if pendingID == userID {
				waiting = append(waiting, request)
				break
			}
		}
	}

	return waiting, nil
}

// ClaimDividend stores the claimant's reinvest decision and records it as their approval
func (s *approvalService) ClaimDividend(ctx context.Context, requestID, userID int64, reinvest bool) (*models.ApprovalRequest, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	request, err := uow.ApprovalRequestRepository().GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock approval request: %w", err)
	}
	if request == nil {
		return nil, notFoundf("approval request %d", requestID)
	}
	if request.Type != models.RequestTypeDividendClaim {
		return nil, validationf("request %d is not a dividend claim", request.ID)
	}
	if request.TargetUserID == nil || *request.TargetUserID != userID {
		return nil, forbiddenf("only the claimant may settle request %d", request.ID)
	}
	if !request.IsPending() {
		return nil, invalidStatef("request %d is already %s", request.ID, request.Status)
	}

	data, ok := request.Data.(*models.DividendClaimData)
	if !ok {
		return nil, payloadMismatch(request)
	}
	data.Reinvest = &reinvest
	if err := uow.ApprovalRequestRepository().UpdateData(ctx, request.ID, data); err != nil {
		return nil, fmt.Errorf("failed to store dividend decision: %w", err)
	}

	comment := "withdraw"
	if reinvest {
		comment = "reinvest"
	}

	existing, err := uow.ApprovalRecordRepository().GetByApprover(ctx, request.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing vote: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("user %d already settled request %d: %w", userID, request.ID, ErrDuplicateVote)
	}

	record := &models.ApprovalRecord{
		RequestID:  request.ID,
		ApproverID: userID,
		IsApproved: true,
		Comment:    &comment,
	}
	if err := uow.ApprovalRecordRepository().Create(ctx, record); err != nil {
		return nil, err
	}

	result, err := s.resolve(ctx, uow, request, userID, true, comment)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

func (s *approvalService) reload(ctx context.Context, uow UnitOfWork, requestID int64) (*models.ApprovalRequest, error) {
	request, err := uow.ApprovalRequestRepository().GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload approval request: %w", err)
	}
	if request == nil {
		return nil, notFoundf("approval request %d", requestID)
	}
	return request, nil
}

func validateCreateParams(params CreateRequestParams) error {
	if !params.Type.IsValid() {
		return validationf("unknown request type %q", params.Type)
	}
	if params.Data == nil {
		return validationf("request data is required")
	}
	if params.Data.RequestType() != params.Type {
		return validationf("request data is %s, request type is %s", params.Data.RequestType(), params.Type)
	}
	if params.Title == "" {
		return validationf("title is required")
	}
	if err := params.Data.Validate(); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), ErrValidation)
	}
	return nil
}

// payloadAmount is the money a request moves, used when the caller gives none
func payloadAmount(data models.RequestData) decimal.Decimal {
	switch d := data.(type) {
	case *models.DepositData:
		return d.Amount
	case *models.ExpenseData:
		return d.Amount
	case *models.InvestmentCreateData:
		return d.Principal
	case *models.InvestmentIncomeData:
		if d.Amount != nil {
			return *d.Amount
		}
	case *models.InvestmentIncreaseData:
		return d.Amount
	case *models.InvestmentDecreaseData:
		return d.Amount
	}
	return decimal.Zero
}

func findMember(members []*models.FamilyMember, userID int64) *models.FamilyMember {
	for _, member := range members {
		if member.UserID == userID {
			return member
		}
	}
	return nil
}
