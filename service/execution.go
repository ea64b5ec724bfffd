package service

import (
	"context"
	"fmt"

	"goldennest/events"
	"goldennest/models"

	log "github.com/sirupsen/logrus"
)

// ExecutionHandler applies the side effects of one approved request type.
// It runs inside the caller's unit of work with the request and household rows locked.
type ExecutionHandler func(ctx context.Context, uow UnitOfWork, request *models.ApprovalRequest) error

// defaultHandlers is the dispatch table of every executable request type
func (s *approvalService) defaultHandlers() map[models.RequestType]ExecutionHandler {
	return map[models.RequestType]ExecutionHandler{
		models.RequestTypeDeposit:            s.executeDeposit,
		models.RequestTypeExpense:            s.executeExpense,
		models.RequestTypeInvestmentCreate:   s.executeInvestmentCreate,
		models.RequestTypeInvestmentUpdate:   s.executeInvestmentUpdate,
		models.RequestTypeInvestmentIncome:   s.executeInvestmentIncome,
		models.RequestTypeInvestmentIncrease: s.executeInvestmentIncrease,
		models.RequestTypeInvestmentDecrease: s.executeInvestmentDecrease,
		models.RequestTypeInvestmentDelete:   s.executeInvestmentDelete,
		models.RequestTypeMemberJoin:         s.executeMemberJoin,
		models.RequestTypeMemberRemove:       s.executeMemberRemove,
		models.RequestTypeDividendClaim:      s.executeDividendClaim,
	}
}

// Execute runs an approved request in its own unit of work
func (s *approvalService) Execute(ctx context.Context, requestID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := s.executeRequest(ctx, uow, requestID); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// executeRequest locks the request, returns early when it already ran, then
// locks the household and dispatches to the handler for the request type.
// Lock order is always request before household.
func (s *approvalService) executeRequest(ctx context.Context, uow UnitOfWork, requestID int64) error {
	request, err := uow.ApprovalRequestRepository().GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return fmt.Errorf("failed to lock approval request: %w", err)
	}
	if request == nil {
		return notFoundf("approval request %d", requestID)
	}

	if request.IsExecuted() {
		log.WithFields(log.Fields{
			"requestID":  request.ID,
			"executedAt": request.ExecutedAt,
		}).Debug("Approval request already executed, skipping")
		return nil
	}

	if request.Status != models.RequestStatusApproved {
		return invalidStatef("request %d is %s, only approved requests execute", request.ID, request.Status)
	}

	family, err := uow.FamilyRepository().GetByIDForUpdate(ctx, request.FamilyID)
	if err != nil {
		return fmt.Errorf("failed to lock family: %w", err)
	}
	if family == nil {
		return notFoundf("family %d", request.FamilyID)
	}

	handler, ok := s.handlers[request.Type]
	if !ok {
		return s.executionFailed(ctx, request, fmt.Errorf("no handler registered for %s", request.Type))
	}

	if err := handler(ctx, uow, request); err != nil {
		return s.executionFailed(ctx, request, err)
	}

	if err := uow.ApprovalRequestRepository().MarkExecuted(ctx, request.ID, s.now()); err != nil {
		return s.executionFailed(ctx, request, err)
	}

	uow.EventBus().Publish(events.ApprovalRequestExecutedEvent{
		RequestID:   request.ID,
		FamilyID:    request.FamilyID,
		RequesterID: request.RequesterID,
		RequestType: request.Type,
		Amount:      request.Amount,
	})

	log.WithFields(log.Fields{
		"requestID":   request.ID,
		"familyID":    request.FamilyID,
		"requestType": request.Type,
	}).Info("Approval request executed")

	return nil
}

func (s *approvalService) executionFailed(ctx context.Context, request *models.ApprovalRequest, cause error) error {
	s.metrics.RecordExecutionFailure(ctx, request.Type)

	log.WithFields(log.Fields{
		"requestID":   request.ID,
		"familyID":    request.FamilyID,
		"requestType": request.Type,
		"error":       cause,
	}).Error("Approval request execution failed")

	return &ExecutionError{
		RequestID:   request.ID,
		RequestType: request.Type,
		Cause:       cause,
	}
}
