package service

import (
	"context"
	"time"

	"goldennest/events"
	"goldennest/models"

	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create inserts a user and fills ID and CreatedAt
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user, nil when absent
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByUsername retrieves a user by unique username, nil when absent
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// FamilyRepository defines the interface for household data access
type FamilyRepository interface {
	Create(ctx context.Context, family *models.Family) error
	GetByID(ctx context.Context, id int64) (*models.Family, error)

	// GetByIDForUpdate locks the household row. Every ledger append takes
	// this lock so balance_after chains stay gap free.
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Family, error)

	GetByInviteCode(ctx context.Context, inviteCode string) (*models.Family, error)
	UpdateSavingsTarget(ctx context.Context, id int64, target decimal.Decimal) error
}

// FamilyMemberRepository defines the interface for household membership
type FamilyMemberRepository interface {
	Add(ctx context.Context, member *models.FamilyMember) error
	Get(ctx context.Context, familyID, userID int64) (*models.FamilyMember, error)

	// GetByUser returns the membership of a user in any household
	GetByUser(ctx context.Context, userID int64) (*models.FamilyMember, error)

	// ListByFamily returns members ordered by join time, with nicknames
	ListByFamily(ctx context.Context, familyID int64) ([]*models.FamilyMember, error)

	CountByFamily(ctx context.Context, familyID int64) (int, error)
	Remove(ctx context.Context, familyID, userID int64) error
}

// DepositRepository defines the interface for equity records
type DepositRepository interface {
	Create(ctx context.Context, deposit *models.Deposit) error

	// SumByUser folds all deposits of a household per user
	SumByUser(ctx context.Context, familyID int64) (map[int64]decimal.Decimal, error)

	ListByFamily(ctx context.Context, familyID int64, limit int) ([]*models.Deposit, error)
}

// TransactionRepository defines the interface for the cash ledger
type TransactionRepository interface {
	Create(ctx context.Context, transaction *models.Transaction) error

	// GetLatestBalance returns balance_after of the newest transaction, zero when none exist
	GetLatestBalance(ctx context.Context, familyID int64) (decimal.Decimal, error)

	// ListByFamily returns transactions oldest first
	ListByFamily(ctx context.Context, familyID int64, limit int) ([]*models.Transaction, error)
}

// ApprovalRequestRepository defines the interface for approval requests
type ApprovalRequestRepository interface {
	Create(ctx context.Context, request *models.ApprovalRequest) error
	GetByID(ctx context.Context, id int64) (*models.ApprovalRequest, error)

	// GetByIDForUpdate reads the request under a row-level exclusive lock
	GetByIDForUpdate(ctx context.Context, id int64) (*models.ApprovalRequest, error)

	UpdateStatus(ctx context.Context, id int64, status models.RequestStatus) error
	UpdateData(ctx context.Context, id int64, data models.RequestData) error
	MarkExecuted(ctx context.Context, id int64, executedAt time.Time) error

	// ListByFamily returns newest first, optionally filtered by status
	ListByFamily(ctx context.Context, familyID int64, status *models.RequestStatus, limit int) ([]*models.ApprovalRequest, error)

	// ExistsPending checks for a pending request of a type, optionally scoped to a requester or a target user
	ExistsPending(ctx context.Context, familyID int64, requestType models.RequestType, requesterID, targetUserID *int64) (bool, error)
}

// ApprovalRecordRepository defines the interface for votes
type ApprovalRecordRepository interface {
	// Create inserts a vote. A second vote by the same approver fails with ErrDuplicateVote.
	Create(ctx context.Context, record *models.ApprovalRecord) error

	ListByRequest(ctx context.Context, requestID int64) ([]*models.ApprovalRecord, error)
	GetByApprover(ctx context.Context, requestID, approverID int64) (*models.ApprovalRecord, error)
}

// InvestmentRepository defines the interface for investment products
type InvestmentRepository interface {
	Create(ctx context.Context, investment *models.Investment) error
	GetByID(ctx context.Context, id int64) (*models.Investment, error)
	Update(ctx context.Context, investment *models.Investment) error
	SoftDelete(ctx context.Context, id int64, deletedAt time.Time) error

	AddPosition(ctx context.Context, position *models.InvestmentPosition) error
	AddIncome(ctx context.Context, income *models.InvestmentIncome) error

	// GetValuation folds positions and income of one investment
	GetValuation(ctx context.Context, investmentID int64) (*models.InvestmentValuation, error)

	// ListValuations folds every active, non-deleted investment of a household
	ListValuations(ctx context.Context, familyID int64) ([]*models.InvestmentValuation, error)

	// TotalIncome sums income over every non-deleted investment of a household
	TotalIncome(ctx context.Context, familyID int64) (decimal.Decimal, error)
}

// DividendRepository defines the interface for dividends and member claims
type DividendRepository interface {
	Create(ctx context.Context, dividend *models.Dividend) error
	GetByID(ctx context.Context, id int64) (*models.Dividend, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Dividend, error)
	UpdateStatus(ctx context.Context, id int64, status models.DividendStatus, at time.Time) error

	CreateClaim(ctx context.Context, claim *models.DividendClaim) error
	GetClaim(ctx context.Context, id int64) (*models.DividendClaim, error)
	UpdateClaim(ctx context.Context, claim *models.DividendClaim) error
	SetClaimRequest(ctx context.Context, claimID, requestID int64) error
	CountPendingClaims(ctx context.Context, dividendID int64) (int, error)

	// FrozenAmount is the full amount of voting dividends plus pending claims of approved ones
	FrozenAmount(ctx context.Context, familyID int64) (decimal.Decimal, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// MetricsRecorder counts execution failures. Successful transitions are counted
// from committed events, a failed execution never produces one.
type MetricsRecorder interface {
	RecordExecutionFailure(ctx context.Context, requestType models.RequestType)
}

// CreateRequestParams describes a new approval request
type CreateRequestParams struct {
	FamilyID     int64
	RequesterID  int64
	TargetUserID *int64
	Type         models.RequestType
	Title        string
	Description  string
	Amount       decimal.Decimal
	Data         models.RequestData
}

// ApprovalService defines the interface for the consensus workflow
type ApprovalService interface {
	// CreateRequest stores a pending request. In a single-member household the
	// requester's approval is recorded at once and the request executes.
	CreateRequest(ctx context.Context, params CreateRequestParams) (*models.ApprovalRequest, error)

	// CastVote records one vote and applies the quorum rule of the request type
	CastVote(ctx context.Context, requestID, approverID int64, approved bool, comment string) (*models.ApprovalRequest, error)

	// CancelRequest withdraws a pending request on behalf of its requester
	CancelRequest(ctx context.Context, requestID, requesterID int64) (*models.ApprovalRequest, error)

	// GetRequestView returns the request with its votes and outstanding approvers
	GetRequestView(ctx context.Context, requestID int64) (*models.ApprovalRequestView, error)

	ListRequests(ctx context.Context, familyID int64, status *models.RequestStatus, limit int) ([]*models.ApprovalRequest, error)

	// ListPendingForApprover returns pending requests still waiting on userID
	ListPendingForApprover(ctx context.Context, familyID, userID int64) ([]*models.ApprovalRequest, error)

	// ClaimDividend records the target member's reinvest or withdraw decision as their vote
	ClaimDividend(ctx context.Context, requestID, userID int64, reinvest bool) (*models.ApprovalRequest, error)

	// Execute runs the side effects of an approved request at most once
	Execute(ctx context.Context, requestID int64) error
}

// EquityService defines the interface for ownership calculations
type EquityService interface {
	GetEquitySummary(ctx context.Context, familyID int64) (*models.EquitySummary, error)
}

// FamilyService defines the interface for households and their members
type FamilyService interface {
	RegisterUser(ctx context.Context, username, nickname string) (*models.User, error)
	CreateFamily(ctx context.Context, creatorID int64, name string, savingsTarget *decimal.Decimal) (*models.Family, error)
	GetFamily(ctx context.Context, familyID int64) (*models.Family, error)
	GetFamilyByInviteCode(ctx context.Context, inviteCode string) (*models.Family, error)
	ListMembers(ctx context.Context, familyID int64) ([]*models.FamilyMember, error)
	UpdateSavingsTarget(ctx context.Context, familyID, userID int64, target decimal.Decimal) (*models.Family, error)

	// RequestToJoin files a member_join request for the household behind inviteCode
	RequestToJoin(ctx context.Context, inviteCode string, userID int64) (*models.ApprovalRequest, error)
}

// DividendService defines the interface for dividend payouts
type DividendService interface {
	// ProposeDividend records a dividend in voting state; its amount is frozen until resolved
	ProposeDividend(ctx context.Context, familyID, creatorID int64, dividendType models.DividendType, amount decimal.Decimal) (*models.Dividend, error)

	// ResolveDividend applies the outcome of the household's dividend vote on behalf of an
	// admin. Approval creates one claim and one dividend_claim request per member with equity.
	ResolveDividend(ctx context.Context, dividendID, resolverID int64, approved bool) (*models.Dividend, error)

	GetDividend(ctx context.Context, dividendID int64) (*models.Dividend, error)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes queued events
	Commit() error

	// Rollback rolls back the transaction and discards queued events
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	FamilyRepository() FamilyRepository
	FamilyMemberRepository() FamilyMemberRepository
	DepositRepository() DepositRepository
	TransactionRepository() TransactionRepository
	ApprovalRequestRepository() ApprovalRequestRepository
	ApprovalRecordRepository() ApprovalRecordRepository
	InvestmentRepository() InvestmentRepository
	DividendRepository() DividendRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
