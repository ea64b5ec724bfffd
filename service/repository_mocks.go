package service

import (
	"context"
	"time"

	"goldennest/events"
	"goldennest/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockFamilyRepository is a mock implementation of FamilyRepository
type MockFamilyRepository struct {
	mock.Mock
}

func (m *MockFamilyRepository) Create(ctx context.Context, family *models.Family) error {
	args := m.Called(ctx, family)
	return args.Error(0)
}

func (m *MockFamilyRepository) GetByID(ctx context.Context, id int64) (*models.Family, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Family), args.Error(1)
}

func (m *MockFamilyRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Family, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Family), args.Error(1)
}

func (m *MockFamilyRepository) GetByInviteCode(ctx context.Context, inviteCode string) (*models.Family, error) {
	args := m.Called(ctx, inviteCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Family), args.Error(1)
}

func (m *MockFamilyRepository) UpdateSavingsTarget(ctx context.Context, id int64, target decimal.Decimal) error {
	args := m.Called(ctx, id, target)
	return args.Error(0)
}

// MockFamilyMemberRepository is a mock implementation of FamilyMemberRepository
type MockFamilyMemberRepository struct {
	mock.Mock
}

func (m *MockFamilyMemberRepository) Add(ctx context.Context, member *models.FamilyMember) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockFamilyMemberRepository) Get(ctx context.Context, familyID, userID int64) (*models.FamilyMember, error) {
	args := m.Called(ctx, familyID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FamilyMember), args.Error(1)
}

func (m *MockFamilyMemberRepository) GetByUser(ctx context.Context, userID int64) (*models.FamilyMember, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FamilyMember), args.Error(1)
}

func (m *MockFamilyMemberRepository) ListByFamily(ctx context.Context, familyID int64) ([]*models.FamilyMember, error) {
	args := m.Called(ctx, familyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.FamilyMember), args.Error(1)
}

func (m *MockFamilyMemberRepository) CountByFamily(ctx context.Context, familyID int64) (int, error) {
	args := m.Called(ctx, familyID)
	return args.Int(0), args.Error(1)
}

func (m *MockFamilyMemberRepository) Remove(ctx context.Context, familyID, userID int64) error {
	args := m.Called(ctx, familyID, userID)
	return args.Error(0)
}

// MockDepositRepository is a mock implementation of DepositRepository
type MockDepositRepository struct {
	mock.Mock
}

func (m *MockDepositRepository) Create(ctx context.Context, deposit *models.Deposit) error {
	args := m.Called(ctx, deposit)
	return args.Error(0)
}

func (m *MockDepositRepository) SumByUser(ctx context.Context, familyID int64) (map[int64]decimal.Decimal, error) {
	args := m.Called(ctx, familyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]decimal.Decimal), args.Error(1)
}

func (m *MockDepositRepository) ListByFamily(ctx context.Context, familyID int64, limit int) ([]*models.Deposit, error) {
	args := m.Called(ctx, familyID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Deposit), args.Error(1)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	args := m.Called(ctx, transaction)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetLatestBalance(ctx context.Context, familyID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, familyID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockTransactionRepository) ListByFamily(ctx context.Context, familyID int64, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, familyID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

// MockApprovalRequestRepository is a mock implementation of ApprovalRequestRepository
type MockApprovalRequestRepository struct {
	mock.Mock
}

func (m *MockApprovalRequestRepository) Create(ctx context.Context, request *models.ApprovalRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockApprovalRequestRepository) GetByID(ctx context.Context, id int64) (*models.ApprovalRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalRequestRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.ApprovalRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalRequestRepository) UpdateStatus(ctx context.Context, id int64, status models.RequestStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockApprovalRequestRepository) UpdateData(ctx context.Context, id int64, data models.RequestData) error {
	args := m.Called(ctx, id, data)
	return args.Error(0)
}

func (m *MockApprovalRequestRepository) MarkExecuted(ctx context.Context, id int64, executedAt time.Time) error {
	args := m.Called(ctx, id, executedAt)
	return args.Error(0)
}

func (m *MockApprovalRequestRepository) ListByFamily(ctx context.Context, familyID int64, status *models.RequestStatus, limit int) ([]*models.ApprovalRequest, error) {
	args := m.Called(ctx, familyID, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalRequestRepository) ExistsPending(ctx context.Context, familyID int64, requestType models.RequestType, requesterID, targetUserID *int64) (bool, error) {
	args := m.Called(ctx, familyID, requestType, requesterID, targetUserID)
	return args.Bool(0), args.Error(1)
}

// MockApprovalRecordRepository is a mock implementation of ApprovalRecordRepository
type MockApprovalRecordRepository struct {
	mock.Mock
}

func (m *MockApprovalRecordRepository) Create(ctx context.Context, record *models.ApprovalRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockApprovalRecordRepository) ListByRequest(ctx context.Context, requestID int64) ([]*models.ApprovalRecord, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ApprovalRecord), args.Error(1)
}

func (m *MockApprovalRecordRepository) GetByApprover(ctx context.Context, requestID, approverID int64) (*models.ApprovalRecord, error) {
	args := m.Called(ctx, requestID, approverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalRecord), args.Error(1)
}

// MockInvestmentRepository is a mock implementation of InvestmentRepository
type MockInvestmentRepository struct {
	mock.Mock
}

func (m *MockInvestmentRepository) Create(ctx context.Context, investment *models.Investment) error {
	args := m.Called(ctx, investment)
	return args.Error(0)
}

func (m *MockInvestmentRepository) GetByID(ctx context.Context, id int64) (*models.Investment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Investment), args.Error(1)
}

func (m *MockInvestmentRepository) Update(ctx context.Context, investment *models.Investment) error {
	args := m.Called(ctx, investment)
	return args.Error(0)
}

func (m *MockInvestmentRepository) SoftDelete(ctx context.Context, id int64, deletedAt time.Time) error {
	args := m.Called(ctx, id, deletedAt)
	return args.Error(0)
}

func (m *MockInvestmentRepository) AddPosition(ctx context.Context, position *models.InvestmentPosition) error {
	args := m.Called(ctx, position)
	return args.Error(0)
}

func (m *MockInvestmentRepository) AddIncome(ctx context.Context, income *models.InvestmentIncome) error {
	args := m.Called(ctx, income)
	return args.Error(0)
}

func (m *MockInvestmentRepository) GetValuation(ctx context.Context, investmentID int64) (*models.InvestmentValuation, error) {
	args := m.Called(ctx, investmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InvestmentValuation), args.Error(1)
}

func (m *MockInvestmentRepository) ListValuations(ctx context.Context, familyID int64) ([]*models.InvestmentValuation, error) {
	args := m.Called(ctx, familyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.InvestmentValuation), args.Error(1)
}

func (m *MockInvestmentRepository) TotalIncome(ctx context.Context, familyID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, familyID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockDividendRepository is a mock implementation of DividendRepository
type MockDividendRepository struct {
	mock.Mock
}

func (m *MockDividendRepository) Create(ctx context.Context, dividend *models.Dividend) error {
	args := m.Called(ctx, dividend)
	return args.Error(0)
}

func (m *MockDividendRepository) GetByID(ctx context.Context, id int64) (*models.Dividend, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dividend), args.Error(1)
}

func (m *MockDividendRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Dividend, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dividend), args.Error(1)
}

func (m *MockDividendRepository) UpdateStatus(ctx context.Context, id int64, status models.DividendStatus, at time.Time) error {
	args := m.Called(ctx, id, status, at)
	return args.Error(0)
}

func (m *MockDividendRepository) CreateClaim(ctx context.Context, claim *models.DividendClaim) error {
	args := m.Called(ctx, claim)
	return args.Error(0)
}

func (m *MockDividendRepository) GetClaim(ctx context.Context, id int64) (*models.DividendClaim, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DividendClaim), args.Error(1)
}

func (m *MockDividendRepository) UpdateClaim(ctx context.Context, claim *models.DividendClaim) error {
	args := m.Called(ctx, claim)
	return args.Error(0)
}

func (m *MockDividendRepository) SetClaimRequest(ctx context.Context, claimID, requestID int64) error {
	args := m.Called(ctx, claimID, requestID)
	return args.Error(0)
}

func (m *MockDividendRepository) CountPendingClaims(ctx context.Context, dividendID int64) (int, error) {
	args := m.Called(ctx, dividendID)
	return args.Int(0), args.Error(1)
}

func (m *MockDividendRepository) FrozenAmount(ctx context.Context, familyID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, familyID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockMetricsRecorder is a mock implementation of MetricsRecorder
type MockMetricsRecorder struct {
	mock.Mock
}

func (m *MockMetricsRecorder) RecordExecutionFailure(ctx context.Context, requestType models.RequestType) {
	m.Called(ctx, requestType)
}

// MockRepositories bundles one mock per repository for a MockUnitOfWork
type MockRepositories struct {
	Users        *MockUserRepository
	Families     *MockFamilyRepository
	Members      *MockFamilyMemberRepository
	Deposits     *MockDepositRepository
	Transactions *MockTransactionRepository
	Requests     *MockApprovalRequestRepository
	Records      *MockApprovalRecordRepository
	Investments  *MockInvestmentRepository
	Dividends    *MockDividendRepository
	EventBus     *MockEventPublisher
}

// NewMockRepositories creates a fresh set of repository mocks
func NewMockRepositories() *MockRepositories {
	return &MockRepositories{
		Users:        new(MockUserRepository),
		Families:     new(MockFamilyRepository),
		Members:      new(MockFamilyMemberRepository),
		Deposits:     new(MockDepositRepository),
		Transactions: new(MockTransactionRepository),
		Requests:     new(MockApprovalRequestRepository),
		Records:      new(MockApprovalRecordRepository),
		Investments:  new(MockInvestmentRepository),
		Dividends:    new(MockDividendRepository),
		EventBus:     new(MockEventPublisher),
	}
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Transaction control is
// mocked; repository getters return the configured repositories.
type MockUnitOfWork struct {
	mock.Mock
	repos *MockRepositories
}

// SetRepositories configures the repositories handed out by the unit of work
func (m *MockUnitOfWork) SetRepositories(repos *MockRepositories) {
	m.repos = repos
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository {
	return m.repos.Users
}

func (m *MockUnitOfWork) FamilyRepository() FamilyRepository {
	return m.repos.Families
}

func (m *MockUnitOfWork) FamilyMemberRepository() FamilyMemberRepository {
	return m.repos.Members
}

func (m *MockUnitOfWork) DepositRepository() DepositRepository {
	return m.repos.Deposits
}

func (m *MockUnitOfWork) TransactionRepository() TransactionRepository {
	return m.repos.Transactions
}

func (m *MockUnitOfWork) ApprovalRequestRepository() ApprovalRequestRepository {
	return m.repos.Requests
}

func (m *MockUnitOfWork) ApprovalRecordRepository() ApprovalRecordRepository {
	return m.repos.Records
}

func (m *MockUnitOfWork) InvestmentRepository() InvestmentRepository {
	return m.repos.Investments
}

func (m *MockUnitOfWork) DividendRepository() DividendRepository {
	return m.repos.Dividends
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.repos.EventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockApprovalService is a mock implementation of ApprovalService
type MockApprovalService struct {
	mock.Mock
}

func (m *MockApprovalService) CreateRequest(ctx context.Context, params CreateRequestParams) (*models.ApprovalRequest, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalService) CastVote(ctx context.Context, requestID, approverID int64, approved bool, comment string) (*models.ApprovalRequest, error) {
	args := m.Called(ctx, requestID, approverID, approved, comment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalService) CancelRequest(ctx context.Context, requestID, requesterID int64) (*models.ApprovalRequest, error) {
	args := m.Called(ctx, requestID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalService) GetRequestView(ctx context.Context, requestID int64) (*models.ApprovalRequestView, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalRequestView), args.Error(1)
}

func (m *MockApprovalService) ListRequests(ctx context.Context, familyID int64, status *models.RequestStatus, limit int) ([]*models.ApprovalRequest, error) {
	args := m.Called(ctx, familyID, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalService) ListPendingForApprover(ctx context.Context, familyID, userID int64) ([]*models.ApprovalRequest, error) {
	args := m.Called(ctx, familyID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalService) ClaimDividend(ctx context.Context, requestID, userID int64, reinvest bool) (*models.ApprovalRequest, error) {
	args := m.Called(ctx, requestID, userID, reinvest)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalService) Execute(ctx context.Context, requestID int64) error {
	args := m.Called(ctx, requestID)
	return args.Error(0)
}

// MockEquityService is a mock implementation of EquityService
type MockEquityService struct {
	mock.Mock
}

func (m *MockEquityService) GetEquitySummary(ctx context.Context, familyID int64) (*models.EquitySummary, error) {
	args := m.Called(ctx, familyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EquitySummary), args.Error(1)
}

// MockFamilyService is a mock implementation of FamilyService
type MockFamilyService struct {
	mock.Mock
}

func (m *MockFamilyService) RegisterUser(ctx context.Context, username, nickname string) (*models.User, error) {
	args := m.Called(ctx, username, nickname)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockFamilyService) CreateFamily(ctx context.Context, creatorID int64, name string, savingsTarget *decimal.Decimal) (*models.Family, error) {
	args := m.Called(ctx, creatorID, name, savingsTarget)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Family), args.Error(1)
}

func (m *MockFamilyService) GetFamily(ctx context.Context, familyID int64) (*models.Family, error) {
	args := m.Called(ctx, familyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Family), args.Error(1)
}

func (m *MockFamilyService) GetFamilyByInviteCode(ctx context.Context, inviteCode string) (*models.Family, error) {
	args := m.Called(ctx, inviteCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Family), args.Error(1)
}

func (m *MockFamilyService) ListMembers(ctx context.Context, familyID int64) ([]*models.FamilyMember, error) {
	args := m.Called(ctx, familyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.FamilyMember), args.Error(1)
}

func (m *MockFamilyService) UpdateSavingsTarget(ctx context.Context, familyID, userID int64, target decimal.Decimal) (*models.Family, error) {
	args := m.Called(ctx, familyID, userID, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Family), args.Error(1)
}

func (m *MockFamilyService) RequestToJoin(ctx context.Context, inviteCode string, userID int64) (*models.ApprovalRequest, error) {
	args := m.Called(ctx, inviteCode, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalRequest), args.Error(1)
}

// MockDividendService is a mock implementation of DividendService
type MockDividendService struct {
	mock.Mock
}

func (m *MockDividendService) ProposeDividend(ctx context.Context, familyID, creatorID int64, dividendType models.DividendType, amount decimal.Decimal) (*models.Dividend, error) {
	args := m.Called(ctx, familyID, creatorID, dividendType, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dividend), args.Error(1)
}

func (m *MockDividendService) ResolveDividend(ctx context.Context, dividendID, resolverID int64, approved bool) (*models.Dividend, error) {
	args := m.Called(ctx, dividendID, resolverID, approved)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dividend), args.Error(1)
}

func (m *MockDividendService) GetDividend(ctx context.Context, dividendID int64) (*models.Dividend, error) {
	args := m.Called(ctx, dividendID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dividend), args.Error(1)
}
