package service

import (
	"context"
	"testing"
	"time"

	"goldennest/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestDividendService() (*dividendService, *MockUnitOfWork, *MockRepositories) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	repos := NewMockRepositories()
	mockUoW.SetRepositories(repos)
	mockFactory.On("Create").Return(mockUoW)

	engine := newApprovalService(mockFactory, nil)
	engine.now = func() time.Time { return fixedNow }
	return &dividendService{uowFactory: mockFactory, engine: engine}, mockUoW, repos
}

func TestDividendService_ProposeDividend(t *testing.T) {
	ctx := context.Background()

	t.Run("cash dividend within available cash", func(t *testing.T) {
		service, mockUoW, repos := newTestDividendService()

		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Commit").Return(nil)
		mockUoW.On("Rollback").Return(nil)

		repos.Families.On("GetByIDForUpdate", ctx, int64(1)).Return(testFamily(), nil)
		repos.Members.On("Get", ctx, int64(1), int64(1)).Return(member(1, models.MemberRoleAdmin), nil)
		repos.Transactions.On("GetLatestBalance", ctx, int64(1)).Return(decimal.NewFromInt(1000), nil)
		repos.Dividends.On("FrozenAmount", ctx, int64(1)).Return(decimal.NewFromInt(200), nil)
		repos.Dividends.On("Create", ctx, mock.MatchedBy(func(d *models.Dividend) bool {
			return d.Status == models.DividendStatusVoting && d.TotalAmount.Equal(decimal.NewFromInt(800))
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*models.Dividend).ID = 4
		}).Return(nil)

		dividend, err := service.ProposeDividend(ctx, 1, 1, models.DividendTypeCash, decimal.NewFromInt(800))

		require.NoError(t, err)
		assert.Equal(t, int64(4), dividend.ID)
		repos.Investments.AssertNotCalled(t, "TotalIncome", mock.Anything, mock.Anything)
	})

	t.Run("frozen cash is not available", func(t *testing.T) {
		service, mockUoW, repos := newTestDividendService()

		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Rollback").Return(nil)

		repos.Families.On("GetByIDForUpdate", ctx, int64(1)).Return(testFamily(), nil)
		repos.Members.On("Get", ctx, int64(1), int64(1)).Return(member(1, models.MemberRoleAdmin), nil)
		repos.Transactions.On("GetLatestBalance", ctx, int64(1)).Return(decimal.NewFromInt(1000), nil)
		repos.Dividends.On("FrozenAmount", ctx, int64(1)).Return(decimal.NewFromInt(200), nil)

		_, err := service.ProposeDividend(ctx, 1, 1, models.DividendTypeCash, decimal.NewFromInt(801))

		assert.ErrorIs(t, err, ErrValidation)
		repos.Dividends.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("profit dividend capped by investment income", func(t *testing.T) {
		service, mockUoW, repos := newTestDividendService()

		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Rollback").Return(nil)

		repos.Families.On("GetByIDForUpdate", ctx, int64(1)).Return(testFamily(), nil)
		repos.Members.On("Get", ctx, int64(1), int64(1)).Return(member(1, models.MemberRoleAdmin), nil)
		repos.Transactions.On("GetLatestBalance", ctx, int64(1)).Return(decimal.NewFromInt(1000), nil)
		repos.Dividends.On("FrozenAmount", ctx, int64(1)).Return(decimal.Zero, nil)
		repos.Investments.On("TotalIncome", ctx, int64(1)).Return(decimal.NewFromInt(50), nil)

		_, err := service.ProposeDividend(ctx, 1, 1, models.DividendTypeProfit, decimal.NewFromInt(60))

		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown type", func(t *testing.T) {
		service, _, _ := newTestDividendService()

		_, err := service.ProposeDividend(ctx, 1, 1, models.DividendType("bonus"), decimal.NewFromInt(10))

		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestDividendService_ResolveDividend_Rejected(t *testing.T) {
	ctx := context.Background()
	service, mockUoW, repos := newTestDividendService()

	voting := &models.Dividend{ID: 4, FamilyID: 1, CreatedBy: 1, Type: models.DividendTypeCash, TotalAmount: decimal.NewFromInt(100), Status: models.DividendStatusVoting}
	rejected := *voting
	rejected.Status = models.DividendStatusRejected

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	repos.Dividends.On("GetByID", ctx, int64(4)).Return(voting, nil).Once()
	repos.Families.On("GetByIDForUpdate", ctx, int64(1)).Return(testFamily(), nil)
	repos.Dividends.On("GetByIDForUpdate", ctx, int64(4)).Return(voting, nil)
	repos.Members.On("Get", ctx, int64(1), int64(1)).Return(member(1, models.MemberRoleAdmin), nil)
	repos.Dividends.On("UpdateStatus", ctx, int64(4), models.DividendStatusRejected, fixedNow).Return(nil)
	repos.Dividends.On("GetByID", ctx, int64(4)).Return(&rejected, nil)

	dividend, err := service.ResolveDividend(ctx, 4, 1, false)

	require.NoError(t, err)
	assert.Equal(t, models.DividendStatusRejected, dividend.Status)
	repos.Dividends.AssertNotCalled(t, "CreateClaim", mock.Anything, mock.Anything)
}

func TestDividendService_ResolveDividend_NonAdmin(t *testing.T) {
	ctx := context.Background()
	service, mockUoW, repos := newTestDividendService()

	voting := &models.Dividend{ID: 4, FamilyID: 1, Status: models.DividendStatusVoting}

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	repos.Dividends.On("GetByID", ctx, int64(4)).Return(voting, nil)
	repos.Families.On("GetByIDForUpdate", ctx, int64(1)).Return(testFamily(), nil)
	repos.Dividends.On("GetByIDForUpdate", ctx, int64(4)).Return(voting, nil)
	repos.Members.On("Get", ctx, int64(1), int64(2)).Return(member(2, models.MemberRoleMember), nil)

	_, err := service.ResolveDividend(ctx, 4, 2, true)

	assert.ErrorIs(t, err, ErrForbidden)
	repos.Dividends.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDividendService_ResolveDividend_AlreadyResolved(t *testing.T) {
	ctx := context.Background()
	service, mockUoW, repos := newTestDividendService()

	done := &models.Dividend{ID: 4, FamilyID: 1, Status: models.DividendStatusCompleted}

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	repos.Dividends.On("GetByID", ctx, int64(4)).Return(done, nil)
	repos.Families.On("GetByIDForUpdate", ctx, int64(1)).Return(testFamily(), nil)
	repos.Dividends.On("GetByIDForUpdate", ctx, int64(4)).Return(done, nil)

	_, err := service.ResolveDividend(ctx, 4, 1, true)

	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestDividendService_ResolveDividend_ApprovedCreatesClaimsByEquity(t *testing.T) {
	ctx := context.Background()
	service, mockUoW, repos := newTestDividendService()

	alice := member(1, models.MemberRoleAdmin)
	alice.Nickname = "Alice"
	bob := member(2, models.MemberRoleMember)
	bob.Nickname = "Bob"
	members := []*models.FamilyMember{alice, bob}

	voting := &models.Dividend{ID: 4, FamilyID: 1, CreatedBy: 1, Type: models.DividendTypeCash, TotalAmount: decimal.NewFromInt(1000), Status: models.DividendStatusVoting}
	approved := *voting
	approved.Status = models.DividendStatusApproved

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	repos.Dividends.On("GetByID", ctx, int64(4)).Return(voting, nil).Once()
	repos.Families.On("GetByIDForUpdate", ctx, int64(1)).Return(testFamily(), nil)
	repos.Dividends.On("GetByIDForUpdate", ctx, int64(4)).Return(voting, nil)
	repos.Members.On("Get", ctx, int64(1), int64(1)).Return(alice, nil)
	repos.Dividends.On("UpdateStatus", ctx, int64(4), models.DividendStatusApproved, fixedNow).Return(nil)

	repos.Members.On("ListByFamily", ctx, int64(1)).Return(members, nil)
	repos.Deposits.On("SumByUser", ctx, int64(1)).Return(map[int64]decimal.Decimal{
		1: decimal.NewFromInt(1000),
		2: decimal.NewFromInt(3000),
	}, nil)

	claimID := int64(100)
	repos.Dividends.On("CreateClaim", ctx, mock.AnythingOfType("*models.DividendClaim")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.DividendClaim).ID = claimID
			claimID++
		}).Return(nil)

	// createRequest for each claim
	repos.Families.On("GetByID", ctx, int64(1)).Return(testFamily(), nil)
	requestID := int64(200)
	repos.Requests.On("Create", ctx, mock.MatchedBy(func(r *models.ApprovalRequest) bool {
		return r.Type == models.RequestTypeDividendClaim && r.RequesterID == 1 && r.TargetUserID != nil
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.ApprovalRequest).ID = requestID
		requestID++
	}).Return(nil)
	repos.EventBus.On("Publish", mock.Anything).Return()
	repos.Dividends.On("SetClaimRequest", ctx, int64(100), int64(200)).Return(nil)
	repos.Dividends.On("SetClaimRequest", ctx, int64(101), int64(201)).Return(nil)

	repos.Dividends.On("GetByID", ctx, int64(4)).Return(&approved, nil)
	repos.Dividends.On("CountPendingClaims", ctx, int64(4)).Return(2, nil)

	dividend, err := service.ResolveDividend(ctx, 4, 1, true)

	require.NoError(t, err)
	assert.Equal(t, models.DividendStatusApproved, dividend.Status)

	var claims []*models.DividendClaim
	for _, call := range repos.Dividends.Calls {
		if call.Method == "CreateClaim" {
			claims = append(claims, call.Arguments.Get(1).(*models.DividendClaim))
		}
	}
	require.Len(t, claims, 2)
	assert.Equal(t, int64(1), claims[0].UserID)
	assert.True(t, claims[0].Amount.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, int64(2), claims[1].UserID)
	assert.True(t, claims[1].Amount.Equal(decimal.NewFromInt(750)))

	repos.Dividends.AssertExpectations(t)
	repos.Records.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
