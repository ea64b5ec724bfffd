package service_test

import (
	"context"
	"sync"
	"testing"

	"goldennest/config"
	"goldennest/events"
	"goldennest/models"
	"goldennest/repository"
	"goldennest/repository/testutil"
	"goldennest/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type integrationServices struct {
	db        *testutil.TestDatabase
	bus       *events.Bus
	approvals service.ApprovalService
	equity    service.EquityService
	families  service.FamilyService
	dividends service.DividendService
}

func setupIntegration(t *testing.T) *integrationServices {
	testDB := testutil.SetupTestDatabase(t)
	bus := events.NewBus()
	factory := repository.NewUnitOfWorkFactory(testDB.DB, bus)
	approvals := service.NewApprovalService(factory, nil)
	cfg := &config.Config{
		DefaultSavingsTarget: decimal.NewFromInt(2000000),
		DefaultEquityRate:    decimal.RequireFromString("0.03"),
		Environment:          "test",
	}

	return &integrationServices{
		db:        testDB,
		bus:       bus,
		approvals: approvals,
		equity:    service.NewEquityService(factory),
		families:  service.NewFamilyService(factory, approvals, cfg),
		dividends: service.NewDividendService(factory, nil),
	}
}

func depositParams(familyID, requesterID int64, amount int64) service.CreateRequestParams {
	return service.CreateRequestParams{
		FamilyID:    familyID,
		RequesterID: requesterID,
		Type:        models.RequestTypeDeposit,
		Title:       "Monthly deposit",
		Data:        &models.DepositData{Amount: decimal.NewFromInt(amount)},
	}
}

// deposit files a deposit and has approver approve it
func deposit(t *testing.T, svc *integrationServices, familyID, requesterID, approverID, amount int64) {
	t.Helper()
	ctx := context.Background()

	request, err := svc.approvals.CreateRequest(ctx, depositParams(familyID, requesterID, amount))
	require.NoError(t, err)
	request, err = svc.approvals.CastVote(ctx, request.ID, approverID, true, "")
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusApproved, request.Status)
	require.True(t, request.IsExecuted())
}

func countRows(t *testing.T, svc *integrationServices, query string, args ...any) int {
	t.Helper()
	var count int
	require.NoError(t, svc.db.DB.QueryRow(context.Background(), query, args...).Scan(&count))
	return count
}

func TestApprovalWorkflow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	svc := setupIntegration(t)
	ctx := context.Background()

	t.Run("two member equity follows deposits", func(t *testing.T) {
		seeded := testutil.SeedFamily(t, svc.db.DB, "Equity", "alice", "bob")
		alice, bob := seeded.Members[0], seeded.Members[1]

		deposit(t, svc, seeded.Family.ID, alice.ID, bob.ID, 1000)
		deposit(t, svc, seeded.Family.ID, bob.ID, alice.ID, 3000)

		summary, err := svc.equity.GetEquitySummary(ctx, seeded.Family.ID)
		require.NoError(t, err)
		require.Len(t, summary.Members, 2)
		assert.Equal(t, 0.25, summary.Members[0].EquityRatio)
		assert.Equal(t, 0.75, summary.Members[1].EquityRatio)
		assert.True(t, summary.FreeCash.Equal(decimal.NewFromInt(4000)))
		assert.True(t, summary.TotalSavings.Equal(decimal.NewFromInt(4000)))

		transactions, err := repository.NewTransactionRepository(svc.db.DB).ListByFamily(ctx, seeded.Family.ID, 10)
		require.NoError(t, err)
		require.Len(t, transactions, 2)
		assert.True(t, transactions[0].BalanceAfter.Equal(decimal.NewFromInt(1000)))
		assert.True(t, transactions[1].BalanceAfter.Equal(decimal.NewFromInt(4000)))
	})

	t.Run("single member deposit executes at once", func(t *testing.T) {
		seeded := testutil.SeedFamily(t, svc.db.DB, "Solo", "sam")

		request, err := svc.approvals.CreateRequest(ctx, depositParams(seeded.Family.ID, seeded.Members[0].ID, 100))
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusApproved, request.Status)
		assert.True(t, request.IsExecuted())

		view, err := svc.approvals.GetRequestView(ctx, request.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, view.ApprovedCount)
		assert.Empty(t, view.PendingApprovers)

		summary, err := svc.equity.GetEquitySummary(ctx, seeded.Family.ID)
		require.NoError(t, err)
		assert.True(t, summary.FreeCash.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, 1.0, summary.Members[0].EquityRatio)
	})

	t.Run("three member expense rejected leaves no ledger rows", func(t *testing.T) {
		seeded := testutil.SeedFamily(t, svc.db.DB, "Reject", "ann", "ben", "cat")
		ann, ben, cat := seeded.Members[0], seeded.Members[1], seeded.Members[2]

		request, err := svc.approvals.CreateRequest(ctx, service.CreateRequestParams{
			FamilyID:    seeded.Family.ID,
			RequesterID: ann.ID,
			Type:        models.RequestTypeExpense,
			Title:       "Boat",
			Data: &models.ExpenseData{
				Title:  "Boat",
				Amount: decimal.NewFromInt(900),
				DeductionRatios: map[int64]decimal.Decimal{
					ann.ID: decimal.RequireFromString("0.333334"),
					ben.ID: decimal.RequireFromString("0.333333"),
					cat.ID: decimal.RequireFromString("0.333333"),
				},
			},
		})
		require.NoError(t, err)

		request, err = svc.approvals.CastVote(ctx, request.ID, ben.ID, true, "")
		require.NoError(t, err)
		assert.True(t, request.IsPending())

		request, err = svc.approvals.CastVote(ctx, request.ID, cat.ID, false, "no boat")
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusRejected, request.Status)
		assert.False(t, request.IsExecuted())

		assert.Zero(t, countRows(t, svc, `SELECT COUNT(*) FROM deposits WHERE family_id = $1`, seeded.Family.ID))
		assert.Zero(t, countRows(t, svc, `SELECT COUNT(*) FROM transactions WHERE family_id = $1`, seeded.Family.ID))

		_, err = svc.approvals.CastVote(ctx, request.ID, ann.ID, true, "")
		assert.ErrorIs(t, err, service.ErrInvalidState)
	})

	t.Run("join approved by one member closes the request", func(t *testing.T) {
		seeded := testutil.SeedFamily(t, svc.db.DB, "Join", "dora", "eli")
		dora, eli := seeded.Members[0], seeded.Members[1]
		newcomer := testutil.SeedUser(t, svc.db.DB, "fay")

		request, err := svc.families.RequestToJoin(ctx, seeded.Family.InviteCode, newcomer.ID)
		require.NoError(t, err)
		assert.True(t, request.IsPending())

		pending, err := svc.approvals.ListPendingForApprover(ctx, seeded.Family.ID, eli.ID)
		require.NoError(t, err)
		require.Len(t, pending, 1)

		request, err = svc.approvals.CastVote(ctx, request.ID, eli.ID, true, "welcome")
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusApproved, request.Status)

		members, err := svc.families.ListMembers(ctx, seeded.Family.ID)
		require.NoError(t, err)
		assert.Len(t, members, 3)

		_, err = svc.approvals.CastVote(ctx, request.ID, dora.ID, true, "")
		assert.ErrorIs(t, err, service.ErrInvalidState)
	})

	t.Run("failed execution rolls the vote back", func(t *testing.T) {
		seeded := testutil.SeedFamily(t, svc.db.DB, "Broke", "gus", "hal")
		gus, hal := seeded.Members[0], seeded.Members[1]

		request, err := svc.approvals.CreateRequest(ctx, service.CreateRequestParams{
			FamilyID:    seeded.Family.ID,
			RequesterID: gus.ID,
			Type:        models.RequestTypeInvestmentCreate,
			Title:       "Index fund",
			Data: &models.InvestmentCreateData{
				Name:           "Index fund",
				InvestmentType: models.InvestmentTypeFund,
				Principal:      decimal.NewFromInt(1000),
			},
		})
		require.NoError(t, err)

		_, err = svc.approvals.CastVote(ctx, request.ID, hal.ID, true, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, service.ErrExecutionFailure)

		view, err := svc.approvals.GetRequestView(ctx, request.ID)
		require.NoError(t, err)
		assert.True(t, view.Request.IsPending())
		assert.Empty(t, view.Records)
		assert.Zero(t, countRows(t, svc, `SELECT COUNT(*) FROM investments WHERE family_id = $1`, seeded.Family.ID))
	})

	t.Run("concurrent execution applies side effects once", func(t *testing.T) {
		seeded := testutil.SeedFamily(t, svc.db.DB, "Race", "ivy", "jon")
		ivy := seeded.Members[0]

		request := testutil.CreateTestDepositRequest(seeded.Family.ID, ivy.ID, 250)
		request.Status = models.RequestStatusApproved
		require.NoError(t, repository.NewApprovalRequestRepository(svc.db.DB).Create(ctx, request))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = svc.approvals.Execute(ctx, request.ID)
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			assert.NoError(t, err)
		}
		assert.Equal(t, 1, countRows(t, svc, `SELECT COUNT(*) FROM transactions WHERE family_id = $1`, seeded.Family.ID))
		assert.Equal(t, 1, countRows(t, svc, `SELECT COUNT(*) FROM deposits WHERE family_id = $1`, seeded.Family.ID))
	})

	t.Run("concurrent votes completing quorum execute once", func(t *testing.T) {
		seeded := testutil.SeedFamily(t, svc.db.DB, "Quorum", "kai", "lou", "mia")
		kai, lou, mia := seeded.Members[0], seeded.Members[1], seeded.Members[2]

		funding, err := svc.approvals.CreateRequest(ctx, depositParams(seeded.Family.ID, kai.ID, 900))
		require.NoError(t, err)
		_, err = svc.approvals.CastVote(ctx, funding.ID, lou.ID, true, "")
		require.NoError(t, err)
		_, err = svc.approvals.CastVote(ctx, funding.ID, mia.ID, true, "")
		require.NoError(t, err)

		request, err := svc.approvals.CreateRequest(ctx, service.CreateRequestParams{
			FamilyID:    seeded.Family.ID,
			RequesterID: kai.ID,
			Type:        models.RequestTypeExpense,
			Title:       "Boiler",
			Data: &models.ExpenseData{
				Title:           "Boiler",
				Amount:          decimal.NewFromInt(300),
				DeductionRatios: map[int64]decimal.Decimal{kai.ID: decimal.NewFromInt(1)},
			},
		})
		require.NoError(t, err)

		var wg sync.WaitGroup
		approvers := []int64{lou.ID, mia.ID}
		errs := make([]error, len(approvers))
		for i, approverID := range approvers {
			wg.Add(1)
			go func(i int, approverID int64) {
				defer wg.Done()
				_, errs[i] = svc.approvals.CastVote(ctx, request.ID, approverID, true, "")
			}(i, approverID)
		}
		wg.Wait()

		for _, err := range errs {
			assert.NoError(t, err)
		}

		view, err := svc.approvals.GetRequestView(ctx, request.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusApproved, view.Request.Status)
		assert.True(t, view.Request.IsExecuted())
		assert.Len(t, view.Records, 2)

		assert.Equal(t, 1, countRows(t, svc,
			`SELECT COUNT(*) FROM deposits WHERE family_id = $1 AND amount < 0`, seeded.Family.ID))
		assert.Equal(t, 1, countRows(t, svc,
			`SELECT COUNT(*) FROM transactions WHERE family_id = $1 AND reference_type = 'expense' AND reference_id = $2`,
			seeded.Family.ID, request.ID))
	})
}

func TestDividendWorkflow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	svc := setupIntegration(t)
	ctx := context.Background()

	seeded := testutil.SeedFamily(t, svc.db.DB, "Dividends", "kim", "lee")
	kim, lee := seeded.Members[0], seeded.Members[1]
	deposit(t, svc, seeded.Family.ID, kim.ID, lee.ID, 1000)
	deposit(t, svc, seeded.Family.ID, lee.ID, kim.ID, 3000)

	dividend, err := svc.dividends.ProposeDividend(ctx, seeded.Family.ID, kim.ID, models.DividendTypeCash, decimal.NewFromInt(400))
	require.NoError(t, err)
	assert.Equal(t, models.DividendStatusVoting, dividend.Status)

	summary, err := svc.equity.GetEquitySummary(ctx, seeded.Family.ID)
	require.NoError(t, err)
	assert.True(t, summary.FrozenAmount.Equal(decimal.NewFromInt(400)))
	assert.True(t, summary.AvailableCash.Equal(decimal.NewFromInt(3600)))

	_, err = svc.dividends.ProposeDividend(ctx, seeded.Family.ID, kim.ID, models.DividendTypeCash, decimal.NewFromInt(3601))
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = svc.dividends.ResolveDividend(ctx, dividend.ID, lee.ID, true)
	assert.ErrorIs(t, err, service.ErrForbidden)

	dividend, err = svc.dividends.ResolveDividend(ctx, dividend.ID, kim.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.DividendStatusApproved, dividend.Status)

	status := models.RequestStatusPending
	requests, err := svc.approvals.ListRequests(ctx, seeded.Family.ID, &status, 0)
	require.NoError(t, err)
	claims := map[int64]*models.ApprovalRequest{}
	for _, request := range requests {
		if request.Type == models.RequestTypeDividendClaim {
			claims[*request.TargetUserID] = request
		}
	}
	require.Len(t, claims, 2)
	assert.True(t, claims[kim.ID].Amount.Equal(decimal.NewFromInt(100)))
	assert.True(t, claims[lee.ID].Amount.Equal(decimal.NewFromInt(300)))

	// lee withdraws, lee is the only voter on their own claim
	request, err := svc.approvals.ClaimDividend(ctx, claims[lee.ID].ID, lee.ID, false)
	require.NoError(t, err)
	assert.True(t, request.IsExecuted())

	// kim reinvests, lee still has to approve kim's claim
	request, err = svc.approvals.ClaimDividend(ctx, claims[kim.ID].ID, kim.ID, true)
	require.NoError(t, err)
	assert.True(t, request.IsPending())
	request, err = svc.approvals.CastVote(ctx, claims[kim.ID].ID, lee.ID, true, "")
	require.NoError(t, err)
	assert.True(t, request.IsExecuted())

	dividend, err = svc.dividends.GetDividend(ctx, dividend.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DividendStatusCompleted, dividend.Status)

	summary, err = svc.equity.GetEquitySummary(ctx, seeded.Family.ID)
	require.NoError(t, err)
	assert.True(t, summary.FreeCash.Equal(decimal.NewFromInt(3700)))
	assert.True(t, summary.FrozenAmount.IsZero())
	assert.True(t, summary.Members[0].TotalDeposit.Equal(decimal.NewFromInt(1100)))
	assert.True(t, summary.Members[1].TotalDeposit.Equal(decimal.NewFromInt(3000)))
}
