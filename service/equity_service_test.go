package service

import (
	"context"
	"testing"

	"goldennest/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEquityService_GetEquitySummary(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	repos := NewMockRepositories()
	mockUoW.SetRepositories(repos)

	service := NewEquityService(mockFactory)

	family := testFamily()
	family.EquityRate = decimal.RequireFromString("0.03")
	alice := member(1, models.MemberRoleAdmin)
	alice.Nickname = "Alice"
	bob := member(2, models.MemberRoleMember)
	bob.Nickname = "Bob"

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	repos.Families.On("GetByID", ctx, int64(1)).Return(family, nil)
	repos.Members.On("ListByFamily", ctx, int64(1)).Return([]*models.FamilyMember{alice, bob}, nil)
	repos.Deposits.On("SumByUser", ctx, int64(1)).Return(map[int64]decimal.Decimal{
		1: decimal.NewFromInt(100),
		2: decimal.NewFromInt(300),
		// a removed member's deposits do not count toward the household total
		9: decimal.NewFromInt(5000),
	}, nil)
	repos.Transactions.On("GetLatestBalance", ctx, int64(1)).Return(decimal.NewFromInt(400), nil)
	repos.Investments.On("ListValuations", ctx, int64(1)).Return([]*models.InvestmentValuation{
		{InvestmentID: 3, CurrentPrincipal: decimal.NewFromInt(200), TotalIncome: decimal.NewFromInt(50)},
	}, nil)
	repos.Dividends.On("FrozenAmount", ctx, int64(1)).Return(decimal.NewFromInt(100), nil)

	summary, err := service.GetEquitySummary(ctx, 1)

	require.NoError(t, err)
	assert.Equal(t, "Nest", summary.FamilyName)
	assert.True(t, summary.TotalDeposit.Equal(decimal.NewFromInt(400)))
	assert.True(t, summary.FreeCash.Equal(decimal.NewFromInt(400)))
	assert.True(t, summary.InvestmentValue.Equal(decimal.NewFromInt(250)))
	assert.True(t, summary.TotalSavings.Equal(decimal.NewFromInt(650)))
	assert.True(t, summary.AvailableCash.Equal(decimal.NewFromInt(300)))
	assert.True(t, summary.EquityRate.Equal(decimal.RequireFromString("0.03")))
	assert.Equal(t, 0.065, summary.TargetProgress)

	require.Len(t, summary.Members, 2)
	assert.Equal(t, "Alice", summary.Members[0].Nickname)
	assert.Equal(t, 0.25, summary.Members[0].EquityRatio)
	assert.Equal(t, 25.0, summary.Members[0].EquityPercentage)
	assert.Equal(t, 0.75, summary.Members[1].EquityRatio)
	assert.Equal(t, 75.0, summary.Members[1].EquityPercentage)

	mockUoW.AssertNotCalled(t, "Commit")
}

func TestEquityService_GetEquitySummary_UnknownFamily(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	repos := NewMockRepositories()
	mockUoW.SetRepositories(repos)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	repos.Families.On("GetByID", ctx, int64(2)).Return(nil, nil)

	_, err := NewEquityService(mockFactory).GetEquitySummary(ctx, 2)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCalculateMemberEquity(t *testing.T) {
	members := []*models.FamilyMember{
		member(1, models.MemberRoleAdmin),
		member(2, models.MemberRoleMember),
		member(3, models.MemberRoleMember),
	}

	t.Run("no deposits yields zero ratios", func(t *testing.T) {
		equities := calculateMemberEquity(members, map[int64]decimal.Decimal{})
		require.Len(t, equities, 3)
		for _, equity := range equities {
			assert.Zero(t, equity.EquityRatio)
			assert.Zero(t, equity.EquityPercentage)
		}
	})

	t.Run("thirds round to six places", func(t *testing.T) {
		equities := calculateMemberEquity(members, map[int64]decimal.Decimal{
			1: decimal.NewFromInt(100),
			2: decimal.NewFromInt(100),
			3: decimal.NewFromInt(100),
		})
		for _, equity := range equities {
			assert.Equal(t, 0.333333, equity.EquityRatio)
			assert.Equal(t, 33.33, equity.EquityPercentage)
		}
	})

	t.Run("negative household total yields zero ratios", func(t *testing.T) {
		equities := calculateMemberEquity(members, map[int64]decimal.Decimal{
			1: decimal.NewFromInt(-50),
		})
		for _, equity := range equities {
			assert.Zero(t, equity.EquityRatio)
		}
	})

	t.Run("member with expenses keeps a negative share", func(t *testing.T) {
		equities := calculateMemberEquity(members[:2], map[int64]decimal.Decimal{
			1: decimal.NewFromInt(300),
			2: decimal.NewFromInt(-100),
		})
		assert.Equal(t, 1.5, equities[0].EquityRatio)
		assert.Equal(t, -0.5, equities[1].EquityRatio)
	})
}

func TestTargetProgress(t *testing.T) {
	tests := []struct {
		name     string
		total    decimal.Decimal
		target   decimal.Decimal
		expected float64
	}{
		{"zero target", decimal.NewFromInt(100), decimal.Zero, 0},
		{"negative target", decimal.NewFromInt(100), decimal.NewFromInt(-1), 0},
		{"half way", decimal.NewFromInt(500), decimal.NewFromInt(1000), 0.5},
		{"capped at one", decimal.NewFromInt(5000), decimal.NewFromInt(1000), 1},
		{"rounded to four places", decimal.NewFromInt(1), decimal.NewFromInt(3), 0.3333},
		{"negative savings", decimal.NewFromInt(-10), decimal.NewFromInt(1000), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, targetProgress(tt.total, tt.target))
		})
	}
}
