package budget

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/budget-tracker/internal/domain"
)

func tx(category string, amount float64, date string) domain.Transaction {
	d, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return domain.Transaction{Category: category, Amount: decimal.NewFromFloat(amount), Date: d}
}

func TestComputeSpend(t *testing.T) {
	transactions := []domain.Transaction{
		tx("Food & Dining", -45.50, "2026-08-25"),
		tx("Food & Dining", -12.75, "2026-08-22"),
		tx("Salary", 2000, "2026-08-20"),
	}
	budgets := []domain.Budget{
		{ID: "b1", Category: "Food", Limit: decimal.NewFromInt(200)},
	}

	got := ComputeSpend(budgets, transactions)

	require.Len(t, got, 1)
	assert.True(t, got[0].Spent.Equal(decimal.NewFromFloat(58.25)),
		"want 58.25, got %s", got[0].Spent)

	// input slice untouched
	assert.True(t, budgets[0].Spent.IsZero())
}

func TestComputeSpend_NoMatchesYieldsZero(t *testing.T) {
	budgets := []domain.Budget{
		{ID: "b1", Category: "Transport", Limit: decimal.NewFromInt(100)},
	}

	got := ComputeSpend(budgets, []domain.Transaction{tx("Food & Dining", -10, "2026-08-01")})

	require.Len(t, got, 1)
	assert.True(t, got[0].Spent.IsZero())
}

func TestComputeSpend_UnmappedCategoryPassesThrough(t *testing.T) {
	budgets := []domain.Budget{
		{ID: "b1", Category: "Crypto", Limit: decimal.NewFromInt(100)},
	}

	got := ComputeSpend(budgets, []domain.Transaction{tx("Crypto", -30, "2026-08-01")})
	assert.True(t, got[0].Spent.Equal(decimal.NewFromInt(30)))
}

func TestComputeSummary(t *testing.T) {
	budgets := []domain.Budget{
		{Limit: decimal.NewFromInt(200), Spent: decimal.NewFromInt(50)},
		{Limit: decimal.NewFromInt(100), Spent: decimal.NewFromInt(100)},
	}

	s := ComputeSummary(budgets)

	assert.True(t, s.TotalBudget.Equal(decimal.NewFromInt(300)))
	assert.True(t, s.TotalSpent.Equal(decimal.NewFromInt(150)))
	assert.True(t, s.TotalRemaining.Equal(decimal.NewFromInt(150)))
	assert.InDelta(t, 50.0, s.PercentSpent, 0.0001)
}

func TestComputeSummary_ZeroBudgetSafe(t *testing.T) {
	s := ComputeSummary(nil)
	assert.Equal(t, 0.0, s.PercentSpent)

	s = ComputeSummary([]domain.Budget{{Spent: decimal.NewFromInt(10)}})
	assert.Equal(t, 0.0, s.PercentSpent)
}

func TestCurrentMonthBalance_Boundaries(t *testing.T) {
	ref := time.Date(2026, 9, 15, 10, 30, 0, 0, time.UTC)

	transactions := []domain.Transaction{
		tx("Food & Dining", -40, "2026-08-31"), // last day of prior month: excluded
		tx("Salary", 2000, "2026-09-01"),       // first day of current month: included
		tx("Food & Dining", -55.25, "2026-09-14"),
		tx("Salary", 100, "2025-09-10"), // same month, wrong year: excluded
	}

	got := CurrentMonthBalance(transactions, ref)
	assert.True(t, got.Equal(decimal.NewFromFloat(1944.75)), "got %s", got)
}

func TestCurrentMonthBalance_Empty(t *testing.T) {
	got := CurrentMonthBalance(nil, time.Now())
	assert.True(t, got.IsZero())
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name  string
		spent float64
		limit float64
		want  float64
	}{
		{"half", 50, 100, 50},
		{"overspent caps at 100", 250, 100, 100},
		{"zero limit", 50, 0, 0},
		{"zero spent", 0, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Progress(decimal.NewFromFloat(tt.spent), decimal.NewFromFloat(tt.limit))
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}

func TestStatusFor(t *testing.T) {
	limit := decimal.NewFromInt(100)

	assert.Equal(t, StatusSuccess, StatusFor(decimal.NewFromInt(50), limit))
	assert.Equal(t, StatusWarning, StatusFor(decimal.NewFromInt(80), limit))
	assert.Equal(t, StatusDanger, StatusFor(decimal.NewFromInt(100), limit))
	assert.Equal(t, StatusDanger, StatusFor(decimal.NewFromInt(150), limit))
}
