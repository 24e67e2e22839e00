// Package budget derives spending figures from the current transaction set.
// Everything here is a pure function of its inputs; nothing is cached or
// persisted, so the figures can be recomputed on every store change.
package budget

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/budget-tracker/internal/domain"
)

// Status buckets for budget progress, used by the UI to pick a color.
const (
	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusDanger  = "danger"
)

var hundred = decimal.NewFromInt(100)

// Summary aggregates all budgets into overall totals.
type Summary struct {
	TotalBudget    decimal.Decimal `json:"total_budget"`
	TotalSpent     decimal.Decimal `json:"total_spent"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
	PercentSpent   float64         `json:"percent_spent"`
}

// ComputeSpend returns a copy of budgets with Spent populated: for each
// budget, the sum of absolute values of outflow transactions whose mapped
// category equals the budget's category. Income rows never count toward
// spend. The inputs are not mutated.
func ComputeSpend(budgets []domain.Budget, transactions []domain.Transaction) []domain.Budget {
	spentByCategory := make(map[string]decimal.Decimal)
	for _, tx := range transactions {
		if !tx.IsExpense() {
			continue
		}
		category := domain.BudgetCategory(tx.Category)
		spentByCategory[category] = spentByCategory[category].Add(tx.Amount.Abs())
	}

	result := make([]domain.Budget, len(budgets))
	for i, b := range budgets {
		b.Spent = spentByCategory[b.Category]
		result[i] = b
	}
	return result
}

// ComputeSummary totals budgets that already carry Spent. A zero total
// budget yields zero percent spent rather than a division error.
func ComputeSummary(budgets []domain.Budget) Summary {
	var s Summary
	for _, b := range budgets {
		s.TotalBudget = s.TotalBudget.Add(b.Limit)
		s.TotalSpent = s.TotalSpent.Add(b.Spent)
	}
	s.TotalRemaining = s.TotalBudget.Sub(s.TotalSpent)
	if s.TotalBudget.IsPositive() {
		s.PercentSpent, _ = s.TotalSpent.Div(s.TotalBudget).Mul(hundred).Float64()
	}
	return s
}

// CurrentMonthBalance sums signed amounts (income and expense both) over
// transactions dated in the same calendar month and year as ref. Prior
// months never carry over.
func CurrentMonthBalance(transactions []domain.Transaction, ref time.Time) decimal.Decimal {
	var balance decimal.Decimal
	for _, tx := range transactions {
		if tx.Date.Year() == ref.Year() && tx.Date.Month() == ref.Month() {
			balance = balance.Add(tx.Amount)
		}
	}
	return balance
}

// Progress returns how far through the budget the spend is, as a percent
// capped at 100. A zero or missing limit reads as zero progress.
func Progress(spent, limit decimal.Decimal) float64 {
	if !limit.IsPositive() {
		return 0
	}
	pct, _ := spent.Div(limit).Mul(hundred).Float64()
	if pct > 100 {
		return 100
	}
	return pct
}

// StatusFor maps budget progress to a display status: danger at or past the
// limit, warning from 80%.
func StatusFor(spent, limit decimal.Decimal) string {
	pct := Progress(spent, limit)
	switch {
	case pct >= 100:
		return StatusDanger
	case pct >= 80:
		return StatusWarning
	default:
		return StatusSuccess
	}
}
