package domain

import "github.com/shopspring/decimal"

// Budget is a user-defined monthly spending limit for one category.
// Category holds the short-form name ("Food", not "Food & Dining").
// Spent is derived by the budget aggregator and is never persisted.
type Budget struct {
	ID       string          `json:"id"`
	Category string          `json:"category"`
	Limit    decimal.Decimal `json:"limit"`
	Spent    decimal.Decimal `json:"spent"`
}

// BudgetUpdate is a partial update for a budget, applied field by field.
type BudgetUpdate struct {
	Category *string          `json:"category,omitempty"`
	Limit    *decimal.Decimal `json:"limit,omitempty"`
}

// Apply merges the set fields of the update into b.
func (u BudgetUpdate) Apply(b *Budget) {
	if u.Category != nil {
		b.Category = *u.Category
	}
	if u.Limit != nil {
		b.Limit = *u.Limit
	}
}
