package domain

// Transactions carry the aggregator's long-form category names while budgets
// are keyed by the short-form names users pick in the budget form. The two
// tables below are the single definition of that mapping; names missing from
// a table pass through unchanged.

var budgetCategoryByTransaction = map[string]string{
	"Food & Dining":  "Food",
	"Transportation": "Transport",
	"Entertainment":  "Entertainment",
	"Shopping":       "Shopping",
	"Healthcare":     "Health",
	"Education":      "Education",
	"Utilities":      "Utilities",
	"Housing":        "Housing",
	"Insurance":      "Insurance",
	"Savings":        "Savings",
	"Other":          "Other",
}

var transactionCategoryByBudget = func() map[string]string {
	m := make(map[string]string, len(budgetCategoryByTransaction))
	for long, short := range budgetCategoryByTransaction {
		m[short] = long
	}
	return m
}()

// BudgetCategory maps a transaction's long-form category to the short-form
// name budgets use. Unmapped names pass through unchanged.
func BudgetCategory(transactionCategory string) string {
	if short, ok := budgetCategoryByTransaction[transactionCategory]; ok {
		return short
	}
	return transactionCategory
}

// TransactionCategory is the inverse of BudgetCategory.
func TransactionCategory(budgetCategory string) string {
	if long, ok := transactionCategoryByBudget[budgetCategory]; ok {
		return long
	}
	return budgetCategory
}
