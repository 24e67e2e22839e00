package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date form used everywhere a transaction date
// crosses a boundary (aggregator feed, JSON API, store documents).
const DateLayout = "2006-01-02"

// Uncategorized is the sentinel category assigned when the aggregator
// reports no category for a transaction.
const Uncategorized = "Uncategorized"

// Transaction is one normalized financial event. ExternalID is the store's
// primary key and the idempotency key for synced records; manual entries get
// a locally generated id instead.
//
// Amount sign convention: positive = inflow (income), negative = outflow
// (expense). The aggregator feed uses the opposite convention and is
// normalized by the sync engine before a Transaction is ever constructed.
type Transaction struct {
	ExternalID  string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	AccountID   string          `json:"account_id,omitempty"`
	AccountName string          `json:"account_name,omitempty"`
	Pending     bool            `json:"pending"`
}

// IsExpense reports whether the transaction is an outflow.
func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// TransactionUpdate is a partial update applied field by field. Nil fields
// are left untouched, so a modify delta or an edit form can never erase a
// field it did not carry.
type TransactionUpdate struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Description *string          `json:"description,omitempty"`
	Date        *time.Time       `json:"date,omitempty"`
	AccountID   *string          `json:"account_id,omitempty"`
	AccountName *string          `json:"account_name,omitempty"`
	Pending     *bool            `json:"pending,omitempty"`
}

// Apply merges the set fields of the update into tx.
func (u TransactionUpdate) Apply(tx *Transaction) {
	if u.Amount != nil {
		tx.Amount = *u.Amount
	}
	if u.Category != nil {
		tx.Category = *u.Category
	}
	if u.Description != nil {
		tx.Description = *u.Description
	}
	if u.Date != nil {
		tx.Date = *u.Date
	}
	if u.AccountID != nil {
		tx.AccountID = *u.AccountID
	}
	if u.AccountName != nil {
		tx.AccountName = *u.AccountName
	}
	if u.Pending != nil {
		tx.Pending = *u.Pending
	}
}

// IsZero reports whether the update carries no fields at all.
func (u TransactionUpdate) IsZero() bool {
	return u.Amount == nil && u.Category == nil && u.Description == nil &&
		u.Date == nil && u.AccountID == nil && u.AccountName == nil && u.Pending == nil
}
