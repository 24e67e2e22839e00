package store

import (
	"context"
	"errors"

	"github.com/dvloznov/budget-tracker/internal/domain"
)

// ErrNotFound is returned when a record does not exist. Deletes are not
// subject to it: deleting an absent record is a no-op everywhere.
var ErrNotFound = errors.New("store: not found")

// ItemStore persists linked bank connections, partitioned by user.
type ItemStore interface {
	// ListItems returns every linked item belonging to the user. Iteration
	// order is not significant.
	ListItems(ctx context.Context, userID string) ([]domain.LinkedItem, error)

	// GetItem returns one item or ErrNotFound.
	GetItem(ctx context.Context, userID, itemID string) (*domain.LinkedItem, error)

	// PutItem creates or replaces an item.
	PutItem(ctx context.Context, userID string, item domain.LinkedItem) error

	// SaveCursor persists the sync cursor for an item without touching
	// anything else. Called after every successfully applied page.
	SaveCursor(ctx context.Context, userID, itemID, cursor string) error

	// MarkSynced persists the final cursor and the last-synced timestamp
	// after a fully drained feed.
	MarkSynced(ctx context.Context, userID, itemID, cursor string) error

	// ListUsers returns the ids of all users owning at least one item.
	ListUsers(ctx context.Context) ([]string, error)
}

// TransactionStore persists normalized transactions keyed by external id,
// partitioned by user.
type TransactionStore interface {
	// ListTransactions returns the user's transactions ordered by date
	// descending.
	ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)

	// GetTransaction returns one transaction or ErrNotFound.
	GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error)

	// UpsertTransaction creates or fully replaces a transaction.
	UpsertTransaction(ctx context.Context, userID string, tx domain.Transaction) error

	// MergeTransaction applies a partial update to an existing transaction.
	// Returns ErrNotFound when the transaction does not exist.
	MergeTransaction(ctx context.Context, userID, id string, upd domain.TransactionUpdate) error

	// DeleteTransaction removes a transaction. Deleting an absent id is a
	// no-op, not an error.
	DeleteTransaction(ctx context.Context, userID, id string) error

	// Subscribe registers fn to receive the full, date-descending snapshot
	// of the user's transactions on every change, starting with the current
	// state. The returned func cancels the subscription.
	Subscribe(ctx context.Context, userID string, fn func([]domain.Transaction)) (func(), error)
}

// BudgetStore persists user-defined budgets. Spent is derived at read time
// by the budget aggregator and is never written here.
type BudgetStore interface {
	ListBudgets(ctx context.Context, userID string) ([]domain.Budget, error)
	PutBudget(ctx context.Context, userID string, b domain.Budget) error
	MergeBudget(ctx context.Context, userID, id string, upd domain.BudgetUpdate) error
	DeleteBudget(ctx context.Context, userID, id string) error
}
