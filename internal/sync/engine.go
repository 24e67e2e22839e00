// Package sync brings each user's linked items up to date with the
// aggregator's transaction delta feed and reflects the changes in the
// transaction store.
package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/dvloznov/budget-tracker/internal/aggregator"
	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// ErrNoCredential marks a linked item with no usable access credential.
// Such items are reported as failed without an aggregator call.
var ErrNoCredential = errors.New("linked item has no access credential")

// ItemResult is the per-item outcome of a sync run. Exactly one of Synced
// or Error is meaningful.
type ItemResult struct {
	ItemID string `json:"item_id"`
	Synced int    `json:"synced"`
	Error  string `json:"error,omitempty"`
}

// Failed reports whether this item's drain ended in an error.
func (r ItemResult) Failed() bool {
	return r.Error != ""
}

// Result is the overall outcome of one SyncUser call. Results mixes success
// and failure entries; one failed item never hides its siblings.
type Result struct {
	TotalSynced int          `json:"total_synced"`
	Results     []ItemResult `json:"results"`
}

// Engine drains the aggregator delta feed for every linked item of a user
// and applies added/modified/removed deltas to the transaction store.
//
// All writes are idempotent (upsert by external id, delete-if-present), so a
// sync resumed from the last persisted cursor converges to the same final
// state even when deltas are re-delivered.
type Engine struct {
	items        store.ItemStore
	transactions store.TransactionStore
	client       aggregator.Client

	mu    gosync.Mutex
	locks map[string]*gosync.Mutex
}

// NewEngine creates a sync engine over the given stores and client.
func NewEngine(items store.ItemStore, transactions store.TransactionStore, client aggregator.Client) *Engine {
	return &Engine{
		items:        items,
		transactions: transactions,
		client:       client,
		locks:        make(map[string]*gosync.Mutex),
	}
}

// userLock returns the mutex serializing syncs for one user. Overlapping
// SyncUser calls for the same user (manual button plus auto-sync) would
// otherwise race on cursor persistence.
func (e *Engine) userLock(userID string) *gosync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.locks[userID]
	if !ok {
		l = &gosync.Mutex{}
		e.locks[userID] = l
	}
	return l
}

// SyncUser drains the delta feed for every linked item of the user. It only
// returns an error when the item list itself cannot be read; item-level
// failures are recovered and reported inside the Result.
func (e *Engine) SyncUser(ctx context.Context, userID string) (*Result, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	log := logger.FromContext(ctx).With().Str("user_id", userID).Logger()

	items, err := e.items.ListItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("SyncUser: listing items: %w", err)
	}

	result := &Result{Results: make([]ItemResult, 0, len(items))}
	if len(items) == 0 {
		log.Debug().Msg("No linked items to sync")
		return result, nil
	}

	for _, item := range items {
		itemLog := log.With().Str("item_id", item.ItemID).Logger()

		synced, err := e.syncItem(ctx, userID, item)
		if err != nil {
			itemLog.Warn().Err(err).Msg("Item sync failed")
			result.Results = append(result.Results, ItemResult{ItemID: item.ItemID, Error: err.Error()})
			continue
		}

		itemLog.Info().Int("synced", synced).Msg("Item synced")
		result.Results = append(result.Results, ItemResult{ItemID: item.ItemID, Synced: synced})
		result.TotalSynced += synced
	}

	log.Info().
		Int("items", len(items)).
		Int("total_synced", result.TotalSynced).
		Msg("Sync completed")

	return result, nil
}

// syncItem drains one item's feed page by page. The cursor is persisted
// after every applied page, so a failure mid-drain resumes from the last
// good page rather than the beginning.
func (e *Engine) syncItem(ctx context.Context, userID string, item domain.LinkedItem) (int, error) {
	if item.AccessToken == "" {
		return 0, fmt.Errorf("item %s: %w", item.ItemID, ErrNoCredential)
	}

	cursor := item.SyncCursor
	synced := 0

	for {
		page, err := e.client.SyncTransactions(ctx, item.AccessToken, cursor)
		if err != nil {
			return synced, fmt.Errorf("fetching deltas: %w", err)
		}

		applied, err := e.applyPage(ctx, userID, item, page)
		synced += applied
		if err != nil {
			return synced, err
		}

		cursor = page.NextCursor
		if err := e.items.SaveCursor(ctx, userID, item.ItemID, cursor); err != nil {
			return synced, fmt.Errorf("persisting cursor: %w", err)
		}

		if !page.HasMore {
			break
		}
	}

	if err := e.items.MarkSynced(ctx, userID, item.ItemID, cursor); err != nil {
		return synced, fmt.Errorf("recording sync time: %w", err)
	}
	return synced, nil
}

// applyPage applies one page's deltas in feed order: adds and modifies
// first, then removals. Returns how many deltas were applied before any
// error.
func (e *Engine) applyPage(ctx context.Context, userID string, item domain.LinkedItem, page *aggregator.DeltaPage) (int, error) {
	applied := 0

	for _, rec := range page.Added {
		tx, err := normalizeRecord(item, rec)
		if err != nil {
			return applied, fmt.Errorf("added record %s: %w", rec.TransactionID, err)
		}
		if err := e.transactions.UpsertTransaction(ctx, userID, tx); err != nil {
			return applied, fmt.Errorf("upserting %s: %w", rec.TransactionID, err)
		}
		applied++
	}

	for _, rec := range page.Modified {
		upd, err := normalizeUpdate(item, rec)
		if err != nil {
			return applied, fmt.Errorf("modified record %s: %w", rec.TransactionID, err)
		}
		err = e.transactions.MergeTransaction(ctx, userID, rec.TransactionID, upd)
		if errors.Is(err, store.ErrNotFound) {
			// A modify for a record we never saw (e.g. synced before this
			// backend existed): fall back to a full upsert.
			tx, nerr := normalizeRecord(item, rec)
			if nerr != nil {
				return applied, fmt.Errorf("modified record %s: %w", rec.TransactionID, nerr)
			}
			err = e.transactions.UpsertTransaction(ctx, userID, tx)
		}
		if err != nil {
			return applied, fmt.Errorf("merging %s: %w", rec.TransactionID, err)
		}
		applied++
	}

	for _, rec := range page.Removed {
		if err := e.transactions.DeleteTransaction(ctx, userID, rec.TransactionID); err != nil {
			return applied, fmt.Errorf("deleting %s: %w", rec.TransactionID, err)
		}
		applied++
	}

	return applied, nil
}

// normalizeRecord converts a feed record into the stored representation:
// the amount sign is flipped to the app convention (positive = inflow), the
// category taxonomy collapses to its head element, and the account name is
// denormalized from the owning item.
func normalizeRecord(item domain.LinkedItem, rec aggregator.TxRecord) (domain.Transaction, error) {
	date, err := time.Parse(domain.DateLayout, rec.Date)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parsing date %q: %w", rec.Date, err)
	}

	category := domain.Uncategorized
	if len(rec.Category) > 0 && rec.Category[0] != "" {
		category = rec.Category[0]
	}

	pending := false
	if rec.Pending != nil {
		pending = *rec.Pending
	}

	return domain.Transaction{
		ExternalID:  rec.TransactionID,
		Amount:      rec.Amount.Neg(),
		Category:    category,
		Description: rec.Name,
		Date:        date,
		AccountID:   rec.AccountID,
		AccountName: item.AccountName(rec.AccountID),
		Pending:     pending,
	}, nil
}

// normalizeUpdate converts a modify-delta record into a partial update.
// Only fields the feed actually carried are set, so a sparse modify payload
// never erases previously synced values.
func normalizeUpdate(item domain.LinkedItem, rec aggregator.TxRecord) (domain.TransactionUpdate, error) {
	amount := rec.Amount.Neg()
	upd := domain.TransactionUpdate{
		Amount:  &amount,
		Pending: rec.Pending,
	}

	if rec.Date != "" {
		date, err := time.Parse(domain.DateLayout, rec.Date)
		if err != nil {
			return domain.TransactionUpdate{}, fmt.Errorf("parsing date %q: %w", rec.Date, err)
		}
		upd.Date = &date
	}
	if rec.Name != "" {
		upd.Description = &rec.Name
	}
	if len(rec.Category) > 0 && rec.Category[0] != "" {
		upd.Category = &rec.Category[0]
	}
	if rec.AccountID != "" {
		upd.AccountID = &rec.AccountID
		name := item.AccountName(rec.AccountID)
		upd.AccountName = &name
	}
	return upd, nil
}
