// Package inmemory provides map-backed implementations of the store
// interfaces. Data is lost on restart; the package exists for local
// development and tests, with the Firestore backend used in production.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// Store is an in-memory implementation of ItemStore, TransactionStore and
// BudgetStore. It is safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	items        map[string]map[string]domain.LinkedItem  // userID -> itemID -> item
	transactions map[string]map[string]domain.Transaction // userID -> externalID -> tx
	budgets      map[string]map[string]domain.Budget      // userID -> budgetID -> budget

	subMu   sync.Mutex
	nextSub int
	subs    map[string]map[int]func([]domain.Transaction) // userID -> subID -> callback
}

// Ensure Store implements the store interfaces.
var (
	_ store.ItemStore        = (*Store)(nil)
	_ store.TransactionStore = (*Store)(nil)
	_ store.BudgetStore      = (*Store)(nil)
)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		items:        make(map[string]map[string]domain.LinkedItem),
		transactions: make(map[string]map[string]domain.Transaction),
		budgets:      make(map[string]map[string]domain.Budget),
		subs:         make(map[string]map[int]func([]domain.Transaction)),
	}
}

// ListItems implements store.ItemStore.
func (s *Store) ListItems(ctx context.Context, userID string) ([]domain.LinkedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.LinkedItem, 0, len(s.items[userID]))
	for _, item := range s.items[userID] {
		result = append(result, item)
	}
	return result, nil
}

// GetItem implements store.ItemStore.
func (s *Store) GetItem(ctx context.Context, userID, itemID string) (*domain.LinkedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[userID][itemID]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", itemID, store.ErrNotFound)
	}
	itemCopy := item
	return &itemCopy, nil
}

// PutItem implements store.ItemStore.
func (s *Store) PutItem(ctx context.Context, userID string, item domain.LinkedItem) error {
	if item.ItemID == "" {
		return fmt.Errorf("item id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.items[userID] == nil {
		s.items[userID] = make(map[string]domain.LinkedItem)
	}
	s.items[userID][item.ItemID] = item
	return nil
}

// SaveCursor implements store.ItemStore.
func (s *Store) SaveCursor(ctx context.Context, userID, itemID, cursor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[userID][itemID]
	if !ok {
		return fmt.Errorf("item %s: %w", itemID, store.ErrNotFound)
	}
	item.SyncCursor = cursor
	s.items[userID][itemID] = item
	return nil
}

// MarkSynced implements store.ItemStore.
func (s *Store) MarkSynced(ctx context.Context, userID, itemID, cursor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[userID][itemID]
	if !ok {
		return fmt.Errorf("item %s: %w", itemID, store.ErrNotFound)
	}
	now := timeNow()
	item.SyncCursor = cursor
	item.LastSyncedAt = &now
	s.items[userID][itemID] = item
	return nil
}

// ListUsers implements store.ItemStore.
func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]string, 0, len(s.items))
	for userID, items := range s.items {
		if len(items) > 0 {
			users = append(users, userID)
		}
	}
	sort.Strings(users)
	return users, nil
}

// ListTransactions implements store.TransactionStore.
func (s *Store) ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(userID), nil
}

// GetTransaction implements store.TransactionStore.
func (s *Store) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[userID][id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	txCopy := tx
	return &txCopy, nil
}

// UpsertTransaction implements store.TransactionStore.
func (s *Store) UpsertTransaction(ctx context.Context, userID string, tx domain.Transaction) error {
	if tx.ExternalID == "" {
		return fmt.Errorf("transaction id is required")
	}

	s.mu.Lock()
	if s.transactions[userID] == nil {
		s.transactions[userID] = make(map[string]domain.Transaction)
	}
	s.transactions[userID][tx.ExternalID] = tx
	s.mu.Unlock()

	s.notify(userID)
	return nil
}

// MergeTransaction implements store.TransactionStore.
func (s *Store) MergeTransaction(ctx context.Context, userID, id string, upd domain.TransactionUpdate) error {
	s.mu.Lock()
	tx, ok := s.transactions[userID][id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	upd.Apply(&tx)
	s.transactions[userID][id] = tx
	s.mu.Unlock()

	s.notify(userID)
	return nil
}

// DeleteTransaction implements store.TransactionStore.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	_, existed := s.transactions[userID][id]
	delete(s.transactions[userID], id)
	s.mu.Unlock()

	if existed {
		s.notify(userID)
	}
	return nil
}

// Subscribe implements store.TransactionStore. The callback fires once with
// the current snapshot and again after every mutation of the user's
// transactions.
func (s *Store) Subscribe(ctx context.Context, userID string, fn func([]domain.Transaction)) (func(), error) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	if s.subs[userID] == nil {
		s.subs[userID] = make(map[int]func([]domain.Transaction))
	}
	s.subs[userID][id] = fn
	s.subMu.Unlock()

	s.mu.RLock()
	snapshot := s.snapshotLocked(userID)
	s.mu.RUnlock()
	fn(snapshot)

	cancel := func() {
		s.subMu.Lock()
		delete(s.subs[userID], id)
		s.subMu.Unlock()
	}
	return cancel, nil
}

// ListBudgets implements store.BudgetStore.
func (s *Store) ListBudgets(ctx context.Context, userID string) ([]domain.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Budget, 0, len(s.budgets[userID]))
	for _, b := range s.budgets[userID] {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Category < result[j].Category })
	return result, nil
}

// PutBudget implements store.BudgetStore.
func (s *Store) PutBudget(ctx context.Context, userID string, b domain.Budget) error {
	if b.ID == "" {
		return fmt.Errorf("budget id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.budgets[userID] == nil {
		s.budgets[userID] = make(map[string]domain.Budget)
	}
	s.budgets[userID][b.ID] = b
	return nil
}

// MergeBudget implements store.BudgetStore.
func (s *Store) MergeBudget(ctx context.Context, userID, id string, upd domain.BudgetUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.budgets[userID][id]
	if !ok {
		return fmt.Errorf("budget %s: %w", id, store.ErrNotFound)
	}
	upd.Apply(&b)
	s.budgets[userID][id] = b
	return nil
}

// DeleteBudget implements store.BudgetStore.
func (s *Store) DeleteBudget(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.budgets[userID], id)
	return nil
}

// snapshotLocked builds a date-descending copy of the user's transactions.
// Callers must hold at least a read lock.
func (s *Store) snapshotLocked(userID string) []domain.Transaction {
	result := make([]domain.Transaction, 0, len(s.transactions[userID]))
	for _, tx := range s.transactions[userID] {
		result = append(result, tx)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].ExternalID < result[j].ExternalID
	})
	return result
}

// notify delivers a fresh snapshot to every subscriber of the user.
func (s *Store) notify(userID string) {
	s.subMu.Lock()
	callbacks := make([]func([]domain.Transaction), 0, len(s.subs[userID]))
	for _, fn := range s.subs[userID] {
		callbacks = append(callbacks, fn)
	}
	s.subMu.Unlock()

	if len(callbacks) == 0 {
		return
	}

	s.mu.RLock()
	snapshot := s.snapshotLocked(userID)
	s.mu.RUnlock()

	for _, fn := range callbacks {
		fn(snapshot)
	}
}

// Ensure Store implements the store interfaces.
var (
	_ store.ItemStore        = (*Store)(nil)
	_ store.TransactionStore = (*Store)(nil)
	_ store.BudgetStore      = (*Store)(nil)
)
