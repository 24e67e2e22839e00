// Package firestore is the production store backend. Records live in
// per-user subcollections (users/{uid}/items, users/{uid}/transactions,
// users/{uid}/budgets), mirroring the document layout the web client reads.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/dvloznov/budget-tracker/internal/store"
)

const (
	usersCollection        = "users"
	itemsCollection        = "items"
	transactionsCollection = "transactions"
	budgetsCollection      = "budgets"
)

// Store is the Firestore-backed implementation of the store interfaces.
// It holds a shared client to avoid opening a new connection per operation.
type Store struct {
	client *firestore.Client
}

// New creates a Store for the given project.
func New(ctx context.Context, projectID string) (*Store, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.New: creating client: %w", err)
	}
	return &Store{client: client}, nil
}

// Close closes the underlying client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *Store) userDoc(userID string) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(userID)
}

// Ensure Store implements the store interfaces.
var (
	_ store.ItemStore        = (*Store)(nil)
	_ store.TransactionStore = (*Store)(nil)
	_ store.BudgetStore      = (*Store)(nil)
)
