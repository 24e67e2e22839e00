package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// txDoc is the Firestore document shape for a transaction. The document id
// is the external transaction id (or the locally generated id for manual
// entries). Amounts are stored as strings so no precision is lost in the
// float round-trip.
type txDoc struct {
	Amount      string    `firestore:"amount"`
	Category    string    `firestore:"category"`
	Description string    `firestore:"description"`
	Date        time.Time `firestore:"date"`
	AccountID   string    `firestore:"account_id"`
	AccountName string    `firestore:"account_name"`
	Pending     bool      `firestore:"pending"`
}

func toTxDoc(tx domain.Transaction) txDoc {
	return txDoc{
		Amount:      tx.Amount.String(),
		Category:    tx.Category,
		Description: tx.Description,
		Date:        tx.Date,
		AccountID:   tx.AccountID,
		AccountName: tx.AccountName,
		Pending:     tx.Pending,
	}
}

func (d txDoc) toDomain(id string) (domain.Transaction, error) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: parsing amount %q: %w", id, d.Amount, err)
	}
	return domain.Transaction{
		ExternalID:  id,
		Amount:      amount,
		Category:    d.Category,
		Description: d.Description,
		Date:        d.Date,
		AccountID:   d.AccountID,
		AccountName: d.AccountName,
		Pending:     d.Pending,
	}, nil
}

func (s *Store) txCol(userID string) *firestore.CollectionRef {
	return s.userDoc(userID).Collection(transactionsCollection)
}

func (s *Store) txQuery(userID string) firestore.Query {
	return s.txCol(userID).OrderBy("date", firestore.Desc)
}

// ListTransactions implements store.TransactionStore.
func (s *Store) ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	iter := s.txQuery(userID).Documents(ctx)
	defer iter.Stop()
	return collectTransactions(iter)
}

// GetTransaction implements store.TransactionStore.
func (s *Store) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	snap, err := s.txCol(userID).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}

	var doc txDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("GetTransaction: decoding %s: %w", id, err)
	}
	tx, err := doc.toDomain(id)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	return &tx, nil
}

// UpsertTransaction implements store.TransactionStore.
func (s *Store) UpsertTransaction(ctx context.Context, userID string, tx domain.Transaction) error {
	if tx.ExternalID == "" {
		return fmt.Errorf("transaction id is required")
	}
	if _, err := s.txCol(userID).Doc(tx.ExternalID).Set(ctx, toTxDoc(tx)); err != nil {
		return fmt.Errorf("UpsertTransaction: %w", err)
	}
	return nil
}

// MergeTransaction implements store.TransactionStore. Only the fields set on
// the update are written; Update fails on a missing document, which maps to
// ErrNotFound.
func (s *Store) MergeTransaction(ctx context.Context, userID, id string, upd domain.TransactionUpdate) error {
	var updates []firestore.Update
	if upd.Amount != nil {
		updates = append(updates, firestore.Update{Path: "amount", Value: upd.Amount.String()})
	}
	if upd.Category != nil {
		updates = append(updates, firestore.Update{Path: "category", Value: *upd.Category})
	}
	if upd.Description != nil {
		updates = append(updates, firestore.Update{Path: "description", Value: *upd.Description})
	}
	if upd.Date != nil {
		updates = append(updates, firestore.Update{Path: "date", Value: *upd.Date})
	}
	if upd.AccountID != nil {
		updates = append(updates, firestore.Update{Path: "account_id", Value: *upd.AccountID})
	}
	if upd.AccountName != nil {
		updates = append(updates, firestore.Update{Path: "account_name", Value: *upd.AccountName})
	}
	if upd.Pending != nil {
		updates = append(updates, firestore.Update{Path: "pending", Value: *upd.Pending})
	}
	if len(updates) == 0 {
		return nil
	}

	_, err := s.txCol(userID).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("MergeTransaction: %w", err)
	}
	return nil
}

// DeleteTransaction implements store.TransactionStore. Firestore deletes are
// no-ops for missing documents, matching the store contract.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	if _, err := s.txCol(userID).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	return nil
}

// Subscribe implements store.TransactionStore using Firestore query
// snapshots. The callback receives the full ordered result set on every
// change, never an incremental diff.
func (s *Store) Subscribe(ctx context.Context, userID string, fn func([]domain.Transaction)) (func(), error) {
	subCtx, cancel := context.WithCancel(ctx)
	snapIter := s.txQuery(userID).Snapshots(subCtx)

	go func() {
		defer snapIter.Stop()
		for {
			snap, err := snapIter.Next()
			if err != nil {
				// Canceled on teardown; anything else ends the stream too.
				return
			}
			txs, err := collectTransactions(snap.Documents)
			if err != nil {
				continue
			}
			fn(txs)
		}
	}()

	return cancel, nil
}

func collectTransactions(iter *firestore.DocumentIterator) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing transactions: %w", err)
		}

		var doc txDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decoding transaction %s: %w", snap.Ref.ID, err)
		}
		tx, err := doc.toDomain(snap.Ref.ID)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
