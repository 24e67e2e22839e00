package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// itemDoc is the Firestore document shape for a linked item. The document id
// is the aggregator's item id.
type itemDoc struct {
	AccessToken  string       `firestore:"access_token"`
	Accounts     []accountDoc `firestore:"accounts"`
	SyncCursor   string       `firestore:"sync_cursor"`
	LastSyncedAt *time.Time   `firestore:"last_synced_at"`
}

type accountDoc struct {
	AccountID string `firestore:"account_id"`
	Name      string `firestore:"name"`
	Type      string `firestore:"type"`
	Subtype   string `firestore:"subtype"`
}

func toItemDoc(item domain.LinkedItem) itemDoc {
	accounts := make([]accountDoc, len(item.Accounts))
	for i, acc := range item.Accounts {
		accounts[i] = accountDoc(acc)
	}
	return itemDoc{
		AccessToken:  item.AccessToken,
		Accounts:     accounts,
		SyncCursor:   item.SyncCursor,
		LastSyncedAt: item.LastSyncedAt,
	}
}

func (d itemDoc) toDomain(itemID string) domain.LinkedItem {
	accounts := make([]domain.Account, len(d.Accounts))
	for i, acc := range d.Accounts {
		accounts[i] = domain.Account(acc)
	}
	return domain.LinkedItem{
		ItemID:       itemID,
		AccessToken:  d.AccessToken,
		Accounts:     accounts,
		SyncCursor:   d.SyncCursor,
		LastSyncedAt: d.LastSyncedAt,
	}
}

func (s *Store) itemsCol(userID string) *firestore.CollectionRef {
	return s.userDoc(userID).Collection(itemsCollection)
}

// ListItems implements store.ItemStore.
func (s *Store) ListItems(ctx context.Context, userID string) ([]domain.LinkedItem, error) {
	iter := s.itemsCol(userID).Documents(ctx)
	defer iter.Stop()

	var items []domain.LinkedItem
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListItems: %w", err)
		}

		var doc itemDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("ListItems: decoding item %s: %w", snap.Ref.ID, err)
		}
		items = append(items, doc.toDomain(snap.Ref.ID))
	}
	return items, nil
}

// GetItem implements store.ItemStore.
func (s *Store) GetItem(ctx context.Context, userID, itemID string) (*domain.LinkedItem, error) {
	snap, err := s.itemsCol(userID).Doc(itemID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("item %s: %w", itemID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetItem: %w", err)
	}

	var doc itemDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("GetItem: decoding item %s: %w", itemID, err)
	}
	item := doc.toDomain(itemID)
	return &item, nil
}

// PutItem implements store.ItemStore.
func (s *Store) PutItem(ctx context.Context, userID string, item domain.LinkedItem) error {
	if item.ItemID == "" {
		return fmt.Errorf("item id is required")
	}
	if _, err := s.itemsCol(userID).Doc(item.ItemID).Set(ctx, toItemDoc(item)); err != nil {
		return fmt.Errorf("PutItem: %w", err)
	}
	return nil
}

// SaveCursor implements store.ItemStore.
func (s *Store) SaveCursor(ctx context.Context, userID, itemID, cursor string) error {
	_, err := s.itemsCol(userID).Doc(itemID).Update(ctx, []firestore.Update{
		{Path: "sync_cursor", Value: cursor},
	})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("item %s: %w", itemID, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("SaveCursor: %w", err)
	}
	return nil
}

// MarkSynced implements store.ItemStore.
func (s *Store) MarkSynced(ctx context.Context, userID, itemID, cursor string) error {
	_, err := s.itemsCol(userID).Doc(itemID).Update(ctx, []firestore.Update{
		{Path: "sync_cursor", Value: cursor},
		{Path: "last_synced_at", Value: firestore.ServerTimestamp},
	})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("item %s: %w", itemID, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("MarkSynced: %w", err)
	}
	return nil
}

// ListUsers implements store.ItemStore. User documents exist only as parents
// of subcollections, so this walks the document refs (which include missing
// documents) and keeps those with at least one item.
func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	refs := s.client.Collection(usersCollection).DocumentRefs(ctx)

	var users []string
	for {
		ref, err := refs.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListUsers: %w", err)
		}

		itemIter := ref.Collection(itemsCollection).Limit(1).Documents(ctx)
		_, err = itemIter.Next()
		itemIter.Stop()
		if err == iterator.Done {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("ListUsers: probing items of %s: %w", ref.ID, err)
		}
		users = append(users, ref.ID)
	}
	return users, nil
}
