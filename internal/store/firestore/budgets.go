package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// budgetDoc is the Firestore document shape for a budget. Spent is derived
// and deliberately has no field here.
type budgetDoc struct {
	Category string `firestore:"category"`
	Limit    string `firestore:"limit"`
}

func (s *Store) budgetsCol(userID string) *firestore.CollectionRef {
	return s.userDoc(userID).Collection(budgetsCollection)
}

// ListBudgets implements store.BudgetStore.
func (s *Store) ListBudgets(ctx context.Context, userID string) ([]domain.Budget, error) {
	iter := s.budgetsCol(userID).OrderBy("category", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var budgets []domain.Budget
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListBudgets: %w", err)
		}

		var doc budgetDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("ListBudgets: decoding %s: %w", snap.Ref.ID, err)
		}
		limit, err := decimal.NewFromString(doc.Limit)
		if err != nil {
			return nil, fmt.Errorf("ListBudgets: budget %s: parsing limit %q: %w", snap.Ref.ID, doc.Limit, err)
		}
		budgets = append(budgets, domain.Budget{
			ID:       snap.Ref.ID,
			Category: doc.Category,
			Limit:    limit,
		})
	}
	return budgets, nil
}

// PutBudget implements store.BudgetStore.
func (s *Store) PutBudget(ctx context.Context, userID string, b domain.Budget) error {
	if b.ID == "" {
		return fmt.Errorf("budget id is required")
	}
	doc := budgetDoc{Category: b.Category, Limit: b.Limit.String()}
	if _, err := s.budgetsCol(userID).Doc(b.ID).Set(ctx, doc); err != nil {
		return fmt.Errorf("PutBudget: %w", err)
	}
	return nil
}

// MergeBudget implements store.BudgetStore.
func (s *Store) MergeBudget(ctx context.Context, userID, id string, upd domain.BudgetUpdate) error {
	var updates []firestore.Update
	if upd.Category != nil {
		updates = append(updates, firestore.Update{Path: "category", Value: *upd.Category})
	}
	if upd.Limit != nil {
		updates = append(updates, firestore.Update{Path: "limit", Value: upd.Limit.String()})
	}
	if len(updates) == 0 {
		return nil
	}

	_, err := s.budgetsCol(userID).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("budget %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("MergeBudget: %w", err)
	}
	return nil
}

// DeleteBudget implements store.BudgetStore.
func (s *Store) DeleteBudget(ctx context.Context, userID, id string) error {
	if _, err := s.budgetsCol(userID).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("DeleteBudget: %w", err)
	}
	return nil
}
