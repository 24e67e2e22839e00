package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/budget-tracker/internal/aggregator"
	"github.com/dvloznov/budget-tracker/internal/api/middleware"
	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/store/inmemory"
	syncer "github.com/dvloznov/budget-tracker/internal/sync"
)

// authed wraps a handler func with the auth middleware and issues a request
// as the given user.
func authed(t *testing.T, h http.HandlerFunc, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+userID)
	rec := httptest.NewRecorder()

	middleware.Auth(middleware.StaticVerifier{})(h).ServeHTTP(rec, req)
	return rec
}

type stubAggregator struct {
	linkToken *aggregator.LinkToken
	exchange  *aggregator.ExchangeResult
	accounts  []aggregator.Account
	pages     []*aggregator.DeltaPage
	err       error
}

func (s *stubAggregator) CreateLinkToken(ctx context.Context, userID string) (*aggregator.LinkToken, error) {
	return s.linkToken, s.err
}

func (s *stubAggregator) ExchangePublicToken(ctx context.Context, publicToken string) (*aggregator.ExchangeResult, error) {
	return s.exchange, s.err
}

func (s *stubAggregator) GetAccounts(ctx context.Context, accessToken string) ([]aggregator.Account, error) {
	return s.accounts, nil
}

func (s *stubAggregator) SyncTransactions(ctx context.Context, accessToken, cursor string) (*aggregator.DeltaPage, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.pages) == 0 {
		return &aggregator.DeltaPage{NextCursor: cursor}, nil
	}
	page := s.pages[0]
	s.pages = s.pages[1:]
	return page, nil
}

func TestLinkHandler_Exchange(t *testing.T) {
	s := inmemory.New()
	agg := &stubAggregator{
		exchange: &aggregator.ExchangeResult{AccessToken: "access-1", ItemID: "item-1"},
		accounts: []aggregator.Account{{AccountID: "acc-1", Name: "Checking", Type: "depository"}},
	}
	h := NewLinkHandler(agg, s, zerolog.Nop())

	rec := authed(t, h.Exchange, http.MethodPost, "/api/link/exchange", "user-1",
		map[string]string{"public_token": "public-1"})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "item-1", resp["item_id"])

	item, err := s.GetItem(context.Background(), "user-1", "item-1")
	require.NoError(t, err)
	assert.Equal(t, "access-1", item.AccessToken)
	require.Len(t, item.Accounts, 1)
	assert.Equal(t, "Checking", item.Accounts[0].Name)
	assert.Empty(t, item.SyncCursor, "new item starts with an empty cursor")
}

func TestLinkHandler_Exchange_MissingToken(t *testing.T) {
	h := NewLinkHandler(&stubAggregator{}, inmemory.New(), zerolog.Nop())

	rec := authed(t, h.Exchange, http.MethodPost, "/api/link/exchange", "user-1", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccountsHandler_HidesCredentials(t *testing.T) {
	s := inmemory.New()
	require.NoError(t, s.PutItem(context.Background(), "user-1", domain.LinkedItem{
		ItemID:      "item-1",
		AccessToken: "super-secret",
		Accounts:    []domain.Account{{AccountID: "acc-1", Name: "Checking"}},
	}))
	h := NewAccountsHandler(s, zerolog.Nop())

	rec := authed(t, h.ListAccounts, http.MethodGet, "/api/accounts", "user-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "super-secret")
	assert.Contains(t, rec.Body.String(), "item-1")
	assert.Contains(t, rec.Body.String(), "Checking")
}

func TestSyncHandler(t *testing.T) {
	s := inmemory.New()
	ctx := context.Background()
	require.NoError(t, s.PutItem(ctx, "user-1", domain.LinkedItem{
		ItemID:      "item-1",
		AccessToken: "tok-1",
	}))

	pending := false
	agg := &stubAggregator{pages: []*aggregator.DeltaPage{{
		Added: []aggregator.TxRecord{{
			TransactionID: "tx-1",
			Amount:        decimal.NewFromFloat(12.50),
			Category:      []string{"Food & Dining"},
			Name:          "CAFE",
			Date:          "2026-08-30",
			Pending:       &pending,
		}},
		NextCursor: "cursor-1",
	}}}
	engine := syncer.NewEngine(s, s, agg)
	h := NewSyncHandler(engine, zerolog.Nop())

	rec := authed(t, h.Sync, http.MethodPost, "/api/sync", "user-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var result syncer.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.TotalSynced)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "item-1", result.Results[0].ItemID)
}

func TestSyncHandler_ItemErrorStillOK(t *testing.T) {
	s := inmemory.New()
	require.NoError(t, s.PutItem(context.Background(), "user-1", domain.LinkedItem{
		ItemID:      "item-1",
		AccessToken: "tok-1",
	}))

	agg := &stubAggregator{err: errors.New("ITEM_LOGIN_REQUIRED")}
	h := NewSyncHandler(syncer.NewEngine(s, s, agg), zerolog.Nop())

	rec := authed(t, h.Sync, http.MethodPost, "/api/sync", "user-1", nil)

	// per-item failures ride inside a 200 response
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ITEM_LOGIN_REQUIRED")
}

func TestTransactionsHandler_ManualCRUD(t *testing.T) {
	s := inmemory.New()
	h := NewTransactionsHandler(s, zerolog.Nop())

	rec := authed(t, h.Create, http.MethodPost, "/api/transactions", "user-1", map[string]any{
		"amount":      "-25.00",
		"category":    "Food",
		"description": "Lunch",
		"date":        "2026-08-28",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Contains(t, created.ExternalID, manualIDPrefix)
	assert.True(t, created.Amount.Equal(decimal.NewFromInt(-25)))

	// partial update: amount only, description survives
	rec = authed(t, func(w http.ResponseWriter, r *http.Request) {
		h.Update(w, r, created.ExternalID)
	}, http.MethodPut, "/api/transactions/"+created.ExternalID, "user-1", map[string]any{
		"amount": "-30.00",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := s.GetTransaction(context.Background(), "user-1", created.ExternalID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(-30)))
	assert.Equal(t, "Lunch", got.Description)

	rec = authed(t, func(w http.ResponseWriter, r *http.Request) {
		h.Delete(w, r, created.ExternalID)
	}, http.MethodDelete, "/api/transactions/"+created.ExternalID, "user-1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	list, err := s.ListTransactions(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTransactionsHandler_Create_BadDate(t *testing.T) {
	h := NewTransactionsHandler(inmemory.New(), zerolog.Nop())

	rec := authed(t, h.Create, http.MethodPost, "/api/transactions", "user-1", map[string]any{
		"amount": "-10",
		"date":   "08/28/2026",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactionsHandler_Update_NotFound(t *testing.T) {
	h := NewTransactionsHandler(inmemory.New(), zerolog.Nop())

	rec := authed(t, func(w http.ResponseWriter, r *http.Request) {
		h.Update(w, r, "missing")
	}, http.MethodPut, "/api/transactions/missing", "user-1", map[string]any{"amount": "-1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBudgetsHandler_ListWithSpend(t *testing.T) {
	s := inmemory.New()
	ctx := context.Background()

	date := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertTransaction(ctx, "user-1", domain.Transaction{
		ExternalID: "tx-1", Category: "Food & Dining", Amount: decimal.NewFromFloat(-45.50), Date: date,
	}))
	require.NoError(t, s.UpsertTransaction(ctx, "user-1", domain.Transaction{
		ExternalID: "tx-2", Category: "Salary", Amount: decimal.NewFromInt(2000), Date: date,
	}))
	require.NoError(t, s.PutBudget(ctx, "user-1", domain.Budget{
		ID: "b1", Category: "Food", Limit: decimal.NewFromInt(200),
	}))

	h := NewBudgetsHandler(s, s, zerolog.Nop())
	rec := authed(t, h.List, http.MethodGet, "/api/budgets", "user-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Budgets []domain.Budget `json:"budgets"`
		Count   int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.True(t, resp.Budgets[0].Spent.Equal(decimal.NewFromFloat(45.50)),
		"income must not count toward spend, got %s", resp.Budgets[0].Spent)
}

func TestBudgetsHandler_Summary(t *testing.T) {
	s := inmemory.New()
	ctx := context.Background()

	// this month, so it counts toward the balance
	now := time.Now().UTC()
	require.NoError(t, s.UpsertTransaction(ctx, "user-1", domain.Transaction{
		ExternalID: "tx-1", Category: "Food & Dining", Amount: decimal.NewFromInt(-180), Date: now,
	}))
	require.NoError(t, s.PutBudget(ctx, "user-1", domain.Budget{
		ID: "b1", Category: "Food", Limit: decimal.NewFromInt(200),
	}))

	h := NewBudgetsHandler(s, s, zerolog.Nop())
	rec := authed(t, h.Summary, http.MethodGet, "/api/summary", "user-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Summary struct {
			TotalBudget  decimal.Decimal `json:"total_budget"`
			TotalSpent   decimal.Decimal `json:"total_spent"`
			PercentSpent float64         `json:"percent_spent"`
		} `json:"summary"`
		MonthBalance decimal.Decimal `json:"month_balance"`
		Budgets      []struct {
			Progress float64 `json:"progress"`
			Status   string  `json:"status"`
		} `json:"budgets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.True(t, resp.Summary.TotalSpent.Equal(decimal.NewFromInt(180)))
	assert.True(t, resp.MonthBalance.Equal(decimal.NewFromInt(-180)))
	require.Len(t, resp.Budgets, 1)
	assert.InDelta(t, 90.0, resp.Budgets[0].Progress, 0.001)
	assert.Equal(t, "warning", resp.Budgets[0].Status)
}

func TestBudgetsHandler_Create_Validation(t *testing.T) {
	h := NewBudgetsHandler(inmemory.New(), inmemory.New(), zerolog.Nop())

	rec := authed(t, h.Create, http.MethodPost, "/api/budgets", "user-1", map[string]any{
		"category": "Food",
		"limit":    "-5",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = authed(t, h.Create, http.MethodPost, "/api/budgets", "user-1", map[string]any{
		"limit": "100",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
