package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/budget-tracker/internal/aggregator"
	"github.com/dvloznov/budget-tracker/internal/api/middleware"
	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// LinkHandler drives the bank-account linking flow against the aggregator.
type LinkHandler struct {
	client aggregator.Client
	items  store.ItemStore
	log    zerolog.Logger
}

// NewLinkHandler creates a new link handler.
func NewLinkHandler(client aggregator.Client, items store.ItemStore, log zerolog.Logger) *LinkHandler {
	return &LinkHandler{client: client, items: items, log: log}
}

// CreateLinkToken handles POST /api/link/token
func (h *LinkHandler) CreateLinkToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	token, err := h.client.CreateLinkToken(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to create link token")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to create link token")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, token)
}

// Exchange handles POST /api/link/exchange. It trades the public token from
// a completed link flow for a durable credential, fetches the accounts
// behind it and stores the linked item with an empty cursor so the first
// sync runs from the beginning of history.
func (h *LinkHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	var req struct {
		PublicToken string `json:"public_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PublicToken == "" {
		middleware.WriteError(w, http.StatusBadRequest, "public_token is required")
		return
	}

	exchange, err := h.client.ExchangePublicToken(ctx, req.PublicToken)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to exchange public token")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to exchange public token")
		return
	}

	accounts, err := h.client.GetAccounts(ctx, exchange.AccessToken)
	if err != nil {
		// Non-fatal: the item still syncs, account names are display sugar.
		h.log.Warn().Err(err).Str("item_id", exchange.ItemID).Msg("Failed to fetch accounts for new item")
	}

	item := domain.LinkedItem{
		ItemID:      exchange.ItemID,
		AccessToken: exchange.AccessToken,
		Accounts:    toDomainAccounts(accounts),
	}
	if err := h.items.PutItem(ctx, userID, item); err != nil {
		h.log.Error().Err(err).Str("item_id", exchange.ItemID).Msg("Failed to store linked item")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store linked item")
		return
	}

	h.log.Info().
		Str("user_id", userID).
		Str("item_id", exchange.ItemID).
		Int("accounts", len(accounts)).
		Msg("Bank account linked")

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"item_id": exchange.ItemID})
}

func toDomainAccounts(accounts []aggregator.Account) []domain.Account {
	result := make([]domain.Account, len(accounts))
	for i, acc := range accounts {
		result[i] = domain.Account(acc)
	}
	return result
}

// AccountsHandler lists linked items and their accounts.
type AccountsHandler struct {
	items store.ItemStore
	log   zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(items store.ItemStore, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{items: items, log: log}
}

// ListAccounts handles GET /api/accounts. Access credentials never appear
// in the response; LinkedItem hides them from the JSON encoder.
func (h *AccountsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	items, err := h.items.ListItems(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list linked items")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list accounts")
		return
	}

	if items == nil {
		items = []domain.LinkedItem{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}
