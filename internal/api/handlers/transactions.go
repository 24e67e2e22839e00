package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/budget-tracker/internal/api/middleware"
	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// manualIDPrefix namespaces locally created transactions away from
// aggregator-assigned external ids.
const manualIDPrefix = "manual-"

// TransactionsHandler serves the transaction list and manual CRUD. Manual
// entries bypass the sync engine entirely.
type TransactionsHandler struct {
	transactions store.TransactionStore
	log          zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(transactions store.TransactionStore, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{transactions: transactions, log: log}
}

// List handles GET /api/transactions, ordered by date descending.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	transactions, err := h.transactions.ListTransactions(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

type transactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
}

// Create handles POST /api/transactions for manual entries. The amount is
// signed with the app convention (negative = expense).
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount.IsZero() {
		middleware.WriteError(w, http.StatusBadRequest, "amount is required")
		return
	}
	date, err := time.Parse(domain.DateLayout, req.Date)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	category := req.Category
	if category == "" {
		category = domain.Uncategorized
	}

	tx := domain.Transaction{
		ExternalID:  manualIDPrefix + uuid.NewString(),
		Amount:      req.Amount,
		Category:    category,
		Description: req.Description,
		Date:        date,
	}
	if err := h.transactions.UpsertTransaction(ctx, userID, tx); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to create transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// Update handles PUT /api/transactions/{id} with a partial body: only the
// fields present in the JSON are changed.
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	var req struct {
		Amount      *decimal.Decimal `json:"amount"`
		Category    *string          `json:"category"`
		Description *string          `json:"description"`
		Date        *string          `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	upd := domain.TransactionUpdate{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
	}
	if req.Date != nil {
		date, err := time.Parse(domain.DateLayout, *req.Date)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		upd.Date = &date
	}
	if upd.IsZero() {
		middleware.WriteError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	err := h.transactions.MergeTransaction(ctx, userID, id, upd)
	if errors.Is(err, store.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to update transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update transaction")
		return
	}

	tx, err := h.transactions.GetTransaction(ctx, userID, id)
	if err != nil {
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to reload transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// Delete handles DELETE /api/transactions/{id}. Deleting an absent id
// succeeds, matching the store contract.
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	if err := h.transactions.DeleteTransaction(ctx, userID, id); err != nil {
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to delete transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
