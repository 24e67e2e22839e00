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
	"github.com/dvloznov/budget-tracker/internal/budget"
	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// BudgetsHandler serves budget CRUD and the derived spending figures.
// Spent is recomputed from the current transaction set on every read.
type BudgetsHandler struct {
	budgets      store.BudgetStore
	transactions store.TransactionStore
	log          zerolog.Logger
}

// NewBudgetsHandler creates a new budgets handler.
func NewBudgetsHandler(budgets store.BudgetStore, transactions store.TransactionStore, log zerolog.Logger) *BudgetsHandler {
	return &BudgetsHandler{budgets: budgets, transactions: transactions, log: log}
}

// loadWithSpend reads the user's budgets and populates Spent from the
// current transactions.
func (h *BudgetsHandler) loadWithSpend(r *http.Request) ([]domain.Budget, []domain.Transaction, error) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	budgets, err := h.budgets.ListBudgets(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	transactions, err := h.transactions.ListTransactions(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return budget.ComputeSpend(budgets, transactions), transactions, nil
}

// List handles GET /api/budgets.
func (h *BudgetsHandler) List(w http.ResponseWriter, r *http.Request) {
	budgets, _, err := h.loadWithSpend(r)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list budgets")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list budgets")
		return
	}

	if budgets == nil {
		budgets = []domain.Budget{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"budgets": budgets,
		"count":   len(budgets),
	})
}

// Summary handles GET /api/summary: budget totals plus the signed balance
// of the current calendar month.
func (h *BudgetsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	budgets, transactions, err := h.loadWithSpend(r)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute summary")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute summary")
		return
	}

	summary := budget.ComputeSummary(budgets)
	balance := budget.CurrentMonthBalance(transactions, time.Now().UTC())

	views := make([]budgetView, len(budgets))
	for i, b := range budgets {
		views[i] = budgetView{
			Budget:   b,
			Progress: budget.Progress(b.Spent, b.Limit),
			Status:   budget.StatusFor(b.Spent, b.Limit),
		}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"summary":       summary,
		"month_balance": balance,
		"budgets":       views,
	})
}

// budgetView decorates a budget with its display progress and status.
type budgetView struct {
	domain.Budget
	Progress float64 `json:"progress"`
	Status   string  `json:"status"`
}

type budgetRequest struct {
	Category string          `json:"category"`
	Limit    decimal.Decimal `json:"limit"`
}

// Create handles POST /api/budgets.
func (h *BudgetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	var req budgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Category == "" {
		middleware.WriteError(w, http.StatusBadRequest, "category is required")
		return
	}
	if !req.Limit.IsPositive() {
		middleware.WriteError(w, http.StatusBadRequest, "limit must be positive")
		return
	}

	b := domain.Budget{
		ID:       uuid.NewString(),
		Category: req.Category,
		Limit:    req.Limit,
	}
	if err := h.budgets.PutBudget(ctx, userID, b); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to create budget")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create budget")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, b)
}

// Update handles PUT /api/budgets/{id} with a partial body.
func (h *BudgetsHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	var req struct {
		Category *string          `json:"category"`
		Limit    *decimal.Decimal `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Limit != nil && !req.Limit.IsPositive() {
		middleware.WriteError(w, http.StatusBadRequest, "limit must be positive")
		return
	}

	err := h.budgets.MergeBudget(ctx, userID, id, domain.BudgetUpdate{
		Category: req.Category,
		Limit:    req.Limit,
	})
	if errors.Is(err, store.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Budget not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("budget_id", id).Msg("Failed to update budget")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update budget")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/budgets/{id}.
func (h *BudgetsHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	if err := h.budgets.DeleteBudget(ctx, userID, id); err != nil {
		h.log.Error().Err(err).Str("budget_id", id).Msg("Failed to delete budget")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete budget")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
