package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/budget-tracker/internal/api/middleware"
	syncer "github.com/dvloznov/budget-tracker/internal/sync"
)

// SyncHandler triggers an on-demand sync for the authenticated user.
type SyncHandler struct {
	engine *syncer.Engine
	log    zerolog.Logger
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(engine *syncer.Engine, log zerolog.Logger) *SyncHandler {
	return &SyncHandler{engine: engine, log: log}
}

// Sync handles POST /api/sync. The response mixes per-item successes and
// failures; only a failure to read the item list at all is a 500.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	result, err := h.engine.SyncUser(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Sync failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Sync failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}
