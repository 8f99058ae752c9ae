package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/store"
)

// MastersHandler serves reference data for pickers.
type MastersHandler struct {
	DB     *sql.DB
	Logger *slog.Logger
}

// List handles GET /api/masters/{kind}.
func (h *MastersHandler) List(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	if !model.ValidMasterKind(kind) {
		jsonError(w, http.StatusNotFound, "unknown master kind")
		return
	}

	masters, err := store.ListMasters(r.Context(), h.DB, kind, r.URL.Query().Get("parent_id"))
	if err != nil {
		writeError(w, h.Logger, "failed to list masters", err)
		return
	}
	if masters == nil {
		masters = []model.Master{}
	}
	jsonResponse(w, http.StatusOK, masters)
}
