package api

import (
	"log/slog"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/erazemk/popis/internal/draft"
	"github.com/erazemk/popis/internal/history"
	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/store"
)

// HistoryHandler handles completed-draft endpoints.
type HistoryHandler struct {
	History       *history.Service
	Engine        *draft.Engine
	MaxDuplicates int
	Logger        *slog.Logger
}

type duplicateRequest struct {
	Count int `json:"count"`
}

type countResponse struct {
	Count int `json:"count"`
}

// List handles GET /api/history.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := history.Query{
		Order:      store.ParseOrder(q.Get("order")),
		CategoryID: q.Get("category_id"),
		BuildingID: q.Get("building_id"),
		Text:       q.Get("q"),
	}
	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		query.Limit = limit
	}

	drafts, err := h.History.List(r.Context(), query)
	if err != nil {
		writeError(w, h.Logger, "failed to list history", err)
		return
	}
	if drafts == nil {
		drafts = []model.Draft{}
	}
	jsonResponse(w, http.StatusOK, drafts)
}

// Latest handles GET /api/history/latest.
func (h *HistoryHandler) Latest(w http.ResponseWriter, r *http.Request) {
	d, err := h.History.Latest(r.Context())
	if err != nil {
		writeError(w, h.Logger, "failed to get latest entry", err)
		return
	}
	if d == nil {
		jsonError(w, http.StatusNotFound, "no completed drafts")
		return
	}
	jsonResponse(w, http.StatusOK, d)
}

// Reuse handles GET /api/history/{id}/reuse.
func (h *HistoryHandler) Reuse(w http.ResponseWriter, r *http.Request) {
	patch, err := h.History.ReusePatch(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.Logger, "failed to build reuse patch", err)
		return
	}
	jsonResponse(w, http.StatusOK, patch)
}

// ApplyReuse handles POST /api/history/{id}/reuse: the reuse patch is applied
// to the current draft and the new snapshot is returned.
func (h *HistoryHandler) ApplyReuse(w http.ResponseWriter, r *http.Request) {
	if h.Engine.Current() == nil {
		jsonError(w, http.StatusConflict, "no current draft")
		return
	}
	patch, err := h.History.ReusePatch(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.Logger, "failed to build reuse patch", err)
		return
	}
	if err := h.Engine.SetFields(r.Context(), patch); err != nil {
		writeError(w, h.Logger, "failed to apply reuse patch", err)
		return
	}
	jsonResponse(w, http.StatusOK, h.Engine.Snapshot())
}

// Update handles PATCH /api/history/{id}.
func (h *HistoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.Fields
	if err := decodeJSON(r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.History.OverwriteCompletedFields(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, h.Logger, "failed to update history entry", err)
		return
	}
	jsonResponse(w, http.StatusOK, d)
}

// Duplicate handles POST /api/history/{id}/duplicate.
func (h *HistoryHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	var req duplicateRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := validation.ValidateStruct(&req,
		validation.Field(&req.Count, validation.Required, validation.Min(1), validation.Max(h.MaxDuplicates)),
	)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := h.Engine.DuplicateDraft(r.Context(), r.PathValue("id"), req.Count)
	if err != nil {
		writeError(w, h.Logger, "failed to duplicate draft", err)
		return
	}
	jsonResponse(w, http.StatusCreated, countResponse{Count: n})
}

// Purge handles DELETE /api/history.
func (h *HistoryHandler) Purge(w http.ResponseWriter, r *http.Request) {
	n, err := h.Engine.PurgeCompleted(r.Context())
	if err != nil {
		writeError(w, h.Logger, "failed to purge history", err)
		return
	}
	jsonResponse(w, http.StatusOK, countResponse{Count: n})
}
