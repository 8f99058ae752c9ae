package api

import (
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/erazemk/popis/internal/draft"
	"github.com/erazemk/popis/internal/model"
)

// DraftsHandler handles the current-draft endpoints. Every mutation responds
// with the resulting snapshot.
type DraftsHandler struct {
	Engine       *draft.Engine
	PreserveKeys []string
	Logger       *slog.Logger
}

type loadRequest struct {
	ID string `json:"id"`
}

func (r loadRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required),
	)
}

type qrRequest struct {
	QR string `json:"qr"`
}

func (r qrRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.QR, validation.Required),
	)
}

type selectRequest struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (r selectRequest) Validate() error {
	kinds := make([]any, 0, len(model.MasterKinds()))
	for _, k := range model.MasterKinds() {
		kinds = append(kinds, k)
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Kind, validation.Required, validation.In(kinds...)),
	)
}

type completeResponse struct {
	NextDraftID string         `json:"next_draft_id"`
	Snapshot    draft.Snapshot `json:"snapshot"`
}

// Get handles GET /api/draft.
func (h *DraftsHandler) Get(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.Engine.Snapshot())
}

// Create handles POST /api/draft.
func (h *DraftsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Engine.NewDraft(r.Context()); err != nil {
		writeError(w, h.Logger, "failed to create draft", err)
		return
	}
	jsonResponse(w, http.StatusCreated, h.Engine.Snapshot())
}

// Load handles POST /api/draft/load.
func (h *DraftsHandler) Load(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Engine.Load(r.Context(), req.ID); err != nil {
		writeError(w, h.Logger, "failed to load draft", err)
		return
	}
	jsonResponse(w, http.StatusOK, h.Engine.Snapshot())
}

// Clear handles DELETE /api/draft.
func (h *DraftsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.ClearCurrent(r.Context()); err != nil {
		writeError(w, h.Logger, "failed to clear draft", err)
		return
	}
	jsonResponse(w, http.StatusOK, h.Engine.Snapshot())
}

// SetFields handles PATCH /api/draft/fields. A null or empty value removes
// the key.
func (h *DraftsHandler) SetFields(w http.ResponseWriter, r *http.Request) {
	var patch model.Fields
	if err := decodeJSON(r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Engine.SetFields(r.Context(), patch); err != nil {
		writeError(w, h.Logger, "failed to update fields", err)
		return
	}
	jsonResponse(w, http.StatusOK, h.Engine.Snapshot())
}

// SetQR handles PUT /api/draft/qr.
func (h *DraftsHandler) SetQR(w http.ResponseWriter, r *http.Request) {
	var req qrRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Engine.SetQR(r.Context(), req.QR); err != nil {
		writeError(w, h.Logger, "failed to set qr", err)
		return
	}
	jsonResponse(w, http.StatusOK, h.Engine.Snapshot())
}

// Select handles POST /api/draft/select. An empty id clears the selection.
func (h *DraftsHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Engine.SelectMaster(r.Context(), req.Kind, req.ID); err != nil {
		writeError(w, h.Logger, "failed to select master", err)
		return
	}
	jsonResponse(w, http.StatusOK, h.Engine.Snapshot())
}

// Complete handles POST /api/draft/complete.
func (h *DraftsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	nextID, err := h.Engine.CompleteCurrent(r.Context(), draft.CompleteOptions{PreserveKeys: h.PreserveKeys})
	if err != nil {
		writeError(w, h.Logger, "failed to complete draft", err)
		return
	}
	if nextID == "" {
		jsonError(w, http.StatusConflict, "no current draft")
		return
	}
	jsonResponse(w, http.StatusOK, completeResponse{NextDraftID: nextID, Snapshot: h.Engine.Snapshot()})
}
