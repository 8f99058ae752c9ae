package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/popis/internal/draft"
	"github.com/erazemk/popis/internal/store"
)

// maxPhotoUpload is the largest accepted photo upload.
const maxPhotoUpload = 20 << 20

// PhotosHandler handles photo upload, selection and download.
type PhotosHandler struct {
	DB     *sql.DB
	Engine *draft.Engine
	Logger *slog.Logger
}

// Attach handles POST /api/draft/photos.
func (h *PhotosHandler) Attach(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoUpload)

	if err := r.ParseMultipartForm(maxPhotoUpload); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "photo file required")
		return
	}
	defer file.Close()

	photo, err := h.Engine.AttachPhoto(r.Context(), file)
	if err != nil {
		writeError(w, h.Logger, "failed to attach photo", err)
		return
	}
	if photo == nil {
		jsonError(w, http.StatusConflict, "no current draft")
		return
	}
	jsonResponse(w, http.StatusCreated, photo)
}

// Toggle handles POST /api/draft/photos/{id}/toggle.
func (h *PhotosHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.TogglePhotoForList(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, h.Logger, "failed to toggle photo", err)
		return
	}
	jsonResponse(w, http.StatusOK, h.Engine.Snapshot())
}

// Remove handles DELETE /api/draft/photos/{id}.
func (h *PhotosHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.RemovePhoto(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, h.Logger, "failed to remove photo", err)
		return
	}
	jsonResponse(w, http.StatusOK, h.Engine.Snapshot())
}

// Image handles GET /api/photos/{id}/image.
func (h *PhotosHandler) Image(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, false)
}

// Thumb handles GET /api/photos/{id}/thumb.
func (h *PhotosHandler) Thumb(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, true)
}

func (h *PhotosHandler) serve(w http.ResponseWriter, r *http.Request, thumb bool) {
	photo, err := store.GetPhoto(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		writeError(w, h.Logger, "failed to get photo", err)
		return
	}
	if photo == nil {
		jsonError(w, http.StatusNotFound, "photo not found")
		return
	}

	data, mime := photo.Blob, photo.MIME
	if thumb {
		data, mime = photo.Thumb, "image/jpeg"
	}

	// Photos are immutable once stored.
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	if !thumb && photo.Checksum != "" {
		w.Header().Set("ETag", `"`+photo.Checksum+`"`)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
