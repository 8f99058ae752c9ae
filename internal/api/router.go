package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/popis/internal/draft"
	"github.com/erazemk/popis/internal/history"
)

// Options are the dependencies of the API router.
type Options struct {
	DB      *sql.DB
	Engine  *draft.Engine
	History *history.Service
	Logger  *slog.Logger

	// PreserveKeys are carried into the next draft on completion.
	PreserveKeys []string
	// MaxDuplicates caps a single duplication request.
	MaxDuplicates int
	// KeepAlive is the interval between SSE keep-alive comments.
	KeepAlive time.Duration
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 15 * time.Second
	}
	if opts.MaxDuplicates <= 0 {
		opts.MaxDuplicates = 500
	}

	mux := http.NewServeMux()

	draftsHandler := &DraftsHandler{Engine: opts.Engine, PreserveKeys: opts.PreserveKeys, Logger: opts.Logger}
	photosHandler := &PhotosHandler{DB: opts.DB, Engine: opts.Engine, Logger: opts.Logger}
	historyHandler := &HistoryHandler{
		History:       opts.History,
		Engine:        opts.Engine,
		MaxDuplicates: opts.MaxDuplicates,
		Logger:        opts.Logger,
	}
	mastersHandler := &MastersHandler{DB: opts.DB, Logger: opts.Logger}
	eventsHandler := &EventsHandler{Engine: opts.Engine, KeepAlive: opts.KeepAlive, Logger: opts.Logger}

	// Current draft.
	mux.HandleFunc("GET /api/draft", draftsHandler.Get)
	mux.HandleFunc("POST /api/draft", draftsHandler.Create)
	mux.HandleFunc("POST /api/draft/load", draftsHandler.Load)
	mux.HandleFunc("DELETE /api/draft", draftsHandler.Clear)
	mux.HandleFunc("PATCH /api/draft/fields", draftsHandler.SetFields)
	mux.HandleFunc("PUT /api/draft/qr", draftsHandler.SetQR)
	mux.HandleFunc("POST /api/draft/select", draftsHandler.Select)
	mux.HandleFunc("POST /api/draft/complete", draftsHandler.Complete)
	mux.HandleFunc("GET /api/draft/events", eventsHandler.Stream)

	// Photos of the current draft.
	mux.HandleFunc("POST /api/draft/photos", photosHandler.Attach)
	mux.HandleFunc("POST /api/draft/photos/{id}/toggle", photosHandler.Toggle)
	mux.HandleFunc("DELETE /api/draft/photos/{id}", photosHandler.Remove)
	mux.HandleFunc("GET /api/photos/{id}/image", photosHandler.Image)
	mux.HandleFunc("GET /api/photos/{id}/thumb", photosHandler.Thumb)

	// Completed drafts.
	mux.HandleFunc("GET /api/history", historyHandler.List)
	mux.HandleFunc("GET /api/history/latest", historyHandler.Latest)
	mux.HandleFunc("GET /api/history/{id}/reuse", historyHandler.Reuse)
	mux.HandleFunc("POST /api/history/{id}/reuse", historyHandler.ApplyReuse)
	mux.HandleFunc("PATCH /api/history/{id}", historyHandler.Update)
	mux.HandleFunc("POST /api/history/{id}/duplicate", historyHandler.Duplicate)
	mux.HandleFunc("DELETE /api/history", historyHandler.Purge)

	// Reference data.
	mux.HandleFunc("GET /api/masters/{kind}", mastersHandler.List)

	return mux
}
