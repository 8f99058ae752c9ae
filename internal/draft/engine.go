// Package draft implements the draft lifecycle engine: the single current
// draft being edited, its photos, completion, purge and bulk duplication.
//
// Every operation writes through to the store before the in-memory view is
// updated and published to subscribers, and operations are serialized, so a
// subscriber never observes state that is not durable.
package draft

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/popis/internal/imaging"
	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/store"
)

// Compressor turns an uploaded image into a stored blob and thumbnail.
type Compressor interface {
	Compress(r io.Reader) (*imaging.Result, error)
}

// Engine owns the current draft and its photos.
type Engine struct {
	store      store.Repository
	compressor Compressor
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string

	mu             sync.Mutex
	current        *model.Draft
	photos         []model.Photo
	completedCount int

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces random UUIDs, for tests.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// New creates an engine over repo. Call Resume, NewDraft or Load to pick the
// current draft.
func New(repo store.Repository, compressor Compressor, opts ...Option) *Engine {
	e := &Engine{
		store:      repo,
		compressor: compressor,
		logger:     slog.Default(),
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
		subs:       map[int]chan Snapshot{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) nowMillis() int64 {
	return e.now().UnixMilli()
}

// NewDraft creates an empty draft, persists it and makes it current.
func (e *Engine) NewDraft(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d := model.NewDraft(e.newID(), e.nowMillis())
	if err := e.activate(ctx, d); err != nil {
		return "", err
	}
	e.publish()
	return d.ID, nil
}

// Load makes the draft with the given id current. An unknown id is not an
// error: an empty draft is created under that id instead.
func (e *Engine) Load(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.load(ctx, id); err != nil {
		return err
	}
	e.publish()
	return nil
}

// Resume restores the draft that was current before the last shutdown, or
// starts a new one when there is none or it has since been completed.
func (e *Engine) Resume(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := e.store.GetSetting(ctx, store.SettingCurrentDraftID)
	if err != nil {
		return "", err
	}

	if id != "" {
		d, err := e.store.GetDraft(ctx, id)
		if err != nil {
			return "", err
		}
		if d != nil && !d.IsCompleted() {
			if err := e.load(ctx, id); err != nil {
				return "", err
			}
			e.logger.Info("resumed draft", "draft_id", id)
			e.publish()
			return id, nil
		}
	}

	d := model.NewDraft(e.newID(), e.nowMillis())
	if err := e.activate(ctx, d); err != nil {
		return "", err
	}
	e.publish()
	return d.ID, nil
}

func (e *Engine) load(ctx context.Context, id string) error {
	d, err := e.store.GetDraft(ctx, id)
	if err != nil {
		return err
	}
	if d == nil {
		d = model.NewDraft(id, e.nowMillis())
		if err := e.store.PutDraft(ctx, d); err != nil {
			return err
		}
	}
	if err := e.store.SetSetting(ctx, store.SettingCurrentDraftID, id); err != nil {
		return err
	}

	e.current = d
	if err := e.refreshPhotos(ctx); err != nil {
		return err
	}
	return e.refreshStats(ctx)
}

// activate persists a brand-new draft and makes it current. A new draft has
// no photos, so the photo list is reset without a query.
func (e *Engine) activate(ctx context.Context, d *model.Draft) error {
	err := e.store.InTx(ctx, func(tx store.Repository) error {
		if err := tx.PutDraft(ctx, d); err != nil {
			return err
		}
		return tx.SetSetting(ctx, store.SettingCurrentDraftID, d.ID)
	})
	if err != nil {
		return err
	}

	e.current = d
	e.photos = nil
	return e.refreshStats(ctx)
}

// SetField sets a single field. See SetFields.
func (e *Engine) SetField(ctx context.Context, key string, value any) error {
	return e.SetFields(ctx, map[string]any{key: value})
}

// SetFields merges patch into the current draft's fields. Keys whose value is
// nil or "" are removed. Does nothing when there is no current draft.
func (e *Engine) SetFields(ctx context.Context, patch map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil
	}
	next := e.current.Clone()
	next.Fields.Apply(patch)
	if model.TouchesCode(patch) {
		next.SyncQR()
	}
	next.UpdatedAt = e.nowMillis()

	if err := e.writeDraft(ctx, next); err != nil {
		return err
	}
	e.publish()
	return nil
}

// SetQR stores the scanned code on the draft and in its sealNo and qrCode
// fields, keeping all three in sync.
func (e *Engine) SetQR(ctx context.Context, qr string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil
	}
	next := e.current.Clone()
	next.QR = qr
	next.Fields.Apply(map[string]any{
		model.FieldSealNo: qr,
		model.FieldQRCode: qr,
	})
	next.UpdatedAt = e.nowMillis()

	if err := e.writeDraft(ctx, next); err != nil {
		return err
	}
	e.publish()
	return nil
}

// SelectMaster sets <kind>Id and <kind>Name from a master record and clears
// the selections below it in the same hierarchy. An empty id clears kind too.
func (e *Engine) SelectMaster(ctx context.Context, kind, id string) error {
	if !model.ValidMasterKind(kind) {
		return &model.ValidationError{Message: "unknown master kind: " + kind}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil
	}

	patch := map[string]any{
		model.MasterIDField(kind):   nil,
		model.MasterNameField(kind): nil,
	}
	if id != "" {
		m, err := e.store.GetMaster(ctx, kind, id)
		if err != nil {
			return err
		}
		if m == nil {
			return &model.NotFoundError{Message: kind + " " + id + " not found"}
		}
		patch[model.MasterIDField(kind)] = m.ID
		patch[model.MasterNameField(kind)] = m.Name
	}
	for _, child := range model.MasterDescendants(kind) {
		patch[model.MasterIDField(child)] = nil
		patch[model.MasterNameField(child)] = nil
	}

	next := e.current.Clone()
	next.Fields.Apply(patch)
	next.UpdatedAt = e.nowMillis()

	if err := e.writeDraft(ctx, next); err != nil {
		return err
	}
	e.publish()
	return nil
}

// writeDraft persists next and makes it the current draft.
func (e *Engine) writeDraft(ctx context.Context, next *model.Draft) error {
	if err := e.store.PutDraft(ctx, next); err != nil {
		return err
	}
	e.current = next
	return e.refreshStats(ctx)
}

func (e *Engine) refreshPhotos(ctx context.Context) error {
	if e.current == nil {
		e.photos = nil
		return nil
	}
	photos, err := e.store.ListPhotos(ctx, e.current.ID, true)
	if err != nil {
		return err
	}
	e.photos = photos
	return nil
}

func (e *Engine) refreshStats(ctx context.Context) error {
	n, err := e.store.CountCompletedDrafts(ctx)
	if err != nil {
		return err
	}
	e.completedCount = n
	return nil
}

// ListHistory returns completed drafts ordered by updatedAt.
func (e *Engine) ListHistory(ctx context.Context, order store.Order) ([]model.Draft, error) {
	return e.store.ListCompletedDrafts(ctx, order)
}
