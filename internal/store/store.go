package store

import (
	"context"
	"database/sql"

	"github.com/erazemk/popis/internal/model"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Order is a sort direction for ordered scans.
type Order string

// Sort directions.
const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ParseOrder maps "desc" to Desc and anything else to Asc.
func ParseOrder(s string) Order {
	if s == string(Desc) {
		return Desc
	}
	return Asc
}

func (o Order) sql() string {
	if o == Desc {
		return "DESC"
	}
	return "ASC"
}

func storageErr(op string, err error) error {
	return &model.StorageError{Op: op, Err: err}
}

// Repository is the persistence contract the draft engine and the history
// service depend on. *Store is the SQLite implementation.
type Repository interface {
	InTx(ctx context.Context, fn func(tx Repository) error) error

	GetDraft(ctx context.Context, id string) (*model.Draft, error)
	PutDraft(ctx context.Context, d *model.Draft) error
	DeleteDraft(ctx context.Context, id string) error
	ListCompletedDrafts(ctx context.Context, order Order) ([]model.Draft, error)
	CountCompletedDrafts(ctx context.Context) (int, error)
	FindDraftsByCode(ctx context.Context, code string) ([]model.Draft, error)

	GetPhoto(ctx context.Context, id string) (*model.Photo, error)
	PutPhoto(ctx context.Context, p *model.Photo) error
	DeletePhoto(ctx context.Context, id string) error
	ListPhotos(ctx context.Context, draftID string, newestFirst bool) ([]model.Photo, error)
	CountPhotos(ctx context.Context, draftID string) (int, error)
	DeletePhotosByDraft(ctx context.Context, draftID string) error
	CopyPhoto(ctx context.Context, srcID, newID, draftID string, createdAt int64) error
	SetPhotoSelected(ctx context.Context, id string, selected bool) error

	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error

	GetMaster(ctx context.Context, kind, id string) (*model.Master, error)
	ListMasters(ctx context.Context, kind, parentID string) ([]model.Master, error)
}

var _ Repository = (*Store)(nil)

// Store binds the package functions to a database handle. Inside InTx the
// handle is the transaction, so every call made through the Store passed to
// the callback joins it.
type Store struct {
	db *sql.DB
	q  Querier
}

// New returns a Store backed by db.
func New(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// DB returns the underlying database.
func (s *Store) DB() *sql.DB { return s.db }

// InTx runs fn in a transaction. Nothing fn wrote is visible if it returns an
// error. Nested calls reuse the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx Repository) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("beginning transaction", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageErr("committing transaction", err)
	}
	return nil
}

// GetDraft returns the draft with id, or nil when it does not exist.
func (s *Store) GetDraft(ctx context.Context, id string) (*model.Draft, error) {
	return GetDraft(ctx, s.q, id)
}

// PutDraft inserts or updates d.
func (s *Store) PutDraft(ctx context.Context, d *model.Draft) error {
	return PutDraft(ctx, s.q, d)
}

// DeleteDraft deletes a draft; its photos cascade.
func (s *Store) DeleteDraft(ctx context.Context, id string) error {
	return DeleteDraft(ctx, s.q, id)
}

// ListDrafts returns every draft ordered by updated_at.
func (s *Store) ListDrafts(ctx context.Context, order Order) ([]model.Draft, error) {
	return ListDrafts(ctx, s.q, order)
}

// ListCompletedDrafts returns completed drafts ordered by updated_at.
func (s *Store) ListCompletedDrafts(ctx context.Context, order Order) ([]model.Draft, error) {
	return ListCompletedDrafts(ctx, s.q, order)
}

// CountCompletedDrafts counts completed drafts.
func (s *Store) CountCompletedDrafts(ctx context.Context) (int, error) {
	return CountCompletedDrafts(ctx, s.q)
}

// FindDraftsByCode returns drafts carrying code, newest first.
func (s *Store) FindDraftsByCode(ctx context.Context, code string) ([]model.Draft, error) {
	return FindDraftsByCode(ctx, s.q, code)
}

// GetPhoto returns the photo with id including its blob, or nil.
func (s *Store) GetPhoto(ctx context.Context, id string) (*model.Photo, error) {
	return GetPhoto(ctx, s.q, id)
}

// PutPhoto stores a new photo.
func (s *Store) PutPhoto(ctx context.Context, p *model.Photo) error {
	return PutPhoto(ctx, s.q, p)
}

// DeletePhoto deletes one photo.
func (s *Store) DeletePhoto(ctx context.Context, id string) error {
	return DeletePhoto(ctx, s.q, id)
}

// ListPhotos returns photo metadata and thumbnails for a draft.
func (s *Store) ListPhotos(ctx context.Context, draftID string, newestFirst bool) ([]model.Photo, error) {
	return ListPhotos(ctx, s.q, draftID, newestFirst)
}

// CountPhotos counts a draft's photos.
func (s *Store) CountPhotos(ctx context.Context, draftID string) (int, error) {
	return CountPhotos(ctx, s.q, draftID)
}

// DeletePhotosByDraft deletes every photo of a draft.
func (s *Store) DeletePhotosByDraft(ctx context.Context, draftID string) error {
	return DeletePhotosByDraft(ctx, s.q, draftID)
}

// CopyPhoto copies photo srcID to newID under draftID without reading the blob.
func (s *Store) CopyPhoto(ctx context.Context, srcID, newID, draftID string, createdAt int64) error {
	return CopyPhoto(ctx, s.q, srcID, newID, draftID, createdAt)
}

// SetPhotoSelected sets the representative flag of a photo.
func (s *Store) SetPhotoSelected(ctx context.Context, id string, selected bool) error {
	return SetPhotoSelected(ctx, s.q, id, selected)
}

// GetSetting returns a setting, or "" when unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	return GetSetting(ctx, s.q, key)
}

// SetSetting stores a setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	return SetSetting(ctx, s.q, key, value)
}

// DeleteSetting removes a setting.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	return DeleteSetting(ctx, s.q, key)
}

// GetMaster returns one master record, or nil.
func (s *Store) GetMaster(ctx context.Context, kind, id string) (*model.Master, error) {
	return GetMaster(ctx, s.q, kind, id)
}

// ListMasters returns masters of kind, filtered by parentID when non-empty.
func (s *Store) ListMasters(ctx context.Context, kind, parentID string) ([]model.Master, error) {
	return ListMasters(ctx, s.q, kind, parentID)
}
