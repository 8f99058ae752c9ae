// Package history provides read views over completed drafts and the narrow
// path for editing a completed draft in place.
package history

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/store"
)

// Repository is the subset of the store the history service needs.
type Repository interface {
	GetDraft(ctx context.Context, id string) (*model.Draft, error)
	PutDraft(ctx context.Context, d *model.Draft) error
	ListCompletedDrafts(ctx context.Context, order store.Order) ([]model.Draft, error)
	FindDraftsByCode(ctx context.Context, code string) ([]model.Draft, error)
}

// Service answers history queries.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// New creates a history service. A nil logger uses slog.Default.
func New(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Query filters a history listing. Zero values match everything.
type Query struct {
	Order      store.Order
	CategoryID string
	BuildingID string
	// Text matches the draft code and any denormalized *Name field,
	// case-insensitively.
	Text  string
	Limit int
}

// List returns completed drafts matching q ordered by updatedAt.
func (s *Service) List(ctx context.Context, q Query) ([]model.Draft, error) {
	drafts, err := s.repo.ListCompletedDrafts(ctx, q.Order)
	if err != nil {
		return nil, err
	}

	text := strings.ToLower(strings.TrimSpace(q.Text))
	out := make([]model.Draft, 0, len(drafts))
	for _, d := range drafts {
		if q.CategoryID != "" && d.Fields.String(model.MasterIDField(model.MasterCategory)) != q.CategoryID {
			continue
		}
		if q.BuildingID != "" && d.Fields.String(model.MasterIDField(model.MasterBuilding)) != q.BuildingID {
			continue
		}
		if text != "" && !matchesText(&d, text) {
			continue
		}
		out = append(out, d)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func matchesText(d *model.Draft, text string) bool {
	if strings.Contains(strings.ToLower(d.Code()), text) {
		return true
	}
	for key := range d.Fields {
		if !strings.HasSuffix(key, "Name") {
			continue
		}
		if strings.Contains(strings.ToLower(d.Fields.String(key)), text) {
			return true
		}
	}
	return false
}

// Latest returns the most recently completed draft, or nil.
func (s *Service) Latest(ctx context.Context) (*model.Draft, error) {
	drafts, err := s.List(ctx, Query{Order: store.Desc, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, nil
	}
	return &drafts[0], nil
}

// FindByCode returns completed drafts whose resolved code is code, newest
// first.
func (s *Service) FindByCode(ctx context.Context, code string) ([]model.Draft, error) {
	drafts, err := s.repo.FindDraftsByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	out := drafts[:0]
	for _, d := range drafts {
		if d.IsCompleted() && d.Code() == code {
			out = append(out, d)
		}
	}
	return out, nil
}

// reuseKeys are the product taxonomy and dimension fields copied by ReusePatch.
func reuseKeys() []string {
	kinds := append([]string{model.MasterCategory}, model.MasterDescendants(model.MasterCategory)...)
	keys := make([]string, 0, 2*len(kinds)+3)
	for _, kind := range kinds {
		keys = append(keys, model.MasterIDField(kind), model.MasterNameField(kind))
	}
	return append(keys, model.FieldWidth, model.FieldDepth, model.FieldHeight)
}

// ReusePatch returns the product taxonomy and dimensions of a completed
// draft as a patch for the current draft. Keys the source lacks are set to
// nil, so applying the patch clears stale selections.
func (s *Service) ReusePatch(ctx context.Context, id string) (map[string]any, error) {
	d, err := s.getCompleted(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := map[string]any{}
	for _, key := range reuseKeys() {
		if v, ok := d.Fields[key]; ok && !model.IsAbsent(v) {
			patch[key] = v
			continue
		}
		patch[key] = nil
	}
	return patch, nil
}

// OverwriteCompletedFields applies patch to a completed draft in place. The
// completion fields cannot be changed through it. Photos are untouched.
func (s *Service) OverwriteCompletedFields(ctx context.Context, id string, patch map[string]any) (*model.Draft, error) {
	for _, key := range []string{model.FieldStatus, model.FieldCompletedAt} {
		if _, ok := patch[key]; ok {
			return nil, &model.ValidationError{Message: key + " cannot be edited"}
		}
	}

	d, err := s.getCompleted(ctx, id)
	if err != nil {
		return nil, err
	}

	d.Fields.Apply(patch)
	if model.TouchesCode(patch) {
		d.SyncQR()
	}
	d.UpdatedAt = s.now().UnixMilli()
	if err := s.repo.PutDraft(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Info("history entry edited", "draft_id", id, "keys", len(patch))
	return d, nil
}

func (s *Service) getCompleted(ctx context.Context, id string) (*model.Draft, error) {
	d, err := s.repo.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, &model.NotFoundError{Message: "draft " + id + " not found"}
	}
	if !d.IsCompleted() {
		return nil, &model.ValidationError{Message: "draft " + id + " is not completed"}
	}
	return d, nil
}
