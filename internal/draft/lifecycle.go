package draft

import (
	"context"

	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/store"
)

// CompleteOptions controls CompleteCurrent.
type CompleteOptions struct {
	// PreserveKeys are copied from the completed draft into the new one when
	// present, so context such as location carries over between entries.
	PreserveKeys []string
}

// CompleteCurrent marks the current draft completed and replaces it with a
// new draft carrying the preserved keys. The completion, the new draft and
// the preserved fields are written in one transaction. Returns the new
// draft's id, or "" when there is no current draft.
func (e *Engine) CompleteCurrent(ctx context.Context, opts CompleteOptions) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return "", nil
	}

	now := e.nowMillis()
	completed := e.current.Clone()
	completed.Fields.Apply(map[string]any{
		model.FieldStatus:      model.DraftStatusCompleted,
		model.FieldCompletedAt: now,
	})
	completed.UpdatedAt = now

	next := model.NewDraft(e.newID(), now)
	preserved := map[string]any{}
	for _, key := range opts.PreserveKeys {
		if v, ok := e.current.Fields[key]; ok && !model.IsAbsent(v) {
			preserved[key] = v
		}
	}
	next.Fields.Apply(preserved)

	err := e.store.InTx(ctx, func(tx store.Repository) error {
		if err := tx.PutDraft(ctx, completed); err != nil {
			return err
		}
		if err := tx.PutDraft(ctx, next); err != nil {
			return err
		}
		return tx.SetSetting(ctx, store.SettingCurrentDraftID, next.ID)
	})
	if err != nil {
		return "", err
	}

	e.current = next
	e.photos = nil
	if err := e.refreshStats(ctx); err != nil {
		return "", err
	}

	e.logger.Info("draft completed",
		"draft_id", completed.ID,
		"next_draft_id", next.ID,
		"photos", len(completed.PhotoIDs),
		"preserved", len(preserved),
	)
	e.publish()
	return next.ID, nil
}

// ClearCurrent deletes the current draft and its photos.
func (e *Engine) ClearCurrent(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil
	}
	id := e.current.ID

	err := e.store.InTx(ctx, func(tx store.Repository) error {
		if err := tx.DeletePhotosByDraft(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteDraft(ctx, id); err != nil {
			return err
		}
		return tx.DeleteSetting(ctx, store.SettingCurrentDraftID)
	})
	if err != nil {
		return err
	}

	e.current = nil
	e.photos = nil
	if err := e.refreshStats(ctx); err != nil {
		return err
	}
	e.logger.Info("draft cleared", "draft_id", id)
	e.publish()
	return nil
}

// PurgeCompleted hard-deletes every completed draft together with its photos
// in one transaction and returns how many drafts were removed.
func (e *Engine) PurgeCompleted(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	completed, err := e.store.ListCompletedDrafts(ctx, store.Asc)
	if err != nil {
		return 0, err
	}
	if len(completed) == 0 {
		return 0, nil
	}

	purgedCurrent := false
	err = e.store.InTx(ctx, func(tx store.Repository) error {
		for _, d := range completed {
			if err := tx.DeletePhotosByDraft(ctx, d.ID); err != nil {
				return err
			}
			if err := tx.DeleteDraft(ctx, d.ID); err != nil {
				return err
			}
			if e.current != nil && d.ID == e.current.ID {
				purgedCurrent = true
				if err := tx.DeleteSetting(ctx, store.SettingCurrentDraftID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if purgedCurrent {
		e.current = nil
		e.photos = nil
	}
	if err := e.refreshStats(ctx); err != nil {
		return 0, err
	}
	if err := e.refreshPhotos(ctx); err != nil {
		return 0, err
	}

	e.logger.Info("purged completed drafts", "count", len(completed))
	e.publish()
	return len(completed), nil
}
