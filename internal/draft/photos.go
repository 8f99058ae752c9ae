package draft

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/store"
)

// AttachPhoto compresses an image and attaches it to the current draft. The
// first photo of a draft becomes its representative photo. Returns nil when
// there is no current draft.
func (e *Engine) AttachPhoto(ctx context.Context, r io.Reader) (*model.Photo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil, nil
	}

	result, err := e.compressor.Compress(r)
	if err != nil {
		return nil, &model.ValidationError{Message: fmt.Sprintf("processing photo: %v", err)}
	}

	existing, err := e.store.CountPhotos(ctx, e.current.ID)
	if err != nil {
		return nil, err
	}

	now := e.nowMillis()
	photo := &model.Photo{
		ID:              e.newID(),
		DraftID:         e.current.ID,
		Blob:            result.Blob,
		Thumb:           result.Thumb,
		MIME:            result.MIME,
		Size:            int64(len(result.Blob)),
		Checksum:        store.Checksum(result.Blob),
		CreatedAt:       now,
		SelectedForList: existing == 0,
	}

	next := e.current.Clone()
	next.PhotoIDs = append(next.PhotoIDs, photo.ID)
	next.UpdatedAt = now

	err = e.store.InTx(ctx, func(tx store.Repository) error {
		if err := tx.PutPhoto(ctx, photo); err != nil {
			return err
		}
		return tx.PutDraft(ctx, next)
	})
	if err != nil {
		return nil, err
	}

	e.current = next
	if err := e.refreshStats(ctx); err != nil {
		return nil, err
	}
	if err := e.refreshPhotos(ctx); err != nil {
		return nil, err
	}
	e.publish()
	return photo, nil
}

// TogglePhotoForList flips a photo's representative flag. Turning it on clears
// the flag on every other photo of the draft, so at most one is selected.
func (e *Engine) TogglePhotoForList(ctx context.Context, photoID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil
	}
	draftID := e.current.ID

	err := e.store.InTx(ctx, func(tx store.Repository) error {
		target, err := tx.GetPhoto(ctx, photoID)
		if err != nil {
			return err
		}
		if target == nil || target.DraftID != draftID {
			return &model.NotFoundError{Message: "photo " + photoID + " not found on the current draft"}
		}
		selectTarget := !target.SelectedForList

		siblings, err := tx.ListPhotos(ctx, draftID, false)
		if err != nil {
			return err
		}
		for _, p := range siblings {
			want := selectTarget && p.ID == photoID
			if p.SelectedForList == want {
				continue
			}
			if err := tx.SetPhotoSelected(ctx, p.ID, want); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := e.refreshPhotos(ctx); err != nil {
		return err
	}
	e.publish()
	return nil
}

// RemovePhoto deletes a photo of the current draft. Removing the
// representative photo does not select a replacement.
func (e *Engine) RemovePhoto(ctx context.Context, photoID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil
	}

	next := e.current.Clone()
	next.PhotoIDs = slices.DeleteFunc(next.PhotoIDs, func(id string) bool { return id == photoID })
	next.UpdatedAt = e.nowMillis()

	err := e.store.InTx(ctx, func(tx store.Repository) error {
		p, err := tx.GetPhoto(ctx, photoID)
		if err != nil {
			return err
		}
		if p != nil && p.DraftID != next.ID {
			return &model.NotFoundError{Message: "photo " + photoID + " not found on the current draft"}
		}
		if err := tx.DeletePhoto(ctx, photoID); err != nil {
			return err
		}
		return tx.PutDraft(ctx, next)
	})
	if err != nil {
		return err
	}

	e.current = next
	if err := e.refreshStats(ctx); err != nil {
		return err
	}
	if err := e.refreshPhotos(ctx); err != nil {
		return err
	}
	e.publish()
	return nil
}
