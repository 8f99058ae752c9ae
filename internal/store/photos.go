package store

import (
	"context"
	"database/sql"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"github.com/erazemk/popis/internal/model"
)

// Checksum returns the hex BLAKE2b-256 digest of data.
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// GetPhoto returns a photo including its blob and thumbnail, or nil.
func GetPhoto(ctx context.Context, q Querier, id string) (*model.Photo, error) {
	p := &model.Photo{}
	err := q.QueryRowContext(ctx,
		`SELECT id, draft_id, blob, thumb, mime, size, checksum, created_at, selected_for_list
		 FROM photos WHERE id = ?`, id,
	).Scan(&p.ID, &p.DraftID, &p.Blob, &p.Thumb, &p.MIME, &p.Size, &p.Checksum, &p.CreatedAt, &p.SelectedForList)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("getting photo", err)
	}
	return p, nil
}

// PutPhoto inserts or replaces a photo. Size and checksum are derived from
// the blob when unset.
func PutPhoto(ctx context.Context, q Querier, p *model.Photo) error {
	if p.Size == 0 {
		p.Size = int64(len(p.Blob))
	}
	if p.Checksum == "" {
		p.Checksum = Checksum(p.Blob)
	}
	if p.MIME == "" {
		p.MIME = "image/jpeg"
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO photos (id, draft_id, blob, thumb, mime, size, checksum, created_at, selected_for_list)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     draft_id = excluded.draft_id,
		     blob = excluded.blob,
		     thumb = excluded.thumb,
		     mime = excluded.mime,
		     size = excluded.size,
		     checksum = excluded.checksum,
		     created_at = excluded.created_at,
		     selected_for_list = excluded.selected_for_list`,
		p.ID, p.DraftID, p.Blob, p.Thumb, p.MIME, p.Size, p.Checksum, p.CreatedAt, p.SelectedForList,
	)
	if err != nil {
		return storageErr("putting photo", err)
	}
	return nil
}

// DeletePhoto deletes a single photo.
func DeletePhoto(ctx context.Context, q Querier, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id); err != nil {
		return storageErr("deleting photo", err)
	}
	return nil
}

// ListPhotos returns a draft's photos with thumbnails but without full blobs,
// ordered by creation time.
func ListPhotos(ctx context.Context, q Querier, draftID string, newestFirst bool) ([]model.Photo, error) {
	dir := "ASC"
	if newestFirst {
		dir = "DESC"
	}
	rows, err := q.QueryContext(ctx,
		`SELECT id, draft_id, thumb, mime, size, checksum, created_at, selected_for_list
		 FROM photos WHERE draft_id = ?
		 ORDER BY created_at `+dir+`, rowid `+dir, draftID,
	)
	if err != nil {
		return nil, storageErr("listing photos", err)
	}
	defer rows.Close()

	var photos []model.Photo
	for rows.Next() {
		var p model.Photo
		if err := rows.Scan(&p.ID, &p.DraftID, &p.Thumb, &p.MIME, &p.Size, &p.Checksum, &p.CreatedAt, &p.SelectedForList); err != nil {
			return nil, storageErr("scanning photo", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("listing photos", err)
	}
	return photos, nil
}

// CountPhotos returns how many photos a draft owns.
func CountPhotos(ctx context.Context, q Querier, draftID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM photos WHERE draft_id = ?`, draftID,
	).Scan(&n)
	if err != nil {
		return 0, storageErr("counting photos", err)
	}
	return n, nil
}

// DeletePhotosByDraft deletes every photo owned by a draft.
func DeletePhotosByDraft(ctx context.Context, q Querier, draftID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM photos WHERE draft_id = ?`, draftID); err != nil {
		return storageErr("deleting draft photos", err)
	}
	return nil
}

// CopyPhoto duplicates a photo's payload under a new id and owner without
// loading the blob into memory. The copy is never the representative photo
// unless the source was.
func CopyPhoto(ctx context.Context, q Querier, srcID, newID, draftID string, createdAt int64) error {
	result, err := q.ExecContext(ctx,
		`INSERT INTO photos (id, draft_id, blob, thumb, mime, size, checksum, created_at, selected_for_list)
		 SELECT ?, ?, blob, thumb, mime, size, checksum, ?, selected_for_list
		 FROM photos WHERE id = ?`,
		newID, draftID, createdAt, srcID,
	)
	if err != nil {
		return storageErr("copying photo", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return storageErr("copying photo", sql.ErrNoRows)
	}
	return nil
}

// SetPhotoSelected sets a photo's representative flag.
func SetPhotoSelected(ctx context.Context, q Querier, id string, selected bool) error {
	if _, err := q.ExecContext(ctx,
		`UPDATE photos SET selected_for_list = ? WHERE id = ?`, selected, id,
	); err != nil {
		return storageErr("updating photo selection", err)
	}
	return nil
}
