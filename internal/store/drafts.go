package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/erazemk/popis/internal/model"
)

const draftColumns = `id, qr, fields, photo_ids, updated_at`

// completedFilter matches drafts whose fields carry status "completed".
const completedFilter = `json_extract(fields, '$.status') = 'completed'`

// GetDraft returns a draft by ID, or nil if it does not exist.
func GetDraft(ctx context.Context, q Querier, id string) (*model.Draft, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+draftColumns+` FROM drafts WHERE id = ?`, id,
	)
	d, err := scanDraft(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("getting draft", err)
	}
	return d, nil
}

// PutDraft inserts a draft or fully replaces an existing one. An upsert is
// used instead of INSERT OR REPLACE, which would delete the row first and
// cascade to its photos.
func PutDraft(ctx context.Context, q Querier, d *model.Draft) error {
	fields, err := json.Marshal(d.Fields)
	if err != nil {
		return storageErr("encoding draft fields", err)
	}
	photoIDs := d.PhotoIDs
	if photoIDs == nil {
		photoIDs = []string{}
	}
	ids, err := json.Marshal(photoIDs)
	if err != nil {
		return storageErr("encoding draft photo ids", err)
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO drafts (id, qr, fields, photo_ids, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     qr = excluded.qr,
		     fields = excluded.fields,
		     photo_ids = excluded.photo_ids,
		     updated_at = excluded.updated_at`,
		d.ID, nullString(d.QR), string(fields), string(ids), d.UpdatedAt,
	)
	if err != nil {
		return storageErr("putting draft", err)
	}
	return nil
}

// DeleteDraft hard-deletes a draft. Its photos are removed by the cascade.
func DeleteDraft(ctx context.Context, q Querier, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id); err != nil {
		return storageErr("deleting draft", err)
	}
	return nil
}

// ListDrafts returns every draft ordered by updated_at.
func ListDrafts(ctx context.Context, q Querier, order Order) ([]model.Draft, error) {
	return queryDrafts(ctx, q, "listing drafts",
		`SELECT `+draftColumns+` FROM drafts ORDER BY updated_at `+order.sql()+`, rowid `+order.sql(),
	)
}

// ListCompletedDrafts returns completed drafts ordered by updated_at.
func ListCompletedDrafts(ctx context.Context, q Querier, order Order) ([]model.Draft, error) {
	return queryDrafts(ctx, q, "listing completed drafts",
		`SELECT `+draftColumns+` FROM drafts WHERE `+completedFilter+`
		 ORDER BY updated_at `+order.sql()+`, rowid `+order.sql(),
	)
}

// CountCompletedDrafts returns the number of completed drafts.
func CountCompletedDrafts(ctx context.Context, q Querier) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM drafts WHERE `+completedFilter,
	).Scan(&n)
	if err != nil {
		return 0, storageErr("counting completed drafts", err)
	}
	return n, nil
}

// FindDraftsByCode returns drafts carrying code in the top-level qr or in any
// code field, newest first. Callers needing the resolved code to match should
// compare Draft.Code.
func FindDraftsByCode(ctx context.Context, q Querier, code string) ([]model.Draft, error) {
	return queryDrafts(ctx, q, "finding drafts by code",
		`SELECT `+draftColumns+` FROM drafts
		 WHERE qr = ?
		    OR json_extract(fields, '$.sealNo') = ?
		    OR json_extract(fields, '$.qr') = ?
		    OR json_extract(fields, '$.qrCode') = ?
		 ORDER BY updated_at DESC, rowid DESC`,
		code, code, code, code,
	)
}

func queryDrafts(ctx context.Context, q Querier, op, query string, args ...any) ([]model.Draft, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	var drafts []model.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, storageErr("scanning draft", err)
		}
		drafts = append(drafts, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return drafts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(s scanner) (*model.Draft, error) {
	d := &model.Draft{}
	var qr sql.NullString
	var fields, photoIDs string
	if err := s.Scan(&d.ID, &qr, &fields, &photoIDs, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.QR = qr.String
	if err := json.Unmarshal([]byte(fields), &d.Fields); err != nil {
		return nil, fmt.Errorf("decoding fields of draft %s: %w", d.ID, err)
	}
	if d.Fields == nil {
		d.Fields = model.Fields{}
	}
	if err := json.Unmarshal([]byte(photoIDs), &d.PhotoIDs); err != nil {
		return nil, fmt.Errorf("decoding photo ids of draft %s: %w", d.ID, err)
	}
	if d.PhotoIDs == nil {
		d.PhotoIDs = []string{}
	}
	return d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
