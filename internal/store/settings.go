package store

import (
	"context"
	"database/sql"
)

// Setting keys.
const (
	SettingCurrentDraftID      = "current_draft_id"
	SettingMastersDownloadedAt = "masters_downloaded_at"
	SettingDeviceID            = "device_id"
)

// GetSetting returns the value stored under key, or "" if unset.
func GetSetting(ctx context.Context, q Querier, key string) (string, error) {
	var value string
	err := q.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", storageErr("getting setting "+key, err)
	}
	return value, nil
}

// SetSetting stores value under key.
func SetSetting(ctx context.Context, q Querier, key, value string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return storageErr("storing setting "+key, err)
	}
	return nil
}

// DeleteSetting removes key.
func DeleteSetting(ctx context.Context, q Querier, key string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return storageErr("deleting setting "+key, err)
	}
	return nil
}

// EnsureSetting stores candidate under key unless a value already exists, and
// returns whichever value ended up stored. INSERT OR IGNORE followed by a
// re-SELECT avoids a check-then-insert race on concurrent startup.
func EnsureSetting(ctx context.Context, q Querier, key, candidate string) (string, error) {
	_, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`,
		key, candidate,
	)
	if err != nil {
		return "", storageErr("storing setting "+key, err)
	}

	var value string
	err = q.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key,
	).Scan(&value)
	if err != nil {
		return "", storageErr("querying setting "+key, err)
	}
	return value, nil
}
