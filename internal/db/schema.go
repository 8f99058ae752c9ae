package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is the base database schema (version 1).
const schema = `
CREATE TABLE IF NOT EXISTS drafts (
    id         TEXT PRIMARY KEY,
    qr         TEXT,
    fields     TEXT NOT NULL DEFAULT '{}',
    photo_ids  TEXT NOT NULL DEFAULT '[]',
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_drafts_updated_at ON drafts(updated_at);
CREATE INDEX IF NOT EXISTS idx_drafts_qr ON drafts(qr);

CREATE TABLE IF NOT EXISTS photos (
    id                TEXT PRIMARY KEY,
    draft_id          TEXT NOT NULL REFERENCES drafts(id)
                      ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED,
    blob              BLOB NOT NULL,
    thumb             BLOB NOT NULL,
    mime              TEXT NOT NULL DEFAULT 'image/jpeg',
    size              INTEGER NOT NULL,
    created_at        INTEGER NOT NULL,
    selected_for_list INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_photos_draft_id ON photos(draft_id);

CREATE TABLE IF NOT EXISTS masters (
    kind      TEXT NOT NULL,
    id        TEXT NOT NULL,
    name      TEXT NOT NULL,
    parent_id TEXT,
    attrs     TEXT NOT NULL DEFAULT '{}',
    PRIMARY KEY (kind, id)
);

CREATE INDEX IF NOT EXISTS idx_masters_parent ON masters(kind, parent_id);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// migrations are applied in order on top of the base schema. The database's
// user_version records how many have run. Append new migrations at the end;
// never edit or reorder existing ones.
var migrations = []string{
	// Migration 1: photo checksums for integrity checks.
	`ALTER TABLE photos ADD COLUMN checksum TEXT NOT NULL DEFAULT ''`,
	// Migration 2: expression index for the completed-drafts filter.
	`CREATE INDEX IF NOT EXISTS idx_drafts_status
	     ON drafts(json_extract(fields, '$.status'))`,
	// Migration 3: code lookups on the seal number field.
	`CREATE INDEX IF NOT EXISTS idx_drafts_seal_no
	     ON drafts(json_extract(fields, '$.sealNo'))`,
}

// Version is the schema version a fully migrated database reports.
func Version() int { return len(migrations) }

// Migrate creates the base schema if needed and applies pending migrations
// in a single transaction.
func Migrate(db *sql.DB) error {
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning migration: %w", err)
	}
	defer tx.Rollback()

	var current int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	if current < len(migrations) {
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, len(migrations))); err != nil {
			return fmt.Errorf("setting schema version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}
	return nil
}

// SchemaVersion returns the stored schema version.
func SchemaVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}
