package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/erazemk/popis/internal/model"
)

// GetMaster returns a master record, or nil if it does not exist.
func GetMaster(ctx context.Context, q Querier, kind, id string) (*model.Master, error) {
	row := q.QueryRowContext(ctx,
		`SELECT kind, id, name, parent_id, attrs FROM masters WHERE kind = ? AND id = ?`,
		kind, id,
	)
	m, err := scanMaster(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("getting master", err)
	}
	return m, nil
}

// ListMasters returns records of a kind, optionally limited to one parent,
// ordered by name.
func ListMasters(ctx context.Context, q Querier, kind, parentID string) ([]model.Master, error) {
	query := `SELECT kind, id, name, parent_id, attrs FROM masters WHERE kind = ?`
	args := []any{kind}
	if parentID != "" {
		query += ` AND parent_id = ?`
		args = append(args, parentID)
	}
	query += ` ORDER BY name, id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("listing masters", err)
	}
	defer rows.Close()

	var masters []model.Master
	for rows.Next() {
		m, err := scanMaster(rows)
		if err != nil {
			return nil, storageErr("scanning master", err)
		}
		masters = append(masters, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("listing masters", err)
	}
	return masters, nil
}

// CountMasters returns the number of records per kind.
func CountMasters(ctx context.Context, q Querier) (map[string]int, error) {
	rows, err := q.QueryContext(ctx, `SELECT kind, COUNT(*) FROM masters GROUP BY kind`)
	if err != nil {
		return nil, storageErr("counting masters", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, storageErr("scanning master count", err)
		}
		counts[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("counting masters", err)
	}
	return counts, nil
}

// DeleteMasters removes every master record.
func DeleteMasters(ctx context.Context, q Querier) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM masters`); err != nil {
		return storageErr("deleting masters", err)
	}
	return nil
}

// PutMaster inserts or replaces a master record.
func PutMaster(ctx context.Context, q Querier, m *model.Master) error {
	attrs := m.Attrs
	if attrs == nil {
		attrs = map[string]string{}
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return storageErr("encoding master attrs", err)
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO masters (kind, id, name, parent_id, attrs) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (kind, id) DO UPDATE SET
		     name = excluded.name,
		     parent_id = excluded.parent_id,
		     attrs = excluded.attrs`,
		m.Kind, m.ID, m.Name, nullString(m.ParentID), string(data),
	)
	if err != nil {
		return storageErr("putting master", err)
	}
	return nil
}

func scanMaster(s scanner) (*model.Master, error) {
	m := &model.Master{}
	var parentID sql.NullString
	var attrs string
	if err := s.Scan(&m.Kind, &m.ID, &m.Name, &parentID, &attrs); err != nil {
		return nil, err
	}
	m.ParentID = parentID.String
	if err := json.Unmarshal([]byte(attrs), &m.Attrs); err != nil {
		return nil, err
	}
	return m, nil
}
