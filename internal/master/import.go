// Package master loads the read-only location and product reference data
// that drafts select from.
package master

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/store"
)

// Files maps each master kind to the CSV file it is imported from.
var Files = map[string]string{
	model.MasterBuilding:    "locations_buildings.csv",
	model.MasterFloor:       "locations_floors.csv",
	model.MasterDepartment:  "locations_departments.csv",
	model.MasterDivision:    "locations_divisions.csv",
	model.MasterRoom:        "locations_rooms.csv",
	model.MasterCategory:    "product_categories.csv",
	model.MasterSubcategory: "product_subcategories.csv",
	model.MasterItem:        "product_items.csv",
	model.MasterMaker:       "product_makers.csv",
	model.MasterModel:       "product_models.csv",
}

// ImportDir replaces all master data with the CSV files in dir. Every file
// must be present. Returns the number of records imported per kind.
func ImportDir(ctx context.Context, db *sql.DB, dir string) (map[string]int, error) {
	records := map[string][]model.Master{}
	for _, kind := range model.MasterKinds() {
		path := filepath.Join(dir, Files[kind])
		ms, err := readFile(kind, path)
		if err != nil {
			return nil, err
		}
		records[kind] = ms
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := store.DeleteMasters(ctx, tx); err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, kind := range model.MasterKinds() {
		for i := range records[kind] {
			if err := store.PutMaster(ctx, tx, &records[kind][i]); err != nil {
				return nil, fmt.Errorf("importing %s %s: %w", kind, records[kind][i].ID, err)
			}
		}
		counts[kind] = len(records[kind])
	}

	stamp := time.Now().UTC().Format(time.RFC3339)
	if err := store.SetSetting(ctx, tx, store.SettingMastersDownloadedAt, stamp); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing masters: %w", err)
	}
	return counts, nil
}

// Clear removes all master data and the import timestamp.
func Clear(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := store.DeleteMasters(ctx, tx); err != nil {
		return err
	}
	if err := store.DeleteSetting(ctx, tx, store.SettingMastersDownloadedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func readFile(kind, path string) ([]model.Master, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s masters: %w", kind, err)
	}
	defer f.Close()

	ms, err := Parse(kind, f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return ms, nil
}

// Parse reads master records of kind from CSV with a header row. The id
// column is "id" ("roomId" is accepted for rooms), the parent is taken from
// the parent kind's id column and any other non-empty column is kept in
// Attrs. Rows without an id are skipped.
func Parse(kind string, r io.Reader) ([]model.Master, error) {
	if !model.ValidMasterKind(kind) {
		return nil, fmt.Errorf("unknown master kind %q", kind)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = sanitize(header[i])
	}

	parentField := ""
	if parent := model.MasterParent(kind); parent != "" {
		parentField = model.MasterIDField(parent)
	}

	var out []model.Master
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make(map[string]string, len(header))
		for i, key := range header {
			if i < len(rec) {
				row[key] = sanitize(rec[i])
			}
		}

		id := row["id"]
		if kind == model.MasterRoom && row["roomId"] != "" {
			id = row["roomId"]
		}
		if id == "" {
			continue
		}

		m := model.Master{Kind: kind, ID: id, Name: row["name"], ParentID: row[parentField]}
		for key, value := range row {
			switch key {
			case "id", "roomId", "name", parentField:
				continue
			}
			if value == "" {
				continue
			}
			if m.Attrs == nil {
				m.Attrs = map[string]string{}
			}
			m.Attrs[key] = value
		}
		out = append(out, m)
	}
	return out, nil
}

// sanitize trims a cell and strips one pair of surrounding single quotes.
func sanitize(cell string) string {
	cell = strings.TrimSpace(cell)
	if len(cell) >= 2 && cell[0] == '\'' && cell[len(cell)-1] == '\'' {
		cell = strings.TrimSpace(cell[1 : len(cell)-1])
	}
	return cell
}
