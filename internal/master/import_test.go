package master

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/erazemk/popis/internal/db"
	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/store"
)

func TestParse(t *testing.T) {
	input := "id,buildingId,name\n" +
		"F1,B1,'Ground floor'\n" +
		"\n" +
		" F2 , B1 , \"First, east\"\n" +
		",B1,no id\n"

	ms, err := Parse(model.MasterFloor, strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("got %d records, want 2", len(ms))
	}
	if ms[0].ID != "F1" || ms[0].Name != "Ground floor" || ms[0].ParentID != "B1" {
		t.Errorf("first record = %+v", ms[0])
	}
	if ms[1].ID != "F2" || ms[1].Name != "First, east" {
		t.Errorf("second record = %+v", ms[1])
	}
	if ms[0].Attrs != nil {
		t.Errorf("attrs = %v, want none", ms[0].Attrs)
	}
}

func TestParseRoomAlias(t *testing.T) {
	input := "roomId,name,buildingId,floorId,departmentId,divisionId\n" +
		"R1,Lab,B1,F1,D1,V1\n"

	ms, err := Parse(model.MasterRoom, strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(ms) != 1 {
		t.Fatalf("got %d records, want 1", len(ms))
	}
	r := ms[0]
	if r.ID != "R1" || r.ParentID != "V1" {
		t.Errorf("record = %+v", r)
	}
	if r.Attrs["buildingId"] != "B1" || r.Attrs["floorId"] != "F1" || r.Attrs["departmentId"] != "D1" {
		t.Errorf("attrs = %v", r.Attrs)
	}
}

func TestParseUnknownKind(t *testing.T) {
	if _, err := Parse("planet", strings.NewReader("id\n1\n")); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestParseEmpty(t *testing.T) {
	ms, err := Parse(model.MasterBuilding, strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(ms) != 0 {
		t.Errorf("got %d records, want 0", len(ms))
	}
}

func writeMasters(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		model.MasterBuilding:    "id,name\nB1,Main\nB2,Annex\n",
		model.MasterFloor:       "id,buildingId,name\nF1,B1,1F\n",
		model.MasterDepartment:  "id,buildingId,floorId,name\n",
		model.MasterDivision:    "id,buildingId,floorId,departmentId,name\n",
		model.MasterRoom:        "roomId,name,buildingId,floorId,departmentId,divisionId\n",
		model.MasterCategory:    "id,name\nC1,Desks\n",
		model.MasterSubcategory: "id,categoryId,name\nS1,C1,Standing\n",
		model.MasterItem:        "id,categoryId,subcategoryId,name\n",
		model.MasterMaker:       "id,categoryId,subcategoryId,itemId,name\n",
		model.MasterModel:       "id,categoryId,subcategoryId,itemId,makerId,name\n",
	}
	for kind, content := range files {
		if err := os.WriteFile(filepath.Join(dir, Files[kind]), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestImportDir(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	dir := t.TempDir()
	writeMasters(t, dir)

	if err := store.PutMaster(ctx, database, &model.Master{Kind: model.MasterBuilding, ID: "OLD", Name: "stale"}); err != nil {
		t.Fatal(err)
	}

	counts, err := ImportDir(ctx, database, dir)
	if err != nil {
		t.Fatalf("ImportDir: %v", err)
	}
	if counts[model.MasterBuilding] != 2 || counts[model.MasterSubcategory] != 1 || counts[model.MasterRoom] != 0 {
		t.Errorf("counts = %v", counts)
	}

	old, err := store.GetMaster(ctx, database, model.MasterBuilding, "OLD")
	if err != nil {
		t.Fatal(err)
	}
	if old != nil {
		t.Error("stale record survived import")
	}

	floors, err := store.ListMasters(ctx, database, model.MasterFloor, "B1")
	if err != nil {
		t.Fatal(err)
	}
	if len(floors) != 1 || floors[0].Name != "1F" {
		t.Errorf("floors = %+v", floors)
	}

	stamp, err := store.GetSetting(ctx, database, store.SettingMastersDownloadedAt)
	if err != nil {
		t.Fatal(err)
	}
	if stamp == "" {
		t.Error("import timestamp not set")
	}

	if err := Clear(ctx, database); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, _ := store.CountMasters(ctx, database)
	if len(got) != 0 {
		t.Errorf("counts after clear = %v", got)
	}
	stamp, _ = store.GetSetting(ctx, database, store.SettingMastersDownloadedAt)
	if stamp != "" {
		t.Errorf("timestamp after clear = %q", stamp)
	}
}

func TestImportDirMissingFileKeepsData(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	dir := t.TempDir()
	writeMasters(t, dir)

	if _, err := ImportDir(ctx, database, dir); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, Files[model.MasterModel])); err != nil {
		t.Fatal(err)
	}

	if _, err := ImportDir(ctx, database, dir); err == nil {
		t.Fatal("expected error for missing file")
	}

	counts, _ := store.CountMasters(ctx, database)
	if counts[model.MasterBuilding] != 2 {
		t.Errorf("buildings = %d, want 2", counts[model.MasterBuilding])
	}
}
