package store

import (
	"context"
	"testing"

	"github.com/erazemk/popis/internal/db"
)

func TestEnsureSetting_GeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	// First call stores the candidate.
	v1, err := EnsureSetting(ctx, database, SettingDeviceID, "first")
	if err != nil {
		t.Fatal(err)
	}
	if v1 != "first" {
		t.Fatalf("expected first, got %q", v1)
	}

	// Second call keeps the stored value.
	v2, err := EnsureSetting(ctx, database, SettingDeviceID, "second")
	if err != nil {
		t.Fatal(err)
	}
	if v2 != "first" {
		t.Fatalf("expected same value, got %q", v2)
	}
}

func TestSettingLifecycle(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	v, err := GetSetting(ctx, database, SettingCurrentDraftID)
	if err != nil || v != "" {
		t.Fatalf("expected empty unset setting, got %q, %v", v, err)
	}

	SetSetting(ctx, database, SettingCurrentDraftID, "d1")
	SetSetting(ctx, database, SettingCurrentDraftID, "d2")
	v, _ = GetSetting(ctx, database, SettingCurrentDraftID)
	if v != "d2" {
		t.Errorf("expected d2, got %q", v)
	}

	DeleteSetting(ctx, database, SettingCurrentDraftID)
	v, _ = GetSetting(ctx, database, SettingCurrentDraftID)
	if v != "" {
		t.Errorf("expected deleted setting, got %q", v)
	}
}
