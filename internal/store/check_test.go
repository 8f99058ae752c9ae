package store

import (
	"context"
	"testing"

	"github.com/erazemk/popis/internal/db"
	"github.com/erazemk/popis/internal/model"
)

func TestCheckIntegrityClean(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	d := model.NewDraft("d1", 1)
	d.PhotoIDs = []string{"p1"}
	PutDraft(ctx, database, d)
	PutPhoto(ctx, database, &model.Photo{ID: "p1", DraftID: "d1", Blob: []byte("a"), Thumb: []byte("a"), CreatedAt: 1})

	problems, err := CheckIntegrity(ctx, database)
	if err != nil {
		t.Fatalf("CheckIntegrity: %v", err)
	}
	if len(problems) != 0 {
		t.Errorf("expected no problems, got %v", problems)
	}
}

func TestCheckIntegrityFindsProblems(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	d := model.NewDraft("d1", 1)
	d.PhotoIDs = []string{"missing"}
	PutDraft(ctx, database, d)
	PutPhoto(ctx, database, &model.Photo{ID: "p1", DraftID: "d1", Blob: []byte("a"), Thumb: []byte("a"), CreatedAt: 1})
	database.ExecContext(ctx, `UPDATE photos SET blob = ? WHERE id = 'p1'`, []byte("tampered"))

	problems, err := CheckIntegrity(ctx, database)
	if err != nil {
		t.Fatalf("CheckIntegrity: %v", err)
	}
	if len(problems) != 2 {
		t.Fatalf("expected 2 problems, got %v", problems)
	}
}
