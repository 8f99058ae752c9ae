package model

import (
	"encoding/json"
	"testing"
)

func TestFieldsApplyAbsence(t *testing.T) {
	f := Fields{"width": "10", "notes": "scratched", "count": int64(3)}
	f.Apply(map[string]any{
		"width":  "",
		"notes":  nil,
		"height": "20",
		"count":  int64(4),
		"ghost":  "",
	})

	for _, key := range []string{"width", "notes", "ghost"} {
		if _, ok := f[key]; ok {
			t.Errorf("expected %q to be removed, got %v", key, f[key])
		}
	}
	if f["height"] != "20" {
		t.Errorf("expected height 20, got %v", f["height"])
	}
	if f["count"] != int64(4) {
		t.Errorf("expected count 4, got %v", f["count"])
	}
}

func TestFieldsUnmarshalKeepsIntegers(t *testing.T) {
	var f Fields
	if err := json.Unmarshal([]byte(`{"completedAt":1700000000123,"ratio":1.5,"status":"completed","ok":true}`), &f); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if f["completedAt"] != int64(1700000000123) {
		t.Errorf("expected int64 completedAt, got %T %v", f["completedAt"], f["completedAt"])
	}
	if f["ratio"] != 1.5 {
		t.Errorf("expected float ratio, got %T %v", f["ratio"], f["ratio"])
	}
	if f["ok"] != true {
		t.Errorf("expected bool ok, got %v", f["ok"])
	}
}

func TestDraftCode(t *testing.T) {
	tests := []struct {
		name   string
		qr     string
		fields Fields
		want   string
	}{
		{"seal wins", "TOP", Fields{"sealNo": "S-1", "qr": "Q-1", "qrCode": "C-1"}, "S-1"},
		{"qr field next", "TOP", Fields{"qr": "Q-1", "qrCode": "C-1"}, "Q-1"},
		{"qrCode next", "TOP", Fields{"qrCode": "C-1"}, "C-1"},
		{"top level last", "TOP", Fields{}, "TOP"},
		{"empty seal skipped", "", Fields{"sealNo": "", "qrCode": "C-2"}, "C-2"},
		{"none", "", Fields{}, ""},
	}

	for _, tt := range tests {
		d := &Draft{QR: tt.qr, Fields: tt.fields}
		if got := d.Code(); got != tt.want {
			t.Errorf("%s: Code() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDraftCloneIsDeep(t *testing.T) {
	d := &Draft{ID: "a", Fields: Fields{"x": "1"}, PhotoIDs: []string{"p1"}}
	c := d.Clone()
	c.Fields["x"] = "2"
	c.PhotoIDs[0] = "p2"

	if d.Fields["x"] != "1" || d.PhotoIDs[0] != "p1" {
		t.Errorf("clone shares state with original: %+v", d)
	}
}

func TestDraftCompleted(t *testing.T) {
	d := NewDraft("a", 100)
	if d.IsCompleted() {
		t.Fatal("new draft must not be completed")
	}
	d.Fields.Apply(map[string]any{FieldStatus: DraftStatusCompleted, FieldCompletedAt: int64(200)})
	if !d.IsCompleted() {
		t.Error("expected completed")
	}
	if at, ok := d.CompletedAt(); !ok || at != 200 {
		t.Errorf("CompletedAt() = %d, %v", at, ok)
	}
}
