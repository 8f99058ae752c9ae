package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// Draft is an in-progress or completed asset survey record.
type Draft struct {
	ID        string   `json:"id"`
	QR        string   `json:"qr,omitempty"`
	Fields    Fields   `json:"fields"`
	PhotoIDs  []string `json:"photo_ids"`
	UpdatedAt int64    `json:"updated_at"` // epoch milliseconds
}

// Draft statuses.
const (
	DraftStatusCompleted = "completed"
)

// Well-known field keys.
const (
	FieldStatus       = "status"
	FieldCompletedAt  = "completedAt"
	FieldQR           = "qr"
	FieldQRCode       = "qrCode"
	FieldSealNo       = "sealNo"
	FieldSurveyDate   = "surveyDate"
	FieldInvestigator = "investigator"
	FieldWidth        = "width"
	FieldDepth        = "depth"
	FieldHeight       = "height"
)

// NewDraft returns an empty draft with the given id.
func NewDraft(id string, now int64) *Draft {
	return &Draft{
		ID:        id,
		Fields:    Fields{},
		PhotoIDs:  []string{},
		UpdatedAt: now,
	}
}

// IsCompleted reports whether the draft reached the terminal completed state.
func (d *Draft) IsCompleted() bool {
	return d.Fields.String(FieldStatus) == DraftStatusCompleted
}

// CompletedAt returns the completion timestamp in epoch milliseconds.
func (d *Draft) CompletedAt() (int64, bool) {
	return d.Fields.Int(FieldCompletedAt)
}

// Code resolves the draft's seal/QR code. The sealNo field wins over the qr
// and qrCode fields, which win over the top-level QR attribute.
func (d *Draft) Code() string {
	for _, key := range codeFields {
		if v := d.Fields.String(key); v != "" {
			return v
		}
	}
	return d.QR
}

// codeFields are the field keys that can carry the draft's code, in Code
// priority order.
var codeFields = []string{FieldSealNo, FieldQR, FieldQRCode}

// TouchesCode reports whether patch sets or clears a code field.
func TouchesCode(patch map[string]any) bool {
	for _, key := range codeFields {
		if _, ok := patch[key]; ok {
			return true
		}
	}
	return false
}

// SyncQR sets the top-level QR to the code carried in the fields, or clears
// it when no code field is set.
func (d *Draft) SyncQR() {
	d.QR = ""
	d.QR = d.Code()
}

// Clone returns a deep copy of the draft.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	c := *d
	c.Fields = d.Fields.Clone()
	c.PhotoIDs = slices.Clone(d.PhotoIDs)
	if c.PhotoIDs == nil {
		c.PhotoIDs = []string{}
	}
	return &c
}

// Fields is the open key-value mapping of a draft.
type Fields map[string]any

// IsAbsent reports whether a value counts as "not set". Absent values are
// removed from the mapping instead of being stored.
func IsAbsent(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return s == ""
	}
	return false
}

// Apply merges patch into the fields, deleting keys whose patch value is absent.
func (f Fields) Apply(patch map[string]any) {
	for key, value := range patch {
		if IsAbsent(value) {
			delete(f, key)
			continue
		}
		f[key] = value
	}
}

// Clone returns a shallow copy of the mapping. Values are scalars.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	return maps.Clone(f)
}

// String returns the value of key rendered as a string, or "" if absent.
func (f Fields) String(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the value of key as an integer.
func (f Fields) Int(key string) (int64, bool) {
	switch v := f[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

// UnmarshalJSON decodes fields keeping integral numbers as int64.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	out := make(Fields, len(raw))
	for key, value := range raw {
		if n, ok := value.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				out[key] = i
				continue
			}
			fl, err := n.Float64()
			if err != nil {
				return fmt.Errorf("decoding field %q: %w", key, err)
			}
			out[key] = fl
			continue
		}
		out[key] = value
	}
	*f = out
	return nil
}
