package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Problem describes one integrity violation.
type Problem struct {
	DraftID string `json:"draft_id,omitempty" yaml:"draft_id,omitempty"`
	PhotoID string `json:"photo_id,omitempty" yaml:"photo_id,omitempty"`
	Message string `json:"message" yaml:"message"`
}

func (p Problem) String() string {
	switch {
	case p.DraftID != "" && p.PhotoID != "":
		return fmt.Sprintf("draft %s / photo %s: %s", p.DraftID, p.PhotoID, p.Message)
	case p.PhotoID != "":
		return fmt.Sprintf("photo %s: %s", p.PhotoID, p.Message)
	default:
		return fmt.Sprintf("draft %s: %s", p.DraftID, p.Message)
	}
}

// CheckIntegrity verifies that every photo id a draft references exists and
// belongs to it, that every photo has an owner, and that stored checksums
// match their blobs.
func CheckIntegrity(ctx context.Context, q Querier) ([]Problem, error) {
	var problems []Problem

	drafts, err := ListDrafts(ctx, q, Asc)
	if err != nil {
		return nil, err
	}
	for _, d := range drafts {
		for _, photoID := range d.PhotoIDs {
			var owner string
			err := q.QueryRowContext(ctx, `SELECT draft_id FROM photos WHERE id = ?`, photoID).Scan(&owner)
			switch {
			case err == sql.ErrNoRows:
				problems = append(problems, Problem{DraftID: d.ID, PhotoID: photoID, Message: "referenced photo is missing"})
			case err != nil:
				return nil, storageErr("checking photo reference", err)
			case owner != d.ID:
				problems = append(problems, Problem{DraftID: d.ID, PhotoID: photoID, Message: "referenced photo belongs to draft " + owner})
			}
		}
	}

	rows, err := q.QueryContext(ctx,
		`SELECT p.id, p.draft_id, p.blob, p.checksum, d.id IS NULL
		 FROM photos p LEFT JOIN drafts d ON d.id = p.draft_id`,
	)
	if err != nil {
		return nil, storageErr("scanning photos", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, draftID, checksum string
		var blob []byte
		var orphan bool
		if err := rows.Scan(&id, &draftID, &blob, &checksum, &orphan); err != nil {
			return nil, storageErr("scanning photo", err)
		}
		if orphan {
			problems = append(problems, Problem{DraftID: draftID, PhotoID: id, Message: "owner draft is missing"})
		}
		if checksum != "" && checksum != Checksum(blob) {
			problems = append(problems, Problem{PhotoID: id, Message: "checksum mismatch"})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("scanning photos", err)
	}

	return problems, nil
}
