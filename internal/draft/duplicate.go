package draft

import (
	"context"
	"math/big"
	"strconv"
	"strings"

	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/store"
)

// DuplicateDraft creates count completed copies of a completed base draft.
// Each copy gets the base code incremented by its offset (see codeSequence),
// its own copies of the base photos, and completedAt/updatedAt stamped
// now+offset so copies sort in creation order. All copies are written in one
// transaction. Returns the number of copies created.
func (e *Engine) DuplicateDraft(ctx context.Context, baseID string, count int) (int, error) {
	if count <= 0 {
		return 0, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	base, err := e.store.GetDraft(ctx, baseID)
	if err != nil {
		return 0, err
	}
	if base == nil {
		return 0, &model.NotFoundError{Message: "source draft " + baseID + " not found"}
	}

	code := base.Code()
	if code == "" {
		return 0, &model.ValidationError{Message: "source code not found"}
	}
	seq := parseCode(code)

	basePhotos, err := e.store.ListPhotos(ctx, baseID, false)
	if err != nil {
		return 0, err
	}

	type photoCopy struct {
		srcID, newID, draftID string
		createdAt             int64
	}

	now := e.nowMillis()
	clones := make([]*model.Draft, 0, count)
	var copies []photoCopy

	for i := 1; i <= count; i++ {
		stamp := now + int64(i)
		nextCode := seq.at(i)

		clone := &model.Draft{
			ID:        e.newID(),
			QR:        nextCode,
			Fields:    base.Fields.Clone(),
			PhotoIDs:  make([]string, 0, len(basePhotos)),
			UpdatedAt: stamp,
		}
		clone.Fields.Apply(map[string]any{
			model.FieldQR:          nextCode,
			model.FieldQRCode:      nextCode,
			model.FieldSealNo:      nextCode,
			model.FieldStatus:      model.DraftStatusCompleted,
			model.FieldCompletedAt: stamp,
		})

		for _, p := range basePhotos {
			c := photoCopy{srcID: p.ID, newID: e.newID(), draftID: clone.ID, createdAt: stamp}
			clone.PhotoIDs = append(clone.PhotoIDs, c.newID)
			copies = append(copies, c)
		}
		clones = append(clones, clone)
	}

	err = e.store.InTx(ctx, func(tx store.Repository) error {
		for _, c := range copies {
			if err := tx.CopyPhoto(ctx, c.srcID, c.newID, c.draftID, c.createdAt); err != nil {
				return err
			}
		}
		for _, clone := range clones {
			if err := tx.PutDraft(ctx, clone); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := e.refreshStats(ctx); err != nil {
		return 0, err
	}
	if e.current != nil && e.current.ID == baseID {
		refreshed, err := e.store.GetDraft(ctx, baseID)
		if err != nil {
			return 0, err
		}
		if refreshed != nil {
			e.current = refreshed
		}
		if err := e.refreshPhotos(ctx); err != nil {
			return 0, err
		}
	}

	e.logger.Info("duplicated draft",
		"base_draft_id", baseID,
		"code", code,
		"count", len(clones),
		"photos_per_copy", len(basePhotos),
	)
	e.publish()
	return len(clones), nil
}

// codeSequence derives successive codes from a base code by incrementing its
// rightmost run of ASCII digits, keeping the run's zero-padded width. A code
// without digits gets "-N" appended instead. For codes with several numeric
// groups only the last one changes: "A12B34" yields "A12B35".
type codeSequence struct {
	code   string
	prefix string
	suffix string
	number *big.Int
	width  int
}

func parseCode(code string) codeSequence {
	seq := codeSequence{code: code}

	end := strings.LastIndexFunc(code, isDigit)
	if end < 0 {
		return seq
	}
	start := end
	for start > 0 && isDigit(rune(code[start-1])) {
		start--
	}

	digits := code[start : end+1]
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return seq
	}
	seq.prefix = code[:start]
	seq.suffix = code[end+1:]
	seq.number = n
	seq.width = len(digits)
	return seq
}

// at returns the code offset steps after the base.
func (s codeSequence) at(offset int) string {
	if s.number == nil {
		return s.code + "-" + strconv.Itoa(offset)
	}
	n := new(big.Int).Add(s.number, big.NewInt(int64(offset)))
	digits := n.String()
	if pad := s.width - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	return s.prefix + digits + s.suffix
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
