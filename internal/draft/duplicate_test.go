package draft

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/store"
)

func TestCodeSequence(t *testing.T) {
	tests := []struct {
		code string
		want []string
	}{
		{"SEAL-0099", []string{"SEAL-0100", "SEAL-0101", "SEAL-0102"}},
		{"ABC", []string{"ABC-1", "ABC-2", "ABC-3"}},
		{"A12B34", []string{"A12B35", "A12B36", "A12B37"}},
		{"X9", []string{"X10", "X11", "X12"}},
		{"99-TAIL", []string{"100-TAIL", "101-TAIL", "102-TAIL"}},
		{"N-000", []string{"N-001", "N-002", "N-003"}},
		{"Č-7", []string{"Č-8", "Č-9", "Č-10"}},
		{"ID-99999999999999999999", []string{"ID-100000000000000000000", "ID-100000000000000000001", "ID-100000000000000000002"}},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			seq := parseCode(tt.code)
			for i, want := range tt.want {
				if got := seq.at(i + 1); got != want {
					t.Errorf("at(%d) = %q, want %q", i+1, got, want)
				}
			}
		})
	}
}

// completedBase builds a completed draft with the given code and photos and
// returns its id.
func completedBase(t *testing.T, env *testEnv, code string, photos ...string) string {
	t.Helper()

	id, err := env.engine.NewDraft(env.ctx)
	require.NoError(t, err)
	require.NoError(t, env.engine.SetQR(env.ctx, code))
	require.NoError(t, env.engine.SetField(env.ctx, "categoryId", "C1"))
	for _, p := range photos {
		env.attach(t, p)
	}
	_, err = env.engine.CompleteCurrent(env.ctx, CompleteOptions{})
	require.NoError(t, err)
	return id
}

func TestDuplicateDraftIncrementsCode(t *testing.T) {
	env := newTestEngine(t)
	baseID := completedBase(t, env, "SEAL-0099", "front", "side")

	n, err := env.engine.DuplicateDraft(env.ctx, baseID, 3)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, 4, env.engine.CompletedCount())

	history, err := env.engine.ListHistory(env.ctx, store.Asc)
	require.NoError(t, err)
	require.Len(t, history, 4)
	require.Equal(t, baseID, history[0].ID)

	wantCodes := []string{"SEAL-0100", "SEAL-0101", "SEAL-0102"}
	basePhotos, _ := env.store.ListPhotos(env.ctx, baseID, false)
	require.Len(t, basePhotos, 2)

	var prevCompleted int64
	for i, clone := range history[1:] {
		require.Equal(t, wantCodes[i], clone.Code())
		require.Equal(t, wantCodes[i], clone.QR)
		require.Equal(t, wantCodes[i], clone.Fields[model.FieldQR])
		require.Equal(t, wantCodes[i], clone.Fields[model.FieldQRCode])
		require.Equal(t, wantCodes[i], clone.Fields[model.FieldSealNo])
		require.Equal(t, "C1", clone.Fields["categoryId"])
		require.True(t, clone.IsCompleted())

		at, ok := clone.CompletedAt()
		require.True(t, ok)
		require.Greater(t, at, prevCompleted)
		prevCompleted = at

		require.Len(t, clone.PhotoIDs, 2)
		photos, err := env.store.ListPhotos(env.ctx, clone.ID, false)
		require.NoError(t, err)
		require.Len(t, photos, 2)
		for _, pid := range clone.PhotoIDs {
			require.NotContains(t, []string{basePhotos[0].ID, basePhotos[1].ID}, pid)
			p, err := env.store.GetPhoto(env.ctx, pid)
			require.NoError(t, err)
			require.Equal(t, clone.ID, p.DraftID)
			require.NotEmpty(t, p.Blob)
		}
	}

	problems, err := store.CheckIntegrity(env.ctx, env.store.DB())
	require.NoError(t, err)
	require.Empty(t, problems)
}

func TestDuplicateDraftOfCurrentBase(t *testing.T) {
	env := newTestEngine(t)
	baseID := completedBase(t, env, "SEAL-0007", "front")
	require.NoError(t, env.engine.Load(env.ctx, baseID))

	updates, cancel := env.engine.Subscribe()
	defer cancel()
	<-updates

	n, err := env.engine.DuplicateDraft(env.ctx, baseID, 2)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	stored, err := env.store.GetDraft(env.ctx, baseID)
	require.NoError(t, err)
	current := env.engine.Current()
	require.Equal(t, stored, current)
	require.Equal(t, "SEAL-0007", current.Code())
	require.Len(t, env.engine.Photos(), 1)

	snap := <-updates
	require.Equal(t, stored, snap.Current)
	require.Len(t, snap.Photos, 1)
	require.Equal(t, 3, snap.CompletedCount)
}

func TestDuplicateDraftLeavesOtherCurrentAlone(t *testing.T) {
	env := newTestEngine(t)
	baseID := completedBase(t, env, "SEAL-0007")
	require.NoError(t, env.engine.SetField(env.ctx, "notes", "unsaved"))
	before := env.engine.Current()
	require.NotEqual(t, baseID, before.ID)

	_, err := env.engine.DuplicateDraft(env.ctx, baseID, 1)
	require.NoError(t, err)

	require.Equal(t, before, env.engine.Current())
	require.Equal(t, 2, env.engine.CompletedCount())
}

func TestDuplicateDraftWithoutDigits(t *testing.T) {
	env := newTestEngine(t)
	baseID := completedBase(t, env, "ABC")

	n, err := env.engine.DuplicateDraft(env.ctx, baseID, 2)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	history, _ := env.engine.ListHistory(env.ctx, store.Asc)
	require.Len(t, history, 3)
	require.Equal(t, "ABC-1", history[1].Code())
	require.Equal(t, "ABC-2", history[2].Code())
}

func TestDuplicateDraftIsAtomic(t *testing.T) {
	env := newTestEngine(t)
	baseID := completedBase(t, env, "SEAL-0099", "front")

	_, err := env.store.DB().Exec(`
		CREATE TRIGGER fail_second_clone BEFORE INSERT ON drafts
		WHEN json_extract(NEW.fields, '$.sealNo') = 'SEAL-0101'
		BEGIN
			SELECT RAISE(ABORT, 'injected failure');
		END`)
	require.NoError(t, err)

	before, _ := env.engine.ListHistory(env.ctx, store.Asc)

	n, err := env.engine.DuplicateDraft(env.ctx, baseID, 3)
	require.Error(t, err)
	require.ErrorIs(t, err, model.ErrStorage)
	require.Zero(t, n)

	after, _ := env.engine.ListHistory(env.ctx, store.Asc)
	require.Equal(t, before, after)
	require.Equal(t, 1, env.engine.CompletedCount())

	var photoCount int
	require.NoError(t, env.store.DB().QueryRow(`SELECT COUNT(*) FROM photos`).Scan(&photoCount))
	require.Equal(t, 1, photoCount)
}

func TestDuplicateDraftEdgeCases(t *testing.T) {
	env := newTestEngine(t)
	baseID := completedBase(t, env, "SEAL-0001")

	n, err := env.engine.DuplicateDraft(env.ctx, baseID, 0)
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = env.engine.DuplicateDraft(env.ctx, baseID, -4)
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = env.engine.DuplicateDraft(env.ctx, "missing", 1)
	require.ErrorIs(t, err, model.ErrNotFound)

	noCode, _ := env.engine.NewDraft(env.ctx)
	_, err = env.engine.CompleteCurrent(env.ctx, CompleteOptions{})
	require.NoError(t, err)
	_, err = env.engine.DuplicateDraft(env.ctx, noCode, 1)
	require.ErrorIs(t, err, model.ErrValidation)

	require.Equal(t, 2, env.engine.CompletedCount())
}
