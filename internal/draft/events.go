package draft

import (
	"slices"

	"github.com/erazemk/popis/internal/model"
)

// Snapshot is the engine's observable state after a mutation.
type Snapshot struct {
	Current        *model.Draft  `json:"current"`
	Photos         []model.Photo `json:"photos"`
	CompletedCount int           `json:"completed_count"`
}

// Subscribe returns a channel that always holds the newest snapshot. A slow
// reader skips intermediate snapshots. The current state is delivered
// immediately. Call cancel to unsubscribe; it closes the channel.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	e.mu.Lock()
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	ch <- e.snapshot()
	e.subMu.Unlock()
	e.mu.Unlock()

	cancel := func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		if c, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// Current returns a copy of the current draft, or nil.
func (e *Engine) Current() *model.Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current.Clone()
}

// Photos returns the current draft's photos, most recently attached first.
func (e *Engine) Photos() []model.Photo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.photos)
}

// CompletedCount returns the number of completed drafts in the store.
func (e *Engine) CompletedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completedCount
}

func (e *Engine) snapshot() Snapshot {
	photos := slices.Clone(e.photos)
	if photos == nil {
		photos = []model.Photo{}
	}
	return Snapshot{
		Current:        e.current.Clone(),
		Photos:         photos,
		CompletedCount: e.completedCount,
	}
}

// publish must be called with e.mu held.
func (e *Engine) publish() {
	snap := e.snapshot()

	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// Replace the stale snapshot nobody has read yet.
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
