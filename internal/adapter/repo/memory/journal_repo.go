package memory

import (
	"context"
	"fmt"

	"satfarm/internal/app/ports"
)

type JournalRepo struct {
	store *Store
}

func NewJournalRepo(store *Store) JournalRepo {
	return JournalRepo{store: store}
}

func (r JournalRepo) Append(_ context.Context, entries []ports.JournalEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		_, stored := r.store.ids[e.ID]
		_, dup := seen[e.ID]
		if stored || dup {
			return fmt.Errorf("journal entry %s: %w", e.ID, ports.ErrConflict)
		}
		seen[e.ID] = struct{}{}
	}
	for _, e := range entries {
		r.store.ids[e.ID] = struct{}{}
		r.store.seq++
		e.Seq = r.store.seq
		r.store.journal[e.SessionID] = append(r.store.journal[e.SessionID], e)
	}
	return nil
}

// ListBySession returns the newest limit entries in journal order.
func (r JournalRepo) ListBySession(_ context.Context, sessionID string, limit int) ([]ports.JournalEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	all := r.store.journal[sessionID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]ports.JournalEntry(nil), all...), nil
}
