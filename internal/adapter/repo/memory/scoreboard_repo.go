package memory

import (
	"context"
	"sort"

	"satfarm/internal/app/ports"
)

type ScoreboardRepo struct {
	store *Store
}

func NewScoreboardRepo(store *Store) ScoreboardRepo {
	return ScoreboardRepo{store: store}
}

func (r ScoreboardRepo) Upsert(_ context.Context, rec ports.ScoreRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.scores[rec.SessionID] = rec
	return nil
}

func (r ScoreboardRepo) Top(_ context.Context, limit int) ([]ports.ScoreRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]ports.ScoreRecord, 0, len(r.store.scores))
	for _, rec := range r.store.scores {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].XP != out[j].XP {
			return out[i].XP > out[j].XP
		}
		return out[i].SessionID < out[j].SessionID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
