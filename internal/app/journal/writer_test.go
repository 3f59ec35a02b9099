package journal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"satfarm/internal/adapter/repo/memory"
	"satfarm/internal/app/ports"
	"satfarm/internal/domain/farm"
)

func batch(session string, types ...string) ports.EventBatch {
	b := ports.EventBatch{SessionID: session, Score: ports.ScoreRecord{SessionID: session, Balance: 900, XP: 15}}
	for _, typ := range types {
		b.Events = append(b.Events, farm.DomainEvent{Type: typ, OccurredAt: time.Unix(1700000000, 0)})
	}
	return b
}

func TestWriter_PersistsJournalAndScore(t *testing.T) {
	store := memory.NewStore()
	journalRepo := memory.NewJournalRepo(store)
	scores := memory.NewScoreboardRepo(store)
	w := NewWriter(WriterConfig{
		TxManager:  memory.NewTxManager(store),
		Journal:    journalRepo,
		Scoreboard: scores,
	})

	w.Publish(batch("s-1", "simulation_started"))
	w.Publish(batch("s-1", "action_applied", "parcel_ticked"))
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries, err := journalRepo.ListBySession(context.Background(), "s-1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 || w.Written() != 3 {
		t.Fatalf("expected 3 entries written, got %d (written=%d)", len(entries), w.Written())
	}
	if entries[0].ID == "" || entries[0].ID == entries[1].ID {
		t.Fatalf("expected unique entry ids, got %q %q", entries[0].ID, entries[1].ID)
	}
	top, _ := scores.Top(context.Background(), 10)
	if len(top) != 1 || top[0].Balance != 900 {
		t.Fatalf("expected score upserted, got %+v", top)
	}

	w.Publish(batch("s-1", "late"))
	if got, _ := journalRepo.ListBySession(context.Background(), "s-1", 0); len(got) != 3 {
		t.Fatalf("expected publish after close to be ignored")
	}
}

type blockingJournal struct {
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (b *blockingJournal) Append(context.Context, []ports.JournalEntry) error {
	<-b.release
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	return errors.New("disk full")
}

func (b *blockingJournal) ListBySession(context.Context, string, int) ([]ports.JournalEntry, error) {
	return nil, nil
}

func TestWriter_DropsWhenBufferFull(t *testing.T) {
	j := &blockingJournal{release: make(chan struct{})}
	w := NewWriter(WriterConfig{Journal: j, Buffer: 1})

	for i := 0; i < 10; i++ {
		w.Publish(batch("s-1", "parcel_ticked"))
	}
	if w.Dropped() == 0 {
		t.Fatalf("expected drops while the writer is stalled")
	}
	close(j.release)
	_ = w.Close()
	if w.Written() != 0 {
		t.Fatalf("expected failed appends not to count as written")
	}
}

type countingPublisher struct{ n int }

func (c *countingPublisher) Publish(ports.EventBatch) { c.n++ }

func TestFanout(t *testing.T) {
	a, b := &countingPublisher{}, &countingPublisher{}
	Fanout{a, nil, b}.Publish(batch("s-1", "x"))
	if a.n != 1 || b.n != 1 {
		t.Fatalf("expected both publishers called once, got %d %d", a.n, b.n)
	}
}
