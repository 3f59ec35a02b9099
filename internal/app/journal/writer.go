package journal

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"satfarm/internal/app/ports"
)

const DefaultBuffer = 4096

// Writer persists event batches off the session turn. Publish never blocks;
// batches are dropped and counted when the buffer is full.
type Writer struct {
	tx      ports.TxManager
	journal ports.JournalRepository
	scores  ports.ScoreboardRepository
	log     zerolog.Logger

	ch      chan ports.EventBatch
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
	written atomic.Uint64
}

type WriterConfig struct {
	TxManager  ports.TxManager
	Journal    ports.JournalRepository
	Scoreboard ports.ScoreboardRepository
	Log        zerolog.Logger
	Buffer     int
}

func NewWriter(cfg WriterConfig) *Writer {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultBuffer
	}
	w := &Writer{
		tx:      cfg.TxManager,
		journal: cfg.Journal,
		scores:  cfg.Scoreboard,
		log:     cfg.Log.With().Str("component", "JournalWriter").Logger(),
		ch:      make(chan ports.EventBatch, cfg.Buffer),
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop()
	}()
	return w
}

func (w *Writer) Publish(b ports.EventBatch) {
	if w == nil {
		return
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	select {
	case w.ch <- b:
	default:
		w.dropped.Add(1)
	}
}

// Close drains pending batches and stops the writer.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.ch)
	w.mu.Unlock()
	w.wg.Wait()
	return nil
}

func (w *Writer) Dropped() uint64 { return w.dropped.Load() }
func (w *Writer) Written() uint64 { return w.written.Load() }

func (w *Writer) loop() {
	for b := range w.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := w.write(ctx, b); err != nil {
			w.log.Error().Err(err).Int("events", len(b.Events)).Msg("journal write failed")
		} else {
			w.written.Add(uint64(len(b.Events)))
		}
		cancel()
	}
}

func (w *Writer) write(ctx context.Context, b ports.EventBatch) error {
	entries := make([]ports.JournalEntry, 0, len(b.Events))
	for _, e := range b.Events {
		entries = append(entries, ports.JournalEntry{
			ID:        uuid.NewString(),
			SessionID: b.SessionID,
			Event:     e,
		})
	}
	run := func(txCtx context.Context) error {
		if err := w.journal.Append(txCtx, entries); err != nil {
			return err
		}
		if w.scores != nil && b.Score.SessionID != "" {
			return w.scores.Upsert(txCtx, b.Score)
		}
		return nil
	}
	if w.tx == nil {
		return run(ctx)
	}
	return w.tx.RunInTx(ctx, run)
}

// Fanout forwards every batch to each publisher in order.
type Fanout []ports.EventPublisher

func (f Fanout) Publish(b ports.EventBatch) {
	for _, p := range f {
		if p != nil {
			p.Publish(b)
		}
	}
}
