package export

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"satfarm/internal/app/ports"
	"satfarm/internal/domain/farm"
)

// Record is one exported journal line.
type Record struct {
	Seq        int64          `json:"seq"`
	ID         string         `json:"id"`
	SessionID  string         `json:"session_id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func RecordFrom(e ports.JournalEntry) Record {
	return Record{
		Seq:        e.Seq,
		ID:         e.ID,
		SessionID:  e.SessionID,
		Type:       e.Event.Type,
		OccurredAt: e.Event.OccurredAt,
		Payload:    e.Event.Payload,
	}
}

func (r Record) Entry() ports.JournalEntry {
	return ports.JournalEntry{
		ID:        r.ID,
		SessionID: r.SessionID,
		Seq:       r.Seq,
		Event: farm.DomainEvent{
			Type:       r.Type,
			OccurredAt: r.OccurredAt,
			Payload:    r.Payload,
		},
	}
}

// JSONLZstdWriter writes one JSON document per line into a zstd stream.
type JSONLZstdWriter struct {
	mu    sync.Mutex
	f     *os.File
	enc   *zstd.Encoder
	w     *bufio.Writer
	count int
}

func Create(path string) (*JSONLZstdWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &JSONLZstdWriter{f: f, enc: enc, w: bufio.NewWriterSize(enc, 128*1024)}, nil
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return os.ErrClosed
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.count++
	return nil
}

func (w *JSONLZstdWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	flushErr := w.w.Flush()
	encErr := w.enc.Close()
	fileErr := w.f.Close()
	w.w, w.enc, w.f = nil, nil, nil
	return errors.Join(flushErr, encErr, fileErr)
}

// ExportJournal writes up to limit entries of one session to path and
// returns how many were written.
func ExportJournal(ctx context.Context, repo ports.JournalRepository, sessionID, path string, limit int) (int, error) {
	entries, err := repo.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return 0, fmt.Errorf("export journal: %w", err)
	}
	w, err := Create(path)
	if err != nil {
		return 0, fmt.Errorf("export journal: %w", err)
	}
	for _, e := range entries {
		if err := w.Write(RecordFrom(e)); err != nil {
			_ = w.Close()
			return 0, fmt.Errorf("export journal: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("export journal: %w", err)
	}
	return len(entries), nil
}

// ReadRecords decodes a file written by JSONLZstdWriter.
func ReadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Record
	jd := json.NewDecoder(dec)
	for {
		var r Record
		if err := jd.Decode(&r); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("%s: record %d: %w", path, len(out)+1, err)
		}
		out = append(out, r)
	}
}
