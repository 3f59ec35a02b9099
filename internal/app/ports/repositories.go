package ports

import (
	"context"
	"time"

	"satfarm/internal/domain/farm"
)

// JournalEntry is one persisted domain event. Seq is assigned by the store.
type JournalEntry struct {
	ID        string           `json:"id"`
	SessionID string           `json:"session_id"`
	Seq       int64            `json:"seq"`
	Event     farm.DomainEvent `json:"event"`
}

// TxManager runs fn with a ctx that repositories use to join one unit of work.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type JournalRepository interface {
	// Append fails with ErrConflict when an entry id is already stored.
	Append(ctx context.Context, entries []JournalEntry) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]JournalEntry, error)
}

// ScoreRecord is the latest ledger for a session. It is written for audit
// and leaderboard display only; sessions never restore from it.
type ScoreRecord struct {
	SessionID string    `json:"session_id"`
	Balance   int       `json:"balance"`
	XP        int       `json:"xp"`
	Day       int       `json:"day"`
	Planted   int       `json:"planted"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ScoreboardRepository interface {
	Upsert(ctx context.Context, rec ScoreRecord) error
	Top(ctx context.Context, limit int) ([]ScoreRecord, error)
}

// EventBatch is what a session emits after each turn that changed state.
type EventBatch struct {
	SessionID string             `json:"session_id"`
	Events    []farm.DomainEvent `json:"events"`
	Score     ScoreRecord        `json:"score"`
}

type EventPublisher interface {
	Publish(batch EventBatch)
}
