package gormrepo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"gorm.io/gorm"

	"satfarm/internal/app/ports"
	"satfarm/internal/domain/farm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := ApplyMigrations(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	db := openTestDB(t)
	if err := ApplyMigrations(context.Background(), db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var count int64
	if err := db.Table("schema_migrations").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != int64(len(migrations)) {
		t.Fatalf("expected %d recorded migrations, got %d", len(migrations), count)
	}
}

func TestJournalRepo_RoundTripNewestInOrder(t *testing.T) {
	db := openTestDB(t)
	repo := NewJournalRepo(db)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []ports.JournalEntry{
		{ID: "e-1", SessionID: "s-1", Event: farm.DomainEvent{Type: "simulation_started", OccurredAt: at}},
		{ID: "e-2", SessionID: "s-1", Event: farm.DomainEvent{Type: "action_applied", OccurredAt: at.Add(time.Second), Payload: map[string]any{"parcel_id": 3, "cost": 50}}},
		{ID: "e-3", SessionID: "s-2", Event: farm.DomainEvent{Type: "parcel_ticked", OccurredAt: at}},
		{ID: "e-4", SessionID: "s-1", Event: farm.DomainEvent{Type: "parcel_ticked", OccurredAt: at.Add(2 * time.Second)}},
	}
	if err := repo.Append(ctx, entries); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := repo.ListBySession(ctx, "s-1", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "e-2" || got[1].ID != "e-4" {
		t.Fatalf("expected [e-2 e-4], got %+v", got)
	}
	if got[0].Seq >= got[1].Seq {
		t.Fatalf("expected ascending seq, got %d then %d", got[0].Seq, got[1].Seq)
	}
	if got[0].Event.Payload["parcel_id"] != 3.0 {
		t.Fatalf("expected payload parcel_id 3, got %v", got[0].Event.Payload["parcel_id"])
	}
	if !got[0].Event.OccurredAt.Equal(at.Add(time.Second)) {
		t.Fatalf("expected occurred_at preserved, got %v", got[0].Event.OccurredAt)
	}
}

func TestJournalRepo_DuplicateEntryIDFails(t *testing.T) {
	db := openTestDB(t)
	repo := NewJournalRepo(db)
	ctx := context.Background()
	entry := ports.JournalEntry{ID: "e-1", SessionID: "s-1", Event: farm.DomainEvent{Type: "x", OccurredAt: time.Now()}}

	if err := repo.Append(ctx, []ports.JournalEntry{entry}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.Append(ctx, []ports.JournalEntry{entry}); err == nil {
		t.Fatalf("expected duplicate entry id to fail")
	}
	if got, _ := repo.ListBySession(ctx, "s-1", 0); len(got) != 1 {
		t.Fatalf("expected one stored entry, got %d", len(got))
	}
}

func TestScoreboardRepo_UpsertOverwrites(t *testing.T) {
	db := openTestDB(t)
	repo := NewScoreboardRepo(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_ = repo.Upsert(ctx, ports.ScoreRecord{SessionID: "a", Balance: 950, XP: 10, UpdatedAt: now})
	_ = repo.Upsert(ctx, ports.ScoreRecord{SessionID: "b", Balance: 800, XP: 20, UpdatedAt: now})
	if err := repo.Upsert(ctx, ports.ScoreRecord{SessionID: "a", Balance: 1040, XP: 45, Day: 30, UpdatedAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	top, err := repo.Top(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(top))
	}
	if top[0].SessionID != "a" || top[0].Balance != 1040 || top[0].Day != 30 {
		t.Fatalf("expected updated session a first, got %+v", top[0])
	}
}

func TestTxManager_RollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	repo := NewJournalRepo(db)
	tx := NewTxManager(db)
	ctx := context.Background()
	boom := errors.New("boom")

	err := tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := repo.Append(txCtx, []ports.JournalEntry{{ID: "e-1", SessionID: "s-1", Event: farm.DomainEvent{Type: "x", OccurredAt: time.Now()}}}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, _ := repo.ListBySession(ctx, "s-1", 0)
	if len(got) != 0 {
		t.Fatalf("expected rollback, got %d entries", len(got))
	}
}

func TestTxManager_NestedCallJoinsOuterTransaction(t *testing.T) {
	db := openTestDB(t)
	repo := NewJournalRepo(db)
	tx := NewTxManager(db)
	ctx := context.Background()
	boom := errors.New("boom")

	err := tx.RunInTx(ctx, func(outer context.Context) error {
		if err := tx.RunInTx(outer, func(inner context.Context) error {
			return repo.Append(inner, []ports.JournalEntry{{ID: "e-1", SessionID: "s-1", Event: farm.DomainEvent{Type: "x", OccurredAt: time.Now()}}})
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got, _ := repo.ListBySession(ctx, "s-1", 0); len(got) != 0 {
		t.Fatalf("expected inner write rolled back with outer, got %d entries", len(got))
	}
}

func TestPostgres_Migrations(t *testing.T) {
	dsn := os.Getenv("SATFARM_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("SATFARM_TEST_PG_DSN is required for integration test")
	}
	db, err := OpenPostgres(dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if err := ApplyMigrations(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}
