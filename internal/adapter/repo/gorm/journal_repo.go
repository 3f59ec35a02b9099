package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"satfarm/internal/adapter/repo/gorm/model"
	"satfarm/internal/app/ports"
	"satfarm/internal/domain/farm"
)

type JournalRepo struct {
	db *gorm.DB
}

func NewJournalRepo(db *gorm.DB) JournalRepo {
	return JournalRepo{db: db}
}

func (r JournalRepo) Append(ctx context.Context, entries []ports.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]model.JournalEntry, 0, len(entries))
	for _, e := range entries {
		b, err := json.Marshal(e.Event.Payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", e.Event.Type, err)
		}
		rows = append(rows, model.JournalEntry{
			EntryID:    e.ID,
			SessionID:  e.SessionID,
			Type:       e.Event.Type,
			OccurredAt: e.Event.OccurredAt.UTC(),
			Payload:    string(b),
		})
	}
	if err := dbFrom(ctx, r.db).Create(&rows).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("append journal: %w", ports.ErrConflict)
		}
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}

// ListBySession returns the newest limit entries in journal order.
func (r JournalRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]ports.JournalEntry, error) {
	rows := []model.JournalEntry{}
	query := dbFrom(ctx, r.db).
		Where(&model.JournalEntry{SessionID: sessionID}).
		Clauses(clause.OrderBy{
			Columns: []clause.OrderByColumn{{Column: clause.Column{Name: "seq"}, Desc: true}},
		})
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]ports.JournalEntry, len(rows))
	for i, row := range rows {
		var payload map[string]any
		if row.Payload != "" {
			_ = json.Unmarshal([]byte(row.Payload), &payload)
		}
		out[len(rows)-1-i] = ports.JournalEntry{
			ID:        row.EntryID,
			SessionID: row.SessionID,
			Seq:       row.Seq,
			Event: farm.DomainEvent{
				Type:       row.Type,
				OccurredAt: row.OccurredAt,
				Payload:    payload,
			},
		}
	}
	return out, nil
}
