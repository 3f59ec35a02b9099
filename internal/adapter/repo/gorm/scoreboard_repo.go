package gormrepo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"satfarm/internal/adapter/repo/gorm/model"
	"satfarm/internal/app/ports"
)

type ScoreboardRepo struct {
	db *gorm.DB
}

func NewScoreboardRepo(db *gorm.DB) ScoreboardRepo {
	return ScoreboardRepo{db: db}
}

func (r ScoreboardRepo) Upsert(ctx context.Context, rec ports.ScoreRecord) error {
	row := model.SessionScore{
		SessionID: rec.SessionID,
		Balance:   rec.Balance,
		XP:        rec.XP,
		Day:       rec.Day,
		Planted:   rec.Planted,
		UpdatedAt: rec.UpdatedAt.UTC(),
	}
	return dbFrom(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"balance", "xp", "day", "planted", "updated_at"}),
		}).
		Create(&row).Error
}

func (r ScoreboardRepo) Top(ctx context.Context, limit int) ([]ports.ScoreRecord, error) {
	rows := []model.SessionScore{}
	query := dbFrom(ctx, r.db).
		Clauses(clause.OrderBy{
			Columns: []clause.OrderByColumn{
				{Column: clause.Column{Name: "xp"}, Desc: true},
				{Column: clause.Column{Name: "session_id"}},
			},
		})
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ports.ScoreRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, ports.ScoreRecord{
			SessionID: row.SessionID,
			Balance:   row.Balance,
			XP:        row.XP,
			Day:       row.Day,
			Planted:   row.Planted,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return out, nil
}
