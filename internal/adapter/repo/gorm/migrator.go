package gormrepo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"satfarm/internal/adapter/repo/gorm/model"
)

type migration struct {
	version string
	apply   func(tx *gorm.DB) error
}

var migrations = []migration{
	{
		version: "0001_journal",
		apply: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&model.JournalEntry{})
		},
	},
	{
		version: "0002_session_scores",
		apply: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&model.SessionScore{})
		},
	},
}

// ApplyMigrations brings the schema up to date, recording each applied
// version in schema_migrations.
func ApplyMigrations(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&model.SchemaMigration{}); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var count int64
		if err := db.WithContext(ctx).Model(&model.SchemaMigration{}).Where("version = ?", m.version).Count(&count).Error; err != nil {
			return fmt.Errorf("check migration %s: %w", m.version, err)
		}
		if count > 0 {
			continue
		}

		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := m.apply(tx); err != nil {
				return fmt.Errorf("apply migration %s: %w", m.version, err)
			}
			rec := model.SchemaMigration{Version: m.version, AppliedAt: time.Now().UTC()}
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("record migration %s: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
