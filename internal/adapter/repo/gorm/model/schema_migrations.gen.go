package model

import "time"

const TableNameSchemaMigration = "schema_migrations"

// SchemaMigration mapped from table <schema_migrations>
type SchemaMigration struct {
	Version   string    `gorm:"column:version;type:varchar(64);primaryKey" json:"version"`
	AppliedAt time.Time `gorm:"column:applied_at;not null" json:"applied_at"`
}

// TableName SchemaMigration's table name
func (*SchemaMigration) TableName() string {
	return TableNameSchemaMigration
}
