package model

import "time"

const TableNameJournalEntry = "journal_entries"

// JournalEntry mapped from table <journal_entries>
type JournalEntry struct {
	Seq        int64     `gorm:"column:seq;primaryKey;autoIncrement:true" json:"seq"`
	EntryID    string    `gorm:"column:entry_id;type:varchar(36);not null;uniqueIndex" json:"entry_id"`
	SessionID  string    `gorm:"column:session_id;type:varchar(64);not null;index:idx_journal_session_seq,priority:1" json:"session_id"`
	Type       string    `gorm:"column:type;type:varchar(64);not null;index" json:"type"`
	OccurredAt time.Time `gorm:"column:occurred_at;not null" json:"occurred_at"`
	Payload    string    `gorm:"column:payload;type:text" json:"payload"`
}

// TableName JournalEntry's table name
func (*JournalEntry) TableName() string {
	return TableNameJournalEntry
}
