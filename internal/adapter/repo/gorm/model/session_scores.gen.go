package model

import "time"

const TableNameSessionScore = "session_scores"

// SessionScore mapped from table <session_scores>
type SessionScore struct {
	SessionID string    `gorm:"column:session_id;type:varchar(64);primaryKey" json:"session_id"`
	Balance   int       `gorm:"column:balance;not null" json:"balance"`
	XP        int       `gorm:"column:xp;not null;index" json:"xp"`
	Day       int       `gorm:"column:day;not null" json:"day"`
	Planted   int       `gorm:"column:planted;not null" json:"planted"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName SessionScore's table name
func (*SessionScore) TableName() string {
	return TableNameSessionScore
}
