package models

import "time"

// DispatchLog records one completed run of the reminder dispatch job
type DispatchLog struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID          string    `gorm:"size:36;not null;uniqueIndex" json:"run_id"`
	StartedAt      time.Time `gorm:"not null;index" json:"started_at"`
	EndedAt        time.Time `gorm:"not null" json:"ended_at"`
	ProcessedCount int       `gorm:"not null" json:"processed_count"`
	ErrorCount     int       `gorm:"not null" json:"error_count"`
	Summary        string    `gorm:"type:text" json:"summary"`
}

// TableName specifies the table name for the DispatchLog model
func (DispatchLog) TableName() string {
	return "dispatch_log"
}
