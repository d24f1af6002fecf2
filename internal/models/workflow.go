package models

import (
	"time"

	"gorm.io/datatypes"
)

// WorkflowType represents a workflow definition that can be launched for a reminder
type WorkflowType struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string `gorm:"size:100;not null" json:"name"`
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`
}

// TableName specifies the table name for the WorkflowType model
func (WorkflowType) TableName() string {
	return "workflow_type"
}

// WorkflowLaunch is a queued request to start a workflow. The dispatch job writes
// one row per workflow notification; the workflow engine drains the table.
type WorkflowLaunch struct {
	ID             int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	WorkflowTypeID int64          `gorm:"not null;index" json:"workflow_type_id"`
	Name           string         `gorm:"size:255;not null" json:"name"`
	Attributes     datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"attributes"`
	Status         string         `gorm:"size:20;not null;default:'pending';index" json:"status"`
	RequestedAt    time.Time      `gorm:"not null" json:"requested_at"`
}

// TableName specifies the table name for the WorkflowLaunch model
func (WorkflowLaunch) TableName() string {
	return "workflow_launch"
}
