package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationMode controls how a reminder type notifies its owner when due
type NotificationMode string

const (
	NotificationModeNone          NotificationMode = "none"
	NotificationModeWorkflow      NotificationMode = "workflow"
	NotificationModeCommunication NotificationMode = "communication"
)

// ReminderType is the configuration for a class of reminders: which entity kind
// they target, how they notify, and whether a notification completes them.
type ReminderType struct {
	ID                             int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	Name                           string           `gorm:"size:100;not null" json:"name"`
	NotificationMode               NotificationMode `gorm:"size:20;not null;default:'none'" json:"notification_mode"`
	NotificationWorkflowTypeID     *int64           `json:"notification_workflow_type_id"`
	ShouldAutoCompleteWhenNotified bool             `gorm:"not null;default:false" json:"should_auto_complete_when_notified"`
	EntityTypeID                   int64            `gorm:"not null;index" json:"entity_type_id"`
	HighlightColor                 string           `gorm:"size:20" json:"highlight_color"`
	Order                          int              `gorm:"not null;default:0" json:"order"`
}

// TableName specifies the table name for the ReminderType model
func (ReminderType) TableName() string {
	return "reminder_type"
}

// Reminder represents a single scheduled reminder owned by a person about some entity
type Reminder struct {
	ID             int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	ReminderTypeID int64        `gorm:"not null;index" json:"reminder_type_id"`
	ReminderType   ReminderType `gorm:"foreignKey:ReminderTypeID" json:"reminder_type"`
	PersonAliasID  int64        `gorm:"not null;index" json:"person_alias_id"`
	PersonAlias    PersonAlias  `gorm:"foreignKey:PersonAliasID" json:"person_alias"`
	EntityTypeID   int64        `gorm:"not null;index" json:"entity_type_id"`
	EntityID       int64        `gorm:"not null" json:"entity_id"`
	ReminderDate   time.Time    `gorm:"not null;index" json:"reminder_date"`
	Note           string       `gorm:"type:text" json:"note"`
	IsComplete     bool         `gorm:"not null;default:false" json:"is_complete"`
	CompletedDate  *time.Time   `json:"completed_date"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null" json:"updated_at"`
}

// IsActive reports whether the reminder is due and not yet completed as of the given time
func (r *Reminder) IsActive(asOf time.Time) bool {
	return !r.IsComplete && !r.ReminderDate.After(asOf)
}

// PersonID returns the owning person's id through the preloaded alias
func (r *Reminder) PersonID() int64 {
	return r.PersonAlias.PersonID
}

// BeforeCreate hook is called before creating a new reminder
func (r *Reminder) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}
	return nil
}

// TableName specifies the table name for the Reminder model
func (Reminder) TableName() string {
	return "reminder"
}
