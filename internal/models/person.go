package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Person represents a person record in the system
type Person struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	NickName      string         `gorm:"size:50;not null" json:"nick_name"`
	LastName      string         `gorm:"size:50;not null" json:"last_name"`
	Email         string         `gorm:"size:255;index" json:"email"`
	PhotoID       string         `gorm:"size:255" json:"photo_id"`
	ReminderCount int            `gorm:"not null;default:0" json:"reminder_count"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// FullName returns the person's display name
func (p *Person) FullName() string {
	return strings.TrimSpace(p.NickName + " " + p.LastName)
}

// BeforeCreate hook is called before creating a new person
func (p *Person) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	return nil
}

// TableName specifies the table name for the Person model
func (Person) TableName() string {
	return "person"
}

// PersonAlias is the stable reference through which other records point at a person.
// Merged person records keep their old aliases, so reminders never dangle.
type PersonAlias struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	PersonID int64  `gorm:"not null;index" json:"person_id"`
	Person   Person `gorm:"foreignKey:PersonID" json:"person"`
}

// TableName specifies the table name for the PersonAlias model
func (PersonAlias) TableName() string {
	return "person_alias"
}
