package services

import (
	"context"
	"time"

	"steeple/internal/models"

	"gorm.io/gorm"
)

// GormReminderStore is the Postgres-backed ReminderStore
type GormReminderStore struct {
	db *gorm.DB
}

// NewGormReminderStore creates a store over the given database handle
func NewGormReminderStore(db *gorm.DB) *GormReminderStore {
	return &GormReminderStore{db: db}
}

func (s *GormReminderStore) activeScope(ctx context.Context, asOf time.Time) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("ReminderType").
		Preload("PersonAlias").
		Preload("PersonAlias.Person").
		Where("is_complete = false AND reminder_date <= ?", asOf)
}

// ActiveReminders implements ReminderStore
func (s *GormReminderStore) ActiveReminders(ctx context.Context, asOf time.Time) ([]models.Reminder, error) {
	var reminders []models.Reminder
	err := s.activeScope(ctx, asOf).Order("id").Find(&reminders).Error
	return reminders, err
}

// ActiveRemindersForPerson implements ReminderStore
func (s *GormReminderStore) ActiveRemindersForPerson(ctx context.Context, personID int64, asOf time.Time) ([]models.Reminder, error) {
	var reminders []models.Reminder
	err := s.activeScope(ctx, asOf).
		Where("person_alias_id IN (?)", s.db.Model(&models.PersonAlias{}).Select("id").Where("person_id = ?", personID)).
		Order("id").
		Find(&reminders).Error
	return reminders, err
}

// MarkComplete implements ReminderStore
func (s *GormReminderStore) MarkComplete(ctx context.Context, reminderID int64, completedAt time.Time) error {
	return s.db.WithContext(ctx).Model(&models.Reminder{}).
		Where("id = ?", reminderID).
		Updates(map[string]any{
			"is_complete":    true,
			"completed_date": completedAt,
			"updated_at":     time.Now(),
		}).Error
}

// ZeroReminderCounts implements ReminderStore
func (s *GormReminderStore) ZeroReminderCounts(ctx context.Context, exceptPersonIDs []int64) error {
	tx := s.db.WithContext(ctx).Model(&models.Person{}).Where("reminder_count > 0")
	if len(exceptPersonIDs) > 0 {
		tx = tx.Where("id NOT IN ?", exceptPersonIDs)
	}
	return tx.Update("reminder_count", 0).Error
}

// SetReminderCount implements ReminderStore
func (s *GormReminderStore) SetReminderCount(ctx context.Context, personID int64, count int) error {
	return s.db.WithContext(ctx).Model(&models.Person{}).
		Where("id = ?", personID).
		Update("reminder_count", count).Error
}

// ReminderCounts implements ReminderStore
func (s *GormReminderStore) ReminderCounts(ctx context.Context, personIDs []int64) (map[int64]int, error) {
	if len(personIDs) == 0 {
		return map[int64]int{}, nil
	}
	var persons []models.Person
	err := s.db.WithContext(ctx).
		Select("id", "reminder_count").
		Where("id IN ?", personIDs).
		Find(&persons).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[int64]int, len(persons))
	for _, p := range persons {
		counts[p.ID] = p.ReminderCount
	}
	return counts, nil
}

// EntityTypes implements ReminderStore
func (s *GormReminderStore) EntityTypes(ctx context.Context) ([]models.EntityType, error) {
	var types []models.EntityType
	err := s.db.WithContext(ctx).Find(&types).Error
	return types, err
}

// LogDispatch implements ReminderStore
func (s *GormReminderStore) LogDispatch(ctx context.Context, entry models.DispatchLog) error {
	return s.db.WithContext(ctx).Create(&entry).Error
}
