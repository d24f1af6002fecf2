package models

// Well-known entity type names. Resolvers are registered against these.
const (
	EntityTypePerson = "Person"
	EntityTypeGroup  = "Group"
)

// EntityType identifies the kind of record a reminder points at.
// Reminders store an (entity_type_id, entity_id) pair instead of a foreign key,
// so any registered record kind can carry reminders.
type EntityType struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string `gorm:"size:100;not null;uniqueIndex" json:"name"`
	FriendlyName string `gorm:"size:100;not null" json:"friendly_name"`
}

// TableName specifies the table name for the EntityType model
func (EntityType) TableName() string {
	return "entity_type"
}
