package services

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"steeple/internal/models"

	"gorm.io/gorm"
)

// ResolverFunc resolves one entity id of a single entity type
type ResolverFunc func(ctx context.Context, entityID int64) (ResolvedEntity, error)

// ResolverRegistry dispatches entity resolution to the func registered for each
// entity type. Reminders about unregistered types resolve to an error, which the
// pipeline treats as a per-item failure.
type ResolverRegistry struct {
	byType map[int64]ResolverFunc
}

// NewResolverRegistry creates an empty registry
func NewResolverRegistry() *ResolverRegistry {
	return &ResolverRegistry{byType: make(map[int64]ResolverFunc)}
}

// Register adds a resolver for an entity type
func (r *ResolverRegistry) Register(entityTypeID int64, fn ResolverFunc) {
	r.byType[entityTypeID] = fn
}

// Resolve implements EntityResolver
func (r *ResolverRegistry) Resolve(ctx context.Context, entityTypeID int64, entityID int64) (ResolvedEntity, error) {
	fn, ok := r.byType[entityTypeID]
	if !ok {
		return ResolvedEntity{}, fmt.Errorf("no resolver registered for entity type %d", entityTypeID)
	}
	return fn(ctx, entityID)
}

// SetupEntityResolvers makes sure the built-in entity types exist and returns a
// registry with person and group resolvers. The image service may be nil, in
// which case person reminders carry no photo URL.
func SetupEntityResolvers(db *gorm.DB, images *ImageService) (*ResolverRegistry, error) {
	baseURL := os.Getenv("PUBLIC_BASE_URL")

	personType, err := ensureEntityType(db, models.EntityTypePerson, "Person")
	if err != nil {
		return nil, err
	}
	groupType, err := ensureEntityType(db, models.EntityTypeGroup, "Group")
	if err != nil {
		return nil, err
	}

	registry := NewResolverRegistry()

	registry.Register(personType.ID, func(ctx context.Context, entityID int64) (ResolvedEntity, error) {
		var person models.Person
		if err := db.WithContext(ctx).First(&person, entityID).Error; err != nil {
			return ResolvedEntity{}, fmt.Errorf("person %d: %w", entityID, err)
		}
		resolved := ResolvedEntity{
			Description: person.FullName(),
			URL:         baseURL + "/person/" + strconv.FormatInt(person.ID, 10),
		}
		if images != nil && person.PhotoID != "" {
			if photoURL, err := images.PhotoURL(person.PhotoID); err == nil {
				resolved.PhotoURL = photoURL
			}
		}
		return resolved, nil
	})

	registry.Register(groupType.ID, func(ctx context.Context, entityID int64) (ResolvedEntity, error) {
		var group models.Group
		if err := db.WithContext(ctx).First(&group, entityID).Error; err != nil {
			return ResolvedEntity{}, fmt.Errorf("group %d: %w", entityID, err)
		}
		return ResolvedEntity{
			Description: group.Name,
			URL:         baseURL + "/group/" + strconv.FormatInt(group.ID, 10),
		}, nil
	})

	return registry, nil
}

func ensureEntityType(db *gorm.DB, name, friendlyName string) (models.EntityType, error) {
	entityType := models.EntityType{Name: name, FriendlyName: friendlyName}
	err := db.Where(models.EntityType{Name: name}).FirstOrCreate(&entityType).Error
	if err != nil {
		return models.EntityType{}, fmt.Errorf("failed to ensure entity type %s: %w", name, err)
	}
	return entityType, nil
}
