package services

import (
	"sort"
	"strings"
	"time"

	"steeple/internal/models"
)

// ReminderDigestItem is one reminder entry in a recipient's digest
type ReminderDigestItem struct {
	ReminderID   int64
	Description  string
	URL          string
	PhotoURL     string
	Note         string
	TypeName     string
	Color        string
	ReminderDate time.Time
}

// ReminderDigest is the rendering payload for one recipient: their due reminders
// about people, then groups, then everything else.
type ReminderDigest struct {
	Person      models.Person
	PersonItems []ReminderDigestItem
	GroupItems  []ReminderDigestItem
	OtherItems  []ReminderDigestItem
}

// TotalItems returns the number of reminders included in the digest
func (d ReminderDigest) TotalItems() int {
	return len(d.PersonItems) + len(d.GroupItems) + len(d.OtherItems)
}

// CommunicationBatcher sends one digest message per recipient covering all of
// their due communication-mode reminders.
type CommunicationBatcher struct {
	store    ReminderStore
	sender   NotificationSender
	resolver EntityResolver
}

// NewCommunicationBatcher creates a communication batcher
func NewCommunicationBatcher(store ReminderStore, sender NotificationSender, resolver EntityResolver) *CommunicationBatcher {
	return &CommunicationBatcher{
		store:    store,
		sender:   sender,
		resolver: resolver,
	}
}

// ProcessAll groups the reminders by owner and sends one capped digest per owner.
// A failure for one recipient is recorded and the loop moves on.
func (b *CommunicationBatcher) ProcessAll(rc *runContext, reminders []models.Reminder, templateID int64, capPerEntityType int, asOf time.Time) {
	if len(reminders) == 0 {
		return
	}

	entityTypes, err := b.loadEntityTypes(rc)
	if err != nil {
		rc.addError("failed to load entity types, skipping communication notifications: %v", err)
		return
	}

	// Distinct recipients in encounter order
	var personIDs []int64
	persons := make(map[int64]models.Person)
	for _, r := range reminders {
		id := r.PersonID()
		if _, seen := persons[id]; !seen {
			persons[id] = r.PersonAlias.Person
			personIDs = append(personIDs, id)
		}
	}

	for _, personID := range personIDs {
		b.processRecipient(rc, persons[personID], templateID, capPerEntityType, asOf, entityTypes)
	}
}

func (b *CommunicationBatcher) processRecipient(rc *runContext, person models.Person, templateID int64, capPerEntityType int, asOf time.Time, entityTypes map[int64]models.EntityType) {
	// Re-query this owner's active set so completions made earlier in the run
	// (or by the workflow phase) are not re-sent
	ctx, cancel := rc.dbCtx()
	owned, err := b.store.ActiveRemindersForPerson(ctx, person.ID, asOf)
	cancel()
	if err != nil {
		rc.addError("failed to load reminders for person %d: %v", person.ID, err)
		return
	}

	var candidates []models.Reminder
	for _, r := range owned {
		if r.ReminderType.NotificationMode == models.NotificationModeCommunication {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return
	}

	personBucket, groupBucket, otherBucket := b.partition(candidates, entityTypes, capPerEntityType)

	digest := ReminderDigest{Person: person}
	var included []models.Reminder
	appendItems := func(bucket []models.Reminder, dst *[]ReminderDigestItem, withPhoto bool) {
		for _, r := range bucket {
			ctx, cancel := rc.dbCtx()
			entity, err := b.resolver.Resolve(ctx, r.EntityTypeID, r.EntityID)
			cancel()
			if err != nil {
				rc.addError("failed to resolve entity for reminder %d: %v", r.ID, err)
				continue
			}
			item := ReminderDigestItem{
				ReminderID:   r.ID,
				Description:  entity.Description,
				URL:          entity.URL,
				Note:         r.Note,
				TypeName:     r.ReminderType.Name,
				Color:        r.ReminderType.HighlightColor,
				ReminderDate: r.ReminderDate,
			}
			if withPhoto {
				item.PhotoURL = entity.PhotoURL
			}
			*dst = append(*dst, item)
			included = append(included, r)
		}
	}
	appendItems(personBucket, &digest.PersonItems, true)
	appendItems(groupBucket, &digest.GroupItems, false)
	appendItems(otherBucket, &digest.OtherItems, false)

	if digest.TotalItems() == 0 {
		return
	}

	ctx, cancel = rc.dbCtx()
	result, err := b.sender.Send(ctx, person, templateID, digest)
	cancel()
	if err != nil {
		rc.addError("failed to send reminder notification to person %d: %v", person.ID, err)
		return
	}

	if result.MessagesSent < 1 {
		rc.addError("reminder notification to person %d was not delivered: %s", person.ID, sendFailureReason(result))
		return
	}

	// The whole digest counts as processed, whether or not each reminder auto-completes
	rc.addProcessed(len(included))
	for _, r := range included {
		if !r.ReminderType.ShouldAutoCompleteWhenNotified {
			continue
		}
		ctx, cancel := rc.dbCtx()
		err := b.store.MarkComplete(ctx, r.ID, time.Now())
		cancel()
		if err != nil {
			rc.addError("failed to auto-complete reminder %d: %v", r.ID, err)
		}
	}
}

// partition splits one owner's reminders into person, group and other buckets,
// each ordered most-recent-first and capped per entity type. The other bucket
// is segmented by entity type in friendly-name order.
func (b *CommunicationBatcher) partition(candidates []models.Reminder, entityTypes map[int64]models.EntityType, capPerEntityType int) (personBucket, groupBucket, otherBucket []models.Reminder) {
	var others []models.Reminder
	for _, r := range candidates {
		switch entityTypes[r.EntityTypeID].Name {
		case models.EntityTypePerson:
			personBucket = append(personBucket, r)
		case models.EntityTypeGroup:
			groupBucket = append(groupBucket, r)
		default:
			others = append(others, r)
		}
	}

	personBucket = capByDate(personBucket, capPerEntityType)
	groupBucket = capByDate(groupBucket, capPerEntityType)

	// Distinct remaining entity types, alphabetical by friendly name
	byType := make(map[int64][]models.Reminder)
	var typeIDs []int64
	for _, r := range others {
		if _, seen := byType[r.EntityTypeID]; !seen {
			typeIDs = append(typeIDs, r.EntityTypeID)
		}
		byType[r.EntityTypeID] = append(byType[r.EntityTypeID], r)
	}
	sort.SliceStable(typeIDs, func(i, j int) bool {
		return entityTypes[typeIDs[i]].FriendlyName < entityTypes[typeIDs[j]].FriendlyName
	})
	for _, typeID := range typeIDs {
		otherBucket = append(otherBucket, capByDate(byType[typeID], capPerEntityType)...)
	}
	return personBucket, groupBucket, otherBucket
}

// capByDate orders reminders by due date descending and keeps at most limit of them
func capByDate(reminders []models.Reminder, limit int) []models.Reminder {
	sort.SliceStable(reminders, func(i, j int) bool {
		return reminders[i].ReminderDate.After(reminders[j].ReminderDate)
	})
	if len(reminders) > limit {
		return reminders[:limit]
	}
	return reminders
}

func (b *CommunicationBatcher) loadEntityTypes(rc *runContext) (map[int64]models.EntityType, error) {
	ctx, cancel := rc.dbCtx()
	defer cancel()
	types, err := b.store.EntityTypes(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]models.EntityType, len(types))
	for _, et := range types {
		byID[et.ID] = et
	}
	return byID, nil
}

// sendFailureReason picks the most specific failure detail the transport reported
func sendFailureReason(result SendResult) string {
	if len(result.Errors) > 0 {
		return strings.Join(result.Errors, "; ")
	}
	if len(result.Warnings) > 0 {
		return strings.Join(result.Warnings, "; ")
	}
	return "Unknown error."
}
