package services

import (
	"strconv"
	"time"

	"steeple/internal/models"
)

// WorkflowNotifier launches a workflow for each due workflow-mode reminder
type WorkflowNotifier struct {
	store    ReminderStore
	launcher WorkflowLauncher
	resolver EntityResolver
}

// NewWorkflowNotifier creates a workflow notifier
func NewWorkflowNotifier(store ReminderStore, launcher WorkflowLauncher, resolver EntityResolver) *WorkflowNotifier {
	return &WorkflowNotifier{
		store:    store,
		launcher: launcher,
		resolver: resolver,
	}
}

// ProcessAll launches one workflow per reminder. A failure on one reminder is
// recorded and the loop moves on; nothing here stops the run.
func (n *WorkflowNotifier) ProcessAll(rc *runContext, reminders []models.Reminder) {
	for _, reminder := range reminders {
		n.processOne(rc, reminder)
	}
}

func (n *WorkflowNotifier) processOne(rc *runContext, reminder models.Reminder) {
	if reminder.ReminderType.NotificationWorkflowTypeID == nil {
		rc.addError("reminder %d is incorrectly configured: reminder type %q has workflow notification mode but no workflow type",
			reminder.ID, reminder.ReminderType.Name)
		return
	}

	ctx, cancel := rc.dbCtx()
	entity, err := n.resolver.Resolve(ctx, reminder.EntityTypeID, reminder.EntityID)
	cancel()
	if err != nil {
		rc.addError("failed to resolve entity for reminder %d: %v", reminder.ID, err)
		return
	}

	attributes := map[string]string{
		"Reminder":          strconv.FormatInt(reminder.ID, 10),
		"ReminderType":      strconv.FormatInt(reminder.ReminderTypeID, 10),
		"PersonAlias":       strconv.FormatInt(reminder.PersonAliasID, 10),
		"EntityType":        strconv.FormatInt(reminder.EntityTypeID, 10),
		"Entity":            strconv.FormatInt(reminder.EntityID, 10),
		"EntityDescription": entity.Description,
	}

	ctx, cancel = rc.dbCtx()
	err = n.launcher.Launch(ctx, *reminder.ReminderType.NotificationWorkflowTypeID, reminder.ReminderType.Name, attributes)
	cancel()
	if err != nil {
		rc.addError("failed to launch workflow for reminder %d: %v", reminder.ID, err)
		return
	}
	rc.addProcessed(1)

	if reminder.ReminderType.ShouldAutoCompleteWhenNotified {
		// Persisted immediately so a crash mid-run cannot re-notify this reminder
		ctx, cancel = rc.dbCtx()
		err = n.store.MarkComplete(ctx, reminder.ID, time.Now())
		cancel()
		if err != nil {
			rc.addError("failed to auto-complete reminder %d: %v", reminder.ID, err)
		}
	}
}
