package services

import (
	"sort"

	"steeple/internal/models"
)

// CountReconciler rewrites each person's denormalized reminder count to match the
// reminders they actually have outstanding.
type CountReconciler struct {
	store ReminderStore
}

// NewCountReconciler creates a count reconciler
func NewCountReconciler(store ReminderStore) *CountReconciler {
	return &CountReconciler{store: store}
}

// Reconcile runs in two phases: one bulk update zeroing everyone who no longer
// owns an active reminder, then individual corrections for owners whose stored
// count drifted. The split keeps each write small and lets a failure on one
// person leave the rest corrected.
func (c *CountReconciler) Reconcile(rc *runContext, activeReminders []models.Reminder) {
	counts := make(map[int64]int)
	for _, r := range activeReminders {
		counts[r.PersonID()]++
	}
	ownerIDs := make([]int64, 0, len(counts))
	for id := range counts {
		ownerIDs = append(ownerIDs, id)
	}
	sort.Slice(ownerIDs, func(i, j int) bool { return ownerIDs[i] < ownerIDs[j] })

	ctx, cancel := rc.dbCtx()
	err := c.store.ZeroReminderCounts(ctx, ownerIDs)
	cancel()
	if err != nil {
		rc.addError("failed to zero out stale reminder counts: %v", err)
	}

	if len(ownerIDs) == 0 {
		return
	}

	ctx, cancel = rc.dbCtx()
	stored, err := c.store.ReminderCounts(ctx, ownerIDs)
	cancel()
	if err != nil {
		rc.addError("failed to read stored reminder counts: %v", err)
		return
	}

	for _, personID := range ownerIDs {
		want := counts[personID]
		if got, ok := stored[personID]; ok && got == want {
			continue
		}
		ctx, cancel := rc.dbCtx()
		err := c.store.SetReminderCount(ctx, personID, want)
		cancel()
		if err != nil {
			rc.addError("failed to update reminder count for person %d: %v", personID, err)
		}
	}
}
