package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"steeple/internal/models"

	"github.com/google/uuid"
)

// maxSurfacedErrors caps how many error lines the run result carries back to callers
const maxSurfacedErrors = 5

// ReminderStore is the persistence boundary the dispatch engine works against
type ReminderStore interface {
	// ActiveReminders returns every reminder that is due and not completed as of asOf,
	// with reminder type and owner preloaded.
	ActiveReminders(ctx context.Context, asOf time.Time) ([]models.Reminder, error)
	// ActiveRemindersForPerson re-queries the active set for a single owner, so that
	// completions made earlier in the run are observed.
	ActiveRemindersForPerson(ctx context.Context, personID int64, asOf time.Time) ([]models.Reminder, error)
	// MarkComplete marks one reminder complete and persists immediately
	MarkComplete(ctx context.Context, reminderID int64, completedAt time.Time) error
	// ZeroReminderCounts bulk-resets reminder_count to 0 for every person with a
	// non-zero count who is not in exceptPersonIDs
	ZeroReminderCounts(ctx context.Context, exceptPersonIDs []int64) error
	// SetReminderCount sets one person's reminder count and persists immediately
	SetReminderCount(ctx context.Context, personID int64, count int) error
	// ReminderCounts returns the stored reminder counts for the given persons
	ReminderCounts(ctx context.Context, personIDs []int64) (map[int64]int, error)
	// EntityTypes returns all registered entity types
	EntityTypes(ctx context.Context) ([]models.EntityType, error)
	// LogDispatch records a completed run (best effort)
	LogDispatch(ctx context.Context, entry models.DispatchLog) error
}

// WorkflowLauncher starts a workflow of the given type with string attributes
type WorkflowLauncher interface {
	Launch(ctx context.Context, workflowTypeID int64, name string, attributes map[string]string) error
}

// NotificationSender delivers one reminder digest to one person
type NotificationSender interface {
	Send(ctx context.Context, person models.Person, templateID int64, digest ReminderDigest) (SendResult, error)
}

// SendResult reports what the transport did with a digest
type SendResult struct {
	MessagesSent int
	Errors       []string
	Warnings     []string
}

// ResolvedEntity is the displayable form of a reminder's target
type ResolvedEntity struct {
	Description string
	URL         string
	PhotoURL    string
}

// EntityResolver maps a polymorphic (entity type, entity id) pair to its displayable form
type EntityResolver interface {
	Resolve(ctx context.Context, entityTypeID int64, entityID int64) (ResolvedEntity, error)
}

// RunConfig holds the per-run settings of the dispatch engine
type RunConfig struct {
	CommandTimeout            time.Duration
	MaxRemindersPerEntityType int
	NotificationTemplateID    *int64
}

func (c RunConfig) withDefaults() RunConfig {
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = 300 * time.Second
	}
	if c.MaxRemindersPerEntityType <= 0 {
		c.MaxRemindersPerEntityType = 20
	}
	return c
}

// RunConfigFromEnv builds a RunConfig from environment variables, falling back to defaults
func RunConfigFromEnv() RunConfig {
	cfg := RunConfig{}
	if v := os.Getenv("REMINDER_COMMAND_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.CommandTimeout = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("REMINDER_MAX_PER_ENTITY_TYPE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxRemindersPerEntityType = n
		}
	}
	if v := os.Getenv("REMINDER_NOTIFICATION_TEMPLATE_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.NotificationTemplateID = &id
		}
	}
	return cfg.withDefaults()
}

// RunResult summarizes one dispatch run for the caller
type RunResult struct {
	RunID          uuid.UUID
	TotalProcessed int
	Errors         []string
	Succeeded      bool
}

// Summary returns the human-readable status line for the run
func (r RunResult) Summary() string {
	if r.Succeeded {
		return fmt.Sprintf("%d reminders processed", r.TotalProcessed)
	}
	return strings.Join(r.Errors, "\n")
}

// runContext carries the accumulators for a single run. It is created fresh per
// Run invocation and never shared across runs.
type runContext struct {
	runID        uuid.UUID
	queryTimeout time.Duration
	processed    int
	errors       []string
}

func newRunContext(timeout time.Duration) *runContext {
	return &runContext{
		runID:        uuid.New(),
		queryTimeout: timeout,
	}
}

// dbCtx returns a context bounding a single persistence call
func (rc *runContext) dbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), rc.queryTimeout)
}

func (rc *runContext) addProcessed(n int) {
	rc.processed += n
}

func (rc *runContext) addError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("Reminder dispatch: %s", msg)
	rc.errors = append(rc.errors, msg)
}

// result folds the accumulators into a RunResult, capping surfaced errors
func (rc *runContext) result() RunResult {
	res := RunResult{
		RunID:          rc.runID,
		TotalProcessed: rc.processed,
		Succeeded:      len(rc.errors) == 0,
	}
	if len(rc.errors) <= maxSurfacedErrors {
		res.Errors = append(res.Errors, rc.errors...)
		return res
	}
	res.Errors = append(res.Errors, rc.errors[:maxSurfacedErrors]...)
	res.Errors = append(res.Errors, fmt.Sprintf("(%d more errors not shown)", len(rc.errors)-maxSurfacedErrors))
	return res
}

// DispatchEngine orchestrates one reminder dispatch run: workflow notifications,
// batched communication notifications, then reminder count reconciliation.
type DispatchEngine struct {
	store      ReminderStore
	notifier   *WorkflowNotifier
	batcher    *CommunicationBatcher
	reconciler *CountReconciler
}

// NewDispatchEngine wires the engine and its phases
func NewDispatchEngine(store ReminderStore, launcher WorkflowLauncher, sender NotificationSender, resolver EntityResolver) *DispatchEngine {
	return &DispatchEngine{
		store:      store,
		notifier:   NewWorkflowNotifier(store, launcher, resolver),
		batcher:    NewCommunicationBatcher(store, sender, resolver),
		reconciler: NewCountReconciler(store),
	}
}

// Run executes one dispatch pass as of the given time. Per-item failures are
// accumulated into the result; the returned error is non-nil only when the
// engine cannot query the store at all.
func (e *DispatchEngine) Run(now time.Time, cfg RunConfig) (RunResult, error) {
	cfg = cfg.withDefaults()
	rc := newRunContext(cfg.CommandTimeout)
	startedAt := time.Now()
	log.Printf("Reminder dispatch run %s starting", rc.runID)

	active, err := e.snapshotActive(rc, now)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to load active reminders: %w", err)
	}

	var workflowReminders, communicationReminders []models.Reminder
	for _, r := range active {
		switch r.ReminderType.NotificationMode {
		case models.NotificationModeWorkflow:
			workflowReminders = append(workflowReminders, r)
		case models.NotificationModeCommunication:
			communicationReminders = append(communicationReminders, r)
		}
	}

	e.notifier.ProcessAll(rc, workflowReminders)

	if cfg.NotificationTemplateID != nil {
		e.batcher.ProcessAll(rc, communicationReminders, *cfg.NotificationTemplateID, cfg.MaxRemindersPerEntityType, now)
	} else if len(communicationReminders) > 0 {
		rc.addError("no reminder notification template is configured, %d communication reminders were skipped", len(communicationReminders))
	}

	// Re-snapshot so the reconciler sees completions made by the phases above
	refreshed, err := e.snapshotActive(rc, now)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to reload active reminders: %w", err)
	}

	e.reconciler.Reconcile(rc, refreshed)

	result := rc.result()
	e.recordRun(rc, result, startedAt)
	log.Printf("Reminder dispatch run %s finished: %s", rc.runID, result.Summary())
	return result, nil
}

func (e *DispatchEngine) snapshotActive(rc *runContext, now time.Time) ([]models.Reminder, error) {
	ctx, cancel := rc.dbCtx()
	defer cancel()
	return e.store.ActiveReminders(ctx, now)
}

// recordRun persists the run outcome for the status endpoint. Failures here are
// logged but never affect the run result.
func (e *DispatchEngine) recordRun(rc *runContext, result RunResult, startedAt time.Time) {
	ctx, cancel := rc.dbCtx()
	defer cancel()
	entry := models.DispatchLog{
		RunID:          result.RunID.String(),
		StartedAt:      startedAt,
		EndedAt:        time.Now(),
		ProcessedCount: result.TotalProcessed,
		ErrorCount:     len(rc.errors),
		Summary:        result.Summary(),
	}
	if err := e.store.LogDispatch(ctx, entry); err != nil {
		log.Printf("Failed to record dispatch run %s: %v", result.RunID, err)
	}
}
