package services

import (
	"errors"
	"log"
	"os"
	"strconv"
	"sync"
	"time"
)

// ErrRunInProgress is returned when a dispatch run is requested while another is active
var ErrRunInProgress = errors.New("a reminder dispatch run is already in progress")

// ReminderWorker drives the dispatch engine on a fixed interval. Runs never
// overlap: a tick that lands while a run is active is skipped.
type ReminderWorker struct {
	engine   *DispatchEngine
	config   RunConfig
	interval time.Duration
	mu       sync.Mutex
}

func NewReminderWorker(engine *DispatchEngine, config RunConfig) *ReminderWorker {
	interval := time.Minute * 15
	if v := os.Getenv("REMINDER_WORKER_INTERVAL_MINUTES"); v != "" {
		if mins, err := strconv.Atoi(v); err == nil && mins > 0 {
			interval = time.Duration(mins) * time.Minute
		}
	}
	return &ReminderWorker{
		engine:   engine,
		config:   config,
		interval: interval,
	}
}

func (w *ReminderWorker) Start() {
	go w.run()
}

func (w *ReminderWorker) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for range ticker.C {
		result, err := w.RunOnce()
		if err != nil {
			if errors.Is(err, ErrRunInProgress) {
				log.Printf("Skipping reminder dispatch tick: previous run still active")
				continue
			}
			log.Printf("Reminder dispatch run failed: %v", err)
			continue
		}
		if !result.Succeeded {
			log.Printf("Reminder dispatch run %s completed with errors:\n%s", result.RunID, result.Summary())
		}
	}
}

// RunOnce executes a single dispatch run, refusing to overlap a running one
func (w *ReminderWorker) RunOnce() (RunResult, error) {
	if !w.mu.TryLock() {
		return RunResult{}, ErrRunInProgress
	}
	defer w.mu.Unlock()

	return w.engine.Run(time.Now(), w.config)
}
