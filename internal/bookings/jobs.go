package bookings

import (
	"context"
	"log"
	"time"
)

// JobProcessor drives the timer-based lifecycle sweeps: auto-cancelling
// underfilled open games, completing finished bookings and sending reminders.
// Each sweep entry point is idempotent, so overlapping firings are safe.
type JobProcessor struct {
	service Service
	config  *JobConfig
	done    chan struct{}
}

// JobConfig contains the sweep intervals.
type JobConfig struct {
	AutoCancelInterval time.Duration
	CompletionInterval time.Duration
	ReminderInterval   time.Duration
}

// DefaultJobConfig returns the default sweep cadence.
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		AutoCancelInterval: 5 * time.Minute,
		CompletionInterval: 5 * time.Minute,
		ReminderInterval:   15 * time.Minute,
	}
}

// NewJobProcessor creates a new sweep processor.
func NewJobProcessor(service Service, config *JobConfig) *JobProcessor {
	if config == nil {
		config = DefaultJobConfig()
	}
	return &JobProcessor{
		service: service,
		config:  config,
		done:    make(chan struct{}),
	}
}

// Start launches the sweep goroutines.
func (jp *JobProcessor) Start(ctx context.Context) {
	log.Println("Starting booking lifecycle jobs...")
	go jp.loop(ctx, jp.config.AutoCancelInterval, "auto-cancel", func(ctx context.Context) (int, error) {
		return jp.service.AutoCancelUnderfilled(ctx)
	})
	go jp.loop(ctx, jp.config.CompletionInterval, "completion", func(ctx context.Context) (int, error) {
		return jp.service.CompleteExpired(ctx)
	})
	go jp.loop(ctx, jp.config.ReminderInterval, "reminder", func(ctx context.Context) (int, error) {
		return jp.service.SendDueReminders(ctx)
	})
}

// Stop stops all sweeps.
func (jp *JobProcessor) Stop() {
	log.Println("Stopping booking lifecycle jobs...")
	close(jp.done)
}

func (jp *JobProcessor) loop(ctx context.Context, interval time.Duration, name string, sweep func(context.Context) (int, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			n, err := sweep(runCtx)
			cancel()
			if err != nil {
				log.Printf("booking %s sweep failed: %v", name, err)
			} else if n > 0 {
				log.Printf("booking %s sweep processed %d bookings", name, n)
			}
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}
