package waitlist

import (
	"context"
	"log"
	"time"
)

// JobProcessor runs the grace-period expiry sweep.
type JobProcessor struct {
	service Service
	config  *JobConfig
	done    chan struct{}
}

// JobConfig contains the sweep cadence.
type JobConfig struct {
	ExpiryCheckInterval time.Duration
}

// DefaultJobConfig returns the default cadence.
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		ExpiryCheckInterval: time.Minute,
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

// Start launches the expiry sweep.
func (jp *JobProcessor) Start(ctx context.Context) {
	log.Println("Starting waitlist background jobs...")
	go jp.runExpirySweep(ctx)
}

// Stop stops the sweep.
func (jp *JobProcessor) Stop() {
	log.Println("Stopping waitlist background jobs...")
	close(jp.done)
}

func (jp *JobProcessor) runExpirySweep(ctx context.Context) {
	ticker := time.NewTicker(jp.config.ExpiryCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, time.Minute)
			n, err := jp.service.ExpireStaleNotifications(runCtx)
			cancel()
			if err != nil {
				log.Printf("waitlist expiry sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("waitlist expiry sweep lapsed %d grace periods", n)
			}
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}
