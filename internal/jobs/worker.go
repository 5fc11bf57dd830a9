// Package jobs runs background pollers, currently just the embedding
// backfill that drains the embedding_jobs queue.
package jobs

import (
	"context"
	"log"
	"time"
)

// Processor drains whatever work is queued for one poll cycle.
type Processor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker polls a Processor at a fixed interval. The embedding backfill runs
// on one of these so documents stuck in processing keep getting embedded
// while the API serves traffic.
type Worker struct {
	name     string
	proc     Processor
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewWorker builds a named worker; the name only appears in logs.
func NewWorker(name string, proc Processor, interval time.Duration) *Worker {
	return &Worker{
		name:     name,
		proc:     proc,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start blocks until the context is cancelled or Stop is called, so run it
// in its own goroutine. A failed cycle is logged and the next tick retries.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Printf("jobs: %s worker polling every %v", w.name, w.interval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("jobs: %s worker exiting: %v", w.name, ctx.Err())
			return
		case <-w.stop:
			log.Printf("jobs: %s worker exiting: stop requested", w.name)
			return
		case <-ticker.C:
			if err := w.proc.ProcessJobs(ctx); err != nil {
				log.Printf("jobs: %s worker cycle failed: %v", w.name, err)
			}
		}
	}
}

// Stop signals the worker and waits for the in-flight cycle to finish.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
	log.Printf("jobs: %s worker stopped", w.name)
}
