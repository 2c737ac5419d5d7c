package sync

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"dramastream/models"
)

const (
	outboxQueueSize   = 128
	outboxAttempts    = 3
	outboxRetryDelay  = 500 * time.Millisecond
	outboxPushTimeout = 15 * time.Second
)

// Stats exposes the outbox failure state for observability.
type Stats struct {
	Enqueued  uint64 `json:"enqueued"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
	LastError string `json:"lastError,omitempty"`
}

type outboxJob struct {
	kind    string // "push" | "clear" | "profile"
	userID  string
	entry   models.ContinueWatchingEntry
	profile models.UserProfile
}

// Outbox delivers ledger mutations to the bridge asynchronously with a
// bounded retry. Failures are logged and counted, never propagated: the
// local ledger remains authoritative and the next natural sync
// opportunity carries fresher state anyway.
type Outbox struct {
	bridge     Bridge
	jobs       chan outboxJob
	workerDone chan struct{}

	mu     sync.Mutex
	closed bool
	stats  Stats
}

// NewOutbox starts the delivery worker over the bridge.
func NewOutbox(bridge Bridge) *Outbox {
	o := &Outbox{
		bridge:     bridge,
		jobs:       make(chan outboxJob, outboxQueueSize),
		workerDone: make(chan struct{}),
	}
	go o.run()
	return o
}

// EnqueuePush schedules one entry upsert. Never blocks: when the queue
// is full the job is dropped and counted, since a newer progress tick
// will supersede it shortly.
func (o *Outbox) EnqueuePush(userID string, entry models.ContinueWatchingEntry) {
	o.enqueue(outboxJob{kind: "push", userID: userID, entry: entry})
}

// EnqueueClear schedules a remote bulk delete for the user.
func (o *Outbox) EnqueueClear(userID string) {
	o.enqueue(outboxJob{kind: "clear", userID: userID})
}

// EnqueueProfile schedules a profile save.
func (o *Outbox) EnqueueProfile(userID string, profile models.UserProfile) {
	o.enqueue(outboxJob{kind: "profile", userID: userID, profile: profile})
}

func (o *Outbox) enqueue(job outboxJob) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	select {
	case o.jobs <- job:
		o.stats.Enqueued++
		o.mu.Unlock()
	default:
		o.stats.Dropped++
		o.stats.LastError = "outbox queue full"
		o.mu.Unlock()
		log.Printf("[sync] outbox full, dropped %s for %s", job.kind, job.userID)
	}
}

// Stats returns a snapshot of the delivery counters.
func (o *Outbox) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// Close stops accepting jobs and waits for the queue to drain.
func (o *Outbox) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	close(o.jobs)
	<-o.workerDone
}

func (o *Outbox) run() {
	defer close(o.workerDone)
	for job := range o.jobs {
		o.deliver(job)
	}
}

func (o *Outbox) deliver(job outboxJob) {
	err := retry.Do(
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), outboxPushTimeout)
			defer cancel()

			switch job.kind {
			case "push":
				return o.bridge.Push(ctx, job.userID, job.entry)
			case "clear":
				return o.bridge.Clear(ctx, job.userID)
			case "profile":
				return o.bridge.SaveProfile(ctx, job.userID, job.profile)
			}
			return nil
		},
		retry.Attempts(outboxAttempts),
		retry.Delay(outboxRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		o.recordFailure(err.Error())
		log.Printf("[sync] %s for %s failed after %d attempts: %v", job.kind, job.userID, outboxAttempts, err)
		return
	}

	o.mu.Lock()
	o.stats.Delivered++
	o.mu.Unlock()
}

func (o *Outbox) recordFailure(reason string) {
	o.mu.Lock()
	o.stats.Dropped++
	o.stats.LastError = reason
	o.mu.Unlock()
}
