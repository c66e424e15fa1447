// Package events carries domain events from the engine to the notification
// collaborator. Delivery is fire-and-forget: it happens after the financial
// change has committed and its failure never reaches the caller.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Type names a domain event.
type Type string

const (
	ContributionConfirmed Type = "contribution_confirmed"
	PayoutReleased        Type = "payout_released"
	DefaultCreated        Type = "default_created"
	LoanDefaulted         Type = "loan_defaulted"
	LoanApproved          Type = "loan_approved"
	CycleCompleted        Type = "cycle_completed"
)

// Event is a committed domain fact.
type Event struct {
	Type Type

	ChamaID string
	CycleID string

	// UserID is the member the event concerns (payer, recipient, borrower).
	UserID string

	// EntityID is the contribution, payout, default or loan ID.
	EntityID string

	Amount     int64
	OccurredAt time.Time
}

// Publisher delivers events to the outside world (SMS, push, email).
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Observer is told the outcome of each delivery.
type Observer func(eventType, outcome string)

// Dispatcher hands events to a Publisher asynchronously, each delivery bounded
// by a timeout. Errors are logged and counted.
type Dispatcher struct {
	publisher Publisher
	timeout   time.Duration
	observe   Observer
	wg        sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. A zero timeout defaults to five seconds.
func NewDispatcher(p Publisher, timeout time.Duration, observe Observer) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{publisher: p, timeout: timeout, observe: observe}
}

// Dispatch queues events for delivery and returns immediately.
func (d *Dispatcher) Dispatch(evts ...Event) {
	if d == nil || d.publisher == nil {
		return
	}
	for _, e := range evts {
		d.wg.Add(1)
		go d.deliver(e)
	}
}

func (d *Dispatcher) deliver(e Event) {
	defer d.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	outcome := "ok"
	if err := d.publisher.Publish(ctx, e); err != nil {
		outcome = "error"
		slog.Warn("Event delivery failed",
			"type", e.Type,
			"entity_id", e.EntityID,
			"error", err,
		)
	}
	if d.observe != nil {
		d.observe(string(e.Type), outcome)
	}
}

// Wait blocks until every queued delivery has finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

// LogPublisher writes events to the structured log. It stands in for the
// notification service when none is configured.
type LogPublisher struct{}

// Publish logs the event.
func (LogPublisher) Publish(_ context.Context, e Event) error {
	slog.Info("Domain event",
		"type", e.Type,
		"chama_id", e.ChamaID,
		"cycle_id", e.CycleID,
		"user_id", e.UserID,
		"entity_id", e.EntityID,
		"amount", e.Amount,
	)
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

// Publish records the event and returns r.Err.
func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.Err
}

// Events returns a copy of what was recorded.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many events of the given type were recorded.
func (r *Recorder) Count(t Type) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}
