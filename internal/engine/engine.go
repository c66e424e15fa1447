// Package engine implements the chama cycle and ledger engine: the cycle
// state machine, contribution tracking, payout release, default handling
// and guarantor-backed loans.
//
// Every mutating operation takes the locks of the resources it touches,
// reads and validates inside one store transaction, and posts its ledger
// rows in that same transaction. Metrics and domain events are emitted only
// after the transaction commits.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aminofabian/ichama-sub002/internal/events"
	"github.com/aminofabian/ichama-sub002/internal/ledger"
	"github.com/aminofabian/ichama-sub002/internal/metrics"
	"github.com/aminofabian/ichama-sub002/internal/models"
	"github.com/aminofabian/ichama-sub002/internal/storage"
)

// SchedulerActor is the actor ID used by background jobs. It may perform the
// periodic operations (advance, sweep, release) an admin can.
const SchedulerActor = "system:scheduler"

// Engine wires the components over one store.
type Engine struct {
	store   storage.Store
	ledger  *ledger.Ledger
	policy  Policy
	now     func() time.Time
	events  *events.Dispatcher
	metrics *metrics.Metrics
	locks   *keyedLocks

	Cycles        *CycleManager
	Contributions *ContributionTracker
	Payouts       *PayoutScheduler
	Defaults      *DefaultHandler
	Loans         *LoanGuaranteeValidator
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithEvents sets the dispatcher that receives committed domain events.
func WithEvents(d *events.Dispatcher) Option {
	return func(e *Engine) { e.events = d }
}

// WithMetrics sets the collectors operations report to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine over store.
func New(store storage.Store, policy Policy, opts ...Option) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		store:  store,
		policy: policy,
		now:    time.Now,
		locks:  newKeyedLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ledger = ledger.New(store, e.now)

	e.Cycles = &CycleManager{e: e}
	e.Contributions = &ContributionTracker{e: e}
	e.Payouts = &PayoutScheduler{e: e}
	e.Defaults = &DefaultHandler{e: e}
	e.Loans = &LoanGuaranteeValidator{e: e}
	return e, nil
}

// Policy returns the rules the engine was built with.
func (e *Engine) Policy() Policy {
	return e.policy
}

// txn is the working set of one operation.
type txn struct {
	repo   storage.Repository
	ledger *ledger.Ledger
	now    time.Time
	events []events.Event
}

func (t *txn) emit(typ events.Type, ev events.Event) {
	ev.Type = typ
	ev.OccurredAt = t.now
	t.events = append(t.events, ev)
}

// commit runs fn in a store transaction. Postings and events are published
// only if the transaction commits.
func (e *Engine) commit(ctx context.Context, op string, fn func(t *txn) error) error {
	var t *txn
	err := e.store.InTx(ctx, func(repo storage.Repository) error {
		t = &txn{repo: repo, ledger: e.ledger.Bind(repo), now: e.now().UTC()}
		return fn(t)
	})
	err = classify(err)
	e.metrics.ObserveOperation(op, Outcome(err))
	if err != nil {
		if Outcome(err) == outcomeError {
			slog.Error("Engine operation failed", "operation", op, "error", err)
		}
		return err
	}

	e.metrics.ObservePostings(t.ledger.Posted())
	e.events.Dispatch(t.events...)
	return nil
}

// view runs a read-only fn directly against the store.
func (e *Engine) view(ctx context.Context, op string, fn func(t *txn) error) error {
	t := &txn{repo: e.store, ledger: e.ledger, now: e.now().UTC()}
	err := classify(fn(t))
	e.metrics.ObserveOperation(op, Outcome(err))
	return err
}

// member returns the actor's membership in the chama.
func (t *txn) member(ctx context.Context, chamaID, actor string) (*models.ChamaMember, error) {
	if actor == "" {
		return nil, ErrUnauthorized
	}
	m, err := t.repo.GetChamaMember(ctx, chamaID, actor)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (t *txn) requireMember(ctx context.Context, chamaID, actor string) error {
	if actor == SchedulerActor {
		return nil
	}
	_, err := t.member(ctx, chamaID, actor)
	return err
}

func (t *txn) requireAdmin(ctx context.Context, chamaID, actor string) error {
	m, err := t.member(ctx, chamaID, actor)
	if err != nil {
		return err
	}
	if !m.IsAdmin() {
		return ErrUnauthorized
	}
	return nil
}

// requireOperator admits chama admins and the scheduler.
func (t *txn) requireOperator(ctx context.Context, chamaID, actor string) error {
	if actor == SchedulerActor {
		return nil
	}
	return t.requireAdmin(ctx, chamaID, actor)
}

// requireAccountHolder admits the user, an admin of one of the user's
// chamas, and the scheduler.
func (t *txn) requireAccountHolder(ctx context.Context, userID, actor string) error {
	if actor == userID || actor == SchedulerActor {
		return nil
	}
	if actor == "" {
		return ErrUnauthorized
	}
	ok, err := t.repo.IsAdminOver(ctx, actor, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// cycle loads a cycle.
func (t *txn) cycle(ctx context.Context, cycleID string) (*models.Cycle, error) {
	return t.repo.GetCycle(ctx, cycleID)
}

func stamp(t time.Time) *time.Time {
	return &t
}
