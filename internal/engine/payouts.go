package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aminofabian/ichama-sub002/internal/calculator"
	"github.com/aminofabian/ichama-sub002/internal/events"
	"github.com/aminofabian/ichama-sub002/internal/ledger"
	"github.com/aminofabian/ichama-sub002/internal/models"
	"github.com/aminofabian/ichama-sub002/internal/storage"
)

// PayoutScheduler releases period payouts from the cycle pool.
type PayoutScheduler struct {
	e *Engine
}

func (ps *PayoutScheduler) lockPayout(ctx context.Context, payoutID string) (func(), error) {
	p, err := ps.e.store.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	unlockCycle := ps.e.locks.RLock(cycleKey(p.CycleID))
	unlock := ps.e.locks.Lock(payoutKey(payoutID))
	return func() {
		unlock()
		unlockCycle()
	}, nil
}

// ReleasePayout pays the period's recipient from the cycle pool once the
// period's confirmed contributions reach quorum. A payout is released at
// most once.
func (ps *PayoutScheduler) ReleasePayout(ctx context.Context, actor, payoutID string) (*models.Payout, error) {
	unlock, err := ps.lockPayout(ctx, payoutID)
	if err != nil {
		return nil, classify(err)
	}
	defer unlock()

	var p *models.Payout
	err = ps.e.commit(ctx, "release_payout", func(t *txn) error {
		var err error
		if p, err = t.repo.GetPayout(ctx, payoutID); err != nil {
			return err
		}
		cycle, err := t.cycle(ctx, p.CycleID)
		if err != nil {
			return err
		}
		if err := t.requireOperator(ctx, cycle.ChamaID, actor); err != nil {
			return err
		}
		if p.Released() {
			return ErrAlreadyPaid
		}
		if p.Status == models.PayoutSkipped || cycle.Status == models.CycleCancelled {
			return conflict("payout %s was skipped", p.ID)
		}
		if cycle.Status == models.CyclePending {
			return ErrCycleNotActive
		}

		contributions, err := t.repo.ListContributionsByPeriod(ctx, cycle.ID, p.PeriodNumber)
		if err != nil {
			return err
		}
		confirmed := 0
		for _, c := range contributions {
			if c.Status == models.ContributionConfirmed {
				confirmed++
			}
		}
		if !calculator.QuorumMet(confirmed, len(contributions), ps.e.policy.Quorum) {
			return fmt.Errorf("%w: %d of %d confirmed", ErrQuorumNotMet, confirmed, len(contributions))
		}

		pool, err := t.ledger.PoolBalance(ctx, cycle)
		if err != nil {
			return err
		}
		if pool < p.Amount {
			return fmt.Errorf("%w: pool %d, payout %d", ErrInsufficientPool, pool, p.Amount)
		}

		if err := p.Transition(models.PayoutPaid); err != nil {
			return err
		}
		p.PaidAt = stamp(t.now)
		if err := t.repo.UpdatePayout(ctx, p); err != nil {
			return err
		}
		desc := fmt.Sprintf("period %d payout", p.PeriodNumber)
		if err := t.ledger.Transfer(ctx, ledger.Pool(cycle), ledger.Wallet(p.UserID), models.TxPayout, p.Amount, p.ID, desc); err != nil {
			return err
		}

		t.emit(events.PayoutReleased, events.Event{
			ChamaID: cycle.ChamaID, CycleID: cycle.ID, UserID: p.UserID, EntityID: p.ID, Amount: p.Amount,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Payout released",
		"payout_id", p.ID,
		"user_id", p.UserID,
		"period_number", p.PeriodNumber,
		"amount", p.Amount,
	)
	return p, nil
}

// ConfirmPayoutReceipt records that the recipient got the money.
func (ps *PayoutScheduler) ConfirmPayoutReceipt(ctx context.Context, actor, payoutID string) (*models.Payout, error) {
	unlock, err := ps.lockPayout(ctx, payoutID)
	if err != nil {
		return nil, classify(err)
	}
	defer unlock()

	var p *models.Payout
	err = ps.e.commit(ctx, "confirm_payout_receipt", func(t *txn) error {
		var err error
		if p, err = t.repo.GetPayout(ctx, payoutID); err != nil {
			return err
		}
		if actor != p.UserID {
			return ErrUnauthorized
		}
		if p.Status == models.PayoutConfirmed {
			return conflict("payout %s already confirmed", p.ID)
		}
		if err := p.Transition(models.PayoutConfirmed); err != nil {
			return err
		}
		p.ConfirmedByMember = true
		p.ConfirmedAt = stamp(t.now)
		return t.repo.UpdatePayout(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPayouts returns a cycle's payouts in period order.
func (ps *PayoutScheduler) ListPayouts(ctx context.Context, actor, cycleID string) ([]*models.Payout, error) {
	var out []*models.Payout
	err := ps.e.view(ctx, "list_payouts", func(t *txn) error {
		cycle, err := t.cycle(ctx, cycleID)
		if err != nil {
			return err
		}
		if err := t.requireMember(ctx, cycle.ChamaID, actor); err != nil {
			return err
		}
		out, err = t.repo.ListPayoutsByCycle(ctx, cycleID)
		return err
	})
	return out, err
}

// PendingPayouts returns the cycle's payouts that are due for release.
func (ps *PayoutScheduler) PendingPayouts(ctx context.Context, cycleID string) ([]*models.Payout, error) {
	payouts, err := ps.ListPayouts(ctx, SchedulerActor, cycleID)
	if err != nil {
		return nil, err
	}
	var out []*models.Payout
	for _, p := range payouts {
		if p.Status == models.PayoutPending {
			out = append(out, p)
		}
	}
	return out, nil
}

// Slot is one period of a cycle's payout rotation.
type Slot struct {
	Period  int
	Ordinal int
	UserID  string
	DueDate time.Time

	// Payout is nil for periods not opened yet.
	Payout *models.Payout
}

// Schedule returns the full rotation with due dates, joined with the payouts
// of the periods opened so far.
func (ps *PayoutScheduler) Schedule(ctx context.Context, actor, cycleID string) ([]Slot, error) {
	var slots []Slot
	err := ps.e.view(ctx, "schedule", func(t *txn) error {
		cycle, err := t.cycle(ctx, cycleID)
		if err != nil {
			return err
		}
		if err := t.requireMember(ctx, cycle.ChamaID, actor); err != nil {
			return err
		}
		members, err := t.repo.ListCycleMembers(ctx, cycleID)
		if err != nil {
			return err
		}
		for _, m := range members {
			slot := Slot{Period: m.Ordinal, Ordinal: m.Ordinal, UserID: m.UserID, DueDate: cycle.DueDate(m.Ordinal)}
			p, err := t.repo.GetPayoutByPeriod(ctx, cycleID, m.Ordinal)
			switch {
			case err == nil:
				slot.Payout = p
			case !errors.Is(err, storage.ErrNotFound):
				return err
			}
			slots = append(slots, slot)
		}
		return nil
	})
	return slots, err
}
