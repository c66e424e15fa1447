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

// DefaultHandler turns overdue obligations into defaults and penalties.
type DefaultHandler struct {
	e *Engine
}

// SweepDefaults marks contributions due before asOf that are still unsettled.
// Unpaid ones become missed and partly paid ones late. Each gets one Default
// carrying the penalty, which is debited from the member's wallet into the
// chama treasury. Sweeping again creates nothing new.
func (dh *DefaultHandler) SweepDefaults(ctx context.Context, actor, cycleID string, asOf time.Time) ([]*models.Default, error) {
	if asOf.IsZero() {
		asOf = dh.e.now()
	}

	unlock := dh.e.locks.Lock(cycleKey(cycleID))
	defer unlock()

	policy := dh.e.policy
	var created []*models.Default
	err := dh.e.commit(ctx, "sweep_defaults", func(t *txn) error {
		created = nil
		cycle, err := t.cycle(ctx, cycleID)
		if err != nil {
			return err
		}
		if err := t.requireOperator(ctx, cycle.ChamaID, actor); err != nil {
			return err
		}
		if cycle.Status == models.CyclePending || cycle.Status == models.CycleCancelled {
			return ErrCycleNotActive
		}

		overdue, err := t.repo.ListOverdueContributions(ctx, cycleID, asOf)
		if err != nil {
			return err
		}
		for _, c := range overdue {
			next := models.ContributionLate
			if c.AmountPaid == 0 {
				next = models.ContributionMissed
			}
			if c.Status != next {
				if err := c.Transition(next); err != nil {
					return err
				}
				if err := t.repo.UpdateContribution(ctx, c); err != nil {
					return err
				}
			}

			d, err := dh.recordDefault(ctx, t, cycle, c, policy)
			if err != nil {
				return err
			}
			if d != nil {
				created = append(created, d)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dh.e.metrics.ObserveDefaults(len(created))
	if len(created) > 0 {
		slog.Info("Defaults recorded", "cycle_id", cycleID, "count", len(created), "as_of", asOf)
	}
	return created, nil
}

// recordDefault creates the contribution's default unless it already has one.
func (dh *DefaultHandler) recordDefault(ctx context.Context, t *txn, cycle *models.Cycle, c *models.Contribution, policy Policy) (*models.Default, error) {
	_, err := t.repo.GetDefaultByContribution(ctx, c.ID)
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	d := &models.Default{
		ChamaID:        cycle.ChamaID,
		CycleID:        cycle.ID,
		UserID:         c.UserID,
		ContributionID: c.ID,
		PeriodNumber:   c.PeriodNumber,
		Shortfall:      c.Shortfall(),
		PenaltyAmount:  calculator.Penalty(c.AmountDue, policy.PenaltyRate),
		PenaltyPoints:  policy.PenaltyPoints,
		CreatedAt:      t.now,
	}
	if err := t.repo.CreateDefault(ctx, d); err != nil {
		return nil, err
	}
	if d.PenaltyPoints > 0 {
		if err := t.repo.AddPenaltyPoints(ctx, cycle.ChamaID, c.UserID, d.PenaltyPoints); err != nil {
			return nil, err
		}
	}
	if d.PenaltyAmount > 0 {
		desc := fmt.Sprintf("period %d default penalty", c.PeriodNumber)
		if err := t.ledger.Transfer(ctx, ledger.Wallet(c.UserID), ledger.Treasury(cycle.ChamaID), models.TxPenalty, d.PenaltyAmount, d.ID, desc); err != nil {
			return nil, err
		}
	}

	t.emit(events.DefaultCreated, events.Event{
		ChamaID: cycle.ChamaID, CycleID: cycle.ID, UserID: c.UserID, EntityID: d.ID, Amount: d.PenaltyAmount,
	})
	return d, nil
}

// ResolveDefault closes a default once its contribution has been confirmed.
// The penalty stands.
func (dh *DefaultHandler) ResolveDefault(ctx context.Context, actor, defaultID string) (*models.Default, error) {
	d, err := dh.e.store.GetDefault(ctx, defaultID)
	if err != nil {
		return nil, classify(err)
	}
	unlock := dh.e.locks.RLock(cycleKey(d.CycleID))
	defer unlock()

	err = dh.e.commit(ctx, "resolve_default", func(t *txn) error {
		var err error
		if d, err = t.repo.GetDefault(ctx, defaultID); err != nil {
			return err
		}
		if err := t.requireAdmin(ctx, d.ChamaID, actor); err != nil {
			return err
		}
		if d.Resolved {
			return conflict("default %s already resolved", d.ID)
		}
		c, err := t.repo.GetContribution(ctx, d.ContributionID)
		if err != nil {
			return err
		}
		if c.Status != models.ContributionConfirmed {
			return conflict("contribution %s is %s, not confirmed", c.ID, c.Status)
		}

		d.Resolved = true
		d.ResolvedBy = actor
		d.ResolvedAt = stamp(t.now)
		return t.repo.UpdateDefault(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Default resolved", "default_id", d.ID, "resolved_by", actor)
	return d, nil
}

// ListDefaults returns a cycle's defaults to a member of the chama.
func (dh *DefaultHandler) ListDefaults(ctx context.Context, actor, cycleID string) ([]*models.Default, error) {
	var out []*models.Default
	err := dh.e.view(ctx, "list_defaults", func(t *txn) error {
		cycle, err := t.cycle(ctx, cycleID)
		if err != nil {
			return err
		}
		if err := t.requireMember(ctx, cycle.ChamaID, actor); err != nil {
			return err
		}
		out, err = t.repo.ListDefaultsByCycle(ctx, cycleID)
		return err
	})
	return out, err
}
