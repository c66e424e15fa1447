package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aminofabian/ichama-sub002/internal/events"
	"github.com/aminofabian/ichama-sub002/internal/ledger"
	"github.com/aminofabian/ichama-sub002/internal/models"
)

// ContributionTracker records payments against period obligations and
// confirms them into the ledger.
type ContributionTracker struct {
	e *Engine
}

// lockContribution takes the cycle lock shared and the contribution lock
// exclusively. The cycle ID never changes, so it is safe to read it first.
func (ct *ContributionTracker) lockContribution(ctx context.Context, contributionID string) (func(), error) {
	c, err := ct.e.store.GetContribution(ctx, contributionID)
	if err != nil {
		return nil, err
	}
	unlockCycle := ct.e.locks.RLock(cycleKey(c.CycleID))
	unlock := ct.e.locks.Lock(contributionKey(contributionID))
	return func() {
		unlock()
		unlockCycle()
	}, nil
}

// RecordPayment adds amount to what the member has paid. The member or an
// admin may record it. A zero paidAt means now.
func (ct *ContributionTracker) RecordPayment(ctx context.Context, actor, contributionID string, amount int64, paidAt time.Time) (*models.Contribution, error) {
	if amount <= 0 {
		return nil, invalid("payment amount must be positive, got %d", amount)
	}
	unlock, err := ct.lockContribution(ctx, contributionID)
	if err != nil {
		return nil, classify(err)
	}
	defer unlock()

	var c *models.Contribution
	err = ct.e.commit(ctx, "record_payment", func(t *txn) error {
		var err error
		if c, err = t.repo.GetContribution(ctx, contributionID); err != nil {
			return err
		}
		cycle, err := t.cycle(ctx, c.CycleID)
		if err != nil {
			return err
		}
		if c.UserID != actor {
			if err := t.requireAdmin(ctx, cycle.ChamaID, actor); err != nil {
				return err
			}
		} else if err := t.requireMember(ctx, cycle.ChamaID, actor); err != nil {
			return err
		}
		if cycle.Status == models.CycleCancelled {
			return conflict("cycle %s is cancelled", cycle.ID)
		}
		if c.Status == models.ContributionConfirmed {
			return ErrAlreadyConfirmed
		}

		if paidAt.IsZero() {
			paidAt = t.now
		}
		c.ApplyPayment(amount, paidAt)
		return t.repo.UpdateContribution(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Contribution payment recorded",
		"contribution_id", c.ID,
		"amount", amount,
		"amount_paid", c.AmountPaid,
		"status", c.Status,
	)
	return c, nil
}

// ConfirmContribution verifies a paid contribution and posts its split: the
// payout share to the cycle pool, the savings share to the member's savings,
// the fee to the chama treasury, and any overpayment back to the member's
// wallet. A contribution is confirmed at most once.
func (ct *ContributionTracker) ConfirmContribution(ctx context.Context, actor, contributionID string) (*models.Contribution, error) {
	unlock, err := ct.lockContribution(ctx, contributionID)
	if err != nil {
		return nil, classify(err)
	}
	defer unlock()

	var c *models.Contribution
	err = ct.e.commit(ctx, "confirm_contribution", func(t *txn) error {
		var err error
		if c, err = t.repo.GetContribution(ctx, contributionID); err != nil {
			return err
		}
		cycle, err := t.cycle(ctx, c.CycleID)
		if err != nil {
			return err
		}
		if err := t.requireAdmin(ctx, cycle.ChamaID, actor); err != nil {
			return err
		}
		if cycle.Status == models.CycleCancelled {
			return conflict("cycle %s is cancelled", cycle.ID)
		}
		if c.Status == models.ContributionConfirmed {
			return ErrAlreadyConfirmed
		}
		if c.Status != models.ContributionPaid {
			return conflict("contribution %s is %s, not paid", c.ID, c.Status)
		}

		if err := c.Transition(models.ContributionConfirmed); err != nil {
			return err
		}
		c.ConfirmedBy = actor
		c.ConfirmedAt = stamp(t.now)
		if err := t.repo.UpdateContribution(ctx, c); err != nil {
			return err
		}
		if err := postSplit(ctx, t.ledger, cycle, c); err != nil {
			return err
		}

		t.emit(events.ContributionConfirmed, events.Event{
			ChamaID: cycle.ChamaID, CycleID: cycle.ID, UserID: c.UserID, EntityID: c.ID, Amount: c.AmountPaid,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Contribution confirmed",
		"contribution_id", c.ID,
		"user_id", c.UserID,
		"confirmed_by", actor,
	)
	return c, nil
}

// postSplit posts one row per destination of the confirmed amount, each
// tagged with its own type and referencing the contribution.
func postSplit(ctx context.Context, l *ledger.Ledger, cycle *models.Cycle, c *models.Contribution) error {
	desc := fmt.Sprintf("period %d contribution", c.PeriodNumber)
	if err := l.Credit(ctx, ledger.Pool(cycle), models.TxContribution, cycle.PayoutAmount, c.ID, desc); err != nil {
		return err
	}
	if cycle.SavingsAmount > 0 {
		if err := l.Savings(c.UserID).Deposit(ctx, cycle.SavingsAmount, c.ID); err != nil {
			return err
		}
	}
	if cycle.ServiceFee > 0 {
		if err := l.Credit(ctx, ledger.Treasury(cycle.ChamaID), models.TxServiceFee, cycle.ServiceFee, c.ID, desc); err != nil {
			return err
		}
	}
	if excess := c.Overpaid(); excess > 0 {
		if err := l.Credit(ctx, ledger.Wallet(c.UserID), models.TxOverpaymentCredit, excess, c.ID, desc); err != nil {
			return err
		}
	}
	return nil
}

// ListContributions returns a period's obligations to a member of the chama.
func (ct *ContributionTracker) ListContributions(ctx context.Context, actor, cycleID string, period int) ([]*models.Contribution, error) {
	var out []*models.Contribution
	err := ct.e.view(ctx, "list_contributions", func(t *txn) error {
		cycle, err := t.cycle(ctx, cycleID)
		if err != nil {
			return err
		}
		if err := t.requireMember(ctx, cycle.ChamaID, actor); err != nil {
			return err
		}
		if period == 0 {
			period = cycle.PeriodNumber
		}
		out, err = t.repo.ListContributionsByPeriod(ctx, cycleID, period)
		return err
	})
	return out, err
}

// GetContribution returns one obligation to a member of the chama.
func (ct *ContributionTracker) GetContribution(ctx context.Context, actor, contributionID string) (*models.Contribution, error) {
	var c *models.Contribution
	err := ct.e.view(ctx, "get_contribution", func(t *txn) error {
		var err error
		if c, err = t.repo.GetContribution(ctx, contributionID); err != nil {
			return err
		}
		cycle, err := t.cycle(ctx, c.CycleID)
		if err != nil {
			return err
		}
		return t.requireMember(ctx, cycle.ChamaID, actor)
	})
	return c, err
}
