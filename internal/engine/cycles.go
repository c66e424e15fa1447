package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aminofabian/ichama-sub002/internal/calculator"
	"github.com/aminofabian/ichama-sub002/internal/events"
	"github.com/aminofabian/ichama-sub002/internal/models"
	"github.com/aminofabian/ichama-sub002/internal/storage"
)

// Terms are the rules a new cycle is created with.
//
// The contribution is divided either by explicit amounts, which must add up
// to ContributionAmount, or, when all three are zero, by ServiceFeeRate and
// SavingsRate.
type Terms struct {
	ContributionAmount int64
	Frequency          models.Frequency
	StartDate          time.Time

	// Rotation lists user IDs in payout order. Empty means every chama
	// member in join order.
	Rotation []string

	PayoutAmount  int64
	SavingsAmount int64
	ServiceFee    int64

	ServiceFeeRate decimal.Decimal
	SavingsRate    decimal.Decimal
}

func (tm Terms) split() (calculator.Split, error) {
	explicit := calculator.Split{Payout: tm.PayoutAmount, Savings: tm.SavingsAmount, Fee: tm.ServiceFee}
	if explicit != (calculator.Split{}) {
		return explicit, calculator.ValidateSplit(tm.ContributionAmount, explicit)
	}
	return calculator.SplitByRates(tm.ContributionAmount, tm.ServiceFeeRate, tm.SavingsRate)
}

// CycleManager owns the cycle state machine and period progression.
type CycleManager struct {
	e *Engine
}

// CreateCycle creates a pending cycle over the chama's roster.
func (m *CycleManager) CreateCycle(ctx context.Context, actor, chamaID string, terms Terms) (*models.Cycle, error) {
	if !terms.Frequency.Valid() {
		return nil, invalid("unknown frequency %q", terms.Frequency)
	}
	if terms.StartDate.IsZero() {
		return nil, invalid("start date is required")
	}
	split, err := terms.split()
	if err != nil {
		return nil, classify(err)
	}

	unlock := m.e.locks.Lock(chamaKey(chamaID))
	defer unlock()

	cycle := &models.Cycle{
		ChamaID:            chamaID,
		ContributionAmount: terms.ContributionAmount,
		PayoutAmount:       split.Payout,
		SavingsAmount:      split.Savings,
		ServiceFee:         split.Fee,
		Frequency:          terms.Frequency,
		StartDate:          terms.StartDate.UTC(),
		Status:             models.CyclePending,
	}
	err = m.e.commit(ctx, "create_cycle", func(t *txn) error {
		if _, err := t.repo.GetChama(ctx, chamaID); err != nil {
			return err
		}
		if err := t.requireAdmin(ctx, chamaID, actor); err != nil {
			return err
		}
		if err := noOpenCycle(ctx, t, chamaID); err != nil {
			return err
		}

		roster, err := t.repo.ListChamaMembers(ctx, chamaID)
		if err != nil {
			return err
		}
		members, err := rotation(roster, terms.Rotation)
		if err != nil {
			return err
		}

		cycle.CreatedAt = t.now
		return t.repo.CreateCycle(ctx, cycle, members)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Cycle created",
		"cycle_id", cycle.ID,
		"chama_id", chamaID,
		"contribution_amount", cycle.ContributionAmount,
	)
	return cycle, nil
}

// noOpenCycle keeps a chama to one pending or active cycle at a time, so it
// never has two open periods.
func noOpenCycle(ctx context.Context, t *txn, chamaID string) error {
	cycles, err := t.repo.ListCyclesByChama(ctx, chamaID)
	if err != nil {
		return err
	}
	for _, c := range cycles {
		if c.Status == models.CyclePending || c.Status == models.CycleActive {
			return conflict("chama already has %s cycle %s", c.Status, c.ID)
		}
	}
	return nil
}

// rotation assigns ordinals 1..n to the chosen members.
func rotation(roster []*models.ChamaMember, order []string) ([]*models.CycleMember, error) {
	inChama := make(map[string]bool, len(roster))
	for _, m := range roster {
		inChama[m.UserID] = true
	}
	if len(order) == 0 {
		for _, m := range roster {
			order = append(order, m.UserID)
		}
	}
	if len(order) < 2 {
		return nil, invalid("a cycle needs at least 2 members, got %d", len(order))
	}

	seen := make(map[string]bool, len(order))
	members := make([]*models.CycleMember, 0, len(order))
	for i, userID := range order {
		if !inChama[userID] {
			return nil, invalid("user %s is not a chama member", userID)
		}
		if seen[userID] {
			return nil, invalid("user %s appears twice in the rotation", userID)
		}
		seen[userID] = true
		members = append(members, &models.CycleMember{UserID: userID, Ordinal: i + 1})
	}
	return members, nil
}

// checkRotation verifies ordinals run 1..n without gaps or repeats.
func checkRotation(members []*models.CycleMember) error {
	if len(members) < 2 {
		return invalid("a cycle needs at least 2 members, got %d", len(members))
	}
	for i, m := range members {
		if m.Ordinal != i+1 {
			return invalid("rotation ordinal %d found at position %d", m.Ordinal, i+1)
		}
	}
	return nil
}

// StartCycle activates a pending cycle and opens its first period.
func (m *CycleManager) StartCycle(ctx context.Context, actor, cycleID string) (*models.Cycle, error) {
	unlock := m.e.locks.Lock(cycleKey(cycleID))
	defer unlock()

	var cycle *models.Cycle
	err := m.e.commit(ctx, "start_cycle", func(t *txn) error {
		var err error
		if cycle, err = t.cycle(ctx, cycleID); err != nil {
			return err
		}
		if err := t.requireAdmin(ctx, cycle.ChamaID, actor); err != nil {
			return err
		}
		members, err := t.repo.ListCycleMembers(ctx, cycleID)
		if err != nil {
			return err
		}
		if err := checkRotation(members); err != nil {
			return err
		}
		if err := cycle.Transition(models.CycleActive); err != nil {
			return err
		}
		cycle.PeriodNumber = 1
		cycle.StartedAt = stamp(t.now)
		if err := t.repo.UpdateCycle(ctx, cycle); err != nil {
			return err
		}
		return openPeriod(ctx, t, cycle, members)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Cycle started", "cycle_id", cycle.ID, "chama_id", cycle.ChamaID)
	return cycle, nil
}

// openPeriod creates the obligations and the payout of the cycle's current
// period.
func openPeriod(ctx context.Context, t *txn, cycle *models.Cycle, members []*models.CycleMember) error {
	period := cycle.PeriodNumber
	due := cycle.DueDate(period)

	for _, cm := range members {
		err := t.repo.CreateContribution(ctx, &models.Contribution{
			CycleID:       cycle.ID,
			CycleMemberID: cm.ID,
			UserID:        cm.UserID,
			PeriodNumber:  period,
			AmountDue:     cycle.ContributionAmount,
			DueDate:       due,
			Status:        models.ContributionPending,
		})
		if err != nil {
			return err
		}
	}

	recipient := members[(period-1)%len(members)]
	return t.repo.CreatePayout(ctx, &models.Payout{
		CycleID:       cycle.ID,
		CycleMemberID: recipient.ID,
		UserID:        recipient.UserID,
		PeriodNumber:  period,
		Amount:        cycle.PayoutAmount,
		ScheduledDate: due,
		Status:        models.PayoutScheduled,
	})
}

// periodClosed reports whether every contribution of the period is
// confirmed, missed, or already has a default on record.
func periodClosed(ctx context.Context, t *txn, cycleID string, period int) (bool, error) {
	contributions, err := t.repo.ListContributionsByPeriod(ctx, cycleID, period)
	if err != nil {
		return false, err
	}
	for _, c := range contributions {
		if c.Status == models.ContributionConfirmed || c.Status == models.ContributionMissed {
			continue
		}
		_, err := t.repo.GetDefaultByContribution(ctx, c.ID)
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
	return true, nil
}

// AdvancePeriod closes the current period and opens the next one. Closing
// the last period completes the cycle.
func (m *CycleManager) AdvancePeriod(ctx context.Context, actor, cycleID string) (*models.Cycle, error) {
	unlock := m.e.locks.Lock(cycleKey(cycleID))
	defer unlock()

	var cycle *models.Cycle
	err := m.e.commit(ctx, "advance_period", func(t *txn) error {
		var err error
		if cycle, err = t.cycle(ctx, cycleID); err != nil {
			return err
		}
		if err := t.requireOperator(ctx, cycle.ChamaID, actor); err != nil {
			return err
		}
		if cycle.Status != models.CycleActive {
			return ErrCycleNotActive
		}

		closed, err := periodClosed(ctx, t, cycleID, cycle.PeriodNumber)
		if err != nil {
			return err
		}
		if !closed {
			return fmt.Errorf("%w: cycle %s period %d", ErrPeriodNotClosed, cycleID, cycle.PeriodNumber)
		}

		payout, err := t.repo.GetPayoutByPeriod(ctx, cycleID, cycle.PeriodNumber)
		if err != nil {
			return err
		}
		if payout.Status == models.PayoutScheduled {
			if err := payout.Transition(models.PayoutPending); err != nil {
				return err
			}
			if err := t.repo.UpdatePayout(ctx, payout); err != nil {
				return err
			}
		}

		members, err := t.repo.ListCycleMembers(ctx, cycleID)
		if err != nil {
			return err
		}
		if cycle.PeriodNumber >= len(members) {
			if err := cycle.Transition(models.CycleCompleted); err != nil {
				return err
			}
			cycle.CompletedAt = stamp(t.now)
			t.emit(events.CycleCompleted, events.Event{ChamaID: cycle.ChamaID, CycleID: cycle.ID, EntityID: cycle.ID})
			return t.repo.UpdateCycle(ctx, cycle)
		}

		cycle.PeriodNumber++
		if err := t.repo.UpdateCycle(ctx, cycle); err != nil {
			return err
		}
		return openPeriod(ctx, t, cycle, members)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Cycle period advanced",
		"cycle_id", cycle.ID,
		"period_number", cycle.PeriodNumber,
		"status", cycle.Status,
	)
	return cycle, nil
}

// CancelCycle stops a pending or active cycle. Payouts not yet released are
// skipped.
func (m *CycleManager) CancelCycle(ctx context.Context, actor, cycleID string) (*models.Cycle, error) {
	unlock := m.e.locks.Lock(cycleKey(cycleID))
	defer unlock()

	var cycle *models.Cycle
	err := m.e.commit(ctx, "cancel_cycle", func(t *txn) error {
		var err error
		if cycle, err = t.cycle(ctx, cycleID); err != nil {
			return err
		}
		if err := t.requireAdmin(ctx, cycle.ChamaID, actor); err != nil {
			return err
		}
		if err := cycle.Transition(models.CycleCancelled); err != nil {
			return err
		}
		cycle.CompletedAt = stamp(t.now)
		if err := t.repo.UpdateCycle(ctx, cycle); err != nil {
			return err
		}

		payouts, err := t.repo.ListPayoutsByCycle(ctx, cycleID)
		if err != nil {
			return err
		}
		for _, p := range payouts {
			if p.Released() || p.Status == models.PayoutSkipped {
				continue
			}
			if err := p.Transition(models.PayoutSkipped); err != nil {
				return err
			}
			if err := t.repo.UpdatePayout(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Cycle cancelled", "cycle_id", cycle.ID, "period_number", cycle.PeriodNumber)
	return cycle, nil
}

// GetCycle returns a cycle to a member of its chama.
func (m *CycleManager) GetCycle(ctx context.Context, actor, cycleID string) (*models.Cycle, error) {
	var cycle *models.Cycle
	err := m.e.view(ctx, "get_cycle", func(t *txn) error {
		var err error
		if cycle, err = t.cycle(ctx, cycleID); err != nil {
			return err
		}
		return t.requireMember(ctx, cycle.ChamaID, actor)
	})
	return cycle, err
}

// ListCycleMembers returns the rotation in payout order.
func (m *CycleManager) ListCycleMembers(ctx context.Context, actor, cycleID string) ([]*models.CycleMember, error) {
	var members []*models.CycleMember
	err := m.e.view(ctx, "list_cycle_members", func(t *txn) error {
		cycle, err := t.cycle(ctx, cycleID)
		if err != nil {
			return err
		}
		if err := t.requireMember(ctx, cycle.ChamaID, actor); err != nil {
			return err
		}
		members, err = t.repo.ListCycleMembers(ctx, cycleID)
		return err
	})
	return members, err
}

// ActiveCycles lists every active cycle. Background jobs use it to find work.
func (m *CycleManager) ActiveCycles(ctx context.Context) ([]*models.Cycle, error) {
	return m.CyclesByStatus(ctx, models.CycleActive)
}

// CyclesByStatus lists cycles in any of the given statuses, oldest first
// within each status.
func (m *CycleManager) CyclesByStatus(ctx context.Context, statuses ...models.CycleStatus) ([]*models.Cycle, error) {
	var cycles []*models.Cycle
	err := m.e.view(ctx, "list_cycles", func(t *txn) error {
		cycles = nil
		for _, status := range statuses {
			list, err := t.repo.ListCyclesByStatus(ctx, status)
			if err != nil {
				return err
			}
			cycles = append(cycles, list...)
		}
		return nil
	})
	return cycles, err
}
