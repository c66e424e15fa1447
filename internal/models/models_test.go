package models

import (
	"errors"
	"testing"
	"time"
)

func TestContributionTransitions(t *testing.T) {
	tests := []struct {
		from ContributionStatus
		to   ContributionStatus
		ok   bool
	}{
		{ContributionPending, ContributionPaid, true},
		{ContributionPending, ContributionMissed, true},
		{ContributionPartial, ContributionLate, true},
		{ContributionMissed, ContributionPaid, true},
		{ContributionPaid, ContributionConfirmed, true},
		{ContributionPaid, ContributionPending, false},
		{ContributionConfirmed, ContributionPaid, false},
		{ContributionMissed, ContributionLate, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			c := &Contribution{Status: tt.from}
			err := c.Transition(tt.to)
			if tt.ok {
				if err != nil || c.Status != tt.to {
					t.Errorf("Expected move to %s, got %s (%v)", tt.to, c.Status, err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Expected ErrInvalidTransition, got %v", err)
			}
			if c.Status != tt.from {
				t.Errorf("Status changed to %s on a rejected move", c.Status)
			}
		})
	}
}

func TestApplyPayment(t *testing.T) {
	paidAt := time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC)

	c := &Contribution{AmountDue: 1000, Status: ContributionPending}
	c.ApplyPayment(400, paidAt)
	if c.Status != ContributionPartial || c.Shortfall() != 600 {
		t.Fatalf("Expected partial with 600 short, got %s/%d", c.Status, c.Shortfall())
	}

	c.ApplyPayment(700, paidAt)
	if c.Status != ContributionPaid || c.Overpaid() != 100 || !c.Settled() {
		t.Fatalf("Expected paid with 100 over, got %s/%d", c.Status, c.Overpaid())
	}

	// A late obligation settled in part stays late.
	late := &Contribution{AmountDue: 1000, Status: ContributionLate}
	late.ApplyPayment(500, paidAt)
	if late.Status != ContributionLate {
		t.Errorf("Expected late to stay late, got %s", late.Status)
	}
	late.ApplyPayment(500, paidAt)
	if late.Status != ContributionPaid {
		t.Errorf("Expected paid, got %s", late.Status)
	}
	if late.PaidAt == nil || !late.PaidAt.Equal(paidAt) {
		t.Errorf("Expected paid_at %v, got %v", paidAt, late.PaidAt)
	}
}

func TestCycleAndPayoutTransitions(t *testing.T) {
	c := &Cycle{Status: CyclePending}
	if err := c.Transition(CycleCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected pending -> completed to fail, got %v", err)
	}
	if err := c.Transition(CycleActive); err != nil {
		t.Fatalf("pending -> active failed: %v", err)
	}
	if err := c.Transition(CycleCompleted); err != nil {
		t.Fatalf("active -> completed failed: %v", err)
	}
	if err := c.Transition(CycleCancelled); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected completed to be terminal, got %v", err)
	}

	p := &Payout{Status: PayoutScheduled}
	for _, to := range []PayoutStatus{PayoutPending, PayoutPaid, PayoutConfirmed} {
		if err := p.Transition(to); err != nil {
			t.Fatalf("payout -> %s failed: %v", to, err)
		}
	}
	if !p.Released() {
		t.Error("Expected confirmed payout to count as released")
	}
	if err := (&Payout{Status: PayoutPaid}).Transition(PayoutSkipped); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected paid payout not to be skipped, got %v", err)
	}
}

func TestLoanRemaining(t *testing.T) {
	l := &Loan{Amount: 5000, AmountPaid: 1500, AmountRecovered: 2400, Status: LoanApproved}
	if l.Remaining() != 1100 {
		t.Errorf("Expected 1100 remaining, got %d", l.Remaining())
	}
	l.AmountPaid = 3000
	if l.Remaining() != 0 {
		t.Errorf("Expected remaining to floor at 0, got %d", l.Remaining())
	}
	if !l.Active() || !l.GuaranteesLocked() {
		t.Error("Expected approved loan to be active with locked guarantees")
	}
	if err := l.Transition(LoanRejected); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected approved -> rejected to fail, got %v", err)
	}
}

func TestGuaranteeExposure(t *testing.T) {
	l := &Loan{Amount: 5000, AmountPaid: 1000, Status: LoanPending}
	small := &Guarantee{Amount: 1000}
	large := &Guarantee{Amount: 4000}
	if small.Exposure(l) != 4000 || large.Exposure(l) != 4000 {
		t.Errorf("Expected both guarantors exposed to the 4000 remaining, got %d and %d", small.Exposure(l), large.Exposure(l))
	}
	l.Status = LoanRepaid
	if small.Exposure(l) != 0 {
		t.Errorf("Expected no exposure on a closed loan, got %d", small.Exposure(l))
	}
}

func TestDueDates(t *testing.T) {
	start := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		freq   Frequency
		period int
		want   time.Time
	}{
		{FrequencyWeekly, 1, time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC)},
		{FrequencyBiweekly, 2, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
		{FrequencyMonthly, 1, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		c := &Cycle{Frequency: tt.freq, StartDate: start}
		if got := c.DueDate(tt.period); !got.Equal(tt.want) {
			t.Errorf("%s period %d: expected %v, got %v", tt.freq, tt.period, tt.want, got)
		}
	}
}

func TestReversed(t *testing.T) {
	tx := &WalletTransaction{
		Owner: "alice", Account: AccountWallet,
		CounterOwner: "cycle:c-1", CounterAccount: AccountPool,
		Type: TxPayout, Amount: 873,
	}
	r := tx.Reversed()
	if r.Owner != "cycle:c-1" || r.Account != AccountPool || r.Amount != -873 {
		t.Errorf("Unexpected reversed row %+v", r)
	}
	if r.CounterOwner != "alice" || r.CounterAccount != AccountWallet {
		t.Errorf("Expected counter side alice wallet, got %s/%s", r.CounterOwner, r.CounterAccount)
	}
	if tx.Amount != 873 {
		t.Error("Reversed modified the original row")
	}
}
