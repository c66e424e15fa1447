package models

import (
	"fmt"
	"time"
)

// CycleStatus is the lifecycle state of a cycle.
type CycleStatus string

const (
	CyclePending   CycleStatus = "pending"
	CycleActive    CycleStatus = "active"
	CycleCompleted CycleStatus = "completed"
	CycleCancelled CycleStatus = "cancelled"
)

var cycleTransitions = transitions[CycleStatus]{
	CyclePending:   {CycleActive, CycleCancelled},
	CycleActive:    {CycleCompleted, CycleCancelled},
	CycleCompleted: {},
	CycleCancelled: {},
}

// Valid reports whether s is a known cycle status.
func (s CycleStatus) Valid() bool { return cycleTransitions.known(s) }

// Frequency is how often a cycle's periods recur.
type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}

// Advance returns t moved forward by n periods.
func (f Frequency) Advance(t time.Time, n int) time.Time {
	switch f {
	case FrequencyWeekly:
		return t.AddDate(0, 0, 7*n)
	case FrequencyBiweekly:
		return t.AddDate(0, 0, 14*n)
	default:
		return t.AddDate(0, n, 0)
	}
}

// Cycle is one full rotation of contributions and payouts within a chama.
//
// ContributionAmount always equals PayoutAmount + SavingsAmount + ServiceFee.
type Cycle struct {
	// ID is the unique identifier for the cycle (UUID format).
	ID string

	// ChamaID is the owning chama.
	ChamaID string

	// ContributionAmount is what each member owes per period.
	ContributionAmount int64

	// PayoutAmount is the share of each contribution credited to the payout pool.
	PayoutAmount int64

	// SavingsAmount is the share of each contribution deposited to the
	// contributing member's savings account.
	SavingsAmount int64

	// ServiceFee is the share of each contribution kept by the chama.
	ServiceFee int64

	Frequency Frequency

	// StartDate anchors the period schedule. Period p is due at
	// StartDate advanced by p periods.
	StartDate time.Time

	// PeriodNumber is the current open period, 0 until the cycle starts.
	PeriodNumber int

	Status CycleStatus

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Transition moves the cycle to the given status.
func (c *Cycle) Transition(to CycleStatus) error {
	if err := cycleTransitions.check("cycle", c.Status, to); err != nil {
		return err
	}
	c.Status = to
	return nil
}

// SplitBalanced reports whether the contribution split adds up.
func (c *Cycle) SplitBalanced() bool {
	return c.PayoutAmount >= 0 && c.SavingsAmount >= 0 && c.ServiceFee >= 0 &&
		c.PayoutAmount+c.SavingsAmount+c.ServiceFee == c.ContributionAmount
}

// DueDate returns the due date of the given period.
func (c *Cycle) DueDate(period int) time.Time {
	return c.Frequency.Advance(c.StartDate, period)
}

// PoolAccount names the ledger account holding the cycle's payout pool.
func (c *Cycle) PoolAccount() string {
	return fmt.Sprintf("cycle:%s", c.ID)
}

// CycleMember is a chama member's position in a cycle's payout rotation.
type CycleMember struct {
	ID      string
	CycleID string
	UserID  string

	// Ordinal is the 1-based rotation position. The member at ordinal k
	// receives the payout of period k.
	Ordinal int
}
