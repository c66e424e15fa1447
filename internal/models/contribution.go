package models

import "time"

// ContributionStatus is the settlement state of a period obligation.
type ContributionStatus string

const (
	ContributionPending   ContributionStatus = "pending"
	ContributionPartial   ContributionStatus = "partial"
	ContributionPaid      ContributionStatus = "paid"
	ContributionConfirmed ContributionStatus = "confirmed"
	ContributionLate      ContributionStatus = "late"
	ContributionMissed    ContributionStatus = "missed"
)

// Statuses only move forward. A late or missed obligation can still be
// settled by paying it in full.
var contributionTransitions = transitions[ContributionStatus]{
	ContributionPending:   {ContributionPartial, ContributionPaid, ContributionLate, ContributionMissed},
	ContributionPartial:   {ContributionPaid, ContributionLate},
	ContributionLate:      {ContributionPaid, ContributionMissed},
	ContributionMissed:    {ContributionPaid},
	ContributionPaid:      {ContributionConfirmed},
	ContributionConfirmed: {},
}

// Valid reports whether s is a known contribution status.
func (s ContributionStatus) Valid() bool { return contributionTransitions.known(s) }

// Contribution is one member's obligation for one period of a cycle.
type Contribution struct {
	// ID is the unique identifier for the contribution (UUID format).
	ID string

	CycleID       string
	CycleMemberID string

	// UserID is denormalized from the cycle member for lookups.
	UserID string

	PeriodNumber int

	AmountDue int64

	// AmountPaid never decreases.
	AmountPaid int64

	DueDate time.Time
	PaidAt  *time.Time

	ConfirmedBy string
	ConfirmedAt *time.Time

	Status ContributionStatus
}

// Transition moves the contribution to the given status.
func (c *Contribution) Transition(to ContributionStatus) error {
	if err := contributionTransitions.check("contribution", c.Status, to); err != nil {
		return err
	}
	c.Status = to
	return nil
}

// ApplyPayment adds amount to AmountPaid and moves the status forward if
// the payment changes it. A payment never moves the status backward.
func (c *Contribution) ApplyPayment(amount int64, paidAt time.Time) {
	c.AmountPaid += amount
	t := paidAt.UTC()
	c.PaidAt = &t

	var next ContributionStatus
	switch {
	case c.AmountPaid >= c.AmountDue:
		next = ContributionPaid
	case c.AmountPaid > 0:
		next = ContributionPartial
	default:
		return
	}
	if contributionTransitions.allows(c.Status, next) {
		c.Status = next
	}
}

// Settled reports whether the obligation has been met in full.
func (c *Contribution) Settled() bool {
	return c.Status == ContributionPaid || c.Status == ContributionConfirmed
}

// Overpaid returns how much was paid above the amount due.
func (c *Contribution) Overpaid() int64 {
	if c.AmountPaid > c.AmountDue {
		return c.AmountPaid - c.AmountDue
	}
	return 0
}

// Shortfall returns how much of the amount due is still unpaid.
func (c *Contribution) Shortfall() int64 {
	if c.AmountPaid >= c.AmountDue {
		return 0
	}
	return c.AmountDue - c.AmountPaid
}
