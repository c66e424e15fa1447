package models

import "time"

// PayoutStatus is the disbursement state of a period payout.
type PayoutStatus string

const (
	PayoutScheduled PayoutStatus = "scheduled"
	PayoutPending   PayoutStatus = "pending"
	PayoutPaid      PayoutStatus = "paid"
	PayoutConfirmed PayoutStatus = "confirmed"
	PayoutSkipped   PayoutStatus = "skipped"
)

var payoutTransitions = transitions[PayoutStatus]{
	PayoutScheduled: {PayoutPending, PayoutPaid, PayoutSkipped},
	PayoutPending:   {PayoutPaid, PayoutSkipped},
	PayoutPaid:      {PayoutConfirmed},
	PayoutConfirmed: {},
	PayoutSkipped:   {},
}

// Valid reports whether s is a known payout status.
func (s PayoutStatus) Valid() bool { return payoutTransitions.known(s) }

// Payout is the amount disbursed to the member whose rotation turn a period is.
type Payout struct {
	// ID is the unique identifier for the payout (UUID format).
	ID string

	CycleID       string
	CycleMemberID string

	// UserID is the recipient, denormalized from the cycle member.
	UserID string

	PeriodNumber int

	Amount int64

	ScheduledDate time.Time
	PaidAt        *time.Time

	// ConfirmedByMember is the recipient's acknowledgment of receipt.
	ConfirmedByMember bool
	ConfirmedAt       *time.Time

	Status PayoutStatus
}

// Transition moves the payout to the given status.
func (p *Payout) Transition(to PayoutStatus) error {
	if err := payoutTransitions.check("payout", p.Status, to); err != nil {
		return err
	}
	p.Status = to
	return nil
}

// Released reports whether money has already left the pool for this payout.
func (p *Payout) Released() bool {
	return p.Status == PayoutPaid || p.Status == PayoutConfirmed
}
