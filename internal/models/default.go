package models

import "time"

// Default records a contribution missed or underpaid past its due date.
// Defaults are permanent history: resolving one keeps its penalty.
type Default struct {
	// ID is the unique identifier for the default (UUID format).
	ID string

	ChamaID string
	CycleID string
	UserID  string

	// ContributionID is a lookup reference to the unmet obligation.
	ContributionID string

	PeriodNumber int

	// Shortfall is the unpaid part of the obligation when the default was raised.
	Shortfall int64

	PenaltyAmount int64
	PenaltyPoints int

	Resolved   bool
	ResolvedBy string
	ResolvedAt *time.Time

	CreatedAt time.Time
}
