// Package models defines the core domain records for the chama engine.
//
// # Records
//
// A Chama owns Cycles. A Cycle owns its CycleMembers (rotation positions),
// Contributions (one per member per period) and Payouts (one per period).
// Defaults reference a Contribution by ID only and are never deleted.
// Loans and Guarantees belong to a Chama. WalletTransactions belong to a
// user and are append-only.
//
// # Status fields
//
// Every status is a closed string type with an explicit transition table.
// Callers move a record forward with its Transition method, which rejects
// any move the table does not list:
//
//	if err := c.Transition(models.ContributionConfirmed); err != nil {
//		return err
//	}
//
// # Amounts and time
//
// Amounts are int64 minor currency units. Timestamps are time.Time in UTC
// and are persisted as RFC 3339 strings.
package models
