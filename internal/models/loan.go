package models

import "time"

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanPending   LoanStatus = "pending"
	LoanApproved  LoanStatus = "approved"
	LoanRejected  LoanStatus = "rejected"
	LoanRepaid    LoanStatus = "repaid"
	LoanDefaulted LoanStatus = "defaulted"
)

var loanTransitions = transitions[LoanStatus]{
	LoanPending:   {LoanApproved, LoanRejected},
	LoanApproved:  {LoanRepaid, LoanDefaulted},
	LoanRejected:  {},
	LoanRepaid:    {},
	LoanDefaulted: {},
}

// Valid reports whether s is a known loan status.
func (s LoanStatus) Valid() bool { return loanTransitions.known(s) }

// Loan is money owed by a member to a chama, backed by guarantees.
type Loan struct {
	// ID is the unique identifier for the loan (UUID format).
	ID string

	ChamaID    string
	BorrowerID string

	Amount     int64
	AmountPaid int64

	// AmountRecovered is what was seized from guarantors after a default.
	AmountRecovered int64

	Status LoanStatus

	ApprovedBy  string
	ApprovedAt  *time.Time
	DefaultedAt *time.Time
	CreatedAt   time.Time
}

// Transition moves the loan to the given status.
func (l *Loan) Transition(to LoanStatus) error {
	if err := loanTransitions.check("loan", l.Status, to); err != nil {
		return err
	}
	l.Status = to
	return nil
}

// Remaining returns the unpaid balance of the loan.
func (l *Loan) Remaining() int64 {
	r := l.Amount - l.AmountPaid - l.AmountRecovered
	if r < 0 {
		return 0
	}
	return r
}

// Active reports whether the loan still counts against guarantor capacity.
func (l *Loan) Active() bool {
	return l.Status == LoanPending || l.Status == LoanApproved
}

// GuaranteesLocked reports whether guarantors can no longer change.
func (l *Loan) GuaranteesLocked() bool {
	return l.Status != LoanPending
}

// Guarantee is a member's pledge of savings backing another member's loan.
type Guarantee struct {
	ID          string
	LoanID      string
	GuarantorID string

	// Amount is the pledged share of the loan principal. It weighs the
	// guarantor's part of a seizure.
	Amount int64

	// Seized is how much was taken from the guarantor's savings.
	Seized int64

	CreatedAt time.Time
}

// Exposure is what backing the loan ties up for each of its guarantors: the
// whole remaining balance while the loan is active, whatever the pledge.
func (g *Guarantee) Exposure(l *Loan) int64 {
	if !l.Active() {
		return 0
	}
	return l.Remaining()
}
