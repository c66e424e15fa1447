package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aminofabian/ichama-sub002/internal/calculator"
	"github.com/aminofabian/ichama-sub002/internal/events"
	"github.com/aminofabian/ichama-sub002/internal/ledger"
	"github.com/aminofabian/ichama-sub002/internal/models"
)

// Pledge is a guarantor's offered share of a loan. A zero Amount on every
// pledge of a request splits the loan equally.
type Pledge struct {
	GuarantorID string
	Amount      int64
}

// LoanRecord is a loan with its guarantees.
type LoanRecord struct {
	Loan       *models.Loan
	Guarantees []*models.Guarantee
}

// Capacity is how much more a member can guarantee.
type Capacity struct {
	Savings   int64
	Exposure  int64
	Available int64
}

// LoanGuaranteeValidator issues loans against guarantors' savings and keeps
// every guarantor's exposure within their savings.
type LoanGuaranteeValidator struct {
	e *Engine
}

// exposure sums the remaining balance of every active loan the user backs.
// Pledge amounts only weigh seizures.
func exposure(ctx context.Context, t *txn, userID string) (int64, error) {
	active, err := t.repo.ListActiveGuarantees(ctx, userID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, gl := range active {
		total += gl.Guarantee.Exposure(gl.Loan)
	}
	return total, nil
}

func capacity(ctx context.Context, t *txn, userID string) (Capacity, error) {
	savings, err := t.ledger.Savings(userID).Balance(ctx)
	if err != nil {
		return Capacity{}, err
	}
	exp, err := exposure(ctx, t, userID)
	if err != nil {
		return Capacity{}, err
	}
	return Capacity{Savings: savings, Exposure: exp, Available: savings - exp}, nil
}

// checkPledge fails unless the guarantor's savings cover their current
// exposure plus extra, the remaining balance of a loan they are about to
// back.
func checkPledge(ctx context.Context, t *txn, guarantorID string, extra int64) error {
	c, err := capacity(ctx, t, guarantorID)
	if err != nil {
		return err
	}
	if c.Exposure+extra > c.Savings {
		return fmt.Errorf("%w: guarantor %s has %d available, loan needs %d", ErrCapacity, guarantorID, c.Available, extra)
	}
	return nil
}

// splitPledges fills in equal shares when no amounts were given and checks
// the pledges cover the loan exactly.
func splitPledges(amount int64, pledges []Pledge) ([]Pledge, error) {
	if len(pledges) == 0 {
		return nil, invalid("a loan needs at least one guarantor")
	}
	out := append([]Pledge(nil), pledges...)

	explicit := false
	for _, p := range out {
		if p.Amount != 0 {
			explicit = true
		}
	}
	if !explicit {
		n := int64(len(out))
		for i := range out {
			out[i].Amount = amount / n
		}
		out[0].Amount += amount % n
	}

	var sum int64
	for _, p := range out {
		if p.Amount <= 0 {
			return nil, invalid("pledge for %s must be positive", p.GuarantorID)
		}
		sum += p.Amount
	}
	if sum != amount {
		return nil, invalid("pledges total %d, loan is %d", sum, amount)
	}
	return out, nil
}

// guarantor checks a prospective guarantor belongs to the chama and is not
// the borrower.
func guarantor(ctx context.Context, t *txn, loan *models.Loan, userID string) error {
	if userID == loan.BorrowerID {
		return invalid("borrower cannot guarantee their own loan")
	}
	if _, err := t.member(ctx, loan.ChamaID, userID); err != nil {
		return invalid("guarantor %s is not a chama member", userID)
	}
	return nil
}

// RequestLoan creates a pending loan for the actor backed by the pledges.
// Every guarantor must have enough savings left after their existing
// exposure to cover the whole loan.
func (v *LoanGuaranteeValidator) RequestLoan(ctx context.Context, actor, chamaID string, amount int64, pledges []Pledge) (*LoanRecord, error) {
	if amount <= 0 {
		return nil, invalid("loan amount must be positive, got %d", amount)
	}
	pledges, err := splitPledges(amount, pledges)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(pledges))
	seen := make(map[string]bool, len(pledges))
	for _, p := range pledges {
		if seen[p.GuarantorID] {
			return nil, invalid("guarantor %s listed twice", p.GuarantorID)
		}
		seen[p.GuarantorID] = true
		keys = append(keys, guarantorKey(p.GuarantorID))
	}

	unlock := v.e.locks.LockAll(keys...)
	defer unlock()

	rec := &LoanRecord{}
	err = v.e.commit(ctx, "request_loan", func(t *txn) error {
		rec.Guarantees = nil
		if _, err := t.member(ctx, chamaID, actor); err != nil {
			return err
		}
		loan := &models.Loan{
			ChamaID:    chamaID,
			BorrowerID: actor,
			Amount:     amount,
			Status:     models.LoanPending,
			CreatedAt:  t.now,
		}
		for _, p := range pledges {
			if err := guarantor(ctx, t, loan, p.GuarantorID); err != nil {
				return err
			}
			if err := checkPledge(ctx, t, p.GuarantorID, amount); err != nil {
				return err
			}
		}

		if err := t.repo.CreateLoan(ctx, loan); err != nil {
			return err
		}
		for _, p := range pledges {
			g := &models.Guarantee{LoanID: loan.ID, GuarantorID: p.GuarantorID, Amount: p.Amount, CreatedAt: t.now}
			if err := t.repo.CreateGuarantee(ctx, g); err != nil {
				return err
			}
			rec.Guarantees = append(rec.Guarantees, g)
		}
		rec.Loan = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Loan requested",
		"loan_id", rec.Loan.ID,
		"borrower_id", actor,
		"amount", amount,
		"guarantors", len(rec.Guarantees),
	)
	return rec, nil
}

// CheckCapacity reports a member's savings, exposure and what is left.
func (v *LoanGuaranteeValidator) CheckCapacity(ctx context.Context, actor, userID string) (Capacity, error) {
	var c Capacity
	err := v.e.view(ctx, "check_capacity", func(t *txn) error {
		if err := t.requireAccountHolder(ctx, userID, actor); err != nil {
			return err
		}
		var err error
		c, err = capacity(ctx, t, userID)
		return err
	})
	return c, err
}

// loadLoan reads the loan and checks the actor is its borrower or a chama
// admin.
func loadLoan(ctx context.Context, t *txn, loanID, actor string, adminOnly bool) (*models.Loan, error) {
	loan, err := t.repo.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !adminOnly && actor == loan.BorrowerID {
		return loan, nil
	}
	if err := t.requireAdmin(ctx, loan.ChamaID, actor); err != nil {
		return nil, err
	}
	return loan, nil
}

// AddGuarantor adds a pledge to a pending loan.
func (v *LoanGuaranteeValidator) AddGuarantor(ctx context.Context, actor, loanID string, p Pledge) (*models.Guarantee, error) {
	if p.Amount <= 0 {
		return nil, invalid("pledge for %s must be positive", p.GuarantorID)
	}
	unlockLoan := v.e.locks.Lock(loanKey(loanID))
	defer unlockLoan()
	unlock := v.e.locks.Lock(guarantorKey(p.GuarantorID))
	defer unlock()

	var g *models.Guarantee
	err := v.e.commit(ctx, "add_guarantor", func(t *txn) error {
		loan, err := loadLoan(ctx, t, loanID, actor, false)
		if err != nil {
			return err
		}
		if loan.GuaranteesLocked() {
			return conflict("loan %s is %s", loan.ID, loan.Status)
		}
		if err := guarantor(ctx, t, loan, p.GuarantorID); err != nil {
			return err
		}
		if err := checkPledge(ctx, t, p.GuarantorID, loan.Remaining()); err != nil {
			return err
		}
		g = &models.Guarantee{LoanID: loan.ID, GuarantorID: p.GuarantorID, Amount: p.Amount, CreatedAt: t.now}
		return t.repo.CreateGuarantee(ctx, g)
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// RemoveGuarantor drops a guarantor from a pending loan.
func (v *LoanGuaranteeValidator) RemoveGuarantor(ctx context.Context, actor, loanID, guarantorID string) error {
	unlock := v.e.locks.Lock(loanKey(loanID))
	defer unlock()

	return v.e.commit(ctx, "remove_guarantor", func(t *txn) error {
		loan, err := loadLoan(ctx, t, loanID, actor, false)
		if err != nil {
			return err
		}
		if loan.GuaranteesLocked() {
			return conflict("loan %s is %s", loan.ID, loan.Status)
		}
		guarantees, err := t.repo.ListGuaranteesByLoan(ctx, loanID)
		if err != nil {
			return err
		}
		for _, g := range guarantees {
			if g.GuarantorID == guarantorID {
				return t.repo.DeleteGuarantee(ctx, g.ID)
			}
		}
		return fmt.Errorf("%w: guarantor %s on loan %s", ErrNotFound, guarantorID, loanID)
	})
}

// ApproveLoan disburses a pending loan from the chama treasury into the
// borrower's wallet. The pledges must cover the loan, every guarantor must
// still be within capacity and the treasury must hold the full amount.
func (v *LoanGuaranteeValidator) ApproveLoan(ctx context.Context, actor, loanID string) (*models.Loan, error) {
	unlock := v.e.locks.Lock(loanKey(loanID))
	defer unlock()

	var loan *models.Loan
	err := v.e.commit(ctx, "approve_loan", func(t *txn) error {
		var err error
		if loan, err = loadLoan(ctx, t, loanID, actor, true); err != nil {
			return err
		}
		if loan.Status != models.LoanPending {
			return conflict("loan %s is %s", loan.ID, loan.Status)
		}
		guarantees, err := t.repo.ListGuaranteesByLoan(ctx, loanID)
		if err != nil {
			return err
		}
		var pledged int64
		for _, g := range guarantees {
			pledged += g.Amount
			// The loan is pending, so its balance is already counted.
			if err := checkPledge(ctx, t, g.GuarantorID, 0); err != nil {
				return err
			}
		}
		if pledged < loan.Amount {
			return fmt.Errorf("%w: pledges cover %d of %d", ErrCapacity, pledged, loan.Amount)
		}
		treasury, err := t.ledger.TreasuryBalance(ctx, loan.ChamaID)
		if err != nil {
			return err
		}
		if treasury < loan.Amount {
			return fmt.Errorf("%w: treasury %d, loan %d", ErrTreasuryShort, treasury, loan.Amount)
		}

		if err := loan.Transition(models.LoanApproved); err != nil {
			return err
		}
		loan.ApprovedBy = actor
		loan.ApprovedAt = stamp(t.now)
		if err := t.repo.UpdateLoan(ctx, loan); err != nil {
			return err
		}
		if err := t.ledger.Transfer(ctx, ledger.Treasury(loan.ChamaID), ledger.Wallet(loan.BorrowerID),
			models.TxLoanDisbursement, loan.Amount, loan.ID, "loan disbursement"); err != nil {
			return err
		}

		t.emit(events.LoanApproved, events.Event{
			ChamaID: loan.ChamaID, UserID: loan.BorrowerID, EntityID: loan.ID, Amount: loan.Amount,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Loan approved", "loan_id", loan.ID, "approved_by", actor, "amount", loan.Amount)
	return loan, nil
}

// RejectLoan declines a pending loan, releasing its guarantors.
func (v *LoanGuaranteeValidator) RejectLoan(ctx context.Context, actor, loanID string) (*models.Loan, error) {
	unlock := v.e.locks.Lock(loanKey(loanID))
	defer unlock()

	var loan *models.Loan
	err := v.e.commit(ctx, "reject_loan", func(t *txn) error {
		var err error
		if loan, err = loadLoan(ctx, t, loanID, actor, true); err != nil {
			return err
		}
		if err := loan.Transition(models.LoanRejected); err != nil {
			return err
		}
		return t.repo.UpdateLoan(ctx, loan)
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// RecordRepayment moves amount from the borrower's wallet to the chama
// treasury. The loan is repaid once nothing remains.
func (v *LoanGuaranteeValidator) RecordRepayment(ctx context.Context, actor, loanID string, amount int64) (*models.Loan, error) {
	if amount <= 0 {
		return nil, invalid("repayment must be positive, got %d", amount)
	}
	unlock := v.e.locks.Lock(loanKey(loanID))
	defer unlock()

	var loan *models.Loan
	err := v.e.commit(ctx, "record_repayment", func(t *txn) error {
		var err error
		if loan, err = loadLoan(ctx, t, loanID, actor, false); err != nil {
			return err
		}
		if loan.Status != models.LoanApproved {
			return conflict("loan %s is %s", loan.ID, loan.Status)
		}
		if amount > loan.Remaining() {
			return invalid("repayment %d exceeds remaining %d", amount, loan.Remaining())
		}

		loan.AmountPaid += amount
		if loan.Remaining() == 0 {
			if err := loan.Transition(models.LoanRepaid); err != nil {
				return err
			}
		}
		if err := t.repo.UpdateLoan(ctx, loan); err != nil {
			return err
		}
		return t.ledger.Transfer(ctx, ledger.Wallet(loan.BorrowerID), ledger.Treasury(loan.ChamaID),
			models.TxLoanRepayment, amount, loan.ID, "loan repayment")
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// MarkDefaulted closes an approved loan as defaulted and recovers the
// remaining balance from guarantors' savings, in proportion to their
// pledges. No guarantor loses more than they pledged or more than their
// savings hold; whatever cannot be recovered stays outstanding on the loan.
func (v *LoanGuaranteeValidator) MarkDefaulted(ctx context.Context, actor, loanID string) (*LoanRecord, error) {
	unlockLoan := v.e.locks.Lock(loanKey(loanID))
	defer unlockLoan()

	guarantees, err := v.e.store.ListGuaranteesByLoan(ctx, loanID)
	if err != nil {
		return nil, classify(err)
	}
	keys := make([]string, 0, len(guarantees))
	for _, g := range guarantees {
		keys = append(keys, guarantorKey(g.GuarantorID))
	}
	unlock := v.e.locks.LockAll(keys...)
	defer unlock()

	rec := &LoanRecord{}
	err = v.e.commit(ctx, "mark_defaulted", func(t *txn) error {
		loan, err := loadLoan(ctx, t, loanID, actor, true)
		if err != nil {
			return err
		}
		remaining := loan.Remaining()
		if err := loan.Transition(models.LoanDefaulted); err != nil {
			return err
		}

		guarantees, err := t.repo.ListGuaranteesByLoan(ctx, loanID)
		if err != nil {
			return err
		}
		limits := make(map[string]int64, len(guarantees))
		shares := make([]calculator.Share, 0, len(guarantees))
		for _, g := range guarantees {
			savings, err := t.ledger.Savings(g.GuarantorID).Balance(ctx)
			if err != nil {
				return err
			}
			limits[g.GuarantorID] = min(g.Amount, max(savings, 0))
			shares = append(shares, calculator.Share{Key: g.GuarantorID, Weight: g.Amount})
		}
		allocations, _, err := calculator.ProRata(remaining, shares, func(key string) int64 { return limits[key] })
		if err != nil {
			return err
		}

		var recovered int64
		for i, a := range allocations {
			g := guarantees[i]
			if a.Amount == 0 {
				continue
			}
			if err := t.ledger.Savings(g.GuarantorID).Seize(ctx, ledger.Treasury(loan.ChamaID), a.Amount, loan.ID); err != nil {
				return err
			}
			g.Seized += a.Amount
			if err := t.repo.UpdateGuarantee(ctx, g); err != nil {
				return err
			}
			recovered += a.Amount
		}

		loan.AmountRecovered += recovered
		loan.DefaultedAt = stamp(t.now)
		if err := t.repo.UpdateLoan(ctx, loan); err != nil {
			return err
		}

		t.emit(events.LoanDefaulted, events.Event{
			ChamaID: loan.ChamaID, UserID: loan.BorrowerID, EntityID: loan.ID, Amount: recovered,
		})
		rec.Loan, rec.Guarantees = loan, guarantees
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Warn("Loan defaulted",
		"loan_id", rec.Loan.ID,
		"borrower_id", rec.Loan.BorrowerID,
		"recovered", rec.Loan.AmountRecovered,
		"outstanding", rec.Loan.Remaining(),
	)
	return rec, nil
}

// GetLoan returns a loan and its guarantees to a member of the chama.
func (v *LoanGuaranteeValidator) GetLoan(ctx context.Context, actor, loanID string) (*LoanRecord, error) {
	rec := &LoanRecord{}
	err := v.e.view(ctx, "get_loan", func(t *txn) error {
		var err error
		if rec.Loan, err = t.repo.GetLoan(ctx, loanID); err != nil {
			return err
		}
		if err := t.requireMember(ctx, rec.Loan.ChamaID, actor); err != nil {
			return err
		}
		rec.Guarantees, err = t.repo.ListGuaranteesByLoan(ctx, loanID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}
