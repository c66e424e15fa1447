package ledger

import (
	"context"
	"fmt"

	"github.com/aminofabian/ichama-sub002/internal/models"
)

// Savings is a user's savings account view over the ledger.
type Savings struct {
	l       *Ledger
	account Account
}

// Savings returns the savings account of the given user.
func (l *Ledger) Savings(userID string) *Savings {
	return &Savings{l: l, account: SavingsAccount(userID)}
}

// Balance returns the running sum of deposits minus seizures.
func (s *Savings) Balance(ctx context.Context) (int64, error) {
	return s.l.Balance(ctx, s.account)
}

// Deposit credits the savings split of a contribution.
func (s *Savings) Deposit(ctx context.Context, amount int64, ref string) error {
	return s.l.Credit(ctx, s.account, models.TxSavingsDeposit, amount, ref, "contribution savings split")
}

// Seize moves savings into to, covering a defaulted loan the user guaranteed.
// It fails rather than drive the balance below zero.
func (s *Savings) Seize(ctx context.Context, to Account, amount int64, ref string) error {
	balance, err := s.Balance(ctx)
	if err != nil {
		return err
	}
	if amount > balance {
		return fmt.Errorf("%w: seize %d from balance %d", ErrInsufficientSavings, amount, balance)
	}
	return s.l.Transfer(ctx, s.account, to, models.TxGuaranteeSeizure, amount, ref, "guarantee seizure")
}
