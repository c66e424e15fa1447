// Package ledger implements the wallet ledger and savings accounts on top of
// the append-only transaction log. Balances are always computed from the
// log and never stored.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aminofabian/ichama-sub002/internal/models"
	"github.com/aminofabian/ichama-sub002/internal/storage"
)

var (
	// ErrInvalidEntry is returned for a malformed ledger row.
	ErrInvalidEntry = errors.New("invalid ledger entry")
	// ErrInsufficientSavings is returned when a savings debit exceeds the balance.
	ErrInsufficientSavings = errors.New("insufficient savings balance")
)

// Account names one balance in the ledger.
type Account struct {
	Owner string
	Kind  models.AccountKind
}

// Wallet returns a user's wallet account.
func Wallet(userID string) Account { return Account{Owner: userID, Kind: models.AccountWallet} }

// SavingsAccount returns a user's savings account.
func SavingsAccount(userID string) Account { return Account{Owner: userID, Kind: models.AccountSavings} }

// Pool returns a cycle's payout pool.
func Pool(cycle *models.Cycle) Account {
	return Account{Owner: cycle.PoolAccount(), Kind: models.AccountPool}
}

// Treasury returns a chama's treasury.
func Treasury(chamaID string) Account { return Account{Owner: chamaID, Kind: models.AccountTreasury} }

// personal reports whether the account belongs to a user.
func (a Account) personal() bool {
	return a.Kind == models.AccountWallet || a.Kind == models.AccountSavings
}

func (a Account) String() string {
	return string(a.Kind) + ":" + a.Owner
}

// Ledger posts and reads ledger rows through a repository. Bind a Ledger to a
// transactional repository so postings commit with the status change that
// caused them.
type Ledger struct {
	repo   storage.LedgerRepository
	now    func() time.Time
	posted []*models.WalletTransaction
}

// New creates a Ledger reading and writing through repo.
func New(repo storage.LedgerRepository, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{repo: repo, now: now}
}

// Bind returns a fresh Ledger that writes through repo, typically a
// transaction. Its Posted list starts empty.
func (l *Ledger) Bind(repo storage.LedgerRepository) *Ledger {
	return &Ledger{repo: repo, now: l.now}
}

// Posted returns the rows this Ledger has appended.
func (l *Ledger) Posted() []*models.WalletTransaction {
	return l.posted
}

// Post validates and appends one row.
func (l *Ledger) Post(ctx context.Context, tx *models.WalletTransaction) error {
	switch {
	case tx.Owner == "":
		return fmt.Errorf("%w: owner is required", ErrInvalidEntry)
	case !tx.Account.Valid():
		return fmt.Errorf("%w: unknown account %q", ErrInvalidEntry, tx.Account)
	case !tx.Type.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEntry, tx.Type)
	case tx.Amount == 0:
		return fmt.Errorf("%w: amount must be non-zero", ErrInvalidEntry)
	case tx.ReferenceID == "":
		return fmt.Errorf("%w: reference is required", ErrInvalidEntry)
	case tx.HasCounter() && !tx.CounterAccount.Valid():
		return fmt.Errorf("%w: unknown counter account %q", ErrInvalidEntry, tx.CounterAccount)
	case tx.HasCounter() && tx.CounterOwner == tx.Owner && tx.CounterAccount == tx.Account:
		return fmt.Errorf("%w: transfer to the same account", ErrInvalidEntry)
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = l.now().UTC()
	}

	if err := l.repo.AppendTransaction(ctx, tx); err != nil {
		return fmt.Errorf("failed to post %s: %w", tx.Type, err)
	}
	l.posted = append(l.posted, tx)
	return nil
}

// Credit records money entering an account from outside the ledger.
func (l *Ledger) Credit(ctx context.Context, to Account, txType models.TransactionType, amount int64, ref, desc string) error {
	if amount <= 0 {
		return fmt.Errorf("%w: credit must be positive", ErrInvalidEntry)
	}
	return l.Post(ctx, &models.WalletTransaction{
		Owner: to.Owner, Account: to.Kind, Type: txType, Amount: amount, ReferenceID: ref, Description: desc,
	})
}

// Debit records money leaving an account to outside the ledger.
func (l *Ledger) Debit(ctx context.Context, from Account, txType models.TransactionType, amount int64, ref, desc string) error {
	if amount <= 0 {
		return fmt.Errorf("%w: debit must be positive", ErrInvalidEntry)
	}
	return l.Post(ctx, &models.WalletTransaction{
		Owner: from.Owner, Account: from.Kind, Type: txType, Amount: -amount, ReferenceID: ref, Description: desc,
	})
}

// Transfer moves amount between two accounts as a single row. When a user
// account is involved the row is owned by it, so a user's own rows always
// add up to their balance.
func (l *Ledger) Transfer(ctx context.Context, from, to Account, txType models.TransactionType, amount int64, ref, desc string) error {
	if amount <= 0 {
		return fmt.Errorf("%w: transfer must be positive", ErrInvalidEntry)
	}
	tx := &models.WalletTransaction{
		Owner: to.Owner, Account: to.Kind, CounterOwner: from.Owner, CounterAccount: from.Kind,
		Type: txType, Amount: amount, ReferenceID: ref, Description: desc,
	}
	if from.personal() && !to.personal() {
		tx = tx.Reversed()
	}
	return l.Post(ctx, tx)
}

// Balance returns an account's balance.
func (l *Ledger) Balance(ctx context.Context, a Account) (int64, error) {
	return l.repo.SumTransactions(ctx, a.Owner, a.Kind)
}

// WalletBalance returns the user's wallet balance.
func (l *Ledger) WalletBalance(ctx context.Context, userID string) (int64, error) {
	return l.Balance(ctx, Wallet(userID))
}

// PoolBalance returns a cycle pool's balance.
func (l *Ledger) PoolBalance(ctx context.Context, cycle *models.Cycle) (int64, error) {
	return l.Balance(ctx, Pool(cycle))
}

// TreasuryBalance returns a chama treasury's balance.
func (l *Ledger) TreasuryBalance(ctx context.Context, chamaID string) (int64, error) {
	return l.Balance(ctx, Treasury(chamaID))
}

// Statement returns an account's rows in posting order.
func (l *Ledger) Statement(ctx context.Context, a Account) ([]*models.WalletTransaction, error) {
	return l.repo.ListTransactions(ctx, a.Owner, a.Kind)
}
