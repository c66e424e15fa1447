package engine

import (
	"context"

	"github.com/aminofabian/ichama-sub002/internal/ledger"
	"github.com/aminofabian/ichama-sub002/internal/models"
)

// WalletBalance returns the sum of the user's wallet rows.
func (e *Engine) WalletBalance(ctx context.Context, actor, userID string) (int64, error) {
	return e.personalBalance(ctx, "wallet_balance", actor, ledger.Wallet(userID))
}

// SavingsBalance returns the sum of the user's savings rows.
func (e *Engine) SavingsBalance(ctx context.Context, actor, userID string) (int64, error) {
	return e.personalBalance(ctx, "savings_balance", actor, ledger.SavingsAccount(userID))
}

func (e *Engine) personalBalance(ctx context.Context, op, actor string, a ledger.Account) (int64, error) {
	var balance int64
	err := e.view(ctx, op, func(t *txn) error {
		if err := t.requireAccountHolder(ctx, a.Owner, actor); err != nil {
			return err
		}
		var err error
		balance, err = t.ledger.Balance(ctx, a)
		return err
	})
	return balance, err
}

// PoolBalance returns what a cycle's pool currently holds.
func (e *Engine) PoolBalance(ctx context.Context, actor, cycleID string) (int64, error) {
	var balance int64
	err := e.view(ctx, "pool_balance", func(t *txn) error {
		cycle, err := t.cycle(ctx, cycleID)
		if err != nil {
			return err
		}
		if err := t.requireMember(ctx, cycle.ChamaID, actor); err != nil {
			return err
		}
		balance, err = t.ledger.PoolBalance(ctx, cycle)
		return err
	})
	return balance, err
}

// TreasuryBalance returns a chama treasury's balance to one of its members.
func (e *Engine) TreasuryBalance(ctx context.Context, actor, chamaID string) (int64, error) {
	var balance int64
	err := e.view(ctx, "treasury_balance", func(t *txn) error {
		if err := t.requireMember(ctx, chamaID, actor); err != nil {
			return err
		}
		var err error
		balance, err = t.ledger.TreasuryBalance(ctx, chamaID)
		return err
	})
	return balance, err
}

// ListTransactions returns a user's wallet or savings rows in posting order.
func (e *Engine) ListTransactions(ctx context.Context, actor, userID string, account models.AccountKind) ([]*models.WalletTransaction, error) {
	var a ledger.Account
	switch account {
	case models.AccountWallet, "":
		a = ledger.Wallet(userID)
	case models.AccountSavings:
		a = ledger.SavingsAccount(userID)
	default:
		return nil, invalid("account %q is not a member account", account)
	}

	var out []*models.WalletTransaction
	err := e.view(ctx, "list_transactions", func(t *txn) error {
		if err := t.requireAccountHolder(ctx, userID, actor); err != nil {
			return err
		}
		var err error
		out, err = t.ledger.Statement(ctx, a)
		return err
	})
	return out, err
}
