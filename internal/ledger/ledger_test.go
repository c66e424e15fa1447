package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aminofabian/ichama-sub002/internal/models"
	"github.com/aminofabian/ichama-sub002/internal/storage/sqlite"
)

var postedAt = time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC)

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(store, func() time.Time { return postedAt })
}

func TestTransferOwnership(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	cycle := &models.Cycle{ID: "c-1"}
	pool := Pool(cycle)
	treasury := Treasury("ch-1")

	require.NoError(t, l.Credit(ctx, pool, models.TxContribution, 1746, "k-1", ""))
	require.NoError(t, l.Transfer(ctx, pool, Wallet("alice"), models.TxPayout, 873, "p-1", ""))
	require.NoError(t, l.Transfer(ctx, Wallet("alice"), treasury, models.TxPenalty, 100, "d-1", ""))

	posted := l.Posted()
	require.Len(t, posted, 3)
	for _, tx := range posted[1:] {
		require.Equal(t, "alice", tx.Owner, "user-side account owns the row")
		require.Equal(t, postedAt, tx.CreatedAt)
	}
	require.EqualValues(t, -100, posted[2].Amount)

	wallet, err := l.WalletBalance(ctx, "alice")
	require.NoError(t, err)
	require.EqualValues(t, 773, wallet)

	poolBalance, err := l.PoolBalance(ctx, cycle)
	require.NoError(t, err)
	require.EqualValues(t, 873, poolBalance)

	treasuryBalance, err := l.TreasuryBalance(ctx, "ch-1")
	require.NoError(t, err)
	require.EqualValues(t, 100, treasuryBalance)

	statement, err := l.Statement(ctx, pool)
	require.NoError(t, err)
	require.Len(t, statement, 2)
	require.EqualValues(t, -873, statement[1].Amount)
	require.Equal(t, "alice", statement[1].CounterOwner)
}

func TestPostRejectsMalformedRows(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	valid := func() *models.WalletTransaction {
		return &models.WalletTransaction{
			Owner: "alice", Account: models.AccountWallet, Type: models.TxPayout, Amount: 1, ReferenceID: "p-1",
		}
	}

	tests := []struct {
		name   string
		mutate func(tx *models.WalletTransaction)
	}{
		{"no owner", func(tx *models.WalletTransaction) { tx.Owner = "" }},
		{"bad account", func(tx *models.WalletTransaction) { tx.Account = "fees" }},
		{"bad type", func(tx *models.WalletTransaction) { tx.Type = "gift" }},
		{"zero amount", func(tx *models.WalletTransaction) { tx.Amount = 0 }},
		{"no reference", func(tx *models.WalletTransaction) { tx.ReferenceID = "" }},
		{"bad counter", func(tx *models.WalletTransaction) { tx.CounterOwner, tx.CounterAccount = "bob", "fees" }},
		{"self transfer", func(tx *models.WalletTransaction) {
			tx.CounterOwner, tx.CounterAccount = "alice", models.AccountWallet
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid()
			tt.mutate(tx)
			require.ErrorIs(t, l.Post(ctx, tx), ErrInvalidEntry)
		})
	}
	require.Empty(t, l.Posted())

	require.ErrorIs(t, l.Credit(ctx, Wallet("alice"), models.TxPayout, -5, "p-1", ""), ErrInvalidEntry)
	require.ErrorIs(t, l.Transfer(ctx, Wallet("alice"), Wallet("bob"), models.TxPayout, 0, "p-1", ""), ErrInvalidEntry)
}

func TestSavingsSeize(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	carol := l.Savings("carol")

	require.NoError(t, carol.Deposit(ctx, 97, "k-1"))
	require.NoError(t, carol.Deposit(ctx, 97, "k-2"))

	err := carol.Seize(ctx, Treasury("ch-1"), 200, "loan-1")
	require.ErrorIs(t, err, ErrInsufficientSavings)

	require.NoError(t, carol.Seize(ctx, Treasury("ch-1"), 150, "loan-1"))
	balance, err := carol.Balance(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 44, balance)

	treasury, err := l.TreasuryBalance(ctx, "ch-1")
	require.NoError(t, err)
	require.EqualValues(t, 150, treasury)
}

func TestBindStartsEmpty(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	require.NoError(t, l.Credit(ctx, Wallet("alice"), models.TxOverpaymentCredit, 50, "k-1", ""))

	bound := l.Bind(l.repo)
	require.Empty(t, bound.Posted())
	require.Len(t, l.Posted(), 1)

	balance, err := bound.WalletBalance(ctx, "alice")
	require.NoError(t, err)
	require.EqualValues(t, 50, balance)
}
