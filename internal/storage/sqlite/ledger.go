package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aminofabian/ichama-sub002/internal/models"
)

// AppendTransaction inserts a ledger row.
func (r *repo) AppendTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO wallet_transactions
		 (id, owner, account, type, amount, counter_owner, counter_account, reference_id, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Owner, string(tx.Account), string(tx.Type), tx.Amount,
		nullString(tx.CounterOwner), nullString(string(tx.CounterAccount)),
		tx.ReferenceID, tx.Description, formatTime(tx.CreatedAt),
	)
	if err != nil {
		return wrapInsertErr("wallet transaction", err)
	}
	return nil
}

// SumTransactions returns an account's balance. Rows naming the account as
// counter account contribute the opposite amount.
func (r *repo) SumTransactions(ctx context.Context, owner string, account models.AccountKind) (int64, error) {
	var sum int64
	err := r.q.QueryRowContext(ctx,
		`SELECT
		   COALESCE(SUM(CASE WHEN owner = ? AND account = ? THEN amount ELSE 0 END), 0) -
		   COALESCE(SUM(CASE WHEN counter_owner = ? AND counter_account = ? THEN amount ELSE 0 END), 0)
		 FROM wallet_transactions
		 WHERE (owner = ? AND account = ?) OR (counter_owner = ? AND counter_account = ?)`,
		owner, string(account), owner, string(account),
		owner, string(account), owner, string(account),
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return sum, nil
}

// ListTransactions retrieves an account's rows in posting order. Rows where
// the account is the counter side are returned reversed, so the amounts of
// the result always sum to the balance.
func (r *repo) ListTransactions(ctx context.Context, owner string, account models.AccountKind) ([]*models.WalletTransaction, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, owner, account, type, amount, counter_owner, counter_account, reference_id, description, created_at
		 FROM wallet_transactions
		 WHERE (owner = ? AND account = ?) OR (counter_owner = ? AND counter_account = ?)
		 ORDER BY seq`,
		owner, string(account), owner, string(account),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []*models.WalletTransaction
	for rows.Next() {
		tx := &models.WalletTransaction{}
		var acct, txType, createdAt string
		var counterOwner, counterAccount sql.NullString
		if err := rows.Scan(&tx.ID, &tx.Owner, &acct, &txType, &tx.Amount, &counterOwner, &counterAccount,
			&tx.ReferenceID, &tx.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Account = models.AccountKind(acct)
		tx.Type = models.TransactionType(txType)
		tx.CounterOwner = counterOwner.String
		tx.CounterAccount = models.AccountKind(counterAccount.String)
		if tx.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if tx.Owner != owner || tx.Account != account {
			tx = tx.Reversed()
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return out, nil
}

// CountTransactionsByReference returns how many rows of a type an entity produced.
func (r *repo) CountTransactionsByReference(ctx context.Context, referenceID string, txType models.TransactionType) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM wallet_transactions WHERE reference_id = ? AND type = ?",
		referenceID, string(txType),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}
