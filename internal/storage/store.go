// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/aminofabian/ichama-sub002/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert violates a uniqueness rule, such as
// a second contribution for the same member and period.
var ErrDuplicate = errors.New("duplicate record")

// Store defines the interface for engine storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the engine.
type Store interface {
	Repository

	// InTx runs fn inside a single database transaction. The transaction
	// commits if fn returns nil and rolls back otherwise, so status changes
	// and their ledger rows are written together or not at all.
	InTx(ctx context.Context, fn func(repo Repository) error) error

	// Close releases any resources held by the store.
	Close() error
}

// Repository is the set of record operations available both directly on a
// Store and inside a transaction.
type Repository interface {
	ChamaRepository
	CycleRepository
	ContributionRepository
	PayoutRepository
	DefaultRepository
	LoanRepository
	LedgerRepository
}

// ChamaRepository persists chamas and their rosters.
type ChamaRepository interface {
	// CreateChama persists a new chama. The ID and CreatedAt fields are
	// populated by the store when empty.
	CreateChama(ctx context.Context, chama *models.Chama) error
	GetChama(ctx context.Context, chamaID string) (*models.Chama, error)
	AddChamaMember(ctx context.Context, member *models.ChamaMember) error
	GetChamaMember(ctx context.Context, chamaID, userID string) (*models.ChamaMember, error)
	ListChamaMembers(ctx context.Context, chamaID string) ([]*models.ChamaMember, error)
	AddPenaltyPoints(ctx context.Context, chamaID, userID string, points int) error

	// IsAdminOver reports whether adminID is an admin of any chama that
	// userID belongs to.
	IsAdminOver(ctx context.Context, adminID, userID string) (bool, error)
}

// CycleRepository persists cycles and rotation positions.
type CycleRepository interface {
	CreateCycle(ctx context.Context, cycle *models.Cycle, members []*models.CycleMember) error
	GetCycle(ctx context.Context, cycleID string) (*models.Cycle, error)
	UpdateCycle(ctx context.Context, cycle *models.Cycle) error
	ListCyclesByStatus(ctx context.Context, status models.CycleStatus) ([]*models.Cycle, error)
	ListCyclesByChama(ctx context.Context, chamaID string) ([]*models.Cycle, error)
	ListCycleMembers(ctx context.Context, cycleID string) ([]*models.CycleMember, error)
}

// ContributionRepository persists period obligations.
type ContributionRepository interface {
	// CreateContribution returns ErrDuplicate if the member already has a
	// contribution for the period.
	CreateContribution(ctx context.Context, c *models.Contribution) error
	GetContribution(ctx context.Context, contributionID string) (*models.Contribution, error)
	UpdateContribution(ctx context.Context, c *models.Contribution) error
	ListContributionsByPeriod(ctx context.Context, cycleID string, period int) ([]*models.Contribution, error)

	// ListOverdueContributions returns contributions due before asOf whose
	// status is pending, partial or late.
	ListOverdueContributions(ctx context.Context, cycleID string, asOf time.Time) ([]*models.Contribution, error)
}

// PayoutRepository persists period payouts.
type PayoutRepository interface {
	CreatePayout(ctx context.Context, p *models.Payout) error
	GetPayout(ctx context.Context, payoutID string) (*models.Payout, error)
	GetPayoutByPeriod(ctx context.Context, cycleID string, period int) (*models.Payout, error)
	UpdatePayout(ctx context.Context, p *models.Payout) error
	ListPayoutsByCycle(ctx context.Context, cycleID string) ([]*models.Payout, error)
}

// DefaultRepository persists default records.
type DefaultRepository interface {
	// CreateDefault returns ErrDuplicate if the contribution already has one.
	CreateDefault(ctx context.Context, d *models.Default) error
	GetDefault(ctx context.Context, defaultID string) (*models.Default, error)
	GetDefaultByContribution(ctx context.Context, contributionID string) (*models.Default, error)
	UpdateDefault(ctx context.Context, d *models.Default) error
	ListDefaultsByCycle(ctx context.Context, cycleID string) ([]*models.Default, error)
}

// LoanRepository persists loans and their guarantees.
type LoanRepository interface {
	CreateLoan(ctx context.Context, loan *models.Loan) error
	GetLoan(ctx context.Context, loanID string) (*models.Loan, error)
	UpdateLoan(ctx context.Context, loan *models.Loan) error
	CreateGuarantee(ctx context.Context, g *models.Guarantee) error
	UpdateGuarantee(ctx context.Context, g *models.Guarantee) error
	DeleteGuarantee(ctx context.Context, guaranteeID string) error
	ListGuaranteesByLoan(ctx context.Context, loanID string) ([]*models.Guarantee, error)

	// ListActiveGuarantees returns every guarantee the user has given on a
	// pending or approved loan, paired with that loan.
	ListActiveGuarantees(ctx context.Context, guarantorID string) ([]GuaranteedLoan, error)
}

// GuaranteedLoan pairs a guarantee with the loan it backs.
type GuaranteedLoan struct {
	Guarantee *models.Guarantee
	Loan      *models.Loan
}

// LedgerRepository is the append-only transaction log.
type LedgerRepository interface {
	// AppendTransaction inserts a ledger row. Rows are never updated or deleted.
	AppendTransaction(ctx context.Context, tx *models.WalletTransaction) error

	// SumTransactions returns an account's balance: the signed sum of its
	// rows minus the sum of rows that name it as counter account.
	SumTransactions(ctx context.Context, owner string, account models.AccountKind) (int64, error)

	// ListTransactions returns the account's rows in posting order, with
	// counter-side rows reversed to the account's point of view.
	ListTransactions(ctx context.Context, owner string, account models.AccountKind) ([]*models.WalletTransaction, error)

	// CountTransactionsByReference returns how many rows an entity produced.
	CountTransactionsByReference(ctx context.Context, referenceID string, txType models.TransactionType) (int, error)
}
