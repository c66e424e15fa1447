package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aminofabian/ichama-sub002/internal/models"
	"github.com/aminofabian/ichama-sub002/internal/storage"
)

const loanColumns = `id, chama_id, borrower_id, amount, amount_paid, amount_recovered, status,
	approved_by, approved_at, defaulted_at, created_at`

// CreateLoan persists a new loan.
func (r *repo) CreateLoan(ctx context.Context, loan *models.Loan) error {
	if loan.ID == "" {
		loan.ID = uuid.New().String()
	}
	if loan.CreatedAt.IsZero() {
		loan.CreatedAt = time.Now().UTC()
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO loans (`+loanColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loan.ID, loan.ChamaID, loan.BorrowerID, loan.Amount, loan.AmountPaid, loan.AmountRecovered,
		string(loan.Status), nullString(loan.ApprovedBy), nullTime(loan.ApprovedAt), nullTime(loan.DefaultedAt),
		formatTime(loan.CreatedAt),
	)
	if err != nil {
		return wrapInsertErr("loan", err)
	}
	return nil
}

// GetLoan retrieves a loan by ID.
func (r *repo) GetLoan(ctx context.Context, loanID string) (*models.Loan, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = ?`, loanID)
	loan, err := scanLoan(row)
	if err != nil {
		return nil, notFound(err, "loan", loanID)
	}
	return loan, nil
}

// UpdateLoan writes the mutable loan fields.
func (r *repo) UpdateLoan(ctx context.Context, loan *models.Loan) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE loans SET amount_paid = ?, amount_recovered = ?, status = ?, approved_by = ?, approved_at = ?, defaulted_at = ?
		 WHERE id = ?`,
		loan.AmountPaid, loan.AmountRecovered, string(loan.Status), nullString(loan.ApprovedBy),
		nullTime(loan.ApprovedAt), nullTime(loan.DefaultedAt), loan.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	return expectOne(res, "loan", loan.ID)
}

// CreateGuarantee persists a new guarantee.
func (r *repo) CreateGuarantee(ctx context.Context, g *models.Guarantee) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}

	_, err := r.q.ExecContext(ctx,
		"INSERT INTO guarantees (id, loan_id, guarantor_id, amount, seized, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		g.ID, g.LoanID, g.GuarantorID, g.Amount, g.Seized, formatTime(g.CreatedAt),
	)
	if err != nil {
		return wrapInsertErr("guarantee", err)
	}
	return nil
}

// UpdateGuarantee writes the pledged and seized amounts.
func (r *repo) UpdateGuarantee(ctx context.Context, g *models.Guarantee) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE guarantees SET amount = ?, seized = ? WHERE id = ?",
		g.Amount, g.Seized, g.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update guarantee: %w", err)
	}
	return expectOne(res, "guarantee", g.ID)
}

// DeleteGuarantee removes a guarantee by ID.
func (r *repo) DeleteGuarantee(ctx context.Context, guaranteeID string) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM guarantees WHERE id = ?", guaranteeID)
	if err != nil {
		return fmt.Errorf("failed to delete guarantee: %w", err)
	}
	return expectOne(res, "guarantee", guaranteeID)
}

// ListGuaranteesByLoan retrieves a loan's guarantees in creation order.
func (r *repo) ListGuaranteesByLoan(ctx context.Context, loanID string) ([]*models.Guarantee, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT id, loan_id, guarantor_id, amount, seized, created_at FROM guarantees WHERE loan_id = ? ORDER BY created_at, guarantor_id",
		loanID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list guarantees: %w", err)
	}
	defer rows.Close()

	var out []*models.Guarantee
	for rows.Next() {
		g, err := scanGuarantee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guarantee: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate guarantees: %w", err)
	}
	return out, nil
}

// ListActiveGuarantees retrieves the guarantor's pledges on pending or approved loans.
func (r *repo) ListActiveGuarantees(ctx context.Context, guarantorID string) ([]storage.GuaranteedLoan, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT g.id, g.loan_id, g.guarantor_id, g.amount, g.seized, g.created_at,
		        l.id, l.chama_id, l.borrower_id, l.amount, l.amount_paid, l.amount_recovered, l.status,
		        l.approved_by, l.approved_at, l.defaulted_at, l.created_at
		 FROM guarantees g JOIN loans l ON l.id = g.loan_id
		 WHERE g.guarantor_id = ? AND l.status IN ('pending', 'approved')
		 ORDER BY l.created_at`,
		guarantorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active guarantees: %w", err)
	}
	defer rows.Close()

	var out []storage.GuaranteedLoan
	for rows.Next() {
		g := &models.Guarantee{}
		var gCreated string
		loan, err := scanLoan(rows, &g.ID, &g.LoanID, &g.GuarantorID, &g.Amount, &g.Seized, &gCreated)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guaranteed loan: %w", err)
		}
		if g.CreatedAt, err = parseTime(gCreated); err != nil {
			return nil, err
		}
		out = append(out, storage.GuaranteedLoan{Guarantee: g, Loan: loan})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate guaranteed loans: %w", err)
	}
	return out, nil
}

// scanLoan scans the loan columns, preceded by any extra destinations.
func scanLoan(s scanner, prefix ...any) (*models.Loan, error) {
	l := &models.Loan{}
	var status, createdAt string
	var approvedBy, approvedAt, defaultedAt sql.NullString

	dest := append(prefix, &l.ID, &l.ChamaID, &l.BorrowerID, &l.Amount, &l.AmountPaid, &l.AmountRecovered, &status,
		&approvedBy, &approvedAt, &defaultedAt, &createdAt)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	l.Status = models.LoanStatus(status)
	if !l.Status.Valid() {
		return nil, fmt.Errorf("loan %s has unknown status %q", l.ID, status)
	}
	if approvedBy.Valid {
		l.ApprovedBy = approvedBy.String
	}

	var err error
	if l.ApprovedAt, err = parseNullTime(approvedAt); err != nil {
		return nil, err
	}
	if l.DefaultedAt, err = parseNullTime(defaultedAt); err != nil {
		return nil, err
	}
	if l.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return l, nil
}

func scanGuarantee(s scanner) (*models.Guarantee, error) {
	g := &models.Guarantee{}
	var createdAt string
	if err := s.Scan(&g.ID, &g.LoanID, &g.GuarantorID, &g.Amount, &g.Seized, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return g, nil
}
