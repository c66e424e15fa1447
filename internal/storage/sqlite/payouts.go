package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/aminofabian/ichama-sub002/internal/models"
)

const payoutColumns = `id, cycle_id, cycle_member_id, user_id, period_number, amount, scheduled_date,
	paid_at, confirmed_by_member, confirmed_at, status`

// CreatePayout persists a new period payout.
func (r *repo) CreatePayout(ctx context.Context, p *models.Payout) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO payouts (`+payoutColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.CycleID, p.CycleMemberID, p.UserID, p.PeriodNumber, p.Amount, formatTime(p.ScheduledDate),
		nullTime(p.PaidAt), boolInt(p.ConfirmedByMember), nullTime(p.ConfirmedAt), string(p.Status),
	)
	if err != nil {
		return wrapInsertErr("payout", err)
	}
	return nil
}

// GetPayout retrieves a payout by ID.
func (r *repo) GetPayout(ctx context.Context, payoutID string) (*models.Payout, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+payoutColumns+` FROM payouts WHERE id = ?`, payoutID)
	p, err := scanPayout(row)
	if err != nil {
		return nil, notFound(err, "payout", payoutID)
	}
	return p, nil
}

// GetPayoutByPeriod retrieves the payout of one period.
func (r *repo) GetPayoutByPeriod(ctx context.Context, cycleID string, period int) (*models.Payout, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE cycle_id = ? AND period_number = ?`,
		cycleID, period,
	)
	p, err := scanPayout(row)
	if err != nil {
		return nil, notFound(err, "payout for period", fmt.Sprint(period))
	}
	return p, nil
}

// UpdatePayout writes the mutable payout fields.
func (r *repo) UpdatePayout(ctx context.Context, p *models.Payout) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE payouts SET paid_at = ?, confirmed_by_member = ?, confirmed_at = ?, status = ? WHERE id = ?",
		nullTime(p.PaidAt), boolInt(p.ConfirmedByMember), nullTime(p.ConfirmedAt), string(p.Status), p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payout: %w", err)
	}
	return expectOne(res, "payout", p.ID)
}

// ListPayoutsByCycle retrieves a cycle's payouts in period order.
func (r *repo) ListPayoutsByCycle(ctx context.Context, cycleID string) ([]*models.Payout, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE cycle_id = ? ORDER BY period_number`,
		cycleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	defer rows.Close()

	var out []*models.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payout: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payouts: %w", err)
	}
	return out, nil
}

func scanPayout(s scanner) (*models.Payout, error) {
	p := &models.Payout{}
	var scheduled, status string
	var confirmedByMember int
	var paidAt, confirmedAt sql.NullString

	if err := s.Scan(&p.ID, &p.CycleID, &p.CycleMemberID, &p.UserID, &p.PeriodNumber, &p.Amount, &scheduled,
		&paidAt, &confirmedByMember, &confirmedAt, &status); err != nil {
		return nil, err
	}

	p.Status = models.PayoutStatus(status)
	if !p.Status.Valid() {
		return nil, fmt.Errorf("payout %s has unknown status %q", p.ID, status)
	}
	p.ConfirmedByMember = confirmedByMember == 1

	var err error
	if p.ScheduledDate, err = parseTime(scheduled); err != nil {
		return nil, err
	}
	if p.PaidAt, err = parseNullTime(paidAt); err != nil {
		return nil, err
	}
	if p.ConfirmedAt, err = parseNullTime(confirmedAt); err != nil {
		return nil, err
	}
	return p, nil
}
