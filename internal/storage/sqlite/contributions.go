package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aminofabian/ichama-sub002/internal/models"
)

const contributionColumns = `id, cycle_id, cycle_member_id, user_id, period_number, amount_due, amount_paid,
	due_date, paid_at, confirmed_by, confirmed_at, status`

// CreateContribution persists a new period obligation.
func (r *repo) CreateContribution(ctx context.Context, c *models.Contribution) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO contributions (`+contributionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.CycleID, c.CycleMemberID, c.UserID, c.PeriodNumber, c.AmountDue, c.AmountPaid,
		formatTime(c.DueDate), nullTime(c.PaidAt), nullString(c.ConfirmedBy), nullTime(c.ConfirmedAt), string(c.Status),
	)
	if err != nil {
		return wrapInsertErr("contribution", err)
	}
	return nil
}

// GetContribution retrieves a contribution by ID.
func (r *repo) GetContribution(ctx context.Context, contributionID string) (*models.Contribution, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+contributionColumns+` FROM contributions WHERE id = ?`, contributionID)
	c, err := scanContribution(row)
	if err != nil {
		return nil, notFound(err, "contribution", contributionID)
	}
	return c, nil
}

// UpdateContribution writes the mutable contribution fields.
// A confirmed contribution is immutable, so the update matches only rows not
// yet confirmed.
func (r *repo) UpdateContribution(ctx context.Context, c *models.Contribution) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE contributions SET amount_paid = ?, paid_at = ?, confirmed_by = ?, confirmed_at = ?, status = ?
		 WHERE id = ? AND status != 'confirmed'`,
		c.AmountPaid, nullTime(c.PaidAt), nullString(c.ConfirmedBy), nullTime(c.ConfirmedAt), string(c.Status), c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update contribution: %w", err)
	}
	return expectOne(res, "unconfirmed contribution", c.ID)
}

// ListContributionsByPeriod retrieves one period's contributions in rotation order.
func (r *repo) ListContributionsByPeriod(ctx context.Context, cycleID string, period int) ([]*models.Contribution, error) {
	return r.queryContributions(ctx,
		`SELECT c.id, c.cycle_id, c.cycle_member_id, c.user_id, c.period_number, c.amount_due, c.amount_paid,
		        c.due_date, c.paid_at, c.confirmed_by, c.confirmed_at, c.status
		 FROM contributions c JOIN cycle_members m ON m.id = c.cycle_member_id
		 WHERE c.cycle_id = ? AND c.period_number = ? ORDER BY m.ordinal`,
		cycleID, period,
	)
}

// ListOverdueContributions retrieves unsettled contributions due before asOf.
func (r *repo) ListOverdueContributions(ctx context.Context, cycleID string, asOf time.Time) ([]*models.Contribution, error) {
	return r.queryContributions(ctx,
		`SELECT `+contributionColumns+` FROM contributions
		 WHERE cycle_id = ? AND due_date < ? AND status IN ('pending', 'partial', 'late')
		 ORDER BY period_number, due_date`,
		cycleID, formatTime(asOf),
	)
}

func (r *repo) queryContributions(ctx context.Context, query string, args ...any) ([]*models.Contribution, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	defer rows.Close()

	var out []*models.Contribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contributions: %w", err)
	}
	return out, nil
}

func scanContribution(s scanner) (*models.Contribution, error) {
	c := &models.Contribution{}
	var dueDate, status string
	var paidAt, confirmedBy, confirmedAt sql.NullString

	if err := s.Scan(&c.ID, &c.CycleID, &c.CycleMemberID, &c.UserID, &c.PeriodNumber, &c.AmountDue, &c.AmountPaid,
		&dueDate, &paidAt, &confirmedBy, &confirmedAt, &status); err != nil {
		return nil, err
	}

	c.Status = models.ContributionStatus(status)
	if !c.Status.Valid() {
		return nil, fmt.Errorf("contribution %s has unknown status %q", c.ID, status)
	}
	if confirmedBy.Valid {
		c.ConfirmedBy = confirmedBy.String
	}

	var err error
	if c.DueDate, err = parseTime(dueDate); err != nil {
		return nil, err
	}
	if c.PaidAt, err = parseNullTime(paidAt); err != nil {
		return nil, err
	}
	if c.ConfirmedAt, err = parseNullTime(confirmedAt); err != nil {
		return nil, err
	}
	return c, nil
}
