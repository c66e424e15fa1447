package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aminofabian/ichama-sub002/internal/models"
)

const defaultColumns = `id, chama_id, cycle_id, user_id, contribution_id, period_number, shortfall,
	penalty_amount, penalty_points, resolved, resolved_by, resolved_at, created_at`

// CreateDefault persists a new default record.
func (r *repo) CreateDefault(ctx context.Context, d *models.Default) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO defaults (`+defaultColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ChamaID, d.CycleID, d.UserID, d.ContributionID, d.PeriodNumber, d.Shortfall,
		d.PenaltyAmount, d.PenaltyPoints, boolInt(d.Resolved), nullString(d.ResolvedBy), nullTime(d.ResolvedAt),
		formatTime(d.CreatedAt),
	)
	if err != nil {
		return wrapInsertErr("default", err)
	}
	return nil
}

// GetDefault retrieves a default by ID.
func (r *repo) GetDefault(ctx context.Context, defaultID string) (*models.Default, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+defaultColumns+` FROM defaults WHERE id = ?`, defaultID)
	d, err := scanDefault(row)
	if err != nil {
		return nil, notFound(err, "default", defaultID)
	}
	return d, nil
}

// GetDefaultByContribution retrieves the default raised for a contribution.
func (r *repo) GetDefaultByContribution(ctx context.Context, contributionID string) (*models.Default, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+defaultColumns+` FROM defaults WHERE contribution_id = ?`, contributionID)
	d, err := scanDefault(row)
	if err != nil {
		return nil, notFound(err, "default for contribution", contributionID)
	}
	return d, nil
}

// UpdateDefault writes the resolution fields. Penalties are never rewritten.
func (r *repo) UpdateDefault(ctx context.Context, d *models.Default) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE defaults SET resolved = ?, resolved_by = ?, resolved_at = ? WHERE id = ?",
		boolInt(d.Resolved), nullString(d.ResolvedBy), nullTime(d.ResolvedAt), d.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update default: %w", err)
	}
	return expectOne(res, "default", d.ID)
}

// ListDefaultsByCycle retrieves a cycle's defaults in creation order.
func (r *repo) ListDefaultsByCycle(ctx context.Context, cycleID string) ([]*models.Default, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+defaultColumns+` FROM defaults WHERE cycle_id = ? ORDER BY period_number, created_at`,
		cycleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list defaults: %w", err)
	}
	defer rows.Close()

	var out []*models.Default
	for rows.Next() {
		d, err := scanDefault(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan default: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate defaults: %w", err)
	}
	return out, nil
}

func scanDefault(s scanner) (*models.Default, error) {
	d := &models.Default{}
	var resolved int
	var resolvedBy, resolvedAt sql.NullString
	var createdAt string

	if err := s.Scan(&d.ID, &d.ChamaID, &d.CycleID, &d.UserID, &d.ContributionID, &d.PeriodNumber, &d.Shortfall,
		&d.PenaltyAmount, &d.PenaltyPoints, &resolved, &resolvedBy, &resolvedAt, &createdAt); err != nil {
		return nil, err
	}

	d.Resolved = resolved == 1
	if resolvedBy.Valid {
		d.ResolvedBy = resolvedBy.String
	}

	var err error
	if d.ResolvedAt, err = parseNullTime(resolvedAt); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return d, nil
}
