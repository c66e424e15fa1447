package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aminofabian/ichama-sub002/internal/models"
)

const cycleColumns = `id, chama_id, contribution_amount, payout_amount, savings_amount, service_fee,
	frequency, start_date, period_number, status, created_at, started_at, completed_at`

// CreateCycle persists a cycle together with its rotation positions.
func (r *repo) CreateCycle(ctx context.Context, cycle *models.Cycle, members []*models.CycleMember) error {
	if cycle.ID == "" {
		cycle.ID = uuid.New().String()
	}
	if cycle.CreatedAt.IsZero() {
		cycle.CreatedAt = time.Now().UTC()
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO cycles (`+cycleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cycle.ID, cycle.ChamaID, cycle.ContributionAmount, cycle.PayoutAmount, cycle.SavingsAmount, cycle.ServiceFee,
		string(cycle.Frequency), formatTime(cycle.StartDate), cycle.PeriodNumber, string(cycle.Status),
		formatTime(cycle.CreatedAt), nullTime(cycle.StartedAt), nullTime(cycle.CompletedAt),
	)
	if err != nil {
		return wrapInsertErr("cycle", err)
	}

	// Insert rotation positions
	for _, m := range members {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		m.CycleID = cycle.ID
		_, err = r.q.ExecContext(ctx,
			"INSERT INTO cycle_members (id, cycle_id, user_id, ordinal) VALUES (?, ?, ?, ?)",
			m.ID, m.CycleID, m.UserID, m.Ordinal,
		)
		if err != nil {
			return wrapInsertErr("cycle member", err)
		}
	}

	return nil
}

// GetCycle retrieves a cycle by ID.
func (r *repo) GetCycle(ctx context.Context, cycleID string) (*models.Cycle, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+cycleColumns+` FROM cycles WHERE id = ?`, cycleID)
	cycle, err := scanCycle(row)
	if err != nil {
		return nil, notFound(err, "cycle", cycleID)
	}
	return cycle, nil
}

// UpdateCycle writes the mutable cycle fields.
func (r *repo) UpdateCycle(ctx context.Context, cycle *models.Cycle) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE cycles SET period_number = ?, status = ?, started_at = ?, completed_at = ? WHERE id = ?",
		cycle.PeriodNumber, string(cycle.Status), nullTime(cycle.StartedAt), nullTime(cycle.CompletedAt), cycle.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update cycle: %w", err)
	}
	return expectOne(res, "cycle", cycle.ID)
}

// ListCyclesByStatus retrieves all cycles in the given status.
func (r *repo) ListCyclesByStatus(ctx context.Context, status models.CycleStatus) ([]*models.Cycle, error) {
	return r.queryCycles(ctx,
		`SELECT `+cycleColumns+` FROM cycles WHERE status = ? ORDER BY created_at`,
		string(status),
	)
}

// ListCyclesByChama retrieves a chama's cycles, oldest first.
func (r *repo) ListCyclesByChama(ctx context.Context, chamaID string) ([]*models.Cycle, error) {
	return r.queryCycles(ctx,
		`SELECT `+cycleColumns+` FROM cycles WHERE chama_id = ? ORDER BY created_at`,
		chamaID,
	)
}

func (r *repo) queryCycles(ctx context.Context, query string, args ...any) ([]*models.Cycle, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}
	defer rows.Close()

	var cycles []*models.Cycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		cycles = append(cycles, cycle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cycles: %w", err)
	}
	return cycles, nil
}

// ListCycleMembers retrieves a cycle's rotation in ordinal order.
func (r *repo) ListCycleMembers(ctx context.Context, cycleID string) ([]*models.CycleMember, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT id, cycle_id, user_id, ordinal FROM cycle_members WHERE cycle_id = ? ORDER BY ordinal",
		cycleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cycle members: %w", err)
	}
	defer rows.Close()

	var members []*models.CycleMember
	for rows.Next() {
		m := &models.CycleMember{}
		if err := rows.Scan(&m.ID, &m.CycleID, &m.UserID, &m.Ordinal); err != nil {
			return nil, fmt.Errorf("failed to scan cycle member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cycle members: %w", err)
	}
	return members, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCycle(s scanner) (*models.Cycle, error) {
	c := &models.Cycle{}
	var frequency, status, startDate, createdAt string
	var startedAt, completedAt sql.NullString

	if err := s.Scan(&c.ID, &c.ChamaID, &c.ContributionAmount, &c.PayoutAmount, &c.SavingsAmount, &c.ServiceFee,
		&frequency, &startDate, &c.PeriodNumber, &status, &createdAt, &startedAt, &completedAt); err != nil {
		return nil, err
	}

	c.Frequency = models.Frequency(frequency)
	c.Status = models.CycleStatus(status)
	if !c.Status.Valid() {
		return nil, fmt.Errorf("cycle %s has unknown status %q", c.ID, status)
	}

	var err error
	if c.StartDate, err = parseTime(startDate); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.StartedAt, err = parseNullTime(startedAt); err != nil {
		return nil, err
	}
	if c.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, err
	}
	return c, nil
}
