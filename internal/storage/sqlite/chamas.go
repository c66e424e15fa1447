package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aminofabian/ichama-sub002/internal/models"
)

// CreateChama persists a new chama to the database.
func (r *repo) CreateChama(ctx context.Context, chama *models.Chama) error {
	// Generate ID if not set
	if chama.ID == "" {
		chama.ID = uuid.New().String()
	}
	if chama.CreatedAt.IsZero() {
		chama.CreatedAt = time.Now().UTC()
	}

	_, err := r.q.ExecContext(ctx,
		"INSERT INTO chamas (id, name, type, is_private, owner_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		chama.ID, chama.Name, chama.Type, boolInt(chama.Private), chama.OwnerID, formatTime(chama.CreatedAt),
	)
	if err != nil {
		return wrapInsertErr("chama", err)
	}
	return nil
}

// GetChama retrieves a chama by ID.
func (r *repo) GetChama(ctx context.Context, chamaID string) (*models.Chama, error) {
	chama := &models.Chama{}
	var private int
	var createdAt string

	err := r.q.QueryRowContext(ctx,
		"SELECT id, name, type, is_private, owner_id, created_at FROM chamas WHERE id = ?",
		chamaID,
	).Scan(&chama.ID, &chama.Name, &chama.Type, &private, &chama.OwnerID, &createdAt)
	if err != nil {
		return nil, notFound(err, "chama", chamaID)
	}

	chama.Private = private == 1
	if chama.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return chama, nil
}

// AddChamaMember inserts a membership row.
func (r *repo) AddChamaMember(ctx context.Context, member *models.ChamaMember) error {
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}

	_, err := r.q.ExecContext(ctx,
		"INSERT INTO chama_members (chama_id, user_id, role, penalty_points, joined_at) VALUES (?, ?, ?, ?, ?)",
		member.ChamaID, member.UserID, string(member.Role), member.PenaltyPoints, formatTime(member.JoinedAt),
	)
	if err != nil {
		return wrapInsertErr("chama member", err)
	}
	return nil
}

// GetChamaMember retrieves one membership.
func (r *repo) GetChamaMember(ctx context.Context, chamaID, userID string) (*models.ChamaMember, error) {
	m := &models.ChamaMember{}
	var role, joinedAt string

	err := r.q.QueryRowContext(ctx,
		"SELECT chama_id, user_id, role, penalty_points, joined_at FROM chama_members WHERE chama_id = ? AND user_id = ?",
		chamaID, userID,
	).Scan(&m.ChamaID, &m.UserID, &role, &m.PenaltyPoints, &joinedAt)
	if err != nil {
		return nil, notFound(err, "chama member", userID)
	}

	m.Role = models.Role(role)
	if m.JoinedAt, err = parseTime(joinedAt); err != nil {
		return nil, err
	}
	return m, nil
}

// ListChamaMembers retrieves a chama's roster in join order.
func (r *repo) ListChamaMembers(ctx context.Context, chamaID string) ([]*models.ChamaMember, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT chama_id, user_id, role, penalty_points, joined_at FROM chama_members WHERE chama_id = ? ORDER BY joined_at, user_id",
		chamaID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chama members: %w", err)
	}
	defer rows.Close()

	var members []*models.ChamaMember
	for rows.Next() {
		m := &models.ChamaMember{}
		var role, joinedAt string
		if err := rows.Scan(&m.ChamaID, &m.UserID, &role, &m.PenaltyPoints, &joinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chama member: %w", err)
		}
		m.Role = models.Role(role)
		if m.JoinedAt, err = parseTime(joinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chama members: %w", err)
	}

	return members, nil
}

// AddPenaltyPoints increments a member's penalty points.
func (r *repo) AddPenaltyPoints(ctx context.Context, chamaID, userID string, points int) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE chama_members SET penalty_points = penalty_points + ? WHERE chama_id = ? AND user_id = ?",
		points, chamaID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to add penalty points: %w", err)
	}
	return expectOne(res, "chama member", userID)
}

// IsAdminOver reports whether adminID administers any chama userID belongs to.
func (r *repo) IsAdminOver(ctx context.Context, adminID, userID string) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chama_members a
		 JOIN chama_members u ON u.chama_id = a.chama_id
		 WHERE a.user_id = ? AND a.role = ? AND u.user_id = ?`,
		adminID, string(models.RoleAdmin), userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check admin scope: %w", err)
	}
	return n > 0, nil
}
