package engine

import (
	"context"
	"strings"

	"github.com/aminofabian/ichama-sub002/internal/models"
)

// CreateChama creates a chama owned by ownerID, who becomes its first admin.
func (e *Engine) CreateChama(ctx context.Context, ownerID, name, chamaType string, private bool) (*models.Chama, error) {
	name = strings.TrimSpace(name)
	if ownerID == "" || ownerID == SchedulerActor {
		return nil, ErrUnauthorized
	}
	if name == "" {
		return nil, invalid("chama name is required")
	}

	chama := &models.Chama{Name: name, Type: chamaType, Private: private, OwnerID: ownerID}
	err := e.commit(ctx, "create_chama", func(t *txn) error {
		chama.CreatedAt = t.now
		if err := t.repo.CreateChama(ctx, chama); err != nil {
			return err
		}
		return t.repo.AddChamaMember(ctx, &models.ChamaMember{
			ChamaID: chama.ID, UserID: ownerID, Role: models.RoleAdmin, JoinedAt: t.now,
		})
	})
	if err != nil {
		return nil, err
	}
	return chama, nil
}

// AddMember adds userID to the chama. Only admins may add members.
func (e *Engine) AddMember(ctx context.Context, actor, chamaID, userID string, role models.Role) (*models.ChamaMember, error) {
	if role == "" {
		role = models.RoleMember
	}
	if !role.Valid() {
		return nil, invalid("unknown role %q", role)
	}
	if userID == "" || userID == SchedulerActor {
		return nil, invalid("user id is required")
	}

	unlock := e.locks.Lock(chamaKey(chamaID))
	defer unlock()

	member := &models.ChamaMember{ChamaID: chamaID, UserID: userID, Role: role}
	err := e.commit(ctx, "add_member", func(t *txn) error {
		if _, err := t.repo.GetChama(ctx, chamaID); err != nil {
			return err
		}
		if err := t.requireAdmin(ctx, chamaID, actor); err != nil {
			return err
		}
		member.JoinedAt = t.now
		return t.repo.AddChamaMember(ctx, member)
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// GetChama returns a chama to one of its members.
func (e *Engine) GetChama(ctx context.Context, actor, chamaID string) (*models.Chama, error) {
	var chama *models.Chama
	err := e.view(ctx, "get_chama", func(t *txn) error {
		var err error
		if chama, err = t.repo.GetChama(ctx, chamaID); err != nil {
			return err
		}
		return t.requireMember(ctx, chamaID, actor)
	})
	return chama, err
}

// ListMembers returns the chama roster, including each member's penalty
// points, to one of its members.
func (e *Engine) ListMembers(ctx context.Context, actor, chamaID string) ([]*models.ChamaMember, error) {
	var members []*models.ChamaMember
	err := e.view(ctx, "list_members", func(t *txn) error {
		if err := t.requireMember(ctx, chamaID, actor); err != nil {
			return err
		}
		var err error
		members, err = t.repo.ListChamaMembers(ctx, chamaID)
		return err
	})
	return members, err
}
