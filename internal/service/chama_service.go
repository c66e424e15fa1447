package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/aminofabian/ichama-sub002/internal/engine"
	"github.com/aminofabian/ichama-sub002/internal/models"
	"github.com/aminofabian/ichama-sub002/pkg/api"
	"github.com/aminofabian/ichama-sub002/pkg/api/apiconnect"
)

// ChamaService implements the ChamaService Connect handler.
type ChamaService struct {
	engine *engine.Engine
}

var _ apiconnect.ChamaServiceHandler = (*ChamaService)(nil)

// NewChamaService creates a new ChamaService.
func NewChamaService(e *engine.Engine) *ChamaService {
	return &ChamaService{engine: e}
}

// CreateChama creates a chama owned by the caller.
func (s *ChamaService) CreateChama(
	ctx context.Context,
	req *connect.Request[api.CreateChamaRequest],
) (*connect.Response[api.CreateChamaResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateChama request received", "name", req.Msg.Name, "owner_id", actor)

	chama, err := s.engine.CreateChama(ctx, actor, req.Msg.Name, req.Msg.Type, req.Msg.Private)
	if err != nil {
		return nil, fail("CreateChama", err)
	}

	slog.Info("CreateChama successful", "chama_id", chama.ID)
	return connect.NewResponse(&api.CreateChamaResponse{Chama: toChama(chama)}), nil
}

// AddMember adds a user to a chama. The role defaults to member.
func (s *ChamaService) AddMember(
	ctx context.Context,
	req *connect.Request[api.AddMemberRequest],
) (*connect.Response[api.AddMemberResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("AddMember request received", "chama_id", req.Msg.ChamaId, "user_id", req.Msg.UserId)

	role := models.Role(req.Msg.Role)
	if role == "" {
		role = models.RoleMember
	}
	member, err := s.engine.AddMember(ctx, actor, req.Msg.ChamaId, req.Msg.UserId, role)
	if err != nil {
		return nil, fail("AddMember", err)
	}

	slog.Info("AddMember successful", "chama_id", member.ChamaID, "user_id", member.UserID, "role", member.Role)
	return connect.NewResponse(&api.AddMemberResponse{Member: toMember(member)}), nil
}

// GetChama returns a chama and its roster.
func (s *ChamaService) GetChama(
	ctx context.Context,
	req *connect.Request[api.GetChamaRequest],
) (*connect.Response[api.GetChamaResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetChama request received", "chama_id", req.Msg.ChamaId)

	chama, err := s.engine.GetChama(ctx, actor, req.Msg.ChamaId)
	if err != nil {
		return nil, fail("GetChama", err)
	}
	members, err := s.engine.ListMembers(ctx, actor, chama.ID)
	if err != nil {
		return nil, fail("GetChama", err)
	}

	resp := &api.GetChamaResponse{Chama: toChama(chama)}
	for _, m := range members {
		resp.Members = append(resp.Members, toMember(m))
	}
	slog.Info("GetChama successful", "chama_id", chama.ID, "member_count", len(members))
	return connect.NewResponse(resp), nil
}
