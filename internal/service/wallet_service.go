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

// WalletService implements the WalletService Connect handler. Balances are
// derived from the ledger on every call.
type WalletService struct {
	engine *engine.Engine
}

var _ apiconnect.WalletServiceHandler = (*WalletService)(nil)

// NewWalletService creates a new WalletService.
func NewWalletService(e *engine.Engine) *WalletService {
	return &WalletService{engine: e}
}

// subject returns the user a request is about, defaulting to the caller.
func subject(ctx context.Context, userID string) (actor, target string, err error) {
	actor, err = caller(ctx)
	if err != nil {
		return "", "", err
	}
	if userID == "" {
		userID = actor
	}
	return actor, userID, nil
}

func (s *WalletService) GetWalletBalance(
	ctx context.Context,
	req *connect.Request[api.BalanceRequest],
) (*connect.Response[api.BalanceResponse], error) {
	actor, userID, err := subject(ctx, req.Msg.UserId)
	if err != nil {
		return nil, err
	}

	balance, err := s.engine.WalletBalance(ctx, actor, userID)
	if err != nil {
		return nil, fail("GetWalletBalance", err)
	}
	return connect.NewResponse(&api.BalanceResponse{Balance: balance}), nil
}

func (s *WalletService) GetSavingsBalance(
	ctx context.Context,
	req *connect.Request[api.BalanceRequest],
) (*connect.Response[api.BalanceResponse], error) {
	actor, userID, err := subject(ctx, req.Msg.UserId)
	if err != nil {
		return nil, err
	}

	balance, err := s.engine.SavingsBalance(ctx, actor, userID)
	if err != nil {
		return nil, fail("GetSavingsBalance", err)
	}
	return connect.NewResponse(&api.BalanceResponse{Balance: balance}), nil
}

func (s *WalletService) GetPoolBalance(
	ctx context.Context,
	req *connect.Request[api.PoolBalanceRequest],
) (*connect.Response[api.BalanceResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	balance, err := s.engine.PoolBalance(ctx, actor, req.Msg.CycleId)
	if err != nil {
		return nil, fail("GetPoolBalance", err)
	}
	return connect.NewResponse(&api.BalanceResponse{Balance: balance}), nil
}

// ListTransactions returns a member account statement. The balance is the
// sum of the returned rows.
func (s *WalletService) ListTransactions(
	ctx context.Context,
	req *connect.Request[api.ListTransactionsRequest],
) (*connect.Response[api.ListTransactionsResponse], error) {
	actor, userID, err := subject(ctx, req.Msg.UserId)
	if err != nil {
		return nil, err
	}
	slog.Info("ListTransactions request received", "user_id", userID, "account", req.Msg.Account)

	rows, err := s.engine.ListTransactions(ctx, actor, userID, models.AccountKind(req.Msg.Account))
	if err != nil {
		return nil, fail("ListTransactions", err)
	}

	resp := &api.ListTransactionsResponse{Transactions: make([]*api.Transaction, len(rows))}
	for i, tx := range rows {
		resp.Transactions[i] = toTransaction(tx)
		resp.Balance += tx.Amount
	}
	return connect.NewResponse(resp), nil
}
