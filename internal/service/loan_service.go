package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/aminofabian/ichama-sub002/internal/engine"
	"github.com/aminofabian/ichama-sub002/pkg/api"
	"github.com/aminofabian/ichama-sub002/pkg/api/apiconnect"
)

// LoanService implements the LoanService Connect handler.
type LoanService struct {
	engine *engine.Engine
}

var _ apiconnect.LoanServiceHandler = (*LoanService)(nil)

// NewLoanService creates a new LoanService.
func NewLoanService(e *engine.Engine) *LoanService {
	return &LoanService{engine: e}
}

func loanResponse(rec *engine.LoanRecord) *connect.Response[api.LoanResponse] {
	return connect.NewResponse(&api.LoanResponse{Loan: toLoan(rec.Loan, rec.Guarantees)})
}

// RequestLoan creates a pending loan for the caller.
func (s *LoanService) RequestLoan(
	ctx context.Context,
	req *connect.Request[api.RequestLoanRequest],
) (*connect.Response[api.LoanResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("RequestLoan request received",
		"chama_id", req.Msg.ChamaId,
		"amount", req.Msg.Amount,
		"guarantor_count", len(req.Msg.Guarantors),
	)

	pledges := make([]engine.Pledge, 0, len(req.Msg.Guarantors))
	for _, g := range req.Msg.Guarantors {
		if g == nil {
			continue
		}
		pledges = append(pledges, engine.Pledge{GuarantorID: g.GuarantorId, Amount: g.Amount})
	}

	rec, err := s.engine.Loans.RequestLoan(ctx, actor, req.Msg.ChamaId, req.Msg.Amount, pledges)
	if err != nil {
		return nil, fail("RequestLoan", err)
	}

	slog.Info("RequestLoan successful", "loan_id", rec.Loan.ID)
	return loanResponse(rec), nil
}

func (s *LoanService) GetLoan(
	ctx context.Context,
	req *connect.Request[api.LoanRequest],
) (*connect.Response[api.LoanResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := s.engine.Loans.GetLoan(ctx, actor, req.Msg.LoanId)
	if err != nil {
		return nil, fail("GetLoan", err)
	}
	return loanResponse(rec), nil
}

func (s *LoanService) AddGuarantor(
	ctx context.Context,
	req *connect.Request[api.GuarantorRequest],
) (*connect.Response[api.LoanResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("AddGuarantor request received", "loan_id", req.Msg.LoanId, "guarantor_id", req.Msg.GuarantorId)

	pledge := engine.Pledge{GuarantorID: req.Msg.GuarantorId, Amount: req.Msg.Amount}
	if _, err := s.engine.Loans.AddGuarantor(ctx, actor, req.Msg.LoanId, pledge); err != nil {
		return nil, fail("AddGuarantor", err)
	}
	rec, err := s.engine.Loans.GetLoan(ctx, actor, req.Msg.LoanId)
	if err != nil {
		return nil, fail("AddGuarantor", err)
	}

	slog.Info("AddGuarantor successful", "loan_id", rec.Loan.ID)
	return loanResponse(rec), nil
}

func (s *LoanService) RemoveGuarantor(
	ctx context.Context,
	req *connect.Request[api.GuarantorRequest],
) (*connect.Response[api.LoanResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("RemoveGuarantor request received", "loan_id", req.Msg.LoanId, "guarantor_id", req.Msg.GuarantorId)

	if err := s.engine.Loans.RemoveGuarantor(ctx, actor, req.Msg.LoanId, req.Msg.GuarantorId); err != nil {
		return nil, fail("RemoveGuarantor", err)
	}
	rec, err := s.engine.Loans.GetLoan(ctx, actor, req.Msg.LoanId)
	if err != nil {
		return nil, fail("RemoveGuarantor", err)
	}

	slog.Info("RemoveGuarantor successful", "loan_id", rec.Loan.ID)
	return loanResponse(rec), nil
}

// ApproveLoan approves and disburses a pending loan.
func (s *LoanService) ApproveLoan(
	ctx context.Context,
	req *connect.Request[api.LoanRequest],
) (*connect.Response[api.LoanResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ApproveLoan request received", "loan_id", req.Msg.LoanId, "admin_id", actor)

	if _, err := s.engine.Loans.ApproveLoan(ctx, actor, req.Msg.LoanId); err != nil {
		return nil, fail("ApproveLoan", err)
	}
	rec, err := s.engine.Loans.GetLoan(ctx, actor, req.Msg.LoanId)
	if err != nil {
		return nil, fail("ApproveLoan", err)
	}

	slog.Info("ApproveLoan successful", "loan_id", rec.Loan.ID, "amount", rec.Loan.Amount)
	return loanResponse(rec), nil
}

func (s *LoanService) RejectLoan(
	ctx context.Context,
	req *connect.Request[api.LoanRequest],
) (*connect.Response[api.LoanResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("RejectLoan request received", "loan_id", req.Msg.LoanId)

	if _, err := s.engine.Loans.RejectLoan(ctx, actor, req.Msg.LoanId); err != nil {
		return nil, fail("RejectLoan", err)
	}
	rec, err := s.engine.Loans.GetLoan(ctx, actor, req.Msg.LoanId)
	if err != nil {
		return nil, fail("RejectLoan", err)
	}
	return loanResponse(rec), nil
}

func (s *LoanService) RecordRepayment(
	ctx context.Context,
	req *connect.Request[api.RepaymentRequest],
) (*connect.Response[api.LoanResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("RecordRepayment request received", "loan_id", req.Msg.LoanId, "amount", req.Msg.Amount)

	if _, err := s.engine.Loans.RecordRepayment(ctx, actor, req.Msg.LoanId, req.Msg.Amount); err != nil {
		return nil, fail("RecordRepayment", err)
	}
	rec, err := s.engine.Loans.GetLoan(ctx, actor, req.Msg.LoanId)
	if err != nil {
		return nil, fail("RecordRepayment", err)
	}

	slog.Info("RecordRepayment successful", "loan_id", rec.Loan.ID, "remaining", rec.Loan.Remaining())
	return loanResponse(rec), nil
}

// MarkDefaulted defaults an approved loan and seizes guarantor savings.
func (s *LoanService) MarkDefaulted(
	ctx context.Context,
	req *connect.Request[api.LoanRequest],
) (*connect.Response[api.LoanResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("MarkDefaulted request received", "loan_id", req.Msg.LoanId)

	rec, err := s.engine.Loans.MarkDefaulted(ctx, actor, req.Msg.LoanId)
	if err != nil {
		return nil, fail("MarkDefaulted", err)
	}

	slog.Info("MarkDefaulted successful", "loan_id", rec.Loan.ID, "recovered", rec.Loan.AmountRecovered)
	return loanResponse(rec), nil
}

// CheckCapacity reports how much more a member can guarantee.
func (s *LoanService) CheckCapacity(
	ctx context.Context,
	req *connect.Request[api.CheckCapacityRequest],
) (*connect.Response[api.CheckCapacityResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	userID := req.Msg.UserId
	if userID == "" {
		userID = actor
	}

	c, err := s.engine.Loans.CheckCapacity(ctx, actor, userID)
	if err != nil {
		return nil, fail("CheckCapacity", err)
	}
	return connect.NewResponse(&api.CheckCapacityResponse{
		Savings:   c.Savings,
		Exposure:  c.Exposure,
		Available: c.Available,
	}), nil
}
