package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/aminofabian/ichama-sub002/internal/engine"
	"github.com/aminofabian/ichama-sub002/internal/models"
	"github.com/aminofabian/ichama-sub002/pkg/api"
	"github.com/aminofabian/ichama-sub002/pkg/api/apiconnect"
)

// CycleService implements the CycleService Connect handler: cycles,
// contributions, payouts and defaults.
type CycleService struct {
	engine *engine.Engine
}

var _ apiconnect.CycleServiceHandler = (*CycleService)(nil)

// NewCycleService creates a new CycleService.
func NewCycleService(e *engine.Engine) *CycleService {
	return &CycleService{engine: e}
}

func parseRate(field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	rate, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, invalidArgument(fmt.Errorf("%s: %w", field, err))
	}
	return rate, nil
}

func (s *CycleService) CreateCycle(
	ctx context.Context,
	req *connect.Request[api.CreateCycleRequest],
) (*connect.Response[api.CycleResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	msg := req.Msg
	slog.Info("CreateCycle request received",
		"chama_id", msg.ChamaId,
		"contribution_amount", msg.ContributionAmount,
		"frequency", msg.Frequency,
	)

	feeRate, err := parseRate("service_fee_rate", msg.ServiceFeeRate)
	if err != nil {
		return nil, err
	}
	savingsRate, err := parseRate("savings_rate", msg.SavingsRate)
	if err != nil {
		return nil, err
	}

	cycle, err := s.engine.Cycles.CreateCycle(ctx, actor, msg.ChamaId, engine.Terms{
		ContributionAmount: msg.ContributionAmount,
		Frequency:          models.Frequency(msg.Frequency),
		StartDate:          fromUnix(msg.StartDate),
		Rotation:           msg.Rotation,
		PayoutAmount:       msg.PayoutAmount,
		SavingsAmount:      msg.SavingsAmount,
		ServiceFee:         msg.ServiceFee,
		ServiceFeeRate:     feeRate,
		SavingsRate:        savingsRate,
	})
	if err != nil {
		return nil, fail("CreateCycle", err)
	}

	slog.Info("CreateCycle successful", "cycle_id", cycle.ID, "payout_amount", cycle.PayoutAmount)
	return connect.NewResponse(&api.CycleResponse{Cycle: toCycle(cycle)}), nil
}

func (s *CycleService) StartCycle(
	ctx context.Context,
	req *connect.Request[api.CycleRequest],
) (*connect.Response[api.CycleResponse], error) {
	return s.transition(ctx, "StartCycle", req.Msg.CycleId, s.engine.Cycles.StartCycle)
}

func (s *CycleService) AdvancePeriod(
	ctx context.Context,
	req *connect.Request[api.CycleRequest],
) (*connect.Response[api.CycleResponse], error) {
	return s.transition(ctx, "AdvancePeriod", req.Msg.CycleId, s.engine.Cycles.AdvancePeriod)
}

func (s *CycleService) CancelCycle(
	ctx context.Context,
	req *connect.Request[api.CycleRequest],
) (*connect.Response[api.CycleResponse], error) {
	return s.transition(ctx, "CancelCycle", req.Msg.CycleId, s.engine.Cycles.CancelCycle)
}

func (s *CycleService) transition(
	ctx context.Context,
	method, cycleID string,
	op func(ctx context.Context, actor, cycleID string) (*models.Cycle, error),
) (*connect.Response[api.CycleResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info(method+" request received", "cycle_id", cycleID)

	cycle, err := op(ctx, actor, cycleID)
	if err != nil {
		return nil, fail(method, err)
	}

	slog.Info(method+" successful", "cycle_id", cycle.ID, "status", cycle.Status, "period", cycle.PeriodNumber)
	return connect.NewResponse(&api.CycleResponse{Cycle: toCycle(cycle)}), nil
}

// GetCycle returns a cycle with its payout schedule.
func (s *CycleService) GetCycle(
	ctx context.Context,
	req *connect.Request[api.CycleRequest],
) (*connect.Response[api.GetCycleResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetCycle request received", "cycle_id", req.Msg.CycleId)

	cycle, err := s.engine.Cycles.GetCycle(ctx, actor, req.Msg.CycleId)
	if err != nil {
		return nil, fail("GetCycle", err)
	}
	schedule, err := s.engine.Payouts.Schedule(ctx, actor, cycle.ID)
	if err != nil {
		return nil, fail("GetCycle", err)
	}

	return connect.NewResponse(&api.GetCycleResponse{
		Cycle:    toCycle(cycle),
		Schedule: toSchedule(schedule),
	}), nil
}

func (s *CycleService) RecordPayment(
	ctx context.Context,
	req *connect.Request[api.RecordPaymentRequest],
) (*connect.Response[api.ContributionResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("RecordPayment request received", "contribution_id", req.Msg.ContributionId, "amount", req.Msg.Amount)

	c, err := s.engine.Contributions.RecordPayment(ctx, actor, req.Msg.ContributionId, req.Msg.Amount, fromUnix(req.Msg.PaidAt))
	if err != nil {
		return nil, fail("RecordPayment", err)
	}

	slog.Info("RecordPayment successful", "contribution_id", c.ID, "status", c.Status, "amount_paid", c.AmountPaid)
	return connect.NewResponse(&api.ContributionResponse{Contribution: toContribution(c)}), nil
}

func (s *CycleService) ConfirmContribution(
	ctx context.Context,
	req *connect.Request[api.ContributionRequest],
) (*connect.Response[api.ContributionResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ConfirmContribution request received", "contribution_id", req.Msg.ContributionId, "admin_id", actor)

	c, err := s.engine.Contributions.ConfirmContribution(ctx, actor, req.Msg.ContributionId)
	if err != nil {
		return nil, fail("ConfirmContribution", err)
	}

	slog.Info("ConfirmContribution successful", "contribution_id", c.ID)
	return connect.NewResponse(&api.ContributionResponse{Contribution: toContribution(c)}), nil
}

func (s *CycleService) ListContributions(
	ctx context.Context,
	req *connect.Request[api.ListContributionsRequest],
) (*connect.Response[api.ListContributionsResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.engine.Contributions.ListContributions(ctx, actor, req.Msg.CycleId, req.Msg.PeriodNumber)
	if err != nil {
		return nil, fail("ListContributions", err)
	}
	return connect.NewResponse(&api.ListContributionsResponse{Contributions: toContributions(list)}), nil
}

func (s *CycleService) ReleasePayout(
	ctx context.Context,
	req *connect.Request[api.PayoutRequest],
) (*connect.Response[api.PayoutResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ReleasePayout request received", "payout_id", req.Msg.PayoutId)

	p, err := s.engine.Payouts.ReleasePayout(ctx, actor, req.Msg.PayoutId)
	if err != nil {
		return nil, fail("ReleasePayout", err)
	}

	slog.Info("ReleasePayout successful", "payout_id", p.ID, "user_id", p.UserID, "amount", p.Amount)
	return connect.NewResponse(&api.PayoutResponse{Payout: toPayout(p)}), nil
}

func (s *CycleService) ConfirmPayoutReceipt(
	ctx context.Context,
	req *connect.Request[api.PayoutRequest],
) (*connect.Response[api.PayoutResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ConfirmPayoutReceipt request received", "payout_id", req.Msg.PayoutId)

	p, err := s.engine.Payouts.ConfirmPayoutReceipt(ctx, actor, req.Msg.PayoutId)
	if err != nil {
		return nil, fail("ConfirmPayoutReceipt", err)
	}
	return connect.NewResponse(&api.PayoutResponse{Payout: toPayout(p)}), nil
}

func (s *CycleService) ListPayouts(
	ctx context.Context,
	req *connect.Request[api.CycleRequest],
) (*connect.Response[api.ListPayoutsResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.engine.Payouts.ListPayouts(ctx, actor, req.Msg.CycleId)
	if err != nil {
		return nil, fail("ListPayouts", err)
	}
	resp := &api.ListPayoutsResponse{Payouts: make([]*api.Payout, len(list))}
	for i, p := range list {
		resp.Payouts[i] = toPayout(p)
	}
	return connect.NewResponse(resp), nil
}

// SweepDefaults records defaults for the cycle's overdue contributions.
func (s *CycleService) SweepDefaults(
	ctx context.Context,
	req *connect.Request[api.SweepDefaultsRequest],
) (*connect.Response[api.DefaultsResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	asOf := fromUnix(req.Msg.AsOf)
	slog.Info("SweepDefaults request received", "cycle_id", req.Msg.CycleId, "as_of", req.Msg.AsOf)

	created, err := s.engine.Defaults.SweepDefaults(ctx, actor, req.Msg.CycleId, asOf)
	if err != nil {
		return nil, fail("SweepDefaults", err)
	}

	slog.Info("SweepDefaults successful", "cycle_id", req.Msg.CycleId, "defaults", len(created))
	return connect.NewResponse(&api.DefaultsResponse{Defaults: toDefaults(created)}), nil
}

func (s *CycleService) ResolveDefault(
	ctx context.Context,
	req *connect.Request[api.ResolveDefaultRequest],
) (*connect.Response[api.ResolveDefaultResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ResolveDefault request received", "default_id", req.Msg.DefaultId)

	d, err := s.engine.Defaults.ResolveDefault(ctx, actor, req.Msg.DefaultId)
	if err != nil {
		return nil, fail("ResolveDefault", err)
	}

	slog.Info("ResolveDefault successful", "default_id", d.ID)
	return connect.NewResponse(&api.ResolveDefaultResponse{Default: toDefault(d)}), nil
}

func (s *CycleService) ListDefaults(
	ctx context.Context,
	req *connect.Request[api.CycleRequest],
) (*connect.Response[api.DefaultsResponse], error) {
	actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.engine.Defaults.ListDefaults(ctx, actor, req.Msg.CycleId)
	if err != nil {
		return nil, fail("ListDefaults", err)
	}
	return connect.NewResponse(&api.DefaultsResponse{Defaults: toDefaults(list)}), nil
}
