package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/aminofabian/ichama-sub002/pkg/api"
)

// CycleServiceName is the fully-qualified name of the CycleService.
const CycleServiceName = "chama.v1.CycleService"

// Procedure paths of the CycleService.
const (
	CycleServiceCreateCycleProcedure          = "/chama.v1.CycleService/CreateCycle"
	CycleServiceStartCycleProcedure           = "/chama.v1.CycleService/StartCycle"
	CycleServiceAdvancePeriodProcedure        = "/chama.v1.CycleService/AdvancePeriod"
	CycleServiceCancelCycleProcedure          = "/chama.v1.CycleService/CancelCycle"
	CycleServiceGetCycleProcedure             = "/chama.v1.CycleService/GetCycle"
	CycleServiceRecordPaymentProcedure        = "/chama.v1.CycleService/RecordPayment"
	CycleServiceConfirmContributionProcedure  = "/chama.v1.CycleService/ConfirmContribution"
	CycleServiceListContributionsProcedure    = "/chama.v1.CycleService/ListContributions"
	CycleServiceReleasePayoutProcedure        = "/chama.v1.CycleService/ReleasePayout"
	CycleServiceConfirmPayoutReceiptProcedure = "/chama.v1.CycleService/ConfirmPayoutReceipt"
	CycleServiceListPayoutsProcedure          = "/chama.v1.CycleService/ListPayouts"
	CycleServiceSweepDefaultsProcedure        = "/chama.v1.CycleService/SweepDefaults"
	CycleServiceResolveDefaultProcedure       = "/chama.v1.CycleService/ResolveDefault"
	CycleServiceListDefaultsProcedure         = "/chama.v1.CycleService/ListDefaults"
)

// CycleServiceHandler is implemented by the CycleService server.
type CycleServiceHandler interface {
	// CreateCycle creates a pending cycle.
	CreateCycle(context.Context, *connect.Request[api.CreateCycleRequest]) (*connect.Response[api.CycleResponse], error)
	// StartCycle activates a pending cycle.
	StartCycle(context.Context, *connect.Request[api.CycleRequest]) (*connect.Response[api.CycleResponse], error)
	// AdvancePeriod closes the current period and opens the next.
	AdvancePeriod(context.Context, *connect.Request[api.CycleRequest]) (*connect.Response[api.CycleResponse], error)
	// CancelCycle cancels a cycle.
	CancelCycle(context.Context, *connect.Request[api.CycleRequest]) (*connect.Response[api.CycleResponse], error)
	// GetCycle returns a cycle and its payout schedule.
	GetCycle(context.Context, *connect.Request[api.CycleRequest]) (*connect.Response[api.GetCycleResponse], error)
	// RecordPayment records a payment against a contribution.
	RecordPayment(context.Context, *connect.Request[api.RecordPaymentRequest]) (*connect.Response[api.ContributionResponse], error)
	// ConfirmContribution confirms a paid contribution.
	ConfirmContribution(context.Context, *connect.Request[api.ContributionRequest]) (*connect.Response[api.ContributionResponse], error)
	// ListContributions lists a period's contributions.
	ListContributions(context.Context, *connect.Request[api.ListContributionsRequest]) (*connect.Response[api.ListContributionsResponse], error)
	// ReleasePayout releases a payout from the pool.
	ReleasePayout(context.Context, *connect.Request[api.PayoutRequest]) (*connect.Response[api.PayoutResponse], error)
	// ConfirmPayoutReceipt acknowledges receipt of a payout.
	ConfirmPayoutReceipt(context.Context, *connect.Request[api.PayoutRequest]) (*connect.Response[api.PayoutResponse], error)
	// ListPayouts lists a cycle's payouts.
	ListPayouts(context.Context, *connect.Request[api.CycleRequest]) (*connect.Response[api.ListPayoutsResponse], error)
	// SweepDefaults records defaults for overdue contributions.
	SweepDefaults(context.Context, *connect.Request[api.SweepDefaultsRequest]) (*connect.Response[api.DefaultsResponse], error)
	// ResolveDefault resolves a default.
	ResolveDefault(context.Context, *connect.Request[api.ResolveDefaultRequest]) (*connect.Response[api.ResolveDefaultResponse], error)
	// ListDefaults lists a cycle's defaults.
	ListDefaults(context.Context, *connect.Request[api.CycleRequest]) (*connect.Response[api.DefaultsResponse], error)
}

// NewCycleServiceHandler builds an HTTP handler for svc. It returns the path to
// mount it on. Messages are JSON encoded.
func NewCycleServiceHandler(svc CycleServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(api.Codec{})}, opts...)
	routes := map[string]http.Handler{
		CycleServiceCreateCycleProcedure:          connect.NewUnaryHandler(CycleServiceCreateCycleProcedure, svc.CreateCycle, opts...),
		CycleServiceStartCycleProcedure:           connect.NewUnaryHandler(CycleServiceStartCycleProcedure, svc.StartCycle, opts...),
		CycleServiceAdvancePeriodProcedure:        connect.NewUnaryHandler(CycleServiceAdvancePeriodProcedure, svc.AdvancePeriod, opts...),
		CycleServiceCancelCycleProcedure:          connect.NewUnaryHandler(CycleServiceCancelCycleProcedure, svc.CancelCycle, opts...),
		CycleServiceGetCycleProcedure:             connect.NewUnaryHandler(CycleServiceGetCycleProcedure, svc.GetCycle, opts...),
		CycleServiceRecordPaymentProcedure:        connect.NewUnaryHandler(CycleServiceRecordPaymentProcedure, svc.RecordPayment, opts...),
		CycleServiceConfirmContributionProcedure:  connect.NewUnaryHandler(CycleServiceConfirmContributionProcedure, svc.ConfirmContribution, opts...),
		CycleServiceListContributionsProcedure:    connect.NewUnaryHandler(CycleServiceListContributionsProcedure, svc.ListContributions, opts...),
		CycleServiceReleasePayoutProcedure:        connect.NewUnaryHandler(CycleServiceReleasePayoutProcedure, svc.ReleasePayout, opts...),
		CycleServiceConfirmPayoutReceiptProcedure: connect.NewUnaryHandler(CycleServiceConfirmPayoutReceiptProcedure, svc.ConfirmPayoutReceipt, opts...),
		CycleServiceListPayoutsProcedure:          connect.NewUnaryHandler(CycleServiceListPayoutsProcedure, svc.ListPayouts, opts...),
		CycleServiceSweepDefaultsProcedure:        connect.NewUnaryHandler(CycleServiceSweepDefaultsProcedure, svc.SweepDefaults, opts...),
		CycleServiceResolveDefaultProcedure:       connect.NewUnaryHandler(CycleServiceResolveDefaultProcedure, svc.ResolveDefault, opts...),
		CycleServiceListDefaultsProcedure:         connect.NewUnaryHandler(CycleServiceListDefaultsProcedure, svc.ListDefaults, opts...),
	}
	return "/" + CycleServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := routes[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// CycleServiceClient calls the CycleService.
type CycleServiceClient struct {
	createCycle          *connect.Client[api.CreateCycleRequest, api.CycleResponse]
	startCycle           *connect.Client[api.CycleRequest, api.CycleResponse]
	advancePeriod        *connect.Client[api.CycleRequest, api.CycleResponse]
	cancelCycle          *connect.Client[api.CycleRequest, api.CycleResponse]
	getCycle             *connect.Client[api.CycleRequest, api.GetCycleResponse]
	recordPayment        *connect.Client[api.RecordPaymentRequest, api.ContributionResponse]
	confirmContribution  *connect.Client[api.ContributionRequest, api.ContributionResponse]
	listContributions    *connect.Client[api.ListContributionsRequest, api.ListContributionsResponse]
	releasePayout        *connect.Client[api.PayoutRequest, api.PayoutResponse]
	confirmPayoutReceipt *connect.Client[api.PayoutRequest, api.PayoutResponse]
	listPayouts          *connect.Client[api.CycleRequest, api.ListPayoutsResponse]
	sweepDefaults        *connect.Client[api.SweepDefaultsRequest, api.DefaultsResponse]
	resolveDefault       *connect.Client[api.ResolveDefaultRequest, api.ResolveDefaultResponse]
	listDefaults         *connect.Client[api.CycleRequest, api.DefaultsResponse]
}

// NewCycleServiceClient creates a client for the CycleService at baseURL.
func NewCycleServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *CycleServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(api.Codec{})}, opts...)
	return &CycleServiceClient{
		createCycle:          connect.NewClient[api.CreateCycleRequest, api.CycleResponse](httpClient, baseURL+CycleServiceCreateCycleProcedure, opts...),
		startCycle:           connect.NewClient[api.CycleRequest, api.CycleResponse](httpClient, baseURL+CycleServiceStartCycleProcedure, opts...),
		advancePeriod:        connect.NewClient[api.CycleRequest, api.CycleResponse](httpClient, baseURL+CycleServiceAdvancePeriodProcedure, opts...),
		cancelCycle:          connect.NewClient[api.CycleRequest, api.CycleResponse](httpClient, baseURL+CycleServiceCancelCycleProcedure, opts...),
		getCycle:             connect.NewClient[api.CycleRequest, api.GetCycleResponse](httpClient, baseURL+CycleServiceGetCycleProcedure, opts...),
		recordPayment:        connect.NewClient[api.RecordPaymentRequest, api.ContributionResponse](httpClient, baseURL+CycleServiceRecordPaymentProcedure, opts...),
		confirmContribution:  connect.NewClient[api.ContributionRequest, api.ContributionResponse](httpClient, baseURL+CycleServiceConfirmContributionProcedure, opts...),
		listContributions:    connect.NewClient[api.ListContributionsRequest, api.ListContributionsResponse](httpClient, baseURL+CycleServiceListContributionsProcedure, opts...),
		releasePayout:        connect.NewClient[api.PayoutRequest, api.PayoutResponse](httpClient, baseURL+CycleServiceReleasePayoutProcedure, opts...),
		confirmPayoutReceipt: connect.NewClient[api.PayoutRequest, api.PayoutResponse](httpClient, baseURL+CycleServiceConfirmPayoutReceiptProcedure, opts...),
		listPayouts:          connect.NewClient[api.CycleRequest, api.ListPayoutsResponse](httpClient, baseURL+CycleServiceListPayoutsProcedure, opts...),
		sweepDefaults:        connect.NewClient[api.SweepDefaultsRequest, api.DefaultsResponse](httpClient, baseURL+CycleServiceSweepDefaultsProcedure, opts...),
		resolveDefault:       connect.NewClient[api.ResolveDefaultRequest, api.ResolveDefaultResponse](httpClient, baseURL+CycleServiceResolveDefaultProcedure, opts...),
		listDefaults:         connect.NewClient[api.CycleRequest, api.DefaultsResponse](httpClient, baseURL+CycleServiceListDefaultsProcedure, opts...),
	}
}

// CreateCycle creates a pending cycle.
func (c *CycleServiceClient) CreateCycle(ctx context.Context, req *connect.Request[api.CreateCycleRequest]) (*connect.Response[api.CycleResponse], error) {
	return c.createCycle.CallUnary(ctx, req)
}

// StartCycle activates a pending cycle.
func (c *CycleServiceClient) StartCycle(ctx context.Context, req *connect.Request[api.CycleRequest]) (*connect.Response[api.CycleResponse], error) {
	return c.startCycle.CallUnary(ctx, req)
}

// AdvancePeriod closes the current period and opens the next.
func (c *CycleServiceClient) AdvancePeriod(ctx context.Context, req *connect.Request[api.CycleRequest]) (*connect.Response[api.CycleResponse], error) {
	return c.advancePeriod.CallUnary(ctx, req)
}

// CancelCycle cancels a cycle.
func (c *CycleServiceClient) CancelCycle(ctx context.Context, req *connect.Request[api.CycleRequest]) (*connect.Response[api.CycleResponse], error) {
	return c.cancelCycle.CallUnary(ctx, req)
}

// GetCycle returns a cycle and its payout schedule.
func (c *CycleServiceClient) GetCycle(ctx context.Context, req *connect.Request[api.CycleRequest]) (*connect.Response[api.GetCycleResponse], error) {
	return c.getCycle.CallUnary(ctx, req)
}

// RecordPayment records a payment against a contribution.
func (c *CycleServiceClient) RecordPayment(ctx context.Context, req *connect.Request[api.RecordPaymentRequest]) (*connect.Response[api.ContributionResponse], error) {
	return c.recordPayment.CallUnary(ctx, req)
}

// ConfirmContribution confirms a paid contribution.
func (c *CycleServiceClient) ConfirmContribution(ctx context.Context, req *connect.Request[api.ContributionRequest]) (*connect.Response[api.ContributionResponse], error) {
	return c.confirmContribution.CallUnary(ctx, req)
}

// ListContributions lists a period's contributions.
func (c *CycleServiceClient) ListContributions(ctx context.Context, req *connect.Request[api.ListContributionsRequest]) (*connect.Response[api.ListContributionsResponse], error) {
	return c.listContributions.CallUnary(ctx, req)
}

// ReleasePayout releases a payout from the pool.
func (c *CycleServiceClient) ReleasePayout(ctx context.Context, req *connect.Request[api.PayoutRequest]) (*connect.Response[api.PayoutResponse], error) {
	return c.releasePayout.CallUnary(ctx, req)
}

// ConfirmPayoutReceipt acknowledges receipt of a payout.
func (c *CycleServiceClient) ConfirmPayoutReceipt(ctx context.Context, req *connect.Request[api.PayoutRequest]) (*connect.Response[api.PayoutResponse], error) {
	return c.confirmPayoutReceipt.CallUnary(ctx, req)
}

// ListPayouts lists a cycle's payouts.
func (c *CycleServiceClient) ListPayouts(ctx context.Context, req *connect.Request[api.CycleRequest]) (*connect.Response[api.ListPayoutsResponse], error) {
	return c.listPayouts.CallUnary(ctx, req)
}

// SweepDefaults records defaults for overdue contributions.
func (c *CycleServiceClient) SweepDefaults(ctx context.Context, req *connect.Request[api.SweepDefaultsRequest]) (*connect.Response[api.DefaultsResponse], error) {
	return c.sweepDefaults.CallUnary(ctx, req)
}

// ResolveDefault resolves a default.
func (c *CycleServiceClient) ResolveDefault(ctx context.Context, req *connect.Request[api.ResolveDefaultRequest]) (*connect.Response[api.ResolveDefaultResponse], error) {
	return c.resolveDefault.CallUnary(ctx, req)
}

// ListDefaults lists a cycle's defaults.
func (c *CycleServiceClient) ListDefaults(ctx context.Context, req *connect.Request[api.CycleRequest]) (*connect.Response[api.DefaultsResponse], error) {
	return c.listDefaults.CallUnary(ctx, req)
}
