package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/aminofabian/ichama-sub002/pkg/api"
)

// LoanServiceName is the fully-qualified name of the LoanService.
const LoanServiceName = "chama.v1.LoanService"

// Procedure paths of the LoanService.
const (
	LoanServiceRequestLoanProcedure     = "/chama.v1.LoanService/RequestLoan"
	LoanServiceGetLoanProcedure         = "/chama.v1.LoanService/GetLoan"
	LoanServiceAddGuarantorProcedure    = "/chama.v1.LoanService/AddGuarantor"
	LoanServiceRemoveGuarantorProcedure = "/chama.v1.LoanService/RemoveGuarantor"
	LoanServiceApproveLoanProcedure     = "/chama.v1.LoanService/ApproveLoan"
	LoanServiceRejectLoanProcedure      = "/chama.v1.LoanService/RejectLoan"
	LoanServiceRecordRepaymentProcedure = "/chama.v1.LoanService/RecordRepayment"
	LoanServiceMarkDefaultedProcedure   = "/chama.v1.LoanService/MarkDefaulted"
	LoanServiceCheckCapacityProcedure   = "/chama.v1.LoanService/CheckCapacity"
)

// LoanServiceHandler is implemented by the LoanService server.
type LoanServiceHandler interface {
	// RequestLoan requests a guaranteed loan.
	RequestLoan(context.Context, *connect.Request[api.RequestLoanRequest]) (*connect.Response[api.LoanResponse], error)
	// GetLoan returns a loan and its guarantees.
	GetLoan(context.Context, *connect.Request[api.LoanRequest]) (*connect.Response[api.LoanResponse], error)
	// AddGuarantor adds a guarantor to a pending loan.
	AddGuarantor(context.Context, *connect.Request[api.GuarantorRequest]) (*connect.Response[api.LoanResponse], error)
	// RemoveGuarantor removes a guarantor from a pending loan.
	RemoveGuarantor(context.Context, *connect.Request[api.GuarantorRequest]) (*connect.Response[api.LoanResponse], error)
	// ApproveLoan approves and disburses a loan.
	ApproveLoan(context.Context, *connect.Request[api.LoanRequest]) (*connect.Response[api.LoanResponse], error)
	// RejectLoan rejects a pending loan.
	RejectLoan(context.Context, *connect.Request[api.LoanRequest]) (*connect.Response[api.LoanResponse], error)
	// RecordRepayment records a loan repayment.
	RecordRepayment(context.Context, *connect.Request[api.RepaymentRequest]) (*connect.Response[api.LoanResponse], error)
	// MarkDefaulted defaults a loan and recovers it from guarantors.
	MarkDefaulted(context.Context, *connect.Request[api.LoanRequest]) (*connect.Response[api.LoanResponse], error)
	// CheckCapacity reports a member's guarantee capacity.
	CheckCapacity(context.Context, *connect.Request[api.CheckCapacityRequest]) (*connect.Response[api.CheckCapacityResponse], error)
}

// NewLoanServiceHandler builds an HTTP handler for svc. It returns the path to
// mount it on. Messages are JSON encoded.
func NewLoanServiceHandler(svc LoanServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(api.Codec{})}, opts...)
	routes := map[string]http.Handler{
		LoanServiceRequestLoanProcedure:     connect.NewUnaryHandler(LoanServiceRequestLoanProcedure, svc.RequestLoan, opts...),
		LoanServiceGetLoanProcedure:         connect.NewUnaryHandler(LoanServiceGetLoanProcedure, svc.GetLoan, opts...),
		LoanServiceAddGuarantorProcedure:    connect.NewUnaryHandler(LoanServiceAddGuarantorProcedure, svc.AddGuarantor, opts...),
		LoanServiceRemoveGuarantorProcedure: connect.NewUnaryHandler(LoanServiceRemoveGuarantorProcedure, svc.RemoveGuarantor, opts...),
		LoanServiceApproveLoanProcedure:     connect.NewUnaryHandler(LoanServiceApproveLoanProcedure, svc.ApproveLoan, opts...),
		LoanServiceRejectLoanProcedure:      connect.NewUnaryHandler(LoanServiceRejectLoanProcedure, svc.RejectLoan, opts...),
		LoanServiceRecordRepaymentProcedure: connect.NewUnaryHandler(LoanServiceRecordRepaymentProcedure, svc.RecordRepayment, opts...),
		LoanServiceMarkDefaultedProcedure:   connect.NewUnaryHandler(LoanServiceMarkDefaultedProcedure, svc.MarkDefaulted, opts...),
		LoanServiceCheckCapacityProcedure:   connect.NewUnaryHandler(LoanServiceCheckCapacityProcedure, svc.CheckCapacity, opts...),
	}
	return "/" + LoanServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := routes[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// LoanServiceClient calls the LoanService.
type LoanServiceClient struct {
	requestLoan     *connect.Client[api.RequestLoanRequest, api.LoanResponse]
	getLoan         *connect.Client[api.LoanRequest, api.LoanResponse]
	addGuarantor    *connect.Client[api.GuarantorRequest, api.LoanResponse]
	removeGuarantor *connect.Client[api.GuarantorRequest, api.LoanResponse]
	approveLoan     *connect.Client[api.LoanRequest, api.LoanResponse]
	rejectLoan      *connect.Client[api.LoanRequest, api.LoanResponse]
	recordRepayment *connect.Client[api.RepaymentRequest, api.LoanResponse]
	markDefaulted   *connect.Client[api.LoanRequest, api.LoanResponse]
	checkCapacity   *connect.Client[api.CheckCapacityRequest, api.CheckCapacityResponse]
}

// NewLoanServiceClient creates a client for the LoanService at baseURL.
func NewLoanServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LoanServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(api.Codec{})}, opts...)
	return &LoanServiceClient{
		requestLoan:     connect.NewClient[api.RequestLoanRequest, api.LoanResponse](httpClient, baseURL+LoanServiceRequestLoanProcedure, opts...),
		getLoan:         connect.NewClient[api.LoanRequest, api.LoanResponse](httpClient, baseURL+LoanServiceGetLoanProcedure, opts...),
		addGuarantor:    connect.NewClient[api.GuarantorRequest, api.LoanResponse](httpClient, baseURL+LoanServiceAddGuarantorProcedure, opts...),
		removeGuarantor: connect.NewClient[api.GuarantorRequest, api.LoanResponse](httpClient, baseURL+LoanServiceRemoveGuarantorProcedure, opts...),
		approveLoan:     connect.NewClient[api.LoanRequest, api.LoanResponse](httpClient, baseURL+LoanServiceApproveLoanProcedure, opts...),
		rejectLoan:      connect.NewClient[api.LoanRequest, api.LoanResponse](httpClient, baseURL+LoanServiceRejectLoanProcedure, opts...),
		recordRepayment: connect.NewClient[api.RepaymentRequest, api.LoanResponse](httpClient, baseURL+LoanServiceRecordRepaymentProcedure, opts...),
		markDefaulted:   connect.NewClient[api.LoanRequest, api.LoanResponse](httpClient, baseURL+LoanServiceMarkDefaultedProcedure, opts...),
		checkCapacity:   connect.NewClient[api.CheckCapacityRequest, api.CheckCapacityResponse](httpClient, baseURL+LoanServiceCheckCapacityProcedure, opts...),
	}
}

// RequestLoan requests a guaranteed loan.
func (c *LoanServiceClient) RequestLoan(ctx context.Context, req *connect.Request[api.RequestLoanRequest]) (*connect.Response[api.LoanResponse], error) {
	return c.requestLoan.CallUnary(ctx, req)
}

// GetLoan returns a loan and its guarantees.
func (c *LoanServiceClient) GetLoan(ctx context.Context, req *connect.Request[api.LoanRequest]) (*connect.Response[api.LoanResponse], error) {
	return c.getLoan.CallUnary(ctx, req)
}

// AddGuarantor adds a guarantor to a pending loan.
func (c *LoanServiceClient) AddGuarantor(ctx context.Context, req *connect.Request[api.GuarantorRequest]) (*connect.Response[api.LoanResponse], error) {
	return c.addGuarantor.CallUnary(ctx, req)
}

// RemoveGuarantor removes a guarantor from a pending loan.
func (c *LoanServiceClient) RemoveGuarantor(ctx context.Context, req *connect.Request[api.GuarantorRequest]) (*connect.Response[api.LoanResponse], error) {
	return c.removeGuarantor.CallUnary(ctx, req)
}

// ApproveLoan approves and disburses a loan.
func (c *LoanServiceClient) ApproveLoan(ctx context.Context, req *connect.Request[api.LoanRequest]) (*connect.Response[api.LoanResponse], error) {
	return c.approveLoan.CallUnary(ctx, req)
}

// RejectLoan rejects a pending loan.
func (c *LoanServiceClient) RejectLoan(ctx context.Context, req *connect.Request[api.LoanRequest]) (*connect.Response[api.LoanResponse], error) {
	return c.rejectLoan.CallUnary(ctx, req)
}

// RecordRepayment records a loan repayment.
func (c *LoanServiceClient) RecordRepayment(ctx context.Context, req *connect.Request[api.RepaymentRequest]) (*connect.Response[api.LoanResponse], error) {
	return c.recordRepayment.CallUnary(ctx, req)
}

// MarkDefaulted defaults a loan and recovers it from guarantors.
func (c *LoanServiceClient) MarkDefaulted(ctx context.Context, req *connect.Request[api.LoanRequest]) (*connect.Response[api.LoanResponse], error) {
	return c.markDefaulted.CallUnary(ctx, req)
}

// CheckCapacity reports a member's guarantee capacity.
func (c *LoanServiceClient) CheckCapacity(ctx context.Context, req *connect.Request[api.CheckCapacityRequest]) (*connect.Response[api.CheckCapacityResponse], error) {
	return c.checkCapacity.CallUnary(ctx, req)
}
