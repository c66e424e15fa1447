package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/aminofabian/ichama-sub002/pkg/api"
)

// WalletServiceName is the fully-qualified name of the WalletService.
const WalletServiceName = "chama.v1.WalletService"

// Procedure paths of the WalletService.
const (
	WalletServiceGetWalletBalanceProcedure  = "/chama.v1.WalletService/GetWalletBalance"
	WalletServiceGetSavingsBalanceProcedure = "/chama.v1.WalletService/GetSavingsBalance"
	WalletServiceGetPoolBalanceProcedure    = "/chama.v1.WalletService/GetPoolBalance"
	WalletServiceListTransactionsProcedure  = "/chama.v1.WalletService/ListTransactions"
)

// WalletServiceHandler is implemented by the WalletService server.
type WalletServiceHandler interface {
	// GetWalletBalance returns a wallet balance.
	GetWalletBalance(context.Context, *connect.Request[api.BalanceRequest]) (*connect.Response[api.BalanceResponse], error)
	// GetSavingsBalance returns a savings balance.
	GetSavingsBalance(context.Context, *connect.Request[api.BalanceRequest]) (*connect.Response[api.BalanceResponse], error)
	// GetPoolBalance returns a cycle pool balance.
	GetPoolBalance(context.Context, *connect.Request[api.PoolBalanceRequest]) (*connect.Response[api.BalanceResponse], error)
	// ListTransactions lists an account's ledger rows.
	ListTransactions(context.Context, *connect.Request[api.ListTransactionsRequest]) (*connect.Response[api.ListTransactionsResponse], error)
}

// NewWalletServiceHandler builds an HTTP handler for svc. It returns the path to
// mount it on. Messages are JSON encoded.
func NewWalletServiceHandler(svc WalletServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(api.Codec{})}, opts...)
	routes := map[string]http.Handler{
		WalletServiceGetWalletBalanceProcedure:  connect.NewUnaryHandler(WalletServiceGetWalletBalanceProcedure, svc.GetWalletBalance, opts...),
		WalletServiceGetSavingsBalanceProcedure: connect.NewUnaryHandler(WalletServiceGetSavingsBalanceProcedure, svc.GetSavingsBalance, opts...),
		WalletServiceGetPoolBalanceProcedure:    connect.NewUnaryHandler(WalletServiceGetPoolBalanceProcedure, svc.GetPoolBalance, opts...),
		WalletServiceListTransactionsProcedure:  connect.NewUnaryHandler(WalletServiceListTransactionsProcedure, svc.ListTransactions, opts...),
	}
	return "/" + WalletServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := routes[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// WalletServiceClient calls the WalletService.
type WalletServiceClient struct {
	getWalletBalance  *connect.Client[api.BalanceRequest, api.BalanceResponse]
	getSavingsBalance *connect.Client[api.BalanceRequest, api.BalanceResponse]
	getPoolBalance    *connect.Client[api.PoolBalanceRequest, api.BalanceResponse]
	listTransactions  *connect.Client[api.ListTransactionsRequest, api.ListTransactionsResponse]
}

// NewWalletServiceClient creates a client for the WalletService at baseURL.
func NewWalletServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *WalletServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(api.Codec{})}, opts...)
	return &WalletServiceClient{
		getWalletBalance:  connect.NewClient[api.BalanceRequest, api.BalanceResponse](httpClient, baseURL+WalletServiceGetWalletBalanceProcedure, opts...),
		getSavingsBalance: connect.NewClient[api.BalanceRequest, api.BalanceResponse](httpClient, baseURL+WalletServiceGetSavingsBalanceProcedure, opts...),
		getPoolBalance:    connect.NewClient[api.PoolBalanceRequest, api.BalanceResponse](httpClient, baseURL+WalletServiceGetPoolBalanceProcedure, opts...),
		listTransactions:  connect.NewClient[api.ListTransactionsRequest, api.ListTransactionsResponse](httpClient, baseURL+WalletServiceListTransactionsProcedure, opts...),
	}
}

// GetWalletBalance returns a wallet balance.
func (c *WalletServiceClient) GetWalletBalance(ctx context.Context, req *connect.Request[api.BalanceRequest]) (*connect.Response[api.BalanceResponse], error) {
	return c.getWalletBalance.CallUnary(ctx, req)
}

// GetSavingsBalance returns a savings balance.
func (c *WalletServiceClient) GetSavingsBalance(ctx context.Context, req *connect.Request[api.BalanceRequest]) (*connect.Response[api.BalanceResponse], error) {
	return c.getSavingsBalance.CallUnary(ctx, req)
}

// GetPoolBalance returns a cycle pool balance.
func (c *WalletServiceClient) GetPoolBalance(ctx context.Context, req *connect.Request[api.PoolBalanceRequest]) (*connect.Response[api.BalanceResponse], error) {
	return c.getPoolBalance.CallUnary(ctx, req)
}

// ListTransactions lists an account's ledger rows.
func (c *WalletServiceClient) ListTransactions(ctx context.Context, req *connect.Request[api.ListTransactionsRequest]) (*connect.Response[api.ListTransactionsResponse], error) {
	return c.listTransactions.CallUnary(ctx, req)
}
