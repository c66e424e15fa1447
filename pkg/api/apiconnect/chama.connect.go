package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/aminofabian/ichama-sub002/pkg/api"
)

// ChamaServiceName is the fully-qualified name of the ChamaService.
const ChamaServiceName = "chama.v1.ChamaService"

// Procedure paths of the ChamaService.
const (
	ChamaServiceCreateChamaProcedure = "/chama.v1.ChamaService/CreateChama"
	ChamaServiceAddMemberProcedure   = "/chama.v1.ChamaService/AddMember"
	ChamaServiceGetChamaProcedure    = "/chama.v1.ChamaService/GetChama"
)

// ChamaServiceHandler is implemented by the ChamaService server.
type ChamaServiceHandler interface {
	// CreateChama creates a chama owned by the caller.
	CreateChama(context.Context, *connect.Request[api.CreateChamaRequest]) (*connect.Response[api.CreateChamaResponse], error)
	// AddMember adds a member to a chama.
	AddMember(context.Context, *connect.Request[api.AddMemberRequest]) (*connect.Response[api.AddMemberResponse], error)
	// GetChama returns a chama and its roster.
	GetChama(context.Context, *connect.Request[api.GetChamaRequest]) (*connect.Response[api.GetChamaResponse], error)
}

// NewChamaServiceHandler builds an HTTP handler for svc. It returns the path to
// mount it on. Messages are JSON encoded.
func NewChamaServiceHandler(svc ChamaServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(api.Codec{})}, opts...)
	routes := map[string]http.Handler{
		ChamaServiceCreateChamaProcedure: connect.NewUnaryHandler(ChamaServiceCreateChamaProcedure, svc.CreateChama, opts...),
		ChamaServiceAddMemberProcedure:   connect.NewUnaryHandler(ChamaServiceAddMemberProcedure, svc.AddMember, opts...),
		ChamaServiceGetChamaProcedure:    connect.NewUnaryHandler(ChamaServiceGetChamaProcedure, svc.GetChama, opts...),
	}
	return "/" + ChamaServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := routes[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// ChamaServiceClient calls the ChamaService.
type ChamaServiceClient struct {
	createChama *connect.Client[api.CreateChamaRequest, api.CreateChamaResponse]
	addMember   *connect.Client[api.AddMemberRequest, api.AddMemberResponse]
	getChama    *connect.Client[api.GetChamaRequest, api.GetChamaResponse]
}

// NewChamaServiceClient creates a client for the ChamaService at baseURL.
func NewChamaServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ChamaServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(api.Codec{})}, opts...)
	return &ChamaServiceClient{
		createChama: connect.NewClient[api.CreateChamaRequest, api.CreateChamaResponse](httpClient, baseURL+ChamaServiceCreateChamaProcedure, opts...),
		addMember:   connect.NewClient[api.AddMemberRequest, api.AddMemberResponse](httpClient, baseURL+ChamaServiceAddMemberProcedure, opts...),
		getChama:    connect.NewClient[api.GetChamaRequest, api.GetChamaResponse](httpClient, baseURL+ChamaServiceGetChamaProcedure, opts...),
	}
}

// CreateChama creates a chama owned by the caller.
func (c *ChamaServiceClient) CreateChama(ctx context.Context, req *connect.Request[api.CreateChamaRequest]) (*connect.Response[api.CreateChamaResponse], error) {
	return c.createChama.CallUnary(ctx, req)
}

// AddMember adds a member to a chama.
func (c *ChamaServiceClient) AddMember(ctx context.Context, req *connect.Request[api.AddMemberRequest]) (*connect.Response[api.AddMemberResponse], error) {
	return c.addMember.CallUnary(ctx, req)
}

// GetChama returns a chama and its roster.
func (c *ChamaServiceClient) GetChama(ctx context.Context, req *connect.Request[api.GetChamaRequest]) (*connect.Response[api.GetChamaResponse], error) {
	return c.getChama.CallUnary(ctx, req)
}
