package middleware

import (
	"context"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/aminofabian/ichama-sub002/internal/auth"
)

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	token, err := jwtManager.Generate("alice")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var seen string
	handler := RequireAuth(jwtManager)(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		seen = GetUserID(ctx)
		return connect.NewResponse(&struct{}{}), nil
	})

	tests := []struct {
		name   string
		header string
		want   string
		code   connect.Code
	}{
		{name: "valid token", header: "Bearer " + token, want: "alice"},
		{name: "missing header", code: connect.CodeUnauthenticated},
		{name: "wrong scheme", header: "Basic " + token, code: connect.CodeUnauthenticated},
		{name: "bad token", header: "Bearer nope", code: connect.CodeUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := connect.NewRequest(&struct{}{})
			if tt.header != "" {
				req.Header().Set("Authorization", tt.header)
			}

			_, err := handler(context.Background(), req)
			if tt.code != 0 {
				if connect.CodeOf(err) != tt.code {
					t.Errorf("Expected code %v, got %v", tt.code, err)
				}
				if seen != "" {
					t.Errorf("Handler should not run, saw user %q", seen)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if seen != tt.want {
				t.Errorf("Expected user %q, got %q", tt.want, seen)
			}
		})
	}
}
