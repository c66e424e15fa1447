package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/aminofabian/ichama-sub002/internal/engine"
	"github.com/aminofabian/ichama-sub002/internal/middleware"
)

var (
	errUnauthenticated = errors.New("authentication required")
	errInternal        = errors.New("internal error")
)

// codeOf maps an engine error kind to a Connect code.
func codeOf(err error) connect.Code {
	switch {
	case errors.Is(err, engine.ErrValidation):
		return connect.CodeInvalidArgument
	case errors.Is(err, engine.ErrStateConflict):
		return connect.CodeFailedPrecondition
	case errors.Is(err, engine.ErrUnauthorized):
		return connect.CodePermissionDenied
	case errors.Is(err, engine.ErrCapacity):
		return connect.CodeResourceExhausted
	case errors.Is(err, engine.ErrNotFound):
		return connect.CodeNotFound
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	default:
		return connect.CodeInternal
	}
}

// fail logs a failed call and converts err for the wire. Authorization and
// internal failures carry no detail.
func fail(method string, err error) error {
	code := codeOf(err)
	switch code {
	case connect.CodeInternal:
		slog.Error(method+" failed", "error", err)
		return connect.NewError(code, errInternal)
	case connect.CodePermissionDenied:
		slog.Warn(method+" failed", "code", code, "error", err)
		return connect.NewError(code, engine.ErrUnauthorized)
	default:
		slog.Warn(method+" failed", "code", code, "error", err)
		return connect.NewError(code, err)
	}
}

// caller returns the authenticated user ID set by the auth interceptor.
func caller(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errUnauthenticated)
	}
	return userID, nil
}

func invalidArgument(err error) error {
	return connect.NewError(connect.CodeInvalidArgument, err)
}
