package middleware

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/visibility"
)

type contextKey int

const (
	callerKey contextKey = iota
	ctxRequestID
)

// WithCaller stores the authenticated caller on ctx.
func WithCaller(ctx context.Context, caller visibility.Caller) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, callerKey, caller)
}

func callerValue(ctx context.Context) (visibility.Caller, bool) {
	if ctx == nil {
		return visibility.Caller{}, false
	}
	caller, ok := ctx.Value(callerKey).(visibility.Caller)
	return caller, ok && caller.ID != uuid.Nil
}

// UserIDFromContext is "" for unauthenticated requests.
func UserIDFromContext(ctx context.Context) string {
	if caller, ok := callerValue(ctx); ok {
		return caller.ID.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if caller, ok := callerValue(ctx); ok {
		return caller.Role.String()
	}
	return ""
}

// CallerFromContext returns the caller Auth stored, rejecting unknown roles.
func CallerFromContext(ctx context.Context) (visibility.Caller, error) {
	caller, ok := callerValue(ctx)
	if !ok {
		return visibility.Caller{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	if err := caller.Validate(); err != nil {
		return visibility.Caller{}, err
	}
	return caller, nil
}
