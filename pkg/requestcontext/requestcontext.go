// Package requestcontext carries per-request values (request ID, acting
// admin) through context.Context without import cycles between middleware
// and handlers.
package requestcontext

import (
	"context"

	id "onboard/pkg/domain"
)

type (
	requestIDKey struct{}
	adminKey     struct{}
)

// WithRequestID returns a child context carrying the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request ID, or "" when none was set.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithAdmin returns a child context carrying the authenticated admin identity.
func WithAdmin(ctx context.Context, admin id.Identity) context.Context {
	return context.WithValue(ctx, adminKey{}, admin)
}

// Admin returns the authenticated admin identity and whether one was set.
func Admin(ctx context.Context) (id.Identity, bool) {
	v, ok := ctx.Value(adminKey{}).(id.Identity)
	return v, ok && !v.IsZero()
}
