// Package utils provides utility functions for the application.
package utils

import "context"

type contextKey string

// Request-scoped context keys populated by handlers
const (
	RequestIDKey  contextKey = "request_id"
	UserAgentKey  contextKey = "user_agent"
	IPAddressKey  contextKey = "ip_address"
	EndpointKey   contextKey = "endpoint"
	TimeoutKey    contextKey = "timeout"
	CancelFuncKey contextKey = "cancel_func"
	TenantIDKey   contextKey = "tenant_id"
	ActorKey      contextKey = "actor"
)

func ToPtr[T any](v T) *T {
	return &v
}

// ActorFromContext returns the actor stored by the auth middleware, or fallback
func ActorFromContext(ctx context.Context, fallback string) string {
	if v, ok := ctx.Value(ActorKey).(string); ok && v != "" {
		return v
	}
	return fallback
}

// RequestIDFromContext returns the request id, if any
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}
