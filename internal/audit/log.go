// Package audit writes structured audit entries for state-changing operations.
package audit

import (
	"context"
	"errors"
	"strings"

	"tasktrack.org/internal/auth"
	"tasktrack.org/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// Event names emitted by the HTTP layer.
const (
	EventTaskCreated         = "task.created"
	EventTaskUpdated         = "task.updated"
	EventTaskDeleted         = "task.deleted"
	EventOrganizationCreated = "organization.created"
	EventOrganizationDeleted = "organization.deleted"
	EventRolePromoted        = "user.role_promoted"
	EventUserRegistered      = "user.registered"
	EventLogin               = "auth.login"
)

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id attached by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit log entry enriched with request and actor context.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := obs.Logger().Info().Str("type", "audit").Str("event", event)
	if rid := RequestIDFromContext(ctx); rid != "" {
		entry = entry.Str("request_id", rid)
	}
	if actor, ok := auth.ActorFromContext(ctx); ok {
		entry = entry.Int64("actor_id", actor.ID).Str("actor_role", string(actor.Role))
	}
	if fields == nil {
		fields = map[string]any{}
	}
	entry.Interface("fields", fields).Send()
	return nil
}
