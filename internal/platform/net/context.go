// Package net carries request scoped identity and the error envelope that
// middleware writes before any handler runs
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type ctxKey int

const (
	keyUserID ctxKey = iota
	keyUserSink
)

type userSink struct{ id string }

// WithRequestID stores reqID where chi's RequestID middleware would
func WithRequestID(ctx context.Context, reqID string) context.Context {
	if reqID == "" {
		return ctx
	}
	return context.WithValue(ctx, chimw.RequestIDKey, reqID)
}

// TrackUser lets an outer middleware learn the user that an inner one
// authenticates. The returned func reads the latest WithUser value
func TrackUser(ctx context.Context) (context.Context, func() string) {
	s := &userSink{}
	return context.WithValue(ctx, keyUserSink, s), func() string { return s.id }
}

// WithUser records the authenticated user id
func WithUser(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	if s, ok := ctx.Value(keyUserSink).(*userSink); ok {
		s.id = userID
	}
	return context.WithValue(ctx, keyUserID, userID)
}

// RequestID returns the request id, or ""
func RequestID(ctx context.Context) string { return chimw.GetReqID(ctx) }

// UserID returns the authenticated user id, or ""
func UserID(ctx context.Context) string {
	v, _ := ctx.Value(keyUserID).(string)
	return v
}
