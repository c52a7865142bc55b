// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/caseline/internal/platform/ctxkey"
	"github.com/taibuivan/caseline/internal/platform/session"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// # Session

// WithSessionID returns a new context carrying the session id from the cookie.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeySessionID, id)
}

// GetSessionID retrieves the session id. ok is false when the request carries none.
func GetSessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxkey.KeySessionID).(string)
	return id, ok && id != ""
}

// # Identity & Access

// WithSessionUser returns a new context with the validated session user attached.
func WithSessionUser(ctx context.Context, user *session.User) context.Context {
	return context.WithValue(ctx, ctxkey.KeyUser, user)
}

// GetSessionUser retrieves the [*session.User] from the [context.Context].
func GetSessionUser(ctx context.Context) *session.User {
	user, ok := ctx.Value(ctxkey.KeyUser).(*session.User)
	if !ok {
		return nil
	}
	return user
}
