// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/torikomi/internal/platform/ctxkey"
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

// # Cycle Tracing

// WithCycleID returns a new context with the provided update-cycle ID attached.
//
// The worker stamps every cycle with a UUIDv7 so that fetcher, reconciler,
// and transaction-manager log lines can be correlated end to end.
func WithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyCycleID, id)
}

// GetCycleID retrieves the update-cycle ID from the context.
// Returns an empty string if not found.
func GetCycleID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyCycleID).(string)
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
