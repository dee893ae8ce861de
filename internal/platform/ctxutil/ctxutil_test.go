// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ctxutil_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/torikomi/internal/platform/ctxutil"
)

/*
TestContext_RequestID verifies that Request IDs can be injected and retrieved.
*/
func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "test-request-id"

	// 1. Initially should be empty
	assert.Empty(t, ctxutil.GetRequestID(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithRequestID(ctx, requestID)
	assert.Equal(t, requestID, ctxutil.GetRequestID(ctx))
}

/*
TestContext_CycleID verifies that update-cycle IDs can be injected and retrieved.
*/
func TestContext_CycleID(t *testing.T) {
	ctx := context.Background()
	cycleID := "0195f2aa-test-cycle"

	// 1. Initially should be empty
	assert.Empty(t, ctxutil.GetCycleID(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithCycleID(ctx, cycleID)
	assert.Equal(t, cycleID, ctxutil.GetCycleID(ctx))

	// 3. Cycle and request IDs must not collide
	ctx = ctxutil.WithRequestID(ctx, "req")
	assert.Equal(t, cycleID, ctxutil.GetCycleID(ctx))
	assert.Equal(t, "req", ctxutil.GetRequestID(ctx))
}

/*
TestContext_Logger verifies that a custom logger can be stored in context.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// 1. Initially should return the default logger
	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Equal(t, logger, ctxutil.GetLogger(ctx))
}
