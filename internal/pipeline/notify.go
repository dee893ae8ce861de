// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/taibuivan/torikomi/internal/platform/ctxutil"
)

// Notifier delivers the cycle summary to an outbound webhook. Delivery is
// strictly best-effort: a failure here is logged and never re-triggers
// rollback of already-committed data.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewNotifier constructs a notifier. An empty URL disables delivery.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// notifyPayload is the webhook body.
type notifyPayload struct {
	CycleID    string    `json:"cycle_id,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
	Summary    *Summary  `json:"summary"`
}

// Notify posts the summary. Failures are logged, never returned.
func (notifier *Notifier) Notify(ctx context.Context, summary *Summary) {
	if notifier.webhookURL == "" {
		return
	}
	logger := ctxutil.GetLogger(ctx)

	body, err := json.Marshal(notifyPayload{
		CycleID:    ctxutil.GetCycleID(ctx),
		FinishedAt: time.Now().UTC(),
		Summary:    summary,
	})
	if err != nil {
		logger.Warn("notify_marshal_failed", slog.String("error", err.Error()))
		return
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, notifier.webhookURL, bytes.NewReader(body))
	if err != nil {
		logger.Warn("notify_request_failed", slog.String("error", err.Error()))
		return
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := notifier.httpClient.Do(request)
	if err != nil {
		logger.Warn("notify_delivery_failed", slog.String("error", err.Error()))
		return
	}
	defer response.Body.Close()

	if response.StatusCode >= 300 {
		logger.Warn("notify_delivery_rejected",
			slog.String("status", fmt.Sprint(response.StatusCode)))
		return
	}
	logger.Info("notify_delivered")
}
