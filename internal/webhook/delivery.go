// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/evreg-go/internal/store"
)

const (
	// RequestTimeout bounds a single delivery attempt end to end.
	RequestTimeout = 30 * time.Second

	// UserAgent identifies outgoing webhook requests.
	UserAgent = "evreg-webhook/1.0"
)

var httpClient = &http.Client{
	Timeout: RequestTimeout,
	Transport: &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
	},
}

// processDelivery posts one payload to one endpoint and persists the
// outcome. The ctx passed in is already detached from the request that
// produced the event, so a client disconnect cannot abort delivery.
func (d *Dispatcher) processDelivery(ctx context.Context, delivery *queuedDelivery) {
	statusCode, deliveryErr := d.post(ctx, delivery)

	params := store.RecordWebhookDeliveryParams{
		ID:         uuid.New().String(),
		WebhookID:  delivery.WebhookID,
		EventType:  delivery.EventType,
		Payload:    string(delivery.Payload),
		StatusCode: statusCode,
	}
	if deliveryErr != nil {
		params.Error = deliveryErr.Error()
		d.logger.Warn("webhook delivery failed",
			"webhook_id", delivery.WebhookID,
			"event_type", delivery.EventType,
			"error", deliveryErr,
		)
	} else if statusCode < 200 || statusCode >= 300 {
		params.Error = fmt.Sprintf("endpoint returned status %d", statusCode)
		d.logger.Warn("webhook endpoint rejected delivery",
			"webhook_id", delivery.WebhookID,
			"event_type", delivery.EventType,
			"status", statusCode,
		)
	}

	if err := d.queries.RecordWebhookDelivery(ctx, params); err != nil {
		d.logger.Error("failed to record webhook delivery",
			"webhook_id", delivery.WebhookID,
			"error", err,
		)
	}
}

func (d *Dispatcher) post(ctx context.Context, delivery *queuedDelivery) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, delivery.URL, bytes.NewReader(delivery.Payload))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("X-Webhook-Event", delivery.EventType)

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	return resp.StatusCode, nil
}
