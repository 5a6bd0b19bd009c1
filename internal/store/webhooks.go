// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"time"
)

// Webhook is a subscriber endpoint notified of registration system events.
// Events holds a comma-separated list of event types, or "*" for all.
type Webhook struct {
	ID        int64
	Name      string
	URL       string
	Events    string
	IsActive  bool
	CreatedAt time.Time
}

// CreateWebhookParams holds the fields for registering a webhook.
type CreateWebhookParams struct {
	Name   string
	URL    string
	Events string
}

// CreateWebhook inserts a new active webhook.
func (q *Queries) CreateWebhook(ctx context.Context, arg CreateWebhookParams) (Webhook, error) {
	now := time.Now().UTC()
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO webhooks (name, url, events, is_active, created_at) VALUES (?, ?, ?, 1, ?)`,
		arg.Name, arg.URL, arg.Events, now,
	)
	if err != nil {
		return Webhook{}, fmt.Errorf("insert webhook: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Webhook{}, fmt.Errorf("webhook insert id: %w", err)
	}
	return Webhook{ID: id, Name: arg.Name, URL: arg.URL, Events: arg.Events, IsActive: true, CreatedAt: now}, nil
}

// ListActiveWebhooks returns all active webhooks.
func (q *Queries) ListActiveWebhooks(ctx context.Context) ([]Webhook, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, url, events, is_active, created_at FROM webhooks WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()

	var hooks []Webhook
	for rows.Next() {
		var h Webhook
		if err := rows.Scan(&h.ID, &h.Name, &h.URL, &h.Events, &h.IsActive, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		hooks = append(hooks, h)
	}
	return hooks, rows.Err()
}

// RecordWebhookDeliveryParams holds the outcome of one delivery attempt.
type RecordWebhookDeliveryParams struct {
	ID         string // uuid
	WebhookID  int64
	EventType  string
	Payload    string
	StatusCode int
	Error      string
}

// RecordWebhookDelivery persists the outcome of a delivery attempt.
func (q *Queries) RecordWebhookDelivery(ctx context.Context, arg RecordWebhookDeliveryParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO webhook_deliveries (id, webhook_id, event_type, payload, status_code, error, delivered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.WebhookID, arg.EventType, arg.Payload, arg.StatusCode, arg.Error, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record webhook delivery: %w", err)
	}
	return nil
}
