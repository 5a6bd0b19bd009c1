// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/olegiv/evreg-go/internal/store"
)

// Dispatcher fans webhook events out to subscribed endpoints through a
// small worker pool. Delivery is fire-and-forget from the caller's
// perspective; outcomes are persisted per delivery.
type Dispatcher struct {
	queries *store.Queries
	logger  *slog.Logger
	queue   chan *queuedDelivery
	workers int
	wg      sync.WaitGroup
	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// queuedDelivery is one pending HTTP POST to one webhook.
type queuedDelivery struct {
	WebhookID int64
	URL       string
	EventType string
	Payload   []byte
}

// NewDispatcher creates a webhook dispatcher with the given worker count.
func NewDispatcher(db *sql.DB, logger *slog.Logger, workers int) *Dispatcher {
	if workers <= 0 {
		workers = 3
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		queries: store.New(db),
		logger:  logger,
		queue:   make(chan *queuedDelivery, 100),
		workers: workers,
		done:    make(chan struct{}),
	}
}

// Start starts the dispatcher workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.logger.Info("starting webhook dispatcher", "workers", d.workers)

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

// Stop stops the dispatcher and waits for in-flight deliveries to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	close(d.done)
	d.wg.Wait()
	d.logger.Info("webhook dispatcher stopped")
}

// Dispatch queues the event for every active webhook subscribed to its
// type. Errors loading subscribers are logged, never propagated: a
// notification failure must not fail the mutation that produced it.
func (d *Dispatcher) Dispatch(ctx context.Context, event *Event) {
	hooks, err := d.queries.ListActiveWebhooks(ctx)
	if err != nil {
		d.logger.Error("failed to load webhooks", "error", err)
		return
	}
	if len(hooks) == 0 {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		d.logger.Error("failed to encode webhook payload", "error", err, "event_type", event.Type)
		return
	}

	for _, hook := range hooks {
		if !subscribed(hook.Events, event.Type) {
			continue
		}
		delivery := &queuedDelivery{
			WebhookID: hook.ID,
			URL:       hook.URL,
			EventType: event.Type,
			Payload:   payload,
		}
		select {
		case d.queue <- delivery:
		default:
			d.logger.Warn("webhook queue full, dropping delivery",
				"webhook_id", hook.ID,
				"event_type", event.Type,
			)
		}
	}
}

// subscribed reports whether a comma-separated subscription list covers
// the event type. "*" subscribes to everything.
func subscribed(events, eventType string) bool {
	if events == "*" {
		return true
	}
	for _, e := range strings.Split(events, ",") {
		if strings.TrimSpace(e) == eventType {
			return true
		}
	}
	return false
}

// worker processes queued deliveries until stopped.
func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-d.done:
			return
		case <-ctx.Done():
			return
		case delivery := <-d.queue:
			d.processDelivery(context.WithoutCancel(ctx), delivery)
		}
	}
}
