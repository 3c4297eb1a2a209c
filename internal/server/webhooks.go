package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"dealflow/internal/domain"
	"dealflow/internal/repo"
)

const (
	defaultWebhookInterval = 2 * time.Second
	defaultWebhookTimeout  = 5 * time.Second
	defaultWebhookBatch    = 100
)

// WebhookDispatcher polls the event log and POSTs new events to every
// registered webhook. Each webhook keeps its own persisted cursor, so a
// restart resumes where delivery left off instead of replaying history.
type WebhookDispatcher struct {
	Repo     repo.Repo
	Interval time.Duration
	Client   *http.Client
	Logf     func(format string, args ...any)

	stop chan struct{}
	done chan struct{}
}

func NewWebhookDispatcher(r repo.Repo) *WebhookDispatcher {
	return &WebhookDispatcher{
		Repo:     r,
		Interval: defaultWebhookInterval,
		Client:   &http.Client{Timeout: defaultWebhookTimeout},
		Logf:     log.Printf,
	}
}

func (d *WebhookDispatcher) Start() error {
	if d.stop != nil {
		return fmt.Errorf("webhook dispatcher already running")
	}
	if d.Interval <= 0 {
		d.Interval = defaultWebhookInterval
	}
	if d.Client == nil {
		d.Client = &http.Client{Timeout: defaultWebhookTimeout}
	}
	if d.Logf == nil {
		d.Logf = log.Printf
	}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.run()
	return nil
}

func (d *WebhookDispatcher) Stop() {
	if d.stop == nil {
		return
	}
	close(d.stop)
	<-d.done
	d.stop = nil
	d.done = nil
}

func (d *WebhookDispatcher) run() {
	defer close(d.done)
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.Tick(context.Background())
		}
	}
}

// Tick delivers pending events for every webhook once.
func (d *WebhookDispatcher) Tick(ctx context.Context) {
	hooks, err := d.Repo.ListWebhooks(ctx)
	if err != nil {
		d.Logf("webhooks: list: %v", err)
		return
	}
	for _, hook := range hooks {
		if err := d.deliver(ctx, hook); err != nil {
			d.Logf("webhooks: %s: %v", hook.URL, err)
		}
	}
}

func (d *WebhookDispatcher) deliver(ctx context.Context, hook domain.Webhook) error {
	events, err := d.Repo.EventsAfter(ctx, defaultWebhookBatch, hook.Cursor)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if err := d.post(ctx, hook, ev); err != nil {
			// Leave the cursor where it is; the event is retried next tick.
			return err
		}
		hook.Cursor = ev.ID
		if err := d.Repo.UpdateWebhookCursor(ctx, hook.ID, hook.Cursor); err != nil {
			return err
		}
	}
	return nil
}

func (d *WebhookDispatcher) post(ctx context.Context, hook domain.Webhook, ev domain.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Dealflow-Event", ev.Action)
	req.Header.Set("X-Dealflow-Delivery", fmt.Sprintf("%s-%d", hook.ID, ev.ID))
	if hook.Secret != "" {
		req.Header.Set("X-Dealflow-Secret", hook.Secret)
	}
	res, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)
	if res.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned %d", res.StatusCode)
	}
	return nil
}
