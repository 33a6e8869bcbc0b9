package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"marketplace-gateway/internal/model"
	"marketplace-gateway/internal/repository"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderEvent     = "X-Webhook-Event"
	HeaderDelivery  = "X-Webhook-Delivery"
	HeaderTimestamp = "X-Webhook-Timestamp"
)

const (
	defaultMaxAttempts      = 3
	defaultBackoffBase      = 1 * time.Second
	defaultAttemptTimeout   = 10 * time.Second
	defaultDisableThreshold = 10

	maxResponseSnippet = 500
)

// Envelope is the JSON body posted to every subscriber; it is serialized
// once per dispatch and shared across subscribers.
type Envelope struct {
	Event     string         `json:"event"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// Dispatcher fans business events out to registered webhook endpoints.
// Delivery is fire-and-forget from the producer's perspective; each
// subscriber gets its own retry ladder and one subscriber's outage never
// delays another's delivery. Pending retries are not persisted: a process
// restart drops them (at-least-once, best effort).
type Dispatcher struct {
	webhooks   repository.WebhookRepository
	deliveries repository.DeliveryRepository
	httpClient *http.Client

	maxAttempts      int
	backoffBase      time.Duration
	disableThreshold int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDispatcher(webhooks repository.WebhookRepository, deliveries repository.DeliveryRepository) *Dispatcher {
	return NewDispatcherWithConfig(webhooks, deliveries, defaultMaxAttempts, defaultBackoffBase, defaultAttemptTimeout)
}

// NewDispatcherWithConfig creates a dispatcher with custom retry settings for testing.
func NewDispatcherWithConfig(
	webhooks repository.WebhookRepository,
	deliveries repository.DeliveryRepository,
	maxAttempts int,
	backoffBase time.Duration,
	attemptTimeout time.Duration,
) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		webhooks:         webhooks,
		deliveries:       deliveries,
		httpClient:       &http.Client{Timeout: attemptTimeout},
		maxAttempts:      maxAttempts,
		backoffBase:      backoffBase,
		disableThreshold: defaultDisableThreshold,
		ctx:              ctx,
		cancel:           cancel,
	}
}

// SetDisableThreshold overrides the consecutive-failure quarantine threshold for testing.
func (d *Dispatcher) SetDisableThreshold(n int) { d.disableThreshold = n }

// Dispatch fans the event out to every active webhook subscribed to it.
// It returns immediately; deliveries run on their own goroutines.
func (d *Dispatcher) Dispatch(event string, data map[string]any) {
	subscribers, err := d.webhooks.FindActive(d.ctx)
	if err != nil {
		slog.Error("webhook_lookup_failed", "event", event, "error", err)
		return
	}

	envelope := Envelope{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		slog.Error("webhook_payload_marshal_failed", "event", event, "error", err)
		return
	}

	for _, wh := range subscribers {
		if !wh.SubscribedTo(event) {
			continue
		}
		d.wg.Add(1)
		go d.deliver(wh, event, body, envelope.Timestamp)
	}
}

// Drain waits for all in-flight deliveries, including their pending retries.
func (d *Dispatcher) Drain() {
	d.wg.Wait()
}

// Close aborts pending retry waits and then waits for goroutines to finish.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}

// deliver runs one delivery sequence: up to maxAttempts POSTs with
// exponential backoff. Exhausting every attempt counts as a single failure
// sequence against the webhook.
func (d *Dispatcher) deliver(wh *model.Webhook, event string, body []byte, ts time.Time) {
	defer d.wg.Done()

	deliveryID := uuid.NewString()
	signature := Sign(body, wh.Secret)

	backoff := d.backoffBase
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		status, snippet, err := d.post(wh.URL, body, event, deliveryID, signature, ts)
		success := err == nil && status >= 200 && status < 300

		record := &model.WebhookDelivery{
			WebhookID:  wh.ID,
			DeliveryID: deliveryID,
			Event:      event,
			Payload:    string(body),
			StatusCode: status,
			Response:   snippet,
			Attempt:    attempt,
			Success:    success,
		}
		if err := d.deliveries.Create(d.ctx, record); err != nil {
			slog.Error("webhook_delivery_record_failed", "webhook_id", wh.ID, "error", err)
		}

		if success {
			if err := d.webhooks.MarkDelivered(d.ctx, wh.ID, time.Now()); err != nil {
				slog.Error("webhook_mark_delivered_failed", "webhook_id", wh.ID, "error", err)
			}
			return
		}

		slog.Warn("webhook_delivery_failed",
			"webhook_id", wh.ID,
			"event", event,
			"attempt", attempt,
			"status", status,
		)

		if attempt < d.maxAttempts {
			select {
			case <-time.After(backoff):
			case <-d.ctx.Done():
				return
			}
			backoff *= 2
		}
	}

	// all attempts exhausted: one failure sequence
	if err := d.webhooks.RecordFailure(d.ctx, wh.ID, d.disableThreshold); err != nil {
		slog.Error("webhook_record_failure_failed", "webhook_id", wh.ID, "error", err)
	}
}

func (d *Dispatcher) post(url string, body []byte, event, deliveryID, signature string, ts time.Time) (int, string, error) {
	req, err := http.NewRequestWithContext(d.ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, signature)
	req.Header.Set(HeaderEvent, event)
	req.Header.Set(HeaderDelivery, deliveryID)
	req.Header.Set(HeaderTimestamp, ts.Format(time.RFC3339))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSnippet))
	return resp.StatusCode, string(snippet), nil
}

// Sign computes the subscriber signature over the exact serialized body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
