package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = 5 * time.Second
	defaultTimeout       = 10 * time.Second
)

// WebhookOption configures a Webhook sink.
type WebhookOption func(*Webhook)

// WithWebhookHeaders sets custom HTTP headers sent with every POST.
func WithWebhookHeaders(h map[string]string) WebhookOption {
	return func(w *Webhook) { w.headers = h }
}

// WithWebhookBatchSize sets the number of counters accumulated before a
// flush. Default: 100.
func WithWebhookBatchSize(n int) WebhookOption {
	return func(w *Webhook) { w.batchSize = n }
}

// WithWebhookFlushInterval sets the maximum time between flushes. Default: 5s.
func WithWebhookFlushInterval(d time.Duration) WebhookOption {
	return func(w *Webhook) { w.flushInterval = d }
}

// Webhook POSTs batched counter increments to an HTTP endpoint as a JSON
// array. Increments accumulate in an internal buffer and are flushed when
// batchSize is reached or flushInterval elapses. Failures are logged and
// dropped: a metrics outage must never touch the decision path.
type Webhook struct {
	client        *http.Client
	url           string
	headers       map[string]string
	batchSize     int
	flushInterval time.Duration

	mu      sync.Mutex
	pending []webhookCount
	timer   *time.Timer
}

type webhookCount struct {
	Name string            `json:"name"`
	Tags map[string]string `json:"tags,omitempty"`
	At   time.Time         `json:"at"`
}

// NewWebhook creates a webhook sink targeting the given URL.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		client:        &http.Client{Timeout: defaultTimeout},
		url:           url,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Incr implements Sink. When batchSize is reached, the batch is flushed
// immediately; otherwise a timer started on the first increment flushes it.
func (w *Webhook) Incr(name string, sampleRate float64, tags Tags) {
	if !sampled(sampleRate) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, webhookCount{Name: name, Tags: tags, At: time.Now()})

	if len(w.pending) >= w.batchSize {
		w.flushLocked()
		return
	}
	if len(w.pending) == 1 {
		w.timer = time.AfterFunc(w.flushInterval, func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			w.flushLocked()
		})
	}
}

// Close flushes any remaining counters and stops the timer.
func (w *Webhook) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushLocked()
	return nil
}

// flushLocked sends the pending batch. Caller must hold w.mu.
func (w *Webhook) flushLocked() {
	if len(w.pending) == 0 {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}

	batch := w.pending
	w.pending = nil

	if err := w.post(batch); err != nil {
		slog.Warn("metrics webhook flush failed", "error", err, "dropped", len(batch))
	}
}

func (w *Webhook) post(batch []webhookCount) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("metrics: marshal batch: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("metrics: webhook HTTP %d", resp.StatusCode)
	}
	return nil
}
