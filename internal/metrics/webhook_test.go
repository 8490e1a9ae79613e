package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestWebhookFlushOnBatchSize(t *testing.T) {
	var mu sync.Mutex
	var batches [][]webhookCount
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch []webhookCount
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			t.Errorf("decode batch: %v", err)
		}
		mu.Lock()
		batches = append(batches, batch)
		mu.Unlock()
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, WithWebhookBatchSize(2), WithWebhookFlushInterval(time.Hour))
	wh.Incr("a", 1.0, Tags{"k": "v"})
	wh.Incr("b", 1.0, nil)

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("expected one batch of 2, got %v", batches)
	}
	if batches[0][0].Name != "a" || batches[0][0].Tags["k"] != "v" {
		t.Errorf("unexpected first count: %+v", batches[0][0])
	}
}

func TestWebhookFlushOnClose(t *testing.T) {
	received := make(chan int, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch []webhookCount
		json.NewDecoder(r.Body).Decode(&batch)
		received <- len(batch)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, WithWebhookFlushInterval(time.Hour))
	wh.Incr("a", 1.0, nil)
	wh.Close()

	select {
	case n := <-received:
		if n != 1 {
			t.Errorf("expected 1 count in the final flush, got %d", n)
		}
	default:
		t.Fatal("Close should flush pending counters")
	}
}

func TestWebhookSurvivesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, WithWebhookBatchSize(1))
	// Must not panic or block; the batch is dropped with a warning.
	wh.Incr("a", 1.0, nil)
	wh.Close()
}
