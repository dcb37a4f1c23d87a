package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/domstage/event"
)

func TestStdout_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)

	ctx := context.Background()
	for _, kind := range []event.Kind{event.KindSessionStarted, event.KindPhraseTyped} {
		if err := s.Send(ctx, event.Event{Kind: kind, SessionID: "s1"}); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("lines: got %d, want 2", len(lines))
	}
	var e event.Event
	if err := json.Unmarshal(lines[1], &e); err != nil {
		t.Fatalf("unmarshal line: %v", err)
	}
	if e.Kind != event.KindPhraseTyped {
		t.Errorf("Kind: got %q, want %q", e.Kind, event.KindPhraseTyped)
	}
}

func TestRouter_FansOutAndKeepsFirstError(t *testing.T) {
	var delivered atomic.Int64
	boom := errors.New("boom")

	failing := NewCallback(func(ctx context.Context, e event.Event) error { return boom })
	counting := NewCallback(func(ctx context.Context, e event.Event) error {
		delivered.Add(1)
		return nil
	})

	r := NewRouter(nil, failing, counting)
	err := r.Send(context.Background(), event.Event{Kind: event.KindScrollTo})
	if !errors.Is(err, boom) {
		t.Errorf("Send error: got %v, want boom", err)
	}
	if delivered.Load() != 1 {
		t.Errorf("delivered: got %d, want 1 (second sink still reached)", delivered.Load())
	}
}

func TestCallback_NilHandler(t *testing.T) {
	c := NewCallback(nil)
	if err := c.Send(context.Background(), event.Event{}); err != nil {
		t.Fatalf("Send with nil handler: %v", err)
	}
}

func TestWebhook_DeliversEvent(t *testing.T) {
	var got event.Event
	var delivery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivery = r.Header.Get("X-Domstage-Delivery")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL)
	err := w.Send(context.Background(), event.Event{Kind: event.KindNavbarChanged, State: "scrolled"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.Kind != event.KindNavbarChanged || got.State != "scrolled" {
		t.Errorf("received event: got %+v", got)
	}
	if delivery == "" {
		t.Errorf("delivery header missing")
	}
}

func TestWebhook_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond))
	if err := w.Send(context.Background(), event.Event{Kind: event.KindScrollTo}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls: got %d, want 2", calls.Load())
	}
}

func TestWebhook_ExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookRetries(1), WithWebhookBackoff(time.Millisecond))
	err := w.Send(context.Background(), event.Event{})
	if err == nil {
		t.Fatal("Send: got nil error, want exhausted retries")
	}
}
