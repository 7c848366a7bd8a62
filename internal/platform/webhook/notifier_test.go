package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func TestNotifyDeliversSignedEvent(t *testing.T) {
	const secret = "test-secret"

	var gotBody []byte
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get("X-Webhook-Signature")
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-Webhook-ID") == "" {
			t.Error("missing X-Webhook-ID header")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, secret, zerolog.Nop())
	n.Notify(context.Background(), "session.escalated", map[string]string{"session_id": "abc"})

	if len(gotBody) == 0 {
		t.Fatal("no delivery received")
	}

	var event Event
	if err := json.Unmarshal(gotBody, &event); err != nil {
		t.Fatal(err)
	}
	if event.Type != "session.escalated" || event.ID == "" {
		t.Errorf("event = %+v", event)
	}

	const prefix = "sha256="
	if len(gotSig) <= len(prefix) || gotSig[:len(prefix)] != prefix {
		t.Fatalf("signature header = %q", gotSig)
	}
	if !VerifySignature(gotBody, secret, gotSig[len(prefix):]) {
		t.Error("signature does not verify against delivered body")
	}
}

func TestNotifyRetriesOnFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, "s", zerolog.Nop(), WithMaxAttempts(3))
	n.retryDelays = nil // no waiting in tests
	n.Notify(context.Background(), "session.escalated", map[string]string{})

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("endpoint called %d times, want 3", got)
	}
}

func TestNotifyGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, "s", zerolog.Nop(), WithMaxAttempts(2))
	n.retryDelays = nil
	n.Notify(context.Background(), "session.escalated", map[string]string{})

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("endpoint called %d times, want 2", got)
	}
}

func TestSignAndVerify(t *testing.T) {
	payload := []byte(`{"hello":"world"}`)
	sig := SignPayload(payload, "secret")
	if !VerifySignature(payload, "secret", sig) {
		t.Error("valid signature rejected")
	}
	if VerifySignature(payload, "wrong-secret", sig) {
		t.Error("signature verified under wrong secret")
	}
	if VerifySignature([]byte("tampered"), "secret", sig) {
		t.Error("signature verified for tampered payload")
	}
}
