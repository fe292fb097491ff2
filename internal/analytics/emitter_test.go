package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewWithoutKeyIsNoop(t *testing.T) {
	if _, ok := New("", "https://app.posthog.com", zerolog.Nop()).(Noop); !ok {
		t.Fatal("empty api key should produce the noop emitter")
	}
	if _, ok := New("   ", "https://app.posthog.com", zerolog.Nop()).(Noop); !ok {
		t.Fatal("blank api key should produce the noop emitter")
	}
}

func TestPostHogEmitDeliversCapture(t *testing.T) {
	received := make(chan captureEvent, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/capture/" {
			t.Errorf("path = %q, want /capture/", r.URL.Path)
		}
		var ev captureEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			t.Errorf("decode capture: %v", err)
		}
		received <- ev
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	emitter := New("phc_test", srv.URL, zerolog.Nop())
	emitter.Emit(context.Background(), "u1", "message_sent", map[string]any{"plan": "Pro"})

	select {
	case ev := <-received:
		if ev.APIKey != "phc_test" || ev.Event != "message_sent" || ev.DistinctID != "u1" {
			t.Fatalf("unexpected capture event: %+v", ev)
		}
		if ev.Properties["plan"] != "Pro" {
			t.Fatalf("properties = %v", ev.Properties)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("capture event never arrived")
	}
}

func TestPostHogEmitSwallowsDeliveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	emitter := New("phc_test", srv.URL, zerolog.Nop())
	// Must not panic or block the caller.
	emitter.Emit(context.Background(), "u1", "message_sent", nil)
	time.Sleep(50 * time.Millisecond)
}
