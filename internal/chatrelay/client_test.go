package chatrelay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"server/internal/domain"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Options{APIKey: "test-key", BaseURL: baseURL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestCompleteReturnsReplyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing bearer token, got %q", got)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Hello"}}]}`))
	}))
	defer srv.Close()

	reply, err := newTestClient(t, srv.URL).Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if reply != "Hello" {
		t.Fatalf("got reply %q, want %q", reply, "Hello")
	}
}

func TestCompleteNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`rate limited`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Complete(context.Background(), "hi")
	var upstream *domain.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusTooManyRequests || upstream.Body != "rate limited" {
		t.Fatalf("unexpected error detail: %+v", upstream)
	}
}

func TestCompleteMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Complete(context.Background(), "hi")
	if !errors.Is(err, domain.ErrMalformedUpstreamResponse) {
		t.Fatalf("expected ErrMalformedUpstreamResponse, got %v", err)
	}
}

func TestCompleteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := newTestClient(t, srv.URL).Complete(context.Background(), "hi")
	if !errors.Is(err, domain.ErrUpstreamUnreachable) {
		t.Fatalf("expected ErrUpstreamUnreachable, got %v", err)
	}
}

func sseChunk(content string) string {
	return fmt.Sprintf(`data: {"choices":[{"delta":{"content":%q}}]}`+"\n\n", content)
}

func TestCompleteStreamForwardsCumulativeText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(w, sseChunk("Hel"))
		_, _ = fmt.Fprint(w, sseChunk("lo"))
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	var deltas []string
	var cumulative []string
	full, err := newTestClient(t, srv.URL).CompleteStream(context.Background(), "hi", func(delta, fullText string) error {
		deltas = append(deltas, delta)
		cumulative = append(cumulative, fullText)
		return nil
	})
	if err != nil {
		t.Fatalf("CompleteStream failed: %v", err)
	}
	if full != "Hello" {
		t.Fatalf("accumulated text %q, want %q", full, "Hello")
	}
	if len(deltas) != 2 || deltas[0] != "Hel" || deltas[1] != "lo" {
		t.Fatalf("unexpected deltas %#v", deltas)
	}
	if cumulative[0] != "Hel" || cumulative[1] != "Hello" {
		t.Fatalf("unexpected cumulative text %#v", cumulative)
	}
}

func TestCompleteStreamSkipsMalformedChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, sseChunk("Hel"))
		_, _ = fmt.Fprint(w, "data: {not json}\n\n")
		_, _ = fmt.Fprint(w, ": keep-alive comment\n\n")
		_, _ = fmt.Fprint(w, sseChunk("lo"))
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	full, err := newTestClient(t, srv.URL).CompleteStream(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("CompleteStream failed: %v", err)
	}
	if full != "Hello" {
		t.Fatalf("accumulated text %q, want %q", full, "Hello")
	}
}

func TestCompleteStreamWithoutSentinelStillAccumulates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, sseChunk("Hello"))
		// connection closes without [DONE]
	}))
	defer srv.Close()

	full, err := newTestClient(t, srv.URL).CompleteStream(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("natural close should not be an error: %v", err)
	}
	if full != "Hello" {
		t.Fatalf("accumulated text %q, want %q", full, "Hello")
	}
}

func TestCompleteStreamNonSuccessStatusAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`bad key`))
	}))
	defer srv.Close()

	called := false
	_, err := newTestClient(t, srv.URL).CompleteStream(context.Background(), "hi", func(string, string) error {
		called = true
		return nil
	})
	var upstream *domain.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if called {
		t.Fatal("handler must not run when the initial status is non-success")
	}
}

func TestCompleteStreamHandlerErrorStopsRelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, sseChunk("Hel"))
		_, _ = fmt.Fprint(w, sseChunk("lo"))
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	sentinel := errors.New("client gone")
	full, err := newTestClient(t, srv.URL).CompleteStream(context.Background(), "hi", func(string, string) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected handler error to surface, got %v", err)
	}
	// What was accumulated so far is still returned for best-effort saves.
	if full != "Hel" {
		t.Fatalf("partial text %q, want %q", full, "Hel")
	}
}
