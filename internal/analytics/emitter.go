package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Emitter is the fire-and-forget analytics side channel. Implementations must
// never fail the caller: emission errors are swallowed locally and do not
// affect control flow.
type Emitter interface {
	Emit(ctx context.Context, distinctID, event string, properties map[string]any)
}

// New returns a PostHog-backed emitter, or a no-op one when no API key is
// configured. Callers hold an Emitter either way and never branch on whether
// analytics is enabled.
func New(apiKey, host string, logger zerolog.Logger) Emitter {
	if strings.TrimSpace(apiKey) == "" {
		return Noop{}
	}
	return &PostHog{
		apiKey:   apiKey,
		endpoint: strings.TrimRight(host, "/") + "/capture/",
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger,
	}
}

// Noop discards every event.
type Noop struct{}

func (Noop) Emit(context.Context, string, string, map[string]any) {}

// PostHog posts capture events to the PostHog HTTP API.
type PostHog struct {
	apiKey   string
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
}

type captureEvent struct {
	APIKey     string         `json:"api_key"`
	Event      string         `json:"event"`
	DistinctID string         `json:"distinct_id"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  string         `json:"timestamp"`
}

// Emit delivers the event in a background goroutine. The request context is
// deliberately not reused: an event outlives its originating request.
func (p *PostHog) Emit(_ context.Context, distinctID, event string, properties map[string]any) {
	payload := captureEvent{
		APIKey:     p.apiKey,
		Event:      event,
		DistinctID: distinctID,
		Properties: properties,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		body, err := json.Marshal(payload)
		if err != nil {
			p.logger.Debug().Err(err).Str("event", event).Msg("analytics encode failed")
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := p.client.Do(req)
		if err != nil {
			p.logger.Debug().Err(err).Str("event", event).Msg("analytics delivery failed")
			return
		}
		_ = resp.Body.Close()
	}()
}

var (
	_ Emitter = Noop{}
	_ Emitter = (*PostHog)(nil)
)
