// Package chatrelay talks to the upstream chat-completion API (DeepSeek,
// OpenAI-compatible wire format) in both single-shot and streaming mode.
package chatrelay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

const (
	defaultBaseURL = "https://api.deepseek.com"
	defaultModel   = "deepseek-chat"

	systemPrompt = "You are a helpful assistant."
	doneSentinel = "[DONE]"

	completeTimeout = 30 * time.Second
	streamTimeout   = 60 * time.Second
)

// StreamHandler receives each increment as it arrives, together with the
// cumulative text so far. Returning an error stops the relay.
type StreamHandler func(delta, fullText string) error

// Client is the upstream chat-completions client.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	logger  zerolog.Logger
}

// Options configures the upstream client.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("chatrelay: api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		// No client-level timeout: streaming reads are bounded per call
		// through the request context instead.
		client = &http.Client{}
	}
	return &Client{
		apiKey:  opts.APIKey,
		baseURL: baseURL,
		model:   model,
		client:  client,
		logger:  opts.Logger,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Complete performs one non-streaming round trip and returns the reply text.
func (c *Client) Complete(ctx context.Context, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, completeTimeout)
	defer cancel()

	resp, err := c.post(ctx, message, false)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &domain.UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode: %v", domain.ErrMalformedUpstreamResponse, err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: missing completion text", domain.ErrMalformedUpstreamResponse)
	}
	return out.Choices[0].Message.Content, nil
}

// CompleteStream opens a fresh upstream connection, forwards every text delta
// through the handler as it is produced, and returns the accumulated full
// text once the upstream emits its termination sentinel or closes the stream.
//
// The accumulated text is returned even on a mid-stream error so the caller
// can persist a partially delivered reply best-effort. Malformed chunks are
// skipped; only a non-success initial status aborts the whole stream.
func (c *Client) CompleteStream(ctx context.Context, message string, handler StreamHandler) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, streamTimeout)
	defer cancel()

	resp, err := c.post(ctx, message, true)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &domain.UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		if data == doneSentinel {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}

		full.WriteString(delta)
		if handler != nil {
			if err := handler(delta, full.String()); err != nil {
				return full.String(), fmt.Errorf("stream handler: %w", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("%w: stream read: %v", domain.ErrUpstreamUnreachable, err)
	}

	return full.String(), nil
}

func (c *Client) post(ctx context.Context, message string, stream bool) (*http.Response, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: message},
		},
		Stream: stream,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("chatrelay: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("chatrelay: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnreachable, err)
	}
	return resp, nil
}
