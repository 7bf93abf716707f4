// Package ollama is a minimal client for the local Ollama REST API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// DefaultHost is where Ollama listens unless OLLAMA_HOST says otherwise.
const DefaultHost = "http://localhost:11434"

// ErrModelNotFound is returned when the requested model is not pulled.
var ErrModelNotFound = errors.New("model not found")

// Client talks to one Ollama server.
type Client struct {
	baseURL     string
	client      *http.Client
	maxRetries  int
	backoff     time.Duration
	temperature *float64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// WithRetry sets the retry count and the initial backoff.
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.backoff = backoff
	}
}

// WithTemperature sets the sampling temperature sent with chat requests.
func WithTemperature(t float64) Option {
	return func(c *Client) { c.temperature = &t }
}

// New creates a client for host, e.g. "http://localhost:11434".
func New(host string, opts ...Option) *Client {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		host = DefaultHost
	}
	c := &Client{
		baseURL:    host,
		client:     &http.Client{Timeout: 300 * time.Second},
		maxRetries: 3,
		backoff:    time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Host returns the server base URL.
func (c *Client) Host() string { return c.baseURL }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

type chatRequest struct {
	Model    string       `json:"model"`
	Messages []message    `json:"messages"`
	Stream   bool         `json:"stream"`
	Options  *chatOptions `json:"options,omitempty"`
}

type chatResponse struct {
	Message message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Chat sends one non-streaming chat turn and returns the reply text.
func (c *Client) Chat(ctx context.Context, model, system, user string) (string, error) {
	body := chatRequest{
		Model: model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	if c.temperature != nil {
		body.Options = &chatOptions{Temperature: c.temperature}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var reply string
	err = retryWithBackoff(ctx, c.maxRetries, c.backoff, func() error {
		respBody, err := c.do(ctx, http.MethodPost, "/api/chat", payload)
		if err != nil {
			if errors.Is(err, ErrModelNotFound) {
				return fmt.Errorf("%w: %s (try `ollama pull %s`)", ErrModelNotFound, model, model)
			}
			return err
		}

		var result chatResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
		if result.Error != "" {
			return fmt.Errorf("ollama: %s", result.Error)
		}
		// An empty reply is still a reply; the caller decides what it means.
		reply = result.Message.Content
		return nil
	})
	return reply, err
}

// Models lists locally available model names, sorted.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	var names []string
	err := retryWithBackoff(ctx, c.maxRetries, c.backoff, func() error {
		respBody, err := c.do(ctx, http.MethodGet, "/api/tags", nil)
		if err != nil {
			return err
		}
		var result tagsResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
		names = names[:0]
		for _, m := range result.Models {
			names = append(names, m.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot reach ollama at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &rateLimitError{}
	case resp.StatusCode >= 500:
		return nil, &serverError{statusCode: resp.StatusCode, body: errorText(respBody)}
	case resp.StatusCode == http.StatusNotFound && strings.Contains(errorText(respBody), "not found"):
		return nil, ErrModelNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, errorText(respBody))
	}
	return respBody, nil
}

func errorText(body []byte) string {
	var e errorBody
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
