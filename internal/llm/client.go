package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/batch-sub-translator/pkg/log"
)

const maxErrorBody = 512

// Client calls the Ollama generate endpoint.
// Thread-safe for concurrent use; one http.Client is shared so connections are reused.
type Client struct {
	config     Config
	httpClient *http.Client
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *log.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		if sleeper == nil {
			return
		}
		c.sleep = func(ctx context.Context, d time.Duration) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sleeper(d)
			return ctx.Err()
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new client with the given configuration
func NewClient(config Config, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client := &Client{
		config:     config,
		httpClient: &http.Client{},
		sleep:      sleepContext,
		logger:     log.GetLogger(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.config.Model
}

// Generate sends prompt to the model and returns its raw response text.
//
// Transport errors, timeouts, non-2xx statuses and malformed bodies are
// retried with exponential backoff; when every attempt fails the error is a
// *ClientError of kind Exhausted. An empty response is a *ClientError of kind
// EmptyResponse and is not retried. Cancelling ctx stops retrying and returns
// the context error.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	retrier := NewRetrier(c.config.RetryPolicy())

	var text string
	for {
		var err error
		text, err = c.generateOnce(ctx, prompt)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		delay, again := retrier.Record(err)
		if !again {
			break
		}
		c.logger.Debug("generate attempt %d/%d failed, retrying in %s: %v",
			retrier.Attempt()-1, c.config.MaxAttempts, delay, err)
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	if err := retrier.Result(); err != nil {
		return "", err
	}
	return text, nil
}

func (c *Client) generateOnce(ctx context.Context, prompt string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	payload := generateRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		Stream: false,
	}
	if c.config.Temperature != nil {
		payload.Options = map[string]any{"temperature": *c.config.Temperature}
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.config.URL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transient(fmt.Errorf("request failed (timeout=%s): %w", c.config.Timeout, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transient(fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return "", transient(&httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), maxErrorBody),
			RetryAfter: retryAfter,
		})
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", transient(fmt.Errorf("decode response: %w", err))
	}
	if parsed.Error != "" {
		return "", transient(fmt.Errorf("api error: %s", parsed.Error))
	}
	if strings.TrimSpace(parsed.Response) == "" {
		return "", &ClientError{Kind: EmptyResponse}
	}

	return parsed.Response, nil
}

// Ping checks that the server answers and returns the installed models.
func (c *Client) Ping(ctx context.Context) ([]ModelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	endpoint, err := tagsURL(c.config.URL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ping %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ping %s: %w", endpoint, &httpStatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), maxErrorBody)})
	}

	var tags tagsResponse
	if err := json.Unmarshal(body, &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return tags.Models, nil
}

// HasModel reports whether models contains name. Names without a tag match ":latest".
func HasModel(models []ModelInfo, name string) bool {
	for _, m := range models {
		if m.Name == name || m.Model == name {
			return true
		}
		if !strings.Contains(name, ":") && (m.Name == name+":latest" || m.Model == name+":latest") {
			return true
		}
	}
	return false
}

// tagsURL derives the model listing endpoint from the generate URL.
func tagsURL(generateURL string) (string, error) {
	u, err := url.Parse(generateURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	path := strings.TrimSuffix(u.Path, "/")
	if strings.HasSuffix(path, "/generate") {
		u.Path = strings.TrimSuffix(path, "/generate") + "/tags"
	} else {
		u.Path = "/api/tags"
	}
	u.RawQuery = ""
	return u.String(), nil
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
