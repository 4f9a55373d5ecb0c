package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.URL = url + "/api/generate"
	cfg.Model = "test-model"
	cfg.Timeout = 2 * time.Second
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RetryMaxDelay = 5 * time.Millisecond
	return cfg
}

func newTestClient(t *testing.T, cfg Config, sleeps *[]time.Duration) *Client {
	t.Helper()
	var mu sync.Mutex
	client, err := NewClient(cfg, WithSleeper(func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		if sleeps != nil {
			*sleeps = append(*sleeps, d)
		}
	}))
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(DefaultConfig())
	require.NoError(t, err)
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, DefaultModel, client.Model())

	// Test with invalid config
	_, err = NewClient(Config{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestConfigValidate(t *testing.T) {
	hot := 3.0
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative url", func(c *Config) { c.URL = "localhost:11434/api/generate" }},
		{"missing model", func(c *Config) { c.Model = "" }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }},
		{"negative delay", func(c *Config) { c.RetryBaseDelay = -time.Second }},
		{"temperature", func(c *Config) { c.Temperature = &hot }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGenerate_Success(t *testing.T) {
	temperature := 0.2
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body["model"])
		assert.Equal(t, "translate me", body["prompt"])
		assert.Equal(t, false, body["stream"])
		assert.Equal(t, map[string]any{"temperature": 0.2}, body["options"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"test-model","response":"Hallo wereld","done":true}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Temperature = &temperature
	client := newTestClient(t, cfg, nil)

	text, err := client.Generate(context.Background(), "translate me")
	require.NoError(t, err)
	assert.Equal(t, "Hallo wereld", text)
}

func TestGenerate_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("loading model"))
		case 2:
			_, _ = w.Write([]byte(`{"response": "truncated`))
		default:
			_, _ = w.Write([]byte(`{"response":"Hallo"}`))
		}
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := newTestClient(t, testConfig(server.URL), &sleeps)

	text, err := client.Generate(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hallo", text)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, sleeps)
}

func TestGenerate_AlwaysTimingOutExhausts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-r.Context().Done()
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond
	cfg.MaxAttempts = 3
	client := newTestClient(t, cfg, nil)

	start := time.Now()
	_, err := client.Generate(context.Background(), "Hello")
	elapsed := time.Since(start)

	var clientErr *ClientError
	require.True(t, errors.As(err, &clientErr), "got %v", err)
	assert.Equal(t, Exhausted, clientErr.Kind)
	assert.Equal(t, 3, clientErr.Attempts)
	assert.Equal(t, int32(3), calls.Load())

	bound := cfg.Timeout*time.Duration(cfg.MaxAttempts) + NewRetrier(cfg.RetryPolicy()).MaxTotalDelay()
	assert.Less(t, elapsed, bound+time.Second)
}

func TestGenerate_EmptyResponseNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"response":"  \n "}`))
	}))
	defer server.Close()

	client := newTestClient(t, testConfig(server.URL), nil)

	_, err := client.Generate(context.Background(), "Hello")
	assert.True(t, IsKind(err, EmptyResponse))
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerate_APIErrorFieldIsTransient(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"test-model\" not found"}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxAttempts = 2
	client := newTestClient(t, cfg, nil)

	_, err := client.Generate(context.Background(), "Hello")
	assert.True(t, IsKind(err, Exhausted))
	assert.Contains(t, err.Error(), "http 404")
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerate_ParentCancelStopsRetrying(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		cancel()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxAttempts = 5
	client := newTestClient(t, cfg, nil)

	_, err := client.Generate(ctx, "Hello")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"qwen3:30b-a3b","model":"qwen3:30b-a3b"},{"name":"llama3:latest"}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, testConfig(server.URL), nil)
	models, err := client.Ping(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.True(t, HasModel(models, "qwen3:30b-a3b"))
	assert.True(t, HasModel(models, "llama3"))
	assert.False(t, HasModel(models, "mistral"))
}

func TestTagsURL(t *testing.T) {
	got, err := tagsURL("http://127.0.0.1:11434/api/generate")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:11434/api/tags", got)

	got, err = tagsURL("https://llm.example.com/ollama/api/generate/?x=1")
	require.NoError(t, err)
	assert.Equal(t, "https://llm.example.com/ollama/api/tags", got)

	got, err = tagsURL("http://gpu-box:8080/custom")
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:8080/api/tags", got)
}

func TestParseRetryAfter(t *testing.T) {
	d, ok := parseRetryAfter("3")
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, d)

	_, ok = parseRetryAfter("")
	assert.False(t, ok)
	_, ok = parseRetryAfter("soon")
	assert.False(t, ok)
}
