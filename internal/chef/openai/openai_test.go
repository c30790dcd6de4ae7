package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/smartchef/internal/chef"
)

const completion = `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  Recipe: Toast\n"},"finish_reason":"stop"}]}`

func newTestGenerator(url string) *Generator {
	cfg := openai.DefaultConfig("sk-test")
	cfg.BaseURL = url + "/v1"
	g := NewGenerator(openai.NewClientWithConfig(cfg), "gpt-4o-mini")
	g.backOff = func() backoff.BackOff { return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2) }
	return g
}

func TestGenerate(t *testing.T) {
	var got openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion))
	}))
	defer server.Close()

	g := newTestGenerator(server.URL)

	out, err := g.Generate(context.Background(), chef.Request{Ingredients: []string{"bread"}, Format: chef.FormatEnglish})
	require.NoError(t, err)
	assert.Equal(t, "Recipe: Toast", out)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Contains(t, got.Messages[1].Content, "bread")
	assert.Nil(t, got.ResponseFormat)
	assert.Less(t, got.Temperature, float32(0.001))
}

func TestGenerateJSONFormat(t *testing.T) {
	var got openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion))
	}))
	defer server.Close()

	_, err := newTestGenerator(server.URL).Generate(context.Background(), chef.Request{Ingredients: []string{"egg"}, Format: chef.FormatJSON})
	require.NoError(t, err)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, got.ResponseFormat.Type)
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
			return
		}
		_, _ = w.Write([]byte(completion))
	}))
	defer server.Close()

	out, err := newTestGenerator(server.URL).Generate(context.Background(), chef.Request{Ingredients: []string{"egg"}, Format: chef.FormatEnglish})
	require.NoError(t, err)
	assert.Equal(t, "Recipe: Toast", out)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	_, err := newTestGenerator(server.URL).Generate(context.Background(), chef.Request{Ingredients: []string{"egg"}, Format: chef.FormatEnglish})
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(&openai.APIError{HTTPStatusCode: http.StatusServiceUnavailable}))
	assert.False(t, isTransient(&openai.APIError{HTTPStatusCode: http.StatusUnauthorized}))
	assert.True(t, isTransient(&openai.RequestError{HTTPStatusCode: http.StatusBadGateway}))
	assert.False(t, isTransient(context.Canceled))
}
