package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/smartchef/internal/vision"
)

// messagesServer fakes the Messages API, replying with text.
func messagesServer(t *testing.T, text string, captured *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		if captured != nil {
			_ = json.NewDecoder(r.Body).Decode(captured)
		}
		resp := map[string]interface{}{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-test",
			"stop_reason": "end_turn",
			"content": []map[string]interface{}{
				{"type": "text", "text": text},
			},
			"usage": map[string]int{"input_tokens": 10, "output_tokens": 5},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
}

func TestClaudeDetect(t *testing.T) {
	var req map[string]interface{}
	server := messagesServer(t, "Milk | opened\nButter", &req)
	defer server.Close()

	detector := NewDetector("sk-test", "claude-test", server.URL)

	result, err := detector.Detect(context.Background(), bytes.NewReader([]byte{0xFF, 0xD8}), "image/webp")
	require.NoError(t, err)
	require.Len(t, result.Ingredients, 2)
	assert.Equal(t, "Milk", result.Ingredients[0].Name)
	assert.Equal(t, "opened", result.Ingredients[0].Notes)
	assert.Equal(t, "Butter", result.Ingredients[1].Name)
	assert.Equal(t, "claude-test", req["model"])

	messages := req["messages"].([]interface{})
	content := messages[0].(map[string]interface{})["content"].([]interface{})
	image := content[0].(map[string]interface{})
	assert.Equal(t, "image", image["type"])
	assert.Equal(t, "image/webp", image["source"].(map[string]interface{})["media_type"])
}

func newTestDetector(url string) *Detector {
	d := NewDetector("sk-test", "claude-test", url)
	d.backOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
	}
	return d
}

func TestClaudeDetectRetriesOverload(t *testing.T) {
	var calls int32
	ok := messagesServer(t, "Eggs", nil)
	defer ok.Close()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "overloaded", 529)
			return
		}
		ok.Config.Handler.ServeHTTP(w, r)
	}))
	defer server.Close()

	result, err := newTestDetector(server.URL).Detect(context.Background(), bytes.NewReader([]byte{0xFF, 0xD8}), "image/jpeg")
	require.NoError(t, err)
	require.Len(t, result.Ingredients, 1)
	assert.Equal(t, "Eggs", result.Ingredients[0].Name)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClaudeDetectAPIError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{name: "rate limited until retries run out", status: http.StatusTooManyRequests, wantCalls: 3},
		{name: "bad request is not retried", status: http.StatusBadRequest, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				http.Error(w, http.StatusText(tt.status), tt.status)
			}))
			defer server.Close()

			_, err := newTestDetector(server.URL).Detect(context.Background(), bytes.NewReader([]byte{0xFF, 0xD8}), "image/jpeg")
			assert.Error(t, err)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestClaudeDetectReadError(t *testing.T) {
	detector := NewDetector("sk-test", "claude-test", "")

	_, err := detector.Detect(context.Background(), &errReader{}, "image/jpeg")
	assert.Error(t, err)

	_, err = detector.Detect(context.Background(), bytes.NewReader(nil), "image/jpeg")
	assert.ErrorIs(t, err, vision.ErrEmptyImage)
}

func TestNormaliseMIME(t *testing.T) {
	assert.Equal(t, "image/png", normaliseMIME("image/png"))
	assert.Equal(t, "image/jpeg", normaliseMIME("image/heic"))
}

// errReader always returns an error on Read.
type errReader struct{}

func (e *errReader) Read(_ []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}
