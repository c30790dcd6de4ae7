package claude

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/smartchef/internal/chef"
)

const maxTokens = 4096

// Generator asks a Claude model for recipes.
type Generator struct {
	client  *anthropic.Client
	model   string
	backOff func() backoff.BackOff
}

// NewGenerator builds a generator on the Anthropic Messages API. An empty
// baseURL uses the public endpoint.
func NewGenerator(apiKey, model, baseURL string) *Generator {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &Generator{
		client:  anthropic.NewClient(apiKey, opts...),
		model:   model,
		backOff: chef.DefaultBackOff,
	}
}

func (g *Generator) Generate(ctx context.Context, req chef.Request) (string, error) {
	prompt, err := chef.BuildPrompt(req)
	if err != nil {
		return "", err
	}

	mreq := anthropic.MessagesRequest{
		Model:     anthropic.Model(g.model),
		System:    prompt.System,
		MaxTokens: maxTokens,
		Messages:  []anthropic.Message{anthropic.NewUserTextMessage(prompt.User)},
	}

	var resp anthropic.MessagesResponse
	err = chef.Retry(ctx, g.backOff(), IsTransient, func() error {
		var callErr error
		resp, callErr = g.client.CreateMessages(ctx, mreq)
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("failed to call claude: %w", err)
	}
	return strings.TrimSpace(resp.GetFirstContentText()), nil
}

// IsTransient reports whether an Anthropic API error is worth retrying: rate limits, overload,
// server errors and transport failures.
func IsTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRateLimitErr() || apiErr.IsOverloadedErr() || apiErr.IsApiErr()
	}
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode == http.StatusTooManyRequests || reqErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}
