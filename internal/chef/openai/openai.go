package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"

	"github.com/vbonduro/smartchef/internal/chef"
)

// Generator asks an OpenAI chat model for recipes.
type Generator struct {
	client  *openai.Client
	model   string
	backOff func() backoff.BackOff
}

func NewGenerator(client *openai.Client, model string) *Generator {
	return &Generator{client: client, model: model, backOff: chef.DefaultBackOff}
}

func (g *Generator) Generate(ctx context.Context, req chef.Request) (string, error) {
	prompt, err := chef.BuildPrompt(req)
	if err != nil {
		return "", err
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: prompt.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt.User})

	creq := openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: messages,
		// A zero temperature is dropped from the request body.
		Temperature: math.SmallestNonzeroFloat32,
	}
	if req.Format == chef.FormatJSON {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	var resp openai.ChatCompletionResponse
	err = chef.Retry(ctx, g.backOff(), isTransient, func() error {
		var callErr error
		resp, callErr = g.client.CreateChatCompletion(ctx, creq)
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("failed to call openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// isTransient reports whether err is worth retrying: rate limits, server
// errors and transport failures.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return true
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
