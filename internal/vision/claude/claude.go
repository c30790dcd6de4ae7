package claude

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/cenkalti/backoff/v4"
	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/smartchef/internal/chef"
	chefclaude "github.com/vbonduro/smartchef/internal/chef/claude"
	"github.com/vbonduro/smartchef/internal/vision"
)

// maxTokens comfortably covers one short line per ingredient in a full fridge.
const maxTokens = 1024

type Detector struct {
	client  *anthropic.Client
	model   string
	backOff func() backoff.BackOff
}

// NewDetector builds a detector on the Anthropic Messages API. An empty
// baseURL uses the public endpoint.
func NewDetector(apiKey, model, baseURL string) *Detector {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &Detector{
		client:  anthropic.NewClient(apiKey, opts...),
		model:   model,
		backOff: chef.DefaultBackOff,
	}
}

func (d *Detector) Detect(ctx context.Context, r io.Reader, mimeType string) (*vision.DetectionResult, error) {
	imageData, err := vision.ReadImage(r)
	if err != nil {
		return nil, err
	}

	req := anthropic.MessagesRequest{
		Model:     anthropic.Model(d.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					normaliseMIME(mimeType),
					base64.StdEncoding.EncodeToString(imageData),
				)),
				anthropic.NewTextMessageContent(vision.DetectionPrompt),
			},
		}},
	}

	var resp anthropic.MessagesResponse
	err = chef.Retry(ctx, d.backOff(), chefclaude.IsTransient, func() error {
		var callErr error
		resp, callErr = d.client.CreateMessages(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call claude: %w", err)
	}

	responseText := resp.GetFirstContentText()
	return &vision.DetectionResult{
		Ingredients: vision.ParseResponse(responseText),
		RawResponse: responseText,
	}, nil
}

// normaliseMIME maps browser MIME types to the values the Anthropic API accepts.
// Unknown types are coerced to jpeg.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
