package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"

	"github.com/vbonduro/smartchef/internal/vision"
)

const maxTokens = 1024

// Detector asks a vision-capable chat model to list the ingredients in a photo.
type Detector struct {
	client *openai.Client
	model  string
}

func NewDetector(client *openai.Client, model string) *Detector {
	return &Detector{client: client, model: model}
}

func (d *Detector) Detect(ctx context.Context, r io.Reader, mimeType string) (*vision.DetectionResult, error) {
	imageData, err := vision.ReadImage(r)
	if err != nil {
		return nil, err
	}

	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(imageData)
	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     d.model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: vision.DetectionPrompt},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailAuto,
					},
				},
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	responseText := resp.Choices[0].Message.Content
	return &vision.DetectionResult{
		Ingredients: vision.ParseResponse(responseText),
		RawResponse: responseText,
	}, nil
}
