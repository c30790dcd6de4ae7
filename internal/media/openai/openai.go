package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/vbonduro/smartchef/internal/media"
)

// maxSpeechInput is the longest text the speech endpoint accepts.
const maxSpeechInput = 4096

type Illustrator struct {
	client *openai.Client
	model  string
}

func NewIllustrator(client *openai.Client, model string) *Illustrator {
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	return &Illustrator{client: client, model: model}
}

func (i *Illustrator) Illustrate(ctx context.Context, dish string) ([]byte, string, error) {
	resp, err := i.client.CreateImage(ctx, openai.ImageRequest{
		Model:          i.model,
		Prompt:         media.IllustrationPrompt(dish),
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, "", fmt.Errorf("openai returned no image data")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return data, "image/png", nil
}

type Narrator struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
}

func NewNarrator(client *openai.Client, model, voice string) *Narrator {
	if model == "" {
		model = string(openai.TTSModel1)
	}
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}
	return &Narrator{client: client, model: openai.SpeechModel(model), voice: openai.SpeechVoice(voice)}
}

func (n *Narrator) Speak(ctx context.Context, text string) ([]byte, string, error) {
	if runes := []rune(text); len(runes) > maxSpeechInput {
		text = string(runes[:maxSpeechInput])
	}

	resp, err := n.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          n.model,
		Input:          text,
		Voice:          n.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to synthesise speech: %w", err)
	}
	defer func() {
		if err := resp.Close(); err != nil {
			slog.Error("failed to close speech response", "error", err)
		}
	}()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read speech: %w", err)
	}
	return audio, "audio/mpeg", nil
}
