// Package vision detects ingredients in photos of a fridge or pantry.
package vision

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// DetectionPrompt is the shared prompt used by the chat-model adapters.
const DetectionPrompt = `List every food ingredient you can see in this refrigerator/freezer/pantry photo.
Use short generic names (e.g. "egg", "milk", "bell pepper").
Respond in plain text, one ingredient per line, format: name | notes
Notes are optional (e.g. opened, half empty). Do not add any other text.`

// ErrEmptyImage is returned when the image reader yields no bytes.
var ErrEmptyImage = errors.New("empty image")

type Detector interface {
	Detect(ctx context.Context, r io.Reader, mimeType string) (*DetectionResult, error)
}

type DetectionResult struct {
	Ingredients []DetectedIngredient
	RawResponse string
}

// DetectedIngredient is one ingredient seen in a photo. Confidence is only
// reported by classifier backends; chat models leave it at zero.
type DetectedIngredient struct {
	Name       string
	Confidence float64
	Notes      string
}

// Names returns the ingredient names in detection order.
func (r *DetectionResult) Names() []string {
	names := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		names = append(names, ing.Name)
	}
	return names
}

// ReadImage drains r, rejecting empty input.
func ReadImage(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	return data, nil
}
