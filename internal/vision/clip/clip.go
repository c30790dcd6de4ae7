// Package clip classifies fridge photos against a fixed ingredient
// vocabulary with a hosted zero-shot CLIP model.
package clip

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/vbonduro/smartchef/internal/vision"
)

const DefaultEndpoint = "https://api-inference.huggingface.co/models/openai/clip-vit-base-patch32"

const DefaultThreshold = 0.01

// Candidates is the ingredient vocabulary the classifier scores.
var Candidates = []string{
	"lettuce", "tomato", "cucumber", "olive oil", "banana", "strawberry", "yogurt", "honey",
	"cheese", "bread", "egg", "chicken", "beef", "pork", "fish", "garlic", "onion", "carrot",
	"potato", "bell pepper", "spinach", "mushroom", "avocado", "rice", "pasta", "milk", "butter",
	"flour", "sugar", "salt", "pepper", "chocolate", "bacon", "sausage", "apple", "orange", "grapes",
	"peanut butter", "almond", "walnut", "blueberry", "raspberry", "blackberry", "cabbage", "zucchini",
}

type Detector struct {
	endpoint   string
	token      string
	threshold  float64
	candidates []string
	client     *http.Client
	maxRetries uint64
}

// NewDetector builds a classifier. Labels scoring at or below threshold are
// dropped.
func NewDetector(endpoint, token string, threshold float64) *Detector {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Detector{
		endpoint:   endpoint,
		token:      token,
		threshold:  threshold,
		candidates: Candidates,
		client:     &http.Client{Timeout: 60 * time.Second},
		maxRetries: 3,
	}
}

type classifyRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters classifyParams `json:"parameters"`
}

type classifyParams struct {
	CandidateLabels []string `json:"candidate_labels"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (d *Detector) Detect(ctx context.Context, r io.Reader, mimeType string) (*vision.DetectionResult, error) {
	imageData, err := vision.ReadImage(r)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(classifyRequest{
		Inputs:     base64.StdEncoding.EncodeToString(imageData),
		Parameters: classifyParams{CandidateLabels: d.candidates},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var raw []byte
	op := func() error {
		raw, err = d.classify(ctx, payload)
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), d.maxRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}

	var scores []labelScore
	if err := json.Unmarshal(raw, &scores); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })

	result := &vision.DetectionResult{
		Ingredients: make([]vision.DetectedIngredient, 0),
		RawResponse: string(raw),
	}
	for _, s := range scores {
		if s.Score > d.threshold {
			result.Ingredients = append(result.Ingredients, vision.DetectedIngredient{
				Name:       s.Label,
				Confidence: s.Score,
			})
		}
	}
	return result, nil
}

// classify makes one inference call. A 503 means the model is still loading
// and is retried; other failures are permanent.
func (d *Detector) classify(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call classifier: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close classifier response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests:
		slog.Warn("classifier not ready, retrying", "status", resp.StatusCode)
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	default:
		return nil, backoff.Permanent(fmt.Errorf("classifier returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body))))
	}
}
