// Package chef turns an ingredient list, a health condition and a craving
// into recipe suggestions from a chat model.
package chef

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vbonduro/smartchef/internal/recipe"
)

// ErrNoRecipes is returned when the model answers with the "N/A" escape hatch.
var ErrNoRecipes = errors.New("model could not suggest recipes")

// noPreference fills empty health conditions and cravings.
const noPreference = "None"

type Format string

const (
	FormatEnglish Format = "english"
	FormatKorean  Format = "korean"
	FormatJSON    Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatEnglish, FormatKorean, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown response format %q", s)
	}
}

// DefaultLabels is the label set the prompt for f asks the model to use.
// FormatJSON has no labels.
func DefaultLabels(f Format) recipe.LabelSet {
	if f == FormatKorean {
		return recipe.Korean
	}
	return recipe.English
}

type Request struct {
	Ingredients     []string
	HealthCondition string
	Craving         string
	// Retrieved reference texts; either may be empty.
	RecipeContext []string
	HealthContext []string
	Format        Format
	// Labels overrides DefaultLabels(Format) for the text formats.
	Labels *recipe.LabelSet
}

func (r Request) labels() recipe.LabelSet {
	if r.Labels != nil {
		return *r.Labels
	}
	return DefaultLabels(r.Format)
}

type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// IsNoAnswer reports whether raw is the bare "N/A" a model emits when it
// cannot follow the output format.
func IsNoAnswer(raw string) bool {
	s := strings.Trim(strings.TrimSpace(raw), "`'\".")
	return strings.EqualFold(strings.TrimSpace(s), "N/A")
}

// Decode turns a raw model response into recipes. Text formats never fail to
// parse; JSON can.
func Decode(raw string, req Request) (recipe.ParseResult, error) {
	if IsNoAnswer(raw) {
		return recipe.ParseResult{}, ErrNoRecipes
	}
	if req.Format == FormatJSON {
		return recipe.DecodeJSON(raw)
	}
	return recipe.Parse(raw, req.labels()), nil
}
