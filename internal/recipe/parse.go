// Package recipe decodes chat-model recipe suggestions into records.
package recipe

import (
	"strings"
)

// Sentinels substituted for fields a model left out.
const (
	Unknown = "unknown"
	None    = "none"
)

// notAvailable is the token models emit when they cannot answer.
const notAvailable = "N/A"

// Record is one recommended dish.
type Record struct {
	Name                  string `json:"name"`
	EnglishName           string `json:"english_name,omitempty"`
	CookingTime           string `json:"cooking_time"`
	RequiredIngredients   string `json:"required_ingredients"`
	AdditionalIngredients string `json:"additional_ingredients"`
	Steps                 string `json:"steps"`
	HealthScore           string `json:"health_score,omitempty"`
}

// ParseResult is the decoded form of one model response.
type ParseResult struct {
	HealthSummary *string  `json:"health_summary,omitempty"`
	ChefTip       string   `json:"chef_tip,omitempty"`
	Recipes       []Record `json:"recipes"`
}

// builder accumulates one record between name labels.
type builder struct {
	rec      Record
	steps    []string
	fallback string
}

func (b *builder) seal() Record {
	r := b.rec
	if r.Name == "" {
		r.Name = b.fallback
	}
	if r.Name == "" {
		r.Name = Unknown
	}
	if r.CookingTime == "" {
		r.CookingTime = Unknown
	}
	if r.RequiredIngredients == "" {
		r.RequiredIngredients = Unknown
	}
	if r.AdditionalIngredients == "" || strings.Contains(r.AdditionalIngredients, notAvailable) {
		r.AdditionalIngredients = None
	}

	// Blank lines inside the steps are kept; the ones at either end are not.
	steps := b.steps
	for len(steps) > 0 && steps[0] == "" {
		steps = steps[1:]
	}
	for len(steps) > 0 && steps[len(steps)-1] == "" {
		steps = steps[:len(steps)-1]
	}
	r.Steps = strings.Join(steps, "\n")
	return r
}

// Parse splits labelled model output into recipe records. It never fails:
// text without labels yields an empty result, and missing fields are filled
// with Unknown or None.
func Parse(raw string, labels LabelSet) ParseResult {
	result := ParseResult{Recipes: make([]Record, 0)}

	var current *builder
	inSteps := false

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)

		f, rest := labels.match(line)
		switch f {
		case fieldHealthSummary:
			if current == nil && len(result.Recipes) == 0 {
				summary := rest
				result.HealthSummary = &summary
			}
			continue

		case fieldName:
			if current != nil {
				result.Recipes = append(result.Recipes, current.seal())
			}
			current = &builder{rec: Record{Name: rest}}
			inSteps = false
			continue

		case fieldCookingTime, fieldRequired, fieldAdditional:
			// Fields before the first name label have no record to land in.
			if current != nil {
				switch f {
				case fieldCookingTime:
					current.rec.CookingTime = rest
				case fieldRequired:
					current.rec.RequiredIngredients = rest
				case fieldAdditional:
					current.rec.AdditionalIngredients = rest
				}
			}
			inSteps = false
			continue

		case fieldSteps:
			if current != nil {
				inSteps = true
				current.steps = nil
			}
			continue
		}

		if current == nil {
			continue
		}
		if current.fallback == "" && line != "" {
			current.fallback = line
		}
		if inSteps {
			current.steps = append(current.steps, line)
		}
	}

	if current != nil {
		result.Recipes = append(result.Recipes, current.seal())
	}
	return result
}
