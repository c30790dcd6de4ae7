package web

import (
	"time"

	"github.com/vbonduro/smartchef/internal/domain"
	"github.com/vbonduro/smartchef/internal/recipe"
	"github.com/vbonduro/smartchef/internal/service"
)

// mediaURL is the API path that serves a stored object.
func mediaURL(key string) string {
	if key == "" {
		return ""
	}
	return "/media/" + key
}

type ingredientJSON struct {
	Name    string `json:"name"`
	Source  string `json:"source"`
	PhotoID *int64 `json:"photo_id,omitempty"`
}

type pantryJSON struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Ingredients []ingredientJSON `json:"ingredients"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func newPantryJSON(p *domain.Pantry) pantryJSON {
	out := pantryJSON{
		ID:          p.ID,
		Name:        p.Name,
		Ingredients: make([]ingredientJSON, 0, len(p.Ingredients)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, ing := range p.Ingredients {
		out.Ingredients = append(out.Ingredients, ingredientJSON{Name: ing.Name, Source: ing.Source, PhotoID: ing.PhotoID})
	}
	return out
}

type detectedJSON struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence,omitempty"`
	Notes      string  `json:"notes,omitempty"`
}

type detectionJSON struct {
	Pantry   pantryJSON     `json:"pantry"`
	PhotoID  int64          `json:"photo_id"`
	PhotoURL string         `json:"photo_url"`
	Detected []detectedJSON `json:"detected"`
	Added    []string       `json:"added"`
}

func newDetectionJSON(d *service.Detection) detectionJSON {
	out := detectionJSON{
		Pantry:   newPantryJSON(d.Pantry),
		PhotoID:  d.Photo.ID,
		PhotoURL: mediaURL(d.Photo.StorageKey),
		Detected: make([]detectedJSON, 0, len(d.Detected)),
		Added:    d.Added,
	}
	for _, ing := range d.Detected {
		out.Detected = append(out.Detected, detectedJSON{Name: ing.Name, Confidence: ing.Confidence, Notes: ing.Notes})
	}
	return out
}

type recipeJSON struct {
	recipe.Record
	ImageURL string `json:"image_url,omitempty"`
}

type suggestionJSON struct {
	ID              int64        `json:"id"`
	PantryID        int64        `json:"pantry_id"`
	HealthCondition string       `json:"health_condition,omitempty"`
	Craving         string       `json:"craving,omitempty"`
	Format          string       `json:"format"`
	Ingredients     []string     `json:"ingredients"`
	HealthSummary   *string      `json:"health_summary,omitempty"`
	ChefTip         string       `json:"chef_tip,omitempty"`
	ChefTipAudioURL string       `json:"chef_tip_audio_url,omitempty"`
	Recipes         []recipeJSON `json:"recipes"`
	CreatedAt       time.Time    `json:"created_at"`
}

func newSuggestionJSON(sg *domain.Suggestion) suggestionJSON {
	out := suggestionJSON{
		ID:              sg.ID,
		PantryID:        sg.PantryID,
		HealthCondition: sg.HealthCondition,
		Craving:         sg.Craving,
		Format:          sg.Format,
		Ingredients:     sg.Ingredients,
		HealthSummary:   sg.HealthSummary,
		ChefTip:         sg.ChefTip,
		ChefTipAudioURL: mediaURL(sg.ChefTipAudioKey),
		Recipes:         make([]recipeJSON, 0, len(sg.Recipes)),
		CreatedAt:       sg.CreatedAt,
	}
	for _, r := range sg.Recipes {
		out.Recipes = append(out.Recipes, recipeJSON{Record: r.Record, ImageURL: mediaURL(r.ImageKey)})
	}
	return out
}
