package domain

import (
	"time"

	"github.com/vbonduro/smartchef/internal/recipe"
)

// Pantry is a named ingredient list, e.g. "Home fridge".
type Pantry struct {
	ID          int64
	Name        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Ingredients []*Ingredient
}

// Names returns the ingredient names in list order.
func (p *Pantry) Names() []string {
	names := make([]string, 0, len(p.Ingredients))
	for _, ing := range p.Ingredients {
		names = append(names, ing.Name)
	}
	return names
}

type Photo struct {
	ID         int64
	PantryID   int64
	StorageKey string
	MimeType   string
	UploadedAt time.Time
}

// Ingredient sources.
const (
	SourceDetected = "detected"
	SourceManual   = "manual"
)

type Ingredient struct {
	ID        int64
	PantryID  int64
	PhotoID   *int64
	Name      string
	Source    string
	CreatedAt time.Time
}

// Suggestion is one recipe recommendation run and its decoded result.
type Suggestion struct {
	ID              int64
	PantryID        int64
	HealthCondition string
	Craving         string
	Format          string
	Ingredients     []string
	HealthSummary   *string
	ChefTip         string
	ChefTipAudioKey string
	Recipes         []SuggestedRecipe
	RawResponse     string
	CreatedAt       time.Time
}

// SuggestedRecipe is a decoded recipe plus its generated illustration.
type SuggestedRecipe struct {
	recipe.Record
	ImageKey string `json:"image_key,omitempty"`
}
