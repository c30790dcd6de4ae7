// Package media generates dish illustrations and spoken chef tips.
package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/vbonduro/smartchef/internal/recipe"
)

type Illustrator interface {
	// Illustrate returns image bytes and their MIME type.
	Illustrate(ctx context.Context, dish string) ([]byte, string, error)
}

type Narrator interface {
	// Speak returns audio bytes and their MIME type.
	Speak(ctx context.Context, text string) ([]byte, string, error)
}

// DishName picks the name an image model understands best: the English name
// when the model supplied one.
func DishName(r recipe.Record) string {
	if r.EnglishName != "" {
		return r.EnglishName
	}
	return r.Name
}

// IllustrationPrompt describes a plated dish for an image model.
func IllustrationPrompt(dish string) string {
	return fmt.Sprintf("A realistic, appetizing food photograph of %s, plated on a simple dish, "+
		"natural light, top-down view, no text.", strings.TrimSpace(dish))
}
