package vision

import (
	"regexp"
	"strings"

	"github.com/vbonduro/smartchef/internal/pantry"
)

var (
	bulletPrefix     = regexp.MustCompile(`^(?:[-*•]+|\d+[.)])\s*`)
	preamblePrefixes = []string{"Here", "I see", "Based on", "Sure", "The image", "In this"}
)

// ParseLine parses one "name | notes" line. It returns nil for blank lines
// and model preamble.
func ParseLine(line string) *DetectedIngredient {
	line = strings.TrimSpace(line)
	line = strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
	if line == "" {
		return nil
	}
	for _, p := range preamblePrefixes {
		if strings.HasPrefix(line, p) {
			return nil
		}
	}
	if strings.HasSuffix(line, ":") {
		return nil
	}

	parts := strings.SplitN(line, "|", 2)
	item := &DetectedIngredient{
		Name: strings.Trim(strings.TrimSpace(parts[0]), `*"`),
	}
	if len(parts) == 2 {
		item.Notes = strings.TrimSpace(parts[1])
	}
	if item.Name == "" {
		return nil
	}
	return item
}

// ParseResponse parses a line-oriented model response into ingredients,
// one per line, dropping duplicates by folded name.
func ParseResponse(raw string) []DetectedIngredient {
	items := make([]DetectedIngredient, 0)
	seen := make(map[string]bool)

	for _, line := range strings.Split(raw, "\n") {
		item := ParseLine(line)
		if item == nil {
			continue
		}
		key := pantry.Key(item.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, *item)
	}

	return items
}
