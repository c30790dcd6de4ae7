package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var (
	fenceStart = regexp.MustCompile("(?is)^\\s*```(?:json)?\\s*")
	fenceEnd   = regexp.MustCompile("(?is)\\s*```\\s*$")
)

// text accepts either a JSON string or an array of strings, which models
// produce interchangeably for steps and ingredient lists.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = text(s)
		return nil
	}

	var parts []string
	if err := json.Unmarshal(data, &parts); err == nil {
		*t = text(strings.Join(parts, "\n"))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*t = text(n.String())
		return nil
	}

	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	return fmt.Errorf("unsupported value %s", data)
}

type jsonRecipe struct {
	EnglishName           text `json:"english_name"`
	Name                  text `json:"name"`
	AdditionalIngredients text `json:"additional_ingredients"`
	AllIngredients        text `json:"all_ingredients"`
	Steps                 text `json:"steps"`
	CookingTime           text `json:"cooking_time"`
	HealthScore           text `json:"health_score"`
}

type jsonResponse struct {
	ChefTip       text            `json:"chefTip"`
	HealthSummary *text           `json:"healthSummary"`
	Recipes       json.RawMessage `json:"recipes"`
}

// recipeKeys is the order the structured prompt asks for. Other keys follow
// in document order.
var recipeKeys = []string{"first", "second", "third"}

// DecodeJSON decodes the structured response format:
//
//	{"chefTip": "...", "recipes": {"first": {...}, "second": {...}, "third": {...}}}
//
// "recipes" may also be an array. Unlike Parse, malformed JSON is an error.
func DecodeJSON(raw string) (ParseResult, error) {
	cleaned := cleanJSON(raw)
	if cleaned == "" {
		return ParseResult{}, fmt.Errorf("empty response")
	}

	var resp jsonResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return ParseResult{}, fmt.Errorf("invalid recipe JSON: %w", err)
	}

	recipes, err := decodeRecipes(resp.Recipes)
	if err != nil {
		return ParseResult{}, err
	}

	result := ParseResult{
		ChefTip: strings.TrimSpace(string(resp.ChefTip)),
		Recipes: make([]Record, 0, len(recipes)),
	}
	if resp.HealthSummary != nil {
		s := strings.TrimSpace(string(*resp.HealthSummary))
		result.HealthSummary = &s
	}
	for _, jr := range recipes {
		b := builder{rec: Record{
			Name:                  strings.TrimSpace(string(jr.Name)),
			EnglishName:           strings.TrimSpace(string(jr.EnglishName)),
			CookingTime:           strings.TrimSpace(string(jr.CookingTime)),
			RequiredIngredients:   strings.TrimSpace(string(jr.AllIngredients)),
			AdditionalIngredients: strings.TrimSpace(string(jr.AdditionalIngredients)),
			HealthScore:           strings.TrimSpace(string(jr.HealthScore)),
		}}
		b.fallback = b.rec.EnglishName
		if steps := strings.TrimSpace(string(jr.Steps)); steps != "" {
			b.steps = strings.Split(steps, "\n")
		}
		result.Recipes = append(result.Recipes, b.seal())
	}
	return result, nil
}

func decodeRecipes(raw json.RawMessage) ([]jsonRecipe, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var list []jsonRecipe
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("invalid recipes array: %w", err)
		}
		return list, nil
	}

	if trimmed[0] != '{' {
		return nil, fmt.Errorf("invalid recipes: want an object or array, got %s", trimmed)
	}
	return decodeRecipeObject(trimmed)
}

// decodeRecipeObject reads {"first": {...}, "recipe4": {...}} keeping
// document order. Entries that are not recipe objects are skipped; it fails
// only when there were entries and none of them was a recipe.
func decodeRecipeObject(raw []byte) ([]jsonRecipe, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("invalid recipes object: %w", err)
	}

	var (
		known   = make(map[string]jsonRecipe, len(recipeKeys))
		others  []jsonRecipe
		entries int
		lastErr error
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid recipes object: %w", err)
		}
		key, _ := tok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("invalid recipe %q: %w", key, err)
		}
		entries++

		var jr jsonRecipe
		if value[0] != '{' {
			lastErr = fmt.Errorf("recipe %q is not an object", key)
			continue
		}
		if err := json.Unmarshal(value, &jr); err != nil {
			lastErr = fmt.Errorf("recipe %q: %w", key, err)
			continue
		}
		if slices.Contains(recipeKeys, key) {
			known[key] = jr
		} else {
			others = append(others, jr)
		}
	}

	list := make([]jsonRecipe, 0, len(known)+len(others))
	for _, k := range recipeKeys {
		if r, ok := known[k]; ok {
			list = append(list, r)
		}
	}
	list = append(list, others...)

	if entries > 0 && len(list) == 0 {
		return nil, fmt.Errorf("no recipes decoded: %w", lastErr)
	}
	return list, nil
}

// cleanJSON strips a BOM and markdown fences and cuts the outermost object.
func cleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "\uFEFF")
	s = fenceStart.ReplaceAllString(s, "")
	s = fenceEnd.ReplaceAllString(s, "")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return strings.TrimSpace(s)
	}
	return s[start : end+1]
}
