package recipe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// LabelSet is the vocabulary of section labels a chat model is asked to use.
// An empty label is disabled and never matches.
type LabelSet struct {
	HealthSummary         string   `toml:"health_summary"`
	Name                  string   `toml:"name"`
	CookingTime           string   `toml:"cooking_time"`
	RequiredIngredients   string   `toml:"required_ingredients"`
	AdditionalIngredients string   `toml:"additional_ingredients"`
	Steps                 string   `toml:"steps"`
	ListMarkers           []string `toml:"list_markers"`
}

// English is the label set requested by the English prompt.
var English = LabelSet{
	Name:                  "Recipe:",
	CookingTime:           "Cooking time:",
	RequiredIngredients:   "Ingredients:",
	AdditionalIngredients: "Additional ingredients:",
	Steps:                 "Steps:",
	ListMarkers:           []string{"- ", "* "},
}

// EnglishStrict is English without a required-ingredients label, for
// responses that list ingredients inside the steps. A step line starting
// with "Ingredients:" then stays in the steps.
var EnglishStrict = LabelSet{
	Name:                  "Recipe:",
	CookingTime:           "Cooking time:",
	AdditionalIngredients: "Additional ingredients:",
	Steps:                 "Steps:",
	ListMarkers:           []string{"- ", "* "},
}

// Korean is the label set requested by the health-aware Korean prompt.
var Korean = LabelSet{
	HealthSummary:         "건강 요약:",
	Name:                  "요리 이름:",
	CookingTime:           "조리 시간:",
	RequiredIngredients:   "필요재료:",
	AdditionalIngredients: "추가로 구비해야 하는 재료:",
	Steps:                 "요리 단계:",
}

var builtinSets = map[string]LabelSet{
	"english":        English,
	"english_strict": EnglishStrict,
	"korean":         Korean,
}

type field int

const (
	fieldNone field = iota
	fieldHealthSummary
	fieldName
	fieldCookingTime
	fieldRequired
	fieldAdditional
	fieldSteps
)

// match reports which label line starts with and the text after it.
func (ls LabelSet) match(line string) (field, string) {
	candidate := line
	for _, m := range ls.ListMarkers {
		if m != "" && strings.HasPrefix(candidate, m) {
			candidate = strings.TrimSpace(candidate[len(m):])
			break
		}
	}

	labels := []struct {
		f     field
		label string
	}{
		{fieldHealthSummary, ls.HealthSummary},
		{fieldName, ls.Name},
		{fieldCookingTime, ls.CookingTime},
		{fieldRequired, ls.RequiredIngredients},
		{fieldAdditional, ls.AdditionalIngredients},
		{fieldSteps, ls.Steps},
	}
	for _, l := range labels {
		if l.label == "" {
			continue
		}
		if strings.HasPrefix(candidate, l.label) {
			return l.f, strings.TrimSpace(candidate[len(l.label):])
		}
	}
	return fieldNone, ""
}

// Validate reports an error when the set cannot delimit records.
func (ls LabelSet) Validate() error {
	if strings.TrimSpace(ls.Name) == "" {
		return fmt.Errorf("label set has no name label")
	}
	return nil
}

// labelFile is the on-disk layout of a custom label file:
//
//	[sets.mylabels]
//	name = "Dish:"
//	steps = "Method:"
type labelFile struct {
	Sets map[string]LabelSet `toml:"sets"`
}

// LoadLabelSets reads custom label sets from a TOML file.
func LoadLabelSets(path string) (map[string]LabelSet, error) {
	var f labelFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("parse label file %s: %w", path, err)
	}
	sets := make(map[string]LabelSet, len(f.Sets))
	for name, ls := range f.Sets {
		if err := ls.Validate(); err != nil {
			return nil, fmt.Errorf("label set %q: %w", name, err)
		}
		sets[strings.ToLower(name)] = ls
	}
	return sets, nil
}

// Lookup resolves a label set by name, preferring custom sets over the
// built-in ones.
func Lookup(name string, custom map[string]LabelSet) (LabelSet, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if ls, ok := custom[key]; ok {
		return ls, true
	}
	ls, ok := builtinSets[key]
	return ls, ok
}

// Names lists the built-in and custom set names, sorted.
func Names(custom map[string]LabelSet) []string {
	seen := make(map[string]bool)
	for k := range builtinSets {
		seen[k] = true
	}
	for k := range custom {
		seen[k] = true
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
