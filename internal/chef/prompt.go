package chef

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/vbonduro/smartchef/internal/recipe"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.New("").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).ParseFS(promptFS, "prompts/*.tmpl"))

var systemPrompts = map[Format]string{
	FormatEnglish: "You are a creative and helpful chef.",
	FormatKorean:  "당신은 한식 요리사 겸 영양사입니다.",
	FormatJSON:    "You are a Korean chef and nutritionist. You answer only with JSON.",
}

// Prompt is a rendered chat request.
type Prompt struct {
	System string
	User   string
}

type promptData struct {
	Ingredients     string
	HealthCondition string
	Craving         string
	RecipeContext   []string
	HealthContext   []string
	Labels          recipe.LabelSet
}

// BuildPrompt renders the prompt for req.Format.
func BuildPrompt(req Request) (Prompt, error) {
	data := promptData{
		Ingredients:     strings.Join(req.Ingredients, ", "),
		HealthCondition: orNone(req.HealthCondition),
		Craving:         orNone(req.Craving),
		RecipeContext:   req.RecipeContext,
		HealthContext:   req.HealthContext,
		Labels:          req.labels(),
	}

	system, ok := systemPrompts[req.Format]
	if !ok {
		return Prompt{}, fmt.Errorf("unknown response format %q", req.Format)
	}

	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, string(req.Format)+".tmpl", data); err != nil {
		return Prompt{}, fmt.Errorf("render %s prompt: %w", req.Format, err)
	}
	return Prompt{System: system, User: strings.TrimSpace(buf.String())}, nil
}

func orNone(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return noPreference
	}
	return s
}
