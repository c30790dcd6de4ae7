// Package rag retrieves reference recipes and dietary guidance to ground
// recipe prompts.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	NamespaceRecipes = "recipes"
	NamespaceHealth  = "health"
)

const DefaultTopK = 3

type Document struct {
	ID        string    `json:"id"`
	Namespace string    `json:"namespace"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
}

// Match is a query hit. Distance is the cosine distance to the query
// vector; lower is closer.
type Match struct {
	Document
	Distance float64
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

type Index interface {
	Upsert(ctx context.Context, docs []Document) error
	Query(ctx context.Context, namespace string, vector []float32, k int) ([]Match, error)
}

type Retriever struct {
	embedder Embedder
	index    Index
	topK     int
}

func NewRetriever(embedder Embedder, index Index, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, index: index, topK: topK}
}

// RecipeQuery is the text embedded to find reference recipes.
func RecipeQuery(ingredients []string, craving string) string {
	if craving = strings.TrimSpace(craving); craving == "" {
		craving = "None"
	}
	return fmt.Sprintf("%s, Ingredient_Details: %s", craving, strings.Join(ingredients, ", "))
}

// Context returns reference recipe texts and health guidance texts for a
// request. Health guidance is skipped when no condition is given.
func (r *Retriever) Context(ctx context.Context, ingredients []string, craving, health string) (recipes, guidance []string, err error) {
	recipes, err = r.search(ctx, NamespaceRecipes, RecipeQuery(ingredients, craving))
	if err != nil {
		return nil, nil, fmt.Errorf("retrieve recipes: %w", err)
	}

	if strings.TrimSpace(health) != "" {
		guidance, err = r.search(ctx, NamespaceHealth, health)
		if err != nil {
			return nil, nil, fmt.Errorf("retrieve health guidance: %w", err)
		}
	}

	slog.Debug("retrieved context", "recipes", len(recipes), "guidance", len(guidance))
	return recipes, guidance, nil
}

func (r *Retriever) search(ctx context.Context, namespace, query string) ([]string, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, err := r.index.Query(ctx, namespace, vec, r.topK)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, m.Text)
	}
	return texts, nil
}
