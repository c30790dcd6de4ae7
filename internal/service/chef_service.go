package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vbonduro/smartchef/internal/chef"
	"github.com/vbonduro/smartchef/internal/domain"
	"github.com/vbonduro/smartchef/internal/media"
	"github.com/vbonduro/smartchef/internal/mediastore"
	"github.com/vbonduro/smartchef/internal/pantry"
	"github.com/vbonduro/smartchef/internal/recipe"
	"github.com/vbonduro/smartchef/internal/store"
	"github.com/vbonduro/smartchef/internal/vision"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNoIngredients = errors.New("pantry has no ingredients")
)

// Media key prefixes.
const (
	photoPrefix  = "photos"
	imagePrefix  = "images"
	speechPrefix = "speech"
)

// pantryRepository is the subset of store.PantryStore that ChefService requires.
type pantryRepository interface {
	Create(ctx context.Context, name string) (*domain.Pantry, error)
	GetByID(ctx context.Context, id int64) (*domain.Pantry, error)
	List(ctx context.Context) ([]*domain.Pantry, error)
	Touch(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// photoRepository is the subset of store.PhotoStore that ChefService requires.
type photoRepository interface {
	Create(ctx context.Context, pantryID int64, storageKey, mimeType string) (*domain.Photo, error)
	GetLatestByPantryID(ctx context.Context, pantryID int64) (*domain.Photo, error)
	ListKeysByPantryID(ctx context.Context, pantryID int64) ([]string, error)
}

// ingredientRepository is the subset of store.IngredientStore that ChefService requires.
type ingredientRepository interface {
	Add(ctx context.Context, pantryID int64, photoID *int64, name, source string) (*domain.Ingredient, bool, error)
	ListByPantryID(ctx context.Context, pantryID int64) ([]*domain.Ingredient, error)
	Remove(ctx context.Context, pantryID int64, name string) error
	Search(ctx context.Context, query string) ([]*domain.Ingredient, error)
}

// suggestionRepository is the subset of store.SuggestionStore that ChefService requires.
type suggestionRepository interface {
	Create(ctx context.Context, sg *domain.Suggestion) (*domain.Suggestion, error)
	GetByID(ctx context.Context, id int64) (*domain.Suggestion, error)
	ListByPantryID(ctx context.Context, pantryID int64) ([]*domain.Suggestion, error)
}

// contextRetriever is implemented by rag.Retriever.
type contextRetriever interface {
	Context(ctx context.Context, ingredients []string, craving, health string) (recipes, guidance []string, err error)
}

// Options holds the optional parts of a ChefService. Nil collaborators turn
// the matching step off.
type Options struct {
	Format      chef.Format
	Labels      *recipe.LabelSet
	Retriever   contextRetriever
	Illustrator media.Illustrator
	Narrator    media.Narrator
}

type ChefService struct {
	pantries    pantryRepository
	photos      photoRepository
	ingredients ingredientRepository
	suggestions suggestionRepository
	detector    vision.Detector
	generator   chef.Generator
	media       mediastore.Store
	opts        Options
	logger      *slog.Logger
}

func NewChefService(
	pantries pantryRepository,
	photos photoRepository,
	ingredients ingredientRepository,
	suggestions suggestionRepository,
	detector vision.Detector,
	generator chef.Generator,
	mediaStg mediastore.Store,
	opts Options,
	logger *slog.Logger,
) *ChefService {
	if opts.Format == "" {
		opts.Format = chef.FormatEnglish
	}
	return &ChefService{
		pantries:    pantries,
		photos:      photos,
		ingredients: ingredients,
		suggestions: suggestions,
		detector:    detector,
		generator:   generator,
		media:       mediaStg,
		opts:        opts,
		logger:      logger,
	}
}

func (s *ChefService) CreatePantry(ctx context.Context, name string) (*domain.Pantry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: pantry name is required", ErrInvalidInput)
	}
	p, err := s.pantries.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	p.Ingredients = []*domain.Ingredient{}
	return p, nil
}

// ListPantries returns every pantry with its ingredients loaded.
func (s *ChefService) ListPantries(ctx context.Context) ([]*domain.Pantry, error) {
	pantries, err := s.pantries.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range pantries {
		if p.Ingredients, err = s.ingredients.ListByPantryID(ctx, p.ID); err != nil {
			return nil, fmt.Errorf("failed to list ingredients for pantry %d: %w", p.ID, err)
		}
	}
	return pantries, nil
}

func (s *ChefService) GetPantry(ctx context.Context, pantryID int64) (*domain.Pantry, error) {
	p, err := s.pantries.GetByID(ctx, pantryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pantry: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("pantry %d: %w", pantryID, ErrNotFound)
	}
	if p.Ingredients, err = s.ingredients.ListByPantryID(ctx, pantryID); err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	return p, nil
}

// DeletePantry removes the pantry with its rows and, best effort, its media.
func (s *ChefService) DeletePantry(ctx context.Context, pantryID int64) error {
	keys, err := s.mediaKeys(ctx, pantryID)
	if err != nil {
		return err
	}

	if err := s.pantries.Delete(ctx, pantryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("pantry %d: %w", pantryID, ErrNotFound)
		}
		return fmt.Errorf("failed to delete pantry: %w", err)
	}

	for _, key := range keys {
		if err := s.media.Delete(ctx, key); err != nil && !errors.Is(err, mediastore.ErrNotFound) {
			s.logger.Error("failed to delete media", "pantry_id", pantryID, "storage_key", key, "error", err)
		}
	}
	s.logger.Info("pantry deleted", "pantry_id", pantryID, "media_deleted", len(keys))
	return nil
}

func (s *ChefService) mediaKeys(ctx context.Context, pantryID int64) ([]string, error) {
	keys, err := s.photos.ListKeysByPantryID(ctx, pantryID)
	if err != nil {
		return nil, err
	}
	suggestions, err := s.suggestions.ListByPantryID(ctx, pantryID)
	if err != nil {
		return nil, err
	}
	for _, sg := range suggestions {
		if sg.ChefTipAudioKey != "" {
			keys = append(keys, sg.ChefTipAudioKey)
		}
		for _, r := range sg.Recipes {
			if r.ImageKey != "" {
				keys = append(keys, r.ImageKey)
			}
		}
	}
	return keys, nil
}

// Detection is the outcome of DetectIngredients.
type Detection struct {
	Pantry   *domain.Pantry
	Photo    *domain.Photo
	Detected []vision.DetectedIngredient
	// Added lists detected names that were not already in the pantry.
	Added []string
}

// DetectIngredients finds ingredients in a photo, stores the photo and merges
// the detected names into the pantry.
func (s *ChefService) DetectIngredients(ctx context.Context, pantryID int64, imageData []byte, mimeType string) (*Detection, error) {
	s.logger.Info("detect ingredients started", "pantry_id", pantryID, "mime_type", mimeType, "bytes", len(imageData))
	start := time.Now()

	p, err := s.GetPantry(ctx, pantryID)
	if err != nil {
		return nil, err
	}

	result, err := s.detector.Detect(ctx, bytes.NewReader(imageData), mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to detect ingredients: %w", err)
	}
	s.logger.Info("vision detection complete", "pantry_id", pantryID, "detected", len(result.Ingredients))

	storageKey, err := s.media.Save(ctx, photoPrefix, mimeType, bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to save photo: %w", err)
	}
	s.logger.Debug("photo saved", "pantry_id", pantryID, "storage_key", storageKey)

	photo, err := s.photos.Create(ctx, pantryID, storageKey, mimeType)
	if err != nil {
		if derr := s.media.Delete(ctx, storageKey); derr != nil {
			s.logger.Error("failed to roll back photo file", "storage_key", storageKey, "error", derr)
		}
		return nil, fmt.Errorf("failed to create photo record: %w", err)
	}

	added, err := s.addAll(ctx, pantryID, &photo.ID, fresh(p.Names(), result.Names()), domain.SourceDetected)
	if err != nil {
		return nil, err
	}

	if p, err = s.GetPantry(ctx, pantryID); err != nil {
		return nil, err
	}

	s.logger.Info("detect ingredients complete", "pantry_id", pantryID,
		"added", len(added), "duration_ms", time.Since(start).Milliseconds())
	return &Detection{Pantry: p, Photo: photo, Detected: result.Ingredients, Added: added}, nil
}

// AddIngredients adds a comma-separated list of names to the pantry.
func (s *ChefService) AddIngredients(ctx context.Context, pantryID int64, csv string) (*domain.Pantry, error) {
	names := pantry.Dedupe(pantry.Split(csv))
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no ingredient names given", ErrInvalidInput)
	}

	p, err := s.GetPantry(ctx, pantryID)
	if err != nil {
		return nil, err
	}

	added, err := s.addAll(ctx, pantryID, nil, fresh(p.Names(), names), domain.SourceManual)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ingredients added", "pantry_id", pantryID, "added", len(added))
	return s.GetPantry(ctx, pantryID)
}

// fresh returns the incoming names not already in current, in order.
func fresh(current, incoming []string) []string {
	base := pantry.Dedupe(current)
	return pantry.Add(base, incoming...)[len(base):]
}

func (s *ChefService) addAll(ctx context.Context, pantryID int64, photoID *int64, names []string, source string) ([]string, error) {
	added := make([]string, 0, len(names))
	for _, name := range names {
		ing, created, err := s.ingredients.Add(ctx, pantryID, photoID, name, source)
		if err != nil {
			return added, fmt.Errorf("failed to add ingredient %q: %w", name, err)
		}
		if created {
			added = append(added, ing.Name)
		}
	}
	if len(added) > 0 {
		if err := s.pantries.Touch(ctx, pantryID); err != nil {
			return added, err
		}
	}
	return added, nil
}

// RemoveIngredient removes the ingredient whose name matches, ignoring case.
func (s *ChefService) RemoveIngredient(ctx context.Context, pantryID int64, name string) (*domain.Pantry, error) {
	p, err := s.GetPantry(ctx, pantryID)
	if err != nil {
		return nil, err
	}
	names := p.Names()
	if len(pantry.Remove(names, name)) == len(names) {
		return nil, fmt.Errorf("ingredient %q: %w", name, ErrNotFound)
	}

	if err := s.ingredients.Remove(ctx, pantryID, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("ingredient %q: %w", name, ErrNotFound)
		}
		return nil, err
	}
	if err := s.pantries.Touch(ctx, pantryID); err != nil {
		return nil, err
	}
	s.logger.Info("ingredient removed", "pantry_id", pantryID, "name", name)
	return s.GetPantry(ctx, pantryID)
}

// SearchIngredients finds ingredients across every pantry whose name
// contains query, ignoring case. An empty query matches nothing.
func (s *ChefService) SearchIngredients(ctx context.Context, query string) ([]*domain.Ingredient, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*domain.Ingredient{}, nil
	}
	return s.ingredients.Search(ctx, query)
}

// Recommend asks the chat model for recipes from the pantry's ingredients,
// then illustrates and narrates the result when those collaborators are set.
func (s *ChefService) Recommend(ctx context.Context, pantryID int64, health, craving string) (*domain.Suggestion, error) {
	s.logger.Info("recommend started", "pantry_id", pantryID, "format", s.opts.Format)
	start := time.Now()

	p, err := s.GetPantry(ctx, pantryID)
	if err != nil {
		return nil, err
	}
	names := p.Names()
	if len(names) == 0 {
		return nil, ErrNoIngredients
	}

	req := chef.Request{
		Ingredients:     names,
		HealthCondition: strings.TrimSpace(health),
		Craving:         strings.TrimSpace(craving),
		Format:          s.opts.Format,
		Labels:          s.opts.Labels,
	}
	if s.opts.Retriever != nil {
		recipes, guidance, err := s.opts.Retriever.Context(ctx, names, req.Craving, req.HealthCondition)
		if err != nil {
			s.logger.Warn("context retrieval failed, continuing without it", "pantry_id", pantryID, "error", err)
		} else {
			req.RecipeContext, req.HealthContext = recipes, guidance
		}
	}

	raw, err := s.generator.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to generate recipes: %w", err)
	}

	result, err := chef.Decode(raw, req)
	if err != nil {
		s.logger.Warn("could not decode recipes", "pantry_id", pantryID, "error", err)
		return nil, fmt.Errorf("failed to decode recipes: %w", err)
	}
	s.logger.Info("recipes generated", "pantry_id", pantryID, "recipes", len(result.Recipes))

	sg := &domain.Suggestion{
		PantryID:        pantryID,
		HealthCondition: req.HealthCondition,
		Craving:         req.Craving,
		Format:          string(req.Format),
		Ingredients:     names,
		HealthSummary:   result.HealthSummary,
		ChefTip:         result.ChefTip,
		Recipes:         s.illustrate(ctx, pantryID, result.Recipes),
		RawResponse:     raw,
	}
	sg.ChefTipAudioKey = s.narrate(ctx, pantryID, narration(result))

	saved, err := s.suggestions.Create(ctx, sg)
	if err != nil {
		return nil, err
	}

	s.logger.Info("recommend complete", "pantry_id", pantryID, "suggestion_id", saved.ID,
		"recipes", len(saved.Recipes), "duration_ms", time.Since(start).Milliseconds())
	return saved, nil
}

// illustrate generates one image per recipe concurrently. Failures leave the
// image key empty.
func (s *ChefService) illustrate(ctx context.Context, pantryID int64, records []recipe.Record) []domain.SuggestedRecipe {
	out := make([]domain.SuggestedRecipe, len(records))
	for i, r := range records {
		out[i].Record = r
	}
	if s.opts.Illustrator == nil {
		return out
	}

	var wg sync.WaitGroup
	for i := range out {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dish := media.DishName(out[i].Record)
			data, mimeType, err := s.opts.Illustrator.Illustrate(ctx, dish)
			if err != nil {
				s.logger.Warn("illustration failed", "pantry_id", pantryID, "dish", dish, "error", err)
				return
			}
			key, err := s.media.Save(ctx, imagePrefix, mimeType, bytes.NewReader(data))
			if err != nil {
				s.logger.Warn("failed to save illustration", "pantry_id", pantryID, "dish", dish, "error", err)
				return
			}
			out[i].ImageKey = key
		}(i)
	}
	wg.Wait()
	return out
}

// narration is the text read aloud: the chef tip, else the health summary.
func narration(result recipe.ParseResult) string {
	if tip := strings.TrimSpace(result.ChefTip); tip != "" {
		return tip
	}
	if result.HealthSummary != nil {
		return strings.TrimSpace(*result.HealthSummary)
	}
	return ""
}

func (s *ChefService) narrate(ctx context.Context, pantryID int64, text string) string {
	if s.opts.Narrator == nil || text == "" {
		return ""
	}
	audio, mimeType, err := s.opts.Narrator.Speak(ctx, text)
	if err != nil {
		s.logger.Warn("narration failed", "pantry_id", pantryID, "error", err)
		return ""
	}
	key, err := s.media.Save(ctx, speechPrefix, mimeType, bytes.NewReader(audio))
	if err != nil {
		s.logger.Warn("failed to save narration", "pantry_id", pantryID, "error", err)
		return ""
	}
	return key
}

func (s *ChefService) ListSuggestions(ctx context.Context, pantryID int64) ([]*domain.Suggestion, error) {
	if _, err := s.GetPantry(ctx, pantryID); err != nil {
		return nil, err
	}
	return s.suggestions.ListByPantryID(ctx, pantryID)
}

func (s *ChefService) GetSuggestion(ctx context.Context, id int64) (*domain.Suggestion, error) {
	sg, err := s.suggestions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sg == nil {
		return nil, fmt.Errorf("suggestion %d: %w", id, ErrNotFound)
	}
	return sg, nil
}

// LatestPhoto returns the most recent photo of a pantry.
func (s *ChefService) LatestPhoto(ctx context.Context, pantryID int64) (*domain.Photo, error) {
	photo, err := s.photos.GetLatestByPantryID(ctx, pantryID)
	if err != nil {
		return nil, err
	}
	if photo == nil {
		return nil, fmt.Errorf("photo for pantry %d: %w", pantryID, ErrNotFound)
	}
	return photo, nil
}

// OpenMedia streams a stored photo, illustration or narration.
func (s *ChefService) OpenMedia(ctx context.Context, storageKey string) (io.ReadCloser, string, error) {
	rc, mimeType, err := s.media.Get(ctx, storageKey)
	if errors.Is(err, mediastore.ErrNotFound) {
		return nil, "", fmt.Errorf("media %q: %w", storageKey, ErrNotFound)
	}
	return rc, mimeType, err
}
