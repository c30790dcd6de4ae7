package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vbonduro/smartchef/internal/domain"
	"github.com/vbonduro/smartchef/internal/pantry"
)

const ingredientColumns = `id, pantry_id, photo_id, name, source, created_at`

type IngredientStore struct {
	db *sql.DB
}

func NewIngredientStore(db *sql.DB) *IngredientStore {
	return &IngredientStore{db: db}
}

// Add inserts name into the pantry unless an ingredient with the same folded
// name is already there. It returns the stored ingredient and whether it was
// newly created.
func (s *IngredientStore) Add(ctx context.Context, pantryID int64, photoID *int64, name, source string) (*domain.Ingredient, bool, error) {
	key := pantry.Key(name)
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO ingredients (pantry_id, photo_id, name, name_key, source) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (pantry_id, name_key) DO NOTHING
	`, pantryID, photoID, name, key, source)
	if err != nil {
		return nil, false, fmt.Errorf("failed to add ingredient: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	ing, err := s.getByKey(ctx, pantryID, key)
	if err != nil {
		return nil, false, err
	}
	return ing, n > 0, nil
}

func (s *IngredientStore) getByKey(ctx context.Context, pantryID int64, key string) (*domain.Ingredient, error) {
	ing := &domain.Ingredient{}
	err := s.db.QueryRowContext(ctx, `
		SELECT `+ingredientColumns+` FROM ingredients WHERE pantry_id = ? AND name_key = ?
	`, pantryID, key).Scan(&ing.ID, &ing.PantryID, &ing.PhotoID, &ing.Name, &ing.Source, &ing.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ingredient: %w", err)
	}
	return ing, nil
}

// ListByPantryID returns ingredients in the order they were added.
func (s *IngredientStore) ListByPantryID(ctx context.Context, pantryID int64) ([]*domain.Ingredient, error) {
	return s.query(ctx, `
		SELECT `+ingredientColumns+` FROM ingredients
		WHERE pantry_id = ? ORDER BY id ASC
	`, pantryID)
}

// likeEscaper makes LIKE wildcards in a query match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Search finds ingredients by case-insensitive substring across all pantries.
func (s *IngredientStore) Search(ctx context.Context, query string) ([]*domain.Ingredient, error) {
	pattern := "%" + likeEscaper.Replace(pantry.Key(query)) + "%"
	return s.query(ctx, `
		SELECT `+ingredientColumns+` FROM ingredients
		WHERE name_key LIKE ? ESCAPE '\'
		ORDER BY name_key ASC, id ASC
	`, pattern)
}

func (s *IngredientStore) query(ctx context.Context, q string, args ...any) ([]*domain.Ingredient, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	defer closeRows(rows)

	ingredients := make([]*domain.Ingredient, 0)
	for rows.Next() {
		ing := &domain.Ingredient{}
		if err := rows.Scan(&ing.ID, &ing.PantryID, &ing.PhotoID, &ing.Name, &ing.Source, &ing.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		ingredients = append(ingredients, ing)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ingredients: %w", err)
	}

	return ingredients, nil
}

// Remove deletes the ingredient whose folded name matches name.
func (s *IngredientStore) Remove(ctx context.Context, pantryID int64, name string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM ingredients WHERE pantry_id = ? AND name_key = ?
	`, pantryID, pantry.Key(name))
	if err != nil {
		return fmt.Errorf("failed to remove ingredient: %w", err)
	}
	return expectOneRow(result, "ingredient")
}
