package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vbonduro/smartchef/internal/domain"
)

// ErrNotFound is returned by updates and deletes that matched no row.
var ErrNotFound = errors.New("not found")

type PantryStore struct {
	db *sql.DB
}

func NewPantryStore(db *sql.DB) *PantryStore {
	return &PantryStore{db: db}
}

func (s *PantryStore) Create(ctx context.Context, name string) (*domain.Pantry, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO pantries (name) VALUES (?)
	`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create pantry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID returns nil, nil when the pantry does not exist.
func (s *PantryStore) GetByID(ctx context.Context, id int64) (*domain.Pantry, error) {
	p := &domain.Pantry{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at FROM pantries WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pantry: %w", err)
	}

	return p, nil
}

func (s *PantryStore) List(ctx context.Context) ([]*domain.Pantry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at FROM pantries ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pantries: %w", err)
	}
	defer closeRows(rows)

	pantries := make([]*domain.Pantry, 0)
	for rows.Next() {
		p := &domain.Pantry{}
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pantry: %w", err)
		}
		pantries = append(pantries, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pantries: %w", err)
	}

	return pantries, nil
}

func (s *PantryStore) Rename(ctx context.Context, id int64, name string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE pantries SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, name, id)
	if err != nil {
		return fmt.Errorf("failed to rename pantry: %w", err)
	}
	return expectOneRow(result, "pantry")
}

// Touch bumps updated_at after the ingredient list changed.
func (s *PantryStore) Touch(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pantries SET updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to touch pantry: %w", err)
	}
	return nil
}

func (s *PantryStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM pantries WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pantry: %w", err)
	}
	return expectOneRow(result, "pantry")
}

func expectOneRow(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Error("failed to close rows", "error", err)
	}
}
