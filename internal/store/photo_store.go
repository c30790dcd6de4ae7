package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vbonduro/smartchef/internal/domain"
)

const photoColumns = `id, pantry_id, storage_key, mime_type, uploaded_at`

type PhotoStore struct {
	db *sql.DB
}

func NewPhotoStore(db *sql.DB) *PhotoStore {
	return &PhotoStore{db: db}
}

func (s *PhotoStore) Create(ctx context.Context, pantryID int64, storageKey, mimeType string) (*domain.Photo, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO photos (pantry_id, storage_key, mime_type) VALUES (?, ?, ?)
	`, pantryID, storageKey, mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to create photo: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *PhotoStore) GetByID(ctx context.Context, id int64) (*domain.Photo, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT `+photoColumns+` FROM photos WHERE id = ?
	`, id))
}

// GetLatestByPantryID returns the most recent photo, or nil when the pantry
// has none.
func (s *PhotoStore) GetLatestByPantryID(ctx context.Context, pantryID int64) (*domain.Photo, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT `+photoColumns+` FROM photos
		WHERE pantry_id = ? ORDER BY id DESC LIMIT 1
	`, pantryID))
}

func (s *PhotoStore) scanOne(row *sql.Row) (*domain.Photo, error) {
	photo := &domain.Photo{}
	err := row.Scan(&photo.ID, &photo.PantryID, &photo.StorageKey, &photo.MimeType, &photo.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return photo, nil
}

// ListKeysByPantryID returns the storage keys of every photo of a pantry so
// the files can be removed along with the rows.
func (s *PhotoStore) ListKeysByPantryID(ctx context.Context, pantryID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT storage_key FROM photos WHERE pantry_id = ? ORDER BY id ASC
	`, pantryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer closeRows(rows)

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}
	return keys, nil
}

func (s *PhotoStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM photos WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return expectOneRow(result, "photo")
}
