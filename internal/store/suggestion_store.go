package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/vbonduro/smartchef/internal/domain"
)

const suggestionColumns = `id, pantry_id, health_condition, craving, format, ingredients,
	health_summary, chef_tip, chef_tip_audio_key, recipes, raw_response, created_at`

// SuggestionStore persists recommendation runs. Raw model responses are kept
// zstd-compressed; recipes and ingredients are stored as JSON.
type SuggestionStore struct {
	db *sql.DB
}

func NewSuggestionStore(db *sql.DB) *SuggestionStore {
	return &SuggestionStore{db: db}
}

func (s *SuggestionStore) Create(ctx context.Context, sg *domain.Suggestion) (*domain.Suggestion, error) {
	ingredients, err := json.Marshal(sg.Ingredients)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ingredients: %w", err)
	}
	recipes, err := json.Marshal(sg.Recipes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode recipes: %w", err)
	}
	raw, err := compress(sg.RawResponse)
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO suggestions (pantry_id, health_condition, craving, format, ingredients,
			health_summary, chef_tip, chef_tip_audio_key, recipes, raw_response)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sg.PantryID, sg.HealthCondition, sg.Craving, sg.Format, string(ingredients),
		sg.HealthSummary, sg.ChefTip, sg.ChefTipAudioKey, string(recipes), raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create suggestion: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID returns nil, nil when no suggestion has that id.
func (s *SuggestionStore) GetByID(ctx context.Context, id int64) (*domain.Suggestion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+suggestionColumns+` FROM suggestions WHERE id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get suggestion: %w", err)
	}
	list, err := scanSuggestions(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListByPantryID returns the pantry's suggestions, newest first.
func (s *SuggestionStore) ListByPantryID(ctx context.Context, pantryID int64) ([]*domain.Suggestion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+suggestionColumns+` FROM suggestions WHERE pantry_id = ? ORDER BY id DESC
	`, pantryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list suggestions: %w", err)
	}
	return scanSuggestions(rows)
}

func scanSuggestions(rows *sql.Rows) ([]*domain.Suggestion, error) {
	defer closeRows(rows)

	list := make([]*domain.Suggestion, 0)
	for rows.Next() {
		var (
			sg            domain.Suggestion
			ingredients   string
			recipes       string
			healthSummary sql.NullString
			raw           []byte
		)
		if err := rows.Scan(&sg.ID, &sg.PantryID, &sg.HealthCondition, &sg.Craving, &sg.Format,
			&ingredients, &healthSummary, &sg.ChefTip, &sg.ChefTipAudioKey, &recipes, &raw, &sg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		if err := json.Unmarshal([]byte(ingredients), &sg.Ingredients); err != nil {
			return nil, fmt.Errorf("failed to decode ingredients of suggestion %d: %w", sg.ID, err)
		}
		if err := json.Unmarshal([]byte(recipes), &sg.Recipes); err != nil {
			return nil, fmt.Errorf("failed to decode recipes of suggestion %d: %w", sg.ID, err)
		}
		if healthSummary.Valid {
			summary := healthSummary.String
			sg.HealthSummary = &summary
		}
		text, err := decompress(raw)
		if err != nil {
			return nil, fmt.Errorf("suggestion %d: %w", sg.ID, err)
		}
		sg.RawResponse = text
		list = append(list, &sg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suggestions: %w", err)
	}
	return list, nil
}

func (s *SuggestionStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM suggestions WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete suggestion: %w", err)
	}
	return expectOneRow(result, "suggestion")
}

func compress(text string) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	if _, err := io.WriteString(enc, text); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("compress raw response: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize compression: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	out, err := io.ReadAll(dec)
	if err != nil {
		return "", fmt.Errorf("decompress raw response: %w", err)
	}
	return string(out), nil
}
