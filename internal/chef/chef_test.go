package chef

import (
	"context"
	"errors"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/smartchef/internal/recipe"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "english", want: FormatEnglish},
		{in: " Korean ", want: FormatKorean},
		{in: "JSON", want: FormatJSON},
		{in: "yaml", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsNoAnswer(t *testing.T) {
	assert.True(t, IsNoAnswer("N/A"))
	assert.True(t, IsNoAnswer("  n/a.\n"))
	assert.True(t, IsNoAnswer("'N/A'"))
	assert.False(t, IsNoAnswer("Recipe: Toast\nAdditional ingredients: N/A"))
	assert.False(t, IsNoAnswer(""))
}

func TestDecodeText(t *testing.T) {
	result, err := Decode("Recipe: Toast\nSteps:\nToast bread.", Request{Format: FormatEnglish})
	require.NoError(t, err)
	require.Len(t, result.Recipes, 1)
	assert.Equal(t, "Toast", result.Recipes[0].Name)
	assert.Equal(t, "Toast bread.", result.Recipes[0].Steps)
}

func TestDecodeCustomLabels(t *testing.T) {
	labels := recipe.LabelSet{Name: "Dish:", Steps: "Method:"}
	result, err := Decode("Dish: Soup\nMethod:\nBoil.", Request{Format: FormatEnglish, Labels: &labels})
	require.NoError(t, err)
	require.Len(t, result.Recipes, 1)
	assert.Equal(t, "Soup", result.Recipes[0].Name)
	assert.Equal(t, "Boil.", result.Recipes[0].Steps)
}

func TestDecodeKorean(t *testing.T) {
	result, err := Decode("건강 요약: 싱겁게\n요리 이름: 죽", Request{Format: FormatKorean})
	require.NoError(t, err)
	require.NotNil(t, result.HealthSummary)
	assert.Equal(t, "싱겁게", *result.HealthSummary)
	assert.Equal(t, "죽", result.Recipes[0].Name)
}

func TestDecodeJSON(t *testing.T) {
	raw := `{"chefTip":"Eat slowly.","recipes":{"first":{"name":"비빔밥","english_name":"Bibimbap"}}}`
	result, err := Decode(raw, Request{Format: FormatJSON})
	require.NoError(t, err)
	assert.Equal(t, "Eat slowly.", result.ChefTip)
	require.Len(t, result.Recipes, 1)
	assert.Equal(t, "Bibimbap", result.Recipes[0].EnglishName)

	_, err = Decode("not json", Request{Format: FormatJSON})
	assert.Error(t, err)
}

func TestDecodeNoAnswer(t *testing.T) {
	for _, f := range []Format{FormatEnglish, FormatKorean, FormatJSON} {
		_, err := Decode("N/A", Request{Format: f})
		assert.ErrorIs(t, err, ErrNoRecipes, string(f))
	}
}

func TestRetryTransient(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), &backoff.ZeroBackOff{}, func(error) bool { return true }, func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPermanent(t *testing.T) {
	calls := 0
	boom := errors.New("bad request")
	err := Retry(context.Background(), &backoff.ZeroBackOff{}, func(error) bool { return false }, func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	b := backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
	err := Retry(context.Background(), b, func(error) bool { return true }, func() error {
		calls++
		return errors.New("still down")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}
