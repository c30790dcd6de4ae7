package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/smartchef/internal/chef"
	"github.com/vbonduro/smartchef/internal/db"
	"github.com/vbonduro/smartchef/internal/mediastore/local"
	"github.com/vbonduro/smartchef/internal/recipe"
	"github.com/vbonduro/smartchef/internal/service"
	"github.com/vbonduro/smartchef/internal/store"
	"github.com/vbonduro/smartchef/internal/vision"
	"github.com/vbonduro/smartchef/internal/web"
)

// minimalJPEG is 512 bytes with the JPEG magic bytes header followed by zeros.
// http.DetectContentType identifies JPEG from the leading 0xFF 0xD8 bytes.
var minimalJPEG = func() []byte {
	b := make([]byte, 512)
	b[0] = 0xFF
	b[1] = 0xD8
	b[2] = 0xFF
	b[3] = 0xE0
	return b
}()

// recordingDetector captures the image bytes passed to it and returns a
// pre-configured result.
type recordingDetector struct {
	mu        sync.Mutex
	lastBytes []byte
	result    *vision.DetectionResult
}

func (r *recordingDetector) Detect(_ context.Context, rd io.Reader, _ string) (*vision.DetectionResult, error) {
	data, err := vision.ReadImage(rd)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.lastBytes = data
	r.mu.Unlock()
	return r.result, nil
}

func (r *recordingDetector) LastBytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastBytes
}

// scriptedGenerator replies with a fixed model response.
type scriptedGenerator struct {
	raw string
}

func (g *scriptedGenerator) Generate(_ context.Context, _ chef.Request) (string, error) {
	return g.raw, nil
}

type stubIllustrator struct{}

func (stubIllustrator) Illustrate(_ context.Context, dish string) ([]byte, string, error) {
	return append([]byte("\x89PNG\r\n\x1a\n"), dish...), "image/png", nil
}

type testServer struct {
	*httptest.Server
	detector  *recordingDetector
	generator *scriptedGenerator
}

// newTestServer sets up a real web.Server backed by in-memory SQLite and a
// local media store in a temp dir.
func newTestServer(t *testing.T, custom map[string]recipe.LabelSet) *testServer {
	t.Helper()
	database, err := db.OpenForTesting()
	require.NoError(t, err)

	media, err := local.New(t.TempDir())
	require.NoError(t, err)

	ts := &testServer{
		detector:  &recordingDetector{result: &vision.DetectionResult{}},
		generator: &scriptedGenerator{},
	}
	svc := service.NewChefService(
		store.NewPantryStore(database),
		store.NewPhotoStore(database),
		store.NewIngredientStore(database),
		store.NewSuggestionStore(database),
		ts.detector,
		ts.generator,
		media,
		service.Options{Illustrator: stubIllustrator{}},
		slog.Default(),
	)
	ts.Server = httptest.NewServer(web.NewServer(svc, custom, slog.Default()))
	t.Cleanup(func() {
		ts.Close()
		_ = database.Close()
	})
	return ts
}

func doJSON(t *testing.T, method, target string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, target, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type pantryBody struct {
	ID          int64 `json:"id"`
	Name        string `json:"name"`
	Ingredients []struct {
		Name    string `json:"name"`
		Source  string `json:"source"`
		PhotoID *int64 `json:"photo_id"`
	} `json:"ingredients"`
}

func (p pantryBody) names() []string {
	out := make([]string, 0, len(p.Ingredients))
	for _, ing := range p.Ingredients {
		out = append(out, ing.Name)
	}
	return out
}

func createPantry(t *testing.T, srv *testServer, name string) int64 {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/pantries", map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[pantryBody](t, resp).ID
}

// buildMultipartBody creates a multipart/form-data body with an "image" field.
func buildMultipartBody(t *testing.T, imageData []byte) (body *bytes.Buffer, contentType string) {
	t.Helper()
	body = &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile("image", "photo.jpg")
	require.NoError(t, err)
	_, err = fw.Write(imageData)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func uploadPhoto(t *testing.T, srv *testServer, pantryID int64, data []byte) *http.Response {
	t.Helper()
	body, ct := buildMultipartBody(t, data)
	resp, err := http.Post(fmt.Sprintf("%s/pantries/%d/photos", srv.URL, pantryID), ct, body)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestIntegration_Healthz(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestIntegration_PantryLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t, nil)

	id := createPantry(t, srv, "Fridge")

	resp := doJSON(t, http.MethodPost, fmt.Sprintf("%s/pantries/%d/ingredients", srv.URL, id),
		map[string]string{"ingredients": "Egg, olive oil, egg"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Egg", "olive oil"}, decode[pantryBody](t, resp).names())

	resp = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/pantries/%d/ingredients/%s", srv.URL, id, url.PathEscape("Olive Oil")), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Egg"}, decode[pantryBody](t, resp).names())

	resp = doJSON(t, http.MethodGet, srv.URL+"/pantries", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]pantryBody](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, "Fridge", list[0].Name)

	resp = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/pantries/%d", srv.URL, id), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, fmt.Sprintf("%s/pantries/%d", srv.URL, id), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_Search(t *testing.T) {
	srv := newTestServer(t, nil)
	fridge := createPantry(t, srv, "Fridge")
	resp := doJSON(t, http.MethodPost, fmt.Sprintf("%s/pantries/%d/ingredients", srv.URL, fridge),
		map[string]string{"ingredients": "whole milk, butter"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	type hit struct {
		PantryID int64  `json:"pantry_id"`
		Name     string `json:"name"`
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/search?q=MILK", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []hit{{PantryID: fridge, Name: "whole milk"}}, decode[[]hit](t, resp))

	resp = doJSON(t, http.MethodGet, srv.URL+"/search", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]hit](t, resp))
}

func TestIntegration_CreatePantryValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/pantries", map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/pantries", map[string]string{"name": strings.Repeat("x", 201)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/pantries", map[string]string{"title": "Fridge"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/pantries/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIntegration_UploadPhotoDetectsIngredients(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t, nil)
	srv.detector.result = &vision.DetectionResult{Ingredients: []vision.DetectedIngredient{
		{Name: "egg", Notes: "half dozen"}, {Name: "milk"},
	}}
	id := createPantry(t, srv, "Fridge")

	resp := uploadPhoto(t, srv, id, minimalJPEG)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var det struct {
		Pantry   pantryBody `json:"pantry"`
		PhotoURL string     `json:"photo_url"`
		Detected []struct {
			Name  string `json:"name"`
			Notes string `json:"notes"`
		} `json:"detected"`
		Added []string `json:"added"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&det))
	assert.Equal(t, []string{"egg", "milk"}, det.Added)
	assert.Equal(t, []string{"egg", "milk"}, det.Pantry.names())
	assert.Equal(t, "half dozen", det.Detected[0].Notes)
	assert.True(t, bytes.Equal(minimalJPEG, srv.detector.LastBytes()), "detector received different bytes")

	photo, err := http.Get(fmt.Sprintf("%s/pantries/%d/photo", srv.URL, id))
	require.NoError(t, err)
	defer func() { _ = photo.Body.Close() }()
	require.Equal(t, http.StatusOK, photo.StatusCode)
	assert.Equal(t, "image/jpeg", photo.Header.Get("Content-Type"))
	got, err := io.ReadAll(photo.Body)
	require.NoError(t, err)
	assert.Equal(t, minimalJPEG, got)

	media, err := http.Get(srv.URL + det.PhotoURL)
	require.NoError(t, err)
	defer func() { _ = media.Body.Close() }()
	assert.Equal(t, http.StatusOK, media.StatusCode)
}

func TestIntegration_UploadRejectsNonImage(t *testing.T) {
	srv := newTestServer(t, nil)
	id := createPantry(t, srv, "Fridge")

	resp := uploadPhoto(t, srv, id, []byte("%PDF-1.4 not a photo"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Nil(t, srv.detector.LastBytes())

	resp = uploadPhoto(t, srv, 999, minimalJPEG)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_GetPhotoWithoutUpload(t *testing.T) {
	srv := newTestServer(t, nil)
	id := createPantry(t, srv, "Fridge")

	resp := doJSON(t, http.MethodGet, fmt.Sprintf("%s/pantries/%d/photo", srv.URL, id), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/media/photos/../../etc/passwd", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_Suggestions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t, nil)
	id := createPantry(t, srv, "Fridge")
	suggestionsURL := fmt.Sprintf("%s/pantries/%d/suggestions", srv.URL, id)

	resp := doJSON(t, http.MethodPost, suggestionsURL, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "empty pantry")

	resp = doJSON(t, http.MethodPost, fmt.Sprintf("%s/pantries/%d/ingredients", srv.URL, id),
		map[string]string{"ingredients": "egg, tomato"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	srv.generator.raw = "N/A"
	resp = doJSON(t, http.MethodPost, suggestionsURL, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	srv.generator.raw = "Recipe: Tomato Omelette\nCooking time: 10 minutes\nSteps:\nBeat eggs.\nAdd tomato."
	resp = doJSON(t, http.MethodPost, suggestionsURL, map[string]string{"craving": "something warm"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	type suggestionBody struct {
		ID      int64  `json:"id"`
		Craving string `json:"craving"`
		Recipes []struct {
			Name        string `json:"name"`
			CookingTime string `json:"cooking_time"`
			Steps       string `json:"steps"`
			ImageURL    string `json:"image_url"`
		} `json:"recipes"`
	}
	sg := decode[suggestionBody](t, resp)
	assert.Equal(t, "something warm", sg.Craving)
	require.Len(t, sg.Recipes, 1)
	assert.Equal(t, "Tomato Omelette", sg.Recipes[0].Name)
	assert.Equal(t, "Beat eggs.\nAdd tomato.", sg.Recipes[0].Steps)
	require.NotEmpty(t, sg.Recipes[0].ImageURL)

	img := doJSON(t, http.MethodGet, srv.URL+sg.Recipes[0].ImageURL, nil)
	assert.Equal(t, http.StatusOK, img.StatusCode)
	assert.Equal(t, "image/png", img.Header.Get("Content-Type"))

	resp = doJSON(t, http.MethodGet, fmt.Sprintf("%s/suggestions/%d", srv.URL, sg.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, sg, decode[suggestionBody](t, resp))

	resp = doJSON(t, http.MethodGet, suggestionsURL, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]suggestionBody](t, resp), 1)

	resp = doJSON(t, http.MethodGet, srv.URL+"/suggestions/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type parsedBody struct {
	HealthSummary *string `json:"health_summary"`
	ChefTip       string  `json:"chef_tip"`
	NoAnswer      bool    `json:"no_answer"`
	Recipes       []struct {
		Name                  string `json:"name"`
		AdditionalIngredients string `json:"additional_ingredients"`
	} `json:"recipes"`
}

func TestIntegration_Parse(t *testing.T) {
	custom := map[string]recipe.LabelSet{"dish": {Name: "Dish:", Steps: "Method:"}}
	srv := newTestServer(t, custom)

	tests := []struct {
		name       string
		req        map[string]string
		wantStatus int
		wantNames  []string
	}{
		{
			name:       "default english labels",
			req:        map[string]string{"text": "- Recipe: Toast\n- Additional ingredients: N/A"},
			wantStatus: http.StatusOK,
			wantNames:  []string{"Toast"},
		},
		{
			name:       "korean labels",
			req:        map[string]string{"text": "요리 이름: 김밥\n요리 이름: 라면", "labels": "korean"},
			wantStatus: http.StatusOK,
			wantNames:  []string{"김밥", "라면"},
		},
		{
			name:       "strict english keeps ingredient lines in steps",
			req:        map[string]string{"text": "Recipe: Stew\nSteps:\nIngredients: stir well", "labels": "english_strict"},
			wantStatus: http.StatusOK,
			wantNames:  []string{"Stew"},
		},
		{
			name:       "custom labels",
			req:        map[string]string{"text": "Dish: Congee\nMethod:\nSimmer.", "labels": "Dish"},
			wantStatus: http.StatusOK,
			wantNames:  []string{"Congee"},
		},
		{
			name:       "structured",
			req:        map[string]string{"text": `{"chefTip":"Salt lightly.","recipes":[{"name":"Soup"}]}`, "labels": "json"},
			wantStatus: http.StatusOK,
			wantNames:  []string{"Soup"},
		},
		{
			name:       "unknown label set",
			req:        map[string]string{"text": "Recipe: Toast", "labels": "klingon"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed structured",
			req:        map[string]string{"text": "{not json", "labels": "json"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, srv.URL+"/parse", tt.req)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus != http.StatusOK {
				return
			}
			body := decode[parsedBody](t, resp)
			names := make([]string, 0, len(body.Recipes))
			for _, r := range body.Recipes {
				names = append(names, r.Name)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestIntegration_ParseNoAnswer(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/parse", map[string]string{"text": " n/a. "})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[parsedBody](t, resp)
	assert.True(t, body.NoAnswer)
	assert.Empty(t, body.Recipes)
}
