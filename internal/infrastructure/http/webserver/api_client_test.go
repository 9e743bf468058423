package webserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alchemorsel/recipe-form/internal/domain/recipe"
	"github.com/alchemorsel/recipe-form/internal/infrastructure/config"
	"github.com/alchemorsel/recipe-form/pkg/errors"
	"github.com/alchemorsel/recipe-form/pkg/healthcheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(baseURL string, timeout time.Duration) *APIClient {
	cfg := &config.Config{API: config.APIConfig{BaseURL: baseURL, Timeout: timeout}}
	return NewAPIClient(cfg, zap.NewNop())
}

func TestAPIClient_GenerateRecipe_Request(t *testing.T) {
	var (
		method      string
		path        string
		contentType string
		body        map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path, contentType = r.Method, r.URL.Path, r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		io.WriteString(w, `{"name":"Tomato Rice"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 0).GenerateRecipe(context.Background(),
		recipe.Draft{Ingredients: "tomato, rice", Diet: recipe.DietVegetarian})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/generate-recipe", path)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, map[string]interface{}{"ingredients": "tomato, rice", "diet": "vegetarian"}, body)
}

func TestAPIClient_GenerateRecipe_Responses(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode errors.ErrorCode
		wantName string
	}{
		{"Success", http.StatusOK, `{"name":"Tomato Rice","calories":"350 kcal","steps":["Boil rice","Add tomato","Serve"]}`, "", "Tomato Rice"},
		{"Created", http.StatusCreated, `{"name":"Soup"}`, "", "Soup"},
		{"ServerError", http.StatusInternalServerError, `{"detail":"boom"}`, errors.CodeTransport, ""},
		{"NotFound", http.StatusNotFound, ``, errors.CodeTransport, ""},
		{"MalformedJSON", http.StatusOK, `{"name":`, errors.CodeParse, ""},
		{"HTMLBody", http.StatusOK, `<html>oops</html>`, errors.CodeParse, ""},
		{"NullBody", http.StatusOK, `null`, errors.CodeParse, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			r, err := newTestClient(srv.URL, 0).GenerateRecipe(context.Background(),
				recipe.Draft{Ingredients: "x", Diet: recipe.DietGeneral})

			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantName, r.Name)
				return
			}
			require.Error(t, err)
			assert.Nil(t, r)
			assert.Equal(t, tt.wantCode, errors.GetCode(err))
		})
	}
}

func TestAPIClient_GenerateRecipe_StatusMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 0).GenerateRecipe(context.Background(), recipe.Draft{Ingredients: "x", Diet: recipe.DietGeneral})

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Metadata["status"])
}

func TestAPIClient_GenerateRecipe_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url, 0).GenerateRecipe(context.Background(), recipe.Draft{Ingredients: "x", Diet: recipe.DietGeneral})
	assert.True(t, errors.Is(err, errors.CodeTransport))
}

func TestAPIClient_GenerateRecipe_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestClient(srv.URL, 50*time.Millisecond).GenerateRecipe(context.Background(), recipe.Draft{Ingredients: "x", Diet: recipe.DietGeneral})
	assert.True(t, errors.Is(err, errors.CodeTransport))
}

func TestAPIClient_VerifyConnection(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client := newTestClient(srv.URL, time.Second)

	assert.NoError(t, client.VerifyConnection(context.Background()), "any HTTP answer counts as reachable")
	assert.Equal(t, srv.URL, client.BaseURL())

	srv.Close()
	assert.Error(t, client.VerifyConnection(context.Background()))
}

func TestAPIClient_HealthChecker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	client := newTestClient(srv.URL, time.Second)
	checker := client.HealthChecker("recipe_api")

	check := checker.Check(context.Background())
	assert.Equal(t, "recipe_api", check.Name)
	assert.Equal(t, healthcheck.StatusHealthy, check.Status, "a 5xx answer still means reachable")

	srv.Close()
	check = checker.Check(context.Background())
	assert.Equal(t, healthcheck.StatusDegraded, check.Status)
	assert.Equal(t, "Recipe API not accessible", check.Message)
}
