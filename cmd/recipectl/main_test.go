package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func newBackend(t *testing.T, status int, body string, got *map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			data, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(data, got)
		}
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(context.Background(), append([]string{name}, args...))
	return out.String(), err
}

func TestGenerate_Text(t *testing.T) {
	var got map[string]string
	srv := newBackend(t, http.StatusOK,
		`{"name":"Tomato Rice","calories":"350 kcal","steps":["Boil rice","Add tomato","Serve"]}`, &got)

	out, err := run(t, "generate", "--ingredients", "tomato, rice", "--diet", "vegetarian", "--api-url", srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Tomato Rice\nCalories: 350 kcal\n1. Boil rice\n2. Add tomato\n3. Serve\n", out)
	assert.Equal(t, map[string]string{"ingredients": "tomato, rice", "diet": "vegetarian"}, got)
}

func TestGenerate_Formats(t *testing.T) {
	srv := newBackend(t, http.StatusOK, `{"name":"Omelette","protein":"20g","steps":["Whisk","Fry"]}`, nil)

	t.Run("JSON", func(t *testing.T) {
		out, err := run(t, "generate", "-i", "eggs", "--api-url", srv.URL, "--format", "json")
		require.NoError(t, err)

		var rec recipeOutput
		require.NoError(t, json.Unmarshal([]byte(out), &rec))
		assert.Equal(t, recipeOutput{Name: "Omelette", Protein: "20g", Steps: []string{"Whisk", "Fry"}}, rec)
		assert.NotContains(t, out, "calories")
	})

	t.Run("YAML", func(t *testing.T) {
		out, err := run(t, "generate", "-i", "eggs", "--api-url", srv.URL, "-o", "yaml")
		require.NoError(t, err)

		var rec recipeOutput
		require.NoError(t, yaml.Unmarshal([]byte(out), &rec))
		assert.Equal(t, "Omelette", rec.Name)
		assert.Equal(t, []string{"Whisk", "Fry"}, rec.Steps)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := run(t, "generate", "-i", "eggs", "--api-url", srv.URL, "--format", "xml")
		assert.ErrorContains(t, err, "unknown output format")
	})
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		args    []string
		wantErr string
	}{
		{"ServerError", http.StatusInternalServerError, `{}`, nil, "Failed to generate recipe. Please try again."},
		{"MalformedJSON", http.StatusOK, `{"name":`, nil, "Failed to generate recipe. Please try again."},
		{"BlankIngredients", http.StatusOK, `{"name":"x"}`, []string{"--ingredients", "   "}, "Please enter ingredients"},
		{"UnknownDiet", http.StatusOK, `{"name":"x"}`, []string{"--diet", "paleo"}, "supported values"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newBackend(t, tt.status, tt.body, nil)

			args := []string{"generate", "--api-url", srv.URL, "--ingredients", "rice"}
			_, err := run(t, append(args, tt.args...)...)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			var exit cli.ExitCoder
			if tt.name != "UnknownDiet" {
				require.ErrorAs(t, err, &exit)
				assert.Equal(t, 1, exit.ExitCode())
			}
		})
	}
}

func TestGenerate_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(300 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		io.WriteString(w, `{"name":"Slow Stew","steps":["Wait"]}`)
	}))
	t.Cleanup(srv.Close)

	t.Run("DefaultWaits", func(t *testing.T) {
		generate := newApp(io.Discard).Command("generate")
		require.NotNil(t, generate)
		for _, f := range generate.Flags {
			if d, ok := f.(*cli.DurationFlag); ok && d.Name == "timeout" {
				assert.Zero(t, d.Value)
			}
		}

		out, err := run(t, "generate", "-i", "beef", "--api-url", srv.URL)
		require.NoError(t, err)
		assert.Contains(t, out, "Slow Stew")
	})

	t.Run("Exceeded", func(t *testing.T) {
		out, err := run(t, "generate", "-i", "beef", "--api-url", srv.URL, "--timeout", "50ms")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Failed to generate recipe. Please try again.")
		assert.Empty(t, out)

		var exit cli.ExitCoder
		require.ErrorAs(t, err, &exit)
		assert.Equal(t, 1, exit.ExitCode())
	})
}

func TestGenerate_APIURLFromEnv(t *testing.T) {
	srv := newBackend(t, http.StatusOK, `{"name":"Soup"}`, nil)
	t.Setenv("RECIPE_API_BASE_URL", srv.URL+"/")

	out, err := run(t, "generate", "-i", "carrot")
	require.NoError(t, err)
	assert.Equal(t, "Soup\n", out)
}

func TestDiets(t *testing.T) {
	out, err := run(t, "diets")
	require.NoError(t, err)

	for _, want := range []string{"general", "weight-loss", "high-protein", "vegetarian", "High Protein"} {
		assert.Contains(t, out, want)
	}
}
