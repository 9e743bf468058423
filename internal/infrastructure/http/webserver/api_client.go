// Package webserver provides the server-rendered recipe form and the client
// for the recipe generation backend
package webserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/alchemorsel/recipe-form/internal/domain/recipe"
	"github.com/alchemorsel/recipe-form/internal/infrastructure/config"
	"github.com/alchemorsel/recipe-form/internal/ports/outbound"
	"github.com/alchemorsel/recipe-form/pkg/errors"
	"github.com/alchemorsel/recipe-form/pkg/healthcheck"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	backendName        = "recipe-api"
	generateRecipePath = "/generate-recipe"
)

var _ outbound.RecipeGenerator = (*APIClient)(nil)

// APIClient handles communication with the recipe generation backend
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// generateRecipeRequest is the wire body of a generation request
type generateRecipeRequest struct {
	Ingredients string      `json:"ingredients"`
	Diet        recipe.Diet `json:"diet"`
}

// NewAPIClient creates a new API client instance
func NewAPIClient(cfg *config.Config, logger *zap.Logger) *APIClient {
	return &APIClient{
		baseURL: cfg.API.BaseURL,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.API.Timeout,
		},
		logger: logger.Named("api-client"),
	}
}

// BaseURL returns the backend base URL
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// GenerateRecipe posts the draft to the backend and decodes the recipe.
// Failures are *errors.AppError with CodeTransport or CodeParse.
func (c *APIClient) GenerateRecipe(ctx context.Context, draft recipe.Draft) (*recipe.Recipe, error) {
	body, err := c.post(ctx, generateRecipePath, generateRecipeRequest{
		Ingredients: draft.Ingredients,
		Diet:        draft.Diet,
	})
	if err != nil {
		return nil, err
	}

	result, err := recipe.Decode(body)
	if err != nil {
		return nil, errors.NewParseError(backendName, err)
	}
	return result, nil
}

// VerifyConnection checks that the backend accepts connections. Any HTTP
// answer counts as reachable.
func (c *APIClient) VerifyConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewTransportError(backendName, err)
	}
	resp.Body.Close()
	return nil
}

// Helper methods

// HealthChecker reports the backend as degraded while it is unreachable.
// The form keeps rendering and reports failed submissions, so an outage
// never fails readiness.
func (c *APIClient) HealthChecker(name string) healthcheck.Checker {
	return healthcheck.NewCustomChecker(name, func(ctx context.Context) (healthcheck.Status, string, interface{}) {
		meta := map[string]interface{}{"api_url": c.baseURL}
		if err := c.VerifyConnection(ctx); err != nil {
			return healthcheck.StatusDegraded, "Recipe API not accessible", meta
		}
		return healthcheck.StatusHealthy, "Recipe API accessible", meta
	})
}

func (c *APIClient) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, errors.NewTransportError(backendName, err)
	}

	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(req)
}

func (c *APIClient) doRequest(req *http.Request) ([]byte, error) {
	c.logger.Debug("API request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewTransportError(backendName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransportError(backendName, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("API error response",
			zap.Int("status", resp.StatusCode),
			zap.Int("body_bytes", len(body)),
		)
		return nil, errors.NewStatusError(backendName, resp.StatusCode)
	}

	return body, nil
}
