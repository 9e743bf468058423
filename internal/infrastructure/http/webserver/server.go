package webserver

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/alchemorsel/recipe-form/internal/application/form"
	"github.com/alchemorsel/recipe-form/internal/domain/recipe"
	"github.com/alchemorsel/recipe-form/internal/infrastructure/config"
	"github.com/alchemorsel/recipe-form/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/recipe-form/internal/infrastructure/monitoring"
	"github.com/alchemorsel/recipe-form/internal/ports/inbound"
	"github.com/alchemorsel/recipe-form/pkg/errors"
	"github.com/alchemorsel/recipe-form/pkg/healthcheck"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

//go:embed templates/*
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

const pageTitle = "AI Recipe Generator"

// maxFormBytes bounds the urlencoded body of a submission
const maxFormBytes = 64 << 10

var _ inbound.RecipeForm = (*form.Service)(nil)

// WebServer represents the web frontend HTTP server
type WebServer struct {
	config      *config.Config
	logger      *zap.Logger
	server      *http.Server
	router      *chi.Mux
	forms       inbound.RecipeForm
	sessions    *Sessions
	templateFS  fs.FS
	templatesMu sync.RWMutex
	templates   *template.Template
	healthCheck *healthcheck.HealthCheck
	metrics     *monitoring.MetricsCollector
	limiter     *middleware.RateLimiter
}

// pageData is the root object of every template
type pageData struct {
	Title     string
	Version   string
	BusyLabel string
	View      form.View
}

// NewWebServer creates a new web frontend server instance. metrics may be
// nil when metrics are disabled.
func NewWebServer(
	cfg *config.Config,
	log *zap.Logger,
	forms inbound.RecipeForm,
	sessions *Sessions,
	healthCheck *healthcheck.HealthCheck,
	metrics *monitoring.MetricsCollector,
	limiter *middleware.RateLimiter,
) (*WebServer, error) {
	templateFS, _ := fs.Sub(templatesFS, "templates")
	if cfg.Server.TemplatesDir != "" {
		templateFS = os.DirFS(cfg.Server.TemplatesDir)
	}

	templates, err := parseTemplates(templateFS)
	if err != nil {
		log.Error("Failed to parse templates", zap.Error(err))
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	log.Debug("Templates parsed", zap.String("templates", templates.DefinedTemplates()))

	server := &WebServer{
		config:      cfg,
		logger:      log,
		forms:       forms,
		sessions:    sessions,
		templateFS:  templateFS,
		templates:   templates,
		healthCheck: healthCheck,
		metrics:     metrics,
		limiter:     limiter,
	}

	server.router = server.setupRoutes()
	server.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      otelhttp.NewHandler(server.router, "recipe-form"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server, nil
}

// setupRoutes configures the web frontend routes
func (s *WebServer) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Security(s.config.IsProduction()))
	if s.config.Server.EnableCompression {
		r.Use(middleware.Compression(middleware.DefaultCompressionConfig(), s.logger))
	}
	if s.metrics != nil {
		r.Use(s.metrics.HTTPMiddleware)
	}

	// Static files
	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	// Health check endpoints
	r.Get("/health", s.healthCheck.Handler())
	r.Get("/ready", s.healthCheck.ReadinessHandler())
	r.Get("/live", s.healthCheck.LivenessHandler())
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	// Form
	r.Get("/", s.handleHome)
	r.Post("/draft", s.handleDraft)
	r.With(s.limiter.Middleware(s.denySubmission)).Post("/generate", s.handleGenerate)

	return r
}

// Handler returns the root handler of the server
func (s *WebServer) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the web frontend HTTP server
func (s *WebServer) Start() error {
	s.logger.Info("Starting Web Frontend server",
		zap.String("address", s.server.Addr),
		zap.String("api_base_url", s.config.API.BaseURL),
	)

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the web server
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down Web Frontend server...")
	return s.server.Shutdown(ctx)
}

// ReloadTemplates parses the templates again from their source. A parse
// error keeps the previous set.
func (s *WebServer) ReloadTemplates() error {
	templates, err := parseTemplates(s.templateFS)
	if err != nil {
		return err
	}

	s.templatesMu.Lock()
	s.templates = templates
	s.templatesMu.Unlock()

	s.logger.Info("Templates reloaded")
	return nil
}

func (s *WebServer) currentTemplates() *template.Template {
	s.templatesMu.RLock()
	defer s.templatesMu.RUnlock()
	return s.templates
}

// parseTemplates parses all HTML templates of fsys
func parseTemplates(fsys fs.FS) (*template.Template, error) {
	tmpl := template.New("")

	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", path, err)
		}

		// Template name is the path without extension
		name := strings.TrimSuffix(path, ".html")

		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", name, err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk templates: %w", err)
	}

	return tmpl, nil
}

// Handler functions

func (s *WebServer) handleHome(w http.ResponseWriter, r *http.Request) {
	sessionID := s.sessions.ID(w, r)

	st, err := s.forms.State(r.Context(), sessionID)
	if err != nil {
		s.renderError(w, r, "Failed to load form", err)
		return
	}

	s.render(w, r, http.StatusOK, form.Render(st))
}

func (s *WebServer) handleDraft(w http.ResponseWriter, r *http.Request) {
	sessionID := s.sessions.ID(w, r)

	draft, ok := s.parseDraft(w, r)
	if !ok {
		return
	}

	if _, err := s.forms.Edit(r.Context(), sessionID, draft); err != nil {
		s.logger.Error("Failed to store draft", zap.String("session_id", sessionID), zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *WebServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sessionID := s.sessions.ID(w, r)

	draft, ok := s.parseDraft(w, r)
	if !ok {
		return
	}

	st, err := s.forms.Generate(r.Context(), sessionID, draft)
	if err != nil {
		s.renderError(w, r, "Failed to generate recipe", err)
		return
	}

	s.render(w, r, http.StatusOK, form.Render(st))
}

// denySubmission answers a rate limited submission with the form and the
// generic failure message. The stored state is left alone.
func (s *WebServer) denySubmission(w http.ResponseWriter, r *http.Request, appErr *errors.AppError) {
	sessionID := s.sessions.ID(w, r)

	st, err := s.forms.State(r.Context(), sessionID)
	if err != nil {
		st = form.NewState()
	}

	view := form.Render(st)
	view.Error = recipe.MsgGenerationFailed
	view.Card = nil
	s.render(w, r, appErr.StatusCode(), view)
}

// Helper methods

// parseDraft reads the submitted draft. Unknown diet values fall back to
// the default diet.
func (s *WebServer) parseDraft(w http.ResponseWriter, r *http.Request) (recipe.Draft, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.logger.Debug("Invalid form body", zap.Error(err))
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return recipe.Draft{}, false
	}

	draft := recipe.NewDraft()
	draft.Ingredients = r.PostFormValue("ingredients")
	if diet, err := recipe.ParseDiet(r.PostFormValue("diet")); err == nil {
		draft.Diet = diet
	}
	return draft, true
}

// render writes the full page, or only the form-content partial for HTMX requests
func (s *WebServer) render(w http.ResponseWriter, r *http.Request, status int, view form.View) {
	name := "page"
	if r.Header.Get("HX-Request") == "true" {
		name = "form-content"
	}

	data := pageData{
		Title:     pageTitle,
		Version:   s.config.App.Version,
		BusyLabel: form.LabelGenerating,
		View:      view,
	}

	var buf strings.Builder
	if err := s.currentTemplates().ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("Failed to execute template", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Vary", "HX-Request")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

func (s *WebServer) renderError(w http.ResponseWriter, r *http.Request, message string, err error) {
	s.logger.Error(message,
		zap.String("request_id", chimw.GetReqID(r.Context())),
		zap.Error(err),
	)

	view := form.Render(form.NewState())
	view.Error = recipe.MsgGenerationFailed
	s.render(w, r, errors.Wrap(err, message).StatusCode(), view)
}
