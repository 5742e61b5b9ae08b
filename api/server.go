// Package api exposes pipeline validation and rendering over HTTP.
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/simon020286/pipegen"
	"github.com/simon020286/pipegen/actions"
	"github.com/simon020286/pipegen/config"
	"github.com/simon020286/pipegen/models"
	"github.com/simon020286/pipegen/render"
	"github.com/simon020286/pipegen/runtime"
)

// MaxBodyBytes bounds the size of a submitted configuration
const MaxBodyBytes = 1 << 20

// Server handles API requests. Each request performs its own generation run.
type Server struct {
	generator *pipegen.Generator
	runtimes  *runtime.Registry
	logger    *slog.Logger
}

// NewServer creates a server resolving runtimes against runtimes
func NewServer(runtimes *runtime.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gen := pipegen.NewGenerator(runtimes, logger)
	gen.AddListener(models.EventListenerFunc(func(e models.Event) {
		logger.Debug("Generation event.", "type", e.Type, "run_id", e.RunID, "data", e.Data)
	}))
	return &Server{
		generator: gen,
		runtimes:  runtimes,
		logger:    logger,
	}
}

// Routes returns the HTTP handler
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/providers", s.handleProviders)
		r.Get("/runtimes", s.handleRuntimes)
		r.Post("/pipelines/validate", s.handleValidate)
		r.Post("/pipelines/render", s.handleRender)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("Handled request.",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type providerResponse struct {
	Category string   `json:"category"`
	Provider string   `json:"provider"`
	Owner    string   `json:"owner"`
	Required []string `json:"required"`
	Optional []string `json:"optional"`
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	providers := actions.Providers()
	out := make([]providerResponse, len(providers))
	for i, p := range providers {
		out[i] = providerResponse{
			Category: string(p.Category),
			Provider: p.Name,
			Owner:    p.Owner,
			Required: p.Required,
			Optional: p.Optional,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type runtimeResponse struct {
	Tool    string `json:"tool"`
	Version string `json:"version"`
	Image   string `json:"image"`
}

func (s *Server) handleRuntimes(w http.ResponseWriter, r *http.Request) {
	entries := s.runtimes.Entries()
	out := make([]runtimeResponse, len(entries))
	for i, e := range entries {
		out[i] = runtimeResponse{Tool: e.Tool, Version: e.Version, Image: e.Image}
	}
	writeJSON(w, http.StatusOK, out)
}

type validateResponse struct {
	Valid   bool   `json:"valid"`
	RunID   string `json:"run_id"`
	Stages  int    `json:"stages"`
	Actions int    `json:"actions"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	res, ok := s.generate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{
		Valid:   true,
		RunID:   res.RunID,
		Stages:  len(res.Pipeline.Stages),
		Actions: res.Pipeline.ActionCount(),
	})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "yaml" {
		writeError(w, http.StatusBadRequest, KindRequest, "format must be json or yaml")
		return
	}

	res, ok := s.generate(w, r)
	if !ok {
		return
	}

	tmpl, err := render.Render(res)
	if err != nil {
		s.respondError(w, err)
		return
	}
	data, err := tmpl.Encode(format)
	if err != nil {
		s.respondError(w, err)
		return
	}

	contentType := "application/json"
	if format == "yaml" {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Run-Id", res.RunID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// generate reads a configuration from the body and runs the generator. It
// writes the error response itself and reports false on failure.
func (s *Server) generate(w http.ResponseWriter, r *http.Request) (*pipegen.Result, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, KindRequest, "cannot read body")
		return nil, false
	}

	cfg, err := config.ParseYAML(body)
	if err != nil {
		s.respondError(w, err)
		return nil, false
	}

	res, err := s.generator.Generate(cfg)
	if err != nil {
		s.respondError(w, err)
		return nil, false
	}
	return res, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
