package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	exporter "github.com/alnah/go-resume-exporter"
)

// clientFailureMessage is the only error detail clients ever see for render
// failures; specifics stay in the logs.
const clientFailureMessage = "failed to generate export, try again later"

// exportService is what the handlers need from the exporter. Tests
// substitute a fake.
type exportService interface {
	Export(ctx context.Context, req exporter.Request) (*exporter.Artifact, error)
	Stats() exporter.GovernorStats
	SessionState() exporter.SessionState
}

type server struct {
	exp     exportService
	logger  *slog.Logger
	timeout time.Duration
}

func newServer(exp exportService, logger *slog.Logger, timeout time.Duration) *server {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &server{exp: exp, logger: logger, timeout: timeout}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post("/v1/export", s.handleExport)
	r.Get("/healthz", s.handleHealth)
	return r
}

// exportRequest is the inbound request shape.
type exportRequest struct {
	Format      string `json:"format"`
	Palette     string `json:"palette,omitempty"`
	Language    string `json:"language,omitempty"`
	BannerColor string `json:"bannerColor,omitempty"`
	LogoURL     string `json:"logoUrl,omitempty"`
	UserID      string `json:"userId,omitempty"`
	Template    string `json:"template,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	var body exportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	jobID := uuid.NewString()
	req := exporter.Request{
		Format:      body.Format,
		Palette:     body.Palette,
		Language:    body.Language,
		BannerColor: body.BannerColor,
		LogoURL:     body.LogoURL,
		UserID:      body.UserID,
		Template:    body.Template,
		Deadline:    time.Now().Add(s.timeout),
	}

	art, err := s.exp.Export(r.Context(), req)
	if err != nil {
		s.logger.Warn("export request failed",
			"job", jobID,
			"format", body.Format,
			"user", body.UserID,
			"error", err)
		s.writeExportError(w, err)
		return
	}

	s.logger.Info("export complete",
		"job", jobID,
		"format", body.Format,
		"user", body.UserID,
		"bytes", len(art.Data))

	w.Header().Set("Content-Type", art.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Data)
}

// writeExportError maps the error taxonomy to HTTP statuses. Render
// internals never leak to clients.
func (s *server) writeExportError(w http.ResponseWriter, err error) {
	switch {
	case exporter.IsNotFound(err):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, exporter.ErrUnknownFormat),
		errors.Is(err, exporter.ErrUnknownTemplate),
		errors.Is(err, exporter.ErrEmptyUserID),
		errors.Is(err, exporter.ErrDisallowedURL):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, exporter.ErrBackpressure):
		w.Header().Set("Retry-After", "5")
		s.writeError(w, http.StatusServiceUnavailable, clientFailureMessage)
	default:
		s.writeError(w, http.StatusBadGateway, clientFailureMessage)
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

type healthResponse struct {
	Status  string                 `json:"status"`
	Session string                 `json:"session"`
	Stats   exporter.GovernorStats `json:"stats"`
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:  "ok",
		Session: s.exp.SessionState().String(),
		Stats:   s.exp.Stats(),
	})
}
