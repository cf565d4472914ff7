package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultFrontendBaseURL points at the local front-end dev server.
const DefaultFrontendBaseURL = "http://localhost:3000"

// Option configures an Exporter.
type Option func(*exporterConfig)

type exporterConfig struct {
	session  SessionConfig
	governor GovernorConfig
	pipeline PipelineConfig
	logger   *slog.Logger

	// surfaces substitutes the surface source; used by tests to render
	// without a browser.
	surfaces SurfaceSource
}

// WithFrontendBaseURL sets the front-end serving the export views.
func WithFrontendBaseURL(u string) Option {
	return func(c *exporterConfig) { c.pipeline.FrontendBaseURL = u }
}

// WithAllowedLogoHosts extends the logo URL allow-list.
func WithAllowedLogoHosts(hosts ...string) Option {
	return func(c *exporterConfig) { c.pipeline.AllowedLogoHosts = hosts }
}

// WithCeiling sets the surface concurrency ceiling.
func WithCeiling(n int) Option {
	return func(c *exporterConfig) { c.governor.Ceiling = n }
}

// WithQueueDepth bounds the governor's wait queue.
func WithQueueDepth(n int) Option {
	return func(c *exporterConfig) { c.governor.QueueDepth = n }
}

// WithQueuePolicy selects queueing or immediate rejection at the ceiling.
func WithQueuePolicy(p QueuePolicy) Option {
	return func(c *exporterConfig) { c.governor.Policy = p }
}

// WithLogoWaitTimeout bounds the banner logo image load.
func WithLogoWaitTimeout(d time.Duration) Option {
	return func(c *exporterConfig) { c.pipeline.LogoWaitTimeout = d }
}

// WithPDFValidation toggles the structural check on produced PDFs.
func WithPDFValidation(enabled bool) Option {
	return func(c *exporterConfig) { c.pipeline.ValidatePDF = enabled }
}

// WithBrowserBin points the session manager at a pre-installed Chrome.
func WithBrowserBin(path string) Option {
	return func(c *exporterConfig) { c.session.BrowserBin = path }
}

// WithRemoteBrowser connects to an external Chrome instead of launching one.
func WithRemoteBrowser(wsURL string) Option {
	return func(c *exporterConfig) { c.session.RemoteURL = wsURL }
}

// WithNoSandbox disables the Chrome sandbox (containers, CI).
func WithNoSandbox(enabled bool) Option {
	return func(c *exporterConfig) { c.session.NoSandbox = enabled }
}

// WithLogger sets the structured logger for all components.
func WithLogger(l *slog.Logger) Option {
	return func(c *exporterConfig) { c.logger = l }
}

// WithSurfaceSource replaces the browser session with a custom surface
// source. Intended for tests.
func WithSurfaceSource(src SurfaceSource) Option {
	return func(c *exporterConfig) { c.surfaces = src }
}

// Exporter is the entry point of the export subsystem. It owns the browser
// session lifecycle and dispatches requests to the render pipeline or the
// structured generators. Construct once at process start, Close at stop.
type Exporter struct {
	source   ProjectionSource
	session  *SessionManager // nil when a surface source was injected
	gov      *Governor
	pipeline *Pipeline
	logger   *slog.Logger
}

// New creates an Exporter over the given projection source.
func New(source ProjectionSource, opts ...Option) (*Exporter, error) {
	cfg := exporterConfig{
		pipeline: PipelineConfig{FrontendBaseURL: DefaultFrontendBaseURL, ValidatePDF: true},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	cfg.session.Logger = cfg.logger
	cfg.pipeline.Logger = cfg.logger

	e := &Exporter{source: source, logger: cfg.logger}

	src := cfg.surfaces
	if src == nil {
		e.session = NewSessionManager(cfg.session)
		src = e.session
	}

	e.gov = NewGovernor(src, cfg.governor)

	pipe, err := NewPipeline(e.gov, cfg.pipeline)
	if err != nil {
		return nil, err
	}
	e.pipeline = pipe

	return e, nil
}

// Export runs one export job and returns the artifact. Browser-backed
// formats are bounded by the request deadline; structured formats only
// consult the projection source.
func (e *Exporter) Export(ctx context.Context, req Request) (*Artifact, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	art, err := e.dispatch(ctx, req)
	if err != nil {
		// logoUrl is externally controlled: log only its scheme and host.
		e.logger.Error("export failed",
			"format", req.Format,
			"palette", req.Palette,
			"user", req.UserID,
			"logo", SanitizeURLForLog(req.LogoURL),
			"error", err)
		return nil, err
	}
	return art, nil
}

func (e *Exporter) dispatch(ctx context.Context, req Request) (*Artifact, error) {
	switch strings.ToLower(req.Format) {
	case FormatPDF:
		return e.pipeline.RenderPDF(ctx, req)
	case FormatBanner:
		return e.pipeline.RenderBanner(ctx, req)
	}

	model, err := e.source.ResumeForUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(req.Format) {
	case FormatDOCX:
		data, err := generateDOCX(model)
		if err != nil {
			return nil, err
		}
		return &Artifact{Data: data, ContentType: ContentTypeDOCX}, nil
	case FormatLaTeX:
		data, err := generateLaTeX(model, strings.ToLower(req.Template))
		if err != nil {
			return nil, err
		}
		return &Artifact{Data: data, ContentType: ContentTypeLaTeX}, nil
	case FormatJSON:
		data, err := generateJSON(model, strings.ToLower(req.Template))
		if err != nil {
			return nil, err
		}
		return &Artifact{Data: data, ContentType: ContentTypeJSON}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, req.Format)
}

// Stats reports the governor counters for health and telemetry.
func (e *Exporter) Stats() GovernorStats { return e.gov.Stats() }

// SessionState reports the browser session state, or StateUninitialized
// when a custom surface source is in use.
func (e *Exporter) SessionState() SessionState {
	if e.session == nil {
		return StateUninitialized
	}
	return e.session.State()
}

// Close shuts down the browser session. Safe to call more than once.
func (e *Exporter) Close() error {
	if e.session != nil {
		return e.session.Close()
	}
	return nil
}
