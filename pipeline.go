package exporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Viewport geometry per format. The resume view renders into a tall page at
// 2× pixel density; the banner view uses a wide fixed-aspect canvas at 4×
// density so the capture survives platform re-encoding.
const (
	resumeViewportWidth  = 850
	resumeViewportHeight = 1100
	resumeViewportScale  = 2.0

	bannerViewportWidth  = 1584
	bannerViewportHeight = 396
	bannerViewportScale  = 4.0
)

// PDF page geometry. Height is computed from the rendered element so a
// single page always holds the whole document, never breaking mid-content.
const (
	// mmPerPixel converts CSS pixels to millimetres (96 px per inch).
	mmPerPixel = 0.264583

	mmPerInch = 25.4

	// pdfPageWidthMM is the fixed page width (A4).
	pdfPageWidthMM = 210.0

	// pdfHeightBufferMM pads the computed height against rounding.
	pdfHeightBufferMM = 6.0
)

// Front-end view paths and readiness contract.
const (
	resumeViewPath = "/export"
	bannerViewPath = "/banner"

	resumeRootSelector   = "#resume-export"
	bannerRootSelector   = "#banner-root"
	bannerLogoSelector   = "#banner-logo"
	bannerMarkerSelector = "#banner-content"
)

// Readiness conditions, polled via Surface.WaitFor.
const (
	resumeReadyJS = `() => {
		const el = document.querySelector("` + resumeRootSelector + `");
		return !!el && el.dataset.exportReady === "ready";
	}`

	bannerRootJS = `() => !!document.querySelector("` + bannerRootSelector + `")`

	fontsLoadedJS = `() => document.fonts.status === "loaded"`

	bannerLogoJS = `() => {
		const el = document.querySelector("` + bannerLogoSelector + `");
		return !el || (el.complete && el.naturalWidth > 0);
	}`

	bannerMarkerJS = `() => {
		const el = document.querySelector("` + bannerMarkerSelector + `");
		return !!el && el.dataset.populated === "true";
	}`

	hideLogoJS = `() => {
		const el = document.querySelector("` + bannerLogoSelector + `");
		if (el) el.style.display = "none";
	}`

	resumeHeightJS = `() => {
		const el = document.querySelector("` + resumeRootSelector + `");
		return el ? el.scrollHeight : -1;
	}`
)

// defaultLogoWaitTimeout bounds the optional logo image load. It is a
// sub-timeout, deliberately shorter than any sane request deadline, so an
// unreachable logo host can never hang a banner export.
const defaultLogoWaitTimeout = 5 * time.Second

// PipelineConfig configures the render pipeline.
type PipelineConfig struct {
	// FrontendBaseURL is the scheme://host[:port] of the front-end that
	// serves the export views. Required.
	FrontendBaseURL string

	// AllowedLogoHosts lists hosts a banner logo may be fetched from.
	// The front-end host is always allowed.
	AllowedLogoHosts []string

	// LogoWaitTimeout bounds the logo image load during banner export.
	LogoWaitTimeout time.Duration

	// ValidatePDF runs a structural check over produced PDF bytes.
	ValidatePDF bool

	Logger *slog.Logger
}

// Pipeline drives the browser to produce PDF and banner artifacts.
// All surface access goes through the governor; every engine call runs
// under the request deadline.
type Pipeline struct {
	gov      *Governor
	frontend *url.URL
	allow    *AllowList
	logoWait time.Duration
	validate bool
	logger   *slog.Logger
}

// NewPipeline creates a render pipeline over the given governor.
func NewPipeline(gov *Governor, cfg PipelineConfig) (*Pipeline, error) {
	base, err := url.Parse(cfg.FrontendBaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid frontend base url %q", cfg.FrontendBaseURL)
	}

	hosts := append([]string{base.Host}, cfg.AllowedLogoHosts...)

	logoWait := cfg.LogoWaitTimeout
	if logoWait <= 0 {
		logoWait = defaultLogoWaitTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		gov:      gov,
		frontend: base,
		allow:    NewAllowList(hosts...),
		logoWait: logoWait,
		validate: cfg.ValidatePDF,
		logger:   logger,
	}, nil
}

// RenderPDF renders a resume to a single exact-height PDF page.
func (p *Pipeline) RenderPDF(ctx context.Context, req Request) (*Artifact, error) {
	ctx, cancel := context.WithDeadline(ctx, req.deadline(time.Now()))
	defer cancel()

	target, err := p.buildTargetURL(req, resumeViewPath)
	if err != nil {
		return nil, err
	}

	lease, err := p.gov.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release()
	surf := lease.Surface()

	if err := surf.SetViewport(ctx, resumeViewportWidth, resumeViewportHeight, resumeViewportScale); err != nil {
		return nil, p.renderErr(ctx, err, "setting viewport")
	}
	if err := surf.Navigate(ctx, target); err != nil {
		return nil, p.renderErr(ctx, err, "navigating to export view")
	}
	if err := surf.WaitFor(ctx, resumeReadyJS); err != nil {
		return nil, p.readinessErr(ctx, surf, resumeRootSelector, err)
	}

	snap, err := extractSnapshot(ctx, surf, resumeRootSelector)
	if err != nil {
		return nil, p.renderErr(ctx, err, "extracting snapshot")
	}
	if err := surf.SetContent(ctx, buildCleanDocument(snap, req.Language)); err != nil {
		return nil, p.renderErr(ctx, err, "re-rendering clean document")
	}

	heightPx, err := evalFloat(ctx, surf, resumeHeightJS)
	if err != nil {
		return nil, p.renderErr(ctx, err, "measuring content height")
	}
	if heightPx < 0 {
		return nil, fmt.Errorf("%w: %q after re-render", ErrElementNotFound, resumeRootSelector)
	}

	heightMM := heightPx*mmPerPixel + pdfHeightBufferMM
	data, err := surf.PDF(ctx, PDFOptions{
		WidthInches:     pdfPageWidthMM / mmPerInch,
		HeightInches:    heightMM / mmPerInch,
		PrintBackground: true,
	})
	if err != nil {
		return nil, p.renderErr(ctx, err, "printing pdf")
	}

	if p.validate {
		if err := api.Validate(bytes.NewReader(data), nil); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArtifactInvalid, err)
		}
	}

	return &Artifact{Data: data, ContentType: ContentTypePDF}, nil
}

// RenderBanner captures the banner root element as a PNG.
func (p *Pipeline) RenderBanner(ctx context.Context, req Request) (*Artifact, error) {
	ctx, cancel := context.WithDeadline(ctx, req.deadline(time.Now()))
	defer cancel()

	// buildTargetURL rejects a disallowed logo before anything is acquired:
	// a bad URL is a request defect, not a render failure.
	target, err := p.buildTargetURL(req, bannerViewPath)
	if err != nil {
		return nil, err
	}

	lease, err := p.gov.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release()
	surf := lease.Surface()

	if err := surf.SetViewport(ctx, bannerViewportWidth, bannerViewportHeight, bannerViewportScale); err != nil {
		return nil, p.renderErr(ctx, err, "setting viewport")
	}
	if err := surf.Navigate(ctx, target); err != nil {
		return nil, p.renderErr(ctx, err, "navigating to banner view")
	}
	if err := surf.WaitFor(ctx, bannerRootJS); err != nil {
		return nil, p.readinessErr(ctx, surf, bannerRootSelector, err)
	}
	if err := surf.WaitFor(ctx, fontsLoadedJS); err != nil {
		return nil, p.renderErr(ctx, err, "waiting for web fonts")
	}

	if req.LogoURL != "" {
		p.awaitLogo(ctx, surf, req)
	}

	if err := surf.WaitFor(ctx, bannerMarkerJS); err != nil {
		return nil, p.readinessErr(ctx, surf, bannerMarkerSelector, err)
	}

	data, err := surf.ScreenshotElement(ctx, bannerRootSelector)
	if err != nil {
		return nil, p.renderErr(ctx, err, "capturing banner")
	}

	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactInvalid, err)
	}

	return &Artifact{Data: data, ContentType: ContentTypePNG}, nil
}

// awaitLogo waits for the logo image under its own sub-timeout. A slow or
// unreachable logo host degrades to a banner without the logo rather than
// consuming the whole request deadline.
func (p *Pipeline) awaitLogo(ctx context.Context, surf Surface, req Request) {
	logoCtx, cancel := context.WithTimeout(ctx, p.logoWait)
	defer cancel()

	if err := surf.WaitFor(logoCtx, bannerLogoJS); err != nil {
		p.logger.Warn("banner logo did not load, skipping",
			"user", req.UserID,
			"logo", SanitizeURLForLog(req.LogoURL))
		_, _ = surf.Eval(ctx, hideLogoJS)
	}
}

// buildTargetURL assembles the front-end export view URL from the request's
// style parameters and validates it against the allow-list. Values are
// percent-encoded by url.Values.
func (p *Pipeline) buildTargetURL(req Request, viewPath string) (ValidatedURL, error) {
	// The logo value is externally controlled and the front-end will
	// dereference it: allow-list it before it is embedded anywhere,
	// regardless of which view it is bound for.
	if req.LogoURL != "" {
		if _, err := p.allow.Validate(req.LogoURL); err != nil {
			return ValidatedURL{}, err
		}
	}

	u := *p.frontend
	u.Path = strings.TrimRight(u.Path, "/") + viewPath

	q := url.Values{}
	q.Set("export", "1")
	if req.Palette != "" {
		q.Set("palette", req.Palette)
	}
	if req.Language != "" {
		q.Set("lang", req.Language)
	}
	if req.BannerColor != "" {
		q.Set("bannerColor", req.BannerColor)
	}
	if req.UserID != "" {
		q.Set("user", req.UserID)
	}
	if req.LogoURL != "" {
		q.Set("logo", req.LogoURL)
	}
	u.RawQuery = q.Encode()

	return p.allow.Validate(u.String())
}

// renderErr maps engine failures to the error taxonomy. Deadline expiry
// anywhere in the pipeline is a render timeout; everything else keeps its
// identity with the operation attached.
func (p *Pipeline) renderErr(ctx context.Context, err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrRenderTimeout, op)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

// readinessErr distinguishes "element never appeared" from "element present
// but not ready in time" after a readiness wait fails.
func (p *Pipeline) readinessErr(ctx context.Context, surf Surface, selector string, err error) error {
	probe := fmt.Sprintf("() => !!document.querySelector(%q)", selector)
	if raw, evalErr := surf.Eval(context.WithoutCancel(ctx), probe); evalErr == nil && string(raw) == "false" {
		return fmt.Errorf("%w: %q", ErrElementNotFound, selector)
	}
	return p.renderErr(ctx, err, "waiting for readiness of "+selector)
}

// evalFloat evaluates js and decodes a numeric result.
func evalFloat(ctx context.Context, surf Surface, js string) (float64, error) {
	raw, err := surf.Eval(ctx, js)
	if err != nil {
		return 0, err
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("decoding eval result: %w", err)
	}
	return v, nil
}
