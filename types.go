package exporter

import (
	"fmt"
	"strings"
	"time"
)

// Export formats.
const (
	FormatPDF    = "pdf"
	FormatBanner = "banner-png"
	FormatDOCX   = "docx"
	FormatLaTeX  = "latex"
	FormatJSON   = "json"
)

// Artifact content types.
const (
	ContentTypePDF   = "application/pdf"
	ContentTypePNG   = "image/png"
	ContentTypeDOCX  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeLaTeX = "text/x-tex"
	ContentTypeJSON  = "application/json"
)

// LaTeX template names.
const (
	TemplateSimple   = "simple"
	TemplateModernCV = "moderncv"
)

// JSON schema variants.
const (
	SchemaResume   = "resume-schema"
	SchemaPortable = "portable"
)

// defaultRenderTimeout bounds a browser-backed export when the request
// carries no deadline.
const defaultRenderTimeout = 30 * time.Second

// Request describes one export job. It is treated as immutable once handed
// to Export.
type Request struct {
	Format      string    // "pdf", "banner-png", "docx", "latex", "json"
	UserID      string    // owner of the resume; optional for browser formats, required for structured ones
	Palette     string    // color palette name forwarded to the export view
	Language    string    // BCP-47-ish language tag forwarded to the export view
	BannerColor string    // background color for banner export
	LogoURL     string    // optional logo for banner export; allow-list checked
	Template    string    // latex: "simple"|"moderncv"; json: "resume-schema"|"portable"
	Deadline    time.Time // absolute completion deadline; zero = default timeout
}

// Validate checks the request shape. Formats and templates are compared
// case-insensitively; the zero Template selects the format's default.
// UserID is optional for the browser-backed formats (the export view decides
// what an anonymous render shows) but required for the structured formats,
// which must resolve a projection.
func (r Request) Validate() error {
	switch strings.ToLower(r.Format) {
	case FormatPDF, FormatBanner:
	case FormatDOCX, FormatLaTeX, FormatJSON:
		if r.UserID == "" {
			return ErrEmptyUserID
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, r.Format)
	}
	if strings.EqualFold(r.Format, FormatLaTeX) {
		switch strings.ToLower(r.Template) {
		case "", TemplateSimple, TemplateModernCV:
		default:
			return fmt.Errorf("%w: %q", ErrUnknownTemplate, r.Template)
		}
	}
	if strings.EqualFold(r.Format, FormatJSON) {
		switch strings.ToLower(r.Template) {
		case "", SchemaResume, SchemaPortable:
		default:
			return fmt.Errorf("%w: %q", ErrUnknownTemplate, r.Template)
		}
	}
	return nil
}

// deadline resolves the request's absolute deadline, falling back to the
// default render timeout from now.
func (r Request) deadline(now time.Time) time.Time {
	if r.Deadline.IsZero() {
		return now.Add(defaultRenderTimeout)
	}
	return r.Deadline
}

// Artifact is the result of an export: raw bytes plus their content type.
type Artifact struct {
	Data        []byte
	ContentType string
}
