package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Surface is the narrow capability set the pipeline needs from one isolated
// browsing context. Keeping it this small decouples the render logic from
// the automation library and lets tests substitute a fake without a browser.
//
// A Surface is exclusively owned by one in-flight export request. It is
// created by Governor.Acquire and destroyed by Lease.Release; callers must
// not retain it past release.
type Surface interface {
	// Navigate loads a validated URL and waits for the load event.
	Navigate(ctx context.Context, u ValidatedURL) error

	// WaitFor polls the given JS expression until it evaluates truthy or
	// the context expires.
	WaitFor(ctx context.Context, js string) error

	// Eval runs a JS function body and returns its result as JSON.
	Eval(ctx context.Context, js string) (json.RawMessage, error)

	// SetViewport sets the viewport dimensions and device pixel ratio.
	SetViewport(ctx context.Context, width, height int, scale float64) error

	// SetContent replaces the document with the given HTML.
	SetContent(ctx context.Context, html string) error

	// PDF prints the current document to a single fixed-size page.
	PDF(ctx context.Context, opts PDFOptions) ([]byte, error)

	// ScreenshotElement captures a PNG of the element matching selector,
	// scoped to its box rather than the full page.
	ScreenshotElement(ctx context.Context, selector string) ([]byte, error)

	// Close destroys the browsing context. Safe to call more than once.
	Close() error
}

// PDFOptions controls the printed page geometry. Chrome's print API takes
// inches; the pipeline converts from millimetres before calling.
type PDFOptions struct {
	WidthInches     float64
	HeightInches    float64
	PrintBackground bool
}

// Compile-time interface check.
var _ Surface = (*rodSurface)(nil)

// rodSurface implements Surface on a go-rod page.
type rodSurface struct {
	page *rod.Page
}

func (s *rodSurface) Navigate(ctx context.Context, u ValidatedURL) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(u.String()); err != nil {
		return fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("%w: waiting for load: %v", ErrNavigation, err)
	}
	return nil
}

func (s *rodSurface) WaitFor(ctx context.Context, js string) error {
	return s.page.Context(ctx).Wait(rod.Eval(js))
}

func (s *rodSurface) Eval(ctx context.Context, js string) (json.RawMessage, error) {
	res, err := s.page.Context(ctx).Eval(js)
	if err != nil {
		return nil, err
	}
	return json.Marshal(res.Value.Val())
}

func (s *rodSurface) SetViewport(ctx context.Context, width, height int, scale float64) error {
	return s.page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: scale,
	})
}

func (s *rodSurface) SetContent(ctx context.Context, html string) error {
	return s.page.Context(ctx).SetDocumentContent(html)
}

func (s *rodSurface) PDF(ctx context.Context, opts PDFOptions) ([]byte, error) {
	reader, err := s.page.Context(ctx).PDF(&proto.PagePrintToPDF{
		PaperWidth:      floatPtr(opts.WidthInches),
		PaperHeight:     floatPtr(opts.HeightInches),
		MarginTop:       floatPtr(0),
		MarginBottom:    floatPtr(0),
		MarginLeft:      floatPtr(0),
		MarginRight:     floatPtr(0),
		PrintBackground: opts.PrintBackground,
	})
	if err != nil {
		return nil, err
	}
	return io.ReadAll(reader)
}

func (s *rodSurface) ScreenshotElement(ctx context.Context, selector string) ([]byte, error) {
	el, err := s.page.Context(ctx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrElementNotFound, selector, err)
	}
	return el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
}

func (s *rodSurface) Close() error {
	if s.page == nil {
		return nil
	}
	err := s.page.Close()
	s.page = nil
	return err
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
