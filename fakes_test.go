package exporter

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
)

// fakeSurface implements Surface without a browser. Behavior is scripted
// per test through the hook funcs; unset hooks succeed with zero values.
type fakeSurface struct {
	mu         sync.Mutex
	closeCount int
	navigated  []string
	content    string
	evaled     []string
	viewportW  int
	viewportH  int
	scale      float64
	pdfOpts    *PDFOptions

	navigateFunc   func(ctx context.Context, u ValidatedURL) error
	waitFunc       func(ctx context.Context, js string) error
	evalFunc       func(ctx context.Context, js string) (json.RawMessage, error)
	pdfFunc        func(ctx context.Context, opts PDFOptions) ([]byte, error)
	screenshotFunc func(ctx context.Context, selector string) ([]byte, error)
}

func (f *fakeSurface) Navigate(ctx context.Context, u ValidatedURL) error {
	f.mu.Lock()
	f.navigated = append(f.navigated, u.String())
	f.mu.Unlock()
	if f.navigateFunc != nil {
		return f.navigateFunc(ctx, u)
	}
	return ctx.Err()
}

func (f *fakeSurface) WaitFor(ctx context.Context, js string) error {
	if f.waitFunc != nil {
		return f.waitFunc(ctx, js)
	}
	return ctx.Err()
}

func (f *fakeSurface) Eval(ctx context.Context, js string) (json.RawMessage, error) {
	f.mu.Lock()
	f.evaled = append(f.evaled, js)
	f.mu.Unlock()
	if f.evalFunc != nil {
		return f.evalFunc(ctx, js)
	}
	return json.RawMessage("null"), ctx.Err()
}

func (f *fakeSurface) SetViewport(_ context.Context, w, h int, scale float64) error {
	f.mu.Lock()
	f.viewportW, f.viewportH, f.scale = w, h, scale
	f.mu.Unlock()
	return nil
}

func (f *fakeSurface) SetContent(_ context.Context, html string) error {
	f.mu.Lock()
	f.content = html
	f.mu.Unlock()
	return nil
}

func (f *fakeSurface) PDF(ctx context.Context, opts PDFOptions) ([]byte, error) {
	f.mu.Lock()
	f.pdfOpts = &opts
	f.mu.Unlock()
	if f.pdfFunc != nil {
		return f.pdfFunc(ctx, opts)
	}
	return []byte("%PDF-fake"), nil
}

func (f *fakeSurface) ScreenshotElement(ctx context.Context, selector string) ([]byte, error) {
	if f.screenshotFunc != nil {
		return f.screenshotFunc(ctx, selector)
	}
	return []byte("png-fake"), nil
}

func (f *fakeSurface) Close() error {
	f.mu.Lock()
	f.closeCount++
	f.mu.Unlock()
	return nil
}

func (f *fakeSurface) closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCount
}

func (f *fakeSurface) evaledMatching(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, js := range f.evaled {
		if strings.Contains(js, substr) {
			return true
		}
	}
	return false
}

// fakeSource hands out fake surfaces and tracks the peak number open at
// once, which is how tests observe the concurrency ceiling.
type fakeSource struct {
	mu       sync.Mutex
	created  []*fakeSurface
	open     atomic.Int64
	peak     atomic.Int64
	newFunc  func(ctx context.Context) (Surface, error)
	makeSurf func() *fakeSurface
}

func (s *fakeSource) NewSurface(ctx context.Context) (Surface, error) {
	if s.newFunc != nil {
		return s.newFunc(ctx)
	}

	var surf *fakeSurface
	if s.makeSurf != nil {
		surf = s.makeSurf()
	} else {
		surf = &fakeSurface{}
	}

	tracked := &trackedSurface{fakeSurface: surf, src: s}
	n := s.open.Add(1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}

	s.mu.Lock()
	s.created = append(s.created, surf)
	s.mu.Unlock()
	return tracked, nil
}

func (s *fakeSource) createdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

// trackedSurface decrements the open counter exactly once on close.
type trackedSurface struct {
	*fakeSurface
	src  *fakeSource
	once sync.Once
}

func (t *trackedSurface) Close() error {
	t.once.Do(func() { t.src.open.Add(-1) })
	return t.fakeSurface.Close()
}

// fakeProjection implements ProjectionSource from a map.
type fakeProjection struct {
	models map[string]*ResumeExportModel
}

func (f *fakeProjection) ResumeForUser(_ context.Context, userID string) (*ResumeExportModel, error) {
	m, ok := f.models[userID]
	if !ok {
		return nil, &NotFoundError{Kind: "user", ID: userID}
	}
	if m == nil {
		return nil, &NotFoundError{Kind: "resume", ID: userID}
	}
	return m, nil
}
