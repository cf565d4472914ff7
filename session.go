package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// SessionState describes the lifecycle of the shared browser process.
type SessionState int32

const (
	StateUninitialized SessionState = iota
	StateLaunching
	StateActive
	StateClosed
)

// String returns the lowercase state name for logs and health reporting.
func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLaunching:
		return "launching"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// SessionConfig configures the browser session manager.
type SessionConfig struct {
	// BrowserBin points at a pre-installed Chrome binary. Empty lets rod
	// resolve (and download, if needed) its own Chromium.
	BrowserBin string

	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local process via the rod launcher.
	RemoteURL string

	// NoSandbox disables the Chrome sandbox, required in most containers.
	NoSandbox bool

	Logger *slog.Logger
}

func (c *SessionConfig) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.BrowserBin == "" {
		c.BrowserBin = os.Getenv("ROD_BROWSER_BIN")
	}
}

// SessionManager owns exactly one browser process per server instance.
// The engine launches lazily on first surface creation, guarded by a single
// lock so concurrent first uses cannot double-launch. If the process dies,
// the next surface creation detects it and relaunches transparently; the
// request that observed the crash simply fails.
//
// Construct once at process start, Close once at process stop. Callers never
// see the browser handle itself, only Surfaces.
type SessionManager struct {
	cfg    SessionConfig
	logger *slog.Logger

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	state   SessionState
}

// NewSessionManager creates a manager. No browser is launched until the
// first call to NewSurface.
func NewSessionManager(cfg SessionConfig) *SessionManager {
	cfg.defaults()
	return &SessionManager{cfg: cfg, logger: cfg.Logger}
}

// State reports the current session state.
func (m *SessionManager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// NewSurface creates an isolated browsing context on the shared session,
// launching or relaunching the browser as needed. The caller owns the
// returned Surface exclusively and must close it.
func (m *SessionManager) NewSurface(ctx context.Context) (Surface, error) {
	b, err := m.ensure(ctx)
	if err != nil {
		return nil, err
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		// Other in-flight surfaces share this browser, so tear it down only
		// when the process is genuinely dead. A transient protocol error
		// fails just this request.
		if _, verr := b.Version(); verr == nil {
			return nil, fmt.Errorf("%w: create page: %v", ErrBrowserLaunch, err)
		}
		m.markCrashed()
		b, err = m.ensure(ctx)
		if err != nil {
			return nil, err
		}
		page, err = b.Page(proto.TargetCreateTarget{URL: "about:blank"})
		if err != nil {
			return nil, fmt.Errorf("%w: create page: %v", ErrBrowserLaunch, err)
		}
	}

	return &rodSurface{page: page}, nil
}

// Close shuts down the browser process. Safe to call more than once;
// NewSurface fails with ErrSessionClosed afterwards.
func (m *SessionManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateClosed {
		return nil
	}
	m.state = StateClosed
	return m.cleanupLocked()
}

// ensure returns a live browser handle, launching one if necessary.
// A single lock guards the whole check-and-launch so concurrent first uses
// serialize instead of racing into duplicate launches.
func (m *SessionManager) ensure(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateClosed {
		return nil, ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if m.browser != nil {
		// Liveness probe: a dead process fails the version call. This is
		// the Crashed → Uninitialized transition, detected on acquire.
		if _, err := m.browser.Version(); err == nil {
			return m.browser, nil
		}
		m.logger.Warn("browser session unreachable, relaunching")
		_ = m.cleanupLocked()
		m.state = StateUninitialized
	}

	m.state = StateLaunching
	b, err := m.launch()
	if err != nil {
		m.state = StateUninitialized
		return nil, err
	}
	m.browser = b
	m.state = StateActive
	return b, nil
}

// markCrashed drops the memoized handle so the next ensure relaunches.
func (m *SessionManager) markCrashed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateClosed {
		return
	}
	_ = m.cleanupLocked()
	m.state = StateUninitialized
}

func (m *SessionManager) launch() (*rod.Browser, error) {
	var wsURL string

	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		m.logger.Info("connecting to remote browser", "url", wsURL)
	} else {
		l := launcher.New().Headless(true)
		if m.cfg.BrowserBin != "" {
			l = l.Bin(m.cfg.BrowserBin)
		}
		if m.cfg.NoSandbox || os.Getenv("CI") == "true" {
			l = l.NoSandbox(true)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
		}
		wsURL = u
		m.lnch = l
		m.logger.Info("launched headless browser", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		// A locally launched Chrome is already running at this point; reap
		// it instead of leaving an orphan behind.
		if m.lnch != nil {
			m.lnch.Kill()
			m.lnch.Cleanup()
			m.lnch = nil
		}
		return nil, fmt.Errorf("%w: connect: %v", ErrBrowserLaunch, err)
	}
	return b, nil
}

func (m *SessionManager) cleanupLocked() error {
	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return err
}
