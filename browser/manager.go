// Package browser drives Chrome through rod: it launches or connects to a
// browser, resolves session pages by target id, captures the live DOM for
// the snapshot engine and performs actions on resolved elements.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// ErrClosed is returned once the manager has been closed.
var ErrClosed = errors.New("browser: manager is closed")

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of a running Chrome.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Headful shows the launched browser window. Ignored with RemoteURL.
	Headful bool

	// Stealth applies go-rod/stealth evasions to pages the manager creates.
	Stealth bool

	// ResourceBlocking lists resource types to block on created pages
	// (images, fonts, media, stylesheets, or any CDP resource type).
	ResourceBlocking []string

	// NavigateTimeout bounds Goto and page creation. Default: 30s.
	NavigateTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns the connection to one Chrome instance.
type Manager struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	wsURL   string
	closed  bool
}

// NewManager creates a Manager. Call Start to launch or connect.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches Chrome (or connects to RemoteURL) and returns the rod
// handle. Calling Start on a started manager returns the existing handle.
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.browser != nil {
		return m.browser, nil
	}
	b, err := m.launch(ctx)
	if err != nil {
		return nil, err
	}
	m.browser = b
	return b, nil
}

// Browser returns the rod handle, or nil before Start.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// WSEndpoint returns the DevTools WebSocket URL of the browser.
func (m *Manager) WSEndpoint() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.wsURL
}

// Close disconnects, and kills Chrome when the manager launched it.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	var err error
	if m.browser != nil {
		if m.lnch != nil {
			err = m.browser.Close()
		}
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return err
}

func (m *Manager) launch(ctx context.Context) (*rod.Browser, error) {
	log := m.cfg.Logger

	wsURL := m.cfg.RemoteURL
	if wsURL != "" {
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Headless(!m.cfg.Headful)
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "headful", m.cfg.Headful)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}
	m.wsURL = wsURL
	return b, nil
}

func (m *Manager) started() (*rod.Browser, error) {
	b := m.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}
	return b, nil
}

// NewPage opens a tab with the configured stealth and resource blocking
// and navigates it to url when url is not empty.
func (m *Manager) NewPage(ctx context.Context, url string) (*Page, error) {
	b, err := m.started()
	if err != nil {
		return nil, err
	}

	var rp *rod.Page
	if m.cfg.Stealth {
		rp, err = stealth.Page(b)
	} else {
		rp, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if len(m.cfg.ResourceBlocking) > 0 {
		if err := applyResourceBlocking(rp, m.cfg.ResourceBlocking); err != nil {
			m.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}

	p := newPage(rp, m.cfg)
	if url != "" {
		if err := p.Goto(ctx, url); err != nil {
			_ = rp.Close()
			return nil, err
		}
	}
	return p, nil
}

// Page resolves a target id to a page of the running browser.
func (m *Manager) Page(ctx context.Context, targetID string) (*Page, error) {
	b, err := m.started()
	if err != nil {
		return nil, err
	}
	rp, err := b.Context(ctx).PageFromTarget(proto.TargetTargetID(targetID))
	if err != nil {
		return nil, fmt.Errorf("browser: page %s: %w", targetID, err)
	}
	return newPage(rp, m.cfg), nil
}

// CreateTarget opens a page and returns its target id.
func (m *Manager) CreateTarget(ctx context.Context, url string) (string, error) {
	p, err := m.NewPage(ctx, url)
	if err != nil {
		return "", err
	}
	return p.TargetID(), nil
}

// CloseTarget closes the page with the given target id.
func (m *Manager) CloseTarget(ctx context.Context, targetID string) error {
	b, err := m.started()
	if err != nil {
		return err
	}
	if _, err := (proto.TargetCloseTarget{TargetID: proto.TargetTargetID(targetID)}).Call(b.Context(ctx)); err != nil {
		return fmt.Errorf("browser: close %s: %w", targetID, err)
	}
	return nil
}

// TargetInfo returns the title and url of a target.
func (m *Manager) TargetInfo(ctx context.Context, targetID string) (title, url string, err error) {
	b, err := m.started()
	if err != nil {
		return "", "", err
	}
	res, err := proto.TargetGetTargetInfo{TargetID: proto.TargetTargetID(targetID)}.Call(b.Context(ctx))
	if err != nil {
		return "", "", fmt.Errorf("browser: target info %s: %w", targetID, err)
	}
	return res.TargetInfo.Title, res.TargetInfo.URL, nil
}
