// Package client combines the session server and the browser runtime:
// pages are looked up by name on the server, then attached over CDP and
// cached for the lifetime of the Client.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/ariasnap/aria"
	"github.com/hazyhaar/ariasnap/browser"
	"github.com/hazyhaar/ariasnap/session"
)

// Page is what the client drives on an attached tab.
type Page interface {
	Goto(ctx context.Context, url string) error
	Info(ctx context.Context) (title, url string, err error)
	Snapshot(ctx context.Context) (*aria.Snapshot, error)
	RefAction(ctx context.Context, ref string, action browser.Action, value string) (string, error)
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, text string) error
	Hover(ctx context.Context, selector string) error
	Text(ctx context.Context, selector string) (string, error)
	Press(ctx context.Context, combo string) error
	Evaluate(ctx context.Context, script string) (string, error)
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	Markdown(ctx context.Context) (string, error)
	WaitSelector(ctx context.Context, selector string, timeout time.Duration) error
	WaitURL(ctx context.Context, pattern string, timeout time.Duration) (string, error)
	WaitLoad(ctx context.Context, opts browser.LoadOptions) (browser.LoadResult, error)
}

var _ Page = (*browser.Page)(nil)

// Sessions is the session server API the client uses.
type Sessions interface {
	ServerInfo(ctx context.Context) (session.ServerInfo, error)
	ListPages(ctx context.Context) ([]session.PageInfo, error)
	CreatePage(ctx context.Context, name, url string) (session.PageInfo, error)
	GetPage(ctx context.Context, name string) (session.PageInfo, error)
	ClosePage(ctx context.Context, name string) error
}

var _ Sessions = (*session.Client)(nil)

// Attacher connects to the browser behind wsEndpoint and resolves a
// target to a Page.
type Attacher interface {
	Attach(ctx context.Context, wsEndpoint, targetID string) (Page, error)
	Close() error
}

// Client is the orchestrating client.
type Client struct {
	sessions Sessions
	attacher Attacher
	logger   *slog.Logger

	mu    sync.Mutex
	pages map[string]cachedPage
}

type cachedPage struct {
	targetID string
	page     Page
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithAttacher replaces the CDP attacher.
func WithAttacher(a Attacher) Option {
	return func(c *Client) { c.attacher = a }
}

// New returns a Client over sessions. Pages attach through a rod
// connection to the server's browser unless WithAttacher is given.
func New(sessions Sessions, opts ...Option) *Client {
	c := &Client{
		sessions: sessions,
		logger:   slog.Default(),
		pages:    make(map[string]cachedPage),
	}
	for _, o := range opts {
		o(c)
	}
	if c.attacher == nil {
		c.attacher = &rodAttacher{logger: c.logger}
	}
	return c
}

// ListPages lists the session's pages.
func (c *Client) ListPages(ctx context.Context) ([]session.PageInfo, error) {
	return c.sessions.ListPages(ctx)
}

// CreatePage opens a new named page.
func (c *Client) CreatePage(ctx context.Context, name, url string) (session.PageInfo, error) {
	return c.sessions.CreatePage(ctx, name, url)
}

// PageInfo returns the server's record of the named page.
func (c *Client) PageInfo(ctx context.Context, name string) (session.PageInfo, error) {
	return c.sessions.GetPage(ctx, name)
}

// GetOrCreatePage returns the named page, creating it (navigated to url)
// when the session has none by that name.
func (c *Client) GetOrCreatePage(ctx context.Context, name, url string) (Page, error) {
	info, err := c.sessions.GetPage(ctx, name)
	if errors.Is(err, session.ErrNotFound) {
		info, err = c.sessions.CreatePage(ctx, name, url)
	}
	if err != nil {
		return nil, err
	}
	return c.attach(ctx, name, info)
}

// Page attaches to the named page.
func (c *Client) Page(ctx context.Context, name string) (Page, error) {
	info, err := c.sessions.GetPage(ctx, name)
	if err != nil {
		c.forget(name)
		return nil, err
	}
	return c.attach(ctx, name, info)
}

func (c *Client) attach(ctx context.Context, name string, info session.PageInfo) (Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cp, ok := c.pages[name]; ok && cp.targetID == info.TargetID {
		return cp.page, nil
	}
	ws := info.WSEndpoint
	if ws == "" {
		si, err := c.sessions.ServerInfo(ctx)
		if err != nil {
			return nil, err
		}
		ws = si.WSEndpoint
	}
	p, err := c.attacher.Attach(ctx, ws, info.TargetID)
	if err != nil {
		return nil, fmt.Errorf("client: attach %s: %w", name, err)
	}
	c.pages[name] = cachedPage{targetID: info.TargetID, page: p}
	c.logger.Debug("client: page attached", "page", name, "target", info.TargetID)
	return p, nil
}

func (c *Client) forget(name string) {
	c.mu.Lock()
	delete(c.pages, name)
	c.mu.Unlock()
}

// ClosePage closes the named page.
func (c *Client) ClosePage(ctx context.Context, name string) error {
	c.forget(name)
	return c.sessions.ClosePage(ctx, name)
}

// Snapshot takes an aria snapshot of the named page.
func (c *Client) Snapshot(ctx context.Context, name string) (*aria.Snapshot, error) {
	p, err := c.Page(ctx, name)
	if err != nil {
		return nil, err
	}
	return p.Snapshot(ctx)
}

// SelectRef applies action to ref on the named page.
func (c *Client) SelectRef(ctx context.Context, name, ref, action, value string) (string, error) {
	a, err := browser.ParseAction(action)
	if err != nil {
		return "", err
	}
	if a == browser.ActionFill && value == "" {
		return "", browser.ErrValueRequired
	}
	p, err := c.Page(ctx, name)
	if err != nil {
		return "", err
	}
	return p.RefAction(ctx, ref, a, value)
}

// Goto navigates the named page, creating it if needed, and returns the
// final title and url.
func (c *Client) Goto(ctx context.Context, name, url string) (title, finalURL string, err error) {
	p, err := c.GetOrCreatePage(ctx, name, "")
	if err != nil {
		return "", "", err
	}
	if err := p.Goto(ctx, url); err != nil {
		return "", "", err
	}
	return p.Info(ctx)
}

// Disconnect drops every attached page and the browser connection. The
// pages themselves stay open on the server.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	c.pages = make(map[string]cachedPage)
	c.mu.Unlock()
	return c.attacher.Close()
}

// rodAttacher connects one browser.Manager to the server's Chrome.
type rodAttacher struct {
	logger *slog.Logger
	mu     sync.Mutex
	mgr    *browser.Manager
	ws     string
}

func (a *rodAttacher) Attach(ctx context.Context, wsEndpoint, targetID string) (Page, error) {
	a.mu.Lock()
	if a.mgr != nil && a.ws != wsEndpoint {
		a.mgr.Close()
		a.mgr = nil
	}
	if a.mgr == nil {
		a.mgr = browser.NewManager(browser.Config{RemoteURL: wsEndpoint, Logger: a.logger})
		a.ws = wsEndpoint
	}
	mgr := a.mgr
	a.mu.Unlock()

	if _, err := mgr.Start(ctx); err != nil {
		return nil, err
	}
	p, err := mgr.Page(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (a *rodAttacher) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mgr == nil {
		return nil
	}
	err := a.mgr.Close()
	a.mgr = nil
	return err
}
