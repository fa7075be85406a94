package client

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/ariasnap/aria"
	"github.com/hazyhaar/ariasnap/browser"
	"github.com/hazyhaar/ariasnap/dom"
	"github.com/hazyhaar/ariasnap/session"
)

// host is an in-memory session.PageHost.
type host struct {
	mu      sync.Mutex
	next    int
	targets map[string]string
}

func (h *host) CreateTarget(_ context.Context, url string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := fmt.Sprintf("T%d", h.next)
	h.targets[id] = url
	return id, nil
}

func (h *host) CloseTarget(_ context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.targets, id)
	return nil
}

func (h *host) TargetInfo(_ context.Context, id string) (string, string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	url, ok := h.targets[id]
	if !ok {
		return "", "", errors.New("gone")
	}
	return "T:" + url, url, nil
}

func (h *host) WSEndpoint() string { return "ws://browser" }

// fakePage snapshots a fixed static document with a persistent
// Snapshotter, the way a live page keeps its refs.
type fakePage struct {
	html  string
	url   string
	snaps *aria.Snapshotter
	doc   *dom.Document
	acted []string
}

func newFakePage(html string) *fakePage {
	doc, err := dom.ParseString(html)
	if err != nil {
		panic(err)
	}
	return &fakePage{html: html, url: "about:blank", snaps: aria.New(), doc: doc}
}

func (p *fakePage) Goto(_ context.Context, url string) error { p.url = url; return nil }
func (p *fakePage) Info(context.Context) (string, string, error) {
	return "Fake", p.url, nil
}
func (p *fakePage) Snapshot(context.Context) (*aria.Snapshot, error) { return p.snaps.Build(p.doc) }
func (p *fakePage) RefAction(_ context.Context, ref string, a browser.Action, value string) (string, error) {
	el, err := p.snaps.SelectRef(ref)
	if err != nil {
		return "", err
	}
	p.acted = append(p.acted, string(a)+":"+ref)
	if a == browser.ActionText {
		return dom.TextContent(el), nil
	}
	return string(a) + " " + ref + " " + value, nil
}
func (p *fakePage) Click(context.Context, string) error { return nil }
func (p *fakePage) Fill(context.Context, string, string) error { return nil }
func (p *fakePage) Hover(context.Context, string) error { return nil }
func (p *fakePage) Text(context.Context, string) (string, error) { return "", nil }
func (p *fakePage) Press(context.Context, string) error { return nil }
func (p *fakePage) Evaluate(context.Context, string) (string, error) { return "null", nil }
func (p *fakePage) Screenshot(context.Context, bool) ([]byte, error) { return nil, nil }
func (p *fakePage) Markdown(context.Context) (string, error) { return "", nil }
func (p *fakePage) WaitSelector(context.Context, string, time.Duration) error { return nil }
func (p *fakePage) WaitURL(context.Context, string, time.Duration) (string, error) {
	return p.url, nil
}
func (p *fakePage) WaitLoad(context.Context, browser.LoadOptions) (browser.LoadResult, error) {
	return browser.LoadResult{Success: true, ReadyState: "complete"}, nil
}

type fakeAttacher struct {
	html     string
	attached map[string]*fakePage
	calls    int
	closed   bool
}

func (a *fakeAttacher) Attach(_ context.Context, ws, targetID string) (Page, error) {
	if ws != "ws://browser" {
		return nil, fmt.Errorf("unexpected ws %q", ws)
	}
	a.calls++
	p, ok := a.attached[targetID]
	if !ok {
		p = newFakePage(a.html)
		a.attached[targetID] = p
	}
	return p, nil
}

func (a *fakeAttacher) Close() error { a.closed = true; return nil }

const testPage = `<html><body>
<nav aria-label="Main"><a href="/home">Home</a></nav>
<button>Save</button>
</body></html>`

func newTestClient(t *testing.T) (*Client, *fakeAttacher) {
	t.Helper()
	store, err := session.OpenStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	srv := httptest.NewServer(session.NewServer(store, &host{targets: map[string]string{}}).Handler())
	t.Cleanup(srv.Close)

	sc, err := session.NewClient(srv.URL, "s1")
	if err != nil {
		t.Fatal(err)
	}
	att := &fakeAttacher{html: testPage, attached: map[string]*fakePage{}}
	return New(sc, WithAttacher(att)), att
}

func TestClient_GetOrCreateAndCache(t *testing.T) {
	ctx := context.Background()
	c, att := newTestClient(t)

	p1, err := c.GetOrCreatePage(ctx, "main", "https://example.com/")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	p2, err := c.Page(ctx, "main")
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if p1 != p2 || att.calls != 1 {
		t.Fatalf("page not cached: %d attach calls", att.calls)
	}

	pages, err := c.ListPages(ctx)
	if err != nil || len(pages) != 1 || pages[0].URL != "https://example.com/" {
		t.Fatalf("list: got %+v, %v", pages, err)
	}

	if err := c.ClosePage(ctx, "main"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := c.Page(ctx, "main"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("page after close: got %v, want ErrNotFound", err)
	}
	if err := c.Disconnect(); err != nil || !att.closed {
		t.Fatalf("disconnect: %v, closed=%v", err, att.closed)
	}
}

func TestClient_SnapshotAndSelectRef(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	if _, err := c.CreatePage(ctx, "main", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := c.SelectRef(ctx, "main", "e1", "click", ""); !errors.Is(err, aria.ErrNoSnapshot) {
		t.Fatalf("select before snapshot: got %v, want ErrNoSnapshot", err)
	}

	snap, err := c.Snapshot(ctx, "main")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	want := "- navigation \"Main\" [ref=e1]:\n  - link \"Home\" [ref=e2] [cursor=pointer]:\n    - /url: /home\n- button \"Save\" [ref=e3]"
	if snap.Text != want {
		t.Fatalf("snapshot:\ngot  %q\nwant %q", snap.Text, want)
	}

	out, err := c.SelectRef(ctx, "main", "e2", "text", "")
	if err != nil || out != "Home" {
		t.Fatalf("text: got %q, %v", out, err)
	}
	if _, err := c.SelectRef(ctx, "main", "e9", "click", ""); !errors.Is(err, aria.ErrUnknownRef) {
		t.Fatalf("unknown ref: got %v", err)
	}
	if _, err := c.SelectRef(ctx, "main", "e3", "drag", ""); err == nil {
		t.Fatal("expected unknown action error")
	}
}
