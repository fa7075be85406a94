package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// ErrTimeout is returned by the Wait* helpers when the deadline passes.
var ErrTimeout = errors.New("browser: timed out")

// Page wraps a rod page with the operations the CLI and MCP tools expose.
type Page struct {
	rod             *rod.Page
	logger          *slog.Logger
	navigateTimeout time.Duration
}

func newPage(rp *rod.Page, cfg Config) *Page {
	return &Page{rod: rp, logger: cfg.Logger, navigateTimeout: cfg.NavigateTimeout}
}

// Rod returns the underlying rod page.
func (p *Page) Rod() *rod.Page { return p.rod }

// TargetID returns the CDP target id.
func (p *Page) TargetID() string { return string(p.rod.TargetID) }

// Info returns the page title and url.
func (p *Page) Info(ctx context.Context) (title, url string, err error) {
	info, err := p.rod.Context(ctx).Info()
	if err != nil {
		return "", "", fmt.Errorf("browser: info: %w", err)
	}
	return info.Title, info.URL, nil
}

// Goto navigates and waits for the load event.
func (p *Page) Goto(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, p.navigateTimeout)
	defer cancel()

	rp := p.rod.Context(navCtx)
	if err := rp.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := rp.WaitLoad(); err != nil {
		p.logger.Warn("browser: wait load timeout", "url", url, "error", err)
	}
	return nil
}

func (p *Page) element(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := p.rod.Context(ctx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: element %q: %w", selector, err)
	}
	return el, nil
}

// Click clicks the first element matching selector.
func (p *Page) Click(ctx context.Context, selector string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	return click(el)
}

// Fill replaces the value of the first element matching selector.
func (p *Page) Fill(ctx context.Context, selector, text string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	return fill(el, text)
}

// Hover moves the mouse over the first element matching selector.
func (p *Page) Hover(ctx context.Context, selector string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	return hover(el)
}

// Text returns the textContent of the first element matching selector.
func (p *Page) Text(ctx context.Context, selector string) (string, error) {
	el, err := p.element(ctx, selector)
	if err != nil {
		return "", err
	}
	return textContent(el)
}

func click(el *rod.Element) error {
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("browser: click: %w", err)
	}
	return nil
}

func fill(el *rod.Element, text string) error {
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("browser: fill: select: %w", err)
	}
	if text == "" {
		if _, err := el.Eval(`function () { this.value = ''; this.dispatchEvent(new Event('input', {bubbles: true})) }`); err != nil {
			return fmt.Errorf("browser: fill: clear: %w", err)
		}
		return nil
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("browser: fill: %w", err)
	}
	return nil
}

func hover(el *rod.Element) error {
	if err := el.Hover(); err != nil {
		return fmt.Errorf("browser: hover: %w", err)
	}
	return nil
}

func textContent(el *rod.Element) (string, error) {
	res, err := el.Eval(`function () { return this.textContent }`)
	if err != nil {
		return "", fmt.Errorf("browser: text: %w", err)
	}
	return res.Value.Str(), nil
}

// Press sends a key or a combination such as "Control+A".
func (p *Page) Press(ctx context.Context, combo string) error {
	k, err := parseKeys(combo)
	if err != nil {
		return err
	}
	rp := p.rod.Context(ctx)
	if k.text != "" {
		err = rp.InsertText(k.text)
	} else {
		err = rp.KeyActions().Press(k.modifiers...).Type(k.key).Do()
	}
	if err != nil {
		return fmt.Errorf("browser: press %q: %w", combo, err)
	}
	return nil
}

const evaluateJS = `async (src) => {
  let v = (0, eval)(src);
  if (typeof v === 'function') v = v();
  return await v;
}`

// Evaluate runs script in the page and returns its result as indented
// JSON. script may be an expression, statements or a function.
func (p *Page) Evaluate(ctx context.Context, script string) (string, error) {
	res, err := p.rod.Context(ctx).Eval(evaluateJS, script)
	if err != nil {
		return "", fmt.Errorf("browser: evaluate: %w", err)
	}
	return res.Value.JSON("", "  "), nil
}

// Screenshot captures the viewport as PNG.
func (p *Page) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	b, err := p.rod.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("browser: screenshot: %w", err)
	}
	return b, nil
}

// HTML returns the serialized document.
func (p *Page) HTML(ctx context.Context) (string, error) {
	h, err := p.rod.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("browser: html: %w", err)
	}
	return h, nil
}

// WaitSelector waits until an element matches selector.
func (p *Page) WaitSelector(ctx context.Context, selector string, timeout time.Duration) error {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := p.rod.Context(wctx).Element(selector); err != nil {
		if wctx.Err() != nil {
			return fmt.Errorf("%w waiting for selector %q", ErrTimeout, selector)
		}
		return fmt.Errorf("browser: wait selector %q: %w", selector, err)
	}
	return nil
}

// URLMatcher matches a page url. A pattern wrapped in slashes is a
// regular expression; anything else must appear in the url.
type URLMatcher func(url string) bool

// ParseURLPattern compiles a wait-url pattern.
func ParseURLPattern(pattern string) (URLMatcher, error) {
	if len(pattern) > 1 && strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") {
		re, err := regexp.Compile(pattern[1 : len(pattern)-1])
		if err != nil {
			return nil, fmt.Errorf("browser: url pattern: %w", err)
		}
		return re.MatchString, nil
	}
	return func(url string) bool { return strings.Contains(url, pattern) }, nil
}

// WaitURL polls the page url until it matches pattern and returns it.
func (p *Page) WaitURL(ctx context.Context, pattern string, timeout time.Duration) (string, error) {
	match, err := ParseURLPattern(pattern)
	if err != nil {
		return "", err
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if _, url, err := p.Info(wctx); err == nil && match(url) {
			return url, nil
		}
		select {
		case <-wctx.Done():
			return "", fmt.Errorf("%w waiting for url %q", ErrTimeout, pattern)
		case <-ticker.C:
		}
	}
}

// Close closes the tab.
func (p *Page) Close() error {
	return p.rod.Close()
}
