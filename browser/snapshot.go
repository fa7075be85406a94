package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/ariasnap/aria"
)

var (
	// ErrValueRequired is returned by RefAction for a fill without a value.
	ErrValueRequired = errors.New("browser: fill requires a value")
	// ErrStaleCapture means another snapshot captured the page between
	// this one's capture and commit.
	ErrStaleCapture = errors.New("browser: capture superseded")
)

// staleRetries bounds how often Snapshot recaptures after losing a race
// with a concurrent snapshot of the same page.
const staleRetries = 2

// Snapshot captures the live page, builds the aria snapshot and stores
// the new ref registry on the page, where later processes find it.
func (p *Page) Snapshot(ctx context.Context) (*aria.Snapshot, error) {
	for attempt := 0; ; attempt++ {
		snap, err := p.snapshot(ctx)
		if !errors.Is(err, ErrStaleCapture) || attempt == staleRetries {
			return snap, err
		}
		p.logger.Debug("browser: recapture", "target", p.TargetID(), "attempt", attempt+1, "error", err)
	}
}

func (p *Page) snapshot(ctx context.Context) (*aria.Snapshot, error) {
	rp := p.rod.Context(ctx)
	res, err := rp.Eval(captureJS)
	if err != nil {
		return nil, fmt.Errorf("browser: capture: %w", pageError(err))
	}
	var c capture
	if err := res.Value.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("browser: capture decode: %w", err)
	}
	cd, err := c.document()
	if err != nil {
		return nil, err
	}

	s := aria.New(aria.WithLogger(p.logger), aria.WithLastRef(c.LastRef))
	for el, e := range cd.anns {
		s.Remember(el, e)
	}
	snap, err := s.Build(cd.doc)
	if err != nil {
		return nil, err
	}

	if _, err := rp.Eval(commitJS, cd.commitArgs(snap)...); err != nil {
		return nil, fmt.Errorf("browser: commit refs: %w", pageError(err))
	}
	p.logger.Debug("browser: snapshot", "target", p.TargetID(), "token", c.Token, "refs", len(snap.Registry.Refs()), "last_ref", snap.LastRef)
	return snap, nil
}

// SelectRef resolves a ref from the page's last snapshot.
func (p *Page) SelectRef(ctx context.Context, ref string) (*rod.Element, error) {
	rp := p.rod.Context(ctx)
	obj, err := rp.Evaluate(rod.Eval(selectJS, ref).ByObject())
	if err != nil {
		return nil, pageError(err)
	}
	el, err := rp.ElementFromObject(obj)
	if err != nil {
		return nil, fmt.Errorf("browser: select ref %q: %w", ref, err)
	}
	return el, nil
}

// Action is an operation applied to a ref.
type Action string

const (
	ActionClick Action = "click"
	ActionFill  Action = "fill"
	ActionHover Action = "hover"
	ActionText  Action = "text"
)

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionClick, ActionFill, ActionHover, ActionText:
		return a, nil
	}
	return "", fmt.Errorf("Unknown action '%s'. Supported: click, fill, hover, text", s)
}

// RefAction selects ref and applies action. The returned string is the
// text content for ActionText and a confirmation otherwise.
func (p *Page) RefAction(ctx context.Context, ref string, action Action, value string) (string, error) {
	if action == ActionFill && value == "" {
		return "", ErrValueRequired
	}
	el, err := p.SelectRef(ctx, ref)
	if err != nil {
		return "", err
	}
	switch action {
	case ActionClick:
		if err := click(el); err != nil {
			return "", err
		}
		return "Clicked element ref: " + ref, nil
	case ActionFill:
		if err := fill(el, value); err != nil {
			return "", err
		}
		return "Filled element ref: " + ref, nil
	case ActionHover:
		if err := hover(el); err != nil {
			return "", err
		}
		return "Hovered element ref: " + ref, nil
	case ActionText:
		return textContent(el)
	}
	_, err = ParseAction(string(action))
	return "", err
}

// pageError maps exceptions thrown by the injected scripts to the aria
// sentinel errors, keeping the page's message.
func pageError(err error) error {
	var ee *rod.EvalError
	if !errors.As(err, &ee) || ee.Exception == nil {
		return err
	}
	msg := exceptionMessage(ee.Exception.Description)
	switch {
	case strings.HasPrefix(msg, "No snapshot refs found"):
		return fmt.Errorf("%w: %s", aria.ErrNoSnapshot, msg)
	case strings.HasPrefix(msg, "Ref \"") && strings.Contains(msg, "not found"):
		return fmt.Errorf("%w: %s", aria.ErrUnknownRef, msg)
	case strings.HasPrefix(msg, "Capture ") && strings.Contains(msg, "superseded"):
		return fmt.Errorf("%w: %s", ErrStaleCapture, msg)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// exceptionMessage keeps the first line of a JS error description
// without the "Error: " prefix.
func exceptionMessage(desc string) string {
	if i := strings.IndexByte(desc, '\n'); i >= 0 {
		desc = desc[:i]
	}
	return strings.TrimPrefix(strings.TrimSpace(desc), "Error: ")
}
