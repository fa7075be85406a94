package browser

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/ariasnap/aria"
)

func TestParseURLPattern(t *testing.T) {
	tests := []struct {
		pattern, url string
		want         bool
	}{
		{"/dashboard", "https://example.com/dashboard?x=1", true},
		{"/dashboard", "https://example.com/login", false},
		{`/\/items\/\d+$/`, "https://example.com/items/42", true},
		{`/\/items\/\d+$/`, "https://example.com/items/new", false},
	}
	for _, tt := range tests {
		m, err := ParseURLPattern(tt.pattern)
		if err != nil {
			t.Fatalf("ParseURLPattern(%q): %v", tt.pattern, err)
		}
		if got := m(tt.url); got != tt.want {
			t.Fatalf("%q on %q: got %v, want %v", tt.pattern, tt.url, got, tt.want)
		}
	}
	if _, err := ParseURLPattern("/[/"); err == nil {
		t.Fatal("expected error for bad regexp")
	}
}

func evalError(desc string) error {
	return &rod.EvalError{RuntimeExceptionDetails: &proto.RuntimeExceptionDetails{
		Exception: &proto.RuntimeRemoteObject{Description: desc},
	}}
}

func TestPageError(t *testing.T) {
	err := pageError(evalError("Error: No snapshot refs found. Take a snapshot first.\n    at <anonymous>:3:25"))
	if !errors.Is(err, aria.ErrNoSnapshot) {
		t.Fatalf("got %v, want ErrNoSnapshot", err)
	}

	err = pageError(evalError("Error: Ref \"e9\" not found. Available refs: e1, e2\n    at <anonymous>:6:11"))
	if !errors.Is(err, aria.ErrUnknownRef) {
		t.Fatalf("got %v, want ErrUnknownRef", err)
	}
	if !strings.Contains(err.Error(), "Available refs: e1, e2") {
		t.Fatalf("message lost: %v", err)
	}

	err = pageError(evalError("Error: Capture 4 superseded by capture 5\n    at <anonymous>:4:40"))
	if !errors.Is(err, ErrStaleCapture) {
		t.Fatalf("got %v, want ErrStaleCapture", err)
	}

	plain := errors.New("boom")
	if pageError(plain) != plain {
		t.Fatal("non-eval errors pass through")
	}
}

func TestParseAction(t *testing.T) {
	for _, s := range []string{"click", "FILL", " hover ", "text"} {
		if _, err := ParseAction(s); err != nil {
			t.Fatalf("ParseAction(%q): %v", s, err)
		}
	}
	_, err := ParseAction("drag")
	if err == nil || err.Error() != "Unknown action 'drag'. Supported: click, fill, hover, text" {
		t.Fatalf("got %v", err)
	}
}

func TestHTMLToMarkdown(t *testing.T) {
	md, err := HTMLToMarkdown(`<h1>Title</h1><p>Read <a href="/docs">the docs</a>.</p>`, "https://example.com")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !strings.Contains(md, "# Title") {
		t.Fatalf("heading missing: %q", md)
	}
	if !strings.Contains(md, "[the docs](https://example.com/docs)") {
		t.Fatalf("link not absolute: %q", md)
	}
}
