package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hazyhaar/ariasnap/session"
)

const testPage = `<html><body>
<nav aria-label="Main"><a href="/home">Home</a></nav>
<button>Save</button>
</body></html>`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&app{stderr: io.Discard})
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSnapshotFile(t *testing.T) {
	out, err := run(t, "snapshot-file", writeTemp(t, testPage))
	if err != nil {
		t.Fatalf("snapshot-file: %v", err)
	}
	want := `- navigation "Main" [ref=e1]:
  - link "Home" [ref=e2] [cursor=pointer]:
    - /url: /home
- button "Save" [ref=e3]
`
	if out != want {
		t.Fatalf("snapshot-file:\ngot  %q\nwant %q", out, want)
	}
}

func TestSnapshotFile_Refs(t *testing.T) {
	out, err := run(t, "snapshot-file", "--refs", writeTemp(t, testPage))
	if err != nil {
		t.Fatalf("snapshot-file: %v", err)
	}
	for _, line := range []string{
		"e1  /html/body/nav\n",
		"e2  /html/body/nav/a\n",
		"e3  /html/body/button\n",
	} {
		if !strings.Contains(out, line) {
			t.Fatalf("refs: missing %q in\n%s", line, out)
		}
	}
}

func TestSnapshotFile_Scope(t *testing.T) {
	path := writeTemp(t, testPage)
	out, err := run(t, "snapshot-file", "--scope", "/html/body/nav", path)
	if err != nil {
		t.Fatalf("snapshot-file: %v", err)
	}
	if !strings.Contains(out, `link "Home"`) || strings.Contains(out, "button") {
		t.Fatalf("scoped snapshot: got %q", out)
	}

	if _, err := run(t, "snapshot-file", "--scope", "/html/body/form", path); err == nil {
		t.Fatal("scope without match: want error")
	}
}

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
		return "", "", errors.New("no such target")
	}
	return "", url, nil
}

func (h *host) WSEndpoint() string { return "ws://browser" }

func newSessionServer(t *testing.T) string {
	t.Helper()
	store, err := session.OpenStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	srv := httptest.NewServer(session.NewServer(store, &host{targets: map[string]string{}}).Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestPageCommands(t *testing.T) {
	url := newSessionServer(t)
	flags := []string{"--server", url, "--session-id", "cli"}
	cmd := func(args ...string) (string, error) {
		return run(t, append(args, flags...)...)
	}

	out, err := cmd("list")
	if err != nil || out != "No pages in current session.\n" {
		t.Fatalf("empty list: got %q, %v", out, err)
	}

	out, err = cmd("create", "main", "https://example.com/")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	want := "Created page: main\n  targetId: T1\n  url: https://example.com/\n"
	if out != want {
		t.Fatalf("create: got %q, want %q", out, want)
	}

	out, err = cmd("list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if want := "Pages in session (1):\n  - main: https://example.com/\n"; out != want {
		t.Fatalf("list: got %q, want %q", out, want)
	}

	if out, err = cmd("close", "main"); err != nil || out != "Closed page: main\n" {
		t.Fatalf("close: got %q, %v", out, err)
	}
	_, err = cmd("close", "main")
	if err == nil || err.Error() != "Page 'main' not found" {
		t.Fatalf("close twice: got %v", err)
	}
}

func TestServerDown(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	_, err := run(t, "list", "--server", url, "--session-id", "cli")
	if !errors.Is(err, errServerDown) {
		t.Fatalf("list: got %v, want %v", err, errServerDown)
	}
}

func TestSelectRef_FillNeedsValue(t *testing.T) {
	_, err := run(t, "select-ref", "main", "e1", "fill", "--session-id", "cli")
	if err == nil || err.Error() != "fill action requires a value" {
		t.Fatalf("select-ref: got %v", err)
	}
	_, err = run(t, "select-ref", "main", "e1", "drag", "--session-id", "cli")
	if err == nil || !strings.Contains(err.Error(), "Unknown action 'drag'") {
		t.Fatalf("select-ref: got %v", err)
	}
}

func TestExitCode(t *testing.T) {
	code, ok := isExitCode(fmt.Errorf("wait: %w", exitCode(1)))
	if !ok || code != 1 {
		t.Fatalf("isExitCode: got %d, %v", code, ok)
	}
	if _, ok := isExitCode(errors.New("boom")); ok {
		t.Fatal("plain error reported as exit code")
	}
}
