package aria

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/ariasnap/dom"
)

func parseDoc(t *testing.T, src string) *dom.Document {
	t.Helper()
	d, err := dom.ParseString(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func snapshotOf(t *testing.T, s *Snapshotter, d *dom.Document) string {
	t.Helper()
	text, err := s.Snapshot(d)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return text
}

func elementByID(t *testing.T, d *dom.Document, id string) *html.Node {
	t.Helper()
	n := d.GetElementByID(d.Root, id)
	if n == nil {
		t.Fatalf("no element #%s", id)
	}
	return n
}

func TestSnapshot_ButtonWithLabel(t *testing.T) {
	d := parseDoc(t, `<button aria-label="Submit">Go</button>`)
	got := snapshotOf(t, New(), d)
	if !strings.HasPrefix(got, `- button "Submit" [ref=e1]`) {
		t.Fatalf("snapshot: got %q, want a line starting with %q", got, `- button "Submit" [ref=e1]`)
	}
}

func TestSnapshot_DisplayNone(t *testing.T) {
	d := parseDoc(t, `<div style="display:none">x</div><p>shown</p>`)
	got := snapshotOf(t, New(), d)
	if strings.Contains(got, "x") {
		t.Fatalf("hidden div leaked: %q", got)
	}
	if got != "- paragraph [ref=e1]: shown" {
		t.Fatalf("snapshot: got %q", got)
	}
}

func TestSnapshot_CheckboxStableRef(t *testing.T) {
	d := parseDoc(t, `<input type="checkbox" checked>`)
	s := New()
	const want = "- checkbox [checked] [ref=e1]"
	if got := snapshotOf(t, s, d); got != want {
		t.Fatalf("first snapshot: got %q, want %q", got, want)
	}
	if got := snapshotOf(t, s, d); got != want {
		t.Fatalf("second snapshot: got %q, want %q", got, want)
	}
	if s.LastRef() != 1 {
		t.Fatalf("LastRef: got %d, want 1", s.LastRef())
	}
}

func TestSelectRef_NoSnapshot(t *testing.T) {
	_, err := New().SelectRef("e99")
	if !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("SelectRef: got %v, want ErrNoSnapshot", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, `"e99"`) || !strings.Contains(msg, "available refs: none") {
		t.Fatalf("SelectRef message: got %q", msg)
	}
}

func TestSelectRef_Unknown(t *testing.T) {
	d := parseDoc(t, `<button>A</button><button>B</button>`)
	s := New()
	snapshotOf(t, s, d)

	_, err := s.SelectRef("e42")
	if !errors.Is(err, ErrUnknownRef) {
		t.Fatalf("SelectRef: got %v, want ErrUnknownRef", err)
	}
	if !strings.Contains(err.Error(), "available refs: e1, e2") {
		t.Fatalf("SelectRef message: got %q", err.Error())
	}

	el, err := s.SelectRef("e2")
	if err != nil {
		t.Fatalf("SelectRef(e2): %v", err)
	}
	if dom.TextContent(el) != "B" {
		t.Fatalf("SelectRef(e2): got element with text %q, want %q", dom.TextContent(el), "B")
	}
}

var refPattern = regexp.MustCompile(`\[ref=(\w+)\]`)

func TestSnapshot_RefsRoundTrip(t *testing.T) {
	d := parseDoc(t, `
<nav aria-label="Main"><ul><li><a href="/a">A</a></li><li><a href="/b">B</a></li></ul></nav>
<main><h1>Title</h1><form aria-label="Login"><label>User <input name="u"></label><button>Sign in</button></form></main>`)
	s := New()
	text := snapshotOf(t, s, d)

	matches := refPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		t.Fatalf("no refs rendered: %q", text)
	}
	for _, m := range matches {
		el, err := s.SelectRef(m[1])
		if err != nil {
			t.Fatalf("SelectRef(%s): %v", m[1], err)
		}
		if d.RootNode(el) != d.Root {
			t.Fatalf("SelectRef(%s): element is not attached", m[1])
		}
	}
}

func TestSnapshot_StableRefsAcrossMutation(t *testing.T) {
	d := parseDoc(t, `<button id="a">Alpha</button><button id="b">Beta</button>`)
	s := New()
	first := snapshotOf(t, s, d)
	if first != "- button \"Alpha\" [ref=e1]\n- button \"Beta\" [ref=e2]" {
		t.Fatalf("first snapshot: got %q", first)
	}

	elementByID(t, d, "b").FirstChild.Data = "Gamma"
	d.Styles.(*dom.Cascade).Reset()

	second := snapshotOf(t, s, d)
	want := "- button \"Alpha\" [ref=e1]\n- button \"Gamma\" [ref=e3]"
	if second != want {
		t.Fatalf("second snapshot: got %q, want %q", second, want)
	}
}

func TestSnapshot_DroppedRoles(t *testing.T) {
	d := parseDoc(t, `<ul role="none"><li>one</li></ul><span role="presentation"><button>two</button></span>`)
	got := snapshotOf(t, New(), d)
	for _, banned := range []string{"list", "presentation", "none"} {
		if strings.Contains(got, "- "+banned) {
			t.Fatalf("role %q rendered: %q", banned, got)
		}
	}
	if !strings.Contains(got, "one") || !strings.Contains(got, `button "two"`) {
		t.Fatalf("children of dropped nodes lost: %q", got)
	}
}

func TestSnapshot_WhitespaceOnlyText(t *testing.T) {
	d := parseDoc(t, "<div>\n   <span>   </span>\n\t<button>Ok</button>\n</div>")
	got := snapshotOf(t, New(), d)
	if strings.Contains(got, "text:") {
		t.Fatalf("whitespace rendered as text: %q", got)
	}
	if strings.Contains(got, "generic") {
		t.Fatalf("wrapper generic not pruned: %q", got)
	}
}

func TestSnapshot_NavigationTree(t *testing.T) {
	d := parseDoc(t, `<nav aria-label="Main"><a href="/x">Home</a></nav>`)
	s := New()
	snap, err := s.Build(d)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := &Node{
		Role: "fragment",
		Children: []Child{NodeChild(&Node{
			Role: "navigation",
			Name: "Main",
			Ref:  "e1",
			Children: []Child{NodeChild(&Node{
				Role:  "link",
				Name:  "Home",
				Ref:   "e2",
				Props: map[string]string{"url": "/x"},
			})},
		})},
	}
	opts := []cmp.Option{
		cmpopts.IgnoreFields(Node{}, "Element", "Box", "ReceivesPointerEvents"),
		cmpopts.EquateEmpty(),
	}
	if diff := cmp.Diff(want, snap.Root, opts...); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}

	wantText := "- navigation \"Main\" [ref=e1]:\n" +
		"  - link \"Home\" [ref=e2] [cursor=pointer]:\n" +
		"    - /url: /x"
	if snap.Text != wantText {
		t.Fatalf("text: got %q, want %q", snap.Text, wantText)
	}
}

func TestSnapshot_ParsesAsYAML(t *testing.T) {
	d := parseDoc(t, `
<h2>Prices: 10 # off</h2>
<p>true</p>
<p>  - dash</p>
<button aria-label="a: b">x</button>
<textarea placeholder="Notes">line one
line two</textarea>
<select><option>One</option><option selected>Two</option></select>`)
	text := snapshotOf(t, New(), d)

	var out []any
	if err := yaml.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("yaml: %v\n%s", err, text)
	}
	if len(out) == 0 {
		t.Fatalf("yaml: empty document from %q", text)
	}
}

func TestSnapshot_States(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"heading level", `<h2>Title</h2>`, `- heading "Title" [level=2] [ref=e1]`},
		{"disabled button", `<button disabled>Save</button>`, `- button "Save" [disabled] [ref=e1]`},
		{"pressed toggle", `<button aria-pressed="mixed">Bold</button>`, `- button "Bold" [pressed=mixed] [ref=e1]`},
		{"expanded", `<button aria-expanded="true">Menu</button>`, `- button "Menu" [expanded] [ref=e1]`},
		{"textbox value", `<input type="text" placeholder="Search" value="abc">`, `- textbox "Search" [ref=e1]: abc`},
		{"iframe", `<iframe title="Ads" src="https://example.com">fallback</iframe>`, `- iframe "Ads" [ref=e1]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := snapshotOf(t, New(), parseDoc(t, tt.src))
			if got != tt.want {
				t.Fatalf("snapshot: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSnapshot_IframeRefs(t *testing.T) {
	d := parseDoc(t, `<iframe title="One"></iframe><p>between</p><iframe title="Two"></iframe>`)
	snap, err := New().Build(d)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if diff := cmp.Diff([]string{"e1", "e3"}, snap.IframeRefs); diff != "" {
		t.Fatalf("IframeRefs (-want +got):\n%s", diff)
	}
}

func TestSnapshot_ShadowDOM(t *testing.T) {
	d := parseDoc(t, `<x-card><template shadowrootmode="open"><h3>Card</h3><slot></slot></template><button>Slotted</button></x-card>`)
	got := snapshotOf(t, New(), d)
	if !strings.Contains(got, `heading "Card" [level=3]`) {
		t.Fatalf("shadow content missing: %q", got)
	}
	if !strings.Contains(got, `button "Slotted"`) {
		t.Fatalf("slotted content missing: %q", got)
	}
	if strings.Index(got, "Card") > strings.Index(got, "Slotted") {
		t.Fatalf("slotted content must follow the slot position: %q", got)
	}
}

func TestSnapshot_FailedBuildKeepsRegistry(t *testing.T) {
	d := parseDoc(t, `<button>Keep</button>`)
	s := New()
	snapshotOf(t, s, d)
	before := s.Registry()

	stray := &html.Node{Type: html.ElementNode, Data: "div"}
	if _, err := s.BuildFrom(d, stray); !errors.Is(err, ErrDetached) {
		t.Fatalf("BuildFrom(detached): got %v, want ErrDetached", err)
	}
	if s.Registry() != before {
		t.Fatal("registry replaced by a failed build")
	}
	if s.LastRef() != 1 {
		t.Fatalf("LastRef: got %d, want 1", s.LastRef())
	}
	if _, err := s.SelectRef("e1"); err != nil {
		t.Fatalf("SelectRef after failed build: %v", err)
	}
}

func TestSnapshot_RefPrefix(t *testing.T) {
	d := parseDoc(t, `<button>In frame</button>`)
	got := snapshotOf(t, New(WithRefPrefix("f1"), WithLastRef(6)), d)
	if got != `- button "In frame" [ref=f1e7]` {
		t.Fatalf("snapshot: got %q", got)
	}
}

func TestSnapshot_NoBody(t *testing.T) {
	d := dom.NewDocument(&html.Node{Type: html.DocumentNode})
	if _, err := New().Build(d); !errors.Is(err, ErrNoBody) {
		t.Fatalf("Build: got %v, want ErrNoBody", err)
	}
}

func TestSnapshot_NameFromNestedContent(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`<button><span>Save</span></button>`, `- button "Save" [ref=e1]`},
		{`<h1><span>Title</span> more</h1>`, `- heading "Title more" [level=1] [ref=e1]`},
		{`<a href="/x"><b>Home</b> page</a>`, `- link "Home page" [ref=e1]`},
		{`<a href="/x"><div>Home</div></a>`, `- link "Home" [ref=e1]`},
	}
	for _, tc := range tests {
		got := snapshotOf(t, New(), parseDoc(t, tc.src))
		if !strings.HasPrefix(got, tc.want) {
			t.Fatalf("%s: got %q, want prefix %q", tc.src, got, tc.want)
		}
	}
}

func TestSnapshot_InheritedPointerEventsNone(t *testing.T) {
	d := parseDoc(t, `<div style="pointer-events:none"><button>Dead</button></div>
<div style="pointer-events:none"><button style="pointer-events:auto">Back</button></div>
<button>Live</button>`)
	got := snapshotOf(t, New(), d)

	if !strings.Contains(got, `button "Dead"`) {
		t.Fatalf("inert button missing: %q", got)
	}
	if strings.Contains(got, `button "Dead" [ref=`) {
		t.Fatalf("button under pointer-events:none got a ref: %q", got)
	}
	for _, name := range []string{"Back", "Live"} {
		if !strings.Contains(got, `button "`+name+`" [ref=`) {
			t.Fatalf("button %q has no ref: %q", name, got)
		}
	}
}

func TestSnapshot_LabelledByCycle(t *testing.T) {
	tests := []struct {
		src  string
		id   string
		want string
	}{
		{`<button id="a" aria-labelledby="b">A</button><span id="b" aria-labelledby="a">B</span>`, "a", "B"},
		{`<button id="c" aria-labelledby="c d">Self</button><span id="d">tail</span>`, "c", "Self tail"},
	}
	for _, tc := range tests {
		d := parseDoc(t, tc.src)
		r := NewResolver(d)
		if got := r.AccessibleName(elementByID(t, d, tc.id)); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.src, got, tc.want)
		}
	}
}

func TestSnapshot_RefsSurviveUnrelatedChanges(t *testing.T) {
	d := parseDoc(t, `<button>Alpha</button><p id="p">note</p><button>Beta</button>`)
	s := New()
	first := snapshotOf(t, s, d)
	if want := "- button \"Alpha\" [ref=e1]\n- paragraph [ref=e2]: note\n- button \"Beta\" [ref=e3]"; first != want {
		t.Fatalf("first snapshot: got %q, want %q", first, want)
	}

	elementByID(t, d, "p").FirstChild.Data = "changed"
	btn := &html.Node{Type: html.ElementNode, Data: "button", DataAtom: atom.Button}
	btn.AppendChild(&html.Node{Type: html.TextNode, Data: "New"})
	body := d.Body()
	body.InsertBefore(btn, body.FirstChild)
	d.Styles.(*dom.Cascade).Reset()

	second := snapshotOf(t, s, d)
	want := "- button \"New\" [ref=e4]\n- button \"Alpha\" [ref=e1]\n- paragraph [ref=e2]: changed\n- button \"Beta\" [ref=e3]"
	if second != want {
		t.Fatalf("second snapshot: got %q, want %q", second, want)
	}
}
