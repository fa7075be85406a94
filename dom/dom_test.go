package dom

import (
	"testing"

	"golang.org/x/net/html"
)

func mustParse(t *testing.T, src string) *Document {
	t.Helper()
	d, err := ParseString(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func byID(t *testing.T, d *Document, id string) *html.Node {
	t.Helper()
	n := d.GetElementByID(d.Root, id)
	if n == nil {
		t.Fatalf("no element #%s", id)
	}
	return n
}

func TestDeclarativeShadowRoot(t *testing.T) {
	d := mustParse(t, `<body><my-card id="host"><template shadowrootmode="open"><p id="inner">in</p><slot></slot></template><span id="light">x</span></my-card></body>`)
	host := byID(t, d, "host")

	sr := d.ShadowRoot(host)
	if sr == nil {
		t.Fatal("expected shadow root on host")
	}
	if d.Host(sr) != host {
		t.Fatal("shadow root does not point back to host")
	}
	if d.GetElementByID(d.Root, "inner") != nil {
		t.Fatal("shadow content must not be visible from the document scope")
	}
	inner := d.GetElementByID(sr, "inner")
	if inner == nil {
		t.Fatal("expected #inner inside shadow scope")
	}
	if got := d.ParentElementOrShadowHost(inner); got != host {
		t.Fatalf("parent of shadow child: got %v, want host", got)
	}

	light := byID(t, d, "light")
	slot := d.AssignedSlot(light)
	if TagName(slot) != "slot" {
		t.Fatalf("light child should be assigned to the default slot, got %v", slot)
	}
	assigned := d.AssignedNodes(slot)
	if len(assigned) != 1 || assigned[0] != light {
		t.Fatalf("assigned nodes: got %d nodes", len(assigned))
	}
}

func TestLabels(t *testing.T) {
	d := mustParse(t, `<label for="a">First</label><label id="wrap">Wrap <input id="a"></label>`)
	input := byID(t, d, "a")
	labels := d.Labels(input)
	if len(labels) != 2 {
		t.Fatalf("labels: got %d, want 2", len(labels))
	}
	if labels[1] != byID(t, d, "wrap") {
		t.Fatal("ancestor label should come last")
	}
}

func TestLiveStateOverridesAttributes(t *testing.T) {
	d := mustParse(t, `<input id="c" type="checkbox" checked><input id="t" value="static">`)
	c := byID(t, d, "c")
	if !d.Checked(c) {
		t.Fatal("checked attribute should make the box checked")
	}
	d.SetState(c, ElementState{Checked: false})
	if d.Checked(c) {
		t.Fatal("live state should win over the attribute")
	}
	txt := byID(t, d, "t")
	d.SetState(txt, ElementState{Value: "typed"})
	if got := d.Value(txt); got != "typed" {
		t.Fatalf("value: got %q, want %q", got, "typed")
	}
}

func TestCascade(t *testing.T) {
	d := mustParse(t, `<html><head><style>
		.gone { display: none }
		#v { visibility: hidden }
		#v .back { visibility: visible }
		.btn { cursor: pointer; pointer-events: none }
		.btn.on { pointer-events: auto }
		q::before { content: "« " attr(data-who) }
		@media print { #p { display: none } }
	</style></head><body>
		<div id="g" class="gone"><span id="under">x</span></div>
		<div id="v"><span id="hid">h</span><span id="back" class="back">b</span></div>
		<div id="b" class="btn on">click</div>
		<q id="q" data-who="Ann">hi</q>
		<div id="p">print</div>
		<div id="empty"></div>
		<div id="inl" style="display: inline-block !important">i</div>
	</body></html>`)

	style := func(id string) *Style {
		st, ok := d.Styles.ComputedStyle(byID(t, d, id), "")
		if !ok {
			t.Fatalf("no style for #%s", id)
		}
		return st
	}

	if got := style("g").Display; got != "none" {
		t.Fatalf("display: got %q, want %q", got, "none")
	}
	if _, ok := d.Styles.BoundingBox(byID(t, d, "under")); ok {
		t.Fatal("child of display:none must have no box")
	}
	if got := style("hid").Visibility; got != "hidden" {
		t.Fatalf("inherited visibility: got %q, want %q", got, "hidden")
	}
	if got := style("back").Visibility; got != "visible" {
		t.Fatalf("overridden visibility: got %q, want %q", got, "visible")
	}
	b := style("b")
	if b.Cursor != "pointer" || b.PointerEvents != "auto" {
		t.Fatalf("btn: got cursor %q pointer-events %q", b.Cursor, b.PointerEvents)
	}
	if got := style("p").Display; got != "block" {
		t.Fatalf("print rules must not apply: got %q", got)
	}
	if _, ok := d.Styles.BoundingBox(byID(t, d, "empty")); ok {
		t.Fatal("empty div should have no box")
	}
	if got := style("inl").Display; got != "inline-block" {
		t.Fatalf("inline style: got %q, want %q", got, "inline-block")
	}

	q := byID(t, d, "q")
	before, ok := d.Styles.ComputedStyle(q, "before")
	if !ok {
		t.Fatal("expected ::before style")
	}
	if got := PseudoContent(q, before); got != "« Ann" {
		t.Fatalf("content: got %q, want %q", got, "« Ann")
	}
	if _, ok := d.Styles.ComputedStyle(q, "after"); ok {
		t.Fatal("no ::after was declared")
	}
}

func TestInlineStyleWithoutTrailingSemicolon(t *testing.T) {
	d := mustParse(t, `<body>
		<div id="dn" style="display:none">x</div>
		<div id="pe" style="color: red; pointer-events:none">y</div>
		<div id="cur" style="cursor: url(hand.cur), pointer">z</div>
		<div id="imp" style="display:inline !important">w</div>
	</body>`)

	tests := []struct {
		id   string
		prop func(*Style) string
		want string
	}{
		{"dn", func(s *Style) string { return s.Display }, "none"},
		{"pe", func(s *Style) string { return s.PointerEvents }, "none"},
		{"cur", func(s *Style) string { return s.Cursor }, "pointer"},
		{"imp", func(s *Style) string { return s.Display }, "inline"},
	}
	for _, tc := range tests {
		st, ok := d.Styles.ComputedStyle(byID(t, d, tc.id), "")
		if !ok {
			t.Fatalf("no style for #%s", tc.id)
		}
		if got := tc.prop(st); got != tc.want {
			t.Fatalf("#%s: got %q, want %q", tc.id, got, tc.want)
		}
	}
}

func TestHiddenAttributeAndClosedDetails(t *testing.T) {
	d := mustParse(t, `<div id="h" hidden>x</div><details id="d"><summary id="s">S</summary><p id="body">B</p></details>`)
	if st, _ := d.Styles.ComputedStyle(byID(t, d, "h"), ""); st.Display != "none" {
		t.Fatalf("hidden attribute: got %q", st.Display)
	}
	if _, ok := d.Styles.BoundingBox(byID(t, d, "body")); ok {
		t.Fatal("content of closed details should not render")
	}
	if _, ok := d.Styles.BoundingBox(byID(t, d, "s")); !ok {
		t.Fatal("summary of closed details should render")
	}
}

func TestXPathRoundTrip(t *testing.T) {
	d := mustParse(t, `<body><div><p>a</p><p id="two">b</p></div><x-el id="host"><template shadowrootmode="open"><button id="in">go</button></template></x-el></body>`)

	two := byID(t, d, "two")
	if got, want := d.XPath(two), "/html/body/div/p[2]"; got != want {
		t.Fatalf("xpath: got %q, want %q", got, want)
	}
	in := d.GetElementByID(d.ShadowRoot(byID(t, d, "host")), "in")
	path := d.XPath(in)
	if want := "/html/body/x-el/shadow-root/button"; path != want {
		t.Fatalf("xpath: got %q, want %q", path, want)
	}
	for _, n := range []*html.Node{two, in} {
		got, err := d.Query(d.XPath(n))
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if got != n {
			t.Fatalf("query %q did not return the original node", d.XPath(n))
		}
	}
}

func TestPseudoContentParsing(t *testing.T) {
	el := &html.Node{Type: html.ElementNode, Data: "span", Attr: []html.Attribute{{Key: "title", Val: "T"}}}
	cases := []struct {
		content string
		want    string
	}{
		{`"a" "b"`, "ab"},
		{`'it\'s'`, "it's"},
		{`"\2192"`, "→"},
		{`counter(item) ". "`, ". "},
		{`attr(title) ":"`, "T:"},
		{`url(x.png) / "alt"`, "alt"},
		{`none`, ""},
	}
	for _, tc := range cases {
		got := PseudoContent(el, &Style{Display: "inline", Visibility: "visible", Content: tc.content})
		if got != tc.want {
			t.Errorf("content %s: got %q, want %q", tc.content, got, tc.want)
		}
	}
}
