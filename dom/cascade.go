package dom

import (
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
)

// userAgentSheet is the subset of the browser default stylesheet that
// affects visibility, hit testing and cursors.
const userAgentSheet = `
address, article, aside, blockquote, body, center, dd, details, dialog, dir,
div, dl, dt, fieldset, figcaption, figure, footer, form, h1, h2, h3, h4, h5,
h6, header, hgroup, hr, html, legend, main, menu, nav, ol, p, pre, search,
section, summary, ul { display: block; }
li { display: list-item; }
table { display: table; }
caption { display: table-caption; }
thead { display: table-header-group; }
tbody { display: table-row-group; }
tfoot { display: table-footer-group; }
tr { display: table-row; }
td, th { display: table-cell; }
col { display: table-column; }
colgroup { display: table-column-group; }
button, input, select, textarea, img, iframe, video, canvas, meter, progress { display: inline-block; }
slot { display: contents; }
area, base, basefont, datalist, head, link, meta, noembed, noframes, noscript,
param, rp, script, style, template, title { display: none; }
[hidden] { display: none; }
input[type=hidden] { display: none; }
a[href], area[href] { cursor: pointer; }
`

// cssProps are the properties the cascade tracks.
var cssProps = map[string]bool{
	"display":        true,
	"visibility":     true,
	"pointer-events": true,
	"cursor":         true,
	"content":        true,
	"width":          true,
	"height":         true,
}

const (
	tierUA = iota
	tierAuthor
	tierInline
	tierAuthorImportant
	tierInlineImportant
)

type cssRule struct {
	sel    cascadia.Sel
	pseudo string
	spec   cascadia.Specificity
	order  int
	tier   int
	decls  []*css.Declaration
}

type declared struct {
	value string
	tier  int
	spec  cascadia.Specificity
	order int
}

func (d declared) beats(o declared) bool {
	if d.tier != o.tier {
		return d.tier > o.tier
	}
	if d.spec != o.spec {
		return o.spec.Less(d.spec)
	}
	return d.order > o.order
}

type styleKey struct {
	el     *html.Node
	pseudo string
}

// Cascade computes styles from the document's own <style> sheets, inline
// style attributes and a small user-agent sheet. It has no layout: boxes
// are either empty or a nominal non-empty rectangle.
type Cascade struct {
	doc *Document

	mu     sync.Mutex
	ua     []cssRule
	scopes map[*html.Node][]cssRule
	styles map[styleKey]*Style
	decls  map[styleKey]map[string]declared
	boxes  map[*html.Node]Rect
	order  int
}

// NewCascade returns a static StyleSource for doc.
func NewCascade(doc *Document) *Cascade {
	c := &Cascade{
		doc:    doc,
		scopes: make(map[*html.Node][]cssRule),
		styles: make(map[styleKey]*Style),
		decls:  make(map[styleKey]map[string]declared),
		boxes:  make(map[*html.Node]Rect),
	}
	c.ua = c.compileSheet(userAgentSheet, tierUA)
	return c
}

// Reset drops memoized styles after the tree was mutated.
func (c *Cascade) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scopes = make(map[*html.Node][]cssRule)
	c.styles = make(map[styleKey]*Style)
	c.decls = make(map[styleKey]map[string]declared)
	c.boxes = make(map[*html.Node]Rect)
}

func (c *Cascade) compileSheet(text string, tier int) []cssRule {
	sheet, err := parser.Parse(text)
	if err != nil {
		return nil
	}
	var out []cssRule
	c.compileRules(sheet.Rules, tier, &out)
	return out
}

func (c *Cascade) compileRules(rules []*css.Rule, tier int, out *[]cssRule) {
	for _, r := range rules {
		if r.Kind == css.AtRule {
			if r.Name == "@media" && mediaApplies(r.Prelude) || r.Name == "@supports" {
				c.compileRules(r.Rules, tier, out)
			}
			continue
		}
		var decls []*css.Declaration
		for _, d := range r.Declarations {
			if cssProps[strings.ToLower(d.Property)] {
				decls = append(decls, d)
			}
		}
		if len(decls) == 0 {
			continue
		}
		for _, s := range r.Selectors {
			sel, err := cascadia.ParseWithPseudoElement(strings.TrimSpace(s))
			if err != nil {
				continue
			}
			pseudo := sel.PseudoElement()
			if pseudo != "" && pseudo != "before" && pseudo != "after" {
				continue
			}
			c.order++
			*out = append(*out, cssRule{
				sel:    sel,
				pseudo: pseudo,
				spec:   sel.Specificity(),
				order:  c.order,
				tier:   tier,
				decls:  decls,
			})
		}
	}
}

// mediaApplies accepts every media query except print-only ones.
func mediaApplies(prelude string) bool {
	p := strings.ToLower(strings.TrimSpace(prelude))
	return !(p == "print" || strings.HasPrefix(p, "print ") || strings.HasPrefix(p, "only print"))
}

// rulesFor returns the author rules of the tree scope containing el.
func (c *Cascade) rulesFor(el *html.Node) []cssRule {
	root := c.doc.RootNode(el)
	if rules, ok := c.scopes[root]; ok {
		return rules
	}
	var rules []cssRule
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			if ch.Type != html.ElementNode {
				continue
			}
			if ch.Data == "style" {
				rules = append(rules, c.compileSheet(TextContent(ch), tierAuthor)...)
				continue
			}
			if ch.Data == "template" {
				continue
			}
			walk(ch)
		}
	}
	walk(root)
	c.scopes[root] = rules
	return rules
}

func (c *Cascade) declaredFor(el *html.Node, pseudo string) map[string]declared {
	key := styleKey{el, pseudo}
	if m, ok := c.decls[key]; ok {
		return m
	}
	m := make(map[string]declared)
	apply := func(rules []cssRule) {
		for _, r := range rules {
			if r.pseudo != pseudo || !r.sel.Match(el) {
				continue
			}
			for _, d := range r.decls {
				tier := r.tier
				if d.Important && tier == tierAuthor {
					tier = tierAuthorImportant
				}
				cand := declared{value: strings.TrimSpace(d.Value), tier: tier, spec: r.spec, order: r.order}
				prop := strings.ToLower(d.Property)
				if cur, ok := m[prop]; !ok || cand.beats(cur) {
					m[prop] = cand
				}
			}
		}
	}
	apply(c.ua)
	apply(c.rulesFor(el))
	if pseudo == "" {
		if inline, ok := Attr(el, "style"); ok {
			if decls, err := parser.ParseDeclarations(terminated(inline)); err == nil {
				for _, d := range decls {
					prop := strings.ToLower(d.Property)
					if !cssProps[prop] {
						continue
					}
					tier := tierInline
					if d.Important {
						tier = tierInlineImportant
					}
					cand := declared{value: strings.TrimSpace(d.Value), tier: tier}
					if cur, ok := m[prop]; !ok || cand.beats(cur) {
						m[prop] = cand
					}
				}
			}
		}
	}
	c.decls[key] = m
	return m
}

// ComputedStyle implements StyleSource.
func (c *Cascade) ComputedStyle(el *html.Node, pseudo string) (*Style, bool) {
	if !IsElement(el) {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.computed(el, pseudo)
}

func (c *Cascade) computed(el *html.Node, pseudo string) (*Style, bool) {
	key := styleKey{el, pseudo}
	if st, ok := c.styles[key]; ok {
		return st, st != nil
	}
	decl := c.declaredFor(el, pseudo)
	var parent *Style
	if pseudo != "" {
		parent, _ = c.computed(el, "")
	} else if p := c.doc.FlatParent(el); p != nil {
		parent, _ = c.computed(p, "")
	}

	st := &Style{Display: "inline", Visibility: "visible", Cursor: "auto"}
	if parent != nil {
		st.Visibility = parent.Visibility
		st.Cursor = parent.Cursor
	}
	if v, ok := decl["display"]; ok && v.value != "inherit" && v.value != "initial" {
		st.Display = strings.ToLower(v.value)
	} else if ok && v.value == "inherit" && parent != nil {
		st.Display = parent.Display
	}
	if pseudo == "" && c.hiddenByParentState(el) {
		st.Display = "none"
	}
	if v, ok := decl["visibility"]; ok && v.value != "inherit" {
		if v.value == "initial" {
			st.Visibility = "visible"
		} else {
			st.Visibility = strings.ToLower(v.value)
		}
	}
	if v, ok := decl["cursor"]; ok && v.value != "inherit" {
		if v.value == "initial" {
			st.Cursor = "auto"
		} else {
			st.Cursor = fallbackCursor(v.value)
		}
	}
	if v, ok := decl["pointer-events"]; ok && v.value != "inherit" {
		st.PointerEvents = strings.ToLower(v.value)
		if st.PointerEvents == "initial" {
			st.PointerEvents = "auto"
		}
	}
	if pseudo != "" {
		v, ok := decl["content"]
		if !ok || v.value == "none" || v.value == "normal" {
			c.styles[key] = nil
			return nil, false
		}
		st.Content = v.value
	}
	c.styles[key] = st
	return st, true
}

// hiddenByParentState covers UA rules that depend on live state: the
// content of a closed <details> and a closed <dialog>.
func (c *Cascade) hiddenByParentState(el *html.Node) bool {
	switch TagName(el) {
	case "dialog":
		return !c.doc.Open(el)
	}
	p := el.Parent
	if TagName(p) != "details" || c.doc.Open(p) {
		return false
	}
	if TagName(el) == "summary" {
		for ch := p.FirstChild; ch != nil; ch = ch.NextSibling {
			if TagName(ch) == "summary" {
				return ch != el
			}
		}
	}
	return true
}

// terminated ends a declaration list with ";". The parser drops the value
// of a final declaration that has none.
func terminated(decls string) string {
	decls = strings.TrimSpace(decls)
	if decls == "" || strings.HasSuffix(decls, ";") {
		return decls
	}
	return decls + ";"
}

// fallbackCursor returns the keyword of a cursor list, its last item.
func fallbackCursor(v string) string {
	parts := strings.Split(v, ",")
	return strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
}

// BoundingBox implements StyleSource. An element has a box when it and
// its flat-tree ancestors are displayed, and it either has rendered
// content or an explicit non-zero size.
func (c *Cascade) BoundingBox(el *html.Node) (Rect, bool) {
	if !IsElement(el) {
		return Rect{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.box(el)
	return r, ok
}

var nominalBox = Rect{Width: 100, Height: 20}

func (c *Cascade) box(el *html.Node) (Rect, bool) {
	if r, ok := c.boxes[el]; ok {
		return r, !r.Empty()
	}
	r := c.computeBox(el)
	c.boxes[el] = r
	return r, !r.Empty()
}

func (c *Cascade) computeBox(el *html.Node) Rect {
	if !c.rendered(el) {
		return Rect{}
	}
	st, _ := c.computed(el, "")
	if st.Display == "contents" {
		return Rect{}
	}
	decl := c.declaredFor(el, "")
	w, wok := cssLength(decl["width"].value)
	h, hok := cssLength(decl["height"].value)
	if (wok && w == 0) || (hok && h == 0) {
		return Rect{}
	}
	r := nominalBox
	if wok {
		r.Width = w
	}
	if hok {
		r.Height = h
		return r
	}
	if isReplaced(el) || c.hasContent(el) {
		return r
	}
	return Rect{}
}

// rendered reports whether el and every flat-tree ancestor generate boxes.
func (c *Cascade) rendered(el *html.Node) bool {
	for e := el; e != nil; e = c.doc.FlatParent(e) {
		if e.Parent != nil && c.doc.ShadowRoot(e.Parent) != nil && c.doc.AssignedSlot(e) == nil {
			return false
		}
		st, ok := c.computed(e, "")
		if !ok || st.Display == "none" {
			return false
		}
	}
	return true
}

func (c *Cascade) hasContent(el *html.Node) bool {
	for _, p := range []string{"before", "after"} {
		if st, ok := c.computed(el, p); ok && PseudoContent(el, st) != "" {
			return true
		}
	}
	for _, ch := range c.doc.FlatChildren(el) {
		switch ch.Type {
		case html.TextNode:
			if strings.TrimSpace(ch.Data) != "" {
				return true
			}
		case html.ElementNode:
			st, ok := c.computed(ch, "")
			if !ok || st.Display == "none" {
				continue
			}
			if st.Display == "contents" {
				if c.hasContent(ch) {
					return true
				}
				continue
			}
			if _, ok := c.box(ch); ok {
				return true
			}
		}
	}
	return false
}

func isReplaced(el *html.Node) bool {
	switch TagName(el) {
	case "img", "input", "button", "select", "textarea", "iframe", "video",
		"canvas", "svg", "embed", "object", "hr", "br", "progress", "meter":
		return true
	}
	return false
}

// cssLength parses a plain length. Percentages and other relative units
// count as non-zero of unknown size.
func cssLength(v string) (float64, bool) {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" || v == "auto" || v == "inherit" || v == "initial" {
		return 0, false
	}
	num := strings.TrimRight(v, "abcdefghijklmnopqrstuvwxyz%")
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	if f == 0 {
		return 0, true
	}
	if strings.HasSuffix(v, "px") || num == v {
		return f, true
	}
	return 0, false
}
