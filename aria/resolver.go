package aria

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ariasnap/dom"
)

// Resolver answers role, name, state and visibility questions about the
// elements of one document. Lookups are memoized while a pass is open
// (see Begin); outside a pass every call opens and closes its own.
type Resolver struct {
	doc   *dom.Document
	cache scope
}

// NewResolver returns a Resolver for doc.
func NewResolver(doc *dom.Document) *Resolver {
	return &Resolver{doc: doc}
}

// Begin opens a caching pass and returns the function that closes it.
// Passes nest; caches are dropped when the outermost one closes.
func (r *Resolver) Begin() func() {
	r.cache.enter()
	return r.cache.exit
}

// Document returns the document the resolver reads.
func (r *Resolver) Document() *dom.Document { return r.doc }

func (r *Resolver) style(el *html.Node, pseudo string) (*dom.Style, bool) {
	if r.doc.Styles == nil || !dom.IsElement(el) {
		return nil, false
	}
	if r.cache.active() {
		k := styleKey{el, pseudo}
		if e, ok := r.cache.styles[k]; ok {
			return e.st, e.ok
		}
		st, ok := r.doc.Styles.ComputedStyle(el, pseudo)
		r.cache.styles[k] = styleEntry{st, ok}
		return st, ok
	}
	return r.doc.Styles.ComputedStyle(el, pseudo)
}

func (r *Resolver) display(el *html.Node) string {
	if st, ok := r.style(el, ""); ok && st.Display != "" {
		return st.Display
	}
	return "inline"
}

// pseudoText is the generated text of ::before or ::after, padded with
// spaces when the pseudo-element is not inline.
func (r *Resolver) pseudoText(el *html.Node, pseudo string) string {
	st, ok := r.style(el, pseudo)
	if !ok {
		return ""
	}
	text := dom.PseudoContent(el, st)
	if text != "" && st.Display != "" && st.Display != "inline" {
		return " " + text + " "
	}
	return text
}

var ariaHiddenTags = map[string]bool{
	"style": true, "script": true, "noscript": true, "template": true,
}

func isIgnoredForAria(el *html.Node) bool {
	return ariaHiddenTags[dom.TagName(el)]
}

func visibilityVisible(st *dom.Style) bool {
	return st == nil || st.Visibility == "" || st.Visibility == "visible"
}

// HiddenForAria reports whether el is excluded from the accessibility
// tree: ignored tags, display:none or aria-hidden ancestors, hidden
// visibility, or light children of a shadow host that no slot takes.
func (r *Resolver) HiddenForAria(el *html.Node) bool {
	r.cache.enter()
	defer r.cache.exit()
	return r.hiddenForAria(el)
}

func (r *Resolver) hiddenForAria(el *html.Node) bool {
	if isIgnoredForAria(el) {
		return true
	}
	st, _ := r.style(el, "")
	isSlot := dom.TagName(el) == "slot"
	if st != nil && st.Display == "contents" && !isSlot {
		for c := el.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && !r.hiddenForAria(c) {
				return false
			}
			if c.Type == html.TextNode && r.visibleText(c) {
				return false
			}
		}
		return true
	}
	optionInSelect := dom.TagName(el) == "option" && r.doc.Closest(el, func(n *html.Node) bool { return dom.TagName(n) == "select" }) != nil
	if !optionInSelect && !isSlot && !visibilityVisible(st) {
		return true
	}
	return r.hiddenSubtree(el)
}

// hiddenSubtree walks ancestors for display:none, aria-hidden=true or
// unslotted light children, memoizing every step.
func (r *Resolver) hiddenSubtree(el *html.Node) bool {
	if h, ok := r.cache.hidden[el]; ok {
		return h
	}
	hidden := false
	if p := el.Parent; p != nil && r.doc.ShadowRoot(p) != nil && r.doc.AssignedSlot(el) == nil {
		hidden = true
	}
	if !hidden {
		st, ok := r.style(el, "")
		hidden = !ok || st.Display == "none" || strings.EqualFold(strings.TrimSpace(dom.AttrOr(el, "aria-hidden")), "true")
	}
	if !hidden {
		if p := r.doc.ParentElementOrShadowHost(el); p != nil {
			hidden = r.hiddenSubtree(p)
		}
	}
	r.cache.hidden[el] = hidden
	return hidden
}

// visibleText approximates a non-empty client rect for a text node.
func (r *Resolver) visibleText(t *html.Node) bool {
	if strings.TrimSpace(t.Data) == "" || t.Parent == nil {
		return false
	}
	p := t.Parent
	if p.Type != html.ElementNode {
		p = r.doc.Host(p)
	}
	if p == nil {
		return false
	}
	st, ok := r.style(p, "")
	if !ok || !visibilityVisible(st) {
		return false
	}
	for st.Display == "contents" {
		if p = r.doc.FlatParent(p); p == nil {
			return false
		}
		if st, ok = r.style(p, ""); !ok {
			return false
		}
	}
	_, rendered := r.doc.Styles.BoundingBox(p)
	return rendered
}

// Visible reports geometric visibility: a non-empty box and visible
// visibility. display:contents elements are visible when any child is.
func (r *Resolver) Visible(el *html.Node) bool {
	st, ok := r.style(el, "")
	if !ok {
		return true
	}
	if st.Display == "contents" {
		for c := el.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && r.Visible(c) {
				return true
			}
			if c.Type == html.TextNode && r.visibleText(c) {
				return true
			}
		}
		return false
	}
	if !visibilityVisible(st) {
		return false
	}
	box, ok := r.doc.Styles.BoundingBox(el)
	return ok && !box.Empty()
}

// ReceivesPointerEvents walks ancestors until one declares pointer-events
// or a memoized answer is found, then records the answer for every
// element visited on the way.
func (r *Resolver) ReceivesPointerEvents(el *html.Node) bool {
	r.cache.enter()
	defer r.cache.exit()

	var visited []*html.Node
	result, decided := true, false
	for e := el; e != nil; e = r.doc.ParentElementOrShadowHost(e) {
		if v, ok := r.cache.pointer[e]; ok {
			result, decided = v, true
			break
		}
		visited = append(visited, e)
		st, ok := r.style(e, "")
		if !ok {
			result, decided = true, true
			break
		}
		if st.PointerEvents != "" {
			result, decided = st.PointerEvents != "none", true
			break
		}
	}
	if !decided {
		result = true
	}
	for _, e := range visited {
		r.cache.pointer[e] = result
	}
	return result
}
