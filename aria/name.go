package aria

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ariasnap/dom"
)

// Roles whose accessible name is always empty.
var namingProhibited = toSet("caption", "code", "definition", "deletion",
	"emphasis", "generic", "insertion", "mark", "paragraph", "presentation",
	"strong", "subscript", "suggestion", "superscript", "term", "time")

var nameFromContentRoles = toSet("button", "cell", "checkbox", "columnheader",
	"gridcell", "heading", "link", "menuitem", "menuitemcheckbox",
	"menuitemradio", "option", "radio", "row", "rowheader", "switch", "tab",
	"tooltip", "treeitem")

// Roles that take their name from content only when reached while
// computing the name of an ancestor.
var nameFromContentInDescendant = toSet("", "caption", "code", "contentinfo",
	"definition", "deletion", "emphasis", "generic", "insertion", "list",
	"listitem", "mark", "none", "paragraph", "presentation", "region", "row",
	"rowgroup", "section", "strong", "subscript", "superscript", "table", "term",
	"time")

type targetPos int

const (
	targetNone targetPos = iota
	targetSelf
	targetDescendant
)

// embed records that the traversal entered a referenced element, and
// whether that element was itself hidden (hidden referenced content still
// contributes its text).
type embed struct {
	el     *html.Node
	hidden bool
}

// nameOpts is the state threaded through one name computation. visited
// is shared by every recursive call and guards against id reference
// cycles.
type nameOpts struct {
	labelledBy *embed
	label      *embed
	native     *embed
	target     targetPos
	visited    map[*html.Node]bool
}

// AccessibleName computes the accessible name of el, whitespace
// normalized. Roles that prohibit naming yield "".
func (r *Resolver) AccessibleName(el *html.Node) string {
	r.cache.enter()
	defer r.cache.exit()
	return r.accessibleName(el)
}

func (r *Resolver) accessibleName(el *html.Node) string {
	if name, ok := r.cache.names[el]; ok {
		return name
	}
	name := ""
	if !namingProhibited[r.role(el)] {
		opts := nameOpts{target: targetSelf, visited: make(map[*html.Node]bool)}
		name = asFlatString(r.textAlternative(el, opts))
	}
	r.cache.names[el] = name
	return name
}

func (r *Resolver) labelledByElements(el *html.Node) ([]*html.Node, bool) {
	ref, ok := dom.Attr(el, "aria-labelledby")
	if !ok {
		return nil, false
	}
	return r.doc.IDRefs(el, ref), true
}

func (r *Resolver) textAlternative(el *html.Node, opts nameOpts) string {
	if opts.visited[el] {
		return ""
	}
	child := opts
	if child.target == targetSelf {
		child.target = targetDescendant
	}

	inHiddenRef := (opts.labelledBy != nil && opts.labelledBy.hidden) ||
		(opts.native != nil && opts.native.hidden) ||
		(opts.label != nil && opts.label.hidden)
	if isIgnoredForAria(el) || (!inHiddenRef && r.hiddenForAria(el)) {
		opts.visited[el] = true
		return ""
	}

	labelledBy, hasLabelledBy := r.labelledByElements(el)
	ownLabel := opts.label != nil && opts.label.el == el

	// aria-labelledby, unless already inside such a traversal.
	if opts.labelledBy == nil && !ownLabel {
		var parts []string
		for _, ref := range labelledBy {
			parts = append(parts, r.textAlternative(ref, nameOpts{
				labelledBy: &embed{el: ref, hidden: r.hiddenForAria(ref)},
				visited:    opts.visited,
			}))
		}
		if s := strings.Join(parts, " "); trimFlat(s) != "" {
			return s
		}
	}

	role := r.role(el)
	tag := dom.TagName(el)

	// An embedded control contributes its value, not its name.
	if opts.label != nil || opts.labelledBy != nil || opts.target == targetDescendant {
		isOwnLabel := false
		for _, l := range r.doc.Labels(el) {
			if l == el {
				isOwnLabel = true
			}
		}
		isOwnLabelledBy := false
		for _, l := range labelledBy {
			if l == el {
				isOwnLabelledBy = true
			}
		}
		if !isOwnLabel && !isOwnLabelledBy {
			if s, ok := r.embeddedControlText(el, role, tag, child); ok {
				return s
			}
		}
	}

	if !ownLabel {
		if label := dom.AttrOr(el, "aria-label"); trimFlat(label) != "" {
			opts.visited[el] = true
			return label
		}
	}

	if !isPresentational(role) {
		if s, ok := r.nativeTextAlternative(el, tag, hasLabelledBy, opts, child); ok {
			return s
		}
	}

	summary := tag == "summary" && !isPresentational(role)
	if nameFromContentRoles[role] || (opts.target == targetDescendant && nameFromContentInDescendant[role]) ||
		summary || opts.labelledBy != nil || opts.label != nil || opts.native != nil {
		opts.visited[el] = true
		text := r.innerText(el, child)
		trimmed := text
		if opts.target == targetSelf {
			trimmed = trimFlat(text)
		}
		if trimmed != "" {
			return text
		}
	}

	if !isPresentational(role) || tag == "iframe" {
		opts.visited[el] = true
		if title := dom.AttrOr(el, "title"); trimFlat(title) != "" {
			return title
		}
	}

	opts.visited[el] = true
	return ""
}

func (r *Resolver) embeddedControlText(el *html.Node, role, tag string, child nameOpts) (string, bool) {
	visited := child.visited
	switch role {
	case "textbox":
		visited[el] = true
		if tag == "input" || tag == "textarea" {
			return r.doc.Value(el), true
		}
		return dom.TextContent(el), true
	case "combobox", "listbox":
		visited[el] = true
		var selected []*html.Node
		if tag == "select" {
			selected = r.doc.SelectedOptions(el)
		} else {
			listbox := el
			if role == "combobox" {
				listbox = nil
				for _, o := range r.ownedDescendants(el) {
					if r.role(o) == "listbox" {
						listbox = o
						break
					}
				}
			}
			if listbox != nil {
				for _, o := range r.ownedDescendants(listbox) {
					if dom.AttrOr(o, "aria-selected") == "true" && r.role(o) == "option" {
						selected = append(selected, o)
					}
				}
			}
		}
		if len(selected) == 0 && tag == "input" {
			return r.doc.Value(el), true
		}
		parts := make([]string, 0, len(selected))
		for _, o := range selected {
			parts = append(parts, r.textAlternative(o, child))
		}
		return strings.Join(parts, " "), true
	case "progressbar", "scrollbar", "slider", "spinbutton", "meter":
		visited[el] = true
		if v, ok := dom.Attr(el, "aria-valuetext"); ok {
			return v, true
		}
		if v, ok := dom.Attr(el, "aria-valuenow"); ok {
			return v, true
		}
		return dom.AttrOr(el, "value"), true
	case "menu":
		visited[el] = true
		return "", true
	}
	return "", false
}

// ownedDescendants lists element descendants of el followed by its
// aria-owns targets and their descendants.
func (r *Resolver) ownedDescendants(el *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				out = append(out, c)
				walk(c)
			}
		}
	}
	walk(el)
	for _, o := range r.doc.IDRefs(el, dom.AttrOr(el, "aria-owns")) {
		out = append(out, o)
		walk(o)
	}
	return out
}

func (r *Resolver) fromLabels(labels []*html.Node, opts nameOpts) string {
	var parts []string
	for _, l := range labels {
		s := r.textAlternative(l, nameOpts{
			label:   &embed{el: l, hidden: r.hiddenForAria(l)},
			visited: opts.visited,
		})
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// nativeTextAlternative covers host-language naming: input values, alt
// text, labels, legends, captions and SVG titles.
func (r *Resolver) nativeTextAlternative(el *html.Node, tag string, hasLabelledBy bool, opts, child nameOpts) (string, bool) {
	visited := opts.visited
	switch tag {
	case "input":
		switch t := dom.InputType(el); t {
		case "button", "submit", "reset":
			visited[el] = true
			if v := r.doc.Value(el); trimFlat(v) != "" {
				return v, true
			}
			if t == "submit" {
				return "Submit", true
			}
			if t == "reset" {
				return "Reset", true
			}
			return dom.AttrOr(el, "title"), true
		case "image":
			visited[el] = true
			if labels := r.doc.Labels(el); len(labels) > 0 && opts.labelledBy == nil {
				return r.fromLabels(labels, opts), true
			}
			if alt := dom.AttrOr(el, "alt"); trimFlat(alt) != "" {
				return alt, true
			}
			if title := dom.AttrOr(el, "title"); trimFlat(title) != "" {
				return title, true
			}
			return "Submit", true
		}
	case "button":
		if !hasLabelledBy {
			visited[el] = true
			if labels := r.doc.Labels(el); len(labels) > 0 {
				return r.fromLabels(labels, opts), true
			}
		}
		return "", false
	case "output":
		if !hasLabelledBy {
			visited[el] = true
			if labels := r.doc.Labels(el); len(labels) > 0 {
				return r.fromLabels(labels, opts), true
			}
			return dom.AttrOr(el, "title"), true
		}
		return "", false
	case "img":
		visited[el] = true
		if alt := dom.AttrOr(el, "alt"); trimFlat(alt) != "" {
			return alt, true
		}
		return dom.AttrOr(el, "title"), true
	case "area":
		visited[el] = true
		if alt := dom.AttrOr(el, "alt"); trimFlat(alt) != "" {
			return alt, true
		}
		return dom.AttrOr(el, "title"), true
	case "svg":
		visited[el] = true
		for c := el.FirstChild; c != nil; c = c.NextSibling {
			if dom.TagName(c) == "title" {
				return dom.TextContent(c), true
			}
		}
		return "", false
	}

	if hasLabelledBy {
		return "", false
	}
	switch tag {
	case "input", "textarea", "select":
		visited[el] = true
		if labels := r.doc.Labels(el); len(labels) > 0 {
			return r.fromLabels(labels, opts), true
		}
		usePlaceholder := tag == "textarea"
		if tag == "input" {
			switch dom.InputType(el) {
			case "text", "password", "search", "tel", "email", "url":
				usePlaceholder = true
			}
		}
		title := dom.AttrOr(el, "title")
		if !usePlaceholder || title != "" {
			return title, true
		}
		return dom.AttrOr(el, "placeholder"), true
	case "fieldset":
		return r.firstChildName(el, "legend", child), true
	case "figure":
		return r.firstChildName(el, "figcaption", child), true
	case "table":
		visited[el] = true
		for c := el.FirstChild; c != nil; c = c.NextSibling {
			if dom.TagName(c) == "caption" {
				return r.textAlternative(c, withNative(child, c, r.hiddenForAria(c))), true
			}
		}
		if s := dom.AttrOr(el, "summary"); s != "" {
			return s, true
		}
		return dom.AttrOr(el, "title"), true
	}
	return "", false
}

// firstChildName names a fieldset or figure from its legend or
// figcaption child, falling back to title.
func (r *Resolver) firstChildName(el *html.Node, childTag string, child nameOpts) string {
	child.visited[el] = true
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if dom.TagName(c) == childTag {
			return r.textAlternative(c, withNative(child, c, r.hiddenForAria(c)))
		}
	}
	return dom.AttrOr(el, "title")
}

func withNative(o nameOpts, el *html.Node, hidden bool) nameOpts {
	o.native = &embed{el: el, hidden: hidden}
	return o
}

// innerText accumulates name-from-content: generated content, slotted
// and shadow children, aria-owns targets. Non-inline children and <br>
// are padded with spaces.
func (r *Resolver) innerText(el *html.Node, opts nameOpts) string {
	var b strings.Builder
	visit := func(n *html.Node, skipSlotted bool) {
		if skipSlotted && r.doc.AssignedSlot(n) != nil {
			return
		}
		switch n.Type {
		case html.ElementNode:
			tok := r.textAlternative(n, opts)
			if r.display(n) != "inline" || dom.TagName(n) == "br" {
				tok = " " + tok + " "
			}
			b.WriteString(tok)
		case html.TextNode:
			b.WriteString(n.Data)
		}
	}

	b.WriteString(r.pseudoText(el, "before"))
	if assigned := r.doc.AssignedNodes(el); len(assigned) > 0 {
		for _, c := range assigned {
			visit(c, false)
		}
	} else {
		for c := el.FirstChild; c != nil; c = c.NextSibling {
			visit(c, true)
		}
		if sr := r.doc.ShadowRoot(el); sr != nil {
			for c := sr.FirstChild; c != nil; c = c.NextSibling {
				visit(c, true)
			}
		}
		for _, o := range r.doc.IDRefs(el, dom.AttrOr(el, "aria-owns")) {
			visit(o, true)
		}
	}
	b.WriteString(r.pseudoText(el, "after"))
	return b.String()
}

// asFlatString collapses whitespace runs to one space inside each segment
// delimited by U+00A0, keeps the non-breaking spaces, and trims the ends.
func asFlatString(s string) string {
	segs := strings.Split(s, "\u00a0")
	for i, seg := range segs {
		seg = strings.ReplaceAll(seg, "\r\n", "\n")
		seg = stripInvisible(seg)
		segs[i] = collapseSpace(seg, isJSSpace)
	}
	return strings.TrimFunc(strings.Join(segs, "\u00a0"), isJSSpace)
}

func trimFlat(s string) string {
	return strings.TrimFunc(s, isJSSpace)
}

// normalizeWhiteSpace drops zero-width characters, collapses every
// whitespace run to one space and trims.
func normalizeWhiteSpace(s string) string {
	return strings.TrimFunc(collapseSpace(stripInvisible(s), isJSSpace), isJSSpace)
}

func stripInvisible(s string) string {
	if !strings.ContainsAny(s, "\u200b\u00ad") {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r == '\u200b' || r == '\u00ad' {
			return -1
		}
		return r
	}, s)
}

func collapseSpace(s string, space func(rune) bool) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, c := range s {
		if space(c) {
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(c)
	}
	return b.String()
}

// isJSSpace matches the \s class of ECMAScript regular expressions.
func isJSSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\ufeff'
}
