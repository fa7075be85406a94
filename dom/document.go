// Package dom is the document model the snapshot engine walks: an
// x/net/html tree extended with shadow roots, slot assignment, live form
// state and a pluggable source of computed style and geometry.
//
// A Document can come from static HTML (Parse, ParseString) or be
// assembled node by node from a live browser capture (see package browser).
package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ShadowRootData marks the DocumentNode that stands in for a shadow root.
const ShadowRootData = "#shadow-root"

// ElementState is the live state of a form control. When present it
// overrides what the element's attributes say.
type ElementState struct {
	Value         string
	Checked       bool
	Indeterminate bool
	Selected      bool
	Open          bool
}

// Document is a parsed page plus everything the engine needs that
// x/net/html does not model.
type Document struct {
	Root   *html.Node
	Styles StyleSource
	Active *html.Node

	shadows map[*html.Node]*html.Node // host -> shadow root
	hosts   map[*html.Node]*html.Node // shadow root -> host
	closed  map[*html.Node]bool
	state   map[*html.Node]*ElementState
}

// NewDocument wraps an existing tree. The caller attaches shadow roots and
// live state; Styles defaults to the static cascade.
func NewDocument(root *html.Node) *Document {
	d := &Document{
		Root:    root,
		shadows: make(map[*html.Node]*html.Node),
		hosts:   make(map[*html.Node]*html.Node),
		closed:  make(map[*html.Node]bool),
		state:   make(map[*html.Node]*ElementState),
	}
	d.Styles = NewCascade(d)
	return d
}

// Parse reads HTML and promotes declarative shadow roots
// (<template shadowrootmode>) to real shadow roots.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	d := NewDocument(root)
	d.promoteShadowTemplates(root)
	d.Styles = NewCascade(d)
	return d, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

func (d *Document) promoteShadowTemplates(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && c.Data == "template" && n.Type == html.ElementNode {
			mode, ok := Attr(c, "shadowrootmode")
			if !ok {
				mode, ok = Attr(c, "shadowroot")
			}
			if ok && d.shadows[n] == nil {
				n.RemoveChild(c)
				sr := d.AttachShadow(n, strings.EqualFold(mode, "closed"))
				for gc := c.FirstChild; gc != nil; {
					gnext := gc.NextSibling
					c.RemoveChild(gc)
					sr.AppendChild(gc)
					gc = gnext
				}
				d.promoteShadowTemplates(sr)
				c = next
				continue
			}
		}
		d.promoteShadowTemplates(c)
		c = next
	}
}

// AttachShadow creates an empty shadow root for host and returns it.
func (d *Document) AttachShadow(host *html.Node, closed bool) *html.Node {
	sr := &html.Node{Type: html.DocumentNode, Data: ShadowRootData}
	d.shadows[host] = sr
	d.hosts[sr] = host
	if closed {
		d.closed[sr] = true
	}
	return sr
}

// ShadowRoot returns the shadow root attached to host, or nil.
func (d *Document) ShadowRoot(host *html.Node) *html.Node {
	return d.shadows[host]
}

// Host returns the host of a shadow root, or nil when n is not one.
func (d *Document) Host(n *html.Node) *html.Node {
	return d.hosts[n]
}

// IsShadowRoot reports whether n is a shadow root of this document.
func (d *Document) IsShadowRoot(n *html.Node) bool {
	_, ok := d.hosts[n]
	return ok
}

// IsClosedShadowRoot reports whether n was attached in closed mode.
func (d *Document) IsClosedShadowRoot(n *html.Node) bool {
	return d.closed[n]
}

// Body returns the <body> element, or nil.
func (d *Document) Body() *html.Node {
	var find func(n *html.Node, depth int) *html.Node
	find = func(n *html.Node, depth int) *html.Node {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.Data == "body" {
				return c
			}
			if depth < 1 {
				if b := find(c, depth+1); b != nil {
					return b
				}
			}
		}
		return nil
	}
	return find(d.Root, 0)
}

// SetState records live form state for el.
func (d *Document) SetState(el *html.Node, st ElementState) {
	s := st
	d.state[el] = &s
}

// State returns the live state recorded for el, if any.
func (d *Document) State(el *html.Node) (ElementState, bool) {
	if s, ok := d.state[el]; ok {
		return *s, true
	}
	return ElementState{}, false
}

// Value is the current value of an input, textarea or select.
func (d *Document) Value(el *html.Node) string {
	if s, ok := d.state[el]; ok {
		return s.Value
	}
	switch TagName(el) {
	case "textarea":
		return TextContent(el)
	case "select":
		opts := d.SelectedOptions(el)
		if len(opts) == 0 {
			return ""
		}
		if v, ok := Attr(opts[0], "value"); ok {
			return v
		}
		return strings.TrimSpace(TextContent(opts[0]))
	case "input":
		v, _ := Attr(el, "value")
		if t := InputType(el); t == "checkbox" || t == "radio" {
			if v == "" {
				return "on"
			}
		}
		return v
	}
	v, _ := Attr(el, "value")
	return v
}

// Checked is the checkedness of a checkbox or radio input.
func (d *Document) Checked(el *html.Node) bool {
	if s, ok := d.state[el]; ok {
		return s.Checked
	}
	return HasAttr(el, "checked")
}

// Indeterminate has no attribute form; it only exists as live state.
func (d *Document) Indeterminate(el *html.Node) bool {
	if s, ok := d.state[el]; ok {
		return s.Indeterminate
	}
	return false
}

// Selected is the selectedness of an <option>.
func (d *Document) Selected(option *html.Node) bool {
	if s, ok := d.state[option]; ok {
		return s.Selected
	}
	return HasAttr(option, "selected")
}

// Open reports whether a <details> or <dialog> is open.
func (d *Document) Open(el *html.Node) bool {
	if s, ok := d.state[el]; ok {
		return s.Open
	}
	return HasAttr(el, "open")
}

// Options returns the <option> elements of a <select>, in tree order,
// including those inside <optgroup>.
func (d *Document) Options(sel *html.Node) []*html.Node {
	var out []*html.Node
	for c := sel.FirstChild; c != nil; c = c.NextSibling {
		switch TagName(c) {
		case "option":
			out = append(out, c)
		case "optgroup":
			for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
				if TagName(gc) == "option" {
					out = append(out, gc)
				}
			}
		}
	}
	return out
}

// SelectedOptions returns the selected options of a <select>. A
// single-select with nothing marked selects its first option.
func (d *Document) SelectedOptions(sel *html.Node) []*html.Node {
	opts := d.Options(sel)
	var out []*html.Node
	for _, o := range opts {
		if d.Selected(o) {
			out = append(out, o)
		}
	}
	if len(out) == 0 && len(opts) > 0 && !HasAttr(sel, "multiple") {
		out = append(out, opts[0])
	}
	return out
}
