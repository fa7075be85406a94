package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// TagName returns the lower-case tag name of an element, "" otherwise.
func TagName(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// Attr returns the value of an attribute and whether it is present.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr returns the attribute value or "" when absent.
func AttrOr(n *html.Node, key string) string {
	v, _ := Attr(n, key)
	return v
}

// HasAttr reports whether the attribute is present.
func HasAttr(n *html.Node, key string) bool {
	_, ok := Attr(n, key)
	return ok
}

// InputType returns the normalized type of an <input>. Unknown and
// missing types are "text", like the IDL attribute.
func InputType(n *html.Node) string {
	t := strings.ToLower(strings.TrimSpace(AttrOr(n, "type")))
	switch t {
	case "", "text":
		return "text"
	case "button", "checkbox", "color", "date", "datetime-local", "email", "file",
		"hidden", "image", "month", "number", "password", "radio", "range",
		"reset", "search", "submit", "tel", "time", "url", "week":
		return t
	}
	return "text"
}

// TextContent concatenates every descendant text node, like
// Node.textContent. Shadow trees are not included.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				b.WriteString(c.Data)
			case html.ElementNode:
				walk(c)
			}
		}
	}
	walk(n)
	return b.String()
}

// RootNode returns the document node or the shadow root that contains n.
func (d *Document) RootNode(n *html.Node) *html.Node {
	for n != nil && n.Parent != nil {
		n = n.Parent
	}
	return n
}

// ParentElementOrShadowHost steps to the parent element, crossing from a
// shadow root to its host.
func (d *Document) ParentElementOrShadowHost(n *html.Node) *html.Node {
	p := n.Parent
	if p == nil {
		return nil
	}
	if p.Type == html.ElementNode {
		return p
	}
	return d.hosts[p]
}

// Closest returns the nearest inclusive ancestor accepted by match,
// crossing shadow boundaries.
func (d *Document) Closest(n *html.Node, match func(*html.Node) bool) *html.Node {
	for e := n; e != nil; e = d.ParentElementOrShadowHost(e) {
		if e.Type == html.ElementNode && match(e) {
			return e
		}
	}
	return nil
}

// GetElementByID looks id up in the tree scope that contains from: the
// document for light nodes, the shadow root for shadow nodes. Template
// contents are not searched.
func (d *Document) GetElementByID(from *html.Node, id string) *html.Node {
	if id == "" {
		return nil
	}
	return findByID(d.RootNode(from), id)
}

func findByID(n *html.Node, id string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if v, ok := Attr(c, "id"); ok && v == id {
			return c
		}
		if c.Data == "template" {
			continue
		}
		if f := findByID(c, id); f != nil {
			return f
		}
	}
	return nil
}

// IDRefs resolves a whitespace separated id list relative to el, skipping
// unknown ids and duplicates.
func (d *Document) IDRefs(el *html.Node, ids string) []*html.Node {
	var out []*html.Node
	seen := make(map[*html.Node]bool)
	for _, id := range strings.Fields(ids) {
		if t := d.GetElementByID(el, id); t != nil && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// slotName is the name a light child asks for, "" for the default slot.
func slotName(n *html.Node) string {
	if n.Type != html.ElementNode {
		return ""
	}
	return AttrOr(n, "slot")
}

// findSlot returns the first slot in shadow root sr named name.
func findSlot(sr *html.Node, name string) *html.Node {
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.Data == "slot" && AttrOr(c, "name") == name {
				found = c
				return true
			}
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(sr)
	return found
}

// AssignedSlot returns the slot a light child of a shadow host is
// rendered into, or nil.
func (d *Document) AssignedSlot(n *html.Node) *html.Node {
	if n == nil || n.Parent == nil {
		return nil
	}
	if n.Type != html.ElementNode && n.Type != html.TextNode {
		return nil
	}
	sr := d.shadows[n.Parent]
	if sr == nil {
		return nil
	}
	return findSlot(sr, slotName(n))
}

// AssignedNodes returns the light nodes assigned to slot, in tree order.
func (d *Document) AssignedNodes(slot *html.Node) []*html.Node {
	if TagName(slot) != "slot" {
		return nil
	}
	host := d.hosts[d.RootNode(slot)]
	if host == nil {
		return nil
	}
	var out []*html.Node
	for c := host.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode && c.Type != html.TextNode {
			continue
		}
		if d.AssignedSlot(c) == slot {
			out = append(out, c)
		}
	}
	return out
}

// Labels returns the <label> elements associated with a labelable
// control: labels whose for= names it in the same scope, then the nearest
// ancestor label without a for= attribute.
func (d *Document) Labels(el *html.Node) []*html.Node {
	if !isLabelable(el) {
		return nil
	}
	var out []*html.Node
	if id := AttrOr(el, "id"); id != "" {
		var walk func(*html.Node)
		walk = func(n *html.Node) {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type != html.ElementNode || c.Data == "template" {
					continue
				}
				if c.Data == "label" && AttrOr(c, "for") == id {
					out = append(out, c)
				}
				walk(c)
			}
		}
		walk(d.RootNode(el))
	}
	for p := el.Parent; p != nil && p.Type == html.ElementNode; p = p.Parent {
		if p.Data == "label" {
			if !HasAttr(p, "for") && !containsNode(out, p) {
				out = append(out, p)
			}
			break
		}
	}
	return out
}

func isLabelable(el *html.Node) bool {
	switch TagName(el) {
	case "button", "meter", "output", "progress", "select", "textarea":
		return true
	case "input":
		return InputType(el) != "hidden"
	}
	return false
}

func containsNode(list []*html.Node, n *html.Node) bool {
	for _, x := range list {
		if x == n {
			return true
		}
	}
	return false
}

// FlatParent is the parent in the flat (rendered) tree: the assigned slot
// for slotted nodes, otherwise the parent element or shadow host.
func (d *Document) FlatParent(n *html.Node) *html.Node {
	if slot := d.AssignedSlot(n); slot != nil {
		return slot
	}
	return d.ParentElementOrShadowHost(n)
}

// FlatChildren lists the children of el in the flat tree.
func (d *Document) FlatChildren(el *html.Node) []*html.Node {
	if TagName(el) == "slot" {
		if assigned := d.AssignedNodes(el); len(assigned) > 0 {
			return assigned
		}
	}
	parent := el
	if sr := d.shadows[el]; sr != nil {
		parent = sr
	}
	var out []*html.Node
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}
