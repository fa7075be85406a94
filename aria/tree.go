package aria

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ariasnap/dom"
)

// RefEntry is the annotation remembered per element between snapshots:
// the ref is reused while role and name stay the same.
type RefEntry struct {
	Role string `json:"role"`
	Name string `json:"name"`
	Ref  string `json:"ref"`
}

// builder walks one document. Everything it produces is staged and only
// handed to the Snapshotter when the walk completes.
type builder struct {
	r      *Resolver
	prefix string

	prior   func(*html.Node) (RefEntry, bool)
	staged  map[*html.Node]RefEntry
	lastRef int

	visited  map[*html.Node]bool
	elements map[string]*html.Node
	refs     []string
	iframes  []string
	err      error
}

func newBuilder(r *Resolver, prefix string, lastRef int, prior func(*html.Node) (RefEntry, bool)) *builder {
	return &builder{
		r:        r,
		prefix:   prefix,
		prior:    prior,
		staged:   make(map[*html.Node]RefEntry),
		lastRef:  lastRef,
		visited:  make(map[*html.Node]bool),
		elements: make(map[string]*html.Node),
	}
}

// build produces the raw tree rooted at a fragment node standing for body.
func (b *builder) build(body *html.Node) (*Node, error) {
	done := b.r.Begin()
	defer done()

	doc := b.r.doc
	if doc.RootNode(body) != doc.Root {
		return nil, fmt.Errorf("%w: body", ErrDetached)
	}
	root := &Node{Role: "fragment", Element: body, ReceivesPointerEvents: true, Box: b.box(body)}
	b.visited[body] = true
	visible := !b.r.hiddenForAria(body) || b.r.Visible(body)
	b.processElement(root, body, b.owned(body), visible)
	if b.err != nil {
		return nil, b.err
	}
	return root, nil
}

// attached reports whether n belongs to the document or one of its
// shadow roots.
func (b *builder) attached(n *html.Node) bool {
	root := b.r.doc.RootNode(n)
	return root == b.r.doc.Root || b.r.doc.IsShadowRoot(root)
}

func (b *builder) owned(el *html.Node) []*html.Node {
	ids, ok := dom.Attr(el, "aria-owns")
	if !ok {
		return nil
	}
	return b.r.doc.IDRefs(el, ids)
}

func (b *builder) visit(parent *Node, n *html.Node, parentVisible bool) {
	if b.err != nil || b.visited[n] {
		return
	}
	b.visited[n] = true

	switch n.Type {
	case html.TextNode:
		if n.Data == "" || !parentVisible {
			return
		}
		if parent.Role != "textbox" {
			parent.appendText(n.Data)
		}
		return
	case html.ElementNode:
	default:
		return
	}

	el := n
	owns := b.owned(el)
	for _, o := range owns {
		if !b.attached(o) {
			b.err = fmt.Errorf("%w: aria-owns target of <%s>", ErrDetached, el.Data)
			return
		}
	}

	if b.r.display(el) == "contents" {
		b.processChildren(parent, el, owns, parentVisible)
		return
	}

	visible := !b.r.hiddenForAria(el) || b.r.Visible(el)
	var node *Node
	if visible {
		node = b.toNode(el)
	}
	target := parent
	if node != nil {
		if node.Ref != "" {
			b.elements[node.Ref] = el
			b.refs = append(b.refs, node.Ref)
			if node.Role == "iframe" {
				b.iframes = append(b.iframes, node.Ref)
			}
		}
		parent.Children = append(parent.Children, NodeChild(node))
		target = node
	}
	b.processElement(target, el, owns, visible)
}

func (b *builder) processElement(node *Node, el *html.Node, owns []*html.Node, visible bool) {
	block := b.r.display(el) != "inline" || dom.TagName(el) == "br"
	if block {
		node.appendText(" ")
	}
	// Frame content lives in another document; the fallback text never renders.
	if dom.TagName(el) != "iframe" {
		b.processChildren(node, el, owns, visible)
	}
	if block {
		node.appendText(" ")
	}

	if node.Element != el {
		return
	}
	if len(node.Children) == 1 && node.Children[0].IsText() && node.Children[0].Text == node.Name {
		node.Children = nil
	}
	if node.Role == "link" {
		if href, ok := dom.Attr(el, "href"); ok {
			node.setProp("url", href)
		}
	}
	if node.Role == "textbox" {
		if ph, ok := dom.Attr(el, "placeholder"); ok && ph != node.Name {
			node.setProp("placeholder", ph)
		}
	}
}

// processChildren visits generated content, slotted or light and shadow
// children, then aria-owns targets.
func (b *builder) processChildren(node *Node, el *html.Node, owns []*html.Node, visible bool) {
	doc := b.r.doc
	if s := b.r.pseudoText(el, "before"); s != "" {
		node.appendText(s)
	}
	if assigned := doc.AssignedNodes(el); len(assigned) > 0 {
		for _, c := range assigned {
			b.visit(node, c, visible)
		}
	} else {
		for c := el.FirstChild; c != nil; c = c.NextSibling {
			if doc.AssignedSlot(c) == nil {
				b.visit(node, c, visible)
			}
		}
		if sr := doc.ShadowRoot(el); sr != nil {
			for c := sr.FirstChild; c != nil; c = c.NextSibling {
				b.visit(node, c, visible)
			}
		}
	}
	for _, o := range owns {
		b.visit(node, o, visible)
	}
	if s := b.r.pseudoText(el, "after"); s != "" {
		node.appendText(s)
	}
}

func (n *Node) setProp(k, v string) {
	if n.Props == nil {
		n.Props = make(map[string]string)
	}
	n.Props[k] = v
}

func (b *builder) box(el *html.Node) Box {
	st, ok := b.r.style(el, "")
	box := Box{Visible: b.r.Visible(el)}
	if ok {
		box.Inline = st.Display == "inline"
		box.Cursor = st.Cursor
	}
	return box
}

// toNode materializes el, or returns nil when its role keeps it out of
// the tree and its children are spliced into the parent.
func (b *builder) toNode(el *html.Node) *Node {
	r := b.r
	active := r.doc.Active == el
	if dom.TagName(el) == "iframe" {
		n := &Node{
			Role:                  "iframe",
			Name:                  normalizeWhiteSpace(r.accessibleName(el)),
			Element:               el,
			Box:                   b.box(el),
			ReceivesPointerEvents: true,
			Active:                active,
		}
		b.assignRef(n)
		return n
	}

	role := r.role(el)
	if role == "" || isPresentational(role) {
		return nil
	}
	box := b.box(el)
	if role == "generic" && box.Inline && el.FirstChild != nil && el.FirstChild == el.LastChild && el.FirstChild.Type == html.TextNode {
		return nil
	}
	n := &Node{
		Role:                  role,
		Name:                  normalizeWhiteSpace(r.accessibleName(el)),
		Element:               el,
		Box:                   box,
		ReceivesPointerEvents: r.ReceivesPointerEvents(el),
		Active:                active,
	}
	b.assignRef(n)

	if checkedRoles[role] {
		n.Checked = r.Checked(el)
	}
	if disabledRoles[role] {
		n.Disabled = r.Disabled(el)
	}
	if expandedRoles[role] {
		n.Expanded, _ = r.Expanded(el)
	}
	if levelRoles[role] {
		n.Level = r.Level(el)
	}
	if pressedRoles[role] {
		n.Pressed = r.Pressed(el)
	}
	if selectedRoles[role] {
		n.Selected = r.Selected(el)
	}

	switch dom.TagName(el) {
	case "input":
		switch dom.InputType(el) {
		case "checkbox", "radio", "file":
		default:
			n.appendText(r.doc.Value(el))
		}
	case "textarea":
		n.appendText(r.doc.Value(el))
	}
	return n
}

// assignRef gives actionable nodes a ref, reusing the element's previous
// one when role and name are unchanged.
func (b *builder) assignRef(n *Node) {
	if !n.Box.Visible || !n.ReceivesPointerEvents {
		return
	}
	entry, ok := b.staged[n.Element]
	if !ok {
		entry, ok = b.prior(n.Element)
	}
	if !ok || entry.Role != n.Role || entry.Name != n.Name {
		b.lastRef++
		entry = RefEntry{Role: n.Role, Name: n.Name, Ref: fmt.Sprintf("%se%d", b.prefix, b.lastRef)}
	}
	b.staged[n.Element] = entry
	n.Ref = entry.Ref
}
