package aria

import "golang.org/x/net/html"

// Box is the geometry summary of a node.
type Box struct {
	Visible bool
	Inline  bool
	Cursor  string
}

// Node is one line of the accessibility tree.
type Node struct {
	Role     string
	Name     string
	Children []Child
	Props    map[string]string

	Checked  Tristate
	Disabled bool
	Expanded bool
	Level    int
	Pressed  Tristate
	Selected bool
	Active   bool

	Box                   Box
	ReceivesPointerEvents bool
	Ref                   string

	// Element is a back-reference only; the document owns the element.
	Element *html.Node
}

// Child is either a text run or a node. Exactly one of the two is set.
type Child struct {
	Text string
	Node *Node
}

// TextChild wraps a text run.
func TextChild(s string) Child { return Child{Text: s} }

// NodeChild wraps a node.
func NodeChild(n *Node) Child { return Child{Node: n} }

// IsText reports whether c is a text run.
func (c Child) IsText() bool { return c.Node == nil }

func (n *Node) appendText(s string) {
	n.Children = append(n.Children, TextChild(s))
}

// Walk calls fn for n and every descendant node, depth first.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		if c.Node != nil {
			c.Node.Walk(fn)
		}
	}
}
