package dom

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// shadowSegment separates the host path from the path inside its shadow
// root. It is not valid XPath; Query splits on it.
const shadowSegment = "/shadow-root"

// XPath returns a location path for n. Elements inside shadow roots are
// addressed as host path + "/shadow-root" + path inside the root.
func (d *Document) XPath(n *html.Node) string {
	if n == nil {
		return ""
	}
	switch n.Type {
	case html.DocumentNode:
		if host := d.hosts[n]; host != nil {
			return d.XPath(host) + shadowSegment
		}
		return ""
	case html.TextNode:
		return d.XPath(n.Parent) + "/text()"
	case html.CommentNode:
		return d.XPath(n.Parent) + "/comment()"
	case html.ElementNode:
	default:
		return d.XPath(n.Parent)
	}

	name := strings.ToLower(n.Data)
	parentPath := d.XPath(n.Parent)
	if n.Parent == nil {
		return "/" + name
	}

	idx, total := 0, 0
	for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
		if s.Type != html.ElementNode || strings.ToLower(s.Data) != name {
			continue
		}
		total++
		if s == n {
			idx = total
		}
	}
	if total > 1 {
		return fmt.Sprintf("%s/%s[%d]", parentPath, name, idx)
	}
	return parentPath + "/" + name
}

// Query evaluates a path produced by XPath (or any XPath expression
// without shadow segments) and returns the first match.
func (d *Document) Query(expr string) (*html.Node, error) {
	parts := strings.Split(expr, shadowSegment)
	ctx := d.Root
	for i, p := range parts {
		if i > 0 {
			sr := d.shadows[ctx]
			if sr == nil {
				return nil, fmt.Errorf("dom: query %q: no shadow root at segment %d", expr, i)
			}
			ctx = sr
			if p == "" {
				continue
			}
		}
		n, err := htmlquery.Query(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("dom: query %q: %w", expr, err)
		}
		if n == nil {
			return nil, nil
		}
		ctx = n
	}
	return ctx, nil
}
