package aria

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// maxRenderedName bounds names rendered into a line key.
const maxRenderedName = 900

// RenderOptions tunes Render.
type RenderOptions struct {
	// Cursor marks ref-bearing nodes with a pointer cursor, once per
	// pointer-cursor chain.
	Cursor bool
	// Active marks the focused element.
	Active bool
}

// Render serializes the tree below root as indented YAML list lines. A
// fragment root is not rendered itself.
func Render(root *Node, opts RenderOptions) string {
	var lines []string
	if root.Role == "fragment" {
		for _, c := range root.Children {
			renderChild(&lines, c, "", opts.Cursor, opts)
		}
	} else {
		renderNode(&lines, root, "", opts.Cursor, opts)
	}
	return strings.Join(lines, "\n")
}

func renderChild(lines *[]string, c Child, indent string, cursor bool, opts RenderOptions) {
	if c.IsText() {
		if text := yamlEscapeValue(c.Text); text != "" {
			*lines = append(*lines, indent+"- text: "+text)
		}
		return
	}
	renderNode(lines, c.Node, indent, cursor, opts)
}

func hasPointerCursor(n *Node) bool { return n.Box.Cursor == "pointer" }

// lineKey builds `role "name" [flags]` for n.
func lineKey(n *Node, cursor bool, opts RenderOptions) string {
	var b strings.Builder
	b.WriteString(n.Role)
	if n.Name != "" && len(n.Name) <= maxRenderedName {
		b.WriteByte(' ')
		b.WriteString(jsonQuote(n.Name))
	}
	switch n.Checked {
	case Mixed:
		b.WriteString(" [checked=mixed]")
	case True:
		b.WriteString(" [checked]")
	}
	if n.Disabled {
		b.WriteString(" [disabled]")
	}
	if n.Expanded {
		b.WriteString(" [expanded]")
	}
	if n.Active && opts.Active {
		b.WriteString(" [active]")
	}
	if n.Level > 0 {
		b.WriteString(" [level=" + strconv.Itoa(n.Level) + "]")
	}
	switch n.Pressed {
	case Mixed:
		b.WriteString(" [pressed=mixed]")
	case True:
		b.WriteString(" [pressed]")
	}
	if n.Selected {
		b.WriteString(" [selected]")
	}
	if n.Ref != "" {
		b.WriteString(" [ref=" + n.Ref + "]")
		if cursor && hasPointerCursor(n) {
			b.WriteString(" [cursor=pointer]")
		}
	}
	return b.String()
}

func renderNode(lines *[]string, n *Node, indent string, cursor bool, opts RenderOptions) {
	key := indent + "- " + yamlEscapeKey(lineKey(n, cursor, opts))

	switch {
	case len(n.Children) == 0 && len(n.Props) == 0:
		*lines = append(*lines, key)
	case len(n.Children) == 1 && n.Children[0].IsText() && len(n.Props) == 0:
		if text := n.Children[0].Text; text != "" {
			*lines = append(*lines, key+": "+yamlEscapeValue(text))
		} else {
			*lines = append(*lines, key)
		}
	default:
		*lines = append(*lines, key+":")
		props := make([]string, 0, len(n.Props))
		for k := range n.Props {
			props = append(props, k)
		}
		sort.Strings(props)
		for _, k := range props {
			*lines = append(*lines, indent+"  - /"+k+": "+yamlEscapeValue(n.Props[k]))
		}
		flagged := n.Ref != "" && cursor && hasPointerCursor(n)
		for _, c := range n.Children {
			renderChild(lines, c, indent+"  ", cursor && !flagged, opts)
		}
	}
}

// jsonQuote quotes a name the way JSON.stringify does, leaving HTML
// characters alone.
func jsonQuote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return strconv.Quote(s)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
