package aria

// normalize runs both passes over a freshly built tree.
func normalize(root *Node) {
	coalesceText(root)
	root.Children = pruneGeneric(root)[0].Node.Children
}

// coalesceText merges adjacent text runs into one normalized run, drops
// runs that are only whitespace, and drops a lone run equal to the name.
func coalesceText(n *Node) {
	var out []Child
	var buf []string
	flush := func() {
		if len(buf) == 0 {
			return
		}
		total := 0
		for _, s := range buf {
			total += len(s)
		}
		joined := make([]byte, 0, total)
		for _, s := range buf {
			joined = append(joined, s...)
		}
		if text := normalizeWhiteSpace(string(joined)); text != "" {
			out = append(out, TextChild(text))
		}
		buf = buf[:0]
	}
	for _, c := range n.Children {
		if c.IsText() {
			buf = append(buf, c.Text)
			continue
		}
		flush()
		coalesceText(c.Node)
		out = append(out, c)
	}
	flush()
	n.Children = out
	if len(n.Children) == 1 && n.Children[0].IsText() && n.Children[0].Text == n.Name {
		n.Children = nil
	}
}

// pruneGeneric replaces unnamed generic wrappers that hold at most one
// child, itself a ref-bearing node, by their children. It returns the
// list that takes n's place in its parent.
func pruneGeneric(n *Node) []Child {
	var result []Child
	for _, c := range n.Children {
		if c.IsText() {
			result = append(result, c)
			continue
		}
		result = append(result, pruneGeneric(c.Node)...)
	}
	if n.Role == "generic" && n.Name == "" && len(result) <= 1 {
		removable := true
		for _, c := range result {
			if c.IsText() || c.Node.Ref == "" {
				removable = false
			}
		}
		if removable {
			return result
		}
	}
	n.Children = result
	return []Child{NodeChild(n)}
}
