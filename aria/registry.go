package aria

import (
	"strings"

	"golang.org/x/net/html"
)

// Registry maps the refs of one snapshot to their elements. It is never
// mutated after construction.
type Registry struct {
	elements map[string]*html.Node
	refs     []string
}

func newRegistry(elements map[string]*html.Node, refs []string) *Registry {
	return &Registry{elements: elements, refs: refs}
}

// Lookup returns the element holding ref.
func (r *Registry) Lookup(ref string) (*html.Node, bool) {
	if r == nil {
		return nil, false
	}
	el, ok := r.elements[ref]
	return el, ok
}

// Refs returns the refs in document order.
func (r *Registry) Refs() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.refs...)
}

// Len returns the number of refs.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.refs)
}

func (r *Registry) available() string {
	if r.Len() == 0 {
		return "none"
	}
	return strings.Join(r.refs, ", ")
}
