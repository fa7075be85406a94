// Package aria computes the accessibility tree of a dom.Document (roles,
// accessible names and states), assigns [ref=eN] markers to actionable
// nodes and renders the tree as YAML.
package aria

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ariasnap/dom"
	"github.com/hazyhaar/ariasnap/internal/idgen"
)

// Snapshot is the result of one successful build.
type Snapshot struct {
	ID       string
	Root     *Node
	Registry *Registry
	// IframeRefs are the refs of <iframe> nodes, the frame boundaries a
	// caller may descend into.
	IframeRefs []string
	// Annotations holds the (role, name, ref) remembered for every element
	// that received a ref in this build.
	Annotations map[*html.Node]RefEntry
	LastRef     int
	Text        string
}

// Snapshotter owns the ref registry and the per-element annotations that
// keep refs stable across snapshots of the same document.
type Snapshotter struct {
	mu          sync.Mutex
	logger      *slog.Logger
	prefix      string
	newID       idgen.Generator
	render      RenderOptions
	lastRef     int
	annotations map[*html.Node]RefEntry
	registry    *Registry
}

// Option configures a Snapshotter.
type Option func(*Snapshotter)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Snapshotter) { s.logger = l }
}

// WithRefPrefix prefixes every minted ref, e.g. "f1" gives "f1e3".
func WithRefPrefix(p string) Option {
	return func(s *Snapshotter) { s.prefix = p }
}

// WithLastRef starts the ref counter at n, for resuming a counter kept
// elsewhere.
func WithLastRef(n int) Option {
	return func(s *Snapshotter) { s.lastRef = n }
}

// WithIDGenerator sets the snapshot ID generator. Default: UUIDv7.
func WithIDGenerator(g idgen.Generator) Option {
	return func(s *Snapshotter) { s.newID = g }
}

// WithRenderOptions overrides the renderer flags. Default: cursor and
// active markers on.
func WithRenderOptions(o RenderOptions) Option {
	return func(s *Snapshotter) { s.render = o }
}

// New creates a Snapshotter.
func New(opts ...Option) *Snapshotter {
	s := &Snapshotter{
		logger:      slog.Default(),
		newID:       idgen.Prefixed("snap_", idgen.UUIDv7()),
		render:      RenderOptions{Cursor: true, Active: true},
		annotations: make(map[*html.Node]RefEntry),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Remember seeds the annotation of el, typically restored from a page
// that kept its own.
func (s *Snapshotter) Remember(el *html.Node, e RefEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.annotations[el] = e
}

// Annotation returns the annotation remembered for el.
func (s *Snapshotter) Annotation(el *html.Node) (RefEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.annotations[el]
	return e, ok
}

// LastRef returns the ref counter.
func (s *Snapshotter) LastRef() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRef
}

// Registry returns the registry of the last successful snapshot, or nil.
func (s *Snapshotter) Registry() *Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry
}

// Snapshot builds doc and returns the rendered text.
func (s *Snapshotter) Snapshot(doc *dom.Document) (string, error) {
	snap, err := s.Build(doc)
	if err != nil {
		return "", err
	}
	return snap.Text, nil
}

// Build snapshots doc from its body.
func (s *Snapshotter) Build(doc *dom.Document) (*Snapshot, error) {
	body := doc.Body()
	if body == nil {
		return nil, ErrNoBody
	}
	return s.BuildFrom(doc, body)
}

// BuildFrom snapshots the subtree of doc rooted at el. On any error the
// registry, annotations and counter are left as they were.
func (s *Snapshotter) BuildFrom(doc *dom.Document, el *html.Node) (snap *Snapshot, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			snap, err = nil, fmt.Errorf("aria: build: %v", p)
		}
	}()

	b := newBuilder(NewResolver(doc), s.prefix, s.lastRef, func(n *html.Node) (RefEntry, bool) {
		e, ok := s.annotations[n]
		return e, ok
	})
	root, err := b.build(el)
	if err != nil {
		s.logger.Warn("aria: snapshot aborted", "error", err)
		return nil, err
	}
	normalize(root)

	snap = &Snapshot{
		ID:          s.newID(),
		Root:        root,
		Registry:    newRegistry(b.elements, b.refs),
		IframeRefs:  b.iframes,
		Annotations: b.staged,
		LastRef:     b.lastRef,
		Text:        Render(root, s.render),
	}
	s.commit(b, snap.Registry)

	s.logger.Debug("aria: snapshot built",
		"id", snap.ID, "refs", snap.Registry.Len(), "iframes", len(snap.IframeRefs), "last_ref", s.lastRef)
	return snap, nil
}

// commit swaps in the staged state. Annotations of elements no longer in
// the document are dropped.
func (s *Snapshotter) commit(b *builder, reg *Registry) {
	next := make(map[*html.Node]RefEntry, len(s.annotations)+len(b.staged))
	for el, e := range s.annotations {
		if b.attached(el) {
			next[el] = e
		}
	}
	for el, e := range b.staged {
		next[el] = e
	}
	s.annotations = next
	s.lastRef = b.lastRef
	s.registry = reg
}

// SelectRef returns the element that ref designates in the last
// successful snapshot.
func (s *Snapshotter) SelectRef(ref string) (*html.Node, error) {
	s.mu.Lock()
	reg := s.registry
	s.mu.Unlock()

	if reg == nil {
		return nil, fmt.Errorf("%w: ref %q (available refs: none)", ErrNoSnapshot, ref)
	}
	el, ok := reg.Lookup(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %q (available refs: %s)", ErrUnknownRef, ref, reg.available())
	}
	return el, nil
}
