package aria

import (
	"golang.org/x/net/html"

	"github.com/hazyhaar/ariasnap/dom"
)

type styleKey struct {
	el     *html.Node
	pseudo string
}

type styleEntry struct {
	st *dom.Style
	ok bool
}

// scope memoizes style and resolver lookups for one pass over a
// document. Maps exist while depth > 0 and are dropped when the outermost
// caller exits, so nested passes share them and separate passes never do.
type scope struct {
	depth   int
	styles  map[styleKey]styleEntry
	hidden  map[*html.Node]bool
	pointer map[*html.Node]bool
	names   map[*html.Node]string
	roles   map[*html.Node]string
}

func (s *scope) enter() {
	if s.depth == 0 {
		s.styles = make(map[styleKey]styleEntry)
		s.hidden = make(map[*html.Node]bool)
		s.pointer = make(map[*html.Node]bool)
		s.names = make(map[*html.Node]string)
		s.roles = make(map[*html.Node]string)
	}
	s.depth++
}

func (s *scope) exit() {
	s.depth--
	if s.depth == 0 {
		s.styles = nil
		s.hidden = nil
		s.pointer = nil
		s.names = nil
		s.roles = nil
	}
}

func (s *scope) active() bool { return s.depth > 0 }
