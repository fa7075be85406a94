package browser

import (
	_ "embed"
	"errors"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/ariasnap/aria"
	"github.com/hazyhaar/ariasnap/dom"
)

var (
	//go:embed capture.js
	captureJS string
	//go:embed commit.js
	commitJS string
	//go:embed select.js
	selectJS string
	//go:embed load.js
	loadJS string
)

const (
	nodeElement = 1
	nodeText    = 3
)

// capture is what capture.js returns: the live DOM with computed style,
// geometry, form state and the annotations the page kept from earlier
// snapshots. Token numbers the capture; commit.js refuses any other.
type capture struct {
	Token   int           `json:"token"`
	LastRef int           `json:"lastRef"`
	Active  int           `json:"active"`
	Root    *capturedNode `json:"root"`
}

type capturedNode struct {
	ID       int             `json:"id"`
	Type     int             `json:"t"`
	Tag      string          `json:"tag,omitempty"`
	Attrs    [][2]string     `json:"attrs,omitempty"`
	Text     string          `json:"text,omitempty"`
	Style    *capturedStyle  `json:"style,omitempty"`
	Before   *capturedStyle  `json:"before,omitempty"`
	After    *capturedStyle  `json:"after,omitempty"`
	Rect     []float64       `json:"rect,omitempty"`
	State    *capturedState  `json:"state,omitempty"`
	Ann      *aria.RefEntry  `json:"ann,omitempty"`
	Children []*capturedNode `json:"children,omitempty"`
	Shadow   *capturedShadow `json:"shadow,omitempty"`
}

type capturedStyle struct {
	Display       string `json:"display"`
	Visibility    string `json:"visibility"`
	PointerEvents string `json:"pointerEvents,omitempty"`
	Cursor        string `json:"cursor,omitempty"`
	Content       string `json:"content,omitempty"`
}

func (s *capturedStyle) style() *dom.Style {
	return &dom.Style{
		Display:       s.Display,
		Visibility:    s.Visibility,
		PointerEvents: s.PointerEvents,
		Cursor:        s.Cursor,
		Content:       s.Content,
	}
}

type capturedState struct {
	Value         string `json:"value,omitempty"`
	Checked       bool   `json:"checked,omitempty"`
	Indeterminate bool   `json:"indeterminate,omitempty"`
	Selected      bool   `json:"selected,omitempty"`
	Open          bool   `json:"open,omitempty"`
}

type capturedShadow struct {
	Children []*capturedNode `json:"children"`
}

// capturedDoc is a capture rebuilt as a dom.Document, with the mapping
// back to the page's node ids.
type capturedDoc struct {
	token  int
	doc    *dom.Document
	styles *capturedStyles
	byID   map[int]*html.Node
	ids    map[*html.Node]int
	anns   map[*html.Node]aria.RefEntry
}

// document rebuilds c as a dom.Document whose styles and geometry are the
// captured ones.
func (c *capture) document() (*capturedDoc, error) {
	if c.Root == nil || c.Root.Type != nodeElement {
		return nil, errors.New("browser: capture has no document element")
	}
	root := &html.Node{Type: html.DocumentNode}
	cd := &capturedDoc{
		token:  c.Token,
		doc:    dom.NewDocument(root),
		styles: newCapturedStyles(),
		byID:   make(map[int]*html.Node),
		ids:    make(map[*html.Node]int),
		anns:   make(map[*html.Node]aria.RefEntry),
	}
	cd.doc.Styles = cd.styles
	cd.append(root, c.Root)
	if el, ok := cd.byID[c.Active]; ok {
		cd.doc.Active = el
	}
	return cd, nil
}

func (cd *capturedDoc) append(parent *html.Node, cn *capturedNode) {
	switch cn.Type {
	case nodeText:
		parent.AppendChild(&html.Node{Type: html.TextNode, Data: cn.Text})
		return
	case nodeElement:
	default:
		return
	}

	el := &html.Node{Type: html.ElementNode, Data: cn.Tag, DataAtom: atom.Lookup([]byte(cn.Tag))}
	for _, a := range cn.Attrs {
		el.Attr = append(el.Attr, html.Attribute{Key: a[0], Val: a[1]})
	}
	parent.AppendChild(el)
	cd.byID[cn.ID] = el
	cd.ids[el] = cn.ID

	if cn.Style != nil {
		cd.styles.styles[el] = cn.Style.style()
	}
	if cn.Before != nil {
		cd.styles.pseudo[pseudoKey{el, "before"}] = cn.Before.style()
	}
	if cn.After != nil {
		cd.styles.pseudo[pseudoKey{el, "after"}] = cn.After.style()
	}
	if len(cn.Rect) == 4 {
		cd.styles.rects[el] = dom.Rect{X: cn.Rect[0], Y: cn.Rect[1], Width: cn.Rect[2], Height: cn.Rect[3]}
	}
	if st := cn.State; st != nil {
		cd.doc.SetState(el, dom.ElementState{
			Value:         st.Value,
			Checked:       st.Checked,
			Indeterminate: st.Indeterminate,
			Selected:      st.Selected,
			Open:          st.Open,
		})
	}
	if cn.Ann != nil {
		cd.anns[el] = *cn.Ann
	}

	for _, ch := range cn.Children {
		cd.append(el, ch)
	}
	if cn.Shadow != nil {
		sr := cd.doc.AttachShadow(el, false)
		for _, ch := range cn.Shadow.Children {
			cd.append(sr, ch)
		}
	}
}

// commitArgs turns a snapshot into the arguments of commit.js: the
// capture token, ref to node id pairs, the annotations to store on the
// page and the last allocated ref.
func (cd *capturedDoc) commitArgs(snap *aria.Snapshot) []any {
	refs, anns := [][]any{}, [][]any{}
	for _, ref := range snap.Registry.Refs() {
		el, _ := snap.Registry.Lookup(ref)
		if id, ok := cd.ids[el]; ok {
			refs = append(refs, []any{ref, id})
		}
	}
	for el, e := range snap.Annotations {
		if id, ok := cd.ids[el]; ok {
			anns = append(anns, []any{id, e.Role, e.Name, e.Ref})
		}
	}
	return []any{cd.token, refs, anns, snap.LastRef}
}

type pseudoKey struct {
	el     *html.Node
	pseudo string
}

// capturedStyles serves computed style and boxes from a capture.
type capturedStyles struct {
	styles map[*html.Node]*dom.Style
	pseudo map[pseudoKey]*dom.Style
	rects  map[*html.Node]dom.Rect
}

func newCapturedStyles() *capturedStyles {
	return &capturedStyles{
		styles: make(map[*html.Node]*dom.Style),
		pseudo: make(map[pseudoKey]*dom.Style),
		rects:  make(map[*html.Node]dom.Rect),
	}
}

// ComputedStyle implements dom.StyleSource.
func (s *capturedStyles) ComputedStyle(el *html.Node, pseudo string) (*dom.Style, bool) {
	if pseudo == "" {
		st, ok := s.styles[el]
		return st, ok
	}
	st, ok := s.pseudo[pseudoKey{el, pseudo}]
	return st, ok
}

// BoundingBox implements dom.StyleSource.
func (s *capturedStyles) BoundingBox(el *html.Node) (dom.Rect, bool) {
	r, ok := s.rects[el]
	return r, ok && !r.Empty()
}
