package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Style holds the computed properties the engine reads. Display, Visibility
// and Cursor are resolved values. PointerEvents may be empty when the
// source only knows declared values; callers walk ancestors for it.
type Style struct {
	Display       string
	Visibility    string
	PointerEvents string
	Cursor        string
	// Content is the raw `content` value of a pseudo-element.
	Content string
}

// Rect is an element's border box in CSS pixels.
type Rect struct {
	X, Y, Width, Height float64
}

// Empty reports whether the box has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// StyleSource supplies computed style and geometry. pseudo is "", "before"
// or "after". A false second result means the source has no style for the
// element (it is detached or not rendered).
type StyleSource interface {
	ComputedStyle(el *html.Node, pseudo string) (*Style, bool)
	BoundingBox(el *html.Node) (Rect, bool)
}

// PseudoContent turns a pseudo-element's `content` value into text.
// Quoted strings are unescaped and attr(x) is read from el; counters,
// images and quotes contribute nothing.
func PseudoContent(el *html.Node, st *Style) string {
	if st == nil {
		return ""
	}
	v := strings.TrimSpace(st.Content)
	if v == "" || v == "none" || v == "normal" {
		return ""
	}
	if st.Display == "none" || st.Visibility == "hidden" {
		return ""
	}
	// Alternative text after a slash replaces the content for a11y.
	if i := slashOutsideQuotes(v); i >= 0 {
		v = strings.TrimSpace(v[i+1:])
	}
	var b strings.Builder
	for i := 0; i < len(v); {
		switch c := v[i]; {
		case c == '"' || c == '\'':
			s, n := readCSSString(v[i:])
			b.WriteString(s)
			i += n
		default:
			j := i
			for j < len(v) && isIdentByte(v[j]) {
				j++
			}
			if j > i && j < len(v) && v[j] == '(' {
				end := strings.IndexByte(v[j:], ')')
				if end < 0 {
					return b.String()
				}
				// Only attr() yields text; counter(), url() and friends are skipped.
				if v[i:j] == "attr" {
					name := strings.TrimSpace(v[j+1 : j+end])
					if sp := strings.IndexAny(name, " ,"); sp >= 0 {
						name = name[:sp]
					}
					b.WriteString(AttrOr(el, name))
				}
				i = j + end + 1
				continue
			}
			if j > i {
				i = j
			} else {
				i++
			}
		}
	}
	return b.String()
}

func slashOutsideQuotes(v string) int {
	var q byte
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case q != 0:
			if c == '\\' {
				i++
			} else if c == q {
				q = 0
			}
		case c == '"' || c == '\'':
			q = c
		case c == '/':
			return i
		}
	}
	return -1
}

// readCSSString reads a quoted CSS string at the start of s and returns
// its value and the number of bytes consumed.
func readCSSString(s string) (string, int) {
	q := s[0]
	var b strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		if c == q {
			return b.String(), i + 1
		}
		if c == '\\' && i+1 < len(s) {
			j := i + 1
			hex := 0
			for j < len(s) && hex < 6 && isHex(s[j]) {
				j++
				hex++
			}
			if hex > 0 {
				var r rune
				for _, h := range s[i+1 : j] {
					r = r*16 + rune(hexVal(byte(h)))
				}
				b.WriteRune(r)
				if j < len(s) && s[j] == ' ' {
					j++
				}
				i = j
				continue
			}
			if s[i+1] != '\n' {
				b.WriteByte(s[i+1])
			}
			i += 2
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), i
}

func isIdentByte(c byte) bool {
	return c == '-' || c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func hexVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}
