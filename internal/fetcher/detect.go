package fetcher

import (
	"bytes"
	"unicode"

	"golang.org/x/net/html"
)

const (
	minDocument  = 256
	minTextBytes = 200
	minTextRatio = 0.10
)

var shellMarkers = [][]byte{
	[]byte(`<div id="root"></div>`),
	[]byte(`<div id="app"></div>`),
	[]byte(`<div id="__next"></div>`),
	[]byte(`<noscript>you need to enable javascript`),
	[]byte(`<noscript>enable javascript`),
}

// IsSufficient reports whether a static fetch carries enough text for
// the snapshot to mean something. Client-rendered shells do not: their
// accessibility tree only exists in a browser.
func IsSufficient(body []byte) bool {
	if len(body) < minDocument {
		return false
	}
	text, markup := textMarkupRatio(body)
	if text+markup == 0 || text < minTextBytes {
		return false
	}
	if float64(text)/float64(text+markup) < minTextRatio {
		return false
	}
	lower := bytes.ToLower(body)
	for _, m := range shellMarkers {
		if bytes.Contains(lower, m) {
			return false
		}
	}
	return true
}

// textMarkupRatio counts non-space text characters outside script and style
// against every other byte of the document.
func textMarkupRatio(body []byte) (text, markup int) {
	z := html.NewTokenizer(bytes.NewReader(body))
	skip := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return text, markup
		}
		raw := z.Raw()
		switch tt {
		case html.TextToken:
			if skip > 0 {
				markup += len(raw)
				continue
			}
			for _, r := range string(raw) {
				if !unicode.IsSpace(r) {
					text++
				}
			}
		case html.StartTagToken:
			markup += len(raw)
			if name, _ := z.TagName(); isRawText(name) {
				skip++
			}
		case html.EndTagToken:
			markup += len(raw)
			if name, _ := z.TagName(); isRawText(name) && skip > 0 {
				skip--
			}
		default:
			markup += len(raw)
		}
	}
}

func isRawText(tag []byte) bool {
	return string(tag) == "script" || string(tag) == "style"
}
