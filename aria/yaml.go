package aria

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	reEdgeSpace    = regexp.MustCompile(`^[\s\x{feff}]|[\s\x{feff}]$`)
	reControl      = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f-\x{9f}]`)
	reColonOrBreak = regexp.MustCompile(`[\n:](\s|$)`)
	reSpaceHash    = regexp.MustCompile(`\s#`)
	reIndicator    = regexp.MustCompile(`^[&*\],?!>|@"'#%]`)
	reFlow         = regexp.MustCompile("[{}`]")
	reJSNumber     = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	reJSRadix      = regexp.MustCompile(`^0([xX][0-9a-fA-F]+|[bB][01]+|[oO][0-7]+)$`)
)

var yamlKeywords = toSet("y", "n", "yes", "no", "true", "false", "on", "off", "null")

// yamlNeedsQuotes reports whether s would not survive as a plain YAML
// scalar: empty, edge whitespace, control characters, indicators, or a
// value YAML would read as a number, boolean or null.
func yamlNeedsQuotes(s string) bool {
	switch {
	case s == "":
		return true
	case reEdgeSpace.MatchString(s):
		return true
	case reControl.MatchString(s):
		return true
	case strings.HasPrefix(s, "-"):
		return true
	case reColonOrBreak.MatchString(s):
		return true
	case reSpaceHash.MatchString(s):
		return true
	case strings.ContainsAny(s, "\n\r"):
		return true
	case reIndicator.MatchString(s):
		return true
	case reFlow.MatchString(s):
		return true
	case strings.HasPrefix(s, "["):
		return true
	case isJSNumber(s):
		return true
	case yamlKeywords[strings.ToLower(s)]:
		return true
	}
	return false
}

// isJSNumber mirrors !isNaN(Number(s)) for strings without edge space.
func isJSNumber(s string) bool {
	switch s {
	case "Infinity", "+Infinity", "-Infinity":
		return true
	}
	return reJSNumber.MatchString(s) || reJSRadix.MatchString(s)
}

// yamlEscapeKey single-quotes a key when needed, doubling inner quotes.
func yamlEscapeKey(s string) string {
	if !yamlNeedsQuotes(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// yamlEscapeValue double-quotes a value when needed.
func yamlEscapeValue(s string) string {
	if !yamlNeedsQuotes(s) {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || (r >= 0x7f && r <= 0x9f) {
				fmt.Fprintf(&b, `\x%02x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
