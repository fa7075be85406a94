package aria

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ariasnap/dom"
)

var validRoles = toSet(
	"alert", "alertdialog", "application", "article", "banner", "blockquote",
	"button", "caption", "cell", "checkbox", "code", "columnheader", "combobox",
	"complementary", "contentinfo", "definition", "deletion", "dialog",
	"directory", "document", "emphasis", "feed", "figure", "form", "generic",
	"grid", "gridcell", "group", "heading", "img", "insertion", "link", "list",
	"listbox", "listitem", "log", "main", "mark", "marquee", "math", "meter",
	"menu", "menubar", "menuitem", "menuitemcheckbox", "menuitemradio",
	"navigation", "none", "note", "option", "paragraph", "presentation",
	"progressbar", "radio", "radiogroup", "region", "row", "rowgroup",
	"rowheader", "scrollbar", "search", "searchbox", "separator", "slider",
	"spinbutton", "status", "strong", "subscript", "superscript", "switch",
	"tab", "table", "tablist", "tabpanel", "term", "textbox", "time", "timer",
	"toolbar", "tooltip", "tree", "treegrid", "treeitem",
)

// IsValidRole reports whether role belongs to the recognized vocabulary.
func IsValidRole(role string) bool { return validRoles[role] }

func toSet(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

var inputTypeToRole = map[string]string{
	"button":   "button",
	"checkbox": "checkbox",
	"image":    "button",
	"number":   "spinbutton",
	"radio":    "radio",
	"range":    "slider",
	"reset":    "button",
	"submit":   "button",
}

// staticRoles maps tags whose implicit role does not depend on context.
var staticRoles = map[string]string{
	"address":    "group",
	"article":    "article",
	"aside":      "complementary",
	"b":          "generic",
	"bdi":        "generic",
	"bdo":        "generic",
	"blockquote": "blockquote",
	"body":       "generic",
	"button":     "button",
	"caption":    "caption",
	"code":       "code",
	"data":       "generic",
	"datalist":   "listbox",
	"dd":         "definition",
	"del":        "deletion",
	"details":    "group",
	"dfn":        "term",
	"dialog":     "dialog",
	"div":        "generic",
	"dt":         "term",
	"em":         "emphasis",
	"fieldset":   "group",
	"figure":     "figure",
	"h1":         "heading",
	"h2":         "heading",
	"h3":         "heading",
	"h4":         "heading",
	"h5":         "heading",
	"h6":         "heading",
	"hgroup":     "group",
	"hr":         "separator",
	"html":       "document",
	"i":          "generic",
	"ins":        "insertion",
	"li":         "listitem",
	"main":       "main",
	"mark":       "mark",
	"math":       "math",
	"menu":       "list",
	"meter":      "meter",
	"nav":        "navigation",
	"ol":         "list",
	"optgroup":   "group",
	"option":     "option",
	"output":     "status",
	"p":          "paragraph",
	"pre":        "generic",
	"progress":   "progressbar",
	"q":          "generic",
	"s":          "deletion",
	"samp":       "generic",
	"search":     "search",
	"small":      "generic",
	"span":       "generic",
	"strong":     "strong",
	"sub":        "subscript",
	"sup":        "superscript",
	"svg":        "img",
	"table":      "table",
	"tbody":      "rowgroup",
	"textarea":   "textbox",
	"tfoot":      "rowgroup",
	"thead":      "rowgroup",
	"time":       "time",
	"tr":         "row",
	"u":          "generic",
	"ul":         "list",
}

// presentationParents lists, per tag, the parents whose presentation
// role is inherited (a <li> of a role=none <ul> is not a listitem).
var presentationParents = map[string][]string{
	"dd":    {"dl", "div"},
	"div":   {"dl"},
	"dt":    {"dl", "div"},
	"li":    {"ol", "ul"},
	"tbody": {"table"},
	"td":    {"tr"},
	"tfoot": {"table"},
	"th":    {"tr"},
	"thead": {"table"},
	"tr":    {"thead", "tbody", "tfoot", "table"},
}

type globalAttr struct {
	name       string
	prohibited map[string]bool
}

var namingProhibitedForLabel = toSet("caption", "code", "deletion", "emphasis", "generic",
	"insertion", "paragraph", "presentation", "strong", "subscript", "superscript")

var globalAriaAttrs = []globalAttr{
	{"aria-atomic", nil},
	{"aria-busy", nil},
	{"aria-controls", nil},
	{"aria-current", nil},
	{"aria-describedby", nil},
	{"aria-details", nil},
	{"aria-dropeffect", nil},
	{"aria-flowto", nil},
	{"aria-grabbed", nil},
	{"aria-hidden", nil},
	{"aria-keyshortcuts", nil},
	{"aria-label", namingProhibitedForLabel},
	{"aria-labelledby", namingProhibitedForLabel},
	{"aria-live", nil},
	{"aria-owns", nil},
	{"aria-relevant", nil},
	{"aria-roledescription", toSet("generic")},
}

func hasGlobalAriaAttr(el *html.Node, forRole string) bool {
	for _, a := range globalAriaAttrs {
		if a.prohibited[forRole] {
			continue
		}
		if dom.HasAttr(el, a.name) {
			return true
		}
	}
	return false
}

// explicitRole returns the first token of role= that is a valid role.
func explicitRole(el *html.Node) string {
	for _, tok := range strings.Fields(dom.AttrOr(el, "role")) {
		if validRoles[tok] {
			return tok
		}
	}
	return ""
}

func isPresentational(role string) bool {
	return role == "none" || role == "presentation"
}

func hasExplicitName(el *html.Node) bool {
	return dom.HasAttr(el, "aria-label") || dom.HasAttr(el, "aria-labelledby")
}

func (r *Resolver) isFocusable(el *html.Node) bool {
	if r.nativelyDisabled(el) {
		return false
	}
	switch dom.TagName(el) {
	case "button", "details", "select", "textarea":
		return true
	case "a", "area":
		if dom.HasAttr(el, "href") {
			return true
		}
	case "input":
		if dom.InputType(el) != "hidden" {
			return true
		}
	}
	return dom.HasAttr(el, "tabindex")
}

func (r *Resolver) hasConflictResolution(el *html.Node, role string) bool {
	return hasGlobalAriaAttr(el, role) || r.isFocusable(el)
}

// Role returns the effective ARIA role of el, or "" when the element has
// none (it is spliced out of the tree). "none" and "presentation" are
// returned when they survive conflict resolution.
func (r *Resolver) Role(el *html.Node) string {
	r.cache.enter()
	defer r.cache.exit()
	return r.role(el)
}

func (r *Resolver) role(el *html.Node) string {
	if role, ok := r.cache.roles[el]; ok {
		return role
	}
	role := r.computeRole(el)
	r.cache.roles[el] = role
	return role
}

func (r *Resolver) computeRole(el *html.Node) string {
	explicit := explicitRole(el)
	if explicit == "" {
		return r.implicitRole(el)
	}
	if isPresentational(explicit) {
		implicit := r.implicitRole(el)
		if r.hasConflictResolution(el, implicit) {
			return implicit
		}
	}
	return explicit
}

func (r *Resolver) implicitRole(el *html.Node) string {
	role := r.tagRole(el)
	if role == "" {
		return ""
	}
	for e := el; ; {
		tag := dom.TagName(e)
		parent := r.doc.ParentElementOrShadowHost(e)
		parents := presentationParents[tag]
		if parent == nil || !contains(parents, dom.TagName(parent)) {
			break
		}
		pr := explicitRole(parent)
		if isPresentational(pr) && !r.hasConflictResolution(parent, pr) {
			return pr
		}
		e = parent
	}
	return role
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func (r *Resolver) preventsLandmark(el *html.Node) bool {
	return r.doc.Closest(r.doc.ParentElementOrShadowHost(el), func(n *html.Node) bool {
		switch explicitRole(n) {
		case "article", "complementary", "main", "navigation", "region":
			return true
		}
		if dom.HasAttr(n, "role") {
			return false
		}
		switch dom.TagName(n) {
		case "article", "aside", "main", "nav", "section":
			return true
		}
		return false
	}) != nil
}

func (r *Resolver) tableRole(el *html.Node) string {
	table := r.doc.Closest(el, func(n *html.Node) bool { return dom.TagName(n) == "table" })
	if table == nil {
		return ""
	}
	return explicitRole(table)
}

// tagRole is the implicit role table keyed by tag and attributes.
func (r *Resolver) tagRole(el *html.Node) string {
	tag := dom.TagName(el)
	if role, ok := staticRoles[tag]; ok {
		return role
	}
	switch tag {
	case "a", "area":
		if dom.HasAttr(el, "href") {
			return "link"
		}
		if tag == "a" {
			return "generic"
		}
	case "header", "footer":
		if r.preventsLandmark(el) {
			return "generic"
		}
		if tag == "header" {
			return "banner"
		}
		return "contentinfo"
	case "form":
		if hasExplicitName(el) {
			return "form"
		}
	case "section":
		if hasExplicitName(el) {
			return "region"
		}
		return "generic"
	case "img":
		alt, hasAlt := dom.Attr(el, "alt")
		if hasAlt && alt == "" && dom.AttrOr(el, "title") == "" && !hasGlobalAriaAttr(el, "") && !r.isFocusable(el) {
			return "presentation"
		}
		return "img"
	case "input":
		return r.inputRole(el)
	case "select":
		if dom.HasAttr(el, "multiple") || selectSize(el) > 1 {
			return "listbox"
		}
		return "combobox"
	case "td":
		if tr := r.tableRole(el); tr == "grid" || tr == "treegrid" {
			return "gridcell"
		}
		return "cell"
	case "th":
		switch dom.AttrOr(el, "scope") {
		case "col":
			return "columnheader"
		case "row":
			return "rowheader"
		}
		if tr := r.tableRole(el); tr == "grid" || tr == "treegrid" {
			return "gridcell"
		}
		return "columnheader"
	case "iframe":
		return "iframe"
	}
	if strings.Contains(tag, "-") {
		return "generic"
	}
	return ""
}

func (r *Resolver) inputRole(el *html.Node) string {
	t := dom.InputType(el)
	switch t {
	case "search":
		if dom.HasAttr(el, "list") {
			return "combobox"
		}
		return "searchbox"
	case "email", "tel", "text", "url":
		if list := r.doc.IDRefs(el, dom.AttrOr(el, "list")); len(list) > 0 && dom.TagName(list[0]) == "datalist" {
			return "combobox"
		}
		return "textbox"
	case "hidden":
		return ""
	case "file":
		return "button"
	}
	if role, ok := inputTypeToRole[t]; ok {
		return role
	}
	return "textbox"
}

func selectSize(el *html.Node) int {
	n := 0
	for _, c := range strings.TrimSpace(dom.AttrOr(el, "size")) {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
