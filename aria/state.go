package aria

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ariasnap/dom"
)

// Tristate is a boolean ARIA state that also admits "mixed".
type Tristate int

const (
	False Tristate = iota
	True
	Mixed
)

var (
	checkedRoles = toSet("checkbox", "menuitemcheckbox", "option", "radio",
		"switch", "menuitemradio", "treeitem")
	disabledRoles = toSet("application", "button", "composite", "gridcell",
		"group", "input", "link", "menuitem", "scrollbar", "separator", "tab",
		"checkbox", "columnheader", "combobox", "grid", "listbox", "menu",
		"menubar", "menuitemcheckbox", "menuitemradio", "option", "radio",
		"radiogroup", "row", "rowheader", "searchbox", "select", "slider",
		"spinbutton", "switch", "tablist", "textbox", "toolbar", "tree",
		"treegrid", "treeitem")
	expandedRoles = toSet("application", "button", "checkbox", "combobox",
		"gridcell", "link", "listbox", "menuitem", "row", "rowheader", "tab",
		"treeitem", "columnheader", "menuitemcheckbox", "menuitemradio", "switch")
	levelRoles    = toSet("heading", "listitem", "row", "treeitem")
	pressedRoles  = toSet("button")
	selectedRoles = toSet("gridcell", "option", "row", "tab", "rowheader",
		"columnheader", "treeitem")
)

func ariaAttr(el *html.Node, name string) string {
	return strings.ToLower(strings.TrimSpace(dom.AttrOr(el, name)))
}

// Checked returns the checked state for roles that support it.
func (r *Resolver) Checked(el *html.Node) Tristate {
	tag := dom.TagName(el)
	if tag == "input" && r.doc.Indeterminate(el) {
		return Mixed
	}
	if tag == "input" {
		if t := dom.InputType(el); t == "checkbox" || t == "radio" {
			if r.doc.Checked(el) {
				return True
			}
			return False
		}
	}
	if checkedRoles[r.Role(el)] {
		switch ariaAttr(el, "aria-checked") {
		case "true":
			return True
		case "mixed":
			return Mixed
		}
	}
	return False
}

// Pressed returns aria-pressed for buttons.
func (r *Resolver) Pressed(el *html.Node) Tristate {
	switch ariaAttr(el, "aria-pressed") {
	case "true":
		return True
	case "mixed":
		return Mixed
	}
	return False
}

// Expanded returns the expanded state and whether it is defined at all.
func (r *Resolver) Expanded(el *html.Node) (expanded, defined bool) {
	if dom.TagName(el) == "details" {
		return r.doc.Open(el), true
	}
	switch ariaAttr(el, "aria-expanded") {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// Level returns the heading level or aria-level, 0 when there is none.
func (r *Resolver) Level(el *html.Node) int {
	switch dom.TagName(el) {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	if levelRoles[r.Role(el)] {
		if n, err := strconv.Atoi(strings.TrimSpace(dom.AttrOr(el, "aria-level"))); err == nil && n >= 1 {
			return n
		}
	}
	return 0
}

// Selected returns option selectedness or aria-selected.
func (r *Resolver) Selected(el *html.Node) bool {
	if dom.TagName(el) == "option" {
		return r.doc.Selected(el)
	}
	return ariaAttr(el, "aria-selected") == "true"
}

// Disabled reports native disabledness or an aria-disabled=true on the
// element or, for roles that support it, an ancestor.
func (r *Resolver) Disabled(el *html.Node) bool {
	r.cache.enter()
	defer r.cache.exit()
	return r.nativelyDisabled(el) || r.explicitlyDisabled(el, false)
}

func (r *Resolver) explicitlyDisabled(el *html.Node, ancestor bool) bool {
	if el == nil {
		return false
	}
	if ancestor || disabledRoles[r.role(el)] {
		switch ariaAttr(el, "aria-disabled") {
		case "true":
			return true
		case "false":
			return false
		}
		return r.explicitlyDisabled(r.doc.ParentElementOrShadowHost(el), true)
	}
	return false
}

func (r *Resolver) nativelyDisabled(el *html.Node) bool {
	switch dom.TagName(el) {
	case "button", "input", "select", "textarea", "option", "optgroup":
	default:
		return false
	}
	if dom.HasAttr(el, "disabled") {
		return true
	}
	if dom.TagName(el) == "option" {
		if p := el.Parent; dom.TagName(p) == "optgroup" && dom.HasAttr(p, "disabled") {
			return true
		}
	}
	return r.inDisabledFieldset(el)
}

// inDisabledFieldset reports whether el sits in a disabled fieldset
// outside that fieldset's first legend.
func (r *Resolver) inDisabledFieldset(el *html.Node) bool {
	child := el
	for p := el.Parent; p != nil && p.Type == html.ElementNode; p = p.Parent {
		if dom.TagName(p) == "fieldset" && dom.HasAttr(p, "disabled") {
			var legend *html.Node
			for c := p.FirstChild; c != nil; c = c.NextSibling {
				if dom.TagName(c) == "legend" {
					legend = c
					break
				}
			}
			if legend == nil || child != legend {
				return true
			}
		}
		child = p
	}
	return false
}
