package browser

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod/lib/input"
)

var namedKeys = map[string]input.Key{
	"enter":      input.Enter,
	"tab":        input.Tab,
	"escape":     input.Escape,
	"esc":        input.Escape,
	"backspace":  input.Backspace,
	"delete":     input.Delete,
	"insert":     input.Insert,
	"home":       input.Home,
	"end":        input.End,
	"pageup":     input.PageUp,
	"pagedown":   input.PageDown,
	"arrowup":    input.ArrowUp,
	"arrowdown":  input.ArrowDown,
	"arrowleft":  input.ArrowLeft,
	"arrowright": input.ArrowRight,
	"space":      input.Space,
	"f1":         input.F1,
	"f2":         input.F2,
	"f3":         input.F3,
	"f4":         input.F4,
	"f5":         input.F5,
	"f6":         input.F6,
	"f7":         input.F7,
	"f8":         input.F8,
	"f9":         input.F9,
	"f10":        input.F10,
	"f11":        input.F11,
	"f12":        input.F12,
}

var modifierKeys = map[string]input.Key{
	"control": input.ControlLeft,
	"ctrl":    input.ControlLeft,
	"shift":   input.ShiftLeft,
	"alt":     input.AltLeft,
	"meta":    input.MetaLeft,
	"cmd":     input.MetaLeft,
}

// keyPress is a parsed keyboard argument: either a key with modifiers
// held, or free text inserted as is.
type keyPress struct {
	modifiers []input.Key
	key       input.Key
	text      string
}

// parseKeys understands "Enter", "Control+A", "a" and arbitrary text.
func parseKeys(combo string) (keyPress, error) {
	if combo == "" {
		return keyPress{}, fmt.Errorf("browser: empty key")
	}
	parts := strings.Split(combo, "+")
	if len(parts) == 1 || combo == "+" {
		if k, ok := lookupKey(combo); ok {
			return keyPress{key: k}, nil
		}
		return keyPress{text: combo}, nil
	}

	var kp keyPress
	for _, m := range parts[:len(parts)-1] {
		mk, ok := modifierKeys[strings.ToLower(strings.TrimSpace(m))]
		if !ok {
			return keyPress{}, fmt.Errorf("browser: unknown modifier %q in %q", m, combo)
		}
		kp.modifiers = append(kp.modifiers, mk)
	}
	last := parts[len(parts)-1]
	k, ok := lookupKey(last)
	if !ok {
		return keyPress{}, fmt.Errorf("browser: unknown key %q in %q", last, combo)
	}
	kp.key = k
	return kp, nil
}

func lookupKey(name string) (input.Key, bool) {
	if k, ok := namedKeys[strings.ToLower(name)]; ok {
		return k, true
	}
	if len(name) == 1 && name[0] >= 0x20 && name[0] < 0x7f {
		k := input.Key(name[0])
		return k, defined(k)
	}
	return 0, false
}

func defined(k input.Key) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	k.Info()
	return true
}
