package browser

import (
	"testing"

	"github.com/go-rod/rod/lib/input"
)

func TestParseKeys(t *testing.T) {
	tests := []struct {
		in        string
		key       input.Key
		modifiers int
		text      string
	}{
		{"Enter", input.Enter, 0, ""},
		{"escape", input.Escape, 0, ""},
		{"ArrowDown", input.ArrowDown, 0, ""},
		{"a", input.Key('a'), 0, ""},
		{"Control+A", input.Key('A'), 1, ""},
		{"Ctrl+Shift+Tab", input.Tab, 2, ""},
		{"hello world", 0, 0, "hello world"},
		{"é", 0, 0, "é"},
	}
	for _, tt := range tests {
		got, err := parseKeys(tt.in)
		if err != nil {
			t.Fatalf("parseKeys(%q): %v", tt.in, err)
		}
		if got.key != tt.key || len(got.modifiers) != tt.modifiers || got.text != tt.text {
			t.Fatalf("parseKeys(%q): got %+v", tt.in, got)
		}
	}
}

func TestParseKeys_Errors(t *testing.T) {
	for _, in := range []string{"", "Hyper+A", "Control+NotAKey"} {
		if _, err := parseKeys(in); err == nil {
			t.Fatalf("parseKeys(%q): expected error", in)
		}
	}
}
