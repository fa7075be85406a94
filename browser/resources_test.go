package browser

import "testing"

func TestShouldBlock(t *testing.T) {
	set := map[string]bool{"images": true, "media": true}
	tests := []struct {
		resType string
		want    bool
	}{
		{"Image", true},
		{"Media", true},
		{"Font", false},
		{"Script", false},
		{"Document", false},
	}
	for _, tt := range tests {
		if got := shouldBlock(set, tt.resType); got != tt.want {
			t.Fatalf("shouldBlock(%q): got %v, want %v", tt.resType, got, tt.want)
		}
	}
}
