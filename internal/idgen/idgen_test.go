package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7_Format(t *testing.T) {
	id := UUIDv7()()
	if len(id) != 36 {
		t.Fatalf("UUIDv7: got length %d, want 36", len(id))
	}
	if id[14] != '7' {
		t.Fatalf("UUIDv7: got version %q in %q", id[14], id)
	}
}

func TestUUIDv7_Sortable(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	for i := 0; i < 50; i++ {
		id := gen()
		if id == prev {
			t.Fatalf("UUIDv7: duplicate at iteration %d", i)
		}
		prev = id
	}
}

func TestPrefixed(t *testing.T) {
	id := Prefixed("snap_", UUIDv7())()
	if !strings.HasPrefix(id, "snap_") {
		t.Fatalf("Prefixed: got %q", id)
	}
	if _, err := Parse(id); err != nil {
		t.Fatalf("Parse(%q): %v", id, err)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse("req_nope"); err == nil {
		t.Fatal("Parse: expected error for malformed id")
	}
}
