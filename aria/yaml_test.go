package aria

import "testing"

func TestYAMLEscapeValue(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Submit", "Submit"},
		{"123", `"123"`},
		{"-1.5e3", `"-1.5e3"`},
		{"0x1F", `"0x1F"`},
		{"Infinity", `"Infinity"`},
		{"true", `"true"`},
		{"Null", `"Null"`},
		{"yes", `"yes"`},
		{"", `""`},
		{" padded ", `" padded "`},
		{"- item", `"- item"`},
		{"key: value", `"key: value"`},
		{"ends with:", `"ends with:"`},
		{"a #tag", `"a #tag"`},
		{"#start", `"#start"`},
		{"[x]", `"[x]"`},
		{"a {b}", `"a {b}"`},
		{"a\nb", `"a\nb"`},
		{"tab\there", "tab\there"},
		{"bell\x07", `"bell\x07"`},
		{`say "hi"`, `say "hi"`},
		{"12 apples", "12 apples"},
		{"C:/path", "C:/path"},
		{"https://example.com", "https://example.com"},
	}
	for _, tt := range tests {
		if got := yamlEscapeValue(tt.in); got != tt.want {
			t.Fatalf("yamlEscapeValue(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestYAMLEscapeKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`button "Submit" [ref=e1]`, `button "Submit" [ref=e1]`},
		{`button "a: b"`, `'button "a: b"'`},
		{`link "it's: here"`, `'link "it''s: here"'`},
	}
	for _, tt := range tests {
		if got := yamlEscapeKey(tt.in); got != tt.want {
			t.Fatalf("yamlEscapeKey(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRender_QuotedNames(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{"123", `- button "123"`},
		{"true", `- button "true"`},
		{"", `- button`},
		{" padded ", `- button " padded "`},
		{"Submit", `- button "Submit"`},
		{"line\nbreak", `- button "line\nbreak"`},
	}
	for _, tt := range tests {
		root := &Node{Role: "fragment", Children: []Child{NodeChild(&Node{Role: "button", Name: tt.name})}}
		if got := Render(root, RenderOptions{}); got != tt.want {
			t.Fatalf("Render(name %q): got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestRender_CursorOncePerChain(t *testing.T) {
	pointer := Box{Visible: true, Cursor: "pointer"}
	root := &Node{Role: "fragment", Children: []Child{NodeChild(&Node{
		Role: "link", Name: "Card", Ref: "e1", Box: pointer,
		Children: []Child{
			NodeChild(&Node{Role: "img", Name: "Logo", Ref: "e2", Box: pointer}),
			TextChild("more"),
		},
	})}}
	want := "- link \"Card\" [ref=e1] [cursor=pointer]:\n" +
		"  - img \"Logo\" [ref=e2]\n" +
		"  - text: more"
	if got := Render(root, RenderOptions{Cursor: true}); got != want {
		t.Fatalf("Render: got %q, want %q", got, want)
	}
}

func TestRender_LongNameOmitted(t *testing.T) {
	long := make([]byte, maxRenderedName+1)
	for i := range long {
		long[i] = 'a'
	}
	root := &Node{Role: "fragment", Children: []Child{NodeChild(&Node{Role: "paragraph", Name: string(long), Ref: "e1"})}}
	if got := Render(root, RenderOptions{}); got != "- paragraph [ref=e1]" {
		t.Fatalf("Render: got %q", got)
	}
}

func TestNormalize_PrunesWrapperGenerics(t *testing.T) {
	button := &Node{Role: "button", Name: "Go", Ref: "e2"}
	root := &Node{Role: "fragment", Children: []Child{
		TextChild("  "),
		NodeChild(&Node{Role: "generic", Ref: "e1", Children: []Child{TextChild(" "), NodeChild(button), TextChild("\n")}}),
		TextChild("a"), TextChild(" b "),
	}}
	normalize(root)
	if len(root.Children) != 2 || root.Children[0].Node != button || root.Children[1].Text != "a b" {
		t.Fatalf("normalize: got %+v", root.Children)
	}
}
