package pathparser

import "testing"

func TestParseRoot(t *testing.T) {
	segs, err := Parse("$")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 0 {
		t.Fatalf("expected empty segment list, got %v", segs)
	}
}

func TestParseSimple(t *testing.T) {
	segs, err := Parse("$.user.status")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Segment{{Name: "user"}, {Name: "status"}}
	if len(segs) != len(want) || segs[0] != want[0] || segs[1] != want[1] {
		t.Fatalf("got %v, want %v", segs, want)
	}
}

func TestParseArrayMarker(t *testing.T) {
	segs, err := Parse("$.items[*].productId")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Segment{{Name: "items", IsArray: true}, {Name: "productId"}}
	if len(segs) != len(want) || segs[0] != want[0] || segs[1] != want[1] {
		t.Fatalf("got %v, want %v", segs, want)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"",
		"user.status",
		"$.",
		"$..deep",
		"$.user..status",
		"$.user[?(@.x==1)]",
		"$.['name']",
		"$.user[**]",
	}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Errorf("Parse(%q): expected error, got nil", c)
		}
	}
}
