package realtime

import (
	"strings"
	"testing"
)

func TestSanitizeDisplayName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  alice  ", "alice"},
		{"bob\x00carol", "bobcarol"},
		{"line\nbreak", "linebreak"},
		{"\t\n ", ""},
		{"", ""},
		{strings.Repeat("x", 150), strings.Repeat("x", 100)},
	}
	for _, tc := range cases {
		if got := SanitizeDisplayName(tc.in); got != tc.want {
			t.Errorf("SanitizeDisplayName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRegistry_RegisterIdempotent(t *testing.T) {
	reg := NewRegistry()
	s := &fakeSender{}

	reg.Register("c1", "Alice", s)
	reg.Register("c1", "Alice", s)

	users := reg.List()
	if len(users) != 1 {
		t.Fatalf("List() returned %d entries, want 1", len(users))
	}
	if users[0].ID != "c1" || users[0].Name != "Alice" {
		t.Errorf("List()[0] = %+v, want {c1 Alice}", users[0])
	}
}

func TestRegistry_RegisterOverwritesName(t *testing.T) {
	reg := NewRegistry()
	reg.Register("c1", "Alice", &fakeSender{})
	reg.Register("c1", "Alicia", &fakeSender{})

	users := reg.List()
	if len(users) != 1 {
		t.Fatalf("List() returned %d entries, want 1", len(users))
	}
	if users[0].Name != "Alicia" {
		t.Errorf("name = %q, want %q", users[0].Name, "Alicia")
	}
}

func TestRegistry_EmptyNameCoercedToGuest(t *testing.T) {
	reg := NewRegistry()
	reg.Register("c1", "", &fakeSender{})

	users := reg.List()
	if len(users) != 1 {
		t.Fatalf("List() returned %d entries, want 1", len(users))
	}
	if users[0].Name != DefaultDisplayName {
		t.Errorf("name = %q, want %q", users[0].Name, DefaultDisplayName)
	}
}

func TestRegistry_UnregisterAbsentIsNoop(t *testing.T) {
	reg := NewRegistry()
	reg.Unregister("missing")
	reg.Register("c1", "Alice", &fakeSender{})
	reg.Unregister("c1")
	reg.Unregister("c1") // disconnect handlers may run twice

	if reg.Count() != 0 {
		t.Errorf("Count() = %d, want 0", reg.Count())
	}
	if reg.Has("c1") {
		t.Error("Has(c1) = true after unregister")
	}
}

func TestRegistry_ListIsSnapshot(t *testing.T) {
	reg := NewRegistry()
	reg.Register("c1", "Alice", &fakeSender{})

	users := reg.List()
	reg.Register("c2", "Bob", &fakeSender{})

	if len(users) != 1 {
		t.Errorf("earlier snapshot observed later mutation: len = %d, want 1", len(users))
	}
}

func TestRegistry_SenderLookup(t *testing.T) {
	reg := NewRegistry()
	s := &fakeSender{}
	reg.Register("c1", "Alice", s)

	got, ok := reg.Sender("c1")
	if !ok || got != Sender(s) {
		t.Errorf("Sender(c1) = %v, %v; want registered sender, true", got, ok)
	}
	if _, ok := reg.Sender("missing"); ok {
		t.Error("Sender(missing) reported ok")
	}
}
