package runtime

import (
	"strings"
	"testing"

	"github.com/wippyai/nif-runtime/errors"
)

func TestAtomTable_Intern(t *testing.T) {
	tab := newAtomTable(EncodingUTF8, 10)

	a, err := tab.intern("ok")
	if err != nil {
		t.Fatalf("intern: %v", err)
	}
	b, err := tab.intern("ok")
	if err != nil {
		t.Fatalf("intern: %v", err)
	}
	if a.Index() == 0 || a.Index() != b.Index() {
		t.Errorf("indexes %d and %d, want equal and non-zero", a.Index(), b.Index())
	}

	c, _ := tab.intern("error")
	if c.Index() == a.Index() {
		t.Error("distinct names share an index")
	}
	if got, ok := tab.lookup("error"); !ok || got.Index() != c.Index() {
		t.Errorf("lookup(error) = %v, %v", got, ok)
	}
	if _, ok := tab.lookup("missing"); ok {
		t.Error("lookup found an atom never interned")
	}
	if tab.len() != 2 {
		t.Errorf("len = %d, want 2", tab.len())
	}
}

func TestAtomTable_Check(t *testing.T) {
	tests := []struct {
		name     string
		encoding string
		atom     string
		kind     errors.Kind
	}{
		{"utf8 accepts cjk", EncodingUTF8, "日本", ""},
		{"latin1 accepts accents", EncodingLatin1, "café", ""},
		{"latin1 rejects cjk", EncodingLatin1, "日本", errors.KindInvalidData},
		{"invalid utf8", EncodingUTF8, "\xff\xfe", errors.KindInvalidUTF8},
		{"longest name", EncodingUTF8, strings.Repeat("a", MaxAtomLength), ""},
		{"too long", EncodingUTF8, strings.Repeat("a", MaxAtomLength+1), errors.KindLimit},
		{"length counts characters", EncodingUTF8, strings.Repeat("é", MaxAtomLength), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tab := newAtomTable(tt.encoding, 100)
			_, err := tab.intern(tt.atom)
			if tt.kind == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if k, _ := errors.KindOf(err); k != tt.kind {
				t.Errorf("kind = %s, want %s", k, tt.kind)
			}
		})
	}
}

func TestAtomTable_Limit(t *testing.T) {
	tab := newAtomTable(EncodingUTF8, 2)
	for _, name := range []string{"a", "b", "a"} {
		if _, err := tab.intern(name); err != nil {
			t.Fatalf("intern(%q): %v", name, err)
		}
	}
	_, err := tab.intern("c")
	if k, _ := errors.KindOf(err); k != errors.KindLimit {
		t.Fatalf("err = %v, want limit", err)
	}
}
