package atom

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/nif-runtime/term"
)

type countingInterner struct {
	calls map[string]int
	fail  string
	next  uint32
}

func newCountingInterner() *countingInterner {
	return &countingInterner{calls: make(map[string]int)}
}

func (c *countingInterner) Atom(name string) (term.Atom, error) {
	c.calls[name]++
	if name == c.fail {
		return term.Atom{}, errors.New("atom table full")
	}
	c.next++
	return term.InternedAtom(name, c.next), nil
}

func TestTable_Finalize(t *testing.T) {
	tbl := NewTable()
	a := tbl.New("alpha")
	tbl.New("beta")
	tbl.New("alpha")

	if diff := cmp.Diff([]string{"alpha", "beta", "alpha"}, tbl.Pending()); diff != "" {
		t.Fatalf("pending mismatch (-want +got):\n%s", diff)
	}

	in := newCountingInterner()
	if err := tbl.Finalize(in); err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if !tbl.Finalized() {
		t.Fatal("table should be finalized")
	}
	if len(tbl.Pending()) != 0 {
		t.Errorf("pending list should be cleared, got %v", tbl.Pending())
	}
	if in.calls["alpha"] != 1 || in.calls["beta"] != 1 {
		t.Errorf("each name should be interned once, got %v", in.calls)
	}

	h, err := tbl.Resolve(in, a)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !h.Interned() || h.Name() != "alpha" {
		t.Errorf("Resolve = %v, want interned alpha", h)
	}
	if in.calls["alpha"] != 1 {
		t.Error("Resolve should reuse the handle from Finalize")
	}
}

type hostedInterner struct {
	*countingInterner
	host string
}

func (h hostedInterner) AtomHost() any { return h.host }

func TestTable_PerHost(t *testing.T) {
	tbl := NewTable()
	a := tbl.New("alpha")

	first := hostedInterner{newCountingInterner(), "first"}
	if err := tbl.Finalize(first); err != nil {
		t.Fatal(err)
	}
	late := tbl.New("late")

	second := hostedInterner{newCountingInterner(), "second"}
	second.next = 100
	if err := tbl.Finalize(second); err != nil {
		t.Fatal(err)
	}
	if second.calls["alpha"] != 1 {
		t.Errorf("second host should intern recorded names, got %v", second.calls)
	}

	h, err := tbl.Resolve(second, a)
	if err != nil {
		t.Fatal(err)
	}
	if h.Index() != 101 {
		t.Errorf("Resolve index = %d, want the second host's handle 101", h.Index())
	}
	if _, err := tbl.Resolve(second, late); err != nil {
		t.Fatal(err)
	}
	if first.calls["late"] != 0 || second.calls["late"] != 1 {
		t.Errorf("late atom interned first=%d second=%d", first.calls["late"], second.calls["late"])
	}

	tbl.Forget("second")
	if _, err := tbl.Resolve(second, a); err != nil {
		t.Fatal(err)
	}
	if second.calls["alpha"] != 2 {
		t.Errorf("forgotten host should intern again, got %d", second.calls["alpha"])
	}
}

func TestTable_FinalizeOnce(t *testing.T) {
	tbl := NewTable()
	tbl.New("x")

	in := newCountingInterner()
	if err := tbl.Finalize(in); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Finalize(in); err != nil {
		t.Fatal(err)
	}
	if in.calls["x"] != 1 {
		t.Errorf("second Finalize should be a no-op, interned %d times", in.calls["x"])
	}
}

func TestTable_AfterFinalize(t *testing.T) {
	tbl := NewTable()
	in := newCountingInterner()
	if err := tbl.Finalize(in); err != nil {
		t.Fatal(err)
	}

	late := tbl.New("late")
	if len(tbl.Pending()) != 0 {
		t.Error("atoms created after finalization bypass the pending list")
	}

	for i := 0; i < 3; i++ {
		h, err := tbl.Resolve(in, late)
		if err != nil {
			t.Fatal(err)
		}
		if h.Name() != "late" {
			t.Errorf("Resolve = %v", h)
		}
	}
	if in.calls["late"] != 1 {
		t.Errorf("late atom interned %d times, want 1", in.calls["late"])
	}
}

func TestTable_FinalizeError(t *testing.T) {
	tbl := NewTable()
	tbl.New("good")
	tbl.New("bad")

	in := newCountingInterner()
	in.fail = "bad"
	if err := tbl.Finalize(in); err == nil {
		t.Fatal("Finalize should report interner failure")
	}
	if tbl.Finalized() {
		t.Error("failed Finalize must leave the table open")
	}
	if diff := cmp.Diff([]string{"bad"}, tbl.Pending()); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}

	in.fail = ""
	if err := tbl.Finalize(in); err != nil {
		t.Fatalf("retry Finalize: %v", err)
	}
	if in.calls["good"] != 1 {
		t.Error("already interned names are not interned again")
	}
}

func TestAtom_Equality(t *testing.T) {
	tbl := NewTable()
	before := tbl.New("ok")
	if err := tbl.Finalize(newCountingInterner()); err != nil {
		t.Fatal(err)
	}
	after := tbl.New("ok")

	if before != after {
		t.Error("atoms with the same name must be equal")
	}
	if before != FromTerm(term.InternedAtom("ok", 99)) {
		t.Error("FromTerm must ignore the handle")
	}

	set := map[Atom]int{before: 1}
	set[after]++
	if len(set) != 1 || set[before] != 2 {
		t.Errorf("atoms must hash by name, got %v", set)
	}

	if !OK.Matches(term.NewAtom("ok")) {
		t.Error("Matches should compare names")
	}
	if OK.Matches(term.NewBinary([]byte("ok"))) {
		t.Error("Matches must reject non-atoms")
	}
}
