package runtime

import (
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/wippyai/nif-runtime/errors"
	"github.com/wippyai/nif-runtime/term"
)

// atomTable interns atom names. Indexes start at 1 and are never reused.
type atomTable struct {
	index   map[string]uint32
	names   []string
	charset encoding.Encoding
	max     int
	mu      sync.RWMutex
}

func newAtomTable(encodingName string, max int) *atomTable {
	t := &atomTable{
		index: make(map[string]uint32),
		max:   max,
	}
	if encodingName == EncodingLatin1 {
		t.charset = charmap.ISO8859_1
	}
	return t
}

func (t *atomTable) intern(name string) (term.Atom, error) {
	t.mu.RLock()
	idx, ok := t.index[name]
	t.mu.RUnlock()
	if ok {
		return term.InternedAtom(name, idx), nil
	}

	if err := t.check(name); err != nil {
		return term.Atom{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if idx, ok := t.index[name]; ok {
		return term.InternedAtom(name, idx), nil
	}
	if len(t.names) >= t.max {
		return term.Atom{}, errors.Limit("atom", t.max)
	}
	t.names = append(t.names, name)
	idx = uint32(len(t.names))
	t.index[name] = idx
	return term.InternedAtom(name, idx), nil
}

func (t *atomTable) check(name string) error {
	if !utf8.ValidString(name) {
		return errors.InvalidUTF8(errors.PhaseRuntime, []string{"atom"}, []byte(name))
	}
	if n := utf8.RuneCountInString(name); n > MaxAtomLength {
		return errors.New(errors.PhaseRuntime, errors.KindLimit).
			Value(n).
			Detail("atom name of %d characters exceeds %d", n, MaxAtomLength).
			Build()
	}
	if t.charset != nil {
		if _, err := t.charset.NewEncoder().String(name); err != nil {
			return errors.New(errors.PhaseRuntime, errors.KindInvalidData).
				Cause(err).
				Detail("atom name %q is not representable in latin1", name).
				Build()
		}
	}
	return nil
}

func (t *atomTable) lookup(name string) (term.Atom, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, ok := t.index[name]
	if !ok {
		return term.Atom{}, false
	}
	return term.InternedAtom(name, idx), true
}

func (t *atomTable) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.names)
}
