package atom

import (
	"sync"

	"github.com/wippyai/nif-runtime/term"
)

// Interner creates or looks up an atom in the host's atom table. Every
// nifruntime.Env is an Interner.
type Interner interface {
	Atom(name string) (term.Atom, error)
}

// Atom is a named constant. Equality is by name, so Atoms may be compared
// with == and used as map keys regardless of when they were interned.
type Atom struct {
	name string
}

// New records name in the Default table and returns its Atom.
func New(name string) Atom {
	return Default.New(name)
}

// FromTerm returns the Atom for a host atom without recording it anywhere.
func FromTerm(a term.Atom) Atom {
	return Atom{name: a.Name()}
}

func (a Atom) Name() string   { return a.name }
func (a Atom) String() string { return a.name }
func (a Atom) IsZero() bool   { return a.name == "" }

// Matches reports whether t is a host atom with the same name.
func (a Atom) Matches(t term.Term) bool {
	ta, ok := t.(term.Atom)
	return ok && ta.Name() == a.name
}

// Resolve returns the host handle for a, interning it on demand.
func Resolve(in Interner, a Atom) (term.Atom, error) {
	return Default.Resolve(in, a)
}

// Hosted is implemented by interners that share one host atom table
// across many environments. Handles are cached per AtomHost key;
// interners without one share a single cache.
type Hosted interface {
	AtomHost() any
}

// Table maps atom names to interned handles. Names recorded before the
// first Finalize wait on a pending list; Finalize interns them all at once.
// A host finalized later interns the same names when it first finalizes.
type Table struct {
	hosts     map[any]*hostCache
	pending   []string
	names     []string
	mu        sync.Mutex
	finalized bool
}

type hostCache struct {
	handles   map[string]term.Atom
	finalized bool
}

// Default is the process-wide table used by New and Resolve.
var Default = NewTable()

func NewTable() *Table {
	return &Table{hosts: make(map[any]*hostCache)}
}

func hostKey(in Interner) any {
	if h, ok := in.(Hosted); ok {
		return h.AtomHost()
	}
	return nil
}

// cache returns the handle cache of in's host. Callers hold t.mu.
func (t *Table) cache(in Interner) *hostCache {
	key := hostKey(in)
	c, ok := t.hosts[key]
	if !ok {
		c = &hostCache{handles: make(map[string]term.Atom)}
		t.hosts[key] = c
	}
	return c
}

// intern resolves names into c and returns how many succeeded.
func (c *hostCache) intern(in Interner, names []string) (int, error) {
	for i, name := range names {
		if _, ok := c.handles[name]; ok {
			continue
		}
		h, err := in.Atom(name)
		if err != nil {
			return i, err
		}
		c.handles[name] = h
	}
	return len(names), nil
}

// New records name and returns its Atom. Before finalization the name is
// appended to the pending list; afterwards nothing is recorded and the
// handle is created on first Resolve.
func (t *Table) New(name string) Atom {
	t.mu.Lock()
	if !t.finalized {
		t.pending = append(t.pending, name)
	}
	t.mu.Unlock()
	return Atom{name: name}
}

// Finalize interns every recorded name through in. The first successful
// call clears the pending list; later calls for the same host do nothing.
func (t *Table) Finalize(in Interner) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := t.cache(in)
	if c.finalized {
		return nil
	}
	if t.finalized {
		if _, err := c.intern(in, t.names); err != nil {
			return err
		}
		c.finalized = true
		return nil
	}

	n, err := c.intern(in, t.pending)
	t.names = append(t.names, t.pending[:n]...)
	if err != nil {
		t.pending = t.pending[n:]
		return err
	}
	t.pending = nil
	t.finalized = true
	c.finalized = true
	return nil
}

func (t *Table) Finalized() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finalized
}

// Pending returns a copy of the names still waiting for Finalize.
func (t *Table) Pending() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.pending))
	copy(out, t.pending)
	return out
}

// Resolve returns the handle cached for in's host or interns a through in.
func (t *Table) Resolve(in Interner, a Atom) (term.Atom, error) {
	t.mu.Lock()
	c := t.cache(in)
	h, ok := c.handles[a.name]
	t.mu.Unlock()
	if ok {
		return h, nil
	}

	h, err := in.Atom(a.name)
	if err != nil {
		return term.Atom{}, err
	}
	t.mu.Lock()
	c.handles[a.name] = h
	t.mu.Unlock()
	return h, nil
}

// Forget drops the handles cached for host.
func (t *Table) Forget(host any) {
	t.mu.Lock()
	delete(t.hosts, host)
	t.mu.Unlock()
}
