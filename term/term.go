package term

import (
	"math"
	"math/big"
	"sort"
)

// Kind identifies the runtime type of a term.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInteger
	KindFloat
	KindAtom
	KindReference
	KindPid
	KindTuple
	KindMap
	KindList
	KindBinary
)

var kindNames = [...]string{
	KindInvalid:   "invalid",
	KindInteger:   "integer",
	KindFloat:     "float",
	KindAtom:      "atom",
	KindReference: "reference",
	KindPid:       "pid",
	KindTuple:     "tuple",
	KindMap:       "map",
	KindList:      "list",
	KindBinary:    "binary",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Term is a host runtime value.
type Term interface {
	Kind() Kind
	String() string
	isTerm()
}

// Atom is a named constant. Hosts intern atoms and assign them an index;
// atoms built with NewAtom carry index 0 until a host interns them.
type Atom struct {
	name  string
	index uint32
}

// NewAtom returns an atom term that has not been interned by any host.
func NewAtom(name string) Atom {
	return Atom{name: name}
}

// InternedAtom is used by hosts to hand out atoms from their atom table.
func InternedAtom(name string, index uint32) Atom {
	return Atom{name: name, index: index}
}

func (Atom) Kind() Kind         { return KindAtom }
func (Atom) isTerm()            {}
func (a Atom) Name() string     { return a.name }
func (a Atom) Index() uint32    { return a.index }
func (a Atom) Interned() bool   { return a.index != 0 }
func (a Atom) String() string   { return formatAtom(a.name) }
func (a Atom) Is(n string) bool { return a.name == n }

// Integer is an arbitrary precision integer. Values that fit in int64 are
// stored inline.
type Integer struct {
	big   *big.Int
	small int64
}

// Int returns an integer term.
func Int(v int64) Integer {
	return Integer{small: v}
}

// Uint returns an integer term for an unsigned value.
func Uint(v uint64) Integer {
	if v <= math.MaxInt64 {
		return Integer{small: int64(v)}
	}
	return Integer{big: new(big.Int).SetUint64(v)}
}

// BigInt returns an integer term, normalizing to the inline form when possible.
func BigInt(v *big.Int) Integer {
	if v.IsInt64() {
		return Integer{small: v.Int64()}
	}
	return Integer{big: new(big.Int).Set(v)}
}

func (Integer) Kind() Kind { return KindInteger }
func (Integer) isTerm()    {}

// Int64 returns the value if it fits in an int64.
func (i Integer) Int64() (int64, bool) {
	if i.big == nil {
		return i.small, true
	}
	return 0, false
}

// Uint64 returns the value if it is non-negative and fits in a uint64.
func (i Integer) Uint64() (uint64, bool) {
	if i.big == nil {
		if i.small < 0 {
			return 0, false
		}
		return uint64(i.small), true
	}
	if i.big.IsUint64() {
		return i.big.Uint64(), true
	}
	return 0, false
}

// Big returns a copy of the value as a big.Int.
func (i Integer) Big() *big.Int {
	if i.big == nil {
		return big.NewInt(i.small)
	}
	return new(big.Int).Set(i.big)
}

func (i Integer) Sign() int {
	if i.big == nil {
		switch {
		case i.small < 0:
			return -1
		case i.small > 0:
			return 1
		}
		return 0
	}
	return i.big.Sign()
}

func (i Integer) String() string {
	if i.big == nil {
		return formatInt(i.small)
	}
	return i.big.String()
}

// Float is a double precision float term.
type Float float64

func (Float) Kind() Kind       { return KindFloat }
func (Float) isTerm()          {}
func (f Float) String() string { return formatFloat(float64(f)) }

// Binary is a byte sequence. The data is shared, not copied; hosts hand out
// binaries whose backing array must not be mutated.
type Binary struct {
	owner any
	data  []byte
}

// NewBinary wraps data without copying it.
func NewBinary(data []byte) Binary {
	return Binary{data: data}
}

// OwnedBinary wraps data whose lifetime is tied to owner. The owner is kept
// reachable for as long as the binary term is.
func OwnedBinary(data []byte, owner any) Binary {
	return Binary{data: data, owner: owner}
}

func (Binary) Kind() Kind       { return KindBinary }
func (Binary) isTerm()          {}
func (b Binary) Bytes() []byte  { return b.data }
func (b Binary) Len() int       { return len(b.data) }
func (b Binary) Owner() any     { return b.owner }
func (b Binary) String() string { return formatBinary(b.data) }

// Tuple is a fixed size sequence of terms.
type Tuple []Term

func (Tuple) Kind() Kind       { return KindTuple }
func (Tuple) isTerm()          {}
func (t Tuple) String() string { return formatSeq('{', '}', t) }

// List is a proper list. The empty list is the host's nil.
type List []Term

func (List) Kind() Kind       { return KindList }
func (List) isTerm()          {}
func (l List) String() string { return formatSeq('[', ']', l) }

// Reference is an opaque reference. Resource objects travel as references
// whose Object is the host's resource record.
type Reference struct {
	obj any
	id  uint64
}

// NewReference returns a reference term pointing at obj.
func NewReference(id uint64, obj any) Reference {
	return Reference{id: id, obj: obj}
}

func (Reference) Kind() Kind       { return KindReference }
func (Reference) isTerm()          {}
func (r Reference) ID() uint64     { return r.id }
func (r Reference) Object() any    { return r.obj }
func (r Reference) String() string { return "#Reference<" + formatUint(r.id) + ">" }

// Pid identifies a process. An empty Node means the local node.
type Pid struct {
	Node string
	ID   uint64
}

func (Pid) Kind() Kind { return KindPid }
func (Pid) isTerm()    {}
func (p Pid) String() string {
	node := p.Node
	if node == "" {
		node = "local"
	}
	return "#PID<" + node + "." + formatUint(p.ID) + ">"
}

// Pair is a single map association.
type Pair struct {
	Key   Term
	Value Term
}

// Map is an association of unique keys (by Exact) to values. Iteration via
// Pairs follows key order; Insertion keeps the order keys were supplied in.
type Map struct {
	sorted    []Pair
	insertion []Pair
}

// NewMap builds a map from parallel key and value slices. It reports false
// when the lengths differ or a key is repeated.
func NewMap(keys, values []Term) (Map, bool) {
	if len(keys) != len(values) {
		return Map{}, false
	}
	pairs := make([]Pair, len(keys))
	for i := range keys {
		pairs[i] = Pair{Key: keys[i], Value: values[i]}
	}
	sorted := make([]Pair, len(pairs))
	copy(sorted, pairs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return Exact(sorted[i].Key, sorted[j].Key) < 0
	})
	for i := 1; i < len(sorted); i++ {
		if Exact(sorted[i-1].Key, sorted[i].Key) == 0 {
			return Map{}, false
		}
	}
	return Map{sorted: sorted, insertion: pairs}, true
}

// MapOf builds a map from pairs. A repeated key replaces the earlier value,
// the way a map literal behaves.
func MapOf(pairs ...Pair) Map {
	var m Map
	for _, p := range pairs {
		m = m.Put(p.Key, p.Value)
	}
	return m
}

func (Map) Kind() Kind { return KindMap }
func (Map) isTerm()    {}

func (m Map) Len() int { return len(m.sorted) }

// Pairs returns the associations in key order. The slice must not be modified.
func (m Map) Pairs() []Pair { return m.sorted }

// Insertion returns the associations in construction order.
func (m Map) Insertion() []Pair { return m.insertion }

// Keys returns the keys in construction order.
func (m Map) Keys() []Term {
	keys := make([]Term, len(m.insertion))
	for i, p := range m.insertion {
		keys[i] = p.Key
	}
	return keys
}

// Get looks up key using exact equality.
func (m Map) Get(key Term) (Term, bool) {
	i := sort.Search(len(m.sorted), func(i int) bool {
		return Exact(m.sorted[i].Key, key) >= 0
	})
	if i < len(m.sorted) && Exact(m.sorted[i].Key, key) == 0 {
		return m.sorted[i].Value, true
	}
	return nil, false
}

// Put returns a copy of m with key bound to value.
func (m Map) Put(key, value Term) Map {
	i := sort.Search(len(m.sorted), func(i int) bool {
		return Exact(m.sorted[i].Key, key) >= 0
	})
	if i < len(m.sorted) && Exact(m.sorted[i].Key, key) == 0 {
		sorted := make([]Pair, len(m.sorted))
		copy(sorted, m.sorted)
		sorted[i].Value = value
		insertion := make([]Pair, len(m.insertion))
		copy(insertion, m.insertion)
		for j := range insertion {
			if Exact(insertion[j].Key, key) == 0 {
				insertion[j].Value = value
				break
			}
		}
		return Map{sorted: sorted, insertion: insertion}
	}

	sorted := make([]Pair, 0, len(m.sorted)+1)
	sorted = append(sorted, m.sorted[:i]...)
	sorted = append(sorted, Pair{Key: key, Value: value})
	sorted = append(sorted, m.sorted[i:]...)
	insertion := make([]Pair, 0, len(m.insertion)+1)
	insertion = append(insertion, m.insertion...)
	insertion = append(insertion, Pair{Key: key, Value: value})
	return Map{sorted: sorted, insertion: insertion}
}

func (m Map) String() string { return formatMap(m.insertion) }
