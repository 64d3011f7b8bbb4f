package term

import (
	"bytes"
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/big"
	"strings"
)

func rank(t Term) int {
	switch t.Kind() {
	case KindInteger, KindFloat:
		return 0
	case KindAtom:
		return 1
	case KindReference:
		return 2
	case KindPid:
		return 3
	case KindTuple:
		return 4
	case KindMap:
		return 5
	case KindList:
		return 6
	case KindBinary:
		return 7
	}
	return 8
}

// Compare orders terms using the host's standard term order. Integers and
// floats compare by value.
func Compare(a, b Term) int {
	return compare(a, b, false)
}

// Exact is Compare with integers and floats kept distinct: when the values
// are numerically equal the integer sorts first.
func Exact(a, b Term) int {
	return compare(a, b, true)
}

// Equal reports whether a and b compare equal in standard term order.
func Equal(a, b Term) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Compare(a, b) == 0
}

func compare(a, b Term, exact bool) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmpInt(ra, rb)
	}

	switch x := a.(type) {
	case Integer:
		switch y := b.(type) {
		case Integer:
			return compareIntegers(x, y)
		case Float:
			if c := compareIntFloat(x, float64(y)); c != 0 || !exact {
				return c
			}
			return -1
		}
	case Float:
		switch y := b.(type) {
		case Float:
			return cmpFloat(float64(x), float64(y))
		case Integer:
			if c := -compareIntFloat(y, float64(x)); c != 0 || !exact {
				return c
			}
			return 1
		}
	case Atom:
		return strings.Compare(x.name, b.(Atom).name)
	case Reference:
		return cmpUint(x.id, b.(Reference).id)
	case Pid:
		y := b.(Pid)
		if c := strings.Compare(x.Node, y.Node); c != 0 {
			return c
		}
		return cmpUint(x.ID, y.ID)
	case Tuple:
		y := b.(Tuple)
		if len(x) != len(y) {
			return cmpInt(len(x), len(y))
		}
		return compareElems(x, y, exact)
	case List:
		y := b.(List)
		n := min(len(x), len(y))
		if c := compareElems(x[:n], y[:n], exact); c != 0 {
			return c
		}
		return cmpInt(len(x), len(y))
	case Map:
		y := b.(Map)
		if x.Len() != y.Len() {
			return cmpInt(x.Len(), y.Len())
		}
		xp, yp := x.Pairs(), y.Pairs()
		for i := range xp {
			if c := Exact(xp[i].Key, yp[i].Key); c != 0 {
				return c
			}
		}
		for i := range xp {
			if c := compare(xp[i].Value, yp[i].Value, exact); c != 0 {
				return c
			}
		}
		return 0
	case Binary:
		return bytes.Compare(x.data, b.(Binary).data)
	}
	return 0
}

func compareElems(x, y []Term, exact bool) int {
	for i := range x {
		if c := compare(x[i], y[i], exact); c != 0 {
			return c
		}
	}
	return 0
}

func compareIntegers(x, y Integer) int {
	if x.big == nil && y.big == nil {
		switch {
		case x.small < y.small:
			return -1
		case x.small > y.small:
			return 1
		}
		return 0
	}
	return x.Big().Cmp(y.Big())
}

func compareIntFloat(x Integer, f float64) int {
	if math.IsNaN(f) {
		return -1
	}
	if math.IsInf(f, 1) {
		return -1
	}
	if math.IsInf(f, -1) {
		return 1
	}
	xf := new(big.Float).SetInt(x.Big())
	return xf.Cmp(big.NewFloat(f))
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Hash returns a hash consistent with Exact: terms that are exactly equal
// hash to the same value.
func Hash(t Term) uint64 {
	h := fnv.New64a()
	writeHash(h, t)
	return h.Sum64()
}

type hashWriter interface {
	Write([]byte) (int, error)
}

func writeHash(h hashWriter, t Term) {
	var buf [9]byte
	buf[0] = byte(t.Kind())
	switch x := t.(type) {
	case Integer:
		h.Write(buf[:1])
		h.Write(x.Big().Bytes())
		if x.Sign() < 0 {
			h.Write([]byte{'-'})
		}
	case Float:
		binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(float64(x)))
		h.Write(buf[:])
	case Atom:
		h.Write(buf[:1])
		h.Write([]byte(x.name))
	case Reference:
		binary.LittleEndian.PutUint64(buf[1:], x.id)
		h.Write(buf[:])
	case Pid:
		binary.LittleEndian.PutUint64(buf[1:], x.ID)
		h.Write(buf[:])
		h.Write([]byte(x.Node))
	case Tuple:
		binary.LittleEndian.PutUint64(buf[1:], uint64(len(x)))
		h.Write(buf[:])
		for _, e := range x {
			writeHash(h, e)
		}
	case List:
		binary.LittleEndian.PutUint64(buf[1:], uint64(len(x)))
		h.Write(buf[:])
		for _, e := range x {
			writeHash(h, e)
		}
	case Map:
		binary.LittleEndian.PutUint64(buf[1:], uint64(x.Len()))
		h.Write(buf[:])
		for _, p := range x.Pairs() {
			writeHash(h, p.Key)
			writeHash(h, p.Value)
		}
	case Binary:
		binary.LittleEndian.PutUint64(buf[1:], uint64(len(x.data)))
		h.Write(buf[:])
		h.Write(x.data)
	}
}
