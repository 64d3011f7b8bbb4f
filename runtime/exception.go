package runtime

import (
	"strconv"

	"github.com/wippyai/nif-runtime/term"
)

// Exception is a term raised by a native function.
type Exception struct {
	Reason term.Term
	Module string
	Func   string
	Arity  int
}

func (e *Exception) Error() string {
	return "exception in " + e.Module + ":" + e.Func + "/" + strconv.Itoa(e.Arity) + ": " + e.Reason.String()
}

// Struct returns the __struct__ name of an exception map, if any.
func (e *Exception) Struct() (string, bool) {
	m, ok := e.Reason.(term.Map)
	if !ok {
		return "", false
	}
	v, ok := m.Get(term.NewAtom("__struct__"))
	if !ok {
		return "", false
	}
	a, ok := v.(term.Atom)
	if !ok {
		return "", false
	}
	return a.Name(), true
}

// Message returns the text carried by the reason: the message field of an
// exception map, or a binary reason itself.
func (e *Exception) Message() (string, bool) {
	switch r := e.Reason.(type) {
	case term.Binary:
		return string(r.Bytes()), true
	case term.Map:
		if v, ok := r.Get(term.NewAtom("message")); ok {
			if b, ok := v.(term.Binary); ok {
				return string(b.Bytes()), true
			}
		}
	}
	return "", false
}
