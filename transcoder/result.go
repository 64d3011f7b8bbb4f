package transcoder

import (
	nifruntime "github.com/wippyai/nif-runtime"
	"github.com/wippyai/nif-runtime/atom"
	"github.com/wippyai/nif-runtime/term"
)

// Ok is an encode-only success result. With no items it encodes as the
// bare atom ok, otherwise as {ok, items...}.
type Ok struct {
	items []any
}

// Error is an encode-only failure result, encoded like Ok with the error tag.
type Error struct {
	items []any
}

func NewOk(items ...any) Ok       { return Ok{items: items} }
func NewError(items ...any) Error { return Error{items: items} }

func (r Ok) Items() []any    { return r.items }
func (r Error) Items() []any { return r.items }

func (r Ok) EncodeTerm(env nifruntime.Env) (term.Term, error) {
	return encodeTagged(env, atom.OK, r.items)
}

func (r Error) EncodeTerm(env nifruntime.Env) (term.Term, error) {
	return encodeTagged(env, atom.Error, r.items)
}

func encodeTagged(env nifruntime.Env, tag atom.Atom, items []any) (term.Term, error) {
	head, err := resolveAtom(env, tag)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return head, nil
	}
	out := make(term.Tuple, 1, len(items)+1)
	out[0] = head
	for _, it := range items {
		t, err := EncodeValue(env, it)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// NewBinary copies data into a fresh host binary. Use it to return bytes
// whose buffer does not outlive the call.
func NewBinary(env nifruntime.Env, data []byte) (term.Term, error) {
	return makeBinary(env, data)
}
