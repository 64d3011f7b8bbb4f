package transcoder

import (
	"reflect"
	"sort"
	"strconv"

	nifruntime "github.com/wippyai/nif-runtime"
	"github.com/wippyai/nif-runtime/atom"
	"github.com/wippyai/nif-runtime/errors"
	"github.com/wippyai/nif-runtime/term"
)

func encode(env nifruntime.Env, c *Compiler, ct *CompiledType, v reflect.Value, path []string) (term.Term, error) {
	if ct.encodeErr != nil {
		return nil, ct.encodeErr
	}

	switch ct.Kind {
	case KindTerm:
		if v.Kind() == reflect.Interface && v.IsNil() {
			return nil, errors.NilPointer(errors.PhaseEncode, path, ct.GoType.String())
		}
		return v.Interface().(term.Term), nil

	case KindAny:
		if v.IsNil() {
			return resolveAtom(env, atom.Nil)
		}
		return encodeDynamic(env, c, v.Elem(), path)

	case KindAtom:
		return resolveAtom(env, v.Interface().(atom.Atom))

	case KindPid:
		return v.Interface().(term.Pid), nil

	case KindBool:
		if v.Bool() {
			return resolveAtom(env, atom.True)
		}
		return resolveAtom(env, atom.False)

	case KindInt:
		return term.Int(v.Int()), nil

	case KindUint:
		return term.Uint(v.Uint()), nil

	case KindFloat:
		return term.Float(v.Float()), nil

	case KindString:
		return makeBinary(env, []byte(v.String()))

	case KindBytes:
		return makeBinary(env, v.Bytes())

	case KindPointer:
		if v.IsNil() {
			return resolveAtom(env, atom.Nil)
		}
		return encode(env, c, ct.Elem, v.Elem(), path)

	case KindOptional:
		val, ok := v.Interface().(optional).optionalGet()
		if !ok {
			return resolveAtom(env, atom.Nil)
		}
		return encode(env, c, ct.Elem, val, path)

	case KindVariant:
		idx, val := v.Interface().(variantValue).variantGet()
		if idx == 0 {
			return nil, errors.New(errors.PhaseEncode, errors.KindInvalidVariant).
				Path(path...).
				GoType(ct.GoType.String()).
				Detail("encode failed, variant holds no value").
				Build()
		}
		alt := ct.Alts[idx-1]
		slot := reflect.New(alt.GoType).Elem()
		if val != nil {
			slot.Set(reflect.ValueOf(val))
		}
		return encode(env, c, alt, slot, path)

	case KindTuple:
		out := make(term.Tuple, len(ct.Fields))
		for i, f := range ct.Fields {
			t, err := encode(env, c, f.Type, v.Field(f.Index), appendPath(path, "["+strconv.Itoa(i)+"]"))
			if err != nil {
				return nil, err
			}
			out[i] = t
		}
		return out, nil

	case KindList:
		out := make(term.List, v.Len())
		for i := range out {
			t, err := encode(env, c, ct.Elem, v.Index(i), appendPath(path, "["+strconv.Itoa(i)+"]"))
			if err != nil {
				return nil, err
			}
			out[i] = t
		}
		return out, nil

	case KindMap:
		return encodeMap(env, c, ct, v, path)

	case KindStruct, KindRecord:
		return encodeStruct(env, c, ct, v, path)

	case KindCustom:
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return nil, errors.NilPointer(errors.PhaseEncode, path, ct.GoType.String())
		}
		return v.Interface().(TermEncoder).EncodeTerm(env)
	}

	return nil, errors.Unsupported(errors.PhaseEncode, "cannot encode "+ct.GoType.String())
}

func encodeDynamic(env nifruntime.Env, c *Compiler, v reflect.Value, path []string) (term.Term, error) {
	ct, err := c.Compile(v.Type())
	if err != nil {
		return nil, err
	}
	return encode(env, c, ct, v, path)
}

// encodeMap builds the map with a single host call. Keys are handed over in
// term order so the result does not depend on Go map iteration.
func encodeMap(env nifruntime.Env, c *Compiler, ct *CompiledType, v reflect.Value, path []string) (term.Term, error) {
	pairs := make([]term.Pair, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k, err := encode(env, c, ct.Key, iter.Key(), appendPath(path, "[key]"))
		if err != nil {
			return nil, err
		}
		val, err := encode(env, c, ct.Elem, iter.Value(), appendPath(path, k.String()))
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, term.Pair{Key: k, Value: val})
	}
	sort.Slice(pairs, func(i, j int) bool {
		return term.Exact(pairs[i].Key, pairs[j].Key) < 0
	})

	keys := make([]term.Term, len(pairs))
	values := make([]term.Term, len(pairs))
	for i, p := range pairs {
		keys[i], values[i] = p.Key, p.Value
	}
	return makeMap(env, path, keys, values)
}

// encodeStruct emits __struct__ first, then __exception__ for exceptions,
// then the fields in declaration order.
func encodeStruct(env nifruntime.Env, c *Compiler, ct *CompiledType, v reflect.Value, path []string) (term.Term, error) {
	n := len(ct.Fields)
	if ct.Kind == KindStruct {
		n++
		if ct.Exception {
			n++
		}
	}
	keys := make([]term.Term, 0, n)
	values := make([]term.Term, 0, n)

	if ct.Kind == KindStruct {
		k, err := resolveAtom(env, atom.Struct)
		if err != nil {
			return nil, err
		}
		tag, err := resolveAtom(env, ct.Tag)
		if err != nil {
			return nil, err
		}
		keys, values = append(keys, k), append(values, tag)

		if ct.Exception {
			k, err := resolveAtom(env, atom.Exception)
			if err != nil {
				return nil, err
			}
			t, err := resolveAtom(env, atom.True)
			if err != nil {
				return nil, err
			}
			keys, values = append(keys, k), append(values, t)
		}
	}

	for _, f := range ct.Fields {
		k, err := resolveAtom(env, f.Atom)
		if err != nil {
			return nil, err
		}
		val, err := encode(env, c, f.Type, v.Field(f.Index), appendPath(path, f.Name))
		if err != nil {
			return nil, err
		}
		keys, values = append(keys, k), append(values, val)
	}
	return makeMap(env, path, keys, values)
}

func resolveAtom(env nifruntime.Env, a atom.Atom) (term.Term, error) {
	t, err := atom.Resolve(env, a)
	if err != nil {
		return nil, errors.AllocationFailed(errors.PhaseEncode, "atom "+a.Name(), err)
	}
	return t, nil
}

func makeBinary(env nifruntime.Env, data []byte) (term.Term, error) {
	t, err := env.MakeBinary(data)
	if err != nil {
		return nil, errors.New(errors.PhaseEncode, errors.KindAllocation).
			Value(len(data)).
			Cause(err).
			Detail("encode failed, failed to allocate new binary").
			Build()
	}
	return t, nil
}

func makeMap(env nifruntime.Env, path []string, keys, values []term.Term) (term.Term, error) {
	t, err := env.MakeMap(keys, values)
	if err != nil {
		return nil, errors.New(errors.PhaseEncode, errors.KindAllocation).
			Path(path...).
			Cause(err).
			Detail("encode failed, failed to make a map").
			Build()
	}
	return t, nil
}
