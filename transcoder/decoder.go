package transcoder

import (
	"reflect"
	"strconv"

	"go.uber.org/multierr"

	nifruntime "github.com/wippyai/nif-runtime"
	"github.com/wippyai/nif-runtime/atom"
	"github.com/wippyai/nif-runtime/errors"
	"github.com/wippyai/nif-runtime/term"
)

// decode writes t into v, which must be addressable and hold the zero value
// of ct.GoType.
func decode(env nifruntime.Env, ct *CompiledType, t term.Term, v reflect.Value, path []string) error {
	if ct.decodeErr != nil {
		return ct.decodeErr
	}

	switch ct.Kind {
	case KindTerm:
		if ct.GoType != termType && reflect.TypeOf(t) != ct.GoType {
			return errors.Expected(path, ct.GoType.String(), article(ct.GoType))
		}
		v.Set(reflect.ValueOf(t))

	case KindAny:
		v.Set(reflect.ValueOf(t))

	case KindAtom:
		a, ok := t.(term.Atom)
		if !ok {
			return errors.Expected(path, ct.GoType.String(), "an atom")
		}
		v.Set(reflect.ValueOf(atom.FromTerm(a)))

	case KindPid:
		p, ok := t.(term.Pid)
		if !ok {
			return errors.Expected(path, ct.GoType.String(), "a local pid")
		}
		if p.Node != "" && p.Node != env.SelfNode() {
			return errors.Expected(path, ct.GoType.String(),
				"a local pid, but got a remote one. NIFs can only send messages to local PIDs and remote PIDs cannot be decoded")
		}
		v.Set(reflect.ValueOf(p))

	case KindBool:
		a, ok := t.(term.Atom)
		switch {
		case ok && a.Is("true"):
			v.SetBool(true)
		case ok && a.Is("false"):
			v.SetBool(false)
		default:
			return errors.Expected(path, ct.GoType.String(), "a boolean")
		}

	case KindInt:
		i, ok := t.(term.Integer)
		if !ok {
			return errors.Expected(path, ct.GoType.String(), "an integer")
		}
		n, ok := i.Int64()
		if !ok || v.OverflowInt(n) {
			return errors.Overflow(path, i, ct.GoType.String())
		}
		v.SetInt(n)

	case KindUint:
		i, ok := t.(term.Integer)
		if !ok || i.Sign() < 0 {
			return errors.Expected(path, ct.GoType.String(), "an unsigned integer")
		}
		n, ok := i.Uint64()
		if !ok || v.OverflowUint(n) {
			return errors.Overflow(path, i, ct.GoType.String())
		}
		v.SetUint(n)

	case KindFloat:
		f, ok := t.(term.Float)
		if !ok {
			return errors.Expected(path, ct.GoType.String(), "a float")
		}
		v.SetFloat(float64(f))

	case KindString:
		b, ok := t.(term.Binary)
		if !ok {
			return errors.Expected(path, ct.GoType.String(), "a binary")
		}
		v.SetString(string(b.Bytes()))

	case KindBytes:
		b, ok := t.(term.Binary)
		if !ok {
			return errors.Expected(path, ct.GoType.String(), "a binary")
		}
		v.SetBytes(b.Bytes())

	case KindPointer:
		if atom.Nil.Matches(t) {
			v.Set(reflect.Zero(ct.GoType))
			return nil
		}
		elem := reflect.New(ct.Elem.GoType)
		if err := decode(env, ct.Elem, t, elem.Elem(), path); err != nil {
			return err
		}
		v.Set(elem)

	case KindOptional:
		o := v.Addr().Interface().(optionalSetter)
		if atom.Nil.Matches(t) {
			o.optionalSet(false)
			return nil
		}
		if err := decode(env, ct.Elem, t, o.optionalSlot(), path); err != nil {
			return err
		}
		o.optionalSet(true)

	case KindVariant:
		return decodeVariant(env, ct, t, v, path)

	case KindTuple:
		tup, ok := t.(term.Tuple)
		if !ok {
			return errors.Expected(path, ct.GoType.String(), "a tuple")
		}
		if len(tup) != len(ct.Fields) {
			return errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
				Path(path...).
				GoType(ct.GoType.String()).
				Value(len(tup)).
				Detail("decode failed, expected tuple to have %d elements, but had %d", len(ct.Fields), len(tup)).
				Build()
		}
		for i, f := range ct.Fields {
			if err := decode(env, f.Type, tup[i], v.Field(f.Index), appendPath(path, "["+strconv.Itoa(i)+"]")); err != nil {
				return err
			}
		}

	case KindList:
		l, ok := t.(term.List)
		if !ok {
			return errors.Expected(path, ct.GoType.String(), "a list")
		}
		out := reflect.MakeSlice(ct.GoType, len(l), len(l))
		v.Set(out)
		for i, item := range l {
			if err := decode(env, ct.Elem, item, out.Index(i), appendPath(path, "["+strconv.Itoa(i)+"]")); err != nil {
				return err
			}
		}

	case KindMap:
		return decodeMap(env, ct, t, v, path)

	case KindStruct:
		m, ok := t.(term.Map)
		if !ok {
			return errors.Expected(path, ct.GoType.String(), "a struct")
		}
		tag, ok := m.Get(term.NewAtom(atom.Struct.Name()))
		if !ok {
			return errors.Expected(path, ct.GoType.String(), "a struct")
		}
		if !ct.Tag.Matches(tag) {
			return errors.Expected(path, ct.GoType.String(), "a "+ct.Tag.Name()+" struct")
		}
		return decodeFields(env, ct, m, v, path)

	case KindRecord:
		m, ok := t.(term.Map)
		if !ok {
			return errors.Expected(path, ct.GoType.String(), "a map")
		}
		return decodeFields(env, ct, m, v, path)

	case KindCustom:
		return v.Addr().Interface().(TermDecoder).DecodeTerm(env, t)

	default:
		return errors.Unsupported(errors.PhaseDecode, "cannot decode into "+ct.GoType.String())
	}
	return nil
}

func decodeFields(env nifruntime.Env, ct *CompiledType, m term.Map, v reflect.Value, path []string) error {
	for _, f := range ct.Fields {
		val, ok := m.Get(term.NewAtom(f.Name))
		if !ok {
			return errors.FieldMissing(path, f.Name)
		}
		if err := decode(env, f.Type, val, v.Field(f.Index), appendPath(path, f.Name)); err != nil {
			return err
		}
	}
	return nil
}

// decodeMap walks the term's pairs in key order. Distinct term keys that
// decode to the same Go key overwrite each other, so the last one wins.
func decodeMap(env nifruntime.Env, ct *CompiledType, t term.Term, v reflect.Value, path []string) error {
	m, ok := t.(term.Map)
	if !ok {
		return errors.Expected(path, ct.GoType.String(), "a map")
	}
	out := reflect.MakeMapWithSize(ct.GoType, m.Len())
	v.Set(out)
	for _, p := range m.Pairs() {
		k := reflect.New(ct.Key.GoType).Elem()
		if err := decode(env, ct.Key, p.Key, k, appendPath(path, "[key]")); err != nil {
			return err
		}
		val := reflect.New(ct.Elem.GoType).Elem()
		if err := decode(env, ct.Elem, p.Value, val, appendPath(path, p.Key.String())); err != nil {
			releaseValue(ct.Key, k)
			return err
		}
		if old := out.MapIndex(k); old.IsValid() && ct.Elem.HasResource {
			prev := reflect.New(ct.Elem.GoType).Elem()
			prev.Set(old)
			releaseValue(ct.Elem, prev)
		}
		out.SetMapIndex(k, val)
	}
	return nil
}

// decodeVariant keeps the first alternative that decodes. Anything other
// than a decode failure stops the search.
func decodeVariant(env nifruntime.Env, ct *CompiledType, t term.Term, v reflect.Value, path []string) error {
	var errs error
	for i, alt := range ct.Alts {
		if err := alt.decodeErr; err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		tmp := reflect.New(alt.GoType).Elem()
		err := decode(env, alt, t, tmp, path)
		if err == nil {
			v.Addr().Interface().(variantSetter).variantSet(i+1, tmp.Interface())
			return nil
		}
		releaseValue(alt, tmp)
		if !errors.IsDecode(err) {
			return err
		}
		errs = multierr.Append(errs, err)
	}
	return errors.New(errors.PhaseDecode, errors.KindInvalidVariant).
		Path(path...).
		GoType(ct.GoType.String()).
		Cause(errs).
		Detail("decode failed, none of the variant types could be decoded").
		Build()
}

// article names what a concrete term type expects, e.g. "a tuple".
func article(goType reflect.Type) string {
	switch goType {
	case reflect.TypeFor[term.Integer]():
		return "an integer"
	case reflect.TypeFor[term.Float]():
		return "a float"
	case reflect.TypeFor[term.Binary]():
		return "a binary"
	case reflect.TypeFor[term.Atom]():
		return "an atom"
	case reflect.TypeFor[term.Tuple]():
		return "a tuple"
	case reflect.TypeFor[term.List]():
		return "a list"
	case reflect.TypeFor[term.Map]():
		return "a map"
	case reflect.TypeFor[term.Reference]():
		return "a reference"
	}
	return goType.String()
}

func appendPath(path []string, seg string) []string {
	return append(path[:len(path):len(path)], seg)
}
