package transcoder

import (
	"reflect"

	"github.com/wippyai/nif-runtime/errors"
)

// Variants hold exactly one value out of a fixed list of alternative types.
// Decoding tries the alternatives in declaration order and keeps the first
// that decodes; only decode failures move on to the next alternative.
//
//	v, err := transcoder.Decode[transcoder.Variant2[int64, string]](env, t)
//	switch x := v.Value().(type) {
//	case int64:
//	case string:
//	}

type variantValue interface {
	variantAlts() []reflect.Type
	variantGet() (int, any)
}

type variantSetter interface {
	variantSet(index int, value any)
}

type variant struct {
	value any
	index int
}

// Index is the 1-based position of the held alternative, 0 when empty.
func (v variant) Index() int { return v.index }

// Value is the held alternative, nil when empty.
func (v variant) Value() any { return v.value }

func (v variant) variantGet() (int, any) { return v.index, v.value }

func (v *variant) variantSet(index int, value any) {
	v.index = index
	v.value = value
}

func (v *variant) assign(alts []reflect.Type, x any) error {
	xt := reflect.TypeOf(x)
	for i, alt := range alts {
		if xt == alt || (xt == nil && alt.Kind() == reflect.Interface) {
			v.index, v.value = i+1, x
			return nil
		}
	}
	for i, alt := range alts {
		if xt != nil && alt.Kind() == reflect.Interface && xt.Implements(alt) {
			v.index, v.value = i+1, x
			return nil
		}
	}
	return errors.New(errors.PhaseEncode, errors.KindInvalidVariant).
		GoType(typeName(xt)).
		Detail("value is none of the variant alternatives").
		Build()
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	return t.String()
}

// VariantAs returns the held value as X.
func VariantAs[X any](v interface{ Value() any }) (X, bool) {
	x, ok := v.Value().(X)
	return x, ok
}

type Variant2[A, B any] struct{ variant }

type Variant3[A, B, C any] struct{ variant }

type Variant4[A, B, C, D any] struct{ variant }

type Variant5[A, B, C, D, E any] struct{ variant }

func (Variant2[A, B]) variantAlts() []reflect.Type {
	return []reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B]()}
}

func (Variant3[A, B, C]) variantAlts() []reflect.Type {
	return []reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B](), reflect.TypeFor[C]()}
}

func (Variant4[A, B, C, D]) variantAlts() []reflect.Type {
	return []reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B](), reflect.TypeFor[C](), reflect.TypeFor[D]()}
}

func (Variant5[A, B, C, D, E]) variantAlts() []reflect.Type {
	return []reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B](), reflect.TypeFor[C](), reflect.TypeFor[D](), reflect.TypeFor[E]()}
}

// Set stores x, which must have one of the alternative types.
func (v *Variant2[A, B]) Set(x any) error { return v.assign(v.variantAlts(), x) }

func (v *Variant3[A, B, C]) Set(x any) error { return v.assign(v.variantAlts(), x) }

func (v *Variant4[A, B, C, D]) Set(x any) error { return v.assign(v.variantAlts(), x) }

func (v *Variant5[A, B, C, D, E]) Set(x any) error { return v.assign(v.variantAlts(), x) }
