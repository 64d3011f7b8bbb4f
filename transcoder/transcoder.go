package transcoder

import (
	"reflect"

	nifruntime "github.com/wippyai/nif-runtime"
	"github.com/wippyai/nif-runtime/atom"
	"github.com/wippyai/nif-runtime/errors"
	"github.com/wippyai/nif-runtime/term"
)

// Default is the compiler used by the package level helpers.
var Default = NewCompiler()

// Decode converts t into a T.
func Decode[T any](env nifruntime.Env, t term.Term) (T, error) {
	var out T
	err := Default.Decode(env, t, reflect.ValueOf(&out).Elem())
	return out, err
}

// Encode converts v into a term.
func Encode[T any](env nifruntime.Env, v T) (term.Term, error) {
	return Default.Encode(env, reflect.ValueOf(&v).Elem())
}

// DecodeValue decodes t into the value target points to.
func DecodeValue(env nifruntime.Env, t term.Term, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.NilPointer(errors.PhaseDecode, nil, typeName(reflect.TypeOf(target)))
	}
	return Default.Decode(env, t, rv.Elem())
}

// EncodeValue encodes v by its dynamic type. A nil v encodes as nil.
func EncodeValue(env nifruntime.Env, v any) (term.Term, error) {
	if v == nil {
		return resolveAtom(env, atom.Nil)
	}
	return Default.Encode(env, reflect.ValueOf(v))
}

// Release gives back the resource references a decoded value holds.
func Release[T any](v *T) {
	if v != nil {
		Default.Release(reflect.ValueOf(v).Elem())
	}
}

// Decode writes t into v, which must be settable. On failure any resource
// references taken so far are released and v is left zeroed.
func (c *Compiler) Decode(env nifruntime.Env, t term.Term, v reflect.Value) error {
	ct, err := c.Compile(v.Type())
	if err != nil {
		return err
	}
	if err := decode(env, ct, t, v, nil); err != nil {
		releaseValue(ct, v)
		v.Set(reflect.Zero(v.Type()))
		return err
	}
	return nil
}

func (c *Compiler) Encode(env nifruntime.Env, v reflect.Value) (term.Term, error) {
	ct, err := c.Compile(v.Type())
	if err != nil {
		return nil, err
	}
	return encode(env, c, ct, v, nil)
}

// Release walks v and gives back every resource reference it holds.
func (c *Compiler) Release(v reflect.Value) {
	ct, err := c.Compile(v.Type())
	if err != nil {
		return
	}
	releaseValue(ct, v)
}
