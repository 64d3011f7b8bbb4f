package resource

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	nifruntime "github.com/wippyai/nif-runtime"
	"github.com/wippyai/nif-runtime/errors"
	"github.com/wippyai/nif-runtime/term"
)

// Wrapper is the payload the host stores for a resource of type T. Cleanup
// only runs for wrappers whose value finished initializing.
type Wrapper[T any] struct {
	value       T
	initialized bool
}

func (w *Wrapper[T]) Initialized() bool { return w.initialized }

func (w *Wrapper[T]) destroy(env nifruntime.Env) {
	if !w.initialized {
		return
	}
	w.initialized = false

	p := &w.value
	if d, ok := any(p).(Destructor); ok {
		d.Destructor(env)
	}
	if d, ok := any(p).(Dropper); ok {
		d.Drop()
	} else if d, ok := any(w.value).(Dropper); ok {
		d.Drop()
	}

	var zero T
	w.value = zero
}

// TypeOf is the Go type a resource of T is registered under.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// DtorFor returns the host destructor for resources of T.
func DtorFor[T any]() nifruntime.Dtor {
	return func(env nifruntime.Env, payload any) {
		w, ok := payload.(*Wrapper[T])
		if !ok {
			Logger().Error("resource destructor got foreign payload",
				zap.String("want", TypeOf[T]().String()),
				zap.String("got", fmt.Sprintf("%T", payload)))
			return
		}
		w.destroy(env)
	}
}

// Ptr is a counted reference to a resource of type T. The zero Ptr holds
// nothing.
//
// Each Ptr owns one reference. Clone takes another, Release gives one back,
// and the host destroys the object when the last reference goes.
type Ptr[T any] struct {
	obj nifruntime.ResourceObject
	w   *Wrapper[T]
}

// Make allocates a resource holding value.
func Make[T any](env nifruntime.Env, value T) (Ptr[T], error) {
	return MakeWith(env, func(p *T) error {
		*p = value
		return nil
	})
}

// MakeWith allocates a resource and initializes it in place. If init fails
// or panics the allocation is released without running any cleanup on the
// value; a panic is re-raised after the release.
func MakeWith[T any](env nifruntime.Env, init func(*T) error) (Ptr[T], error) {
	rt, ok := env.ResourceType(TypeOf[T]())
	if !ok {
		return Ptr[T]{}, errors.ResourceType(errors.PhaseRuntime, TypeOf[T]().String())
	}

	w := &Wrapper[T]{}
	obj, err := env.AllocResource(rt, w)
	if err != nil {
		return Ptr[T]{}, errors.AllocationFailed(errors.PhaseRuntime, "resource "+rt.Name(), err)
	}

	// Released on the way out unless init completes.
	ptr := Ptr[T]{obj: obj, w: w}
	done := false
	defer func() {
		if !done {
			ptr.Release()
		}
	}()

	if err := init(&w.value); err != nil {
		return Ptr[T]{}, err
	}
	w.initialized = true
	done = true
	return ptr, nil
}

// FromObject returns a new reference to obj if it holds a T.
func FromObject[T any](obj nifruntime.ResourceObject) (Ptr[T], bool) {
	if obj == nil {
		return Ptr[T]{}, false
	}
	w, ok := obj.Payload().(*Wrapper[T])
	if !ok {
		return Ptr[T]{}, false
	}
	obj.Keep()
	return Ptr[T]{obj: obj, w: w}, true
}

// Get returns the resource value. It panics on an empty Ptr.
func (p Ptr[T]) Get() *T {
	if p.w == nil {
		panic("resource: Get on empty Ptr[" + TypeOf[T]().String() + "]")
	}
	return &p.w.value
}

func (p Ptr[T]) Valid() bool                       { return p.obj != nil }
func (p Ptr[T]) Object() nifruntime.ResourceObject { return p.obj }

// Clone returns a new reference to the same object.
func (p Ptr[T]) Clone() Ptr[T] {
	if p.obj != nil {
		p.obj.Keep()
	}
	return p
}

// Move transfers the reference out of p, leaving p empty.
func (p *Ptr[T]) Move() Ptr[T] {
	q := *p
	*p = Ptr[T]{}
	return q
}

// Release gives up p's reference and empties p. Releasing an empty Ptr does
// nothing.
func (p *Ptr[T]) Release() {
	obj := p.obj
	*p = Ptr[T]{}
	if obj != nil {
		obj.Release()
	}
}

// DecodeTerm takes a reference to the resource t refers to.
func (p *Ptr[T]) DecodeTerm(env nifruntime.Env, t term.Term) error {
	goType := "resource.Ptr[" + TypeOf[T]().String() + "]"
	rt, ok := env.ResourceType(TypeOf[T]())
	if !ok {
		return errors.New(errors.PhaseDecode, errors.KindResourceType).
			GoType(goType).
			Detail("decode failed, %s is not a registered resource type", TypeOf[T]()).
			Build()
	}
	obj, ok := env.GetResource(t, rt)
	if !ok {
		return errors.Expected(nil, goType, "a resource reference")
	}
	q, ok := FromObject[T](obj)
	if !ok {
		return errors.Expected(nil, goType, "a resource reference")
	}
	p.Release()
	*p = q
	return nil
}

// EncodeTerm returns a term for the resource. The term holds its own
// reference; p keeps its reference.
func (p Ptr[T]) EncodeTerm(env nifruntime.Env) (term.Term, error) {
	if p.obj == nil {
		return nil, errors.NilPointer(errors.PhaseEncode, nil, "resource.Ptr["+TypeOf[T]().String()+"]")
	}
	t, err := env.MakeResource(p.obj)
	if err != nil {
		return nil, errors.AllocationFailed(errors.PhaseEncode, "resource term", err)
	}
	return t, nil
}

// MakeBinary returns a binary over data whose lifetime is tied to the
// resource behind p. data must stay valid for as long as the resource does.
func MakeBinary[T any](env nifruntime.Env, p Ptr[T], data []byte) (term.Term, error) {
	if p.obj == nil {
		return nil, errors.NilPointer(errors.PhaseEncode, nil, "resource.Ptr["+TypeOf[T]().String()+"]")
	}
	t, err := env.MakeResourceBinary(p.obj, data)
	if err != nil {
		return nil, errors.AllocationFailed(errors.PhaseEncode, "resource binary", err)
	}
	return t, nil
}
