package resource

import (
	"errors"
	"reflect"

	nifruntime "github.com/wippyai/nif-runtime"
	"github.com/wippyai/nif-runtime/term"
)

// fakeEnv is a minimal host over a Heap. Methods the resource package does
// not use are left to the embedded nil Env.
type fakeEnv struct {
	nifruntime.Env
	heap     *Heap
	types    map[reflect.Type]*fakeType
	allocErr error
}

type fakeType struct {
	goType reflect.Type
	dtor   nifruntime.Dtor
	name   string
	id     uint32
}

func (t *fakeType) Name() string         { return t.name }
func (t *fakeType) GoType() reflect.Type { return t.goType }

type fakeObject struct {
	env    *fakeEnv
	rt     *fakeType
	handle Handle
}

func (o *fakeObject) Type() nifruntime.ResourceType { return o.rt }

func (o *fakeObject) Payload() any {
	v, _ := o.env.heap.Get(o.handle)
	return v
}

func (o *fakeObject) Keep() { o.env.heap.Keep(o.handle) }

func (o *fakeObject) Release() {
	if v, destroyed := o.env.heap.Release(o.handle); destroyed {
		o.rt.dtor(o.env, v)
	}
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{heap: NewHeap(0), types: make(map[reflect.Type]*fakeType)}
}

func register[T any](env *fakeEnv, name string) {
	env.types[TypeOf[T]()] = &fakeType{
		goType: TypeOf[T](),
		dtor:   DtorFor[T](),
		name:   name,
		id:     uint32(len(env.types) + 1),
	}
}

func (e *fakeEnv) refs(p interface{ Object() nifruntime.ResourceObject }) int32 {
	obj, ok := p.Object().(*fakeObject)
	if !ok {
		return 0
	}
	n, _ := e.heap.Refs(obj.handle)
	return n
}

func (e *fakeEnv) ResourceType(goType reflect.Type) (nifruntime.ResourceType, bool) {
	rt, ok := e.types[goType]
	return rt, ok
}

func (e *fakeEnv) AllocResource(rt nifruntime.ResourceType, payload any) (nifruntime.ResourceObject, error) {
	if e.allocErr != nil {
		return nil, e.allocErr
	}
	ft := rt.(*fakeType)
	h, err := e.heap.Create(ft.id, payload)
	if err != nil {
		return nil, err
	}
	return &fakeObject{env: e, rt: ft, handle: h}, nil
}

func (e *fakeEnv) MakeResource(obj nifruntime.ResourceObject) (term.Term, error) {
	fo := obj.(*fakeObject)
	fo.Keep()
	return term.NewReference(uint64(fo.handle), fo), nil
}

func (e *fakeEnv) MakeResourceBinary(obj nifruntime.ResourceObject, data []byte) (term.Term, error) {
	obj.Keep()
	return term.OwnedBinary(data, obj), nil
}

func (e *fakeEnv) GetResource(t term.Term, rt nifruntime.ResourceType) (nifruntime.ResourceObject, bool) {
	ref, ok := t.(term.Reference)
	if !ok {
		return nil, false
	}
	obj, ok := ref.Object().(*fakeObject)
	if !ok || obj.rt != rt {
		return nil, false
	}
	return obj, true
}

var errNoMemory = errors.New("out of memory")
