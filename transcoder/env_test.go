package transcoder

import (
	"errors"
	"reflect"

	nifruntime "github.com/wippyai/nif-runtime"
	"github.com/wippyai/nif-runtime/resource"
	"github.com/wippyai/nif-runtime/term"
)

// testEnv is an in-memory host good enough for marshalling. Lock support is
// left to the embedded nil Env.
type testEnv struct {
	nifruntime.Env
	atoms    map[string]term.Atom
	heap     *resource.Heap
	types    map[reflect.Type]*testType
	binErr   error
	mapCalls int
	node     string
}

type testType struct {
	goType reflect.Type
	dtor   nifruntime.Dtor
	name   string
	id     uint32
}

func (t *testType) Name() string         { return t.name }
func (t *testType) GoType() reflect.Type { return t.goType }

type testObject struct {
	env    *testEnv
	rt     *testType
	handle resource.Handle
}

func (o *testObject) Type() nifruntime.ResourceType { return o.rt }

func (o *testObject) Payload() any {
	v, _ := o.env.heap.Get(o.handle)
	return v
}

func (o *testObject) Keep() { o.env.heap.Keep(o.handle) }

func (o *testObject) Release() {
	if v, destroyed := o.env.heap.Release(o.handle); destroyed {
		o.rt.dtor(o.env, v)
	}
}

func newTestEnv() *testEnv {
	return &testEnv{
		atoms: make(map[string]term.Atom),
		heap:  resource.NewHeap(0),
		types: make(map[reflect.Type]*testType),
		node:  "test@localhost",
	}
}

func registerType[T any](env *testEnv, name string) {
	env.types[resource.TypeOf[T]()] = &testType{
		goType: resource.TypeOf[T](),
		dtor:   resource.DtorFor[T](),
		name:   name,
		id:     uint32(len(env.types) + 1),
	}
}

func (e *testEnv) Atom(name string) (term.Atom, error) {
	if a, ok := e.atoms[name]; ok {
		return a, nil
	}
	a := term.InternedAtom(name, uint32(len(e.atoms)+1))
	e.atoms[name] = a
	return a, nil
}

func (e *testEnv) MakeBinary(data []byte) (term.Term, error) {
	if e.binErr != nil {
		return nil, e.binErr
	}
	return term.NewBinary(append([]byte(nil), data...)), nil
}

func (e *testEnv) MakeMap(keys, values []term.Term) (term.Term, error) {
	e.mapCalls++
	m, ok := term.NewMap(keys, values)
	if !ok {
		return nil, errors.New("duplicate map key")
	}
	return m, nil
}

func (e *testEnv) SelfNode() string { return e.node }

func (e *testEnv) ResourceType(goType reflect.Type) (nifruntime.ResourceType, bool) {
	rt, ok := e.types[goType]
	return rt, ok
}

func (e *testEnv) AllocResource(rt nifruntime.ResourceType, payload any) (nifruntime.ResourceObject, error) {
	tt := rt.(*testType)
	h, err := e.heap.Create(tt.id, payload)
	if err != nil {
		return nil, err
	}
	return &testObject{env: e, rt: tt, handle: h}, nil
}

func (e *testEnv) MakeResource(obj nifruntime.ResourceObject) (term.Term, error) {
	o := obj.(*testObject)
	o.Keep()
	return term.NewReference(uint64(o.handle), o), nil
}

func (e *testEnv) GetResource(t term.Term, rt nifruntime.ResourceType) (nifruntime.ResourceObject, bool) {
	ref, ok := t.(term.Reference)
	if !ok {
		return nil, false
	}
	o, ok := ref.Object().(*testObject)
	if !ok || o.rt != rt {
		return nil, false
	}
	return o, true
}

func (e *testEnv) refs(obj nifruntime.ResourceObject) int32 {
	o, ok := obj.(*testObject)
	if !ok {
		return 0
	}
	n, _ := e.heap.Refs(o.handle)
	return n
}
