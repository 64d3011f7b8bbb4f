package runtime

import (
	"fmt"
	"reflect"
	goruntime "runtime"

	"go.uber.org/zap"

	nifruntime "github.com/wippyai/nif-runtime"
	"github.com/wippyai/nif-runtime/errors"
	"github.com/wippyai/nif-runtime/resource"
	"github.com/wippyai/nif-runtime/term"
)

type resourceType struct {
	goType reflect.Type
	dtor   nifruntime.Dtor
	name   string
	module string
	id     uint32
}

func (t *resourceType) Name() string         { return t.name }
func (t *resourceType) GoType() reflect.Type { return t.goType }

// object is a live entry in the runtime's heap. Its reference count lives
// in the heap.
type object struct {
	rt     *Runtime
	typ    *resourceType
	handle resource.Handle
}

func (o *object) Type() nifruntime.ResourceType { return o.typ }

func (o *object) Payload() any {
	v, _ := o.rt.heap.Get(o.handle)
	return v
}

func (o *object) Keep() { o.rt.heap.Keep(o.handle) }

func (o *object) Release() {
	if v, destroyed := o.rt.heap.Release(o.handle); destroyed {
		o.rt.destroy(o.typ, v)
	}
}

// termRef is what a resource term points at. It owns one reference,
// given back when the term is no longer reachable.
type termRef struct {
	obj *object
}

func (r *Runtime) openResourceType(module, name string, goType reflect.Type, dtor nifruntime.Dtor) (*resourceType, error) {
	if goType == nil || name == "" {
		return nil, errors.InvalidInput(errors.PhaseLoad, "resource type needs a name and a Go type")
	}

	r.typeMu.Lock()
	defer r.typeMu.Unlock()

	if t, ok := r.types[goType]; ok {
		if t.name != name {
			return nil, errors.New(errors.PhaseLoad, errors.KindRegistration).
				GoType(goType.String()).
				Detail("Go type already opened as resource %s by %s", t.name, t.module).
				Build()
		}
		t.dtor = dtor
		t.module = module
		return t, nil
	}

	t := &resourceType{
		goType: goType,
		dtor:   dtor,
		name:   name,
		module: module,
		id:     uint32(len(r.typeList) + 1),
	}
	r.types[goType] = t
	r.typeList = append(r.typeList, t)
	return t, nil
}

func (r *Runtime) resourceType(goType reflect.Type) (*resourceType, bool) {
	r.typeMu.RLock()
	defer r.typeMu.RUnlock()
	t, ok := r.types[goType]
	return t, ok
}

func (r *Runtime) typeByID(id uint32) *resourceType {
	r.typeMu.RLock()
	defer r.typeMu.RUnlock()
	if id == 0 || int(id) > len(r.typeList) {
		return nil
	}
	return r.typeList[id-1]
}

func (r *Runtime) allocResource(rt nifruntime.ResourceType, payload any) (*object, error) {
	t, ok := rt.(*resourceType)
	if !ok {
		return nil, errors.InvalidInput(errors.PhaseRuntime, fmt.Sprintf("foreign resource type %T", rt))
	}
	h, err := r.heap.Create(t.id, payload)
	if err != nil {
		return nil, err
	}
	return &object{rt: r, typ: t, handle: h}, nil
}

// newTermRef takes a reference for a term and arranges for it to be given
// back once the term is garbage.
func (r *Runtime) newTermRef(obj nifruntime.ResourceObject) (*termRef, error) {
	o, ok := obj.(*object)
	if !ok || o.rt != r {
		return nil, errors.InvalidInput(errors.PhaseRuntime, fmt.Sprintf("foreign resource object %T", obj))
	}
	o.Keep()
	ref := &termRef{obj: o}
	goruntime.AddCleanup(ref, func(o *object) {
		if !o.rt.closed.Load() {
			o.Release()
		}
	}, o)
	return ref, nil
}

func (r *Runtime) makeResource(obj nifruntime.ResourceObject) (term.Term, error) {
	ref, err := r.newTermRef(obj)
	if err != nil {
		return nil, err
	}
	return term.NewReference(r.refIDs.Add(1), ref), nil
}

func (r *Runtime) makeResourceBinary(obj nifruntime.ResourceObject, data []byte) (term.Term, error) {
	ref, err := r.newTermRef(obj)
	if err != nil {
		return nil, err
	}
	return term.OwnedBinary(data, ref), nil
}

func (r *Runtime) getResource(t term.Term, rt nifruntime.ResourceType) (*object, bool) {
	ref, ok := t.(term.Reference)
	if !ok {
		return nil, false
	}
	tr, ok := ref.Object().(*termRef)
	if !ok || tr.obj.rt != r || tr.obj.typ != rt {
		return nil, false
	}
	return tr.obj, true
}

// destroy runs a type's destructor. A panicking destructor is logged and
// swallowed.
func (r *Runtime) destroy(t *resourceType, payload any) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("resource destructor panicked",
				zap.String("type", t.name),
				zap.Any("panic", p))
		}
	}()
	if t.dtor != nil {
		t.dtor(r.newEnv(false), payload)
	}
}
