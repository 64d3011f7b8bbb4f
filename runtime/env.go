package runtime

import (
	"reflect"

	nifruntime "github.com/wippyai/nif-runtime"
	"github.com/wippyai/nif-runtime/atom"
	"github.com/wippyai/nif-runtime/errors"
	"github.com/wippyai/nif-runtime/term"
)

// env is the per call environment. It is not shared between goroutines.
type env struct {
	rt      *Runtime
	raised  term.Term
	module  string
	loading bool
}

var (
	_ nifruntime.Env     = (*env)(nil)
	_ nifruntime.LoadEnv = (*env)(nil)
	_ atom.Hosted        = (*env)(nil)
)

func (r *Runtime) newEnv(loading bool) *env {
	return &env{rt: r, loading: loading}
}

func (e *env) Atom(name string) (term.Atom, error) {
	return e.rt.atoms.intern(name)
}

// AtomHost keys the atom handles cached for this runtime.
func (e *env) AtomHost() any { return e.rt }

func (e *env) MakeBinary(data []byte) (term.Term, error) {
	if len(data) > e.rt.cfg.MaxBinarySize {
		return nil, errors.New(errors.PhaseRuntime, errors.KindLimit).
			Value(len(data)).
			Detail("binary of %d bytes exceeds %d", len(data), e.rt.cfg.MaxBinarySize).
			Build()
	}
	return term.NewBinary(append([]byte(nil), data...)), nil
}

func (e *env) MakeMap(keys, values []term.Term) (term.Term, error) {
	m, ok := term.NewMap(keys, values)
	if !ok {
		return nil, errors.InvalidInput(errors.PhaseRuntime, "map keys and values differ in length or repeat a key")
	}
	return m, nil
}

// RaiseException records reason. The first raise of a call wins.
func (e *env) RaiseException(reason term.Term) term.Term {
	if e.raised == nil {
		e.raised = reason
	}
	return reason
}

func (e *env) ResourceType(goType reflect.Type) (nifruntime.ResourceType, bool) {
	t, ok := e.rt.resourceType(goType)
	if !ok {
		return nil, false
	}
	return t, true
}

func (e *env) AllocResource(rt nifruntime.ResourceType, payload any) (nifruntime.ResourceObject, error) {
	o, err := e.rt.allocResource(rt, payload)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (e *env) MakeResource(obj nifruntime.ResourceObject) (term.Term, error) {
	return e.rt.makeResource(obj)
}

func (e *env) MakeResourceBinary(obj nifruntime.ResourceObject, data []byte) (term.Term, error) {
	return e.rt.makeResourceBinary(obj, data)
}

func (e *env) GetResource(t term.Term, rt nifruntime.ResourceType) (nifruntime.ResourceObject, bool) {
	o, ok := e.rt.getResource(t, rt)
	if !ok {
		return nil, false
	}
	return o, true
}

func (e *env) NewMutex(name string) (nifruntime.MutexHandle, error) {
	l, err := e.rt.locks.create(name, false)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (e *env) NewRWLock(name string) (nifruntime.RWLockHandle, error) {
	l, err := e.rt.locks.create(name, true)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (e *env) SelfNode() string { return e.rt.cfg.Node }

// OpenResourceType is only available while a module loads.
func (e *env) OpenResourceType(name string, goType reflect.Type, dtor nifruntime.Dtor) (nifruntime.ResourceType, error) {
	if !e.loading {
		return nil, errors.New(errors.PhaseRuntime, errors.KindUnsupported).
			Detail("resource types can only be opened while loading").
			Build()
	}
	t, err := e.rt.openResourceType(e.module, name, goType, dtor)
	if err != nil {
		return nil, err
	}
	return t, nil
}
