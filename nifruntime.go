package nifruntime

import (
	"reflect"

	"github.com/wippyai/nif-runtime/term"
)

// Env is the host environment handed to every call. Terms it returns are
// valid for the duration of the call.
type Env interface {
	// Atom interns name in the host atom table.
	Atom(name string) (term.Atom, error)
	// MakeBinary copies data into a new host binary.
	MakeBinary(data []byte) (term.Term, error)
	// MakeMap builds a map from parallel key and value arrays. It fails when
	// the lengths differ or a key repeats.
	MakeMap(keys, values []term.Term) (term.Term, error)
	// RaiseException marks the call as raising reason. The returned term
	// must be returned from the entry point unchanged.
	RaiseException(reason term.Term) term.Term

	// ResourceType returns the opened resource type for a Go type.
	ResourceType(goType reflect.Type) (ResourceType, bool)
	// AllocResource creates a resource object with reference count 1.
	AllocResource(rt ResourceType, payload any) (ResourceObject, error)
	// MakeResource returns a term referring to obj. The term holds its own
	// reference; the caller's reference is untouched.
	MakeResource(obj ResourceObject) (term.Term, error)
	// MakeResourceBinary returns a binary over data that keeps obj alive.
	MakeResourceBinary(obj ResourceObject, data []byte) (term.Term, error)
	// GetResource returns the object behind t when it is a resource of rt.
	// No reference is taken.
	GetResource(t term.Term, rt ResourceType) (ResourceObject, bool)

	// NewMutex creates a host mutex. The name shows up in host diagnostics.
	NewMutex(name string) (MutexHandle, error)
	// NewRWLock creates a host reader/writer lock.
	NewRWLock(name string) (RWLockHandle, error)

	// SelfNode is the name of the local node. Pids from other nodes are
	// remote.
	SelfNode() string
}

// LoadEnv is the environment passed to ModuleEntry.Load.
type LoadEnv interface {
	Env
	// OpenResourceType declares a resource type for goType. dtor runs once
	// for each object when its last reference is released.
	OpenResourceType(name string, goType reflect.Type, dtor Dtor) (ResourceType, error)
}

// Dtor is called by the host when a resource object is destroyed.
type Dtor func(env Env, payload any)

// ResourceType is a host resource type opened during load.
type ResourceType interface {
	Name() string
	GoType() reflect.Type
}

// ResourceObject is a reference counted host object carrying a Go payload.
type ResourceObject interface {
	Type() ResourceType
	Payload() any
	// Keep increments the reference count.
	Keep()
	// Release decrements the reference count, destroying the object at zero.
	Release()
}

// MutexHandle is a host mutex.
type MutexHandle interface {
	Name() string
	Lock()
	Unlock()
	TryLock() bool
	Destroy()
}

// RWLockHandle is a host reader/writer lock.
type RWLockHandle interface {
	MutexHandle
	RLock()
	RUnlock()
	TryRLock() bool
}

// Flags are scheduling annotations on a function.
type Flags uint8

const (
	FlagNone Flags = 0
	// FlagDirtyCPU runs the call on a dirty CPU scheduler.
	FlagDirtyCPU Flags = 1
	// FlagDirtyIO runs the call on a dirty IO scheduler.
	FlagDirtyIO Flags = 2
)

func (f Flags) Dirty() bool { return f&(FlagDirtyCPU|FlagDirtyIO) != 0 }

func (f Flags) String() string {
	switch {
	case f&FlagDirtyCPU != 0:
		return "dirty_cpu"
	case f&FlagDirtyIO != 0:
		return "dirty_io"
	}
	return "normal"
}

// EntryPoint is the raw call entry the host invokes.
type EntryPoint func(env Env, argv []term.Term) term.Term

// Func describes one exported function.
type Func struct {
	Entry EntryPoint
	Name  string
	Arity int
	Flags Flags
}

// ModuleEntry is what a native module hands to the host.
type ModuleEntry struct {
	// Load runs once when the host loads the module. An error aborts
	// loading.
	Load  func(env LoadEnv) error
	Name  string
	Funcs []Func
}
