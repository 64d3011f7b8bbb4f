// Package lock provides mutexes backed by host lock handles.
//
// Both types satisfy sync.Locker and can guard resource state shared
// between calls:
//
//	type Store struct {
//		mu   *lock.SharedMutex
//		data map[string]string
//	}
//
//	s.mu.RLock()
//	defer s.mu.RUnlock()
//
// Named locks show up in host diagnostics as app.type or
// app.type[instance].
//
// A lock dropped without Close destroys its handle once it is garbage
// collected. Release detaches the handle from that cleanup.
package lock

import (
	"runtime"
	"strings"
	"sync"

	nifruntime "github.com/wippyai/nif-runtime"
	"github.com/wippyai/nif-runtime/errors"
)

var (
	_ sync.Locker = (*Mutex)(nil)
	_ sync.Locker = (*SharedMutex)(nil)
)

// Name builds a lock name from its parts.
func Name(app, typ string, instance ...string) string {
	var b strings.Builder
	b.WriteString(app)
	b.WriteByte('.')
	b.WriteString(typ)
	if len(instance) > 0 {
		b.WriteByte('[')
		b.WriteString(strings.Join(instance, ","))
		b.WriteByte(']')
	}
	return b.String()
}

// Mutex is a mutually exclusive lock. A Mutex that has been locked must not
// be locked again by the same goroutine.
type Mutex struct {
	h       nifruntime.MutexHandle
	cleanup runtime.Cleanup
}

// NewMutex creates an unnamed mutex.
func NewMutex(env nifruntime.Env) (*Mutex, error) {
	return newMutex(env, "")
}

// NewNamedMutex creates a mutex named app.type[instance].
func NewNamedMutex(env nifruntime.Env, app, typ string, instance ...string) (*Mutex, error) {
	return newMutex(env, Name(app, typ, instance...))
}

func newMutex(env nifruntime.Env, name string) (*Mutex, error) {
	h, err := env.NewMutex(name)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindAllocation, err, "failed to create mutex")
	}
	return MutexFromHandle(h), nil
}

// MutexFromHandle takes ownership of h.
func MutexFromHandle(h nifruntime.MutexHandle) *Mutex {
	m := &Mutex{h: h}
	if h != nil {
		m.cleanup = runtime.AddCleanup(m, destroyHandle, h)
	}
	return m
}

func destroyHandle(h nifruntime.MutexHandle) { h.Destroy() }

func (m *Mutex) Lock()         { m.handle().Lock() }
func (m *Mutex) Unlock()       { m.handle().Unlock() }
func (m *Mutex) TryLock() bool { return m.handle().TryLock() }
func (m *Mutex) Name() string  { return m.handle().Name() }

// Handle returns the underlying handle; m keeps ownership.
func (m *Mutex) Handle() nifruntime.MutexHandle { return m.h }

// Release hands ownership of the handle to the caller and empties m.
func (m *Mutex) Release() nifruntime.MutexHandle {
	m.cleanup.Stop()
	h := m.h
	m.h = nil
	return h
}

// Close destroys the handle. Closing an empty Mutex does nothing.
func (m *Mutex) Close() {
	if h := m.Release(); h != nil {
		h.Destroy()
	}
}

func (m *Mutex) handle() nifruntime.MutexHandle {
	if m.h == nil {
		panic("lock: use of closed or released Mutex")
	}
	return m.h
}

// SharedMutex is a reader/writer lock. Neither mode may be taken twice by
// the same goroutine.
type SharedMutex struct {
	h       nifruntime.RWLockHandle
	cleanup runtime.Cleanup
}

// NewSharedMutex creates an unnamed reader/writer lock.
func NewSharedMutex(env nifruntime.Env) (*SharedMutex, error) {
	return newSharedMutex(env, "")
}

// NewNamedSharedMutex creates a reader/writer lock named app.type[instance].
func NewNamedSharedMutex(env nifruntime.Env, app, typ string, instance ...string) (*SharedMutex, error) {
	return newSharedMutex(env, Name(app, typ, instance...))
}

func newSharedMutex(env nifruntime.Env, name string) (*SharedMutex, error) {
	h, err := env.NewRWLock(name)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindAllocation, err, "failed to create rwlock")
	}
	return SharedMutexFromHandle(h), nil
}

// SharedMutexFromHandle takes ownership of h.
func SharedMutexFromHandle(h nifruntime.RWLockHandle) *SharedMutex {
	m := &SharedMutex{h: h}
	if h != nil {
		m.cleanup = runtime.AddCleanup(m, destroyHandle, nifruntime.MutexHandle(h))
	}
	return m
}

func (m *SharedMutex) Lock()          { m.handle().Lock() }
func (m *SharedMutex) Unlock()        { m.handle().Unlock() }
func (m *SharedMutex) TryLock() bool  { return m.handle().TryLock() }
func (m *SharedMutex) RLock()         { m.handle().RLock() }
func (m *SharedMutex) RUnlock()       { m.handle().RUnlock() }
func (m *SharedMutex) TryRLock() bool { return m.handle().TryRLock() }
func (m *SharedMutex) Name() string   { return m.handle().Name() }

// RLocker returns a Locker that takes the read side.
func (m *SharedMutex) RLocker() sync.Locker { return rlocker{m} }

func (m *SharedMutex) Handle() nifruntime.RWLockHandle { return m.h }

func (m *SharedMutex) Release() nifruntime.RWLockHandle {
	m.cleanup.Stop()
	h := m.h
	m.h = nil
	return h
}

func (m *SharedMutex) Close() {
	if h := m.Release(); h != nil {
		h.Destroy()
	}
}

func (m *SharedMutex) handle() nifruntime.RWLockHandle {
	if m.h == nil {
		panic("lock: use of closed or released SharedMutex")
	}
	return m.h
}

type rlocker struct{ m *SharedMutex }

func (r rlocker) Lock()   { r.m.RLock() }
func (r rlocker) Unlock() { r.m.RUnlock() }
