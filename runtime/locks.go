package runtime

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/wippyai/nif-runtime/errors"
)

// LockInfo describes a live host lock.
type LockInfo struct {
	Name   string
	ID     uint64
	Shared bool
}

type lockRegistry struct {
	live map[uint64]*hostLock
	next uint64
	max  int
	mu   sync.Mutex
}

func newLockRegistry(max int) *lockRegistry {
	return &lockRegistry{live: make(map[uint64]*hostLock), max: max}
}

func (r *lockRegistry) create(name string, shared bool) (*hostLock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.max > 0 && len(r.live) >= r.max {
		return nil, errors.Limit("lock", r.max)
	}
	r.next++
	l := &hostLock{reg: r, name: name, id: r.next, shared: shared}
	r.live[l.id] = l
	return l, nil
}

func (r *lockRegistry) remove(id uint64) {
	r.mu.Lock()
	delete(r.live, id)
	r.mu.Unlock()
}

func (r *lockRegistry) list() []LockInfo {
	r.mu.Lock()
	out := make([]LockInfo, 0, len(r.live))
	for _, l := range r.live {
		out = append(out, LockInfo{Name: l.name, ID: l.id, Shared: l.shared})
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *lockRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// hostLock backs both mutex and reader/writer handles.
type hostLock struct {
	reg       *lockRegistry
	name      string
	rw        sync.RWMutex
	id        uint64
	shared    bool
	destroyed atomic.Bool
}

func (l *hostLock) Name() string   { return l.name }
func (l *hostLock) Lock()          { l.rw.Lock() }
func (l *hostLock) Unlock()        { l.rw.Unlock() }
func (l *hostLock) TryLock() bool  { return l.rw.TryLock() }
func (l *hostLock) RLock()         { l.rw.RLock() }
func (l *hostLock) RUnlock()       { l.rw.RUnlock() }
func (l *hostLock) TryRLock() bool { return l.rw.TryRLock() }

// Destroy unregisters the lock. Destroying twice does nothing.
func (l *hostLock) Destroy() {
	if l.destroyed.CompareAndSwap(false, true) {
		l.reg.remove(l.id)
	}
}
