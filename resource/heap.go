package resource

import (
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/nif-runtime/errors"
)

var ErrClosed = errors.New(errors.PhaseRuntime, errors.KindNotInitialized).
	Detail("resource heap closed").
	Build()

// Heap is the host side store of resource objects. Each entry carries a
// reference count starting at 1; the entry is removed when the count
// reaches zero and the caller runs the type's destructor.
type Heap struct {
	entries   []entry
	freeList  []Handle
	observers []subscription
	limit     int
	nextSub   uint64
	live      int
	mu        sync.Mutex
	obsMu     sync.RWMutex
	closed    bool
}

type entry struct {
	value  any
	typeID uint32
	refs   int32
	valid  bool
}

// NewHeap creates an empty heap. A limit of 0 means unbounded.
func NewHeap(limit int) *Heap {
	return &Heap{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
		limit:    limit,
	}
}

// Create stores a value with one reference and returns its handle.
func (h *Heap) Create(typeID uint32, value any) (Handle, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return 0, ErrClosed
	}
	if h.limit > 0 && h.live >= h.limit {
		h.mu.Unlock()
		return 0, errors.Limit("resource object", h.limit)
	}

	e := entry{
		typeID: typeID,
		value:  value,
		refs:   1,
		valid:  true,
	}

	var handle Handle
	if len(h.freeList) > 0 {
		handle = h.freeList[len(h.freeList)-1]
		h.freeList = h.freeList[:len(h.freeList)-1]
		h.entries[handle-1] = e
	} else {
		h.entries = append(h.entries, e)
		handle = Handle(len(h.entries))
	}
	h.live++
	h.mu.Unlock()

	h.notify(Event{Type: EventCreated, Handle: handle, TypeID: typeID, Value: value, Refs: 1})
	return handle, nil
}

func (h *Heap) lookup(handle Handle) *entry {
	if handle == 0 || int(handle) > len(h.entries) {
		return nil
	}
	e := &h.entries[handle-1]
	if !e.valid {
		return nil
	}
	return e
}

// Get retrieves a value by handle.
func (h *Heap) Get(handle Handle) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e := h.lookup(handle); e != nil {
		return e.value, true
	}
	return nil, false
}

// GetTyped retrieves a value only if it has the expected type.
func (h *Heap) GetTyped(handle Handle, typeID uint32) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e := h.lookup(handle); e != nil && e.typeID == typeID {
		return e.value, true
	}
	return nil, false
}

// TypeID returns the type ID for a handle.
func (h *Heap) TypeID(handle Handle) (uint32, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e := h.lookup(handle); e != nil {
		return e.typeID, true
	}
	return 0, false
}

// Refs returns the current reference count.
func (h *Heap) Refs(handle Handle) (int32, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e := h.lookup(handle); e != nil {
		return e.refs, true
	}
	return 0, false
}

// Keep increments the reference count.
func (h *Heap) Keep(handle Handle) bool {
	h.mu.Lock()
	e := h.lookup(handle)
	if e == nil {
		h.mu.Unlock()
		return false
	}
	e.refs++
	ev := Event{Type: EventKept, Handle: handle, TypeID: e.typeID, Value: e.value, Refs: e.refs}
	h.mu.Unlock()

	h.notify(ev)
	return true
}

// Release decrements the reference count. When it reaches zero the entry
// is removed and Release returns the value with destroyed set; the caller
// is responsible for running the destructor exactly once.
func (h *Heap) Release(handle Handle) (value any, destroyed bool) {
	h.mu.Lock()
	e := h.lookup(handle)
	if e == nil {
		h.mu.Unlock()
		Logger().Warn("release of invalid resource handle", zap.Uint32("handle", uint32(handle)))
		return nil, false
	}
	e.refs--
	ev := Event{Type: EventReleased, Handle: handle, TypeID: e.typeID, Value: e.value, Refs: e.refs}
	if e.refs == 0 {
		value = e.value
		destroyed = true
		*e = entry{}
		h.freeList = append(h.freeList, handle)
		h.live--
	}
	h.mu.Unlock()

	h.notify(ev)
	if destroyed {
		h.notify(Event{Type: EventDestroyed, Handle: handle, TypeID: ev.TypeID, Value: value})
	}
	return value, destroyed
}

// Len returns the number of live objects.
func (h *Heap) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.live
}

// Each iterates over all live objects.
func (h *Heap) Each(fn func(Handle, uint32, any) bool) {
	h.mu.Lock()
	type item struct {
		value  any
		handle Handle
		typeID uint32
	}
	items := make([]item, 0, h.live)
	for i, e := range h.entries {
		if e.valid {
			items = append(items, item{handle: Handle(i + 1), typeID: e.typeID, value: e.value})
		}
	}
	h.mu.Unlock()

	for _, it := range items {
		if !fn(it.handle, it.typeID, it.value) {
			return
		}
	}
}

// Close stops accepting objects and hands every live value to destroy,
// whatever its reference count.
func (h *Heap) Close(destroy func(typeID uint32, value any)) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	entries := h.entries
	h.entries = nil
	h.freeList = nil
	h.live = 0
	h.mu.Unlock()

	for i, e := range entries {
		if !e.valid {
			continue
		}
		if destroy != nil {
			destroy(e.typeID, e.value)
		}
		h.notify(Event{Type: EventDestroyed, Handle: Handle(i + 1), TypeID: e.typeID, Value: e.value})
	}
	return nil
}

type subscription struct {
	obs Observer
	id  uint64
}

// Subscribe adds an observer for lifecycle events. The returned func
// removes it again and is safe to call more than once.
func (h *Heap) Subscribe(o Observer) (cancel func()) {
	h.obsMu.Lock()
	defer h.obsMu.Unlock()
	h.nextSub++
	id := h.nextSub
	h.observers = append(h.observers, subscription{obs: o, id: id})
	return func() { h.remove(func(s subscription) bool { return s.id == id }) }
}

// Unsubscribe removes the first subscription of o. Observers of an
// uncomparable type, such as ObserverFunc, are only removed through the
// func returned by Subscribe.
func (h *Heap) Unsubscribe(o Observer) {
	if o == nil || !reflect.TypeOf(o).Comparable() {
		return
	}
	h.remove(func(s subscription) bool {
		return reflect.TypeOf(s.obs) == reflect.TypeOf(o) && s.obs == o
	})
}

func (h *Heap) remove(match func(subscription) bool) {
	h.obsMu.Lock()
	defer h.obsMu.Unlock()
	for i, s := range h.observers {
		if match(s) {
			h.observers = append(h.observers[:i], h.observers[i+1:]...)
			return
		}
	}
}

func (h *Heap) notify(e Event) {
	h.obsMu.RLock()
	defer h.obsMu.RUnlock()
	for _, s := range h.observers {
		s.obs.OnResourceEvent(e)
	}
}
