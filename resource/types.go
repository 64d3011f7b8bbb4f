package resource

import (
	nifruntime "github.com/wippyai/nif-runtime"
)

// Handle is an opaque reference to an object in a Heap.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Event types for resource lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventKept
	EventReleased
	EventDestroyed
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventKept:
		return "kept"
	case EventReleased:
		return "released"
	case EventDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// Event represents a resource lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	TypeID uint32
	Refs   int32
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Dropper is optionally implemented by resource values that need cleanup.
type Dropper interface {
	Drop()
}

// Destructor is optionally implemented by resource values that need the
// host environment during cleanup. It runs before Drop.
type Destructor interface {
	Destructor(env nifruntime.Env)
}
