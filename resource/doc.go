// Package resource provides reference counted native objects shared with
// the host.
//
// A resource is a Go value of type T living inside a host object. The host
// keeps a reference count per object; every Ptr[T] owns one reference and
// every term referring to the object owns another. When the last reference
// goes the host runs the type's destructor.
//
// # Creating Resources
//
// Register T with nif.RegisterResource, then allocate inside a call:
//
//	store, err := resource.Make(env, Store{})
//	if err != nil {
//	    return nil, err
//	}
//	defer store.Release()
//
// MakeWith initializes the value in place. If the initializer fails or
// panics the allocation is released and none of the cleanup hooks run for
// the half built value.
//
// # Cleanup
//
// When an initialized resource is destroyed, its Destructor(env) method runs
// first if T has one, then Drop if T implements Dropper, and finally the
// value is zeroed.
//
// # Handles
//
//	p2 := p.Clone()   // count + 1
//	p3 := p2.Move()   // transfer, p2 is empty
//	p3.Release()      // count - 1
//
// Decoding a Ptr from call arguments takes a reference that dispatch gives
// back after the call. Keep a Clone to hold on to the object longer.
//
// # Heap
//
// Heap is the host side table used by the reference runtime. It hands out
// handles from a free list, tracks reference counts and reports lifecycle
// events to observers:
//
//	cancel := heap.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    if e.Type == resource.EventDestroyed {
//	        log.Printf("resource %d destroyed", e.Handle)
//	    }
//	}))
//	defer cancel()
package resource
