package runtime

import (
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/nif-runtime/atom"
	"github.com/wippyai/nif-runtime/errors"
	"github.com/wippyai/nif-runtime/resource"
	"github.com/wippyai/nif-runtime/term"
)

// Runtime is an in-process host for native modules.
type Runtime struct {
	log      *zap.Logger
	atoms    *atomTable
	heap     *resource.Heap
	locks    *lockRegistry
	dirtyCPU *scheduler
	dirtyIO  *scheduler
	types    map[reflect.Type]*resourceType
	modules  map[string]*Module
	typeList []*resourceType
	cfg      Config
	refIDs   atomic.Uint64
	typeMu   sync.RWMutex
	modMu    sync.RWMutex
	closed   atomic.Bool
}

type Option func(*Runtime)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.log = l
		}
	}
}

// WithObserver subscribes o to resource lifecycle events.
func WithObserver(o resource.Observer) Option {
	return func(r *Runtime) {
		r.heap.Subscribe(o)
	}
}

func New(cfg Config, opts ...Option) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runtime{
		log:     zap.NewNop(),
		atoms:   newAtomTable(cfg.AtomEncoding, cfg.MaxAtoms),
		heap:    resource.NewHeap(cfg.MaxResources),
		locks:   newLockRegistry(cfg.MaxLocks),
		types:   make(map[reflect.Type]*resourceType),
		modules: make(map[string]*Module),
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(zap.String("component", "runtime"), zap.String("node", cfg.Node))

	r.heap.Subscribe(resource.ObserverFunc(r.traceResource))
	r.dirtyCPU = newScheduler("dirty_cpu", cfg.DirtyCPUWorkers, r.log)
	r.dirtyIO = newScheduler("dirty_io", cfg.DirtyIOWorkers, r.log)

	r.log.Debug("runtime started",
		zap.String("atom_encoding", cfg.AtomEncoding),
		zap.Int("dirty_cpu_workers", cfg.DirtyCPUWorkers),
		zap.Int("dirty_io_workers", cfg.DirtyIOWorkers))
	return r, nil
}

func (r *Runtime) traceResource(e resource.Event) {
	if ce := r.log.Check(zap.DebugLevel, "resource "+e.Type.String()); ce != nil {
		name := ""
		if t := r.typeByID(e.TypeID); t != nil {
			name = t.name
		}
		ce.Write(
			zap.Uint32("handle", uint32(e.Handle)),
			zap.String("type", name),
			zap.Int32("refs", e.Refs))
	}
}

func (r *Runtime) Config() Config { return r.cfg }

// Atom interns name in the runtime's atom table.
func (r *Runtime) Atom(name string) (term.Atom, error) {
	return r.atoms.intern(name)
}

// Locks lists the live host locks ordered by name.
func (r *Runtime) Locks() []LockInfo {
	return r.locks.list()
}

// Stats is a snapshot of host table sizes.
type Stats struct {
	Modules   int
	Atoms     int
	Resources int
	Locks     int
}

func (r *Runtime) Stats() Stats {
	r.modMu.RLock()
	modules := len(r.modules)
	r.modMu.RUnlock()
	return Stats{
		Modules:   modules,
		Atoms:     r.atoms.len(),
		Resources: r.heap.Len(),
		Locks:     r.locks.len(),
	}
}

// Close stops the dirty schedulers and destroys every live resource object
// whatever its reference count.
func (r *Runtime) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.dirtyCPU.stop()
	r.dirtyIO.stop()
	atom.Default.Forget(r)

	var errs error
	err := r.heap.Close(func(typeID uint32, value any) {
		t := r.typeByID(typeID)
		if t == nil {
			errs = multierr.Append(errs, errors.NotFound(errors.PhaseRuntime, "resource type", "#"+strconv.FormatUint(uint64(typeID), 10)))
			return
		}
		r.destroy(t, value)
	})
	errs = multierr.Append(errs, err)
	if n := r.locks.len(); n > 0 {
		r.log.Warn("closing with live locks", zap.Int("locks", n))
	}
	r.log.Debug("runtime closed")
	return errs
}
