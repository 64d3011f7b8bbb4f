package nif

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	nifruntime "github.com/wippyai/nif-runtime"
	"github.com/wippyai/nif-runtime/atom"
	"github.com/wippyai/nif-runtime/errors"
	"github.com/wippyai/nif-runtime/resource"
)

// Module collects the functions and resource types of one native module.
// Registration happens before the host loads the module; once the first
// load completes the module is sealed and further registration panics.
type Module struct {
	atoms     *atom.Table
	errs      error
	name      string
	funcs     []nifruntime.Func
	resources []resourceDef
	mu        sync.Mutex
	sealed    bool
}

type resourceDef struct {
	goType reflect.Type
	dtor   nifruntime.Dtor
	name   string
}

func NewModule(name string) *Module {
	return &Module{name: name, atoms: atom.Default}
}

func (m *Module) Name() string { return m.name }

// RegisterResource declares T as a resource type opened when the module
// loads. Registering the same Go type twice is an error reported by Load.
func RegisterResource[T any](m *Module, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOpen("resource " + name)

	goType := resource.TypeOf[T]()
	for _, r := range m.resources {
		if r.goType == goType {
			m.errs = multierr.Append(m.errs, errors.Registration(m.name, name,
				fmt.Errorf("%s already registered as %s", goType, r.name)))
			return
		}
	}
	m.resources = append(m.resources, resourceDef{
		goType: goType,
		dtor:   resource.DtorFor[T](),
		name:   name,
	})
}

// Export registers fn under name. fn is compiled with NewHandler; a
// function that cannot be dispatched is reported by Load and Err.
func (m *Module) Export(name string, flags nifruntime.Flags, fn any) *Module {
	h, err := NewHandler(name, fn)
	if err != nil {
		m.mu.Lock()
		m.checkOpen("function " + name)
		m.errs = multierr.Append(m.errs, errors.Registration(m.name, name, err))
		m.mu.Unlock()
		return m
	}
	return m.Register(nifruntime.Func{
		Entry: h.Entry(),
		Name:  name,
		Arity: h.Arity(),
		Flags: flags,
	})
}

// Register adds a raw function descriptor.
func (m *Module) Register(f nifruntime.Func) *Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOpen("function " + f.Name)

	var err error
	switch {
	case f.Name == "":
		err = errors.InvalidInput(errors.PhaseRegister, "function name is empty")
	case f.Entry == nil:
		err = errors.InvalidInput(errors.PhaseRegister, "function has no entry point")
	case f.Arity < 0:
		err = errors.InvalidInput(errors.PhaseRegister, fmt.Sprintf("negative arity %d", f.Arity))
	case f.Flags&nifruntime.FlagDirtyCPU != 0 && f.Flags&nifruntime.FlagDirtyIO != 0:
		err = errors.InvalidInput(errors.PhaseRegister, "function cannot be both dirty_cpu and dirty_io")
	}
	for _, g := range m.funcs {
		if g.Name == f.Name && g.Arity == f.Arity {
			err = errors.InvalidInput(errors.PhaseRegister, fmt.Sprintf("%s/%d already registered", f.Name, f.Arity))
		}
	}
	if err != nil {
		m.errs = multierr.Append(m.errs, errors.Registration(m.name, f.Name, err))
		return m
	}
	m.funcs = append(m.funcs, f)
	return m
}

func (m *Module) checkOpen(what string) {
	if m.sealed {
		panic(fmt.Sprintf("nif: cannot register %s in module %s after it was loaded", what, m.name))
	}
}

// Funcs returns a copy of the registered functions.
func (m *Module) Funcs() []nifruntime.Func {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]nifruntime.Func, len(m.funcs))
	copy(out, m.funcs)
	return out
}

// Err returns the registration errors collected so far.
func (m *Module) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs
}

func (m *Module) Sealed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sealed
}

// Entry returns the descriptor handed to the host.
func (m *Module) Entry() *nifruntime.ModuleEntry {
	return &nifruntime.ModuleEntry{
		Load:  m.load,
		Name:  m.name,
		Funcs: m.Funcs(),
	}
}

// load interns every atom created so far, then opens each resource type.
// Any failure aborts loading.
func (m *Module) load(env nifruntime.LoadEnv) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log := Logger().With(zap.String("module", m.name))

	if m.errs != nil {
		return errors.Load("module "+m.name+" has invalid registrations", m.errs)
	}
	if err := m.atoms.Finalize(env); err != nil {
		return errors.Load("interning atoms failed", err)
	}

	var errs error
	for _, r := range m.resources {
		if _, err := env.OpenResourceType(r.name, r.goType, r.dtor); err != nil {
			errs = multierr.Append(errs, errors.Registration(m.name, r.name, err))
			continue
		}
		log.Debug("resource type opened", zap.String("name", r.name), zap.Stringer("type", r.goType))
	}
	if errs != nil {
		log.Error("opening resource types failed", zap.Error(errs))
		return errors.Load("opening resource types failed", errs)
	}

	m.sealed = true
	log.Info("module loaded",
		zap.Int("functions", len(m.funcs)),
		zap.Int("resources", len(m.resources)))
	return nil
}
