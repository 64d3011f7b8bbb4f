package runtime

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	nifruntime "github.com/wippyai/nif-runtime"
	"github.com/wippyai/nif-runtime/errors"
	"github.com/wippyai/nif-runtime/term"
)

// Module is a loaded native module.
type Module struct {
	rt    *Runtime
	funcs map[string]nifruntime.Func // keyed by name/arity
	name  string
}

func funcKey(name string, arity int) string {
	return name + "/" + strconv.Itoa(arity)
}

func (m *Module) Name() string { return m.name }

// Funcs lists the module's functions ordered by name and arity.
func (m *Module) Funcs() []nifruntime.Func {
	out := make([]nifruntime.Func, 0, len(m.funcs))
	for _, f := range m.funcs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Arity < out[j].Arity
	})
	return out
}

// Call invokes one of the module's functions.
func (m *Module) Call(ctx context.Context, fn string, args ...term.Term) (term.Term, error) {
	f, ok := m.funcs[funcKey(fn, len(args))]
	if !ok {
		return nil, errors.NotFound(errors.PhaseDispatch, "function", m.name+":"+funcKey(fn, len(args)))
	}
	return m.rt.invoke(ctx, m.name, f, args)
}

// Load runs the module's load callback and registers its functions. A
// module name can be loaded once per runtime.
func (r *Runtime) Load(entry *nifruntime.ModuleEntry) (*Module, error) {
	if entry == nil || entry.Name == "" {
		return nil, errors.InvalidInput(errors.PhaseLoad, "module entry needs a name")
	}
	if r.closed.Load() {
		return nil, errors.NotInitialized(errors.PhaseLoad, "runtime")
	}

	r.modMu.Lock()
	defer r.modMu.Unlock()
	if _, ok := r.modules[entry.Name]; ok {
		return nil, errors.Load("module "+entry.Name+" is already loaded", nil)
	}

	m := &Module{rt: r, name: entry.Name, funcs: make(map[string]nifruntime.Func, len(entry.Funcs))}
	for _, f := range entry.Funcs {
		key := funcKey(f.Name, f.Arity)
		if _, dup := m.funcs[key]; dup {
			return nil, errors.Load("module "+entry.Name+" exports "+key+" twice", nil)
		}
		if f.Entry == nil {
			return nil, errors.Load("function "+entry.Name+":"+key+" has no entry point", nil)
		}
		m.funcs[key] = f
	}

	if entry.Load != nil {
		if err := r.runLoad(entry); err != nil {
			r.log.Error("module load failed", zap.String("module", entry.Name), zap.Error(err))
			return nil, err
		}
	}

	r.modules[entry.Name] = m
	r.log.Info("module loaded", zap.String("module", entry.Name), zap.Int("functions", len(m.funcs)))
	return m, nil
}

func (r *Runtime) runLoad(entry *nifruntime.ModuleEntry) (err error) {
	env := r.newEnv(true)
	env.module = entry.Name
	defer func() {
		if p := recover(); p != nil {
			err = errors.Load("load callback of "+entry.Name+" panicked", fmt.Errorf("%v", p))
		}
	}()
	if err := entry.Load(env); err != nil {
		return errors.Load("load callback of "+entry.Name+" failed", err)
	}
	return nil
}

// Module returns a loaded module by name.
func (r *Runtime) Module(name string) (*Module, bool) {
	r.modMu.RLock()
	defer r.modMu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}

// Modules lists the loaded module names.
func (r *Runtime) Modules() []string {
	r.modMu.RLock()
	out := make([]string, 0, len(r.modules))
	for name := range r.modules {
		out = append(out, name)
	}
	r.modMu.RUnlock()
	sort.Strings(out)
	return out
}

// Call invokes module:fn with args. A raised exception is returned as an
// *Exception error.
func (r *Runtime) Call(ctx context.Context, module, fn string, args ...term.Term) (term.Term, error) {
	m, ok := r.Module(module)
	if !ok {
		return nil, errors.NotFound(errors.PhaseDispatch, "module", module)
	}
	return m.Call(ctx, fn, args...)
}

func (r *Runtime) invoke(ctx context.Context, module string, f nifruntime.Func, args []term.Term) (term.Term, error) {
	if r.closed.Load() {
		return nil, errors.NotInitialized(errors.PhaseDispatch, "runtime")
	}

	var (
		result  term.Term
		exc     *Exception
		callErr error
	)
	call := func() {
		env := r.newEnv(false)
		defer func() {
			if p := recover(); p != nil {
				r.log.Error("entry point panicked",
					zap.String("func", module+":"+funcKey(f.Name, f.Arity)),
					zap.Any("panic", p),
					zap.Stack("stack"))
				callErr = errors.New(errors.PhaseDispatch, errors.KindInvalidData).
					Path(module, funcKey(f.Name, f.Arity)).
					Detail("entry point panicked: %v", p).
					Build()
			}
		}()
		result = f.Entry(env, args)
		if env.raised != nil {
			exc = &Exception{Reason: env.raised, Module: module, Func: f.Name, Arity: f.Arity}
		}
	}

	var err error
	switch {
	case f.Flags&nifruntime.FlagDirtyCPU != 0:
		err = r.dirtyCPU.run(ctx, call)
	case f.Flags&nifruntime.FlagDirtyIO != 0:
		err = r.dirtyIO.run(ctx, call)
	default:
		call()
	}
	// the call never ran when the scheduler failed, so at most one is set
	err = multierr.Append(err, callErr)

	switch {
	case err != nil:
		return nil, err
	case exc != nil:
		return nil, exc
	}
	return result, nil
}

// Request is one call of a batch.
type Request struct {
	Module string
	Func   string
	Args   []term.Term
}

// Result is the outcome of one batch call.
type Result struct {
	Value term.Term
	Err   error
}

// CallBatch runs the requests concurrently, at most BatchConcurrency at a
// time. Results are in request order.
func (r *Runtime) CallBatch(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))
	p := pool.New().WithMaxGoroutines(r.cfg.BatchConcurrency)
	for i, req := range reqs {
		p.Go(func() {
			v, err := r.Call(ctx, req.Module, req.Func, req.Args...)
			results[i] = Result{Value: v, Err: err}
		})
	}
	p.Wait()
	return results
}
