// Package runtime is an in-process host for native modules.
//
// It implements the host side of nifruntime.Env: an atom table, term
// construction, reference counted resource objects with destructor
// callbacks, lock handles, module loading and a call table with dirty
// schedulers. It backs the tests and the run command.
//
// # Quick Start
//
//	rt, err := runtime.New(runtime.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	if _, err := rt.Load(mod.Entry()); err != nil {
//	    log.Fatal(err)
//	}
//
//	out, err := rt.Call(ctx, "math", "add", term.Int(1), term.Int(2))
//	var exc *runtime.Exception
//	if errors.As(err, &exc) {
//	    msg, _ := exc.Message()
//	    fmt.Println("raised:", msg)
//	}
//
// # Configuration
//
// LoadConfig reads a YAML, TOML or JSON file over the defaults:
//
//	node: demo@localhost
//	atom_encoding: latin1
//	max_atoms: 100000
//	max_binary_size: 1048576
//	dirty_cpu_workers: 4
//	dirty_io_workers: 10
//	batch_concurrency: 8
//
// # Scheduling
//
// Functions flagged FlagDirtyCPU or FlagDirtyIO run on the matching worker
// pool. The context passed to Call bounds the wait for a free worker; a
// call that started always runs to completion.
//
// # Resources
//
// Every resource term holds a reference to its object, given back when
// the term is garbage collected. Close destroys whatever is still alive.
//
// # Thread Safety
//
// Runtime and Module are safe for concurrent use. The Env handed to a
// native function belongs to that call.
package runtime
