// Package nifruntime marshals values between Go and an Erlang-style term
// runtime, and exposes Go functions to that runtime as native functions.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	nifruntime/          Root package with the host contracts (Env, LoadEnv, ModuleEntry)
//	├── term/            Term values, ordering and literal syntax
//	├── atom/            Process-wide atom table, finalized at load
//	├── errors/          Structured error types
//	├── resource/        Reference counted resource handles and the host heap
//	├── transcoder/      Typed decode/encode between terms and Go values
//	├── nif/             Module registration, bootstrap and call dispatch
//	├── lock/            Mutex and shared mutex over host lock handles
//	├── runtime/         In-process reference host
//	├── examples/        Example modules (kvstore) and programs
//	└── cmd/run/         Command line host for trying modules
//
// # Quick Start
//
// Declare a module, export Go functions and load it into a host:
//
//	mod := nif.NewModule("math")
//	mod.Export("add", nifruntime.FlagNone, func(env nifruntime.Env, a, b int64) int64 {
//	    return a + b
//	})
//
//	rt, _ := runtime.New(runtime.DefaultConfig())
//	defer rt.Close()
//
//	if _, err := rt.Load(mod.Entry()); err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := rt.Call(ctx, "math", "add", term.Int(1), term.Int(2))
//	fmt.Println(res) // 3
//
// # Value Mapping
//
//   - int64, uint64 and narrower integers: integer
//   - float64: float
//   - bool: atoms true and false
//   - string, []byte: binary
//   - transcoder.Optional[T], *T: nil atom or T
//   - transcoder.TupleN, []T, map[K]V: tuple, list, map
//   - structs: maps, with __struct__ when they implement transcoder.Struct
//   - resource.Ptr[T]: resource reference
//
// # Failures
//
// A Go function never crashes the host. Decode failures raise
// ArgumentError, other errors and panics raise RuntimeError, and nif.Raise
// raises an arbitrary term.
package nifruntime
