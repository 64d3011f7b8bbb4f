// Package nif turns Go functions into native functions a host can call.
//
// A Module is built at program start and handed to the host:
//
//	m := nif.NewModule("counter")
//	nif.RegisterResource[Counter](m, "Counter")
//	m.Export("new", nifruntime.FlagNone, func(env nifruntime.Env, start int64) (resource.Ptr[Counter], error) {
//		return resource.Make(env, Counter{n: start})
//	})
//	entry := m.Entry()
//
// When the host loads the module the atom table is finalized and every
// resource type is opened. Loading fails if any of that fails, or if a
// registration was invalid.
//
// # Failures
//
// Nothing escapes a call as a Go panic. Failures become exceptions:
//
//	failure                        raised as
//	──────────────────────────────────────────────────────────────
//	wrong argument count           binary "wrong number of arguments"
//	argument decode error          %ArgumentError{message: ...}
//	other error                    %RuntimeError{message: ...}
//	nif.Raise(env, v)              v, encoded
//	panic without an error value   %RuntimeError{message: "unknown exception thrown within NIF"}
package nif
