// Package errors provides structured error types for the nif-runtime library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, Go type and term kind, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
//		Path("user", "age").
//		GoType("int64").
//		TermType("binary").
//		Detail("decode failed, expected an integer").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Expected(path, "int64", "an integer")
//	err := errors.FieldMissing(path, "name")
//
// Decode-phase errors become ArgumentError exceptions when they escape a
// dispatched call; Message returns the text the host sees.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
