// Package transcoder converts between Go values and host terms.
//
// Conversion is driven by the static Go type. A Compiler builds a plan for
// each type once and caches it; decode and encode then walk the plan.
//
//	┌──────────────────────────────────────────────────────┐
//	│ term.Term ←→ [CompiledType plan] ←→ Go value          │
//	└──────────────────────────────────────────────────────┘
//
// # Type Mapping
//
//	Go type                  Term
//	───────────────────────────────────────────────────────
//	bool                     atom true / false
//	int*, uint*              integer (range checked on decode)
//	float32/64               float
//	string                   binary (copied on decode)
//	[]byte                   binary (a view on decode, copied on encode)
//	atom.Atom                atom
//	term.Pid                 local pid
//	term.Term, any           any term, passed through
//	*T, Optional[T]          T, or the atom nil
//	VariantN[...]            first alternative that decodes
//	TupleN[...]              tuple of exactly N elements
//	[]T                      list
//	map[K]V                  map
//	struct implementing      %{__struct__: Tag, field: value, ...}
//	  Struct
//	other structs            %{field: value, ...}
//	TermDecoder/TermEncoder  whatever the type does itself
//
// Struct fields are keyed by the term tag, or the field name in snake_case.
// A tag of "-" skips the field. Every remaining field is required on decode.
//
// # Errors
//
// Decode failures are *errors.Error values in the decode phase whose
// Message reads like "decode failed, expected an integer". Variants treat
// decode failures as "try the next alternative"; any other failure stops
// decoding.
//
// # Resources
//
// Values holding resource.Ptr references can be given back with Release.
// A failed Decode releases what it took before returning.
package transcoder
