// Package term models the values exchanged with the host runtime.
//
// A Term is an opaque, dynamically typed value owned by the host: atoms,
// integers of arbitrary precision, floats, binaries, tuples, proper lists,
// maps, resource references and process identifiers. Go code never inspects
// host memory directly; it converts terms to and from Go types through the
// transcoder package.
//
// # Ordering
//
// Compare implements the host's standard term order:
//
//	number < atom < reference < pid < tuple < map < list < binary
//
// Numbers compare by value, so Compare(Int(1), Float(1)) == 0. Exact keeps
// integers and floats apart and is the equality used for map keys.
//
// # Text Syntax
//
// Parse and String use an Erlang-like literal syntax, handy for tests and
// for the command line tools:
//
//	{ok, 42}
//	[1, 2.5, "binary", 'Quoted Atom']
//	%{name => "x", count => 3}
//	<<1,2,3>>
//
// Terms are immutable once built. Never compare terms with ==; slices inside
// binaries, tuples and lists make the comparison panic. Use Equal or Exact.
package term
