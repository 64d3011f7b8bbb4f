// Package atom keeps the process-wide table of named constants exchanged
// with the host.
//
// Package-level Atoms are declared with New before any module is loaded.
// Module bootstrap calls Default.Finalize with the load environment, which
// interns every recorded name; from then on Resolve serves the cached
// handle. Atoms created after finalization are interned the first time they
// are resolved. Handles are cached per host when the environment implements
// Hosted, so each host interns the names into its own table.
//
//	var ready = atom.New("ready")
//
//	h, err := atom.Resolve(env, ready)
//
// Atom values compare by name: atom.New("ok") == atom.OK.
package atom
