// Package registry provides the process-wide table of live render instances.
//
// Each mounted component block owns exactly one Instance, looked up by the
// opaque id stamped onto its render target. An Instance carries a mutable
// data bag for per-instance state (cached watched values, render flags) and
// a cleanup stack that tears down every timer, observer, and retry the
// instance registered.
//
// Ownership is single-writer: the code path holding an instance's id is the
// only mutator of that entry, so the registry itself only guards the table
// for concurrent lookup, insert, and remove.
package registry
