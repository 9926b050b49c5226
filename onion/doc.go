// Package onion implements a versioning storage layer which overlays a
// mutable, revision-tracked logical file on top of an immutable canonical
// data file. Writes never modify the canonical file; modified fixed-size
// pages are instead appended to an "onion" sidecar file recording an
// ordered sequence of revisions. A reader opening a revision observes the
// canonical file with all page modifications from the base revision up
// through the selected revision applied on top.
//
// A File is open in one of three modes: create-truncate (initialize a new
// onion over an emptied canonical file), read-only at a chosen revision,
// or read-write (author a new revision atop a chosen parent). Committing
// happens on Close of a writable File: the session's dirtied pages are
// merged into the parent's archival index, a new revision record and
// whole-history are appended to the onion file, and the header at offset
// zero is atomically rewritten to reference them.
//
// The engine is single-threaded and single-writer. The header's write-lock
// flag is the cross-process exclusion mechanism: any opener observing it
// refuses, and a write session clears it only on clean commit. A recovery
// sidecar file holds a copy of the whole-history for the duration of each
// write session, and is unlinked on clean commit.
package onion
