// Package memory implements the volatile, in-process log store backend.
//
// # Overview
//
// The backend keeps the whole storage contract in plain maps: the entry
// table, the metadata table, the installed snapshot and the two cursors
// (lastIndex, lastWritten). Every operation is an immediate state transition
// with no I/O, no background work and no suspension point, which makes the
// backend suitable for driving the consensus layer in tests and for
// ephemeral nodes that accept losing state on process termination.
//
// Durability acknowledgement is emulated: writes do not advance LastWritten
// by themselves; the owner dispatches a WrittenEvent (as a real asynchronous
// backend would) and HandleWritten advances the cursor only when the
// acknowledged term still matches the stored entry.
//
// A Store is not safe for concurrent use. It is owned by exactly one caller
// context at a time; concurrent callers serialize externally.
package memory
