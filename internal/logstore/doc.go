// Package logstore defines the storage contract shared by ra's log backends.
//
// # Overview
//
// A replicated-log node keeps its entries in a Store: a sequenced table of
// (index, term, data) entries plus a small metadata table, an optional
// snapshot standing in for a compacted prefix, and a durability cursor
// (LastWritten) that trails the in-memory tail until writes are acknowledged.
//
// Two backends satisfy the contract:
//   - memory: volatile, I/O-free, for tests and ephemeral nodes
//   - pebblelog: durable, backed by Pebble
//
// The consensus layer drives a Store synchronously. Writes either extend the
// tail (Append, contiguous Write) or overwrite it from some index down
// (a leadership change re-proposing a suffix); overwritten indices not
// re-supplied by the batch are dropped, never merged. Acknowledgement events
// advance LastWritten only when the entry's term still matches, so a stale
// ack from a superseded term can never claim overwritten data as durable.
package logstore
