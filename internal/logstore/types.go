package logstore

import "encoding/binary"

// Entry is a single replicated-log entry. Data is opaque to the store.
type Entry struct {
	Index uint64
	Term  uint64
	Data  []byte
}

// IndexTerm is a log position: an index and the term it was written under.
type IndexTerm struct {
	Index uint64
	Term  uint64
}

// Snapshot is a compacted representation of the log up to and including
// Index. Config (cluster membership) and State (machine state) are opaque
// payloads owned by the consensus layer.
type Snapshot struct {
	Index  uint64
	Term   uint64
	Config []byte
	State  []byte
}

// WrittenEvent reports that the entry at (Index, Term) has been persisted.
// Origin identifies the writer that produced the acknowledgement.
type WrittenEvent struct {
	Origin string
	Index  uint64
	Term   uint64
}

// Well-known metadata keys used by the consensus layer.
const (
	MetaCurrentTerm = "current_term"
	MetaVotedFor    = "voted_for"
)

// PutUint64 encodes v as a big-endian metadata value.
func PutUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// Uint64 decodes a metadata value written by PutUint64.
func Uint64(b []byte) (uint64, bool) {
	if len(b) < 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(b[:8]), true
}
