package memory

import (
	"sort"

	"github.com/phpan/ra/internal/logstore"
	logpkg "github.com/phpan/ra/pkg/log"
)

type entry struct {
	term uint64
	data []byte
}

// Store is the volatile in-process backend. Not safe for concurrent use.
type Store struct {
	entries     map[uint64]entry
	lastIndex   uint64
	lastWritten logstore.IndexTerm
	snapshot    *logstore.Snapshot
	meta        map[string][]byte
	logger      logpkg.Logger
}

var _ logstore.Store = (*Store)(nil)

// Options configures a memory store.
type Options struct {
	// Logger receives debug-level events (overwrites, truncations,
	// stale acks). Optional.
	Logger logpkg.Logger
}

// New returns a fresh store: an entry table seeded with the (0,0) root
// entry, empty metadata, no snapshot, lastIndex=0, lastWritten=(0,0).
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	return &Store{
		// index 0 is the sentinel position "before the log begins"
		entries: map[uint64]entry{0: {}},
		meta:    make(map[string][]byte),
		logger:  logger.WithComponent("logstore.memory"),
	}
}

// Append adds one entry strictly after the tail. A non-sequential index is
// a fatal IntegrityError.
func (s *Store) Append(e logstore.Entry) error {
	if e.Index <= s.lastIndex {
		return &logstore.IntegrityError{Op: "append", Index: e.Index, Expected: s.lastIndex + 1, Fatal: true}
	}
	s.entries[e.Index] = entry{term: e.Term, data: e.Data}
	s.lastIndex = e.Index
	return nil
}

// Write applies an ordered batch, extending or overwriting the tail, or
// resuming directly after the installed snapshot.
func (s *Store) Write(entries []logstore.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	first := entries[0].Index
	switch {
	case first <= s.lastIndex+1:
		// Overwrite: entries in (first, lastIndex] not re-supplied by
		// this batch are superseded, not merged.
		if first <= s.lastIndex {
			for idx := first + 1; idx <= s.lastIndex; idx++ {
				delete(s.entries, idx)
			}
			s.logger.Debug("overwriting tail",
				logpkg.Uint64("from", first),
				logpkg.Uint64("last_index", s.lastIndex))
		}
	case s.snapshot != nil && first == s.snapshot.Index+1:
		// Batch resumes right after the snapshot boundary; the table
		// below it is already empty. lastIndex may be stale here and is
		// deliberately not cross-checked.
	default:
		return &logstore.IntegrityError{Op: "write", Index: first, Expected: s.lastIndex + 1}
	}
	for _, e := range entries {
		s.entries[e.Index] = entry{term: e.Term, data: e.Data}
	}
	s.lastIndex = entries[len(entries)-1].Index
	return nil
}

// Take returns up to count entries scanning forward from start to the
// tail, skipping missing indices.
func (s *Store) Take(start uint64, count int) []logstore.Entry {
	if count <= 0 {
		return nil
	}
	out := make([]logstore.Entry, 0, count)
	for idx := start; idx <= s.lastIndex; idx++ {
		if e, ok := s.entries[idx]; ok {
			out = append(out, logstore.Entry{Index: idx, Term: e.term, Data: copyData(e.data)})
			if len(out) == count {
				break
			}
		}
	}
	return out
}

// Fetch returns the entry at index, if present.
func (s *Store) Fetch(index uint64) (logstore.Entry, bool) {
	e, ok := s.entries[index]
	if !ok {
		return logstore.Entry{}, false
	}
	return logstore.Entry{Index: index, Term: e.term, Data: copyData(e.data)}, true
}

// FetchTerm returns only the term at index, if present.
func (s *Store) FetchTerm(index uint64) (uint64, bool) {
	e, ok := s.entries[index]
	if !ok {
		return 0, false
	}
	return e.term, true
}

// LastIndexTerm returns the visible tail position. After a snapshot
// truncation the tail entry may no longer exist in the table; when the
// snapshot sits exactly at lastIndex it supplies the term.
func (s *Store) LastIndexTerm() (logstore.IndexTerm, bool) {
	if e, ok := s.entries[s.lastIndex]; ok {
		return logstore.IndexTerm{Index: s.lastIndex, Term: e.term}, true
	}
	if s.snapshot != nil && s.snapshot.Index == s.lastIndex {
		return logstore.IndexTerm{Index: s.lastIndex, Term: s.snapshot.Term}, true
	}
	return logstore.IndexTerm{}, false
}

// LastWritten returns the highest acknowledged-durable position.
func (s *Store) LastWritten() logstore.IndexTerm {
	return s.lastWritten
}

// HandleWritten advances LastWritten iff the entry at ev.Index still
// carries ev.Term. A mismatch means the entry was overwritten by a later
// term after the ack was issued; the stale ack is dropped.
func (s *Store) HandleWritten(ev logstore.WrittenEvent) {
	term, ok := s.FetchTerm(ev.Index)
	if !ok || term != ev.Term {
		s.logger.Debug("dropping stale write ack",
			logpkg.Str("origin", ev.Origin),
			logpkg.Uint64("index", ev.Index),
			logpkg.Uint64("term", ev.Term))
		return
	}
	s.lastWritten = logstore.IndexTerm{Index: ev.Index, Term: ev.Term}
}

// NextIndex returns the index the next Append must use.
func (s *Store) NextIndex() uint64 {
	return s.lastIndex + 1
}

// WriteSnapshot installs s unconditionally and truncates the covered
// prefix. lastIndex is left alone; a snapshot ahead of the tail is
// resumed via the snapshot-aligned Write case.
func (s *Store) WriteSnapshot(snap logstore.Snapshot) error {
	s.snapshot = &snap
	for idx := range s.entries {
		if idx <= snap.Index {
			delete(s.entries, idx)
		}
	}
	s.logger.Debug("installed snapshot",
		logpkg.Uint64("index", snap.Index),
		logpkg.Uint64("term", snap.Term))
	return nil
}

// ReadSnapshot returns the installed snapshot, if any.
func (s *Store) ReadSnapshot() (logstore.Snapshot, bool) {
	if s.snapshot == nil {
		return logstore.Snapshot{}, false
	}
	return *s.snapshot, true
}

// SnapshotIndexTerm returns the installed snapshot's position, if any.
func (s *Store) SnapshotIndexTerm() (logstore.IndexTerm, bool) {
	if s.snapshot == nil {
		return logstore.IndexTerm{}, false
	}
	return logstore.IndexTerm{Index: s.snapshot.Index, Term: s.snapshot.Term}, true
}

// UpdateReleaseCursor is a no-op: there is nothing to release in memory.
// Retained for interface parity with the durable backend.
func (s *Store) UpdateReleaseCursor(uint64, []byte, []byte) {}

// ReadMeta returns the metadata value for key, if set.
func (s *Store) ReadMeta(key string) ([]byte, bool) {
	v, ok := s.meta[key]
	if !ok {
		return nil, false
	}
	return copyData(v), true
}

// WriteMeta sets the metadata value for key. Never fails here: there is
// no I/O to fail.
func (s *Store) WriteMeta(key string, value []byte) error {
	s.meta[key] = value
	return nil
}

// SyncMeta is a no-op: nothing to flush.
func (s *Store) SyncMeta() error { return nil }

// CanWrite always reports true: memory has no backpressure source.
func (s *Store) CanWrite() bool { return true }

// Entries materializes the table in ascending index order. The sentinel
// root entry at index 0 is not user data and is excluded.
func (s *Store) Entries() []logstore.Entry {
	idxs := make([]uint64, 0, len(s.entries))
	for idx := range s.entries {
		if idx == 0 {
			continue
		}
		idxs = append(idxs, idx)
	}
	sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })
	out := make([]logstore.Entry, 0, len(idxs))
	for _, idx := range idxs {
		e := s.entries[idx]
		out = append(out, logstore.Entry{Index: idx, Term: e.term, Data: copyData(e.data)})
	}
	return out
}

// Close releases nothing observable: state is volatile by design.
func (s *Store) Close() error { return nil }

func copyData(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
