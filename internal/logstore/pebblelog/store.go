package pebblelog

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/phpan/ra/internal/logstore"
	pebblestore "github.com/phpan/ra/internal/storage/pebble"
	logpkg "github.com/phpan/ra/pkg/log"
)

// Store is the durable log backend. The contract expects a single owner;
// the cursor bookkeeping still takes a mutex so read paths shared with the
// CLI stay coherent.
type Store struct {
	db     *pebblestore.DB
	logger logpkg.Logger

	mu          sync.Mutex
	lastIndex   uint64
	lastWritten logstore.IndexTerm
	snapshot    *logstore.Snapshot
	closed      bool
}

var _ logstore.Store = (*Store)(nil)

// Options configures a durable store.
type Options struct {
	// Logger receives debug-level events. Optional.
	Logger logpkg.Logger
}

// Open initializes a Store over db, recovering lastIndex, lastWritten and
// the installed snapshot. A fresh store is seeded with the (0,0) root
// entry so both backends resolve the same positions.
func Open(db *pebblestore.DB, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	s := &Store{db: db, logger: logger.WithComponent("logstore.pebble")}

	meta, err := db.Get(keyLogMeta)
	switch {
	case err == nil:
		if len(meta) >= 8 {
			s.lastIndex = binary.BigEndian.Uint64(meta[:8])
		}
	case pebblestore.IsNotFound(err):
		// fresh store: seed the sentinel root entry and zero meta
		b := db.NewBatch()
		defer b.Close()
		if err := b.Set(KeyEntry(0), EncodeEntry(0, nil), nil); err != nil {
			return nil, err
		}
		if err := b.Set(keyLogMeta, appendBE8(nil, 0), nil); err != nil {
			return nil, err
		}
		if err := db.CommitBatch(context.Background(), b); err != nil {
			return nil, fmt.Errorf("seed store: %w", err)
		}
	default:
		return nil, fmt.Errorf("read log meta: %w", err)
	}

	if v, err := db.Get(keyLastWritten); err == nil {
		if it, ok := decodeIndexTerm(v); ok {
			s.lastWritten = it
		}
	} else if !pebblestore.IsNotFound(err) {
		return nil, fmt.Errorf("read last written: %w", err)
	}

	if v, err := db.Get(keySnapshot); err == nil {
		if snap, ok := decodeSnapshot(v); ok {
			s.snapshot = &snap
		}
	} else if !pebblestore.IsNotFound(err) {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	s.logger.Debug("store opened",
		logpkg.Uint64("last_index", s.lastIndex),
		logpkg.Uint64("last_written", s.lastWritten.Index))
	return s, nil
}

// Append adds one entry strictly after the tail and commits it with the
// lastIndex update in a single batch.
func (s *Store) Append(e logstore.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Index <= s.lastIndex {
		return &logstore.IntegrityError{Op: "append", Index: e.Index, Expected: s.lastIndex + 1, Fatal: true}
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(KeyEntry(e.Index), EncodeEntry(e.Term, e.Data), nil); err != nil {
		return err
	}
	if err := b.Set(keyLogMeta, appendBE8(nil, e.Index), nil); err != nil {
		return err
	}
	if err := s.db.CommitBatch(context.Background(), b); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	s.lastIndex = e.Index
	return nil
}

// Write applies an ordered batch atomically. Overwrites prune the
// superseded range (first, lastIndex] with a ranged delete before the new
// entries land, all in one commit.
func (s *Store) Write(entries []logstore.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	first := entries[0].Index
	b := s.db.NewBatch()
	defer b.Close()

	switch {
	case first <= s.lastIndex+1:
		if first <= s.lastIndex {
			if err := b.DeleteRange(KeyEntry(first+1), KeyEntry(s.lastIndex+1), nil); err != nil {
				return err
			}
			s.logger.Debug("overwriting tail",
				logpkg.Uint64("from", first),
				logpkg.Uint64("last_index", s.lastIndex))
		}
	case s.snapshot != nil && first == s.snapshot.Index+1:
		// resume directly after the snapshot boundary
	default:
		return &logstore.IntegrityError{Op: "write", Index: first, Expected: s.lastIndex + 1}
	}

	for _, e := range entries {
		if err := b.Set(KeyEntry(e.Index), EncodeEntry(e.Term, e.Data), nil); err != nil {
			return err
		}
	}
	last := entries[len(entries)-1].Index
	if err := b.Set(keyLogMeta, appendBE8(nil, last), nil); err != nil {
		return err
	}
	if err := s.db.CommitBatch(context.Background(), b); err != nil {
		return fmt.Errorf("commit write: %w", err)
	}
	s.lastIndex = last
	return nil
}

// Take returns up to count entries scanning forward from start to the
// tail. Holes (trimmed or corrupt records) are skipped.
func (s *Store) Take(start uint64, count int) []logstore.Entry {
	if count <= 0 {
		return nil
	}
	s.mu.Lock()
	last := s.lastIndex
	s.mu.Unlock()
	if start > last {
		return nil
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: KeyEntry(start),
		UpperBound: KeyEntry(last + 1),
	})
	if err != nil {
		return nil
	}
	defer iter.Close()

	out := make([]logstore.Entry, 0, count)
	for ok := iter.First(); ok && len(out) < count; ok = iter.Next() {
		idx := entryIndex(iter.Key())
		term, data, okDec := DecodeEntry(iter.Value())
		if !okDec {
			continue
		}
		out = append(out, logstore.Entry{Index: idx, Term: term, Data: data})
	}
	return out
}

// Fetch returns the entry at index, if present.
func (s *Store) Fetch(index uint64) (logstore.Entry, bool) {
	v, err := s.db.Get(KeyEntry(index))
	if err != nil {
		return logstore.Entry{}, false
	}
	term, data, ok := DecodeEntry(v)
	if !ok {
		return logstore.Entry{}, false
	}
	return logstore.Entry{Index: index, Term: term, Data: data}, true
}

// FetchTerm returns only the term at index, if present.
func (s *Store) FetchTerm(index uint64) (uint64, bool) {
	e, ok := s.Fetch(index)
	if !ok {
		return 0, false
	}
	return e.Term, true
}

// LastIndexTerm returns the visible tail position, falling back to the
// snapshot term when the tail entry was truncated at exactly that index.
func (s *Store) LastIndexTerm() (logstore.IndexTerm, bool) {
	s.mu.Lock()
	last := s.lastIndex
	snap := s.snapshot
	s.mu.Unlock()

	if term, ok := s.FetchTerm(last); ok {
		return logstore.IndexTerm{Index: last, Term: term}, true
	}
	if snap != nil && snap.Index == last {
		return logstore.IndexTerm{Index: last, Term: snap.Term}, true
	}
	return logstore.IndexTerm{}, false
}

// LastWritten returns the highest acknowledged-durable position.
func (s *Store) LastWritten() logstore.IndexTerm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastWritten
}

// HandleWritten advances and persists the durability cursor iff the entry
// at ev.Index still carries ev.Term.
func (s *Store) HandleWritten(ev logstore.WrittenEvent) {
	term, ok := s.FetchTerm(ev.Index)
	if !ok || term != ev.Term {
		s.logger.Debug("dropping stale write ack",
			logpkg.Str("origin", ev.Origin),
			logpkg.Uint64("index", ev.Index),
			logpkg.Uint64("term", ev.Term))
		return
	}
	it := logstore.IndexTerm{Index: ev.Index, Term: ev.Term}
	if err := s.db.Set(keyLastWritten, encodeIndexTerm(it)); err != nil {
		s.logger.Error("persist write cursor", logpkg.Err(err), logpkg.Uint64("index", ev.Index))
		return
	}
	s.mu.Lock()
	s.lastWritten = it
	s.mu.Unlock()
}

// NextIndex returns the index the next Append must use.
func (s *Store) NextIndex() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastIndex + 1
}

// WriteSnapshot installs snap and truncates the covered prefix in one
// atomic commit.
func (s *Store) WriteSnapshot(snap logstore.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(keySnapshot, encodeSnapshot(snap), nil); err != nil {
		return err
	}
	if err := b.DeleteRange(KeyEntry(0), KeyEntry(snap.Index+1), nil); err != nil {
		return err
	}
	if err := s.db.CommitBatch(context.Background(), b); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	s.snapshot = &snap
	s.logger.Debug("installed snapshot",
		logpkg.Uint64("index", snap.Index),
		logpkg.Uint64("term", snap.Term))
	return nil
}

// ReadSnapshot returns the installed snapshot, if any.
func (s *Store) ReadSnapshot() (logstore.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return logstore.Snapshot{}, false
	}
	return *s.snapshot, true
}

// SnapshotIndexTerm returns the installed snapshot's position, if any.
func (s *Store) SnapshotIndexTerm() (logstore.IndexTerm, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return logstore.IndexTerm{}, false
	}
	return logstore.IndexTerm{Index: s.snapshot.Index, Term: s.snapshot.Term}, true
}

// UpdateReleaseCursor discards entries at or below index: once the state
// machine has consumed a prefix that a snapshot covers, the backend may
// reclaim it. Best-effort; a failed trim only logs.
func (s *Store) UpdateReleaseCursor(index uint64, config, state []byte) {
	if err := func() error {
		b := s.db.NewBatch()
		defer b.Close()
		if err := b.DeleteRange(KeyEntry(0), KeyEntry(index+1), nil); err != nil {
			return err
		}
		return s.db.CommitBatch(context.Background(), b)
	}(); err != nil {
		s.logger.Error("release prefix", logpkg.Err(err), logpkg.Uint64("index", index))
	}
}

// ReadMeta returns the metadata value for key, if set.
func (s *Store) ReadMeta(key string) ([]byte, bool) {
	v, err := s.db.Get(KeyMeta(key))
	if err != nil {
		return nil, false
	}
	return v, true
}

// WriteMeta sets the metadata value for key.
func (s *Store) WriteMeta(key string, value []byte) error {
	return s.db.Set(KeyMeta(key), value)
}

// SyncMeta flushes the memtable and WAL to stable storage.
func (s *Store) SyncMeta() error {
	return s.db.Flush()
}

// CanWrite reports whether the backend accepts writes.
func (s *Store) CanWrite() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Entries materializes the table in ascending index order, sentinel
// excluded.
func (s *Store) Entries() []logstore.Entry {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: KeyEntry(1),
		UpperBound: append(KeyEntry(^uint64(0)), 0x00),
	})
	if err != nil {
		return nil
	}
	defer iter.Close()

	var out []logstore.Entry
	for ok := iter.First(); ok; ok = iter.Next() {
		idx := entryIndex(iter.Key())
		term, data, okDec := DecodeEntry(iter.Value())
		if !okDec {
			continue
		}
		out = append(out, logstore.Entry{Index: idx, Term: term, Data: data})
	}
	return out
}

// Close detaches the store. The wrapped DB is owned by the caller and
// stays open.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
