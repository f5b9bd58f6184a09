package logstore

// Store is the storage contract a log backend satisfies.
//
// A Store is owned by a single caller context; implementations are not
// required to be safe for concurrent use.
type Store interface {
	// Append adds exactly one entry strictly after the current tail.
	// A non-sequential index is a fatal IntegrityError: the caller has
	// broken the append contract and retrying cannot succeed.
	Append(e Entry) error

	// Write applies an ordered batch. The batch either extends or
	// overwrites the tail (first index <= lastIndex+1), or starts
	// immediately after the installed snapshot. On overwrite, existing
	// entries in (first, lastIndex] not re-supplied by the batch are
	// dropped. Any other start index is a recoverable IntegrityError.
	Write(entries []Entry) error

	// Take returns up to count entries scanning forward from start to
	// the tail. Missing indices are skipped, not errors.
	Take(start uint64, count int) []Entry

	// Fetch returns the entry at index, if present.
	Fetch(index uint64) (Entry, bool)

	// FetchTerm returns only the term of the entry at index, if present.
	FetchTerm(index uint64) (uint64, bool)

	// LastIndexTerm returns the position of the visible tail. When the
	// tail entry was truncated by a snapshot at exactly that index, the
	// snapshot supplies the term. False when the position is unknown.
	LastIndexTerm() (IndexTerm, bool)

	// LastWritten returns the highest acknowledged-durable position.
	LastWritten() IndexTerm

	// HandleWritten processes a durability acknowledgement. The event
	// advances LastWritten only if the entry at ev.Index still carries
	// ev.Term; stale events are dropped silently.
	HandleWritten(ev WrittenEvent)

	// NextIndex returns the index the next Append must use.
	NextIndex() uint64

	// WriteSnapshot installs s unconditionally and deletes all entries
	// with index <= s.Index.
	WriteSnapshot(s Snapshot) error

	// ReadSnapshot returns the installed snapshot, if any.
	ReadSnapshot() (Snapshot, bool)

	// SnapshotIndexTerm returns the installed snapshot's position, if any.
	SnapshotIndexTerm() (IndexTerm, bool)

	// UpdateReleaseCursor hints what prefix may be discarded. Backends
	// with nothing to release treat it as a no-op.
	UpdateReleaseCursor(index uint64, config, state []byte)

	// ReadMeta returns the metadata value for key, if set.
	ReadMeta(key string) ([]byte, bool)

	// WriteMeta sets the metadata value for key.
	WriteMeta(key string, value []byte) error

	// SyncMeta flushes metadata to stable storage where that means
	// anything for the backend.
	SyncMeta() error

	// CanWrite reports whether the backend accepts writes.
	CanWrite() bool

	// Entries materializes the whole table in ascending index order,
	// for diagnostics and tests.
	Entries() []Entry

	// Close releases the backend.
	Close() error
}
