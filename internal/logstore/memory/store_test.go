package memory

import (
	"bytes"
	"testing"

	"github.com/phpan/ra/internal/logstore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(Options{})
}

func ent(idx, term uint64, data string) logstore.Entry {
	return logstore.Entry{Index: idx, Term: term, Data: []byte(data)}
}

func TestFreshStore(t *testing.T) {
	s := newTestStore(t)
	if got := s.NextIndex(); got != 1 {
		t.Fatalf("next index: got %d want 1", got)
	}
	if lw := s.LastWritten(); lw != (logstore.IndexTerm{}) {
		t.Fatalf("last written should start at (0,0): %+v", lw)
	}
	lit, ok := s.LastIndexTerm()
	if !ok || lit != (logstore.IndexTerm{}) {
		t.Fatalf("fresh tail should resolve to (0,0): %+v ok=%v", lit, ok)
	}
	if _, ok := s.SnapshotIndexTerm(); ok {
		t.Fatalf("fresh store should have no snapshot")
	}
	if !s.CanWrite() {
		t.Fatalf("memory backend always accepts writes")
	}
	if got := s.Entries(); len(got) != 0 {
		t.Fatalf("fresh store should materialize empty: %v", got)
	}
}

func TestAppendAdvancesTail(t *testing.T) {
	s := newTestStore(t)
	if err := s.Append(ent(1, 1, "a")); err != nil {
		t.Fatalf("append: %v", err)
	}
	// gaps are legal for append as long as the index moves forward
	if err := s.Append(ent(4, 2, "d")); err != nil {
		t.Fatalf("gapped append: %v", err)
	}
	if got := s.NextIndex(); got != 5 {
		t.Fatalf("next index: got %d want 5", got)
	}
	e, ok := s.Fetch(4)
	if !ok || e.Term != 2 || !bytes.Equal(e.Data, []byte("d")) {
		t.Fatalf("fetch 4: %+v ok=%v", e, ok)
	}
}

func TestAppendOutOfOrderIsFatal(t *testing.T) {
	s := newTestStore(t)
	if err := s.Append(ent(1, 1, "a")); err != nil {
		t.Fatalf("append: %v", err)
	}
	err := s.Append(ent(1, 1, "a"))
	if err == nil {
		t.Fatalf("expected integrity error")
	}
	if !logstore.IsFatal(err) {
		t.Fatalf("out-of-order append must be fatal: %v", err)
	}
}

func TestWriteContiguousEqualsSequentialAppend(t *testing.T) {
	s := newTestStore(t)
	batch := []logstore.Entry{ent(1, 1, "a"), ent(2, 1, "b"), ent(3, 1, "c")}
	if err := s.Write(batch); err != nil {
		t.Fatalf("write: %v", err)
	}

	seq := newTestStore(t)
	for _, e := range batch {
		if err := seq.Append(e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, want := s.Entries(), seq.Entries()
	if len(got) != len(want) {
		t.Fatalf("entry count: got %d want %d", len(got), len(want))
	}
	for i := range got {
		if got[i].Index != want[i].Index || got[i].Term != want[i].Term || !bytes.Equal(got[i].Data, want[i].Data) {
			t.Fatalf("entry %d differs: %+v vs %+v", i, got[i], want[i])
		}
	}
}

func TestWriteOverwritePrunesSupersededTail(t *testing.T) {
	s := newTestStore(t)
	if err := s.Write([]logstore.Entry{ent(1, 1, "a"), ent(2, 1, "b"), ent(3, 1, "c")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	lit, ok := s.LastIndexTerm()
	if !ok || lit.Index != 3 || lit.Term != 1 {
		t.Fatalf("tail before overwrite: %+v ok=%v", lit, ok)
	}

	// a later term re-proposes from index 2; index 3 is abandoned
	if err := s.Write([]logstore.Entry{ent(2, 2, "B")}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if _, ok := s.Fetch(3); ok {
		t.Fatalf("index 3 should be pruned")
	}
	e, ok := s.Fetch(2)
	if !ok || e.Term != 2 || !bytes.Equal(e.Data, []byte("B")) {
		t.Fatalf("fetch 2 after overwrite: %+v ok=%v", e, ok)
	}
	lit, ok = s.LastIndexTerm()
	if !ok || lit.Index != 2 || lit.Term != 2 {
		t.Fatalf("tail after overwrite: %+v ok=%v", lit, ok)
	}
	if got := s.NextIndex(); got != 3 {
		t.Fatalf("next index after overwrite: got %d want 3", got)
	}
}

func TestWriteGapIsRecoverable(t *testing.T) {
	s := newTestStore(t)
	if err := s.Write([]logstore.Entry{ent(1, 1, "a")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := s.Write([]logstore.Entry{ent(5, 1, "e")})
	if err == nil {
		t.Fatalf("expected integrity error for gapped batch")
	}
	if !logstore.IsIntegrity(err) || logstore.IsFatal(err) {
		t.Fatalf("gapped batch must be recoverable: %v", err)
	}
	// caller resynchronizes and retries with the correct range
	if err := s.Write([]logstore.Entry{ent(s.NextIndex(), 1, "b")}); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestWriteEmptyBatchIsNoop(t *testing.T) {
	s := newTestStore(t)
	if err := s.Write(nil); err != nil {
		t.Fatalf("empty write: %v", err)
	}
	if got := s.NextIndex(); got != 1 {
		t.Fatalf("empty write moved the tail: next=%d", got)
	}
}

func TestTakeSkipsHoles(t *testing.T) {
	s := newTestStore(t)
	if err := s.Write([]logstore.Entry{ent(1, 1, "a"), ent(2, 1, "b"), ent(3, 1, "c"), ent(4, 1, "d")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	// gapped appends leave a hole at 3
	s2 := newTestStore(t)
	for _, e := range []logstore.Entry{ent(1, 1, "a"), ent(2, 1, "b"), ent(4, 1, "d")} {
		if err := s2.Append(e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got := s2.Take(1, 10)
	if len(got) != 3 {
		t.Fatalf("take across hole: got %d entries", len(got))
	}
	for i, want := range []uint64{1, 2, 4} {
		if got[i].Index != want {
			t.Fatalf("take order: got %d at %d, want %d", got[i].Index, i, want)
		}
	}

	// count limits the result
	got = s.Take(1, 2)
	if len(got) != 2 || got[0].Index != 1 || got[1].Index != 2 {
		t.Fatalf("take limit: %+v", got)
	}
	// scanning past the tail stops cleanly
	if got := s.Take(9, 5); len(got) != 0 {
		t.Fatalf("take past tail should be empty: %+v", got)
	}
}

func TestFetchAbsenceIsNotError(t *testing.T) {
	s := newTestStore(t)
	if _, ok := s.Fetch(7); ok {
		t.Fatalf("missing index should report absence")
	}
	if _, ok := s.FetchTerm(7); ok {
		t.Fatalf("missing term should report absence")
	}
}

func TestHandleWrittenAdvancesOnTermMatch(t *testing.T) {
	s := newTestStore(t)
	if err := s.Write([]logstore.Entry{ent(1, 1, "a"), ent(2, 1, "b")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	s.HandleWritten(logstore.WrittenEvent{Origin: "wal", Index: 2, Term: 1})
	if lw := s.LastWritten(); lw.Index != 2 || lw.Term != 1 {
		t.Fatalf("last written: %+v", lw)
	}
}

func TestHandleWrittenDropsStaleAck(t *testing.T) {
	s := newTestStore(t)
	if err := s.Write([]logstore.Entry{ent(1, 1, "a"), ent(2, 1, "b")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	// entry 2 is overwritten by term 2 before the term-1 ack arrives
	if err := s.Write([]logstore.Entry{ent(2, 2, "B")}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	s.HandleWritten(logstore.WrittenEvent{Origin: "wal", Index: 2, Term: 1})
	if lw := s.LastWritten(); lw != (logstore.IndexTerm{}) {
		t.Fatalf("stale ack must not advance the cursor: %+v", lw)
	}
	// the fresh ack for the overwriting term does advance it
	s.HandleWritten(logstore.WrittenEvent{Origin: "wal", Index: 2, Term: 2})
	if lw := s.LastWritten(); lw.Index != 2 || lw.Term != 2 {
		t.Fatalf("fresh ack should advance: %+v", lw)
	}
}

func TestWriteSnapshotTruncatesPrefix(t *testing.T) {
	s := newTestStore(t)
	if err := s.Write([]logstore.Entry{ent(1, 1, "a"), ent(2, 1, "b"), ent(3, 1, "c")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	snap := logstore.Snapshot{Index: 2, Term: 1, Config: []byte("cfg"), State: []byte("st")}
	if err := s.WriteSnapshot(snap); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	for idx := uint64(0); idx <= 2; idx++ {
		if _, ok := s.Fetch(idx); ok {
			t.Fatalf("index %d should be subsumed by the snapshot", idx)
		}
	}
	if _, ok := s.Fetch(3); !ok {
		t.Fatalf("index 3 should survive")
	}
	it, ok := s.SnapshotIndexTerm()
	if !ok || it.Index != 2 || it.Term != 1 {
		t.Fatalf("snapshot position: %+v ok=%v", it, ok)
	}
	got, ok := s.ReadSnapshot()
	if !ok || !bytes.Equal(got.Config, []byte("cfg")) || !bytes.Equal(got.State, []byte("st")) {
		t.Fatalf("snapshot payload: %+v ok=%v", got, ok)
	}
}

func TestLastIndexTermSnapshotFallback(t *testing.T) {
	s := newTestStore(t)
	if err := s.Write([]logstore.Entry{ent(1, 1, "a"), ent(2, 1, "b"), ent(3, 2, "c")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	// snapshot lands exactly on the tail; the tail entry is truncated
	// but its position must still resolve through the snapshot
	if err := s.WriteSnapshot(logstore.Snapshot{Index: 3, Term: 2}); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	lit, ok := s.LastIndexTerm()
	if !ok || lit.Index != 3 || lit.Term != 2 {
		t.Fatalf("tail should fall back to snapshot: %+v ok=%v", lit, ok)
	}
}

func TestWriteResumesAfterSnapshot(t *testing.T) {
	s := newTestStore(t)
	// snapshot installed ahead of anything written locally, e.g. a
	// follower receiving an install-snapshot
	if err := s.WriteSnapshot(logstore.Snapshot{Index: 10, Term: 3}); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	if _, ok := s.LastIndexTerm(); ok {
		t.Fatalf("tail is unknown while snapshot is ahead of the log")
	}
	if err := s.Write([]logstore.Entry{ent(11, 3, "k"), ent(12, 3, "l")}); err != nil {
		t.Fatalf("snapshot-aligned write: %v", err)
	}
	lit, ok := s.LastIndexTerm()
	if !ok || lit.Index != 12 || lit.Term != 3 {
		t.Fatalf("tail after resume: %+v ok=%v", lit, ok)
	}
	// a batch that is neither contiguous nor snapshot-aligned stays an error
	s2 := newTestStore(t)
	if err := s2.WriteSnapshot(logstore.Snapshot{Index: 10, Term: 3}); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	if err := s2.Write([]logstore.Entry{ent(13, 3, "m")}); !logstore.IsIntegrity(err) {
		t.Fatalf("misaligned post-snapshot batch: %v", err)
	}
}

func TestMetaTable(t *testing.T) {
	s := newTestStore(t)
	if err := s.WriteMeta(logstore.MetaCurrentTerm, logstore.PutUint64(5)); err != nil {
		t.Fatalf("write meta: %v", err)
	}
	v, ok := s.ReadMeta(logstore.MetaCurrentTerm)
	if !ok {
		t.Fatalf("meta should be present")
	}
	if term, _ := logstore.Uint64(v); term != 5 {
		t.Fatalf("meta value: got %d want 5", term)
	}
	if _, ok := s.ReadMeta(logstore.MetaVotedFor); ok {
		t.Fatalf("untouched key should be absent")
	}
	if err := s.SyncMeta(); err != nil {
		t.Fatalf("sync meta: %v", err)
	}
}

func TestUpdateReleaseCursorIsNoop(t *testing.T) {
	s := newTestStore(t)
	if err := s.Write([]logstore.Entry{ent(1, 1, "a")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	s.UpdateReleaseCursor(1, []byte("cfg"), []byte("st"))
	if _, ok := s.Fetch(1); !ok {
		t.Fatalf("release cursor must not discard anything here")
	}
}

func TestFetchReturnsCopies(t *testing.T) {
	s := newTestStore(t)
	if err := s.Append(ent(1, 1, "abc")); err != nil {
		t.Fatalf("append: %v", err)
	}
	e, _ := s.Fetch(1)
	e.Data[0] = 'X'
	again, _ := s.Fetch(1)
	if !bytes.Equal(again.Data, []byte("abc")) {
		t.Fatalf("caller mutation leaked into the store: %q", again.Data)
	}
}

func TestCloseAlwaysSucceeds(t *testing.T) {
	s := newTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
