package pebblelog

import "encoding/binary"

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - ra/log/e/{index_be8}
// - ra/log/m
// - ra/log/w
// - ra/log/s
// - ra/meta/{key}

var (
	entryPrefix    = []byte("ra/log/e/")
	keyLogMeta     = []byte("ra/log/m")
	keyLastWritten = []byte("ra/log/w")
	keySnapshot    = []byte("ra/log/s")
	metaPrefix     = []byte("ra/meta/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// KeyEntry builds the entry key with a big-endian index for proper ordering.
func KeyEntry(index uint64) []byte {
	k := make([]byte, 0, len(entryPrefix)+8)
	k = append(k, entryPrefix...)
	k = appendBE8(k, index)
	return k
}

// KeyMeta builds the metadata-table key for a named key.
func KeyMeta(name string) []byte {
	k := make([]byte, 0, len(metaPrefix)+len(name))
	k = append(k, metaPrefix...)
	k = append(k, name...)
	return k
}

// entryIndex extracts the index from an entry key.
func entryIndex(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(key)-8:])
}
