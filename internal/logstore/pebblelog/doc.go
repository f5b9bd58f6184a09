// Package pebblelog implements the durable log store backend on Pebble.
//
// # Overview
//
// It satisfies the same contract as the memory backend, so a node can swap
// between ephemeral and durable storage without touching the consensus
// layer. Keys are lexicographically ordered for efficient range scans:
//   - ra/log/e/{index_be8}  (entries)
//   - ra/log/m              (lastIndex)
//   - ra/log/w              (lastWritten cursor)
//   - ra/log/s              (installed snapshot)
//   - ra/meta/{key}         (metadata table)
//
// Entry records are stored as: varint dataLen | data | term(8B BE) |
// crc32c(data|term). A record that fails its checksum reads as absent.
//
// Batched writes (overwrite pruning included) commit atomically with the
// lastIndex update; fsync behavior follows the wrapped DB's policy. Open
// recovers lastIndex, lastWritten and the snapshot from disk.
package pebblelog
