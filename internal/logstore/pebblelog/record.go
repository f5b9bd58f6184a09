package pebblelog

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/phpan/ra/internal/logstore"
)

// Entry record encoding: varint dataLen | data | term(8B BE) | crc32c(data|term)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// EncodeEntry encodes an entry's term and data for storage.
func EncodeEntry(term uint64, data []byte) []byte {
	out := make([]byte, 0, 10+len(data)+8+4)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(len(data)))
	out = append(out, tmp[:n]...)
	out = append(out, data...)
	out = appendBE8(out, term)

	crc := crc32.Update(0, castagnoli, out[n:])
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	out = append(out, crcb[:]...)
	return out
}

// DecodeEntry decodes a stored record. Returns false on any framing or
// checksum failure; a corrupt record reads as absent.
func DecodeEntry(b []byte) (term uint64, data []byte, ok bool) {
	dlen, n := binary.Uvarint(b)
	if n <= 0 {
		return 0, nil, false
	}
	if n+int(dlen)+8+4 != len(b) {
		return 0, nil, false
	}
	body := b[n : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	if crc32.Update(0, castagnoli, body) != expect {
		return 0, nil, false
	}
	data = append([]byte(nil), body[:dlen]...)
	term = binary.BigEndian.Uint64(body[dlen:])
	return term, data, true
}

// Snapshot record encoding: index(8B BE) | term(8B BE) | varint cfgLen |
// config | state | crc32c(everything before the crc)

func encodeSnapshot(s logstore.Snapshot) []byte {
	out := make([]byte, 0, 16+10+len(s.Config)+len(s.State)+4)
	out = appendBE8(out, s.Index)
	out = appendBE8(out, s.Term)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(len(s.Config)))
	out = append(out, tmp[:n]...)
	out = append(out, s.Config...)
	out = append(out, s.State...)

	crc := crc32.Update(0, castagnoli, out)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	return append(out, crcb[:]...)
}

func decodeSnapshot(b []byte) (logstore.Snapshot, bool) {
	if len(b) < 16+1+4 {
		return logstore.Snapshot{}, false
	}
	body := b[:len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	if crc32.Update(0, castagnoli, body) != expect {
		return logstore.Snapshot{}, false
	}
	s := logstore.Snapshot{
		Index: binary.BigEndian.Uint64(body[:8]),
		Term:  binary.BigEndian.Uint64(body[8:16]),
	}
	clen, n := binary.Uvarint(body[16:])
	if n <= 0 || 16+n+int(clen) > len(body) {
		return logstore.Snapshot{}, false
	}
	s.Config = append([]byte(nil), body[16+n:16+n+int(clen)]...)
	s.State = append([]byte(nil), body[16+n+int(clen):]...)
	return s, true
}

// lastWritten cursor encoding: index(8B BE) | term(8B BE)

func encodeIndexTerm(it logstore.IndexTerm) []byte {
	out := make([]byte, 0, 16)
	out = appendBE8(out, it.Index)
	out = appendBE8(out, it.Term)
	return out
}

func decodeIndexTerm(b []byte) (logstore.IndexTerm, bool) {
	if len(b) < 16 {
		return logstore.IndexTerm{}, false
	}
	return logstore.IndexTerm{
		Index: binary.BigEndian.Uint64(b[:8]),
		Term:  binary.BigEndian.Uint64(b[8:16]),
	}, true
}
