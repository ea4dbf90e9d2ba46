package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// entryHash computes the chain hash for an entry: SHA-256 over the
// previous hash and the entry's content. Fields are length-delimited so
// no two contents collide by concatenation, and the timestamp enters as
// UnixNano, which is exactly what the stores persist.
func entryHash(e *Entry) string {
	h := sha256.New()

	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], e.Sequence)

	writeField := func(b []byte) {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(b)))
		h.Write(n[:])
		h.Write(b)
	}

	writeField([]byte(e.PrevHash))
	writeField(seq[:])
	writeField([]byte(e.EntryID))
	writeField([]byte(e.CaseID))
	writeField([]byte(e.Kind))
	writeField(e.Payload)

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(e.RecordedAt.UnixNano()))
	writeField(ts[:])

	return hex.EncodeToString(h.Sum(nil))
}
