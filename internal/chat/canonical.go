package chat

import (
	"encoding/binary"
	"strconv"
	"time"
)

// canonicalize produces an injective byte encoding of the given fields:
// each field is emitted as uvarint(len) followed by the raw bytes. Two
// different field tuples can never encode to the same byte string, no
// matter what characters the fields contain, so the signature digest and
// the AEAD associated data bind exactly one (from, to, ts, msg) tuple.
func canonicalize(fields ...[]byte) []byte {
	size := 0
	for _, f := range fields {
		size += binary.MaxVarintLen64 + len(f)
	}
	out := make([]byte, 0, size)
	var lenBuf [binary.MaxVarintLen64]byte
	for _, f := range fields {
		n := binary.PutUvarint(lenBuf[:], uint64(len(f)))
		out = append(out, lenBuf[:n]...)
		out = append(out, f...)
	}
	return out
}

// timestampBytes renders a timestamp for canonicalization. Millisecond
// precision survives every store backend, so send and load sides always
// agree byte for byte.
func timestampBytes(ts time.Time) []byte {
	return strconv.AppendInt(nil, ts.UnixMilli(), 10)
}

// digestInput is the signed preimage: who said what to whom and when.
func digestInput(from, to string, ts time.Time, plaintext string) []byte {
	return canonicalize([]byte(from), []byte(to), timestampBytes(ts), []byte(plaintext))
}

// aadFor is the associated data sealing a stored copy to its routing
// context. realTo is the logical recipient, which for an archival copy is
// the originalTo field rather than the copy's own routing address.
func aadFor(from, realTo string, ts time.Time) []byte {
	return canonicalize([]byte(from), []byte(realTo), timestampBytes(ts))
}
