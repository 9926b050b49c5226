// Package format implements the on-disk record formats of an onion file:
// the header at offset zero, the whole-history, and per-revision records.
// All multi-byte integers are little-endian. Every record carries a four
// byte ASCII signature, a version byte, and a trailing Fletcher-32 checksum
// computed over all preceding bytes of the encoded record.
//
// Records implement encoding.BinaryMarshaler and encoding.BinaryUnmarshaler.
// Unmarshal returns an owning structure and fails on any signature, version,
// size, alignment, or checksum mismatch.
package format
