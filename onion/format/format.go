package format

import (
	"encoding/binary"
	"math/bits"

	"github.com/pkg/errors"
)

// Signatures of the three on-disk record types.
const (
	HeaderSignature         = "OHDH"
	HistorySignature        = "OWHS"
	RevisionRecordSignature = "ORRS"
)

// Version is the current (and only) version byte of all record types.
const Version uint8 = 1

// Encoded sizes of fixed-length components, in bytes.
const (
	HeaderEncodedSize       = 40
	HistoryFixedSize        = 20
	RecordPointerSize       = 20
	IndexEntrySize          = 20
	RevisionRecordFixedSize = 76
)

// Flags is the 24-bit flag word of the header.
type Flags uint32

const (
	// FlagWriteLock marks an open read/write session, or an unclean close.
	FlagWriteLock Flags = 0x1
	// FlagDivergentHistory permits branching off a non-latest revision.
	FlagDivergentHistory Flags = 0x2
	// FlagPageAlignment forces page images and records onto page boundaries.
	FlagPageAlignment Flags = 0x4

	// KnownFlags is the union of all assigned flag bits. Flags occupy at
	// most 24 bits; the high byte of the encoded word is always discarded.
	KnownFlags = FlagWriteLock | FlagDivergentHistory | FlagPageAlignment
)

// Validate returns an error if any unknown flag bit is set.
func (f Flags) Validate() error {
	if f&^KnownFlags != 0 {
		return errors.WithMessagef(ErrBadFlags, "flags 0x%06x", uint32(f))
	}
	return nil
}

// Timestamp layout of revision records: exactly 16 ASCII bytes,
// not NUL-terminated.
const (
	TimestampSize   = 16
	TimestampLayout = "20060102T150405Z"
)

// Errors returned by record decoders and validators. Callers classify
// them via errors.Cause.
var (
	ErrBadSignature = errors.New("bad record signature")
	ErrBadVersion   = errors.New("unsupported record version")
	ErrBadChecksum  = errors.New("record checksum mismatch")
	ErrBadSize      = errors.New("record size mismatch")
	ErrBadAlignment = errors.New("logical address is not page-aligned")
	ErrBadFlags     = errors.New("unknown flag bits")
	ErrBadPageSize  = errors.New("page size is not a power of two")
)

// PageSizeLog2 returns log2 of |pageSize|, or ErrBadPageSize if it is
// not a positive power of two.
func PageSizeLog2(pageSize uint32) (uint8, error) {
	if pageSize == 0 || pageSize&(pageSize-1) != 0 {
		return 0, errors.WithMessagef(ErrBadPageSize, "page size %d", pageSize)
	}
	return uint8(bits.TrailingZeros32(pageSize)), nil
}

// putPrologue appends |sig|, the version byte, and three bytes of padding
// shared by the whole-history and revision record prologues.
func putPrologue(b []byte, sig string) []byte {
	b = append(b, sig...)
	return append(b, Version, 0x0, 0x0, 0x0)
}

// checkPrologue verifies the signature and version of an encoded record.
func checkPrologue(b []byte, sig string) error {
	if len(b) < 8 {
		return errors.WithMessagef(ErrBadSize, "%d byte buffer", len(b))
	} else if string(b[:4]) != sig {
		return errors.WithMessagef(ErrBadSignature, "got %q, expected %q", b[:4], sig)
	} else if b[4] != Version {
		return errors.WithMessagef(ErrBadVersion, "version %d", b[4])
	}
	return nil
}

// checkTrailer recomputes the Fletcher-32 of |b| less its trailing checksum
// field, and compares against the stored value.
func checkTrailer(b []byte) error {
	var want = binary.LittleEndian.Uint32(b[len(b)-4:])
	if got := Fletcher32(b[:len(b)-4]); got != want {
		return errors.WithMessagef(ErrBadChecksum, "computed %08x, stored %08x", got, want)
	}
	return nil
}
