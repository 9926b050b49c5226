package format

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// RecordPointer locates one committed revision record within the onion file.
type RecordPointer struct {
	// PhysAddr is the byte offset of the revision record.
	PhysAddr uint64
	// RecordSize is the encoded size of the revision record.
	RecordSize uint64
	// Checksum covers the 16 encoded bytes of PhysAddr and RecordSize.
	// It is recomputed on encode and verified on decode.
	Checksum uint32
}

// History is the whole-history: an ordered list of pointers to every
// committed revision record, in commit order.
type History struct {
	Records []RecordPointer
}

// EncodedSize returns the encoded byte size of the History.
func (h *History) EncodedSize() int {
	return HistoryFixedSize + RecordPointerSize*len(h.Records)
}

// Validate returns an error if record pointers are not strictly ascending
// by physical address.
func (h *History) Validate() error {
	for i := 1; i < len(h.Records); i++ {
		if h.Records[i-1].PhysAddr >= h.Records[i].PhysAddr {
			return errors.WithMessagef(ErrBadSize,
				"record pointer %d is not ascending (%d >= %d)",
				i, h.Records[i-1].PhysAddr, h.Records[i].PhysAddr)
		}
	}
	return nil
}

// MarshalBinary encodes the History, recomputing every pointer checksum and
// stamping the trailing record checksum.
func (h *History) MarshalBinary() ([]byte, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	var b = make([]byte, 0, h.EncodedSize())

	b = putPrologue(b, HistorySignature)
	b = binary.LittleEndian.AppendUint64(b, uint64(len(h.Records)))

	for i := range h.Records {
		var ptr = &h.Records[i]
		var at = len(b)

		b = binary.LittleEndian.AppendUint64(b, ptr.PhysAddr)
		b = binary.LittleEndian.AppendUint64(b, ptr.RecordSize)

		ptr.Checksum = Fletcher32(b[at:])
		b = binary.LittleEndian.AppendUint32(b, ptr.Checksum)
	}
	b = binary.LittleEndian.AppendUint32(b, Fletcher32(b))

	return b, nil
}

// UnmarshalBinary decodes and verifies an encoded History, including the
// per-pointer checksums.
func (h *History) UnmarshalBinary(b []byte) error {
	if err := checkPrologue(b, HistorySignature); err != nil {
		return err
	} else if len(b) < HistoryFixedSize {
		return errors.WithMessagef(ErrBadSize, "%d byte buffer", len(b))
	}

	var n = binary.LittleEndian.Uint64(b[8:])
	if want := uint64(HistoryFixedSize) + RecordPointerSize*n; n > uint64(len(b))/RecordPointerSize || uint64(len(b)) != want {
		return errors.WithMessagef(ErrBadSize,
			"%d byte buffer, expected %d for %d revisions", len(b), want, n)
	} else if err := checkTrailer(b); err != nil {
		return err
	}

	h.Records = make([]RecordPointer, n)
	for i := range h.Records {
		var at = 16 + i*RecordPointerSize
		var ptr = &h.Records[i]

		ptr.PhysAddr = binary.LittleEndian.Uint64(b[at:])
		ptr.RecordSize = binary.LittleEndian.Uint64(b[at+8:])
		ptr.Checksum = binary.LittleEndian.Uint32(b[at+16:])

		if got := Fletcher32(b[at : at+16]); got != ptr.Checksum {
			return errors.WithMessagef(ErrBadChecksum,
				"record pointer %d: computed %08x, stored %08x", i, got, ptr.Checksum)
		}
	}
	return h.Validate()
}
