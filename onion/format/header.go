package format

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Header is the onion file's global metadata, stored at offset zero and
// rewritten on every commit.
type Header struct {
	// Flags of the file: write-lock, divergent-history, page-alignment.
	Flags Flags
	// PageSize is the copy-on-write unit, fixed at creation.
	PageSize uint32
	// OriginEOF is the canonical file size captured at onion creation.
	OriginEOF uint64
	// WholeHistoryAddr and WholeHistorySize locate the current
	// whole-history record within the onion file.
	WholeHistoryAddr uint64
	WholeHistorySize uint64
}

// Validate returns an error if the Header is inconsistent.
func (h *Header) Validate() error {
	if err := h.Flags.Validate(); err != nil {
		return err
	} else if _, err := PageSizeLog2(h.PageSize); err != nil {
		return err
	}
	return nil
}

// MarshalBinary encodes the Header into a HeaderEncodedSize buffer,
// stamping its trailing checksum.
func (h *Header) MarshalBinary() ([]byte, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	var b = make([]byte, 0, HeaderEncodedSize)

	b = append(b, HeaderSignature...)
	b = append(b, Version)

	// Flags encode as a 32-bit little-endian word with its high byte dropped.
	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], uint32(h.Flags))
	b = append(b, word[0], word[1], word[2])

	b = binary.LittleEndian.AppendUint32(b, h.PageSize)
	b = binary.LittleEndian.AppendUint64(b, h.OriginEOF)
	b = binary.LittleEndian.AppendUint64(b, h.WholeHistoryAddr)
	b = binary.LittleEndian.AppendUint64(b, h.WholeHistorySize)
	b = binary.LittleEndian.AppendUint32(b, Fletcher32(b))

	return b, nil
}

// UnmarshalBinary decodes and verifies an encoded Header.
func (h *Header) UnmarshalBinary(b []byte) error {
	if len(b) != HeaderEncodedSize {
		return errors.WithMessagef(ErrBadSize, "%d byte buffer, expected %d", len(b), HeaderEncodedSize)
	} else if string(b[:4]) != HeaderSignature {
		return errors.WithMessagef(ErrBadSignature, "got %q, expected %q", b[:4], HeaderSignature)
	} else if b[4] != Version {
		return errors.WithMessagef(ErrBadVersion, "version %d", b[4])
	} else if err := checkTrailer(b); err != nil {
		return err
	}

	h.Flags = Flags(uint32(b[5]) | uint32(b[6])<<8 | uint32(b[7])<<16)
	h.PageSize = binary.LittleEndian.Uint32(b[8:])
	h.OriginEOF = binary.LittleEndian.Uint64(b[12:])
	h.WholeHistoryAddr = binary.LittleEndian.Uint64(b[20:])
	h.WholeHistorySize = binary.LittleEndian.Uint64(b[28:])

	return h.Validate()
}
