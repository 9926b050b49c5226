package format

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// IndexEntry maps one logical page to the physical offset of its image
// within the onion file.
type IndexEntry struct {
	LogiPage uint64
	PhysAddr uint64
}

// RevisionRecord is the metadata of one committed revision, including the
// archival index produced by merging the revision's dirtied pages into its
// parent's archival index.
type RevisionRecord struct {
	// Revision and Parent identify this revision and the one it extends.
	// Revision is Parent+1 for all non-root revisions.
	Revision uint64
	Parent   uint64
	// TimeOfCreation is the UTC commit timestamp, TimestampLayout form.
	TimeOfCreation [TimestampSize]byte
	// LogiEOF is the logical file size at commit.
	LogiEOF uint64
	// PageSize repeats the header's page size for self-description.
	PageSize uint32
	// UserID, Username identify the committing user. Comment is free-form.
	UserID   uint32
	Username string
	Comment  string
	// Entries is the archival index, ascending by LogiPage.
	Entries []IndexEntry
}

// stringFieldSize returns the encoded size of an optional string field:
// zero when absent, length plus a trailing NUL when present.
func stringFieldSize(s string) int {
	if s == "" {
		return 0
	}
	return len(s) + 1
}

// EncodedSize returns the encoded byte size of the RevisionRecord.
func (r *RevisionRecord) EncodedSize() int {
	return RevisionRecordFixedSize + IndexEntrySize*len(r.Entries) +
		stringFieldSize(r.Username) + stringFieldSize(r.Comment)
}

// Validate returns an error if the RevisionRecord is inconsistent.
func (r *RevisionRecord) Validate() error {
	if _, err := PageSizeLog2(r.PageSize); err != nil {
		return err
	} else if stringFieldSize(r.Username) > math.MaxUint32 {
		return errors.WithMessage(ErrBadSize, "username too long")
	} else if stringFieldSize(r.Comment) > math.MaxUint32 {
		return errors.WithMessage(ErrBadSize, "comment too long")
	}
	return nil
}

// MarshalBinary encodes the RevisionRecord, stamping per-entry and trailing
// checksums. Index entries encode their absolute logical byte address
// (LogiPage shifted by the page size log2).
func (r *RevisionRecord) MarshalBinary() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	var log2, _ = PageSizeLog2(r.PageSize)
	var b = make([]byte, 0, r.EncodedSize())

	b = putPrologue(b, RevisionRecordSignature)
	b = binary.LittleEndian.AppendUint64(b, r.Revision)
	b = binary.LittleEndian.AppendUint64(b, r.Parent)
	b = append(b, r.TimeOfCreation[:]...)
	b = binary.LittleEndian.AppendUint64(b, r.LogiEOF)
	b = binary.LittleEndian.AppendUint32(b, r.PageSize)
	b = binary.LittleEndian.AppendUint32(b, r.UserID)
	b = binary.LittleEndian.AppendUint64(b, uint64(len(r.Entries)))
	b = binary.LittleEndian.AppendUint32(b, uint32(stringFieldSize(r.Username)))
	b = binary.LittleEndian.AppendUint32(b, uint32(stringFieldSize(r.Comment)))

	for _, entry := range r.Entries {
		var at = len(b)
		b = binary.LittleEndian.AppendUint64(b, entry.LogiPage<<log2)
		b = binary.LittleEndian.AppendUint64(b, entry.PhysAddr)
		b = binary.LittleEndian.AppendUint32(b, Fletcher32(b[at:]))
	}
	if r.Username != "" {
		b = append(b, r.Username...)
		b = append(b, 0x0)
	}
	if r.Comment != "" {
		b = append(b, r.Comment...)
		b = append(b, 0x0)
	}
	b = binary.LittleEndian.AppendUint32(b, Fletcher32(b))

	return b, nil
}

// UnmarshalBinary decodes and verifies an encoded RevisionRecord.
func (r *RevisionRecord) UnmarshalBinary(b []byte) error {
	if err := checkPrologue(b, RevisionRecordSignature); err != nil {
		return err
	} else if len(b) < RevisionRecordFixedSize {
		return errors.WithMessagef(ErrBadSize, "%d byte buffer", len(b))
	}

	r.Revision = binary.LittleEndian.Uint64(b[8:])
	r.Parent = binary.LittleEndian.Uint64(b[16:])
	copy(r.TimeOfCreation[:], b[24:40])
	r.LogiEOF = binary.LittleEndian.Uint64(b[40:])
	r.PageSize = binary.LittleEndian.Uint32(b[48:])
	r.UserID = binary.LittleEndian.Uint32(b[52:])

	var nEntries = binary.LittleEndian.Uint64(b[56:])
	var usernameSize = binary.LittleEndian.Uint32(b[64:])
	var commentSize = binary.LittleEndian.Uint32(b[68:])

	var log2, err = PageSizeLog2(r.PageSize)
	if err != nil {
		return err
	}

	var want = uint64(RevisionRecordFixedSize) + uint64(IndexEntrySize)*nEntries +
		uint64(usernameSize) + uint64(commentSize)
	if nEntries > uint64(len(b))/IndexEntrySize || uint64(len(b)) != want {
		return errors.WithMessagef(ErrBadSize,
			"%d byte buffer, expected %d for %d entries", len(b), want, nEntries)
	} else if err = checkTrailer(b); err != nil {
		return err
	}

	r.Entries = make([]IndexEntry, nEntries)
	for i := range r.Entries {
		var at = 72 + i*IndexEntrySize

		var logiAddr = binary.LittleEndian.Uint64(b[at:])
		var physAddr = binary.LittleEndian.Uint64(b[at+8:])
		var checksum = binary.LittleEndian.Uint32(b[at+16:])

		if got := Fletcher32(b[at : at+16]); got != checksum {
			return errors.WithMessagef(ErrBadChecksum,
				"index entry %d: computed %08x, stored %08x", i, got, checksum)
		} else if logiAddr&(uint64(r.PageSize)-1) != 0 {
			return errors.WithMessagef(ErrBadAlignment,
				"index entry %d: logical address %d, page size %d", i, logiAddr, r.PageSize)
		}
		r.Entries[i] = IndexEntry{LogiPage: logiAddr >> log2, PhysAddr: physAddr}
	}

	var tail = b[72+IndexEntrySize*int(nEntries):]
	if r.Username, err = stringField(tail[:usernameSize], "username"); err != nil {
		return err
	}
	if r.Comment, err = stringField(tail[usernameSize:usernameSize+commentSize], "comment"); err != nil {
		return err
	}
	return nil
}

// stringField decodes an optional string field, requiring its trailing NUL.
func stringField(b []byte, name string) (string, error) {
	if len(b) == 0 {
		return "", nil
	} else if b[len(b)-1] != 0x0 {
		return "", errors.WithMessagef(ErrBadSize, "%s is not NUL-terminated", name)
	}
	return string(b[:len(b)-1]), nil
}
