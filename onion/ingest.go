package onion

import (
	"github.com/pkg/errors"

	"go.onion.dev/core/metrics"
	"go.onion.dev/core/onion/format"
)

// boundedRead reads |size| bytes at |addr| of the onion file, first
// verifying the range lies within its current extent.
func (f *File) boundedRead(addr, size uint64, what string) ([]byte, error) {
	var eof, err = f.onion.Size()
	if err != nil {
		return nil, errors.WithMessagef(err, "sizing onion file for %s", what)
	} else if addr+size < addr || addr+size > uint64(eof) {
		return nil, errors.WithMessagef(ErrCorrupt,
			"%s at [%d, %d) exceeds onion file extent %d", what, addr, addr+size, eof)
	}

	var b = make([]byte, size)
	if _, err = f.onion.ReadAt(b, int64(addr)); err != nil {
		return nil, errors.WithMessagef(err, "reading %s", what)
	}
	return b, nil
}

// ingestHeader reads, decodes, and verifies the header at offset zero.
func (f *File) ingestHeader() error {
	var b, err = f.boundedRead(0, format.HeaderEncodedSize, "header")
	if err != nil {
		return err
	}
	if err = f.header.UnmarshalBinary(b); err != nil {
		metrics.RecordDecodeErrorsTotal.Inc()
		return err
	}
	return nil
}

// ingestHistory reads, decodes, and verifies the whole-history referenced
// by the header.
func (f *File) ingestHistory() error {
	var b, err = f.boundedRead(f.header.WholeHistoryAddr, f.header.WholeHistorySize, "whole-history")
	if err != nil {
		return err
	}
	if err = f.history.UnmarshalBinary(b); err != nil {
		metrics.RecordDecodeErrorsTotal.Inc()
		return err
	}
	return nil
}

// ingestRevisionRecord reads, decodes, and verifies the revision record
// referenced by |ptr|, cross-checking its identity and page size.
func (f *File) ingestRevisionRecord(ptr format.RecordPointer, revision uint64) (format.RevisionRecord, error) {
	var record format.RevisionRecord

	var b, err = f.boundedRead(ptr.PhysAddr, ptr.RecordSize, "revision record")
	if err != nil {
		return record, err
	}
	if err = record.UnmarshalBinary(b); err != nil {
		metrics.RecordDecodeErrorsTotal.Inc()
		return record, err
	}

	// Under a divergent history, revision identifiers no longer track
	// history positions: branches reuse the identifier space.
	if record.Revision != revision && f.header.Flags&format.FlagDivergentHistory == 0 {
		return record, errors.WithMessagef(ErrCorrupt,
			"revision record %d identifies itself as %d", revision, record.Revision)
	} else if record.PageSize != f.header.PageSize {
		return record, errors.WithMessagef(ErrCorrupt,
			"revision record page size %d disagrees with header page size %d",
			record.PageSize, f.header.PageSize)
	}
	return record, nil
}

// writeHeader encodes the in-memory header and rewrites offset zero.
func (f *File) writeHeader() error {
	var b, err = f.header.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err = f.onion.WriteAt(b, 0); err != nil {
		return errors.WithMessage(err, "writing header")
	}
	return nil
}
