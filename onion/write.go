package onion

import (
	"github.com/pkg/errors"

	"go.onion.dev/core/metrics"
	"go.onion.dev/core/onion/format"
)

// WriteAt writes len(p) bytes of the logical file beginning at offset
// |off|, implementing io.WriterAt. The first write to a page within a
// session copies it: the page image is seeded from the archival index or
// the canonical file, overlaid, appended to the onion file, and entered
// into the revision index. Subsequent writes to the page update that same
// image in place. The logical file extends to cover the written range.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, ErrClosed
	} else if f.mode == ModeReadOnly {
		return 0, errors.WithMessage(ErrUnsupported, "file is read-only")
	} else if off < 0 {
		return 0, errors.WithMessagef(ErrBadArgument, "offset %d", off)
	} else if len(p) == 0 {
		return 0, nil
	}

	var pageSize = uint64(1) << f.pageLog2
	var offset = uint64(off)
	var n int

	for len(p) != 0 {
		var page = offset >> f.pageLog2
		var headGap = offset & (pageSize - 1)

		var chunk = pageSize - headGap
		if chunk > uint64(len(p)) {
			chunk = uint64(len(p))
		}

		if err := f.writePage(page, headGap, p[:chunk]); err != nil {
			return n, err
		}
		p, offset, n = p[chunk:], offset+chunk, n+int(chunk)
	}
	metrics.WriteBytesTotal.Add(float64(n))

	if end := uint64(off) + uint64(n); end > f.logiEOF {
		f.logiEOF = end
	}
	return n, nil
}

// writePage overlays |in| onto page |page| at |headGap| bytes in. A page
// already present in the revision index keeps its physical slot for the
// life of the revision; otherwise a new slot is appended at the onion
// file's history EOF.
func (f *File) writePage(page, headGap uint64, in []byte) error {
	if entry, ok := f.revIndex.Find(page); ok {
		var _, err = f.onion.WriteAt(in, int64(entry.PhysAddr+headGap))
		return errors.WithMessage(err, "updating page in place")
	}

	var pageSize = uint64(1) << f.pageLog2
	var buf = make([]byte, pageSize)

	// Seed the page image, preferring archival contents over canonical.
	if entry, ok := f.archival.Find(page); ok {
		if _, err := f.onion.ReadAt(buf, int64(entry.PhysAddr)); err != nil {
			return errors.WithMessage(err, "seeding page from archival index")
		}
	} else if err := f.readCanonical(page<<f.pageLog2, buf); err != nil {
		return errors.WithMessage(err, "seeding page from canonical file")
	}
	copy(buf[headGap:], in)

	var physAddr = f.historyEOF
	if _, err := f.onion.WriteAt(buf, int64(physAddr)); err != nil {
		return errors.WithMessage(err, "appending page image")
	}
	if err := f.revIndex.Insert(format.IndexEntry{LogiPage: page, PhysAddr: physAddr}); err != nil {
		return err
	}
	f.historyEOF += pageSize

	metrics.PagesCopiedTotal.Inc()
	return nil
}
