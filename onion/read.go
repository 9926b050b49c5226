package onion

import (
	"io"

	"github.com/pkg/errors"

	"go.onion.dev/core/metrics"
)

// ReadAt reads len(p) bytes of the logical file beginning at offset |off|,
// implementing io.ReaderAt. Each touched page resolves, in order, against
// the live revision index (write mode), the archival index of the open
// revision, and finally the canonical file, zero-filling beyond the
// canonical extent captured at onion creation.
//
// The addressable extent is the logical EOF rounded up to a page boundary:
// trailing bytes of the final page read as written (or as zeros), and
// reads truncated by the extent return io.EOF.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, ErrClosed
	} else if off < 0 {
		return 0, errors.WithMessagef(ErrBadArgument, "offset %d", off)
	} else if len(p) == 0 {
		return 0, nil
	}

	var pageSize = uint64(1) << f.pageLog2
	var eoa = (f.logiEOF + pageSize - 1) &^ (pageSize - 1)

	if uint64(off) >= eoa {
		return 0, io.EOF
	}
	var short bool
	if uint64(off)+uint64(len(p)) > eoa {
		p, short = p[:eoa-uint64(off)], true
	}
	var offset = uint64(off)
	var n int

	for len(p) != 0 {
		var page = offset >> f.pageLog2
		var headGap = offset & (pageSize - 1)

		var chunk = pageSize - headGap
		if chunk > uint64(len(p)) {
			chunk = uint64(len(p))
		}

		if err := f.readPage(page, headGap, p[:chunk]); err != nil {
			return n, err
		}
		p, offset, n = p[chunk:], offset+chunk, n+int(chunk)
	}
	metrics.ReadBytesTotal.Add(float64(n))

	if short {
		return n, io.EOF
	}
	return n, nil
}

// readPage fills |out| from page |page| starting |headGap| bytes in.
func (f *File) readPage(page, headGap uint64, out []byte) error {
	if f.revIndex != nil {
		if entry, ok := f.revIndex.Find(page); ok {
			metrics.PageReadsTotal.WithLabelValues(metrics.SourceRevision).Inc()
			var _, err = f.onion.ReadAt(out, int64(entry.PhysAddr+headGap))
			return errors.WithMessage(err, "reading page from revision index")
		}
	}
	if entry, ok := f.archival.Find(page); ok {
		metrics.PageReadsTotal.WithLabelValues(metrics.SourceArchival).Inc()
		var _, err = f.onion.ReadAt(out, int64(entry.PhysAddr+headGap))
		return errors.WithMessage(err, "reading page from archival index")
	}
	return f.readCanonical(page<<f.pageLog2+headGap, out)
}

// readCanonical fills |out| from the canonical file at |start|, zero-filling
// all bytes at or beyond the canonical extent captured at onion creation.
func (f *File) readCanonical(start uint64, out []byte) error {
	var n uint64
	if start < f.header.OriginEOF {
		n = f.header.OriginEOF - start
		if n > uint64(len(out)) {
			n = uint64(len(out))
		}
		metrics.PageReadsTotal.WithLabelValues(metrics.SourceCanonical).Inc()
		if _, err := f.canonical.ReadAt(out[:n], int64(start)); err != nil {
			return errors.WithMessage(err, "reading page from canonical file")
		}
	} else {
		metrics.PageReadsTotal.WithLabelValues(metrics.SourceZeroFill).Inc()
	}
	for i := n; i < uint64(len(out)); i++ {
		out[i] = 0
	}
	return nil
}
