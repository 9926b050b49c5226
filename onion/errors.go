package onion

import (
	"github.com/pkg/errors"

	"go.onion.dev/core/onion/format"
)

// Errors of the onion engine. Backend I/O errors are propagated unchanged;
// all other failures wrap one of these sentinels (or a format sentinel),
// and are classified with the Is* predicates below via errors.Cause.
var (
	// ErrBadArgument marks invalid caller input: a bad mode or page size,
	// an out-of-range revision, or a negative read or write offset. Reads
	// past the logical extent return io.EOF instead.
	ErrBadArgument = errors.New("bad argument")
	// ErrCorrupt marks on-disk state which failed structural verification.
	ErrCorrupt = errors.New("corrupt onion file")
	// ErrUnsupported marks operations the engine refuses by design:
	// force-recovery opens, the canonical-embedded store target, writes
	// through a read-only File, or shrinking truncation.
	ErrUnsupported = errors.New("unsupported operation")
	// ErrWriteLocked is returned when opening a file whose header carries
	// the write-lock flag: either another session is writing, or a prior
	// session closed uncleanly.
	ErrWriteLocked = errors.New("onion file is write-locked")
	// ErrClosed is returned by operations on a closed File.
	ErrClosed = errors.New("onion file is closed")
)

// IsBadArgument returns whether the error is of the bad-argument kind.
func IsBadArgument(err error) bool {
	switch errors.Cause(err) {
	case ErrBadArgument, format.ErrBadPageSize, format.ErrBadFlags:
		return true
	}
	return false
}

// IsCorrupt returns whether the error reflects corrupt on-disk state.
func IsCorrupt(err error) bool {
	switch errors.Cause(err) {
	case ErrCorrupt, format.ErrBadSignature, format.ErrBadVersion,
		format.ErrBadChecksum, format.ErrBadSize, format.ErrBadAlignment:
		return true
	}
	return false
}

// IsUnsupported returns whether the error is of the unsupported kind.
func IsUnsupported(err error) bool {
	switch errors.Cause(err) {
	case ErrUnsupported, ErrWriteLocked:
		return true
	}
	return false
}
