// Package backend defines the raw-I/O interface over which the onion engine
// reads and writes its three backing byte streams (canonical, onion, and
// recovery files), plus a store implementation backed by an afero.Fs.
package backend

import (
	"io"
)

// File is one backing byte stream: random-access reads and writes, plus its
// current size. Offsets are absolute; the engine performs its own
// end-of-addressable bookkeeping above this interface.
type File interface {
	io.ReaderAt
	io.WriterAt
	io.Closer

	// Size returns the current byte size of the stream.
	Size() (int64, error)
}

// Store opens and removes backing files by path. Implementations must
// return Files which tolerate reads at arbitrary offsets within size, and
// writes which extend the stream past its current size.
type Store interface {
	// Open the file at |path| with os.O_* |flag| bits.
	Open(path string, flag int) (File, error)
	// Remove the file at |path|.
	Remove(path string) error
}

// OnionPath returns the onion sidecar path of canonical file |path|.
func OnionPath(path string) string { return path + ".onion" }

// RecoveryPath returns the recovery sidecar path of canonical file |path|.
func RecoveryPath(path string) string { return OnionPath(path) + ".recovery" }
