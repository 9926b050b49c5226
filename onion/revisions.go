package onion

import (
	"os"

	"github.com/pkg/errors"

	"go.onion.dev/core/onion/backend"
	"go.onion.dev/core/onion/format"
)

// Revisions sweeps the onion sidecar of canonical file |path|, returning
// its header, whole-history, and every committed revision record. It opens
// only the onion file, and refuses a write-locked one.
func Revisions(store backend.Store, path string) (format.Header, format.History, []format.RevisionRecord, error) {
	var f = &File{store: store, mode: ModeReadOnly, path: path}

	var err error
	if f.onion, err = store.Open(backend.OnionPath(path), os.O_RDONLY); err != nil {
		return f.header, f.history, nil, errors.WithMessage(err, "opening onion file")
	}
	defer f.teardown()

	if err = f.ingestHeader(); err != nil {
		return f.header, f.history, nil, err
	} else if f.header.Flags&format.FlagWriteLock != 0 {
		return f.header, f.history, nil,
			errors.WithMessagef(ErrWriteLocked, "onion file %q", backend.OnionPath(path))
	}
	if err = f.ingestHistory(); err != nil {
		return f.header, f.history, nil, err
	}

	var records = make([]format.RevisionRecord, 0, len(f.history.Records))
	for i, ptr := range f.history.Records {
		var record format.RevisionRecord
		if record, err = f.ingestRevisionRecord(ptr, uint64(i)); err != nil {
			return f.header, f.history, nil, err
		}
		records = append(records, record)
	}
	return f.header, f.history, records, nil
}
