package onion

import (
	"math"
	"os"
	"os/user"
	"strconv"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"go.onion.dev/core/metrics"
	"go.onion.dev/core/onion/backend"
	"go.onion.dev/core/onion/format"
	"go.onion.dev/core/onion/index"
)

// CanonicalSentinel is written at offset zero of a freshly truncated
// canonical file, marking an empty logical file.
const CanonicalSentinel = "ONIONEOF"

// RevisionLatest selects the most recently committed revision at open.
const RevisionLatest = math.MaxUint64

// Page sizes span 2^9 through 2^22 bytes.
const (
	minPageSizeLog2 = 9
	maxPageSizeLog2 = 22
)

// Mode selects how a File is opened.
type Mode int

const (
	// ModeReadOnly opens an existing onion at a chosen revision.
	ModeReadOnly Mode = iota
	// ModeReadWrite opens an existing onion and authors a new revision,
	// committed on Close.
	ModeReadWrite
	// ModeCreateTruncate truncates the canonical file and initializes a
	// new onion over it.
	ModeCreateTruncate
)

// Target selects where revision history is stored.
type Target int

const (
	// TargetOnionSidecar stores history in a sidecar onion file.
	TargetOnionSidecar Target = iota
	// TargetCanonicalEmbedded is reserved, and refused.
	TargetCanonicalEmbedded
)

// Options configure an Open.
type Options struct {
	// Mode of the open.
	Mode Mode
	// PageSize of a new onion file. Power of two in [512, 4MiB].
	// Create-truncate only; existing files carry their own.
	PageSize uint32
	// Revision to open. RevisionLatest selects the newest.
	Revision uint64
	// CreationFlags is a mask of format.FlagDivergentHistory and
	// format.FlagPageAlignment. Create-truncate only.
	CreationFlags format.Flags
	// Comment to attach to the next commit.
	Comment string
	// Target of history storage.
	Target Target
	// ForceRecovery opens are not supported, and refused.
	ForceRecovery bool

	// UserID and Username override the identity recorded at commit.
	// When unset, they are captured from the process owner.
	UserID   *uint32
	Username string
}

// Validate returns an error if the Options are inconsistent.
func (o *Options) Validate() error {
	if o.Target == TargetCanonicalEmbedded {
		return errors.WithMessage(ErrUnsupported, "canonical-embedded store target")
	} else if o.Target != TargetOnionSidecar {
		return errors.WithMessagef(ErrBadArgument, "target %d", o.Target)
	} else if o.ForceRecovery {
		return errors.WithMessage(ErrUnsupported, "force-recovery open")
	} else if o.CreationFlags&^(format.FlagDivergentHistory|format.FlagPageAlignment) != 0 {
		return errors.WithMessagef(ErrBadArgument, "creation flags 0x%06x", uint32(o.CreationFlags))
	}

	if o.Mode == ModeCreateTruncate {
		var log2, err = format.PageSizeLog2(o.PageSize)
		if err != nil {
			return err
		} else if log2 < minPageSizeLog2 || log2 > maxPageSizeLog2 {
			return errors.WithMessagef(ErrBadArgument, "page size %d is outside [2^%d, 2^%d]",
				o.PageSize, minPageSizeLog2, maxPageSizeLog2)
		}
	}
	return nil
}

// File is an open onion-backed logical file. It owns its in-memory header,
// whole-history, working revision record, archival index, and (in write
// mode) revision index, and borrows its three backing streams from the
// Store for the duration of the open.
type File struct {
	store backend.Store
	mode  Mode
	path  string

	canonical backend.File
	onion     backend.File
	recovery  backend.File

	header   format.Header
	history  format.History
	record   format.RevisionRecord
	archival index.Archival
	revIndex *index.Revision

	pageLog2   uint8
	logiEOF    uint64
	historyEOF uint64
	closed     bool
}

// Open the canonical file at |path| within |store|, with its onion and
// recovery sidecars named by backend.OnionPath and backend.RecoveryPath.
func Open(store backend.Store, path string, opts Options) (*File, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	var f = &File{store: store, mode: opts.Mode, path: path}

	var err error
	switch opts.Mode {
	case ModeCreateTruncate:
		err = f.createTruncate(opts)
	case ModeReadOnly, ModeReadWrite:
		err = f.openExisting(opts)
	default:
		err = errors.WithMessagef(ErrBadArgument, "mode %d", opts.Mode)
	}

	if err != nil {
		// A failed open tears down whatever was established. The onion
		// file is never unlinked; it may hold prior valid history.
		f.teardown()
		return nil, err
	}
	return f, nil
}

// createTruncate initializes a new onion file over a truncated canonical
// file, leaving the File open for write with a root revision in progress.
func (f *File) createTruncate(opts Options) error {
	var err error
	f.pageLog2, _ = format.PageSizeLog2(opts.PageSize)

	f.header = format.Header{
		Flags:     format.FlagWriteLock | opts.CreationFlags,
		PageSize:  opts.PageSize,
		OriginEOF: 0,
	}
	var uid, username = sessionUser(opts)
	f.record = format.RevisionRecord{
		Revision: 0,
		Parent:   0,
		PageSize: opts.PageSize,
		UserID:   uid,
		Username: username,
		Comment:  opts.Comment,
	}

	var flags = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	if f.canonical, err = f.store.Open(f.path, flags); err != nil {
		return errors.WithMessage(err, "opening canonical file")
	}
	if f.onion, err = f.store.Open(backend.OnionPath(f.path), flags); err != nil {
		return errors.WithMessage(err, "opening onion file")
	}
	if f.recovery, err = f.store.Open(backend.RecoveryPath(f.path), flags); err != nil {
		return errors.WithMessage(err, "opening recovery file")
	}

	if _, err = f.canonical.WriteAt([]byte(CanonicalSentinel), 0); err != nil {
		return errors.WithMessage(err, "writing canonical sentinel")
	}

	// The recovery file anchors an empty whole-history until first commit.
	f.history = format.History{Records: []format.RecordPointer{}}
	if b, err2 := f.history.MarshalBinary(); err2 != nil {
		return err2
	} else if _, err = f.recovery.WriteAt(b, 0); err != nil {
		return errors.WithMessage(err, "writing recovery whole-history")
	}

	if err = f.writeHeader(); err != nil {
		return err
	}
	f.historyEOF = f.align(format.HeaderEncodedSize)

	f.archival = index.NewArchival(f.pageLog2)
	f.revIndex = index.NewRevision(f.pageLog2)
	f.logiEOF = 0

	log.WithFields(log.Fields{
		"path":     f.path,
		"pageSize": opts.PageSize,
		"flags":    uint32(f.header.Flags),
	}).Debug("created onion file")
	return nil
}

// openExisting ingests an existing onion file at the revision selected by
// |opts|, and prepares a successor revision if opening for write.
func (f *File) openExisting(opts Options) error {
	var err error

	if f.canonical, err = f.store.Open(f.path, os.O_RDONLY); err != nil {
		return errors.WithMessage(err, "opening canonical file")
	}
	var onionFlags = os.O_RDONLY
	if f.mode == ModeReadWrite {
		onionFlags = os.O_RDWR
	}
	if f.onion, err = f.store.Open(backend.OnionPath(f.path), onionFlags); err != nil {
		return errors.WithMessage(err, "opening onion file")
	}

	if err = f.ingestHeader(); err != nil {
		return err
	} else if f.header.Flags&format.FlagWriteLock != 0 {
		return errors.WithMessagef(ErrWriteLocked, "onion file %q", backend.OnionPath(f.path))
	}
	f.pageLog2, _ = format.PageSizeLog2(f.header.PageSize)

	if err = f.ingestHistory(); err != nil {
		return err
	}

	var revision = opts.Revision
	if revision == RevisionLatest {
		if len(f.history.Records) == 0 {
			return errors.WithMessage(ErrBadArgument, "onion file has no revisions")
		}
		revision = uint64(len(f.history.Records)) - 1
	} else if revision >= uint64(len(f.history.Records)) {
		return errors.WithMessagef(ErrBadArgument, "revision %d is out of range (%d committed)",
			revision, len(f.history.Records))
	}

	if f.record, err = f.ingestRevisionRecord(f.history.Records[revision], revision); err != nil {
		return err
	}
	f.archival = index.Archival{PageSizeLog2: f.pageLog2, Entries: f.record.Entries}
	if f.archival.Entries == nil {
		f.archival.Entries = []format.IndexEntry{}
	}
	if err = f.archival.Validate(); err != nil {
		return errors.WithMessage(ErrCorrupt, err.Error())
	}

	f.logiEOF = f.record.LogiEOF

	var eof int64
	if eof, err = f.onion.Size(); err != nil {
		return errors.WithMessage(err, "sizing onion file")
	}
	f.historyEOF = f.align(uint64(eof))

	if f.mode == ModeReadOnly {
		return nil
	}
	return f.beginWrite(opts, revision)
}

// beginWrite arms an opened File for authoring the successor of |parent|.
func (f *File) beginWrite(opts Options, parent uint64) error {
	if parent != uint64(len(f.history.Records))-1 &&
		f.header.Flags&format.FlagDivergentHistory == 0 {
		return errors.WithMessagef(ErrUnsupported,
			"revision %d is not latest, and the file does not permit divergent history", parent)
	}

	// Copy the current whole-history verbatim into the recovery file.
	// It anchors crash recognition until clean commit.
	var err error
	var flags = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	if f.recovery, err = f.store.Open(backend.RecoveryPath(f.path), flags); err != nil {
		return errors.WithMessage(err, "opening recovery file")
	}
	var raw = make([]byte, f.header.WholeHistorySize)
	if _, err = f.onion.ReadAt(raw, int64(f.header.WholeHistoryAddr)); err != nil {
		return errors.WithMessage(err, "reading whole-history")
	} else if _, err = f.recovery.WriteAt(raw, 0); err != nil {
		return errors.WithMessage(err, "writing recovery whole-history")
	}

	// Take the write-lock before any mutation of the onion file.
	f.header.Flags |= format.FlagWriteLock
	if err = f.writeHeader(); err != nil {
		return err
	}

	var uid, username = sessionUser(opts)
	f.record.Parent = f.record.Revision
	f.record.Revision++
	f.record.UserID = uid
	f.record.Username = username
	f.record.Comment = opts.Comment
	f.revIndex = index.NewRevision(f.pageLog2)

	log.WithFields(log.Fields{
		"path":     f.path,
		"parent":   f.record.Parent,
		"revision": f.record.Revision,
	}).Debug("began onion write session")
	return nil
}

// Close the File. In write mode, Close commits the in-progress revision:
// the revision index is merged into the parent's archival index, the
// revision record and updated whole-history are appended to the onion
// file, the header is rewritten with the write-lock cleared, and the
// recovery file is removed. On a commit failure before the header rewrite
// the write-lock remains set, and the recovery file remains in place.
func (f *File) Close() error {
	if f.closed {
		return ErrClosed
	}
	f.closed = true

	if f.mode == ModeReadOnly {
		f.teardown()
		return nil
	}

	var started = time.Now()
	var err = f.commit()
	metrics.CommitDurationTotal.Add(time.Since(started).Seconds())

	if err != nil {
		metrics.CommitsTotal.WithLabelValues(metrics.Fail).Inc()
		log.WithFields(log.Fields{
			"path": f.path, "revision": f.record.Revision, "err": err,
		}).Warn("onion commit failed; write-lock and recovery file are left in place")
		f.teardown()
		return err
	}
	metrics.CommitsTotal.WithLabelValues(metrics.Ok).Inc()
	return nil
}

// commit runs the revision-commit protocol.
func (f *File) commit() error {
	var stamp = time.Now().UTC().Format(format.TimestampLayout)
	copy(f.record.TimeOfCreation[:], stamp)

	if err := index.Merge(f.revIndex, &f.archival); err != nil {
		return err
	}
	f.revIndex = nil
	f.record.Entries = f.archival.Entries
	f.record.LogiEOF = f.logiEOF

	var recordAddr = f.historyEOF
	var b, err = f.record.MarshalBinary()
	if err != nil {
		return err
	} else if _, err = f.onion.WriteAt(b, int64(recordAddr)); err != nil {
		return errors.WithMessage(err, "writing revision record")
	}
	f.historyEOF = f.align(recordAddr + uint64(len(b)))

	f.history.Records = append(f.history.Records, format.RecordPointer{
		PhysAddr:   recordAddr,
		RecordSize: uint64(len(b)),
	})

	f.header.WholeHistoryAddr = f.historyEOF
	if b, err = f.history.MarshalBinary(); err != nil {
		return err
	} else if _, err = f.onion.WriteAt(b, int64(f.historyEOF)); err != nil {
		return errors.WithMessage(err, "writing whole-history")
	}
	f.header.WholeHistorySize = uint64(len(b))
	f.historyEOF = f.align(f.historyEOF + uint64(len(b)))

	// The header rewrite is the atomic boundary of the commit: until it
	// lands, the prior header still references the prior whole-history.
	f.header.Flags &^= format.FlagWriteLock
	if err = f.writeHeader(); err != nil {
		return err
	}

	if err = f.recovery.Close(); err != nil {
		return errors.WithMessage(err, "closing recovery file")
	}
	f.recovery = nil
	if err = f.store.Remove(backend.RecoveryPath(f.path)); err != nil {
		return errors.WithMessage(err, "removing recovery file")
	}

	metrics.CommittedPagesTotal.Add(float64(len(f.record.Entries)))
	log.WithFields(log.Fields{
		"path":     f.path,
		"revision": f.record.Revision,
		"pages":    len(f.record.Entries),
		"logiEOF":  f.logiEOF,
	}).Info("committed onion revision")

	var errOnion = f.onion.Close()
	f.onion = nil
	var errCanon = f.canonical.Close()
	f.canonical = nil

	if errOnion != nil {
		return errors.WithMessage(errOnion, "closing onion file")
	}
	return errCanon
}

// teardown closes whichever backing files are open, discarding errors.
// It is used by failed opens, read-only Close, failed commits, and
// Revisions.
func (f *File) teardown() {
	for _, file := range []*backend.File{&f.canonical, &f.onion, &f.recovery} {
		if *file != nil {
			_ = (*file).Close()
			*file = nil
		}
	}
	f.revIndex = nil
}

// align rounds |addr| up to the next page boundary when the page-alignment
// flag is set, and returns it unchanged otherwise.
func (f *File) align(addr uint64) uint64 {
	if f.header.Flags&format.FlagPageAlignment == 0 {
		return addr
	}
	var mask = uint64(1)<<f.pageLog2 - 1
	return (addr + mask) &^ mask
}

// Size returns the current logical file size.
func (f *File) Size() int64 { return int64(f.logiEOF) }

// Revision returns a copy of the open (or in-progress) revision record.
func (f *File) Revision() format.RevisionRecord {
	var r = f.record
	r.Entries = append([]format.IndexEntry(nil), f.archival.Entries...)
	return r
}

// History returns a copy of the whole-history of committed revisions.
func (f *File) History() format.History {
	return format.History{
		Records: append([]format.RecordPointer(nil), f.history.Records...),
	}
}

// SetComment replaces the comment recorded at the next commit.
func (f *File) SetComment(comment string) error {
	if f.closed {
		return ErrClosed
	} else if f.mode == ModeReadOnly {
		return errors.WithMessage(ErrUnsupported, "file is read-only")
	} else if len(comment)+1 > math.MaxUint32 {
		return errors.WithMessage(ErrBadArgument, "comment too long")
	}
	f.record.Comment = comment
	return nil
}

// Truncate extends the logical file to |size|, reading as zeros until
// written. Shrinking a logical file is not supported: committed page
// images are immutable.
func (f *File) Truncate(size int64) error {
	if f.closed {
		return ErrClosed
	} else if f.mode == ModeReadOnly {
		return errors.WithMessage(ErrUnsupported, "file is read-only")
	} else if size < 0 {
		return errors.WithMessagef(ErrBadArgument, "size %d", size)
	} else if uint64(size) < f.logiEOF {
		return errors.WithMessage(ErrUnsupported, "shrinking truncation")
	}
	f.logiEOF = uint64(size)
	return nil
}

// sessionUser resolves the identity recorded with a revision.
func sessionUser(opts Options) (uint32, string) {
	if opts.UserID != nil {
		return *opts.UserID, opts.Username
	}
	var uid = uint32(os.Getuid())

	var username = opts.Username
	if username == "" {
		if u, err := user.Current(); err == nil {
			username = u.Username
		} else if u, err2 := user.LookupId(strconv.Itoa(os.Getuid())); err2 == nil {
			username = u.Username
		}
	}
	return uid, username
}
