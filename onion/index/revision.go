package index

import (
	"github.com/pkg/errors"

	"go.onion.dev/core/onion/format"
)

// startingBucketsLog2 sizes a fresh Revision index at 2^10 buckets.
const startingBucketsLog2 = 10

// ErrPageRemapped is returned by Insert when a page already present in the
// index is inserted again with a different physical address. A page dirtied
// within one revision keeps its slot for the life of the revision.
var ErrPageRemapped = errors.New("page is already mapped to a different physical address")

// chainNode is one link of a bucket's singly linked chain. Nodes are owned
// by the table; dropping the table drops its chains.
type chainNode struct {
	entry format.IndexEntry
	next  *chainNode
}

// Revision is the page map of an in-progress revision: an open-addressed
// table of hash chains, keyed by logical page number. It exists only for
// the duration of one writable session, and is merged into the parent's
// Archival index at commit.
type Revision struct {
	// PageSizeLog2 is log2 of the file's page size.
	PageSizeLog2 uint8

	buckets    []*chainNode
	nEntries   uint64 // Total entries in the table.
	nPopulated uint64 // Buckets with at least one node.
}

// NewRevision returns an empty Revision index.
func NewRevision(pageSizeLog2 uint8) *Revision {
	return &Revision{
		PageSizeLog2: pageSizeLog2,
		buckets:      make([]*chainNode, 1<<startingBucketsLog2),
	}
}

// Len returns the number of indexed pages.
func (r *Revision) Len() uint64 { return r.nEntries }

// bucketOf returns the bucket key of |logiPage| under the current table size.
func (r *Revision) bucketOf(logiPage uint64) uint64 {
	return logiPage & uint64(len(r.buckets)-1)
}

// Insert adds |entry| to the index. Re-inserting an identical entry is a
// no-op update; re-inserting a page with a different physical address is
// ErrPageRemapped.
func (r *Revision) Insert(entry format.IndexEntry) error {
	if r.nEntries >= 2*uint64(len(r.buckets)) || r.nPopulated >= uint64(len(r.buckets))/2 {
		r.resize()
	}
	var key = r.bucketOf(entry.LogiPage)

	var tail = &r.buckets[key]
	for node := r.buckets[key]; node != nil; node = node.next {
		if node.entry.LogiPage == entry.LogiPage {
			if node.entry.PhysAddr != entry.PhysAddr {
				return errors.WithMessagef(ErrPageRemapped,
					"page %d at %d, inserting %d",
					entry.LogiPage, node.entry.PhysAddr, entry.PhysAddr)
			}
			node.entry = entry
			return nil
		}
		tail = &node.next
	}

	if r.buckets[key] == nil {
		r.nPopulated++
	}
	*tail = &chainNode{entry: entry}
	r.nEntries++
	return nil
}

// Find returns a pointer to the index's own entry for |logiPage|, if present.
func (r *Revision) Find(logiPage uint64) (*format.IndexEntry, bool) {
	for node := r.buckets[r.bucketOf(logiPage)]; node != nil; node = node.next {
		if node.entry.LogiPage == logiPage {
			return &node.entry, true
		}
	}
	return nil, false
}

// resize doubles the table, rehashing every node under the widened mask.
// Chain order within a bucket is not preserved.
func (r *Revision) resize() {
	var old = r.buckets
	r.buckets = make([]*chainNode, 2*len(old))
	r.nPopulated = 0

	for _, node := range old {
		for node != nil {
			var next = node.next
			var key = r.bucketOf(node.entry.LogiPage)

			if r.buckets[key] == nil {
				r.nPopulated++
			}
			node.next = r.buckets[key]
			r.buckets[key] = node

			node = next
		}
	}
}

// Entries copies all indexed entries into a new, unordered slice.
func (r *Revision) Entries() []format.IndexEntry {
	var out = make([]format.IndexEntry, 0, r.nEntries)
	for _, node := range r.buckets {
		for ; node != nil; node = node.next {
			out = append(out, node.entry)
		}
	}
	return out
}
