// Package index implements the two page maps of an onion file: the sorted,
// immutable archival index of a committed revision, and the hashed revision
// index of pages dirtied by an in-progress revision.
package index

import (
	"sort"

	"github.com/pkg/errors"

	"go.onion.dev/core/onion/format"
)

// Archival is the sorted page map of one committed revision. Entries are
// strictly ascending by LogiPage, and the Entries slice is non-nil even
// when empty.
type Archival struct {
	// PageSizeLog2 is log2 of the file's page size.
	PageSizeLog2 uint8
	// Entries, ascending by LogiPage without duplicates.
	Entries []format.IndexEntry
}

// NewArchival returns an empty, valid Archival index.
func NewArchival(pageSizeLog2 uint8) Archival {
	return Archival{
		PageSizeLog2: pageSizeLog2,
		Entries:      []format.IndexEntry{},
	}
}

// Validate returns an error if the Archival index is inconsistent.
func (a *Archival) Validate() error {
	if a.Entries == nil {
		return errors.New("Entries is nil")
	}
	for i := 1; i < len(a.Entries); i++ {
		if a.Entries[i-1].LogiPage >= a.Entries[i].LogiPage {
			return errors.Errorf("Entries[%d] is not ascending (page %d >= %d)",
				i, a.Entries[i-1].LogiPage, a.Entries[i].LogiPage)
		}
	}
	return nil
}

// Find returns the entry mapping |logiPage|, if present.
func (a *Archival) Find(logiPage uint64) (format.IndexEntry, bool) {
	var n = len(a.Entries)
	if n == 0 || logiPage < a.Entries[0].LogiPage || logiPage > a.Entries[n-1].LogiPage {
		return format.IndexEntry{}, false
	}

	var i = sort.Search(n, func(i int) bool {
		return a.Entries[i].LogiPage >= logiPage
	})
	if i != n && a.Entries[i].LogiPage == logiPage {
		return a.Entries[i], true
	}
	return format.IndexEntry{}, false
}
