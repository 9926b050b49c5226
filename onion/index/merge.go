package index

import (
	"sort"

	"github.com/pkg/errors"
)

// Merge folds the Revision index |rev| into Archival index |arch|,
// installing a new sorted entry list containing every entry of |rev| plus
// every entry of |arch| whose page |rev| does not supersede.
func Merge(rev *Revision, arch *Archival) error {
	if rev.PageSizeLog2 != arch.PageSizeLog2 {
		return errors.Errorf("page size log2 mismatch (%d vs %d)",
			rev.PageSizeLog2, arch.PageSizeLog2)
	} else if err := arch.Validate(); err != nil {
		return err
	}

	var merged = rev.Entries()
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].LogiPage < merged[j].LogiPage
	})
	var nRev = len(merged)

	// Keep parent entries at pages the revision did not touch.
	for _, entry := range arch.Entries {
		var i = sort.Search(nRev, func(i int) bool {
			return merged[i].LogiPage >= entry.LogiPage
		})
		if i == nRev || merged[i].LogiPage != entry.LogiPage {
			merged = append(merged, entry)
		}
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].LogiPage < merged[j].LogiPage
	})

	arch.Entries = merged
	return nil
}
