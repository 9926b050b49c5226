package index

import (
	"sort"

	gc "gopkg.in/check.v1"

	"go.onion.dev/core/onion/format"
)

type MergeSuite struct{}

func (s *MergeSuite) TestMergeCases(c *gc.C) {
	for _, tc := range []struct {
		rev    []format.IndexEntry // Unordered entries of the revision index.
		arch   []format.IndexEntry // Sorted entries of the parent archival index.
		expect []format.IndexEntry
	}{
		// Both empty.
		{rev: nil, arch: nil, expect: []format.IndexEntry{}},
		// Revision entries only.
		{
			rev:    []format.IndexEntry{{LogiPage: 9, PhysAddr: 90}, {LogiPage: 2, PhysAddr: 20}},
			arch:   nil,
			expect: []format.IndexEntry{{LogiPage: 2, PhysAddr: 20}, {LogiPage: 9, PhysAddr: 90}},
		},
		// Archival entries only.
		{
			rev:    nil,
			arch:   []format.IndexEntry{{LogiPage: 1, PhysAddr: 10}, {LogiPage: 4, PhysAddr: 40}},
			expect: []format.IndexEntry{{LogiPage: 1, PhysAddr: 10}, {LogiPage: 4, PhysAddr: 40}},
		},
		// The revision supersedes overlapping archival pages, and entries
		// interleave in sorted order.
		{
			rev: []format.IndexEntry{
				{LogiPage: 4, PhysAddr: 400},
				{LogiPage: 0, PhysAddr: 0},
				{LogiPage: 6, PhysAddr: 600},
			},
			arch: []format.IndexEntry{
				{LogiPage: 1, PhysAddr: 10},
				{LogiPage: 4, PhysAddr: 40},
				{LogiPage: 5, PhysAddr: 50},
			},
			expect: []format.IndexEntry{
				{LogiPage: 0, PhysAddr: 0},
				{LogiPage: 1, PhysAddr: 10},
				{LogiPage: 4, PhysAddr: 400},
				{LogiPage: 5, PhysAddr: 50},
				{LogiPage: 6, PhysAddr: 600},
			},
		},
	} {
		var rev = NewRevision(9)
		for _, entry := range tc.rev {
			c.Assert(rev.Insert(entry), gc.IsNil)
		}
		var arch = NewArchival(9)
		arch.Entries = append(arch.Entries, tc.arch...)

		c.Check(Merge(rev, &arch), gc.IsNil)
		c.Check(arch.Entries, gc.DeepEquals, tc.expect)
		c.Check(arch.Validate(), gc.IsNil)
	}
}

func (s *MergeSuite) TestMergeIsUnionOfPages(c *gc.C) {
	var rev = NewRevision(12)
	var arch = NewArchival(12)

	for i := uint64(0); i < 100; i += 3 {
		c.Assert(rev.Insert(format.IndexEntry{LogiPage: i, PhysAddr: i + 1000}), gc.IsNil)
	}
	for i := uint64(0); i != 100; i += 5 {
		arch.Entries = append(arch.Entries, format.IndexEntry{LogiPage: i, PhysAddr: i})
	}

	var want = make(map[uint64]uint64)
	for i := uint64(0); i != 100; i += 5 {
		want[i] = i
	}
	for i := uint64(0); i < 100; i += 3 {
		want[i] = i + 1000 // Revision entries supersede.
	}

	c.Check(Merge(rev, &arch), gc.IsNil)
	c.Check(len(arch.Entries), gc.Equals, len(want))
	c.Check(sort.SliceIsSorted(arch.Entries, func(i, j int) bool {
		return arch.Entries[i].LogiPage < arch.Entries[j].LogiPage
	}), gc.Equals, true)

	for _, entry := range arch.Entries {
		c.Check(entry.PhysAddr, gc.Equals, want[entry.LogiPage])
	}
}

func (s *MergeSuite) TestMergeRequiresMatchedPageSize(c *gc.C) {
	var arch = NewArchival(10)
	c.Check(Merge(NewRevision(9), &arch), gc.ErrorMatches, `page size log2 mismatch .*`)
}

var _ = gc.Suite(&MergeSuite{})
