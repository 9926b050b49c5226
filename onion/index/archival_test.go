package index

import (
	"testing"

	gc "gopkg.in/check.v1"

	"go.onion.dev/core/onion/format"
)

type ArchivalSuite struct{}

func (s *ArchivalSuite) TestValidationCases(c *gc.C) {
	var a, model = Archival{}, Archival{
		PageSizeLog2: 9,
		Entries: []format.IndexEntry{
			{LogiPage: 1, PhysAddr: 512},
			{LogiPage: 3, PhysAddr: 1024},
			{LogiPage: 7, PhysAddr: 1536},
		},
	}

	for _, tc := range []struct {
		fn  func()
		err string
	}{
		{func() { a.Entries = nil }, "Entries is nil"},
		{func() { a.Entries[0].LogiPage = 3 }, `Entries\[1\] is not ascending .*`},
		{func() { a.Entries[2].LogiPage = 2 }, `Entries\[2\] is not ascending .*`},
	} {
		c.Check(model.Validate(), gc.IsNil)

		a = model
		a.Entries = append([]format.IndexEntry(nil), model.Entries...)
		tc.fn()
		c.Check(a.Validate(), gc.ErrorMatches, tc.err)
	}

	// An empty index with a non-nil list is valid.
	var empty = NewArchival(9)
	c.Check(empty.Validate(), gc.IsNil)
}

func (s *ArchivalSuite) TestFindCases(c *gc.C) {
	var a = Archival{
		PageSizeLog2: 9,
		Entries: []format.IndexEntry{
			{LogiPage: 1, PhysAddr: 512},
			{LogiPage: 3, PhysAddr: 1024},
			{LogiPage: 7, PhysAddr: 1536},
		},
	}

	for _, tc := range []struct {
		page  uint64
		found bool
		phys  uint64
	}{
		{page: 0, found: false}, // Below the first entry.
		{page: 1, found: true, phys: 512},
		{page: 2, found: false}, // Gap.
		{page: 3, found: true, phys: 1024},
		{page: 5, found: false}, // Gap.
		{page: 7, found: true, phys: 1536},
		{page: 8, found: false}, // Above the last entry.
	} {
		var entry, found = a.Find(tc.page)
		c.Check(found, gc.Equals, tc.found)
		if tc.found {
			c.Check(entry.PhysAddr, gc.Equals, tc.phys)
		}
	}

	// An empty index finds nothing.
	var empty = NewArchival(9)
	var _, found = empty.Find(0)
	c.Check(found, gc.Equals, false)
}

var _ = gc.Suite(&ArchivalSuite{})

func Test(t *testing.T) { gc.TestingT(t) }
