package index

import (
	gc "gopkg.in/check.v1"

	"go.onion.dev/core/onion/format"
)

type RevisionSuite struct{}

func (s *RevisionSuite) TestInsertAndFind(c *gc.C) {
	var r = NewRevision(9)

	c.Check(r.Insert(format.IndexEntry{LogiPage: 12, PhysAddr: 512}), gc.IsNil)
	c.Check(r.Insert(format.IndexEntry{LogiPage: 40, PhysAddr: 1024}), gc.IsNil)
	c.Check(r.Len(), gc.Equals, uint64(2))

	var entry, found = r.Find(12)
	c.Check(found, gc.Equals, true)
	c.Check(entry.PhysAddr, gc.Equals, uint64(512))

	_, found = r.Find(13)
	c.Check(found, gc.Equals, false)

	// Re-insert of the identical entry is a no-op update.
	c.Check(r.Insert(format.IndexEntry{LogiPage: 12, PhysAddr: 512}), gc.IsNil)
	c.Check(r.Len(), gc.Equals, uint64(2))

	// Re-insert with a different physical address is a hard error.
	c.Check(r.Insert(format.IndexEntry{LogiPage: 12, PhysAddr: 2048}),
		gc.ErrorMatches, `page 12 at 512, inserting 2048: .*`)
}

func (s *RevisionSuite) TestChainedCollisions(c *gc.C) {
	var r = NewRevision(9)

	// Pages 2^10 apart hash to the same starting bucket.
	for i := uint64(0); i != 4; i++ {
		c.Check(r.Insert(format.IndexEntry{LogiPage: i << 10, PhysAddr: 512 * (i + 1)}), gc.IsNil)
	}
	for i := uint64(0); i != 4; i++ {
		var entry, found = r.Find(i << 10)
		c.Check(found, gc.Equals, true)
		c.Check(entry.PhysAddr, gc.Equals, 512*(i+1))
	}
	c.Check(r.Len(), gc.Equals, uint64(4))
}

func (s *RevisionSuite) TestResizeRetainsEntries(c *gc.C) {
	var r = NewRevision(9)

	// Overflow the populated-buckets predicate several times over.
	const n = 5000
	for i := uint64(0); i != n; i++ {
		c.Check(r.Insert(format.IndexEntry{LogiPage: i, PhysAddr: i * 512}), gc.IsNil)
	}
	c.Check(r.Len(), gc.Equals, uint64(n))

	for i := uint64(0); i != n; i++ {
		var entry, found = r.Find(i)
		c.Check(found, gc.Equals, true)
		c.Check(entry.PhysAddr, gc.Equals, i*512)
	}

	// Every entry lives in the bucket its page hashes to, and each page
	// appears exactly once.
	var seen = make(map[uint64]struct{}, n)
	for _, entry := range r.Entries() {
		var _, dup = seen[entry.LogiPage]
		c.Check(dup, gc.Equals, false)
		seen[entry.LogiPage] = struct{}{}

		var found, ok = r.Find(entry.LogiPage)
		c.Check(ok, gc.Equals, true)
		c.Check(*found, gc.Equals, entry)
	}
	c.Check(len(seen), gc.Equals, n)
}

var _ = gc.Suite(&RevisionSuite{})
