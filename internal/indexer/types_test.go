package indexer

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Index", func() {
	var index *Index

	ginkgo.BeforeEach(func() {
		index = NewIndex()
	})

	ginkgo.It("should start empty at generation zero", func() {
		snap := index.Snapshot()
		gomega.Expect(snap.Len()).To(gomega.Equal(0))
		gomega.Expect(snap.Generation).To(gomega.BeZero())
		gomega.Expect(snap.BuiltAt.IsZero()).To(gomega.BeTrue())
		gomega.Expect(index.Count()).To(gomega.Equal(0))
	})

	ginkgo.It("should replace the whole snapshot and bump the generation", func() {
		gen := index.Replace([]Entry{{Name: "a", Location: "/a.txt", Category: CategoryDocument}})
		gomega.Expect(gen).To(gomega.Equal(uint64(1)))

		gen = index.Replace([]Entry{
			{Name: "b", Location: "/b.png", Category: CategoryImage},
			{Name: "c", Location: "/c.zip", Category: CategoryArchive},
		})
		gomega.Expect(gen).To(gomega.Equal(uint64(2)))
		gomega.Expect(index.Count()).To(gomega.Equal(2))
		gomega.Expect(index.GetAll()[0].Name).To(gomega.Equal("b"))
	})

	ginkgo.It("should keep earlier snapshots intact after a replace", func() {
		index.Replace([]Entry{{Name: "a", Location: "/a.txt", Category: CategoryDocument}})
		old := index.Snapshot()

		index.Replace(nil)
		gomega.Expect(old.Entries).To(gomega.HaveLen(1))
		gomega.Expect(index.Count()).To(gomega.Equal(0))
	})

	ginkgo.It("should hand out copies from GetAll", func() {
		index.Replace([]Entry{{Name: "a", Location: "/a.txt", Category: CategoryDocument}})
		all := index.GetAll()
		all[0].Name = "changed"
		gomega.Expect(index.Snapshot().Entries[0].Name).To(gomega.Equal("a"))
	})
})

var _ = ginkgo.Describe("Roots", func() {
	ginkgo.It("should append merged roots without touching the receiver", func() {
		base := Roots{Apps: []string{"/apps"}, Files: []string{"/docs"}}
		merged := base.Merge(Roots{Apps: []string{"/more-apps"}, Files: []string{"/more-docs"}})

		gomega.Expect(merged.Apps).To(gomega.Equal([]string{"/apps", "/more-apps"}))
		gomega.Expect(merged.Files).To(gomega.Equal([]string{"/docs", "/more-docs"}))
		gomega.Expect(base.Apps).To(gomega.HaveLen(1))
	})

	ginkgo.It("should provide six user content roots when a home directory exists", func() {
		roots := DefaultRoots()
		gomega.Expect(roots.Apps).NotTo(gomega.BeEmpty())
		gomega.Expect(len(roots.Files)).To(gomega.Or(gomega.Equal(0), gomega.Equal(6)))
	})
})
