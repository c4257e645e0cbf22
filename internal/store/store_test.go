package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanzaworks/stanza/api"
)

func post(slug, title string, chain ...api.TaxonomyRef) *api.ContentItem {
	return &api.ContentItem{
		Slug:       slug,
		Title:      title,
		Body:       "<p>" + title + "</p>",
		SourcePath: slug + ".md",
		Published:  true,
		Kind:       api.KindPost,
		Taxonomies: chain,
	}
}

func blogChain() []api.TaxonomyRef {
	return []api.TaxonomyRef{{Title: "Blog", Slug: "/blog"}}
}

func TestSaveContentItemUpsertsAndLinks(t *testing.T) {
	s := New()
	require.NoError(t, s.SaveContentItem(post("/blog/hello", "Hello", blogChain()...)))

	e, ok := s.Get("/blog/hello")
	require.True(t, ok)
	item := e.(*api.ContentItem)
	assert.Equal(t, "Hello", item.Title)

	e, ok = s.Get("/blog")
	require.True(t, ok)
	node := e.(*api.TaxonomyNode)
	assert.Equal(t, "Blog", node.Title)
	assert.Equal(t, 2, node.Level)
	assert.Equal(t, []string{"/"}, node.Parents)
	require.Len(t, node.Children, 1)
	assert.Equal(t, api.ChildRef{Slug: "/blog/hello", Kind: api.KindPost}, node.Children[0])
}

func TestSaveContentItemThreadsAncestors(t *testing.T) {
	s := New()
	chain := []api.TaxonomyRef{
		{Title: "Blog", Slug: "/blog"},
		{Title: "Art", Slug: "/blog/art"},
		{Title: "3D Models", Slug: "/blog/art/3d-models"},
	}
	require.NoError(t, s.SaveContentItem(post("/blog/art/3d-models/post", "Post", chain...)))

	e, ok := s.Get("/blog")
	require.True(t, ok)
	assert.True(t, e.(*api.TaxonomyNode).HasChild("/blog/art"))

	e, ok = s.Get("/blog/art")
	require.True(t, ok)
	art := e.(*api.TaxonomyNode)
	assert.True(t, art.HasChild("/blog/art/3d-models"))
	assert.False(t, art.HasChild("/blog/art/3d-models/post"), "item must attach to the deepest taxonomy only")
	assert.Equal(t, []string{"/", "/blog"}, art.Parents)
	assert.Equal(t, 3, art.Level)

	e, ok = s.Get("/blog/art/3d-models")
	require.True(t, ok)
	assert.True(t, e.(*api.TaxonomyNode).HasChild("/blog/art/3d-models/post"))
}

func TestSaveContentItemIdempotent(t *testing.T) {
	s := New()
	it := post("/blog/hello", "Hello", blogChain()...)
	require.NoError(t, s.SaveContentItem(it))
	require.NoError(t, s.SaveContentItem(it))

	e, _ := s.Get("/blog")
	assert.Len(t, e.(*api.TaxonomyNode).Children, 1)
}

// Two items saved concurrently under the same new taxonomy must both land in
// its children list regardless of interleaving.
func TestConcurrentSavesSameTaxonomy(t *testing.T) {
	for round := 0; round < 50; round++ {
		s := New()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				slug := fmt.Sprintf("/blog/post-%d", i)
				_ = s.SaveContentItem(post(slug, fmt.Sprintf("Post %d", i), blogChain()...))
			}(i)
		}
		wg.Wait()

		e, ok := s.Get("/blog")
		require.True(t, ok)
		assert.Len(t, e.(*api.TaxonomyNode).Children, 8, "round %d lost an update", round)
	}
}

func TestSaveIndexItem(t *testing.T) {
	s := New()
	require.NoError(t, s.SaveContentItem(post("/blog/hello", "Hello", blogChain()...)))

	idx := &api.ContentItem{
		Slug:       "/blog/index",
		Title:      "The Blog",
		Kind:       api.KindIndex,
		Position:   4,
		Taxonomies: blogChain(),
		Metadata:   map[string]any{"sort_by": "date", "sort_order": "desc", "type": "chapter"},
	}
	require.NoError(t, s.SaveIndexItem(idx))

	e, ok := s.Get("/blog")
	require.True(t, ok)
	node := e.(*api.TaxonomyNode)
	assert.Equal(t, "The Blog", node.Title)
	assert.Equal(t, 4, node.Position)
	assert.Equal(t, api.KindPost, node.Kind)
	assert.Equal(t, "chapter", node.Type)
	assert.Equal(t, api.SortByDate, node.SortBy)
	assert.Equal(t, api.Descending, node.SortOrder)
	require.NotNil(t, node.Index)
	assert.Equal(t, "/blog/index", node.Index.Slug)

	// The index never appears among the children.
	assert.False(t, node.HasChild("/blog/index"))
	assert.Len(t, node.Children, 1)

	// Index items are not stored as flat records.
	_, ok = s.Get("/blog/index")
	assert.False(t, ok)
}

func TestSaveIndexItemCreatesTaxonomy(t *testing.T) {
	s := New()
	idx := &api.ContentItem{
		Slug:       "/docs/index",
		Title:      "Docs",
		Kind:       api.KindIndex,
		Taxonomies: []api.TaxonomyRef{{Title: "Docs", Slug: "/docs"}},
	}
	require.NoError(t, s.SaveIndexItem(idx))

	e, ok := s.Get("/docs")
	require.True(t, ok)
	node := e.(*api.TaxonomyNode)
	assert.Empty(t, node.Children)
	require.NotNil(t, node.Index)
}

func TestSaveIndexItemWithoutChain(t *testing.T) {
	s := New()
	err := s.SaveIndexItem(&api.ContentItem{Slug: "/index", Kind: api.KindIndex})
	require.Error(t, err)
}

func TestUpdate(t *testing.T) {
	s := New()
	require.NoError(t, s.SaveContentItem(post("/blog/hello", "Hello", blogChain()...)))

	ok := s.Update("/blog/hello", func(e api.Entity) api.Entity {
		item := e.(*api.ContentItem)
		item.Nav = &api.Navigation{Next: "/blog/other"}
		return item
	})
	require.True(t, ok)

	e, _ := s.Get("/blog/hello")
	require.NotNil(t, e.(*api.ContentItem).Nav)
	assert.Equal(t, "/blog/other", e.(*api.ContentItem).Nav.Next)

	assert.False(t, s.Update("/missing", func(e api.Entity) api.Entity { return e }))
}

func TestUpdateDoesNotMutateOldSnapshot(t *testing.T) {
	s := New()
	require.NoError(t, s.SaveContentItem(post("/blog/hello", "Hello", blogChain()...)))
	before, _ := s.Get("/blog/hello")

	s.Update("/blog/hello", func(e api.Entity) api.Entity {
		e.(*api.ContentItem).Title = "Changed"
		return e
	})

	assert.Equal(t, "Hello", before.(*api.ContentItem).Title)
}

func TestDeleteScrubsChildren(t *testing.T) {
	s := New()
	require.NoError(t, s.SaveContentItem(post("/blog/hello", "Hello", blogChain()...)))
	require.NoError(t, s.SaveContentItem(post("/blog/world", "World", blogChain()...)))

	s.Delete("/blog/hello")

	_, ok := s.Get("/blog/hello")
	assert.False(t, ok)
	e, _ := s.Get("/blog")
	node := e.(*api.TaxonomyNode)
	assert.False(t, node.HasChild("/blog/hello"))
	assert.True(t, node.HasChild("/blog/world"))
}

func TestDeleteBySource(t *testing.T) {
	s := New()
	require.NoError(t, s.SaveContentItem(post("/blog/hello", "Hello", blogChain()...)))
	require.NoError(t, s.SaveContentItem(post("/blog/world", "World", blogChain()...)))

	gone := s.DeleteBySource("/blog/hello.md")
	assert.Equal(t, []string{"/blog/hello"}, gone)
	_, ok := s.Get("/blog/hello")
	assert.False(t, ok)
	assert.Equal(t, []string{"/blog/world.md"}, s.Sources())

	assert.Empty(t, s.DeleteBySource("/blog/hello.md"), "second delete is a no-op")
}

func TestDeleteBySourceUnmergesIndex(t *testing.T) {
	s := New()
	require.NoError(t, s.SaveContentItem(post("/blog/hello", "Hello", blogChain()...)))
	idx := &api.ContentItem{
		Slug:       "/blog/index",
		Title:      "The Blog",
		Kind:       api.KindIndex,
		Position:   4,
		SourcePath: "/blog/index.md",
		Taxonomies: blogChain(),
		Metadata:   map[string]any{"sort_by": "date", "sort_order": "desc", "type": "chapter"},
	}
	require.NoError(t, s.SaveIndexItem(idx))
	assert.Contains(t, s.Sources(), "/blog/index.md")

	gone := s.DeleteBySource("/blog/index.md")
	assert.Equal(t, []string{"/blog"}, gone)

	e, ok := s.Get("/blog")
	require.True(t, ok, "the taxonomy itself survives")
	node := e.(*api.TaxonomyNode)
	assert.Nil(t, node.Index)
	assert.Equal(t, "Blog", node.Title, "title reverts to the path-derived name")
	assert.Equal(t, 0, node.Position)
	assert.Equal(t, api.KindTaxonomy, node.Kind)
	assert.Empty(t, node.Type)
	assert.Equal(t, api.SortByTitle, node.SortBy)
	assert.Equal(t, api.Ascending, node.SortOrder)
	assert.True(t, node.HasChild("/blog/hello"), "children survive the un-merge")
	assert.NotContains(t, s.Sources(), "/blog/index.md")
}

func TestSaveContentItemKeepsTaxonomyOnSlugCollision(t *testing.T) {
	s := New()
	require.NoError(t, s.SaveContentItem(post("/blog/hello", "Hello", blogChain()...)))

	err := s.SaveContentItem(post("/blog", "Stray Page"))
	require.Error(t, err)

	e, ok := s.Get("/blog")
	require.True(t, ok)
	node, isTax := e.(*api.TaxonomyNode)
	require.True(t, isTax, "taxonomy must survive a colliding item save")
	assert.True(t, node.HasChild("/blog/hello"))
}

func TestListByKind(t *testing.T) {
	s := New()
	require.NoError(t, s.SaveContentItem(post("/blog/b", "B", blogChain()...)))
	require.NoError(t, s.SaveContentItem(post("/blog/a", "A", blogChain()...)))

	items := s.List(api.KindPost)
	require.Len(t, items, 2)
	assert.Equal(t, "/blog/a", items[0].EntitySlug(), "enumeration is slug-sorted")

	taxa := s.List(api.KindTaxonomy)
	require.Len(t, taxa, 1)
	assert.Equal(t, "/blog", taxa[0].EntitySlug())

	assert.Len(t, s.List(""), 3)
}

func TestGetAbsent(t *testing.T) {
	s := New()
	_, ok := s.Get("/nope")
	assert.False(t, ok)
}

func TestDatePreservedThroughSave(t *testing.T) {
	s := New()
	it := post("/blog/dated", "Dated", blogChain()...)
	it.Date = time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveContentItem(it))

	e, _ := s.Get("/blog/dated")
	assert.True(t, it.Date.Equal(e.(*api.ContentItem).Date))
}
