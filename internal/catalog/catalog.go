// Package catalog wires the entity store, the tree builder and the derived
// cache into the engine's inbound and outbound surface. The inbound half is
// fed by the parser/watcher layer (save, delete, invalidate); the outbound
// half serves slug lookups and derived trees to consumers.
package catalog

import (
	"github.com/stanzaworks/stanza/api"
	"github.com/stanzaworks/stanza/internal/cache"
	"github.com/stanzaworks/stanza/internal/store"
	"github.com/stanzaworks/stanza/internal/tree"
)

// Catalog is one independent indexing instance. Cache slot identifiers are
// passed at construction instead of living in process-wide state, so
// multiple catalogs (and tests) can coexist.
type Catalog struct {
	store        *store.Store
	cache        *cache.Cache
	taxonomySlot string
	contentSlot  string
}

// New builds a catalog with the given cache slot identifiers.
func New(taxonomySlot, contentSlot string) *Catalog {
	return &Catalog{
		store:        store.New(),
		cache:        cache.New(),
		taxonomySlot: taxonomySlot,
		contentSlot:  contentSlot,
	}
}

// SaveContentItem upserts a content item. Derived trees are not invalidated
// per write; call InvalidateAll once the batch completes.
func (c *Catalog) SaveContentItem(item *api.ContentItem) error {
	return c.store.SaveContentItem(item)
}

// SaveIndexItem merges an index item into its owning taxonomy.
func (c *Catalog) SaveIndexItem(item *api.ContentItem) error {
	return c.store.SaveIndexItem(item)
}

// DeleteBySlug removes one entity. Unknown slugs are a no-op.
func (c *Catalog) DeleteBySlug(slug string) {
	c.store.Delete(slug)
}

// DeleteBySource removes every item derived from one source file and
// returns their slugs.
func (c *Catalog) DeleteBySource(path string) []string {
	return c.store.DeleteBySource(path)
}

// Sources lists the source files currently backing indexed items.
func (c *Catalog) Sources() []string {
	return c.store.Sources()
}

// InvalidateAll drops both derived trees; the next read rebuilds from the
// current entity set.
func (c *Catalog) InvalidateAll() {
	c.cache.InvalidateAll()
}

// GetBySlug returns the entity for slug, or false when absent. After a
// content-tree rebuild, content items carry resolved navigation.
func (c *Catalog) GetBySlug(slug string) (api.Entity, bool) {
	return c.store.Get(slug)
}

// ListAll enumerates entities of a kind; the zero kind returns everything.
func (c *Catalog) ListAll(kind api.Kind) []api.Entity {
	return c.store.List(kind)
}

// TaxonomyTree returns the memoized taxonomy-only hierarchy, rebuilding on
// first read after an invalidation.
func (c *Catalog) TaxonomyTree() *tree.Node {
	v := c.cache.GetOrBuild(c.taxonomySlot, func() any {
		return tree.BuildTaxonomy(c.store.List(""))
	})
	return v.(*tree.Node)
}

// ContentTree returns the subtree of the full content hierarchy rooted at
// rootSlug ("" or "/" for the whole tree), or false when no such taxonomy
// exists. The full tree is a single cache slot; subtree roots share it
// rather than caching per root. Rebuilding also resolves navigation and
// writes it back into the store, so subsequent GetBySlug calls return items
// with previous/next already attached.
func (c *Catalog) ContentTree(rootSlug string) (*tree.Node, bool) {
	v := c.cache.GetOrBuild(c.contentSlot, func() any {
		root := tree.BuildContent(c.store.List(""))
		for _, it := range tree.Navigate(root) {
			nav := *it.Nav
			c.store.Update(it.Slug, func(e api.Entity) api.Entity {
				item, ok := e.(*api.ContentItem)
				if !ok {
					return nil
				}
				item.Nav = &nav
				return item
			})
		}
		return root
	})
	root := v.(*tree.Node)
	if rootSlug == "" || rootSlug == api.RootSlug {
		return root, true
	}
	n := tree.Find(root, rootSlug)
	return n, n != nil
}
