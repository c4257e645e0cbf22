// Package store implements the concurrent entity arena: a flat map from slug
// to entity with atomic per-key transactions. Entities are stored as
// immutable snapshots; every update clones the current value, mutates the
// clone and publishes it with a compare-and-swap, retrying on contention.
// Reads never block writers. There is no cross-key atomicity: an item's own
// record and its taxonomy's children list are two separate transactions, so
// a reader racing between them may briefly see one without the other. That
// window is eventual consistency, not an error; it heals on the next save or
// rebuild.
package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/stanzaworks/stanza/api"
	"github.com/stanzaworks/stanza/internal/pathmeta"
)

// Store is the source of truth for all entities. Content items and taxonomy
// nodes share one slug keyspace.
type Store struct {
	entities sync.Map // slug → api.Entity (immutable snapshot)

	// Roaring bitmap index: source file path → set of item slugs, so a
	// vanished file maps to its entities in O(k) instead of a full scan.
	srcMu     sync.Mutex
	srcIndex  map[string]*roaring.Bitmap
	slugIntID map[string]uint32
	intToSlug []string
	nextIntID uint32
}

// New returns an empty, independent store instance.
func New() *Store {
	return &Store{
		srcIndex:  make(map[string]*roaring.Bitmap),
		slugIntID: make(map[string]uint32),
	}
}

// Get returns the entity for slug, or false when it is absent.
func (s *Store) Get(slug string) (api.Entity, bool) {
	v, ok := s.entities.Load(slug)
	if !ok {
		return nil, false
	}
	return v.(api.Entity), true
}

// SaveContentItem upserts a non-index item and threads it into its declared
// taxonomy chain: each chain element is created on demand, ancestors gain
// their child taxonomy, and the deepest taxonomy gains the item itself.
// Index items are routed to SaveIndexItem. Idempotent for identical input.
func (s *Store) SaveContentItem(item *api.ContentItem) error {
	if item.EntityKind() == api.KindIndex {
		return s.SaveIndexItem(item)
	}
	it := item.Clone()
	if it.Kind == "" {
		it.Kind = api.KindPost
	}
	for {
		v, loaded := s.entities.Load(it.Slug)
		if !loaded {
			if _, raced := s.entities.LoadOrStore(it.Slug, it); !raced {
				break
			}
			continue
		}
		// Slug collision with a taxonomy node ("/blog.md" beside "/blog/"):
		// the taxonomy and its children win, same policy as appendChild.
		if _, isTax := v.(*api.TaxonomyNode); isTax {
			return fmt.Errorf("slug %s already held by a taxonomy", it.Slug)
		}
		if s.entities.CompareAndSwap(it.Slug, v, it) {
			break
		}
	}
	s.indexSource(it.SourcePath, it.Slug)

	chain := it.Taxonomies
	for i, ref := range chain {
		child := api.ChildRef{Slug: it.Slug, Kind: api.KindPost}
		if i+1 < len(chain) {
			child = api.ChildRef{Slug: chain[i+1].Slug, Kind: api.KindTaxonomy}
		}
		s.appendChild(ref, child)
	}
	return nil
}

// SaveIndexItem merges an index item into the last taxonomy of its chain,
// replacing the node's index, position, title and sort overrides. The index
// never joins the children list. Ancestor taxonomies are created on demand.
func (s *Store) SaveIndexItem(item *api.ContentItem) error {
	owner, ok := item.OwningTaxonomy()
	if !ok {
		return fmt.Errorf("index item %s declares no taxonomy", item.Slug)
	}
	it := item.Clone()
	it.Kind = api.KindIndex

	chain := it.Taxonomies
	for i := 0; i+1 < len(chain); i++ {
		s.appendChild(chain[i], api.ChildRef{Slug: chain[i+1].Slug, Kind: api.KindTaxonomy})
	}

	for {
		v, loaded := s.entities.Load(owner.Slug)
		if !loaded {
			node := newTaxonomy(owner)
			applyIndex(node, it)
			if _, raced := s.entities.LoadOrStore(owner.Slug, node); !raced {
				break
			}
			continue
		}
		node, isTax := v.(*api.TaxonomyNode)
		if !isTax {
			return fmt.Errorf("slug %s already held by a %s", owner.Slug, v.(api.Entity).EntityKind())
		}
		next := node.Clone()
		applyIndex(next, it)
		if s.entities.CompareAndSwap(owner.Slug, v, next) {
			break
		}
	}
	// The index file maps to its owning taxonomy, so a vanished index.md
	// reaches the taxonomy through DeleteBySource and un-merges there.
	s.indexSource(it.SourcePath, owner.Slug)
	return nil
}

// Update atomically rewrites one entity. mutate receives a private clone and
// returns the replacement; returning nil aborts without writing. Update
// reports false when the slug is unknown.
func (s *Store) Update(slug string, mutate func(api.Entity) api.Entity) bool {
	for {
		v, ok := s.entities.Load(slug)
		if !ok {
			return false
		}
		next := mutate(v.(api.Entity).CloneEntity())
		if next == nil {
			return true
		}
		if s.entities.CompareAndSwap(slug, v, next) {
			return true
		}
	}
}

// Delete removes an entity. For content items the ref is also scrubbed from
// every taxonomy in the declared chain. Unknown slugs are a no-op.
func (s *Store) Delete(slug string) {
	v, ok := s.entities.LoadAndDelete(slug)
	if !ok {
		return
	}
	if item, isItem := v.(*api.ContentItem); isItem {
		s.unindexSource(item.SourcePath, slug)
		for _, ref := range item.Taxonomies {
			s.removeChild(ref.Slug, slug)
		}
	}
}

// DeleteBySource removes every entity that originated from the given source
// file and returns their slugs. A taxonomy slug in the set means the file
// was the taxonomy's index page; the node stays but the merge is reverted.
func (s *Store) DeleteBySource(path string) []string {
	s.srcMu.Lock()
	var slugs []string
	if bm := s.srcIndex[path]; bm != nil {
		it := bm.Iterator()
		for it.HasNext() {
			id := it.Next()
			if int(id) < len(s.intToSlug) && s.intToSlug[id] != "" {
				slugs = append(slugs, s.intToSlug[id])
			}
		}
	}
	s.srcMu.Unlock()

	for _, slug := range slugs {
		if e, ok := s.Get(slug); ok {
			if _, isTax := e.(*api.TaxonomyNode); isTax {
				s.clearIndex(slug)
				s.unindexSource(path, slug)
				continue
			}
		}
		s.Delete(slug)
	}
	return slugs
}

// clearIndex reverts a taxonomy whose index page vanished: the merged index,
// position, title and sort overrides give way to the path-derived defaults.
// Children are untouched.
func (s *Store) clearIndex(slug string) {
	s.Update(slug, func(e api.Entity) api.Entity {
		node, isTax := e.(*api.TaxonomyNode)
		if !isTax || node.Index == nil {
			return nil
		}
		node.Index = nil
		node.Kind = api.KindTaxonomy
		node.Type = ""
		node.Position = 0
		node.Title = defaultTitle(node.Slug)
		node.SortBy = api.SortByTitle
		node.SortOrder = api.Ascending
		return node
	})
}

// defaultTitle recovers the path-derived display name for a taxonomy slug.
func defaultTitle(slug string) string {
	if slug == api.RootSlug {
		return ""
	}
	segs := strings.Split(strings.Trim(slug, "/"), "/")
	return pathmeta.TaxonomyName(segs[len(segs)-1])
}

// Sources returns the sorted set of source paths with indexed items.
func (s *Store) Sources() []string {
	s.srcMu.Lock()
	defer s.srcMu.Unlock()
	out := make([]string, 0, len(s.srcIndex))
	for p := range s.srcIndex {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// List returns slug-sorted snapshots of every entity of the given kind; the
// zero Kind returns everything. The slice is a point-in-time enumeration,
// not a consistent transaction.
func (s *Store) List(kind api.Kind) []api.Entity {
	var out []api.Entity
	s.entities.Range(func(_, v any) bool {
		e := v.(api.Entity)
		if kind == "" || e.EntityKind() == kind {
			out = append(out, e)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].EntitySlug() < out[j].EntitySlug() })
	return out
}

// appendChild runs the append-or-create transaction for one taxonomy key.
// Lost updates are impossible: a failed CAS retries against the fresh
// snapshot, so two writers appending under the same slug both land.
func (s *Store) appendChild(ref api.TaxonomyRef, child api.ChildRef) {
	for {
		v, loaded := s.entities.Load(ref.Slug)
		if !loaded {
			node := newTaxonomy(ref)
			node.Children = []api.ChildRef{child}
			if _, raced := s.entities.LoadOrStore(ref.Slug, node); !raced {
				return
			}
			continue
		}
		node, isTax := v.(*api.TaxonomyNode)
		if !isTax {
			// Slug collision with a content item. Slugs are globally
			// unique; the existing record wins and the link is dropped.
			return
		}
		if node.HasChild(child.Slug) {
			return
		}
		next := node.Clone()
		next.Children = append(next.Children, child)
		if s.entities.CompareAndSwap(ref.Slug, v, next) {
			return
		}
	}
}

// removeChild scrubs one slug from a taxonomy's children list.
func (s *Store) removeChild(taxSlug, childSlug string) {
	s.Update(taxSlug, func(e api.Entity) api.Entity {
		node, isTax := e.(*api.TaxonomyNode)
		if !isTax || !node.HasChild(childSlug) {
			return nil
		}
		kept := node.Children[:0]
		for _, c := range node.Children {
			if c.Slug != childSlug {
				kept = append(kept, c)
			}
		}
		node.Children = kept
		return node
	})
}

func newTaxonomy(ref api.TaxonomyRef) *api.TaxonomyNode {
	parents := parentChain(ref.Slug)
	return &api.TaxonomyNode{
		Slug:      ref.Slug,
		Title:     ref.Title,
		Kind:      api.KindTaxonomy,
		Level:     len(parents) + 1,
		Parents:   parents,
		SortBy:    api.SortByTitle,
		SortOrder: api.Ascending,
	}
}

// parentChain lists ancestor slugs root-first: "/blog/art" → ["/", "/blog"].
// The root itself has no ancestors.
func parentChain(slug string) []string {
	if slug == api.RootSlug {
		return nil
	}
	parents := []string{api.RootSlug}
	segs := strings.Split(strings.Trim(slug, "/"), "/")
	cum := ""
	for _, seg := range segs[:len(segs)-1] {
		cum += "/" + seg
		parents = append(parents, cum)
	}
	return parents
}

// applyIndex merges an index item into a taxonomy node. The node starts
// fronting its own page, so its presentation kind flips to post.
func applyIndex(node *api.TaxonomyNode, it *api.ContentItem) {
	node.Index = it
	node.Kind = api.KindPost
	if it.Title != "" {
		node.Title = it.Title
	}
	node.Position = it.Position
	if v, ok := it.Metadata["type"].(string); ok && v != "" {
		node.Type = v
	}
	if v, ok := it.Metadata["sort_by"].(string); ok && v != "" {
		node.SortBy = api.SortKey(v)
	}
	if v, ok := it.Metadata["sort_order"].(string); ok && v != "" {
		node.SortOrder = api.SortOrder(v)
	}
}

func (s *Store) indexSource(path, slug string) {
	if path == "" {
		return
	}
	s.srcMu.Lock()
	defer s.srcMu.Unlock()
	id, ok := s.slugIntID[slug]
	if !ok {
		id = s.nextIntID
		s.nextIntID++
		s.slugIntID[slug] = id
		s.intToSlug = append(s.intToSlug, slug)
	}
	bm := s.srcIndex[path]
	if bm == nil {
		bm = roaring.New()
		s.srcIndex[path] = bm
	}
	bm.Add(id)
}

func (s *Store) unindexSource(path, slug string) {
	if path == "" {
		return
	}
	s.srcMu.Lock()
	defer s.srcMu.Unlock()
	id, ok := s.slugIntID[slug]
	if !ok {
		return
	}
	if bm := s.srcIndex[path]; bm != nil {
		bm.Remove(id)
		if bm.IsEmpty() {
			delete(s.srcIndex, path)
		}
	}
	delete(s.slugIntID, slug)
	if int(id) < len(s.intToSlug) {
		s.intToSlug[id] = ""
	}
}
