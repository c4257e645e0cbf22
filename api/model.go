// Package api defines the public data model of the stanza content engine:
// the entity variants held in the store and the references that link them.
package api

import "time"

// Kind discriminates entity variants. The store and the tree builder match
// on it exhaustively instead of duck-typing metadata maps.
type Kind string

const (
	// KindTaxonomy is a category node in the content hierarchy.
	KindTaxonomy Kind = "taxonomy"
	// KindPost is a regular content item, a post or a page.
	KindPost Kind = "post"
	// KindIndex marks a content item that describes its owning taxonomy
	// instead of being listed as one of its children.
	KindIndex Kind = "index"
)

// SortKey selects the attribute a taxonomy orders its children by.
type SortKey string

const (
	SortByTitle SortKey = "title"
	SortByDate  SortKey = "date"
	SortBySlug  SortKey = "slug"
)

// SortOrder is the direction applied to a taxonomy's SortKey.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// RootSlug is the slug of the synthetic root taxonomy.
const RootSlug = "/"

// TaxonomyRef pairs a taxonomy's display title with its slug. A content
// item carries the ordered chain of refs it belongs to, root-most first.
type TaxonomyRef struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// ChildRef points at an entity in a taxonomy's children list. Children are
// slug references resolved by lookup, never owning pointers, so the
// parent/child and previous/next cross-links cannot form ownership cycles.
type ChildRef struct {
	Slug string `json:"slug"`
	Kind Kind   `json:"kind"`
}

// Navigation links a content item to its ordered neighbors within the
// content tree. Empty slugs mark the sequence boundaries.
type Navigation struct {
	Prev string `json:"prev,omitempty"`
	Next string `json:"next,omitempty"`
}

// Entity is the tagged variant stored in the entity arena. It is implemented
// by exactly ContentItem and TaxonomyNode.
type Entity interface {
	EntitySlug() string
	// EntityKind returns the variant tag: KindTaxonomy for taxonomy nodes,
	// KindPost or KindIndex for content items.
	EntityKind() Kind
	// CloneEntity returns an independent copy for copy-on-write updates.
	CloneEntity() Entity
}

// ContentItem is a leaf piece of content derived from one markdown file.
type ContentItem struct {
	Slug       string         `json:"slug"`
	Title      string         `json:"title"`
	Summary    string         `json:"summary,omitempty"`
	Body       string         `json:"body,omitempty"`
	SourcePath string         `json:"source_path,omitempty"`
	Date       time.Time      `json:"date"`
	Published  bool           `json:"published"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Taxonomies []TaxonomyRef  `json:"taxonomies,omitempty"`
	Kind       Kind           `json:"kind"`
	Position   int            `json:"position,omitempty"`

	// Nav is attached after a content-tree rebuild so that a direct slug
	// lookup returns resolved navigation without recomputing the tree.
	Nav *Navigation `json:"nav,omitempty"`
}

func (c *ContentItem) EntitySlug() string { return c.Slug }

func (c *ContentItem) EntityKind() Kind {
	if c.Kind == "" {
		return KindPost
	}
	return c.Kind
}

func (c *ContentItem) CloneEntity() Entity { return c.Clone() }

// Clone returns a copy deep enough for copy-on-write: slices and the nav
// pointer are duplicated, metadata values stay shared (treated as opaque).
func (c *ContentItem) Clone() *ContentItem {
	cp := *c
	cp.Taxonomies = append([]TaxonomyRef(nil), c.Taxonomies...)
	if c.Metadata != nil {
		cp.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			cp.Metadata[k] = v
		}
	}
	if c.Nav != nil {
		nav := *c.Nav
		cp.Nav = &nav
	}
	return &cp
}

// Stripped returns a body-less copy for embedding in derived trees.
func (c *ContentItem) Stripped() *ContentItem {
	cp := c.Clone()
	cp.Body = ""
	return cp
}

// OwningTaxonomy returns the deepest taxonomy in the item's chain, the one
// index items merge into and regular items are listed under.
func (c *ContentItem) OwningTaxonomy() (TaxonomyRef, bool) {
	if len(c.Taxonomies) == 0 {
		return TaxonomyRef{}, false
	}
	return c.Taxonomies[len(c.Taxonomies)-1], true
}

// TaxonomyNode is a category in the content hierarchy. A node whose Kind is
// KindPost fronts its own descriptive page (its Index item) while still
// acting as a category.
type TaxonomyNode struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Kind  Kind   `json:"kind"`
	// Type is an optional custom label taken from the index item's metadata.
	Type string `json:"type,omitempty"`
	// Level is the depth in the hierarchy; the root is level 1 and
	// Level == len(Parents)+1 always holds.
	Level int `json:"level"`
	// Parents holds ancestor slugs root-first; Parents[0] is RootSlug for
	// every node except the root itself, whose chain is empty.
	Parents  []string   `json:"parents,omitempty"`
	Children []ChildRef `json:"children,omitempty"`
	// Index is the taxonomy's own descriptive content item. It never
	// appears in Children.
	Index     *ContentItem `json:"index,omitempty"`
	SortBy    SortKey      `json:"sort_by"`
	SortOrder SortOrder    `json:"sort_order"`
	Position  int          `json:"position,omitempty"`
}

func (t *TaxonomyNode) EntitySlug() string { return t.Slug }

// EntityKind returns KindTaxonomy regardless of the presentation Kind field,
// which flips to KindPost once an index item gives the node its own page.
func (t *TaxonomyNode) EntityKind() Kind { return KindTaxonomy }

func (t *TaxonomyNode) CloneEntity() Entity { return t.Clone() }

// Clone returns a copy safe to mutate in a compare-and-swap transaction.
func (t *TaxonomyNode) Clone() *TaxonomyNode {
	cp := *t
	cp.Parents = append([]string(nil), t.Parents...)
	cp.Children = append([]ChildRef(nil), t.Children...)
	if t.Index != nil {
		cp.Index = t.Index.Clone()
	}
	return &cp
}

// HasChild reports whether a child with the given slug is already listed.
func (t *TaxonomyNode) HasChild(slug string) bool {
	for _, c := range t.Children {
		if c.Slug == slug {
			return true
		}
	}
	return false
}
