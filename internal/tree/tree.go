// Package tree builds the derived hierarchies from a flat entity snapshot:
// the taxonomy-only tree, the full content tree and the previous/next
// navigation pass. Building is pure and deterministic; identical snapshots
// produce identical trees. Rebuilds are always whole-tree — incremental
// recomputation is a known, deliberate omission.
package tree

import (
	"sort"
	"strings"
	"time"

	"github.com/stanzaworks/stanza/api"
)

// Node is one vertex of a derived tree: a taxonomy together with its sorted
// children. Nodes are fresh copies on every rebuild and never alias store
// state.
type Node struct {
	Slug      string           `json:"slug"`
	Title     string           `json:"title"`
	Kind      api.Kind         `json:"kind"`
	Type      string           `json:"type,omitempty"`
	Level     int              `json:"level"`
	Parents   []string         `json:"parents,omitempty"`
	Position  int              `json:"position,omitempty"`
	SortBy    api.SortKey      `json:"sort_by"`
	SortOrder api.SortOrder    `json:"sort_order"`
	Index     *api.ContentItem `json:"index,omitempty"`
	Children  []Child          `json:"children,omitempty"`
}

// Child is the tagged element of a node's children list: exactly one of
// Node (nested taxonomy) or Item (attached content item) is set.
type Child struct {
	Kind api.Kind         `json:"kind"`
	Node *Node            `json:"node,omitempty"`
	Item *api.ContentItem `json:"item,omitempty"`
}

// BuildTaxonomy assembles the taxonomy-only hierarchy, nested by the nodes'
// parent chains. Index items are embedded body-stripped; content items are
// left out entirely.
func BuildTaxonomy(snapshot []api.Entity) *Node {
	return build(snapshot, false)
}

// BuildContent assembles the full content hierarchy: the same nesting, with
// each taxonomy's children holding the sorted mixture of nested taxonomies
// and its attached content items.
func BuildContent(snapshot []api.Entity) *Node {
	return build(snapshot, true)
}

func build(snapshot []api.Entity, withItems bool) *Node {
	items := make(map[string]*api.ContentItem)
	var taxa []*api.TaxonomyNode
	for _, e := range snapshot {
		switch v := e.(type) {
		case *api.ContentItem:
			items[v.Slug] = v
		case *api.TaxonomyNode:
			taxa = append(taxa, v)
		}
	}
	sort.Slice(taxa, func(i, j int) bool { return taxa[i].Slug < taxa[j].Slug })

	nodes := make(map[string]*Node)
	for _, t := range taxa {
		nodes[t.Slug] = fromTaxonomy(t, withItems)
	}
	if nodes[api.RootSlug] == nil {
		nodes[api.RootSlug] = syntheticNode(api.RootSlug)
	}
	// The builder is total over any snapshot: ancestors that were never
	// saved are synthesized so every parent chain resolves.
	for _, t := range taxa {
		for _, p := range t.Parents {
			if nodes[p] == nil {
				nodes[p] = syntheticNode(p)
			}
		}
	}

	// Nest each node under its deepest ancestor.
	slugs := make([]string, 0, len(nodes))
	for s := range nodes {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	for _, s := range slugs {
		n := nodes[s]
		if n.Slug == api.RootSlug {
			continue
		}
		parent := api.RootSlug
		if len(n.Parents) > 0 {
			parent = n.Parents[len(n.Parents)-1]
		}
		pn := nodes[parent]
		if pn == nil {
			pn = nodes[api.RootSlug]
		}
		pn.Children = append(pn.Children, Child{Kind: api.KindTaxonomy, Node: n})
	}

	// Attach content items from the children lists. Dangling refs are the
	// accepted race window between an item save and its taxonomy link, and
	// are simply skipped; the next rebuild heals them.
	if withItems {
		for _, t := range taxa {
			n := nodes[t.Slug]
			for _, ref := range t.Children {
				if ref.Kind == api.KindTaxonomy {
					continue
				}
				it, ok := items[ref.Slug]
				if !ok || !it.Published {
					continue
				}
				n.Children = append(n.Children, Child{Kind: api.KindPost, Item: it.Clone()})
			}
		}
	}

	for _, n := range nodes {
		n.sortChildren()
	}
	return nodes[api.RootSlug]
}

// Navigate flattens the content tree depth-first in sibling order and links
// every content item to its neighbors. Boundary items keep empty refs. The
// returned slice is the tree-order sequence itself.
func Navigate(root *Node) []*api.ContentItem {
	items := Flatten(root)
	for i, it := range items {
		nav := &api.Navigation{}
		if i > 0 {
			nav.Prev = items[i-1].Slug
		}
		if i < len(items)-1 {
			nav.Next = items[i+1].Slug
		}
		it.Nav = nav
	}
	return items
}

// Flatten returns the depth-first, sibling-ordered sequence of content items
// attached to the tree. Index items are not part of the sequence.
func Flatten(root *Node) []*api.ContentItem {
	var out []*api.ContentItem
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			switch {
			case c.Item != nil:
				out = append(out, c.Item)
			case c.Node != nil:
				walk(c.Node)
			}
		}
	}
	walk(root)
	return out
}

// Find returns the subtree rooted at slug, or nil.
func Find(root *Node, slug string) *Node {
	if root == nil {
		return nil
	}
	if root.Slug == slug {
		return root
	}
	for _, c := range root.Children {
		if c.Node == nil {
			continue
		}
		if n := Find(c.Node, slug); n != nil {
			return n
		}
	}
	return nil
}

func fromTaxonomy(t *api.TaxonomyNode, withBodies bool) *Node {
	n := &Node{
		Slug:      t.Slug,
		Title:     t.Title,
		Kind:      t.Kind,
		Type:      t.Type,
		Level:     t.Level,
		Parents:   append([]string(nil), t.Parents...),
		Position:  t.Position,
		SortBy:    t.SortBy,
		SortOrder: t.SortOrder,
	}
	if t.Index != nil {
		if withBodies {
			n.Index = t.Index.Clone()
		} else {
			n.Index = t.Index.Stripped()
		}
	}
	return n
}

func syntheticNode(slug string) *Node {
	level := 1
	var parents []string
	if slug != api.RootSlug {
		parents = []string{api.RootSlug}
		segs := strings.Split(strings.Trim(slug, "/"), "/")
		cum := ""
		for _, seg := range segs[:len(segs)-1] {
			cum += "/" + seg
			parents = append(parents, cum)
		}
		level = len(parents) + 1
	}
	return &Node{
		Slug:      slug,
		Kind:      api.KindTaxonomy,
		Level:     level,
		Parents:   parents,
		SortBy:    api.SortByTitle,
		SortOrder: api.Ascending,
	}
}

// sortChildren orders the mixture of nested taxonomies and items by the
// node's sort key and direction, with slug as the final deterministic
// tie-break regardless of direction.
func (n *Node) sortChildren() {
	sort.SliceStable(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if c := compareChildren(a, b, n.SortBy); c != 0 {
			if n.SortOrder == api.Descending {
				return c > 0
			}
			return c < 0
		}
		return childSlug(a) < childSlug(b)
	})
}

func compareChildren(a, b Child, key api.SortKey) int {
	switch key {
	case api.SortByDate:
		ad, bd := childDate(a), childDate(b)
		switch {
		case ad.Before(bd):
			return -1
		case ad.After(bd):
			return 1
		default:
			return 0
		}
	case api.SortBySlug:
		return strings.Compare(childSlug(a), childSlug(b))
	default:
		return strings.Compare(childTitle(a), childTitle(b))
	}
}

func childSlug(c Child) string {
	if c.Item != nil {
		return c.Item.Slug
	}
	return c.Node.Slug
}

func childTitle(c Child) string {
	if c.Item != nil {
		return c.Item.Title
	}
	return c.Node.Title
}

func childDate(c Child) time.Time {
	if c.Item != nil {
		return c.Item.Date
	}
	if c.Node.Index != nil {
		return c.Node.Index.Date
	}
	return time.Time{}
}
