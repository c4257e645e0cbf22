// Package pathmeta derives entity metadata from content file paths: slugs,
// display titles and the taxonomy chain a file belongs to. All functions are
// pure; path separators are forward slashes.
package pathmeta

import (
	"path"
	"strings"
	"unicode"

	"github.com/gosimple/slug"

	"github.com/stanzaworks/stanza/api"
)

// Slug maps a file path to its URL-safe, slash-rooted identifier. The file
// extension is stripped and every segment is slugified independently.
func Slug(p string) string {
	p = strings.TrimSuffix(p, path.Ext(p))
	segs := strings.Split(strings.Trim(p, "/"), "/")
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		if s == "" {
			continue
		}
		out = append(out, slug.Make(s))
	}
	return "/" + strings.Join(out, "/")
}

// Title derives a display title from the final path segment: separators
// become spaces and only the first word is capitalized. Intentional
// capitalization elsewhere (acronyms, product names) survives verbatim.
func Title(p string) string {
	base := path.Base(p)
	base = strings.TrimSuffix(base, path.Ext(base))
	words := tokens(base)
	if len(words) == 0 {
		return ""
	}
	words[0] = capitalize(words[0])
	return strings.Join(words, " ")
}

// TaxonomyName derives a category's display name from one directory segment.
// Every word is capitalized, and a word starting with a digit is upper-cased
// wholesale so "3d" becomes "3D". The heuristic operates per token: in
// "4d-art" the hyphen is already a separator, yielding "4D Art".
func TaxonomyName(segment string) string {
	words := tokens(segment)
	for i, w := range words {
		w = capitalize(w)
		if r := []rune(w); len(r) > 0 && unicode.IsDigit(r[0]) {
			w = strings.ToUpper(w)
		}
		words[i] = w
	}
	return strings.Join(words, " ")
}

// CategoryChain returns the ordered taxonomy descriptors for a file path,
// one per directory depth, each slug a strict prefix-extension of the
// previous. A file at the root yields the single synthetic root descriptor.
func CategoryChain(p string) []api.TaxonomyRef {
	dir := path.Dir(p)
	if dir == "/" || dir == "." || dir == "" {
		return []api.TaxonomyRef{{Title: "", Slug: api.RootSlug}}
	}
	segs := strings.Split(strings.Trim(dir, "/"), "/")
	chain := make([]api.TaxonomyRef, 0, len(segs))
	cum := ""
	for _, s := range segs {
		cum += "/" + slug.Make(s)
		chain = append(chain, api.TaxonomyRef{Title: TaxonomyName(s), Slug: cum})
	}
	return chain
}

func tokens(s string) []string {
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Fields(s)
}

func capitalize(w string) string {
	r := []rune(w)
	if len(r) == 0 {
		return w
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
