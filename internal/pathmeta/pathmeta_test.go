package pathmeta

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanzaworks/stanza/api"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/blog/art/3d-models/post.md", "/blog/art/3d-models/post"},
		{"/post.md", "/post"},
		{"/Blog/My Post.md", "/blog/my-post"},
		{"/notes/Hello, World!.md", "/notes/hello-world"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slug(tt.path), "Slug(%q)", tt.path)
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/blog/my-new-project.md", "My new project"},
		{"/blog/using_GNU_make.md", "Using GNU make"},
		{"/about.md", "About"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Title(tt.path), "Title(%q)", tt.path)
	}
}

func TestTaxonomyName(t *testing.T) {
	tests := []struct {
		segment string
		want    string
	}{
		{"3d", "3D"},
		{"my-project", "My Project"},
		{"3d-models", "3D Models"},
		{"4d-art", "4D Art"},
		{"blog", "Blog"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TaxonomyName(tt.segment), "TaxonomyName(%q)", tt.segment)
	}
}

func TestCategoryChain(t *testing.T) {
	chain := CategoryChain("/blog/art/3d-models/post.md")
	require.Equal(t, []api.TaxonomyRef{
		{Title: "Blog", Slug: "/blog"},
		{Title: "Art", Slug: "/blog/art"},
		{Title: "3D Models", Slug: "/blog/art/3d-models"},
	}, chain)
}

func TestCategoryChainRoot(t *testing.T) {
	require.Equal(t, []api.TaxonomyRef{{Title: "", Slug: "/"}}, CategoryChain("/post.md"))
}

// Category slugs must nest strictly under the full item slug.
func TestCategoryChainPrefixProperty(t *testing.T) {
	paths := []string{
		"/blog/art/3d-models/post.md",
		"/blog/My Essays/On Writing.md",
		"/docs/v2/getting_started.md",
		"/post.md",
	}
	for _, p := range paths {
		full := Slug(p)
		prev := ""
		for _, ref := range CategoryChain(p) {
			assert.True(t, strings.HasPrefix(full, strings.TrimSuffix(ref.Slug, "/")),
				"chain slug %q is not a prefix of %q", ref.Slug, full)
			assert.True(t, strings.HasPrefix(ref.Slug, strings.TrimSuffix(prev, "/")),
				"chain slug %q does not extend %q", ref.Slug, prev)
			prev = ref.Slug
		}
	}
}
