// Package ingest turns a markdown content tree into catalog entities. It
// walks a billy filesystem, extracts frontmatter, renders bodies to HTML and
// derives slugs, titles and taxonomy chains from file paths. The engine is
// the inbound collaborator of the catalog: it only calls save/delete and the
// batch invalidation, never the derived trees.
package ingest

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmparser "github.com/yuin/goldmark/parser"

	"github.com/stanzaworks/stanza/api"
	"github.com/stanzaworks/stanza/internal/catalog"
	"github.com/stanzaworks/stanza/internal/pathmeta"
)

// Engine drives ingestion for one catalog.
type Engine struct {
	fs     billy.Filesystem
	cat    *catalog.Catalog
	static string
	log    *slog.Logger
	md     goldmark.Markdown
}

// New builds an engine over the given filesystem (rooted at the content
// root). staticDir names the assets folder skipped during walks.
func New(fsys billy.Filesystem, cat *catalog.Catalog, staticDir string, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		fs:     fsys,
		cat:    cat,
		static: staticDir,
		log:    log,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(gmparser.WithAutoHeadingID()),
		),
	}
}

// Ingest walks the content tree and saves every markdown file as an entity.
// It returns the set of source paths seen. Files that fail to parse are
// logged and skipped; saves are idempotent for unchanged file state.
// Derived caches are left untouched — use Sync for the full pass.
func (e *Engine) Ingest() (map[string]bool, error) {
	seen := make(map[string]bool)
	err := util.Walk(e.fs, "/", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if e.static != "" && info.Name() == e.static {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(path.Ext(p), ".md") {
			return nil
		}
		if err := e.ingestFile(p); err != nil {
			e.log.Warn("skipping file", "path", p, "err", err)
			return nil
		}
		seen[p] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk content root: %w", err)
	}
	return seen, nil
}

// Sync runs one reconciliation pass: ingest everything, delete entities
// whose source files disappeared since the previous pass, then drop the
// derived caches so the next read rebuilds. Safe to call repeatedly.
func (e *Engine) Sync() error {
	before := e.cat.Sources()
	seen, err := e.Ingest()
	if err != nil {
		return err
	}
	for _, src := range before {
		if seen[src] {
			continue
		}
		for _, slug := range e.cat.DeleteBySource(src) {
			e.log.Info("content removed", "slug", slug, "source", src)
		}
	}
	e.cat.InvalidateAll()
	return nil
}

func (e *Engine) ingestFile(p string) error {
	f, err := e.fs.Open(p)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()
	raw, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	meta := make(map[string]any)
	body, err := frontmatter.Parse(bytes.NewReader(raw), &meta)
	if err != nil {
		// No usable frontmatter; treat the whole file as markdown.
		meta = make(map[string]any)
		body = raw
	}

	var html bytes.Buffer
	if err := e.md.Convert(body, &html); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}

	base := strings.TrimSuffix(path.Base(p), path.Ext(p))
	isIndex := base == "index" || base == "_index"
	titleFallback := pathmeta.Title(p)
	if isIndex {
		// An index page without an explicit title keeps the taxonomy's
		// path-derived name instead of renaming it to "Index".
		titleFallback = ""
	}

	item := &api.ContentItem{
		Slug:       pathmeta.Slug(p),
		Title:      stringField(meta, "title", titleFallback),
		Summary:    stringField(meta, "summary", ""),
		Body:       html.String(),
		SourcePath: p,
		Published:  boolField(meta, "published", true),
		Metadata:   meta,
		Taxonomies: pathmeta.CategoryChain(p),
		Kind:       api.KindPost,
		Position:   intField(meta, "position", 0),
	}
	if d, ok := dateField(meta, "date"); ok {
		item.Date = d
	}

	if isIndex {
		item.Kind = api.KindIndex
		return e.cat.SaveIndexItem(item)
	}
	return e.cat.SaveContentItem(item)
}

// dateFormats are tried in order when frontmatter carries a date string.
var dateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func dateField(meta map[string]any, key string) (time.Time, bool) {
	switch v := meta[key].(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range dateFormats {
			if d, err := time.Parse(layout, v); err == nil {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

func stringField(meta map[string]any, key, fallback string) string {
	if v, ok := meta[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func boolField(meta map[string]any, key string, fallback bool) bool {
	if v, ok := meta[key].(bool); ok {
		return v
	}
	return fallback
}

func intField(meta map[string]any, key string, fallback int) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}
