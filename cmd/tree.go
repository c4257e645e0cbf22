package cmd

import (
	"fmt"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/alt"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/stanzaworks/stanza/internal/ingest"
)

var (
	treeRootSlug string
	treeQuery    string
)

var treeCmd = &cobra.Command{
	Use:   "tree [taxonomy|content]",
	Short: "Index the content root and print a derived tree as JSON",
	Long: `tree indexes the configured content root, builds the requested derived
tree and prints it as JSON. The taxonomy tree carries structure only; the
content tree additionally embeds rendered items with navigation resolved.

A JSONPath expression can narrow the output, e.g.:

  stanza tree content --query '$.children[*].slug'`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cat := newCatalog(cfg)
		eng := ingest.New(osfs.New(cfg.ContentRoot), cat, cfg.StaticDir, nil)
		if err := eng.Sync(); err != nil {
			return err
		}

		kind := "content"
		if len(args) == 1 {
			kind = args[0]
		}
		var tree any
		switch kind {
		case "taxonomy":
			tree = cat.TaxonomyTree()
		case "content":
			node, ok := cat.ContentTree(treeRootSlug)
			if !ok {
				return fmt.Errorf("no taxonomy rooted at %q", treeRootSlug)
			}
			tree = node
		default:
			return fmt.Errorf("unknown tree kind %q (want taxonomy or content)", kind)
		}

		out := alt.Decompose(tree, &ojg.Options{UseTags: true, OmitNil: true})
		if treeQuery != "" {
			expr, err := jp.ParseString(treeQuery)
			if err != nil {
				return fmt.Errorf("invalid jsonpath '%s': %w", treeQuery, err)
			}
			out = expr.Get(out)
		}
		fmt.Println(oj.JSON(out, 2))
		return nil
	},
}

func init() {
	treeCmd.Flags().StringVar(&treeRootSlug, "root", "/", "Taxonomy slug to root the content tree at")
	treeCmd.Flags().StringVar(&treeQuery, "query", "", "JSONPath expression applied to the tree before printing")
	rootCmd.AddCommand(treeCmd)
}
