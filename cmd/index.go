package cmd

import (
	"fmt"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/stanzaworks/stanza/api"
	"github.com/stanzaworks/stanza/internal/ingest"
)

var indexCmd = &cobra.Command{
	Use:   "index [content-dir]",
	Short: "Index a content tree once and print entity counts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		root := cfg.ContentRoot
		if len(args) == 1 {
			root = args[0]
		}

		cat := newCatalog(cfg)
		eng := ingest.New(osfs.New(root), cat, cfg.StaticDir, nil)

		start := time.Now()
		if err := eng.Sync(); err != nil {
			return err
		}
		posts := len(cat.ListAll(api.KindPost))
		taxa := len(cat.ListAll(api.KindTaxonomy))
		fmt.Printf("Indexed %d items in %d taxonomies from %s in %v.\n", posts, taxa, root, time.Since(start))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
