package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/stanzaworks/stanza/internal/catalog"
	"github.com/stanzaworks/stanza/internal/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "stanza",
	Short: "Stanza: markdown content indexing and navigation engine",
	Long: `Stanza indexes a markdown content tree into a taxonomy hierarchy and a
fully linked content tree with previous/next navigation, served from a
lazily rebuilt cache.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "stanza.hcl", "Path to the HCL configuration file")
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configured file. When the default path does not exist
// and was not asked for explicitly, defaults apply. A broken configuration
// is fatal either way.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) && !cmd.Flag("config").Changed {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(cfgPath)
}

func newCatalog(cfg config.Config) *catalog.Catalog {
	return catalog.New(cfg.TaxonomyCache, cfg.ContentCache)
}
