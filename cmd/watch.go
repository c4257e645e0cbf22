package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/stanzaworks/stanza/internal/ingest"
	"github.com/stanzaworks/stanza/internal/syncd"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index fresh by re-syncing on the configured intervals",
	Long: `watch indexes the content root, then loops: every local_interval seconds
it reconciles the index against the local tree, and every remote_interval
seconds it pulls the configured remote repository first. Runs until
interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log := slog.Default()

		if cfg.RemoteURL != "" {
			if err := syncd.CloneIfMissing(cfg.RemoteURL, cfg.ContentRoot); err != nil {
				return err
			}
		}

		cat := newCatalog(cfg)
		eng := ingest.New(osfs.New(cfg.ContentRoot), cat, cfg.StaticDir, log)
		if err := eng.Sync(); err != nil {
			return err
		}
		log.Info("watching content root",
			"root", cfg.ContentRoot,
			"local_interval", cfg.LocalInterval,
			"remote_interval", cfg.RemoteInterval,
			"remote", cfg.RemoteURL != "")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w := &syncd.Watcher{
			Engine:    eng,
			Dir:       cfg.ContentRoot,
			RemoteURL: cfg.RemoteURL,
			Local:     time.Duration(cfg.LocalInterval) * time.Second,
			Remote:    time.Duration(cfg.RemoteInterval) * time.Second,
			Log:       log,
		}
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
