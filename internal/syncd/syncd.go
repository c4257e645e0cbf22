// Package syncd keeps a catalog fresh: it periodically re-syncs the local
// content tree and, when a remote repository is configured, pulls it first.
// The configuration layer guarantees the local interval is strictly shorter
// than the remote one, so local file changes are never rechecked less often
// than remote ones.
package syncd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Syncer is the ingestion side of the watcher, satisfied by *ingest.Engine.
type Syncer interface {
	Sync() error
}

// Watcher drives the periodic refresh loop.
type Watcher struct {
	Engine Syncer
	// Dir is the local checkout the remote is pulled into.
	Dir       string
	RemoteURL string
	Local     time.Duration
	Remote    time.Duration
	Log       *slog.Logger
}

// Run loops until ctx is cancelled. Sync and pull failures are logged and
// retried on the next tick, never fatal.
func (w *Watcher) Run(ctx context.Context) error {
	log := w.Log
	if log == nil {
		log = slog.Default()
	}
	local := time.NewTicker(w.Local)
	defer local.Stop()

	var remoteC <-chan time.Time
	if w.RemoteURL != "" {
		remote := time.NewTicker(w.Remote)
		defer remote.Stop()
		remoteC = remote.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-local.C:
			if err := w.Engine.Sync(); err != nil {
				log.Error("local sync failed", "err", err)
			}
		case <-remoteC:
			if err := Pull(w.Dir); err != nil {
				log.Error("remote pull failed", "dir", w.Dir, "err", err)
				continue
			}
			if err := w.Engine.Sync(); err != nil {
				log.Error("sync after pull failed", "err", err)
			}
		}
	}
}

// Pull fast-forwards the checkout in dir from its remote.
func Pull(dir string) error {
	return runGit(dir, "pull", "--ff-only")
}

// CloneIfMissing clones url into dir unless dir already exists.
func CloneIfMissing(url, dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", dir, err)
	}
	return runGit("", "clone", url, dir)
}

func runGit(dir string, args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %s: %s: %w", args[0], strings.TrimSpace(out.String()), err)
	}
	return nil
}
