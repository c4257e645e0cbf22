// Package config loads and validates the startup configuration. Violated
// invariants are fatal: Load returns an error and the process must refuse to
// run rather than serve with a broken setup.
package config

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Config is the full configuration surface consumed at startup.
type Config struct {
	// ContentRoot is the directory holding the markdown content tree.
	ContentRoot string `hcl:"content_root,optional"`
	// StaticDir is the name of the static-assets folder inside the content
	// root; it is skipped during ingestion.
	StaticDir string `hcl:"static_dir,optional"`
	// TaxonomyCache and ContentCache are the identifiers of the two derived
	// cache slots. They are explicit values, not process-wide globals, so
	// independent engine instances can coexist.
	TaxonomyCache string `hcl:"taxonomy_cache,optional"`
	ContentCache  string `hcl:"content_cache,optional"`
	// RemoteURL optionally points at a git repository the content root is
	// synced from.
	RemoteURL string `hcl:"remote_url,optional"`
	// LocalInterval and RemoteInterval are recheck periods in seconds.
	// Local rechecks must happen no less frequently than remote ones.
	LocalInterval  int `hcl:"local_interval,optional"`
	RemoteInterval int `hcl:"remote_interval,optional"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		ContentRoot:    "content",
		StaticDir:      "static",
		TaxonomyCache:  "taxonomy",
		ContentCache:   "content",
		LocalInterval:  60,
		RemoteInterval: 300,
	}
}

// Load reads an HCL configuration file, fills unset attributes with
// defaults and validates the result.
func Load(path string) (Config, error) {
	var cfg Config
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.ContentRoot == "" {
		c.ContentRoot = def.ContentRoot
	}
	if c.StaticDir == "" {
		c.StaticDir = def.StaticDir
	}
	if c.TaxonomyCache == "" {
		c.TaxonomyCache = def.TaxonomyCache
	}
	if c.ContentCache == "" {
		c.ContentCache = def.ContentCache
	}
	if c.LocalInterval == 0 {
		c.LocalInterval = def.LocalInterval
	}
	if c.RemoteInterval == 0 {
		c.RemoteInterval = def.RemoteInterval
	}
}

// Validate enforces the startup invariants.
func (c Config) Validate() error {
	if c.ContentRoot == "" {
		return errors.New("content_root must be set")
	}
	if c.LocalInterval <= 0 {
		return fmt.Errorf("local_interval must be positive, got %d", c.LocalInterval)
	}
	if c.RemoteInterval <= 0 {
		return fmt.Errorf("remote_interval must be positive, got %d", c.RemoteInterval)
	}
	if c.TaxonomyCache == "" || c.ContentCache == "" {
		return errors.New("cache identifiers must be non-empty")
	}
	if c.TaxonomyCache == c.ContentCache {
		return fmt.Errorf("cache identifiers must differ, both are %q", c.ContentCache)
	}
	if c.RemoteURL != "" && c.LocalInterval >= c.RemoteInterval {
		return fmt.Errorf("local_interval (%d) must be shorter than remote_interval (%d) when remote sync is enabled",
			c.LocalInterval, c.RemoteInterval)
	}
	return nil
}
