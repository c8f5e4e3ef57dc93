// Package config loads a repository's on-disk configuration.
//
// The file format and the "one struct holds every subsystem's knobs"
// shape are grounded on the teacher's cmd/warren/apply.go, which reads
// cluster manifests with gopkg.in/yaml.v3.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// HashPolicy selects the digest a repository uses when it needs to
// choose a hash algorithm for new content (reads always accept both).
type HashPolicy string

const (
	HashSHA1    HashPolicy = "sha1"
	HashSHA3256 HashPolicy = "sha3-256"
)

// Config is the full set of tunables for a stow repository context.
type Config struct {
	// DataDir holds the bbolt database file.
	DataDir string `yaml:"dataDir"`

	// HashPolicy is the digest used for newly written content.
	HashPolicy HashPolicy `yaml:"hashPolicy"`

	// CacheSizeLimitBytes bounds the artifact cache's total resident bytes.
	CacheSizeLimitBytes int64 `yaml:"cacheSizeLimitBytes"`

	// CacheEntryLimit bounds the artifact cache's entry count.
	CacheEntryLimit int `yaml:"cacheEntryLimit"`

	// ScratchPoolSize is loaded and defaulted with the other settings,
	// but the scratch-buffer pool does not read it: txn.ScratchPool
	// always has 8 slots.
	ScratchPoolSize int `yaml:"scratchPoolSize"`

	// VerifyDeltaChecksum controls whether content.Store.Get validates a
	// delta's trailing checksum command while undeltifying (via
	// delta.Apply vs delta.ApplyUnchecked). The reference implementation
	// disables this by default for speed; stow defaults it on and
	// exposes this flag for callers that need the faster, unverified
	// path on a hot read path they already trust.
	VerifyDeltaChecksum bool `yaml:"verifyDeltaChecksum"`
}

// Default returns the configuration a fresh repository is created with.
func Default(dataDir string) Config {
	return Config{
		DataDir:             dataDir,
		HashPolicy:          HashSHA3256,
		CacheSizeLimitBytes: 20 * 1024 * 1024,
		CacheEntryLimit:     300,
		ScratchPoolSize:     8,
		VerifyDeltaChecksum: true,
	}
}

// Load reads a YAML configuration file over Default(""): fields absent
// from the file keep their default, and a cache limit, scratch-pool
// size or hash policy explicitly set to its zero value is reset to the
// default. DataDir keeps whatever the file sets (empty if absent).
func Load(path string) (Config, error) {
	cfg := Default("")
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.CacheEntryLimit == 0 {
		cfg.CacheEntryLimit = Default("").CacheEntryLimit
	}
	if cfg.CacheSizeLimitBytes == 0 {
		cfg.CacheSizeLimitBytes = Default("").CacheSizeLimitBytes
	}
	if cfg.ScratchPoolSize == 0 {
		cfg.ScratchPoolSize = Default("").ScratchPoolSize
	}
	if cfg.HashPolicy == "" {
		cfg.HashPolicy = HashSHA3256
	}
	return cfg, nil
}

// Save writes cfg as YAML to path.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
