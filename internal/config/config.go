// Package config loads engine configuration from a TOML file. Every field
// has a working default so a fresh install runs with no config file at all;
// the file only needs the settings that differ.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that unmarshals from TOML strings like "2s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Chunking controls how document text is split before embedding. Changing
// any of these starts a new chunk generation; the old one stays until its
// documents are re-indexed.
type Chunking struct {
	// ModelID labels the chunk generation. Empty means the embedding
	// model name.
	ModelID string `toml:"model_id"`

	// Size is the sliding-window width in bytes.
	Size int `toml:"size"`

	// Overlap is the number of bytes shared between consecutive chunks.
	Overlap int `toml:"overlap"`
}

// Embedding selects and configures the embedding provider.
type Embedding struct {
	// Provider is "ollama" or "openai".
	Provider string `toml:"provider"`

	Model      string `toml:"model"`
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
	Dimensions int    `toml:"dimensions"`

	// RequestsPerSecond throttles provider calls. Zero means the
	// provider's own default.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Indexing tunes the background worker pool.
type Indexing struct {
	Workers      int      `toml:"workers"`
	PollInterval Duration `toml:"poll_interval"`
}

// Search holds the retrieval defaults a query can override per call.
type Search struct {
	LexicalWeight  float64 `toml:"lexical_weight"`
	SemanticWeight float64 `toml:"semantic_weight"`
	Threshold      float64 `toml:"threshold"`
	Limit          int     `toml:"limit"`
}

// Config is the full engine configuration.
type Config struct {
	// DataDir holds the SQLite database. Default ~/.litindex/data.
	DataDir string `toml:"data_dir"`

	// WatchDir, when set, is a directory of document files kept in sync
	// with the catalog by the file watcher.
	WatchDir string `toml:"watch_dir"`

	Chunking  Chunking  `toml:"chunking"`
	Embedding Embedding `toml:"embedding"`
	Indexing  Indexing  `toml:"indexing"`
	Search    Search    `toml:"search"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Chunking: Chunking{
			Size:    1200,
			Overlap: 200,
		},
		Embedding: Embedding{
			Provider: "ollama",
		},
		Indexing: Indexing{
			Workers:      4,
			PollInterval: Duration(500 * time.Millisecond),
		},
		Search: Search{
			LexicalWeight:  0.5,
			SemanticWeight: 0.5,
			Threshold:      0.7,
			Limit:          10,
		},
	}
}

// DefaultPath returns ~/.litindex/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".litindex", "config.toml"), nil
}

// Load reads the TOML file at path, or the default path when path is
// empty. A missing file yields the defaults; a malformed one is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path with restricted permissions, the
// API key being the sensitive part.
func Save(cfg Config, path string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	switch c.Embedding.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap must be in [0, %d), got %d", c.Chunking.Size, c.Chunking.Overlap)
	}
	if c.Indexing.Workers < 0 {
		return fmt.Errorf("indexing.workers must be non-negative, got %d", c.Indexing.Workers)
	}
	if c.Search.LexicalWeight < 0 || c.Search.SemanticWeight < 0 {
		return fmt.Errorf("search weights must be non-negative")
	}
	if c.Search.Threshold < 0 || c.Search.Threshold > 1 {
		return fmt.Errorf("search.threshold must be in [0, 1], got %g", c.Search.Threshold)
	}
	return nil
}
