package runtime

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/wippyai/nif-runtime/errors"
)

// Atom name encodings.
const (
	EncodingUTF8   = "utf8"
	EncodingLatin1 = "latin1"
)

// MaxAtomLength is the longest atom name, in characters, the host accepts.
const MaxAtomLength = 255

// Config holds host limits and scheduling settings.
type Config struct {
	// Node is the local node name. Pids with another node are remote.
	Node string `mapstructure:"node"`
	// AtomEncoding is utf8 or latin1. Latin1 rejects names outside ISO 8859-1.
	AtomEncoding string `mapstructure:"atom_encoding"`
	LogLevel     string `mapstructure:"log_level"`

	MaxAtoms      int `mapstructure:"max_atoms"`
	MaxBinarySize int `mapstructure:"max_binary_size"`
	MaxResources  int `mapstructure:"max_resources"` // 0 means unbounded
	MaxLocks      int `mapstructure:"max_locks"`     // 0 means unbounded

	// Dirty worker pools. Zero runs dirty calls on the caller goroutine.
	DirtyCPUWorkers int `mapstructure:"dirty_cpu_workers"`
	DirtyIOWorkers  int `mapstructure:"dirty_io_workers"`

	// BatchConcurrency bounds CallBatch.
	BatchConcurrency int `mapstructure:"batch_concurrency"`
}

func DefaultConfig() Config {
	return Config{
		Node:             "nonode@nohost",
		AtomEncoding:     EncodingUTF8,
		LogLevel:         "info",
		MaxAtoms:         1048576,
		MaxBinarySize:    64 << 20,
		DirtyCPUWorkers:  4,
		DirtyIOWorkers:   10,
		BatchConcurrency: 8,
	}
}

// LoadConfig reads configuration from path on top of the defaults. An empty
// path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("node", def.Node)
	v.SetDefault("atom_encoding", def.AtomEncoding)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("max_atoms", def.MaxAtoms)
	v.SetDefault("max_binary_size", def.MaxBinarySize)
	v.SetDefault("max_resources", def.MaxResources)
	v.SetDefault("max_locks", def.MaxLocks)
	v.SetDefault("dirty_cpu_workers", def.DirtyCPUWorkers)
	v.SetDefault("dirty_io_workers", def.DirtyIOWorkers)
	v.SetDefault("batch_concurrency", def.BatchConcurrency)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.ParseFailed("config "+path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.ParseFailed("config "+path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the settings are usable.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.InvalidInput(errors.PhaseLoad, "config: "+fmt.Sprintf(format, args...))
	}
	switch {
	case c.Node == "":
		return invalid("node name is empty")
	case c.AtomEncoding != EncodingUTF8 && c.AtomEncoding != EncodingLatin1:
		return invalid("unknown atom encoding %q", c.AtomEncoding)
	case c.MaxAtoms <= 0:
		return invalid("max_atoms must be positive, got %d", c.MaxAtoms)
	case c.MaxBinarySize <= 0:
		return invalid("max_binary_size must be positive, got %d", c.MaxBinarySize)
	case c.MaxResources < 0 || c.MaxLocks < 0:
		return invalid("limits cannot be negative")
	case c.DirtyCPUWorkers < 0 || c.DirtyIOWorkers < 0:
		return invalid("worker counts cannot be negative")
	case c.BatchConcurrency <= 0:
		return invalid("batch_concurrency must be positive, got %d", c.BatchConcurrency)
	}
	return nil
}
