package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/funvibe/july/internal/diagnostics"
)

// Config is the project configuration read from july.yaml or july.toml.
// Fields left out of the file keep their defaults.
type Config struct {
	VM    VMConfig    `yaml:"vm" toml:"vm"`
	Log   LogConfig   `yaml:"log" toml:"log"`
	REPL  REPLConfig  `yaml:"repl" toml:"repl"`
	Cache CacheConfig `yaml:"cache" toml:"cache"`

	// Path is the file the config was read from, empty for defaults.
	Path string `yaml:"-" toml:"-"`
}

type VMConfig struct {
	StackSize   int `yaml:"stack_size" toml:"stack_size"`
	GlobalsSize int `yaml:"globals_size" toml:"globals_size"`
	MaxFrames   int `yaml:"max_frames" toml:"max_frames"`
}

type LogConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string `yaml:"level" toml:"level"`
	// Format is "console" for human output or "json".
	Format string `yaml:"format" toml:"format"`
}

type REPLConfig struct {
	Prompt string `yaml:"prompt" toml:"prompt"`
}

// CacheConfig controls the compiled-image cache. A relative Path is
// resolved against the directory of the config file.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

func Default() *Config {
	return &Config{
		VM:    DefaultVM(),
		Log:   LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		REPL:  REPLConfig{Prompt: DefaultPrompt},
		Cache: CacheConfig{Path: DefaultCachePath},
	}
}

func DefaultVM() VMConfig {
	return VMConfig{StackSize: StackSize, GlobalsSize: GlobalsSize, MaxFrames: MaxFrames}
}

// WithDefaults fills every unset capacity with its default.
func (v VMConfig) WithDefaults() VMConfig {
	if v.StackSize <= 0 {
		v.StackSize = StackSize
	}
	if v.GlobalsSize <= 0 {
		v.GlobalsSize = GlobalsSize
	}
	if v.MaxFrames <= 0 {
		v.MaxFrames = MaxFrames
	}
	return v
}

// Load reads a config file. The format is chosen by extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, diagnostics.ConfigError.Wrap(err, "reading config %s", path)
	}
	return Parse(data, path)
}

// Parse decodes config content. The path selects the format and appears
// in error messages; it is not read.
func Parse(data []byte, path string) (*Config, error) {
	cfg := Default()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, diagnostics.ConfigError.Wrap(err, "parsing %s", path)
		}
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, diagnostics.ConfigError.Wrap(err, "parsing %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, diagnostics.ConfigError.New("%s: unknown key %s", path, undecoded[0])
		}
	default:
		return nil, diagnostics.ConfigError.New("%s: unsupported config format %q", path, filepath.Ext(path))
	}

	cfg.Path = path
	if cfg.Cache.Path != "" && !filepath.IsAbs(cfg.Cache.Path) {
		cfg.Cache.Path = filepath.Join(filepath.Dir(path), cfg.Cache.Path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfig searches for a config file starting from dir and walking up
// to parent directories. It returns "" and no error when none exists.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", diagnostics.ConfigError.Wrap(err, "resolving directory")
	}

	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// FindAndLoad loads the nearest config file above dir, or the defaults
// when there is none.
func FindAndLoad(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks the configuration for semantic errors.
func (c *Config) Validate() error {
	where := c.Path
	if where == "" {
		where = "config"
	}

	if c.VM.StackSize <= 0 {
		return diagnostics.ConfigError.New("%s: vm.stack_size must be positive, got %d", where, c.VM.StackSize)
	}
	if c.VM.GlobalsSize <= 0 {
		return diagnostics.ConfigError.New("%s: vm.globals_size must be positive, got %d", where, c.VM.GlobalsSize)
	}
	if c.VM.MaxFrames <= 0 {
		return diagnostics.ConfigError.New("%s: vm.max_frames must be positive, got %d", where, c.VM.MaxFrames)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return diagnostics.ConfigError.Wrap(err, "%s: log.level", where)
	}
	switch c.Log.Format {
	case LogFormatConsole, LogFormatJSON:
	default:
		return diagnostics.ConfigError.New("%s: log.format must be %q or %q, got %q",
			where, LogFormatConsole, LogFormatJSON, c.Log.Format)
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return diagnostics.ConfigError.New("%s: cache.path is required when the cache is enabled", where)
	}
	return nil
}
