package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/inhies/go-bytesize"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "OTHELLO_DATASET"

// Output formats understood by the dataset sinks.
const (
	FormatCSV     = "csv"
	FormatMsgpack = "msgpack"
)

type Config struct {
	// Transcript input
	Input InputConfig `mapstructure:"input" json:"input"`

	// Dataset output
	Output OutputConfig `mapstructure:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging" json:"logging"`

	// Metrics export
	Metrics MetricsConfig `mapstructure:"metrics" json:"metrics"`

	// MCP server identity
	Server ServerConfig `mapstructure:"server" json:"server"`

	// Parsed transcript cache used by the MCP tools
	Cache CacheConfig `mapstructure:"cache" json:"cache"`
}

type InputConfig struct {
	Path    string `mapstructure:"path" json:"path"`
	Charset string `mapstructure:"charset" json:"charset"`
}

type OutputConfig struct {
	Path   string `mapstructure:"path" json:"path"`
	Format string `mapstructure:"format" json:"format"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
	File   string `mapstructure:"file" json:"file"`
}

type MetricsConfig struct {
	// Textfile, when set, receives a Prometheus text exposition of the run's
	// counters after each conversion.
	Textfile string `mapstructure:"textfile" json:"textfile"`
	// Addr, when set, serves /metrics, /health and /ready over HTTP while the
	// MCP server runs.
	Addr string `mapstructure:"addr" json:"addr"`
}

type ServerConfig struct {
	Name    string `mapstructure:"name" json:"name"`
	Version string `mapstructure:"version" json:"version"`
}

type CacheConfig struct {
	Enabled  bool `mapstructure:"enabled" json:"enabled"`
	MaxItems int  `mapstructure:"max_items" json:"max_items"`
	// MaxSize is a human readable byte size such as "16MB".
	MaxSize string `mapstructure:"max_size" json:"max_size"`

	// MaxSizeBytes is MaxSize parsed by validate.
	MaxSizeBytes int64 `mapstructure:"-" json:"-"`
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"input":            "input.path",
	"charset":          "input.charset",
	"output":           "output.path",
	"format":           "output.format",
	"log-level":        "logging.level",
	"log-format":       "logging.format",
	"log-file":         "logging.file",
	"metrics-textfile": "metrics.textfile",
	"metrics-addr":     "metrics.addr",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input.path", "./datas")
	v.SetDefault("input.charset", "utf-8")
	v.SetDefault("output.path", "training_data.csv")
	v.SetDefault("output.format", FormatCSV)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("server.name", "othello-dataset")
	v.SetDefault("server.version", "0.1.0")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_items", 64)
	v.SetDefault("cache.max_size", "16MB")
}

// RegisterFlags adds the flags that Load knows how to bind.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("input", "", "transcript file to read (.bz2 is decompressed)")
	fs.String("charset", "", "character set of the transcript")
	fs.String("output", "", "dataset file to write")
	fs.String("format", "", "dataset format: csv or msgpack")
	fs.String("log-level", "", "debug, info, warn or error")
	fs.String("log-format", "", "text or json")
	fs.String("log-file", "", "also append logs to this file")
	fs.String("metrics-textfile", "", "write Prometheus metrics to this file after a run")
	fs.String("metrics-addr", "", "serve /metrics and /health on this address (serve only)")
}

// Load builds the configuration from defaults, the optional config file at
// configPath, OTHELLO_DATASET_* environment variables and finally any flags
// in fs that were set explicitly. fs may be nil.
func Load(configPath string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Input.Path) == "" {
		return errors.New("input path is empty")
	}
	if strings.TrimSpace(c.Output.Path) == "" {
		return errors.New("output path is empty")
	}

	c.Output.Format = strings.ToLower(c.Output.Format)
	switch c.Output.Format {
	case FormatCSV, FormatMsgpack:
	default:
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}

	c.Logging.Format = strings.ToLower(c.Logging.Format)
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		c.Logging.Format = "text"
	}

	if c.Input.Charset == "" {
		c.Input.Charset = "utf-8"
	}

	if c.Cache.MaxItems < 0 {
		return fmt.Errorf("cache max_items must not be negative, got %d", c.Cache.MaxItems)
	}
	c.Cache.MaxSizeBytes = 0
	if c.Cache.MaxSize != "" {
		size, err := bytesize.Parse(c.Cache.MaxSize)
		if err != nil {
			return fmt.Errorf("invalid cache max_size %q: %w", c.Cache.MaxSize, err)
		}
		c.Cache.MaxSizeBytes = int64(size)
	}

	return nil
}

// GetConfigPath returns the first config file found, or "" for none.
func GetConfigPath() string {
	if path := os.Getenv(envPrefix + "_CONFIG"); path != "" {
		return path
	}

	if _, err := os.Stat("config.json"); err == nil {
		return "config.json"
	}

	if home, err := os.UserHomeDir(); err == nil {
		configPath := filepath.Join(home, ".othello-dataset", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	return ""
}
