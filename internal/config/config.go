// Package config loads the YAML configuration of the bigramdict command.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store types.
const (
	StoreMemory = "memory"
	StoreLocal  = "local"
	StoreS3     = "s3"
	StoreMinIO  = "minio"
	StoreGCS    = "gcs"
	StoreSQLite = "sqlite"
	StoreBadger = "badger"
)

// EnvPrefix prefixes the environment overrides applied by Load.
const EnvPrefix = "BIGRAMDICT_"

// Config holds all bigramdict configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store"`
	WAL        WALConfig        `yaml:"wal"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// StoreConfig selects and configures the blob store holding snapshots.
type StoreConfig struct {
	Type string `yaml:"type"`
	// Path is the root directory (local), database file (sqlite, badger).
	Path   string `yaml:"path"`
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
	// Endpoint overrides the S3 endpoint or names the MinIO host.
	Endpoint string `yaml:"endpoint"`
	// Table is the DynamoDB commit table (s3) or the blob table (sqlite).
	Table           string `yaml:"table"`
	AccessKey       string `yaml:"access_key"`
	SecretKey       string `yaml:"secret_key"`
	Secure          bool   `yaml:"secure"`
	CredentialsFile string `yaml:"credentials_file"`
}

// WALConfig configures the write-ahead log. An empty path disables it.
type WALConfig struct {
	Path string `yaml:"path"`
	Sync bool   `yaml:"sync"`
}

// DictionaryConfig holds the dictionary options.
type DictionaryConfig struct {
	Decay           bool   `yaml:"decay"`
	MaxEncoded      int32  `yaml:"max_encoded"`
	MinValid        int32  `yaml:"min_valid"`
	Step            int32  `yaml:"step"`
	CapacityBytes   int64  `yaml:"capacity_bytes"`
	IOLimit         int64  `yaml:"io_limit"`
	Codec           string `yaml:"codec"`
	Compression     string `yaml:"compression"`
	RetainSnapshots int    `yaml:"retain_snapshots"`
}

// ServerConfig configures the HTTP server of the serve command.
type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
	// MaintenanceInterval is the sweep period. Zero disables maintenance.
	MaintenanceInterval time.Duration `yaml:"maintenance_interval"`
	// SnapshotInterval is the Save period. Zero saves only on shutdown.
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Type: StoreLocal,
			Path: "./data",
		},
		WAL: WALConfig{
			Sync: true,
		},
		Dictionary: DictionaryConfig{
			Codec:           "go-json",
			Compression:     "lz4",
			RetainSnapshots: 2,
		},
		Server: ServerConfig{
			Bind:                "127.0.0.1",
			Port:                7420,
			MaintenanceInterval: time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path loads the defaults only.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	for key, dst := range map[string]*string{
		"STORE_TYPE":     &c.Store.Type,
		"STORE_PATH":     &c.Store.Path,
		"STORE_BUCKET":   &c.Store.Bucket,
		"STORE_PREFIX":   &c.Store.Prefix,
		"STORE_ENDPOINT": &c.Store.Endpoint,
		"ACCESS_KEY":     &c.Store.AccessKey,
		"SECRET_KEY":     &c.Store.SecretKey,
		"WAL_PATH":       &c.WAL.Path,
		"LOG_LEVEL":      &c.Log.Level,
	} {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Type {
	case StoreMemory:
	case StoreLocal, StoreSQLite:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path is required for %s", c.Store.Type))
		}
	case StoreBadger:
	case StoreS3, StoreMinIO, StoreGCS:
		if c.Store.Bucket == "" {
			errs = append(errs, fmt.Errorf("store.bucket is required for %s", c.Store.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.type %q", c.Store.Type))
	}
	if c.Store.Type == StoreMinIO && c.Store.Endpoint == "" {
		errs = append(errs, errors.New("store.endpoint is required for minio"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaintenanceInterval < 0 || c.Server.SnapshotInterval < 0 {
		errs = append(errs, errors.New("server intervals must not be negative"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("invalid log.level %q: %w", l.Level, err)
	}
	return level, nil
}
