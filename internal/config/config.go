package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the blastxmld configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Blast    BlastConfig    `yaml:"blast"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes    int64 `yaml:"max_body_bytes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	Standalone       bool     `yaml:"standalone"` // skip cluster discovery
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds report storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
	HitTTLSec int    `yaml:"hit_ttl_sec"` // 0 = keep forever
}

// BlastConfig holds settings for the BLAST+ command-line tools.
type BlastConfig struct {
	BinDir              string            `yaml:"bin_dir"` // empty = $PATH
	TmpDir              string            `yaml:"tmp_dir"`
	DefaultDB           string            `yaml:"default_db"`
	BatchSize           int               `yaml:"batch_size"`
	Threads             int               `yaml:"threads"` // passed as -num_threads
	Workers             int               `yaml:"workers"` // concurrent batches
	MaxInlineAccessions int               `yaml:"max_inline_accessions"`
	Defaults            map[string]string `yaml:"defaults"`
	Programs            []string          `yaml:"programs"` // checked by /health
}

var knownDrivers = map[string]struct{}{
	"redis":  {},
	"valkey": {},
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	// searches block until BLAST exits
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 600
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 256 << 20
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "blastxml:"
	}
	if c.Blast.BatchSize <= 0 {
		c.Blast.BatchSize = 10000
	}
	if c.Blast.Threads <= 0 {
		c.Blast.Threads = 1
	}
	if c.Blast.Workers <= 0 {
		c.Blast.Workers = 1
	}
	if c.Blast.MaxInlineAccessions <= 0 {
		c.Blast.MaxInlineAccessions = 1000
	}
	defaults := map[string]string{
		"evalue":          "10",
		"outfmt":          "5",
		"max_target_seqs": "3",
	}
	if c.Blast.Threads > 1 {
		defaults["num_threads"] = strconv.Itoa(c.Blast.Threads)
	}
	maps.Copy(defaults, c.Blast.Defaults)
	c.Blast.Defaults = defaults
	if len(c.Blast.Programs) == 0 {
		c.Blast.Programs = []string{"blastp", "blastn"}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if _, ok := knownDrivers[c.Database.Driver]; !ok {
		return fmt.Errorf("database.driver must be \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	if c.Storage.HitTTLSec < 0 {
		return fmt.Errorf("storage.hit_ttl_sec must not be negative, got %d", c.Storage.HitTTLSec)
	}
	if v := c.Blast.Defaults["outfmt"]; v != "5" {
		return fmt.Errorf("blast.defaults.outfmt must be 5 (XML), got %q", v)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
