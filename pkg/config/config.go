package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	apperrors "stargazers/pkg/errors"
	"stargazers/pkg/models"
)

const (
	// StargazersPerPage is the fixed page size of the stargazer listing.
	StargazersPerPage = 100

	// Batch sizes used when BATCH_SIZE is not given.
	DefaultAuthenticatedBatchSize   = 100
	DefaultUnauthenticatedBatchSize = 5
)

// Config holds all configuration options for a crawl run
type Config struct {
	GitHub  GitHubConfig  `yaml:"github" toml:"github" json:"github"`
	Enrich  EnrichConfig  `yaml:"enrich" toml:"enrich" json:"enrich"`
	Storage StorageConfig `yaml:"storage" toml:"storage" json:"storage"`
	Report  ReportConfig  `yaml:"report" toml:"report" json:"report"`
	Logging LoggingConfig `yaml:"logging" toml:"logging" json:"logging"`

	// Warnings collects ignored settings for the caller to log once a
	// logger exists.
	Warnings []string `yaml:"-" toml:"-" json:"-"`
}

// GitHubConfig identifies the target repository and how to reach the API
type GitHubConfig struct {
	Owner             string        `yaml:"owner" toml:"owner" json:"owner"`
	Repo              string        `yaml:"repo" toml:"repo" json:"repo"`
	Token             string        `yaml:"token" toml:"token" json:"token"`
	BaseURL           string        `yaml:"base_url" toml:"base_url" json:"base_url"`
	UserAgent         string        `yaml:"user_agent" toml:"user_agent" json:"user_agent"`
	RequestTimeout    time.Duration `yaml:"request_timeout" toml:"request_timeout" json:"request_timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" toml:"requests_per_minute" json:"requests_per_minute"`
}

// EnrichConfig controls the batched user-detail stage. A zero BatchSize
// selects the default for the current authentication state.
type EnrichConfig struct {
	BatchSize int `yaml:"batch_size" toml:"batch_size" json:"batch_size"`
}

// StorageConfig selects where sets and checkpoints are persisted
type StorageConfig struct {
	Backend     string `yaml:"backend" toml:"backend" json:"backend"`
	OutputDir   string `yaml:"output_dir" toml:"output_dir" json:"output_dir"`
	CacheDir    string `yaml:"cache_dir" toml:"cache_dir" json:"cache_dir"`
	SQLitePath  string `yaml:"sqlite_path" toml:"sqlite_path" json:"sqlite_path"`
	RedisAddr   string `yaml:"redis_addr" toml:"redis_addr" json:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix" toml:"redis_prefix" json:"redis_prefix"`
}

type ReportConfig struct {
	TopN int `yaml:"top_n" toml:"top_n" json:"top_n"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level" json:"level"`
	File  string `yaml:"file" toml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			BaseURL:        "https://api.github.com",
			UserAgent:      "stargazers",
			RequestTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Backend:     "file",
			OutputDir:   ".",
			CacheDir:    ".cache",
			SQLitePath:  "stargazers.db",
			RedisAddr:   "127.0.0.1:6379",
			RedisPrefix: "stargazers",
		},
		Report: ReportConfig{
			TopN: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if owner := os.Getenv("GITHUB_OWNER"); owner != "" {
		c.GitHub.Owner = owner
	}
	if repo := os.Getenv("GITHUB_REPO"); repo != "" {
		c.GitHub.Repo = repo
	}
	if token := os.Getenv("GITHUB_PERSONAL_ACCESS_TOKEN"); token != "" {
		c.GitHub.Token = token
	}
	if baseURL := os.Getenv("STARGAZERS_API_URL"); baseURL != "" {
		c.GitHub.BaseURL = baseURL
	}

	// an unusable BATCH_SIZE falls back to the token-based default
	if batch := os.Getenv("BATCH_SIZE"); batch != "" {
		val, err := strconv.Atoi(strings.TrimSpace(batch))
		if err != nil || val <= 0 {
			c.Enrich.BatchSize = 0
			c.Warnings = append(c.Warnings, fmt.Sprintf("ignoring BATCH_SIZE %q, using the default batch size", batch))
		} else {
			c.Enrich.BatchSize = val
		}
	}
	if timeout := os.Getenv("STARGAZERS_REQUEST_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("STARGAZERS_REQUEST_TIMEOUT: %w", err))
		} else {
			c.GitHub.RequestTimeout = d
		}
	}
	if rpm := os.Getenv("STARGAZERS_REQUESTS_PER_MINUTE"); rpm != "" {
		val, err := strconv.Atoi(rpm)
		if err != nil {
			errs = append(errs, fmt.Errorf("STARGAZERS_REQUESTS_PER_MINUTE: %w", err))
		} else {
			c.GitHub.RequestsPerMinute = val
		}
	}

	if backend := os.Getenv("STARGAZERS_STORAGE_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}
	if dir := os.Getenv("STARGAZERS_OUTPUT_DIR"); dir != "" {
		c.Storage.OutputDir = dir
	}
	if dir := os.Getenv("STARGAZERS_CACHE_DIR"); dir != "" {
		c.Storage.CacheDir = dir
	}
	if path := os.Getenv("STARGAZERS_SQLITE_PATH"); path != "" {
		c.Storage.SQLitePath = path
	}
	if addr := os.Getenv("STARGAZERS_REDIS_ADDR"); addr != "" {
		c.Storage.RedisAddr = addr
	}

	if logLevel := os.Getenv("STARGAZERS_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("STARGAZERS_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML or TOML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".stargazers.yaml",
		".stargazers.yml",
		".stargazers.toml",
		filepath.Join(home, ".config", "stargazers", "config.yaml"),
		filepath.Join(home, ".config", "stargazers", "config.yml"),
		filepath.Join(home, ".config", "stargazers", "config.toml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. Owner and repo are checked
// separately by RepoID since they may still be prompted for.
func (c *Config) Validate() error {
	var errs []error

	if c.GitHub.BaseURL == "" {
		errs = append(errs, errors.New("GitHub API base URL is required"))
	}
	if c.GitHub.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.GitHub.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.Enrich.BatchSize < 0 {
		errs = append(errs, errors.New("batch size cannot be negative"))
	}
	if c.Report.TopN <= 0 {
		errs = append(errs, errors.New("report top_n must be positive"))
	}

	switch c.Storage.Backend {
	case "file":
		if c.Storage.OutputDir == "" || c.Storage.CacheDir == "" {
			errs = append(errs, errors.New("file storage requires output_dir and cache_dir"))
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite storage requires sqlite_path"))
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			errs = append(errs, errors.New("redis storage requires redis_addr"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return apperrors.Wrap(apperrors.ErrorTypeConfiguration, errors.Join(errs...), "invalid configuration")
	}

	return nil
}

// RepoID returns the repository identity, failing when either part is missing
func (c *Config) RepoID() (models.RepoID, error) {
	id := models.RepoID{Owner: strings.TrimSpace(c.GitHub.Owner), Repo: strings.TrimSpace(c.GitHub.Repo)}
	if id.Owner == "" {
		return id, apperrors.Configuration("repository owner is required")
	}
	if id.Repo == "" {
		return id, apperrors.Configuration("repository name is required")
	}
	return id, nil
}

// Authenticated reports whether a personal access token is configured
func (c *Config) Authenticated() bool {
	return c.GitHub.Token != ""
}

// EffectiveBatchSize returns the configured batch size, or the default for
// the current authentication state when none is set.
func (c *Config) EffectiveBatchSize() int {
	if c.Enrich.BatchSize > 0 {
		return c.Enrich.BatchSize
	}
	if c.Authenticated() {
		return DefaultAuthenticatedBatchSize
	}
	return DefaultUnauthenticatedBatchSize
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if owner, ok := flags["owner"].(string); ok && owner != "" {
		c.GitHub.Owner = owner
	}
	if repo, ok := flags["repo"].(string); ok && repo != "" {
		c.GitHub.Repo = repo
	}
	if token, ok := flags["token"].(string); ok && token != "" {
		c.GitHub.Token = token
	}
	if batch, ok := flags["batch-size"].(int); ok && batch > 0 {
		c.Enrich.BatchSize = batch
	}
	if backend, ok := flags["storage"].(string); ok && backend != "" {
		c.Storage.Backend = backend
	}
	if dir, ok := flags["output"].(string); ok && dir != "" {
		c.Storage.OutputDir = dir
	}
	if top, ok := flags["top"].(int); ok && top > 0 {
		c.Report.TopN = top
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".stargazers.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeConfiguration, err, "failed to load config file")
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeConfiguration, err, "failed to load environment variables")
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}
