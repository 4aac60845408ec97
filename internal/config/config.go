package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// EnvFlickrAPIKey overrides FlickrConfig.APIKey when set.
const EnvFlickrAPIKey = "VT_FLICKR_API_KEY"

// Config represents the main configuration for vt.
type Config struct {
	JournalID  string           `toml:"journal_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level"` // "debug", "info" (default), "warn" or "error"
	Flickr     FlickrConfig     `toml:"flickr"`
	Geocoder   GeocoderConfig   `toml:"geocoder"`
	Download   DownloadConfig   `toml:"download"`
	Map        MapConfig        `toml:"map"`
	Vaults     []VaultConfig    `toml:"vaults"`
	Encryption EncryptionConfig `toml:"encryption"`
	Database   DatabaseConfig   `toml:"database"`
}

// FlickrConfig configures the remote photo search.
type FlickrConfig struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url,omitempty"`
	HalfWidth         float64 `toml:"half_width"`  // degrees of longitude either side of a pin
	HalfHeight        float64 `toml:"half_height"` // degrees of latitude either side of a pin
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// GeocoderConfig configures reverse geocoding for new pins.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type GeocoderConfig struct {
	Type      string `toml:"type"`                 // "nominatim" (default) or "none"
	BaseURL   string `toml:"base_url,omitempty"`   // only used for type=nominatim
	UserAgent string `toml:"user_agent,omitempty"` // only used for type=nominatim
}

// DownloadConfig configures photo payload downloads.
type DownloadConfig struct {
	Concurrency    int   `toml:"concurrency"`
	MaxBytes       int64 `toml:"max_bytes"`
	TimeoutSeconds int   `toml:"timeout_seconds"`
}

// MapConfig configures viewport persistence.
type MapConfig struct {
	SyncIntervalSeconds int `toml:"sync_interval_seconds"`
}

// EncryptionConfig holds paths to the age key pair used for snapshot encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default), "none" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// VaultConfig represents configuration for a snapshot vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
	S3UsePathStyle    bool   `toml:"s3_use_path_style,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the journal database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// Defaults applied by ApplyDefaults when a field is left at its zero value.
const (
	DefaultFlickrBaseURL       = "https://api.flickr.com/services/rest/"
	DefaultHalfSize            = 0.25
	DefaultRequestsPerSecond   = 1.0
	DefaultTimeoutSeconds      = 30
	DefaultGeocoderBaseURL     = "https://nominatim.openstreetmap.org"
	DefaultGeocoderUserAgent   = "vt-travel-journal/1.0"
	DefaultDownloadConcurrency = 4
	DefaultDownloadMaxBytes    = 10 << 20
	DefaultSyncIntervalSeconds = 2
	DefaultLogLevel            = "info"
	DefaultGeocoderType        = "nominatim"
	DefaultEncryptionType      = "age"
	DefaultDatabaseType        = "sqlite"
)

// NewConfig creates a new Config with the provided values, default key paths
// and default tuning values.
func NewConfig(journalID, baseDir string) *Config {
	cfg := &Config{
		JournalID: journalID,
		BaseDir:   baseDir,
		LogDir:    filepath.Join(baseDir, "log"),
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "vt.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "vt.key"),
		},
		Database: DatabaseConfig{
			Type:    DefaultDatabaseType,
			DataDir: filepath.Join(baseDir, "db"),
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued tuning fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Flickr.BaseURL == "" {
		c.Flickr.BaseURL = DefaultFlickrBaseURL
	}
	if c.Flickr.HalfWidth == 0 {
		c.Flickr.HalfWidth = DefaultHalfSize
	}
	if c.Flickr.HalfHeight == 0 {
		c.Flickr.HalfHeight = DefaultHalfSize
	}
	if c.Flickr.RequestsPerSecond == 0 {
		c.Flickr.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.Flickr.TimeoutSeconds == 0 {
		c.Flickr.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.Geocoder.Type == "" {
		c.Geocoder.Type = DefaultGeocoderType
	}
	if c.Geocoder.Type == "nominatim" {
		if c.Geocoder.BaseURL == "" {
			c.Geocoder.BaseURL = DefaultGeocoderBaseURL
		}
		if c.Geocoder.UserAgent == "" {
			c.Geocoder.UserAgent = DefaultGeocoderUserAgent
		}
	}
	if c.Download.Concurrency == 0 {
		c.Download.Concurrency = DefaultDownloadConcurrency
	}
	if c.Download.MaxBytes == 0 {
		c.Download.MaxBytes = DefaultDownloadMaxBytes
	}
	if c.Download.TimeoutSeconds == 0 {
		c.Download.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.Map.SyncIntervalSeconds == 0 {
		c.Map.SyncIntervalSeconds = DefaultSyncIntervalSeconds
	}
	if c.Encryption.Type == "" {
		c.Encryption.Type = DefaultEncryptionType
	}
}

// ApplyEnv overrides fields from environment variables looked up with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvFlickrAPIKey); v != "" {
		c.Flickr.APIKey = v
	}
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.JournalID == "" {
		errs = append(errs, errors.New("journal_id is required"))
	}
	if c.BaseDir == "" {
		errs = append(errs, errors.New("base_dir is required"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.Flickr.HalfWidth <= 0 || c.Flickr.HalfHeight <= 0 {
		errs = append(errs, errors.New("flickr.half_width and flickr.half_height must be positive"))
	}
	if c.Flickr.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("flickr.requests_per_second must be positive"))
	}
	if c.Flickr.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("flickr.timeout_seconds must be positive"))
	}
	switch c.Geocoder.Type {
	case "nominatim":
		if c.Geocoder.UserAgent == "" {
			errs = append(errs, errors.New("geocoder.user_agent is required for nominatim"))
		}
	case "none":
	default:
		errs = append(errs, fmt.Errorf("unknown geocoder type: %s", c.Geocoder.Type))
	}
	if c.Download.Concurrency < 1 {
		errs = append(errs, errors.New("download.concurrency must be at least 1"))
	}
	if c.Download.MaxBytes <= 0 {
		errs = append(errs, errors.New("download.max_bytes must be positive"))
	}
	if c.Download.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("download.timeout_seconds must be positive"))
	}
	if c.Map.SyncIntervalSeconds <= 0 {
		errs = append(errs, errors.New("map.sync_interval_seconds must be positive"))
	}
	for i, v := range c.Vaults {
		switch v.Type {
		case "memory":
		case "filesystem":
			if v.FSVaultRoot == "" {
				errs = append(errs, fmt.Errorf("vaults[%d]: fs_vault_root required for filesystem vault", i))
			}
		case "s3":
			if v.S3Bucket == "" {
				errs = append(errs, fmt.Errorf("vaults[%d]: s3_bucket required for s3 vault", i))
			}
		default:
			errs = append(errs, fmt.Errorf("vaults[%d]: unknown vault type: %s", i, v.Type))
		}
	}

	return errors.Join(errs...)
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may carry S3 credentials and the Flickr key.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
