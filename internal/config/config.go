package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultListenPort             = 8080
	defaultDataDir                = "./data"
	defaultCacheTTLHours          = 168
	defaultMaxDownloadBytes       = 5 << 30
	defaultMaxExtractedFileBytes  = 100 << 20
	defaultMaxExtractedTotalBytes = 1 << 30
	defaultInitialBackoff         = time.Second
	defaultMaxBackoff             = 30 * time.Second
	defaultMaxRetries             = 3
)

// Config holds global application settings. The API credential is the
// only setting without a default; it never appears in logs or errors.
type Config struct {
	APIKey                 string   `yaml:"api_key"`
	ListenPort             int      `yaml:"listen_port"`
	DataDir                string   `yaml:"data_dir"`
	CacheTTLHours          int      `yaml:"cache_ttl_hours"`
	MaxDownloadBytes       int64    `yaml:"max_download_bytes"`
	MaxExtractedFileBytes  int64    `yaml:"max_extracted_file_bytes"`
	MaxExtractedTotalBytes int64    `yaml:"max_extracted_total_bytes"`
	MaxRetries             int      `yaml:"max_retries"`
	CORSOrigins            []string `yaml:"cors_origins"`

	InitialBackoff    time.Duration `yaml:"-"`
	MaxBackoff        time.Duration `yaml:"-"`
	InitialBackoffStr string        `yaml:"initial_backoff"`
	MaxBackoffStr     string        `yaml:"max_backoff"`
}

// Load reads configuration from the given directory. Defaults are
// applied first, then config.yaml if present, then MODSCOPE_*
// environment variables.
func Load(configDir string) (*Config, error) {
	cfg := &Config{
		ListenPort:             defaultListenPort,
		DataDir:                defaultDataDir,
		CacheTTLHours:          defaultCacheTTLHours,
		MaxDownloadBytes:       defaultMaxDownloadBytes,
		MaxExtractedFileBytes:  defaultMaxExtractedFileBytes,
		MaxExtractedTotalBytes: defaultMaxExtractedTotalBytes,
		InitialBackoff:         defaultInitialBackoff,
		MaxBackoff:             defaultMaxBackoff,
		MaxRetries:             defaultMaxRetries,
	}

	configPath := filepath.Join(configDir, "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
		if err := cfg.parseDurations(); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CacheTTL returns the analysis cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// Validate checks the settings a running server depends on.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("api key is required (set MODSCOPE_API_KEY or api_key in config.yaml)")
	}
	if c.ListenPort < 1 || c.ListenPort > 65535 {
		return fmt.Errorf("listen port %d out of range", c.ListenPort)
	}
	return nil
}

func (c *Config) parseDurations() error {
	if c.InitialBackoffStr != "" {
		d, err := time.ParseDuration(c.InitialBackoffStr)
		if err != nil {
			return fmt.Errorf("parsing initial_backoff: %w", err)
		}
		c.InitialBackoff = d
	}
	if c.MaxBackoffStr != "" {
		d, err := time.ParseDuration(c.MaxBackoffStr)
		if err != nil {
			return fmt.Errorf("parsing max_backoff: %w", err)
		}
		c.MaxBackoff = d
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("MODSCOPE_API_KEY"); ok {
		c.APIKey = v
	}
	if v, ok := os.LookupEnv("MODSCOPE_DATA_DIR"); ok {
		c.DataDir = v
	}
	if v, ok := os.LookupEnv("MODSCOPE_CORS_ORIGINS"); ok {
		c.CORSOrigins = splitList(v)
	}

	intVars := []struct {
		name string
		dest *int
	}{
		{"MODSCOPE_LISTEN_PORT", &c.ListenPort},
		{"MODSCOPE_CACHE_TTL_HOURS", &c.CacheTTLHours},
		{"MODSCOPE_MAX_RETRIES", &c.MaxRetries},
	}
	for _, iv := range intVars {
		if v, ok := os.LookupEnv(iv.name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", iv.name, err)
			}
			*iv.dest = n
		}
	}

	sizeVars := []struct {
		name string
		dest *int64
	}{
		{"MODSCOPE_MAX_DOWNLOAD_BYTES", &c.MaxDownloadBytes},
		{"MODSCOPE_MAX_EXTRACTED_FILE_BYTES", &c.MaxExtractedFileBytes},
		{"MODSCOPE_MAX_EXTRACTED_TOTAL_BYTES", &c.MaxExtractedTotalBytes},
	}
	for _, sv := range sizeVars {
		if v, ok := os.LookupEnv(sv.name); ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", sv.name, err)
			}
			*sv.dest = n
		}
	}

	durationVars := []struct {
		name string
		dest *time.Duration
	}{
		{"MODSCOPE_INITIAL_BACKOFF", &c.InitialBackoff},
		{"MODSCOPE_MAX_BACKOFF", &c.MaxBackoff},
	}
	for _, dv := range durationVars {
		if v, ok := os.LookupEnv(dv.name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", dv.name, err)
			}
			*dv.dest = d
		}
	}

	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
