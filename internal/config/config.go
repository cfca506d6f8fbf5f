package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Backend names accepted in config.json.
const (
	BackendSQLite    = "sqlite"
	BackendDocuments = "documents"
)

// Config holds application configuration.
type Config struct {
	// Backend selects the record store: "sqlite" (default) or "documents".
	Backend string `json:"backend,omitempty"`

	// DocumentsDir is the root of the document store when Backend is "documents".
	// Relative paths are resolved against the home directory.
	DocumentsDir string `json:"documents_dir,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// Bind and Port control the HTTP listener for "site serve".
	Bind string `json:"bind,omitempty"`
	Port int    `json:"port,omitempty"`

	// BaseURL is prefixed to item URLs in the RSS feed.
	BaseURL string `json:"base_url,omitempty"`

	// SiteTitle is the channel title of the RSS feed.
	SiteTitle string `json:"site_title,omitempty"`

	// FeedLimit caps the number of items in the RSS feed.
	FeedLimit int `json:"feed_limit,omitempty"`

	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// AllowedPaths is an allowlist of directories for import/export files.
	// Paths outside <home>/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// AllowPreview lets HTTP and MCP callers request hidden items and
	// sequences with include_hidden. Off by default.
	AllowPreview bool `json:"allow_preview,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of content types (canonical name or route) to
	// hide from every surface. Unknown type names are logged as warnings.
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Backend:   BackendSQLite,
		Bind:      "127.0.0.1",
		Port:      8080,
		BaseURL:   "http://localhost:8080",
		SiteTitle: "Site",
		FeedLimit: 20,
		LogLevel:  "info",
	}
}

// Validate checks values that cannot be repaired by defaults.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendDocuments:
	default:
		return fmt.Errorf("config: backend must be %q or %q, got %q", BackendSQLite, BackendDocuments, c.Backend)
	}
	if c.Backend == BackendDocuments && c.DocumentsDir == "" {
		return fmt.Errorf("config: documents_dir is required when backend is %q", BackendDocuments)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config: port out of range: %d", c.Port)
	}
	if c.FeedLimit < 0 {
		return fmt.Errorf("config: feed_limit must not be negative")
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// ResolveDocumentsDir returns DocumentsDir as an absolute path, resolving a
// relative value against baseDir.
func (c *Config) ResolveDocumentsDir(baseDir string) string {
	if c.DocumentsDir == "" || filepath.IsAbs(c.DocumentsDir) {
		return c.DocumentsDir
	}
	return filepath.Join(baseDir, c.DocumentsDir)
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.site.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both the home directory and a site
// checkout (.site/config.json). The checkout config is found by walking upward
// from startDir. Checkout config takes precedence for scalar values; arrays
// are merged (deduplicated). Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	// Walk upward from startDir to find repo config
	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	// A relative documents_dir in the checkout config is relative to the checkout
	if repoConfigPath != "" && repo.DocumentsDir != "" && !filepath.IsAbs(repo.DocumentsDir) {
		repo.DocumentsDir = filepath.Join(filepath.Dir(filepath.Dir(repoConfigPath)), repo.DocumentsDir)
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .site/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".site", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root, not found
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// File doesn't exist, return zero config
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.Backend = mergeString(base.Backend, overlay.Backend)
	result.DocumentsDir = mergeString(base.DocumentsDir, overlay.DocumentsDir)
	result.Bind = mergeString(base.Bind, overlay.Bind)
	result.BaseURL = strings.TrimRight(mergeString(base.BaseURL, overlay.BaseURL), "/")
	result.SiteTitle = mergeString(base.SiteTitle, overlay.SiteTitle)
	result.LogLevel = mergeString(base.LogLevel, overlay.LogLevel)

	result.DBMaxOpenConns = mergeInt(base.DBMaxOpenConns, overlay.DBMaxOpenConns)
	result.DBMaxIdleConns = mergeInt(base.DBMaxIdleConns, overlay.DBMaxIdleConns)
	result.Port = mergeInt(base.Port, overlay.Port)
	result.FeedLimit = mergeInt(base.FeedLimit, overlay.FeedLimit)

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths
	result.AllowPreview = base.AllowPreview || overlay.AllowPreview

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func mergeString(base, overlay string) string {
	if s := strings.TrimSpace(overlay); s != "" {
		return s
	}
	return base
}

func mergeInt(base, overlay int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
