package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	def := DefaultConfig()
	if cfg.Backend != BackendSQLite {
		t.Errorf("Backend = %q, want %q", cfg.Backend, BackendSQLite)
	}
	if cfg.FeedLimit != def.FeedLimit {
		t.Errorf("FeedLimit = %d, want %d", cfg.FeedLimit, def.FeedLimit)
	}
	if cfg.Addr() != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q, want 127.0.0.1:8080", cfg.Addr())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"port": 9000, "feed_limit": 5, "base_url": "https://example.com/", "log_level": "debug"}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.FeedLimit != 5 {
		t.Errorf("FeedLimit = %d, want 5", cfg.FeedLimit)
	}
	if cfg.BaseURL != "https://example.com" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	// Untouched fields keep defaults
	if cfg.Bind != "127.0.0.1" {
		t.Errorf("Bind = %q, want default", cfg.Bind)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{not json}`)

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledToolsAndTypes(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"disabled_tools": ["sequence_list", " content_tags "], "disabled_types": ["verse"]}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
	if cfg.DisabledTools[1] != "content_tags" {
		t.Errorf("DisabledTools[1] = %q, want trimmed content_tags", cfg.DisabledTools[1])
	}
	if len(cfg.DisabledTypes) != 1 || cfg.DisabledTypes[0] != "verse" {
		t.Errorf("DisabledTypes = %v, want [verse]", cfg.DisabledTypes)
	}
}

func TestLoad_DisabledToolsEmpty(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.DisabledTools) != 0 {
		t.Fatalf("DisabledTools = %v, want nil or empty", cfg.DisabledTools)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"documents with dir", func(c *Config) { c.Backend = BackendDocuments; c.DocumentsDir = "/srv/site" }, false},
		{"documents without dir", func(c *Config) { c.Backend = BackendDocuments }, true},
		{"unknown backend", func(c *Config) { c.Backend = "postgres" }, true},
		{"port out of range", func(c *Config) { c.Port = 70000 }, true},
		{"negative feed limit", func(c *Config) { c.FeedLimit = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveDocumentsDir(t *testing.T) {
	cfg := &Config{DocumentsDir: "content"}
	if got := cfg.ResolveDocumentsDir("/home/me/.site"); got != filepath.Join("/home/me/.site", "content") {
		t.Errorf("ResolveDocumentsDir(relative) = %q", got)
	}
	cfg.DocumentsDir = "/srv/site"
	if got := cfg.ResolveDocumentsDir("/home/me/.site"); got != "/srv/site" {
		t.Errorf("ResolveDocumentsDir(absolute) = %q", got)
	}
}

func TestLoadWithRepo_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	writeConfig(t, globalDir, `{"port": 8000, "disabled_tools": ["sequence_list"]}`)
	writeConfig(t, filepath.Join(repoRoot, ".site"), `{"port": 9000, "disabled_tools": ["content_tags"]}`)

	cfg, err := LoadWithRepo(globalDir, repoRoot)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	// Repo overrides scalar
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000 (repo override)", cfg.Port)
	}

	// Arrays merged
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
}

func TestLoadWithRepo_OnlyGlobal(t *testing.T) {
	globalDir := t.TempDir()
	repoDir := t.TempDir() // No config file

	writeConfig(t, globalDir, `{"site_title": "Notes"}`)

	cfg, err := LoadWithRepo(globalDir, repoDir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.SiteTitle != "Notes" {
		t.Errorf("SiteTitle = %q, want Notes", cfg.SiteTitle)
	}
}

func TestLoadWithRepo_RelativeDocumentsDir(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	writeConfig(t, filepath.Join(repoRoot, ".site"), `{"backend": "documents", "documents_dir": "data"}`)

	subdir := filepath.Join(repoRoot, "src", "pages")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, subdir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.Backend != BackendDocuments {
		t.Errorf("Backend = %q, want documents", cfg.Backend)
	}
	if want := filepath.Join(repoRoot, "data"); cfg.DocumentsDir != want {
		t.Errorf("DocumentsDir = %q, want %q (relative to checkout)", cfg.DocumentsDir, want)
	}
}

func TestLoadWithRepo_NeitherPresent(t *testing.T) {
	cfg, err := LoadWithRepo(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	// All defaults
	if cfg.FeedLimit != 20 {
		t.Errorf("FeedLimit = %d, want 20", cfg.FeedLimit)
	}
	if len(cfg.DisabledTools) != 0 {
		t.Errorf("DisabledTools = %v, want empty", cfg.DisabledTools)
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{FeedLimit: 10, DBMaxOpenConns: 5, SiteTitle: "Base"}
	overlay := &Config{FeedLimit: 3, SiteTitle: "  "} // DBMaxOpenConns is 0 (zero value)

	result := Merge(base, overlay)

	if result.FeedLimit != 3 {
		t.Errorf("FeedLimit = %d, want 3 (overlay)", result.FeedLimit)
	}
	if result.DBMaxOpenConns != 5 {
		t.Errorf("DBMaxOpenConns = %d, want 5 (base, overlay is zero)", result.DBMaxOpenConns)
	}
	if result.SiteTitle != "Base" {
		t.Errorf("SiteTitle = %q, want Base (overlay is blank)", result.SiteTitle)
	}
}

func TestMerge_BooleanOr(t *testing.T) {
	result := Merge(&Config{AllowUnsafePaths: true}, &Config{AllowUnsafePaths: false})

	if !result.AllowUnsafePaths {
		t.Error("AllowUnsafePaths should be true (base OR overlay)")
	}

	result = Merge(&Config{}, &Config{AllowPreview: true})
	if !result.AllowPreview {
		t.Error("AllowPreview should be true (base OR overlay)")
	}
}

func TestLoad_AllowPreview(t *testing.T) {
	if DefaultConfig().AllowPreview {
		t.Fatal("AllowPreview should default to false")
	}

	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"allow_preview": true}`)
	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.AllowPreview {
		t.Error("AllowPreview = false, want true from config.json")
	}
}

func TestMerge_ArrayMergeDedup(t *testing.T) {
	base := &Config{DisabledTools: []string{"content_list", "content_get"}}
	overlay := &Config{DisabledTools: []string{"content_get", "sequence_get"}}

	result := Merge(base, overlay)

	want := []string{"content_list", "content_get", "sequence_get"}
	if len(result.DisabledTools) != len(want) {
		t.Fatalf("DisabledTools = %v, want %v", result.DisabledTools, want)
	}
	for i := range want {
		if result.DisabledTools[i] != want[i] {
			t.Errorf("DisabledTools[%d] = %q, want %q", i, result.DisabledTools[i], want[i])
		}
	}
}

func TestFindRepoConfig_InParentDir(t *testing.T) {
	// Create: tmpDir/.site/config.json
	//         tmpDir/subdir/deeper/
	tmpDir := t.TempDir()
	writeConfig(t, filepath.Join(tmpDir, ".site"), `{}`)
	configPath := filepath.Join(tmpDir, ".site", "config.json")

	subdir := filepath.Join(tmpDir, "subdir", "deeper")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	if found := FindRepoConfig(tmpDir); found != configPath {
		t.Errorf("FindRepoConfig(root) = %q, want %q", found, configPath)
	}
	if found := FindRepoConfig(subdir); found != configPath {
		t.Errorf("FindRepoConfig(subdir) = %q, want %q", found, configPath)
	}
}

func TestFindRepoConfig_NotFound(t *testing.T) {
	if found := FindRepoConfig(t.TempDir()); found != "" {
		t.Errorf("FindRepoConfig() = %q, want empty string", found)
	}
	if found := FindRepoConfig(""); found != "" {
		t.Errorf("FindRepoConfig(\"\") = %q, want empty string", found)
	}
}
