package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate moves the test into an empty working directory with its own
// XDG config home.
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	origWd, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change to temp dir: %v", err)
	}
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "config"))
	for _, key := range keys {
		t.Setenv("LISTR_"+strings.ToUpper(key), "")
		_ = os.Unsetenv("LISTR_" + strings.ToUpper(key))
	}
	return tmpDir
}

func TestGlobalPath(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		if got := GlobalPath(); got != "/custom/config/listr/listr.yml" {
			t.Errorf("GlobalPath() = %v", got)
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		got := GlobalPath()
		if !filepath.IsAbs(got) {
			t.Errorf("GlobalPath() should return absolute path, got %v", got)
		}
		if !strings.HasSuffix(got, filepath.Join(".config", "listr", "listr.yml")) {
			t.Errorf("GlobalPath() = %v", got)
		}
	})
}

func TestProjectPath(t *testing.T) {
	if got := ProjectPath(); got != "listr.yml" {
		t.Errorf("ProjectPath() = %v, want listr.yml", got)
	}
}

func TestExists(t *testing.T) {
	isolate(t)

	if Exists() {
		t.Fatal("Exists() = true, want false when no config files exist")
	}

	if err := WriteGlobal(&Config{APIURL: "https://api"}); err != nil {
		t.Fatalf("WriteGlobal() error = %v", err)
	}
	if !Exists() {
		t.Error("Exists() = false, want true when global config exists")
	}

	_ = os.Remove(GlobalPath())
	if err := WriteProject(&Config{APIURL: "https://api"}); err != nil {
		t.Fatalf("WriteProject() error = %v", err)
	}
	if !Exists() {
		t.Error("Exists() = false, want true when project config exists")
	}
}

func TestWriteGlobal(t *testing.T) {
	isolate(t)

	cfg := &Config{
		APIURL:            "https://api.example.com",
		APIToken:          "tok",
		User:              "alice",
		DataDir:           ".test",
		SnapshotBackend:   BackendFile,
		DefaultFlow:       "fast",
		DeleteConcurrency: 2,
		RequestTimeout:    10 * time.Second,
		LogLevel:          "debug",
		LogFile:           "/tmp/test.log",
	}
	if err := WriteGlobal(cfg); err != nil {
		t.Fatalf("WriteGlobal() error = %v", err)
	}

	info, err := os.Stat(GlobalPath())
	if err != nil {
		t.Fatalf("Config file not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}

	data, err := os.ReadFile(GlobalPath())
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}
	content := string(data)
	for _, field := range []string{
		"api_url: https://api.example.com",
		"user: alice",
		"data_dir: .test",
		"snapshot_backend: file",
		"default_flow: fast",
		"delete_concurrency: 2",
		"request_timeout: 10s",
		"log_level: debug",
		"log_file: /tmp/test.log",
	} {
		if !strings.Contains(content, field) {
			t.Errorf("Config file missing expected field: %s\nContent:\n%s", field, content)
		}
	}
}

func TestLoad_NoConfig(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.APIURL != "" {
		t.Errorf("Load() with no config should have empty api_url, got %v", cfg.APIURL)
	}
	if cfg.DataDir != ".listr" {
		t.Errorf("Load() default DataDir = %v, want .listr", cfg.DataDir)
	}
	if cfg.SnapshotBackend != BackendNATS {
		t.Errorf("Load() default SnapshotBackend = %v, want nats", cfg.SnapshotBackend)
	}
	if cfg.DefaultFlow != "linear" {
		t.Errorf("Load() default DefaultFlow = %v, want linear", cfg.DefaultFlow)
	}
	if cfg.DeleteConcurrency != 4 {
		t.Errorf("Load() default DeleteConcurrency = %v, want 4", cfg.DeleteConcurrency)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("Load() default RequestTimeout = %v, want 30s", cfg.RequestTimeout)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Load() default LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestLoad_Precedence(t *testing.T) {
	isolate(t)

	if err := WriteGlobal(&Config{
		APIURL:          "https://global",
		User:            "global-user",
		DataDir:         ".global",
		SnapshotBackend: BackendFile,
		LogLevel:        "warn",
		RequestTimeout:  5 * time.Second,
	}); err != nil {
		t.Fatalf("WriteGlobal() error = %v", err)
	}
	if err := os.WriteFile(ProjectPath(), []byte("user: project-user\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LISTR_LOG_LEVEL", "debug")
	t.Setenv("LISTR_DELETE_CONCURRENCY", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.APIURL != "https://global" {
		t.Errorf("APIURL = %v, want global value", cfg.APIURL)
	}
	if cfg.User != "project-user" {
		t.Errorf("User = %v, project config should override global", cfg.User)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %v, env should override files", cfg.LogLevel)
	}
	if cfg.DeleteConcurrency != 8 {
		t.Errorf("DeleteConcurrency = %v, want 8 from env", cfg.DeleteConcurrency)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.RequestTimeout)
	}
	if cfg.SnapshotBackend != BackendFile {
		t.Errorf("SnapshotBackend = %v, want file", cfg.SnapshotBackend)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			APIURL:            "https://api",
			SnapshotBackend:   BackendNATS,
			DefaultFlow:       "manual",
			DeleteConcurrency: 4,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"empty default flow means linear", func(c *Config) { c.DefaultFlow = "" }, false},
		{"missing api url", func(c *Config) { c.APIURL = "" }, true},
		{"unknown backend", func(c *Config) { c.SnapshotBackend = "redis" }, true},
		{"unknown flow", func(c *Config) { c.DefaultFlow = "zigzag" }, true},
		{"edit is not a create flow", func(c *Config) { c.DefaultFlow = "edit" }, true},
		{"no delete workers", func(c *Config) { c.DeleteConcurrency = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
