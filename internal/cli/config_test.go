package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func useTempHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("FLAGPROPS_BASE_URL", "")
	return home
}

func TestLoadConfig_Defaults(t *testing.T) {
	useTempHome(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Format != string(FormatTable) {
		t.Errorf("Format = %q, want table", cfg.Format)
	}
	if cfg.Concurrency != defaultConcurrency {
		t.Errorf("Concurrency = %d, want %d", cfg.Concurrency, defaultConcurrency)
	}
	if cfg.BaseURL != "" {
		t.Errorf("BaseURL = %q, want empty", cfg.BaseURL)
	}
}

func TestConfig_InitSetAndReload(t *testing.T) {
	home := useTempHome(t)

	if err := InitConfig(); err != nil {
		t.Fatalf("InitConfig() error: %v", err)
	}
	path := filepath.Join(home, ".flagprops", "config.yaml")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	for key, value := range map[string]string{
		"base_url":    "http://localhost:8080",
		"format":      "json",
		"concurrency": "16",
	} {
		if err := cfg.Set(key, value); err != nil {
			t.Fatalf("Set(%s) error: %v", key, err)
		}
	}
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}

	reloaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	for key, want := range map[string]string{
		"base_url":    "http://localhost:8080",
		"format":      "json",
		"concurrency": "16",
	} {
		got, err := reloaded.Get(key)
		if err != nil {
			t.Fatalf("Get(%s) error: %v", key, err)
		}
		if got != want {
			t.Errorf("Get(%s) = %q, want %q", key, got, want)
		}
	}
}

func TestConfig_SetRejectsBadValues(t *testing.T) {
	cfg := defaultConfig()
	tests := []struct {
		key, value string
	}{
		{"format", "xml"},
		{"concurrency", "0"},
		{"concurrency", "many"},
		{"api_key", "secret"},
	}
	for _, tt := range tests {
		if err := cfg.Set(tt.key, tt.value); err == nil {
			t.Errorf("Set(%s, %s) should fail", tt.key, tt.value)
		}
	}
	if _, err := cfg.Get("api_key"); err == nil {
		t.Error("Get(api_key) should fail")
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	home := useTempHome(t)
	dir := filepath.Join(home, ".flagprops")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("format: [json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(); err == nil {
		t.Error("expected parse error")
	}
}

func TestResolveBaseURL(t *testing.T) {
	cfg := &Config{BaseURL: "http://from-file"}

	t.Setenv("FLAGPROPS_BASE_URL", "")
	if got := ResolveBaseURL("", cfg); got != "http://from-file" {
		t.Errorf("config file: got %q", got)
	}

	t.Setenv("FLAGPROPS_BASE_URL", "http://from-env")
	if got := ResolveBaseURL("", cfg); got != "http://from-env" {
		t.Errorf("env: got %q", got)
	}
	if got := ResolveBaseURL("http://from-flag", cfg); got != "http://from-flag" {
		t.Errorf("flag: got %q", got)
	}

	t.Setenv("FLAGPROPS_BASE_URL", "")
	if got := ResolveBaseURL("", nil); got != "" {
		t.Errorf("nothing configured: got %q", got)
	}
}
