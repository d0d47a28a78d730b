package config

import (
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENROUTER_API_KEY", "GEMINI_API_KEY", "OPENROUTER_MODEL", "PORT",
		"COFFEBUCK_DB", "COFFEBUCK_USERS_DB", "JWT_SECRET", "COFFEBUCK_CATALOG",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "CoffeBuck" {
		t.Errorf("expected Name=CoffeBuck, got %s", cfg.Name)
	}
	if cfg.LLM.Provider != ProviderOpenRouter {
		t.Errorf("expected Provider=openrouter, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "deepseek/deepseek-r1-0528-qwen3-8b:free" {
		t.Errorf("unexpected default model %s", cfg.LLM.Model)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("expected Port=3000, got %d", cfg.Server.Port)
	}
	if cfg.Limits.RateLimit != 20 || cfg.Limits.MaxBodyBytes != 10000 ||
		cfg.Limits.MaxMessages != 25 || cfg.Limits.MaxMessageChars != 2000 {
		t.Errorf("unexpected default limits %+v", cfg.Limits)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "coffebuck.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Provider = ProviderGemini
	cfg.LLM.GeminiAPIKey = "g-test"
	cfg.Server.Port = 8088
	cfg.Logging.Categories = map[string]bool{"dispatch": false}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.LLM.Provider != ProviderGemini {
		t.Errorf("expected Provider=gemini, got %s", loaded.LLM.Provider)
	}
	if loaded.LLM.ActiveKey() != "g-test" {
		t.Errorf("expected ActiveKey=g-test, got %s", loaded.LLM.ActiveKey())
	}
	if loaded.Server.Port != 8088 {
		t.Errorf("expected Port=8088, got %d", loaded.Server.Port)
	}
	if loaded.Logging.IsCategoryEnabled("dispatch") {
		t.Error("dispatch category should be disabled")
	}
	if !loaded.Logging.IsCategoryEnabled("http") {
		t.Error("unlisted categories should be enabled")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "4100")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("env override should apply without a file, got port %d", cfg.Server.Port)
	}
	if cfg.Addr() != ":4100" {
		t.Errorf("expected Addr=:4100, got %s", cfg.Addr())
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(path, "server: [unclosed"); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	// No API key is still a valid config
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}

	cfg.LLM.Provider = "invalid-provider"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid provider")
	}

	cfg = DefaultConfig()
	cfg.Server.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for port")
	}

	cfg = DefaultConfig()
	cfg.Limits.MaxMessages = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for limits")
	}

	cfg = DefaultConfig()
	cfg.Logging.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for log level")
	}
}

func TestConfig_Helpers(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.GetUpstreamTimeout() != 60*time.Second {
		t.Errorf("GetUpstreamTimeout = %v", cfg.GetUpstreamTimeout())
	}
	if cfg.Limits.GetRateWindow() != time.Minute {
		t.Errorf("GetRateWindow = %v", cfg.Limits.GetRateWindow())
	}
	if cfg.GetTokenTTL() != 24*time.Hour {
		t.Errorf("GetTokenTTL = %v", cfg.GetTokenTTL())
	}

	// Unparseable durations fall back
	cfg.Server.ShutdownTimeout = "soon"
	cfg.Limits.RateWindow = "-5s"
	if cfg.GetShutdownTimeout() != 10*time.Second {
		t.Errorf("GetShutdownTimeout fallback = %v", cfg.GetShutdownTimeout())
	}
	if cfg.Limits.GetRateWindow() != time.Minute {
		t.Errorf("GetRateWindow fallback = %v", cfg.Limits.GetRateWindow())
	}
}

func TestLoggingOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.File = "x.log"
	opts := cfg.Logging.Options()
	if opts.Level != "info" || opts.Format != "json" || opts.File != "x.log" {
		t.Errorf("unexpected options %+v", opts)
	}
}
