package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8000},
		Embedding: EmbeddingConfig{
			Providers: map[string]ProviderConfig{
				"openai": {APIKey: "test-key"},
			},
			Vectorizers: map[string]VectorizerConfig{
				"default": {Provider: "openai", Model: "text-embedding-3-small"},
			},
		},
	}
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}

	cfg.HTTP.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestValidate_MissingVectorizers(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Vectorizers = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing vectorizers")
	}
}

func TestValidate_UnknownProviderReference(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Vectorizers["default"] = VectorizerConfig{Provider: "missing"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown provider reference")
	}
	expected := `embedding.vectorizers.default references unknown provider "missing"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 30 {
		t.Errorf("expected WriteTimeoutSec=30, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.HTTP.MaxUploadMB != 32 {
		t.Errorf("expected MaxUploadMB=32, got %d", cfg.HTTP.MaxUploadMB)
	}
	if cfg.Engine.InMemoryThreshold != 100 {
		t.Errorf("expected InMemoryThreshold=100, got %d", cfg.Engine.InMemoryThreshold)
	}
	if cfg.Engine.DefaultTopK != 10 {
		t.Errorf("expected DefaultTopK=10, got %d", cfg.Engine.DefaultTopK)
	}
	if cfg.Engine.MinScore != 0.1 {
		t.Errorf("expected MinScore=0.1, got %v", cfg.Engine.MinScore)
	}
	if cfg.Engine.EmbedPoolSize < 1 {
		t.Errorf("expected EmbedPoolSize>=1, got %d", cfg.Engine.EmbedPoolSize)
	}
	if cfg.Cache.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Cache.ReadinessTimeout)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:   HTTPConfig{ReadTimeoutSec: 5, WriteTimeoutSec: 60, ShutdownSec: 5, MaxUploadMB: 8},
		Engine: EngineConfig{InMemoryThreshold: 50, DefaultTopK: 3, MinScore: 0.25, EmbedPoolSize: 2},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 5 {
		t.Errorf("expected ReadTimeoutSec=5, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Engine.InMemoryThreshold != 50 {
		t.Errorf("expected InMemoryThreshold=50, got %d", cfg.Engine.InMemoryThreshold)
	}
	if cfg.Engine.MinScore != 0.25 {
		t.Errorf("expected MinScore=0.25, got %v", cfg.Engine.MinScore)
	}
	if cfg.Engine.EmbedPoolSize != 2 {
		t.Errorf("expected EmbedPoolSize=2, got %d", cfg.Engine.EmbedPoolSize)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_EXPAND_KEY", "secret")

	in := []byte("api_key: ${TEST_EXPAND_KEY}\nmodel: ${TEST_EXPAND_MISSING:-fallback}\n")
	got := string(expandEnvVars(in))

	want := "api_key: secret\nmodel: fallback\n"
	if got != want {
		t.Errorf("unexpected expansion:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestExpandEnvVars_EmptyWithoutDefault(t *testing.T) {
	os.Unsetenv("TEST_EXPAND_UNSET")
	got := string(expandEnvVars([]byte("v: ${TEST_EXPAND_UNSET}")))
	if got != "v: " {
		t.Errorf("expected empty substitution, got %q", got)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("expected prod, got %q", got)
	}

	os.Unsetenv("ENV")
	if got := GetEnv(); got != "local" {
		t.Errorf("expected default local, got %q", got)
	}
}
