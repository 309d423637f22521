package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("STORE_PASSWORD", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if cfg.StorePassword != "" {
		t.Fatalf("expected empty STORE_PASSWORD when unset, got %q", cfg.StorePassword)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("DATA_DIR", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.StoreBackend != "file" {
		t.Fatalf("expected default backend file, got %q", cfg.StoreBackend)
	}
	if cfg.DataDir != "data" {
		t.Fatalf("expected default data dir, got %q", cfg.DataDir)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}

func TestLoadNormalizesBackendCase(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Postgres")
	cfg := Load()
	if cfg.StoreBackend != "postgres" {
		t.Fatalf("expected lower-cased backend, got %q", cfg.StoreBackend)
	}
}
