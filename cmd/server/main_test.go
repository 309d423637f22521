package main

import (
	"context"
	"testing"
	"time"

	"medipos/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short", StorePassword: "apotheke"})
	if err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}
	err = validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", StorePassword: "abc"})
	if err == nil {
		t.Fatalf("expected short store password to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", StorePassword: "apotheke"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestBuildRepositorySelectsBackends(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, _, err := buildRepository(ctx, config.Config{StoreBackend: "postgres"}); err == nil {
		t.Fatalf("expected postgres backend without DATABASE_URL to fail")
	}
	if _, _, err := buildRepository(ctx, config.Config{StoreBackend: "redis"}); err == nil {
		t.Fatalf("expected redis backend without REDIS_ADDR to fail")
	}
	if _, _, err := buildRepository(ctx, config.Config{StoreBackend: "carrier-pigeon"}); err == nil {
		t.Fatalf("expected unknown backend to fail")
	}

	repo, closers, err := buildRepository(ctx, config.Config{StoreBackend: "file", DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("file backend: %v", err)
	}
	if repo == nil || len(closers) != 1 {
		t.Fatalf("expected file-backed repository with one closer")
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	repo, closers, err = buildRepository(ctx, config.Config{StoreBackend: "memory"})
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	if repo == nil || len(closers) != 0 {
		t.Fatalf("expected in-memory repository with no closers")
	}
}
