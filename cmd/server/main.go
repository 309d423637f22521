package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medipos/internal/cache"
	"medipos/internal/config"
	"medipos/internal/httpapi"
	"medipos/internal/kv"
	"medipos/internal/kv/fskv"
	"medipos/internal/kv/rediskv"
	"medipos/internal/service"
	"medipos/internal/store"
	"medipos/internal/store/kvledger"
	"medipos/internal/store/memory"
	pgstore "medipos/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 3)
	repo, repoClosers, err := buildRepository(ctx, cfg)
	if err != nil {
		log.Fatalf("repository unavailable: %v", err)
	}
	closers = append(closers, repoClosers...)

	reports := cache.ReportCache(cache.NewNoop())
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Printf("redis unavailable (%v), using noop report cache", err)
		} else {
			reports = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("report cache: redis")
		}
	} else {
		log.Println("report cache: noop")
	}

	svc := service.New(repo, reports)
	auth, err := httpapi.NewAuthManager(cfg.AuthSecret, cfg.StorePassword, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute)
	if err != nil {
		log.Fatalf("auth setup: %v", err)
	}
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("medicine store backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

// buildRepository selects the persistence backend. "postgres" and "redis"
// refuse to start when their server is unreachable; a configured backend that
// silently degrades to memory would lose the ledgers on restart.
func buildRepository(ctx context.Context, cfg config.Config) (store.Repository, []func() error, error) {
	switch cfg.StoreBackend {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("STORE_BACKEND=postgres requires DATABASE_URL")
		}
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		log.Println("repository: postgres")
		return pg, []func() error{pg.Close}, nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, nil, fmt.Errorf("STORE_BACKEND=redis requires REDIS_ADDR")
		}
		backend, err := rediskv.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "medipos")
		if err != nil {
			return nil, nil, err
		}
		return newLedgerRepo(ctx, backend, "redis")
	case "file":
		backend, err := fskv.New(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return newLedgerRepo(ctx, backend, "file")
	case "memory":
		log.Println("repository: in-memory (seeded)")
		return memory.NewSeeded(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

func newLedgerRepo(ctx context.Context, backend kv.Store, name string) (store.Repository, []func() error, error) {
	repo, err := kvledger.New(ctx, backend)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	log.Printf("repository: %s-backed ledger", name)
	return repo, []func() error{backend.Close}, nil
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if len(cfg.StorePassword) < 6 {
		return fmt.Errorf("STORE_PASSWORD must be set and at least 6 characters")
	}
	return nil
}
