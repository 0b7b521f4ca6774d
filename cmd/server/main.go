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

	"dukaanbill/backend/internal/backend"
	"dukaanbill/backend/internal/backend/memory"
	"dukaanbill/backend/internal/backend/rest"
	"dukaanbill/backend/internal/billing"
	"dukaanbill/backend/internal/cache"
	"dukaanbill/backend/internal/config"
	"dukaanbill/backend/internal/domain"
	"dukaanbill/backend/internal/httpapi"
	"dukaanbill/backend/internal/render"
	"dukaanbill/backend/internal/taxconfig"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)

	var gateway backend.Client
	if cfg.BackendBaseURL != "" {
		gw, err := rest.New(cfg.BackendBaseURL)
		if err != nil {
			log.Fatalf("invalid BACKEND_BASE_URL: %v", err)
		}
		gateway = gw
		log.Println("gateway: rest")
	} else {
		gateway = memory.NewSeeded()
		log.Println("gateway: in-memory demo")
	}

	cacheStore := cache.Cache(cache.Noop{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			cacheStore = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	seedTax := domain.TaxConfig{
		GSTEnabled:      true,
		GSTPercentage:   cfg.DefaultTaxPercent,
		CGSTSGSTEnabled: true,
		TaxMode:         "exclusive",
	}
	taxes := taxconfig.New(gateway, seedTax, time.Duration(cfg.TaxPollSeconds)*time.Second)
	taxes.Start(context.Background())

	svc := billing.New(gateway, taxes, cacheStore, time.Duration(cfg.SessionTTLMinutes)*time.Minute)
	auth := httpapi.NewAuthManager(cfg.AuthSecret)
	renderer := render.New(cfg.BackendOrigin)
	api := httpapi.New(svc, auth, renderer, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("billing tier listening on %s", cfg.Address())
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

	taxes.Stop()
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}
