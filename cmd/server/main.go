package main

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hugedomains-crawler/internal/api"
	"hugedomains-crawler/internal/config"
	"hugedomains-crawler/internal/eventbus"
	"hugedomains-crawler/internal/fetcher"
	"hugedomains-crawler/internal/harvest"
	"hugedomains-crawler/internal/store"
)

// BuildCommit is set at build time via -ldflags.
var BuildCommit = "dev"

func main() {
	cfg := config.FromEnv()
	harvestCfg := config.HarvestConfigFromEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fileCfg, err := config.Load(path)
		if err != nil {
			log.Fatalf("failed to read config file %s: %v", path, err)
		}
		if fileCfg.DatabaseURL != "" {
			cfg.DatabaseURL = fileCfg.DatabaseURL
		}
		if fileCfg.APIPort != "" {
			cfg.APIPort = fileCfg.APIPort
		}
		if fileCfg.ProxyURL != "" {
			cfg.ProxyURL = fileCfg.ProxyURL
		}
		if fileCfg.AdminToken != "" {
			cfg.AdminToken = fileCfg.AdminToken
		}
	}

	log.Printf("hugedomains-crawler %s starting", BuildCommit)
	log.Printf("DB: %s", redactDatabaseURL(cfg.DatabaseURL))
	log.Printf("API Port: %s", cfg.APIPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to DB: %v", err)
	}
	defer db.Close()

	if os.Getenv("SKIP_MIGRATION") == "true" {
		log.Println("database migration SKIPPED (SKIP_MIGRATION=true)")
	} else {
		schemaPath := os.Getenv("SCHEMA_PATH")
		if schemaPath == "" {
			schemaPath = "internal/store/schema.sql"
		}
		log.Println("running database migration...")
		if err := db.Migrate(schemaPath); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		log.Println("database migration complete")
	}

	timeout := time.Duration(harvestCfg.FetchTimeoutSec) * time.Second
	retryDelay := time.Duration(harvestCfg.FetchRetryDelaySec) * time.Second
	fetch, err := fetcher.New(cfg.ProxyURL, timeout, harvestCfg.FetchMaxRetries, retryDelay, harvestCfg.FetchRPS)
	if err != nil {
		log.Fatalf("failed to build fetcher: %v", err)
	}

	tmpDir := os.Getenv("HARVEST_TMP_DIR")
	state := harvest.NewState()
	coordinator := harvest.New(db, harvest.NewFetchFn(fetch), harvestCfg, state, tmpDir)

	bus := eventbus.New()
	apiServer := api.NewServer(coordinator, state, db, cfg.APIPort, api.Options{
		AdminToken: cfg.AdminToken,
		Bus:        bus,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("starting API server on :%s", cfg.APIPort)
		if err := apiServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	<-sigChan
	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("API server shutdown error: %v", err)
	}
	cancel()
}

func redactDatabaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err == nil && u.Scheme != "" {
		if u.User != nil {
			user := u.User.Username()
			if user == "" {
				user = "user"
			}
			u.User = url.UserPassword(user, "****")
		}
		u.RawQuery = ""
		return u.String()
	}
	return raw
}
