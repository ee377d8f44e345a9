package main

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"time"

	"erc20scan/internal/api"
	"erc20scan/internal/config"
	"erc20scan/internal/ethereum"
	"erc20scan/internal/eventbus"
	"erc20scan/internal/ingester"
	"erc20scan/internal/repository"
)

// BuildCommit is set at build time via -ldflags.
var BuildCommit = "dev"

func main() {
	// 1. Config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	log.Println("Initializing ERC-20 transfer indexer...")
	log.Printf("DB: %s", redactDatabaseURL(cfg.DatabaseURL))
	log.Printf("RPC: %s", cfg.RPCURL)
	log.Printf("Token: %s", cfg.ContractAddress)
	log.Printf("API Port: %s", cfg.APIPort)

	// 2. Dependencies
	repo, err := repository.NewRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer repo.Close()

	// 2a. Auto-Migration (skip with SKIP_MIGRATION=true for API-only containers)
	if os.Getenv("SKIP_MIGRATION") == "true" {
		log.Println("Database Migration SKIPPED (SKIP_MIGRATION=true)")
	} else {
		log.Println("Running Database Migration...")
		if err := repo.Migrate("schema.sql"); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Database Migration Complete.")
	}

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 15*time.Second)
	ethClient, err := ethereum.NewClient(dialCtx, cfg.RPCURL)
	dialCancel()
	if err != nil {
		log.Fatalf("Failed to connect to RPC endpoint: %v", err)
	}
	defer ethClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := eventbus.New()
	defer bus.Close()

	var wg sync.WaitGroup

	// 3. Ingester (optional; disable for API-only deployments)
	if os.Getenv("ENABLE_INGESTER") != "false" {
		svc := ingester.NewService(ethClient, repo, bus, ingester.Config{
			TokenAddress: cfg.ContractAddress,
			StartBlock:   cfg.StartBlock,
		})

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Start(ctx); err != nil && err != context.Canceled {
				log.Printf("Ingester stopped: %v", err)
			}
		}()
	} else {
		log.Println("Ingester is DISABLED (ENABLE_INGESTER=false)")
	}

	// 4. API Server
	apiServer := api.NewServer(repo, ethClient, bus, cfg.APIPort)
	go func() {
		log.Printf("API server listening on 0.0.0.0:%s", cfg.APIPort)
		if err := apiServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	// Block until shutdown signal.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	apiServer.Shutdown(shutdownCtx)
	cancel()
	wg.Wait()
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
		// Avoid leaking secrets embedded in query params; keep only scheme/host/path for debugging.
		u.RawQuery = ""
		return u.String()
	}

	// Best-effort fallback for malformed/DSN-like URLs.
	re := regexp.MustCompile(`(?i)(postgres(?:ql)?://[^:/?#]+):([^@]+)@`)
	if re.MatchString(raw) {
		return re.ReplaceAllString(raw, `$1:****@`)
	}
	re = regexp.MustCompile(`(?i)(password=)([^\s]+)`)
	return re.ReplaceAllString(raw, `$1****`)
}
