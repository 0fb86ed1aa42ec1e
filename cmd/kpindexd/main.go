package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/swxkit/kpindex/internal/config"
	"github.com/swxkit/kpindex/pkg/api"
	"github.com/swxkit/kpindex/pkg/index"
	"github.com/swxkit/kpindex/pkg/source"
)

const (
	version = "0.3.1"
)

func main() {
	fmt.Printf("kpindexd v%s\n", version)
	fmt.Println("Kp geomagnetic index lookup service")
	fmt.Println()

	// Load configuration
	cfg := config.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("Configuration loaded:")
	log.Printf("  Listen Address: %s", cfg.Server.ListenAddr)
	log.Printf("  Source URL: %s", cfg.Source.URL)
	log.Printf("  Cache Path: %s", cfg.Source.CachePath)
	log.Printf("  Compression Level: %d", cfg.Source.CompressionLevel)

	// Build the sample source: GFZ upstream behind the on-disk cache
	log.Println("Opening sample cache...")
	gfz := source.NewGFZ(cfg.Source.URL, time.Duration(cfg.Source.TimeoutSeconds)*time.Second)
	cache, err := source.NewCache(gfz, cfg.ToCacheConfig())
	if err != nil {
		log.Fatalf("Failed to open sample cache: %v", err)
	}
	defer cache.Close()

	// Populate the index
	log.Println("Loading kp table...")
	ix := index.New(cache)
	if ix.Len() == 0 {
		log.Printf("Warning: initial load yielded no samples, will retry on first query")
	} else {
		first, _ := ix.First()
		last, _ := ix.Last()
		log.Printf("Loaded %d samples covering %s to %s", ix.Len(),
			first.Format(time.RFC3339), last.Format(time.RFC3339))
	}

	// Create API server
	log.Println("Starting API server...")
	server := api.NewServer(cfg.Server.ListenAddr, ix)

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on %s", cfg.Server.ListenAddr)
		if err := server.Start(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutdown signal received, stopping server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped successfully")
}
