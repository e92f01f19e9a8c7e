package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mainul35/dynamic-site-builder/internal/config"
	"github.com/mainul35/dynamic-site-builder/internal/framework"
	"github.com/mainul35/dynamic-site-builder/internal/gateway"
	"github.com/mainul35/dynamic-site-builder/internal/health"
	"github.com/mainul35/dynamic-site-builder/internal/metrics"
	"github.com/mainul35/dynamic-site-builder/internal/plugins/analytics"
	"github.com/mainul35/dynamic-site-builder/internal/plugins/audit"
	"github.com/mainul35/dynamic-site-builder/internal/plugins/theme"
	"github.com/mainul35/dynamic-site-builder/pkg/registry"
)

func main() {
	// Define command-line flags
	configFile := flag.String("config", "config.json", "Path to configuration file")
	listenAddr := flag.String("listen", "", "Gateway listen address")
	healthAddr := flag.String("health", "", "Health/metrics listen address")
	dbHost := flag.String("db-host", "", "PostgreSQL host for the audit trail")
	dbPort := flag.Int("db-port", 0, "PostgreSQL port")
	dbName := flag.String("db-name", "", "Database name")
	dbUser := flag.String("db-user", "", "Database user")
	dbPass := flag.String("db-pass", "", "Database password")
	flag.Parse()

	// Load configuration; a missing file falls back to defaults so the
	// builder can run without persistence.
	cfg, err := config.LoadFromFile(*configFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = config.DefaultConfig()
	}

	// Merge command-line flags with config (flags take precedence)
	cfg.MergeWithFlags(*listenAddr, *healthAddr, *dbHost, *dbPort, *dbName, *dbUser, *dbPass)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println("Site Builder - Pluggable Component Event Host")

	if err := run(cfg); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
}

func run(cfg *config.Config) error {
	// Track host uptime
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for range ticker.C {
			metrics.AppUptime.Set(time.Since(startTime).Seconds())
		}
	}()

	// The handler registry is the hub everything else plugs into.
	reg := registry.New()

	// Create plugin manager
	pluginManager := framework.NewPluginManager(reg)

	plugins := []struct {
		name   string
		plugin framework.Plugin
	}{
		{"audit", audit.New()},
		{"analytics", analytics.New()},
		{"theme", theme.New()},
	}

	for _, p := range plugins {
		if err := pluginManager.RegisterPlugin(p.name, p.plugin); err != nil {
			return fmt.Errorf("failed to register %s plugin: %w", p.name, err)
		}
	}

	// Prepare plugin configurations; the audit plugin additionally inherits
	// the top-level database settings when it has no explicit config.
	pluginConfigs := make(map[string]json.RawMessage)
	for _, p := range plugins {
		pluginConfigs[p.name] = cfg.GetPluginConfig(p.name)
	}
	if pluginConfigs["audit"] == nil && cfg.ConnString() != "" {
		auditCfg, err := json.Marshal(map[string]string{"conn_string": cfg.ConnString()})
		if err != nil {
			return fmt.Errorf("failed to build audit config: %w", err)
		}
		pluginConfigs["audit"] = auditCfg
	}

	// Initialize all plugins (respects dependencies)
	if err := pluginManager.InitializeAll(pluginConfigs); err != nil {
		return fmt.Errorf("failed to initialize plugins: %w", err)
	}

	// Start all plugins; each one's declared handlers register here.
	if err := pluginManager.StartAll(); err != nil {
		return fmt.Errorf("failed to start plugins: %w", err)
	}
	defer pluginManager.StopAll()

	log.Printf("Registry ready with %d handler(s) across %d key(s)", reg.HandlerCount(), len(reg.Keys()))

	// Create health check service
	healthService := health.NewService(reg)
	for _, p := range plugins {
		healthService.RegisterPlugin(p.plugin)
	}

	// Health + metrics HTTP server
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health", healthService.Handler())
	healthMux.HandleFunc("/health/live", healthService.LivenessHandler())
	healthMux.HandleFunc("/health/ready", healthService.ReadinessHandler())
	healthMux.Handle("/metrics", promhttp.Handler())

	healthServer := &http.Server{
		Addr:         cfg.Server.HealthAddr,
		Handler:      healthMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting health server on %s", cfg.Server.HealthAddr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Health server error: %v", err)
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := healthServer.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down health server: %v", err)
		}
	}()

	// Builder gateway server
	gw := gateway.NewServer(reg, cfg.Server.AllowedOrigins)
	gatewayServer := &http.Server{
		Addr:        cfg.Server.ListenAddr,
		Handler:     gw.Handler(),
		ReadTimeout: 0, // websocket connections stay open
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Printf("Starting gateway on %s", cfg.Server.ListenAddr)
		if err := gatewayServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Gateway server error: %v", err)
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := gatewayServer.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down gateway: %v", err)
		}
	}()

	log.Println("Site builder is running! Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Printf("Received signal %v, shutting down...", sig)

	return nil
}
