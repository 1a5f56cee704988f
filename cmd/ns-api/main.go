package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Go2NetIDS/internal/config"
	"Go2NetIDS/internal/exporter"
	"Go2NetIDS/internal/logger"
	"Go2NetIDS/internal/presentation"
	"Go2NetIDS/internal/store"
)

// ns-api serves the presentation API on its own, for deployments where the
// dashboard runs apart from the pipeline.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Logger.Fatalf("Failed to load configuration: %v", err)
	}
	logger.InitLogger(cfg.Log, nil)
	log := logger.WithComponent("ns-api")

	st, err := store.Open(context.Background(), cfg.Store)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	var history presentation.History
	for _, def := range cfg.Exporters {
		if def.Enabled && def.Type == "clickhouse" {
			q, err := exporter.NewQuerier(def.ClickHouse)
			if err != nil {
				log.Fatalf("Failed to create querier: %v", err)
			}
			defer q.Close()
			history = q
			break
		}
	}

	launcher := presentation.NewHTTPLauncher(cfg.API.ListenAddr, presentation.NewAPI(st, history))
	if err := launcher.Launch(context.Background()); err != nil {
		log.Fatalf("Could not listen on %s: %v", cfg.API.ListenAddr, err)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := launcher.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Info("API server exited.")
}
