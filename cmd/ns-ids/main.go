package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Go2NetIDS/internal/classifier"
	"Go2NetIDS/internal/config"
	"Go2NetIDS/internal/engine/manager"
	"Go2NetIDS/internal/exporter"
	"Go2NetIDS/internal/ingest"
	"Go2NetIDS/internal/logger"
	"Go2NetIDS/internal/presentation"
	"Go2NetIDS/internal/store"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Logger.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg.Log, nil)
	log := logger.WithComponent("ns-ids")
	log.Info("Starting ns-ids...")

	ctx := context.Background()

	// 2. Open the store
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer st.Close()

	// 3. Classifier
	var cls manager.Classifier
	switch cfg.Classifier.Mode {
	case "grpc":
		client, conn, err := classifier.Dial(cfg.Classifier.Addr, st)
		if err != nil {
			log.Fatalf("Failed to create classifier client: %v", err)
		}
		defer conn.Close()
		cls = client
	default:
		cls = classifier.NewLocal(st, classifier.NewThresholdModel(cfg.Classifier.Threshold))
	}

	// 4. Exporters and feature history
	created, err := exporter.Create(cfg.Exporters)
	if err != nil {
		log.Fatalf("Failed to create exporters: %v", err)
	}
	exporters := make([]manager.Exporter, 0, len(created))
	for _, exp := range created {
		exporters = append(exporters, exp)
	}
	var history presentation.History
	for _, def := range cfg.Exporters {
		if def.Enabled && def.Type == "clickhouse" {
			q, err := exporter.NewQuerier(def.ClickHouse)
			if err != nil {
				log.WithError(err).Warn("Feature history disabled")
				break
			}
			defer q.Close()
			history = q
			break
		}
	}

	// 5. Presentation, launched by the manager after the first classification
	var launcher manager.Launcher
	var httpLauncher *presentation.HTTPLauncher
	if cfg.API.Enabled {
		httpLauncher = presentation.NewHTTPLauncher(cfg.API.ListenAddr, presentation.NewAPI(st, history))
		launcher = httpLauncher
	}

	pollInterval, _ := cfg.PollInterval()
	classifierTimeout, _ := cfg.ClassifierTimeout()
	mgr, err := manager.NewManager(manager.Options{
		Store:             st,
		Classifier:        cls,
		Launcher:          launcher,
		Exporters:         exporters,
		PollInterval:      pollInterval,
		ClassifierTimeout: classifierTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}

	// 6. Ingest
	var stream *ingest.Stream
	if cfg.Probe.Enabled {
		stream = ingest.NewStream(cfg.Probe, ingest.NewSink(st))
		if err := stream.Start(); err != nil {
			log.Fatalf("Failed to start ingest stream: %v", err)
		}
	}

	mgr.Start()

	// 7. Wait for a shutdown signal for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutdown signal received, stopping pipeline...")
	if stream != nil {
		stream.Stop()
	}
	mgr.Stop()
	if httpLauncher != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := httpLauncher.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("API server forced to shutdown")
		}
		cancel()
	}
	log.Info("Shutdown complete.")
}
