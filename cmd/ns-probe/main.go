package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"Go2NetIDS/internal/config"
	"Go2NetIDS/internal/logger"
	"Go2NetIDS/internal/model"
	"Go2NetIDS/internal/probe"
	"Go2NetIDS/pkg/pcap"
)

func main() {
	// --- Command-Line Flag Parsing ---
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	mode := flag.String("mode", "sub", "Operating mode: 'pub' to replay a capture and publish, 'sub' to subscribe and print.")
	file := flag.String("pcap", "", "Capture file to replay (required for pub mode).")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Logger.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg.Log, nil)

	// --- Mode Dispatch ---
	switch *mode {
	case "pub":
		runProbe(cfg.Probe, *file)
	case "sub":
		runSubscriber(cfg.Probe)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runProbe replays a capture file and publishes every parsed record to NATS.
func runProbe(cfg config.ProbeConfig, path string) {
	log := logger.WithComponent("ns-probe")
	if path == "" {
		log.Error("-pcap flag is required for probe mode.")
		flag.Usage()
		os.Exit(1)
	}
	log.Infof("Starting ns-probe in PROBE mode replaying: %s", path)

	pub, err := probe.NewPublisher(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	reader, err := pcap.NewReader(path)
	if err != nil {
		log.Fatalf("Error opening capture %s: %v", path, err)
	}
	defer reader.Close()

	records := make(chan model.PacketRecord, 1024)
	done := make(chan struct{})
	go func() {
		defer close(done)
		published := 0
		for rec := range records {
			if err := pub.Publish(rec); err != nil {
				log.WithError(err).Warn("Failed to publish packet record")
				continue
			}
			published++
			if published%1000 == 0 {
				log.Infof("%d packet records published...", published)
			}
		}
		log.Infof("Replay finished, %d packet records published.", published)
	}()

	stats, err := reader.ReadRecords(records)
	<-done
	if err != nil {
		log.Fatalf("Replay aborted: %v", err)
	}
	log.Infof("Parsed %d frames, skipped %d.", stats.Parsed, stats.Skipped)
}

// runSubscriber subscribes to NATS and prints every record.
func runSubscriber(cfg config.ProbeConfig) {
	log := logger.WithComponent("ns-probe")
	log.Info("Starting ns-probe in SUBSCRIBER mode...")

	sub, err := probe.NewSubscriber(cfg)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	defer sub.Close()

	handler := func(rec model.PacketRecord) {
		log.Infof("Received %s %s:%s -> %s:%s hdr=%d len=%d",
			rec.Protocol, rec.SrcAddr, rec.SrcPort, rec.DstAddr, rec.DstPort, rec.HeaderLength, rec.TotalLength)
	}
	if err := sub.Start(handler); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}

	// Set up a channel to handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info("Shutdown signal received, cleaning up...")
}
