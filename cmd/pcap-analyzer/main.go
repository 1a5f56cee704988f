package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"Go2NetIDS/internal/classifier"
	"Go2NetIDS/internal/config"
	"Go2NetIDS/internal/engine/manager"
	"Go2NetIDS/internal/exporter"
	"Go2NetIDS/internal/ingest"
	"Go2NetIDS/internal/logger"
	"Go2NetIDS/internal/model"
	"Go2NetIDS/internal/presentation"
	"Go2NetIDS/internal/store"
	"Go2NetIDS/pkg/pcap"
)

// pcap-analyzer runs a capture file through one in-memory pipeline cycle and
// prints the resulting predictions.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	// 1. Get pcap file path from command-line arguments
	if flag.NArg() < 1 {
		fmt.Println("Usage: pcap-analyzer [-config path] <path_to_pcap_file>")
		os.Exit(1)
	}
	pcapFilePath := flag.Arg(0)

	// 2. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Logger.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg.Log, nil)
	log := logger.WithComponent("pcap-analyzer")

	// 3. Initialize modules
	ctx := context.Background()
	mem := store.NewMemory()
	sink := ingest.NewSink(mem)

	exps, err := exporter.Create(cfg.Exporters)
	if err != nil {
		log.Fatalf("Failed to create exporters: %v", err)
	}
	exporters := make([]manager.Exporter, 0, len(exps))
	for _, exp := range exps {
		exporters = append(exporters, exp)
	}

	mgr, err := manager.NewManager(manager.Options{
		Store:        mem,
		Classifier:   classifier.NewLocal(mem, classifier.NewThresholdModel(cfg.Classifier.Threshold)),
		Exporters:    exporters,
		PollInterval: time.Second,
	})
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}

	pcapReader, err := pcap.NewReader(pcapFilePath)
	if err != nil {
		log.Fatalf("Failed to open pcap file: %v", err)
	}
	defer pcapReader.Close()
	log.Infof("Reading packets from '%s'...", pcapFilePath)

	// 4. Feed every record through the ingest sink
	records := make(chan model.PacketRecord, 1024)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for rec := range records {
			if err := sink.Ingest(ctx, rec); err != nil {
				log.WithError(err).Warn("Dropping packet record")
			}
		}
	}()
	stats, err := pcapReader.ReadRecords(records)
	<-done
	if err != nil {
		log.Fatalf("Failed to read pcap file: %v", err)
	}
	log.Infof("Finished reading pcap file: %d parsed, %d skipped.", stats.Parsed, stats.Skipped)

	// 5. One pipeline cycle
	if err := mgr.RunCycle(ctx); err != nil {
		log.Fatalf("Pipeline cycle failed: %v", err)
	}

	preds, err := mem.Predictions(ctx)
	if err != nil {
		log.Fatalf("Failed to read predictions: %v", err)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE IP\tDESTINATION IP\tSOURCE PORT\tDESTINATION PORT\tPROTOCOL\tLABEL")
	for _, p := range preds {
		row, err := presentation.RowOf(p)
		if err != nil {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			row.SourceIP, row.DestinationIP, row.SourcePort, row.DestinationPort, row.Protocol, row.Label)
	}
	tw.Flush()
}
