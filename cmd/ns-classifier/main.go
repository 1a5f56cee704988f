package main

import (
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"Go2NetIDS/internal/classifier"
	"Go2NetIDS/internal/config"
	"Go2NetIDS/internal/logger"

	"google.golang.org/grpc"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Logger.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg.Log, nil)
	log := logger.WithComponent("ns-classifier")

	lis, err := net.Listen("tcp", cfg.Classifier.ListenAddr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", cfg.Classifier.ListenAddr, err)
	}

	server := grpc.NewServer()
	classifier.RegisterService(server, classifier.NewThresholdModel(cfg.Classifier.Threshold))

	go func() {
		log.Infof("Classifier service listening on %s", lis.Addr())
		if err := server.Serve(lis); err != nil {
			log.Fatalf("Classifier service failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Classifier service shutting down...")
	server.GracefulStop()
	log.Info("Classifier service exited.")
}
