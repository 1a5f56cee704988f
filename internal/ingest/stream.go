package ingest

import (
	"context"
	"time"

	"Go2NetIDS/internal/config"
	"Go2NetIDS/internal/logger"
	"Go2NetIDS/internal/model"
	"Go2NetIDS/internal/probe"
)

const appendTimeout = 5 * time.Second

// Stream consumes packet records published by probes and feeds them to a Sink.
// NATS delivers messages of one subscription sequentially, so records are
// appended in arrival order.
type Stream struct {
	sink *Sink
	sub  *probe.Subscriber
	cfg  config.ProbeConfig
}

// NewStream creates a stream that is not yet connected.
func NewStream(cfg config.ProbeConfig, sink *Sink) *Stream {
	return &Stream{sink: sink, cfg: cfg}
}

// Start connects to NATS and begins ingesting.
func (s *Stream) Start() error {
	sub, err := probe.NewSubscriber(s.cfg)
	if err != nil {
		return err
	}
	if err := sub.Start(s.Handle); err != nil {
		sub.Close()
		return err
	}
	s.sub = sub
	logger.WithComponent("ingest").Infof("Stream ingesting from '%s'", s.cfg.Subject)
	return nil
}

// Handle ingests one decoded record. Failures are logged and the record is dropped.
func (s *Stream) Handle(rec model.PacketRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()
	if err := s.sink.Ingest(ctx, rec); err != nil {
		logger.WithComponent("ingest").WithError(err).
			WithField("src", rec.SrcAddr).
			WithField("dst", rec.DstAddr).
			Warn("Dropping packet record")
	}
}

// Stop closes the subscription.
func (s *Stream) Stop() {
	if s.sub != nil {
		s.sub.Close()
		s.sub = nil
	}
	logger.WithComponent("ingest").Info("Stream stopped.")
}
