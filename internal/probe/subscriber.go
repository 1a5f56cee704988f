package probe

import (
	"Go2NetIDS/internal/config"
	"Go2NetIDS/internal/logger"
	"Go2NetIDS/internal/metrics"
	"Go2NetIDS/internal/model"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

// RecordHandler processes one decoded PacketRecord.
type RecordHandler func(rec model.PacketRecord)

// Subscriber is responsible for subscribing to a NATS subject and decoding packet records.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.ProbeConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("ns-ids"))
	if err != nil {
		return nil, errors.Wrapf(err, "connect to NATS at %s", cfg.NATSURL)
	}
	logger.WithComponent("probe").Infof("Connected to NATS server at %s", cfg.NATSURL)
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// Start subscribes to the configured subject and hands every decoded record to handler.
func (s *Subscriber) Start(handler RecordHandler) error {
	sub, err := s.nc.Subscribe(s.subject, Decode(handler))
	if err != nil {
		return errors.Wrapf(err, "subscribe to %s", s.subject)
	}
	s.sub = sub
	logger.WithComponent("probe").Infof("Subscribed to '%s'. Waiting for packet records...", s.subject)
	return nil
}

// Decode adapts a RecordHandler into a NATS message handler. Undecodable
// messages are logged and dropped.
func Decode(handler RecordHandler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		rec, err := UnmarshalRecord(msg.Data)
		if err != nil {
			metrics.DecodeErrors.Inc()
			logger.WithComponent("probe").WithError(err).Warn("Error decoding packet record")
			return
		}
		handler(rec)
	}
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			logger.WithComponent("probe").WithError(err).Warn("NATS unsubscribe failed")
		}
	}
	if s.nc != nil {
		s.nc.Close()
		logger.WithComponent("probe").Info("NATS connection closed.")
	}
}
