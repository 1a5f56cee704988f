package probe

import (
	"Go2NetIDS/internal/config"
	"Go2NetIDS/internal/logger"
	"Go2NetIDS/internal/model"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

// Publisher is responsible for publishing packet records to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.ProbeConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("ns-probe"))
	if err != nil {
		return nil, errors.Wrapf(err, "connect to NATS at %s", cfg.NATSURL)
	}
	logger.WithComponent("probe").Infof("Connected to NATS server at %s", cfg.NATSURL)
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Publish serializes a PacketRecord to protobuf wire format and publishes it.
func (p *Publisher) Publish(rec model.PacketRecord) error {
	return p.nc.Publish(p.subject, MarshalRecord(rec))
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			logger.WithComponent("probe").WithError(err).Warn("NATS drain failed")
		}
		logger.WithComponent("probe").Info("NATS connection drained and closed.")
	}
}
