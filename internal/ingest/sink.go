package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Go2NetIDS/internal/metrics"
	"Go2NetIDS/internal/model"
)

// Appender is the part of the store the sink writes to.
type Appender interface {
	Append(ctx context.Context, rec model.PacketRecord) (int64, error)
}

// Sink accepts normalized packet observations and appends them, in arrival
// order, to the pending store. It never retries; the caller owns that policy.
type Sink struct {
	store Appender
	now   func() time.Time
}

// NewSink creates a sink writing to store.
func NewSink(store Appender) *Sink {
	return &Sink{store: store, now: time.Now}
}

// Ingest validates rec, stamps it when it carries no timestamp, and appends it.
// Ports on ICMP, ICMPv6 and ARP records are recorded as N/A.
func (s *Sink) Ingest(ctx context.Context, rec model.PacketRecord) error {
	if !rec.Protocol.Valid() {
		metrics.IngestErrors.WithLabelValues("protocol").Inc()
		return &model.IngestError{Err: model.ErrUnsupportedProtocol}
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = epochSeconds(s.now())
	}
	if !rec.Protocol.HasPorts() {
		rec.SrcPort, rec.DstPort = model.NoPort, model.NoPort
	}
	rec.ID = 0

	if _, err := s.store.Append(ctx, rec); err != nil {
		metrics.IngestErrors.WithLabelValues("store").Inc()
		if !errors.Is(err, model.ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
		}
		return &model.IngestError{Err: err}
	}
	metrics.IngestedRecords.Inc()
	return nil
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
