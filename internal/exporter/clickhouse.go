package exporter

import (
	"context"
	"fmt"
	"time"

	"Go2NetIDS/internal/config"
	"Go2NetIDS/internal/logger"
	"Go2NetIDS/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

func init() {
	Register("clickhouse", func(def config.ExporterDef) (Exporter, error) {
		return NewClickHouseExporter(def.ClickHouse)
	})
}

const createTableStatement = `
CREATE TABLE IF NOT EXISTS flow_features (
    Timestamp           DateTime,
    FlowID              String,
    AddrA               String,
    AddrB               String,
    PortA               Nullable(UInt16),
    PortB               Nullable(UInt16),
    Protocol            LowCardinality(String),
    Duration            Float64,
    BytesPerSecond      Float64,
    ForwardHeaderBytes  Int64,
    BackwardHeaderBytes Int64,
    PacketLengthStdDev  Float64,
    PacketLengthMean    Float64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (FlowID, Timestamp);
`

// ClickHouseExporter appends every feature snapshot to the flow_features history table.
type ClickHouseExporter struct {
	conn driver.Conn
}

// NewClickHouseExporter connects to ClickHouse and ensures the table exists.
func NewClickHouseExporter(cfg config.ClickHouseConfig) (*ClickHouseExporter, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	if err := ensureTable(context.Background(), conn); err != nil {
		return nil, err
	}
	logger.WithComponent("exporter").Info("Successfully connected to ClickHouse and ensured table exists.")
	return &ClickHouseExporter{conn: conn}, nil
}

type execCloser interface {
	Exec(ctx context.Context, query string, args ...any) error
	Close() error
}

// ensureTable creates flow_features, closing conn when that fails.
func ensureTable(ctx context.Context, conn execCloser) error {
	if err := conn.Exec(ctx, createTableStatement); err != nil {
		if cerr := conn.Close(); cerr != nil {
			logger.WithComponent("exporter").WithError(cerr).Warn("Failed to close ClickHouse connection")
		}
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

// Export inserts one row per feature vector, stamped with cycleTime.
func (w *ClickHouseExporter) Export(ctx context.Context, cycleTime time.Time, vectors []model.FeatureVector) error {
	if len(vectors) == 0 {
		return nil
	}
	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO flow_features")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	written := 0
	for _, fv := range vectors {
		key, err := model.ParseFlowID(fv.FlowID)
		if err != nil {
			logger.WithComponent("exporter").WithError(err).Warn("Skipping feature row with malformed flow id")
			continue
		}
		err = batch.Append(
			cycleTime,
			fv.FlowID,
			key.AddrA,
			key.AddrB,
			nullablePort(key.PortA),
			nullablePort(key.PortB),
			string(key.Protocol),
			fv.Duration,
			fv.BytesPerSecond,
			fv.ForwardHeaderBytes,
			fv.BackwardHeaderBytes,
			fv.PacketLengthStdDev,
			fv.PacketLengthMean,
		)
		if err != nil {
			return fmt.Errorf("failed to append features to batch: %w", err)
		}
		written++
	}
	if written == 0 {
		return batch.Abort()
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	logger.WithComponent("exporter").Debugf("Wrote %d feature rows to ClickHouse", written)
	return nil
}

// Close releases the ClickHouse connection.
func (w *ClickHouseExporter) Close() error {
	return w.conn.Close()
}

// nullablePort maps the N/A sentinel to NULL.
func nullablePort(p model.Port) *uint16 {
	if !p.Valid {
		return nil
	}
	n := p.Number
	return &n
}
