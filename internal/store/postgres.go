package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"Go2NetIDS/internal/config"
	"Go2NetIDS/internal/logger"
	"Go2NetIDS/internal/model"

	"github.com/avast/retry-go"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const createSchemaStatement = `
CREATE TABLE IF NOT EXISTS pending_observations (
    id               BIGSERIAL PRIMARY KEY,
    timestamp        DOUBLE PRECISION NOT NULL,
    source_addr      TEXT NOT NULL,
    destination_addr TEXT NOT NULL,
    source_port      TEXT NOT NULL,
    destination_port TEXT NOT NULL,
    protocol         TEXT NOT NULL,
    header_length    INTEGER NOT NULL,
    packet_length    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS features (
    id                     BIGSERIAL PRIMARY KEY,
    flow_id                TEXT NOT NULL,
    flow_duration          DOUBLE PRECISION NOT NULL,
    flow_bytes_per_second  DOUBLE PRECISION NOT NULL,
    forward_header_length  BIGINT NOT NULL,
    backward_header_length BIGINT NOT NULL,
    packet_length_std_dev  DOUBLE PRECISION NOT NULL,
    packet_size_avg        DOUBLE PRECISION NOT NULL
);
CREATE TABLE IF NOT EXISTS predictions (
    flow_id         TEXT PRIMARY KEY,
    predicted_label INTEGER NOT NULL
);
`

const (
	insertPendingQuery = `INSERT INTO pending_observations
    (timestamp, source_addr, destination_addr, source_port, destination_port, protocol, header_length, packet_length)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`

	// A single DELETE ... RETURNING removes exactly the rows it hands back, so a
	// row inserted concurrently is either returned here or left for the next cycle.
	drainPendingQuery = `DELETE FROM pending_observations
    RETURNING id, timestamp, source_addr, destination_addr, source_port, destination_port, protocol, header_length, packet_length`

	clearFeaturesQuery = `DELETE FROM features`

	selectFeaturesQuery = `SELECT flow_id, flow_duration, flow_bytes_per_second, forward_header_length,
    backward_header_length, packet_length_std_dev, packet_size_avg FROM features ORDER BY id`

	upsertPredictionQuery = `INSERT INTO predictions (flow_id, predicted_label) VALUES ($1, $2)
    ON CONFLICT (flow_id) DO UPDATE SET predicted_label = EXCLUDED.predicted_label`

	selectPredictionsQuery        = `SELECT flow_id, predicted_label FROM predictions ORDER BY flow_id DESC`
	selectPredictionsByLabelQuery = `SELECT flow_id, predicted_label FROM predictions WHERE predicted_label = $1 ORDER BY flow_id DESC`
	clearPredictionsQuery         = `DELETE FROM predictions`
)

var featureColumns = []string{
	"flow_id",
	"flow_duration",
	"flow_bytes_per_second",
	"forward_header_length",
	"backward_header_length",
	"packet_length_std_dev",
	"packet_size_avg",
}

// pendingRow mirrors a pending_observations row.
type pendingRow struct {
	ID              int64   `db:"id"`
	Timestamp       float64 `db:"timestamp"`
	SourceAddr      string  `db:"source_addr"`
	DestinationAddr string  `db:"destination_addr"`
	SourcePort      string  `db:"source_port"`
	DestinationPort string  `db:"destination_port"`
	Protocol        string  `db:"protocol"`
	HeaderLength    int     `db:"header_length"`
	PacketLength    int     `db:"packet_length"`
}

// record validates the textual columns. Other writers may share the table, so
// a row can hold a protocol or port this process would never produce.
func (r pendingRow) record() (model.PacketRecord, error) {
	proto, err := model.ParseProtocol(r.Protocol)
	if err != nil {
		return model.PacketRecord{}, err
	}
	src, err := model.ParsePort(r.SourcePort)
	if err != nil {
		return model.PacketRecord{}, errors.Wrap(err, "source port")
	}
	dst, err := model.ParsePort(r.DestinationPort)
	if err != nil {
		return model.PacketRecord{}, errors.Wrap(err, "destination port")
	}
	return model.PacketRecord{
		ID:           r.ID,
		Timestamp:    r.Timestamp,
		SrcAddr:      r.SourceAddr,
		DstAddr:      r.DestinationAddr,
		SrcPort:      src,
		DstPort:      dst,
		Protocol:     proto,
		HeaderLength: r.HeaderLength,
		TotalLength:  r.PacketLength,
	}, nil
}

// Postgres is the durable Store backed by PostgreSQL.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an open connection pool. The schema is not touched.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// OpenPostgres connects with retries and bootstraps the schema.
func OpenPostgres(ctx context.Context, cfg config.StoreConfig) (*Postgres, error) {
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, unavailable(err, "open postgres")
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	delay := cfg.RetryDelay()
	attempts := cfg.ConnectRetries
	if attempts == 0 {
		attempts = 1
	}
	log := logger.WithComponent("store")
	err = retry.Do(
		func() error { return db.PingContext(ctx) },
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).Warnf("Postgres not reachable (attempt %d/%d)", n+1, attempts)
		}),
	)
	if err != nil {
		db.Close()
		return nil, unavailable(err, "ping postgres")
	}

	p := NewPostgres(db)
	if err := p.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("Connected to Postgres and ensured tables exist.")
	return p, nil
}

// EnsureSchema creates the three tables when missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, createSchemaStatement); err != nil {
		return unavailable(err, "create schema")
	}
	return nil
}

func (p *Postgres) Append(ctx context.Context, rec model.PacketRecord) (int64, error) {
	var id int64
	err := p.db.QueryRowxContext(ctx, insertPendingQuery,
		rec.Timestamp,
		rec.SrcAddr,
		rec.DstAddr,
		rec.SrcPort,
		rec.DstPort,
		string(rec.Protocol),
		rec.HeaderLength,
		rec.TotalLength,
	).Scan(&id)
	if err != nil {
		return 0, unavailable(err, "insert pending observation")
	}
	return id, nil
}

func (p *Postgres) BeginCycle(ctx context.Context) (Cycle, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, unavailable(err, "begin cycle")
	}
	return &postgresCycle{tx: tx}, nil
}

func (p *Postgres) Features(ctx context.Context) ([]model.FeatureVector, error) {
	var out []model.FeatureVector
	if err := p.db.SelectContext(ctx, &out, selectFeaturesQuery); err != nil {
		return nil, unavailable(err, "select features")
	}
	return out, nil
}

func (p *Postgres) UpsertPredictions(ctx context.Context, preds []model.Prediction) error {
	if len(preds) == 0 {
		return nil
	}
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return unavailable(err, "begin prediction upsert")
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, upsertPredictionQuery)
	if err != nil {
		return unavailable(err, "prepare prediction upsert")
	}
	defer stmt.Close()

	for _, pred := range preds {
		if _, err := stmt.ExecContext(ctx, pred.FlowID, pred.Label); err != nil {
			return unavailable(err, "upsert prediction")
		}
	}
	if err := tx.Commit(); err != nil {
		return unavailable(err, "commit prediction upsert")
	}
	return nil
}

func (p *Postgres) Predictions(ctx context.Context) ([]model.Prediction, error) {
	var out []model.Prediction
	if err := p.db.SelectContext(ctx, &out, selectPredictionsQuery); err != nil {
		return nil, unavailable(err, "select predictions")
	}
	return out, nil
}

func (p *Postgres) PredictionsByLabel(ctx context.Context, label int) ([]model.Prediction, error) {
	var out []model.Prediction
	if err := p.db.SelectContext(ctx, &out, selectPredictionsByLabelQuery, label); err != nil {
		return nil, unavailable(err, "select predictions by label")
	}
	return out, nil
}

func (p *Postgres) ClearPredictions(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, clearPredictionsQuery); err != nil {
		return unavailable(err, "clear predictions")
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

type postgresCycle struct {
	tx *sqlx.Tx
}

func (c *postgresCycle) DrainPending(ctx context.Context) ([]model.PacketRecord, error) {
	rows, err := c.tx.QueryxContext(ctx, drainPendingQuery)
	if err != nil {
		return nil, unavailable(err, "drain pending observations")
	}
	defer rows.Close()

	var records []model.PacketRecord
	for rows.Next() {
		var row pendingRow
		if err := rows.StructScan(&row); err != nil {
			return nil, unavailable(err, "scan pending observation")
		}
		rec, err := row.record()
		if err != nil {
			// Already deleted by the drain; it could never form a valid flow.
			logger.WithComponent("store").WithError(err).Warnf("Dropping pending row %d", row.ID)
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err, "iterate pending observations")
	}

	// RETURNING carries no ordering guarantee.
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (c *postgresCycle) ReplaceFeatures(ctx context.Context, vectors []model.FeatureVector) error {
	if _, err := c.tx.ExecContext(ctx, clearFeaturesQuery); err != nil {
		return unavailable(err, "clear features")
	}
	if len(vectors) == 0 {
		return nil
	}

	stmt, err := c.tx.PrepareContext(ctx, pq.CopyIn("features", featureColumns...))
	if err != nil {
		return unavailable(err, "prepare feature copy")
	}
	for _, v := range vectors {
		_, err := stmt.ExecContext(ctx,
			v.FlowID,
			v.Duration,
			v.BytesPerSecond,
			v.ForwardHeaderBytes,
			v.BackwardHeaderBytes,
			v.PacketLengthStdDev,
			v.PacketLengthMean,
		)
		if err != nil {
			stmt.Close()
			return unavailable(err, "copy feature row")
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return unavailable(err, "flush feature copy")
	}
	if err := stmt.Close(); err != nil {
		return unavailable(err, "close feature copy")
	}
	return nil
}

func (c *postgresCycle) Commit() error {
	if err := c.tx.Commit(); err != nil {
		return unavailable(err, "commit cycle")
	}
	return nil
}

func (c *postgresCycle) Rollback() error {
	err := c.tx.Rollback()
	if err == nil || errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return unavailable(err, "rollback cycle")
}

func unavailable(err error, msg string) error {
	return fmt.Errorf("%w: %w", model.ErrStoreUnavailable, errors.Wrap(err, msg))
}
