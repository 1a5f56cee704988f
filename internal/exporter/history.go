package exporter

import (
	"context"
	"fmt"
	"time"

	"Go2NetIDS/internal/config"
	"Go2NetIDS/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// HistoryPoint is one exported feature row of a flow.
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	model.FeatureVector
}

// Querier reads exported feature history back from ClickHouse.
type Querier struct {
	conn driver.Conn
}

// NewQuerier creates a new querier for ClickHouse.
func NewQuerier(cfg config.ClickHouseConfig) (*Querier, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &Querier{conn: conn}, nil
}

const historyQuery = `
	SELECT
		Timestamp,
		FlowID,
		Duration,
		BytesPerSecond,
		ForwardHeaderBytes,
		BackwardHeaderBytes,
		PacketLengthStdDev,
		PacketLengthMean
	FROM flow_features
	WHERE FlowID = ?
	ORDER BY Timestamp DESC
	LIMIT ?
`

// FlowHistory returns the latest limit exported rows of flowID, newest first.
func (q *Querier) FlowHistory(ctx context.Context, flowID string, limit int) ([]HistoryPoint, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := q.conn.Query(ctx, historyQuery, flowID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var points []HistoryPoint
	for rows.Next() {
		var p HistoryPoint
		if err := rows.Scan(
			&p.Timestamp,
			&p.FlowID,
			&p.Duration,
			&p.BytesPerSecond,
			&p.ForwardHeaderBytes,
			&p.BackwardHeaderBytes,
			&p.PacketLengthStdDev,
			&p.PacketLengthMean,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}
	return points, nil
}

// Close releases the ClickHouse connection.
func (q *Querier) Close() error {
	return q.conn.Close()
}
