package exporter

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"Go2NetIDS/internal/config"
	"Go2NetIDS/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var snapshot = []model.FeatureVector{
	{FlowID: "(10.0.0.1, 10.0.0.2, 1000, 80, TCP)", Duration: 1, BytesPerSecond: 250, ForwardHeaderBytes: 20, BackwardHeaderBytes: 20, PacketLengthMean: 125},
	{FlowID: "(10.0.0.1, 10.0.0.3, N/A, N/A, ICMP)", Duration: 2, BytesPerSecond: 98, ForwardHeaderBytes: 28, BackwardHeaderBytes: 28, PacketLengthMean: 98},
}

func TestCreate_SkipsDisabledAndRejectsUnknown(t *testing.T) {
	dir := t.TempDir()
	exporters, err := Create([]config.ExporterDef{
		{Type: "gob", Enabled: true, Gob: config.GobConfig{RootPath: dir}},
		{Type: "clickhouse", Enabled: false},
	})
	require.NoError(t, err)
	require.Len(t, exporters, 1)
	assert.IsType(t, &GobExporter{}, exporters[0])

	_, err = Create([]config.ExporterDef{{Type: "parquet", Enabled: true}})
	assert.Error(t, err)

	_, err = Create([]config.ExporterDef{{Type: "gob", Enabled: true}})
	assert.Error(t, err)
}

func TestRegister_PanicsOnDuplicate(t *testing.T) {
	assert.Panics(t, func() {
		Register("gob", func(config.ExporterDef) (Exporter, error) { return nil, nil })
	})
}

func TestGobExporter_WritesSnapshot(t *testing.T) {
	dir := t.TempDir()
	cycleTime := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	require.NoError(t, NewGobExporter(dir).Export(context.Background(), cycleTime, snapshot))

	snapshotDir := filepath.Join(dir, "2024-03-01_12-30-00")
	got, err := ReadSnapshot(snapshotDir)
	require.NoError(t, err)
	assert.Equal(t, snapshot, got)

	raw, err := os.ReadFile(filepath.Join(snapshotDir, "summary.json"))
	require.NoError(t, err)
	var summary SummaryData
	require.NoError(t, json.Unmarshal(raw, &summary))
	assert.Equal(t, 2, summary.TotalFlows)
	assert.Equal(t, int64(96), summary.HeaderBytes)
	assert.Equal(t, 250.0, summary.MaxRate)
	assert.Equal(t, "2024-03-01T12:30:00Z", summary.CycleTime)
}

func TestGobExporter_SkipsEmptySnapshot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewGobExporter(dir).Export(context.Background(), time.Now(), nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNullablePort(t *testing.T) {
	assert.Nil(t, nullablePort(model.NoPort))
	p := nullablePort(model.PortNumber(443))
	require.NotNil(t, p)
	assert.Equal(t, uint16(443), *p)
}

type stubConn struct {
	execErr error
	closed  bool
}

func (c *stubConn) Exec(context.Context, string, ...any) error { return c.execErr }

func (c *stubConn) Close() error {
	c.closed = true
	return nil
}

func TestEnsureTable_ClosesOnFailure(t *testing.T) {
	ok := &stubConn{}
	require.NoError(t, ensureTable(context.Background(), ok))
	assert.False(t, ok.closed)

	failing := &stubConn{execErr: errors.New("code: 497, not enough privileges")}
	err := ensureTable(context.Background(), failing)
	assert.ErrorContains(t, err, "not enough privileges")
	assert.True(t, failing.closed)
}

// TestClickHouseRoundTrip runs against a live server when NETIDS_CLICKHOUSE_HOST is set.
func TestClickHouseRoundTrip(t *testing.T) {
	host := os.Getenv("NETIDS_CLICKHOUSE_HOST")
	if host == "" {
		t.Skip("NETIDS_CLICKHOUSE_HOST not set")
	}
	port := 9000
	if v := os.Getenv("NETIDS_CLICKHOUSE_PORT"); v != "" {
		var err error
		port, err = strconv.Atoi(v)
		require.NoError(t, err)
	}
	cfg := config.ClickHouseConfig{Host: host, Port: port, Database: "default", Username: "default"}

	exp, err := NewClickHouseExporter(cfg)
	require.NoError(t, err)
	defer exp.Close()

	cycleTime := time.Now().Truncate(time.Second)
	require.NoError(t, exp.Export(context.Background(), cycleTime, snapshot))

	q, err := NewQuerier(cfg)
	require.NoError(t, err)
	defer q.Close()

	points, err := q.FlowHistory(context.Background(), snapshot[1].FlowID, 1)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, snapshot[1].BytesPerSecond, points[0].BytesPerSecond)
}
