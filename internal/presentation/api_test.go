package presentation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Go2NetIDS/internal/exporter"
	"Go2NetIDS/internal/model"
	"Go2NetIDS/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHistory struct {
	flowID string
	limit  int
}

func (s *stubHistory) FlowHistory(_ context.Context, flowID string, limit int) ([]exporter.HistoryPoint, error) {
	s.flowID, s.limit = flowID, limit
	return []exporter.HistoryPoint{{
		Timestamp:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		FeatureVector: model.FeatureVector{FlowID: flowID, BytesPerSecond: 42},
	}}, nil
}

type brokenStore struct{ *store.Memory }

func (brokenStore) Predictions(context.Context) ([]model.Prediction, error) {
	return nil, errors.New("connection reset")
}

func seeded(t *testing.T) *store.Memory {
	t.Helper()
	mem := store.NewMemory()
	require.NoError(t, mem.UpsertPredictions(context.Background(), []model.Prediction{
		{FlowID: "(10.0.0.1, 10.0.0.2, 1000, 80, TCP)", Label: 0},
		{FlowID: "(10.0.0.1, 10.0.0.9, N/A, N/A, ICMP)", Label: 1},
		{FlowID: "(10.0.0.1, 10.0.0.5, 53, 40000, UDP)", Label: 3},
		{FlowID: "garbage", Label: 0},
	}))
	return mem
}

func get(t *testing.T, h http.Handler, url string) (*httptest.ResponseRecorder, []Row) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	var rows []Row
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	}
	return rec, rows
}

func TestRowOf(t *testing.T) {
	row, err := RowOf(model.Prediction{FlowID: "(fe80::1, fe80::2, N/A, N/A, ICMPv6)", Label: 7})
	require.NoError(t, err)
	assert.Equal(t, "fe80::1", row.SourceIP)
	assert.Equal(t, "fe80::2", row.DestinationIP)
	assert.Equal(t, "N/A", row.SourcePort)
	assert.Equal(t, "N/A", row.DestinationPort)
	assert.Equal(t, "ICMPv6", row.Protocol)
	assert.Equal(t, model.LabelAttack, row.Label)

	_, err = RowOf(model.Prediction{FlowID: "(a, b, c)"})
	assert.Error(t, err)
}

func TestListPredictions(t *testing.T) {
	router := NewAPI(seeded(t), nil).Router()

	rec, rows := get(t, router, "/api/v1/predictions")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, rows, 3)
	assert.Equal(t, "10.0.0.9", rows[0].DestinationIP)
	assert.Equal(t, "10.0.0.5", rows[1].DestinationIP)
	assert.Equal(t, "10.0.0.2", rows[2].DestinationIP)
	assert.Equal(t, model.LabelNormal, rows[2].Label)

	_, rows = get(t, router, "/api/v1/predictions?label=Attack")
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, model.LabelAttack, r.Label)
	}

	_, rows = get(t, router, "/api/v1/predictions?label=Normal")
	require.Len(t, rows, 1)
	assert.Equal(t, "1000", rows[0].SourcePort)

	rec, _ = get(t, router, "/api/v1/predictions?label=Suspicious")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPredictions_StoreError(t *testing.T) {
	router := NewAPI(brokenStore{store.NewMemory()}, nil).Router()
	rec, _ := get(t, router, "/api/v1/predictions")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestClearPredictions(t *testing.T) {
	mem := seeded(t)
	router := NewAPI(mem, nil).Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/predictions", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	preds, err := mem.Predictions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestFlowHistory(t *testing.T) {
	h := &stubHistory{}
	router := NewAPI(store.NewMemory(), h).Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/flows/history?flow_id=(A,%20B,%201,%202,%20TCP)&limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "(A, B, 1, 2, TCP)", h.flowID)
	assert.Equal(t, 5, h.limit)

	var points []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 1)
	assert.Equal(t, 42.0, points[0]["flow_bytes_per_second"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/flows/history?flow_id=nope", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	NewAPI(store.NewMemory(), nil).Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/flows/history?flow_id=(A,%20B,%201,%202,%20TCP)", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	router := NewAPI(store.NewMemory(), nil).Router()
	for _, path := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestHTTPLauncher_LaunchesOnce(t *testing.T) {
	l := NewHTTPLauncher("127.0.0.1:0", NewAPI(seeded(t), nil))
	require.NoError(t, l.Launch(context.Background()))
	addr := l.Addr()
	require.NotNil(t, addr)
	require.NoError(t, l.Launch(context.Background()))
	assert.Equal(t, addr, l.Addr())
	defer l.Shutdown(context.Background())

	resp, err := http.Get(fmt.Sprintf("http://%s/api/v1/predictions", addr))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []Row
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	assert.Len(t, rows, 3)
}

func TestHTTPLauncher_BindFailure(t *testing.T) {
	first := NewHTTPLauncher("127.0.0.1:0", NewAPI(store.NewMemory(), nil))
	require.NoError(t, first.Launch(context.Background()))
	defer first.Shutdown(context.Background())

	second := NewHTTPLauncher(first.Addr().String(), NewAPI(store.NewMemory(), nil))
	assert.Error(t, second.Launch(context.Background()))
	assert.Nil(t, second.Addr())
}
