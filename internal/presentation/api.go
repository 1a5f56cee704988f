package presentation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"Go2NetIDS/internal/exporter"
	"Go2NetIDS/internal/logger"
	"Go2NetIDS/internal/model"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PredictionReader is the part of the store the API serves.
type PredictionReader interface {
	Predictions(ctx context.Context) ([]model.Prediction, error)
	PredictionsByLabel(ctx context.Context, label int) ([]model.Prediction, error)
	ClearPredictions(ctx context.Context) error
}

// History serves exported feature history of a flow.
type History interface {
	FlowHistory(ctx context.Context, flowID string, limit int) ([]exporter.HistoryPoint, error)
}

// API holds the dependencies for the HTTP handlers.
type API struct {
	store   PredictionReader
	history History
}

// NewAPI creates the API. history may be nil.
func NewAPI(store PredictionReader, history History) *API {
	return &API{store: store, history: history}
}

// Router returns the routes of the API.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/predictions", a.listPredictionsHandler).Methods("GET")
	r.HandleFunc("/api/v1/predictions", a.clearPredictionsHandler).Methods("DELETE")
	r.HandleFunc("/api/v1/flows/history", a.flowHistoryHandler).Methods("GET")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	return r
}

// listPredictionsHandler returns predictions ordered by flow id descending,
// optionally restricted to one verdict with ?label=Normal|Attack.
func (a *API) listPredictionsHandler(w http.ResponseWriter, r *http.Request) {
	var (
		preds []model.Prediction
		err   error
	)
	switch label := r.URL.Query().Get("label"); label {
	case "":
		preds, err = a.store.Predictions(r.Context())
	case model.LabelNormal:
		preds, err = a.store.PredictionsByLabel(r.Context(), 0)
	case model.LabelAttack:
		preds, err = a.attacks(r.Context())
	default:
		http.Error(w, fmt.Sprintf("unknown label %q", label), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read predictions: %v", err), http.StatusInternalServerError)
		return
	}

	rows := make([]Row, 0, len(preds))
	for _, p := range preds {
		row, err := RowOf(p)
		if err != nil {
			logger.WithComponent("presentation").WithError(err).Warn("Skipping prediction with malformed flow id")
			continue
		}
		rows = append(rows, row)
	}
	writeJSON(w, http.StatusOK, rows)
}

// attacks keeps every nonzero label; the order of Predictions is preserved.
func (a *API) attacks(ctx context.Context) ([]model.Prediction, error) {
	all, err := a.store.Predictions(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if p.Label != 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

func (a *API) clearPredictionsHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.store.ClearPredictions(r.Context()); err != nil {
		http.Error(w, fmt.Sprintf("failed to clear predictions: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) flowHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		http.Error(w, "feature history is not configured", http.StatusNotImplemented)
		return
	}
	flowID := r.URL.Query().Get("flow_id")
	if _, err := model.ParseFlowID(flowID); err != nil {
		http.Error(w, fmt.Sprintf("invalid flow_id: %v", err), http.StatusBadRequest)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, fmt.Sprintf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = n
	}
	points, err := a.history.FlowHistory(r.Context(), flowID, limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query history: %v", err), http.StatusInternalServerError)
		return
	}
	if points == nil {
		points = []exporter.HistoryPoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithComponent("presentation").WithError(err).Warn("Failed to write response")
	}
}
