package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IngestedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netids_ingested_records_total",
		Help: "Packet records appended to the pending store",
	})
	IngestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netids_ingest_errors_total",
		Help: "Packet records rejected by the ingest sink",
	}, []string{"reason"})
	DecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netids_decode_errors_total",
		Help: "Transport messages that could not be decoded into a packet record",
	})
	Cycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netids_cycles_total",
		Help: "Pipeline cycles by outcome",
	}, []string{"outcome"})
	StageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netids_stage_errors_total",
		Help: "Cycle stage failures",
	}, []string{"stage"})
	DrainedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netids_drained_records_total",
		Help: "Pending records consumed by the aggregator",
	})
	FeaturedFlows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "netids_featured_flows",
		Help: "Feature rows written by the latest committed cycle",
	})
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netids_stage_duration_seconds",
		Help:    "Wall time spent in each cycle stage",
		Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 15, 60},
	}, []string{"stage"})
)
