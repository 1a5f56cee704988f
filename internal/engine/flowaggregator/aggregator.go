package flowaggregator

import (
	"context"
	"time"

	"Go2NetIDS/internal/logger"
	"Go2NetIDS/internal/metrics"
	"Go2NetIDS/internal/model"
)

// Drainer is the part of a store cycle the aggregator consumes.
type Drainer interface {
	DrainPending(ctx context.Context) ([]model.PacketRecord, error)
}

// Buckets maps canonical flow keys to the records of one aggregation cycle.
// Iteration follows the order in which each key was first seen.
type Buckets struct {
	byKey map[model.FlowKey]*model.FlowBucket
	order []model.FlowKey
}

// NewBuckets returns an empty bucket set.
func NewBuckets() *Buckets {
	return &Buckets{byKey: make(map[model.FlowKey]*model.FlowBucket)}
}

// Add appends rec to the bucket of its canonical key.
func (b *Buckets) Add(rec model.PacketRecord) {
	key := model.NewFlowKey(rec)
	bucket, ok := b.byKey[key]
	if !ok {
		bucket = &model.FlowBucket{Key: key}
		b.byKey[key] = bucket
		b.order = append(b.order, key)
	}
	bucket.Records = append(bucket.Records, rec)
}

// Get returns the bucket for key, or nil.
func (b *Buckets) Get(key model.FlowKey) *model.FlowBucket {
	return b.byKey[key]
}

// Len is the number of distinct flows.
func (b *Buckets) Len() int {
	return len(b.order)
}

// Records is the total number of records across all buckets.
func (b *Buckets) Records() int {
	n := 0
	for _, bucket := range b.byKey {
		n += len(bucket.Records)
	}
	return n
}

// Ordered returns the buckets in first-seen order.
func (b *Buckets) Ordered() []*model.FlowBucket {
	out := make([]*model.FlowBucket, 0, len(b.order))
	for _, key := range b.order {
		out = append(out, b.byKey[key])
	}
	return out
}

// Group partitions recs by canonical flow key, preserving arrival order within each bucket.
func Group(recs []model.PacketRecord) *Buckets {
	b := NewBuckets()
	for _, rec := range recs {
		b.Add(rec)
	}
	return b
}

// Aggregator drains pending observations and groups them into bidirectional flows.
// It keeps no state between calls.
type Aggregator struct{}

// NewAggregator creates a new Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// DrainAndGroup removes every pending record through cycle and returns them
// grouped by flow. The records leave the pending store only when cycle commits.
func (a *Aggregator) DrainAndGroup(ctx context.Context, cycle Drainer) (*Buckets, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(string(model.StageAggregation)).Observe(time.Since(start).Seconds())
	}()

	recs, err := cycle.DrainPending(ctx)
	if err != nil {
		return nil, model.NewStageError(model.StageAggregation, err)
	}
	metrics.DrainedRecords.Add(float64(len(recs)))

	buckets := Group(recs)
	logger.WithComponent("aggregator").Debugf("Grouped %d records into %d flows", len(recs), buckets.Len())
	return buckets, nil
}
