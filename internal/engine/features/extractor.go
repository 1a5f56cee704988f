package features

import (
	"context"
	"math"
	"sort"
	"time"

	"Go2NetIDS/internal/logger"
	"Go2NetIDS/internal/metrics"
	"Go2NetIDS/internal/model"
)

// MinRecords is the smallest bucket that yields a feature vector.
const MinRecords = 2

// Replacer is the part of a store cycle the extractor writes to.
type Replacer interface {
	ReplaceFeatures(ctx context.Context, vectors []model.FeatureVector) error
}

// Extractor turns flow buckets into feature vectors.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract computes one vector per bucket holding at least MinRecords records,
// in the order the buckets are given. Buckets are not modified.
func (e *Extractor) Extract(buckets []*model.FlowBucket) []model.FeatureVector {
	vectors := make([]model.FeatureVector, 0, len(buckets))
	for _, bucket := range buckets {
		if len(bucket.Records) < MinRecords {
			continue
		}
		vectors = append(vectors, Compute(bucket))
	}
	return vectors
}

// Compute derives the feature vector of a single bucket.
func Compute(bucket *model.FlowBucket) model.FeatureVector {
	recs := make([]model.PacketRecord, len(bucket.Records))
	copy(recs, bucket.Records)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Timestamp < recs[j].Timestamp })

	fv := model.FeatureVector{FlowID: bucket.Key.String()}
	if len(recs) == 0 {
		return fv
	}
	fv.Duration = recs[len(recs)-1].Timestamp - recs[0].Timestamp

	var total int64
	var unmatched int
	lengths := make([]float64, 0, len(recs))
	for _, rec := range recs {
		total += int64(rec.TotalLength)
		lengths = append(lengths, float64(rec.TotalLength))
		switch {
		case bucket.Key.IsForward(rec):
			fv.ForwardHeaderBytes += int64(rec.HeaderLength)
		case bucket.Key.IsBackward(rec):
			fv.BackwardHeaderBytes += int64(rec.HeaderLength)
		default:
			unmatched++
		}
	}
	if unmatched > 0 {
		logger.WithComponent("extractor").
			WithField("flow_id", fv.FlowID).
			Debugf("%d records match neither direction", unmatched)
	}

	if fv.Duration > 0 {
		fv.BytesPerSecond = float64(total) / fv.Duration
	}
	fv.PacketLengthMean, fv.PacketLengthStdDev = Describe(lengths)
	return fv
}

// Describe returns the mean and the sample standard deviation (n-1) of values
// using Welford's online update. The deviation is 0 for fewer than two values.
func Describe(values []float64) (mean, stddev float64) {
	var m2 float64
	for i, v := range values {
		delta := v - mean
		mean += delta / float64(i+1)
		m2 += delta * (v - mean)
	}
	if len(values) < 2 {
		return mean, 0
	}
	return mean, math.Sqrt(m2 / float64(len(values)-1))
}

// Persist replaces the feature store contents with vectors inside cycle.
func (e *Extractor) Persist(ctx context.Context, cycle Replacer, vectors []model.FeatureVector) error {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(string(model.StageExtraction)).Observe(time.Since(start).Seconds())
	}()
	if err := cycle.ReplaceFeatures(ctx, vectors); err != nil {
		return model.NewStageError(model.StageExtraction, err)
	}
	return nil
}
