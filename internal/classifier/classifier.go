package classifier

import (
	"context"
	"sort"

	"Go2NetIDS/internal/config"
	"Go2NetIDS/internal/model"

	"github.com/pkg/errors"
)

// Adapter labels the feature store contents and upserts the predictions.
type Adapter interface {
	Classify(ctx context.Context) error
}

// Store is the part of the pipeline store a classifier reads from and writes to.
type Store interface {
	Features(ctx context.Context) ([]model.FeatureVector, error)
	UpsertPredictions(ctx context.Context, preds []model.Prediction) error
}

// Model assigns one integer label per feature vector.
type Model interface {
	Predict(ctx context.Context, vectors []model.FeatureVector) ([]int, error)
}

// ThresholdModel is the baseline model: a flow is an attack when its byte rate
// or its total header volume exceeds the configured limits. A zero limit is
// not enforced.
type ThresholdModel struct {
	MaxBytesPerSecond float64
	MaxHeaderBytes    int64
}

// NewThresholdModel builds the baseline model from configuration.
func NewThresholdModel(cfg config.ThresholdConfig) *ThresholdModel {
	return &ThresholdModel{MaxBytesPerSecond: cfg.MaxBytesPerSecond, MaxHeaderBytes: cfg.MaxHeaderBytes}
}

func (t *ThresholdModel) Predict(_ context.Context, vectors []model.FeatureVector) ([]int, error) {
	labels := make([]int, len(vectors))
	for i, fv := range vectors {
		if t.MaxBytesPerSecond > 0 && fv.BytesPerSecond > t.MaxBytesPerSecond {
			labels[i] = 1
			continue
		}
		if t.MaxHeaderBytes > 0 && fv.ForwardHeaderBytes+fv.BackwardHeaderBytes > t.MaxHeaderBytes {
			labels[i] = 1
		}
	}
	return labels, nil
}

// Local runs a Model in process.
type Local struct {
	store Store
	model Model
}

// NewLocal creates an in-process classifier.
func NewLocal(store Store, m Model) *Local {
	return &Local{store: store, model: m}
}

func (l *Local) Classify(ctx context.Context) error {
	vectors, err := l.store.Features(ctx)
	if err != nil {
		return errors.Wrap(err, "read features")
	}
	if len(vectors) == 0 {
		return nil
	}
	labels, err := l.model.Predict(ctx, vectors)
	if err != nil {
		return errors.Wrap(err, "predict")
	}
	if len(labels) != len(vectors) {
		return errors.Errorf("model returned %d labels for %d flows", len(labels), len(vectors))
	}
	preds := make([]model.Prediction, len(vectors))
	for i, fv := range vectors {
		preds[i] = model.Prediction{FlowID: fv.FlowID, Label: labels[i]}
	}
	return upsert(ctx, l.store, preds)
}

func upsert(ctx context.Context, store Store, preds []model.Prediction) error {
	sort.Slice(preds, func(i, j int) bool { return preds[i].FlowID < preds[j].FlowID })
	if err := store.UpsertPredictions(ctx, preds); err != nil {
		return errors.Wrap(err, "store predictions")
	}
	return nil
}
