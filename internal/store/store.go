package store

import (
	"context"
	"fmt"

	"Go2NetIDS/internal/config"
	"Go2NetIDS/internal/model"
)

// Store is the durable home of pending observations, features and predictions.
type Store interface {
	// Append adds one record to the pending store and returns its id.
	Append(ctx context.Context, rec model.PacketRecord) (int64, error)

	// BeginCycle opens the unit of work for one aggregation/extraction pass.
	BeginCycle(ctx context.Context) (Cycle, error)

	// Features returns the feature rows of the latest committed cycle.
	Features(ctx context.Context) ([]model.FeatureVector, error)

	// UpsertPredictions inserts or replaces predictions keyed on flow id.
	UpsertPredictions(ctx context.Context, preds []model.Prediction) error

	// Predictions returns all predictions ordered by flow id descending.
	Predictions(ctx context.Context) ([]model.Prediction, error)

	// PredictionsByLabel returns the predictions carrying label, ordered by flow id descending.
	PredictionsByLabel(ctx context.Context, label int) ([]model.Prediction, error)

	// ClearPredictions removes every prediction.
	ClearPredictions(ctx context.Context) error

	Close() error
}

// Cycle scopes a drain and a feature replacement into one atomic unit. Nothing
// it does is visible to other readers until Commit; Rollback restores the
// drained records and leaves the previous feature set in place.
type Cycle interface {
	// DrainPending returns the pending records in insertion order and removes
	// exactly those records.
	DrainPending(ctx context.Context) ([]model.PacketRecord, error)

	// ReplaceFeatures clears the feature store and inserts vectors.
	ReplaceFeatures(ctx context.Context, vectors []model.FeatureVector) error

	Commit() error
	Rollback() error
}

// Open creates the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemory(), nil
	case "postgres":
		pg, err := OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown store driver: '%s'", cfg.Driver)
	}
}
