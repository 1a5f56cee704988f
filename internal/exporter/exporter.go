package exporter

import (
	"context"
	"fmt"
	"time"

	"Go2NetIDS/internal/config"
	"Go2NetIDS/internal/logger"
	"Go2NetIDS/internal/model"
)

// Exporter receives the feature snapshot of every committed cycle.
type Exporter interface {
	Export(ctx context.Context, cycleTime time.Time, vectors []model.FeatureVector) error
}

// Factory builds an exporter from its definition.
type Factory func(def config.ExporterDef) (Exporter, error)

// registry holds the mapping of exporter types to their factory functions.
var registry = make(map[string]Factory)

// Register registers a new exporter type with its factory function.
func Register(name string, factory Factory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("exporter type '%s' already registered", name))
	}
	registry[name] = factory
}

// Create builds every enabled exporter in defs.
func Create(defs []config.ExporterDef) ([]Exporter, error) {
	var exporters []Exporter
	for _, def := range defs {
		if !def.Enabled {
			continue
		}
		logger.WithComponent("exporter").Infof("Creating exporter of type '%s'", def.Type)

		factory, ok := registry[def.Type]
		if !ok {
			return nil, fmt.Errorf("unknown exporter type: '%s'", def.Type)
		}
		exp, err := factory(def)
		if err != nil {
			return nil, fmt.Errorf("error creating exporter type '%s': %w", def.Type, err)
		}
		exporters = append(exporters, exp)
	}
	return exporters, nil
}

const timestampLayout = "2006-01-02_15-04-05"
