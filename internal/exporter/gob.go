package exporter

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"Go2NetIDS/internal/config"
	"Go2NetIDS/internal/model"
)

func init() {
	Register("gob", func(def config.ExporterDef) (Exporter, error) {
		if def.Gob.RootPath == "" {
			return nil, fmt.Errorf("gob exporter requires root_path")
		}
		return NewGobExporter(def.Gob.RootPath), nil
	})
}

// SummaryData holds the metadata for a feature snapshot.
type SummaryData struct {
	TotalFlows  int     `json:"total_flows"`
	MaxRate     float64 `json:"max_bytes_per_second"`
	HeaderBytes int64   `json:"header_bytes"`
	CycleTime   string  `json:"cycle_time"`
	Timestamp   string  `json:"timestamp"`
}

// GobExporter writes every feature snapshot to its own timestamped directory.
type GobExporter struct {
	rootPath string
}

// NewGobExporter creates a new exporter rooted at rootPath.
func NewGobExporter(rootPath string) *GobExporter {
	return &GobExporter{rootPath: rootPath}
}

// Export writes <root>/<cycle time>/features.dat and summary.json. Empty
// snapshots are skipped.
func (w *GobExporter) Export(_ context.Context, cycleTime time.Time, vectors []model.FeatureVector) error {
	if len(vectors) == 0 {
		return nil
	}
	snapshotDir := filepath.Join(w.rootPath, cycleTime.Format(timestampLayout))
	if err := os.MkdirAll(snapshotDir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	filePath := filepath.Join(snapshotDir, "features.dat")
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", filePath, err)
	}
	defer file.Close()
	if err := gob.NewEncoder(file).Encode(vectors); err != nil {
		return fmt.Errorf("failed to encode features to gob for file '%s': %w", filePath, err)
	}

	summary := SummaryData{
		TotalFlows: len(vectors),
		CycleTime:  cycleTime.UTC().Format(time.RFC3339),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for _, fv := range vectors {
		summary.HeaderBytes += fv.ForwardHeaderBytes + fv.BackwardHeaderBytes
		if fv.BytesPerSecond > summary.MaxRate {
			summary.MaxRate = fv.BytesPerSecond
		}
	}
	summaryFile, err := os.Create(filepath.Join(snapshotDir, "summary.json"))
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	jsonEncoder := json.NewEncoder(summaryFile)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}
	return nil
}

// ReadSnapshot loads the features.dat file of one snapshot directory.
func ReadSnapshot(dir string) ([]model.FeatureVector, error) {
	file, err := os.Open(filepath.Join(dir, "features.dat"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var vectors []model.FeatureVector
	if err := gob.NewDecoder(file).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("failed to decode features: %w", err)
	}
	return vectors, nil
}
