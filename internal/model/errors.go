package model

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable is returned when the durable store cannot serve a request.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrUnsupportedProtocol is returned for protocol tags outside the fixed enumeration.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
)

// IngestError is returned by the ingest sink. The caller owns retry policy.
type IngestError struct {
	Err error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest: %v", e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// Stage names a step of a pipeline cycle.
type Stage string

const (
	StageAggregation    Stage = "aggregation"
	StageExtraction     Stage = "extraction"
	StageClassification Stage = "classification"
	StagePresentation   Stage = "presentation"
)

// StageError reports a failure inside one cycle stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err for the given stage, passing nil through.
func NewStageError(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage recorded in err, or "" when err carries none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
