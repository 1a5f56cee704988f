package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Go2NetIDS/internal/engine/features"
	"Go2NetIDS/internal/engine/flowaggregator"
	"Go2NetIDS/internal/logger"
	"Go2NetIDS/internal/metrics"
	"Go2NetIDS/internal/model"
	"Go2NetIDS/internal/store"

	"github.com/sirupsen/logrus"
)

// CycleStore opens the unit of work a pipeline cycle runs in.
type CycleStore interface {
	BeginCycle(ctx context.Context) (store.Cycle, error)
}

// Classifier labels the current feature set and stores predictions.
type Classifier interface {
	Classify(ctx context.Context) error
}

// Launcher starts the presentation layer. It is called until it first succeeds.
type Launcher interface {
	Launch(ctx context.Context) error
}

// Exporter receives every committed feature snapshot.
type Exporter interface {
	Export(ctx context.Context, cycleTime time.Time, vectors []model.FeatureVector) error
}

// Options wires the collaborators of a Manager.
type Options struct {
	Store             CycleStore
	Classifier        Classifier
	Launcher          Launcher
	Exporters         []Exporter
	PollInterval      time.Duration
	ClassifierTimeout time.Duration // 0 waits for the classifier indefinitely
}

// Manager drives the pipeline: every poll interval it drains and groups pending
// observations, replaces the feature set, runs the classifier and, after the
// first successful classification, launches the presentation layer.
type Manager struct {
	store             CycleStore
	aggregator        *flowaggregator.Aggregator
	extractor         *features.Extractor
	classifier        Classifier
	launcher          Launcher
	exporters         []Exporter
	pollInterval      time.Duration
	classifierTimeout time.Duration

	cycles              uint64
	presentationPending bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a new Manager.
func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("manager requires a store")
	}
	if opts.Classifier == nil {
		return nil, fmt.Errorf("manager requires a classifier")
	}
	if opts.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be a positive duration")
	}
	if opts.ClassifierTimeout < 0 {
		return nil, fmt.Errorf("classifier timeout must not be negative")
	}
	return &Manager{
		store:               opts.Store,
		aggregator:          flowaggregator.NewAggregator(),
		extractor:           features.NewExtractor(),
		classifier:          opts.Classifier,
		launcher:            opts.Launcher,
		exporters:           opts.Exporters,
		pollInterval:        opts.PollInterval,
		classifierTimeout:   opts.ClassifierTimeout,
		presentationPending: opts.Launcher != nil,
	}, nil
}

// Start runs the loop in the background until Stop is called.
func (m *Manager) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.Run(ctx)
	}()
	logger.WithComponent("manager").Infof("Manager started with poll interval %s", m.pollInterval)
}

// Stop cancels the loop and waits for the running cycle to finish.
func (m *Manager) Stop() {
	logger.WithComponent("manager").Info("Manager stopping...")
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	logger.WithComponent("manager").Info("Manager stopped.")
}

// Run waits one poll interval, runs a cycle, and repeats until ctx is done.
// Cycle failures are logged and never end the loop.
func (m *Manager) Run(ctx context.Context) {
	// Re-armed after each cycle: every cycle is preceded by a full interval.
	timer := time.NewTimer(m.pollInterval)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			m.report(m.RunCycle(ctx))
			timer.Reset(m.pollInterval)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) report(err error) {
	if err == nil {
		metrics.Cycles.WithLabelValues("ok").Inc()
		return
	}
	stage := model.StageOf(err)
	metrics.Cycles.WithLabelValues("failed").Inc()
	metrics.StageErrors.WithLabelValues(string(stage)).Inc()
	logger.WithComponent("manager").WithFields(logrus.Fields{
		"stage": stage,
		"cycle": m.cycles,
	}).WithError(err).Error("Pipeline cycle failed")
}

// RunCycle runs one full pass of the pipeline. Draining and feature replacement
// commit together or not at all.
func (m *Manager) RunCycle(ctx context.Context) error {
	m.cycles++
	log := logger.WithComponent("manager").WithField("cycle", m.cycles)

	vectors, err := m.buildFeatures(ctx)
	if err != nil {
		return err
	}
	metrics.FeaturedFlows.Set(float64(len(vectors)))
	log.Debugf("Committed %d feature vectors", len(vectors))

	cycleTime := time.Now()
	for _, exp := range m.exporters {
		if err := exp.Export(ctx, cycleTime, vectors); err != nil {
			log.WithError(err).Warn("Feature export failed")
		}
	}

	if err := m.classify(ctx); err != nil {
		return model.NewStageError(model.StageClassification, err)
	}

	if m.presentationPending {
		if err := m.launcher.Launch(ctx); err != nil {
			return model.NewStageError(model.StagePresentation, err)
		}
		m.presentationPending = false
		log.Info("Presentation launched")
	}
	return nil
}

func (m *Manager) buildFeatures(ctx context.Context) (vectors []model.FeatureVector, err error) {
	cycle, err := m.store.BeginCycle(ctx)
	if err != nil {
		return nil, model.NewStageError(model.StageAggregation, err)
	}
	defer func() {
		if err != nil {
			if rbErr := cycle.Rollback(); rbErr != nil {
				logger.WithComponent("manager").WithError(rbErr).Error("Cycle rollback failed")
			}
		}
	}()

	buckets, err := m.aggregator.DrainAndGroup(ctx, cycle)
	if err != nil {
		return nil, err
	}
	vectors = m.extractor.Extract(buckets.Ordered())
	if err = m.extractor.Persist(ctx, cycle, vectors); err != nil {
		return nil, err
	}
	if err = cycle.Commit(); err != nil {
		return nil, model.NewStageError(model.StageExtraction, err)
	}
	return vectors, nil
}

func (m *Manager) classify(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(string(model.StageClassification)).Observe(time.Since(start).Seconds())
	}()
	if m.classifierTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.classifierTimeout)
		defer cancel()
	}
	return m.classifier.Classify(ctx)
}
