package store

import (
	"context"
	"sort"
	"sync"

	"Go2NetIDS/internal/model"

	"github.com/pkg/errors"
)

// Memory is a process-local Store. It backs the offline analyzer and tests.
type Memory struct {
	mu          sync.Mutex
	closed      bool
	nextID      int64
	pending     []model.PacketRecord
	features    []model.FeatureVector
	predictions map[string]int

	// cycleMu serializes cycles the way a row lock would.
	cycleMu sync.Mutex
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{predictions: make(map[string]int)}
}

func (m *Memory) Append(_ context.Context, rec model.PacketRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, errors.Wrap(model.ErrStoreUnavailable, "memory store closed")
	}
	m.nextID++
	rec.ID = m.nextID
	m.pending = append(m.pending, rec)
	return rec.ID, nil
}

// PendingCount reports how many records are waiting to be drained.
func (m *Memory) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *Memory) BeginCycle(ctx context.Context) (Cycle, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, errors.Wrap(model.ErrStoreUnavailable, "memory store closed")
	}
	m.cycleMu.Lock()
	return &memoryCycle{m: m}, nil
}

func (m *Memory) Features(_ context.Context) ([]model.FeatureVector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.FeatureVector, len(m.features))
	copy(out, m.features)
	return out, nil
}

func (m *Memory) UpsertPredictions(_ context.Context, preds []model.Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.Wrap(model.ErrStoreUnavailable, "memory store closed")
	}
	for _, p := range preds {
		m.predictions[p.FlowID] = p.Label
	}
	return nil
}

func (m *Memory) Predictions(_ context.Context) ([]model.Prediction, error) {
	return m.selectPredictions(func(int) bool { return true }), nil
}

func (m *Memory) PredictionsByLabel(_ context.Context, label int) ([]model.Prediction, error) {
	return m.selectPredictions(func(l int) bool { return l == label }), nil
}

func (m *Memory) selectPredictions(keep func(label int) bool) []model.Prediction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Prediction, 0, len(m.predictions))
	for id, label := range m.predictions {
		if keep(label) {
			out = append(out, model.Prediction{FlowID: id, Label: label})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FlowID > out[j].FlowID })
	return out
}

func (m *Memory) ClearPredictions(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions = make(map[string]int)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type memoryCycle struct {
	m        *Memory
	drained  []model.PacketRecord
	staged   []model.FeatureVector
	replaced bool
	done     bool
}

func (c *memoryCycle) DrainPending(_ context.Context) ([]model.PacketRecord, error) {
	if c.done {
		return nil, errors.New("cycle already finished")
	}
	c.m.mu.Lock()
	taken := c.m.pending
	c.m.pending = nil
	c.m.mu.Unlock()

	c.drained = append(c.drained, taken...)
	out := make([]model.PacketRecord, len(taken))
	copy(out, taken)
	return out, nil
}

func (c *memoryCycle) ReplaceFeatures(_ context.Context, vectors []model.FeatureVector) error {
	if c.done {
		return errors.New("cycle already finished")
	}
	c.staged = make([]model.FeatureVector, len(vectors))
	copy(c.staged, vectors)
	c.replaced = true
	return nil
}

func (c *memoryCycle) Commit() error {
	if c.done {
		return errors.New("cycle already finished")
	}
	c.done = true
	defer c.m.cycleMu.Unlock()

	if c.replaced {
		c.m.mu.Lock()
		c.m.features = c.staged
		c.m.mu.Unlock()
	}
	return nil
}

// Rollback puts drained records back ahead of anything ingested since, which
// keeps id order because ids only grow. It is a no-op after Commit.
func (c *memoryCycle) Rollback() error {
	if c.done {
		return nil
	}
	c.done = true
	defer c.m.cycleMu.Unlock()

	if len(c.drained) > 0 {
		c.m.mu.Lock()
		c.m.pending = append(c.drained, c.m.pending...)
		c.m.mu.Unlock()
	}
	return nil
}
