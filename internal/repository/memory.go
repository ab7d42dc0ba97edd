package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/irbid-geoai/geoai-monitor/internal/classify"
	"github.com/irbid-geoai/geoai-monitor/pkg/models"
)

// MemoryRunRepository keeps run records in process
type MemoryRunRepository struct {
	mu   sync.RWMutex
	runs map[string]models.RunRecord
}

func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{runs: make(map[string]models.RunRecord)}
}

func (r *MemoryRunRepository) SaveRun(_ context.Context, run *models.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = *run
	return nil
}

func (r *MemoryRunRepository) GetRun(_ context.Context, id string) (*models.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return &run, nil
}

func (r *MemoryRunRepository) ListRuns(_ context.Context, limit int) ([]*models.RunRecord, error) {
	r.mu.RLock()
	out := make([]*models.RunRecord, 0, len(r.runs))
	for _, run := range r.runs {
		run := run
		out = append(out, &run)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Started.Equal(out[j].Started) {
			return out[i].ID > out[j].ID
		}
		return out[i].Started.After(out[j].Started)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MemoryReferenceRepository serves reference samples held in process
type MemoryReferenceRepository struct {
	mu      sync.RWMutex
	samples map[string][]classify.Sample
}

func NewMemoryReferenceRepository() *MemoryReferenceRepository {
	return &MemoryReferenceRepository{samples: make(map[string][]classify.Sample)}
}

// Add appends samples for a model
func (r *MemoryReferenceRepository) Add(model string, samples ...classify.Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples[model] = append(r.samples[model], samples...)
}

func (r *MemoryReferenceRepository) ReferenceSamples(_ context.Context, model string) ([]classify.Sample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]classify.Sample, len(r.samples[model]))
	copy(out, r.samples[model])
	return out, nil
}
