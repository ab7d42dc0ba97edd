// Package render hands module results to the mapping surface.
package render

import (
	"context"
	"sync"

	"github.com/irbid-geoai/geoai-monitor/pkg/models"
)

// Surface accepts render-ready results. Tile rendering is its business.
type Surface interface {
	Render(ctx context.Context, result *models.Result) error
}

// Recorder is a Surface that keeps every result it receives, newest last.
type Recorder struct {
	mu      sync.RWMutex
	results []*models.Result
	limit   int
}

// NewRecorder keeps at most limit results; zero keeps all.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) Render(_ context.Context, result *models.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	if r.limit > 0 && len(r.results) > r.limit {
		r.results = r.results[len(r.results)-r.limit:]
	}
	return nil
}

// Last returns the most recent result, if any.
func (r *Recorder) Last() (*models.Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.results) == 0 {
		return nil, false
	}
	return r.results[len(r.results)-1], true
}

// Find returns the result of a run.
func (r *Recorder) Find(runID string) (*models.Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.results) - 1; i >= 0; i-- {
		if r.results[i].RunID == runID {
			return r.results[i], true
		}
	}
	return nil, false
}

func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.results)
}
