package storage

import (
	"context"
	"sync"

	"github.com/irbid-geoai/geoai-monitor/internal/raster"
)

// MemorySource keeps scenes in process. It backs tests and the demo mode.
type MemorySource struct {
	mu     sync.RWMutex
	scenes map[string][]*raster.Image
}

func NewMemorySource() *MemorySource {
	return &MemorySource{scenes: make(map[string][]*raster.Image)}
}

// Add appends scenes to a collection.
func (s *MemorySource) Add(collectionID string, images ...*raster.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenes[collectionID] = append(s.scenes[collectionID], images...)
}

func (s *MemorySource) Scenes(ctx context.Context, collectionID string) ([]*raster.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*raster.Image, len(s.scenes[collectionID]))
	copy(out, s.scenes[collectionID])
	return out, nil
}
