package classify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/logger"
)

// Registry holds the trained forests available to modules, by name.
type Registry struct {
	mu      sync.RWMutex
	forests map[string]*Forest
}

func NewRegistry() *Registry {
	return &Registry{forests: make(map[string]*Forest)}
}

func (r *Registry) Register(f *Forest) error {
	if err := f.Validate(); err != nil {
		return apperrors.NewValidationError("rejected forest", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forests[f.Name] = f
	return nil
}

// LoadDir registers every *.json forest document in dir. A missing directory
// leaves the registry empty.
func (r *Registry) LoadDir(dir string) error {
	if dir == "" {
		return nil
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("listing models in %s", dir), err)
	}
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return apperrors.NewInternalError(fmt.Sprintf("reading model %s", p), err)
		}
		var f Forest
		if err := json.Unmarshal(raw, &f); err != nil {
			return apperrors.NewValidationError(fmt.Sprintf("malformed model %s", p), err)
		}
		if err := r.Register(&f); err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{
			"model": f.Name,
			"trees": len(f.Trees),
			"bands": f.Bands,
		}).Info("Loaded trained model")
	}
	return nil
}

// Model binds the named forest to cfg. An unknown name yields an untrained
// model, so the failure surfaces at prediction time as ModelNotReadyError.
func (r *Registry) Model(name string, cfg Config) (*Model, error) {
	r.mu.RLock()
	f := r.forests[name]
	r.mu.RUnlock()
	return Bind(cfg, f)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.forests))
	for n := range r.forests {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
