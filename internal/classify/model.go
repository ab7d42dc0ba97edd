// Package classify applies externally trained tree ensembles to predictor
// stacks. Training happens elsewhere; this package only loads and evaluates
// forests.
package classify

import (
	"fmt"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
)

type Algorithm string

const RandomForest Algorithm = "random-forest"

// Mode selects the output of a prediction.
type Mode string

const (
	// ModeLabel outputs the majority class.
	ModeLabel Mode = "label"
	// ModeProbability outputs the share of trees voting for the highest class id.
	ModeProbability Mode = "probability"
)

// Config is what a caller asks of a model.
type Config struct {
	Algorithm Algorithm `json:"algorithm" yaml:"algorithm"`
	Trees     int       `json:"trees" yaml:"trees"`
	Mode      Mode      `json:"mode" yaml:"mode"`
}

func (c Config) Validate() error {
	if c.Algorithm != RandomForest {
		return apperrors.NewValidationError(fmt.Sprintf("unsupported algorithm %q", c.Algorithm), nil)
	}
	if c.Trees <= 0 {
		return apperrors.NewValidationError(fmt.Sprintf("tree count must be positive, got %d", c.Trees), nil)
	}
	if c.Mode != ModeLabel && c.Mode != ModeProbability {
		return apperrors.NewValidationError(fmt.Sprintf("unsupported output mode %q", c.Mode), nil)
	}
	return nil
}

// Node is one split or leaf of a decision tree. Splits send a feature value
// <= Threshold to Left.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Leaf      bool    `json:"leaf"`
	Class     int     `json:"class"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Forest is a trained ensemble. Bands is the predictor order it was trained on.
type Forest struct {
	Name    string   `json:"name"`
	Bands   []string `json:"bands"`
	Classes []int    `json:"classes"`
	Trees   []Tree   `json:"trees"`
}

// Validate checks that every tree walk terminates at a declared class.
func (f *Forest) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("forest has no name")
	}
	if len(f.Bands) == 0 || len(f.Classes) == 0 || len(f.Trees) == 0 {
		return fmt.Errorf("forest %s needs bands, classes and trees", f.Name)
	}
	classes := make(map[int]bool, len(f.Classes))
	for _, c := range f.Classes {
		classes[c] = true
	}
	for ti, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("forest %s tree %d is empty", f.Name, ti)
		}
		for ni, n := range t.Nodes {
			if n.Leaf {
				if !classes[n.Class] {
					return fmt.Errorf("forest %s tree %d node %d votes for undeclared class %d", f.Name, ti, ni, n.Class)
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= len(f.Bands) {
				return fmt.Errorf("forest %s tree %d node %d splits on feature %d of %d", f.Name, ti, ni, n.Feature, len(f.Bands))
			}
			// Children must point forward, which rules out cycles.
			for _, child := range []int{n.Left, n.Right} {
				if child <= ni || child >= len(t.Nodes) {
					return fmt.Errorf("forest %s tree %d node %d has invalid child %d", f.Name, ti, ni, child)
				}
			}
		}
	}
	return nil
}

func (t Tree) predict(features []float64) int {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Class
		}
		if features[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Model binds a configuration to a trained forest. The zero forest means the
// model has not been trained.
type Model struct {
	Config Config
	forest *Forest
}

// NewModel returns an untrained model.
func NewModel(cfg Config) *Model {
	return &Model{Config: cfg}
}

// Bind attaches a trained forest. The forest must have exactly cfg.Trees trees.
func Bind(cfg Config, forest *Forest) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if forest == nil {
		return NewModel(cfg), nil
	}
	if err := forest.Validate(); err != nil {
		return nil, apperrors.NewModelNotReadyError("trained forest is invalid", err)
	}
	if len(forest.Trees) != cfg.Trees {
		return nil, apperrors.NewModelNotReadyError(
			fmt.Sprintf("forest %s has %d trees, configuration asks for %d", forest.Name, len(forest.Trees), cfg.Trees), nil)
	}
	return &Model{Config: cfg, forest: forest}, nil
}

func (m *Model) Trained() bool {
	return m != nil && m.forest != nil
}

// Bands is the predictor order the model expects.
func (m *Model) Bands() []string {
	if !m.Trained() {
		return nil
	}
	out := make([]string, len(m.forest.Bands))
	copy(out, m.forest.Bands)
	return out
}

// vote runs every tree. Label mode picks the majority class with ties going
// to the lowest id; probability mode returns the share of trees voting for
// the highest class id.
func (m *Model) vote(features []float64, counts map[int]int) float64 {
	for k := range counts {
		delete(counts, k)
	}
	for _, t := range m.forest.Trees {
		counts[t.predict(features)]++
	}

	if m.Config.Mode == ModeProbability {
		positive := m.forest.Classes[0]
		for _, c := range m.forest.Classes {
			if c > positive {
				positive = c
			}
		}
		return float64(counts[positive]) / float64(len(m.forest.Trees))
	}

	best, bestVotes := 0, -1
	for _, c := range m.forest.Classes {
		v := counts[c]
		if v > bestVotes || (v == bestVotes && c < best) {
			best, bestVotes = c, v
		}
	}
	return float64(best)
}
