package repository

import (
	"context"

	"github.com/irbid-geoai/geoai-monitor/internal/classify"
	"github.com/irbid-geoai/geoai-monitor/pkg/models"
)

// RunRepository stores the audit trail of module invocations
type RunRepository interface {
	// SaveRun inserts or updates a run record by id
	SaveRun(ctx context.Context, run *models.RunRecord) error

	// GetRun retrieves a run record
	GetRun(ctx context.Context, id string) (*models.RunRecord, error)

	// ListRuns returns the most recent runs first, at most limit of them
	ListRuns(ctx context.Context, limit int) ([]*models.RunRecord, error)
}

// ReferenceRepository provides labeled reference samples for accuracy assessment
type ReferenceRepository interface {
	// ReferenceSamples returns the samples collected for a model
	ReferenceSamples(ctx context.Context, model string) ([]classify.Sample, error)
}
