// Package dispatch selects and runs exactly one analysis module per request.
package dispatch

import (
	"fmt"
	"strings"

	"github.com/arbovm/levenshtein"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
)

// Tag identifies one of the analysis modules.
type Tag string

const (
	HistoricalComparison Tag = "historical-comparison"
	ChangeDetection      Tag = "change-detection"
	LULCClassification   Tag = "lulc-classification"
	GrowthPrediction     Tag = "growth-prediction"
	SARValidation        Tag = "sar-validation"
	ZonalStatistics      Tag = "zonal-statistics"
	AccuracyAssessment   Tag = "accuracy-assessment"
)

// Tags lists every module in menu order.
var Tags = []Tag{
	HistoricalComparison,
	ChangeDetection,
	LULCClassification,
	GrowthPrediction,
	SARValidation,
	ZonalStatistics,
	AccuracyAssessment,
}

var labels = map[Tag]string{
	HistoricalComparison: "Historical Comparison",
	ChangeDetection:      "ΔNDVI & ΔNDBI Change Detection",
	LULCClassification:   "Random Forest LULC Classification",
	GrowthPrediction:     "Urban Growth Prediction (GeoAI)",
	SARValidation:        "SAR Validation (Sentinel-1)",
	ZonalStatistics:      "Zonal Statistics (AOI)",
	AccuracyAssessment:   "Accuracy Assessment",
}

// Label is the display name shown in the module menu.
func (t Tag) Label() string {
	if l, ok := labels[t]; ok {
		return l
	}
	return string(t)
}

func (t Tag) Valid() bool {
	_, ok := labels[t]
	return ok
}

func (t Tag) String() string {
	return string(t)
}

// ParseTag accepts a tag or its display label. Anything else fails with
// UnknownModuleError; the closest tag is carried in the error details.
func ParseTag(s string) (Tag, error) {
	v := strings.TrimSpace(s)
	if Tag(v).Valid() {
		return Tag(v), nil
	}
	for tag, label := range labels {
		if v == label {
			return tag, nil
		}
	}

	err := apperrors.NewUnknownModuleError(fmt.Sprintf("unknown module %q", s), nil)
	if suggestion := Suggest(v); suggestion != "" {
		return "", err.WithDetails(fmt.Sprintf("did you mean %q?", suggestion))
	}
	return "", err
}

// Suggest returns the tag closest to s by edit distance, or "" when nothing
// is reasonably close.
func Suggest(s string) Tag {
	needle := strings.ToLower(s)
	if needle == "" {
		return ""
	}
	var best Tag
	bestDist := -1
	for _, tag := range Tags {
		for _, candidate := range []string{string(tag), strings.ToLower(tag.Label())} {
			d := levenshtein.Distance(needle, candidate)
			if bestDist < 0 || d < bestDist {
				best, bestDist = tag, d
			}
		}
	}
	if bestDist > len(best)/2 {
		return ""
	}
	return best
}
