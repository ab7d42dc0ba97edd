// Package accuracy compares predicted labels with reference labels.
package accuracy

import (
	"fmt"
	"sort"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
)

// ConfusionMatrix counts samples by (reference class, predicted class). Rows
// and columns share one sorted label set.
type ConfusionMatrix struct {
	Labels []int   `json:"labels"`
	Counts [][]int `json:"counts"`
}

// Evaluate builds the matrix from parallel label slices.
func Evaluate(predicted, reference []int) (ConfusionMatrix, error) {
	if len(predicted) != len(reference) {
		return ConfusionMatrix{}, apperrors.NewValidationError(
			fmt.Sprintf("%d predicted labels for %d reference labels", len(predicted), len(reference)), nil)
	}

	seen := make(map[int]bool)
	for _, l := range predicted {
		seen[l] = true
	}
	for _, l := range reference {
		seen[l] = true
	}
	labels := make([]int, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	index := make(map[int]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	counts := make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	for i := range predicted {
		counts[index[reference[i]]][index[predicted[i]]]++
	}
	return ConfusionMatrix{Labels: labels, Counts: counts}, nil
}

// Total is the number of samples in the matrix.
func (m ConfusionMatrix) Total() int {
	total := 0
	for _, row := range m.Counts {
		for _, c := range row {
			total += c
		}
	}
	return total
}

func (m ConfusionMatrix) diagonal() int {
	d := 0
	for i := range m.Counts {
		d += m.Counts[i][i]
	}
	return d
}

func (m ConfusionMatrix) rowTotal(i int) int {
	t := 0
	for _, c := range m.Counts[i] {
		t += c
	}
	return t
}

func (m ConfusionMatrix) colTotal(j int) int {
	t := 0
	for i := range m.Counts {
		t += m.Counts[i][j]
	}
	return t
}

// Accuracy is the share of samples on the diagonal.
func (m ConfusionMatrix) Accuracy() (float64, error) {
	total := m.Total()
	if total == 0 {
		return 0, apperrors.NewDegenerateMatrixError("confusion matrix is empty", nil)
	}
	return float64(m.diagonal()) / float64(total), nil
}

// Kappa is Cohen's chance-corrected agreement. It is undefined when the
// marginals make chance agreement certain.
func (m ConfusionMatrix) Kappa() (float64, error) {
	total := m.Total()
	if total == 0 {
		return 0, apperrors.NewDegenerateMatrixError("confusion matrix is empty", nil)
	}
	n := float64(total)
	observed := float64(m.diagonal()) / n
	expected := 0.0
	for i := range m.Counts {
		expected += float64(m.rowTotal(i)) * float64(m.colTotal(i)) / (n * n)
	}
	if expected >= 1 {
		return 0, apperrors.NewDegenerateMatrixError("expected agreement is 1, kappa is undefined", nil)
	}
	return (observed - expected) / (1 - expected), nil
}

// ProducersAccuracy is, per reference class, the diagonal over the row total.
func (m ConfusionMatrix) ProducersAccuracy() map[int]float64 {
	out := make(map[int]float64, len(m.Labels))
	for i, l := range m.Labels {
		if t := m.rowTotal(i); t > 0 {
			out[l] = float64(m.Counts[i][i]) / float64(t)
		} else {
			out[l] = 0
		}
	}
	return out
}

// ConsumersAccuracy is, per predicted class, the diagonal over the column total.
func (m ConfusionMatrix) ConsumersAccuracy() map[int]float64 {
	out := make(map[int]float64, len(m.Labels))
	for j, l := range m.Labels {
		if t := m.colTotal(j); t > 0 {
			out[l] = float64(m.Counts[j][j]) / float64(t)
		} else {
			out[l] = 0
		}
	}
	return out
}
