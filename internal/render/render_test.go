package render

import (
	"context"
	"fmt"
	"testing"

	"github.com/irbid-geoai/geoai-monitor/pkg/models"
)

func TestRecorder_KeepsNewest(t *testing.T) {
	r := NewRecorder(2)
	for i := 0; i < 3; i++ {
		if err := r.Render(context.Background(), &models.Result{RunID: fmt.Sprint(i)}); err != nil {
			t.Fatal(err)
		}
	}
	if r.Len() != 2 {
		t.Errorf("Expected 2 results, got %d", r.Len())
	}
	if last, ok := r.Last(); !ok || last.RunID != "2" {
		t.Errorf("Expected last run 2, got %v", last)
	}
	if _, ok := r.Find("0"); ok {
		t.Error("Expected the oldest result to be evicted")
	}
	if _, ok := r.Find("1"); !ok {
		t.Error("Expected run 1 to be kept")
	}
}
