package observer

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
)

type recordingObserver struct {
	name   string
	events []EventType
}

func (o *recordingObserver) OnEvent(_ context.Context, e ModuleEvent) {
	o.events = append(o.events, e.EventType)
}
func (o *recordingObserver) GetObserverName() string { return o.name }

type panickyObserver struct{}

func (panickyObserver) OnEvent(context.Context, ModuleEvent) { panic("boom") }
func (panickyObserver) GetObserverName() string              { return "panicky" }

func TestEventPublisher_SynchronousInOrder(t *testing.T) {
	p := NewEventPublisher()
	rec := &recordingObserver{name: "rec"}
	p.Subscribe(panickyObserver{})
	p.Subscribe(rec)

	p.NotifyObservers(context.Background(), ModuleEvent{EventType: ModuleStarted})
	p.NotifyObservers(context.Background(), ModuleEvent{EventType: ModuleCompleted})

	// Delivery is synchronous, so events are visible right away.
	if len(rec.events) != 2 || rec.events[0] != ModuleStarted || rec.events[1] != ModuleCompleted {
		t.Errorf("Expected [started completed], got %v", rec.events)
	}

	p.Unsubscribe(rec)
	p.NotifyObservers(context.Background(), ModuleEvent{EventType: ModuleFailed})
	if len(rec.events) != 2 {
		t.Errorf("Expected no delivery after unsubscribe, got %v", rec.events)
	}
}

func TestMetricsObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsObserver(reg)
	ctx := context.Background()

	m.OnEvent(ctx, ModuleEvent{EventType: StateChanged, State: "fetching"})
	m.OnEvent(ctx, ModuleEvent{EventType: ModuleCompleted, Module: "change-detection", Duration: time.Second})
	m.OnEvent(ctx, ModuleEvent{EventType: ModuleFailed, Module: "zonal-statistics", ErrorKind: "InvalidAOIError"})
	m.OnEvent(ctx, ModuleEvent{EventType: ModuleRejected})

	if got := testutil.ToFloat64(m.runs.WithLabelValues("change-detection", "rendered")); got != 1 {
		t.Errorf("Expected 1 rendered run, got %v", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("zonal-statistics", "InvalidAOIError")); got != 1 {
		t.Errorf("Expected 1 failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("fetching")); got != 1 {
		t.Errorf("Expected 1 transition, got %v", got)
	}
	if got := testutil.ToFloat64(m.rejected); got != 1 {
		t.Errorf("Expected 1 rejection, got %v", got)
	}
}

func TestLoggingObserver_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	NewLoggingObserver(l).OnEvent(context.Background(), ModuleEvent{
		EventType: ModuleFailed, RunID: "r1", Module: "lulc-classification",
		ErrorKind: "NoDataError", Message: "empty collection",
	})

	out := buf.String()
	for _, want := range []string{`"run_id":"r1"`, `"error_kind":"NoDataError"`, `"level":"error"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log to contain %s, got %s", want, out)
		}
	}
}
