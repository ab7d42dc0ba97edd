package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/logger"
	"github.com/irbid-geoai/geoai-monitor/internal/observer"
	"github.com/irbid-geoai/geoai-monitor/internal/render"
	"github.com/irbid-geoai/geoai-monitor/internal/repository"
	"github.com/irbid-geoai/geoai-monitor/pkg/models"
)

// Request carries the typed inputs of one invocation. Fields a module does
// not use are ignored.
type Request struct {
	RunID string
	Tag   Tag

	// AOI is the uploaded GeoJSON document for zonal statistics
	AOI       []byte
	Reducer   string
	Scale     float64
	MaxPixels float64
}

// Handler runs one module and returns its render-ready result.
type Handler interface {
	Run(ctx context.Context, req Request) (*models.Result, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) (*models.Result, error)

func (f HandlerFunc) Run(ctx context.Context, req Request) (*models.Result, error) {
	return f(ctx, req)
}

// Session is the process-wide session the dispatcher checks before any work.
type Session interface {
	Authorize() error
	Invalidate(cause error)
}

// Dispatcher maps module tags to handlers and runs one invocation at a time.
type Dispatcher struct {
	// runMu serializes invocations; mu guards handlers and machine only.
	runMu    sync.Mutex
	mu       sync.Mutex
	handlers map[Tag]Handler
	session  Session
	surface  render.Surface
	runs     repository.RunRepository
	events   observer.Subject
	machine  machine
}

// NewDispatcher creates a dispatcher in the Idle state. runs and events may be nil.
func NewDispatcher(session Session, surface render.Surface, runs repository.RunRepository, events observer.Subject) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[Tag]Handler, len(Tags)),
		session:  session,
		surface:  surface,
		runs:     runs,
		events:   events,
		machine:  machine{state: Idle},
	}
}

// Register binds a handler to a tag. Each tag takes exactly one handler.
func (d *Dispatcher) Register(tag Tag, h Handler) error {
	if !tag.Valid() {
		return apperrors.NewUnknownModuleError(fmt.Sprintf("cannot register unknown module %q", tag), nil)
	}
	if h == nil {
		return apperrors.NewValidationError(fmt.Sprintf("nil handler for %s", tag), nil)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[tag]; exists {
		return apperrors.NewValidationError(fmt.Sprintf("module %s already has a handler", tag), nil)
	}
	d.handlers[tag] = h
	return nil
}

// State returns the dispatcher state of the latest invocation.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.machine.current()
}

// Modules lists the modules with a registered handler, in menu order.
func (d *Dispatcher) Modules() []models.ModuleInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.ModuleInfo, 0, len(d.handlers))
	for _, tag := range Tags {
		if _, ok := d.handlers[tag]; ok {
			out = append(out, models.ModuleInfo{Tag: string(tag), Label: tag.Label()})
		}
	}
	return out
}

// Dispatch runs the module named by module. An unknown name fails with
// UnknownModuleError before anything is fetched, rendered or recorded. Every
// other failure ends the invocation in the Error state and leaves the
// dispatcher usable; an AuthError also invalidates the session.
func (d *Dispatcher) Dispatch(ctx context.Context, module string, req Request) (*models.Result, error) {
	tag, err := ParseTag(module)
	if err != nil {
		d.publish(ctx, observer.ModuleEvent{
			EventType: observer.ModuleRejected,
			Module:    module,
			ErrorKind: apperrors.TypeOf(err).Kind(),
			Message:   err.Error(),
		})
		return nil, err
	}

	d.runMu.Lock()
	defer d.runMu.Unlock()

	req.Tag = tag
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	run := &models.RunRecord{
		ID:      req.RunID,
		Module:  string(tag),
		Started: time.Now().UTC(),
	}
	log := logger.ForRun(string(tag), req.RunID)

	d.advance(ctx, run, ModuleSelected)
	d.publish(ctx, observer.ModuleEvent{
		EventType: observer.ModuleStarted,
		RunID:     run.ID,
		Module:    run.Module,
		State:     string(ModuleSelected),
	})
	d.save(ctx, run)

	if err := d.session.Authorize(); err != nil {
		return nil, d.fail(ctx, run, err)
	}
	d.mu.Lock()
	h, ok := d.handlers[tag]
	d.mu.Unlock()
	if !ok {
		return nil, d.fail(ctx, run, apperrors.NewInternalError(fmt.Sprintf("module %s has no handler", tag), nil))
	}

	d.advance(ctx, run, Fetching)
	log.Info("Running module")
	result, err := runHandler(ctx, h, req)
	if err != nil {
		return nil, d.fail(ctx, run, err)
	}

	d.advance(ctx, run, Ready)
	result.RunID = run.ID
	result.Module = run.Module
	result.Label = tag.Label()
	result.Finished = time.Now().UTC()

	if err := d.surface.Render(ctx, result); err != nil {
		return nil, d.fail(ctx, run, apperrors.NewInternalError("render surface rejected the result", err))
	}

	d.advance(ctx, run, Rendered)
	run.Finished = &result.Finished
	d.save(ctx, run)

	duration := result.Finished.Sub(run.Started)
	d.publish(ctx, observer.ModuleEvent{
		EventType: observer.ModuleCompleted,
		RunID:     run.ID,
		Module:    run.Module,
		State:     string(Rendered),
		Duration:  duration,
		Success:   true,
	})
	log.WithFields(logrus.Fields{
		"duration_ms": duration.Milliseconds(),
		"layers":      len(result.Layers),
	}).Info("Module rendered")
	return result, nil
}

// runHandler turns a handler panic into an internal error.
func runHandler(ctx context.Context, h Handler, req Request) (result *models.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = apperrors.NewInternalError(fmt.Sprintf("module %s panicked: %v", req.Tag, r), nil)
		}
	}()
	result, err = h.Run(ctx, req)
	if err == nil && result == nil {
		err = apperrors.NewInternalError(fmt.Sprintf("module %s returned no result", req.Tag), nil)
	}
	return result, err
}

func (d *Dispatcher) fail(ctx context.Context, run *models.RunRecord, err error) error {
	if apperrors.IsSessionFatal(err) {
		d.session.Invalidate(err)
	}

	kind := apperrors.TypeOf(err).Kind()
	finished := time.Now().UTC()
	d.advance(ctx, run, Error)
	run.ErrorKind = kind
	run.Message = err.Error()
	run.Finished = &finished
	d.save(ctx, run)

	d.publish(ctx, observer.ModuleEvent{
		EventType: observer.ModuleFailed,
		RunID:     run.ID,
		Module:    run.Module,
		State:     string(Error),
		Duration:  finished.Sub(run.Started),
		ErrorKind: kind,
		Message:   err.Error(),
	})
	logger.ForRun(run.Module, run.ID).WithError(err).WithField("kind", kind).Warn("Module failed")
	return err
}

func (d *Dispatcher) advance(ctx context.Context, run *models.RunRecord, next State) {
	d.mu.Lock()
	err := d.machine.to(next)
	if err != nil {
		d.machine.state = next
	}
	d.mu.Unlock()
	if err != nil {
		// Unreachable unless a step is skipped above.
		logger.ForRun(run.Module, run.ID).WithError(err).Error("Dispatcher state corrupted")
	}
	run.State = string(next)
	d.publish(ctx, observer.ModuleEvent{
		EventType: observer.StateChanged,
		RunID:     run.ID,
		Module:    run.Module,
		State:     string(next),
	})
}

func (d *Dispatcher) save(ctx context.Context, run *models.RunRecord) {
	if d.runs == nil {
		return
	}
	snapshot := *run
	if err := d.runs.SaveRun(ctx, &snapshot); err != nil {
		logger.ForRun(run.Module, run.ID).WithError(err).Warn("Failed to record run")
	}
}

func (d *Dispatcher) publish(ctx context.Context, event observer.ModuleEvent) {
	if d.events == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	d.events.NotifyObservers(ctx, event)
}
