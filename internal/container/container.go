package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/irbid-geoai/geoai-monitor/internal/classify"
	"github.com/irbid-geoai/geoai-monitor/internal/config"
	"github.com/irbid-geoai/geoai-monitor/internal/dataset"
	"github.com/irbid-geoai/geoai-monitor/internal/dispatch"
	"github.com/irbid-geoai/geoai-monitor/internal/engine"
	"github.com/irbid-geoai/geoai-monitor/internal/factory"
	"github.com/irbid-geoai/geoai-monitor/internal/logger"
	"github.com/irbid-geoai/geoai-monitor/internal/modules"
	"github.com/irbid-geoai/geoai-monitor/internal/observer"
	"github.com/irbid-geoai/geoai-monitor/internal/region"
	"github.com/irbid-geoai/geoai-monitor/internal/render"
	"github.com/irbid-geoai/geoai-monitor/internal/repository"
	"github.com/irbid-geoai/geoai-monitor/internal/session"
	"github.com/irbid-geoai/geoai-monitor/internal/transport"
)

// renderHistory bounds the results kept by the recorder.
const renderHistory = 32

// Container holds all application dependencies
type Container struct {
	config     *config.Config
	db         *sqlx.DB
	sessions   *session.Manager
	region     *region.Region
	registry   *prometheus.Registry
	recorder   *render.Recorder
	runs       repository.RunRepository
	dispatcher *dispatch.Dispatcher
	handler    http.Handler
}

// NewContainer builds the dependency graph from cfg
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger.Configure(cfg.LogLevel, cfg.LogFormat)

	source, err := factory.NewSourceFactory(cfg).CreateSource(factory.SourceType(cfg.SceneSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create scene source: %w", err)
	}
	provider := dataset.NewProvider(source)

	sessions := session.NewManager()
	if err := openSession(ctx, cfg, sessions); err != nil {
		// Modules stay blocked until a credential is posted.
		logger.WithError(err).Warn("Session not initialized")
	}
	materializer := engine.NewMaterializer(sessions, cfg.MaterializeTimeout, cfg.RetryBackoff)

	studyRegion, err := loadRegion(ctx, cfg)
	if err != nil {
		return nil, err
	}

	models := classify.NewRegistry()
	if err := models.LoadDir(cfg.ModelDir); err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}

	c := &Container{
		config:   cfg,
		sessions: sessions,
		region:   studyRegion,
		registry: prometheus.NewRegistry(),
		recorder: render.NewRecorder(renderHistory),
	}

	var references repository.ReferenceRepository
	if cfg.PostgresURL != "" {
		db, err := repository.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		c.db = db
		c.runs = repository.NewPostgresRunRepository(db)
		references = repository.NewPostgresReferenceRepository(db)
	} else {
		c.runs = repository.NewMemoryRunRepository()
		references = repository.NewMemoryReferenceRepository()
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(observer.NewMetricsObserver(c.registry))

	c.dispatcher = dispatch.NewDispatcher(sessions, c.recorder, c.runs, events)
	err = modules.Register(c.dispatcher, modules.Deps{
		Provider:     provider,
		Materializer: materializer,
		Region:       studyRegion,
		Models:       models,
		References:   references,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to register modules: %w", err)
	}

	c.handler = transport.NewHandler(c.dispatcher, sessions, c.runs, c.registry, cfg)

	logger.WithFields(logrus.Fields{
		"scene_source": cfg.SceneSource,
		"region":       studyRegion.Name,
		"models":       models.Names(),
		"postgres":     c.db != nil,
	}).Info("Container initialized")
	return c, nil
}

func openSession(ctx context.Context, cfg *config.Config, sessions *session.Manager) error {
	payload, err := cfg.Credential()
	if err != nil {
		return err
	}
	if payload == nil {
		return fmt.Errorf("no credential configured; set GEE_JSON or GEE_JSON_FILE")
	}
	_, err = sessions.Initialize(ctx, payload, session.EarthEngineScope)
	return err
}

func loadRegion(ctx context.Context, cfg *config.Config) (*region.Region, error) {
	r := region.Default()
	if cfg.OverpassURL != "" {
		r.Bounds = nil
	}
	if cfg.StudyRegionFile != "" {
		loaded, err := region.Load(cfg.StudyRegionFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load study region: %w", err)
		}
		r = loaded
	}
	if cfg.OverpassURL != "" {
		r = region.Resolve(ctx, r, region.NewOverpassResolver(cfg.OverpassURL, cfg.RequestTimeout))
	}
	return r, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Dispatcher returns the module dispatcher
func (c *Container) Dispatcher() *dispatch.Dispatcher {
	return c.dispatcher
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Region returns the resolved study region
func (c *Container) Region() *region.Region {
	return c.region
}

// Close releases the database pool, if any
func (c *Container) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
