package cli

import (
	"context"
	"net/http"
	"time"

	"github.com/AdamCoscia/KnowledgeVIS/internal/application/export"
	"github.com/AdamCoscia/KnowledgeVIS/internal/application/query"
	"github.com/AdamCoscia/KnowledgeVIS/internal/application/session"
	"github.com/AdamCoscia/KnowledgeVIS/internal/application/views"
	"github.com/AdamCoscia/KnowledgeVIS/internal/config"
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/occlusion"
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/prediction"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/cache/memory"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/database/redis"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/messaging/kafka"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/logging"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/prometheus"
	objects "github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/storage/memory"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/storage/minio"
	httpapi "github.com/AdamCoscia/KnowledgeVIS/internal/interfaces/http"
	"github.com/AdamCoscia/KnowledgeVIS/internal/interfaces/http/handlers"
	"github.com/AdamCoscia/KnowledgeVIS/internal/interfaces/http/middleware"
)

const exportLinkTTL = time.Hour

// Backend is what the server needs from the prediction backend.
// *client.Client satisfies it.
type Backend interface {
	query.Fetcher
	Ping(ctx context.Context) error
}

// App is the assembled server. Close releases everything Build opened, in
// reverse order.
type App struct {
	Config   *config.Config
	Logger   logging.Logger
	Metrics  *prometheus.AppMetrics
	Queries  query.Service
	Sessions *session.Manager
	Presets  *query.PresetCatalog
	Exporter *export.Exporter
	Limiter  *middleware.Limiter
	Handler  http.Handler

	closers []closer
}

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

func (a *App) onClose(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Close shuts components down newest first and returns the first error.
func (a *App) Close(ctx context.Context) error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			a.Logger.Error("shutdown step failed", logging.String("component", c.name), logging.Err(err))
			if first == nil {
				first = err
			}
		}
	}
	a.closers = nil
	return first
}

// Build wires every component named by cfg. Optional infrastructure
// (redis, kafka, minio, metrics) is only dialled when enabled.
func Build(ctx context.Context, cfg *config.Config, logger logging.Logger, backend Backend, version string) (*App, error) {
	a := &App{Config: cfg, Logger: logger}
	if err := a.build(ctx, backend, version); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, backend Backend, version string) error {
	cfg, logger := a.Config, a.Logger

	var collector prometheus.MetricsCollector
	if cfg.Metrics.Enabled {
		col, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger.Named("metrics"))
		if err != nil {
			return err
		}
		collector = col
		a.Metrics = prometheus.NewAppMetrics(col)
	}

	checkers := []handlers.HealthChecker{handlers.CheckFunc{Component: "backend", Fn: backend.Ping}}

	queryOpts := []query.ServiceOption{query.WithLogger(logger.Named("query")), query.WithMetrics(a.Metrics)}
	switch cfg.Cache.Driver {
	case "memory":
		queryOpts = append(queryOpts, query.WithCache(memory.New(cfg.Cache.TTL, cfg.Cache.CleanupInterval), "memory", cfg.Cache.TTL))
	case "redis":
		rc, err := redis.NewClient(cfg.Redis, logger.Named("redis"))
		if err != nil {
			return err
		}
		a.onClose("redis", func(context.Context) error { return rc.Close() })
		cache := redis.NewRedisCache(rc, logger.Named("redis"),
			redis.WithPrefix(cfg.Redis.KeyPrefix), redis.WithDefaultTTL(cfg.Cache.TTL))
		queryOpts = append(queryOpts, query.WithCache(cache, "redis", cfg.Cache.TTL))
		checkers = append(checkers, handlers.CheckFunc{Component: "redis", Fn: cache.Ping})
	}
	a.Queries = query.NewService(backend, queryOpts...)

	var events kafka.Emitter = kafka.NopEmitter{}
	if cfg.Kafka.Enabled {
		if cfg.Kafka.CreateTopic {
			ensureTopic(ctx, cfg.Kafka, logger)
		}
		producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka), logger.Named("kafka"))
		if err != nil {
			return err
		}
		// the publisher closes the producer after draining
		pub := kafka.NewAsyncPublisher(producer, cfg.Kafka.Topic, cfg.Kafka.BufferSize, logger.Named("events"))
		a.onClose("events", func(context.Context) error { return pub.Close() })
		events = pub
	}

	var store minio.ObjectStore = objects.NewStore()
	exportOpts := []export.Option{export.WithLogger(logger.Named("export")), export.WithMetrics(a.Metrics), export.WithEvents(events)}
	if cfg.MinIO.Enabled {
		mc, err := minio.NewClient(ctx, cfg.MinIO, logger.Named("minio"))
		if err != nil {
			return err
		}
		a.onClose("minio", func(context.Context) error { return mc.Close() })
		store = mc
		exportOpts = append(exportOpts, export.WithPresign(exportLinkTTL))
	}
	a.Exporter = export.NewExporter(store, exportOpts...)

	coordOpts, err := coordinatorOptions(cfg.Views)
	if err != nil {
		return err
	}
	a.Sessions = session.NewManager(a.Queries, cfg.Session,
		session.WithLogger(logger.Named("session")),
		session.WithMetrics(a.Metrics),
		session.WithEvents(events),
		session.WithCoordinatorOptions(coordOpts...),
	)
	a.onClose("sessions", a.Sessions.Close)

	presets, err := query.DefaultPresets()
	if err != nil {
		return err
	}
	a.Presets = presets

	routerCfg := httpapi.RouterConfig{
		SessionHandler: handlers.NewSessionHandler(a.Sessions, presets, a.Exporter),
		PresetHandler:  handlers.NewPresetHandler(presets),
		CacheHandler:   handlers.NewCacheHandler(a.Queries),
		HealthHandler:  handlers.NewHealthHandler(version, checkers...),
		Logging:        middleware.DefaultLoggingConfig(),
		Logger:         logger.Named("http"),
		Metrics:        a.Metrics,
		Collector:      collector,
		MetricsPath:    cfg.Metrics.Path,
	}
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.Server.AllowedOrigins
	routerCfg.CORS = &cors
	if cfg.Server.RateLimit > 0 {
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.Server.RateLimit
		rl.BurstSize = cfg.Server.RateBurst
		a.Limiter = middleware.NewLimiter(rl.RequestsPerSecond, rl.BurstSize, rl.IdleTTL, rl.CleanupInterval)
		routerCfg.RateLimit = &rl
		routerCfg.Limiter = a.Limiter
	}
	a.Handler = httpapi.NewRouter(routerCfg)
	return nil
}

// ensureTopic creates the events topic. Failures are logged; the producer
// reports a missing topic on its own.
func ensureTopic(ctx context.Context, kc config.KafkaConfig, logger logging.Logger) {
	if len(kc.Brokers) == 0 {
		return
	}
	tm, err := kafka.DialTopicManager(ctx, kc.Brokers[0])
	if err != nil {
		logger.Warn("cannot reach kafka controller", logging.Err(err))
		return
	}
	defer tm.Close()
	if err := tm.EnsureTopic(kc.Topic, kc.Partitions, 1); err != nil {
		logger.Warn("cannot create events topic", logging.String("topic", kc.Topic), logging.Err(err))
	}
}

// Reload applies the settings that can change without a restart and
// reports the keys that still differ from the running configuration.
// Only the rate limit is live. It is not safe for concurrent use.
func (a *App) Reload(next *config.Config) []string {
	prev := a.Config
	if a.Limiter != nil && next.Server.RateLimit > 0 &&
		(next.Server.RateLimit != prev.Server.RateLimit || next.Server.RateBurst != prev.Server.RateBurst) {
		a.Limiter.SetRate(next.Server.RateLimit, next.Server.RateBurst)
		a.Logger.Info("rate limit updated",
			logging.Float64("rps", next.Server.RateLimit), logging.Int("burst", next.Server.RateBurst))
		applied := *prev
		applied.Server.RateLimit, applied.Server.RateBurst = next.Server.RateLimit, next.Server.RateBurst
		a.Config = &applied
	}

	var pending []string
	if next.Server.Addr() != prev.Server.Addr() {
		pending = append(pending, "server.host/port")
	}
	if (next.Server.RateLimit > 0) != (a.Limiter != nil) {
		pending = append(pending, "server.rate_limit")
	}
	if next.Backend != prev.Backend {
		pending = append(pending, "backend")
	}
	if next.Cache.Driver != prev.Cache.Driver || next.Redis.Addr != prev.Redis.Addr {
		pending = append(pending, "cache")
	}
	if next.Kafka.Enabled != prev.Kafka.Enabled || next.MinIO != prev.MinIO {
		pending = append(pending, "kafka/minio")
	}
	if next.Views != prev.Views || next.Session != prev.Session {
		pending = append(pending, "views/session")
	}
	return pending
}

// coordinatorOptions turns the configured view defaults into options for
// every new session's coordinator.
func coordinatorOptions(v config.ViewsConfig) ([]views.CoordinatorOption, error) {
	heatSort, err := prediction.ParseSortMode(v.HeatMapSort)
	if err != nil {
		return nil, err
	}
	setSort, err := prediction.ParseSortMode(v.SetViewSort)
	if err != nil {
		return nil, err
	}
	scale, err := prediction.ParseScaleMode(v.Scale)
	if err != nil {
		return nil, err
	}

	settings := views.DefaultSettings()
	settings[views.KindHeatMap] = views.Settings{Sort: heatSort, Scale: scale}
	settings[views.KindSetView] = views.Settings{Sort: setSort, Scale: scale}
	scatter := settings[views.KindScatter]
	scatter.Scale = scale
	settings[views.KindScatter] = scatter

	opts := []views.CoordinatorOption{
		views.WithOptions(views.Options{
			Measurer:      occlusion.ApproxMeasurer{CharWidth: v.CharWidthRatio},
			LabelDistance: v.LabelDistance,
		}),
		views.WithSettings(settings),
	}
	if v.Width > 0 && v.Height > 0 {
		for _, k := range views.AllKinds {
			opts = append(opts, views.WithViewport(k, views.Viewport{Width: v.Width, Height: v.Height}))
		}
	}
	return opts, nil
}
