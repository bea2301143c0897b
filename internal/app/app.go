// Package app assembles fetchers, storage, delivery and scheduling into a runnable digest service.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"AINewsDigest/internal/config"
	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/infrastructure/arxiv"
	"AINewsDigest/internal/infrastructure/email"
	"AINewsDigest/internal/infrastructure/feeds"
	"AINewsDigest/internal/infrastructure/httpapi"
	"AINewsDigest/internal/infrastructure/httpclient"
	"AINewsDigest/internal/infrastructure/reddit"
	"AINewsDigest/internal/infrastructure/render"
	"AINewsDigest/internal/infrastructure/scheduler"
	"AINewsDigest/internal/infrastructure/storage"
	"AINewsDigest/internal/infrastructure/telegram"
	"AINewsDigest/internal/logging"
	"AINewsDigest/internal/metrics"
	"AINewsDigest/internal/policy"
	"AINewsDigest/internal/ports"
	"AINewsDigest/internal/scanner"
	"AINewsDigest/internal/usecase"
)

const shutdownGrace = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	db        *sql.DB
	runs      *storage.RunRepository
	directory *storage.Directory
	registry  *scanner.Registry
	channel   ports.DeliveryChannel
	pipeline  *usecase.Pipeline
	trigger   *usecase.Trigger
	scheduler *usecase.Scheduler
}

// New builds the application. An invalid configuration is an aggregation failure.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAggregationFailure, err)
	}
	if err := scheduler.Validate(cfg.Scheduler.CronExpression); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAggregationFailure, err)
	}

	a := &Application{cfg: cfg, logger: baseLogger, metrics: metrics.New()}

	if cfg.Database.DSN != "" {
		db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		if err := storage.Migrate(ctx, db, cfg.Database.Driver); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		a.runs = storage.NewRunRepository(db, cfg.Database.Driver)
	} else {
		baseLogger.Warn("no database configured, run history and registered subscribers disabled")
	}

	a.directory = storage.NewDirectory(a.db, cfg.Database.Driver, cfg.Recipients.Groups)
	a.registry = a.buildRegistry()

	generic := httpclient.New(nil, httpclient.Options{
		UserAgent: cfg.UserAgentFor(""),
		Timeout:   cfg.Sources.RequestTimeout,
	})
	a.channel = email.NewChannel(cfg.Delivery, generic, baseLogger.With("component", "email"))
	if a.channel == nil {
		baseLogger.Warn("no email channel configured, digests will not be delivered")
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.Enabled() {
		notifier = telegram.NewNotifier(generic, tg.BotToken, tg.ChatID)
	}
	var runs ports.RunRepository
	if a.runs != nil {
		runs = a.runs
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Aggregator: usecase.NewAggregator(usecase.AggregatorDeps{
			Registry: a.registry,
			Dedup:    cfg.Policy.Dedup,
			Logger:   baseLogger.With("component", "aggregator"),
			Metrics:  a.metrics,
		}),
		Renderer:   render.NewHTMLRenderer(),
		Directory:  a.directory,
		Channel:    a.channel,
		Runs:       runs,
		Notifier:   notifier,
		Recipients: cfg.Recipients,
		Delivery:   cfg.Delivery,
		Logger:     baseLogger.With("component", "pipeline"),
		Metrics:    a.metrics,
	})
	a.trigger = usecase.NewTrigger(a.pipeline)
	a.scheduler = usecase.NewScheduler(
		scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(), baseLogger.With("component", "scheduler")),
		a.trigger,
		baseLogger.With("component", "scheduler"),
	)
	return a, nil
}

func (a *Application) buildRegistry() *scanner.Registry {
	cfg := a.cfg
	tags := policy.NewKeywords(cfg.Policy.TagVocabulary)
	registry := scanner.NewRegistry()

	discussionHTTP := httpclient.New(nil, httpclient.Options{
		UserAgent:         cfg.UserAgentFor(cfg.Sources.Discussion.UserAgent),
		RequestsPerSecond: cfg.Sources.Discussion.RequestsPerSecond,
		Timeout:           cfg.Sources.RequestTimeout,
	})
	registry.Register(reddit.NewFetcher(reddit.Deps{
		Config:       cfg.Sources.Discussion,
		Significance: policy.NewKeywords(cfg.Policy.SignificanceKeywords),
		Tags:         tags,
		HTTP:         discussionHTTP,
		Logger:       a.logger.With("component", "fetcher.discussion"),
		Metrics:      a.metrics,
	}))

	papersHTTP := httpclient.New(nil, httpclient.Options{
		UserAgent:         cfg.UserAgentFor(""),
		RequestsPerSecond: cfg.Sources.Papers.RequestsPerSecond,
		Timeout:           cfg.Sources.RequestTimeout,
	})
	registry.Register(arxiv.NewFetcher(arxiv.Deps{
		Config:  cfg.Sources.Papers,
		Tags:    tags,
		HTTP:    papersHTTP,
		Logger:  a.logger.With("component", "fetcher.paper"),
		Metrics: a.metrics,
	}))

	newsHTTP := httpclient.New(nil, httpclient.Options{
		UserAgent: cfg.UserAgentFor(""),
		Timeout:   cfg.Sources.RequestTimeout,
	})
	registry.Register(feeds.NewFetcher(feeds.Deps{
		Config:  cfg.Sources.News,
		Tags:    tags,
		HTTP:    newsHTTP,
		Logger:  a.logger.With("component", "fetcher.news"),
		Metrics: a.metrics,
	}))

	return registry
}

// Run performs a single guarded digest cycle.
func (a *Application) Run(ctx context.Context) (domain.DigestPayload, domain.DeliveryReport, error) {
	return a.trigger.Fire(ctx)
}

// Preview aggregates and renders without delivering.
func (a *Application) Preview(ctx context.Context) (string, error) {
	_, body, err := a.pipeline.Preview(ctx)
	return body, err
}

// Subscribe registers or updates an account for digests at the given frequency.
func (a *Application) Subscribe(ctx context.Context, recipient domain.Recipient, frequency string, active bool) error {
	if frequency == "" {
		frequency = a.cfg.Recipients.Frequency
	}
	if err := a.directory.SaveSubscriber(ctx, recipient, frequency, active); err != nil {
		return err
	}
	a.logger.Info("subscriber saved", "frequency", frequency, "active", active)
	return nil
}

// Schedule runs cycles on the cron expression until ctx is cancelled.
func (a *Application) Schedule(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return a.stopScheduler()
}

// Serve runs the scheduler and the HTTP trigger API until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}
	handler := httpapi.NewHandler(a.trigger, a.runLister(), a.logger.With("component", "httpapi"))
	router := httpapi.NewRouter(handler, a.metrics)

	serveErr := httpapi.Serve(ctx, a.cfg.HTTP.Addr, router, a.logger.With("component", "httpapi"))
	if err := a.stopScheduler(); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}

func (a *Application) runLister() httpapi.RunLister {
	if a.runs == nil {
		return nil
	}
	return a.runs
}

func (a *Application) stopScheduler() error {
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}

// Strategies reports which access paths and channels were selected.
func (a *Application) Strategies() map[string]string {
	out := map[string]string{"email": "none"}
	if a.channel != nil {
		out["email"] = a.channel.Name()
	}
	for _, f := range a.registry.All() {
		if s, ok := f.(interface{ Strategy() string }); ok {
			out[string(f.Source())] = s.Strategy()
		}
	}
	return out
}

// Close releases the database handle.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
