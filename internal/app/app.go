package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"AckeeVeille/internal/config"
	"AckeeVeille/internal/domain"
	"AckeeVeille/internal/infrastructure/feed"
	"AckeeVeille/internal/infrastructure/funding"
	"AckeeVeille/internal/infrastructure/httpx"
	"AckeeVeille/internal/infrastructure/ledger"
	"AckeeVeille/internal/infrastructure/llm"
	"AckeeVeille/internal/infrastructure/metrics"
	"AckeeVeille/internal/infrastructure/scheduler"
	"AckeeVeille/internal/infrastructure/search"
	"AckeeVeille/internal/infrastructure/storage"
	"AckeeVeille/internal/logging"
	"AckeeVeille/internal/ports"
	"AckeeVeille/internal/report"
	"AckeeVeille/internal/source"
	"AckeeVeille/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	registry  *source.Registry
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	closers   []func() error
}

// New validates the configuration and builds every component of the pipeline.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	httpClient := httpx.NewClient(nil, cfg.HTTP.Timeout)

	a.registry = source.NewRegistry()
	a.registry.Register(feed.NewAdapter(cfg.Sources.Media, httpClient, baseLogger.With("component", "source.feed")))
	a.registry.Register(search.NewAdapter(cfg.Search, cfg.CompetitorNames(), httpClient, baseLogger.With("component", "source.search")))
	a.registry.Register(funding.NewAdapter(cfg.Funding, httpClient, baseLogger.With("component", "source.funding")))

	store := storage.NewFileStore(cfg.Output.ReportsDir, baseLogger.With("component", "storage"))

	loc := cfg.Scheduler.Location()
	synthesizer := usecase.NewSynthesizer(
		llm.NewAnthropicClient(cfg.LLM, nil),
		usecase.SynthesisSettings{
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		},
		baseLogger.With("component", "synthesizer"),
	)
	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Collector:   usecase.NewCollector(a.registry, store, baseLogger.With("component", "collector")),
		Builder:     usecase.NewContextBuilder(),
		Synthesizer: synthesizer,
		Assembler:   report.NewAssembler(store, cfg.Recipients, cfg.Email.From, baseLogger.With("component", "report")),
		Ledger:      a.openLedger(ctx),
		Recorder:    metrics.NewRecorder(cfg.Metrics.Textfile, baseLogger.With("component", "metrics")),
		Logger:      baseLogger.With("component", "pipeline"),
		Clock:       func() time.Time { return time.Now().In(loc) },
	})
	a.pipeline = pipeline

	weekday, err := cfg.Scheduler.ParsedWeekday()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	hour, minute, err := cfg.Scheduler.ParsedClock()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	driver := scheduler.NewWeeklyScheduler(weekday, hour, minute, loc, baseLogger.With("component", "scheduler"))
	a.scheduler = usecase.NewScheduler(driver, pipeline, baseLogger.With("component", "scheduler"))

	return a, nil
}

// openLedger falls back to the no-op ledger when recording is disabled or the database is unreachable.
func (a *Application) openLedger(ctx context.Context) ports.RunLedger {
	driver := a.cfg.Ledger.Driver
	if driver == "" || driver == "none" {
		return ledger.Nop{}
	}

	if driver == "sqlite" {
		if dir := filepath.Dir(a.cfg.Ledger.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				a.logger.Warn("ledger disabled", "driver", driver, "error", err)
				return ledger.Nop{}
			}
		}
	}

	l, err := ledger.Open(driver, a.cfg.Ledger.DSN)
	if err != nil {
		a.logger.Warn("ledger disabled", "driver", driver, "error", err)
		return ledger.Nop{}
	}
	if err := l.Migrate(ctx); err != nil {
		_ = l.Close()
		a.logger.Warn("ledger disabled", "driver", driver, "error", err)
		return ledger.Nop{}
	}

	a.closers = append(a.closers, l.Close)
	return l
}

// Sources lists the registered adapter names in collection order.
func (a *Application) Sources() []string {
	return a.registry.Names()
}

// RunOnce executes one pipeline pass for the window ending at reference.
// A zero reference means now, in the scheduler timezone.
func (a *Application) RunOnce(ctx context.Context, reference time.Time) (domain.RunSummary, error) {
	if reference.IsZero() {
		reference = time.Now().In(a.cfg.Scheduler.Location())
	}
	return a.pipeline.Run(ctx, reference)
}

// Schedule fires the pipeline every configured weekday slot until ctx is done.
func (a *Application) Schedule(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started",
		"weekday", a.cfg.Scheduler.Weekday,
		"time", a.cfg.Scheduler.Time,
		"timezone", a.cfg.Scheduler.Location().String(),
	)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := a.scheduler.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	a.logger.Info("scheduler stopped")
	return nil
}

// Close releases the ledger connection.
func (a *Application) Close() error {
	var errs []error
	for _, closeFn := range a.closers {
		errs = append(errs, closeFn())
	}
	a.closers = nil
	return errors.Join(errs...)
}
