package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"AckeeVeille/internal/domain"
	"AckeeVeille/internal/logging"
	"AckeeVeille/internal/ports"
	"AckeeVeille/internal/source"
)

// CollectionResult is the merged output of every adapter for one run.
type CollectionResult struct {
	Items      []domain.RawItem
	Reports    []domain.AdapterReport
	CorpusPath string
}

// Collector runs every registered adapter and persists the merged corpus.
type Collector struct {
	registry *source.Registry
	store    ports.CorpusStore
	logger   *slog.Logger
}

// NewCollector wires the adapter registry with the corpus store.
func NewCollector(registry *source.Registry, store ports.CorpusStore, logger *slog.Logger) *Collector {
	if registry == nil {
		registry = source.NewRegistry()
	}
	return &Collector{registry: registry, store: store, logger: logging.OrDiscard(logger)}
}

// Collect invokes adapters concurrently and concatenates their items in registration order.
// Adapter failures are logged and absorbed; only a corpus persistence failure is returned.
func (c *Collector) Collect(ctx context.Context, window domain.RunWindow) (CollectionResult, error) {
	adapters := c.registry.Adapters()
	batches := make([][]domain.RawItem, len(adapters))
	reports := make([]domain.AdapterReport, len(adapters))

	var g errgroup.Group
	for i, adapter := range adapters {
		i, adapter := i, adapter
		g.Go(func() error {
			items, err := c.runAdapter(ctx, adapter, window)
			batches[i] = items
			reports[i] = domain.AdapterReport{Adapter: adapter.Name(), Items: len(items), Err: err}
			return nil
		})
	}
	_ = g.Wait()

	var result CollectionResult
	for i, report := range reports {
		switch {
		case errors.Is(report.Err, domain.ErrMissingCredential):
			c.logger.Warn("adapter disabled", "adapter", report.Adapter, "error", report.Err)
		case report.Err != nil:
			c.logger.Warn("adapter degraded", "adapter", report.Adapter, "items", report.Items, "error", report.Err)
		default:
			c.logger.Info("adapter collected", "adapter", report.Adapter, "items", report.Items)
		}
		result.Items = append(result.Items, batches[i]...)
	}
	result.Reports = reports

	c.logger.Info("collection done", "adapters", len(adapters), "items", len(result.Items))

	if c.store == nil {
		return result, fmt.Errorf("%w: corpus store is not configured", domain.ErrPersistence)
	}
	path, err := c.store.SaveCorpus(ctx, window, result.Items)
	if err != nil {
		if !errors.Is(err, domain.ErrPersistence) {
			err = fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		return result, err
	}
	result.CorpusPath = path

	return result, nil
}

// runAdapter turns a panic escaping the adapter into an ErrSourceUnavailable failure.
func (c *Collector) runAdapter(ctx context.Context, adapter ports.SourceAdapter, window domain.RunWindow) (items []domain.RawItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			items = nil
			err = fmt.Errorf("%w: adapter %s panicked: %v", domain.ErrSourceUnavailable, adapter.Name(), r)
		}
	}()
	return adapter.Collect(ctx, window)
}
