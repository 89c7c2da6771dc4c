package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"AckeeVeille/internal/domain"
	"AckeeVeille/internal/logging"
	"AckeeVeille/internal/ports"
)

// Assembler renders a synthesis into the run's document and notification message.
type Assembler interface {
	Assemble(ctx context.Context, result domain.SynthesisResult) (domain.ReportArtifacts, error)
}

// PipelineDeps wires every stage and observer into the orchestration pipeline.
type PipelineDeps struct {
	Collector   *Collector
	Builder     *ContextBuilder
	Synthesizer *Synthesizer
	Assembler   Assembler
	Ledger      ports.RunLedger
	Recorder    ports.RunRecorder
	Logger      *slog.Logger
	Clock       func() time.Time
	NewRunID    func() string
}

// Pipeline drives one run through COLLECTING, BUILDING_CONTEXT, SYNTHESIZING, ASSEMBLING and DONE.
// Any fatal error moves the run to FAILED and skips the remaining stages.
type Pipeline struct {
	collector   *Collector
	builder     *ContextBuilder
	synthesizer *Synthesizer
	assembler   Assembler
	ledger      ports.RunLedger
	recorder    ports.RunRecorder
	logger      *slog.Logger
	clock       func() time.Time
	newRunID    func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		collector:   deps.Collector,
		builder:     deps.Builder,
		synthesizer: deps.Synthesizer,
		assembler:   deps.Assembler,
		ledger:      deps.Ledger,
		recorder:    deps.Recorder,
		logger:      logging.OrDiscard(deps.Logger),
		clock:       deps.Clock,
		newRunID:    deps.NewRunID,
	}
	if p.builder == nil {
		p.builder = NewContextBuilder()
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	if p.newRunID == nil {
		p.newRunID = uuid.NewString
	}
	return p
}

// Run executes one pipeline pass for the window ending at reference. The summary is
// always returned; err is a *domain.StageError when the run ended FAILED.
func (p *Pipeline) Run(ctx context.Context, reference time.Time) (domain.RunSummary, error) {
	window := domain.NewRunWindow(reference)
	run := domain.Run{
		ID:        p.newRunID(),
		Window:    window,
		State:     domain.StateCollecting,
		StartedAt: p.clock(),
	}
	summary := domain.RunSummary{Run: run, Transitions: []domain.RunState{domain.StateCollecting}}
	if p.synthesizer != nil {
		summary.Model = p.synthesizer.Model()
	}

	logger := p.logger.With("run_id", run.ID, "week", window.WeekLabel())
	logger.Info("run started", "period", window.PeriodLabel())
	if p.ledger != nil {
		if err := p.ledger.Start(ctx, run); err != nil {
			logger.Warn("ledger start failed", "error", err)
		}
	}

	if p.collector == nil || p.synthesizer == nil || p.assembler == nil {
		return p.fail(ctx, logger, &summary, fmt.Errorf("%w: pipeline is not fully wired", domain.ErrConfiguration))
	}

	logger.Info("stage started", "stage", domain.StateCollecting)
	collection, err := p.collector.Collect(ctx, window)
	summary.Adapters = collection.Reports
	summary.TotalItems = len(collection.Items)
	summary.CorpusPath = collection.CorpusPath
	if err != nil {
		return p.fail(ctx, logger, &summary, err)
	}

	if err := p.advance(ctx, logger, &summary, domain.StateBuildingContext); err != nil {
		return p.fail(ctx, logger, &summary, err)
	}
	contextText := p.builder.Build(collection.Items, window)

	if err := p.advance(ctx, logger, &summary, domain.StateSynthesizing); err != nil {
		return p.fail(ctx, logger, &summary, err)
	}
	result, err := p.synthesizer.Synthesize(ctx, contextText, window)
	if err != nil {
		return p.fail(ctx, logger, &summary, err)
	}

	if err := p.advance(ctx, logger, &summary, domain.StateAssembling); err != nil {
		return p.fail(ctx, logger, &summary, err)
	}
	artifacts, err := p.assembler.Assemble(ctx, result)
	if err != nil {
		return p.fail(ctx, logger, &summary, err)
	}
	summary.Artifacts = &artifacts

	summary.Run.State = domain.StateDone
	summary.Transitions = append(summary.Transitions, domain.StateDone)
	p.finish(ctx, logger, &summary)
	return summary, nil
}

// advance moves the run to the next stage unless the context was cancelled in between.
func (p *Pipeline) advance(ctx context.Context, logger *slog.Logger, summary *domain.RunSummary, next domain.RunState) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}

	summary.Run.State = next
	summary.Transitions = append(summary.Transitions, next)
	logger.Info("stage started", "stage", next)

	if p.ledger != nil {
		if err := p.ledger.Advance(ctx, summary.Run.ID, next); err != nil {
			logger.Warn("ledger advance failed", "stage", next, "error", err)
		}
	}
	return nil
}

func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, summary *domain.RunSummary, err error) (domain.RunSummary, error) {
	stageErr := &domain.StageError{Stage: summary.Run.State, Err: err}

	summary.Run.State = domain.StateFailed
	summary.Transitions = append(summary.Transitions, domain.StateFailed)
	summary.Err = stageErr

	logger.Error("run failed", "stage", stageErr.Stage, "error", err)
	p.finish(ctx, logger, summary)
	return *summary, stageErr
}

func (p *Pipeline) finish(ctx context.Context, logger *slog.Logger, summary *domain.RunSummary) {
	summary.FinishedAt = p.clock()

	if p.ledger != nil {
		if err := p.ledger.Finish(context.WithoutCancel(ctx), *summary); err != nil {
			logger.Warn("ledger finish failed", "error", err)
		}
	}
	if p.recorder != nil {
		p.recorder.ObserveRun(*summary)
	}

	attrs := []any{
		"state", summary.Run.State,
		"items", summary.TotalItems,
		"model", summary.Model,
		"corpus", summary.CorpusPath,
		"duration", summary.Duration().Round(time.Millisecond),
	}
	if summary.Artifacts != nil {
		attrs = append(attrs, "document", summary.Artifacts.DocumentPath, "message", summary.Artifacts.MessagePath)
	}
	logger.Info("run finished", attrs...)
}
