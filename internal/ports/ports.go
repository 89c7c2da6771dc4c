package ports

import (
	"context"
	"time"

	"AckeeVeille/internal/domain"
)

// SourceAdapter collects raw items from one external provider for a run window.
// Returned items are always usable, even when err reports failed upstream calls.
type SourceAdapter interface {
	Name() string
	Collect(ctx context.Context, window domain.RunWindow) ([]domain.RawItem, error)
}

// CorpusStore persists the merged raw corpus of a run and returns its location.
type CorpusStore interface {
	SaveCorpus(ctx context.Context, window domain.RunWindow, items []domain.RawItem) (string, error)
}

// Artifact is one rendered output waiting to be written.
type Artifact struct {
	Name string
	Data []byte
}

// ArtifactStore writes a set of artifacts atomically: either every file exists afterwards or none does.
type ArtifactStore interface {
	Commit(ctx context.Context, artifacts []Artifact) ([]string, error)
}

// GenerationRequest is the single call made to the generative-text capability.
type GenerationRequest struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Prompt      string
}

// TextGenerator wraps the generative-text capability (Anthropic, etc.).
type TextGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// RunLedger keeps a durable trace of run states for audit.
type RunLedger interface {
	Start(ctx context.Context, run domain.Run) error
	Advance(ctx context.Context, runID string, state domain.RunState) error
	Finish(ctx context.Context, summary domain.RunSummary) error
}

// RunRecorder exports run outcomes to monitoring.
type RunRecorder interface {
	ObserveRun(summary domain.RunSummary)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
