package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"AckeeVeille/internal/domain"
	"AckeeVeille/internal/infrastructure/storage"
	"AckeeVeille/internal/report"
)

const synthesisBody = `## 📋 DASHBOARD SEMAINE
| Items | 4 |

## 🚨 ALERTES CRITIQUES
Wave lance un corridor France → Togo
Source: https://example.com/wave

## QUICK WINS ⚡
- Publier un comparatif de frais

## RECOMMANDATIONS 💡
1. Prioriser le corridor Togo
`

type pipelineFixture struct {
	dir       string
	generator *fakeGenerator
	ledger    *recordingLedger
	recorder  *recordingRecorder
	pipeline  *Pipeline
}

func newPipelineFixture(t *testing.T, generator *fakeGenerator, adapters ...*fakeAdapter) *pipelineFixture {
	t.Helper()

	dir := t.TempDir()
	store := storage.NewFileStore(dir, nil)
	f := &pipelineFixture{
		dir:       dir,
		generator: generator,
		ledger:    &recordingLedger{},
		recorder:  &recordingRecorder{},
	}
	f.pipeline = NewPipeline(PipelineDeps{
		Collector:   NewCollector(registryOf(adapters...), store, nil),
		Synthesizer: NewSynthesizer(generator, SynthesisSettings{Model: "claude-test", MaxTokens: 8000, Temperature: 0.3}, nil),
		Assembler:   report.NewAssembler(store, []string{"ceo@ackee.com"}, "veille@ackee.com", nil),
		Ledger:      f.ledger,
		Recorder:    f.recorder,
		Clock:       func() time.Time { return referenceTime },
		NewRunID:    func() string { return "run-1" },
	})
	return f
}

func (f *pipelineFixture) exists(t *testing.T, name string) bool {
	t.Helper()

	_, err := os.Stat(filepath.Join(f.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("stat %s: %v", name, err)
	}
	return err == nil
}

func TestPipelineHappyPath(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t,
		&fakeGenerator{text: synthesisBody},
		&fakeAdapter{name: "feed", items: itemsFor("TechCabal", 2)},
		&fakeAdapter{name: "search", items: itemsFor("Web Search", 1)},
		&fakeAdapter{name: "funding", items: itemsFor("Crunchbase", 1)},
	)

	summary, err := f.pipeline.Run(context.Background(), referenceTime)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	wantTransitions := []domain.RunState{
		domain.StateCollecting,
		domain.StateBuildingContext,
		domain.StateSynthesizing,
		domain.StateAssembling,
		domain.StateDone,
	}
	if !slices.Equal(summary.Transitions, wantTransitions) {
		t.Fatalf("transitions = %v, want %v", summary.Transitions, wantTransitions)
	}
	if summary.Run.State != domain.StateDone || summary.Err != nil {
		t.Fatalf("unexpected final state %s (%v)", summary.Run.State, summary.Err)
	}
	if summary.TotalItems != 4 || summary.Model != "claude-test" || summary.Run.ID != "run-1" {
		t.Fatalf("unexpected summary %+v", summary)
	}

	for _, name := range []string{"raw_data_s02_2026.json", "ackee_veille_s02_2026.md", "ackee_veille_s02_email.eml"} {
		if !f.exists(t, name) {
			t.Fatalf("expected %s to be written", name)
		}
	}
	if summary.Artifacts == nil || summary.Artifacts.DocumentPath != filepath.Join(f.dir, "ackee_veille_s02_2026.md") {
		t.Fatalf("unexpected artifacts %+v", summary.Artifacts)
	}

	raw, err := os.ReadFile(summary.CorpusPath)
	if err != nil {
		t.Fatalf("read corpus: %v", err)
	}
	var corpus []domain.RawItem
	if err := json.Unmarshal(raw, &corpus); err != nil {
		t.Fatalf("decode corpus: %v", err)
	}
	if len(corpus) != 4 || corpus[0].SourceName != "TechCabal" || corpus[3].SourceName != "Crunchbase" {
		t.Fatalf("corpus must keep registration order, got %+v", corpus)
	}

	if f.generator.calls() != 1 {
		t.Fatalf("expected one generative call, got %d", f.generator.calls())
	}
	if len(f.ledger.started) != 1 || len(f.ledger.finished) != 1 {
		t.Fatalf("ledger must see one start and one finish")
	}
	if !slices.Equal(f.ledger.advanced, wantTransitions[1:4]) {
		t.Fatalf("ledger advances = %v", f.ledger.advanced)
	}
	if len(f.recorder.summaries) != 1 || f.recorder.summaries[0].Run.State != domain.StateDone {
		t.Fatalf("recorder must observe the finished run")
	}
}

func TestPipelineSynthesisFailureStopsBeforeAssembly(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t,
		&fakeGenerator{err: errors.New("status 500")},
		&fakeAdapter{name: "feed", items: itemsFor("TechCabal", 2)},
	)

	summary, err := f.pipeline.Run(context.Background(), referenceTime)

	var stageErr *domain.StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != domain.StateSynthesizing {
		t.Fatalf("expected a SYNTHESIZING stage error, got %v", err)
	}
	if !errors.Is(err, domain.ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis, got %v", err)
	}

	wantTransitions := []domain.RunState{
		domain.StateCollecting,
		domain.StateBuildingContext,
		domain.StateSynthesizing,
		domain.StateFailed,
	}
	if !slices.Equal(summary.Transitions, wantTransitions) {
		t.Fatalf("transitions = %v, want %v", summary.Transitions, wantTransitions)
	}

	if !f.exists(t, "raw_data_s02_2026.json") {
		t.Fatalf("corpus must survive a failed synthesis")
	}
	for _, name := range []string{"ackee_veille_s02_2026.md", "ackee_veille_s02_email.eml"} {
		if f.exists(t, name) {
			t.Fatalf("%s must not be written when synthesis fails", name)
		}
	}
	if summary.Artifacts != nil {
		t.Fatalf("failed run must not report artifacts")
	}
	if len(f.recorder.summaries) != 1 || f.recorder.summaries[0].Run.State != domain.StateFailed {
		t.Fatalf("recorder must observe the failed run")
	}
}

func TestPipelineDisabledAdapterDoesNotFailRun(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t,
		&fakeGenerator{text: synthesisBody},
		&fakeAdapter{name: "feed", items: itemsFor("TechCabal", 2)},
		&fakeAdapter{name: "search", items: itemsFor("Web Search", 3)},
		&fakeAdapter{name: "funding", err: fmt.Errorf("%w: CRUNCHBASE_API_KEY is not set", domain.ErrMissingCredential)},
	)

	summary, err := f.pipeline.Run(context.Background(), referenceTime)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Run.State != domain.StateDone || summary.TotalItems != 5 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	funding := summary.Adapters[2]
	if funding.Adapter != "funding" || funding.Items != 0 || !errors.Is(funding.Err, domain.ErrMissingCredential) {
		t.Fatalf("unexpected funding report %+v", funding)
	}
}

func TestPipelineAssemblyFailure(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t, &fakeGenerator{text: synthesisBody}, &fakeAdapter{name: "feed", items: itemsFor("TechCabal", 1)})
	f.pipeline.assembler = failingAssembler{}

	summary, err := f.pipeline.Run(context.Background(), referenceTime)

	var stageErr *domain.StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != domain.StateAssembling || !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected an ASSEMBLING persistence error, got %v", err)
	}
	if summary.Transitions[len(summary.Transitions)-1] != domain.StateFailed {
		t.Fatalf("run must end FAILED, got %v", summary.Transitions)
	}
}

func TestPipelineStopsOnCancellationBetweenStages(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen := &fakeGenerator{text: synthesisBody}
	ledger := &recordingLedger{}
	p := NewPipeline(PipelineDeps{
		Collector:   NewCollector(registryOf(&fakeAdapter{name: "feed", items: itemsFor("TechCabal", 1)}), &memoryCorpusStore{onSave: cancel}, nil),
		Synthesizer: NewSynthesizer(gen, SynthesisSettings{Model: "m"}, nil),
		Assembler:   failingAssembler{},
		Ledger:      ledger,
		Clock:       func() time.Time { return referenceTime },
	})

	summary, err := p.Run(ctx, referenceTime)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if summary.Run.State != domain.StateFailed || gen.calls() != 0 {
		t.Fatalf("cancelled run must stop before synthesis, state %s, calls %d", summary.Run.State, gen.calls())
	}
	if summary.Run.ID == "" {
		t.Fatalf("default run id generator must be used")
	}
	if len(ledger.finishCtxs) != 1 || ledger.finishCtxs[0] != nil {
		t.Fatalf("ledger finish must run with a live context, got %v", ledger.finishCtxs)
	}
}

func TestPipelineLedgerErrorsAreNotFatal(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t, &fakeGenerator{text: synthesisBody}, &fakeAdapter{name: "feed", items: itemsFor("TechCabal", 1)})
	f.ledger.err = errors.New("database is locked")

	if _, err := f.pipeline.Run(context.Background(), referenceTime); err != nil {
		t.Fatalf("ledger errors must only be logged, got %v", err)
	}
}

func TestPipelineNotWired(t *testing.T) {
	t.Parallel()

	_, err := NewPipeline(PipelineDeps{}).Run(context.Background(), referenceTime)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
