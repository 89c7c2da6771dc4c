package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"AckeeVeille/internal/domain"
	"AckeeVeille/internal/ports"
)

var referenceTime = time.Date(2026, time.January, 12, 8, 0, 0, 0, time.UTC)

type fakeAdapter struct {
	name   string
	items  []domain.RawItem
	err    error
	delay  time.Duration
	panics bool
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) Collect(ctx context.Context, _ domain.RunWindow) ([]domain.RawItem, error) {
	if a.panics {
		panic("boom")
	}
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return a.items, a.err
}

func itemsFor(source string, n int) []domain.RawItem {
	items := make([]domain.RawItem, 0, n)
	for i := 0; i < n; i++ {
		published := referenceTime.Add(-time.Duration(i+1) * time.Hour)
		items = append(items, domain.RawItem{
			Title:       source + " item " + string(rune('A'+i%26)),
			URL:         "https://example.com/" + source,
			PublishedAt: &published,
			Summary:     "summary",
			SourceName:  source,
			CollectedAt: referenceTime,
		})
	}
	return items
}

type memoryCorpusStore struct {
	mu     sync.Mutex
	saved  []domain.RawItem
	err    error
	onSave func()
}

func (s *memoryCorpusStore) SaveCorpus(_ context.Context, window domain.RunWindow, items []domain.RawItem) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.onSave != nil {
		s.onSave()
	}
	if s.err != nil {
		return "", s.err
	}
	s.saved = append([]domain.RawItem(nil), items...)
	return "/memory/" + window.CorpusFilename(), nil
}

type fakeGenerator struct {
	mu       sync.Mutex
	text     string
	err      error
	requests []ports.GenerationRequest
}

func (g *fakeGenerator) Generate(_ context.Context, req ports.GenerationRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.requests = append(g.requests, req)
	return g.text, g.err
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

type recordingLedger struct {
	mu         sync.Mutex
	started    []domain.Run
	advanced   []domain.RunState
	finished   []domain.RunSummary
	finishCtxs []error
	err        error
}

var _ ports.RunLedger = (*recordingLedger)(nil)

func (l *recordingLedger) Start(_ context.Context, run domain.Run) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = append(l.started, run)
	return l.err
}

func (l *recordingLedger) Advance(_ context.Context, _ string, state domain.RunState) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.advanced = append(l.advanced, state)
	return l.err
}

func (l *recordingLedger) Finish(ctx context.Context, summary domain.RunSummary) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finished = append(l.finished, summary)
	l.finishCtxs = append(l.finishCtxs, ctx.Err())
	return l.err
}

type recordingRecorder struct {
	mu        sync.Mutex
	summaries []domain.RunSummary
}

func (r *recordingRecorder) ObserveRun(summary domain.RunSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, summary)
}

type failingAssembler struct{}

func (failingAssembler) Assemble(context.Context, domain.SynthesisResult) (domain.ReportArtifacts, error) {
	return domain.ReportArtifacts{}, errors.Join(domain.ErrPersistence, errors.New("disk full"))
}
