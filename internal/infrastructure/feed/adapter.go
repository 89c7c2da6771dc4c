package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"AckeeVeille/internal/config"
	"AckeeVeille/internal/domain"
	"AckeeVeille/internal/infrastructure/httpx"
	"AckeeVeille/internal/logging"
	"AckeeVeille/internal/ports"
)

// AdapterName identifies the feed adapter in the registry.
const AdapterName = "feed"

// Adapter reads configured RSS/Atom feeds and keeps entries published inside the run window.
type Adapter struct {
	sources []config.MediaSource
	http    *httpx.Client
	parser  *gofeed.Parser
	logger  *slog.Logger
	now     func() time.Time
}

var _ ports.SourceAdapter = (*Adapter)(nil)

// NewAdapter wires the configured media sources with an HTTP client.
func NewAdapter(sources []config.MediaSource, client *httpx.Client, logger *slog.Logger) *Adapter {
	if client == nil {
		client = httpx.NewClient(nil, 15*time.Second)
	}
	return &Adapter{
		sources: sources,
		http:    client,
		parser:  gofeed.NewParser(),
		logger:  logging.OrDiscard(logger),
		now:     time.Now,
	}
}

// Name identifies the strategy inside the registry.
func (a *Adapter) Name() string {
	return AdapterName
}

// Collect walks every feed; one failing feed is logged and skipped.
func (a *Adapter) Collect(ctx context.Context, window domain.RunWindow) ([]domain.RawItem, error) {
	var (
		items    []domain.RawItem
		failures []error
	)

	for _, src := range a.sources {
		if strings.TrimSpace(src.RSS) == "" {
			continue
		}

		entries, err := a.fetch(ctx, src, window)
		if err != nil {
			a.logger.Warn("feed unavailable", "source", src.Name, "url", src.RSS, "error", err)
			failures = append(failures, fmt.Errorf("%s: %w", src.Name, err))
			continue
		}

		a.logger.Debug("feed collected", "source", src.Name, "count", len(entries))
		items = append(items, entries...)
	}

	a.logger.Info("feed collection done", "feeds", len(a.sources), "items", len(items), "failures", len(failures))
	if len(failures) > 0 {
		return items, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, errors.Join(failures...))
	}
	return items, nil
}

func (a *Adapter) fetch(ctx context.Context, src config.MediaSource, window domain.RunWindow) ([]domain.RawItem, error) {
	raw, err := a.http.Get(ctx, src.RSS, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	parsed, err := a.parser.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	collectedAt := a.now().UTC()
	keywords := normalizeKeywords(src.Keywords)

	var items []domain.RawItem
	for _, entry := range parsed.Items {
		if entry == nil {
			continue
		}

		published := entryTime(entry)
		if published == nil || !window.Contains(*published) {
			continue
		}

		title := plainText(entry.Title)
		summary := plainText(entry.Description)
		if summary == "" {
			summary = plainText(entry.Content)
		}

		if !matchesKeywords(title+" "+summary, keywords) {
			continue
		}

		items = append(items, domain.NewRawItem(domain.RawItem{
			Title:       title,
			URL:         entry.Link,
			PublishedAt: published,
			Summary:     summary,
			SourceName:  src.Name,
			Tags:        src.Keywords,
			CollectedAt: collectedAt,
		}))
	}

	return items, nil
}

// entryTime prefers the publish date and falls back to the update date.
func entryTime(entry *gofeed.Item) *time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed
	}
	return entry.UpdatedParsed
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// matchesKeywords is a case-insensitive substring test; no keywords accepts everything.
func matchesKeywords(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	text = strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// plainText drops markup from feed HTML fragments and collapses whitespace.
func plainText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
