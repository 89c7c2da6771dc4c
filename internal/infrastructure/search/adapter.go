package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"AckeeVeille/internal/config"
	"AckeeVeille/internal/domain"
	"AckeeVeille/internal/infrastructure/httpx"
	"AckeeVeille/internal/logging"
	"AckeeVeille/internal/ports"
)

const (
	// AdapterName identifies the search adapter in the registry.
	AdapterName = "search"
	// SourceName labels every item produced by web search.
	SourceName = "Web Search"
)

var competitorQueryTemplates = []string{
	"%s funding announcement",
	"%s new feature launch",
	"%s expansion africa",
}

// Adapter runs targeted web searches against a Serper-compatible endpoint.
type Adapter struct {
	cfg         config.SearchConfig
	competitors []string
	http        *httpx.Client
	logger      *slog.Logger
	now         func() time.Time
}

var _ ports.SourceAdapter = (*Adapter)(nil)

// NewAdapter wires search settings and the tracked competitor names.
func NewAdapter(cfg config.SearchConfig, competitors []string, client *httpx.Client, logger *slog.Logger) *Adapter {
	if client == nil {
		client = httpx.NewClient(nil, 15*time.Second)
	}
	return &Adapter{
		cfg:         cfg,
		competitors: competitors,
		http:        client,
		logger:      logging.OrDiscard(logger),
		now:         time.Now,
	}
}

// Name identifies the strategy inside the registry.
func (a *Adapter) Name() string {
	return AdapterName
}

// Queries lists every query a run issues, competitor queries first.
func (a *Adapter) Queries() []string {
	limit := a.cfg.MaxCompetitors
	if limit <= 0 || limit > len(a.competitors) {
		limit = len(a.competitors)
	}

	queries := make([]string, 0, limit*len(competitorQueryTemplates)+len(a.cfg.ThematicQueries))
	for _, name := range a.competitors[:limit] {
		for _, tmpl := range competitorQueryTemplates {
			queries = append(queries, fmt.Sprintf(tmpl, name))
		}
	}
	return append(queries, a.cfg.ThematicQueries...)
}

// Collect issues one request per query; a failed query is logged and skipped.
func (a *Adapter) Collect(ctx context.Context, window domain.RunWindow) ([]domain.RawItem, error) {
	if strings.TrimSpace(a.cfg.APIKey) == "" {
		a.logger.Warn("search api key not configured, skipping web search")
		return nil, fmt.Errorf("%w: search api key", domain.ErrMissingCredential)
	}

	now := a.now()
	dateToken := dateRestriction(now, window.Start)

	queries := a.Queries()

	var (
		items    []domain.RawItem
		failures []error
	)
	for _, query := range queries {
		results, err := a.search(ctx, query, dateToken, now)
		if err != nil {
			a.logger.Warn("search query failed", "query", query, "error", err)
			failures = append(failures, fmt.Errorf("query %q: %w", query, err))
			continue
		}
		items = append(items, results...)
	}

	a.logger.Info("search collection done", "queries", len(queries), "items", len(items), "failures", len(failures))
	if len(failures) > 0 {
		return items, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, errors.Join(failures...))
	}
	return items, nil
}

type searchRequest struct {
	Query    string `json:"q"`
	Num      int    `json:"num"`
	Country  string `json:"gl,omitempty"`
	Language string `json:"hl,omitempty"`
	Tbs      string `json:"tbs,omitempty"`
}

type searchResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

func (a *Adapter) search(ctx context.Context, query, dateToken string, now time.Time) ([]domain.RawItem, error) {
	header := http.Header{}
	header.Set("X-API-KEY", a.cfg.APIKey)

	payload := searchRequest{
		Query:    query,
		Num:      a.cfg.ResultsPerQuery,
		Country:  a.cfg.Country,
		Language: a.cfg.Language,
		Tbs:      dateToken,
	}

	var resp searchResponse
	if err := a.http.PostJSON(ctx, a.cfg.Endpoint, header, payload, &resp); err != nil {
		return nil, err
	}

	// Search results carry no reliable date, the collection instant stands in for it.
	published := now.UTC()
	items := make([]domain.RawItem, 0, len(resp.Organic))
	for _, result := range resp.Organic {
		items = append(items, domain.NewRawItem(domain.RawItem{
			Title:       result.Title,
			URL:         result.Link,
			PublishedAt: &published,
			Summary:     result.Snippet,
			SourceName:  SourceName,
			Tags:        []string{query},
			CollectedAt: published,
		}))
	}
	return items, nil
}

// dateRestriction converts the window start into a Google "tbs" token:
// past n days up to a month, past month beyond that.
func dateRestriction(now, start time.Time) string {
	days := int(now.Sub(start).Hours() / 24)
	if days < 1 {
		days = 1
	}
	if days > 30 {
		return "qdr:m"
	}
	return fmt.Sprintf("qdr:d%d", days)
}
