package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"AckeeVeille/internal/config"
	"AckeeVeille/internal/domain"
	"AckeeVeille/internal/infrastructure/httpx"
	"AckeeVeille/internal/logging"
	"AckeeVeille/internal/ports"
)

const (
	// AdapterName identifies the funding adapter in the registry.
	AdapterName = "funding"
	// SourceName labels every funding and acquisition item.
	SourceName = "Crunchbase"

	profileBaseURL = "https://www.crunchbase.com"
	dayLayout      = "2006-01-02"
	defaultLimit   = 50

	notAvailable = "N/A"
	unknown      = "Unknown"
	undisclosed  = "Undisclosed"
)

// Adapter queries a Crunchbase-style search API for funding rounds and acquisitions.
type Adapter struct {
	cfg    config.FundingConfig
	http   *httpx.Client
	logger *slog.Logger
	now    func() time.Time
}

var _ ports.SourceAdapter = (*Adapter)(nil)

// NewAdapter wires funding settings with an HTTP client.
func NewAdapter(cfg config.FundingConfig, client *httpx.Client, logger *slog.Logger) *Adapter {
	if client == nil {
		client = httpx.NewClient(nil, 15*time.Second)
	}
	if cfg.Limit <= 0 || cfg.Limit > defaultLimit {
		cfg.Limit = defaultLimit
	}
	return &Adapter{
		cfg:    cfg,
		http:   client,
		logger: logging.OrDiscard(logger),
		now:    time.Now,
	}
}

// Name identifies the strategy inside the registry.
func (a *Adapter) Name() string {
	return AdapterName
}

// Collect issues the funding-round and acquisition searches independently.
func (a *Adapter) Collect(ctx context.Context, window domain.RunWindow) ([]domain.RawItem, error) {
	if strings.TrimSpace(a.cfg.APIKey) == "" {
		a.logger.Warn("funding api key not configured, skipping funding collection")
		return nil, fmt.Errorf("%w: funding api key", domain.ErrMissingCredential)
	}

	var (
		items    []domain.RawItem
		failures []error
	)

	rounds, err := a.fundingRounds(ctx, window)
	if err != nil {
		a.logger.Warn("funding rounds unavailable", "error", err)
		failures = append(failures, fmt.Errorf("funding rounds: %w", err))
	}
	items = append(items, rounds...)

	acquisitions, err := a.acquisitions(ctx, window)
	if err != nil {
		a.logger.Warn("acquisitions unavailable", "error", err)
		failures = append(failures, fmt.Errorf("acquisitions: %w", err))
	}
	items = append(items, acquisitions...)

	a.logger.Info("funding collection done", "items", len(items), "failures", len(failures))
	if len(failures) > 0 {
		return items, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, errors.Join(failures...))
	}
	return items, nil
}

type predicate struct {
	Type       string   `json:"type"`
	FieldID    string   `json:"field_id"`
	OperatorID string   `json:"operator_id"`
	Values     []string `json:"values"`
}

type searchRequest struct {
	FieldIDs []string    `json:"field_ids"`
	Query    []predicate `json:"query"`
	Limit    int         `json:"limit"`
}

type identifier struct {
	Value     string `json:"value"`
	Permalink string `json:"permalink"`
}

type money struct {
	ValueUSD *float64 `json:"value_usd"`
}

type entity struct {
	UUID       string `json:"uuid"`
	Properties struct {
		AnnouncedOn        string      `json:"announced_on"`
		FundedOrganization *identifier `json:"funded_organization_identifier"`
		MoneyRaised        *money      `json:"money_raised"`
		InvestmentType     string      `json:"investment_type"`
		Acquirer           *identifier `json:"acquirer_identifier"`
		Acquiree           *identifier `json:"acquiree_identifier"`
		Price              *money      `json:"price"`
	} `json:"properties"`
}

type searchResponse struct {
	Entities []entity `json:"entities"`
}

func (a *Adapter) fundingRounds(ctx context.Context, window domain.RunWindow) ([]domain.RawItem, error) {
	req := searchRequest{
		FieldIDs: []string{"announced_on", "funded_organization_identifier", "money_raised", "investment_type", "investor_identifiers"},
		Query:    a.query(window, "funded_organization_categories"),
		Limit:    a.cfg.Limit,
	}

	entities, err := a.search(ctx, "/searches/funding_rounds", req)
	if err != nil {
		return nil, err
	}

	collectedAt := a.now().UTC()
	items := make([]domain.RawItem, 0, len(entities))
	for _, e := range entities {
		org := unknown
		link := ""
		if id := e.Properties.FundedOrganization; id != nil {
			if id.Value != "" {
				org = id.Value
			}
			if id.Permalink != "" {
				link = profileBaseURL + "/organization/" + id.Permalink
			}
		}

		investment := e.Properties.InvestmentType
		if investment == "" {
			investment = notAvailable
		}

		items = append(items, domain.NewRawItem(domain.RawItem{
			Title:       fmt.Sprintf("Funding: %s raises %s", org, formatUSD(e.Properties.MoneyRaised, notAvailable)),
			URL:         link,
			PublishedAt: announcedOn(e.Properties.AnnouncedOn),
			Summary:     "Investment type: " + investment,
			SourceName:  SourceName,
			Tags:        []string{"funding"},
			CollectedAt: collectedAt,
		}))
	}
	return items, nil
}

func (a *Adapter) acquisitions(ctx context.Context, window domain.RunWindow) ([]domain.RawItem, error) {
	req := searchRequest{
		FieldIDs: []string{"announced_on", "acquirer_identifier", "acquiree_identifier", "price"},
		Query:    a.query(window, "acquiree_categories"),
		Limit:    a.cfg.Limit,
	}

	entities, err := a.search(ctx, "/searches/acquisitions", req)
	if err != nil {
		return nil, err
	}

	collectedAt := a.now().UTC()
	items := make([]domain.RawItem, 0, len(entities))
	for _, e := range entities {
		link := ""
		if e.UUID != "" {
			link = profileBaseURL + "/acquisition/" + e.UUID
		}

		items = append(items, domain.NewRawItem(domain.RawItem{
			Title:       fmt.Sprintf("Acquisition: %s acquires %s", identifierName(e.Properties.Acquirer), identifierName(e.Properties.Acquiree)),
			URL:         link,
			PublishedAt: announcedOn(e.Properties.AnnouncedOn),
			Summary:     "Price: " + formatUSD(e.Properties.Price, undisclosed),
			SourceName:  SourceName,
			Tags:        []string{"acquisition", "M&A"},
			CollectedAt: collectedAt,
		}))
	}
	return items, nil
}

func (a *Adapter) query(window domain.RunWindow, categoryField string) []predicate {
	preds := []predicate{{
		Type:       "predicate",
		FieldID:    "announced_on",
		OperatorID: "between",
		Values:     []string{window.Start.Format(dayLayout), window.End.Format(dayLayout)},
	}}
	if len(a.cfg.Categories) > 0 {
		preds = append(preds, predicate{
			Type:       "predicate",
			FieldID:    categoryField,
			OperatorID: "includes",
			Values:     a.cfg.Categories,
		})
	}
	return preds
}

func (a *Adapter) search(ctx context.Context, path string, req searchRequest) ([]entity, error) {
	header := http.Header{}
	header.Set("X-cb-user-key", a.cfg.APIKey)

	var resp searchResponse
	if err := a.http.PostJSON(ctx, strings.TrimSuffix(a.cfg.Endpoint, "/")+path, header, req, &resp); err != nil {
		return nil, err
	}
	return resp.Entities, nil
}

func identifierName(id *identifier) string {
	if id == nil || id.Value == "" {
		return unknown
	}
	return id.Value
}

func formatUSD(m *money, fallback string) string {
	if m == nil || m.ValueUSD == nil {
		return fallback
	}
	return "$" + humanize.Comma(int64(*m.ValueUSD))
}

// announcedOn parses a YYYY-MM-DD date; an absent or malformed date leaves the item undated.
func announcedOn(value string) *time.Time {
	parsed, err := time.Parse(dayLayout, strings.TrimSpace(value))
	if err != nil {
		return nil
	}
	return &parsed
}
