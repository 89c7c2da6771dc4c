package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"AckeeVeille/internal/domain"
)

const (
	// MaxItemsPerSource caps how many items of one source reach the prompt.
	MaxItemsPerSource = 20
	// MaxContextSummaryRunes caps each rendered summary.
	MaxContextSummaryRunes = 200

	ellipsis        = "..."
	missingValue    = "N/A"
	untitled        = "No title"
	unnamedSource   = "Other"
	contextDateForm = "2006-01-02 15:04"
)

// ContextBuilder renders the collected corpus into the bounded text handed to synthesis.
type ContextBuilder struct{}

// NewContextBuilder returns a stateless builder.
func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{}
}

type sourceGroup struct {
	name  string
	items []domain.RawItem
}

// Build groups items by source in first-occurrence order, keeps the first MaxItemsPerSource
// of each group and truncates summaries. Same corpus and window always give the same text.
func (b *ContextBuilder) Build(items []domain.RawItem, window domain.RunWindow) string {
	var groups []*sourceGroup
	index := map[string]*sourceGroup{}
	for _, item := range items {
		name := item.SourceName
		if name == "" {
			name = unnamedSource
		}
		g, ok := index[name]
		if !ok {
			g = &sourceGroup{name: name}
			index[name] = g
			groups = append(groups, g)
		}
		g.items = append(g.items, item)
	}

	var sb strings.Builder
	sb.WriteString("# DONNÉES COLLECTÉES POUR LA VEILLE ACKEE\n")
	fmt.Fprintf(&sb, "Période: %s\n", window.PeriodLabel())
	fmt.Fprintf(&sb, "Total items: %d\n\n", len(items))
	sb.WriteString("## DONNÉES PAR SOURCE\n\n")

	for _, g := range groups {
		fmt.Fprintf(&sb, "### %s (%d items)\n\n", g.name, len(g.items))

		kept := g.items
		if len(kept) > MaxItemsPerSource {
			kept = kept[:MaxItemsPerSource]
		}
		for _, item := range kept {
			writeItem(&sb, item)
		}
	}

	return sb.String()
}

func writeItem(sb *strings.Builder, item domain.RawItem) {
	title := item.Title
	if title == "" {
		title = untitled
	}
	date := missingValue
	if item.PublishedAt != nil {
		date = item.PublishedAt.Format(contextDateForm)
	}
	url := item.URL
	if url == "" {
		url = missingValue
	}

	sb.WriteString("- **" + title + "**\n")
	sb.WriteString("  Date: " + date + "\n")
	sb.WriteString("  URL: " + url + "\n")
	sb.WriteString("  Summary: " + contextSummary(item.Summary) + "\n\n")
}

// contextSummary keeps the first MaxContextSummaryRunes runes and marks a cut with an ellipsis.
func contextSummary(summary string) string {
	if summary == "" {
		return missingValue
	}
	if utf8.RuneCountInString(summary) <= MaxContextSummaryRunes {
		return summary
	}
	return domain.TruncateRunes(summary, MaxContextSummaryRunes) + ellipsis
}

// LineCount is the diagnostic item estimate reported with a synthesis.
func LineCount(text string) int {
	return strings.Count(text, "\n") + 1
}
