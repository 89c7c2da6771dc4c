package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxSummaryRunes bounds RawItem.Summary at ingestion time.
const MaxSummaryRunes = 500

// RawItem is one collected fact. Adapters create it, nothing downstream mutates it.
type RawItem struct {
	Title       string     `json:"title"`
	URL         string     `json:"url,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Summary     string     `json:"summary"`
	SourceName  string     `json:"source_name"`
	Tags        []string   `json:"tags"`
	CollectedAt time.Time  `json:"collected_at"`
}

// NewRawItem trims text fields, caps the summary and drops duplicate or blank tags.
func NewRawItem(item RawItem) RawItem {
	item.Title = strings.TrimSpace(item.Title)
	item.URL = strings.TrimSpace(item.URL)
	item.SourceName = strings.TrimSpace(item.SourceName)
	item.Summary = TruncateRunes(strings.TrimSpace(item.Summary), MaxSummaryRunes)

	tags := make([]string, 0, len(item.Tags))
	seen := make(map[string]struct{}, len(item.Tags))
	for _, tag := range item.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	item.Tags = tags

	if item.PublishedAt != nil {
		published := item.PublishedAt.UTC()
		item.PublishedAt = &published
	}
	return item
}

// TruncateRunes returns at most limit runes of s.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
