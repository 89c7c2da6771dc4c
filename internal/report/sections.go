package report

import (
	"strings"

	"AckeeVeille/internal/domain"
)

// Section markers looked up in the synthesis body.
const (
	AlertMarker          = "🚨"
	QuickWinMarker       = "⚡"
	RecommendationMarker = "💡"

	alertTitle = "ALERTES CRITIQUES"

	// MaxSectionLines caps an extracted section, marker line included.
	MaxSectionLines = 15
	// MaxHeadlineRunes caps the notification headline.
	MaxHeadlineRunes = 80
	// DefaultHeadline is used when no alert line can be found.
	DefaultHeadline = "Points clés de la semaine"

	headlineLookahead = 4
)

// axisMarkers end a section. Variation selectors are left out so both glyph forms match.
var axisMarkers = []string{"🎯", "⚖", "⚙", "📊", "🤝", "🆕"}

type scanState int

const (
	seekingMarker scanState = iota
	inSection
)

// ExtractSection returns the lines from the first line containing marker up to, not including,
// the next heading or axis-marker line, capped at MaxSectionLines. Trailing blank lines are
// dropped. Extracting again from the result returns it unchanged.
func ExtractSection(text, marker string) string {
	if marker == "" {
		return ""
	}

	state := seekingMarker
	var section []string

scan:
	for _, line := range splitLines(text) {
		switch state {
		case seekingMarker:
			if strings.Contains(line, marker) {
				state = inSection
				section = append(section, line)
			}
		case inSection:
			if endsSection(line) {
				break scan
			}
			section = append(section, line)
		}
		if len(section) == MaxSectionLines {
			break
		}
	}

	for len(section) > 0 && strings.TrimSpace(section[len(section)-1]) == "" {
		section = section[:len(section)-1]
	}
	return strings.Join(section, "\n")
}

// Headline picks the first non-empty, non-heading line among the few following an
// alert line, trying each alert line in order, or DefaultHeadline.
func Headline(text string) string {
	lines := splitLines(text)
	for i, line := range lines {
		if !strings.Contains(line, AlertMarker) && !strings.Contains(line, alertTitle) {
			continue
		}
		for j := i + 1; j < len(lines) && j <= i+headlineLookahead; j++ {
			candidate := strings.TrimSpace(lines[j])
			if candidate == "" || strings.HasPrefix(candidate, "#") {
				continue
			}
			return domain.TruncateRunes(candidate, MaxHeadlineRunes)
		}
	}
	return DefaultHeadline
}

func endsSection(line string) bool {
	if strings.HasPrefix(strings.TrimSpace(line), "##") {
		return true
	}
	for _, m := range axisMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
