package report

import (
	"strings"
	"testing"
)

const sampleBody = `## 📋 DASHBOARD SEMAINE

| Métrique | Valeur |
|---|---|
| Items | 42 |

## 🚨 ALERTES CRITIQUES

**[P0] Wave obtient une licence d'établissement de paiement en France**
Impact direct sur le corridor France → Sénégal.
Source: https://example.com/wave

## AXE 1: CONCURRENCE & ACTEURS 🎯
- [P1] Wise baisse ses frais vers le Togo

## RECOMMANDATIONS 💡
1. Accélérer le dossier d'agrément
2. Contacter deux partenaires BaaS
## QUICK WINS ⚡
- Publier une comparaison de frais (J+3)
`

func TestExtractSectionStopsAtHeadingOrAxisMarker(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		marker string
		want   string
	}{
		{
			name:   "alerts stop at the next heading",
			marker: AlertMarker,
			want: "## 🚨 ALERTES CRITIQUES\n\n**[P0] Wave obtient une licence d'établissement de paiement en France**\n" +
				"Impact direct sur le corridor France → Sénégal.\nSource: https://example.com/wave",
		},
		{
			name:   "recommendations stop at quick wins heading",
			marker: RecommendationMarker,
			want:   "## RECOMMANDATIONS 💡\n1. Accélérer le dossier d'agrément\n2. Contacter deux partenaires BaaS",
		},
		{
			name:   "quick wins run to the end",
			marker: QuickWinMarker,
			want:   "## QUICK WINS ⚡\n- Publier une comparaison de frais (J+3)",
		},
		{
			name:   "absent marker",
			marker: "📡",
			want:   "",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := ExtractSection(sampleBody, tc.marker); got != tc.want {
				t.Fatalf("ExtractSection(%s) =\n%q\nwant\n%q", tc.marker, got, tc.want)
			}
		})
	}
}

func TestExtractSectionStopsAtAxisMarkerWithoutHeading(t *testing.T) {
	t.Parallel()

	body := "🚨 Alerte\nligne 1\nVoir aussi ⚖️ régulation\nligne 2"
	if got := ExtractSection(body, AlertMarker); got != "🚨 Alerte\nligne 1" {
		t.Fatalf("unexpected section %q", got)
	}

	body = "🚨 Alerte\nligne 1\n⚖ sans sélecteur\nligne 2"
	if got := ExtractSection(body, AlertMarker); got != "🚨 Alerte\nligne 1" {
		t.Fatalf("bare axis glyph must end the section, got %q", got)
	}
}

func TestExtractSectionCapsLines(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("## ⚡ QUICK WINS\n")
	for i := 0; i < 30; i++ {
		sb.WriteString("- action\n")
	}

	got := ExtractSection(sb.String(), QuickWinMarker)
	if lines := strings.Split(got, "\n"); len(lines) != MaxSectionLines {
		t.Fatalf("expected %d lines, got %d", MaxSectionLines, len(lines))
	}
}

func TestExtractSectionIsIdempotent(t *testing.T) {
	t.Parallel()

	var long strings.Builder
	long.WriteString("💡 Recommandations\n")
	for i := 0; i < 20; i++ {
		long.WriteString("- reco\n\n")
	}

	inputs := []string{sampleBody, long.String(), "🚨\n\n\n", "texte libre 🚨 au milieu\nsuite\r\nfin\r\n"}
	for _, input := range inputs {
		for _, marker := range []string{AlertMarker, QuickWinMarker, RecommendationMarker} {
			once := ExtractSection(input, marker)
			twice := ExtractSection(once, marker)
			if once != twice {
				t.Fatalf("extraction not idempotent for %s:\nfirst  %q\nsecond %q", marker, once, twice)
			}
		}
	}
}

func TestHeadline(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("é", 100)
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "first line after alert heading",
			body: sampleBody,
			want: "**[P0] Wave obtient une licence d'établissement de paiement en France**",
		},
		{
			name: "truncated to 80 runes",
			body: "## 🚨 ALERTES\n" + long,
			want: strings.Repeat("é", 80),
		},
		{
			name: "headings are skipped",
			body: "🚨\n### Sous-titre\n\nAlerte réelle",
			want: "Alerte réelle",
		},
		{
			name: "no alert marker",
			body: "## AXE 1 🎯\nrien",
			want: DefaultHeadline,
		},
		{
			name: "nothing usable within lookahead",
			body: "🚨\n\n\n\n\ntrop loin",
			want: DefaultHeadline,
		},
		{
			name: "later alert line when the first has nothing after it",
			body: "| 🚨 Alertes | 1 |\n\n\n\n\n## ALERTES CRITIQUES 🚨\nWave obtient une licence",
			want: "Wave obtient une licence",
		},
		{
			name: "title without glyph",
			body: "## ALERTES CRITIQUES\nBCEAO publie un nouveau cadre",
			want: "BCEAO publie un nouveau cadre",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := Headline(tc.body); got != tc.want {
				t.Fatalf("Headline() = %q, want %q", got, tc.want)
			}
		})
	}
}
