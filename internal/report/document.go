package report

import (
	"fmt"
	"strings"

	"AckeeVeille/internal/domain"
)

// RenderDocument wraps the synthesis body with the report header and footer.
func RenderDocument(result domain.SynthesisResult) []byte {
	model := result.ModelIdentifier
	if model == "" {
		model = "N/A"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# 📅 ACKEE WEEKLY INTEL - Semaine %s\n\n", result.Period.WeekLabel())
	fmt.Fprintf(&sb, "**Période**: %s\n", result.Period.PeriodLabel())
	fmt.Fprintf(&sb, "**Généré le**: %s\n\n", result.GeneratedAt.Format("02/01/2006 à 15:04"))
	sb.WriteString("---\n\n")
	sb.WriteString(result.BodyText)
	sb.WriteString("\n\n---\n\n")
	sb.WriteString("*Rapport généré automatiquement par le système de veille Ackee*\n")
	fmt.Fprintf(&sb, "*Modèle: %s*\n", model)
	fmt.Fprintf(&sb, "*Items analysés: %d*\n", result.ItemCountEstimate)
	return []byte(sb.String())
}
