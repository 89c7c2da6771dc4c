package usecase

import (
	"fmt"
	"strings"

	"AckeeVeille/internal/domain"
)

// analysisBrief is the fixed domain brief. Placeholders are filled by BuildPrompt.
const analysisBrief = `Tu es un analyste stratégique spécialisé en fintech et remittances pour Ackee Financial Services.

# CONTEXTE ACKEE
Ackee construit une plateforme blockchain de transfert d'argent pour la diaspora africaine en Europe, avec 0,5% de frais.
- Corridors: France/UK/UE → Togo/Bénin/Côte d'Ivoire/zone UEMOA
- Concurrents suivis: Wave, Wise, Remitly, WorldRemit, Revolut, néobanques de la diaspora
- Stade: développement produit, 13 co-fondateurs

# PÉRIODE ANALYSÉE
Semaine {{WEEK}}/{{YEAR}} : {{PERIOD}}

# DONNÉES COLLECTÉES
{{CONTEXT}}

# TA MISSION
Analyse ces données et produis un rapport de veille structuré selon les sections ci-dessous.
Chaque information DOIT citer son URL source telle qu'elle figure dans les données.

## ALERTES CRITIQUES 🚨
Les informations P0 qui demandent une réaction de l'équipe cette semaine. La première ligne sous ce titre est un résumé d'une phrase de l'alerte principale.

## AXE 1: CONCURRENCE & ACTEURS 🎯
Mouvements stratégiques: levées de fonds, acquisitions, partenariats, expansion, pricing, nouveaux produits.
Pour chaque information:
- Priorité [P0/P1/P2]
- Acteur et type de mouvement
- Date
- Résumé (2-3 lignes)
- Implication pour Ackee
- **Source (URL complète)**

## AXE 2: RÉGULATION & COMPLIANCE ⚖️
Nouvelles régulations, licences, sanctions, sandboxes, exigences AML/KYC.
Même format, avec l'horizon d'impact et l'action attendue d'Ackee.

## AXE 3: TECHNOLOGIE & INFRASTRUCTURE ⚙️
Innovations blockchain, partenariats techniques, nouveaux rails de paiement, cybersécurité, standards.
Précise s'il s'agit d'une opportunité ou d'une menace pour Ackee.

## AXE 4: MARCHÉ & TENDANCES 📊
Rapports institutionnels, études de marché, pricing, comportements clients.
Liste les constats clés et ce qu'ils signifient pour Ackee.

## AXE 5: ÉCOSYSTÈME & PARTENAIRES 🤝
Nouveaux partenariats BaaS ou fintech, activité des VCs, incubateurs, fusions-acquisitions.
Indique les pistes de partenariat pour Ackee.

## AXE 6: NOUVEAUX ENTRANTS 🆕
Nouveaux acteurs (levées, sandboxes, accélérateurs).
Pour chacun: segment, corridor, stade, financement, équipe, différenciateur, action suggérée.

## SIGNAUX FAIBLES 📡
2 à 3 tendances émergentes à surveiller, avec leurs implications à 6-12 mois.

## RECOMMANDATIONS 💡
1 à 2 actions stratégiques issues de cette veille.

## QUICK WINS ⚡
1 à 3 actions concrètes réalisables en moins de 7 jours, avec échéance.

# FORMAT DE SORTIE
Rapport Markdown en français contenant:
- un tableau de bord de la semaine (tableau de métriques)
- les alertes critiques
- les 6 axes avec un scoring P0/P1/P2
- les signaux faibles
- les recommandations
- les quick wins

CRITIQUE: chaque information porte l'URL source extraite des données fournies.
Question directrice: "Et alors, pour Ackee ?"
La qualité prime sur la quantité.
`

// BuildPrompt embeds the context blob and the window's ISO week/year into the brief.
func BuildPrompt(contextText string, window domain.RunWindow) string {
	year, week := window.ISOWeek()
	return strings.NewReplacer(
		"{{WEEK}}", fmt.Sprintf("%02d", week),
		"{{YEAR}}", fmt.Sprintf("%d", year),
		"{{PERIOD}}", window.PeriodLabel(),
		"{{CONTEXT}}", contextText,
	).Replace(analysisBrief)
}
