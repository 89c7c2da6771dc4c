package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	"time"

	"AckeeVeille/internal/domain"
)

const (
	noAlerts          = "✅ Aucune alerte critique cette semaine."
	noQuickWins       = "⚡ Aucun quick win identifié cette semaine."
	noRecommendations = "💡 Aucune recommandation particulière cette semaine."

	base64LineLength = 76
)

// Message is a notification email with one attachment.
type Message struct {
	From           string
	To             []string
	Subject        string
	Date           time.Time
	Body           string
	AttachmentName string
	Attachment     []byte
}

// Subject renders "ACKEE WEEKLY INTEL - Semaine WW/YYYY (dd/mm au dd/mm): headline".
func Subject(window domain.RunWindow, headline string) string {
	return fmt.Sprintf("ACKEE WEEKLY INTEL - Semaine %s (%s au %s): %s",
		window.WeekLabel(),
		window.Start.Format("02/01"),
		window.End.Format("02/01"),
		headline,
	)
}

// MessageBody fills the notification template with the extracted sections.
func MessageBody(window domain.RunWindow, body string) string {
	alerts := orDefault(ExtractSection(body, AlertMarker), noAlerts)
	quickWins := orDefault(ExtractSection(body, QuickWinMarker), noQuickWins)
	recommendations := orDefault(ExtractSection(body, RecommendationMarker), noRecommendations)

	var sb strings.Builder
	sb.WriteString("Chers co-fondateurs,\n\n")
	fmt.Fprintf(&sb, "Voici la veille concurrentielle et réglementaire de la semaine %s (%s au %s).\n\n",
		window.WeekLabel(), window.Start.Format("02/01"), window.End.Format("02/01"))
	sb.WriteString(alerts + "\n\n")
	sb.WriteString(quickWins + "\n\n")
	sb.WriteString(recommendations + "\n\n")
	sb.WriteString("📎 DOCUMENT COMPLET\n\n")
	fmt.Fprintf(&sb, "La veille exhaustive est disponible en pièce jointe : %s\n\n", window.DocumentFilename())
	sb.WriteString("Le rapport contient:\n")
	sb.WriteString("- l'analyse complète des 6 axes de veille\n")
	sb.WriteString("- les signaux faibles et tendances émergentes\n")
	sb.WriteString("- les recommandations stratégiques détaillées\n")
	sb.WriteString("- les liens sources de chaque information\n\n")
	sb.WriteString("---\n\n")
	sb.WriteString("Veille Ackee (automatisé)\n")
	return sb.String()
}

// Compose renders m as an RFC 5322 multipart/mixed message: a quoted-printable text part
// and the attachment in base64.
func Compose(m Message) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	recipients := make([]string, 0, len(m.To))
	for _, addr := range m.To {
		if addr = strings.TrimSpace(sanitizeHeader(addr)); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	to := strings.Join(recipients, ", ")
	if to == "" {
		to = "undisclosed-recipients:;"
	}

	header := []string{
		"MIME-Version: 1.0",
		"Date: " + m.Date.Format(time.RFC1123Z),
		"From: " + sanitizeHeader(m.From),
		"To: " + to,
		"Subject: " + mime.QEncoding.Encode("utf-8", sanitizeHeader(m.Subject)),
		"Content-Type: " + mime.FormatMediaType("multipart/mixed", map[string]string{"boundary": mw.Boundary()}),
	}
	buf.WriteString(strings.Join(header, "\r\n"))
	buf.WriteString("\r\n\r\n")

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", "text/plain; charset=utf-8")
	textHeader.Set("Content-Transfer-Encoding", "quoted-printable")
	textPart, err := mw.CreatePart(textHeader)
	if err != nil {
		return nil, fmt.Errorf("create text part: %w", err)
	}
	qp := quotedprintable.NewWriter(textPart)
	if _, err := qp.Write([]byte(toCRLF(m.Body))); err != nil {
		return nil, fmt.Errorf("write text part: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("close text part: %w", err)
	}

	attachmentName := sanitizeHeader(m.AttachmentName)
	attHeader := textproto.MIMEHeader{}
	attHeader.Set("Content-Type", mime.FormatMediaType("text/markdown", map[string]string{"charset": "utf-8", "name": attachmentName}))
	attHeader.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": attachmentName}))
	attHeader.Set("Content-Transfer-Encoding", "base64")
	attPart, err := mw.CreatePart(attHeader)
	if err != nil {
		return nil, fmt.Errorf("create attachment part: %w", err)
	}
	if _, err := attPart.Write(wrapBase64(m.Attachment)); err != nil {
		return nil, fmt.Errorf("write attachment part: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close message: %w", err)
	}
	return buf.Bytes(), nil
}

func wrapBase64(data []byte) []byte {
	encoded := base64.StdEncoding.EncodeToString(data)

	var out bytes.Buffer
	for len(encoded) > base64LineLength {
		out.WriteString(encoded[:base64LineLength])
		out.WriteString("\r\n")
		encoded = encoded[base64LineLength:]
	}
	out.WriteString(encoded)
	out.WriteString("\r\n")
	return out.Bytes()
}

// sanitizeHeader drops line breaks so a value cannot start a new header.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", "")
}

func toCRLF(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
