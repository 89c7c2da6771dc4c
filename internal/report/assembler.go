package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"AckeeVeille/internal/domain"
	"AckeeVeille/internal/logging"
	"AckeeVeille/internal/ports"
)

// Assembler renders the full document and the notification message and commits both together.
type Assembler struct {
	store      ports.ArtifactStore
	recipients []string
	from       string
	logger     *slog.Logger
}

// NewAssembler wires the artifact store with the message envelope settings.
func NewAssembler(store ports.ArtifactStore, recipients []string, from string, logger *slog.Logger) *Assembler {
	return &Assembler{
		store:      store,
		recipients: recipients,
		from:       from,
		logger:     logging.OrDiscard(logger),
	}
}

// Assemble writes ackee_veille_sWW_YYYY.md and ackee_veille_sWW_email.eml. Either both exist
// afterwards or the error wraps ErrPersistence and neither does.
func (a *Assembler) Assemble(ctx context.Context, result domain.SynthesisResult) (domain.ReportArtifacts, error) {
	if a.store == nil {
		return domain.ReportArtifacts{}, fmt.Errorf("%w: artifact store is not configured", domain.ErrPersistence)
	}

	window := result.Period
	document := RenderDocument(result)
	headline := Headline(result.BodyText)

	message, err := Compose(Message{
		From:           a.from,
		To:             a.recipients,
		Subject:        Subject(window, headline),
		Date:           result.GeneratedAt,
		Body:           MessageBody(window, result.BodyText),
		AttachmentName: window.DocumentFilename(),
		Attachment:     document,
	})
	if err != nil {
		return domain.ReportArtifacts{}, fmt.Errorf("%w: compose message: %w", domain.ErrPersistence, err)
	}

	paths, err := a.store.Commit(ctx, []ports.Artifact{
		{Name: window.DocumentFilename(), Data: document},
		{Name: window.MessageFilename(), Data: message},
	})
	if err != nil {
		if !errors.Is(err, domain.ErrPersistence) {
			err = fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		return domain.ReportArtifacts{}, err
	}
	if len(paths) != 2 {
		return domain.ReportArtifacts{}, fmt.Errorf("%w: expected 2 artifact paths, got %d", domain.ErrPersistence, len(paths))
	}

	a.logger.Info("report assembled", "document", paths[0], "message", paths[1], "headline", headline)
	return domain.ReportArtifacts{
		DocumentPath: paths[0],
		MessagePath:  paths[1],
		Synthesis:    result,
	}, nil
}
