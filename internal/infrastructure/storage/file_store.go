package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"AckeeVeille/internal/domain"
	"AckeeVeille/internal/logging"
	"AckeeVeille/internal/ports"
)

// FileStore persists raw corpora and report artifacts under one reports directory.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

var (
	_ ports.CorpusStore   = (*FileStore)(nil)
	_ ports.ArtifactStore = (*FileStore)(nil)
)

// NewFileStore wires the reports directory. It is created lazily on first write.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	return &FileStore{dir: dir, logger: logging.OrDiscard(logger)}
}

// SaveCorpus writes the items as an indented UTF-8 JSON array named after the window's ISO week.
func (s *FileStore) SaveCorpus(ctx context.Context, window domain.RunWindow, items []domain.RawItem) (string, error) {
	if items == nil {
		items = []domain.RawItem{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return "", fmt.Errorf("%w: encode corpus: %v", domain.ErrPersistence, err)
	}

	paths, err := s.Commit(ctx, []ports.Artifact{{Name: window.CorpusFilename(), Data: buf.Bytes()}})
	if err != nil {
		return "", err
	}

	s.logger.Info("corpus saved", "path", paths[0], "items", len(items))
	return paths[0], nil
}

// Commit writes every artifact to a temporary file first and renames them into place only
// once all writes succeeded. On failure no artifact of the batch is left behind.
func (s *FileStore) Commit(ctx context.Context, artifacts []ports.Artifact) ([]string, error) {
	for _, a := range artifacts {
		if err := validName(a.Name); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create reports dir: %v", domain.ErrPersistence, err)
	}

	temps := make([]string, 0, len(artifacts))
	cleanupTemps := func() {
		for _, tmp := range temps {
			_ = os.Remove(tmp)
		}
	}

	for _, a := range artifacts {
		tmp, err := writeTemp(s.dir, a)
		if err != nil {
			cleanupTemps()
			return nil, fmt.Errorf("%w: write %s: %v", domain.ErrPersistence, a.Name, err)
		}
		temps = append(temps, tmp)
	}

	finals := make([]string, 0, len(artifacts))
	for i, a := range artifacts {
		final := filepath.Join(s.dir, a.Name)
		if err := os.Rename(temps[i], final); err != nil {
			for _, done := range finals {
				_ = os.Remove(done)
			}
			for _, tmp := range temps[i:] {
				_ = os.Remove(tmp)
			}
			return nil, fmt.Errorf("%w: move %s into place: %v", domain.ErrPersistence, a.Name, err)
		}
		finals = append(finals, final)
	}

	return finals, nil
}

func writeTemp(dir string, a ports.Artifact) (string, error) {
	f, err := os.CreateTemp(dir, "."+a.Name+".*.tmp")
	if err != nil {
		return "", err
	}

	_, writeErr := f.Write(a.Data)
	syncErr := f.Sync()
	closeErr := f.Close()
	if err := errors.Join(writeErr, syncErr, closeErr); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}
