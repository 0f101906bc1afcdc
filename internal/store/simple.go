package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/monomonedula/evrostan/internal/model"
	"github.com/monomonedula/evrostan/internal/observability"
)

// Simple writes each direction as its own jpg tile under the panorama
// directory.
type Simple struct {
	logger *slog.Logger
	root   string
}

var _ Strategy = (*Simple)(nil)

func NewSimple(logger *slog.Logger, root string) *Simple {
	return &Simple{logger: logger, root: root}
}

func (s *Simple) Save(images []model.AcquiredImage) ([]string, error) {
	paths := make([]string, 0, len(images))
	for _, img := range images {
		dir := filepath.Join(s.root, img.Request.PanoID)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return paths, fmt.Errorf("create panorama dir: %w", err)
		}
		p := filepath.Join(dir, pairName(img.Request)+".jpg")
		if err := os.WriteFile(p, img.Data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", filepath.Base(p), err)
		}
		s.logger.Debug("tile saved", "path", p, "bytes", len(img.Data))
		paths = append(paths, p)
	}
	observability.AddFilesWritten(len(paths))
	return paths, nil
}
