package store

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/monomonedula/evrostan/internal/model"
	"github.com/monomonedula/evrostan/internal/observability"
)

// Glued stitches all directions of a panorama into one horizontal
// composite. With seam wrapping enabled (the default) the last pane is
// repeated at the front, so the 360-to-0 wraparound appears inside the
// sheet instead of being split across its edges.
type Glued struct {
	logger   *slog.Logger
	root     string
	seamWrap bool
	quality  int
}

var _ Strategy = (*Glued)(nil)

func NewGlued(logger *slog.Logger, root string, seamWrap bool) *Glued {
	return &Glued{logger: logger, root: root, seamWrap: seamWrap, quality: 90}
}

func (g *Glued) Save(images []model.AcquiredImage) ([]string, error) {
	if len(images) == 0 {
		return nil, nil
	}

	// a stable sort on fov keeps acquisition order within a single-fov
	// panorama, i.e. headings ascending
	ordered := make([]model.AcquiredImage, len(images))
	copy(ordered, images)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Request.FOV < ordered[j].Request.FOV
	})
	if g.seamWrap {
		ordered = append([]model.AcquiredImage{ordered[len(ordered)-1]}, ordered...)
	}

	panes := make([]image.Image, len(ordered))
	for i, img := range ordered {
		m, _, err := image.Decode(bytes.NewReader(img.Data))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", pairName(img.Request), err)
		}
		panes[i] = m
	}

	dir := filepath.Join(g.root, ordered[0].Request.PanoID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create panorama dir: %w", err)
	}

	p := filepath.Join(dir, compositeName(ordered))
	f, err := os.Create(p)
	if err != nil {
		return nil, fmt.Errorf("create composite: %w", err)
	}
	if err := jpeg.Encode(f, hconcat(panes), &jpeg.Options{Quality: g.quality}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("encode composite: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close composite: %w", err)
	}

	g.logger.Debug("composite saved", "path", p, "panes", len(ordered))
	observability.AddFilesWritten(1)
	return []string{p}, nil
}

// compositeName joins every pane's fov-heading pair in concatenation
// order.
func compositeName(images []model.AcquiredImage) string {
	parts := make([]string, len(images))
	for i, img := range images {
		parts[i] = pairName(img.Request)
	}
	return strings.Join(parts, "--") + ".jpg"
}

// hconcat pastes the panes left to right onto a canvas as wide as their
// sum and as tall as the tallest pane. Shorter panes leave the canvas
// zero value below them; heights are not reconciled.
func hconcat(panes []image.Image) *image.RGBA {
	width, height := 0, 0
	for _, m := range panes {
		width += m.Bounds().Dx()
		if h := m.Bounds().Dy(); h > height {
			height = h
		}
	}
	sheet := image.NewRGBA(image.Rect(0, 0, width, height))
	x := 0
	for _, m := range panes {
		r := image.Rect(x, 0, x+m.Bounds().Dx(), m.Bounds().Dy())
		draw.Draw(sheet, r, m, m.Bounds().Min, draw.Src)
		x += m.Bounds().Dx()
	}
	return sheet
}
