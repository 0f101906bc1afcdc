// Package catalogue orchestrates per-panorama acquisition and
// persistence and maintains the run's index file.
package catalogue

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/monomonedula/evrostan/internal/imagery"
	"github.com/monomonedula/evrostan/internal/logger"
	"github.com/monomonedula/evrostan/internal/model"
	"github.com/monomonedula/evrostan/internal/observability"
	"github.com/monomonedula/evrostan/internal/store"
)

const (
	indexName   = "index.csv"
	overlayName = "coverage.kml"
)

// ErrIndexExists marks a refusal to clobber a previous run's index.
var ErrIndexExists = errors.New("index file already exists")

// Acquirer downloads planned image requests, tolerating per-request
// failure.
type Acquirer interface {
	Acquire(ctx context.Context, reqs []model.ImageRequest) []model.AcquiredImage
}

// OverlayFunc renders the indexed records to a coverage file. Nil
// disables the overlay.
type OverlayFunc func(path string, records []model.PanoramaRecord) error

type Params struct {
	Dir     string
	FOV     int
	Width   int
	Height  int
	Workers int

	Strategy store.Strategy
	Acquirer Acquirer
	Overlay  OverlayFunc
}

type Catalogue struct {
	logger *slog.Logger
	p      Params
}

func New(logger *slog.Logger, p Params) *Catalogue {
	if p.Workers < 1 {
		p.Workers = 1
	}
	return &Catalogue{logger: logger, p: p}
}

// Add downloads and persists every record, appending one index row per
// panorama that yielded at least one stored file. It refuses to run if
// the index file is already present. Rows are flushed as they are
// written, so an aborted run keeps the rows finished before the
// failure.
func (c *Catalogue) Add(ctx context.Context, records []model.PanoramaRecord) error {
	indexPath := filepath.Join(c.p.Dir, indexName)
	if _, err := os.Stat(indexPath); err == nil {
		return fmt.Errorf("%w: %s", ErrIndexExists, indexPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat index: %w", err)
	}

	if err := os.MkdirAll(c.p.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.OpenFile(indexPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = f.Close() }()

	iw := &indexWriter{w: csv.NewWriter(f)}
	if err := iw.header(); err != nil {
		return err
	}

	c.logger.Info("panoramas to explore", "total", len(records))

	if c.p.Workers > 1 {
		err = c.addParallel(ctx, iw, records)
	} else {
		err = c.addSerial(ctx, iw, records)
	}
	if err != nil {
		return err
	}

	if c.p.Overlay != nil && len(iw.indexed) > 0 {
		kmlPath := filepath.Join(c.p.Dir, overlayName)
		if err := c.p.Overlay(kmlPath, iw.indexed); err != nil {
			c.logger.Warn("coverage overlay failed", "err", err)
		} else {
			c.logger.Info("coverage overlay written", "path", kmlPath)
		}
	}

	c.logger.Info("catalogue complete", "indexed", len(iw.indexed), "total", len(records))
	return nil
}

func (c *Catalogue) addSerial(ctx context.Context, iw *indexWriter, records []model.PanoramaRecord) error {
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.logger.Info("downloading panorama", "seq", i+1, "total", len(records), "pano", rec.ID)
		if err := c.one(ctx, iw, rec); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalogue) addParallel(ctx context.Context, iw *indexWriter, records []model.PanoramaRecord) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.p.Workers)
	for i, rec := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c.logger.Info("downloading panorama", "seq", i+1, "total", len(records), "pano", rec.ID)
			return c.one(gctx, iw, rec)
		})
	}
	return g.Wait()
}

// one downloads a single panorama and appends its index row when at
// least one file was stored.
func (c *Catalogue) one(ctx context.Context, iw *indexWriter, rec model.PanoramaRecord) error {
	ctx = logger.WithPano(ctx, rec.ID)

	reqs, err := imagery.Requests(rec, c.p.FOV, c.p.Width, c.p.Height)
	if err != nil {
		return err
	}
	images := c.p.Acquirer.Acquire(ctx, reqs)
	if len(images) == 0 {
		c.logger.Warn("no images acquired", "pano", rec.ID)
		return nil
	}
	paths, err := c.p.Strategy.Save(images)
	if err != nil {
		return fmt.Errorf("save panorama %s: %w", rec.ID, err)
	}
	if len(paths) == 0 {
		return nil
	}
	observability.AddFilesWritten(len(paths))
	return iw.add(rec)
}

// indexWriter serializes row appends; every row is flushed before the
// lock is released.
type indexWriter struct {
	mu      sync.Mutex
	w       *csv.Writer
	indexed []model.PanoramaRecord
}

func (iw *indexWriter) header() error {
	if err := iw.w.Write([]string{"pano_id", "latitude", "longitude"}); err != nil {
		return fmt.Errorf("write index header: %w", err)
	}
	iw.w.Flush()
	if err := iw.w.Error(); err != nil {
		return fmt.Errorf("flush index header: %w", err)
	}
	return nil
}

func (iw *indexWriter) add(rec model.PanoramaRecord) error {
	iw.mu.Lock()
	defer iw.mu.Unlock()

	row := []string{
		rec.ID,
		model.FormatFloat(rec.Location.Lat),
		model.FormatFloat(rec.Location.Lng),
	}
	if err := iw.w.Write(row); err != nil {
		return fmt.Errorf("write index row: %w", err)
	}
	iw.w.Flush()
	if err := iw.w.Error(); err != nil {
		return fmt.Errorf("flush index row: %w", err)
	}
	iw.indexed = append(iw.indexed, rec)
	observability.IncPanoramaIndexed()
	return nil
}
