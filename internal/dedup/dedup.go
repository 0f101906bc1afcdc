// Package dedup collapses resolved sample points into the unique set
// of panoramas they landed on.
package dedup

import (
	"context"
	"iter"
	"log/slog"
	"sort"

	"github.com/monomonedula/evrostan/internal/model"
)

// ResolveFunc reports the panorama covering a point, if any.
type ResolveFunc func(ctx context.Context, point model.Coordinate) (model.PanoramaRecord, bool)

// Unique drains the point stream, resolving every point, and returns
// one record per distinct panorama id, sorted by id. Nearby points
// frequently land on the same panorama; the location kept for an id is
// the one reported by its latest resolution.
func Unique(ctx context.Context, logger *slog.Logger, points iter.Seq[model.Coordinate], resolve ResolveFunc) []model.PanoramaRecord {
	seen := map[string]model.Coordinate{}
	for p := range points {
		if ctx.Err() != nil {
			break
		}
		logger.Info("resolving sample point", "location", p.String())
		rec, ok := resolve(ctx, p)
		if !ok {
			logger.Info("no panorama at sample point", "location", p.String())
			continue
		}
		seen[rec.ID] = rec.Location
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]model.PanoramaRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.PanoramaRecord{ID: id, Location: seen[id]})
	}
	return out
}
