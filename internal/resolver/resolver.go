// Package resolver turns grid sample points into panorama identities,
// memoizing the outcome per point.
package resolver

import (
	"context"
	"log/slog"

	"github.com/monomonedula/evrostan/internal/cache/pointcache"
	"github.com/monomonedula/evrostan/internal/model"
	"github.com/monomonedula/evrostan/internal/observability"
	"github.com/monomonedula/evrostan/internal/streetview"
)

// MetadataAPI is the metadata lookup dependency.
type MetadataAPI interface {
	Metadata(ctx context.Context, point model.Coordinate) (streetview.Metadata, error)
}

// outcome is what gets memoized per point: either a record or a
// definitive "nothing here".
type outcome struct {
	rec   model.PanoramaRecord
	found bool
}

type Resolver struct {
	logger *slog.Logger
	api    MetadataAPI
	memo   *pointcache.Cache[outcome]
}

func New(logger *slog.Logger, api MetadataAPI, cacheSize int) *Resolver {
	return &Resolver{
		logger: logger,
		api:    api,
		memo:   pointcache.New[outcome](cacheSize),
	}
}

// Resolve reports the panorama covering a point, if any. Classified
// responses are memoized by the point's textual form. Transport
// failures are not, so a later visit to the same point asks the
// network again.
func (r *Resolver) Resolve(ctx context.Context, point model.Coordinate) (model.PanoramaRecord, bool) {
	key := point.String()
	if out, ok := r.memo.Get(key); ok {
		observability.IncCacheHit()
		return out.rec, out.found
	}
	observability.IncCacheMiss()

	meta, err := r.api.Metadata(ctx, point)
	if err != nil {
		r.logger.Warn("metadata lookup failed", "location", key, "err", err)
		observability.IncLookup(observability.OutcomeError)
		return model.PanoramaRecord{}, false
	}

	out := classify(meta)
	r.memo.Add(key, out)
	observability.IncLookup(outcomeLabel(meta.Status))
	return out.rec, out.found
}

func classify(meta streetview.Metadata) outcome {
	if meta.Status == streetview.StatusOK && meta.PanoID != "" {
		return outcome{
			rec: model.PanoramaRecord{
				ID:       meta.PanoID,
				Location: model.Coordinate{Lat: meta.Location.Lat, Lng: meta.Location.Lng},
			},
			found: true,
		}
	}
	return outcome{}
}

func outcomeLabel(status string) string {
	switch status {
	case streetview.StatusOK:
		return observability.OutcomeOK
	case streetview.StatusZeroResults:
		return observability.OutcomeZeroResults
	default:
		return observability.OutcomeOther
	}
}
