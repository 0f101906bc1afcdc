package imagery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cespare/xxhash/v2"

	"github.com/monomonedula/evrostan/internal/model"
	"github.com/monomonedula/evrostan/internal/observability"
)

// ImageAPI is the image download dependency.
type ImageAPI interface {
	Image(ctx context.Context, rq model.ImageRequest) ([]byte, error)
}

type Acquirer struct {
	logger *slog.Logger
	api    ImageAPI
}

func NewAcquirer(logger *slog.Logger, api ImageAPI) *Acquirer {
	return &Acquirer{logger: logger, api: api}
}

// Acquire downloads the planned requests in order. Failed directions
// are logged and skipped: the returned slice keeps request order and
// holds only the directions that produced bytes.
func (a *Acquirer) Acquire(ctx context.Context, reqs []model.ImageRequest) []model.AcquiredImage {
	out := make([]model.AcquiredImage, 0, len(reqs))
	for _, rq := range reqs {
		a.logger.InfoContext(ctx, "downloading image",
			"pano", rq.PanoID, "fov", rq.FOV, "heading", rq.Heading)

		data, err := a.api.Image(ctx, rq)
		if err != nil {
			a.logger.WarnContext(ctx, "image download failed",
				"pano", rq.PanoID, "fov", rq.FOV, "heading", rq.Heading, "err", err)
			observability.IncFetch(observability.OutcomeError)
			continue
		}
		observability.IncFetch(observability.OutcomeOK)
		a.logger.DebugContext(ctx, "image downloaded",
			"pano", rq.PanoID, "fov", rq.FOV, "heading", rq.Heading,
			"bytes", len(data),
			"digest", fmt.Sprintf("%016x", xxhash.Sum64(data)))

		out = append(out, model.AcquiredImage{Request: rq, Data: data})
	}
	return out
}
