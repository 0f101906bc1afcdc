// Package imagery plans and executes the directional image downloads
// for a panorama.
package imagery

import (
	"fmt"

	"github.com/monomonedula/evrostan/internal/model"
)

// ValidateFOV enforces the full-circle rule: headings advance by fov
// degrees, so fov must divide 360 evenly.
func ValidateFOV(fov int) error {
	if fov <= 0 || 360%fov != 0 {
		return fmt.Errorf("fov %d does not evenly divide 360", fov)
	}
	return nil
}

// Requests plans one download per heading sector 0, fov, 2*fov, ...,
// covering the full circle.
func Requests(rec model.PanoramaRecord, fov, width, height int) ([]model.ImageRequest, error) {
	if err := ValidateFOV(fov); err != nil {
		return nil, err
	}
	reqs := make([]model.ImageRequest, 0, 360/fov)
	for heading := 0; heading < 360; heading += fov {
		reqs = append(reqs, model.ImageRequest{
			PanoID:  rec.ID,
			FOV:     fov,
			Heading: heading,
			Width:   width,
			Height:  height,
		})
	}
	return reqs, nil
}
