// Package store persists the acquired images of a panorama to disk.
package store

import (
	"fmt"

	"github.com/monomonedula/evrostan/internal/model"
)

// Strategy writes every acquired image of one panorama and returns the
// paths it created.
type Strategy interface {
	Save(images []model.AcquiredImage) ([]string, error)
}

// pairName is the fov-heading label shared by both layouts.
func pairName(rq model.ImageRequest) string {
	return fmt.Sprintf("%d-%d", rq.FOV, rq.Heading)
}
