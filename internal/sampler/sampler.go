// Package sampler enumerates the grid of sample points covering a
// square region.
package sampler

import (
	"iter"

	"github.com/monomonedula/evrostan/internal/geo"
	"github.com/monomonedula/evrostan/internal/model"
)

// Corner returns the north-west corner of the square: half a side west
// of the centre, then half a side north.
func Corner(spec model.GridSpec) model.Coordinate {
	left := geo.Destination(spec.Center, float64(spec.Side)/2, geo.BearingWest)
	return geo.Destination(left, float64(spec.Side)/2, geo.BearingNorth)
}

// Count is the number of points Points yields for the grid.
func Count(spec model.GridSpec) int {
	if spec.Step <= 0 || spec.Side < 0 {
		return 0
	}
	perAxis := spec.Side/spec.Step + 1
	return perAxis * perAxis
}

// Points yields the sample grid column by column: for each eastward
// offset from the corner, points walk south. Offsets never exceed the
// side length. Every point is displaced directly from the corner, so
// the grid is reproducible and the sequence restartable: ranging twice
// yields the same points. A non-positive Step yields nothing.
func Points(spec model.GridSpec) iter.Seq[model.Coordinate] {
	return func(yield func(model.Coordinate) bool) {
		if spec.Step <= 0 {
			return
		}
		corner := Corner(spec)
		for i := 0; i <= spec.Side; i += spec.Step {
			east := geo.Destination(corner, float64(i), geo.BearingEast)
			for j := 0; j <= spec.Side; j += spec.Step {
				if !yield(geo.Destination(east, float64(j), geo.BearingSouth)) {
					return
				}
			}
		}
	}
}
