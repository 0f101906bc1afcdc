// Package geo provides the spherical-earth primitives the sampler is
// built on: bearing displacement, great-circle distance and coordinate
// parsing.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/monomonedula/evrostan/internal/model"
)

// EarthRadius is the WGS84 semi-major axis in metres.
const EarthRadius = 6378137.0

// Compass bearings in degrees.
const (
	BearingNorth = 0.0
	BearingEast  = 90.0
	BearingSouth = 180.0
	BearingWest  = 270.0
)

func DegreesToRadians(d float64) float64 {
	return d * math.Pi / 180.0
}

func RadiansToDegrees(r float64) float64 {
	return r * 180.0 / math.Pi
}

// Destination returns the point reached by travelling the given number
// of metres from p along a constant initial bearing, on a spherical
// earth of radius EarthRadius.
func Destination(p model.Coordinate, meters, bearing float64) model.Coordinate {
	lat1 := DegreesToRadians(p.Lat)
	lon1 := DegreesToRadians(p.Lng)
	brg := DegreesToRadians(bearing)
	d := meters / EarthRadius

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) +
		math.Cos(lat1)*math.Sin(d)*math.Cos(brg))
	lon2 := lon1 + math.Atan2(
		math.Sin(brg)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2),
	)
	// wrap longitude into [-180, 180)
	lon2 = math.Mod(lon2+3*math.Pi, 2*math.Pi) - math.Pi

	return model.Coordinate{
		Lat: RadiansToDegrees(lat2),
		Lng: RadiansToDegrees(lon2),
	}
}

// Distance is the haversine great-circle distance between two points,
// in metres.
func Distance(p1, p2 model.Coordinate) float64 {
	lat1 := DegreesToRadians(p1.Lat)
	lon1 := DegreesToRadians(p1.Lng)
	lat2 := DegreesToRadians(p2.Lat)
	lon2 := DegreesToRadians(p2.Lng)

	dLat := lat2 - lat1
	dLon := lon2 - lon1
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c
}

// ParseCoordinate parses a "lat,lng" pair in decimal degrees.
func ParseCoordinate(s string) (model.Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return model.Coordinate{}, fmt.Errorf("coordinate %q must be lat,lng", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("parse latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("parse longitude: %w", err)
	}
	if lat < -90 || lat > 90 {
		return model.Coordinate{}, errors.New("latitude must be in [-90, 90]")
	}
	if lng < -180 || lng > 180 {
		return model.Coordinate{}, errors.New("longitude must be in [-180, 180]")
	}
	return model.Coordinate{Lat: lat, Lng: lng}, nil
}
