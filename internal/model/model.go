// Package model defines core domain types shared across the crawler.
package model

import "strconv"

type Coordinate struct {
	Lat float64
	Lng float64
}

// String representation matching the streetview location query format
func (c Coordinate) String() string {
	return FormatFloat(c.Lat) + "," + FormatFloat(c.Lng)
}

// FormatFloat renders a coordinate component in the shortest decimal
// form that round-trips to the same float64.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// GridSpec describes a square sampling region centred on a point.
// Side and Step are metres.
type GridSpec struct {
	Center Coordinate
	Side   int
	Step   int
}

// PanoramaRecord ties a panorama id to the location reported by the
// metadata endpoint, not the sample point that discovered it.
type PanoramaRecord struct {
	ID       string
	Location Coordinate
}

type ImageRequest struct {
	PanoID  string
	FOV     int
	Heading int
	Width   int
	Height  int
}

// AcquiredImage pairs a directional request with the bytes it produced.
type AcquiredImage struct {
	Request ImageRequest
	Data    []byte
}
