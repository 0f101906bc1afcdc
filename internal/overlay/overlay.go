// Package overlay renders indexed panoramas as a KML document usable
// in map tools.
package overlay

import (
	"fmt"
	"os"

	kml "github.com/twpayne/go-kml/v2"

	"github.com/monomonedula/evrostan/internal/model"
)

// WriteKML writes one placemark per panorama record, named by id and
// placed at the panorama's canonical location.
func WriteKML(path string, records []model.PanoramaRecord) error {
	doc := kml.Document(kml.Name("panorama coverage"))
	for _, rec := range records {
		doc.Add(kml.Placemark(
			kml.Name(rec.ID),
			kml.Point(kml.Coordinates(kml.Coordinate{
				Lon: rec.Location.Lng,
				Lat: rec.Location.Lat,
			})),
		))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create kml: %w", err)
	}
	if err := kml.KML(doc).WriteIndent(f, "", "  "); err != nil {
		_ = f.Close()
		return fmt.Errorf("write kml: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close kml: %w", err)
	}
	return nil
}
