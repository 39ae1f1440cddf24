package reader

import (
	"path/filepath"
	"strings"

	"seal-telemetry/internal/models"
)

// SourceClassifier decides which location technology produced a raw
// Locations file. The policy is injectable so the fragile default can be
// replaced without touching the reconciler.
type SourceClassifier func(path string) models.LocationSource

// fastGPSNameThreshold is the filename length beyond which a Locations
// filename is assumed to carry the extra FastGPS marker segment.
const fastGPSNameThreshold = 20

// DefaultSourceClassifier classifies by base-filename length: FastGPS
// archives embed an extra marker segment, so their names run longer.
// Inherited heuristic; malformed filenames misclassify silently.
func DefaultSourceClassifier(path string) models.LocationSource {
	if len(filepath.Base(path)) > fastGPSNameThreshold {
		return models.SourceFastGPS
	}
	return models.SourceArgos
}

// InstrumentFromFilename extracts the instrument identifier from a raw
// file name: the leading hyphen-separated segment of the base name.
//
//	"13A0456-Locations.csv"         -> "13A0456"
//	"13A0456-1-FastGPS-Locations.csv" -> "13A0456"
func InstrumentFromFilename(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if i := strings.Index(base, "-"); i >= 0 {
		return base[:i]
	}
	return base
}
