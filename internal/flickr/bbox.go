package flickr

import (
	"math"
	"strconv"
)

const (
	// DefaultHalfWidth is the default longitude offset either side of the center.
	DefaultHalfWidth = 0.25
	// DefaultHalfHeight is the default latitude offset either side of the center.
	DefaultHalfHeight = 0.25

	minLatitude  = -90.0
	maxLatitude  = 90.0
	minLongitude = -180.0
	maxLongitude = 180.0
)

// emptyBoundingBox is returned for coordinates that cannot be placed on the map.
const emptyBoundingBox = "0,0,0,0"

// BoundingBox returns the search rectangle "minLon,minLat,maxLon,maxLat"
// around a coordinate, clamped to the valid latitude and longitude ranges.
// Non-finite input yields "0,0,0,0".
func BoundingBox(latitude, longitude, halfWidth, halfHeight float64) string {
	for _, v := range []float64{latitude, longitude, halfWidth, halfHeight} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return emptyBoundingBox
		}
	}

	minLon := math.Max(longitude-halfWidth, minLongitude)
	minLat := math.Max(latitude-halfHeight, minLatitude)
	maxLon := math.Min(longitude+halfWidth, maxLongitude)
	maxLat := math.Min(latitude+halfHeight, maxLatitude)

	return formatCoord(minLon) + "," + formatCoord(minLat) + "," + formatCoord(maxLon) + "," + formatCoord(maxLat)
}

// BoundingBoxFromStrings parses the coordinate and returns BoundingBox with
// the default half sizes. Unparseable input yields "0,0,0,0".
func BoundingBoxFromStrings(latitude, longitude string) string {
	lat, err := strconv.ParseFloat(latitude, 64)
	if err != nil {
		return emptyBoundingBox
	}
	lon, err := strconv.ParseFloat(longitude, 64)
	if err != nil {
		return emptyBoundingBox
	}
	return BoundingBox(lat, lon, DefaultHalfWidth, DefaultHalfHeight)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
