// Package geo scores vaccination centers by their distance from a reference
// location.
package geo

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// SRID of every point handled here (WGS 84).
const SRID = 4326

// earthRadiusKM is the mean earth radius.
const earthRadiusKM = 6371.0

// Point is a WGS 84 location stored lon/lat in an XY go-geom point.
type Point struct {
	p *geom.Point
}

// NewPoint creates a Point from latitude and longitude in degrees.
func NewPoint(lat, lon float64) Point {
	return Point{p: geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(SRID)}
}

// Lat returns the latitude in degrees.
func (p Point) Lat() float64 {
	if p.p == nil {
		return 0
	}
	return p.p.Y()
}

// Lon returns the longitude in degrees.
func (p Point) Lon() float64 {
	if p.p == nil {
		return 0
	}
	return p.p.X()
}

// Geom exposes the underlying go-geom point.
func (p Point) Geom() *geom.Point {
	return p.p
}

// String renders the point in the "lat,lon" form accepted by ParsePoint.
func (p Point) String() string {
	return strconv.FormatFloat(p.Lat(), 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon(), 'f', -1, 64)
}

// ParsePoint parses "lat,lon" as used by the commune index and the --near flag.
func ParsePoint(s string) (Point, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, eris.Errorf("geo: %q is not lat,lon", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Point{}, eris.Wrapf(err, "geo: parse latitude %q", latStr)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return Point{}, eris.Wrapf(err, "geo: parse longitude %q", lonStr)
	}
	if err := Validate(lat, lon); err != nil {
		return Point{}, err
	}
	return NewPoint(lat, lon), nil
}

// Validate rejects coordinates outside the WGS 84 range.
func Validate(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return eris.Errorf("geo: latitude %v out of range", lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return eris.Errorf("geo: longitude %v out of range", lon)
	}
	return nil
}

// DistanceKM is the great-circle distance between a and b.
func DistanceKM(a, b Point) float64 {
	lat1, lat2 := radians(a.Lat()), radians(b.Lat())
	dLat := lat2 - lat1
	dLon := radians(b.Lon() - a.Lon())

	h := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)
	return 2 * earthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
