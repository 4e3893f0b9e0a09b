package geo

import (
	"math"
)

// Filter keeps locations within RadiusKM of Origin.
type Filter struct {
	Origin   Point
	RadiusKM float64
}

// Score returns the distance from the origin to p, rounded to two decimals,
// and whether p lies within the radius. A nil p has no location: it scores
// +Inf and is rejected.
func (f Filter) Score(p *Point) (km float64, ok bool) {
	if p == nil || p.p == nil {
		return math.Inf(1), false
	}
	d := DistanceKM(f.Origin, *p)
	return Round2(d), d <= f.RadiusKM
}

// Round2 rounds km to two decimals for display.
func Round2(km float64) float64 {
	return math.Round(km*100) / 100
}
