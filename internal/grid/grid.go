// Package grid generates a hex-packed lattice of sample points within a
// geodesic radius around a center coordinate.
package grid

import (
	"math"

	"github.com/yourusername/sunviewfinder/internal/geo"
)

// DefaultSpacingMeters is the nominal inter-point spacing used when the
// caller doesn't override it.
const DefaultSpacingMeters = 350.0

// Generate produces every lattice point within radiusM of center,
// packed on a row-offset square lattice (approximating hexagonal
// coverage) with nominal spacing spacingM. A non-positive radius or
// spacing yields an empty slice.
func Generate(center geo.Coordinate, radiusM, spacingM float64) []geo.Coordinate {
	if radiusM <= 0 || spacingM <= 0 {
		return nil
	}

	rowHeight := spacingM * math.Sqrt(3) / 2
	maxRow := int(math.Ceil(radiusM / rowHeight))
	maxCol := int(math.Ceil(radiusM / spacingM))

	var points []geo.Coordinate
	for r := -maxRow; r <= maxRow; r++ {
		y := float64(r) * rowHeight
		offset := 0.0
		if mod2(r) != 0 {
			offset = spacingM / 2
		}

		for c := -maxCol; c <= maxCol; c++ {
			x := float64(c)*spacingM + offset

			dist := math.Sqrt(x*x + y*y)
			if dist > radiusM {
				continue
			}

			bearing := math.Mod(math.Atan2(x, y)*180/math.Pi+360, 360)
			points = append(points, geo.DestinationPoint(center, bearing, dist))
		}
	}

	return points
}

// mod2 returns r mod 2 normalized to {0,1} even for negative r, since
// Go's % keeps the sign of the dividend.
func mod2(r int) int {
	m := r % 2
	if m < 0 {
		m += 2
	}
	return m
}
