// Package scorer assigns a 0-100 suitability score to each analyzed
// viewshed candidate, ranks them, and renders human-facing verdicts and
// color bands.
package scorer

import (
	"fmt"
	"math"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/yourusername/sunviewfinder/internal/geo"
	"github.com/yourusername/sunviewfinder/internal/viewshed"
)

// Options supplies the context Score needs beyond the candidate itself:
// the search center (for proximity scoring) and the search radius (for
// normalizing that proximity).
type Options struct {
	Center     *geo.Coordinate
	MaxRadiusM float64
}

// ScoredCandidate merges an AnalyzedCandidate with its score and dense
// rank.
type ScoredCandidate struct {
	viewshed.AnalyzedCandidate
	Score uint8
	Rank  uint32
}

// Score computes the 0-100 suitability score for one analyzed
// candidate: the sum of obstruction, elevation, center-proximity, and
// clearance-margin components, clamped and rounded.
func Score(c viewshed.AnalyzedCandidate, opts Options) uint8 {
	total := obstructionComponent(c) + elevationComponent(c) + proximityComponent(c, opts) + clearanceMarginComponent(c)

	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	return uint8(math.Round(total))
}

func obstructionComponent(c viewshed.AnalyzedCandidate) float64 {
	if c.IsClear {
		v := 40 + 4*(-c.ObstructionAngleDeg)
		return clamp(v, 0, 40)
	}
	v := 20 - 4*c.ObstructionAngleDeg
	if v < 0 {
		v = 0
	}
	if v > 20 {
		v = 20
	}
	return v
}

func elevationComponent(c viewshed.AnalyzedCandidate) float64 {
	return 30 * math.Min(c.ElevationM/1000, 1)
}

func proximityComponent(c viewshed.AnalyzedCandidate, opts Options) float64 {
	if opts.Center == nil || opts.MaxRadiusM <= 0 {
		return 10
	}
	d := geo.Haversine(*opts.Center, c.Point)
	return 15 * (1 - math.Min(d/opts.MaxRadiusM, 1))
}

func clearanceMarginComponent(c viewshed.AnalyzedCandidate) float64 {
	if c.ObstructionAngleDeg >= 0 {
		return 0
	}
	return math.Min(15, 5*math.Abs(c.ObstructionAngleDeg))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Rank scores every candidate in list, sorts descending by score, and
// assigns a dense rank (1..N, ties broken by input order).
func Rank(list []viewshed.AnalyzedCandidate, opts Options) []ScoredCandidate {
	scored := make([]ScoredCandidate, len(list))
	for i, c := range list {
		scored[i] = ScoredCandidate{AnalyzedCandidate: c, Score: Score(c, opts)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	for i := range scored {
		scored[i].Rank = uint32(i + 1)
	}
	return scored
}

// Verdict renders a human-facing summary of a candidate's viewshed
// outcome.
func Verdict(c viewshed.AnalyzedCandidate) string {
	if c.IsClear {
		return fmt.Sprintf("Unobstructed sunset view from %sm elevation", formatMeters(c.ElevationM))
	}
	return fmt.Sprintf("Blocked by terrain %s away (%s° obstruction)",
		formatDistance(c.MaxBlockerDistanceM), formatDegrees(c.ObstructionAngleDeg))
}

func formatDistance(m float64) string {
	if m < 1000 {
		return fmt.Sprintf("%sm", formatMeters(m))
	}
	return fmt.Sprintf("%.1fkm", m/1000)
}

func formatMeters(m float64) string {
	return humanize.Comma(int64(math.Round(m)))
}

func formatDegrees(deg float64) string {
	return fmt.Sprintf("%.1f", deg)
}

// ColorBand maps a score to the hex color used to render it.
func ColorBand(score uint8) string {
	switch {
	case score >= 80:
		return "#22c55e" // green
	case score >= 55:
		return "#eab308" // yellow
	case score >= 35:
		return "#f97316" // orange
	default:
		return "#ef4444" // red
	}
}
