// Package viewshed determines, for each candidate ground point, how
// much terrain stands between it and the sun at the moment it crosses
// the horizon: a two-phase ray-cast along the solar azimuth followed by
// an obstruction-angle sweep.
package viewshed

import "github.com/yourusername/sunviewfinder/internal/geo"

// Candidate is an elevated grid point that survived elevation
// resolution and is eligible for ray-casting.
type Candidate struct {
	Point      geo.Coordinate
	ElevationM float64
}

// RaySample is one terrain sample taken along the solar azimuth from a
// candidate, at a fixed nominal distance.
type RaySample struct {
	Point      geo.Coordinate
	DistanceM  float64 // nominal spacing index, not a recomputed haversine
	ElevationM float64
}

// Obstruction is the result of sweeping a candidate's ray samples.
type Obstruction struct {
	ObstructionAngleDeg  float64
	MaxBlockerDistanceM  float64
	MaxBlockerElevationM float64
	IsClear              bool
}

// ViewQuality classifies a candidate's obstruction outcome for
// presentation.
type ViewQuality string

const (
	ViewClear      ViewQuality = "clear"
	ViewObstructed ViewQuality = "obstructed"
)

// AnalyzedCandidate merges an input Candidate with its Obstruction and
// the solar context it was evaluated against. Score and rank (§4.6)
// are not set here.
type AnalyzedCandidate struct {
	Candidate
	Obstruction
	SunAzimuthDeg  float64
	SunAltitudeDeg float64
	ViewQuality    ViewQuality
}

// Options tunes the ray-cast. Zero values are replaced by the package
// defaults in Analyze.
type Options struct {
	RaySampleSpacingM  float64
	RayMaxDistanceM    float64
	CurvatureThreshold float64
	HorizonMarginDeg   float64
}

// Default ray-casting tuning for a pipeline run.
const (
	DefaultRaySampleSpacingM  = 300.0
	DefaultRayMaxDistanceM    = 8000.0
	DefaultCurvatureThreshold = 2000.0
	DefaultHorizonMarginDeg   = 0.5
)

func (o Options) withDefaults() Options {
	if o.RaySampleSpacingM <= 0 {
		o.RaySampleSpacingM = DefaultRaySampleSpacingM
	}
	if o.RayMaxDistanceM <= 0 {
		o.RayMaxDistanceM = DefaultRayMaxDistanceM
	}
	if o.CurvatureThreshold <= 0 {
		o.CurvatureThreshold = DefaultCurvatureThreshold
	}
	if o.HorizonMarginDeg <= 0 {
		o.HorizonMarginDeg = DefaultHorizonMarginDeg
	}
	return o
}
