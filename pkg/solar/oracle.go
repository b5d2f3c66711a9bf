// Package solar exposes the Solar Oracle: a thin wrapper over the
// internal/ephemeris math that produces the SunData a caller actually
// wants for a given mode (sunset or sunrise), at a given location and
// local-noon date.
package solar

import (
	"fmt"
	"time"

	"github.com/yourusername/sunviewfinder/internal/ephemeris"
)

// Mode selects which horizon crossing the oracle treats as the primary
// target event.
type Mode string

const (
	ModeSunset  Mode = "sunset"
	ModeSunrise Mode = "sunrise"
)

// SunData is the full solar picture for one (location, date, mode)
// query. Azimuth follows compass convention: 0 = true north, increasing
// clockwise.
type SunData struct {
	Mode            Mode
	TargetTime      time.Time
	SunriseTime     time.Time
	SunsetTime      time.Time
	GoldenHourStart time.Time
	GoldenHourEnd   time.Time
	SolarNoon       time.Time
	Dawn            time.Time
	Dusk            time.Time
	AzimuthDeg      float64 // compass bearing, [0, 360)
	AltitudeDeg     float64
}

// ComputeSunData returns SunData for lat/lng at local-noon date,
// evaluated for mode. date's time-of-day component is ignored; only its
// calendar day, read in date's own location, matters, and the sun is
// computed for 12:00 UTC on that day.
func ComputeSunData(mode Mode, lat, lng float64, date time.Time) (SunData, error) {
	if mode != ModeSunset && mode != ModeSunrise {
		return SunData{}, fmt.Errorf("solar: unknown mode %q", mode)
	}

	noon := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, time.UTC)

	horizon, err := ephemeris.TimeAtAltitude(noon, lat, lng, ephemeris.HorizonAltitudeDeg)
	if err != nil {
		return SunData{}, fmt.Errorf("solar: %w", err)
	}
	golden, err := ephemeris.TimeAtAltitude(noon, lat, lng, ephemeris.GoldenHourAltitudeDeg)
	if err != nil {
		return SunData{}, fmt.Errorf("solar: %w", err)
	}
	twilight, err := ephemeris.TimeAtAltitude(noon, lat, lng, ephemeris.CivilTwilightAltitudeDeg)
	if err != nil {
		return SunData{}, fmt.Errorf("solar: %w", err)
	}

	sunData := SunData{
		Mode:        mode,
		SunriseTime: horizon.Morning,
		SunsetTime:  horizon.Evening,
		SolarNoon:   ephemeris.SolarNoonTime(noon, lng),
		Dawn:        twilight.Morning,
		Dusk:        twilight.Evening,
	}

	switch mode {
	case ModeSunset:
		sunData.TargetTime = horizon.Evening
		sunData.GoldenHourStart = golden.Evening
		sunData.GoldenHourEnd = horizon.Evening
	case ModeSunrise:
		sunData.TargetTime = horizon.Morning
		sunData.GoldenHourStart = horizon.Morning
		sunData.GoldenHourEnd = golden.Morning
	}

	pos := ephemeris.PositionAt(sunData.TargetTime, lat, lng)
	sunData.AzimuthDeg = toCompassBearing(pos.AzimuthSouthRefDeg)
	sunData.AltitudeDeg = pos.AltitudeDeg

	return sunData, nil
}

// toCompassBearing converts a south-referenced, west-increasing azimuth
// (the convention most solar-position formulas emit) to a compass
// bearing with 0 = true north, increasing clockwise.
func toCompassBearing(southRefDeg float64) float64 {
	b := southRefDeg + 180
	if b >= 360 {
		b -= 360
	}
	if b < 0 {
		b += 360
	}
	return b
}

// FormatSunTime renders t in loc as a 12-hour clock string, e.g. "7:42 PM".
// Returns "" for the zero time.
func FormatSunTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format("3:04 PM")
}
