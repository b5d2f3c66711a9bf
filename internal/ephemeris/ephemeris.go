// Package ephemeris implements low-level solar position and sun-time
// math: apparent solar coordinates, instantaneous altitude/azimuth, and
// a generalized hour-angle solver used to find the moment the sun
// crosses an arbitrary altitude (horizon, civil twilight, golden hour).
//
// Julian Day conversion is delegated to github.com/soniakeys/meeus/v3/
// julian; everything above that (solar coordinates, hour angle, rise/
// set solving) is implemented directly, following the same formula
// family the teacher already used for clear-sky solar radiation.
package ephemeris

import (
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// Standard altitude thresholds, in degrees, for the named sun events.
const (
	HorizonAltitudeDeg       = -0.833 // apparent sunrise/sunset (atmospheric refraction + solar radius)
	CivilTwilightAltitudeDeg = -6.0   // dawn/dusk
	GoldenHourAltitudeDeg    = 6.0    // golden hour boundary
)

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }
func radToDeg(rad float64) float64 { return rad * 180.0 / math.Pi }

// fixAngle normalizes an angle to [0, 360) degrees.
func fixAngle(angle float64) float64 {
	a := math.Mod(angle, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// equationOfTime returns the Equation of Time in minutes: the
// difference between apparent and mean solar time at t.
func equationOfTime(t time.Time) float64 {
	jd := julian.TimeToJD(t)
	T := (jd - 2451545.0) / 36525.0

	L0 := fixAngle(280.46646 + T*(36000.76983+T*0.0003032))
	M := fixAngle(357.52911 + T*(35999.05029-T*0.0001537))
	e := 0.016708634 - T*(0.000042037+T*0.0000001267)
	eps0 := 23 + (26+(21.448-T*(46.815+T*(0.00059-T*0.001813)))/60)/60

	y := math.Tan(degToRad(eps0)/2) * math.Tan(degToRad(eps0)/2)
	eqTimeMin := radToDeg(y*math.Sin(degToRad(2*L0))-
		2*e*math.Sin(degToRad(M))+
		4*e*y*math.Sin(degToRad(M))*math.Cos(degToRad(2*L0))-
		0.5*y*y*math.Sin(degToRad(4*L0))-
		1.25*e*e*math.Sin(degToRad(2*M))) * 4

	return eqTimeMin
}

// solarDeclination returns the solar declination in degrees for the
// given UTC time.
func solarDeclination(t time.Time) float64 {
	n := float64(t.UTC().YearDay())
	inner := degToRad(356.6 + 0.9856*n)
	outer := degToRad(278.97 + 0.9856*n + 1.9165*math.Sin(inner))
	return radToDeg(math.Asin(0.39785 * math.Sin(outer)))
}

// Position is the sun's apparent position at a given instant.
type Position struct {
	AzimuthSouthRefDeg float64 // azimuth measured from south, increasing westward
	AltitudeDeg        float64 // degrees above (+) or below (-) the horizon
}

// PositionAt computes the sun's apparent position at time t for the
// given latitude/longitude (degrees, longitude positive east).
func PositionAt(t time.Time, lat, lng float64) Position {
	decl := degToRad(solarDeclination(t))
	latRad := degToRad(lat)

	utcMin := float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60.0
	eqTime := equationOfTime(t)
	trueSolarTime := utcMin + 4*lng + eqTime
	hourAngleDeg := trueSolarTime/4 - 180
	H := degToRad(hourAngleDeg)

	cosZen := math.Sin(latRad)*math.Sin(decl) + math.Cos(latRad)*math.Cos(decl)*math.Cos(H)
	cosZen = math.Max(-1, math.Min(1, cosZen))
	zenith := math.Acos(cosZen)
	altitude := 90 - radToDeg(zenith)

	azNum := math.Sin(H)
	azDen := math.Cos(H)*math.Sin(latRad) - math.Tan(decl)*math.Cos(latRad)
	azimuth := radToDeg(math.Atan2(azNum, azDen))

	return Position{
		AzimuthSouthRefDeg: fixAngle(azimuth),
		AltitudeDeg:        altitude,
	}
}

// ErrNeverReaches indicates the sun never crosses the requested
// altitude on the given day at the given latitude (polar day/night).
type ErrNeverReaches struct {
	AltitudeDeg float64
}

func (e ErrNeverReaches) Error() string {
	return fmt.Sprintf("sun never crosses altitude %.3f° at this latitude/date", e.AltitudeDeg)
}

// Crossing holds the UTC time the sun crosses a target altitude in the
// morning (rising through the threshold) and evening (falling through
// it), for the local noon date implied by refTime/lat/lng.
type Crossing struct {
	Morning time.Time
	Evening time.Time
}

// TimeAtAltitude finds, for the day containing refTime (interpreted at
// local solar noon for lng), the UTC instants the sun crosses
// targetAltitudeDeg going up (morning) and down (evening).
//
// This generalizes the horizon-only hour angle formula
// cos(H) = -tan(φ)·tan(δ) to an arbitrary target altitude h0 via
// cos(H) = (sin(h0) - sin(φ)sin(δ)) / (cos(φ)cos(δ)), which reduces to
// the horizon formula exactly when h0 = 0.
func TimeAtAltitude(refTime time.Time, lat, lng, targetAltitudeDeg float64) (Crossing, error) {
	decl := degToRad(solarDeclination(refTime))
	latRad := degToRad(lat)
	h0 := degToRad(targetAltitudeDeg)

	cosH := (math.Sin(h0) - math.Sin(latRad)*math.Sin(decl)) / (math.Cos(latRad) * math.Cos(decl))
	if cosH < -1 || cosH > 1 {
		return Crossing{}, ErrNeverReaches{AltitudeDeg: targetAltitudeDeg}
	}

	hourAngleDeg := radToDeg(math.Acos(cosH))
	eqTime := equationOfTime(refTime)

	solarNoonUTCMin := 720.0 - 4*lng - eqTime
	riseUTCMin := solarNoonUTCMin - hourAngleDeg*4
	setUTCMin := solarNoonUTCMin + hourAngleDeg*4

	dayStart := time.Date(refTime.Year(), refTime.Month(), refTime.Day(), 0, 0, 0, 0, time.UTC)
	return Crossing{
		Morning: minutesToTime(dayStart, riseUTCMin),
		Evening: minutesToTime(dayStart, setUTCMin),
	}, nil
}

// SolarNoonTime returns the UTC instant of local solar noon for the
// day containing refTime at the given longitude.
func SolarNoonTime(refTime time.Time, lng float64) time.Time {
	eqTime := equationOfTime(refTime)
	solarNoonUTCMin := 720.0 - 4*lng - eqTime
	dayStart := time.Date(refTime.Year(), refTime.Month(), refTime.Day(), 0, 0, 0, 0, time.UTC)
	return minutesToTime(dayStart, solarNoonUTCMin)
}

// minutesToTime adds a (possibly negative, possibly >1440) number of
// minutes from midnight to dayStart, wrapping across day boundaries.
func minutesToTime(dayStart time.Time, minutes float64) time.Time {
	return dayStart.Add(time.Duration(minutes * float64(time.Minute)))
}
