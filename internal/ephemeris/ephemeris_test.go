package ephemeris

import (
	"math"
	"testing"
	"time"
)

func TestTimeAtAltitudeHorizonOrdering(t *testing.T) {
	refTime := time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC)
	c, err := TimeAtAltitude(refTime, 45.5231, -122.6765, HorizonAltitudeDeg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !c.Morning.Before(c.Evening) {
		t.Errorf("expected sunrise before sunset, got rise=%v set=%v", c.Morning, c.Evening)
	}

	noon := SolarNoonTime(refTime, -122.6765)
	if !c.Morning.Before(noon) || !noon.Before(c.Evening) {
		t.Errorf("expected sunrise < solar noon < sunset, got rise=%v noon=%v set=%v", c.Morning, noon, c.Evening)
	}
}

func TestTimeAtAltitudePolarNight(t *testing.T) {
	refTime := time.Date(2024, 12, 21, 12, 0, 0, 0, time.UTC)
	_, err := TimeAtAltitude(refTime, 75.0, 25.0, HorizonAltitudeDeg)
	if err == nil {
		t.Fatal("expected ErrNeverReaches for polar night at 75N on winter solstice")
	}
	if _, ok := err.(ErrNeverReaches); !ok {
		t.Errorf("expected ErrNeverReaches, got %T", err)
	}
}

func TestSummerSunsetAzimuthExceedsEquinox(t *testing.T) {
	lat, lng := 45.5231, -122.6765

	solstice := time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC)
	equinox := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

	solsticeSet, err := TimeAtAltitude(solstice, lat, lng, HorizonAltitudeDeg)
	if err != nil {
		t.Fatal(err)
	}
	equinoxSet, err := TimeAtAltitude(equinox, lat, lng, HorizonAltitudeDeg)
	if err != nil {
		t.Fatal(err)
	}

	solsticePos := PositionAt(solsticeSet.Evening, lat, lng)
	equinoxPos := PositionAt(equinoxSet.Evening, lat, lng)

	solsticeCompass := fixAngle(solsticePos.AzimuthSouthRefDeg + 180)
	equinoxCompass := fixAngle(equinoxPos.AzimuthSouthRefDeg + 180)

	if solsticeCompass <= equinoxCompass {
		t.Errorf("solstice sunset azimuth (%.2f) should exceed equinox (%.2f)", solsticeCompass, equinoxCompass)
	}

	for _, az := range []float64{solsticeCompass, equinoxCompass} {
		if az <= 180 || az >= 360 {
			t.Errorf("sunset azimuth %.2f should be in (180, 360)", az)
		}
	}
}

func TestPositionAtAltitudeRange(t *testing.T) {
	pos := PositionAt(time.Date(2024, 6, 21, 20, 0, 0, 0, time.UTC), 45.5, -122.6)
	if pos.AltitudeDeg < -90 || pos.AltitudeDeg > 90 {
		t.Errorf("altitude out of range: %v", pos.AltitudeDeg)
	}
	if pos.AzimuthSouthRefDeg < 0 || pos.AzimuthSouthRefDeg >= 360 {
		t.Errorf("azimuth out of range: %v", pos.AzimuthSouthRefDeg)
	}
}

func TestEquationOfTimeMagnitude(t *testing.T) {
	// Equation of time never exceeds about 17 minutes in magnitude.
	for m := 1; m <= 12; m++ {
		tm := time.Date(2024, time.Month(m), 15, 12, 0, 0, 0, time.UTC)
		e := equationOfTime(tm)
		if math.Abs(e) > 20 {
			t.Errorf("month %d: equation of time %.2f exceeds expected bound", m, e)
		}
	}
}
