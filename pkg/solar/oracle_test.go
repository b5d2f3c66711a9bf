package solar

import (
	"testing"
	"time"
)

func TestComputeSunDataSunsetOrdering(t *testing.T) {
	date := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	data, err := ComputeSunData(ModeSunset, 45.5231, -122.6765, date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !data.Dawn.Before(data.SunriseTime) {
		t.Errorf("dawn should precede sunrise: dawn=%v sunrise=%v", data.Dawn, data.SunriseTime)
	}
	if !data.SunriseTime.Before(data.SolarNoon) {
		t.Errorf("sunrise should precede solar noon")
	}
	if !data.SolarNoon.Before(data.GoldenHourStart) {
		t.Errorf("solar noon should precede evening golden hour start")
	}
	if !data.GoldenHourStart.Before(data.SunsetTime) {
		t.Errorf("golden hour start should precede sunset")
	}
	if !data.SunsetTime.Before(data.Dusk) {
		t.Errorf("sunset should precede dusk")
	}

	if data.TargetTime != data.SunsetTime {
		t.Errorf("sunset mode target_time should equal sunset_time")
	}
	if data.GoldenHourEnd != data.SunsetTime {
		t.Errorf("sunset mode golden_hour_end should equal sunset_time")
	}
}

func TestComputeSunDataSunriseOrdering(t *testing.T) {
	date := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	data, err := ComputeSunData(ModeSunrise, 45.5231, -122.6765, date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if data.TargetTime != data.SunriseTime {
		t.Errorf("sunrise mode target_time should equal sunrise_time")
	}
	if data.GoldenHourStart != data.SunriseTime {
		t.Errorf("sunrise mode golden_hour_start should equal sunrise_time")
	}
	if !data.GoldenHourStart.Before(data.GoldenHourEnd) {
		t.Errorf("golden hour start should precede golden hour end")
	}
}

func TestComputeSunDataAzimuthInCompassRange(t *testing.T) {
	date := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	data, err := ComputeSunData(ModeSunset, 51.5074, -0.1278, date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if data.AzimuthDeg < 0 || data.AzimuthDeg >= 360 {
		t.Errorf("azimuth %v out of compass range [0,360)", data.AzimuthDeg)
	}
	// At sunset in the northern hemisphere the sun sits in the western sky.
	if data.AzimuthDeg < 180 || data.AzimuthDeg > 360 {
		t.Errorf("expected sunset azimuth in western half of compass, got %v", data.AzimuthDeg)
	}
}

func TestComputeSunDataInvalidMode(t *testing.T) {
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := ComputeSunData(Mode("midday"), 0, 0, date); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestComputeSunDataPolarNightError(t *testing.T) {
	date := time.Date(2024, 12, 21, 0, 0, 0, 0, time.UTC)
	if _, err := ComputeSunData(ModeSunset, 78.0, 15.0, date); err == nil {
		t.Error("expected error for polar night at high latitude on winter solstice")
	}
}

func TestToCompassBearing(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 180}, {180, 0}, {-180, 0}, {90, 270}, {270, 90}, {359, 179},
	}
	for _, tt := range tests {
		if got := toCompassBearing(tt.in); got != tt.want {
			t.Errorf("toCompassBearing(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatSunTime(t *testing.T) {
	if got := FormatSunTime(time.Time{}, time.UTC); got != "" {
		t.Errorf("expected empty string for zero time, got %q", got)
	}

	tm := time.Date(2024, 6, 21, 19, 5, 0, 0, time.UTC)
	if got := FormatSunTime(tm, time.UTC); got != "7:05 PM" {
		t.Errorf("FormatSunTime = %q, want %q", got, "7:05 PM")
	}
}
