// Package main provides a one-shot command-line runner for the
// sunset/sunrise viewpoint finder.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/yourusername/sunviewfinder/internal/elevation"
	"github.com/yourusername/sunviewfinder/internal/geo"
	"github.com/yourusername/sunviewfinder/internal/log"
	"github.com/yourusername/sunviewfinder/internal/pipeline"
	"github.com/yourusername/sunviewfinder/internal/scorer"
	"github.com/yourusername/sunviewfinder/pkg/config"
	"github.com/yourusername/sunviewfinder/pkg/solar"
)

func main() {
	lat := flag.Float64("lat", 0, "search center latitude, degrees")
	lng := flag.Float64("lng", 0, "search center longitude, degrees")
	radiusM := flag.Float64("radius", 0, "search radius in meters")
	mode := flag.String("mode", "sunset", "\"sunset\" or \"sunrise\"")
	dateStr := flag.String("date", "", "local-noon date, RFC3339 (defaults to today)")
	top := flag.Int("top", 10, "number of top candidates to print")
	cfgFile := flag.String("config", "sunviewfinder.yaml", "path to YAML configuration file")
	debug := flag.Bool("debug", false, "turn on debug logging")
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *radiusM <= 0 {
		fmt.Fprintln(os.Stderr, "-radius must be positive")
		os.Exit(1)
	}

	date := time.Now()
	if *dateStr != "" {
		parsed, err := time.Parse(time.RFC3339, *dateStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -date: %v\n", err)
			os.Exit(1)
		}
		date = parsed
	}

	cfgProvider := config.NewYAMLProvider(*cfgFile)
	cfgData, err := cfgProvider.LoadConfig()
	if err != nil {
		log.Errorf("failed to load configuration: %v", err)
		os.Exit(1)
	}

	elevationSvc, err := buildElevationService(cfgData.Elevation)
	if err != nil {
		log.Errorf("failed to set up elevation service: %v", err)
		os.Exit(1)
	}

	pipe := pipeline.New(elevationSvc, log.GetSugaredLogger())

	opts := pipeline.Options{
		Center:      geo.Coordinate{Lat: *lat, Lng: *lng},
		RadiusM:     *radiusM,
		Date:        date,
		Mode:        solar.Mode(*mode),
		SpacingM:    cfgData.Defaults.SpacingM,
		Concurrency: cfgData.Defaults.Concurrency,
	}

	out, err := pipe.Run(context.Background(), opts, func(percent int, message string) {
		fmt.Fprintf(os.Stderr, "\r[%3d%%] %-40s", percent, message)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Errorf("pipeline run failed: %v", err)
		os.Exit(1)
	}

	printResults(out, *top)
}

func buildElevationService(cfg config.ElevationProviderConfig) (*elevation.Service, error) {
	sugared := log.GetSugaredLogger()

	if cfg.UseTileStrategy && cfg.TileURLTemplate != "" {
		resolver := elevation.NewTileResolver(cfg.TileURLTemplate, sugared)
		return elevation.NewService(resolver, sugared), nil
	}

	if cfg.PrimaryEndpoint == "" {
		return nil, fmt.Errorf("no elevation provider configured: set elevation.primary_endpoint or elevation.tile_url_template")
	}

	resolver := elevation.NewProviderResolver(cfg.PrimaryEndpoint, cfg.FallbackEndpoint, sugared)
	resolver.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	return elevation.NewService(resolver, sugared), nil
}

func printResults(out *pipeline.Output, top int) {
	fmt.Printf("Run %s (%s)\n", out.RunID, out.SunData.Mode)
	fmt.Printf("Target time: %s  Azimuth: %.1f deg  Altitude: %.1f deg\n",
		solar.FormatSunTime(out.SunData.TargetTime, out.SunData.TargetTime.Location()),
		out.SunData.AzimuthDeg, out.SunData.AltitudeDeg)
	fmt.Println()

	n := top
	if n <= 0 || n > len(out.Ranked) {
		n = len(out.Ranked)
	}
	for i := 0; i < n; i++ {
		c := out.Ranked[i]
		fmt.Printf("#%-3d score=%-3d (%.5f, %.5f) elev=%.0fm - %s\n",
			c.Rank, c.Score, c.Point.Lat, c.Point.Lng, c.ElevationM, scorer.Verdict(c.AnalyzedCandidate))
	}
}
