// Package main runs the sunset/sunrise viewpoint finder as an HTTP
// service: submit a search, stream its progress, cancel it early.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/yourusername/sunviewfinder/internal/elevation"
	"github.com/yourusername/sunviewfinder/internal/httpapi"
	"github.com/yourusername/sunviewfinder/internal/log"
	"github.com/yourusername/sunviewfinder/internal/pipeline"
	"github.com/yourusername/sunviewfinder/pkg/config"
)

func main() {
	cfgFile := flag.String("config", "sunviewfinder.db", "path to SQLite configuration database")
	listenAddr := flag.String("listen", "0.0.0.0", "HTTP listen address")
	port := flag.Int("port", 8080, "HTTP listen port")
	debug := flag.Bool("debug", false, "turn on debug logging")
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	configProvider, err := createConfigProvider(*cfgFile)
	if err != nil {
		log.Errorf("failed to create config provider: %v", err)
		os.Exit(1)
	}
	defer configProvider.Close()

	cfgData, err := configProvider.LoadConfig()
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
	server := httpapi.NewServer(pipe, configProvider, log.GetSugaredLogger())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", *listenAddr, *port),
		Handler: server.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infof("sunview-server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("error during shutdown: %v", err)
	}
}

func createConfigProvider(cfgFile string) (config.ConfigProvider, error) {
	filename, _ := filepath.Abs(cfgFile)

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		log.Infof("configuration database does not exist; creating a fresh one at %s", filename)
	}

	provider, err := config.NewSQLiteProvider(filename)
	if err != nil {
		return nil, fmt.Errorf("error creating SQLite provider: %w", err)
	}

	if _, err := provider.LoadConfig(); err != nil {
		return nil, fmt.Errorf("error reading config database: %w", err)
	}

	return config.NewCachedProvider(provider, 30*time.Second), nil
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
