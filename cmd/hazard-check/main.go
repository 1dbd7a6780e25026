// Command hazard-check fetches both hazard feeds once and prints the hazards
// near a location as JSON.
//
// Usage:
//
//	go run ./cmd/hazard-check -lat 37.3230 -lon -122.0322
//
// Without flags the LOCATION_LAT/LOCATION_LON settings are used, then
// Cupertino, CA. The exit status is 2 when a feed could not be reached.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/mr1hm/safespot-alerts/internal/alerts"
	"github.com/mr1hm/safespot-alerts/internal/config"
	"github.com/mr1hm/safespot-alerts/internal/ingestion"
	"github.com/mr1hm/safespot-alerts/internal/logging"
	"github.com/mr1hm/safespot-alerts/internal/models"
	"github.com/mr1hm/safespot-alerts/internal/severity"
)

var fallbackLocation = models.UserLocation{Latitude: 37.3230, Longitude: -122.0322}

type report struct {
	Location    models.UserLocation   `json:"location"`
	FetchedAt   time.Time             `json:"fetchedAt"`
	Earthquakes int                   `json:"earthquakes"`
	Alerts      int                   `json:"alerts"`
	Nearby      []models.NearbyHazard `json:"nearby"`
}

func main() {
	lat := flag.Float64("lat", 0, "latitude of the location to check")
	lon := flag.Float64("lon", 0, "longitude of the location to check")
	alt := flag.Float64("alt", 0, "altitude in metres")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.SetupTo(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	user := fallbackLocation
	switch {
	case isSet("lat") && isSet("lon"):
		user = models.UserLocation{Latitude: *lat, Longitude: *lon, Altitude: *alt}
	case cfg.Location.Set:
		user = models.UserLocation{Latitude: cfg.Location.Latitude, Longitude: cfg.Location.Longitude, Altitude: cfg.Location.Altitude}
	}

	os.Exit(run(cfg, user))
}

func isSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func run(cfg *config.Config, user models.UserLocation) int {
	scorer, err := severity.New(cfg.Severity.Model, cfg.Severity.Seed)
	if err != nil {
		slog.Error("severity model", "error", err)
		return 1
	}

	orchestrator := ingestion.NewOrchestrator(ingestion.Options{
		USGSURL:     cfg.Sources.USGSURL,
		NWSURL:      cfg.Sources.NWSURL,
		UserAgent:   cfg.Sources.UserAgent,
		Timeout:     cfg.Sources.FetchTimeout,
		MaxAttempts: cfg.Sources.MaxAttempts,
		BackoffBase: cfg.Sources.BackoffBase,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	snap, err := orchestrator.FetchAll(ctx)
	if err != nil {
		var netErr *ingestion.NetworkError
		if errors.As(err, &netErr) {
			slog.Error("feed unreachable", "source", netErr.Source, "attempts", netErr.Attempts, "error", netErr.Err)
			return 2
		}
		slog.Error("fetch failed", "error", err)
		return 1
	}

	store := alerts.NewStore(scorer, false)
	store.SetUserLocation(user)
	if err := store.Begin(false); err != nil {
		slog.Error("store", "error", err)
		return 1
	}
	if err := store.Succeed(snap); err != nil {
		slog.Error("store", "error", err)
		return 1
	}

	out := report{
		Location:    user,
		FetchedAt:   snap.FetchedAt,
		Earthquakes: len(snap.Earthquakes),
		Alerts:      len(snap.Alerts),
		Nearby:      store.NearbyHazards(time.Now()),
	}
	if out.Nearby == nil {
		out.Nearby = []models.NearbyHazard{}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
