// Package main implements the connection-test CLI tool for verifying
// Copernicus Data Space access before trusting a full analysis run.
//
// Usage:
//
//	go run ./cmd/tools/connection-test \
//	  --client-id=<id> --client-secret=<secret> \
//	  --boundary=boundary.geojson
//
// Environment variables (used as defaults when flags are not set):
//
//	CDSE_CLIENT_ID      - Copernicus Data Space OAuth client ID
//	CDSE_CLIENT_SECRET  - Copernicus Data Space OAuth client secret
//	BOUNDARY_FILE       - GeoJSON boundary file path
//
// The tool runs four checks in order: OAuth authentication, a catalog search
// over the last 30 days, boundary file readability, and a coarse composite
// fetch with a mean NDVI sanity check. The boundary check is advisory; the
// others exit 1 on failure.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"forestwatch/internal/config"
	"forestwatch/internal/external"
	"forestwatch/internal/raster"
	"forestwatch/internal/region"
	"forestwatch/internal/types"
)

func main() {
	// Flags
	clientID := flag.String("client-id", os.Getenv("CDSE_CLIENT_ID"), "CDSE OAuth client ID (or CDSE_CLIENT_ID env)")
	clientSecret := flag.String("client-secret", os.Getenv("CDSE_CLIENT_SECRET"), "CDSE OAuth client secret (or CDSE_CLIENT_SECRET env)")
	boundary := flag.String("boundary", os.Getenv("BOUNDARY_FILE"), "GeoJSON boundary file (or BOUNDARY_FILE env)")
	days := flag.Int("days", 30, "Catalog search lookback in days")
	cloud := flag.Float64("cloud", 30, "Max cloud cover percent for the catalog search")
	scale := flag.Float64("scale", 100, "Composite resolution in meters (coarse keeps the probe cheap)")
	west := flag.Float64("west", -95.5, "Bounding box west longitude")
	south := flag.Float64("south", 47.1, "Bounding box south latitude")
	east := flag.Float64("east", -94.0, "Bounding box east longitude")
	north := flag.Float64("north", 48.3, "Bounding box north latitude")
	timeout := flag.Duration("timeout", 2*time.Minute, "HTTP timeout per upstream call")

	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	rule := strings.Repeat("=", 50)
	fmt.Println(rule)
	fmt.Println("FORESTWATCH - Connection Test")
	fmt.Println(rule)

	// Validate required flags
	if *clientID == "" || *clientSecret == "" {
		fmt.Println("\nFAIL: --client-id and --client-secret are required")
		fmt.Println("Register an OAuth client at https://dataspace.copernicus.eu and export")
		fmt.Println("CDSE_CLIENT_ID / CDSE_CLIENT_SECRET, or pass the flags directly.")
		os.Exit(1)
	}

	regionCfg := config.RegionConfig{
		BBoxWest:  *west,
		BBoxSouth: *south,
		BBoxEast:  *east,
		BBoxNorth: *north,
	}
	area, err := region.Resolve(regionCfg, "")
	if err != nil {
		fmt.Printf("\nFAIL: invalid bounding box: %v\n", err)
		os.Exit(1)
	}

	client := external.NewCopernicusClient(
		&http.Client{Timeout: *timeout},
		external.CopernicusConfig{
			ClientID:     *clientID,
			ClientSecret: *clientSecret,
			ScaleMeters:  *scale,
			Logger:       logger,
		},
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 1. Authentication.
	fmt.Println("\n1. Testing Copernicus authentication...")
	expiry, err := client.Authenticate(ctx)
	if err != nil {
		fmt.Printf("   FAIL: authentication failed: %v\n", err)
		fmt.Println("   Check the client ID and secret; CDSE secrets expire and may need rotation.")
		os.Exit(1)
	}
	fmt.Printf("   ok: token issued, expires %s\n", expiry.UTC().Format(time.RFC3339))

	// 2. Catalog search over the recent window.
	fmt.Printf("\n2. Testing Sentinel-2 catalog access (last %d days, cloud < %.0f%%)...\n", *days, *cloud)
	now := time.Now().UTC()
	window := types.DateWindow{Start: now.AddDate(0, 0, -*days), End: now}
	count, err := client.SearchScenes(ctx, area, window, *cloud)
	if err != nil {
		fmt.Printf("   FAIL: catalog search failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("   ok: found %d qualifying scenes\n", count)
	if count > 0 {
		latest, err := client.LatestScene(ctx, area, window, *cloud)
		if err != nil {
			fmt.Printf("   FAIL: latest scene lookup failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("   ok: most recent capture %s\n", latest.UTC().Format("2006-01-02"))
	}

	// 3. Boundary file. Advisory only: the bounding box serves when the
	// file is missing or unusable.
	fmt.Println("\n3. Testing boundary file...")
	switch {
	case *boundary == "":
		fmt.Println("   warn: no boundary file configured, analysis will use the bounding box")
	default:
		resolved, err := region.Resolve(regionCfg, *boundary)
		if err != nil || resolved.Source != types.RegionSourceBoundaryFile {
			fmt.Printf("   warn: boundary file unusable (%v), analysis will use the bounding box\n", err)
		} else {
			fmt.Printf("   ok: loaded %s boundary from %s\n", resolved.Geometry.GeoJSONType(), *boundary)
		}
	}

	// 4. Composite fetch and NDVI sanity check.
	fmt.Printf("\n4. Testing composite fetch and NDVI (%gm resolution)...\n", *scale)
	if count == 0 {
		fmt.Println("   skipped: no qualifying scenes to composite")
	} else {
		comp, err := client.FetchComposite(ctx, area, window, *cloud)
		if err != nil {
			fmt.Printf("   FAIL: composite fetch failed: %v\n", err)
			os.Exit(1)
		}
		ndvi, err := raster.NormalizedDifference(comp, "B08", "B04")
		if err != nil {
			fmt.Printf("   FAIL: NDVI computation failed: %v\n", err)
			os.Exit(1)
		}
		mean, n := ndvi.Mean()
		if n == 0 {
			fmt.Println("   warn: composite contains no data pixels")
		} else {
			fmt.Printf("   ok: mean NDVI %.3f over %d pixels\n", mean, n)
			if mean > 0.3 {
				fmt.Println("   ok: healthy vegetation signal (NDVI > 0.3)")
			} else {
				fmt.Println("   warn: low vegetation signal, may be winter or snow cover")
			}
		}
	}

	fmt.Println("\n" + rule)
	fmt.Println("ALL CHECKS PASSED - Ready to run full analysis")
	fmt.Println(rule)
	fmt.Println("\nNext step: run ./cmd/analyzer to generate the alert document.")
}
