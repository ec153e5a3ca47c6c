// Package e2e drives the full analysis pipeline against in-process fixture
// services that speak the real Copernicus and vectorizer wire protocols:
// OAuth token grants, STAC catalog searches, process-API GeoTIFF tiles, and
// bit-packed mask polygonization. Everything runs hermetically; no network
// access or credentials are needed.
package e2e

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/bits"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/klauspost/compress/zstd"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Window starts for the fixed run: REFERENCE_DATE=2024-06-30 with a 30-day
// lookback puts the baseline window at 2024-05-16..2024-05-31 and the
// current window at 2024-06-15..2024-06-30.
const (
	baselineFrom = "2024-05-16T00:00:00Z"
	currentFrom  = "2024-06-15T00:00:00Z"
)

// damagePolygon is the rectangle the vectorizer fixture traces for any
// non-empty mask. Roughly 390 m by 350 m at this latitude, comfortably
// above the high-severity cutoff.
func damagePolygon() orb.Polygon {
	return orb.Polygon{orb.Ring{
		{10.0010, 45.0010},
		{10.0055, 45.0010},
		{10.0055, 45.0045},
		{10.0010, 45.0045},
		{10.0010, 45.0010},
	}}
}

var zstdDecoder, _ = zstd.NewReader(nil)

// fixtureState configures the upstream fixtures for one scenario and
// records what the pipeline asked of them.
type fixtureState struct {
	mu sync.Mutex

	// Scenario knobs.
	baselineScenes int
	currentScenes  int
	quiet          bool // current composite identical to baseline

	// Recorded traffic.
	processCalls int
	maskCounts   []int // set pixels per polygonize call, in order

	tiffDir string
}

func newFixtureState(tiffDir string) *fixtureState {
	return &fixtureState{
		baselineScenes: 4,
		currentScenes:  6,
		tiffDir:        tiffDir,
	}
}

// handler serves both fixture services from one mux: the imagery provider
// (token, catalog, process) and the vectorizer (polygonize).
func (s *fixtureState) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", s.handleToken)
	mux.HandleFunc("/api/v1/catalog/1.0.0/search", s.handleCatalog)
	mux.HandleFunc("/api/v1/process", s.handleProcess)
	mux.HandleFunc("/v1/polygonize", s.handlePolygonize)
	return mux
}

func (s *fixtureState) handleToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"access_token":"e2e-token","token_type":"Bearer","expires_in":3600}`)
}

func (s *fixtureState) handleCatalog(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Datetime string `json:"datetime"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	matched := s.currentScenes
	if strings.HasPrefix(req.Datetime, baselineFrom) {
		matched = s.baselineScenes
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"context":{"matched":%d}}`, matched)
}

func (s *fixtureState) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input struct {
			Data []struct {
				DataFilter struct {
					TimeRange struct {
						From string `json:"from"`
					} `json:"timeRange"`
				} `json:"dataFilter"`
			} `json:"data"`
		} `json:"input"`
		Output struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"output"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Input.Data) == 0 {
		http.Error(w, "process request carries no data spec", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.processCalls++
	serial := s.processCalls
	quiet := s.quiet
	s.mu.Unlock()

	baseline := req.Input.Data[0].DataFilter.TimeRange.From == baselineFrom
	tiff, err := s.renderTIFF(serial, req.Output.Width, req.Output.Height, baseline || quiet)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/tiff")
	w.Write(tiff)
}

// renderTIFF produces a three-band float32 GeoTIFF. The healthy scene has
// uniform high NDVI; the disturbed scene flips red and NIR in a 2x2 block
// at the top-left corner, producing an index crash there and no change
// elsewhere.
func (s *fixtureState) renderTIFF(serial, width, height int, healthy bool) ([]byte, error) {
	n := width * height
	red := make([]float64, n)
	nir := make([]float64, n)
	swir := make([]float64, n)
	for i := 0; i < n; i++ {
		red[i] = 0.125
		nir[i] = 0.75
		swir[i] = 0.25
	}
	if !healthy && width >= 2 && height >= 2 {
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				i := y*width + x
				red[i] = 0.75
				nir[i] = 0.125
			}
		}
	}

	path := filepath.Join(s.tiffDir, fmt.Sprintf("tile-%d.tif", serial))
	ds, err := godal.Create(godal.GTiff, path, 3, godal.Float32, width, height)
	if err != nil {
		return nil, fmt.Errorf("creating fixture tiff: %w", err)
	}
	for i, band := range [][]float64{red, nir, swir} {
		if err := ds.Bands()[i].Write(0, 0, band, width, height); err != nil {
			ds.Close()
			return nil, fmt.Errorf("writing fixture band: %w", err)
		}
	}
	if err := ds.Close(); err != nil {
		return nil, fmt.Errorf("closing fixture tiff: %w", err)
	}
	return os.ReadFile(path)
}

func (s *fixtureState) handlePolygonize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mask struct {
			Width    int    `json:"width"`
			Height   int    `json:"height"`
			Encoding string `json:"encoding"`
			Data     string `json:"data"`
		} `json:"mask"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Mask.Encoding != "zstd+bitpack" {
		http.Error(w, fmt.Sprintf("unsupported mask encoding %q", req.Mask.Encoding), http.StatusBadRequest)
		return
	}

	count, err := countMaskBits(req.Mask.Data, req.Mask.Width*req.Mask.Height)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.maskCounts = append(s.maskCounts, count)
	s.mu.Unlock()

	fc := geojson.NewFeatureCollection()
	if count > 0 {
		fc.Append(geojson.NewFeature(damagePolygon()))
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// countMaskBits decodes a base64 zstd bit-packed mask payload and counts
// the set pixels, verifying the payload covers exactly the advertised
// pixel count.
func countMaskBits(encoded string, pixels int) (int, error) {
	compressed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return 0, fmt.Errorf("mask payload is not base64: %w", err)
	}
	packed, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return 0, fmt.Errorf("mask payload is not zstd: %w", err)
	}
	if want := (pixels + 7) / 8; len(packed) != want {
		return 0, fmt.Errorf("mask payload is %d bytes, want %d for %d pixels", len(packed), want, pixels)
	}

	count := 0
	for _, b := range packed {
		count += bits.OnesCount8(b)
	}
	return count, nil
}
