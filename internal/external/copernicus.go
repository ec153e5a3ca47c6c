package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"

	"forestwatch/internal/analysis"
	"forestwatch/internal/raster"
	"forestwatch/internal/types"
)

const (
	// cdseAPIBase is the Copernicus Data Space Ecosystem Sentinel Hub
	// endpoint. Overridable in tests via CopernicusConfig.BaseURL.
	cdseAPIBase  = "https://sh.dataspace.copernicus.eu"
	cdseTokenURL = "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token"

	defaultCollection = "sentinel-2-l2a"

	// maxTileDim caps a single process-API request at 2500 pixels per
	// side; larger extents are fetched as a grid of tiles.
	maxTileDim = 2500

	// metersPerDegreeLat converts degrees of latitude to ground meters.
	// Longitude degrees shrink by cos(latitude).
	metersPerDegreeLat = 111320.0
)

// medianEvalscript reduces every qualifying scene in the window to a
// per-pixel median of the three bands the indices need. ORBIT mosaicking
// hands evaluatePixel one sample per orbit; an empty sample list becomes
// a NaN no-data pixel.
const medianEvalscript = `//VERSION=3
function setup() {
  return {
    input: [{bands: ["B04", "B08", "B12"], units: "REFLECTANCE"}],
    output: {bands: 3, sampleType: "FLOAT32"},
    mosaicking: "ORBIT"
  };
}

function median(values) {
  values.sort(function (a, b) { return a - b; });
  var mid = Math.floor(values.length / 2);
  if (values.length % 2 === 1) {
    return values[mid];
  }
  return (values[mid - 1] + values[mid]) / 2;
}

function evaluatePixel(samples) {
  if (samples.length === 0) {
    return [NaN, NaN, NaN];
  }
  var red = [], nir = [], swir = [];
  for (var i = 0; i < samples.length; i++) {
    red.push(samples[i].B04);
    nir.push(samples[i].B08);
    swir.push(samples[i].B12);
  }
  return [median(red), median(nir), median(swir)];
}
`

// registerGDAL makes sure GDAL's raster drivers are registered before the
// first godal.Open call.
var registerGDAL sync.Once

// CopernicusConfig holds the configuration for creating a CopernicusClient.
type CopernicusConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string // Override for testing; defaults to cdseTokenURL
	BaseURL      string // Override for testing; defaults to cdseAPIBase
	Collection   string
	ScaleMeters  float64
	// TileConcurrency bounds how many process-API requests run at once
	// when an extent needs more than one tile.
	TileConcurrency int
	Logger          *slog.Logger
}

func (cfg *CopernicusConfig) applyDefaults() {
	if cfg.TokenURL == "" {
		cfg.TokenURL = cdseTokenURL
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = cdseAPIBase
	}
	if cfg.Collection == "" {
		cfg.Collection = defaultCollection
	}
	if cfg.ScaleMeters <= 0 {
		cfg.ScaleMeters = 30
	}
	if cfg.TileConcurrency < 1 {
		cfg.TileConcurrency = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}

// CopernicusClient fetches Sentinel-2 composites from the Copernicus Data
// Space Ecosystem. Scene availability goes through the STAC catalog;
// pixels come from the process API, tiled and stitched when the region
// exceeds the per-request size cap. All requests ride through BaseClient
// for retries and circuit breaking.
type CopernicusClient struct {
	base            *BaseClient
	creds           *clientcredentials.Config
	tokens          oauth2.TokenSource
	baseURL         string
	collection      string
	scaleMeters     float64
	tileConcurrency int
	logger          *slog.Logger
}

// NewCopernicusClient creates a CopernicusClient. The httpClient timeout
// bounds individual tile downloads, which can take tens of seconds for
// large extents.
func NewCopernicusClient(httpClient *http.Client, cfg CopernicusConfig) *CopernicusClient {
	cfg.applyDefaults()
	registerGDAL.Do(func() { godal.RegisterAll() })

	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}

	// Token refreshes reuse the same transport as the API calls.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)

	return &CopernicusClient{
		base:            NewBaseClient(httpClient, "copernicus", DefaultRetryPolicy()),
		creds:           creds,
		tokens:          creds.TokenSource(tokenCtx),
		baseURL:         strings.TrimSuffix(cfg.BaseURL, "/"),
		collection:      cfg.Collection,
		scaleMeters:     cfg.ScaleMeters,
		tileConcurrency: cfg.TileConcurrency,
		logger:          cfg.Logger,
	}
}

// NewCopernicusClientWithBase creates a CopernicusClient with a
// pre-configured BaseClient. This is useful for testing when you want to
// control retry behavior.
func NewCopernicusClientWithBase(base *BaseClient, cfg CopernicusConfig) *CopernicusClient {
	cfg.applyDefaults()
	registerGDAL.Do(func() { godal.RegisterAll() })

	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}

	return &CopernicusClient{
		base:            base,
		creds:           creds,
		tokens:          creds.TokenSource(context.Background()),
		baseURL:         strings.TrimSuffix(cfg.BaseURL, "/"),
		collection:      cfg.Collection,
		scaleMeters:     cfg.ScaleMeters,
		tileConcurrency: cfg.TileConcurrency,
		logger:          cfg.Logger,
	}
}

// Authenticate performs a fresh token fetch, bypassing the cached source,
// and returns the token expiry. The connection tool runs this as its
// first check.
func (c *CopernicusClient) Authenticate(ctx context.Context) (time.Time, error) {
	tok, err := c.creds.Token(ctx)
	if err != nil {
		return time.Time{}, mapTokenError(err)
	}
	return tok.Expiry, nil
}

// catalogSearchRequest is the STAC item-search body. The cloud filter is
// CQL2 JSON, the only filter language the CDSE catalog accepts for this
// property.
type catalogSearchRequest struct {
	Collections []string          `json:"collections"`
	BBox        [4]float64        `json:"bbox"`
	Datetime    string            `json:"datetime"`
	Filter      map[string]any    `json:"filter,omitempty"`
	FilterLang  string            `json:"filter-lang,omitempty"`
	Limit       int               `json:"limit"`
	SortBy      []catalogSortSpec `json:"sortby,omitempty"`
}

type catalogSortSpec struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// catalogSearchResponse carries the match count and any returned items.
// Older catalog versions report the count under context.matched, newer
// ones as numberMatched.
type catalogSearchResponse struct {
	Context *struct {
		Matched int `json:"matched"`
	} `json:"context"`
	NumberMatched *int             `json:"numberMatched"`
	Features      []catalogFeature `json:"features"`
}

// catalogFeature is the slice of a STAC item the client reads.
type catalogFeature struct {
	Properties struct {
		Datetime string `json:"datetime"`
	} `json:"properties"`
}

func cloudCoverFilter(maxPct float64) map[string]any {
	return map[string]any{
		"op": "<=",
		"args": []any{
			map[string]any{"property": "eo:cloud_cover"},
			maxPct,
		},
	}
}

// searchCatalog posts one STAC item-search request and decodes the
// response.
func (c *CopernicusClient) searchCatalog(ctx context.Context, reqBody catalogSearchRequest) (*catalogSearchResponse, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to serialize catalog search request",
			err,
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/catalog/1.0.0/search", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to create catalog search request",
			err,
		)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, c.wrapError("catalog search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp, "catalog search")
	}

	var searchResp catalogSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamBadPayload,
			"failed to decode catalog search response",
			err,
		)
	}
	return &searchResp, nil
}

// SearchScenes counts catalog entries for the collection that intersect
// the region during the window with cloud cover at or under maxCloudPct.
func (c *CopernicusClient) SearchScenes(ctx context.Context, region types.Region, window types.DateWindow, maxCloudPct float64) (int, error) {
	bound := region.Bound()
	searchResp, err := c.searchCatalog(ctx, catalogSearchRequest{
		Collections: []string{c.collection},
		BBox:        [4]float64{bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat()},
		Datetime:    fmt.Sprintf("%s/%s", window.Start.UTC().Format(time.RFC3339), window.End.UTC().Format(time.RFC3339)),
		Filter:      cloudCoverFilter(maxCloudPct),
		FilterLang:  "cql2-json",
		Limit:       1,
	})
	if err != nil {
		return 0, err
	}

	switch {
	case searchResp.Context != nil:
		return searchResp.Context.Matched, nil
	case searchResp.NumberMatched != nil:
		return *searchResp.NumberMatched, nil
	default:
		return 0, types.NewAppError(
			types.ErrCodeUpstreamBadPayload,
			"catalog search response carries no match count",
			nil,
		)
	}
}

// LatestScene returns the capture time of the newest scene qualifying for
// the window and cloud ceiling. The connection tool surfaces it so an
// operator can judge catalog freshness before trusting a full run.
func (c *CopernicusClient) LatestScene(ctx context.Context, region types.Region, window types.DateWindow, maxCloudPct float64) (time.Time, error) {
	bound := region.Bound()
	searchResp, err := c.searchCatalog(ctx, catalogSearchRequest{
		Collections: []string{c.collection},
		BBox:        [4]float64{bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat()},
		Datetime:    fmt.Sprintf("%s/%s", window.Start.UTC().Format(time.RFC3339), window.End.UTC().Format(time.RFC3339)),
		Filter:      cloudCoverFilter(maxCloudPct),
		FilterLang:  "cql2-json",
		Limit:       1,
		SortBy:      []catalogSortSpec{{Field: "properties.datetime", Direction: "desc"}},
	})
	if err != nil {
		return time.Time{}, err
	}

	if len(searchResp.Features) == 0 {
		return time.Time{}, types.NewAppError(
			types.ErrCodeDataUnavailable,
			fmt.Sprintf("no %s scenes under %.0f%% cloud cover for %s", c.collection, maxCloudPct, window),
			nil,
		)
	}

	ts, err := time.Parse(time.RFC3339, searchResp.Features[0].Properties.Datetime)
	if err != nil {
		return time.Time{}, types.NewAppError(
			types.ErrCodeUpstreamBadPayload,
			"catalog scene carries an unreadable capture timestamp",
			err,
		)
	}
	return ts, nil
}

// FetchComposite verifies scene availability through the catalog, then
// assembles a median composite of the red, NIR, and SWIR bands over the
// window. Tiles download concurrently and are stitched into full-extent
// grids; any tile failure aborts the whole fetch.
func (c *CopernicusClient) FetchComposite(ctx context.Context, region types.Region, window types.DateWindow, maxCloudPct float64) (*raster.Composite, error) {
	sceneCount, err := c.SearchScenes(ctx, region, window, maxCloudPct)
	if err != nil {
		return nil, err
	}
	if sceneCount == 0 {
		return nil, types.NewAppError(
			types.ErrCodeDataUnavailable,
			fmt.Sprintf("no %s scenes under %.0f%% cloud cover for %s", c.collection, maxCloudPct, window),
			nil,
		)
	}

	width, height, transform := pixelLayout(region.Bound(), c.scaleMeters)
	spans := tileSpans(width, height, maxTileDim)

	c.logger.InfoContext(ctx, "fetching composite",
		"window", window.String(),
		"scenes", sceneCount,
		"width", width,
		"height", height,
		"tiles", len(spans),
	)

	bands := map[string]*raster.Grid{
		raster.BandRed:  raster.NewGrid(width, height, transform),
		raster.BandNIR:  raster.NewGrid(width, height, transform),
		raster.BandSWIR: raster.NewGrid(width, height, transform),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.tileConcurrency)
	for _, span := range spans {
		span := span // capture per-iteration; go.mod targets go 1.21 loop semantics
		g.Go(func() error {
			tile, err := c.fetchTile(gctx, span, transform, window, maxCloudPct)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for name, grid := range tile {
				bands[name].Blit(grid, span.x, span.y)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &raster.Composite{Bands: bands, SceneCount: sceneCount, Window: window}, nil
}

type processRequest struct {
	Input      processInput  `json:"input"`
	Output     processOutput `json:"output"`
	Evalscript string        `json:"evalscript"`
}

type processInput struct {
	Bounds processBounds `json:"bounds"`
	Data   []processData `json:"data"`
}

type processBounds struct {
	BBox [4]float64 `json:"bbox"`
}

type processData struct {
	Type       string            `json:"type"`
	DataFilter processDataFilter `json:"dataFilter"`
}

type processDataFilter struct {
	TimeRange        processTimeRange `json:"timeRange"`
	MaxCloudCoverage float64          `json:"maxCloudCoverage"`
}

type processTimeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type processOutput struct {
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Responses []processResponse `json:"responses"`
}

type processResponse struct {
	Identifier string            `json:"identifier"`
	Format     map[string]string `json:"format"`
}

// fetchTile requests one tile of the composite from the process API and
// decodes the returned GeoTIFF. The tile's geographic bounds derive from
// the full-extent transform so stitched tiles line up exactly.
func (c *CopernicusClient) fetchTile(ctx context.Context, span tileSpan, full raster.GeoTransform, window types.DateWindow, maxCloudPct float64) (map[string]*raster.Grid, error) {
	west := full.OriginX + float64(span.x)*full.PixelWidth
	north := full.OriginY + float64(span.y)*full.PixelHeight
	east := west + float64(span.w)*full.PixelWidth
	south := north + float64(span.h)*full.PixelHeight

	reqBody := processRequest{
		Input: processInput{
			Bounds: processBounds{BBox: [4]float64{west, south, east, north}},
			Data: []processData{{
				Type: c.collection,
				DataFilter: processDataFilter{
					TimeRange: processTimeRange{
						From: window.Start.UTC().Format(time.RFC3339),
						To:   window.End.UTC().Format(time.RFC3339),
					},
					MaxCloudCoverage: maxCloudPct,
				},
			}},
		},
		Output: processOutput{
			Width:  span.w,
			Height: span.h,
			Responses: []processResponse{{
				Identifier: "default",
				Format:     map[string]string{"type": "image/tiff"},
			}},
		},
		Evalscript: medianEvalscript,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to serialize process request",
			err,
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/process", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to create process request",
			err,
		)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/tiff")
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, c.wrapError("process", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp, "process")
	}

	tiff, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamImagery,
			"imagery download interrupted",
			err,
		)
	}

	tileTransform := raster.GeoTransform{
		OriginX:     west,
		OriginY:     north,
		PixelWidth:  full.PixelWidth,
		PixelHeight: full.PixelHeight,
	}
	return decodeBandTIFF(tiff, span.w, span.h, tileTransform)
}

// decodeBandTIFF parses a three-band FLOAT32 GeoTIFF into grids keyed by
// band identifier. GDAL wants a file path, so the bytes land in a scratch
// file first.
func decodeBandTIFF(data []byte, width, height int, transform raster.GeoTransform) (map[string]*raster.Grid, error) {
	tmp, err := os.CreateTemp("", "forestwatch-tile-*.tif")
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to create scratch file for tile decode",
			err,
		)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to write scratch file for tile decode",
			err,
		)
	}
	if err := tmp.Close(); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to flush scratch file for tile decode",
			err,
		)
	}

	ds, err := godal.Open(tmpName, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return errors.New(msg)
	}))
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamBadPayload,
			"process response is not a readable GeoTIFF",
			err,
		)
	}
	defer ds.Close()

	gdalBands := ds.Bands()
	if len(gdalBands) != 3 {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamBadPayload,
			fmt.Sprintf("expected 3 bands in tile, got %d", len(gdalBands)),
			nil,
		)
	}

	names := []string{raster.BandRed, raster.BandNIR, raster.BandSWIR}
	grids := make(map[string]*raster.Grid, len(names))
	for i, name := range names {
		st := gdalBands[i].Structure()
		if st.SizeX != width || st.SizeY != height {
			return nil, types.NewAppError(
				types.ErrCodeUpstreamBadPayload,
				fmt.Sprintf("tile is %dx%d, requested %dx%d", st.SizeX, st.SizeY, width, height),
				nil,
			)
		}

		flat := make([]float64, width*height)
		if err := gdalBands[i].Read(0, 0, flat, width, height); err != nil {
			return nil, types.NewAppError(
				types.ErrCodeUpstreamBadPayload,
				fmt.Sprintf("failed to read band %s from tile", name),
				err,
			)
		}

		grid := raster.NewGrid(width, height, transform)
		for y := 0; y < height; y++ {
			grid.SetRow(y, flat[y*width:(y+1)*width])
		}
		grids[name] = grid
	}
	return grids, nil
}

// pixelLayout sizes the output raster for a geographic bound at the given
// ground resolution. Width uses the bound's mid-latitude because
// longitude meters shrink toward the poles.
func pixelLayout(bound orb.Bound, scaleMeters float64) (int, int, raster.GeoTransform) {
	midLat := (bound.Min.Lat() + bound.Max.Lat()) / 2
	metersPerDegreeLng := metersPerDegreeLat * math.Cos(midLat*math.Pi/180)

	widthDeg := bound.Max.Lon() - bound.Min.Lon()
	heightDeg := bound.Max.Lat() - bound.Min.Lat()

	width := int(math.Ceil(widthDeg * metersPerDegreeLng / scaleMeters))
	height := int(math.Ceil(heightDeg * metersPerDegreeLat / scaleMeters))
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	return width, height, raster.GeoTransform{
		OriginX:     bound.Min.Lon(),
		OriginY:     bound.Max.Lat(),
		PixelWidth:  widthDeg / float64(width),
		PixelHeight: -heightDeg / float64(height),
	}
}

// tileSpan is one tile's placement within the full-extent raster, in
// pixels.
type tileSpan struct {
	x, y, w, h int
}

func tileSpans(width, height, maxDim int) []tileSpan {
	var spans []tileSpan
	for y := 0; y < height; y += maxDim {
		h := min(maxDim, height-y)
		for x := 0; x < width; x += maxDim {
			w := min(maxDim, width-x)
			spans = append(spans, tileSpan{x: x, y: y, w: w, h: h})
		}
	}
	return spans
}

// authorize attaches a bearer token from the cached source.
func (c *CopernicusClient) authorize(req *http.Request) error {
	tok, err := c.tokens.Token()
	if err != nil {
		return mapTokenError(err)
	}
	tok.SetAuthHeader(req)
	return nil
}

// mapTokenError classifies token-endpoint failures: rejected credentials
// are a setup problem, an unreachable endpoint is connectivity.
func mapTokenError(err error) *types.AppError {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		if rErr.Response != nil && rErr.Response.StatusCode >= 500 {
			return types.NewAppError(
				types.ErrCodeUpstreamUnavailable,
				"Copernicus token endpoint returned a server error",
				err,
			)
		}
		return types.NewAppError(
			types.ErrCodeSetupAuth,
			"Copernicus rejected the client credentials",
			err,
		)
	}
	return types.NewAppError(
		types.ErrCodeSetupConnection,
		"could not reach the Copernicus token endpoint",
		err,
	)
}

// handleErrorResponse maps non-200 catalog and process responses onto the
// error taxonomy. 4xx responses reach here as-is because BaseClient only
// retries 429 and 5xx.
func (c *CopernicusClient) handleErrorResponse(resp *http.Response, operation string) *types.AppError {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	bodyStr := string(bodyBytes)

	c.logger.Error("Copernicus API error",
		"operation", operation,
		"status_code", resp.StatusCode,
		"response_body", bodyStr,
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return types.NewAppError(
			types.ErrCodeSetupAuth,
			fmt.Sprintf("Copernicus rejected the access token (%d)", resp.StatusCode),
			fmt.Errorf("copernicus %s returned %d: %s", operation, resp.StatusCode, bodyStr),
		)
	case resp.StatusCode == http.StatusBadRequest:
		return types.NewAppError(
			types.ErrCodeUpstreamBadPayload,
			fmt.Sprintf("Copernicus refused the %s request", operation),
			fmt.Errorf("copernicus %s returned 400: %s", operation, bodyStr),
		)
	default:
		return types.NewAppError(
			types.ErrCodeUpstreamImagery,
			fmt.Sprintf("Copernicus %s failed (%d)", operation, resp.StatusCode),
			fmt.Errorf("copernicus %s returned %d: %s", operation, resp.StatusCode, bodyStr),
		)
	}
}

// wrapError adds operation context to BaseClient failures while keeping
// their codes.
func (c *CopernicusClient) wrapError(operation string, err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return types.NewAppError(
			appErr.Code,
			fmt.Sprintf("Copernicus %s: %s", operation, appErr.Message),
			appErr.Err,
		)
	}
	return types.NewAppError(
		types.ErrCodeUpstreamImagery,
		fmt.Sprintf("Copernicus %s failed", operation),
		err,
	)
}

// Compile-time interface compliance check.
var _ analysis.ImageryGateway = (*CopernicusClient)(nil)
