package external

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"forestwatch/internal/analysis"
	"forestwatch/internal/raster"
	"forestwatch/internal/types"
)

// maskEncoding names the wire format for mask pixels: row-major bits
// packed most significant bit first, zstd-compressed, then base64.
const maskEncoding = "zstd+bitpack"

// zstdEncoder is shared by all requests; EncodeAll is safe for concurrent
// use.
var zstdEncoder, _ = zstd.NewWriter(nil)

// VectorizerConfig holds the configuration for creating a
// VectorizerClient. BaseURL has no default; the service address is
// deployment-specific.
type VectorizerConfig struct {
	BaseURL string
	APIKey  string
	Logger  *slog.Logger
}

// VectorizerClient traces change masks into polygons by calling the
// vectorizer service. Masks ship bit-packed and compressed because a
// full-extent raster serialized naively runs to megabytes of JSON.
type VectorizerClient struct {
	base    *BaseClient
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// NewVectorizerClient creates a VectorizerClient.
func NewVectorizerClient(httpClient *http.Client, cfg VectorizerConfig) *VectorizerClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &VectorizerClient{
		base:    NewBaseClient(httpClient, "vectorizer", DefaultRetryPolicy()),
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

// NewVectorizerClientWithBase creates a VectorizerClient with a
// pre-configured BaseClient. This is useful for testing when you want to
// control retry behavior.
func NewVectorizerClientWithBase(base *BaseClient, cfg VectorizerConfig) *VectorizerClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &VectorizerClient{
		base:    base,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

type polygonizeRequest struct {
	Mask                   maskPayload       `json:"mask"`
	Region                 *geojson.Geometry `json:"region"`
	GroundResolutionMeters float64           `json:"groundResolutionMeters"`
	MaxPixels              float64           `json:"maxPixels"`
	GeometryType           string            `json:"geometryType"`
}

type maskPayload struct {
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Encoding  string        `json:"encoding"`
	Data      string        `json:"data"`
	Transform maskTransform `json:"transform"`
}

type maskTransform struct {
	OriginX     float64 `json:"originX"`
	OriginY     float64 `json:"originY"`
	PixelWidth  float64 `json:"pixelWidth"`
	PixelHeight float64 `json:"pixelHeight"`
}

// Polygonize sends the mask to the vectorizer and returns the traced
// polygons. MultiPolygon features are flattened into their parts; any
// non-polygonal geometry in the response fails the call.
func (c *VectorizerClient) Polygonize(ctx context.Context, req analysis.VectorizeRequest) ([]orb.Polygon, error) {
	packed := packMaskBits(req.Mask)
	compressed := zstdEncoder.EncodeAll(packed, nil)

	payload := polygonizeRequest{
		Mask: maskPayload{
			Width:    req.Mask.Width,
			Height:   req.Mask.Height,
			Encoding: maskEncoding,
			Data:     base64.StdEncoding.EncodeToString(compressed),
			Transform: maskTransform{
				OriginX:     req.Mask.Transform.OriginX,
				OriginY:     req.Mask.Transform.OriginY,
				PixelWidth:  req.Mask.Transform.PixelWidth,
				PixelHeight: req.Mask.Transform.PixelHeight,
			},
		},
		Region:                 geojson.NewGeometry(req.Region.Geometry),
		GroundResolutionMeters: req.GroundResolutionMeters,
		MaxPixels:              req.MaxPixels,
		GeometryType:           req.GeometryType,
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to serialize polygonize request",
			err,
		)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/polygonize", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to create polygonize request",
			err,
		)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.InfoContext(ctx, "requesting polygonization",
		"width", req.Mask.Width,
		"height", req.Mask.Height,
		"set_pixels", req.Mask.Count(),
	)

	resp, err := c.base.Do(httpReq)
	if err != nil {
		return nil, c.wrapError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamVectorizer,
			"polygonize download interrupted",
			err,
		)
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamBadPayload,
			"polygonize response is not a GeoJSON feature collection",
			err,
		)
	}

	polygons := make([]orb.Polygon, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry == nil {
			return nil, types.NewAppError(
				types.ErrCodeUpstreamBadPayload,
				"polygonize response feature carries no geometry",
				nil,
			)
		}
		switch geom := f.Geometry.(type) {
		case orb.Polygon:
			polygons = append(polygons, geom)
		case orb.MultiPolygon:
			polygons = append(polygons, geom...)
		default:
			return nil, types.NewAppError(
				types.ErrCodeUpstreamBadPayload,
				fmt.Sprintf("polygonize response geometry %q is not polygonal", f.Geometry.GeoJSONType()),
				nil,
			)
		}
	}
	return polygons, nil
}

// packMaskBits flattens the mask row-major into a contiguous bitstring,
// most significant bit first, zero-padded to the byte boundary.
func packMaskBits(m *raster.Mask) []byte {
	n := m.Width * m.Height
	packed := make([]byte, (n+7)/8)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.At(x, y) {
				continue
			}
			i := y*m.Width + x
			packed[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return packed
}

// handleErrorResponse maps non-200 vectorizer responses onto the error
// taxonomy.
func (c *VectorizerClient) handleErrorResponse(resp *http.Response) *types.AppError {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	bodyStr := string(bodyBytes)

	c.logger.Error("vectorizer API error",
		"status_code", resp.StatusCode,
		"response_body", bodyStr,
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return types.NewAppError(
			types.ErrCodeSetupAuth,
			fmt.Sprintf("vectorizer rejected the API key (%d)", resp.StatusCode),
			fmt.Errorf("vectorizer returned %d: %s", resp.StatusCode, bodyStr),
		)
	case resp.StatusCode == http.StatusBadRequest:
		return types.NewAppError(
			types.ErrCodeUpstreamBadPayload,
			"vectorizer refused the polygonize request",
			fmt.Errorf("vectorizer returned 400: %s", bodyStr),
		)
	default:
		return types.NewAppError(
			types.ErrCodeUpstreamVectorizer,
			fmt.Sprintf("vectorizer request failed (%d)", resp.StatusCode),
			fmt.Errorf("vectorizer returned %d: %s", resp.StatusCode, bodyStr),
		)
	}
}

// wrapError adds vectorizer context to BaseClient failures while keeping
// their codes.
func (c *VectorizerClient) wrapError(err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return types.NewAppError(
			appErr.Code,
			fmt.Sprintf("vectorizer: %s", appErr.Message),
			appErr.Err,
		)
	}
	return types.NewAppError(
		types.ErrCodeUpstreamVectorizer,
		"vectorizer request failed",
		err,
	)
}

// Compile-time interface compliance check.
var _ analysis.Vectorizer = (*VectorizerClient)(nil)
