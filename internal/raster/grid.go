// Package raster holds the in-memory pixel model shared by the pipeline
// stages: single-band float64 grids, multi-band composites, and boolean
// masks. All algebra is pixel-wise. Geographic placement rides along as a
// geotransform so collaborators can map pixels back to coordinates.
package raster

import (
	"fmt"
	"math"

	"forestwatch/internal/types"
)

// Sentinel-2 band identifiers used by the pipeline.
const (
	BandRed  = "B04"
	BandNIR  = "B08"
	BandSWIR = "B12"
)

// GeoTransform places a grid in geographic space. Origin is the outer
// corner of the top-left pixel; PixelHeight is negative for north-up
// rasters.
type GeoTransform struct {
	OriginX     float64
	OriginY     float64
	PixelWidth  float64
	PixelHeight float64
}

// Grid is a single-band raster with float64 samples stored row-major.
// NaN marks no-data pixels.
type Grid struct {
	Width     int
	Height    int
	Transform GeoTransform

	data []float64
}

// NewGrid allocates a grid with every pixel initialized to no-data.
func NewGrid(width, height int, transform GeoTransform) *Grid {
	data := make([]float64, width*height)
	for i := range data {
		data[i] = math.NaN()
	}
	return &Grid{Width: width, Height: height, Transform: transform, data: data}
}

func (g *Grid) At(x, y int) float64 {
	return g.data[y*g.Width+x]
}

func (g *Grid) Set(x, y int, v float64) {
	g.data[y*g.Width+x] = v
}

// IsNoData reports whether the pixel at (x, y) carries no usable sample.
func (g *Grid) IsNoData(x, y int) bool {
	return math.IsNaN(g.At(x, y))
}

// Fill sets every pixel to v.
func (g *Grid) Fill(v float64) {
	for i := range g.data {
		g.data[i] = v
	}
}

// SetRow overwrites row y with vals, which must hold exactly Width
// samples. Decoders that read rasters scanline by scanline use this to
// avoid a per-pixel call.
func (g *Grid) SetRow(y int, vals []float64) {
	copy(g.data[y*g.Width:(y+1)*g.Width], vals)
}

// Blit copies src into g with src's top-left pixel landing at (dstX, dstY).
// Pixels falling outside g are dropped.
func (g *Grid) Blit(src *Grid, dstX, dstY int) {
	for y := 0; y < src.Height; y++ {
		ty := dstY + y
		if ty < 0 || ty >= g.Height {
			continue
		}
		for x := 0; x < src.Width; x++ {
			tx := dstX + x
			if tx < 0 || tx >= g.Width {
				continue
			}
			g.Set(tx, ty, src.At(x, y))
		}
	}
}

// SameShape reports whether two grids share width and height.
func (g *Grid) SameShape(other *Grid) bool {
	return g.Width == other.Width && g.Height == other.Height
}

// Mean averages the data pixels and reports how many carried data. A grid
// of pure no-data yields (0, 0).
func (g *Grid) Mean() (mean float64, n int) {
	var sum float64
	for _, v := range g.data {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// Composite is the product of one imagery-gateway fetch: equally shaped
// bands keyed by identifier, the number of scenes that qualified under
// the cloud ceiling, and the window they were drawn from.
type Composite struct {
	Bands      map[string]*Grid
	SceneCount int
	Window     types.DateWindow
}

// Band returns the named band or a data_band_missing error.
func (c *Composite) Band(name string) (*Grid, error) {
	g, ok := c.Bands[name]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeDataBandMissing,
			fmt.Sprintf("composite has no band %q", name), nil)
	}
	return g, nil
}

// Mask is a boolean grid sharing the shape and placement of the raster it
// was derived from.
type Mask struct {
	Width     int
	Height    int
	Transform GeoTransform

	bits []bool
}

// NewMask allocates an all-false mask.
func NewMask(width, height int, transform GeoTransform) *Mask {
	return &Mask{
		Width:     width,
		Height:    height,
		Transform: transform,
		bits:      make([]bool, width*height),
	}
}

func (m *Mask) At(x, y int) bool {
	return m.bits[y*m.Width+x]
}

func (m *Mask) Set(x, y int, v bool) {
	m.bits[y*m.Width+x] = v
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}
