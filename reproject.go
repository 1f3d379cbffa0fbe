package fgddem

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-proj/v10"
)

// A Resampling selects the algorithm used when warping a mosaic.
type Resampling int

const (
	// ResamplingNearest is for classified or byte outputs.
	ResamplingNearest Resampling = iota
	// ResamplingBilinear is for continuous elevation outputs.
	ResamplingBilinear
)

// ParseEPSG parses a CRS name of the form "EPSG:nnnn".
func ParseEPSG(epsg string) (int, error) {
	code, ok := strings.CutPrefix(epsg, "EPSG:")
	if !ok {
		return 0, fmt.Errorf("%w: CRS must be of the form EPSG:nnnn: %q", ErrMalformedInput, epsg)
	}
	srid, err := strconv.Atoi(code)
	if err != nil {
		return 0, fmt.Errorf("%w: CRS must be of the form EPSG:nnnn: %q", ErrMalformedInput, epsg)
	}
	return srid, nil
}

// Warp reprojects m to the CRS named by epsg, keeping m's pixel dimensions.
// Cells that fall outside m become no-data.
func Warp(ctx context.Context, m *Mosaic, epsg string, resampling Resampling) (*Mosaic, error) {
	srid, err := ParseEPSG(epsg)
	if err != nil {
		return nil, err
	}
	if srid == m.SRID {
		return m, nil
	}
	if m.SRID != 4326 {
		return nil, fmt.Errorf("cannot warp from EPSG:%d", m.SRID)
	}

	pj, err := proj.NewCRSToCRS("epsg:4326", fmt.Sprintf("epsg:%d", srid), nil)
	if err != nil {
		return nil, err
	}

	// Project the corners to find the target bounds. EPSG:4326 axis order
	// is (lat, lon).
	west, south := m.Bounds.Min[0], m.Bounds.Min[1]
	east, north := m.Bounds.Max[0], m.Bounds.Max[1]
	corners := [][]float64{
		{south, west},
		{south, east},
		{north, west},
		{north, east},
	}
	if err := pj.ForwardFloat64Slices(corners); err != nil {
		return nil, err
	}
	minX, minY := corners[0][0], corners[0][1]
	maxX, maxY := minX, minY
	for _, corner := range corners[1:] {
		minX = math.Min(minX, corner[0])
		minY = math.Min(minY, corner[1])
		maxX = math.Max(maxX, corner[0])
		maxY = math.Max(maxY, corner[1])
	}

	width := m.Width
	height := m.Height
	pixelX := (maxX - minX) / float64(width)
	pixelY := (minY - maxY) / float64(height)

	data := make([]float32, width*height)
	rowCoords := make([][]float64, width)
	rowCoordsFlat := make([]float64, 2*width)
	for x := range rowCoords {
		rowCoords[x] = rowCoordsFlat[2*x : 2*x+2]
	}
	lonlats := make([][]float64, width)
	lonlatsFlat := make([]float64, 2*width)
	for x := range lonlats {
		lonlats[x] = lonlatsFlat[2*x : 2*x+2]
	}

	for y := 0; y < height; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Inverse-project this row of pixel centers back to (lat, lon).
		targetY := maxY + (float64(y)+0.5)*pixelY
		for x := 0; x < width; x++ {
			rowCoords[x][0] = minX + (float64(x)+0.5)*pixelX
			rowCoords[x][1] = targetY
		}
		if err := pj.InverseFloat64Slices(rowCoords); err != nil {
			return nil, err
		}
		for x := 0; x < width; x++ {
			lonlats[x][0] = rowCoords[x][1]
			lonlats[x][1] = rowCoords[x][0]
		}

		var samples []float64
		switch resampling {
		case ResamplingBilinear:
			samples, err = InterpolateBilinear(ctx, m, lonlats)
		default:
			coords := make([]Coord, width)
			for x, lonlat := range lonlats {
				coords[x] = Coord{X: lonlat[0], Y: lonlat[1]}
			}
			samples, err = m.Samples(ctx, coords)
		}
		if err != nil {
			return nil, err
		}

		for x, sample := range samples {
			if math.IsNaN(sample) {
				data[y*width+x] = NoData
			} else {
				data[y*width+x] = float32(sample)
			}
		}
	}

	return &Mosaic{
		Bounds:    orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}},
		Width:     width,
		Height:    height,
		PixelSize: PixelSize{X: pixelX, Y: pixelY},
		SRID:      srid,
		Data:      data,
	}, nil
}
