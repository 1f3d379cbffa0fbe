package fgddem

import (
	"context"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// maxMosaicDimension keeps a single-band Float32 raster under the 4 GiB
// TIFF file ceiling.
const maxMosaicDimension = 32000

// A Mosaic is the assembled raster covering the union of all input tiles.
type Mosaic struct {
	Bounds    orb.Bound
	Width     int
	Height    int
	PixelSize PixelSize
	SRID      int
	Data      []float32 // Row-major from the northwest corner.
}

// MosaicBounds returns the geographic bounding box spanning all tiles.
func MosaicBounds(metadata []TileMetadata) (orb.Bound, error) {
	if len(metadata) == 0 {
		return orb.Bound{}, fmt.Errorf("%w: no tiles", ErrEmptyInput)
	}
	bound := orb.Bound{Min: metadata[0].LowerCorner, Max: metadata[0].UpperCorner}
	for _, m := range metadata[1:] {
		bound = bound.Extend(m.LowerCorner)
		bound = bound.Extend(m.UpperCorner)
	}
	return bound, nil
}

// Assemble validates the batch's mesh codes, allocates the output raster at
// the first tile's pixel size, and copies every tile's grid into its pixel
// offset. Overlapping tiles are not detected; the last write wins.
func Assemble(tiles []*Tile) (*Mosaic, error) {
	if len(tiles) == 0 {
		return nil, fmt.Errorf("%w: no tiles", ErrEmptyInput)
	}

	metadata := make([]TileMetadata, len(tiles))
	meshCodes := make([]int, len(tiles))
	for i, tile := range tiles {
		metadata[i] = tile.Metadata
		meshCodes[i] = tile.Metadata.MeshCode
	}
	if err := ValidateMeshCodes(meshCodes); err != nil {
		return nil, err
	}

	bounds, err := MosaicBounds(metadata)
	if err != nil {
		return nil, err
	}

	pixelSize := metadata[0].PixelSize
	width := int(math.Round(math.Abs((bounds.Max[0] - bounds.Min[0]) / pixelSize.X)))
	height := int(math.Round(math.Abs((bounds.Max[1] - bounds.Min[1]) / pixelSize.Y)))
	if width >= maxMosaicDimension || height >= maxMosaicDimension {
		return nil, fmt.Errorf("%w: %dx%d pixels", ErrOutputTooLarge, width, height)
	}

	data := make([]float32, width*height)
	for i := range data {
		data[i] = NoData
	}

	// The per-tile pixel size rounds into the mosaic dimensions; the
	// recomputed quotient is authoritative for placement.
	pixelX := (bounds.Max[0] - bounds.Min[0]) / float64(width)
	pixelY := (bounds.Min[1] - bounds.Max[1]) / float64(height)

	for _, tile := range tiles {
		grid, err := tile.Grid()
		if err != nil {
			return nil, err
		}

		lonDistance := tile.Metadata.LowerCorner[0] - bounds.Min[0]
		latDistance := tile.Metadata.LowerCorner[1] - bounds.Min[1]
		column := int(math.Round(lonDistance / pixelX))
		row := int(math.Round(latDistance / -pixelY))

		// Rows are stored top-down, so the tile's vertical slot is
		// measured from the top edge.
		rowStart := height - (row + grid.Height)
		if column < 0 || column+grid.Width > width || rowStart < 0 || rowStart+grid.Height > height {
			return nil, fmt.Errorf("%w: mesh %d at columns [%d,%d) rows [%d,%d) in %dx%d mosaic",
				ErrPlacementOutOfBounds, tile.Metadata.MeshCode,
				column, column+grid.Width, rowStart, rowStart+grid.Height, width, height)
		}

		for y := 0; y < grid.Height; y++ {
			destination := (rowStart+y)*width + column
			copy(data[destination:destination+grid.Width], grid.Data[y*grid.Width:(y+1)*grid.Width])
		}
	}

	return &Mosaic{
		Bounds:    bounds,
		Width:     width,
		Height:    height,
		PixelSize: PixelSize{X: pixelX, Y: pixelY},
		SRID:      4326,
		Data:      data,
	}, nil
}

// Transform returns m's six-parameter affine georeferencing transform.
func (m *Mosaic) Transform() [6]float64 {
	return [6]float64{
		m.Bounds.Min[0],
		m.PixelSize.X,
		0,
		m.Bounds.Max[1],
		0,
		m.PixelSize.Y,
	}
}

// At returns the sample at column x, row y.
func (m *Mosaic) At(x, y int) float32 {
	return m.Data[y*m.Width+x]
}

// Samples implements Raster. Coordinates outside m's bounds and no-data
// cells yield NaN.
func (m *Mosaic) Samples(ctx context.Context, coords []Coord) ([]float64, error) {
	samples := make([]float64, len(coords))
	for i, coord := range coords {
		x := int(math.Floor((coord.X - m.Bounds.Min[0]) / m.PixelSize.X))
		y := int(math.Floor((m.Bounds.Max[1] - coord.Y) / -m.PixelSize.Y))
		if x < 0 || m.Width <= x || y < 0 || m.Height <= y {
			samples[i] = math.NaN()
			continue
		}
		if sample := m.At(x, y); sample == NoData {
			samples[i] = math.NaN()
		} else {
			samples[i] = float64(sample)
		}
	}
	return samples, nil
}

// Scale implements Raster, returning m's per-axis pixel size.
func (m *Mosaic) Scale() (float64, float64) {
	return m.PixelSize.X, m.PixelSize.Y
}
