// Package fgddem assembles Fundamental Geospatial Data (FGD) GML elevation
// mesh tiles into a single georeferenced raster.
package fgddem

import (
	"context"
	"errors"

	"github.com/paulmach/orb"
)

// NoData is the sentinel marking a cell with no measured elevation.
const NoData float32 = -9999

var (
	ErrMalformedInput       = errors.New("malformed input")
	ErrInvalidMeshCode      = errors.New("invalid mesh code")
	ErrMixedMeshLevel       = errors.New("mixed mesh levels")
	ErrEmptyInput           = errors.New("empty input")
	ErrOutputTooLarge       = errors.New("output too large")
	ErrPlacementOutOfBounds = errors.New("placement out of bounds")
)

// A Coord is a geographic coordinate. X is along the longitude axis and Y
// along the latitude axis, in the raster's CRS units.
type Coord struct {
	X float64
	Y float64
}

// A GridPoint is a zero-based position within a tile's grid.
type GridPoint struct {
	X int
	Y int
}

// A PixelSize is the geographic extent of one cell per axis. Y is negative,
// reflecting north-to-south storage order.
type PixelSize struct {
	X float64
	Y float64
}

// A TileMetadata describes one mesh tile's georeferencing.
type TileMetadata struct {
	MeshCode    int
	LowerCorner orb.Point // Southwest corner, (lon, lat).
	UpperCorner orb.Point // Northeast corner, (lon, lat).
	GridLength  GridPoint // Grid point count per axis, declared high + 1.
	StartPoint  GridPoint
	PixelSize   PixelSize
}

// A Tile is one parsed mesh tile: its metadata and its elevation samples as
// read from the document, in row-major north-to-south west-to-east order.
type Tile struct {
	Metadata TileMetadata
	Samples  []string
}

// A Raster provides elevation samples at geographic coordinates. Missing
// samples are represented by NaNs.
type Raster interface {
	Samples(ctx context.Context, coords []Coord) ([]float64, error)
	Scale() (float64, float64)
}
