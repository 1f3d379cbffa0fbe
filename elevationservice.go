package fgddem

import (
	"context"
	"io/fs"

	"github.com/twpayne/go-proj/v10"
)

// An ElevationService answers point elevation queries over a filesystem of
// mesh tile documents.
type ElevationService struct {
	tileSet *TileSet
	pj      *proj.PJ
}

// NewElevationService returns a new ElevationService reading tile documents
// from fsys.
func NewElevationService(fsys fs.FS, options ...TileSetOption) (*ElevationService, error) {
	tileSet, err := NewTileSet(fsys, options...)
	if err != nil {
		return nil, err
	}
	pj, err := proj.NewCRSToCRS("epsg:3857", "epsg:4326", nil)
	if err != nil {
		return nil, err
	}
	return &ElevationService{
		tileSet: tileSet,
		pj:      pj,
	}, nil
}

// Elevation returns bilinearly-interpolated elevations at coords, which are
// (lon, lat) pairs in EPSG:4326.
func (s *ElevationService) Elevation(ctx context.Context, coords [][]float64) ([]float64, error) {
	return InterpolateBilinear(ctx, s.tileSet, coords)
}

// ElevationWebMercator returns elevations at coords3857, which are (x, y)
// pairs in EPSG:3857.
func (s *ElevationService) ElevationWebMercator(ctx context.Context, coords3857 [][]float64) ([]float64, error) {
	coords4326 := cloneCoords(coords3857)
	if err := s.pj.ForwardFloat64Slices(coords4326); err != nil {
		return nil, err
	}
	flipCoords(coords4326)
	return s.Elevation(ctx, coords4326)
}

func cloneCoords(coords [][]float64) [][]float64 {
	clonedCoordsFlat := make([]float64, 2*len(coords))
	clonedCoords := make([][]float64, len(coords))
	for i, coord := range coords {
		copy(clonedCoordsFlat[2*i:2*i+2], coord)
		clonedCoords[i] = clonedCoordsFlat[2*i : 2*i+2]
	}
	return clonedCoords
}

func flipCoords(coords [][]float64) {
	for i, coord := range coords {
		coords[i][0], coords[i][1] = coord[1], coord[0]
	}
}
