package fgddem

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// A MeshLevel is a mesh code granularity per JIS X 0410.
type MeshLevel int

const (
	MeshLevelSecond MeshLevel = 2 // 6-digit codes, 5' x 7.5' cells.
	MeshLevelThird  MeshLevel = 3 // 8-digit codes, 30" x 45" cells.
)

// Cell extents in degrees. A primary mesh is 40' x 1 degree; a secondary
// mesh divides it by 8 and a third mesh divides that by 10.
const (
	secondMeshHeight = 1.0 / 12
	secondMeshWidth  = 1.0 / 8
	thirdMeshHeight  = 1.0 / 120
	thirdMeshWidth   = 1.0 / 80
)

// MeshBounds returns the geographic bounds of a second- or third-level mesh
// code.
func MeshBounds(meshCode int) (orb.Bound, error) {
	var pp, uu, q, r, s, t int
	var height, width float64
	switch {
	case 100000 <= meshCode && meshCode < 1000000:
		pp = meshCode / 10000
		uu = (meshCode / 100) % 100
		q = (meshCode / 10) % 10
		r = meshCode % 10
		height = secondMeshHeight
		width = secondMeshWidth
	case 10000000 <= meshCode && meshCode < 100000000:
		pp = meshCode / 1000000
		uu = (meshCode / 10000) % 100
		q = (meshCode / 1000) % 10
		r = (meshCode / 100) % 10
		s = (meshCode / 10) % 10
		t = meshCode % 10
		height = thirdMeshHeight
		width = thirdMeshWidth
	default:
		return orb.Bound{}, fmt.Errorf("%w: %d", ErrInvalidMeshCode, meshCode)
	}
	if q > 7 || r > 7 {
		return orb.Bound{}, fmt.Errorf("%w: %d", ErrInvalidMeshCode, meshCode)
	}

	lat := float64(pp)/1.5 + float64(q)*secondMeshHeight + float64(s)*thirdMeshHeight
	lon := float64(100+uu) + float64(r)*secondMeshWidth + float64(t)*thirdMeshWidth
	return orb.Bound{
		Min: orb.Point{lon, lat},
		Max: orb.Point{lon + width, lat + height},
	}, nil
}

// MeshCodeForPoint returns the mesh code of the cell containing point at the
// given level. Point is (lon, lat).
func MeshCodeForPoint(point orb.Point, level MeshLevel) (int, error) {
	lon, lat := point[0], point[1]
	if lat < 0 || lon < 100 || lon >= 200 {
		return 0, fmt.Errorf("%w: no mesh cell contains (%g, %g)", ErrInvalidMeshCode, lon, lat)
	}

	// Work in third-level cell units: a primary mesh is 80 cells on each
	// axis, a secondary mesh 10.
	latUnits := int(math.Floor(lat * 120))
	lonUnits := int(math.Floor((lon - 100) * 80))

	pp := latUnits / 80
	uu := lonUnits / 80
	q := (latUnits % 80) / 10
	r := (lonUnits % 80) / 10

	switch level {
	case MeshLevelSecond:
		return pp*10000 + uu*100 + q*10 + r, nil
	case MeshLevelThird:
		s := latUnits % 10
		t := lonUnits % 10
		return pp*1000000 + uu*10000 + q*1000 + r*100 + s*10 + t, nil
	default:
		return 0, fmt.Errorf("%w: unknown mesh level %d", ErrInvalidMeshCode, level)
	}
}
