package fgddem_test

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"testing"
	"testing/fstest"

	"github.com/alecthomas/assert/v2"

	fgddem "github.com/twpayne/go-fgddem"
)

// meshTileFS returns a filesystem of 2x2 tile documents, one per mesh code,
// with the given row-major sample values.
func meshTileFS(t *testing.T, tilesByMeshCode map[int][]string) fstest.MapFS {
	t.Helper()
	fsys := fstest.MapFS{}
	for meshCode, tuples := range tilesByMeshCode {
		bound, err := fgddem.MeshBounds(meshCode)
		assert.NoError(t, err)
		document := tileDocument(
			strconv.Itoa(meshCode),
			fmt.Sprintf("%.12f %.12f", bound.Min[1], bound.Min[0]),
			fmt.Sprintf("%.12f %.12f", bound.Max[1], bound.Max[0]),
			"1 1",
			"0 0",
			tuples,
		)
		fsys[fgddem.DEM5AFilename(meshCode)] = &fstest.MapFile{Data: []byte(document)}
	}
	return fsys
}

// cellCenter returns the geographic center of cell (x, y) of meshCode's 2x2
// grid.
func cellCenter(t *testing.T, meshCode, x, y int) fgddem.Coord {
	t.Helper()
	bound, err := fgddem.MeshBounds(meshCode)
	assert.NoError(t, err)
	width := bound.Max[0] - bound.Min[0]
	height := bound.Max[1] - bound.Min[1]
	return fgddem.Coord{
		X: bound.Min[0] + (float64(x)+0.5)*width/2,
		Y: bound.Max[1] - (float64(y)+0.5)*height/2,
	}
}

func TestTileSet_Samples(t *testing.T) {
	fsys := meshTileFS(t, map[int][]string{
		53394500: groundTuples(4, "10."),
		53394501: {"地表面,1.", "地表面,2.", "地表面,3.", "地表面,-9999."},
	})
	tileSet, err := fgddem.NewTileSet(fsys)
	assert.NoError(t, err)

	coords := []fgddem.Coord{
		cellCenter(t, 53394500, 0, 0),
		cellCenter(t, 53394501, 0, 0),
		cellCenter(t, 53394501, 1, 0),
		cellCenter(t, 53394501, 0, 1),
		cellCenter(t, 53394501, 1, 1), // No-data cell.
		cellCenter(t, 53394502, 0, 0), // Missing tile.
	}
	expected := []float64{10, 1, 2, 3, math.NaN(), math.NaN()}

	for pass := 0; pass < 2; pass++ { // The second pass is served from the cache.
		samples, err := tileSet.Samples(context.Background(), coords)
		assert.NoError(t, err)
		assert.Equal(t, len(expected), len(samples))
		for i := range expected {
			if math.IsNaN(expected[i]) {
				assert.True(t, math.IsNaN(samples[i]))
			} else {
				assert.Equal(t, expected[i], samples[i])
			}
		}
	}
}

func TestTileSet_SecondLevel(t *testing.T) {
	fsys := fstest.MapFS{}
	bound, err := fgddem.MeshBounds(533945)
	assert.NoError(t, err)
	document := tileDocument(
		"533945",
		fmt.Sprintf("%.12f %.12f", bound.Min[1], bound.Min[0]),
		fmt.Sprintf("%.12f %.12f", bound.Max[1], bound.Max[0]),
		"1 1",
		"0 0",
		groundTuples(4, "42."),
	)
	fsys[fgddem.DEM10BFilename(533945)] = &fstest.MapFile{Data: []byte(document)}

	tileSet, err := fgddem.NewTileSet(fsys,
		fgddem.WithLevel(fgddem.MeshLevelSecond),
		fgddem.WithTileFilenameFunc(fgddem.DEM10BFilename),
	)
	assert.NoError(t, err)

	center := bound.Center()
	samples, err := tileSet.Samples(context.Background(), []fgddem.Coord{{X: center[0], Y: center[1]}})
	assert.NoError(t, err)
	assert.Equal(t, []float64{42}, samples)
}

func TestTileSet_Scale(t *testing.T) {
	tileSet, err := fgddem.NewTileSet(fstest.MapFS{})
	assert.NoError(t, err)
	scaleX, scaleY := tileSet.Scale()
	assert.Equal(t, 1.0/80/225, scaleX)
	assert.Equal(t, 1.0/120/150, scaleY)

	tileSet, err = fgddem.NewTileSet(fstest.MapFS{}, fgddem.WithScale(0.5, 0.25))
	assert.NoError(t, err)
	scaleX, scaleY = tileSet.Scale()
	assert.Equal(t, 0.5, scaleX)
	assert.Equal(t, 0.25, scaleY)
}

func TestDEMFilenames(t *testing.T) {
	assert.Equal(t, "FG-GML-5339-45-18-DEM5A.xml", fgddem.DEM5AFilename(53394518))
	assert.Equal(t, "FG-GML-5339-45-DEM10B.xml", fgddem.DEM10BFilename(533945))
}
