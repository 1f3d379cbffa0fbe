package fgddem_test

import (
	"context"
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/paulmach/orb"

	fgddem "github.com/twpayne/go-fgddem"
)

// testTile returns a tile with pixel size derived from its corners and grid
// the way the metadata normalizer derives it.
func testTile(meshCode int, lower, upper orb.Point, gridX, gridY int, samples []string) *fgddem.Tile {
	return &fgddem.Tile{
		Metadata: fgddem.TileMetadata{
			MeshCode:    meshCode,
			LowerCorner: lower,
			UpperCorner: upper,
			GridLength:  fgddem.GridPoint{X: gridX, Y: gridY},
			PixelSize: fgddem.PixelSize{
				X: (upper[0] - lower[0]) / float64(gridX),
				Y: (lower[1] - upper[1]) / float64(gridY),
			},
		},
		Samples: samples,
	}
}

func repeatSamples(n int, value string) []string {
	samples := make([]string, n)
	for i := range samples {
		samples[i] = value
	}
	return samples
}

func TestMosaicBounds(t *testing.T) {
	metadata := []fgddem.TileMetadata{
		{LowerCorner: orb.Point{139.0, 35.0}, UpperCorner: orb.Point{139.1, 35.1}},
		{LowerCorner: orb.Point{139.1, 35.1}, UpperCorner: orb.Point{139.2, 35.2}},
	}
	bounds, err := fgddem.MosaicBounds(metadata)
	assert.NoError(t, err)
	assert.Equal(t, orb.Bound{
		Min: orb.Point{139.0, 35.0},
		Max: orb.Point{139.2, 35.2},
	}, bounds)
}

func TestMosaicBounds_Empty(t *testing.T) {
	_, err := fgddem.MosaicBounds(nil)
	assert.IsError(t, err, fgddem.ErrEmptyInput)
}

func TestAssemble_Empty(t *testing.T) {
	_, err := fgddem.Assemble(nil)
	assert.IsError(t, err, fgddem.ErrEmptyInput)
}

func TestAssemble_MixedMeshLevels(t *testing.T) {
	tiles := []*fgddem.Tile{
		testTile(123456, orb.Point{139.0, 35.0}, orb.Point{139.1, 35.1}, 2, 2, repeatSamples(4, "1.")),
		testTile(12345678, orb.Point{139.1, 35.0}, orb.Point{139.2, 35.1}, 2, 2, repeatSamples(4, "1.")),
	}
	_, err := fgddem.Assemble(tiles)
	assert.IsError(t, err, fgddem.ErrMixedMeshLevel)
}

func TestAssemble_SingleTile(t *testing.T) {
	samples := repeatSamples(1500*1000, "-9999.")
	samples[0] = "123.4"
	tile := testTile(64413200, orb.Point{139.0, 35.0}, orb.Point{139.025, 35.01667}, 1500, 1000, samples)

	mosaic, err := fgddem.Assemble([]*fgddem.Tile{tile})
	assert.NoError(t, err)
	assert.Equal(t, 1500, mosaic.Width)
	assert.Equal(t, 1000, mosaic.Height)
	assert.Equal(t, tile.Metadata.PixelSize, mosaic.PixelSize)

	assert.Equal(t, [6]float64{
		139.0,
		tile.Metadata.PixelSize.X,
		0,
		35.01667,
		0,
		tile.Metadata.PixelSize.Y,
	}, mosaic.Transform())

	// Every cell is no-data except the one placed sample at the
	// northwest corner.
	assert.Equal(t, float32(123.4), mosaic.At(0, 0))
	for i, sample := range mosaic.Data[1:] {
		if sample != fgddem.NoData {
			t.Fatalf("unexpected sample %v at index %d", sample, i+1)
		}
	}
}

func TestAssemble_TwoTiles(t *testing.T) {
	// Two 2x2 tiles side by side; the eastern tile's values are offset
	// by ten.
	west := testTile(533945, orb.Point{139.0, 35.0}, orb.Point{139.1, 35.1}, 2, 2,
		[]string{"1.", "2.", "3.", "4."})
	east := testTile(533946, orb.Point{139.1, 35.0}, orb.Point{139.2, 35.1}, 2, 2,
		[]string{"11.", "12.", "13.", "14."})

	mosaic, err := fgddem.Assemble([]*fgddem.Tile{west, east})
	assert.NoError(t, err)
	assert.Equal(t, 4, mosaic.Width)
	assert.Equal(t, 2, mosaic.Height)
	assert.Equal(t, []float32{
		1, 2, 11, 12,
		3, 4, 13, 14,
	}, mosaic.Data)
}

func TestAssemble_Idempotent(t *testing.T) {
	tiles := []*fgddem.Tile{
		testTile(533945, orb.Point{139.0, 35.0}, orb.Point{139.1, 35.1}, 4, 4, repeatSamples(16, "2.5")),
		testTile(533946, orb.Point{139.1, 35.0}, orb.Point{139.2, 35.1}, 4, 4, repeatSamples(16, "7.5")),
	}
	first, err := fgddem.Assemble(tiles)
	assert.NoError(t, err)
	second, err := fgddem.Assemble(tiles)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAssemble_OutputTooLarge(t *testing.T) {
	tile := testTile(533945, orb.Point{139.0, 35.0}, orb.Point{139.1, 35.001}, 32000, 1, nil)
	_, err := fgddem.Assemble([]*fgddem.Tile{tile})
	assert.IsError(t, err, fgddem.ErrOutputTooLarge)

	tile = testTile(533945, orb.Point{139.0, 35.0}, orb.Point{139.1, 35.001}, 31999, 1, nil)
	mosaic, err := fgddem.Assemble([]*fgddem.Tile{tile})
	assert.NoError(t, err)
	assert.Equal(t, 31999, mosaic.Width)
}

func TestAssemble_PlacementOutOfBounds(t *testing.T) {
	// The eastern tile declares twice the western tile's resolution, so
	// its rectangle cannot fit the mosaic sized from the first tile.
	west := testTile(533945, orb.Point{139.0, 35.0}, orb.Point{139.1, 35.1}, 10, 10, repeatSamples(100, "1."))
	east := testTile(533946, orb.Point{139.1, 35.0}, orb.Point{139.2, 35.1}, 20, 20, repeatSamples(400, "1."))
	_, err := fgddem.Assemble([]*fgddem.Tile{west, east})
	assert.IsError(t, err, fgddem.ErrPlacementOutOfBounds)
}

func TestMosaicSamples(t *testing.T) {
	tile := testTile(533945, orb.Point{139.0, 35.0}, orb.Point{139.2, 35.2}, 2, 2,
		[]string{"1.", "2.", "-9999.", "4."})
	mosaic, err := fgddem.Assemble([]*fgddem.Tile{tile})
	assert.NoError(t, err)

	samples, err := mosaic.Samples(context.Background(), []fgddem.Coord{
		{X: 139.05, Y: 35.15}, // Northwest cell.
		{X: 139.15, Y: 35.15}, // Northeast cell.
		{X: 139.05, Y: 35.05}, // Southwest cell, no-data.
		{X: 139.15, Y: 35.05}, // Southeast cell.
		{X: 138.0, Y: 35.05},  // Outside the bounds.
	})
	assert.NoError(t, err)
	assert.Equal(t, 1.0, samples[0])
	assert.Equal(t, 2.0, samples[1])
	assert.True(t, math.IsNaN(samples[2]))
	assert.Equal(t, 4.0, samples[3])
	assert.True(t, math.IsNaN(samples[4]))
}
