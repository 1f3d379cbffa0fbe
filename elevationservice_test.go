package fgddem_test

import (
	"context"
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"

	fgddem "github.com/twpayne/go-fgddem"
)

func TestElevationService(t *testing.T) {
	fsys := meshTileFS(t, map[int][]string{
		53394500: groundTuples(4, "100."),
	})
	service, err := fgddem.NewElevationService(fsys)
	assert.NoError(t, err)

	center := cellCenter(t, 53394500, 0, 0)
	elevations, err := service.Elevation(context.Background(), [][]float64{{center.X, center.Y}})
	assert.NoError(t, err)
	assert.True(t, math.Abs(elevations[0]-100) < 1e-9)

	elevations, err = service.Elevation(context.Background(), [][]float64{{0, 0}})
	assert.NoError(t, err)
	assert.True(t, math.IsNaN(elevations[0]))
}

func TestElevationServiceWebMercator(t *testing.T) {
	fsys := meshTileFS(t, map[int][]string{
		53394500: groundTuples(4, "100."),
	})
	service, err := fgddem.NewElevationService(fsys)
	assert.NoError(t, err)

	center := cellCenter(t, 53394500, 0, 0)
	const earthRadius = 6378137.0
	x := earthRadius * center.X * math.Pi / 180
	y := earthRadius * math.Log(math.Tan(math.Pi/4+center.Y*math.Pi/360))

	coords3857 := [][]float64{{x, y}}
	elevations, err := service.ElevationWebMercator(context.Background(), coords3857)
	assert.NoError(t, err)
	assert.True(t, math.Abs(elevations[0]-100) < 1e-9)

	// The input coordinates must not be modified.
	assert.Equal(t, [][]float64{{x, y}}, coords3857)
}
