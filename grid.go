package fgddem

import (
	"fmt"
	"strconv"
)

// A Grid is a tile's elevation array, row-major from the northwest corner.
// Cells not covered by the tile's samples hold NoData.
type Grid struct {
	Width  int
	Height int
	Data   []float32
}

// At returns the sample at column x, row y.
func (g *Grid) At(x, y int) float32 {
	return g.Data[y*g.Width+x]
}

// Grid converts t's flat sample sequence into a (GridLength.Y, GridLength.X)
// array. The first row starts filling at StartPoint.X; subsequent rows start
// at column zero. The sample count and the declared grid size do not always
// match, so filling stops silently when the samples are exhausted.
func (t *Tile) Grid() (*Grid, error) {
	width := t.Metadata.GridLength.X
	height := t.Metadata.GridLength.Y
	data := make([]float32, width*height)
	for i := range data {
		data[i] = NoData
	}

	index := 0
	startX := t.Metadata.StartPoint.X
	for y := t.Metadata.StartPoint.Y; y < height && index < len(t.Samples); y++ {
		for x := startX; x < width && index < len(t.Samples); x++ {
			value, err := strconv.ParseFloat(t.Samples[index], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: elevation sample %q", ErrMalformedInput, t.Samples[index])
			}
			data[y*width+x] = float32(value)
			index++
		}
		startX = 0
	}

	return &Grid{
		Width:  width,
		Height: height,
		Data:   data,
	}, nil
}

// AllNoData reports whether every sample in t is the no-data sentinel.
func (t *Tile) AllNoData() bool {
	for _, sample := range t.Samples {
		if sample != noDataText {
			return false
		}
	}
	return true
}
