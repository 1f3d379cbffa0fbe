package fgddem

import (
	"archive/zip"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// A Feedback receives progress updates and textual status from a conversion
// run and may request early termination before assembly begins.
type Feedback interface {
	Progress(percent int)
	Info(message string)
	ReportError(message string)
	Cancel()
	Canceled() bool
}

// A NopFeedback discards all updates but remembers cancellation.
type NopFeedback struct {
	canceled atomic.Bool
}

func (f *NopFeedback) Progress(percent int)       {}
func (f *NopFeedback) Info(message string)        {}
func (f *NopFeedback) ReportError(message string) {}
func (f *NopFeedback) Cancel()                    { f.canceled.Store(true) }
func (f *NopFeedback) Canceled() bool             { return f.canceled.Load() }

// An Input is a source of mesh tile documents: a filesystem and the
// document paths within it.
type Input struct {
	FS    fs.FS
	Paths []string
	close func() error
}

// Close releases the input's underlying archive, if any.
func (in *Input) Close() error {
	if in.close == nil {
		return nil
	}
	return in.close()
}

// OpenInput opens path as a source of tile documents. Path may be a single
// .xml document, a directory containing .xml documents, or a .zip archive
// of them. Archives are read in place, not extracted.
func OpenInput(path string) (*Input, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	switch {
	case info.IsDir():
		fsys := os.DirFS(path)
		paths, err := findTileDocuments(fsys)
		if err != nil {
			return nil, err
		}
		return &Input{FS: fsys, Paths: paths}, nil
	case strings.EqualFold(filepath.Ext(path), ".xml"):
		return &Input{
			FS:    os.DirFS(filepath.Dir(path)),
			Paths: []string{filepath.Base(path)},
		}, nil
	case strings.EqualFold(filepath.Ext(path), ".zip"):
		archive, err := zip.OpenReader(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		paths, err := findTileDocuments(archive)
		if err != nil {
			archive.Close()
			return nil, err
		}
		return &Input{FS: archive, Paths: paths, close: archive.Close}, nil
	default:
		return nil, fmt.Errorf("%w: %s: input must be an .xml document, a directory, or a .zip archive", ErrMalformedInput, path)
	}
}

// findTileDocuments walks fsys for .xml documents, skipping macOS resource
// fork directories that archive tools leave behind.
func findTileDocuments(fsys fs.FS) ([]string, error) {
	var paths []string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "__MACOSX" {
				return fs.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".xml") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no .xml documents found", ErrEmptyInput)
	}
	return paths, nil
}

// A Converter runs the whole conversion: parse every tile document,
// assemble the mosaic, optionally warp it, and write the output raster.
type Converter struct {
	input      *Input
	outputPath string
	fileName   string
	outputEPSG string
	rgbify     bool
	seaAtZero  bool
	feedback   Feedback
}

// A ConverterOption sets an option on a Converter.
type ConverterOption func(*Converter)

// NewConverter returns a new Converter writing to outputPath.
func NewConverter(input *Input, outputPath string, options ...ConverterOption) *Converter {
	c := &Converter{
		input:      input,
		outputPath: outputPath,
		fileName:   "output.tif",
		outputEPSG: "EPSG:4326",
		feedback:   &NopFeedback{},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func WithFileName(fileName string) ConverterOption {
	return func(c *Converter) {
		c.fileName = fileName
	}
}

func WithOutputEPSG(outputEPSG string) ConverterOption {
	return func(c *Converter) {
		c.outputEPSG = outputEPSG
	}
}

// WithRGBify writes a Terrain-RGB raster instead of a Float32 elevation
// raster.
func WithRGBify(rgbify bool) ConverterOption {
	return func(c *Converter) {
		c.rgbify = rgbify
	}
}

func WithConverterSeaAtZero(seaAtZero bool) ConverterOption {
	return func(c *Converter) {
		c.seaAtZero = seaAtZero
	}
}

func WithFeedback(feedback Feedback) ConverterOption {
	return func(c *Converter) {
		c.feedback = feedback
	}
}

// Run converts the input to a raster file. It returns false without error
// when nothing was written because the input holds no elevation data or the
// feedback requested cancellation. Any malformed tile aborts the whole run;
// there is no partial-success mode.
func (c *Converter) Run(ctx context.Context) (bool, error) {
	if _, err := ParseEPSG(c.outputEPSG); err != nil {
		return false, err
	}

	if c.rgbify {
		c.feedback.Info("Converting XML files to Terrain RGB...")
	} else {
		c.feedback.Info("Converting XML files to GeoTIFF DEM...")
	}
	c.feedback.Progress(0)

	tiles, err := c.parseTiles(ctx)
	if err != nil {
		return false, err
	}

	if allNoData(tiles) {
		c.feedback.ReportError("Output DEM has no elevation data.")
		c.feedback.Cancel()
	}
	if c.feedback.Canceled() {
		return false, nil
	}

	c.feedback.Info("Creating TIFF file...")

	mosaic, err := Assemble(tiles)
	if err != nil {
		return false, err
	}

	if c.outputEPSG != "EPSG:4326" {
		resampling := ResamplingBilinear
		if c.rgbify {
			resampling = ResamplingNearest
		}
		mosaic, err = Warp(ctx, mosaic, c.outputEPSG, resampling)
		if err != nil {
			return false, err
		}
	}

	bandType := BandFloat32
	if c.rgbify {
		bandType = BandTerrainRGB
	}
	if err := c.writeFile(mosaic, bandType); err != nil {
		return false, err
	}

	c.feedback.Progress(100)
	return true, nil
}

// parseTiles reads every tile document, reporting progress up to 90%.
func (c *Converter) parseTiles(ctx context.Context) ([]*Tile, error) {
	if len(c.input.Paths) == 0 {
		return nil, fmt.Errorf("%w: no tiles", ErrEmptyInput)
	}
	tiles := make([]*Tile, 0, len(c.input.Paths))
	for i, path := range c.input.Paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tile, err := c.parseTile(path)
		if err != nil {
			return nil, err
		}
		tiles = append(tiles, tile)
		c.feedback.Progress((i + 1) * 90 / len(c.input.Paths))
	}
	return tiles, nil
}

func (c *Converter) parseTile(path string) (*Tile, error) {
	file, err := c.input.FS.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	tile, err := ParseTile(file, WithSeaAtZero(c.seaAtZero))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tile, nil
}

func (c *Converter) writeFile(mosaic *Mosaic, bandType BandType) error {
	file, err := os.Create(filepath.Join(c.outputPath, c.fileName))
	if err != nil {
		return err
	}
	if err := mosaic.WriteGeoTIFF(file, bandType); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// allNoData reports whether every sample of every tile is the no-data
// sentinel. Such a batch is a legitimate empty result, not a defect.
func allNoData(tiles []*Tile) bool {
	for _, tile := range tiles {
		if !tile.AllNoData() {
			return false
		}
	}
	return true
}
