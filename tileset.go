package fgddem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	missingTileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fgddem_missing_tile_cache_hits_total",
		Help: "The total number of hits on the missing tile cache",
	})
	missingTileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fgddem_missing_tile_cache_misses_total",
		Help: "The total number of misses on the missing tile cache",
	})
	tileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fgddem_tile_cache_hits_total",
		Help: "The total number of hits on the tile cache",
	})
	tileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fgddem_tile_cache_misses_total",
		Help: "The total number of misses on the tile cache",
	})
	tileCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fgddem_tile_cache_evictions_total",
		Help: "The total number of evictions from the tile cache",
	})
)

// A TileFilenameFunc returns the document filename for a mesh code.
type TileFilenameFunc func(meshCode int) string

// A tileGrid is a parsed tile's metadata and elevation grid.
type tileGrid struct {
	metadata TileMetadata
	grid     *Grid
}

// A TileSet reads mesh tile documents from a filesystem on demand, keeping
// recently-used tiles in memory.
type TileSet struct {
	mutex            sync.Mutex
	fsys             fs.FS
	level            MeshLevel
	seaAtZero        bool
	tileFilenameFunc TileFilenameFunc
	missingTiles     sync.Map
	cacheSize        int
	scaleX           float64
	scaleY           float64
	tileCache        *lru.Cache[int, *tileGrid]
}

// A TileSetOption sets an option on a TileSet.
type TileSetOption func(*TileSet)

// NewTileSet returns a new TileSet with the given options.
func NewTileSet(fsys fs.FS, options ...TileSetOption) (*TileSet, error) {
	s := &TileSet{
		fsys:             fsys,
		level:            MeshLevelThird,
		tileFilenameFunc: DEM5AFilename,
		cacheSize:        128,
	}
	for _, option := range options {
		option(s)
	}
	if s.scaleX == 0 || s.scaleY == 0 {
		s.scaleX, s.scaleY = nominalScale(s.level)
	}

	var err error
	s.tileCache, err = lru.New[int, *tileGrid](s.cacheSize)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func WithLevel(level MeshLevel) TileSetOption {
	return func(s *TileSet) {
		s.level = level
	}
}

func WithTileCacheSize(cacheSize int) TileSetOption {
	return func(s *TileSet) {
		s.cacheSize = cacheSize
	}
}

func WithTileFilenameFunc(tileFilenameFunc TileFilenameFunc) TileSetOption {
	return func(s *TileSet) {
		s.tileFilenameFunc = tileFilenameFunc
	}
}

func WithTileSeaAtZero(seaAtZero bool) TileSetOption {
	return func(s *TileSet) {
		s.seaAtZero = seaAtZero
	}
}

func WithScale(scaleX, scaleY float64) TileSetOption {
	return func(s *TileSet) {
		s.scaleX = scaleX
		s.scaleY = scaleY
	}
}

// DEM5AFilename returns the standard 5m DEM document name for a third-level
// mesh code.
func DEM5AFilename(meshCode int) string {
	return fmt.Sprintf("FG-GML-%04d-%02d-%02d-DEM5A.xml", meshCode/10000, (meshCode/100)%100, meshCode%100)
}

// DEM10BFilename returns the standard 10m DEM document name for a
// second-level mesh code.
func DEM10BFilename(meshCode int) string {
	return fmt.Sprintf("FG-GML-%04d-%02d-DEM10B.xml", meshCode/100, meshCode%100)
}

// nominalScale returns the pixel size of the standard DEM product at level:
// 5m DEM tiles carry a 225x150 grid per third mesh, 10m DEM tiles a
// 1125x750 grid per second mesh.
func nominalScale(level MeshLevel) (float64, float64) {
	switch level {
	case MeshLevelSecond:
		return secondMeshWidth / 1125, secondMeshHeight / 750
	default:
		return thirdMeshWidth / 225, thirdMeshHeight / 150
	}
}

// Samples returns the samples at coords. Missing samples are represented by
// NaNs.
func (s *TileSet) Samples(ctx context.Context, coords []Coord) ([]float64, error) {
	samples := make([]float64, len(coords))

	// Group indexes by mesh code.
	type groupStruct struct {
		coords  []Coord
		indexes []int
	}
	groupsByMeshCode := make(map[int]groupStruct)
	for index, coord := range coords {
		meshCode, err := MeshCodeForPoint(orb.Point{coord.X, coord.Y}, s.level)
		if err != nil {
			samples[index] = math.NaN()
			continue
		}
		if group, ok := groupsByMeshCode[meshCode]; ok {
			group.coords = append(group.coords, coord)
			group.indexes = append(group.indexes, index)
			groupsByMeshCode[meshCode] = group
		} else {
			groupsByMeshCode[meshCode] = groupStruct{
				coords:  []Coord{coord},
				indexes: []int{index},
			}
		}
	}

	// Populate samples one tile at a time.
	for meshCode, group := range groupsByMeshCode {
		tile, err := s.getTileCached(meshCode)
		if err != nil {
			return nil, err
		}
		if tile == nil {
			for _, index := range group.indexes {
				samples[index] = math.NaN()
			}
			continue
		}
		for localIndex, index := range group.indexes {
			samples[index] = tile.sample(group.coords[localIndex])
		}
	}

	return samples, nil
}

// Scale implements Raster.
func (s *TileSet) Scale() (float64, float64) {
	return s.scaleX, s.scaleY
}

// sample returns the sample at coord, which must fall within t's bounds.
func (t *tileGrid) sample(coord Coord) float64 {
	x := int(math.Floor((coord.X - t.metadata.LowerCorner[0]) / t.metadata.PixelSize.X))
	y := int(math.Floor((t.metadata.UpperCorner[1] - coord.Y) / -t.metadata.PixelSize.Y))
	if x < 0 || t.grid.Width <= x || y < 0 || t.grid.Height <= y {
		return math.NaN()
	}
	if sample := t.grid.At(x, y); sample == NoData {
		return math.NaN()
	} else {
		return float64(sample)
	}
}

// getTile parses the tile for meshCode from the filesystem.
func (s *TileSet) getTile(meshCode int) (*tileGrid, error) {
	filename := s.tileFilenameFunc(meshCode)
	file, err := s.fsys.Open(filename)
	if errors.Is(err, fs.ErrNotExist) {
		s.missingTiles.Store(meshCode, struct{}{})
		missingTileCacheMisses.Inc()
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	tile, err := ParseTile(file, WithSeaAtZero(s.seaAtZero))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	grid, err := tile.Grid()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return &tileGrid{
		metadata: tile.Metadata,
		grid:     grid,
	}, nil
}

// getTileCached returns the tile for meshCode, using the cache if possible.
func (s *TileSet) getTileCached(meshCode int) (*tileGrid, error) {
	if _, ok := s.missingTiles.Load(meshCode); ok {
		missingTileCacheHits.Inc()
		return nil, nil
	}

	if tile, ok := s.tileCache.Get(meshCode); ok {
		tileCacheHits.Inc()
		return tile, nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.missingTiles.Load(meshCode); ok {
		missingTileCacheHits.Inc()
		return nil, nil
	}

	if tile, ok := s.tileCache.Get(meshCode); ok {
		tileCacheHits.Inc()
		return tile, nil
	}

	tileCacheMisses.Inc()

	tile, err := s.getTile(meshCode)
	if err != nil {
		return nil, err
	}

	if eviction := s.tileCache.Add(meshCode, tile); eviction {
		tileCacheEvictions.Inc()
	}

	return tile, nil
}
