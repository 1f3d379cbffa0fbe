package fgddem

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

const (
	fgdNamespace = "http://fgd.gsi.go.jp/spec/2008/FGD_GMLSchema"
	gmlNamespace = "http://www.opengis.net/gml/3.2"
)

const (
	noDataText = "-9999."
	zeroText   = "0."
)

// Category labels whose no-data samples are rewritten to zero when
// sea-to-zero substitution is enabled.
const (
	categorySeaSurface = "海水面"
	categorySeaFloor   = "海底面"
)

type parseConfig struct {
	seaAtZero bool
}

// A ParseOption sets an option on ParseTile.
type ParseOption func(*parseConfig)

// WithSeaAtZero substitutes zero for no-data sea surface and sea floor
// samples at read time.
func WithSeaAtZero(seaAtZero bool) ParseOption {
	return func(c *parseConfig) {
		c.seaAtZero = seaAtZero
	}
}

// A rawTile holds the required document fields as raw text.
type rawTile struct {
	meshCode    string
	lowerCorner string
	upperCorner string
	gridHigh    string
	startPoint  string
	tupleList   string
}

// ParseTile reads one FGD GML tile document from r.
func ParseTile(r io.Reader, options ...ParseOption) (*Tile, error) {
	var config parseConfig
	for _, option := range options {
		option(&config)
	}

	raw, err := readTileDocument(r)
	if err != nil {
		return nil, err
	}

	metadata, err := normalizeMetadata(raw)
	if err != nil {
		return nil, err
	}

	samples, err := splitTupleList(raw.tupleList, config.seaAtZero)
	if err != nil {
		return nil, err
	}

	return &Tile{
		Metadata: metadata,
		Samples:  samples,
	}, nil
}

// readTileDocument walks the document's tokens, collecting the text of each
// required element. The schema nests each element uniquely, so matching on
// namespace and local name suffices.
func readTileDocument(r io.Reader) (*rawTile, error) {
	var raw rawTile
	fields := map[xml.Name]*string{
		{Space: fgdNamespace, Local: "mesh"}:        &raw.meshCode,
		{Space: gmlNamespace, Local: "lowerCorner"}: &raw.lowerCorner,
		{Space: gmlNamespace, Local: "upperCorner"}: &raw.upperCorner,
		{Space: gmlNamespace, Local: "high"}:        &raw.gridHigh,
		{Space: gmlNamespace, Local: "startPoint"}:  &raw.startPoint,
		{Space: gmlNamespace, Local: "tupleList"}:   &raw.tupleList,
	}

	decoder := xml.NewDecoder(r)
	var target *string
	seen := make(map[xml.Name]bool)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		switch token := token.(type) {
		case xml.StartElement:
			if field, ok := fields[token.Name]; ok {
				target = field
				seen[token.Name] = true
			}
		case xml.CharData:
			if target != nil {
				*target += string(token)
			}
		case xml.EndElement:
			target = nil
		}
	}

	for name := range fields {
		if !seen[name] {
			return nil, fmt.Errorf("%w: missing element %s", ErrMalformedInput, name.Local)
		}
	}
	return &raw, nil
}

// normalizeMetadata converts raw's textual fields into a TileMetadata.
func normalizeMetadata(raw *rawTile) (TileMetadata, error) {
	meshCode, err := strconv.Atoi(strings.TrimSpace(raw.meshCode))
	if err != nil {
		return TileMetadata{}, fmt.Errorf("%w: mesh code %q", ErrMalformedInput, raw.meshCode)
	}

	// Corner fields are "lat lon", in that order.
	lowerLat, lowerLon, err := parseFloatPair(raw.lowerCorner)
	if err != nil {
		return TileMetadata{}, fmt.Errorf("%w: lower corner %q", ErrMalformedInput, raw.lowerCorner)
	}
	upperLat, upperLon, err := parseFloatPair(raw.upperCorner)
	if err != nil {
		return TileMetadata{}, fmt.Errorf("%w: upper corner %q", ErrMalformedInput, raw.upperCorner)
	}

	// The schema's high value is the zero-based max index, so the grid
	// length is high + 1 per axis.
	highX, highY, err := parseIntPair(raw.gridHigh)
	if err != nil {
		return TileMetadata{}, fmt.Errorf("%w: grid high %q", ErrMalformedInput, raw.gridHigh)
	}
	startX, startY, err := parseIntPair(raw.startPoint)
	if err != nil {
		return TileMetadata{}, fmt.Errorf("%w: start point %q", ErrMalformedInput, raw.startPoint)
	}

	gridLength := GridPoint{X: highX + 1, Y: highY + 1}
	return TileMetadata{
		MeshCode:    meshCode,
		LowerCorner: orb.Point{lowerLon, lowerLat},
		UpperCorner: orb.Point{upperLon, upperLat},
		GridLength:  gridLength,
		StartPoint:  GridPoint{X: startX, Y: startY},
		PixelSize: PixelSize{
			X: (upperLon - lowerLon) / float64(gridLength.X),
			Y: (lowerLat - upperLat) / float64(gridLength.Y),
		},
	}, nil
}

// splitTupleList splits the tuple-list body into one elevation value per
// line. Each line is "category,value" and the value is the second token.
func splitTupleList(tupleList string, seaAtZero bool) ([]string, error) {
	lines := strings.Split(strings.TrimSpace(tupleList), "\n")
	samples := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		category, value, ok := strings.Cut(line, ",")
		if !ok {
			return nil, fmt.Errorf("%w: tuple %q", ErrMalformedInput, line)
		}
		if seaAtZero && value == noDataText && (category == categorySeaSurface || category == categorySeaFloor) {
			value = zeroText
		}
		samples = append(samples, value)
	}
	return samples, nil
}

func parseFloatPair(s string) (float64, float64, error) {
	first, second, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok {
		return 0, 0, ErrMalformedInput
	}
	a, err := strconv.ParseFloat(first, 64)
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(second), 64)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func parseIntPair(s string) (int, int, error) {
	first, second, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok {
		return 0, 0, ErrMalformedInput
	}
	a, err := strconv.Atoi(first)
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.Atoi(strings.TrimSpace(second))
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}
