package fgddem

import "errors"

var errGeoKeyParse = errors.New("geokey parse error")

type GeoKey uint16

const (
	GeoKeyGTModelType  GeoKey = 1024
	GeoKeyGTRasterType GeoKey = 1025
	GeoKeyGTCitation   GeoKey = 1026

	GeoKeyGeodeticCRS  GeoKey = 2048
	GeoKeyGeogCitation GeoKey = 2049
	GeoKeyAngularUnits GeoKey = 2054

	GeoKeyProjectedCRS GeoKey = 3072
	GeoKeyPCSCitation  GeoKey = 3073
	GeoKeyLinearUnits  GeoKey = 3076
)

// GeoKey values used by the writer.
const (
	gtModelTypeProjected    = 1
	gtModelTypeGeographic   = 2
	gtRasterTypePixelIsArea = 1
	angularUnitsDegree      = 9102
	linearUnitsMeter        = 9001
)

// A geoKeyEncoder accumulates GeoKey entries for a GeoKeyDirectoryTag.
// Entries must be added in ascending key order.
type geoKeyEncoder struct {
	entries     [][4]uint16
	asciiParams []byte
}

func (e *geoKeyEncoder) addShort(key GeoKey, value uint16) {
	e.entries = append(e.entries, [4]uint16{uint16(key), 0, 1, value})
}

func (e *geoKeyEncoder) addASCII(key GeoKey, value string) {
	value += "|"
	e.entries = append(e.entries, [4]uint16{uint16(key), 34737, uint16(len(value)), uint16(len(e.asciiParams))})
	e.asciiParams = append(e.asciiParams, value...)
}

func (e *geoKeyEncoder) directory() []uint16 {
	directory := make([]uint16, 0, 4+4*len(e.entries))
	directory = append(directory, 1, 1, 0, uint16(len(e.entries)))
	for _, entry := range e.entries {
		directory = append(directory, entry[0], entry[1], entry[2], entry[3])
	}
	return directory
}

type ParsedGeoKeys struct {
	Params       map[GeoKey]int
	DoubleParams map[GeoKey]float64
	ASCIIParams  map[GeoKey]string
}

// ParseGeoKeys parses the contents of a GeoKeyDirectoryTag plus its
// companion GeoDoubleParamsTag and GeoASCIIParamsTag.
func ParseGeoKeys(directory []uint16, doubleParams []float64, asciiParams []byte) (*ParsedGeoKeys, error) {
	if len(directory) < 4 {
		return nil, errGeoKeyParse
	}
	if keyDirectoryVersion := int(directory[0]); keyDirectoryVersion != 1 {
		return nil, errGeoKeyParse
	}
	if keyRevision := int(directory[1]); keyRevision != 1 {
		return nil, errGeoKeyParse
	}
	if minorRevision := int(directory[2]); minorRevision != 0 && minorRevision != 1 {
		return nil, errGeoKeyParse
	}
	numberOfKeys := int(directory[3])
	if len(directory) != 4+4*numberOfKeys {
		return nil, errGeoKeyParse
	}

	parsedGeoKeys := &ParsedGeoKeys{
		Params:       make(map[GeoKey]int),
		DoubleParams: make(map[GeoKey]float64),
		ASCIIParams:  make(map[GeoKey]string),
	}
	for i := 0; i < numberOfKeys; i++ {
		keyValues := directory[4+4*i : 4+4*(i+1)]
		key := GeoKey(keyValues[0])
		tiffTagLocation := int(keyValues[1])
		numberOfValues := int(keyValues[2])
		switch tiffTagLocation {
		case 0:
			if numberOfValues != 1 {
				return nil, errGeoKeyParse
			}
			parsedGeoKeys.Params[key] = int(keyValues[3])
		case 34736: // GeoDoubleParamsTag
			if numberOfValues != 1 {
				return nil, errors.ErrUnsupported
			}
			parsedGeoKeys.DoubleParams[key] = doubleParams[int(keyValues[3])]
		case 34737: // GeoASCIIParamsTag
			index := int(keyValues[3])
			parsedGeoKeys.ASCIIParams[key] = string(asciiParams[index : index+numberOfValues])
		default:
			return nil, errors.ErrUnsupported
		}
	}
	return parsedGeoKeys, nil
}
