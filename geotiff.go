package fgddem

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// A BandType selects the pixel encoding of a written raster.
type BandType int

const (
	// BandFloat32 writes one IEEE float band with a -9999 no-data value.
	BandFloat32 BandType = iota
	// BandTerrainRGB writes elevations packed into three byte bands with
	// 0.1m resolution and a -10000m offset.
	BandTerrainRGB
)

// TIFF field types and tags used by the writer.
const (
	typeByte     = 1
	typeASCII    = 2
	typeShort    = 3
	typeLong     = 4
	typeDouble   = 12

	tagImageWidth                = 256
	tagImageLength               = 257
	tagBitsPerSample             = 258
	tagCompression               = 259
	tagPhotometricInterpretation = 262
	tagStripOffsets              = 273
	tagSamplesPerPixel           = 277
	tagRowsPerStrip              = 278
	tagStripByteCounts           = 279
	tagPlanarConfiguration       = 284
	tagSampleFormat              = 339
	tagModelPixelScale           = 33550
	tagModelTiepoint             = 33922
	tagGeoKeyDirectory           = 34735
	tagGeoASCIIParams            = 34737
	tagGDALNoData                = 42113
)

const compressionDeflate = 8

// An ifdEntry is one IFD field with its value already encoded.
type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

// WriteGeoTIFF writes m as a Deflate-compressed, strip-organized GeoTIFF.
func (m *Mosaic) WriteGeoTIFF(w io.Writer, bandType BandType) error {
	var bytesPerPixel int
	switch bandType {
	case BandFloat32:
		bytesPerPixel = 4
	case BandTerrainRGB:
		bytesPerPixel = 3
	default:
		return fmt.Errorf("unknown band type %d", bandType)
	}

	bytesPerRow := m.Width * bytesPerPixel
	rowsPerStrip := max(1, 65536/bytesPerRow)
	stripCount := (m.Height + rowsPerStrip - 1) / rowsPerStrip

	strips := make([][]byte, 0, stripCount)
	for rowStart := 0; rowStart < m.Height; rowStart += rowsPerStrip {
		rowEnd := min(rowStart+rowsPerStrip, m.Height)
		strip, err := m.compressStrip(rowStart, rowEnd, bandType)
		if err != nil {
			return err
		}
		strips = append(strips, strip)
	}

	entries, stripOffsetsIndex := m.ifdEntries(bandType, rowsPerStrip, strips)
	return writeTIFF(w, entries, stripOffsetsIndex, strips)
}

// compressStrip encodes rows [rowStart, rowEnd) and deflates them.
func (m *Mosaic) compressStrip(rowStart, rowEnd int, bandType BandType) ([]byte, error) {
	var raw []byte
	switch bandType {
	case BandFloat32:
		raw = make([]byte, 0, (rowEnd-rowStart)*m.Width*4)
		for _, sample := range m.Data[rowStart*m.Width : rowEnd*m.Width] {
			raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(sample))
		}
	case BandTerrainRGB:
		raw = make([]byte, 0, (rowEnd-rowStart)*m.Width*3)
		for _, sample := range m.Data[rowStart*m.Width : rowEnd*m.Width] {
			raw = appendTerrainRGB(raw, sample)
		}
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return compressed.Bytes(), nil
}

// appendTerrainRGB appends sample encoded as Terrain-RGB: each 0.1m step
// above -10000m increments the 24-bit big-endian value by one. No-data
// cells encode as black.
func appendTerrainRGB(raw []byte, sample float32) []byte {
	if sample == NoData {
		return append(raw, 0, 0, 0)
	}
	v := uint32(math.Round((float64(sample) + 10000) / 0.1))
	return append(raw, byte(v>>16), byte(v>>8), byte(v))
}

// ifdEntries builds m's IFD in ascending tag order. The strip offsets entry
// is returned by index so that writeTIFF can fill it in once the data
// layout is known.
func (m *Mosaic) ifdEntries(bandType BandType, rowsPerStrip int, strips [][]byte) ([]ifdEntry, int) {
	stripByteCounts := make([]uint32, len(strips))
	for i, strip := range strips {
		stripByteCounts[i] = uint32(len(strip))
	}

	// Width and height are always below the mosaic dimension ceiling, so
	// SHORT values suffice.
	var entries []ifdEntry
	entries = append(entries,
		entryShorts(tagImageWidth, []uint16{uint16(m.Width)}),
		entryShorts(tagImageLength, []uint16{uint16(m.Height)}),
	)
	switch bandType {
	case BandFloat32:
		entries = append(entries, entryShorts(tagBitsPerSample, []uint16{32}))
	case BandTerrainRGB:
		entries = append(entries, entryShorts(tagBitsPerSample, []uint16{8, 8, 8}))
	}
	entries = append(entries, entryShorts(tagCompression, []uint16{compressionDeflate}))
	if bandType == BandTerrainRGB {
		entries = append(entries, entryShorts(tagPhotometricInterpretation, []uint16{2}))
	} else {
		entries = append(entries, entryShorts(tagPhotometricInterpretation, []uint16{1}))
	}

	stripOffsetsIndex := len(entries)
	entries = append(entries, entryLongs(tagStripOffsets, make([]uint32, len(strips))))

	if bandType == BandTerrainRGB {
		entries = append(entries, entryShorts(tagSamplesPerPixel, []uint16{3}))
	} else {
		entries = append(entries, entryShorts(tagSamplesPerPixel, []uint16{1}))
	}
	entries = append(entries,
		entryShorts(tagRowsPerStrip, []uint16{uint16(rowsPerStrip)}),
		entryLongs(tagStripByteCounts, stripByteCounts),
		entryShorts(tagPlanarConfiguration, []uint16{1}),
	)
	if bandType == BandTerrainRGB {
		entries = append(entries, entryShorts(tagSampleFormat, []uint16{1, 1, 1}))
	} else {
		entries = append(entries, entryShorts(tagSampleFormat, []uint16{3}))
	}

	transform := m.Transform()
	entries = append(entries,
		entryDoubles(tagModelPixelScale, []float64{transform[1], -transform[5], 0}),
		entryDoubles(tagModelTiepoint, []float64{0, 0, 0, transform[0], transform[3], 0}),
	)

	encoder := m.geoKeys()
	entries = append(entries, entryShorts(tagGeoKeyDirectory, encoder.directory()))
	if len(encoder.asciiParams) > 0 {
		entries = append(entries, entryASCII(tagGeoASCIIParams, string(encoder.asciiParams)))
	}
	if bandType == BandFloat32 {
		entries = append(entries, entryASCII(tagGDALNoData, "-9999"))
	}

	return entries, stripOffsetsIndex
}

// geoKeys returns the GeoKey directory describing m's CRS.
func (m *Mosaic) geoKeys() *geoKeyEncoder {
	encoder := &geoKeyEncoder{}
	if m.SRID == 4326 {
		encoder.addShort(GeoKeyGTModelType, gtModelTypeGeographic)
		encoder.addShort(GeoKeyGTRasterType, gtRasterTypePixelIsArea)
		encoder.addShort(GeoKeyGeodeticCRS, 4326)
		encoder.addASCII(GeoKeyGeogCitation, "WGS 84")
		encoder.addShort(GeoKeyAngularUnits, angularUnitsDegree)
	} else {
		encoder.addShort(GeoKeyGTModelType, gtModelTypeProjected)
		encoder.addShort(GeoKeyGTRasterType, gtRasterTypePixelIsArea)
		encoder.addShort(GeoKeyProjectedCRS, uint16(m.SRID))
		encoder.addASCII(GeoKeyPCSCitation, fmt.Sprintf("EPSG:%d", m.SRID))
		encoder.addShort(GeoKeyLinearUnits, linearUnitsMeter)
	}
	return encoder
}

func entryShorts(tag uint16, values []uint16) ifdEntry {
	data := make([]byte, 0, 2*len(values))
	for _, value := range values {
		data = binary.LittleEndian.AppendUint16(data, value)
	}
	return ifdEntry{tag: tag, typ: typeShort, count: uint32(len(values)), data: data}
}

func entryLongs(tag uint16, values []uint32) ifdEntry {
	data := make([]byte, 0, 4*len(values))
	for _, value := range values {
		data = binary.LittleEndian.AppendUint32(data, value)
	}
	return ifdEntry{tag: tag, typ: typeLong, count: uint32(len(values)), data: data}
}

func entryDoubles(tag uint16, values []float64) ifdEntry {
	data := make([]byte, 0, 8*len(values))
	for _, value := range values {
		data = binary.LittleEndian.AppendUint64(data, math.Float64bits(value))
	}
	return ifdEntry{tag: tag, typ: typeDouble, count: uint32(len(values)), data: data}
}

func entryASCII(tag uint16, value string) ifdEntry {
	data := append([]byte(value), 0)
	return ifdEntry{tag: tag, typ: typeASCII, count: uint32(len(data)), data: data}
}

// writeTIFF lays out and writes a classic little-endian TIFF: header, IFD,
// external field values, then strip data.
func writeTIFF(w io.Writer, entries []ifdEntry, stripOffsetsIndex int, strips [][]byte) error {
	ifdOffset := uint32(8)
	ifdSize := uint32(2 + 12*len(entries) + 4)

	// Assign offsets to field values that do not fit inline.
	valueOffsets := make([]uint32, len(entries))
	offset := ifdOffset + ifdSize
	for i, entry := range entries {
		if len(entry.data) > 4 {
			valueOffsets[i] = offset
			offset += uint32(len(entry.data))
			if offset%2 != 0 {
				offset++
			}
		}
	}

	// Strip data follows the field values.
	stripOffsets := entries[stripOffsetsIndex].data[:0]
	for _, strip := range strips {
		stripOffsets = binary.LittleEndian.AppendUint32(stripOffsets, offset)
		offset += uint32(len(strip))
	}

	var buffer bytes.Buffer
	buffer.WriteString("II")
	binary.Write(&buffer, binary.LittleEndian, uint16(42))
	binary.Write(&buffer, binary.LittleEndian, ifdOffset)

	binary.Write(&buffer, binary.LittleEndian, uint16(len(entries)))
	for i, entry := range entries {
		binary.Write(&buffer, binary.LittleEndian, entry.tag)
		binary.Write(&buffer, binary.LittleEndian, entry.typ)
		binary.Write(&buffer, binary.LittleEndian, entry.count)
		if len(entry.data) > 4 {
			binary.Write(&buffer, binary.LittleEndian, valueOffsets[i])
		} else {
			var inline [4]byte
			copy(inline[:], entry.data)
			buffer.Write(inline[:])
		}
	}
	binary.Write(&buffer, binary.LittleEndian, uint32(0)) // No next IFD.

	for _, entry := range entries {
		if len(entry.data) > 4 {
			buffer.Write(entry.data)
			if buffer.Len()%2 != 0 {
				buffer.WriteByte(0)
			}
		}
	}
	for _, strip := range strips {
		buffer.Write(strip)
	}

	_, err := w.Write(buffer.Bytes())
	return err
}
