package geotiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
	"github.com/couchcryptid/terrain-analysis-service/internal/raster"
)

// WriteGrid writes a float64 grid as a float32 single-band GeoTIFF.
func WriteGrid(path string, g *raster.Grid) error {
	pixels := make([]byte, g.Rows*g.Cols*4)
	i := 0
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			binary.LittleEndian.PutUint32(pixels[i:], math.Float32bits(float32(g.At(r, c))))
			i += 4
		}
	}
	nodata := formatNoData(g.NoData)
	return writeTIFF(path, g.Rows, g.Cols, g.Transform, g.CRS, pixels, sampleFloat, nodata)
}

// WriteIntGrid writes an int32 grid as an int32 single-band GeoTIFF.
func WriteIntGrid(path string, g *raster.IntGrid) error {
	pixels := make([]byte, g.Rows*g.Cols*4)
	i := 0
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			binary.LittleEndian.PutUint32(pixels[i:], uint32(g.At(r, c)))
			i += 4
		}
	}
	nodata := fmt.Sprintf("%d", g.NoData)
	return writeTIFF(path, g.Rows, g.Cols, g.Transform, g.CRS, pixels, sampleInt, nodata)
}

func formatNoData(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return fmt.Sprintf("%g", v)
}

// entry is one IFD record. For values wider than four bytes, data holds the
// external payload and the writer patches in its offset.
type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	value uint32 // inline value (left-justified per TIFF spec)
	data  []byte // external payload, nil when the value is inline
}

func writeTIFF(path string, rows, cols int, tr raster.Transform, crs domain.CRS, pixels []byte, sampleFormat uint16, nodata string) error {
	if tr.B != 0 || tr.D != 0 {
		return fmt.Errorf("write %s: rotated transforms are not supported", path)
	}

	const headerLen = 8
	stripOffset := uint32(headerLen)

	entries := []entry{
		{tag: tagImageWidth, typ: typeLong, count: 1, value: uint32(cols)},
		{tag: tagImageLength, typ: typeLong, count: 1, value: uint32(rows)},
		shortEntry(tagBitsPerSample, 32),
		shortEntry(tagCompression, 1),
		shortEntry(tagPhotometric, 1), // BlackIsZero
		{tag: tagStripOffsets, typ: typeLong, count: 1, value: stripOffset},
		shortEntry(tagSamplesPerPixel, 1),
		{tag: tagRowsPerStrip, typ: typeLong, count: 1, value: uint32(rows)},
		{tag: tagStripByteCounts, typ: typeLong, count: 1, value: uint32(len(pixels))},
		shortEntry(tagPlanarConfig, 1),
		shortEntry(tagSampleFormat, sampleFormat),
		doubleEntry(tagModelPixelScale, []float64{tr.A, -tr.E, 0}),
		doubleEntry(tagModelTiepoint, []float64{0, 0, 0, tr.C, tr.F, 0}),
		geoKeyEntry(crs),
		asciiEntry(tagGDALNoData, nodata),
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	ifdOffset := uint32(headerLen + len(pixels))
	if ifdOffset%2 != 0 {
		pixels = append(pixels, 0)
		ifdOffset++
	}
	ifdLen := uint32(2 + 12*len(entries) + 4)

	// Lay external payloads after the IFD, word-aligned.
	external := &bytes.Buffer{}
	extBase := ifdOffset + ifdLen
	for i := range entries {
		e := &entries[i]
		if e.data == nil {
			continue
		}
		if external.Len()%2 != 0 {
			external.WriteByte(0)
		}
		e.value = extBase + uint32(external.Len())
		external.Write(e.data)
	}

	buf := &bytes.Buffer{}
	buf.WriteString("II")
	binary.Write(buf, binary.LittleEndian, uint16(42))
	binary.Write(buf, binary.LittleEndian, ifdOffset)
	buf.Write(pixels)

	binary.Write(buf, binary.LittleEndian, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(buf, binary.LittleEndian, e.tag)
		binary.Write(buf, binary.LittleEndian, e.typ)
		binary.Write(buf, binary.LittleEndian, e.count)
		binary.Write(buf, binary.LittleEndian, e.value)
	}
	binary.Write(buf, binary.LittleEndian, uint32(0)) // no next IFD
	buf.Write(external.Bytes())

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func shortEntry(tag uint16, v uint16) entry {
	// SHORT inline values are left-justified in the 4-byte field.
	return entry{tag: tag, typ: typeShort, count: 1, value: uint32(v)}
}

func doubleEntry(tag uint16, vals []float64) entry {
	data := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	return entry{tag: tag, typ: typeDouble, count: uint32(len(vals)), data: data}
}

func asciiEntry(tag uint16, s string) entry {
	data := append([]byte(s), 0)
	e := entry{tag: tag, typ: typeASCII, count: uint32(len(data))}
	if len(data) <= 4 {
		var v [4]byte
		copy(v[:], data)
		e.value = binary.LittleEndian.Uint32(v[:])
	} else {
		e.data = data
	}
	return e
}

func geoKeyEntry(crs domain.CRS) entry {
	keys := [][4]uint16{
		{keyRasterType, 0, 1, rasterPixelIsArea},
	}
	if crs.Geographic() {
		keys = append([][4]uint16{{keyModelType, 0, 1, modelTypeGeographic}}, keys...)
		keys = append(keys, [4]uint16{keyGeographicType, 0, 1, uint16(crs.EPSG)})
	} else if crs.Known() {
		keys = append([][4]uint16{{keyModelType, 0, 1, modelTypeProjected}}, keys...)
		keys = append(keys, [4]uint16{keyProjectedCS, 0, 1, uint16(crs.EPSG)})
	}

	vals := make([]uint16, 0, 4*(len(keys)+1))
	vals = append(vals, 1, 1, 0, uint16(len(keys))) // directory header
	for _, k := range keys {
		vals = append(vals, k[0], k[1], k[2], k[3])
	}
	data := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint16(data[i*2:], v)
	}
	return entry{tag: tagGeoKeyDirectory, typ: typeShort, count: uint32(len(vals)), data: data}
}
