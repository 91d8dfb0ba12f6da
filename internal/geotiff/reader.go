package geotiff

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
	"github.com/couchcryptid/terrain-analysis-service/internal/raster"
)

// field holds one IFD record with its value bytes already located, whether
// they were inline or external.
type field struct {
	typ   uint16
	count uint32
	raw   []byte
}

// Read loads a single-band GeoTIFF into a float64 grid. Integer and float
// sample formats up to 64 bits are accepted; compressed, tiled, or
// multi-band files are rejected.
func Read(path string) (*raster.Grid, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	g, err := decode(buf)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return g, nil
}

func decode(buf []byte) (*raster.Grid, error) {
	if len(buf) < 8 {
		return nil, fmt.Errorf("truncated TIFF header")
	}
	var order binary.ByteOrder
	switch string(buf[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("not a TIFF file")
	}
	if order.Uint16(buf[2:]) != 42 {
		return nil, fmt.Errorf("bad TIFF magic")
	}

	fields, err := readIFD(buf, order, order.Uint32(buf[4:]))
	if err != nil {
		return nil, err
	}

	cols := int(uintField(fields, order, tagImageWidth, 0))
	rows := int(uintField(fields, order, tagImageLength, 0))
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("missing image dimensions")
	}
	if v := uintField(fields, order, tagCompression, 1); v != 1 {
		return nil, fmt.Errorf("unsupported compression %d", v)
	}
	if v := uintField(fields, order, tagSamplesPerPixel, 1); v != 1 {
		return nil, fmt.Errorf("unsupported band count %d", v)
	}
	if v := uintField(fields, order, tagPlanarConfig, 1); v != 1 {
		return nil, fmt.Errorf("unsupported planar configuration %d", v)
	}
	bits := int(uintField(fields, order, tagBitsPerSample, 1))
	format := int(uintField(fields, order, tagSampleFormat, sampleUint))

	tr, crs, err := georeference(fields, order)
	if err != nil {
		return nil, err
	}

	nodata := math.NaN()
	if f, ok := fields[tagGDALNoData]; ok {
		s := strings.TrimRight(string(f.raw), "\x00 ")
		if v, perr := strconv.ParseFloat(strings.TrimSpace(s), 64); perr == nil {
			nodata = v
		}
	}

	g := raster.NewGrid(rows, cols, tr, crs, nodata)
	if err := readStrips(buf, order, fields, g, bits, format); err != nil {
		return nil, err
	}
	return g, nil
}

func readIFD(buf []byte, order binary.ByteOrder, offset uint32) (map[uint16]field, error) {
	if int(offset)+2 > len(buf) {
		return nil, fmt.Errorf("IFD offset out of range")
	}
	n := int(order.Uint16(buf[offset:]))
	fields := make(map[uint16]field, n)
	pos := int(offset) + 2
	for i := 0; i < n; i++ {
		if pos+12 > len(buf) {
			return nil, fmt.Errorf("truncated IFD")
		}
		tag := order.Uint16(buf[pos:])
		typ := order.Uint16(buf[pos+2:])
		count := order.Uint32(buf[pos+4:])
		size := typeSize(typ) * int(count)
		var raw []byte
		if size <= 4 {
			raw = buf[pos+8 : pos+8+size]
		} else {
			off := int(order.Uint32(buf[pos+8:]))
			if off+size > len(buf) {
				return nil, fmt.Errorf("tag %d value out of range", tag)
			}
			raw = buf[off : off+size]
		}
		fields[tag] = field{typ: typ, count: count, raw: raw}
		pos += 12
	}
	return fields, nil
}

func typeSize(typ uint16) int {
	switch typ {
	case typeByte, typeASCII:
		return 1
	case typeShort:
		return 2
	case typeLong:
		return 4
	case typeDouble:
		return 8
	default:
		return 0
	}
}

// uintField returns the first value of an integer-typed tag, or def when the
// tag is absent.
func uintField(fields map[uint16]field, order binary.ByteOrder, tag uint16, def uint32) uint32 {
	f, ok := fields[tag]
	if !ok || len(f.raw) == 0 {
		return def
	}
	switch f.typ {
	case typeByte:
		return uint32(f.raw[0])
	case typeShort:
		return uint32(order.Uint16(f.raw))
	case typeLong:
		return order.Uint32(f.raw)
	}
	return def
}

func uintSlice(fields map[uint16]field, order binary.ByteOrder, tag uint16) []uint32 {
	f, ok := fields[tag]
	if !ok {
		return nil
	}
	out := make([]uint32, f.count)
	for i := range out {
		switch f.typ {
		case typeShort:
			out[i] = uint32(order.Uint16(f.raw[i*2:]))
		case typeLong:
			out[i] = order.Uint32(f.raw[i*4:])
		}
	}
	return out
}

func doubleSlice(fields map[uint16]field, order binary.ByteOrder, tag uint16) []float64 {
	f, ok := fields[tag]
	if !ok || f.typ != typeDouble {
		return nil
	}
	out := make([]float64, f.count)
	for i := range out {
		out[i] = math.Float64frombits(order.Uint64(f.raw[i*8:]))
	}
	return out
}

func georeference(fields map[uint16]field, order binary.ByteOrder) (raster.Transform, domain.CRS, error) {
	scale := doubleSlice(fields, order, tagModelPixelScale)
	tie := doubleSlice(fields, order, tagModelTiepoint)
	if len(scale) < 2 || len(tie) < 6 {
		return raster.Transform{}, domain.CRS{}, fmt.Errorf("missing georeferencing tags")
	}
	// world = tiepoint world coords shifted back by the tiepoint pixel coords
	tr := raster.Transform{
		A: scale[0],
		E: -scale[1],
		C: tie[3] - tie[0]*scale[0],
		F: tie[4] + tie[1]*scale[1],
	}

	var crs domain.CRS
	keys := uintSlice(fields, order, tagGeoKeyDirectory)
	for i := 4; i+3 < len(keys); i += 4 {
		switch keys[i] {
		case keyGeographicType, keyProjectedCS:
			crs = domain.CRS{EPSG: int(keys[i+3])}
			if crs.EPSG == 4326 {
				crs.Name = "WGS 84"
			}
		}
	}
	return tr, crs, nil
}

func readStrips(buf []byte, order binary.ByteOrder, fields map[uint16]field, g *raster.Grid, bits, format int) error {
	offsets := uintSlice(fields, order, tagStripOffsets)
	counts := uintSlice(fields, order, tagStripByteCounts)
	if len(offsets) == 0 || len(offsets) != len(counts) {
		return fmt.Errorf("missing strip layout")
	}
	rowsPerStrip := int(uintField(fields, order, tagRowsPerStrip, uint32(g.Rows)))
	bytesPer := bits / 8
	if bytesPer == 0 {
		return fmt.Errorf("unsupported bit depth %d", bits)
	}

	row := 0
	for s := range offsets {
		off, cnt := int(offsets[s]), int(counts[s])
		if off+cnt > len(buf) {
			return fmt.Errorf("strip %d out of range", s)
		}
		strip := buf[off : off+cnt]
		stripRows := min(rowsPerStrip, g.Rows-row)
		if cnt < stripRows*g.Cols*bytesPer {
			return fmt.Errorf("strip %d truncated", s)
		}
		for r := 0; r < stripRows; r++ {
			for c := 0; c < g.Cols; c++ {
				p := (r*g.Cols + c) * bytesPer
				v, err := sampleAt(strip[p:], order, bits, format)
				if err != nil {
					return err
				}
				g.Set(row+r, c, v)
			}
		}
		row += stripRows
	}
	if row != g.Rows {
		return fmt.Errorf("strips cover %d of %d rows", row, g.Rows)
	}
	return nil
}

func sampleAt(b []byte, order binary.ByteOrder, bits, format int) (float64, error) {
	switch {
	case bits == 8 && format == sampleUint:
		return float64(b[0]), nil
	case bits == 8 && format == sampleInt:
		return float64(int8(b[0])), nil
	case bits == 16 && format == sampleUint:
		return float64(order.Uint16(b)), nil
	case bits == 16 && format == sampleInt:
		return float64(int16(order.Uint16(b))), nil
	case bits == 32 && format == sampleUint:
		return float64(order.Uint32(b)), nil
	case bits == 32 && format == sampleInt:
		return float64(int32(order.Uint32(b))), nil
	case bits == 32 && format == sampleFloat:
		return float64(math.Float32frombits(order.Uint32(b))), nil
	case bits == 64 && format == sampleFloat:
		return math.Float64frombits(order.Uint64(b)), nil
	default:
		return 0, fmt.Errorf("unsupported sample: %d bits format %d", bits, format)
	}
}
