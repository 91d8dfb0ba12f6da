// Package geotiff reads and writes single-band GeoTIFF rasters.
//
// Scope is deliberately narrow: little-endian, strip-organized, uncompressed
// grayscale samples (the layout the elevation tile service returns and the
// only layout this service writes), with the ModelPixelScale, ModelTiepoint,
// and GeoKeyDirectory tags needed to round-trip georeferencing, plus the
// GDAL nodata convention. Anything else is rejected with an error rather
// than silently misread.
package geotiff

const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagSampleFormat    = 339
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGeoKeyDirectory = 34735
	tagGDALNoData      = 42113
)

const (
	typeByte   = 1
	typeASCII  = 2
	typeShort  = 3
	typeLong   = 4
	typeDouble = 12
)

const (
	sampleUint  = 1
	sampleInt   = 2
	sampleFloat = 3
)

// GeoKey IDs used in the GeoKeyDirectory tag.
const (
	keyModelType      = 1024
	keyRasterType     = 1025
	keyGeographicType = 2048
	keyProjectedCS    = 3072

	modelTypeProjected  = 1
	modelTypeGeographic = 2
	rasterPixelIsArea   = 1
)
