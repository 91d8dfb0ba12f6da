// Package domain models the terrain-analysis pipeline's core data.
//
// # Coordinate conventions
//
// Bounding boxes are WGS-84 and ordered (min lon, min lat, max lon, max lat),
// matching the 3DEP tile service request format. All rasters and vector
// layers produced by one run share the CRS captured from the source
// elevation raster at acquisition time; it is carried explicitly through
// every stage and never re-derived from intermediate files, which may lose
// georeferencing.
//
// # D8 flow direction encoding
//
// Each cell of the flow-direction raster holds one of eight codes naming
// the steepest downslope neighbor:
//
//	N=64  NE=128  E=1  SE=2  S=4  SW=8  W=16  NW=32
//
// A cell with no downslope neighbor (an outlet on the raster edge) holds 0.
// This is the conventional ESRI/pysheds direction map, kept so the
// flow_direction_d8.tif output is readable by standard GIS tooling.
//
// # Flow accumulation
//
// Accumulation counts the cells whose flow path passes through a cell,
// including the cell itself, so every valid cell has accumulation >= 1 and
// "accumulation > 0" doubles as the channel-candidate mask used when
// snapping pour points. A cell is a stream cell when its accumulation
// strictly exceeds the configured threshold.
//
// # Pour points
//
// Stream polylines store vertices in downstream order. Building one directed
// edge per consecutive vertex pair yields a graph whose in-degrees classify
// nodes: in-degree >= 2 is a JUNCTION (confluence), in-degree 0 is a
// TERMINUS (channel head). Nodes are keyed by exact coordinate, so
// geometrically coincident termini from overlapping polylines collapse to a
// single pour point.
//
// # Run identity
//
// Run IDs are deterministic SHA-256 hashes of the bounding box, resolution,
// and start time. They key log lines and stage events so concurrent runs
// against different regions remain distinguishable downstream. See
// [GenerateRunID].
package domain
