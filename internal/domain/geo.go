package domain

import (
	"fmt"

	"github.com/paulmach/orb"
)

// CRS identifies a coordinate reference system by EPSG code. The zero value
// means "unknown"; rasters without georeferencing carry it and downstream
// stages must rely on the CRS captured at acquisition instead.
type CRS struct {
	EPSG int
	Name string
}

// WGS84 is the geographic CRS used by the tile service and, absent
// reprojection, by every derived output.
var WGS84 = CRS{EPSG: 4326, Name: "WGS 84"}

// Known reports whether the CRS carries a usable EPSG code.
func (c CRS) Known() bool { return c.EPSG != 0 }

// Geographic reports whether coordinates are lon/lat degrees rather than
// projected units.
func (c CRS) Geographic() bool { return c.EPSG == 4326 }

func (c CRS) String() string {
	if !c.Known() {
		return "unknown CRS"
	}
	if c.Name == "" {
		return fmt.Sprintf("EPSG:%d", c.EPSG)
	}
	return fmt.Sprintf("EPSG:%d (%s)", c.EPSG, c.Name)
}

// StreamNetwork is the set of channel polylines extracted above the
// accumulation threshold. Vertices are world coordinates in CRS units,
// ordered downstream. An empty network is a valid terminal state.
type StreamNetwork struct {
	Lines []orb.LineString
	CRS   CRS
}

// Empty reports whether no channel reaches were extracted.
func (n StreamNetwork) Empty() bool { return len(n.Lines) == 0 }

// PointType classifies a pour point.
type PointType string

const (
	// Junction is a confluence: a stream-graph node with in-degree >= 2.
	Junction PointType = "JUNCTION"
	// Terminus is a channel head: a stream-graph node with in-degree 0.
	Terminus PointType = "TERMINUS"
)

// PourPoint is a hydrologically meaningful location on the stream network,
// one per distinct graph node that classifies as junction or terminus.
type PourPoint struct {
	Point orb.Point
	Type  PointType
}
