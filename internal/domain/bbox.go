package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// BBox is a WGS-84 bounding box in (min lon, min lat, max lon, max lat) order.
type BBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// ParseBBox parses a comma-separated "minLon,minLat,maxLon,maxLat" string.
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, fmt.Errorf("bbox must have 4 comma-separated values, got %d", len(parts))
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, fmt.Errorf("bbox component %d: %w", i+1, err)
		}
		vals[i] = v
	}
	b := BBox{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}
	if err := b.Validate(); err != nil {
		return BBox{}, err
	}
	return b, nil
}

// Validate checks coordinate ranges and ordering.
func (b BBox) Validate() error {
	if b.MinLon < -180 || b.MaxLon > 180 || b.MinLat < -90 || b.MaxLat > 90 {
		return fmt.Errorf("bbox out of WGS-84 range: %s", b)
	}
	if b.MinLon >= b.MaxLon || b.MinLat >= b.MaxLat {
		return fmt.Errorf("bbox min must be strictly less than max: %s", b)
	}
	return nil
}

func (b BBox) String() string {
	return fmt.Sprintf("(%g, %g, %g, %g)", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// RegionKey returns a stable cache key identifying this box at a given
// resolution. Coordinates are fixed to six decimals (~0.1 m) so float
// formatting noise cannot split cache entries for the same request.
func (b BBox) RegionKey(resolutionM int) string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f@%dm", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat, resolutionM)
}
