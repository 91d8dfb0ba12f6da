package topology_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
	"github.com/couchcryptid/terrain-analysis-service/internal/topology"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pointsByType(points []domain.PourPoint, pt domain.PointType) []orb.Point {
	var out []orb.Point
	for _, p := range points {
		if p.Type == pt {
			out = append(out, p.Point)
		}
	}
	return out
}

func TestPourPoints_ConfluenceAndHeads(t *testing.T) {
	// Two upstream branches converge at (100, 200) and continue to (100, 150).
	net := domain.StreamNetwork{
		CRS: domain.WGS84,
		Lines: []orb.LineString{
			{{80, 260}, {90, 230}, {100, 200}},
			{{120, 260}, {110, 230}, {100, 200}},
			{{100, 200}, {100, 150}},
		},
	}

	points := topology.PourPoints(net, discard())

	junctions := pointsByType(points, domain.Junction)
	termini := pointsByType(points, domain.Terminus)

	require.Len(t, junctions, 1)
	assert.Equal(t, orb.Point{100, 200}, junctions[0])

	// The two channel heads have no incoming edges; (100,150) has in-degree 1.
	assert.ElementsMatch(t, []orb.Point{{80, 260}, {120, 260}}, termini)
}

func TestPourPoints_PassThroughNodesExcluded(t *testing.T) {
	net := domain.StreamNetwork{
		CRS:   domain.WGS84,
		Lines: []orb.LineString{{{0, 0}, {1, 1}, {2, 2}}},
	}

	points := topology.PourPoints(net, discard())

	require.Len(t, points, 1)
	assert.Equal(t, domain.Terminus, points[0].Type)
	assert.Equal(t, orb.Point{0, 0}, points[0].Point)
}

func TestPourPoints_InvariantUnderPolylineReordering(t *testing.T) {
	lines := []orb.LineString{
		{{80, 260}, {100, 200}},
		{{120, 260}, {100, 200}},
		{{100, 200}, {100, 150}},
	}
	reversed := []orb.LineString{lines[2], lines[1], lines[0]}

	a := topology.PourPoints(domain.StreamNetwork{Lines: lines, CRS: domain.WGS84}, discard())
	b := topology.PourPoints(domain.StreamNetwork{Lines: reversed, CRS: domain.WGS84}, discard())

	assert.ElementsMatch(t, a, b)
}

func TestPourPoints_CoincidentTerminiCollapse(t *testing.T) {
	// Two polylines start at the exact same coordinate: node identity is the
	// coordinate, so only one terminus results.
	net := domain.StreamNetwork{
		CRS: domain.WGS84,
		Lines: []orb.LineString{
			{{10, 10}, {20, 20}},
			{{10, 10}, {30, 5}},
		},
	}

	points := topology.PourPoints(net, discard())

	termini := pointsByType(points, domain.Terminus)
	assert.Equal(t, []orb.Point{{10, 10}}, termini)
}

func TestPourPoints_EmptyNetwork(t *testing.T) {
	assert.Empty(t, topology.PourPoints(domain.StreamNetwork{}, discard()))
}

func TestPourPoints_ZeroLengthSegmentIgnored(t *testing.T) {
	net := domain.StreamNetwork{
		CRS:   domain.WGS84,
		Lines: []orb.LineString{{{5, 5}, {5, 5}, {6, 6}}},
	}

	points := topology.PourPoints(net, discard())

	termini := pointsByType(points, domain.Terminus)
	assert.Equal(t, []orb.Point{{5, 5}}, termini)
}
