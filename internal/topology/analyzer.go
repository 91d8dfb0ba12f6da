// Package topology classifies hydrologically meaningful points on a stream
// network. The network's polylines, read as a directed graph in stored
// (downstream) vertex order, expose confluences and channel heads through
// node in-degree alone.
package topology

import (
	"log/slog"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
)

// Analyzer binds pour-point extraction to a logger for use as a workflow
// stage.
type Analyzer struct {
	logger *slog.Logger
}

func NewAnalyzer(logger *slog.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// PourPoints classifies the network's nodes; see the package-level
// PourPoints.
func (a *Analyzer) PourPoints(net domain.StreamNetwork) []domain.PourPoint {
	return PourPoints(net, a.logger)
}

// PourPoints builds the directed stream graph and classifies its nodes.
// One node per distinct vertex coordinate; one edge per consecutive vertex
// pair per polyline. Classification is computed from the finished graph's
// in-degrees, never cached: in-degree >= 2 is a junction, in-degree 0 a
// terminus, everything else a pass-through excluded from the output.
//
// An empty network yields an empty point set; the caller treats that as a
// normal early-termination condition.
func PourPoints(net domain.StreamNetwork, logger *slog.Logger) []domain.PourPoint {
	if net.Empty() {
		logger.Warn("no stream network available, skipping pour point identification")
		return nil
	}

	g := simple.NewDirectedGraph()
	ids := make(map[orb.Point]int64)
	var coords []orb.Point

	nodeFor := func(p orb.Point) int64 {
		if id, ok := ids[p]; ok {
			return id
		}
		id := int64(len(coords))
		ids[p] = id
		coords = append(coords, p)
		return id
	}

	edges := 0
	for _, line := range net.Lines {
		for i := 0; i+1 < len(line); i++ {
			from, to := line[i], line[i+1]
			if from == to {
				// Zero-length segments carry no flow.
				continue
			}
			g.SetEdge(simple.Edge{F: simple.Node(nodeFor(from)), T: simple.Node(nodeFor(to))})
			edges++
		}
	}
	logger.Info("stream graph built", "nodes", len(coords), "edges", edges)

	var junctions, termini []orb.Point
	for id, p := range coords {
		switch in := g.To(int64(id)).Len(); {
		case in >= 2:
			junctions = append(junctions, p)
		case in == 0:
			termini = append(termini, p)
		}
	}
	logger.Info("pour points classified", "junctions", len(junctions), "termini", len(termini))

	points := make([]domain.PourPoint, 0, len(junctions)+len(termini))
	for _, p := range junctions {
		points = append(points, domain.PourPoint{Point: p, Type: domain.Junction})
	}
	for _, p := range termini {
		points = append(points, domain.PourPoint{Point: p, Type: domain.Terminus})
	}
	return points
}
