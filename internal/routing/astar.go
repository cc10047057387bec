// Package routing is the shortest-path engine (spec §4.5): it
// materializes the candidate graph for a query window via
// internal/graph, then runs an A* search with a great-circle-distance
// heuristic from the start node to the end node. Spec §9 explicitly
// sanctions "an alternative in-process implementation using an R-tree +
// a hand-rolled A*" in place of the reference pgRouting-backed one, so
// the search itself is a plain container/heap priority queue rather
// than a third-party graph-search library — none of the retrieved
// reference repos carry one to ground a dependency choice on.
package routing

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"github.com/skypath/gis/internal/apierr"
	"github.com/skypath/gis/internal/graph"
	"github.com/skypath/gis/internal/store"
	"github.com/skypath/gis/pkg/geo"
)

// PathLeg is one edge of a returned route, shaped per spec §4.5 step 4:
// ordered sequence number, both endpoints' node kind and coordinates,
// and the leg's great-circle distance.
type PathLeg struct {
	PathSeq   int
	StartType store.NodeKind
	StartLat  float64
	StartLon  float64
	EndType   store.NodeKind
	EndLat    float64
	EndLon    float64
	DistanceM float64
}

// TotalDistanceM sums a route's leg distances.
func TotalDistanceM(legs []PathLeg) float64 {
	var total float64
	for _, l := range legs {
		total += l.DistanceM
	}
	return total
}

// BestPath runs the graph-builder + A* pipeline described in spec §4.5:
// it builds the candidate graph at tStart (exempting exemptZoneIDs, the
// departure/arrival vertiports' own zones per spec §4.4's rationale),
// then searches it from startNodeID to endNodeID. A nil, nil result
// means no admissible route exists — per spec §4.5 step 5 this is not
// an error.
func BestPath(ctx context.Context, backend store.Backend, startNodeID, endNodeID int64, exemptZoneIDs []int64, tStart time.Time, tolerance time.Duration) ([]PathLeg, error) {
	g, err := graph.Build(ctx, backend, tStart, tolerance, exemptZoneIDs)
	if err != nil {
		return nil, err
	}

	if !g.HasVertex(startNodeID) || !g.HasVertex(endNodeID) {
		// either endpoint was not even a candidate at this instant (e.g.
		// an aircraft sample outside tolerance) — not an error, just no
		// route (spec §4.5 step 5).
		return nil, nil
	}
	start, end := graph.VertexID(startNodeID), graph.VertexID(endNodeID)

	edgeIDs, found := search(g, start, end, endNodeID)
	if !found {
		return nil, nil
	}

	legs := make([]PathLeg, 0, len(edgeIDs))
	for i, id := range edgeIDs {
		e, ok := g.Edge(id)
		if !ok {
			return nil, fmt.Errorf("%w: routing: dangling edge id %s in reconstructed path", apierr.Internal, id)
		}
		fromKind, _ := g.Kind(graph.VertexID(e.FromNode))
		toKind, _ := g.Kind(graph.VertexID(e.ToNode))
		legs = append(legs, PathLeg{
			PathSeq:   i + 1,
			StartType: fromKind,
			StartLat:  e.FromLoc.Lat,
			StartLon:  e.FromLoc.Lon,
			EndType:   toKind,
			EndLat:    e.ToLoc.Lat,
			EndLon:    e.ToLoc.Lon,
			DistanceM: e.CostM,
		})
	}
	return legs, nil
}

// openItem is one entry in the A* frontier.
type openItem struct {
	vertex string
	gScore float64
	fScore float64
	index  int
}

type openQueue []*openItem

func (q openQueue) Len() int            { return len(q) }
func (q openQueue) Less(i, j int) bool  { return q[i].fScore < q[j].fScore }
func (q openQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i]; q[i].index = i; q[j].index = j }
func (q *openQueue) Push(x interface{}) {
	item := x.(*openItem)
	item.index = len(*q)
	*q = append(*q, item)
}
func (q *openQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

// search runs A* over g from start to end, returning the ordered edge
// ids of the optimal route. The heuristic is the great-circle distance
// from a vertex's candidate-time location to the target's — admissible
// because no great-circle edge cost can ever be shorter than the direct
// great-circle distance between its endpoints, consistent with spec
// §4.2's "heuristic=Euclidean-in-x/y" pgRouting equivalent.
func search(g *graph.Graph, start, end string, endNodeID int64) ([]string, bool) {
	endLoc, _ := g.Location(end)
	heuristic := func(v string) float64 {
		loc, ok := g.Location(v)
		if !ok {
			return 0
		}
		return geo.DistanceM(loc.To2D(), endLoc.To2D())
	}

	gScore := map[string]float64{start: 0}
	cameFromEdge := map[string]string{}
	cameFromVertex := map[string]string{}
	closed := map[string]bool{}

	open := &openQueue{}
	heap.Init(open)
	heap.Push(open, &openItem{vertex: start, gScore: 0, fScore: heuristic(start)})

	for open.Len() > 0 {
		cur := heap.Pop(open).(*openItem)
		if closed[cur.vertex] {
			continue
		}
		if cur.vertex == end {
			return reconstruct(cameFromEdge, cameFromVertex, end), true
		}
		closed[cur.vertex] = true

		for _, edgeID := range g.OutEdges(cur.vertex) {
			meta, ok := g.Edge(edgeID)
			if !ok {
				continue
			}
			nextVertex := graph.VertexID(meta.ToNode)
			if closed[nextVertex] {
				continue
			}
			tentativeG := cur.gScore + meta.CostM
			if existing, seen := gScore[nextVertex]; seen && tentativeG >= existing {
				continue
			}
			gScore[nextVertex] = tentativeG
			cameFromEdge[nextVertex] = edgeID
			cameFromVertex[nextVertex] = cur.vertex
			heap.Push(open, &openItem{vertex: nextVertex, gScore: tentativeG, fScore: tentativeG + heuristic(nextVertex)})
		}
	}

	return nil, false
}

// reconstruct walks cameFromVertex/cameFromEdge backward from end to
// start and returns the edge ids in forward traversal order.
func reconstruct(cameFromEdge, cameFromVertex map[string]string, end string) []string {
	var edges []string
	for v := end; ; {
		edgeID, ok := cameFromEdge[v]
		if !ok {
			break
		}
		edges = append(edges, edgeID)
		v = cameFromVertex[v]
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	return edges
}
