// Package graph builds the time-dependent candidate graph the routing
// engine searches (spec §4.4). It is a thin adapter over
// github.com/katalvlaran/lvlath/core: the backend's candidate-edge query
// already applies the zone-filtering and aircraft-destination exclusion
// rules, so this package's job is materializing that edge set into a
// directed, weighted lvlath graph that the A* engine (internal/routing)
// walks directly — OutEdges/Edge below are a thin pass-through to
// lvlath's own Edges()/GetEdge(), not a parallel hand-rolled adjacency.
package graph

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/katalvlaran/lvlath/core"

	"github.com/skypath/gis/internal/store"
	"github.com/skypath/gis/pkg/geo"
)

// EdgeMeta is the per-edge data the routing engine needs beyond what
// lvlath's own core.Edge carries: the originating store.Node ids and the
// 3D endpoint coordinates used to emit a routing.PathLeg.
type EdgeMeta struct {
	FromNode int64
	ToNode   int64
	FromLoc  geo.Point3
	ToLoc    geo.Point3
	CostM    float64
}

// Graph is the candidate graph for one query window: a directed,
// weighted lvlath core.Graph plus the vertex metadata (location, kind)
// the spec's A* and leg-reconstruction steps (§4.5) need on top of it.
// Edge ids are stable only within the Graph that produced them (spec
// §4.4: "Edge ids are stable only within one query").
type Graph struct {
	g    *core.Graph
	cost map[string]float64
	kind map[string]store.NodeKind
	loc  map[string]geo.Point3
}

// VertexID returns the lvlath vertex id for a store node id. Exported so
// callers that already hold a store.Node (e.g. the query surface, after
// resolving an endpoint) can look up its vertex without re-deriving the
// encoding.
func VertexID(nodeID int64) string {
	return strconv.FormatInt(nodeID, 10)
}

// Build materializes the candidate edge set for time t with the given
// aircraft tolerance and zone exemptions (spec §4.4 steps 1-4) into a
// Graph. t is the query's t_start: per spec §4.2's candidate_edges
// signature, the backend snapshots candidate nodes and active zones at
// a single instant rather than integrating over the full [t_start,t_end]
// window — the graph answers "what does the world look like at
// departure time", which is the instant that matters for admitting an
// edge into the search.
func Build(ctx context.Context, backend store.Backend, t time.Time, tolerance time.Duration, exemptZoneIDs []int64) (*Graph, error) {
	edges, err := backend.CandidateEdges(ctx, t, tolerance, exemptZoneIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build candidate graph: %w", err)
	}

	out := &Graph{
		g:    core.NewGraph(core.WithDirected(true), core.WithWeighted()),
		cost: make(map[string]float64, len(edges)),
		kind: make(map[string]store.NodeKind),
		loc:  make(map[string]geo.Point3),
	}

	for _, e := range edges {
		fv, tv := VertexID(e.From.ID), VertexID(e.To.ID)
		out.kind[fv] = e.From.Kind
		out.kind[tv] = e.To.Kind
		out.loc[fv] = e.FromLoc
		out.loc[tv] = e.ToLoc

		id, err := out.g.AddEdge(fv, tv, e.CostM)
		if err != nil {
			return nil, fmt.Errorf("failed to add candidate edge %s->%s: %w", fv, tv, err)
		}
		// lvlath's weighted-Edge accessor shape isn't pinned down by
		// anything in the retrieved pack beyond the AddEdge(from, to,
		// weight) constructor, so the cost is kept here keyed by the id
		// AddEdge handed back rather than re-read off the Edge value.
		out.cost[id] = e.CostM
	}

	return out, nil
}

// HasVertex reports whether nodeID appears as an endpoint of at least
// one candidate edge.
func (gr *Graph) HasVertex(nodeID int64) bool {
	_, ok := gr.kind[VertexID(nodeID)]
	return ok
}

// OutEdges returns the ids of edges leaving vertex v, read directly off
// lvlath's own edge list (core.Graph.Edges()) rather than a side-table
// copy of the adjacency.
func (gr *Graph) OutEdges(v string) []string {
	all := gr.g.Edges()
	ids := make([]string, 0, len(all))
	for _, e := range all {
		if e.From == v {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// Edge returns the metadata for edge id, or false if it does not exist.
// From/To come from lvlath's core.Graph.GetEdge; only the cost (whose
// field name on lvlath's Edge isn't confirmed by anything in the
// retrieved pack) and the endpoint coordinates are read back out of this
// package's own side tables.
func (gr *Graph) Edge(id string) (EdgeMeta, bool) {
	e, err := gr.g.GetEdge(id)
	if err != nil {
		return EdgeMeta{}, false
	}
	fromNode, err1 := strconv.ParseInt(e.From, 10, 64)
	toNode, err2 := strconv.ParseInt(e.To, 10, 64)
	if err1 != nil || err2 != nil {
		return EdgeMeta{}, false
	}
	fromLoc, ok1 := gr.loc[e.From]
	toLoc, ok2 := gr.loc[e.To]
	cost, ok3 := gr.cost[id]
	if !ok1 || !ok2 || !ok3 {
		return EdgeMeta{}, false
	}
	return EdgeMeta{
		FromNode: fromNode, ToNode: toNode,
		FromLoc: fromLoc, ToLoc: toLoc, CostM: cost,
	}, true
}

// Location returns the candidate-time position of vertex v.
func (gr *Graph) Location(v string) (geo.Point3, bool) {
	p, ok := gr.loc[v]
	return p, ok
}

// Kind returns the node kind backing vertex v.
func (gr *Graph) Kind(v string) (store.NodeKind, bool) {
	k, ok := gr.kind[v]
	return k, ok
}
