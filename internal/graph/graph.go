// Package graph builds an in-memory view of the cached follower graph and
// derives analytics from it: triangle ("loop") detection and GraphML export.
package graph

import (
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/nmorell/followgraph/internal/storage"
)

// Snapshot is the read-only slice of the cache store analytics depends on
type Snapshot interface {
	ListProfiles() ([]*storage.Profile, error)
	ListEdges() ([]*storage.Edge, error)
}

// Node is a gonum graph node carrying its profile record
type Node struct {
	id      int64
	Profile *storage.Profile
}

// ID implements gonum's graph.Node
func (n *Node) ID() int64 { return n.id }

// Graph is a directed follower graph over gonum's simple.DirectedGraph,
// with profile-identifier lookup on top.
type Graph struct {
	*simple.DirectedGraph
	byProfileID map[string]*Node
}

// Build loads all cached profiles and edges into a directed graph. With
// excludePrivate set, private profiles and every edge touching them are
// omitted. Edges whose endpoints are missing from the profile snapshot are
// skipped.
func Build(store Snapshot, excludePrivate bool) (*Graph, error) {
	profiles, err := store.ListProfiles()
	if err != nil {
		return nil, err
	}
	edges, err := store.ListEdges()
	if err != nil {
		return nil, err
	}

	g := &Graph{
		DirectedGraph: simple.NewDirectedGraph(),
		byProfileID:   make(map[string]*Node, len(profiles)),
	}

	var nextID int64
	for _, p := range profiles {
		if excludePrivate && p.IsPrivate {
			continue
		}
		node := &Node{id: nextID, Profile: p}
		nextID++
		g.AddNode(node)
		g.byProfileID[p.ID] = node
	}

	for _, e := range edges {
		from, okFrom := g.byProfileID[e.FromID]
		to, okTo := g.byProfileID[e.ToID]
		if !okFrom || !okTo {
			continue
		}
		if from.ID() == to.ID() {
			continue
		}
		g.SetEdge(g.NewEdge(from, to))
	}

	logrus.Infof("Graph contains %d nodes and %d edges (exclude_private=%t)",
		g.Nodes().Len(), g.Edges().Len(), excludePrivate)
	return g, nil
}

// NodeFor returns the node for a profile identifier, nil if absent
func (g *Graph) NodeFor(profileID string) *Node {
	return g.byProfileID[profileID]
}

// EachNode calls visit for every node in the graph
func (g *Graph) EachNode(visit func(*Node)) {
	nodes := g.Nodes()
	for nodes.Next() {
		visit(nodes.Node().(*Node))
	}
}

// EachEdge calls visit(from, to) for every directed edge
func (g *Graph) EachEdge(visit func(from, to *Node)) {
	edges := g.Edges()
	for edges.Next() {
		e := edges.Edge()
		visit(e.From().(*Node), e.To().(*Node))
	}
}
