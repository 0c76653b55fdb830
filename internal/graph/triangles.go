package graph

import (
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"
)

// Triangle is a closed loop of three profiles mutually connected when edge
// direction is ignored. Members are ordered by profile identifier.
type Triangle struct {
	A, B, C *Node
}

// Labels returns the display names of the three members
func (t Triangle) Labels() [3]string {
	return [3]string{t.A.Profile.Label(), t.B.Profile.Label(), t.C.Profile.Label()}
}

// Triangles finds every triangle in the undirected closure of the graph:
// an edge in either direction counts as a relationship. For each undirected
// edge (a,b) the neighbor sets of a and b are intersected, so only edges
// actually present are tested. Each triangle is reported once, members
// sorted by identifier, results sorted for stable output.
func (g *Graph) Triangles() []Triangle {
	// Undirected adjacency sets keyed by profile identifier
	neighbors := make(map[string]map[string]bool, len(g.byProfileID))
	addNeighbor := func(a, b string) {
		set := neighbors[a]
		if set == nil {
			set = make(map[string]bool)
			neighbors[a] = set
		}
		set[b] = true
	}
	g.EachEdge(func(from, to *Node) {
		addNeighbor(from.Profile.ID, to.Profile.ID)
		addNeighbor(to.Profile.ID, from.Profile.ID)
	})

	found := make(map[[3]string]bool)
	var triangles []Triangle

	g.EachEdge(func(from, to *Node) {
		a, b := from.Profile.ID, to.Profile.ID
		// Intersect the smaller set against the larger one
		small, large := neighbors[a], neighbors[b]
		if len(large) < len(small) {
			small, large = large, small
		}
		for c := range small {
			if c == a || c == b || !large[c] {
				continue
			}
			key := canonicalTriple(a, b, c)
			if found[key] {
				continue
			}
			found[key] = true
			triangles = append(triangles, Triangle{
				A: g.byProfileID[key[0]],
				B: g.byProfileID[key[1]],
				C: g.byProfileID[key[2]],
			})
		}
	})

	sort.Slice(triangles, func(i, j int) bool {
		ti, tj := triangles[i], triangles[j]
		if ti.A.Profile.ID != tj.A.Profile.ID {
			return ti.A.Profile.ID < tj.A.Profile.ID
		}
		if ti.B.Profile.ID != tj.B.Profile.ID {
			return ti.B.Profile.ID < tj.B.Profile.ID
		}
		return ti.C.Profile.ID < tj.C.Profile.ID
	})

	logrus.Infof("Detected %d triangles", len(triangles))
	return triangles
}

// WriteLoopSummary writes a human-readable listing, one triangle of display
// names per line.
func WriteLoopSummary(w io.Writer, triangles []Triangle) error {
	for _, t := range triangles {
		labels := t.Labels()
		if _, err := fmt.Fprintf(w, "%s -> %s -> %s\n", labels[0], labels[1], labels[2]); err != nil {
			return err
		}
	}
	return nil
}

// canonicalTriple sorts three identifiers so every rotation of a triangle
// maps to the same key
func canonicalTriple(a, b, c string) [3]string {
	ids := []string{a, b, c}
	sort.Strings(ids)
	return [3]string{ids[0], ids[1], ids[2]}
}
