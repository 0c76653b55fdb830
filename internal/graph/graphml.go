package graph

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"

	"github.com/nmorell/followgraph/internal/storage"
)

// GraphML document structure. Nodes are keyed by display name with the
// internal identifier kept as an attribute; encoding/xml takes care of
// escaping names into valid UTF-8 XML text.
type graphmlDoc struct {
	XMLName xml.Name     `xml:"graphml"`
	XMLNS   string       `xml:"xmlns,attr"`
	Keys    []graphmlKey `xml:"key"`
	Graph   graphmlGraph `xml:"graph"`
}

type graphmlKey struct {
	ID       string `xml:"id,attr"`
	For      string `xml:"for,attr"`
	AttrName string `xml:"attr.name,attr"`
	AttrType string `xml:"attr.type,attr"`
}

type graphmlGraph struct {
	ID          string        `xml:"id,attr"`
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphmlNode `xml:"node"`
	Edges       []graphmlEdge `xml:"edge"`
}

type graphmlNode struct {
	ID   string        `xml:"id,attr"`
	Data []graphmlData `xml:"data"`
}

type graphmlEdge struct {
	Source string `xml:"source,attr"`
	Target string `xml:"target,attr"`
}

type graphmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// WriteGraphML serializes the graph as a standard GraphML document with
// directed edges. Nodes are keyed by display name; duplicate display names
// are disambiguated with the profile identifier.
func (g *Graph) WriteGraphML(w io.Writer) error {
	doc := graphmlDoc{
		XMLNS: "http://graphml.graphdrawing.org/xmlns",
		Keys: []graphmlKey{
			{ID: "profile_id", For: "node", AttrName: "profile_id", AttrType: "string"},
			{ID: "avatar", For: "node", AttrName: "avatar", AttrType: "string"},
			{ID: "follower_count", For: "node", AttrName: "follower_count", AttrType: "int"},
		},
		Graph: graphmlGraph{
			ID:          "followgraph",
			EdgeDefault: "directed",
		},
	}

	nodeKeys := g.nodeKeys()

	var ids []string
	for id := range nodeKeys {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		p := g.byProfileID[id].Profile
		node := graphmlNode{
			ID: nodeKeys[id],
			Data: []graphmlData{
				{Key: "profile_id", Value: p.ID},
			},
		}
		if p.AvatarURL != "" {
			node.Data = append(node.Data, graphmlData{Key: "avatar", Value: p.AvatarURL})
		}
		if p.FollowerCount != storage.FollowerCountUnknown {
			node.Data = append(node.Data, graphmlData{Key: "follower_count", Value: fmt.Sprintf("%d", p.FollowerCount)})
		}
		doc.Graph.Nodes = append(doc.Graph.Nodes, node)
	}

	g.EachEdge(func(from, to *Node) {
		doc.Graph.Edges = append(doc.Graph.Edges, graphmlEdge{
			Source: nodeKeys[from.Profile.ID],
			Target: nodeKeys[to.Profile.ID],
		})
	})
	sort.Slice(doc.Graph.Edges, func(i, j int) bool {
		if doc.Graph.Edges[i].Source != doc.Graph.Edges[j].Source {
			return doc.Graph.Edges[i].Source < doc.Graph.Edges[j].Source
		}
		return doc.Graph.Edges[i].Target < doc.Graph.Edges[j].Target
	})

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// nodeKeys maps profile identifiers to GraphML node keys: the display name,
// or "name#id" when two profiles share one.
func (g *Graph) nodeKeys() map[string]string {
	labelCount := make(map[string]int, len(g.byProfileID))
	for _, node := range g.byProfileID {
		labelCount[node.Profile.Label()]++
	}

	keys := make(map[string]string, len(g.byProfileID))
	for id, node := range g.byProfileID {
		label := node.Profile.Label()
		if labelCount[label] > 1 {
			label = fmt.Sprintf("%s#%s", label, id)
		}
		keys[id] = label
	}
	return keys
}
