package search

import (
	"github.com/2x3systems/maxclique/goclique"
	"github.com/2x3systems/maxclique/libclique/graph"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// ReferenceMaxCliqueSize returns the size of a maximum clique of G using gonum's Bron–Kerbosch enumeration.
//
// It shares no code with the search kernel, so it serves as an independent cross-check.
func ReferenceMaxCliqueSize(G *graph.Graph) int {
	ug := simple.NewUndirectedGraph()
	for v := 0; v < G.NumVerts(); v++ {
		ug.AddNode(simple.Node(v))
	}
	G.Edges(func(u, v goclique.VtxID) {
		ug.SetEdge(simple.Edge{F: simple.Node(u), T: simple.Node(v)})
	})

	best := 0
	for _, maximal := range topo.BronKerbosch(ug) {
		best = max(best, len(maximal))
	}
	return best
}

// VerifyMaximum checks that K is a clique of G and that no clique of G is larger.
func VerifyMaximum(G *graph.Graph, K goclique.Clique) error {
	if err := K.Validate(G); err != nil {
		return err
	}
	if want := ReferenceMaxCliqueSize(G); len(K) != want {
		return errors.Wrapf(goclique.ErrInvalidClique, "clique of size %d is not maximum (reference size %d)", len(K), want)
	}
	return nil
}
