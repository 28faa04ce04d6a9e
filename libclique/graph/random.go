package graph

import (
	"math/rand"

	"github.com/2x3systems/maxclique/goclique"
)

// Random returns a G(n, p) graph: each of the n(n-1)/2 possible edges is present with probability density.
func Random(numVerts int, density float64, rng *rand.Rand) *Graph {
	Xb := NewBuilder(numVerts)
	for u := 0; u < numVerts; u++ {
		for v := u + 1; v < numVerts; v++ {
			if rng.Float64() < density {
				Xb.AddEdge(goclique.VtxID(u), goclique.VtxID(v))
			}
		}
	}
	return Xb.Build()
}
