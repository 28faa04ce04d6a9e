package goclique_test

import (
	"testing"

	"github.com/2x3systems/maxclique/goclique"
	"github.com/stretchr/testify/require"
)

// pairs is an Adjacency over a fixed edge list.
type pairs struct {
	numVerts int
	edges    map[[2]goclique.VtxID]bool
}

func newPairs(numVerts int, edges ...[2]goclique.VtxID) *pairs {
	adj := &pairs{numVerts: numVerts, edges: make(map[[2]goclique.VtxID]bool)}
	for _, e := range edges {
		adj.edges[e] = true
		adj.edges[[2]goclique.VtxID{e[1], e[0]}] = true
	}
	return adj
}

func (adj *pairs) NumVerts() int { return adj.numVerts }
func (adj *pairs) Adjacent(u, v goclique.VtxID) bool { return adj.edges[[2]goclique.VtxID{u, v}] }

func TestValidate(t *testing.T) {
	G := newPairs(4, [2]goclique.VtxID{0, 1}, [2]goclique.VtxID{1, 2}, [2]goclique.VtxID{0, 2})

	require.NoError(t, goclique.Clique{}.Validate(G))
	require.NoError(t, goclique.Clique{3}.Validate(G))
	require.NoError(t, goclique.Clique{2, 0, 1}.Validate(G))

	err := goclique.Clique{0, 1, 0}.Validate(G)
	require.ErrorIs(t, err, goclique.ErrInvalidClique)
	require.Contains(t, err.Error(), "vertex 1 appears more than once")

	err = goclique.Clique{0, 3}.Validate(G)
	require.ErrorIs(t, err, goclique.ErrInvalidClique)
	require.Contains(t, err.Error(), "1 and 4 are not adjacent")

	require.ErrorIs(t, goclique.Clique{0, 4}.Validate(G), goclique.ErrBadVtxID)
	require.ErrorIs(t, goclique.Clique{-1}.Validate(G), goclique.ErrBadVtxID)
}
