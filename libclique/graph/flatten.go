package graph

import (
	"github.com/2x3systems/maxclique/goclique"
	"github.com/pkg/errors"
)

// Flatten appends the adjacency matrix in row-major order, one byte (0 or 1) per cell, n*n bytes total.
//
// This is the broadcast wire format; FromFlat is its inverse.
func (G *Graph) Flatten(dst []byte) []byte {
	Nv := G.numVerts
	if need := len(dst) + Nv*Nv; cap(dst) < need {
		grown := make([]byte, len(dst), need)
		copy(grown, dst)
		dst = grown
	}
	for u := 0; u < Nv; u++ {
		row := G.rows[u]
		for v := 0; v < Nv; v++ {
			if row.Has(goclique.VtxID(v)) {
				dst = append(dst, 1)
			} else {
				dst = append(dst, 0)
			}
		}
	}
	return dst
}

// FromFlat reconstructs a Graph from a row-major n*n adjacency buffer.
//
// The buffer must be symmetric with a zero diagonal; any non-zero cell counts as an edge.
func FromFlat(numVerts int, flat []byte) (*Graph, error) {
	if numVerts < 0 {
		return nil, errors.Wrapf(goclique.ErrBadAdjacency, "negative vertex count %d", numVerts)
	}
	if len(flat) != numVerts*numVerts {
		return nil, errors.Wrapf(goclique.ErrBadAdjacency, "expected %d cells for %d vertices, got %d", numVerts*numVerts, numVerts, len(flat))
	}

	Xb := NewBuilder(numVerts)
	for u := 0; u < numVerts; u++ {
		row := flat[u*numVerts : (u+1)*numVerts]
		if row[u] != 0 {
			return nil, errors.Wrapf(goclique.ErrBadAdjacency, "self loop at vertex %d", u+1)
		}
		for v := u + 1; v < numVerts; v++ {
			a, b := row[v] != 0, flat[v*numVerts+u] != 0
			if a != b {
				return nil, errors.Wrapf(goclique.ErrBadAdjacency, "asymmetric cell (%d, %d)", u+1, v+1)
			}
			if a {
				Xb.AddEdge(goclique.VtxID(u), goclique.VtxID(v))
			}
		}
	}
	return Xb.Build(), nil
}
