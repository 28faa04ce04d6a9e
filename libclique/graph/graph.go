package graph

import (
	"io"
	"strings"

	"github.com/2x3systems/maxclique/goclique"
	"github.com/pkg/errors"
)

// Graph is an undirected simple graph stored as one adjacency bit-set row per vertex.
//
// A Graph is immutable once built, so any number of goroutines may read it without locking.
type Graph struct {
	numVerts int
	numEdges int
	rows     []VtxSet
}

var _ goclique.Adjacency = (*Graph)(nil)

func (G *Graph) NumVerts() int {
	return G.numVerts
}

func (G *Graph) NumEdges() int {
	return G.numEdges
}

func (G *Graph) Adjacent(u, v goclique.VtxID) bool {
	return G.rows[u].Has(v)
}

// Neighbors returns v's adjacency row.  The caller must not modify it.
func (G *Graph) Neighbors(v goclique.VtxID) VtxSet {
	return G.rows[v]
}

func (G *Graph) Degree(v goclique.VtxID) int {
	return G.rows[v].Len()
}

// AllVerts returns the ordered candidate sequence 0..NumVerts()-1.
func (G *Graph) AllVerts() []goclique.VtxID {
	verts := make([]goclique.VtxID, G.numVerts)
	for i := range verts {
		verts[i] = goclique.VtxID(i)
	}
	return verts
}

// Edges calls onEdge for each edge u < v in row-major order.
func (G *Graph) Edges(onEdge func(u, v goclique.VtxID)) {
	for u := range G.rows {
		for _, v := range G.rows[u].Members() {
			if goclique.VtxID(u) < v {
				onEdge(goclique.VtxID(u), v)
			}
		}
	}
}

// WriteAsMatrixStr writes the adjacency matrix as rows of 0s and 1s.
func (G *Graph) WriteAsMatrixStr(out io.Writer) {
	var b strings.Builder
	b.Grow(G.numVerts * (2*G.numVerts + 1))
	for u := 0; u < G.numVerts; u++ {
		for v := 0; v < G.numVerts; v++ {
			if v > 0 {
				b.WriteByte(' ')
			}
			if G.rows[u].Has(goclique.VtxID(v)) {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
		b.WriteByte('\n')
	}
	io.WriteString(out, b.String())
}

// Builder accumulates edges for a Graph with a fixed vertex count.
type Builder struct {
	numVerts int
	numEdges int
	rows     []VtxSet
}

func NewBuilder(numVerts int) *Builder {
	Xb := &Builder{
		numVerts: numVerts,
		rows:     make([]VtxSet, numVerts),
	}
	for i := range Xb.rows {
		Xb.rows[i] = NewVtxSet(numVerts)
	}
	return Xb
}

// AddEdge connects u and v (zero-based).  Repeated edges are absorbed and self loops are rejected.
func (Xb *Builder) AddEdge(u, v goclique.VtxID) error {
	if u < 0 || int(u) >= Xb.numVerts {
		return errors.Wrapf(goclique.ErrBadVtxID, "vertex %d out of range [0, %d)", u, Xb.numVerts)
	}
	if v < 0 || int(v) >= Xb.numVerts {
		return errors.Wrapf(goclique.ErrBadVtxID, "vertex %d out of range [0, %d)", v, Xb.numVerts)
	}
	if u == v {
		return errors.Wrapf(goclique.ErrBadAdjacency, "self loop at vertex %d", u)
	}
	if !Xb.rows[u].Has(v) {
		Xb.rows[u].Add(v)
		Xb.rows[v].Add(u)
		Xb.numEdges++
	}
	return nil
}

// Build returns the finished Graph.  The Builder must not be used afterwards.
func (Xb *Builder) Build() *Graph {
	G := &Graph{
		numVerts: Xb.numVerts,
		numEdges: Xb.numEdges,
		rows:     Xb.rows,
	}
	Xb.rows = nil
	return G
}

// Complete returns K_n.
func Complete(numVerts int) *Graph {
	Xb := NewBuilder(numVerts)
	for u := 0; u < numVerts; u++ {
		for v := u + 1; v < numVerts; v++ {
			Xb.AddEdge(goclique.VtxID(u), goclique.VtxID(v))
		}
	}
	return Xb.Build()
}
