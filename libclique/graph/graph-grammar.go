package graph

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/2x3systems/maxclique/goclique"
	"github.com/alecthomas/participle/v2"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

// EdgeListFile is the input file format:  "n m" followed by m lines of "u v" with one-based vertex ids.
type EdgeListFile struct {
	NumVerts int         `@Int`
	NumEdges int         `@Int`
	Edges    []*EdgeLine `@@*`
}

type EdgeLine struct {
	A int `@Int`
	B int `@Int`
}

// EdgeExpr is a compact graph expression of comma separated vertex runs, e.g. "1-2-3-1, 1-4, 5".
//
// Each run connects consecutive vertices; a lone vertex only declares that it exists.
type EdgeExpr struct {
	Runs []*EdgeRun `(@@ ("," @@)*)?`
}

type EdgeRun struct {
	Start int   `@Int`
	Next  []int `("-" @Int)*`
}

var (
	parseEdgeList = participle.MustBuild[EdgeListFile]()
	parseEdgeExpr = participle.MustBuild[EdgeExpr]()
)

// LoadEdgeList reads an edge list file and returns the graph it declares.
//
// Fewer edge lines than declared or a vertex id outside [1, n] yields ErrMalformedGraph.
// Self loops are dropped and lines past the declared edge count are ignored.
func LoadEdgeList(in io.Reader) (*Graph, error) {
	file, err := parseEdgeList.Parse("", in)
	if err != nil {
		return nil, errors.Wrap(goclique.ErrMalformedGraph, err.Error())
	}
	if file.NumVerts < 0 || file.NumEdges < 0 {
		return nil, errors.Wrapf(goclique.ErrMalformedGraph, "negative header (%d %d)", file.NumVerts, file.NumEdges)
	}
	if len(file.Edges) < file.NumEdges {
		return nil, errors.Wrapf(goclique.ErrMalformedGraph, "declared %d edges but found %d", file.NumEdges, len(file.Edges))
	}
	if extra := len(file.Edges) - file.NumEdges; extra > 0 {
		klog.Warningf("ignoring %d edge lines past the declared count of %d", extra, file.NumEdges)
	}

	Xb := NewBuilder(file.NumVerts)
	for i, edge := range file.Edges[:file.NumEdges] {
		if err := Xb.addOneBased(edge.A, edge.B); err != nil {
			return nil, errors.Wrapf(err, "edge line %d", i+1)
		}
	}
	return Xb.Build(), nil
}

// ReadEdgeListFile opens the given pathname and calls LoadEdgeList.
func ReadEdgeListFile(pathname string) (*Graph, error) {
	f, err := os.Open(pathname)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadEdgeList(bufio.NewReader(f))
}

// WriteEdgeList writes G in the format read by LoadEdgeList.
func WriteEdgeList(G *Graph, out io.Writer) error {
	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "%d %d\n", G.NumVerts(), G.NumEdges())
	G.Edges(func(u, v goclique.VtxID) {
		fmt.Fprintf(w, "%d %d\n", u+1, v+1)
	})
	return w.Flush()
}

// ParseEdgeExpr builds a graph from an EdgeExpr.
//
// If numVerts is 0, the vertex count is the largest id appearing in the expression.
func ParseEdgeExpr(graphExpr string, numVerts int) (*Graph, error) {
	Xexpr, err := parseEdgeExpr.ParseString("", graphExpr)
	if err != nil {
		return nil, errors.Wrap(goclique.ErrMalformedGraph, err.Error())
	}

	if numVerts == 0 {
		for _, run := range Xexpr.Runs {
			numVerts = max(numVerts, run.Start)
			for _, vi := range run.Next {
				numVerts = max(numVerts, vi)
			}
		}
	}

	Xb := NewBuilder(numVerts)
	for ri, run := range Xexpr.Runs {
		if run.Start < 1 || run.Start > numVerts {
			return nil, errors.Wrapf(goclique.ErrMalformedGraph, "run #%d: vertex %d outside [1, %d]", ri+1, run.Start, numVerts)
		}
		onVtx := run.Start
		for _, nextVtx := range run.Next {
			if err := Xb.addOneBased(onVtx, nextVtx); err != nil {
				return nil, errors.Wrapf(err, "run #%d", ri+1)
			}
			onVtx = nextVtx
		}
	}
	return Xb.Build(), nil
}

// MustParseEdgeExpr is ParseEdgeExpr for literals known to be valid.
func MustParseEdgeExpr(graphExpr string, numVerts int) *Graph {
	G, err := ParseEdgeExpr(graphExpr, numVerts)
	if err != nil {
		panic(err)
	}
	return G
}

func (Xb *Builder) addOneBased(a, b int) error {
	if a < 1 || a > Xb.numVerts || b < 1 || b > Xb.numVerts {
		return errors.Wrapf(goclique.ErrMalformedGraph, "edge %d-%d outside [1, %d]", a, b, Xb.numVerts)
	}
	if a == b {
		klog.Warningf("dropping self loop at vertex %d", a)
		return nil
	}
	return Xb.AddEdge(goclique.VtxID(a-1), goclique.VtxID(b-1))
}
