package search

import (
	"sync/atomic"

	"github.com/2x3systems/maxclique/goclique"
	"github.com/2x3systems/maxclique/libclique/graph"
	"github.com/2x3systems/maxclique/libclique/memo"
	"github.com/pkg/errors"
)

// Expander runs the candidate-restricted expansion kernel over a single graph.
//
// An Expander is safe for concurrent use as long as its memo table is.
type Expander struct {
	G     *graph.Graph
	Memo  memo.Table // nil disables memoization
	Prune bool       // skip branches whose local upper bound can't beat the best found at that node

	expansions atomic.Int64
}

func NewExpander(G *graph.Graph, table memo.Table, prune bool) *Expander {
	return &Expander{
		G:     G,
		Memo:  table,
		Prune: prune,
	}
}

// Expansions returns how many states this Expander has computed (memo hits excluded).
func (ex *Expander) Expansions() int64 {
	return ex.expansions.Load()
}

// candidates is an ordered candidate sequence together with its bit-set image.
type candidates struct {
	order []goclique.VtxID
	set   graph.VtxSet
}

func (ex *Expander) newCandidates(order []goclique.VtxID) (candidates, error) {
	Nv := ex.G.NumVerts()
	C := candidates{
		order: order,
		set:   graph.NewVtxSet(Nv),
	}
	for _, u := range order {
		if u < 0 || int(u) >= Nv {
			return C, errors.Wrapf(goclique.ErrBadVtxID, "candidate %d (graph has %d)", u, Nv)
		}
		if C.set.Has(u) {
			return C, errors.Wrapf(goclique.ErrBadSearchParam, "candidate %d repeats", u+1)
		}
		C.set.Add(u)
	}
	return C, nil
}

// Expand returns the largest clique that contains v and is drawn from {v} ∪ candidates.
//
// Candidates need not be neighbors of v; they are filtered here.  Among equally large cliques, the one reached
// through the earliest candidate wins.
func (ex *Expander) Expand(v goclique.VtxID, candidateOrder []goclique.VtxID) (goclique.Clique, error) {
	if v < 0 || int(v) >= ex.G.NumVerts() {
		return nil, errors.Wrapf(goclique.ErrBadVtxID, "root %d (graph has %d)", v, ex.G.NumVerts())
	}
	C, err := ex.newCandidates(candidateOrder)
	if err != nil {
		return nil, err
	}
	return ex.expand(v, C)
}

func (ex *Expander) expand(v goclique.VtxID, C candidates) (goclique.Clique, error) {
	if ex.Memo == nil {
		return ex.compute(v, C)
	}
	return ex.Memo.LookupOrCompute(memo.FormKey(v, C.set), func() (goclique.Clique, error) {
		return ex.compute(v, C)
	})
}

func (ex *Expander) compute(v goclique.VtxID, C candidates) (goclique.Clique, error) {
	ex.expansions.Add(1)

	// Only neighbors of v can extend a clique rooted at v.
	row := ex.G.Neighbors(v)
	next := candidates{
		order: make([]goclique.VtxID, 0, len(C.order)),
		set:   graph.NewVtxSet(ex.G.NumVerts()),
	}
	for _, u := range C.order {
		if row.Has(u) {
			next.order = append(next.order, u)
			next.set.Add(u)
		}
	}

	var best goclique.Clique // best child, v not yet appended
	bestLen := 1
	for _, u := range next.order {
		if ex.Prune {
			if bestLen >= len(next.order)+1 {
				break
			}
			if 2+next.set.IntersectLen(ex.G.Neighbors(u)) <= bestLen {
				continue
			}
		}

		child, err := ex.expand(u, next)
		if err != nil {
			return nil, err
		}

		// Every member of next is a neighbor of v, so this only fails if filtering or the memo table is broken.
		if !child.AdjacentToAll(ex.G, v) {
			return nil, errors.Wrapf(goclique.ErrMemoInvariant, "expanding %d from %d returned %v", u+1, v+1, child)
		}

		if len(child)+1 > bestLen {
			best = child
			bestLen = len(child) + 1
		}
	}

	if best == nil {
		return goclique.Clique{v}, nil
	}
	return best.Extend(v), nil
}
