package search

import (
	"github.com/2x3systems/maxclique/goclique"
	"github.com/2x3systems/maxclique/libclique/graph"
)

// Greedy grows a single clique by adjacency ranking, starting from the vertex of highest degree.
//
// It is fast but carries no guarantee about how far the result is from a maximum clique.
func Greedy(G *graph.Graph) goclique.Clique {
	if G.NumVerts() == 0 {
		return goclique.Clique{}
	}

	root, rootDegree := goclique.VtxID(0), -1
	for v := 0; v < G.NumVerts(); v++ {
		if d := G.Degree(goclique.VtxID(v)); d > rootDegree {
			root, rootDegree = goclique.VtxID(v), d
		}
	}
	return GreedyFrom(G, root)
}

// GreedyFrom grows a clique from root: it repeatedly adds the candidate with the most neighbors among the remaining
// candidates (lowest id on ties) and drops every candidate not adjacent to it.
func GreedyFrom(G *graph.Graph, root goclique.VtxID) goclique.Clique {
	K := goclique.Clique{root}

	cands := append(graph.VtxSet(nil), G.Neighbors(root)...)
	for {
		order := cands.Members()
		if len(order) == 0 {
			break
		}

		pick, pickRank := order[0], -1
		for _, u := range order {
			if rank := cands.IntersectLen(G.Neighbors(u)); rank > pickRank {
				pick, pickRank = u, rank
			}
		}

		K = append(K, pick)
		cands.Remove(pick)
		row := G.Neighbors(pick)
		for i := range cands {
			cands[i] &= row[i]
		}
	}
	return K
}

// FirstFit scans every vertex from the highest id down and keeps each one adjacent to all vertices kept so far.
func FirstFit(G *graph.Graph) goclique.Clique {
	if G.NumVerts() == 0 {
		return goclique.Clique{}
	}
	return FirstFitFrom(G, goclique.VtxID(G.NumVerts()-1))
}

// FirstFitFrom starts a clique at root and then runs the FirstFit scan over root's neighbors.
func FirstFitFrom(G *graph.Graph, root goclique.VtxID) goclique.Clique {
	K := goclique.Clique{root}
	row := G.Neighbors(root)
	for v := goclique.VtxID(G.NumVerts() - 1); v >= 0; v-- {
		if row.Has(v) && K.AdjacentToAll(G, v) {
			K = append(K, v)
		}
	}
	return K
}
