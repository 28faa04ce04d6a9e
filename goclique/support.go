package goclique

import (
	"sort"
	"strconv"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
)

// Beats reports if K should replace other as a best clique: only a strictly larger clique does.
func (K Clique) Beats(other Clique) bool {
	return len(K) > len(other)
}

// Contains reports if v is a member of K.
func (K Clique) Contains(v VtxID) bool {
	for _, vi := range K {
		if vi == v {
			return true
		}
	}
	return false
}

// Extend returns a new clique holding K's members followed by v.  K is not modified.
func (K Clique) Extend(v VtxID) Clique {
	ext := make(Clique, len(K), len(K)+1)
	copy(ext, K)
	return append(ext, v)
}

// Sorted returns a copy of K in ascending vertex order.
func (K Clique) Sorted() Clique {
	dst := append(Clique(nil), K...)
	sort.Slice(dst, func(i, j int) bool { return dst[i] < dst[j] })
	return dst
}

// AdjacentToAll reports if v is adjacent to every member of K.
func (K Clique) AdjacentToAll(G Adjacency, v VtxID) bool {
	for _, u := range K {
		if !G.Adjacent(u, v) {
			return false
		}
	}
	return true
}

// Validate checks that every member of K is a vertex of G, that no member repeats, and that all members are pairwise adjacent.
func (K Clique) Validate(G Adjacency) error {
	Nv := VtxID(G.NumVerts())
	// A repeat would also fail the adjacency check below; seen reports it as what it is.
	seen := mapset.NewThreadUnsafeSetWithSize[VtxID](len(K))
	for i, u := range K {
		if u < 0 || u >= Nv {
			return errors.Wrapf(ErrBadVtxID, "vertex %d (graph has %d)", u, Nv)
		}
		if !seen.Add(u) {
			return errors.Wrapf(ErrInvalidClique, "vertex %d appears more than once", u+1)
		}
		for _, v := range K[:i] {
			if !G.Adjacent(u, v) {
				return errors.Wrapf(ErrInvalidClique, "vertices %d and %d are not adjacent", v+1, u+1)
			}
		}
	}
	return nil
}

// AppendOneBased appends K's members as space-separated one-based ids.
func (K Clique) AppendOneBased(dst []byte) []byte {
	for i, v := range K {
		if i > 0 {
			dst = append(dst, ' ')
		}
		dst = strconv.AppendInt(dst, int64(v)+1, 10)
	}
	return dst
}

// String renders K with one-based ids, e.g. "1 2 3".
func (K Clique) String() string {
	return string(K.AppendOneBased(nil))
}

// OneBased returns K's members as one-based ids.
func (K Clique) OneBased() []int {
	ids := make([]int, len(K))
	for i, v := range K {
		ids[i] = int(v) + 1
	}
	return ids
}
