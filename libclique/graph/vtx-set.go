package graph

import (
	"encoding/binary"
	"math/bits"

	"github.com/2x3systems/maxclique/goclique"
)

// VtxSet is a fixed-width bit-set over vertex ids, one bit per vertex.
type VtxSet []uint64

// NewVtxSet returns an empty set able to hold ids 0..numVerts-1.
func NewVtxSet(numVerts int) VtxSet {
	return make(VtxSet, (numVerts+63)/64)
}

// VtxSetOf returns a set holding the given members.
func VtxSetOf(numVerts int, members []goclique.VtxID) VtxSet {
	set := NewVtxSet(numVerts)
	for _, v := range members {
		set.Add(v)
	}
	return set
}

func (set VtxSet) Add(v goclique.VtxID) {
	set[v>>6] |= 1 << (uint(v) & 63)
}

func (set VtxSet) Remove(v goclique.VtxID) {
	set[v>>6] &^= 1 << (uint(v) & 63)
}

func (set VtxSet) Has(v goclique.VtxID) bool {
	return set[v>>6]&(1<<(uint(v)&63)) != 0
}

// Len returns the number of members.
func (set VtxSet) Len() int {
	n := 0
	for _, w := range set {
		n += bits.OnesCount64(w)
	}
	return n
}

// IntersectLen returns |set ∩ other| without allocating.
func (set VtxSet) IntersectLen(other VtxSet) int {
	n := 0
	for i, w := range set {
		n += bits.OnesCount64(w & other[i])
	}
	return n
}

// Equal reports if both sets hold the same members.
func (set VtxSet) Equal(other VtxSet) bool {
	if len(set) != len(other) {
		return false
	}
	for i, w := range set {
		if w != other[i] {
			return false
		}
	}
	return true
}

// Members returns the ids in ascending order.
func (set VtxSet) Members() []goclique.VtxID {
	out := make([]goclique.VtxID, 0, set.Len())
	for i, w := range set {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			out = append(out, goclique.VtxID(i*64+b))
			w &= w - 1
		}
	}
	return out
}

// AppendTo appends the fixed-width big-endian encoding of this set's words.
//
// Two sets over the same vertex count encode identically iff they hold the same members.
func (set VtxSet) AppendTo(dst []byte) []byte {
	for _, w := range set {
		dst = binary.BigEndian.AppendUint64(dst, w)
	}
	return dst
}
