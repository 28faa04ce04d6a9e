package dist

import (
	"github.com/2x3systems/maxclique/goclique"
	"github.com/pkg/errors"
)

// RootRange returns the contiguous slice of root vertices [lo, hi) that rank searches out of numVerts roots.
func RootRange(numVerts, size, rank int, policy goclique.Partition) (lo, hi int, err error) {
	if size < 1 || rank < 0 || rank >= size {
		return 0, 0, errors.Wrapf(goclique.ErrBadGroup, "rank %d of group size %d", rank, size)
	}
	chunk := numVerts / size
	extra := numVerts % size

	switch policy {
	case goclique.PartitionTruncate:
		lo = rank * chunk
		hi = lo + chunk
	case goclique.PartitionBalanced, "":
		lo = rank*chunk + min(rank, extra)
		hi = lo + chunk
		if rank < extra {
			hi++
		}
	default:
		return 0, 0, errors.Wrapf(goclique.ErrBadSearchParam, "unknown partition policy %q", policy)
	}
	return lo, hi, nil
}
