package dist

import (
	"context"

	"github.com/2x3systems/maxclique/goclique"
	"github.com/2x3systems/maxclique/libclique/graph"
	"github.com/2x3systems/maxclique/libclique/search"
	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

// FindMaxClique runs one distributed search and is called identically on every rank of comm.
//
// Rank 0 passes the graph to search; every other rank passes nil and receives a private copy over comm.
// Only rank 0's Result carries the global best.
func FindMaxClique(ctx context.Context, comm Comm, G *graph.Graph, opts goclique.DistOpts) (Result, error) {
	var res Result
	rank, size := comm.Rank(), comm.Size()

	if rank == 0 && G == nil {
		return res, errors.Wrap(goclique.ErrBadSearchParam, "rank 0 must supply the graph")
	}

	// Broadcast: header then flat adjacency.
	var hdrMsg, adjMsg []byte
	if rank == 0 {
		hdrMsg = encodeHeader(header{
			NumVerts: G.NumVerts(),
			RunID:    uuid.New(),
		})
		adjMsg = encodeAdjacency(G)
	}
	hdrMsg, err := comm.Broadcast(ctx, hdrMsg)
	if err != nil {
		return res, errors.Wrap(err, "broadcasting header")
	}
	hdr, err := decodeHeader(hdrMsg)
	if err != nil {
		return res, err
	}
	res.RunID = hdr.RunID

	adjMsg, err = comm.Broadcast(ctx, adjMsg)
	if err != nil {
		return res, errors.Wrap(err, "broadcasting adjacency")
	}
	if rank != 0 {
		if G, err = decodeAdjacency(adjMsg, hdr.NumVerts); err != nil {
			return res, err
		}
	}

	res.Lo, res.Hi, err = RootRange(G.NumVerts(), size, rank, opts.Partition)
	if err != nil {
		return res, err
	}
	klog.V(1).Infof("run %v: rank %d of %d searching roots [%d, %d) of %d", res.RunID, rank, size, res.Lo, res.Hi, G.NumVerts())

	res.Local, res.Stats, err = search.Search(ctx, G, res.Lo, res.Hi, opts.Search)
	if err != nil {
		return res, errors.Wrapf(err, "rank %d", rank)
	}

	results, err := comm.Gather(ctx, encodeResult(rank, res.Local))
	if err != nil {
		return res, errors.Wrap(err, "gathering results")
	}
	if rank != 0 {
		return res, nil
	}

	res.Global, res.Standings, err = reduceResults(G, results)
	if err != nil {
		return res, err
	}
	klog.V(1).Infof("run %v: best clique has %d vertices, standings %v", res.RunID, len(res.Global), res.Standings)
	return res, nil
}

// Standing is one rank's local best as seen by rank 0.
type Standing struct {
	Rank int
	Size int
}

// byStanding orders larger cliques first and, among equal sizes, lower ranks first.
func byStanding(a, b interface{}) int {
	sa, sb := a.(Standing), b.(Standing)
	if sa.Size != sb.Size {
		return sb.Size - sa.Size
	}
	return sa.Rank - sb.Rank
}

// reduceResults decodes and re-validates every rank's local best and returns the largest, preferring the lowest rank
// among equals, along with every rank's standing in that same order.
func reduceResults(G *graph.Graph, results [][]byte) (goclique.Clique, []Standing, error) {
	standings := redblacktree.NewWith(byStanding)
	for r, msg := range results {
		fromRank, K, err := decodeResult(msg, G.NumVerts())
		if err != nil {
			return nil, nil, errors.Wrapf(err, "result from rank %d", r)
		}
		if fromRank != r {
			return nil, nil, errors.Wrapf(goclique.ErrBadGroup, "result in slot %d claims rank %d", r, fromRank)
		}
		if err = K.Validate(G); err != nil {
			return nil, nil, errors.Wrapf(err, "result from rank %d", r)
		}
		standings.Put(Standing{Rank: r, Size: len(K)}, K)
	}

	if standings.Empty() {
		return goclique.Clique{}, nil, nil
	}
	order := make([]Standing, 0, standings.Size())
	for itr := standings.Iterator(); itr.Next(); {
		order = append(order, itr.Key().(Standing))
	}
	return standings.Left().Value.(goclique.Clique), order, nil
}
