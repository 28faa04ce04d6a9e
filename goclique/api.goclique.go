package goclique

import (
	"runtime"
	"time"
)

// VtxID is a zero-based vertex index into a Graph.
type VtxID int32

// Clique is a sequence of pairwise adjacent vertices.
//
// A Clique returned by any search routine is never mutated afterwards, so it may be shared freely between goroutines.
type Clique []VtxID

// Strategy selects how a search explores the graph.
type Strategy string

const (
	StrategyExhaustive Strategy = "exhaustive" // backtracking over every root (default)
	StrategyGreedy     Strategy = "greedy"     // adjacency-ranking heuristic, no optimality guarantee
	StrategyFirstFit   Strategy = "first-fit"  // takes each vertex, highest id first, that fits the clique so far
)

// MemoKind selects the memoization backend used during a search.
type MemoKind string

const (
	MemoNone  MemoKind = "none"  // every search state is recomputed
	MemoMap   MemoKind = "map"   // sharded in-process hash map (default)
	MemoOtter MemoKind = "otter" // bounded concurrent cache; evicted states are recomputed
	MemoLSM   MemoKind = "lsm"   // badger LSM store, in memory or on disk
)

// Partition selects how the distributed coordinator slices the root vertex space.
type Partition string

const (
	// PartitionBalanced hands one extra root to each of the first n mod size ranks so every root is searched.
	PartitionBalanced Partition = "balanced"

	// PartitionTruncate gives every rank floor(n/size) roots; the n mod size trailing roots are never searched.
	PartitionTruncate Partition = "truncate"
)

// SearchOpts specifies params for a single max clique search.
type SearchOpts struct {
	Strategy     Strategy // exhaustive or greedy
	NumWorkers   int      // size of the root worker pool (<= 0 implies runtime.NumCPU())
	Memo         MemoKind // memoization backend
	MemoCapacity int      // max entries held by a bounded backend (MemoOtter)
	MemoPath     string   // omit for an in-memory MemoLSM table
	Prune        bool     // skip branches that provably cannot beat the current best at that node
}

// DefaultSearchOpts returns the options used when nothing is configured.
func DefaultSearchOpts() SearchOpts {
	return SearchOpts{
		Strategy:     StrategyExhaustive,
		NumWorkers:   runtime.NumCPU(),
		Memo:         MemoMap,
		MemoCapacity: 1 << 20,
	}
}

// Workers returns the effective worker pool size.
func (opts *SearchOpts) Workers() int {
	if opts.NumWorkers <= 0 {
		return runtime.NumCPU()
	}
	return opts.NumWorkers
}

// DistOpts specifies params for a distributed search across a fixed-size group of processes.
type DistOpts struct {
	Search    SearchOpts
	Partition Partition     // how roots are sliced across ranks
	Timeout   time.Duration // how long a peer may stay silent before it is declared unresponsive (0 waits forever)
}

// DefaultDistOpts returns the options used by a distributed run when nothing is configured.
func DefaultDistOpts() DistOpts {
	return DistOpts{
		Search:    DefaultSearchOpts(),
		Partition: PartitionBalanced,
		Timeout:   2 * time.Minute,
	}
}

// Adjacency is the read-only view of a graph that search and validation routines need.
type Adjacency interface {

	// NumVerts returns the number of vertices; valid ids are 0..NumVerts()-1.
	NumVerts() int

	// Adjacent reports if u and v share an edge.  Adjacent(v, v) is always false.
	Adjacent(u, v VtxID) bool
}

// SearchStats summarizes the work done by a search.
type SearchStats struct {
	Roots      int64 // roots fully expanded
	Expansions int64 // kernel invocations that were not served by the memo table
	MemoHits   int64
	MemoMisses int64
	Elapsed    time.Duration
}
