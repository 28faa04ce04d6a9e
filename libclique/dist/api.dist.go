// Package dist spreads a max clique search over a fixed-size group of processes.
//
// Rank 0 broadcasts the graph, every rank searches its own slice of root vertices, and rank 0 gathers and reduces
// the per-rank bests.
package dist

import (
	"context"

	"github.com/2x3systems/maxclique/goclique"
	"github.com/google/uuid"
)

// Comm is a process group of fixed size with one coordinator (rank 0).
//
// Connected peers exchange heartbeats, and the timeout the Comm was created with bounds how long a peer may stay silent,
// not how long it may take.  A rank still searching keeps a Gather waiting; a peer that goes silent for longer than the
// timeout (or disconnects) fails the call with goclique.ErrWorkerUnresponsive naming that rank.
type Comm interface {

	// Rank returns this process's rank in 0..Size()-1.
	Rank() int

	// Size returns the number of processes in the group.
	Size() int

	// Broadcast sends payload from rank 0 to every other rank.
	// Rank 0 returns its own payload; every other rank ignores payload and returns what rank 0 sent.
	Broadcast(ctx context.Context, payload []byte) ([]byte, error)

	// Gather sends payload from every rank to rank 0.
	// Rank 0 returns all payloads indexed by rank (its own at index 0); every other rank returns nil.
	Gather(ctx context.Context, payload []byte) ([][]byte, error)

	// Close releases this rank's transport resources.
	Close() error
}

// Result is what FindMaxClique reports on a given rank.
type Result struct {
	RunID     uuid.UUID            // issued by rank 0 and carried in the broadcast header
	Global    goclique.Clique      // reduced best across all ranks (rank 0 only)
	Standings []Standing           // every rank's local best size, best first (rank 0 only)
	Local     goclique.Clique      // best clique rooted in this rank's slice
	Lo, Hi    int                  // this rank's root slice [Lo, Hi)
	Stats     goclique.SearchStats // this rank's search stats
}
