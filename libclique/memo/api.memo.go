// Package memo caches the result of each search state (root vertex + candidate set) so repeated states are expanded once.
package memo

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/2x3systems/maxclique/goclique"
	"github.com/2x3systems/maxclique/libclique/graph"
	"github.com/pkg/errors"
)

// StateKey identifies a search state:  a 4-byte big-endian vertex id followed by the candidate bit-set words.
//
// The encoding is fixed-width for a given vertex count, so equal keys imply equal states and vice versa.
type StateKey string

// FormKey returns the key for expanding v over the given candidates.
func FormKey(v goclique.VtxID, candidates graph.VtxSet) StateKey {
	buf := make([]byte, 4, 4+8*len(candidates))
	binary.BigEndian.PutUint32(buf, uint32(v))
	return StateKey(candidates.AppendTo(buf))
}

// ComputeFunc produces the clique for a state that is not in the table.
type ComputeFunc func() (goclique.Clique, error)

// Table maps search states to the best clique rooted at that state.
//
// All implementations are safe for concurrent use.  Two goroutines missing on the same key may both compute it;
// the first stored value wins and is what every later lookup observes.
type Table interface {

	// LookupOrCompute returns the clique stored for key, calling compute and storing its result on a miss.
	// An error from compute is returned as is and nothing is stored.
	LookupOrCompute(key StateKey, compute ComputeFunc) (goclique.Clique, error)

	// Stats returns the hit / miss / store counts so far.
	Stats() Stats

	// Close releases all entries and resources held by this table.
	Close() error
}

type Stats struct {
	Hits   int64
	Misses int64
	Stores int64
}

// NewTable opens the table selected by opts.Memo.
func NewTable(opts goclique.SearchOpts) (Table, error) {
	switch opts.Memo {
	case goclique.MemoNone, "":
		return &passThrough{}, nil
	case goclique.MemoMap:
		return NewMapTable(), nil
	case goclique.MemoOtter:
		return NewOtterTable(opts.MemoCapacity)
	case goclique.MemoLSM:
		return NewLSMTable(opts.MemoPath)
	}
	return nil, errors.Wrapf(goclique.ErrBadSearchParam, "unknown memo kind %q", opts.Memo)
}

type counters struct {
	hits   atomic.Int64
	misses atomic.Int64
	stores atomic.Int64
}

func (c *counters) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Stores: c.stores.Load(),
	}
}

// passThrough is the table used when memoization is disabled.
type passThrough struct {
	counters
}

func (tbl *passThrough) LookupOrCompute(key StateKey, compute ComputeFunc) (goclique.Clique, error) {
	tbl.misses.Add(1)
	return compute()
}

func (tbl *passThrough) Close() error {
	return nil
}
