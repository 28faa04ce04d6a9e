package memo

import (
	"hash/maphash"
	"sync"

	"github.com/2x3systems/maxclique/goclique"
)

const numShards = 64

// NewMapTable returns an unbounded in-process table sharded across numShards locks.
func NewMapTable() Table {
	tbl := &mapTable{
		seed: maphash.MakeSeed(),
	}
	for i := range tbl.shards {
		tbl.shards[i].entries = make(map[StateKey]goclique.Clique)
	}
	return tbl
}

type mapShard struct {
	mu      sync.RWMutex
	entries map[StateKey]goclique.Clique
}

type mapTable struct {
	counters
	seed   maphash.Seed
	shards [numShards]mapShard
}

func (tbl *mapTable) shardFor(key StateKey) *mapShard {
	return &tbl.shards[maphash.String(tbl.seed, string(key))%numShards]
}

func (tbl *mapTable) LookupOrCompute(key StateKey, compute ComputeFunc) (goclique.Clique, error) {
	shard := tbl.shardFor(key)

	shard.mu.RLock()
	K, found := shard.entries[key]
	shard.mu.RUnlock()
	if found {
		tbl.hits.Add(1)
		return K, nil
	}

	// The lock is not held while computing: compute recurses into this table.
	tbl.misses.Add(1)
	K, err := compute()
	if err != nil {
		return nil, err
	}

	shard.mu.Lock()
	if prev, exists := shard.entries[key]; exists {
		K = prev
	} else {
		shard.entries[key] = K
		tbl.stores.Add(1)
	}
	shard.mu.Unlock()

	return K, nil
}

func (tbl *mapTable) Close() error {
	for i := range tbl.shards {
		shard := &tbl.shards[i]
		shard.mu.Lock()
		shard.entries = make(map[StateKey]goclique.Clique)
		shard.mu.Unlock()
	}
	return nil
}
