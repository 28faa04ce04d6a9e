package memo

import (
	"github.com/2x3systems/maxclique/goclique"
	"github.com/maypok86/otter"
	"github.com/pkg/errors"
)

// NewOtterTable returns a table holding at most capacity states.  Evicted states are simply recomputed on their next lookup.
func NewOtterTable(capacity int) (Table, error) {
	if capacity <= 0 {
		return nil, errors.Wrapf(goclique.ErrBadSearchParam, "otter memo capacity must be > 0, got %d", capacity)
	}
	cache, err := otter.MustBuilder[StateKey, goclique.Clique](capacity).Build()
	if err != nil {
		return nil, err
	}
	return &otterTable{
		cache: cache,
	}, nil
}

type otterTable struct {
	counters
	cache otter.Cache[StateKey, goclique.Clique]
}

func (tbl *otterTable) LookupOrCompute(key StateKey, compute ComputeFunc) (goclique.Clique, error) {
	if K, found := tbl.cache.Get(key); found {
		tbl.hits.Add(1)
		return K, nil
	}

	tbl.misses.Add(1)
	K, err := compute()
	if err != nil {
		return nil, err
	}

	if tbl.cache.SetIfAbsent(key, K) {
		tbl.stores.Add(1)
	} else if prev, found := tbl.cache.Get(key); found {
		K = prev
	}
	return K, nil
}

func (tbl *otterTable) Close() error {
	tbl.cache.Close()
	return nil
}
