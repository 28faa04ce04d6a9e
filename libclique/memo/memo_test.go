package memo_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/2x3systems/maxclique/goclique"
	"github.com/2x3systems/maxclique/libclique/graph"
	"github.com/2x3systems/maxclique/libclique/memo"
	"github.com/stretchr/testify/require"
)

func openTables(t *testing.T) map[string]memo.Table {
	t.Helper()

	tables := map[string]memo.Table{}
	for _, opts := range []goclique.SearchOpts{
		{Memo: goclique.MemoNone},
		{Memo: goclique.MemoMap},
		{Memo: goclique.MemoOtter, MemoCapacity: 1024},
		{Memo: goclique.MemoLSM},
		{Memo: goclique.MemoLSM, MemoPath: filepath.Join(t.TempDir(), "memo")},
	} {
		tbl, err := memo.NewTable(opts)
		require.NoError(t, err)
		name := string(opts.Memo)
		if opts.MemoPath != "" {
			name += "-disk"
		}
		tables[name] = tbl
		t.Cleanup(func() { tbl.Close() })
	}
	return tables
}

func TestFormKey(t *testing.T) {
	a := memo.FormKey(3, graph.VtxSetOf(70, []goclique.VtxID{1, 69, 5}))
	b := memo.FormKey(3, graph.VtxSetOf(70, []goclique.VtxID{69, 5, 1}))
	c := memo.FormKey(4, graph.VtxSetOf(70, []goclique.VtxID{69, 5, 1}))
	d := memo.FormKey(3, graph.VtxSetOf(70, []goclique.VtxID{69, 5}))

	require.Equal(t, a, b, "candidate order must not matter")
	require.NotEqual(t, a, c)
	require.NotEqual(t, a, d)
	require.Equal(t, "\x00\x00\x00\x04", string(c[:4]))
	require.Len(t, string(a), 4+16)
}

func TestLookupOrCompute(t *testing.T) {
	for name, tbl := range openTables(t) {
		t.Run(name, func(t *testing.T) {
			key := memo.FormKey(2, graph.VtxSetOf(8, []goclique.VtxID{0, 1}))
			calls := 0
			compute := func() (goclique.Clique, error) {
				calls++
				return goclique.Clique{1, 0, 2}, nil
			}

			K, err := tbl.LookupOrCompute(key, compute)
			require.NoError(t, err)
			require.Equal(t, goclique.Clique{1, 0, 2}, K)

			K, err = tbl.LookupOrCompute(key, compute)
			require.NoError(t, err)
			require.Equal(t, goclique.Clique{1, 0, 2}, K)

			stats := tbl.Stats()
			if name == string(goclique.MemoNone) {
				require.Equal(t, 2, calls)
				require.Zero(t, stats.Hits)
			} else {
				require.Equal(t, 1, calls)
				require.Equal(t, memo.Stats{Hits: 1, Misses: 1, Stores: 1}, stats)
			}

			// an empty clique survives the round trip too
			empty := memo.FormKey(7, graph.NewVtxSet(8))
			K, err = tbl.LookupOrCompute(empty, func() (goclique.Clique, error) { return goclique.Clique{}, nil })
			require.NoError(t, err)
			require.Empty(t, K)
		})
	}
}

func TestComputeErrorNotStored(t *testing.T) {
	boom := errors.New("boom")
	for name, tbl := range openTables(t) {
		t.Run(name, func(t *testing.T) {
			key := memo.FormKey(1, graph.NewVtxSet(4))
			_, err := tbl.LookupOrCompute(key, func() (goclique.Clique, error) { return nil, boom })
			require.ErrorIs(t, err, boom)

			K, err := tbl.LookupOrCompute(key, func() (goclique.Clique, error) { return goclique.Clique{1}, nil })
			require.NoError(t, err)
			require.Equal(t, goclique.Clique{1}, K)
		})
	}
}

func TestConcurrentAccess(t *testing.T) {
	const (
		numKeys    = 200
		numWorkers = 8
	)
	for name, tbl := range openTables(t) {
		t.Run(name, func(t *testing.T) {
			var computed atomic.Int64
			var wg sync.WaitGroup
			for w := 0; w < numWorkers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < numKeys; i++ {
						v := goclique.VtxID(i)
						key := memo.FormKey(v, graph.VtxSetOf(numKeys, []goclique.VtxID{v}))
						K, err := tbl.LookupOrCompute(key, func() (goclique.Clique, error) {
							computed.Add(1)
							return goclique.Clique{v}, nil
						})
						if err != nil || len(K) != 1 || K[0] != v {
							panic(fmt.Sprintf("key %d: got %v, %v", i, K, err))
						}
					}
				}()
			}
			wg.Wait()

			require.GreaterOrEqual(t, computed.Load(), int64(numKeys))
			if name != string(goclique.MemoNone) {
				require.Equal(t, int64(numKeys), tbl.Stats().Stores)
			}
		})
	}
}

func TestOtterEviction(t *testing.T) {
	tbl, err := memo.NewOtterTable(16)
	require.NoError(t, err)
	defer tbl.Close()

	for i := 0; i < 500; i++ {
		v := goclique.VtxID(i)
		K, err := tbl.LookupOrCompute(memo.FormKey(v, graph.NewVtxSet(1)), func() (goclique.Clique, error) {
			return goclique.Clique{v}, nil
		})
		require.NoError(t, err)
		require.Equal(t, goclique.Clique{v}, K)
	}

	_, err = memo.NewOtterTable(0)
	require.ErrorIs(t, err, goclique.ErrBadSearchParam)
}

func TestUnknownKind(t *testing.T) {
	_, err := memo.NewTable(goclique.SearchOpts{Memo: "floppy"})
	require.ErrorIs(t, err, goclique.ErrBadSearchParam)
}
