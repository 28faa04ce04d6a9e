package search_test

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/2x3systems/maxclique/goclique"
	"github.com/2x3systems/maxclique/libclique/graph"
	"github.com/2x3systems/maxclique/libclique/memo"
	"github.com/2x3systems/maxclique/libclique/search"
	"github.com/stretchr/testify/require"
)

// bruteForceMaxClique returns the size of a maximum clique by enumerating every vertex subset.
func bruteForceMaxClique(G *graph.Graph) int {
	Nv := G.NumVerts()
	best := 0
	for mask := 1; mask < 1<<Nv; mask++ {
		var members []goclique.VtxID
		for v := 0; v < Nv; v++ {
			if mask&(1<<v) != 0 {
				members = append(members, goclique.VtxID(v))
			}
		}
		if len(members) > best && goclique.Clique(members).Validate(G) == nil {
			best = len(members)
		}
	}
	return best
}

type variant struct {
	name string
	opts goclique.SearchOpts
}

func variants(t *testing.T) []variant {
	return []variant{
		{"sequential", goclique.SearchOpts{NumWorkers: 1, Memo: goclique.MemoNone}},
		{"parallel", goclique.SearchOpts{NumWorkers: 4, Memo: goclique.MemoNone}},
		{"memo-map", goclique.SearchOpts{NumWorkers: 4, Memo: goclique.MemoMap}},
		{"memo-otter", goclique.SearchOpts{NumWorkers: 4, Memo: goclique.MemoOtter, MemoCapacity: 64}},
		{"memo-lsm", goclique.SearchOpts{NumWorkers: 4, Memo: goclique.MemoLSM, MemoPath: filepath.Join(t.TempDir(), "memo")}},
		{"pruned", goclique.SearchOpts{NumWorkers: 3, Memo: goclique.MemoMap, Prune: true}},
	}
}

func TestScenarios(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		name    string
		G       *graph.Graph
		size    int
		members []int // one-based; nil when several maximum cliques exist
	}{
		{"A", graph.MustParseEdgeExpr("1-2, 1-3, 2-3, 1-4, 1-5", 5), 3, []int{1, 2, 3}},
		{"B", graph.MustParseEdgeExpr("", 4), 1, nil},
		{"C", graph.Complete(5), 5, []int{1, 2, 3, 4, 5}},
		{"D", graph.MustParseEdgeExpr("1-2-3-1, 4-5-6-4", 6), 3, nil},
	} {
		for _, vt := range variants(t) {
			t.Run(tc.name+"/"+vt.name, func(t *testing.T) {
				K, err := search.FindMaxClique(ctx, tc.G, vt.opts)
				require.NoError(t, err)
				require.NoError(t, K.Validate(tc.G))
				require.Len(t, K, tc.size)
				if tc.members != nil {
					require.Equal(t, tc.members, K.Sorted().OneBased())
				}
			})
		}
	}
}

func TestScenarioD(t *testing.T) {
	G := graph.MustParseEdgeExpr("1-2-3-1, 4-5-6-4", 6)
	K, err := search.FindMaxClique(context.Background(), G, goclique.DefaultSearchOpts())
	require.NoError(t, err)

	sorted := K.Sorted().OneBased()
	if !(equalInts(sorted, []int{1, 2, 3}) || equalInts(sorted, []int{4, 5, 6})) {
		t.Fatalf("expected one of the two triangles, got %v", sorted)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestEmptyAndTrivial(t *testing.T) {
	ctx := context.Background()

	K, err := search.FindMaxClique(ctx, graph.NewBuilder(0).Build(), goclique.DefaultSearchOpts())
	require.NoError(t, err)
	require.NotNil(t, K)
	require.Empty(t, K)

	K, err = search.FindMaxClique(ctx, graph.NewBuilder(1).Build(), goclique.DefaultSearchOpts())
	require.NoError(t, err)
	require.Equal(t, goclique.Clique{0}, K)
}

func TestMaximalityVsBruteForce(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(2023))

	for trial := 0; trial < 30; trial++ {
		Nv := 1 + rng.Intn(12)
		density := 0.2 + 0.7*rng.Float64()
		G := graph.Random(Nv, density, rng)
		want := bruteForceMaxClique(G)
		require.Equal(t, want, search.ReferenceMaxCliqueSize(G), "oracles disagree")

		for _, vt := range variants(t) {
			K, err := search.FindMaxClique(ctx, G, vt.opts)
			require.NoError(t, err, vt.name)
			require.NoError(t, K.Validate(G), vt.name)
			require.Len(t, K, want, "%s: trial %d (n=%d, p=%.2f)", vt.name, trial, Nv, density)
		}
	}
}

func TestDeterminism(t *testing.T) {
	ctx := context.Background()
	G := graph.Random(40, 0.5, rand.New(rand.NewSource(99)))

	seq, err := search.FindMaxClique(ctx, G, goclique.SearchOpts{NumWorkers: 1, Memo: goclique.MemoNone})
	require.NoError(t, err)
	require.NoError(t, search.VerifyMaximum(G, seq))

	for _, vt := range variants(t) {
		for run := 0; run < 3; run++ {
			K, err := search.FindMaxClique(ctx, G, vt.opts)
			require.NoError(t, err)
			require.Equal(t, seq, K, "%s run %d", vt.name, run)
		}
	}
}

func TestMemoIdempotent(t *testing.T) {
	G := graph.Random(30, 0.6, rand.New(rand.NewSource(5)))
	full := G.AllVerts()

	plain := search.NewExpander(G, nil, false)
	table := memo.NewMapTable()
	defer table.Close()
	memoized := search.NewExpander(G, table, false)

	for _, v := range full {
		A, err := plain.Expand(v, full)
		require.NoError(t, err)
		B, err := memoized.Expand(v, full)
		require.NoError(t, err)
		require.Equal(t, A, B)
		require.True(t, B.Contains(v))
		require.NoError(t, B.Validate(G))
	}
	require.Less(t, memoized.Expansions(), plain.Expansions())
	require.Positive(t, table.Stats().Hits)
}

func TestExpandContract(t *testing.T) {
	// 1-2-3 triangle plus 1-4 and 4-5
	G := graph.MustParseEdgeExpr("1-2-3-1, 1-4-5", 0)
	ex := search.NewExpander(G, nil, false)

	// non-neighbors in the candidates are filtered out
	K, err := ex.Expand(0, []goclique.VtxID{4, 3, 2, 1})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, K.Sorted().OneBased())

	// result is restricted to the candidates given
	K, err = ex.Expand(0, []goclique.VtxID{3, 4})
	require.NoError(t, err)
	require.Equal(t, []int{1, 4}, K.Sorted().OneBased())

	K, err = ex.Expand(4, nil)
	require.NoError(t, err)
	require.Equal(t, goclique.Clique{4}, K)

	// the first candidate achieving the maximum wins
	K, err = ex.Expand(0, []goclique.VtxID{3, 1, 2})
	require.NoError(t, err)
	require.Equal(t, goclique.Clique{2, 1, 0}, K)
	K, err = ex.Expand(0, []goclique.VtxID{3, 2, 1})
	require.NoError(t, err)
	require.Equal(t, goclique.Clique{1, 2, 0}, K)

	_, err = ex.Expand(9, nil)
	require.ErrorIs(t, err, goclique.ErrBadVtxID)
	_, err = ex.Expand(0, []goclique.VtxID{1, 1})
	require.ErrorIs(t, err, goclique.ErrBadSearchParam)
}

// corruptTable computes the first state it sees and answers every later lookup with a fixed clique.
type corruptTable struct {
	calls int
	bad   goclique.Clique
}

func (tbl *corruptTable) LookupOrCompute(key memo.StateKey, compute memo.ComputeFunc) (goclique.Clique, error) {
	tbl.calls++
	if tbl.calls == 1 {
		return compute()
	}
	return tbl.bad, nil
}

func (tbl *corruptTable) Stats() memo.Stats { return memo.Stats{} }
func (tbl *corruptTable) Close() error      { return nil }

func TestMemoInvariantViolation(t *testing.T) {
	G := graph.MustParseEdgeExpr("1-2-3-1", 4) // vertex 4 is isolated
	ex := search.NewExpander(G, &corruptTable{bad: goclique.Clique{3}}, false)

	_, err := ex.Expand(0, G.AllVerts())
	require.ErrorIs(t, err, goclique.ErrMemoInvariant)
}

func TestRangeSearch(t *testing.T) {
	ctx := context.Background()
	// the only triangle uses vertices 4, 5, 6
	G := graph.MustParseEdgeExpr("1-2, 2-3, 4-5-6-4", 0)
	opts := goclique.SearchOpts{NumWorkers: 2, Memo: goclique.MemoMap}

	K, err := search.FindMaxCliqueInRange(ctx, G, 0, 3, opts)
	require.NoError(t, err)
	require.Len(t, K, 2)

	// roots outside the range still appear as candidates
	K, err = search.FindMaxCliqueInRange(ctx, G, 3, 4, opts)
	require.NoError(t, err)
	require.Equal(t, []int{4, 5, 6}, K.Sorted().OneBased())

	K, stats, err := search.Search(ctx, G, 2, 2, opts)
	require.NoError(t, err)
	require.Empty(t, K)
	require.Zero(t, stats.Roots)

	_, err = search.FindMaxCliqueInRange(ctx, G, 4, 9, opts)
	require.ErrorIs(t, err, goclique.ErrBadSearchParam)
}

func TestSearchStats(t *testing.T) {
	G := graph.Complete(8)
	_, stats, err := search.Search(context.Background(), G, 0, 8, goclique.SearchOpts{NumWorkers: 2, Memo: goclique.MemoMap})
	require.NoError(t, err)
	require.Equal(t, int64(8), stats.Roots)
	require.Positive(t, stats.MemoHits)
	require.Equal(t, stats.Expansions, stats.MemoMisses)
}

func TestBadOpts(t *testing.T) {
	G := graph.Complete(3)
	_, err := search.FindMaxClique(context.Background(), G, goclique.SearchOpts{Strategy: "random-walk"})
	require.ErrorIs(t, err, goclique.ErrBadSearchParam)

	_, err = search.FindMaxClique(context.Background(), G, goclique.SearchOpts{Memo: goclique.MemoOtter})
	require.ErrorIs(t, err, goclique.ErrBadSearchParam)
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := search.FindMaxClique(ctx, graph.Complete(6), goclique.DefaultSearchOpts())
	require.ErrorIs(t, err, context.Canceled)
}

func TestGreedy(t *testing.T) {
	// vertex 1 has the highest degree; greedy then takes the triangle 1-2-3
	G := graph.MustParseEdgeExpr("1-2-3-1, 1-4, 1-5, 4-6, 5-6, 6-7", 0)
	K := search.Greedy(G)
	require.Equal(t, goclique.Clique{0, 1, 2}, K)
	require.NoError(t, K.Validate(G))

	require.Equal(t, goclique.Clique{6, 5}, search.GreedyFrom(G, 6))
	require.Empty(t, search.Greedy(graph.NewBuilder(0).Build()))

	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 20; trial++ {
		G := graph.Random(20, 0.5, rng)
		K, err := search.FindMaxClique(context.Background(), G, goclique.SearchOpts{Strategy: goclique.StrategyGreedy, NumWorkers: 4})
		require.NoError(t, err)
		require.NoError(t, K.Validate(G))
		require.LessOrEqual(t, len(K), search.ReferenceMaxCliqueSize(G))
		require.GreaterOrEqual(t, len(K), len(search.Greedy(G)))
	}
}

func TestFirstFit(t *testing.T) {
	G := graph.MustParseEdgeExpr("1-2, 1-3, 2-3, 1-4, 1-5", 5)

	// the scan from vertex 5 only picks up vertex 1
	require.Equal(t, goclique.Clique{4, 0}, search.FirstFit(G))
	require.Equal(t, goclique.Clique{1, 2, 0}, search.FirstFitFrom(G, 1))
	require.Empty(t, search.FirstFit(graph.NewBuilder(0).Build()))

	// rooting the scan at every vertex recovers the triangle
	K, err := search.FindMaxClique(context.Background(), G, goclique.SearchOpts{Strategy: goclique.StrategyFirstFit, NumWorkers: 2})
	require.NoError(t, err)
	require.Equal(t, goclique.Clique{1, 2, 0}, K)

	rng := rand.New(rand.NewSource(12))
	for trial := 0; trial < 20; trial++ {
		G := graph.Random(20, 0.5, rng)
		K, err := search.FindMaxClique(context.Background(), G, goclique.SearchOpts{Strategy: goclique.StrategyFirstFit, NumWorkers: 3})
		require.NoError(t, err)
		require.NoError(t, K.Validate(G))
		require.LessOrEqual(t, len(K), search.ReferenceMaxCliqueSize(G))
		require.GreaterOrEqual(t, len(K), len(search.FirstFit(G)))
	}
}

func TestVerifyMaximum(t *testing.T) {
	G := graph.MustParseEdgeExpr("1-2, 1-3, 2-3, 1-4, 1-5", 5)
	require.NoError(t, search.VerifyMaximum(G, goclique.Clique{0, 1, 2}))
	require.ErrorIs(t, search.VerifyMaximum(G, goclique.Clique{0, 3}), goclique.ErrInvalidClique)
	require.ErrorIs(t, search.VerifyMaximum(G, goclique.Clique{3, 4}), goclique.ErrInvalidClique)
	require.Equal(t, 0, search.ReferenceMaxCliqueSize(graph.NewBuilder(0).Build()))
}
