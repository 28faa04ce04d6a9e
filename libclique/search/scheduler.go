package search

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/2x3systems/maxclique/goclique"
	"github.com/2x3systems/maxclique/libclique/graph"
	"github.com/2x3systems/maxclique/libclique/memo"
	"github.com/2x3systems/maxclique/libclique/metrics"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
	"golang.org/x/sync/errgroup"
)

// FindMaxClique searches every vertex of G as a root and returns the largest clique found.
func FindMaxClique(ctx context.Context, G *graph.Graph, opts goclique.SearchOpts) (goclique.Clique, error) {
	K, _, err := Search(ctx, G, 0, G.NumVerts(), opts)
	return K, err
}

// FindMaxCliqueInRange searches roots lo..hi-1 only, each still expanded over the entire vertex set.
func FindMaxCliqueInRange(ctx context.Context, G *graph.Graph, lo, hi int, opts goclique.SearchOpts) (goclique.Clique, error) {
	K, _, err := Search(ctx, G, lo, hi, opts)
	return K, err
}

// rootBest is a worker's running reduction value.
type rootBest struct {
	K    goclique.Clique
	root int
}

func (rb *rootBest) fold(K goclique.Clique, root int) {
	if rb.K == nil || K.Beats(rb.K) || (len(K) == len(rb.K) && root < rb.root) {
		rb.K = K
		rb.root = root
	}
}

// Search fans roots lo..hi-1 out over a fixed pool of opts.Workers() goroutines and reduces their results.
//
// Each worker folds its own best clique; the worker bests are reduced by size and then by root index, so the result is
// the same clique a single worker would return.  The first error stops workers from taking new roots and is returned.
func Search(ctx context.Context, G *graph.Graph, lo, hi int, opts goclique.SearchOpts) (goclique.Clique, goclique.SearchStats, error) {
	var stats goclique.SearchStats

	if lo < 0 || hi > G.NumVerts() || lo > hi {
		return nil, stats, errors.Wrapf(goclique.ErrBadSearchParam, "root range [%d, %d) outside [0, %d)", lo, hi, G.NumVerts())
	}

	var rootSearch func(root goclique.VtxID) (goclique.Clique, error)
	var ex *Expander
	var table memo.Table

	switch opts.Strategy {
	case goclique.StrategyExhaustive, "":
		var err error
		if table, err = memo.NewTable(opts); err != nil {
			return nil, stats, err
		}
		defer func() {
			if err := table.Close(); err != nil {
				klog.Warningf("closing memo table: %v", err)
			}
		}()

		ex = NewExpander(G, table, opts.Prune)
		all, err := ex.newCandidates(G.AllVerts())
		if err != nil {
			return nil, stats, err
		}
		rootSearch = func(root goclique.VtxID) (goclique.Clique, error) {
			return ex.expand(root, all)
		}

	case goclique.StrategyGreedy:
		rootSearch = func(root goclique.VtxID) (goclique.Clique, error) {
			return GreedyFrom(G, root), nil
		}

	case goclique.StrategyFirstFit:
		rootSearch = func(root goclique.VtxID) (goclique.Clique, error) {
			return FirstFitFrom(G, root), nil
		}

	default:
		return nil, stats, errors.Wrapf(goclique.ErrBadSearchParam, "unknown strategy %q", opts.Strategy)
	}

	start := time.Now()
	numWorkers := min(opts.Workers(), hi-lo)
	bests := make([]rootBest, max(numWorkers, 1))

	var cursor, rootsDone atomic.Int64
	cursor.Store(int64(lo))

	grp, grpCtx := errgroup.WithContext(ctx)
	for w := 0; w < numWorkers; w++ {
		local := &bests[w]
		grp.Go(func() error {
			for {
				if err := grpCtx.Err(); err != nil {
					return err
				}
				root := int(cursor.Add(1) - 1)
				if root >= hi {
					return nil
				}
				K, err := rootSearch(goclique.VtxID(root))
				if err != nil {
					return errors.Wrapf(err, "root %d", root+1)
				}
				rootsDone.Add(1)
				local.fold(K, root)
			}
		})
	}
	err := grp.Wait()

	stats.Roots = rootsDone.Load()
	stats.Elapsed = time.Since(start)
	if ex != nil {
		memoStats := table.Stats()
		stats.Expansions = ex.Expansions()
		stats.MemoHits = memoStats.Hits
		stats.MemoMisses = memoStats.Misses
	}
	if err != nil {
		return nil, stats, err
	}

	var best rootBest
	for _, wb := range bests {
		if wb.K != nil {
			best.fold(wb.K, wb.root)
		}
	}
	if best.K == nil {
		best.K = goclique.Clique{}
	}

	metrics.Default.Observe(stats)
	klog.V(2).Infof("searched roots [%d, %d) with %d workers in %v: best size %d, %d expansions", lo, hi, numWorkers, stats.Elapsed, len(best.K), stats.Expansions)

	return best.K, stats, nil
}
