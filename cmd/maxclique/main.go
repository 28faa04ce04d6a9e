package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/2x3systems/maxclique/goclique"
	"github.com/2x3systems/maxclique/libclique/dist"
	"github.com/2x3systems/maxclique/libclique/graph"
	"github.com/2x3systems/maxclique/libclique/metrics"
	"github.com/2x3systems/maxclique/libclique/search"
	"github.com/plan-systems/klog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func main() {
	fset := flag.NewFlagSet("", flag.ContinueOnError)
	klog.InitFlags(fset)
	fset.Set("logtostderr", "true")
	klog.SetFormatter(&klog.FmtConstWidth{
		FileNameCharWidth: 16,
		UseColor:          true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	root := newRootCmd(newViper())
	root.PersistentFlags().AddGoFlagSet(fset)
	err := root.ExecuteContext(ctx)
	stop()

	klog.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, "maxclique:", err)
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:           "maxclique",
		Short:         "Find a maximum clique of an undirected graph",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	addSearchFlags(root.PersistentFlags())
	root.AddCommand(
		newSearchCmd(v),
		newCoordinatorCmd(v),
		newWorkerCmd(v),
		newGenCmd(),
	)
	return root
}

func newSearchCmd(v *viper.Viper) *cobra.Command {
	var expr string
	var numVerts int

	cmd := &cobra.Command{
		Use:   "search [edge-list-file | -]",
		Short: "Search a graph in this process (--procs > 1 simulates a process group)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, cmd)
			if err != nil {
				return err
			}
			G, err := loadGraph(cmd.InOrStdin(), args, expr, numVerts)
			if err != nil {
				return err
			}
			defer serveMetrics(cfg.MetricsAddr)()

			ctx := cmd.Context()
			start := time.Now()

			if cfg.Procs > 1 {
				res, err := runLocalGroup(ctx, G, cfg)
				if err != nil {
					return err
				}
				rep := newReport(res.Global, time.Since(start))
				rep.addGroupResult(res)
				return finishReport(cmd.OutOrStdout(), cfg, G, res.Global, rep)
			}

			K, err := search.FindMaxClique(ctx, G, cfg.Search)
			if err != nil {
				return err
			}
			return finishReport(cmd.OutOrStdout(), cfg, G, K, newReport(K, time.Since(start)))
		},
	}
	cmd.Flags().StringVar(&expr, "expr", "", `inline graph as one-based edge runs, e.g. "1-2-3-1, 1-4"`)
	cmd.Flags().IntVar(&numVerts, "verts", 0, "vertex count for --expr (0 = largest id used)")
	cmd.Flags().Int(keyProcs, 1, "simulated process group size")
	return cmd
}

func newCoordinatorCmd(v *viper.Viper) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "coordinator edge-list-file",
		Short: "Serve as rank 0 of a websocket process group and report the global best",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, cmd)
			if err != nil {
				return err
			}
			G, err := loadGraph(cmd.InOrStdin(), args, "", 0)
			if err != nil {
				return err
			}
			defer serveMetrics(cfg.MetricsAddr)()

			ctx := cmd.Context()
			hub, err := dist.Listen(ctx, listenAddr, cfg.Procs, cfg.Dist.Timeout)
			if err != nil {
				return err
			}
			defer hub.Close()

			start := time.Now()
			res, err := dist.FindMaxClique(ctx, hub, G, cfg.Dist)
			if err != nil {
				return err
			}

			rep := newReport(res.Global, time.Since(start))
			rep.addGroupResult(res)
			return finishReport(cmd.OutOrStdout(), cfg, G, res.Global, rep)
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", ":7070", "address workers connect to")
	cmd.Flags().Int(keyProcs, 2, "process group size, coordinator included")
	return cmd
}

func newWorkerCmd(v *viper.Viper) *cobra.Command {
	var url string
	var rank int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Join a coordinator's process group and search this rank's slice of roots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, cmd)
			if err != nil {
				return err
			}
			defer serveMetrics(cfg.MetricsAddr)()

			ctx := cmd.Context()
			comm, err := dist.Dial(ctx, url, rank, cfg.Procs, cfg.Dist.Timeout)
			if err != nil {
				return err
			}
			defer comm.Close()

			res, err := dist.FindMaxClique(ctx, comm, nil, cfg.Dist)
			if err != nil {
				return err
			}
			klog.Infof("run %v: rank %d searched roots %d..%d, local best size %d: %v", res.RunID, rank, res.Lo+1, res.Hi, len(res.Local), res.Local.Sorted())
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "connect", "ws://localhost:7070/maxclique", "coordinator websocket URL")
	cmd.Flags().IntVar(&rank, "rank", 1, "this worker's rank (1..procs-1)")
	cmd.Flags().Int(keyProcs, 2, "process group size, coordinator included")
	return cmd
}

func newGenCmd() *cobra.Command {
	var numVerts int
	var density float64
	var seed int64
	var outPath string
	var asMatrix bool

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Write a random graph as an edge list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			G := graph.Random(numVerts, density, rand.New(rand.NewSource(seed)))
			write := func(out io.Writer) error {
				if asMatrix {
					G.WriteAsMatrixStr(out)
					return nil
				}
				return graph.WriteEdgeList(G, out)
			}
			if outPath == "" {
				return write(cmd.OutOrStdout())
			}
			file, err := os.Create(outPath)
			if err != nil {
				return err
			}
			if err = write(file); err != nil {
				file.Close()
				return err
			}
			return file.Close()
		},
	}
	cmd.Flags().IntVarP(&numVerts, "verts", "n", 50, "vertex count")
	cmd.Flags().Float64VarP(&density, "density", "p", 0.5, "probability of each edge")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&asMatrix, "matrix", false, "write the adjacency matrix (rows of 0s and 1s) instead of an edge list")
	return cmd
}

// loadGraph reads the graph named by args ("-" for stdin) or, when expr is set, parses it inline.
func loadGraph(stdin io.Reader, args []string, expr string, numVerts int) (*graph.Graph, error) {
	switch {
	case expr != "":
		return graph.ParseEdgeExpr(expr, numVerts)
	case len(args) == 0 || args[0] == "-":
		return graph.LoadEdgeList(stdin)
	default:
		return graph.ReadEdgeListFile(args[0])
	}
}

// runLocalGroup runs a distributed search over an in-process group of cfg.Procs ranks and returns rank 0's result.
func runLocalGroup(ctx context.Context, G *graph.Graph, cfg *Config) (dist.Result, error) {
	comms, err := dist.NewLocalGroup(cfg.Procs, cfg.Dist.Timeout)
	if err != nil {
		return dist.Result{}, err
	}

	results := make([]dist.Result, len(comms))
	grp, grpCtx := errgroup.WithContext(ctx)
	for r, comm := range comms {
		var rankGraph *graph.Graph
		if r == 0 {
			rankGraph = G
		}

		// Each rank opens its own on-disk memo table.
		rankOpts := cfg.Dist
		if rankOpts.Search.MemoPath != "" {
			rankOpts.Search.MemoPath = filepath.Join(rankOpts.Search.MemoPath, fmt.Sprintf("rank-%d", r))
		}
		r, comm := r, comm
		grp.Go(func() error {
			defer comm.Close()
			var err error
			results[r], err = dist.FindMaxClique(grpCtx, comm, rankGraph, rankOpts)
			return err
		})
	}
	if err = grp.Wait(); err != nil {
		return dist.Result{}, err
	}
	return results[0], nil
}

func finishReport(out io.Writer, cfg *Config, G *graph.Graph, K goclique.Clique, rep *Report) error {
	rep.NumVerts = G.NumVerts()
	rep.NumEdges = G.NumEdges()
	rep.Strategy = string(cfg.Search.Strategy)
	if cfg.Search.Strategy == goclique.StrategyExhaustive {
		rep.Memo = string(cfg.Search.Memo)
	}
	if cfg.Procs > 1 {
		rep.Procs = cfg.Procs
	}
	if cfg.Verify {
		if err := search.VerifyMaximum(G, K); err != nil {
			return err
		}
		rep.Verified = true
	}
	return rep.Write(out, cfg.Format)
}

// serveMetrics starts a prometheus endpoint on addr (if given) and returns its shutdown.
func serveMetrics(addr string) func() {
	if addr == "" {
		return func() {}
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.Default.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			klog.Errorf("metrics server: %v", err)
		}
	}()
	klog.V(1).Infof("serving metrics on %s", addr)
	return func() { srv.Close() }
}
