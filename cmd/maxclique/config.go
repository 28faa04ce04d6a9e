package main

import (
	"strings"

	"github.com/2x3systems/maxclique/goclique"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config keys, shared by flags, MAXCLIQUE_* env vars, and the --config file.
const (
	keyConfig       = "config"
	keyWorkers      = "workers"
	keyStrategy     = "strategy"
	keyMemo         = "memo"
	keyMemoCapacity = "memo-capacity"
	keyMemoPath     = "memo-path"
	keyPrune        = "prune"
	keyPartition    = "partition"
	keyTimeout      = "timeout"
	keyProcs        = "procs"
	keyFormat       = "format"
	keyVerify       = "verify"
	keyMetricsAddr  = "metrics-addr"
)

// Config is the resolved configuration for one command invocation.
type Config struct {
	Search      goclique.SearchOpts
	Dist        goclique.DistOpts
	Procs       int
	Format      string
	Verify      bool
	MetricsAddr string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("maxclique")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// addSearchFlags declares the flags every subcommand understands.
func addSearchFlags(flags *pflag.FlagSet) {
	defaults := goclique.DefaultDistOpts()

	flags.String(keyConfig, "", "YAML file of settings (keys match flag names)")
	flags.Int(keyWorkers, 0, "root worker goroutines per process (0 = one per CPU)")
	flags.String(keyStrategy, string(defaults.Search.Strategy), "search strategy: exhaustive, greedy, or first-fit")
	flags.String(keyMemo, string(defaults.Search.Memo), "memo backend: none, map, otter, or lsm")
	flags.Int(keyMemoCapacity, defaults.Search.MemoCapacity, "max states held by the otter memo backend")
	flags.String(keyMemoPath, "", "directory for an on-disk lsm memo table (empty = in memory)")
	flags.Bool(keyPrune, false, "skip branches that cannot beat the best clique found at that node")
	flags.String(keyPartition, string(defaults.Partition), "root partition across processes: balanced or truncate")
	flags.Duration(keyTimeout, defaults.Timeout, "how long a process group peer may stay silent (0 = wait forever)")
	flags.String(keyFormat, "text", "report format: text or yaml")
	flags.Bool(keyVerify, false, "cross-check the result against an independent Bron-Kerbosch enumeration")
	flags.String(keyMetricsAddr, "", "serve prometheus metrics on this address (e.g. :9090)")
}

// loadConfig binds cmd's flags into v, reads the --config file if one is named, and resolves a Config.
func loadConfig(v *viper.Viper, cmd *cobra.Command) (*Config, error) {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	if pathname := v.GetString(keyConfig); pathname != "" {
		v.SetConfigFile(pathname)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config %q", pathname)
		}
	}

	cfg := &Config{
		Search: goclique.SearchOpts{
			Strategy:     goclique.Strategy(v.GetString(keyStrategy)),
			NumWorkers:   v.GetInt(keyWorkers),
			Memo:         goclique.MemoKind(v.GetString(keyMemo)),
			MemoCapacity: v.GetInt(keyMemoCapacity),
			MemoPath:     v.GetString(keyMemoPath),
			Prune:        v.GetBool(keyPrune),
		},
		Procs:       v.GetInt(keyProcs),
		Format:      v.GetString(keyFormat),
		Verify:      v.GetBool(keyVerify),
		MetricsAddr: v.GetString(keyMetricsAddr),
	}
	cfg.Dist = goclique.DistOpts{
		Search:    cfg.Search,
		Partition: goclique.Partition(v.GetString(keyPartition)),
		Timeout:   v.GetDuration(keyTimeout),
	}
	return cfg, cfg.validate()
}

func (cfg *Config) validate() error {
	switch cfg.Search.Strategy {
	case goclique.StrategyExhaustive, goclique.StrategyGreedy, goclique.StrategyFirstFit:
	default:
		return errors.Wrapf(goclique.ErrBadSearchParam, "unknown strategy %q", cfg.Search.Strategy)
	}
	switch cfg.Search.Memo {
	case goclique.MemoNone, goclique.MemoMap, goclique.MemoLSM:
	case goclique.MemoOtter:
		if cfg.Search.MemoCapacity <= 0 {
			return errors.Wrapf(goclique.ErrBadSearchParam, "%s must be > 0 for the otter backend", keyMemoCapacity)
		}
	default:
		return errors.Wrapf(goclique.ErrBadSearchParam, "unknown memo backend %q", cfg.Search.Memo)
	}
	switch cfg.Dist.Partition {
	case goclique.PartitionBalanced, goclique.PartitionTruncate:
	default:
		return errors.Wrapf(goclique.ErrBadSearchParam, "unknown partition %q", cfg.Dist.Partition)
	}
	switch cfg.Format {
	case "text", "yaml":
	default:
		return errors.Wrapf(goclique.ErrBadSearchParam, "unknown report format %q", cfg.Format)
	}
	if cfg.Dist.Timeout < 0 {
		return errors.Wrapf(goclique.ErrBadSearchParam, "negative timeout %v", cfg.Dist.Timeout)
	}
	return nil
}
