package main

import (
	"fmt"
	"io"
	"time"

	"github.com/2x3systems/maxclique/goclique"
	"github.com/2x3systems/maxclique/libclique/dist"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Report is the outcome of one run as printed to the user.  Vertex ids are one-based.
type Report struct {
	Clique   []int  `yaml:"clique"`
	Size     int    `yaml:"size"`
	Elapsed  string `yaml:"elapsed"`
	NumVerts int    `yaml:"num_verts"`
	NumEdges int    `yaml:"num_edges"`
	Strategy string `yaml:"strategy"`
	Memo     string `yaml:"memo,omitempty"`
	Procs    int    `yaml:"procs,omitempty"`
	RunID    string `yaml:"run_id,omitempty"`
	Verified bool   `yaml:"verified,omitempty"`

	// Ranks lists each process's local best, best first, for a process group run.
	Ranks []RankBest `yaml:"ranks,omitempty"`

	best    goclique.Clique
	elapsed time.Duration
}

func newReport(K goclique.Clique, elapsed time.Duration) *Report {
	K = K.Sorted()
	return &Report{
		Clique:  K.OneBased(),
		Size:    len(K),
		Elapsed: elapsed.Round(time.Microsecond).String(),
		best:    K,
		elapsed: elapsed,
	}
}

// RankBest is the size of one process's local best clique.
type RankBest struct {
	Rank int `yaml:"rank"`
	Size int `yaml:"size"`
}

// addGroupResult records what a process group run reported on rank 0.
func (rep *Report) addGroupResult(res dist.Result) {
	rep.RunID = res.RunID.String()
	rep.Ranks = make([]RankBest, len(res.Standings))
	for i, st := range res.Standings {
		rep.Ranks[i] = RankBest{Rank: st.Rank, Size: st.Size}
	}
}

// Write prints the report in the given format ("text" or "yaml").
func (rep *Report) Write(out io.Writer, format string) error {
	switch format {
	case "", "text":
		_, err := fmt.Fprintf(out, "Execution time: %d milliseconds\nMax clique: %v\nMax clique size: %d\n",
			rep.elapsed.Milliseconds(), rep.best, rep.Size)
		return err
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	}
	return errors.Wrapf(goclique.ErrBadSearchParam, "unknown report format %q", format)
}
