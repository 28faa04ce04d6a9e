package main

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/2x3systems/maxclique/goclique"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(newViper())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestReportText(t *testing.T) {
	rep := newReport(goclique.Clique{2, 0, 1}, 1500*time.Millisecond)
	var out bytes.Buffer
	require.NoError(t, rep.Write(&out, "text"))
	require.Equal(t, "Execution time: 1500 milliseconds\nMax clique: 1 2 3\nMax clique size: 3\n", out.String())

	require.ErrorIs(t, rep.Write(&out, "xml"), goclique.ErrBadSearchParam)
}

func TestSearchExpr(t *testing.T) {
	out, err := runCLI(t, "", "search", "--expr", "1-2, 1-3, 2-3, 1-4, 1-5", "--workers", "2")
	require.NoError(t, err)
	require.Contains(t, out, "Max clique: 1 2 3\nMax clique size: 3\n")
}

func TestSearchYAMLSimulatedGroup(t *testing.T) {
	out, err := runCLI(t, "", "search", "--expr", "1-2-3-1, 4-5-6-7-4, 4-6, 5-7", "--procs", "3", "--format", "yaml", "--verify")
	require.NoError(t, err)

	var rep Report
	require.NoError(t, yaml.Unmarshal([]byte(out), &rep))
	require.Equal(t, []int{4, 5, 6, 7}, rep.Clique)
	require.Equal(t, 4, rep.Size)
	require.Equal(t, 7, rep.NumVerts)
	require.Equal(t, 3, rep.Procs)
	require.True(t, rep.Verified)
	require.NotEmpty(t, rep.RunID)
	require.Equal(t, "map", rep.Memo)
	require.Len(t, rep.Ranks, 3)
	require.Equal(t, 4, rep.Ranks[0].Size)
}

func TestSearchStdin(t *testing.T) {
	out, err := runCLI(t, "5 4\n1 2\n2 3\n1 3\n4 5\n", "search", "-", "--memo", "lsm", "--prune")
	require.NoError(t, err)
	require.Contains(t, out, "Max clique size: 3\n")

	_, err = runCLI(t, "5 4\n1 2\n2 3\n", "search")
	require.ErrorIs(t, err, goclique.ErrMalformedGraph)
}

func TestGenThenSearch(t *testing.T) {
	dir := t.TempDir()
	pathname := filepath.Join(dir, "g.txt")

	_, err := runCLI(t, "", "gen", "-n", "14", "-p", "0.6", "--seed", "7", "-o", pathname)
	require.NoError(t, err)

	out, err := runCLI(t, "", "search", pathname, "--verify", "--memo", "lsm", "--memo-path", filepath.Join(dir, "memo"))
	require.NoError(t, err)
	require.Contains(t, out, "Max clique size: ")

	out, err = runCLI(t, "", "search", pathname, "--strategy", "greedy")
	require.NoError(t, err)
	require.Contains(t, out, "Max clique size: ")

	out, err = runCLI(t, "", "search", pathname, "--strategy", "first-fit", "--verify")
	if err != nil {
		// a heuristic may miss the maximum
		require.ErrorIs(t, err, goclique.ErrInvalidClique)
	} else {
		require.Contains(t, out, "Max clique size: ")
	}

	out, err = runCLI(t, "", "gen", "-n", "3", "-p", "1", "--matrix")
	require.NoError(t, err)
	require.Equal(t, "0 1 1\n1 0 1\n1 1 0\n", out)
}

func TestCoordinatorAndWorker(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	type outcome struct {
		out string
		err error
	}
	coordinated := make(chan outcome, 1)
	go func() {
		out, err := runCLI(t, "", "coordinator", "testdata/scenario-a.txt", "--listen", addr, "--procs", "2", "--format", "yaml", "--verify")
		coordinated <- outcome{out, err}
	}()

	// retry until the coordinator is listening
	for attempt := 0; attempt < 50; attempt++ {
		if _, err = runCLI(t, "", "worker", "--connect", "ws://"+addr+"/maxclique", "--rank", "1", "--procs", "2"); err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	require.NoError(t, err)

	got := <-coordinated
	require.NoError(t, got.err)

	var rep Report
	require.NoError(t, yaml.Unmarshal([]byte(got.out), &rep))
	require.Equal(t, []int{1, 2, 3}, rep.Clique)
	require.Equal(t, 2, rep.Procs)
	require.True(t, rep.Verified)
	require.NotEmpty(t, rep.RunID)
	require.Equal(t, []RankBest{{Rank: 0, Size: 3}, {Rank: 1, Size: 2}}, rep.Ranks)
}

func TestConfigSources(t *testing.T) {
	t.Setenv("MAXCLIQUE_STRATEGY", "annealing")
	_, err := runCLI(t, "", "search", "--expr", "1-2")
	require.ErrorIs(t, err, goclique.ErrBadSearchParam)

	// flags beat env vars
	out, err := runCLI(t, "", "search", "--expr", "1-2", "--strategy", "exhaustive")
	require.NoError(t, err)
	require.Contains(t, out, "Max clique: 1 2\n")

	t.Setenv("MAXCLIQUE_STRATEGY", "")
	pathname := filepath.Join(t.TempDir(), "maxclique.yaml")
	require.NoError(t, os.WriteFile(pathname, []byte("format: yaml\nmemo: otter\nmemo-capacity: 128\n"), 0o644))
	out, err = runCLI(t, "", "search", "--expr", "1-2-3", "--config", pathname)
	require.NoError(t, err)

	var rep Report
	require.NoError(t, yaml.Unmarshal([]byte(out), &rep))
	require.Equal(t, "otter", rep.Memo)
	require.Equal(t, 2, rep.Size)

	require.NoError(t, os.WriteFile(pathname, []byte("memo: otter\nmemo-capacity: 0\n"), 0o644))
	_, err = runCLI(t, "", "search", "--expr", "1-2-3", "--config", pathname)
	require.ErrorIs(t, err, goclique.ErrBadSearchParam)
}
