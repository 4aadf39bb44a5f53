//go:build integration

// Package integration provides end-to-end tests for the samplem-bridge CLI
// using testscript and a fake samplem executable.
package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/binjac/samplem-bridge/internal/cmd"
	"github.com/binjac/samplem-bridge/internal/history"
)

// TestMain registers the CLI so scripts run it in a subprocess of the test binary.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"samplem-bridge": cmd.Main,
	}))
}

// TestScripts runs all testscript files in testdata/scripts.
func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir:   "testdata/scripts",
		Setup: setupTestEnv,
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			"latest_run":  cmdLatestRun,
			"wait_status": cmdWaitStatus,
		},
	})
}

// setupTestEnv isolates HOME and puts $WORK/bin, where scripts place their
// fake samplem, first on PATH.
func setupTestEnv(env *testscript.Env) error {
	testHome := filepath.Join(env.WorkDir, "home")
	bin := filepath.Join(env.WorkDir, "bin")

	for _, dir := range []string{
		testHome,
		bin,
		filepath.Join(env.WorkDir, "samples"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	env.Setenv("HOME", testHome)
	env.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	env.Setenv("HISTORY", filepath.Join(testHome, ".local", "share", "samplem-bridge", "history.json"))

	return nil
}

// cmdLatestRun sets $RUN to the name of the most recent run.
func cmdLatestRun(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("latest_run does not support negation")
	}

	runs, err := history.NewStore(ts.Getenv("HISTORY")).List(context.Background(), history.ListFilter{Limit: 1})
	ts.Check(err)
	if len(runs) == 0 {
		ts.Fatalf("no runs recorded")
	}
	ts.Setenv("RUN", runs[0].Name)
}

// cmdWaitStatus waits until the most recent run has the given status.
func cmdWaitStatus(ts *testscript.TestScript, neg bool, args []string) {
	if neg || len(args) != 1 {
		ts.Fatalf("usage: wait_status <status>")
	}

	store := history.NewStore(ts.Getenv("HISTORY"))
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		runs, err := store.List(context.Background(), history.ListFilter{Limit: 1})
		if err == nil && len(runs) == 1 && string(runs[0].Status) == args[0] {
			ts.Setenv("RUN", runs[0].Name)
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	ts.Fatalf("no run reached status %s", args[0])
}
