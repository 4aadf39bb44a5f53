package cmd

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/binjac/samplem-bridge/internal/exec"
)

// checkTimeout bounds the samplem --help check.
const checkTimeout = 10 * time.Second

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that samplem can be found and started",
	Long: `Show every location tried while looking for the samplem executable, then
start it once with --help to confirm it runs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := requireConfig(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		resolver := newRunner(cfg).Resolver()

		fmt.Fprintf(out, "Looking for %s\n", resolver.Name())
		found := ""
		for _, a := range resolver.Explain() {
			if a.Err != nil {
				fmt.Fprintf(out, "  ✗ %s: %v\n", a.Path, a.Err)
				continue
			}
			fmt.Fprintf(out, "  ✓ %s\n", a.Path)
			found = a.Path
		}
		if found == "" {
			return errors.New("samplem not found: install it or set executable.name in the config")
		}

		ctx, cancel := context.WithTimeout(ctx, checkTimeout)
		defer cancel()

		res, err := exec.New().Run(ctx, &exec.RunOptions{Name: found, Args: []string{"--help"}})
		if err != nil && res.ExitCode == exec.NoExitCode {
			return fmt.Errorf("start %s: %w", found, err)
		}
		fmt.Fprintf(out, "%s --help exited with %d\n", found, res.ExitCode)
		if line := firstLine(res.Stdout); line != "" {
			fmt.Fprintf(out, "  %s\n", line)
		}

		return nil
	},
}

func firstLine(b []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if line := bytes.TrimSpace(sc.Bytes()); len(line) > 0 {
			return string(line)
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
