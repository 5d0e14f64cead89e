package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"autodev/pkg/persistence"
)

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List past runs, or show the build and probe record of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workDir, err := flags.resolveWorkDir()
			if err != nil {
				return err
			}
			cfg, err := flags.loadConfig(workDir)
			if err != nil {
				return err
			}

			dbPath := cfg.Storage.DatabasePath
			if !filepath.IsAbs(dbPath) {
				dbPath = filepath.Join(workDir, dbPath)
			}
			db, err := persistence.InitializeDatabase(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			ops := persistence.NewDatabaseOperations(db)
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				return showRun(out, ops, args[0])
			}
			return listRuns(out, ops, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list (0 for all)")
	return cmd
}

func listRuns(out io.Writer, ops *persistence.DatabaseOperations, limit int) error {
	runs, err := ops.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	const row = "%-36s  %-19s  %-9s  %-28s  %7s  %s\n"
	fmt.Fprintf(out, row, "RUN", "STARTED", "STATUS", "FAILURE", "TOKENS", "REQUEST")
	for _, r := range runs {
		failure := "-"
		if r.ErrorKind != "" {
			failure = r.ErrorStage + "/" + r.ErrorKind
		}
		fmt.Fprintf(out, row, r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status, failure,
			strconv.FormatInt(r.PromptTokens+r.CompletionTokens, 10), truncate(r.Request, 48))
	}
	return nil
}

func showRun(out io.Writer, ops *persistence.DatabaseOperations, runID string) error {
	run, err := ops.GetRun(runID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Run:         %s\nStatus:      %s\nRequest:     %s\nDescription: %s\n",
		run.ID, run.Status, run.Request, run.Description)
	if run.Error != "" {
		fmt.Fprintf(out, "Error:       stage=%s kind=%s: %s\n", run.ErrorStage, run.ErrorKind, run.Error)
	}

	attempts, err := ops.GetBuildAttempts(runID)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\nBuilds:")
	for _, a := range attempts {
		fmt.Fprintf(out, "  #%d exit=%d %s\n", a.Attempt, a.ExitCode, a.Duration.Round(time.Millisecond))
	}

	probes, err := ops.GetProbes(runID)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\nProbes:")
	for _, p := range probes {
		if p.Error != "" {
			fmt.Fprintf(out, "  %s error: %s\n", p.Route, p.Error)
			continue
		}
		fmt.Fprintf(out, "  %s %d\n", p.Route, p.Status)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

