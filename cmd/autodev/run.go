package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"autodev/internal/kernel"
	"autodev/pkg/agent"
	"autodev/pkg/console"
	"autodev/pkg/logx"
)

const requestQuestion = "What webserver are we building today?"

func newRunCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [request...]",
		Short: "Run the pipeline for a request; prompts for one when none is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), flags, strings.Join(args, " "))
		},
	}
	cmd.Flags().BoolVarP(&flags.assumeYes, "yes", "y", false, "approve running the generated code without asking")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
	return cmd
}

func runPipeline(parent context.Context, flags *globalFlags, request string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer logx.Sync()

	workDir, err := flags.resolveWorkDir()
	if err != nil {
		return err
	}
	cfg, err := flags.loadConfig(workDir)
	if err != nil {
		return err
	}

	k, err := kernel.NewKernel(cfg, workDir, kernel.Options{
		In:          os.Stdin,
		Out:         os.Stdout,
		AssumeYes:   flags.assumeYes,
		Interactive: console.StdinIsTerminal(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := k.Stop(); stopErr != nil {
			k.Logger.Warn("kernel shutdown: %v", stopErr)
		}
	}()

	if err := k.Start(); err != nil {
		return err
	}

	if strings.TrimSpace(request) == "" {
		request, err = k.Prompter.Ask(requestQuestion)
		if err != nil {
			return fmt.Errorf("no request given: %w", err)
		}
		if request == "" {
			return errors.New("no request given")
		}
	}

	orch, err := k.Orchestrator()
	if err != nil {
		return err
	}

	res := orch.Run(ctx, request)
	if res.Err != nil {
		var se *agent.StageError
		if errors.As(res.Err, &se) {
			return fmt.Errorf("run %s failed: stage=%s kind=%s: %w", res.RunID, se.Stage, se.Kind, se.Err)
		}
		return fmt.Errorf("run %s failed: %w", res.RunID, res.Err)
	}

	fmt.Fprintf(os.Stdout, "\nRun %s finished. Server source: %s\n", res.RunID, k.Store.SourcePath())
	return nil
}
