package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"autodev/pkg/config"
	"autodev/pkg/logx"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath  string
	workDir     string
	verbose     bool
	domains     []string
	assumeYes   bool
	metricsAddr string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "autodev",
		Short:         "Generate, build and probe a Go web server from a one-line request",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to autodev.yaml")
	root.PersistentFlags().StringVar(&flags.workDir, "workdir", "", "workspace directory holding the generated server, artifacts and run history")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringSliceVar(&flags.domains, "debug-domains", nil, "limit debug logging to these domains (e.g. coder,probe)")

	root.AddCommand(
		newRunCmd(flags),
		newHistoryCmd(flags),
		newSecretsCmd(flags),
		newVersionCmd(),
	)
	return root
}

// resolveWorkDir returns the absolute workspace directory, the current directory by default.
func (f *globalFlags) resolveWorkDir() (string, error) {
	dir := f.workDir
	if dir == "" {
		dir = "."
	}
	return filepath.Abs(dir) //nolint:wrapcheck // path error is descriptive
}

// loadConfig configures logging, decrypts secrets and loads the configuration.
func (f *globalFlags) loadConfig(workDir string) (*config.Config, error) {
	if err := config.LoadSecrets(workDir, os.Getenv(config.EnvSecretsPassword)); err != nil {
		return nil, logx.Wrap(err, "load secrets")
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, logx.Wrap(err, "load config")
	}

	logFile := cfg.Log.File
	if logFile != "" && !filepath.IsAbs(logFile) {
		logFile = filepath.Join(workDir, logFile)
	}
	logx.Configure(logx.Options{
		Output: os.Stderr,
		JSON:   cfg.Log.JSON,
		Debug:  cfg.Log.Debug || f.verbose,
		File:   logFile,
	})
	if len(f.domains) > 0 {
		logx.SetDebugDomains(f.domains)
	}

	if f.metricsAddr != "" {
		cfg.Metrics.ListenAddr = f.metricsAddr
	}
	return cfg, nil
}
