package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"autodev/pkg/config"
)

func newSecretsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage the encrypted API key file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set KEY=VALUE...",
		Short: "Store provider keys encrypted with $" + config.EnvSecretsPassword,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv(config.EnvSecretsPassword)
			if password == "" {
				return fmt.Errorf("%s must be set", config.EnvSecretsPassword)
			}
			workDir, err := flags.resolveWorkDir()
			if err != nil {
				return err
			}

			secrets := map[string]string{}
			if _, statErr := os.Stat(config.SecretsFilePath(workDir)); statErr == nil {
				if secrets, err = config.DecryptSecretsFile(workDir, password); err != nil {
					return err
				}
			}

			for _, arg := range args {
				key, value, ok := strings.Cut(arg, "=")
				if !ok || key == "" {
					return errors.New("secrets must be given as KEY=VALUE")
				}
				secrets[key] = value
			}

			if err := config.EncryptSecretsFile(workDir, password, secrets); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %d secrets in %s\n", len(secrets), config.SecretsFilePath(workDir))
			return nil
		},
	})
	return cmd
}
