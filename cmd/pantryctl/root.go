package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pantrypal/api/internal/config"
	"github.com/pantrypal/api/internal/logger"
)

// loadConfig is swapped in tests
var loadConfig = config.Load

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pantryctl",
		Short:         "PantryPal operator tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newTokenCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newScanCommand())

	return rootCmd
}

// loadWithLogger loads configuration and installs the configured logger on stderr
func loadWithLogger(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger.NewWithWriter(&cfg.Logging, cmd.ErrOrStderr()))
	return cfg, nil
}
