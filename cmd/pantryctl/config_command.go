package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigValidateCommand())
	return configCmd
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadWithLogger(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration valid")
			fmt.Fprintf(out, "  port:        %s\n", cfg.Server.Port)
			fmt.Fprintf(out, "  store:       %s\n", cfg.Store.Backend)
			fmt.Fprintf(out, "  pipeline:    %s\n", configured(cfg.Pipeline.APIKey != ""))
			fmt.Fprintf(out, "  poll:        every %v, give up after %v\n", cfg.Pipeline.PollInterval, cfg.Pipeline.MaxWait)
			fmt.Fprintf(out, "  r2 archive:  %s\n", configured(cfg.R2.AccessKeyID != ""))
			fmt.Fprintf(out, "  oidc:        %s\n", configured(cfg.OIDC.Issuer != ""))
			return nil
		},
	}
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}
