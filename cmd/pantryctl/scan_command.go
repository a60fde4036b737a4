package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pantrypal/api/internal/client"
	"github.com/pantrypal/api/internal/service"
)

func newScanCommand() *cobra.Command {
	var (
		verbose bool
		output  string
	)

	cmd := &cobra.Command{
		Use:   "scan <receipt-image>",
		Short: "Run the receipt pipeline on a local image and print the items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadWithLogger(cmd)
			if err != nil {
				return err
			}

			if output != "json" && output != "table" {
				return fmt.Errorf("unknown output format %q (want json or table)", output)
			}

			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open receipt: %w", err)
			}
			defer f.Close()

			var opts []client.RunOption
			if verbose {
				opts = append(opts, client.WithStatusHook(func(e client.StatusEvent) {
					fmt.Fprintf(cmd.ErrOrStderr(), "run %s: %s (poll %d)\n", e.RunID, e.State, e.Attempt)
				}))
			}

			receipts := service.NewReceiptService(client.NewPipelineClient(&cfg.Pipeline), nil, &cfg.Pipeline, &cfg.Upload)
			result, err := receipts.Scan(cmd.Context(), "", filepath.Base(path), "", f, opts...)
			if err != nil {
				return err
			}

			if output == "table" {
				fmt.Fprintln(cmd.OutOrStdout(), renderItems(result.Items))
				return nil
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print every status poll to stderr")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format: json or table")
	return cmd
}
