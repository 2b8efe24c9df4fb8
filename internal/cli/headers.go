package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lumaops/datalake-extract/internal/headers"
	"github.com/lumaops/datalake-extract/pkg/logger"
)

// newHeadersCmd creates and configures the "headers" sub-command.
func newHeadersCmd(configFile *string) *cobra.Command {
	var businessClass string
	var fields string
	var postingCutoff string
	var workers int

	headersCmd := &cobra.Command{
		Use:   "headers",
		Short: "Fetch per-agency record counts from the FSM generic-list endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeadersCmd(cmd.Context(), *configFile, businessClass, fields, postingCutoff, workers)
		},
	}

	headersCmd.Flags().StringVarP(&businessClass, "business-class", "b", "", "Business class to count records for")
	headersCmd.Flags().StringVarP(&fields, "fields", "f", "", "Comma-separated field list for the generic-list query")
	headersCmd.Flags().StringVar(&postingCutoff, "posting-cutoff", "", "Count only records with PostingDate before this date (YYYY-MM-DD)")
	headersCmd.Flags().IntVar(&workers, "workers", 8, "Maximum concurrent agency queries")

	headersCmd.MarkFlagRequired("business-class")
	headersCmd.MarkFlagRequired("fields")
	headersCmd.MarkFlagRequired("posting-cutoff")

	return headersCmd
}

func runHeadersCmd(ctx context.Context, configFile, businessClass, fields, postingCutoff string, workers int) error {
	a, err := newApp(ctx, configFile)
	if err != nil {
		return err
	}
	defer a.close()

	fetcher := headers.NewFetcher(a.client, a.endpoints, a.cfg.Files, logger.Logger())
	if workers > 0 {
		fetcher.Workers = workers
	}

	return fetcher.Run(ctx, businessClass, fields, postingCutoff)
}
