package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lumaops/datalake-extract/internal/extract"
	"github.com/lumaops/datalake-extract/internal/report"
	"github.com/lumaops/datalake-extract/pkg/logger"
)

// newExtractCmd creates and configures the "extract" sub-command.
func newExtractCmd(configFile *string) *cobra.Command {
	var full bool
	var validate bool
	var track bool

	extractCmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract the configured business classes from the datalake",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtractCmd(cmd.Context(), *configFile, full, validate, track)
		},
	}

	extractCmd.Flags().BoolVar(&full, "full", false, "Wipe and re-extract every object instead of the incremental delta")
	extractCmd.Flags().BoolVar(&validate, "validate", false, "Reconcile written row counts against the datalake's record counts")
	extractCmd.Flags().BoolVar(&track, "track", false, "Record run outcomes in the job tracker table")

	return extractCmd
}

func runExtractCmd(ctx context.Context, configFile string, full, validate, track bool) error {
	a, err := newApp(ctx, configFile)
	if err != nil {
		return err
	}
	defer a.close()

	orchestrator := extract.NewOrchestrator(a.cfg, a.client, a.endpoints, logger.Logger())
	if validate {
		orchestrator.WithValidation()
	}

	if track {
		db, err := report.ConnectSQL(a.cfg.JobTracker.ConnString)
		if err != nil {
			return err
		}
		tracker := report.NewJobTracker(db, a.cfg.JobTracker.Table, logger.Logger())
		defer tracker.Close()
		orchestrator.WithReporter(tracker)
	}

	mode := extract.IncrementalLoad
	if full {
		mode = extract.FullLoad
	}
	logger.Infof("Starting %s extraction...", mode)

	return orchestrator.RunGroups(ctx, mode)
}
