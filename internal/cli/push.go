package cli

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lumaops/datalake-extract/internal/config"
	"github.com/lumaops/datalake-extract/internal/upload"
	"github.com/lumaops/datalake-extract/pkg/logger"
)

// newPushCmd creates and configures the "push" sub-command.
func newPushCmd(configFile *string) *cobra.Command {
	pushCmd := &cobra.Command{
		Use:   "push",
		Short: "Upload extraction artifacts to the S3 staging bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPushCmd(cmd.Context(), *configFile)
		},
	}

	return pushCmd
}

// runPushCmd pushes the schema registry, metadata and extraction history of
// every configured business class. The push needs no datalake token, so it
// skips the OAuth bootstrap and builds only config and logging.
func runPushCmd(ctx context.Context, configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Files.LogFile, zerolog.InfoLevel); err != nil {
		return err
	}
	defer logger.Close()

	uploader, err := upload.NewS3Uploader(cfg.AWS, logger.Logger())
	if err != nil {
		return err
	}

	for _, group := range cfg.Extractions.ActiveGroups() {
		for _, bc := range cfg.BusinessClasses(group) {
			logger.Infof("Pushing artifacts for business class: %s", bc)
			if err := upload.PushArtifacts(ctx, uploader, cfg.Files, bc); err != nil {
				return err
			}
		}
	}
	return nil
}
