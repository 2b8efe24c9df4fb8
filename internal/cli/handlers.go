package cli

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lumaops/datalake-extract/internal/config"
	"github.com/lumaops/datalake-extract/internal/datalake"
	"github.com/lumaops/datalake-extract/internal/oauth"
	"github.com/lumaops/datalake-extract/pkg/logger"
)

// app holds the shared wiring every sub-command needs: config, logging and
// the authenticated datalake client.
type app struct {
	cfg       *config.Config
	client    *datalake.Client
	endpoints *datalake.Endpoints
}

// newApp loads the config, initializes logging and stands up the OAuth token
// manager. The manager issues a token immediately when the store is empty, so
// a bad credential fails here rather than mid-extraction.
func newApp(ctx context.Context, configFile string) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	if err := logger.Init(cfg.Files.LogFile, zerolog.InfoLevel); err != nil {
		return nil, err
	}

	creds, err := oauth.LoadCredentials(cfg.Files.CredentialsFile())
	if err != nil {
		return nil, err
	}

	endpoints := datalake.NewEndpoints(cfg.Env.IONBaseURL, cfg.Env.SSOBaseURL, cfg.Env.ActiveTenant)

	manager, err := oauth.NewManager(ctx, creds, endpoints.TokenURL(), oauth.NewFileStore(cfg.Files.TokenFile()), logger.Logger())
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		client:    datalake.NewClient(manager),
		endpoints: endpoints,
	}, nil
}

func (a *app) close() {
	logger.Close()
}
