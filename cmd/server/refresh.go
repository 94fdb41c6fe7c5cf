package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mikelady/socialconnect/internal/clients"
	"github.com/mikelady/socialconnect/internal/config"
	"github.com/mikelady/socialconnect/internal/jobs"
	"github.com/mikelady/socialconnect/internal/observability"
	"github.com/mikelady/socialconnect/internal/services"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh-tokens",
	Short: "Renew provider tokens that are about to expire",
	Long: `Renew every active connection whose token expires within REFRESH_WINDOW.
Exits non-zero when any connection could not be renewed.`,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	logger, err := observability.InitLogger(cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	providers := clients.NewRegistry(cfg.Providers, cfg.OAuth.CallbackURL(), logger)
	job := jobs.NewTokenRefreshJob(st.store, providers, services.NewErrorTranslator(nil), jobs.TokenRefreshConfig{
		Window: cfg.Refresh.Window.Duration,
		Logger: logger,
	})

	result, err := job.Run(ctx)
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d connections could not be refreshed", result.Failed, result.Checked)
	}
	return nil
}
