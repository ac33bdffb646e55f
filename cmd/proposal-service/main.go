package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/studiooh/proposal-export-service/config"
	"github.com/studiooh/proposal-export-service/db"
	"github.com/studiooh/proposal-export-service/logger"
)

func createRootCommand(cfg *config.ProposalConfig, log *zap.SugaredLogger) *cobra.Command {

	// rootCmd represents the base command when called without any subcommands
	var rootCmd = &cobra.Command{
		Use:   "proposal-service",
		Short: "Out-of-home media proposal export service",
	}

	var apiServerCmd = &cobra.Command{
		Use:   "api_server",
		Short: "Run the public, private and metrics servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startApiServer(cmd.Context(), cfg, log)
		},
	}

	var migrateDbCmd = &cobra.Command{
		Use:       "migrate_db [up|down]",
		Short:     "Apply or roll back one step of the database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{db.MigrateUp, db.MigrateDown},
		RunE: func(cmd *cobra.Command, args []string) error {
			return performDbMigration(cfg, log, args[0])
		},
	}

	var expiredProposalCleanerCmd = &cobra.Command{
		Use:   "expired_proposal_cleaner",
		Short: "Delete expired proposals and their stored artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startExpiredProposalCleaner(cmd.Context(), cfg, log)
		},
	}

	rootCmd.AddCommand(apiServerCmd, migrateDbCmd, expiredProposalCleanerCmd, createRenderCommand(cfg, log))

	return rootCmd
}

func main() {
	cfg := config.Get()
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := createRootCommand(cfg, log)
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
