package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/triggerd/triggerd/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the job table schema",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	repo, close, err := repository.NewRepositoryWoTx(cmd.Context(), cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("connect to job storage: %w", err)
	}
	defer close()

	if err := repo.EnsureSchema(cmd.Context()); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	log.Info("job schema up to date")
	return nil
}
