package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/triggerd/triggerd/internal/heartbeat"
	"github.com/triggerd/triggerd/internal/repository"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the triggerer service",
	Long: `Registers this host's job record and refreshes its heartbeat on the
configured schedule until the process receives SIGINT or SIGTERM.`,
	RunE: runTriggerer,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runTriggerer(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, close, err := repository.NewRepositoryWoTx(ctx, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("connect to job storage: %w", err)
	}
	defer close()

	writer, err := heartbeat.New(repo, resolver(cfg), heartbeat.Config{
		JobType:     cfg.Job.Type,
		Schedule:    cfg.Heartbeat.Schedule,
		MaxFailures: cfg.Heartbeat.MaxFailures,
	}, log)
	if err != nil {
		return err
	}

	if err := writer.Run(ctx); err != nil {
		log.Error("triggerer stopped", "error", err)
		return err
	}

	log.Info("triggerer stopped")
	return nil
}
