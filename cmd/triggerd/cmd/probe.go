package cmd

import (
	"context"
	"database/sql"

	"github.com/spf13/cobra"
	"github.com/triggerd/triggerd/internal/liveness"
	"github.com/triggerd/triggerd/internal/repository"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check triggerer liveness for this host",
	Long: `Reads the newest heartbeat record for this host and exits 0 if the
triggerer is alive, 1 otherwise. Intended as a container liveness probe; the
exit status is the whole contract, log output is diagnostic only.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// A stalled query must resolve to a failure exit before the
	// supervisor's own timeout fires.
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Liveness.ProbeTimeout)
	defer cancel()

	// The probe is read-only; a read-only transaction gives it a consistent
	// snapshot of the latest row and nothing more.
	repo, close, err := repository.NewRepositoryWithTx(ctx, cfg.Database.DSN, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		log.Error("triggerer not alive", "reason", "job storage unreachable", "error", err)
		return err
	}
	defer close()

	eval := liveness.New(repo, resolver(cfg), liveness.Config{
		JobType:   cfg.Job.Type,
		Threshold: cfg.Liveness.Threshold,
	}, log)

	if err := eval.Check(ctx); err != nil {
		log.Error("triggerer not alive", "error", err)
		return err
	}

	return nil
}
