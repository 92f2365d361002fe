package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/triggerd/triggerd/internal/config"
	"github.com/triggerd/triggerd/internal/hostid"
	"github.com/triggerd/triggerd/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "triggerd",
	Short: "Triggerer heartbeat service and liveness probe",
	Long: `triggerd runs a long-lived triggerer worker that records periodic
heartbeats in Postgres, and ships the liveness probe a supervisor uses to
decide whether to restart it.

'triggerd run' is the service; 'triggerd probe' answers alive/not-alive
through its exit status only.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./triggerd.yaml or /etc/triggerd/triggerd.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"log format (text, json)")
}

// loadConfig layers flag overrides on top of file and TRIGGERD_* env
// configuration, then builds the process logger from the result.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	return cfg, logging.New(cfg.Log.Level, cfg.Log.Format), nil
}

func resolver(cfg *config.Config) hostid.Resolver {
	if cfg.Hostname != "" {
		return hostid.Fixed(cfg.Hostname)
	}

	return hostid.NewOSResolver()
}
