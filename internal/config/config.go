package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Database struct {
	DSN string `mapstructure:"dsn"`
}

type Job struct {
	Type string `mapstructure:"type"`
}

type Heartbeat struct {
	Schedule    string `mapstructure:"schedule"`
	MaxFailures int    `mapstructure:"max_failures"`
}

type Liveness struct {
	// Threshold is the maximum acceptable heartbeat age. Keep it a small
	// multiple of the heartbeat schedule or the probe will flap.
	Threshold    time.Duration `mapstructure:"threshold"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Database  Database  `mapstructure:"database"`
	Job       Job       `mapstructure:"job"`
	Heartbeat Heartbeat `mapstructure:"heartbeat"`
	Liveness  Liveness  `mapstructure:"liveness"`
	Hostname  string    `mapstructure:"hostname"`
	Log       Log       `mapstructure:"log"`
}

// Load reads the optional YAML config file, then applies TRIGGERD_* env
// overrides on top of the defaults.
func Load(file string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database.dsn", "")
	v.SetDefault("job.type", "triggerer")
	v.SetDefault("heartbeat.schedule", "@every 10s")
	v.SetDefault("heartbeat.max_failures", 5)
	v.SetDefault("liveness.threshold", 30*time.Second)
	v.SetDefault("liveness.probe_timeout", 5*time.Second)
	v.SetDefault("hostname", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("triggerd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/triggerd")
	}

	v.SetEnvPrefix("TRIGGERD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if file != "" || !notFound {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	if c.Liveness.Threshold <= 0 {
		return fmt.Errorf("liveness.threshold must be positive")
	}

	return nil
}
