package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the process configuration. Every value is threaded explicitly
// into collaborator constructors; nothing reads it ambiently.
type Config struct {
	AWS       AWSConfig       `mapstructure:"aws"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AWSConfig selects the account context.
type AWSConfig struct {
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

// DiscoveryConfig controls how state documents are located.
type DiscoveryConfig struct {
	Mode         string `mapstructure:"mode"`
	StatePath    string `mapstructure:"state_path"`
	LocalRoot    string `mapstructure:"local_root"`
	RemoteBucket string `mapstructure:"remote_bucket"`
	RemotePrefix string `mapstructure:"remote_prefix"`
	Workers      int    `mapstructure:"workers"`
}

// AuditConfig controls the creation-event search.
type AuditConfig struct {
	LookbackDays int `mapstructure:"lookback_days"`
}

// ScoringConfig controls the orphan report.
type ScoringConfig struct {
	Workers       int      `mapstructure:"workers"`
	FailFast      bool     `mapstructure:"fail_fast"`
	ResourceTypes []string `mapstructure:"resource_types"`
}

// LoggingConfig controls the logger backend.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("discovery.mode", "hybrid")
	v.SetDefault("discovery.workers", 4)
	v.SetDefault("audit.lookback_days", 90)
	v.SetDefault("scoring.workers", 4)
	v.SetDefault("scoring.fail_fast", false)
	v.SetDefault("scoring.resource_types", []string{"ec2", "rds", "s3"})
	v.SetDefault("logging.level", "info")
}

// Load reads configuration from the given file, or ~/.relic/config.yaml
// when empty, layered under RELIC_* environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".relic"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("RELIC")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
