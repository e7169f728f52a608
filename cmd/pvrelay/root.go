package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jgoulah/pvrelay/internal/config"
	"github.com/jgoulah/pvrelay/internal/database"
	"github.com/jgoulah/pvrelay/internal/logging"
)

var (
	cfgFile string

	// flags and PVRELAY_* environment variables
	overrides = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "pvrelay",
	Short: "Relay Fronius inverter readings to PVOutput",
	Long: `pvrelay reads the 5-minute archive of a Fronius inverter and uploads the
produced energy and AC voltage to PVOutput in batches. Progress is tracked in a
checkpoint file so each run only sends readings PVOutput has not seen yet.`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	flags.String("host", "", "inverter address (ip or hostname)")
	flags.StringP("key", "k", "", "PVOutput API key")
	flags.StringP("sid", "s", "", "PVOutput system id")
	flags.String("checkpoint", "", "checkpoint file (default is ./lastReading.json)")
	flags.String("db", "", "submission history database (default is ./data.db)")
	flags.String("metrics-file", "", "write run metrics to this node-exporter textfile")
	flags.Bool("dry-run", false, "fetch and merge but do not post or save anything")
	flags.Bool("debug", false, "enable debug logging")

	if err := overrides.BindPFlags(flags); err != nil {
		panic(err)
	}
	overrides.SetEnvPrefix("PVRELAY")
	overrides.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	overrides.AutomaticEnv()
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the configuration file and applies flag and env overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, err
	}
	cfg.Override(overrides)
	return cfg, nil
}

// saveConfig saves the configuration file
func saveConfig(cfg *config.Config) error {
	return config.Save(getConfigPath(), cfg)
}

func newLogger(cfg *config.Config) *logrus.Logger {
	return logging.New(os.Stderr, cfg.Debug)
}

// openDB opens the history database
func openDB(cfg *config.Config) (*database.DB, error) {
	path := cfg.GetDatabasePath()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}
