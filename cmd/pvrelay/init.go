package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jgoulah/pvrelay/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Writes a config file with the settings given as flags (--host, --key, --sid).
Secrets can be replaced with $VAR references afterwards, they are expanded when
the file is loaded.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := getConfigPath()
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := &config.Config{}
	cfg.Override(overrides)
	cfg.PVOutput.BatchSize = cfg.GetBatchSize()
	cfg.PVOutput.BatchPause = cfg.GetBatchPause()

	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("✓ Wrote %s\n", path)

	if err := cfg.Validate(); err != nil {
		fmt.Printf("⚠ %v\n", err)
	}
	return nil
}
