package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/pvrelay/internal/config"
	"github.com/jgoulah/pvrelay/internal/fronius"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Show the inverter's current output",
	Args:  cobra.NoArgs,
	RunE:  runLive,
}

func init() {
	rootCmd.AddCommand(liveCmd)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Inverter.Host == "" {
		return &config.ConfigError{Field: "inverter.host", Message: "inverter address must be set (--host)"}
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := fronius.NewClient(cfg.Inverter.Host, cfg.GetInverterTimeout(), log).Realtime(ctx)
	if err != nil {
		return fmt.Errorf("reading inverter: %w", err)
	}

	if !data.Timestamp.IsZero() {
		fmt.Printf("%-12s %s\n", "Inverter:", data.Timestamp.Local().Format("2006-01-02 15:04:05 MST"))
	}
	if data.Power == 0 && data.Voltage == 0 {
		fmt.Println("Inverter is idle (no AC output)")
	}
	fmt.Printf("%-12s %s\n", "Power:", humanize.SIWithDigits(data.Power, 2, "W"))
	fmt.Printf("%-12s %s\n", "Day energy:", humanize.SIWithDigits(data.DayEnergy, 2, "Wh"))
	fmt.Printf("%-12s %.1f V\n", "Voltage:", data.Voltage)
	return nil
}
