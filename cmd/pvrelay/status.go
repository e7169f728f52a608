package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/pvrelay/internal/checkpoint"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored checkpoint",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := newLogger(cfg)

	store := checkpoint.New(cfg.GetCheckpointPath(), true, log)
	if _, err := os.Stat(store.Path()); os.IsNotExist(err) {
		fmt.Printf("No checkpoint at %s, the next run starts at midnight UTC\n", store.Path())
		return nil
	}

	now := time.Now()
	cp := store.Load()

	fmt.Printf("Checkpoint:  %s\n", store.Path())
	fmt.Println("----------------------------------------")
	fmt.Printf("%-12s %s (%s)\n", "Reading:", cp.Time().Local().Format("2006-01-02 15:04:05 MST"), humanize.Time(cp.Time()))
	fmt.Printf("%-12s %s\n", "Day energy:", humanize.SIWithDigits(cp.DayEnergy, 2, "Wh"))
	fmt.Printf("%-12s %.1f V\n", "Voltage:", cp.Voltage)

	if next, rolled := checkpoint.Rollover(cp, now); rolled {
		fmt.Printf("⚠ Checkpoint is from another day, the next run restarts at %s\n",
			next.Time().Format("2006-01-02 15:04 MST"))
	}

	// Only report history when a database already exists
	if _, err := os.Stat(cfg.GetDatabasePath()); err != nil {
		return nil
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	last, err := db.LastSubmitted()
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}
	if last != nil {
		fmt.Printf("%-12s %s by %s run (%s)\n", "Last post:",
			last.SubmittedAt.Local().Format("2006-01-02 15:04:05 MST"), last.Mode, humanize.Time(last.SubmittedAt))
	}
	return nil
}
