package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	historySince string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List readings accepted by PVOutput",
	Long:  `Displays the readings recorded after PVOutput accepted them, newest first.`,
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historySince, "since", "1d", "Only show readings since this date (YYYY-MM-DD or relative like 7d)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Limit number of readings shown (0 = no limit)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	since, err := parseDate(historySince, time.Now())
	if err != nil {
		return fmt.Errorf("parsing --since date: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	data, err := db.ListSubmitted(since, historyLimit)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}

	if len(data) == 0 {
		fmt.Printf("No submissions since %s\n", since.Format("2006-01-02"))
		return nil
	}

	fmt.Println("----------------------------------------------------------")
	fmt.Printf("%-17s  %10s  %7s  %-7s  %s\n", "Reading (UTC)", "Energy", "Voltage", "Mode", "Posted")
	fmt.Println("----------------------------------------------------------")

	for _, record := range data {
		fmt.Printf("%-17s  %10s  %7.1f  %-7s  %s\n",
			record.Reading.Time().Format("2006-01-02 15:04"),
			humanize.SIWithDigits(record.Reading.DayEnergy, 2, "Wh"),
			record.Reading.Voltage,
			record.Mode,
			humanize.Time(record.SubmittedAt))
	}

	fmt.Println("----------------------------------------------------------")
	fmt.Printf("%s readings\n", humanize.Comma(int64(len(data))))

	return nil
}

// parseDate parses a date string in either YYYY-MM-DD format or relative format (e.g., "7d")
func parseDate(dateStr string, now time.Time) (time.Time, error) {
	// Try absolute date format first
	t, err := time.Parse("2006-01-02", dateStr)
	if err == nil {
		return t, nil
	}

	// Try relative format (e.g., "7d" for 7 days ago)
	if len(dateStr) > 1 && dateStr[len(dateStr)-1] == 'd' {
		daysStr := dateStr[:len(dateStr)-1]
		var days int
		if _, err := fmt.Sscanf(daysStr, "%d", &days); err == nil && days >= 0 {
			return now.AddDate(0, 0, -days), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date format: %s (use YYYY-MM-DD or Nd for N days ago)", dateStr)
}
