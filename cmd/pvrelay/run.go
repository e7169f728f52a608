package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jgoulah/pvrelay/internal/checkpoint"
	"github.com/jgoulah/pvrelay/internal/config"
	"github.com/jgoulah/pvrelay/internal/fronius"
	"github.com/jgoulah/pvrelay/internal/metrics"
	"github.com/jgoulah/pvrelay/internal/publisher"
	"github.com/jgoulah/pvrelay/internal/pvoutput"
	"github.com/jgoulah/pvrelay/internal/relay"
	"github.com/jgoulah/pvrelay/pkg/models"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Upload readings archived since the checkpoint",
	Long: `Fetches energy and voltage readings from the inverter archive starting after
the stored checkpoint, posts them to PVOutput and advances the checkpoint to the
last accepted reading. Intended to be run from cron.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Run started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))
	started := time.Now()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, cleanup := newRelay(cfg, log, true)
	defer cleanup()

	res, runErr := r.RunNormal(ctx)
	writeMetrics(cfg, log, res, runErr, time.Since(started))
	if runErr != nil {
		return runErr
	}

	if res.RolledOver {
		fmt.Println("✓ New day, starting from midnight")
	}
	switch {
	case cfg.DryRun:
		fmt.Printf("✓ Dry run: %d readings would have been posted\n", res.Readings)
	case !res.Saved:
		fmt.Println("No new readings since the checkpoint")
	default:
		fmt.Printf("✓ Posted %d readings in %d batches\n", res.Readings, res.Batches)
		fmt.Printf("✓ Checkpoint now %s (%s)\n",
			res.Checkpoint.Time().Local().Format("2006-01-02 15:04"),
			humanize.SIWithDigits(res.Checkpoint.DayEnergy, 2, "Wh"))
	}

	return nil
}

// newRelay wires the inverter, PVOutput, checkpoint and the optional history
// and MQTT mirror. withMirror is false for reposts.
func newRelay(cfg *config.Config, log *logrus.Logger, withMirror bool) (*relay.Relay, func()) {
	var closers []func()

	deps := relay.Deps{
		Reader: fronius.NewClient(cfg.Inverter.Host, cfg.GetInverterTimeout(), log),
		Submitter: pvoutput.New(pvoutput.Options{
			BaseURL: cfg.GetPVOutputURL(),
			Credentials: pvoutput.Credentials{
				APIKey:   cfg.PVOutput.APIKey,
				SystemID: cfg.PVOutput.SystemID,
			},
			BatchSize: cfg.GetBatchSize(),
			Pause:     cfg.GetBatchPause(),
			Timeout:   cfg.GetPVOutputTimeout(),
			DryRun:    cfg.DryRun,
		}, log),
		Store:  checkpoint.New(cfg.GetCheckpointPath(), cfg.DryRun, log),
		DryRun: cfg.DryRun,
	}

	if !cfg.DryRun {
		db, err := openDB(cfg)
		if err != nil {
			fmt.Printf("⚠ Submission history disabled: %v\n", err)
		} else {
			deps.History = db
			closers = append(closers, func() { db.Close() })
		}
	}

	if withMirror && cfg.MQTT.Enabled && !cfg.DryRun {
		pub, err := publisher.New(cfg.MQTT, cfg.GetTopicPrefix(), cfg.PVOutput.SystemID)
		if err != nil {
			fmt.Printf("⚠ MQTT mirror disabled: %v\n", err)
		} else {
			deps.Mirror = pub
			closers = append(closers, pub.Close)
		}
	}

	return relay.New(deps, log), func() {
		for _, c := range closers {
			c()
		}
	}
}

func writeMetrics(cfg *config.Config, log logrus.FieldLogger, res relay.Result, runErr error, took time.Duration) {
	if cfg.MetricsFile == "" || cfg.DryRun {
		return
	}
	// Reposts and early failures carry no fresh checkpoint
	cp := res.Checkpoint
	if cp.Timestamp == 0 {
		cp = storedCheckpoint(cfg, log)
	}

	m := metrics.New()
	if err := m.Restore(cfg.MetricsFile); err != nil {
		log.WithError(err).Warn("Could not read previous metrics, starting fresh")
	}
	m.Observe(metrics.Run{
		Mode:           string(res.Mode),
		Readings:       res.Readings,
		Batches:        res.Batches,
		Duration:       took,
		Finished:       time.Now(),
		Err:            runErr,
		CheckpointTime: cp.Timestamp,
		CheckpointWh:   cp.DayEnergy,
	})
	if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
		log.WithError(err).Warn("Could not write metrics")
	}
}

// storedCheckpoint returns the checkpoint on disk, or a zero reading if there is none
func storedCheckpoint(cfg *config.Config, log logrus.FieldLogger) models.Reading {
	store := checkpoint.New(cfg.GetCheckpointPath(), true, log)
	if _, err := os.Stat(store.Path()); err != nil {
		return models.Reading{}
	}
	return store.Load()
}
