// Package checkpoint persists the last reading PVOutput confirmed.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/sirupsen/logrus"

	"github.com/jgoulah/pvrelay/pkg/models"
)

// Store reads and writes the checkpoint file
type Store struct {
	path   string
	dryRun bool
	log    logrus.FieldLogger
	now    func() time.Time
}

// New creates a checkpoint store backed by path. In dry-run mode Save never writes.
func New(path string, dryRun bool, log logrus.FieldLogger) *Store {
	return &Store{
		path:   path,
		dryRun: dryRun,
		log:    log.WithField("component", "checkpoint"),
		now:    time.Now,
	}
}

// Path returns the checkpoint file location
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored checkpoint. A missing or unreadable file yields a
// zero-energy reading at today's UTC midnight.
func (s *Store) Load() models.Reading {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithError(err).Warn("Could not read checkpoint, starting from midnight")
		} else {
			s.log.WithField("path", s.path).Debug("No checkpoint yet, starting from midnight")
		}
		return models.StartOfDay(s.now())
	}

	var cp models.Reading
	if err := json.Unmarshal(data, &cp); err != nil {
		s.log.WithError(err).WithField("path", s.path).Warn("Corrupt checkpoint, starting from midnight")
		return models.StartOfDay(s.now())
	}
	if cp.Timestamp <= 0 {
		s.log.WithField("path", s.path).Warn("Checkpoint has no timestamp, starting from midnight")
		return models.StartOfDay(s.now())
	}

	s.log.WithFields(logrus.Fields{
		"ts":         cp.Timestamp,
		"day_energy": cp.DayEnergy,
		"voltage":    cp.Voltage,
	}).Debug("Loaded checkpoint")
	return cp
}

// Save atomically replaces the checkpoint with r
func (s *Store) Save(r models.Reading) error {
	s.log.WithFields(logrus.Fields{
		"ts":         r.Timestamp,
		"day_energy": r.DayEnergy,
		"voltage":    r.Voltage,
		"path":       s.path,
	}).Debug("Writing checkpoint")

	if s.dryRun {
		return nil
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating checkpoint directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp checkpoint: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("setting checkpoint permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing checkpoint: %w", err)
	}

	return nil
}

// Rollover discards a checkpoint from any UTC day other than now's, since the
// inverter restarts its day energy counter at midnight. The bool reports
// whether the checkpoint was replaced.
func Rollover(cp models.Reading, now time.Time) (models.Reading, bool) {
	today := models.Midnight(now)
	if models.Midnight(cp.Time()).Equal(today) {
		return cp, false
	}
	return models.StartOfDay(now), true
}
